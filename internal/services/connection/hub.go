package connection

import (
	"github.com/sirupsen/logrus"

	"veil/internal/domain"
	"veil/internal/event"
)

// TeardownFunc is invoked synchronously when an account's connection closes.
type TeardownFunc func(account domain.AccountID)

// Hub fans out teardown events. Closed returns only after every subscriber
// has finished, so callers can treat it as a barrier. Subscribers run in
// registration order: the identity resolver is registered first so every
// identity of the account is retired before the engine waits out its
// in-flight notifications.
type Hub struct {
	subs *event.Registry[TeardownFunc]
	log  *logrus.Entry
}

// NewHub returns a hub with no subscribers.
func NewHub() *Hub {
	return &Hub{
		subs: event.NewRegistry[TeardownFunc](),
		log:  logrus.WithField("component", "connection_hub"),
	}
}

// OnClosed registers fn for teardown events.
func (h *Hub) OnClosed(fn TeardownFunc) *event.Subscription {
	return h.subs.Subscribe(fn)
}

// Closed reports that the connection owning account has been torn down.
func (h *Hub) Closed(account domain.AccountID) {
	h.log.WithFields(logrus.Fields{
		"function":    "Closed",
		"account":     account,
		"subscribers": h.subs.Len(),
	}).Debug("Connection closed, cleaning cached session state")
	h.subs.Notify(func(fn TeardownFunc) { fn(account) })
}
