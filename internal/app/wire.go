package app

import (
	"github.com/benbjohnson/clock"

	"veil/internal/domain"
	"veil/internal/services/connection"
	"veil/internal/services/identity"
	"veil/internal/services/policy"
	"veil/internal/services/scheduler"
	"veil/internal/services/session"
	"veil/internal/services/trust"
	"veil/internal/store"
)

// Wire bundles all stores and services.
type Wire struct {
	Props     domain.PropertyStore
	Hub       *connection.Hub
	Resolver  *identity.Service
	Trust     *trust.Service
	Policies  *policy.Service
	Scheduler *scheduler.Scheduler
	// Engine is nil when NewWire was given no transform factory.
	Engine *session.Engine
}

// WireOption customises NewWire.
type WireOption func(*wireOptions)

type wireOptions struct {
	clock     clock.Clock
	notifier  domain.Notifier
	transform domain.TransformFactory
}

// WithClock drives the scheduler from clk.
func WithClock(clk clock.Clock) WireOption {
	return func(o *wireOptions) { o.clock = clk }
}

// WithNotifier routes user-facing notices to n.
func WithNotifier(n domain.Notifier) WireOption {
	return func(o *wireOptions) { o.notifier = n }
}

// WithTransform builds a session engine on top of f.
func WithTransform(f domain.TransformFactory) WireOption {
	return func(o *wireOptions) { o.transform = f }
}

// NewWire constructs the dependency graph from cfg.
func NewWire(cfg Config, opts ...WireOption) (*Wire, error) {
	o := wireOptions{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}

	props, err := openProperties(cfg)
	if err != nil {
		return nil, err
	}

	hub := connection.NewHub()
	w := &Wire{
		Props:     props,
		Hub:       hub,
		Resolver:  identity.New(hub),
		Trust:     trust.New(props),
		Policies:  policy.New(props),
		Scheduler: scheduler.New(o.clock, hub),
	}
	if o.transform == nil {
		return w, nil
	}

	engine, err := session.New(sessionConfig(cfg, props), session.Deps{
		Resolver:  w.Resolver,
		Keys:      w.Trust,
		Policies:  w.Policies,
		Scheduler: w.Scheduler,
		Notifier:  o.notifier,
		Hub:       hub,
		Transform: o.transform,
	})
	if err != nil {
		w.Close()
		return nil, err
	}
	w.Engine = engine
	return w, nil
}

func openProperties(cfg Config) (domain.PropertyStore, error) {
	switch {
	case cfg.Home == "":
		return store.NewMemoryPropertyStore(), nil
	case cfg.Passphrase != "":
		return store.OpenSealedPropertyFileStore(cfg.Home, cfg.Passphrase)
	default:
		return store.OpenPropertyFileStore(cfg.Home)
	}
}

// Close detaches every service from the connection hub and stops pending
// timers.
func (w *Wire) Close() {
	if w.Engine != nil {
		w.Engine.Close()
	}
	w.Scheduler.Close()
	w.Resolver.Close()
}
