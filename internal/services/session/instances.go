package session

import (
	"github.com/sirupsen/logrus"

	"veil/internal/domain"
)

// Instances returns the endpoint-specific identities of id's party.
func (e *Engine) Instances(id *domain.SessionIdentity) []*domain.SessionIdentity {
	if id == nil || !id.Party().SupportsEndpoints() {
		return nil
	}
	var out []*domain.SessionIdentity
	for _, ep := range id.Party().Endpoints() {
		if inst := e.resolver.Resolve(id.Party(), ep); inst != nil {
			out = append(out, inst)
		}
	}
	return out
}

// OutgoingInstance returns the endpoint identity outgoing messages for the
// logical identity id are routed to, or nil when none is selected.
func (e *Engine) OutgoingInstance(id *domain.SessionIdentity) *domain.SessionIdentity {
	if id == nil {
		return nil
	}
	v, ok := e.outgoing.Load(id.LogicalKey())
	if !ok {
		return nil
	}
	return e.resolver.Resolve(id.Party(), v.(domain.Endpoint))
}

// SetOutgoingInstance routes outgoing messages for id's party to endpoint.
// An empty endpoint clears the selection. The cached status of the logical
// identity is dropped so it is derived again from the selected endpoint.
func (e *Engine) SetOutgoingInstance(id *domain.SessionIdentity, endpoint domain.Endpoint) error {
	if err := check(id); err != nil {
		return err
	}
	logical := e.resolver.Resolve(id.Party(), "")
	if logical == nil {
		return ErrNoIdentity
	}
	if endpoint == "" {
		e.outgoing.Delete(logical.Key())
	} else {
		if e.resolver.Resolve(id.Party(), endpoint) == nil {
			return ErrUnknownEndpoint
		}
		e.outgoing.Store(logical.Key(), endpoint)
	}

	if ent, ok := e.lookup(logical); ok {
		ent.mu.Lock()
		e.sched.Cancel(logical)
		ent.status, ent.set = domain.StatusPlaintext, false
		ent.mu.Unlock()
	}

	e.log.WithFields(logrus.Fields{
		"function": "SetOutgoingInstance",
		"identity": logical.String(),
		"endpoint": endpoint,
	}).Info("Outgoing endpoint selected")
	e.notifyListeners(logical, func(l domain.SessionListener) { l.OutgoingSessionChanged(logical) })
	e.notifyStatus(logical)
	return nil
}

// route returns the identity outgoing traffic for id should use.
func (e *Engine) route(id *domain.SessionIdentity) *domain.SessionIdentity {
	if id.Endpoint() != "" {
		return id
	}
	if inst := e.OutgoingInstance(id); inst != nil {
		return inst
	}
	return id
}
