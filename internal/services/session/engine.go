package session

import (
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"

	"veil/internal/domain"
	"veil/internal/event"
	"veil/internal/services/connection"
	"veil/internal/services/scheduler"
)

// Deps are the collaborators of an Engine. Hub and Notifier are optional.
type Deps struct {
	Resolver  domain.IdentityResolver
	Keys      domain.KeyStore
	Policies  domain.PolicyStore
	Scheduler *scheduler.Scheduler
	Notifier  domain.Notifier
	Hub       *connection.Hub
	Transform domain.TransformFactory
}

// entry is the per-identity state. The zero value means "no explicit
// status yet", in which case the status is derived from the transform engine.
type entry struct {
	mu     sync.Mutex
	status domain.SessionStatus
	set    bool
	auth   *domain.AuthProgress
}

// Engine is the session state machine.
type Engine struct {
	cfg       Config
	resolver  domain.IdentityResolver
	keys      domain.KeyStore
	policies  domain.PolicyStore
	sched     *scheduler.Scheduler
	notifier  domain.Notifier
	transform domain.TransformEngine

	listeners *event.Registry[domain.SessionListener]
	entries   sync.Map // *domain.SessionIdentity -> *entry
	outgoing  sync.Map // domain.SessionKey (logical) -> domain.Endpoint
	keyLocks  sync.Map // domain.AccountID -> *sync.Mutex
	injected  *lru.Cache
	inflight  *inflight

	log *logrus.Entry
	sub *event.Subscription
}

// New wires an engine. The transform engine is built from deps.Transform
// with the engine's callback host.
func New(cfg Config, deps Deps) (*Engine, error) {
	switch {
	case deps.Resolver == nil:
		return nil, errors.New("session engine: resolver is required")
	case deps.Keys == nil:
		return nil, errors.New("session engine: key store is required")
	case deps.Policies == nil:
		return nil, errors.New("session engine: policy store is required")
	case deps.Scheduler == nil:
		return nil, errors.New("session engine: scheduler is required")
	case deps.Transform == nil:
		return nil, errors.New("session engine: transform factory is required")
	}
	cfg = cfg.withDefaults()

	cache, err := lru.New(cfg.InjectedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("session engine: injected cache: %w", err)
	}

	e := &Engine{
		cfg:       cfg,
		resolver:  deps.Resolver,
		keys:      deps.Keys,
		policies:  deps.Policies,
		sched:     deps.Scheduler,
		notifier:  deps.Notifier,
		listeners: event.NewRegistry[domain.SessionListener](),
		injected:  cache,
		inflight:  newInflight(),
		log:       logrus.WithField("component", "session_engine"),
	}
	e.transform = deps.Transform(&host{e: e})
	if e.transform == nil {
		return nil, errors.New("session engine: transform factory returned nil")
	}
	e.sched.OnFire(e.fire)
	if deps.Hub != nil {
		e.sub = deps.Hub.OnClosed(e.teardown)
	}
	return e, nil
}

// Close detaches the engine from the connection hub.
func (e *Engine) Close() {
	e.sub.Unsubscribe()
}

// Subscribe registers l for session events.
func (e *Engine) Subscribe(l domain.SessionListener) *event.Subscription {
	return e.listeners.Subscribe(l)
}

// Transform exposes the transform engine the Engine drives.
func (e *Engine) Transform() domain.TransformEngine { return e.transform }

func (e *Engine) entry(id *domain.SessionIdentity) *entry {
	if v, ok := e.entries.Load(id); ok {
		return v.(*entry)
	}
	v, _ := e.entries.LoadOrStore(id, &entry{})
	return v.(*entry)
}

func (e *Engine) lookup(id *domain.SessionIdentity) (*entry, bool) {
	v, ok := e.entries.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*entry), true
}

func check(id *domain.SessionIdentity) error {
	if id == nil {
		return ErrNoIdentity
	}
	if id.Retired() {
		return ErrRetired
	}
	return nil
}

// Status returns the status of id. Identities without an explicit status
// take the one reported by the transform engine for the endpoint that
// outgoing messages are currently routed to.
func (e *Engine) Status(id *domain.SessionIdentity) domain.SessionStatus {
	if id == nil {
		return domain.StatusPlaintext
	}
	if ent, ok := e.lookup(id); ok {
		ent.mu.Lock()
		st, set := ent.status, ent.set
		ent.mu.Unlock()
		if set {
			return st
		}
	}
	if target := e.route(id); target != id {
		return e.Status(target)
	}
	return e.transform.CurrentStatus(id)
}

// ---------- Notifications ----------

// inflight counts notification fan-outs in progress per account.
type inflight struct {
	mu   sync.Mutex
	cond *sync.Cond
	n    map[domain.AccountID]int
}

func newInflight() *inflight {
	f := &inflight{n: make(map[domain.AccountID]int)}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *inflight) enter(account domain.AccountID) {
	f.mu.Lock()
	f.n[account]++
	f.mu.Unlock()
}

func (f *inflight) leave(account domain.AccountID) {
	f.mu.Lock()
	f.n[account]--
	if f.n[account] <= 0 {
		delete(f.n, account)
		f.cond.Broadcast()
	}
	f.mu.Unlock()
}

// wait blocks until no fan-out for account is in progress.
func (f *inflight) wait(account domain.AccountID) {
	f.mu.Lock()
	for f.n[account] > 0 {
		f.cond.Wait()
	}
	f.mu.Unlock()
}

// deliver runs fn counted as in flight for id's account. The retired check
// comes after enter, so teardown either sees the fan-out and waits for it,
// or the fan-out sees the identity retired and skips fn.
func (e *Engine) deliver(id *domain.SessionIdentity, fn func()) {
	account := id.Account()
	e.inflight.enter(account)
	defer e.inflight.leave(account)
	if id.Retired() {
		return
	}
	fn()
}

// notifyListeners fans fn out to a snapshot of the session listeners,
// skipping the remaining ones once id is retired.
func (e *Engine) notifyListeners(id *domain.SessionIdentity, fn func(domain.SessionListener)) {
	e.deliver(id, func() {
		e.listeners.Notify(func(l domain.SessionListener) {
			if id.Retired() {
				return
			}
			fn(l)
		})
	})
}

func (e *Engine) notifyStatus(id *domain.SessionIdentity) {
	e.notifyListeners(id, func(l domain.SessionListener) { l.SessionStatusChanged(id) })
}

func (e *Engine) notifyAuth(id *domain.SessionIdentity) {
	e.notifyListeners(id, func(l domain.SessionListener) { l.AuthProgressChanged(id) })
}

func (e *Engine) notice(n domain.Notice) {
	if e.notifier == nil {
		return
	}
	if n.Identity == nil {
		e.notifier.Notify(n)
		return
	}
	e.deliver(n.Identity, func() { e.notifier.Notify(n) })
}

// delegateFailed logs err and routes it to the notifier as an error notice.
func (e *Engine) delegateFailed(op string, id *domain.SessionIdentity, err error) *DelegateError {
	derr := &DelegateError{Op: op, Identity: id, Err: err}
	e.log.WithFields(logrus.Fields{
		"function": op,
		"identity": id.String(),
		"error":    err.Error(),
	}).Error("Transform engine call failed")
	e.notice(domain.Notice{
		Kind:     domain.NoticeError,
		Identity: id,
		Text:     fmt.Sprintf("%s failed for %s: %v", op, id.DisplayName(), err),
		Err:      derr,
	})
	return derr
}

// ---------- Teardown ----------

// teardown drops every piece of state owned by account.
//
// Steps:
//  1. Retire every identity of account the engine holds state for. The
//     resolver subscribes to the hub first and has already retired the rest.
//  2. Cancel their timeouts and delete their entries and outgoing selections.
//  3. Wait for notification fan-outs that started before retirement.
//
// After it returns no listener or notifier callback for those identities
// runs. It must not be triggered from inside such a callback.
func (e *Engine) teardown(account domain.AccountID) {
	n := 0
	e.entries.Range(func(k, _ any) bool {
		id := k.(*domain.SessionIdentity)
		if id.Account() != account {
			return true
		}
		id.Retire()
		e.sched.Cancel(id)
		e.entries.Delete(id)
		n++
		return true
	})
	e.outgoing.Range(func(k, _ any) bool {
		if k.(domain.SessionKey).Account == account {
			e.outgoing.Delete(k)
		}
		return true
	})
	e.inflight.wait(account)

	e.log.WithFields(logrus.Fields{
		"function": "teardown",
		"account":  account,
		"sessions": n,
	}).Debug("Dropped session state for closed connection")
}
