package session_test

import (
	gocrypto "crypto"
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"veil/internal/crypto"
	"veil/internal/domain"
	"veil/internal/services/connection"
	"veil/internal/services/identity"
	"veil/internal/services/policy"
	"veil/internal/services/scheduler"
	"veil/internal/services/session"
	"veil/internal/services/trust"
	"veil/internal/store"
)

const account domain.AccountID = "xmpp:me@example"

// fakeTransform records calls and lets tests drive status reports.
type fakeTransform struct {
	mu       sync.Mutex
	cb       domain.TransformCallbacks
	status   map[*domain.SessionIdentity]domain.SessionStatus
	pub      gocrypto.PublicKey
	startErr error
	endErr   error
	authErr  error
	calls    []string
	targets  []*domain.SessionIdentity
	onStart  func(id *domain.SessionIdentity)
}

func newFakeTransform(t *testing.T) *fakeTransform {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	return &fakeTransform{
		status: make(map[*domain.SessionIdentity]domain.SessionStatus),
		pub:    kp.PublicKey(),
	}
}

func (f *fakeTransform) factory(cb domain.TransformCallbacks) domain.TransformEngine {
	f.cb = cb
	return f
}

func (f *fakeTransform) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeTransform) callCount(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

// report sets the engine-side status of id and fires the callback.
func (f *fakeTransform) report(id *domain.SessionIdentity, st domain.SessionStatus) {
	f.mu.Lock()
	f.status[id] = st
	f.mu.Unlock()
	f.cb.StatusChanged(id)
}

func (f *fakeTransform) StartSession(id *domain.SessionIdentity) error {
	f.record("start")
	if f.onStart != nil {
		f.onStart(id)
	}
	return f.startErr
}

func (f *fakeTransform) EndSession(id *domain.SessionIdentity) error {
	f.record("end")
	f.mu.Lock()
	f.status[id] = domain.StatusPlaintext
	f.mu.Unlock()
	return f.endErr
}

func (f *fakeTransform) RefreshSession(id *domain.SessionIdentity) error {
	f.record("refresh")
	f.report(id, domain.StatusEncrypted)
	return nil
}

func (f *fakeTransform) TransformOutgoing(id *domain.SessionIdentity, plaintext string) ([]string, error) {
	f.mu.Lock()
	f.targets = append(f.targets, id)
	f.mu.Unlock()
	return []string{"enc:" + plaintext}, nil
}

func (f *fakeTransform) TransformIncoming(_ *domain.SessionIdentity, ciphertext string) (string, bool, error) {
	return ciphertext, true, nil
}

func (f *fakeTransform) CurrentStatus(id *domain.SessionIdentity) domain.SessionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status[id]
}

func (f *fakeTransform) RemotePublicKey(*domain.SessionIdentity) (gocrypto.PublicKey, error) {
	return f.pub, nil
}

func (f *fakeTransform) InitAuth(*domain.SessionIdentity, string, string) error {
	f.record("init-auth")
	return f.authErr
}

func (f *fakeTransform) RespondAuth(*domain.SessionIdentity, string, string) error {
	f.record("respond-auth")
	return f.authErr
}

func (f *fakeTransform) AbortAuth(*domain.SessionIdentity) error {
	f.record("abort-auth")
	return nil
}

// notices collects everything routed to the UI.
type notices struct {
	mu  sync.Mutex
	all []domain.Notice
}

func (n *notices) Notify(notice domain.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.all = append(n.all, notice)
}

func (n *notices) kinds() []domain.NoticeKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.NoticeKind, 0, len(n.all))
	for _, x := range n.all {
		out = append(out, x.Kind)
	}
	return out
}

func (n *notices) find(kind domain.NoticeKind) (domain.Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, x := range n.all {
		if x.Kind == kind {
			return x, true
		}
	}
	return domain.Notice{}, false
}

// events counts listener callbacks per kind.
type events struct {
	mu       sync.Mutex
	status   []*domain.SessionIdentity
	outgoing []*domain.SessionIdentity
	auth     []*domain.SessionIdentity
	multi    []*domain.SessionIdentity
}

func (e *events) SessionStatusChanged(id *domain.SessionIdentity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = append(e.status, id)
}

func (e *events) MultipleEndpointsDetected(id *domain.SessionIdentity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.multi = append(e.multi, id)
}

func (e *events) OutgoingSessionChanged(id *domain.SessionIdentity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.outgoing = append(e.outgoing, id)
}

func (e *events) AuthProgressChanged(id *domain.SessionIdentity) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.auth = append(e.auth, id)
}

func (e *events) statusCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.status)
}

type fixture struct {
	clock    *clock.Mock
	hub      *connection.Hub
	resolver *identity.Service
	trust    *trust.Service
	policies *policy.Service
	sched    *scheduler.Scheduler
	fake     *fakeTransform
	notices  *notices
	events   *events
	engine   *session.Engine
}

func newFixture(t *testing.T, cfg session.Config) *fixture {
	t.Helper()
	props := store.NewMemoryPropertyStore()
	f := &fixture{
		clock:   clock.NewMock(),
		hub:     connection.NewHub(),
		fake:    newFakeTransform(t),
		notices: &notices{},
		events:  &events{},
	}
	f.resolver = identity.New(f.hub)
	f.trust = trust.New(props)
	f.policies = policy.New(props)
	f.sched = scheduler.New(f.clock, f.hub)

	e, err := session.New(cfg, session.Deps{
		Resolver:  f.resolver,
		Keys:      f.trust,
		Policies:  f.policies,
		Scheduler: f.sched,
		Notifier:  f.notices,
		Hub:       f.hub,
		Transform: f.fake.factory,
	})
	require.NoError(t, err)
	f.engine = e
	f.engine.Subscribe(f.events)
	t.Cleanup(func() {
		e.Close()
		f.sched.Close()
		f.resolver.Close()
	})
	return f
}
