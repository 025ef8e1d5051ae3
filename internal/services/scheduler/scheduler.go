package scheduler

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"

	"veil/internal/domain"
	"veil/internal/event"
	"veil/internal/services/connection"
)

// FireFunc applies a scheduled transition. It is called from a timer
// goroutine and must validate the current status itself.
//
// claim removes the expired task from the scheduler and reports whether it
// was still the pending task for id. The handler calls it under the same
// lock its callers hold around Schedule, and applies nothing when it returns
// false: the task was replaced or cancelled after it expired.
type FireFunc func(id *domain.SessionIdentity, target domain.SessionStatus, claim func() bool)

type task struct {
	mu     sync.Mutex
	timer  *clock.Timer
	target domain.SessionStatus
}

func (t *task) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
}

// Scheduler keeps at most one pending task per identity.
type Scheduler struct {
	clock clock.Clock
	fire  atomic.Pointer[FireFunc]
	tasks sync.Map // *domain.SessionIdentity -> *task
	log   *logrus.Entry
	sub   *event.Subscription
}

// New returns a scheduler driven by clk. When hub is non-nil, pending tasks
// of an account are cancelled as soon as its connection closes.
func New(clk clock.Clock, hub *connection.Hub) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	s := &Scheduler{
		clock: clk,
		log:   logrus.WithField("component", "timeout_scheduler"),
	}
	if hub != nil {
		s.sub = hub.OnClosed(func(account domain.AccountID) { s.CancelAccount(account) })
	}
	return s
}

// OnFire installs the handler invoked when a task expires.
func (s *Scheduler) OnFire(fn FireFunc) {
	s.fire.Store(&fn)
}

// Close detaches the scheduler from the connection hub and cancels every
// pending task.
func (s *Scheduler) Close() {
	s.sub.Unsubscribe()
	s.tasks.Range(func(k, v any) bool {
		if s.tasks.CompareAndDelete(k, v) {
			v.(*task).stop()
		}
		return true
	})
}

// Schedule replaces any pending task for id with one that moves it to
// target after delay.
func (s *Scheduler) Schedule(id *domain.SessionIdentity, target domain.SessionStatus, delay time.Duration) {
	if id == nil {
		return
	}
	t := &task{target: target}
	t.mu.Lock()
	if old, loaded := s.tasks.Swap(id, t); loaded {
		old.(*task).stop()
	}
	t.timer = s.clock.AfterFunc(delay, func() { s.expire(id, t) })
	t.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"function": "Schedule",
		"identity": id.String(),
		"target":   target.String(),
		"delay":    delay.String(),
	}).Debug("Scheduled status transition")
}

func (s *Scheduler) expire(id *domain.SessionIdentity, t *task) {
	// A task that was replaced or cancelled is no longer in the map.
	if v, ok := s.tasks.Load(id); !ok || v != t {
		return
	}
	claim := func() bool { return s.tasks.CompareAndDelete(id, t) }
	fn := s.fire.Load()
	if fn == nil {
		claim()
		s.log.WithField("identity", id.String()).Warn("Scheduled task expired with no handler installed")
		return
	}
	s.log.WithFields(logrus.Fields{
		"function": "expire",
		"identity": id.String(),
		"target":   t.target.String(),
	}).Debug("Scheduled status transition fired")
	(*fn)(id, t.target, claim)
}

// Cancel removes the pending task for id. It reports whether one existed.
func (s *Scheduler) Cancel(id *domain.SessionIdentity) bool {
	if id == nil {
		return false
	}
	v, ok := s.tasks.LoadAndDelete(id)
	if !ok {
		return false
	}
	v.(*task).stop()
	return true
}

// Pending reports whether id has a task that has not been claimed by the
// fire handler yet.
func (s *Scheduler) Pending(id *domain.SessionIdentity) bool {
	if id == nil {
		return false
	}
	_, ok := s.tasks.Load(id)
	return ok
}

// Len returns the number of pending tasks.
func (s *Scheduler) Len() int {
	n := 0
	s.tasks.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// CancelAccount cancels every pending task owned by account.
func (s *Scheduler) CancelAccount(account domain.AccountID) int {
	n := 0
	s.tasks.Range(func(k, v any) bool {
		if k.(*domain.SessionIdentity).Account() != account {
			return true
		}
		if s.tasks.CompareAndDelete(k, v) {
			v.(*task).stop()
			n++
		}
		return true
	})
	if n > 0 {
		s.log.WithFields(logrus.Fields{
			"function": "CancelAccount",
			"account":  account,
			"count":    n,
		}).Debug("Cancelled pending transitions")
	}
	return n
}

// Compile-time assertion that Scheduler implements domain.TimeoutScheduler.
var _ domain.TimeoutScheduler = (*Scheduler)(nil)
