package scheduler_test

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veil/internal/domain"
	"veil/internal/services/connection"
	"veil/internal/services/scheduler"
)

const account domain.AccountID = "xmpp:me@example"

type fired struct {
	mu  sync.Mutex
	got []domain.SessionStatus
}

func (f *fired) handle(_ *domain.SessionIdentity, target domain.SessionStatus, claim func() bool) {
	if !claim() {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, target)
}

func (f *fired) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func newIdentity(address string) *domain.SessionIdentity {
	return domain.NewSessionIdentity(domain.NewPeer(account, address), "")
}

func TestSchedule_FiresOnceAfterDelay(t *testing.T) {
	mock := clock.NewMock()
	s := scheduler.New(mock, nil)
	f := &fired{}
	s.OnFire(f.handle)
	id := newIdentity("alice@example")

	s.Schedule(id, domain.StatusTimedOut, 30*time.Second)
	assert.True(t, s.Pending(id))

	mock.Add(29 * time.Second)
	assert.Zero(t, f.count())
	assert.True(t, s.Pending(id))

	mock.Add(time.Second)
	assert.Eventually(t, func() bool { return f.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, s.Pending(id))
	assert.Equal(t, 0, s.Len())

	mock.Add(time.Minute)
	assert.Never(t, func() bool { return f.count() > 1 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestSchedule_ReplacesPendingTask(t *testing.T) {
	mock := clock.NewMock()
	s := scheduler.New(mock, nil)
	f := &fired{}
	s.OnFire(f.handle)
	id := newIdentity("alice@example")

	s.Schedule(id, domain.StatusTimedOut, 10*time.Second)
	mock.Add(5 * time.Second)
	s.Schedule(id, domain.StatusTimedOut, 10*time.Second)
	assert.Equal(t, 1, s.Len())

	mock.Add(6 * time.Second)
	assert.Never(t, func() bool { return f.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	mock.Add(5 * time.Second)
	assert.Eventually(t, func() bool { return f.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestExpire_ReplacedBeforeClaimIsNotApplied(t *testing.T) {
	mock := clock.NewMock()
	s := scheduler.New(mock, nil)
	id := newIdentity("alice@example")
	claimed := make(chan bool, 1)
	s.OnFire(func(id *domain.SessionIdentity, _ domain.SessionStatus, claim func() bool) {
		// A fresh Schedule lands between expiry and the handler's claim.
		s.Schedule(id, domain.StatusTimedOut, time.Minute)
		claimed <- claim()
	})

	s.Schedule(id, domain.StatusTimedOut, time.Second)
	mock.Add(time.Second)
	select {
	case ok := <-claimed:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("fire handler not called")
	}
	assert.True(t, s.Pending(id))
	assert.Equal(t, 1, s.Len())
}

func TestCancel_IsIdempotent(t *testing.T) {
	mock := clock.NewMock()
	s := scheduler.New(mock, nil)
	f := &fired{}
	s.OnFire(f.handle)
	id := newIdentity("alice@example")

	assert.False(t, s.Cancel(id))
	s.Schedule(id, domain.StatusTimedOut, time.Second)
	assert.True(t, s.Cancel(id))
	assert.False(t, s.Cancel(id))
	assert.False(t, s.Pending(id))

	mock.Add(time.Minute)
	assert.Never(t, func() bool { return f.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestTeardownCancelsOnlyThatAccount(t *testing.T) {
	mock := clock.NewMock()
	hub := connection.NewHub()
	s := scheduler.New(mock, hub)
	f := &fired{}
	s.OnFire(f.handle)

	mine := newIdentity("alice@example")
	other := domain.NewSessionIdentity(domain.NewPeer("irc:me", "bob"), "")
	s.Schedule(mine, domain.StatusTimedOut, time.Second)
	s.Schedule(other, domain.StatusTimedOut, time.Second)

	hub.Closed(account)
	assert.False(t, s.Pending(mine))
	require.True(t, s.Pending(other))

	mock.Add(time.Second)
	assert.Eventually(t, func() bool { return f.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, s.Len())
}

func TestClose_DropsEverything(t *testing.T) {
	mock := clock.NewMock()
	hub := connection.NewHub()
	s := scheduler.New(mock, hub)
	s.Schedule(newIdentity("a"), domain.StatusTimedOut, time.Second)
	s.Schedule(newIdentity("b"), domain.StatusTimedOut, time.Second)

	s.Close()
	assert.Equal(t, 0, s.Len())
	hub.Closed(account)
}
