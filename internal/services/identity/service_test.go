package identity_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veil/internal/domain"
	"veil/internal/services/connection"
	"veil/internal/services/identity"
)

const account domain.AccountID = "xmpp:me@example"

func TestResolve_ReturnsCanonicalIdentity(t *testing.T) {
	r := identity.New(nil)
	alice := domain.NewPeer(account, "alice@example", "phone", "laptop")

	a1 := r.Resolve(alice, "phone")
	a2 := r.Resolve(alice, "phone")
	require.NotNil(t, a1)
	assert.Same(t, a1, a2)

	logical := r.Resolve(alice, "")
	require.NotNil(t, logical)
	assert.Same(t, logical, r.Resolve(alice, ""))
	assert.False(t, logical.Equal(a1))

	laptop := r.Resolve(alice, "laptop")
	assert.NotSame(t, a1, laptop)
	assert.Equal(t, 3, r.Len())
}

func TestResolve_NilPartyAndMissingEndpoint(t *testing.T) {
	r := identity.New(nil)
	assert.Nil(t, r.Resolve(nil, ""))

	alice := domain.NewPeer(account, "alice@example", "phone")
	assert.Nil(t, r.Resolve(alice, "tablet"))
	assert.Equal(t, 0, r.Len())
}

func TestResolve_EndpointDisconnectedAfterResolution(t *testing.T) {
	r := identity.New(nil)
	alice := domain.NewPeer(account, "alice@example", "phone")
	phone := r.Resolve(alice, "phone")
	require.NotNil(t, phone)

	alice.Disconnect("phone")
	assert.Nil(t, r.Resolve(alice, "phone"))
}

func TestResolve_ConcurrentFirstResolutionCreatesOne(t *testing.T) {
	r := identity.New(nil)
	alice := domain.NewPeer(account, "alice@example", "phone")

	const n = 64
	got := make([]*domain.SessionIdentity, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			got[i] = r.Resolve(alice, "phone")
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, got[0], got[i])
	}
	assert.Equal(t, 1, r.Len())
}

func TestByGUID(t *testing.T) {
	r := identity.New(nil)
	alice := domain.NewPeer(account, "alice@example")
	id := r.Resolve(alice, "")

	got, ok := r.ByGUID(id.GUID())
	require.True(t, ok)
	assert.Same(t, id, got)
}

func TestTeardown_ForgetsOnlyThatAccount(t *testing.T) {
	hub := connection.NewHub()
	r := identity.New(hub)
	defer r.Close()

	alice := domain.NewPeer(account, "alice@example", "phone")
	bob := domain.NewPeer("irc:me@net", "bob")

	phone := r.Resolve(alice, "phone")
	logical := r.Resolve(alice, "")
	b := r.Resolve(bob, "")

	hub.Closed(account)

	assert.True(t, phone.Retired())
	assert.True(t, logical.Retired())
	assert.False(t, b.Retired())
	assert.Empty(t, r.Identities(alice))
	assert.Equal(t, 1, r.Len())

	_, ok := r.ByGUID(phone.GUID())
	assert.False(t, ok)

	// A fresh resolution after reconnect yields a new identity.
	again := r.Resolve(alice, "phone")
	require.NotNil(t, again)
	assert.NotSame(t, phone, again)
	assert.False(t, again.Retired())
}
