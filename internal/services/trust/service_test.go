package trust_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veil/internal/crypto"
	"veil/internal/domain"
	"veil/internal/services/trust"
	"veil/internal/store"
)

const account domain.AccountID = "xmpp:me@example"

type recordingListener struct {
	mu     sync.Mutex
	events []domain.Fingerprint
}

func (r *recordingListener) VerificationStatusChanged(_ *domain.SessionIdentity, fp domain.Fingerprint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fp)
}

func (r *recordingListener) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestKeyPair_GenerateLoadAndFingerprint(t *testing.T) {
	s := trust.New(store.NewMemoryPropertyStore())

	_, ok := s.LoadKeyPair(account)
	assert.False(t, ok)
	_, ok = s.LocalFingerprint(account)
	assert.False(t, ok)

	require.NoError(t, s.GenerateKeyPair(account))
	kp, ok := s.LoadKeyPair(account)
	require.True(t, ok)

	fp, ok := s.LocalFingerprint(account)
	require.True(t, ok)
	want, err := crypto.FingerprintPublicKey(kp.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, want, fp)
	assert.Len(t, s.LocalFingerprintRaw(account), 20)
}

func TestEnsureKeyPair_GeneratesOnce(t *testing.T) {
	s := trust.New(store.NewMemoryPropertyStore())

	first, err := s.EnsureKeyPair(account)
	require.NoError(t, err)
	second, err := s.EnsureKeyPair(account)
	require.NoError(t, err)
	assert.Equal(t, first.Public, second.Public)
}

func TestGenerateKeyPair_CapabilityFailureLeavesStoreUntouched(t *testing.T) {
	props := store.NewMemoryPropertyStore()
	s := trust.New(props, trust.WithKeyGenerator(func() (domain.KeyPair, error) {
		return domain.KeyPair{}, errors.New("no entropy")
	}))

	err := s.GenerateKeyPair(account)
	require.ErrorIs(t, err, trust.ErrKeyGeneration)
	_, ok := s.LoadKeyPair(account)
	assert.False(t, ok)
	assert.Empty(t, props.Keys())
}

func TestLoadKeyPair_MalformedIsAbsent(t *testing.T) {
	props := store.NewMemoryPropertyStore()
	require.NoError(t, props.SetProperty("account."+string(account)+".publicKey", []byte("junk")))
	require.NoError(t, props.SetProperty("account."+string(account)+".privateKey", []byte("junk")))
	s := trust.New(props)

	_, ok := s.LoadKeyPair(account)
	assert.False(t, ok)

	kp, err := s.EnsureKeyPair(account)
	require.NoError(t, err)
	assert.NotEqual(t, domain.Ed25519Public{}, kp.Public)
}

func TestSaveFingerprint_UnverifiedAndListed(t *testing.T) {
	s := trust.New(store.NewMemoryPropertyStore())
	alice := domain.NewPeer(account, "alice@example")

	s.SaveFingerprint(alice, "ABCD1234")
	s.SaveFingerprint(alice, "ABCD1234")

	assert.Equal(t, []domain.Fingerprint{"ABCD1234"}, s.AllFingerprints(alice))
	assert.False(t, s.IsVerified(alice, "ABCD1234"))
}

func TestVerify_IdempotentAndNotifiesEachCall(t *testing.T) {
	s := trust.New(store.NewMemoryPropertyStore())
	l := &recordingListener{}
	sub := s.Subscribe(l)
	alice := domain.NewPeer(account, "alice@example", "phone")
	id := domain.NewSessionIdentity(alice, "phone")
	s.SaveFingerprint(alice, "ABCD1234")

	s.Verify(id, "ABCD1234")
	assert.True(t, s.IsVerified(alice, "ABCD1234"))
	assert.Equal(t, 1, l.count())

	s.Verify(id, "ABCD1234")
	assert.True(t, s.IsVerified(alice, "ABCD1234"))
	assert.Equal(t, 2, l.count())
	assert.Equal(t, []domain.Fingerprint{"ABCD1234"}, s.AllFingerprints(alice))

	s.Unverify(id, "ABCD1234")
	assert.False(t, s.IsVerified(alice, "ABCD1234"))
	assert.Equal(t, 3, l.count())

	sub.Unsubscribe()
	s.Verify(id, "ABCD1234")
	assert.Equal(t, 3, l.count())
}

func TestVerify_NoOpWithoutIdentityOrFingerprint(t *testing.T) {
	props := store.NewMemoryPropertyStore()
	s := trust.New(props)
	l := &recordingListener{}
	s.Subscribe(l)

	s.Verify(nil, "ABCD1234")
	s.Unverify(domain.NewSessionIdentity(domain.NewPeer(account, "bob@example"), ""), "")

	assert.Zero(t, l.count())
	assert.Empty(t, props.Keys())
}

func TestListenerObservesCommittedState(t *testing.T) {
	s := trust.New(store.NewMemoryPropertyStore())
	alice := domain.NewPeer(account, "alice@example")
	id := domain.NewSessionIdentity(alice, "")

	var seen bool
	s.Subscribe(trustFunc(func(_ *domain.SessionIdentity, fp domain.Fingerprint) {
		seen = s.IsVerified(alice, fp)
	}))
	s.Verify(id, "FF00")
	assert.True(t, seen)
}

type trustFunc func(*domain.SessionIdentity, domain.Fingerprint)

func (f trustFunc) VerificationStatusChanged(id *domain.SessionIdentity, fp domain.Fingerprint) {
	f(id, fp)
}

func legacyRecord(t *testing.T, props domain.PropertyStore, address string, verified bool) domain.Fingerprint {
	t.Helper()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	der, err := crypto.MarshalPublicKey(kp.PublicKey())
	require.NoError(t, err)
	require.NoError(t, props.SetProperty(address+".publicKey", der))
	require.NoError(t, props.SetProperty(address+".publicKey.verified", verified))
	fp, err := crypto.FingerprintPublicKey(kp.PublicKey())
	require.NoError(t, err)
	return fp
}

func TestAllFingerprints_MigratesLegacyRecordIdempotently(t *testing.T) {
	props := store.NewMemoryPropertyStore()
	fp := legacyRecord(t, props, "alice@example", true)
	s := trust.New(props)
	alice := domain.NewPeer(account, "alice@example")

	first := s.AllFingerprints(alice)
	assert.Equal(t, []domain.Fingerprint{fp}, first)
	assert.True(t, s.IsVerified(alice, fp))
	assert.Nil(t, props.GetBytes("alice@example.publicKey", nil))
	assert.False(t, props.GetBool("alice@example.publicKey.verified", false))

	second := s.AllFingerprints(alice)
	assert.Equal(t, first, second)
	assert.True(t, s.IsVerified(alice, fp))
}

func TestAllFingerprints_LegacyAlreadyListedIsNotDuplicated(t *testing.T) {
	props := store.NewMemoryPropertyStore()
	fp := legacyRecord(t, props, "alice@example", false)
	require.NoError(t, props.AppendToList("alice@example.fingerprints", string(fp)))
	s := trust.New(props)
	alice := domain.NewPeer(account, "alice@example")

	assert.Equal(t, []domain.Fingerprint{fp}, s.AllFingerprints(alice))
	assert.False(t, s.IsVerified(alice, fp))
}

func TestAllFingerprints_UndecodableLegacyRecordIsDropped(t *testing.T) {
	props := store.NewMemoryPropertyStore()
	require.NoError(t, props.SetProperty("alice@example.publicKey", []byte{0x01, 0x02}))
	s := trust.New(props)
	alice := domain.NewPeer(account, "alice@example")

	assert.Empty(t, s.AllFingerprints(alice))
	assert.Nil(t, props.GetBytes("alice@example.publicKey", nil))
}

func TestAllFingerprints_ConcurrentMigrationRunsOnce(t *testing.T) {
	props := store.NewMemoryPropertyStore()
	fp := legacyRecord(t, props, "alice@example", true)
	s := trust.New(props)
	alice := domain.NewPeer(account, "alice@example")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AllFingerprints(alice)
		}()
	}
	wg.Wait()
	assert.Equal(t, []domain.Fingerprint{fp}, s.AllFingerprints(alice))
}
