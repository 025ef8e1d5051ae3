package trust

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"veil/internal/crypto"
	"veil/internal/domain"
	"veil/internal/event"
)

// ErrKeyGeneration wraps failures of the key-generation primitive.
var ErrKeyGeneration = errors.New("key generation unavailable")

// KeyGenerator produces a fresh long-term key pair.
type KeyGenerator func() (domain.KeyPair, error)

// Service implements domain.KeyStore on top of a PropertyStore.
type Service struct {
	props     domain.PropertyStore
	generate  KeyGenerator
	listeners *event.Registry[domain.TrustListener]
	log       *logrus.Entry

	// partyLocks serialise migration and appends per remote party.
	partyLocks sync.Map // string -> *sync.Mutex
	// accountLocks serialise lazy key generation per account.
	accountLocks sync.Map // domain.AccountID -> *sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithKeyGenerator replaces the default Ed25519 generator.
func WithKeyGenerator(g KeyGenerator) Option {
	return func(s *Service) { s.generate = g }
}

// New returns a trust store backed by props.
func New(props domain.PropertyStore, opts ...Option) *Service {
	s := &Service{
		props:     props,
		generate:  crypto.GenerateKeyPair,
		listeners: event.NewRegistry[domain.TrustListener](),
		log:       logrus.WithField("component", "trust_store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers l for verification changes.
func (s *Service) Subscribe(l domain.TrustListener) *event.Subscription {
	return s.listeners.Subscribe(l)
}

// ---------- Local key pairs ----------

func accountPublicKey(account domain.AccountID) string {
	return "account." + string(account) + ".publicKey"
}

func accountPrivateKey(account domain.AccountID) string {
	return "account." + string(account) + ".privateKey"
}

// LoadKeyPair returns the stored key pair of account. Missing or malformed
// records are reported as absent.
func (s *Service) LoadKeyPair(account domain.AccountID) (domain.KeyPair, bool) {
	if account == "" {
		return domain.KeyPair{}, false
	}
	pub := s.props.GetBytes(accountPublicKey(account), nil)
	priv := s.props.GetBytes(accountPrivateKey(account), nil)
	if pub == nil || priv == nil {
		return domain.KeyPair{}, false
	}
	kp, err := crypto.ParseKeyPair(pub, priv)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "LoadKeyPair",
			"account":  account,
			"error":    err.Error(),
		}).Warn("Stored key pair is malformed, treating as absent")
		return domain.KeyPair{}, false
	}
	return kp, true
}

// GenerateKeyPair creates and stores a new key pair for account, replacing
// any existing one. A failing generator leaves the store untouched.
func (s *Service) GenerateKeyPair(account domain.AccountID) error {
	if account == "" {
		return nil
	}
	kp, err := s.generate()
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "GenerateKeyPair",
			"account":  account,
			"error":    err.Error(),
		}).Error("Key generation failed")
		return fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}
	pub, priv, err := crypto.MarshalKeyPair(kp)
	if err != nil {
		return fmt.Errorf("encode key pair: %w", err)
	}
	if err := s.props.SetProperty(accountPublicKey(account), pub); err != nil {
		return err
	}
	if err := s.props.SetProperty(accountPrivateKey(account), priv); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"function": "GenerateKeyPair",
		"account":  account,
	}).Info("Generated local key pair")
	return nil
}

// EnsureKeyPair loads the key pair of account, generating it on first use.
func (s *Service) EnsureKeyPair(account domain.AccountID) (domain.KeyPair, error) {
	if kp, ok := s.LoadKeyPair(account); ok {
		return kp, nil
	}
	mu := lockFor(&s.accountLocks, account)
	mu.Lock()
	defer mu.Unlock()
	if kp, ok := s.LoadKeyPair(account); ok {
		return kp, nil
	}
	if err := s.GenerateKeyPair(account); err != nil {
		return domain.KeyPair{}, err
	}
	kp, ok := s.LoadKeyPair(account)
	if !ok {
		return domain.KeyPair{}, fmt.Errorf("key pair for %s not readable after generation", account)
	}
	return kp, nil
}

// LocalFingerprint returns the fingerprint of account's public key.
func (s *Service) LocalFingerprint(account domain.AccountID) (domain.Fingerprint, bool) {
	kp, ok := s.LoadKeyPair(account)
	if !ok {
		return "", false
	}
	fp, err := crypto.FingerprintPublicKey(kp.PublicKey())
	if err != nil {
		return "", false
	}
	return fp, true
}

// LocalFingerprintRaw returns the raw digest behind LocalFingerprint.
func (s *Service) LocalFingerprintRaw(account domain.AccountID) []byte {
	kp, ok := s.LoadKeyPair(account)
	if !ok {
		return nil
	}
	der, err := crypto.MarshalPublicKey(kp.PublicKey())
	if err != nil {
		return nil
	}
	return crypto.FingerprintRaw(der)
}

// ---------- Remote fingerprints ----------

func fingerprintsKey(address string) string { return address + ".fingerprints" }

func verifiedKey(address string, fp domain.Fingerprint) string {
	return address + string(fp) + ".fingerprint.verified"
}

// Verify marks fp as verified for the identity's party.
func (s *Service) Verify(id *domain.SessionIdentity, fp domain.Fingerprint) {
	s.setVerified(id, fp, true)
}

// Unverify clears the verified flag of fp for the identity's party.
func (s *Service) Unverify(id *domain.SessionIdentity, fp domain.Fingerprint) {
	s.setVerified(id, fp, false)
}

func (s *Service) setVerified(id *domain.SessionIdentity, fp domain.Fingerprint, verified bool) {
	if id == nil || fp == "" {
		return
	}
	address := id.Party().Address()
	if err := s.props.SetProperty(verifiedKey(address, fp), verified); err != nil {
		s.log.WithFields(logrus.Fields{
			"function":    "setVerified",
			"address":     address,
			"fingerprint": fp,
			"error":       err.Error(),
		}).Error("Failed to persist verification flag")
		return
	}
	s.log.WithFields(logrus.Fields{
		"function":    "setVerified",
		"address":     address,
		"fingerprint": fp,
		"verified":    verified,
	}).Info("Fingerprint verification updated")

	s.listeners.Notify(func(l domain.TrustListener) {
		l.VerificationStatusChanged(id, fp)
	})
}

// IsVerified reports whether fp is verified for party.
func (s *Service) IsVerified(party domain.RemoteParty, fp domain.Fingerprint) bool {
	if party == nil || fp == "" {
		return false
	}
	return s.props.GetBool(verifiedKey(party.Address(), fp), false)
}

// AllFingerprints returns every fingerprint on file for party.
//
// Steps:
//  1. Take the per-party lock.
//  2. Migrate a legacy single-key record if one exists: keep its verified
//     flag, delete both legacy keys and append the fingerprint if missing.
//  3. Read the multi-valued fingerprint list.
func (s *Service) AllFingerprints(party domain.RemoteParty) []domain.Fingerprint {
	if party == nil {
		return nil
	}
	address := party.Address()
	mu := lockFor(&s.partyLocks, address)
	mu.Lock()
	defer mu.Unlock()

	s.migrateLegacy(address)

	raw := s.props.GetList(fingerprintsKey(address))
	out := make([]domain.Fingerprint, 0, len(raw))
	for _, v := range raw {
		out = append(out, domain.Fingerprint(v))
	}
	return out
}

// SaveFingerprint records fp for party as unverified. Saving a fingerprint
// that is already on file only resets its verified flag.
func (s *Service) SaveFingerprint(party domain.RemoteParty, fp domain.Fingerprint) {
	if party == nil || fp == "" {
		return
	}
	address := party.Address()
	mu := lockFor(&s.partyLocks, address)
	mu.Lock()
	defer mu.Unlock()

	s.migrateLegacy(address)
	if err := s.appendUnique(address, fp); err != nil {
		s.log.WithFields(logrus.Fields{
			"function":    "SaveFingerprint",
			"address":     address,
			"fingerprint": fp,
			"error":       err.Error(),
		}).Error("Failed to persist fingerprint")
		return
	}
	if err := s.props.SetProperty(verifiedKey(address, fp), false); err != nil {
		s.log.WithFields(logrus.Fields{
			"function":    "SaveFingerprint",
			"address":     address,
			"fingerprint": fp,
			"error":       err.Error(),
		}).Error("Failed to reset verification flag")
		return
	}
	s.log.WithFields(logrus.Fields{
		"function":    "SaveFingerprint",
		"address":     address,
		"fingerprint": fp,
	}).Info("Saved remote fingerprint")
}

func (s *Service) appendUnique(address string, fp domain.Fingerprint) error {
	for _, have := range s.props.GetList(fingerprintsKey(address)) {
		if have == string(fp) {
			return nil
		}
	}
	return s.props.AppendToList(fingerprintsKey(address), string(fp))
}

func lockFor[K comparable](m *sync.Map, key K) *sync.Mutex {
	v, _ := m.LoadOrStore(key, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Compile-time assertion that Service implements domain.KeyStore.
var _ domain.KeyStore = (*Service)(nil)
