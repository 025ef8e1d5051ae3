package interfaces

import domaintypes "veil/internal/domain/types"

// PropertyStore is key/value persistent configuration. Getters never fail:
// a missing or undecodable value yields def. Multi-valued properties use
// the appended-list convention (AppendToList / GetList).
type PropertyStore interface {
	GetString(key, def string) string
	GetInt(key string, def int) int
	GetBool(key string, def bool) bool
	GetBytes(key string, def []byte) []byte

	// SetProperty stores value, which must be a string, bool, integer or []byte.
	SetProperty(key string, value any) error
	RemoveProperty(key string) error

	AppendToList(key, value string) error
	GetList(key string) []string
}

// KeyStore persists local key pairs and remote fingerprints with their
// verification flags.
type KeyStore interface {
	LoadKeyPair(account domaintypes.AccountID) (domaintypes.KeyPair, bool)
	GenerateKeyPair(account domaintypes.AccountID) error
	LocalFingerprint(account domaintypes.AccountID) (domaintypes.Fingerprint, bool)

	Verify(id *domaintypes.SessionIdentity, fp domaintypes.Fingerprint)
	Unverify(id *domaintypes.SessionIdentity, fp domaintypes.Fingerprint)
	IsVerified(party domaintypes.RemoteParty, fp domaintypes.Fingerprint) bool
	AllFingerprints(party domaintypes.RemoteParty) []domaintypes.Fingerprint
	SaveFingerprint(party domaintypes.RemoteParty, fp domaintypes.Fingerprint)
}

// PolicyStore resolves the effective encryption policy for a party.
type PolicyStore interface {
	GlobalPolicy() domaintypes.Policy
	SetGlobalPolicy(p *domaintypes.Policy) error
	ContactPolicy(party domaintypes.RemoteParty) (domaintypes.Policy, bool)
	SetContactPolicy(party domaintypes.RemoteParty, p *domaintypes.Policy) error
	EffectivePolicy(party domaintypes.RemoteParty) domaintypes.Policy
}
