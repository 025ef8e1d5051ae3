package types

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// SessionKey is the comparable form of a SessionIdentity, suitable as a map key.
type SessionKey struct {
	Account  AccountID
	Address  string
	Endpoint Endpoint
}

// String renders the key as account:address[/endpoint].
func (k SessionKey) String() string {
	if k.Endpoint == "" {
		return fmt.Sprintf("%s:%s", k.Account, k.Address)
	}
	return fmt.Sprintf("%s:%s/%s", k.Account, k.Address, k.Endpoint)
}

// SessionIdentity is the canonical handle for a local account talking to a
// remote party at a specific endpoint. Instances are created by the
// identity resolver only, so pointer equality implies value equality.
type SessionIdentity struct {
	party    RemoteParty
	endpoint Endpoint
	key      SessionKey
	guid     uuid.UUID
	retired  atomic.Bool
}

// NewSessionIdentity builds an identity for party at endpoint with a fresh GUID.
func NewSessionIdentity(party RemoteParty, endpoint Endpoint) *SessionIdentity {
	return &SessionIdentity{
		party:    party,
		endpoint: endpoint,
		key: SessionKey{
			Account:  party.Account(),
			Address:  party.Address(),
			Endpoint: endpoint,
		},
		guid: uuid.New(),
	}
}

// Party returns the remote party.
func (id *SessionIdentity) Party() RemoteParty { return id.party }

// Endpoint returns the endpoint, empty in legacy/any-endpoint mode.
func (id *SessionIdentity) Endpoint() Endpoint { return id.endpoint }

// Account returns the local account owning the identity.
func (id *SessionIdentity) Account() AccountID { return id.key.Account }

// Key returns the comparable map key.
func (id *SessionIdentity) Key() SessionKey { return id.key }

// LogicalKey returns the key of the endpoint-less identity for the same party.
func (id *SessionIdentity) LogicalKey() SessionKey {
	k := id.key
	k.Endpoint = ""
	return k
}

// GUID returns the identifier embedded in authentication links.
func (id *SessionIdentity) GUID() uuid.UUID { return id.guid }

// Equal reports whether both identities name the same party and endpoint.
func (id *SessionIdentity) Equal(other *SessionIdentity) bool {
	if id == nil || other == nil {
		return id == other
	}
	return id.key == other.key
}

// Retire marks the identity as torn down. Retired identities never receive
// further notifications.
func (id *SessionIdentity) Retire() { id.retired.Store(true) }

// Retired reports whether Retire has been called.
func (id *SessionIdentity) Retired() bool { return id.retired.Load() }

// DisplayName returns the party display name with the endpoint appended.
func (id *SessionIdentity) DisplayName() string {
	if id.endpoint == "" {
		return id.party.DisplayName()
	}
	return id.party.DisplayName() + "/" + string(id.endpoint)
}

// String implements fmt.Stringer.
func (id *SessionIdentity) String() string {
	if id == nil {
		return "<nil>"
	}
	return id.key.String()
}
