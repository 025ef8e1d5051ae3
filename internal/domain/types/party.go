package types

import "sync"

// RemoteParty is a contact as reported by the host's protocol layer.
type RemoteParty interface {
	// Account is the local account the party is reachable through.
	Account() AccountID
	// Address is the protocol address, e.g. "alice@example".
	Address() string
	// DisplayName is used in user-facing notices.
	DisplayName() string
	// SupportsEndpoints reports whether the protocol allows several
	// simultaneous endpoints per party.
	SupportsEndpoints() bool
	// Endpoints lists the currently connected endpoints.
	Endpoints() []Endpoint
}

// SameParty reports whether a and b name the same party on the same account.
func SameParty(a, b RemoteParty) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Account() == b.Account() && a.Address() == b.Address()
}

// Peer is a RemoteParty whose endpoint set can be updated as devices
// connect and disconnect.
type Peer struct {
	account AccountID
	address string
	name    string

	mu        sync.RWMutex
	endpoints []Endpoint
}

// NewPeer returns a Peer reachable through account at address. Passing
// endpoints enables multi-endpoint mode.
func NewPeer(account AccountID, address string, endpoints ...Endpoint) *Peer {
	return &Peer{
		account:   account,
		address:   address,
		name:      address,
		endpoints: append([]Endpoint(nil), endpoints...),
	}
}

// WithName sets the display name and returns p.
func (p *Peer) WithName(name string) *Peer {
	p.name = name
	return p
}

func (p *Peer) Account() AccountID      { return p.account }
func (p *Peer) Address() string         { return p.address }
func (p *Peer) DisplayName() string     { return p.name }
func (p *Peer) SupportsEndpoints() bool { return true }

// Endpoints returns a copy of the connected endpoints.
func (p *Peer) Endpoints() []Endpoint {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Endpoint(nil), p.endpoints...)
}

// Connect adds e to the endpoint set if absent.
func (p *Peer) Connect(e Endpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, have := range p.endpoints {
		if have == e {
			return
		}
	}
	p.endpoints = append(p.endpoints, e)
}

// Disconnect removes e from the endpoint set.
func (p *Peer) Disconnect(e Endpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, have := range p.endpoints {
		if have == e {
			p.endpoints = append(p.endpoints[:i], p.endpoints[i+1:]...)
			return
		}
	}
}
