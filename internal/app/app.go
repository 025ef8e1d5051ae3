package app

import (
	"errors"

	"veil/internal/domain"
)

var (
	// ErrNoAccount is returned when no local account is configured.
	ErrNoAccount = errors.New("no account configured")
	// ErrNoEngine is returned by session actions on a wire built without a
	// transform engine.
	ErrNoEngine = errors.New("no session engine configured")
	// ErrManualStartDisabled is returned by StartSession when the party's
	// effective policy disables starting a session by hand.
	ErrManualStartDisabled = errors.New("manual session start disabled by policy")
)

// App binds a Wire to one local account.
type App struct {
	*Wire
	Account domain.AccountID
}

// New builds the wire for cfg and binds it to cfg.Account.
func New(cfg Config, opts ...WireOption) (*App, error) {
	if cfg.Account == "" {
		return nil, ErrNoAccount
	}
	w, err := NewWire(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &App{Wire: w, Account: domain.AccountID(cfg.Account)}, nil
}

// Peer returns a remote party on the app's account.
func (a *App) Peer(address string, endpoints ...domain.Endpoint) *domain.Peer {
	return domain.NewPeer(a.Account, address, endpoints...)
}

// Identity resolves the canonical session identity for party at endpoint.
func (a *App) Identity(party domain.RemoteParty, endpoint domain.Endpoint) *domain.SessionIdentity {
	return a.Resolver.Resolve(party, endpoint)
}

// StartSession starts a session on the user's behalf. It refuses when the
// party's effective policy disables manual start; the engine itself never
// consults that flag.
func (a *App) StartSession(id *domain.SessionIdentity) error {
	if a.Engine == nil {
		return ErrNoEngine
	}
	if id != nil && !a.Policies.EffectivePolicy(id.Party()).EnableManual {
		return ErrManualStartDisabled
	}
	return a.Engine.StartSession(id)
}

// Disconnect reports that the app's account connection has closed.
func (a *App) Disconnect() {
	a.Hub.Closed(a.Account)
}
