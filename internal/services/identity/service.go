package identity

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"veil/internal/domain"
	"veil/internal/event"
	"veil/internal/services/connection"
)

// partyKey identifies a remote party independently of endpoint.
type partyKey struct {
	account domain.AccountID
	address string
}

// partyEntry holds the identities created for one remote party.
type partyEntry struct {
	mu  sync.Mutex
	ids []*domain.SessionIdentity
}

func (e *partyEntry) find(endpoint domain.Endpoint) *domain.SessionIdentity {
	for _, id := range e.ids {
		if id.Endpoint() == endpoint {
			return id
		}
	}
	return nil
}

// Service is the identity resolver.
type Service struct {
	parties sync.Map // partyKey -> *partyEntry
	guids   sync.Map // uuid.UUID -> *domain.SessionIdentity

	// teardown serialises account teardown against entry creation so a
	// torn-down party cannot be re-inserted by a racing Resolve.
	teardown sync.RWMutex

	log *logrus.Entry
	sub *event.Subscription
}

// New returns a resolver. When hub is non-nil the resolver forgets an
// account's identities as soon as its connection closes.
func New(hub *connection.Hub) *Service {
	s := &Service{log: logrus.WithField("component", "identity_resolver")}
	if hub != nil {
		s.sub = hub.OnClosed(func(account domain.AccountID) { s.Forget(account) })
	}
	return s
}

// Close detaches the resolver from the connection hub.
func (s *Service) Close() { s.sub.Unsubscribe() }

// Resolve returns the canonical identity for party at endpoint. It returns
// nil when party is nil or when endpoint is not currently connected.
func (s *Service) Resolve(party domain.RemoteParty, endpoint domain.Endpoint) *domain.SessionIdentity {
	if party == nil {
		return nil
	}
	if endpoint != "" && !hasEndpoint(party, endpoint) {
		s.log.WithFields(logrus.Fields{
			"function": "Resolve",
			"account":  party.Account(),
			"address":  party.Address(),
			"endpoint": endpoint,
		}).Debug("Endpoint no longer connected, not resolving")
		return nil
	}

	s.teardown.RLock()
	defer s.teardown.RUnlock()

	key := partyKey{account: party.Account(), address: party.Address()}
	v, ok := s.parties.Load(key)
	if !ok {
		// Double-checked insert: LoadOrStore returns the winner if another
		// goroutine created the entry in the meantime.
		v, _ = s.parties.LoadOrStore(key, &partyEntry{})
	}
	entry := v.(*partyEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if id := entry.find(endpoint); id != nil {
		return id
	}
	id := domain.NewSessionIdentity(party, endpoint)
	entry.ids = append(entry.ids, id)
	s.guids.Store(id.GUID(), id)

	s.log.WithFields(logrus.Fields{
		"function": "Resolve",
		"identity": id.String(),
		"guid":     id.GUID(),
	}).Debug("Created session identity")
	return id
}

// ByGUID returns the identity carrying guid, as embedded in authentication links.
func (s *Service) ByGUID(guid uuid.UUID) (*domain.SessionIdentity, bool) {
	v, ok := s.guids.Load(guid)
	if !ok {
		return nil, false
	}
	return v.(*domain.SessionIdentity), true
}

// Identities lists the identities resolved so far for party.
func (s *Service) Identities(party domain.RemoteParty) []*domain.SessionIdentity {
	if party == nil {
		return nil
	}
	v, ok := s.parties.Load(partyKey{account: party.Account(), address: party.Address()})
	if !ok {
		return nil
	}
	entry := v.(*partyEntry)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return append([]*domain.SessionIdentity(nil), entry.ids...)
}

// Len returns the number of cached identities.
func (s *Service) Len() int {
	n := 0
	s.parties.Range(func(_, v any) bool {
		entry := v.(*partyEntry)
		entry.mu.Lock()
		n += len(entry.ids)
		entry.mu.Unlock()
		return true
	})
	return n
}

// Forget retires and removes every identity whose party belongs to account.
// Retirement happens before removal so concurrent notification paths that
// still hold a pointer observe the identity as torn down.
func (s *Service) Forget(account domain.AccountID) []*domain.SessionIdentity {
	s.teardown.Lock()
	defer s.teardown.Unlock()

	var removed []*domain.SessionIdentity
	s.parties.Range(func(k, v any) bool {
		key := k.(partyKey)
		if key.account != account {
			return true
		}
		entry := v.(*partyEntry)
		entry.mu.Lock()
		for _, id := range entry.ids {
			id.Retire()
			s.guids.Delete(id.GUID())
			removed = append(removed, id)
		}
		entry.ids = nil
		entry.mu.Unlock()
		s.parties.Delete(key)
		return true
	})

	s.log.WithFields(logrus.Fields{
		"function": "Forget",
		"account":  account,
		"removed":  len(removed),
	}).Debug("Forgot session identities for closed connection")
	return removed
}

func hasEndpoint(party domain.RemoteParty, endpoint domain.Endpoint) bool {
	if !party.SupportsEndpoints() {
		return false
	}
	for _, e := range party.Endpoints() {
		if e == endpoint {
			return true
		}
	}
	return false
}

// Compile-time assertion that Service implements domain.IdentityResolver.
var _ domain.IdentityResolver = (*Service)(nil)
