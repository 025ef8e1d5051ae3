package policy

import (
	"github.com/sirupsen/logrus"

	"veil/internal/domain"
	"veil/internal/event"
)

const (
	globalPolicyKey   = "GLOBAL_POLICY"
	contactPolicyKey  = ".contact_policy"
	absentPolicyValue = -1
)

// Service implements domain.PolicyStore over a PropertyStore.
type Service struct {
	props     domain.PropertyStore
	listeners *event.Registry[domain.PolicyListener]
	log       *logrus.Entry
}

// New returns a policy store backed by props.
func New(props domain.PropertyStore) *Service {
	return &Service{
		props:     props,
		listeners: event.NewRegistry[domain.PolicyListener](),
		log:       logrus.WithField("component", "policy_store"),
	}
}

// Subscribe registers l for global and per-contact policy writes.
func (s *Service) Subscribe(l domain.PolicyListener) *event.Subscription {
	return s.listeners.Subscribe(l)
}

func contactKey(party domain.RemoteParty) string {
	return string(party.Account()) + "/" + party.Address() + contactPolicyKey
}

func (s *Service) read(key string) (domain.Policy, bool) {
	v := s.props.GetInt(key, absentPolicyValue)
	if v == absentPolicyValue {
		return domain.Policy{}, false
	}
	p, ok := Decode(v)
	if !ok {
		s.log.WithFields(logrus.Fields{
			"function": "read",
			"key":      key,
			"value":    v,
		}).Warn("Ignoring undecodable stored policy")
	}
	return p, ok
}

func (s *Service) write(key string, p *domain.Policy) error {
	if p == nil {
		return s.props.RemoveProperty(key)
	}
	return s.props.SetProperty(key, Encode(*p))
}

// GlobalPolicy returns the stored global policy, or the default one.
func (s *Service) GlobalPolicy() domain.Policy {
	if p, ok := s.read(globalPolicyKey); ok {
		return p
	}
	return domain.DefaultPolicy()
}

// SetGlobalPolicy stores p as the global policy. A nil p restores the default.
func (s *Service) SetGlobalPolicy(p *domain.Policy) error {
	if err := s.write(globalPolicyKey, p); err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "SetGlobalPolicy",
			"error":    err.Error(),
		}).Error("Failed to persist global policy")
		return err
	}
	s.log.WithField("function", "SetGlobalPolicy").Info("Global policy updated")
	s.listeners.Notify(func(l domain.PolicyListener) { l.GlobalPolicyChanged() })
	return nil
}

// ContactPolicy returns the override stored for party, if any.
func (s *Service) ContactPolicy(party domain.RemoteParty) (domain.Policy, bool) {
	if party == nil {
		return domain.Policy{}, false
	}
	return s.read(contactKey(party))
}

// SetContactPolicy stores an override for party. A nil p removes it.
func (s *Service) SetContactPolicy(party domain.RemoteParty, p *domain.Policy) error {
	if party == nil {
		return nil
	}
	if err := s.write(contactKey(party), p); err != nil {
		s.log.WithFields(logrus.Fields{
			"function": "SetContactPolicy",
			"address":  party.Address(),
			"error":    err.Error(),
		}).Error("Failed to persist contact policy")
		return err
	}
	s.log.WithFields(logrus.Fields{
		"function": "SetContactPolicy",
		"address":  party.Address(),
		"cleared":  p == nil,
	}).Info("Contact policy updated")
	s.listeners.Notify(func(l domain.PolicyListener) { l.ContactPolicyChanged(party) })
	return nil
}

// EffectivePolicy returns the override for party if present and valid, else
// the global policy.
func (s *Service) EffectivePolicy(party domain.RemoteParty) domain.Policy {
	if p, ok := s.ContactPolicy(party); ok {
		return p
	}
	return s.GlobalPolicy()
}

// Compile-time assertion that Service implements domain.PolicyStore.
var _ domain.PolicyStore = (*Service)(nil)
