package session

import (
	"github.com/sirupsen/logrus"

	"veil/internal/domain"
)

// host receives callbacks from the transform engine on behalf of an Engine.
type host struct {
	e *Engine
}

func (h *host) StatusChanged(id *domain.SessionIdentity) {
	h.e.statusReported(id)
}

func (h *host) AuthError(id *domain.SessionIdentity, kind domain.AuthErrorKind) {
	if id == nil || id.Retired() {
		return
	}
	h.e.log.WithFields(logrus.Fields{
		"function": "AuthError",
		"identity": id.String(),
		"kind":     kind.String(),
	}).Error("Authentication failed")
	h.e.advanceAuth(id, domain.AuthFailed)
	h.e.notice(domain.Notice{
		Kind:     domain.NoticeAuthError,
		Identity: id,
		Text:     "authentication with " + id.DisplayName() + " failed: " + kind.String(),
	})
}

func (h *host) AuthAborted(id *domain.SessionIdentity) {
	if id == nil || id.Retired() {
		return
	}
	h.e.advanceAuth(id, domain.AuthAborted)
	h.e.notice(domain.Notice{
		Kind:     domain.NoticeAuthAborted,
		Identity: id,
		Text:     id.DisplayName() + " aborted authentication",
	})
}

func (h *host) UnreadableMessage(id *domain.SessionIdentity) {
	h.e.notice(domain.Notice{
		Kind:     domain.NoticeUnreadableMessage,
		Identity: id,
		Text:     "an encrypted message from " + displayName(id) + " could not be read",
	})
}

func (h *host) MultipleEndpointsDetected(id *domain.SessionIdentity) {
	if id == nil || id.Retired() {
		return
	}
	h.e.notifyListeners(id, func(l domain.SessionListener) { l.MultipleEndpointsDetected(id) })
	h.e.notice(domain.Notice{
		Kind:     domain.NoticeMultipleEndpoints,
		Identity: id,
		Text:     id.DisplayName() + " is connected from several devices",
	})
}

func (h *host) AskForSecret(id *domain.SessionIdentity, question string) {
	if id == nil || id.Retired() {
		return
	}
	h.e.resetAuth(id, question)
	h.e.notice(domain.Notice{
		Kind:     domain.NoticeSecretRequested,
		Identity: id,
		Text:     question,
	})
}

func (h *host) Verify(id *domain.SessionIdentity, fp domain.Fingerprint, approved bool) {
	if id == nil || id.Retired() {
		return
	}
	h.e.log.WithFields(logrus.Fields{
		"function":    "Verify",
		"identity":    id.String(),
		"fingerprint": fp,
		"approved":    approved,
	}).Info("Authentication succeeded")
	h.e.keys.Verify(id, fp)
	h.e.advanceAuth(id, domain.AuthSucceeded)
}

func (h *host) Unverify(id *domain.SessionIdentity, fp domain.Fingerprint) {
	if id == nil || id.Retired() {
		return
	}
	h.e.keys.Unverify(id, fp)
	h.e.advanceAuth(id, domain.AuthFailed)
}

func (h *host) UnencryptedMessage(id *domain.SessionIdentity, msg string) {
	h.e.notice(domain.Notice{
		Kind:     domain.NoticeUnencryptedMessage,
		Identity: id,
		Text:     msg,
	})
}

func (h *host) RequireEncryptedMessage(id *domain.SessionIdentity, msg string) {
	h.e.notice(domain.Notice{
		Kind:     domain.NoticeEncryptionRequired,
		Identity: id,
		Text:     msg,
	})
}

func (h *host) FinishedSessionMessage(id *domain.SessionIdentity, msg string) {
	h.e.notice(domain.Notice{
		Kind:     domain.NoticeFinishedSessionMessage,
		Identity: id,
		Text:     msg,
	})
}

func (h *host) MessageFromAnotherEndpoint(id *domain.SessionIdentity) {
	h.e.notice(domain.Notice{
		Kind:     domain.NoticeMessageFromAnotherEndpoint,
		Identity: id,
		Text:     "message from another device of " + displayName(id),
	})
}

func (h *host) LocalKeyPair(id *domain.SessionIdentity) (domain.KeyPair, error) {
	return h.e.LocalKeyPair(id)
}

func (h *host) SessionPolicy(id *domain.SessionIdentity) domain.Policy {
	if id == nil {
		return h.e.policies.GlobalPolicy()
	}
	return h.e.policies.EffectivePolicy(id.Party())
}

func displayName(id *domain.SessionIdentity) string {
	if id == nil {
		return "unknown contact"
	}
	return id.DisplayName()
}

// Compile-time assertion that host implements domain.TransformCallbacks.
var _ domain.TransformCallbacks = (*host)(nil)
