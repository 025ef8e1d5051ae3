package session

import (
	"sync"

	"github.com/sirupsen/logrus"

	"veil/internal/domain"
)

// TransformOutgoing encodes plaintext for id. Messages to a logical identity
// go to the selected outgoing endpoint. A nil slice means nothing must be sent.
func (e *Engine) TransformOutgoing(id *domain.SessionIdentity, plaintext string) ([]string, error) {
	if err := check(id); err != nil {
		return nil, err
	}
	target := e.route(id)
	frags, err := e.transform.TransformOutgoing(target, plaintext)
	if err != nil {
		return nil, e.delegateFailed("TransformOutgoing", target, err)
	}
	return frags, nil
}

// TransformIncoming decodes ciphertext received from id. ok is false when
// the message belongs to the protocol and must not be displayed.
func (e *Engine) TransformIncoming(id *domain.SessionIdentity, ciphertext string) (string, bool, error) {
	if err := check(id); err != nil {
		return "", false, err
	}
	text, ok, err := e.transform.TransformIncoming(id, ciphertext)
	if err != nil {
		return "", false, e.delegateFailed("TransformIncoming", id, err)
	}
	return text, ok, nil
}

// MarkInjected remembers that the message uid was sent by the protocol
// rather than typed by the user.
func (e *Engine) MarkInjected(uid domain.MessageUID) {
	if uid == "" {
		return
	}
	e.injected.Add(uid, struct{}{})
}

// IsMessageInjected reports whether uid was marked by MarkInjected and has
// not been evicted since.
func (e *Engine) IsMessageInjected(uid domain.MessageUID) bool {
	return e.injected.Contains(uid)
}

// LocalKeyPair returns the long-term key pair of id's account, generating
// it on first use.
func (e *Engine) LocalKeyPair(id *domain.SessionIdentity) (domain.KeyPair, error) {
	if id == nil {
		return domain.KeyPair{}, ErrNoIdentity
	}
	account := id.Account()
	if kp, ok := e.keys.LoadKeyPair(account); ok {
		return kp, nil
	}

	v, _ := e.keyLocks.LoadOrStore(account, new(sync.Mutex))
	mu := v.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()
	if kp, ok := e.keys.LoadKeyPair(account); ok {
		return kp, nil
	}
	if err := e.keys.GenerateKeyPair(account); err != nil {
		e.log.WithFields(logrus.Fields{
			"function": "LocalKeyPair",
			"account":  account,
			"error":    err.Error(),
		}).Error("Cannot create local key pair")
		return domain.KeyPair{}, err
	}
	kp, ok := e.keys.LoadKeyPair(account)
	if !ok {
		return domain.KeyPair{}, ErrNoKeyPair
	}
	return kp, nil
}
