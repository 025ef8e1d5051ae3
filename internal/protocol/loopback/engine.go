package loopback

import (
	"bytes"
	gocrypto "crypto"
	"crypto/ed25519"
	"crypto/hmac"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"veil/internal/crypto"
	"veil/internal/domain"
)

var (
	// ErrNotEncrypted is returned by operations that need an encrypted session.
	ErrNotEncrypted = errors.New("session is not encrypted")
	// ErrNoRemoteKey is returned when the peer key is not known yet.
	ErrNoRemoteKey = errors.New("remote key unknown")
	// ErrNoChallenge is returned by RespondAuth when the peer asked nothing.
	ErrNoChallenge = errors.New("no authentication challenge pending")
	// ErrBadSignature is returned for handshakes whose signature does not verify.
	ErrBadSignature = errors.New("handshake signature invalid")
)

// state is the per-identity protocol state.
type state struct {
	mu        sync.Mutex
	status    domain.SessionStatus
	initiator bool
	ephPriv   domain.X25519Private
	ephPub    domain.X25519Public
	remoteID  *domain.Ed25519Public
	keys      *sessionKeys

	// Authentication: ours is the commitment we sent, theirs the one we
	// received.
	question string
	ours     []byte
	theirs   []byte
}

func (s *state) sendKey() []byte {
	if s.initiator {
		return s.keys.initiatorToResponder
	}
	return s.keys.responderToInitiator
}

func (s *state) recvKey() []byte {
	if s.initiator {
		return s.keys.responderToInitiator
	}
	return s.keys.initiatorToResponder
}

func (s *state) reset(st domain.SessionStatus) {
	if s.keys != nil {
		s.keys.wipe()
	}
	s.keys = nil
	s.status = st
	s.question, s.ours, s.theirs = "", nil, nil
}

// Engine implements domain.TransformEngine over a Network.
type Engine struct {
	cb     domain.TransformCallbacks
	net    *Network
	self   string
	states sync.Map // *domain.SessionIdentity -> *state
	log    *logrus.Entry
}

// Factory returns a TransformFactory for an engine sending as self on net.
func Factory(net *Network, self string) domain.TransformFactory {
	return func(cb domain.TransformCallbacks) domain.TransformEngine {
		return New(cb, net, self)
	}
}

// New returns an engine bound to cb.
func New(cb domain.TransformCallbacks, net *Network, self string) *Engine {
	return &Engine{
		cb:   cb,
		net:  net,
		self: self,
		log: logrus.WithFields(logrus.Fields{
			"component": "loopback",
			"self":      self,
		}),
	}
}

func (e *Engine) state(id *domain.SessionIdentity) *state {
	if v, ok := e.states.Load(id); ok {
		return v.(*state)
	}
	v, _ := e.states.LoadOrStore(id, &state{})
	return v.(*state)
}

func (e *Engine) send(id *domain.SessionIdentity, body string) {
	e.net.Send(e.self, id.Party().Address(), body)
}

// ---------- Lifecycle ----------

func handshakeTranscript(k kind, eph domain.X25519Public) []byte {
	return append([]byte(k), eph[:]...)
}

// hello starts a handshake as initiator. Callers hold st.mu.
func (e *Engine) hello(id *domain.SessionIdentity, st *state) error {
	kp, err := e.cb.LocalKeyPair(id)
	if err != nil {
		return fmt.Errorf("local key pair: %w", err)
	}
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return err
	}
	st.reset(domain.StatusLoading)
	st.initiator = true
	st.ephPriv, st.ephPub = priv, pub
	sig := crypto.SignEd25519(kp.Private, handshakeTranscript(kindHello, pub))
	e.send(id, encode(kindHello, pub[:], kp.Public[:], sig))
	return nil
}

func (e *Engine) StartSession(id *domain.SessionIdentity) error {
	st := e.state(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	return e.hello(id, st)
}

func (e *Engine) RefreshSession(id *domain.SessionIdentity) error {
	st := e.state(id)
	st.mu.Lock()
	err := e.hello(id, st)
	st.mu.Unlock()
	if err != nil {
		return err
	}
	e.cb.StatusChanged(id)
	return nil
}

func (e *Engine) EndSession(id *domain.SessionIdentity) error {
	st := e.state(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.status == domain.StatusEncrypted {
		e.send(id, encode(kindEnd))
	}
	st.reset(domain.StatusPlaintext)
	return nil
}

func (e *Engine) CurrentStatus(id *domain.SessionIdentity) domain.SessionStatus {
	v, ok := e.states.Load(id)
	if !ok {
		return domain.StatusPlaintext
	}
	st := v.(*state)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.status
}

func (e *Engine) RemotePublicKey(id *domain.SessionIdentity) (gocrypto.PublicKey, error) {
	st := e.state(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.remoteID == nil {
		return nil, ErrNoRemoteKey
	}
	return ed25519.PublicKey(st.remoteID.Slice()), nil
}

// ---------- Messages ----------

func (e *Engine) TransformOutgoing(id *domain.SessionIdentity, plaintext string) ([]string, error) {
	st := e.state(id)
	st.mu.Lock()
	switch st.status {
	case domain.StatusEncrypted:
		sealed, err := seal(st.sendKey(), []byte(plaintext))
		st.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return []string{encode(kindMessage, sealed)}, nil
	case domain.StatusFinished:
		st.mu.Unlock()
		e.cb.FinishedSessionMessage(id, plaintext)
		return nil, nil
	}
	st.mu.Unlock()

	policy := e.cb.SessionPolicy(id)
	if !policy.RequireEncryption {
		if policy.SendAdvertisement {
			plaintext += Tag
		}
		return []string{plaintext}, nil
	}

	e.cb.RequireEncryptedMessage(id, plaintext)
	if policy.EnableAutoStart {
		if err := e.autoStart(id); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// autoStart begins a handshake unless one is already running and reports
// the LOADING status.
func (e *Engine) autoStart(id *domain.SessionIdentity) error {
	st := e.state(id)
	st.mu.Lock()
	if st.status == domain.StatusLoading {
		st.mu.Unlock()
		return nil
	}
	err := e.hello(id, st)
	st.mu.Unlock()
	if err != nil {
		return err
	}
	e.cb.StatusChanged(id)
	return nil
}

func (e *Engine) TransformIncoming(id *domain.SessionIdentity, ciphertext string) (string, bool, error) {
	k, fields, isProtocol, err := decode(ciphertext)
	if !isProtocol {
		return e.plaintextIn(id, ciphertext)
	}
	if err != nil {
		e.cb.UnreadableMessage(id)
		return "", false, nil
	}
	log := e.log.WithFields(logrus.Fields{
		"function": "TransformIncoming",
		"identity": id.String(),
		"kind":     string(k),
	})

	switch k {
	case kindHello:
		err = e.onHello(id, fields)
	case kindReply:
		err = e.onReply(id, fields)
	case kindMessage:
		return e.onMessage(id, fields)
	case kindEnd:
		e.onEnd(id)
	case kindAuthInit:
		e.onAuthInit(id, fields)
	case kindAuthResp:
		e.onAuthResp(id, fields)
	case kindAuthStop:
		e.onAuthStop(id)
	default:
		log.Debug("Ignoring unknown protocol message")
	}
	if err != nil {
		log.WithField("error", err.Error()).Warn("Rejected handshake")
		return "", false, err
	}
	return "", false, nil
}

func (e *Engine) plaintextIn(id *domain.SessionIdentity, text string) (string, bool, error) {
	advertised := false
	if trimmed, found := strings.CutSuffix(text, Tag); found {
		text, advertised = trimmed, true
	}
	st := e.state(id)
	st.mu.Lock()
	status := st.status
	st.mu.Unlock()

	if status == domain.StatusEncrypted {
		e.cb.UnencryptedMessage(id, text)
	}
	if advertised && status == domain.StatusPlaintext && e.cb.SessionPolicy(id).EnableAutoStart {
		if err := e.autoStart(id); err != nil {
			return text, true, err
		}
	}
	return text, true, nil
}

func parseHandshake(k kind, fields [][]byte) (eph domain.X25519Public, id domain.Ed25519Public, err error) {
	if len(fields) != 3 || len(fields[0]) != 32 || len(fields[1]) != 32 {
		return eph, id, errMalformed
	}
	copy(eph[:], fields[0])
	copy(id[:], fields[1])
	if !crypto.VerifyEd25519(id, handshakeTranscript(k, eph), fields[2]) {
		return eph, id, ErrBadSignature
	}
	return eph, id, nil
}

func (e *Engine) onHello(id *domain.SessionIdentity, fields [][]byte) error {
	theirEph, theirID, err := parseHandshake(kindHello, fields)
	if err != nil {
		return err
	}
	kp, err := e.cb.LocalKeyPair(id)
	if err != nil {
		return fmt.Errorf("local key pair: %w", err)
	}

	st := e.state(id)
	st.mu.Lock()
	// Both sides started at once: the larger ephemeral key stays initiator.
	if st.status == domain.StatusLoading && st.initiator && bytes.Compare(st.ephPub[:], theirEph[:]) > 0 {
		st.mu.Unlock()
		return nil
	}
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		st.mu.Unlock()
		return err
	}
	keys, err := deriveKeys(priv, theirEph, theirEph, pub)
	if err != nil {
		st.mu.Unlock()
		return err
	}
	st.reset(domain.StatusEncrypted)
	st.initiator = false
	st.ephPriv, st.ephPub = priv, pub
	st.keys = &keys
	st.remoteID = &theirID
	sig := crypto.SignEd25519(kp.Private, handshakeTranscript(kindReply, pub))
	e.send(id, encode(kindReply, pub[:], kp.Public[:], sig))
	st.mu.Unlock()

	e.cb.StatusChanged(id)
	return nil
}

func (e *Engine) onReply(id *domain.SessionIdentity, fields [][]byte) error {
	theirEph, theirID, err := parseHandshake(kindReply, fields)
	if err != nil {
		return err
	}
	st := e.state(id)
	st.mu.Lock()
	if !st.initiator || st.status != domain.StatusLoading {
		st.mu.Unlock()
		return nil
	}
	keys, err := deriveKeys(st.ephPriv, theirEph, st.ephPub, theirEph)
	if err != nil {
		st.mu.Unlock()
		return err
	}
	st.keys = &keys
	st.remoteID = &theirID
	st.status = domain.StatusEncrypted
	st.mu.Unlock()

	e.cb.StatusChanged(id)
	return nil
}

func (e *Engine) onMessage(id *domain.SessionIdentity, fields [][]byte) (string, bool, error) {
	st := e.state(id)
	st.mu.Lock()
	if st.status != domain.StatusEncrypted || len(fields) != 1 {
		st.mu.Unlock()
		e.cb.UnreadableMessage(id)
		return "", false, nil
	}
	plain, err := open(st.recvKey(), fields[0])
	st.mu.Unlock()
	if err != nil {
		e.cb.UnreadableMessage(id)
		return "", false, nil
	}
	return string(plain), true, nil
}

func (e *Engine) onEnd(id *domain.SessionIdentity) {
	st := e.state(id)
	st.mu.Lock()
	if st.status != domain.StatusEncrypted {
		st.mu.Unlock()
		return
	}
	st.reset(domain.StatusFinished)
	st.mu.Unlock()
	e.cb.StatusChanged(id)
}

// ---------- Authentication ----------

func (e *Engine) remoteFingerprint(st *state) domain.Fingerprint {
	if st.remoteID == nil {
		return ""
	}
	fp, err := crypto.FingerprintPublicKey(ed25519.PublicKey(st.remoteID.Slice()))
	if err != nil {
		return ""
	}
	return fp
}

func (e *Engine) InitAuth(id *domain.SessionIdentity, question, secret string) error {
	st := e.state(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.status != domain.StatusEncrypted {
		return ErrNotEncrypted
	}
	st.question = question
	st.ours = commitment(st.keys.auth, question, secret)
	st.theirs = nil
	e.send(id, encode(kindAuthInit, []byte(question), st.ours))
	return nil
}

func (e *Engine) RespondAuth(id *domain.SessionIdentity, question, secret string) error {
	st := e.state(id)
	st.mu.Lock()
	if st.status != domain.StatusEncrypted {
		st.mu.Unlock()
		return ErrNotEncrypted
	}
	if st.theirs == nil {
		st.mu.Unlock()
		return ErrNoChallenge
	}
	if question == "" {
		question = st.question
	}
	ours := commitment(st.keys.auth, question, secret)
	match := hmac.Equal(ours, st.theirs)
	fp := e.remoteFingerprint(st)
	st.theirs, st.ours = nil, nil
	e.send(id, encode(kindAuthResp, ours))
	st.mu.Unlock()

	e.authResult(id, fp, match)
	return nil
}

func (e *Engine) AbortAuth(id *domain.SessionIdentity) error {
	st := e.state(id)
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.status == domain.StatusEncrypted && (st.ours != nil || st.theirs != nil) {
		e.send(id, encode(kindAuthStop))
	}
	st.question, st.ours, st.theirs = "", nil, nil
	return nil
}

func (e *Engine) authResult(id *domain.SessionIdentity, fp domain.Fingerprint, match bool) {
	if match {
		e.cb.Verify(id, fp, true)
		return
	}
	e.cb.Unverify(id, fp)
}

func (e *Engine) onAuthInit(id *domain.SessionIdentity, fields [][]byte) {
	if len(fields) != 2 {
		e.cb.AuthError(id, domain.AuthErrorProtocol)
		return
	}
	st := e.state(id)
	st.mu.Lock()
	if st.status != domain.StatusEncrypted {
		st.mu.Unlock()
		return
	}
	st.question = string(fields[0])
	st.theirs = fields[1]
	st.ours = nil
	st.mu.Unlock()
	e.cb.AskForSecret(id, string(fields[0]))
}

func (e *Engine) onAuthResp(id *domain.SessionIdentity, fields [][]byte) {
	st := e.state(id)
	st.mu.Lock()
	if st.ours == nil || len(fields) != 1 {
		st.mu.Unlock()
		e.cb.AuthError(id, domain.AuthErrorProtocol)
		return
	}
	match := hmac.Equal(st.ours, fields[0])
	fp := e.remoteFingerprint(st)
	st.ours = nil
	st.mu.Unlock()
	e.authResult(id, fp, match)
}

func (e *Engine) onAuthStop(id *domain.SessionIdentity) {
	st := e.state(id)
	st.mu.Lock()
	st.question, st.ours, st.theirs = "", nil, nil
	st.mu.Unlock()
	e.cb.AuthAborted(id)
}

// Compile-time assertion that Engine implements domain.TransformEngine.
var _ domain.TransformEngine = (*Engine)(nil)
