package interfaces

import (
	"crypto"

	domaintypes "veil/internal/domain/types"
)

// TransformEngine performs the encryption handshake and message encoding
// for a session identity. Calls may perform I/O and are made synchronously.
type TransformEngine interface {
	StartSession(id *domaintypes.SessionIdentity) error
	EndSession(id *domaintypes.SessionIdentity) error
	RefreshSession(id *domaintypes.SessionIdentity) error

	// TransformOutgoing returns the fragments to send in place of plaintext.
	// A nil slice with a nil error means nothing must be sent.
	TransformOutgoing(id *domaintypes.SessionIdentity, plaintext string) ([]string, error)
	// TransformIncoming returns the decoded text, or ok=false when the
	// message was consumed by the protocol and must not be displayed.
	TransformIncoming(id *domaintypes.SessionIdentity, ciphertext string) (plaintext string, ok bool, err error)

	CurrentStatus(id *domaintypes.SessionIdentity) domaintypes.SessionStatus
	RemotePublicKey(id *domaintypes.SessionIdentity) (crypto.PublicKey, error)

	InitAuth(id *domaintypes.SessionIdentity, question, secret string) error
	RespondAuth(id *domaintypes.SessionIdentity, question, secret string) error
	AbortAuth(id *domaintypes.SessionIdentity) error
}

// TransformCallbacks is implemented by the session engine and invoked by
// the transform engine when its internal state changes.
type TransformCallbacks interface {
	StatusChanged(id *domaintypes.SessionIdentity)
	AuthError(id *domaintypes.SessionIdentity, kind domaintypes.AuthErrorKind)
	AuthAborted(id *domaintypes.SessionIdentity)
	UnreadableMessage(id *domaintypes.SessionIdentity)
	MultipleEndpointsDetected(id *domaintypes.SessionIdentity)

	AskForSecret(id *domaintypes.SessionIdentity, question string)
	Verify(id *domaintypes.SessionIdentity, fp domaintypes.Fingerprint, approved bool)
	Unverify(id *domaintypes.SessionIdentity, fp domaintypes.Fingerprint)

	UnencryptedMessage(id *domaintypes.SessionIdentity, msg string)
	RequireEncryptedMessage(id *domaintypes.SessionIdentity, msg string)
	FinishedSessionMessage(id *domaintypes.SessionIdentity, msg string)
	MessageFromAnotherEndpoint(id *domaintypes.SessionIdentity)

	LocalKeyPair(id *domaintypes.SessionIdentity) (domaintypes.KeyPair, error)
	SessionPolicy(id *domaintypes.SessionIdentity) domaintypes.Policy
}

// TransformFactory builds a transform engine bound to the given callbacks.
type TransformFactory func(cb TransformCallbacks) TransformEngine
