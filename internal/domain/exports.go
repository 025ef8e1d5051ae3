package domain

import (
	interfaces "veil/internal/domain/interfaces"
	types "veil/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	AccountID       = types.AccountID
	Endpoint        = types.Endpoint
	Fingerprint     = types.Fingerprint
	MessageUID      = types.MessageUID
	RemoteParty     = types.RemoteParty
	Peer            = types.Peer
	SessionKey      = types.SessionKey
	SessionIdentity = types.SessionIdentity
	SessionStatus   = types.SessionStatus
	AuthStage       = types.AuthStage
	AuthProgress    = types.AuthProgress
	AuthErrorKind   = types.AuthErrorKind
	Policy          = types.Policy
	KeyPair         = types.KeyPair
	Ed25519Public   = types.Ed25519Public
	Ed25519Private  = types.Ed25519Private
	X25519Public    = types.X25519Public
	X25519Private   = types.X25519Private
	Notice          = types.Notice
	NoticeKind      = types.NoticeKind
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	PropertyStore      = interfaces.PropertyStore
	KeyStore           = interfaces.KeyStore
	PolicyStore        = interfaces.PolicyStore
	TransformEngine    = interfaces.TransformEngine
	TransformCallbacks = interfaces.TransformCallbacks
	TransformFactory   = interfaces.TransformFactory
	SessionListener    = interfaces.SessionListener
	PolicyListener     = interfaces.PolicyListener
	TrustListener      = interfaces.TrustListener
	Notifier           = interfaces.Notifier
	IdentityResolver   = interfaces.IdentityResolver
	TimeoutScheduler   = interfaces.TimeoutScheduler
)

// Status values.
const (
	StatusPlaintext = types.StatusPlaintext
	StatusLoading   = types.StatusLoading
	StatusEncrypted = types.StatusEncrypted
	StatusFinished  = types.StatusFinished
	StatusTimedOut  = types.StatusTimedOut
)

// Authentication stages.
const (
	AuthNotStarted = types.AuthNotStarted
	AuthInProgress = types.AuthInProgress
	AuthSucceeded  = types.AuthSucceeded
	AuthFailed     = types.AuthFailed
	AuthAborted    = types.AuthAborted
)

// NewPeer re-exports types.NewPeer.
func NewPeer(account AccountID, address string, endpoints ...Endpoint) *Peer {
	return types.NewPeer(account, address, endpoints...)
}

// DefaultPolicy re-exports types.DefaultPolicy.
func DefaultPolicy() Policy { return types.DefaultPolicy() }

// NewSessionIdentity re-exports types.NewSessionIdentity. Production code
// obtains identities from the identity resolver instead.
func NewSessionIdentity(party RemoteParty, endpoint Endpoint) *SessionIdentity {
	return types.NewSessionIdentity(party, endpoint)
}

// SameParty re-exports types.SameParty.
func SameParty(a, b RemoteParty) bool { return types.SameParty(a, b) }

// Notice kinds.
const (
	NoticeError                      = types.NoticeError
	NoticeSessionStarted             = types.NoticeSessionStarted
	NoticeUnverifiedSessionStarted   = types.NoticeUnverifiedSessionStarted
	NoticeNeedsVerification          = types.NoticeNeedsVerification
	NoticeSessionFinished            = types.NoticeSessionFinished
	NoticeSessionLost                = types.NoticeSessionLost
	NoticeMultipleEndpoints          = types.NoticeMultipleEndpoints
	NoticeMessageFromAnotherEndpoint = types.NoticeMessageFromAnotherEndpoint
	NoticeUnreadableMessage          = types.NoticeUnreadableMessage
	NoticeUnencryptedMessage         = types.NoticeUnencryptedMessage
	NoticeEncryptionRequired         = types.NoticeEncryptionRequired
	NoticeFinishedSessionMessage     = types.NoticeFinishedSessionMessage
	NoticeSecretRequested            = types.NoticeSecretRequested
	NoticeAuthError                  = types.NoticeAuthError
	NoticeAuthAborted                = types.NoticeAuthAborted
)

// Authentication error kinds.
const (
	AuthErrorProtocol = types.AuthErrorProtocol
	AuthErrorCheated  = types.AuthErrorCheated
)
