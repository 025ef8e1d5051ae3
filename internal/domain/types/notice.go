package types

// NoticeKind classifies user-facing notices emitted by the session engine.
type NoticeKind uint8

const (
	NoticeError NoticeKind = iota
	NoticeSessionStarted
	NoticeUnverifiedSessionStarted
	NoticeNeedsVerification
	NoticeSessionFinished
	NoticeSessionLost
	NoticeMultipleEndpoints
	NoticeMessageFromAnotherEndpoint
	NoticeUnreadableMessage
	NoticeUnencryptedMessage
	NoticeEncryptionRequired
	NoticeFinishedSessionMessage
	NoticeSecretRequested
	NoticeAuthError
	NoticeAuthAborted
)

var noticeNames = [...]string{
	NoticeError:                      "error",
	NoticeSessionStarted:             "session-started",
	NoticeUnverifiedSessionStarted:   "unverified-session-started",
	NoticeNeedsVerification:          "needs-verification",
	NoticeSessionFinished:            "session-finished",
	NoticeSessionLost:                "session-lost",
	NoticeMultipleEndpoints:          "multiple-endpoints",
	NoticeMessageFromAnotherEndpoint: "message-from-another-endpoint",
	NoticeUnreadableMessage:          "unreadable-message",
	NoticeUnencryptedMessage:         "unencrypted-message",
	NoticeEncryptionRequired:         "encryption-required",
	NoticeFinishedSessionMessage:     "finished-session-message",
	NoticeSecretRequested:            "secret-requested",
	NoticeAuthError:                  "auth-error",
	NoticeAuthAborted:                "auth-aborted",
}

func (k NoticeKind) String() string {
	if int(k) < len(noticeNames) {
		return noticeNames[k]
	}
	return "unknown"
}

// IsError reports whether the notice should be rendered as an error message.
func (k NoticeKind) IsError() bool {
	switch k {
	case NoticeError, NoticeUnreadableMessage, NoticeEncryptionRequired,
		NoticeFinishedSessionMessage, NoticeAuthError:
		return true
	}
	return false
}

// Notice is an observable side effect routed to the messaging UI.
type Notice struct {
	Kind     NoticeKind
	Identity *SessionIdentity
	// Text carries the message body, question or error text depending on Kind.
	Text        string
	Fingerprint Fingerprint
	Err         error
}
