package types

// SessionStatus is the encryption status of a conversation as shown to the user.
type SessionStatus uint8

const (
	StatusPlaintext SessionStatus = iota
	StatusLoading
	StatusEncrypted
	StatusFinished
	StatusTimedOut
)

var statusNames = [...]string{
	StatusPlaintext: "PLAINTEXT",
	StatusLoading:   "LOADING",
	StatusEncrypted: "ENCRYPTED",
	StatusFinished:  "FINISHED",
	StatusTimedOut:  "TIMED_OUT",
}

// String returns the upper-case status name.
func (s SessionStatus) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "UNKNOWN"
}

// AuthStage is the progress of a mutual-secret authentication run.
type AuthStage uint8

const (
	AuthNotStarted AuthStage = iota
	AuthInProgress
	AuthSucceeded
	AuthFailed
	AuthAborted
)

var authStageNames = [...]string{
	AuthNotStarted: "not-started",
	AuthInProgress: "in-progress",
	AuthSucceeded:  "succeeded",
	AuthFailed:     "failed",
	AuthAborted:    "aborted",
}

func (s AuthStage) String() string {
	if int(s) < len(authStageNames) {
		return authStageNames[s]
	}
	return "unknown"
}

// Terminal reports whether no further progress is expected.
func (s AuthStage) Terminal() bool {
	return s == AuthSucceeded || s == AuthFailed || s == AuthAborted
}

// AuthProgress is a snapshot of an authentication run.
type AuthProgress struct {
	Stage    AuthStage
	Question string
	// Steps counts the challenge/response messages handled so far.
	Steps int
}

// AuthErrorKind classifies authentication failures reported by the transform engine.
type AuthErrorKind uint8

const (
	AuthErrorProtocol AuthErrorKind = iota
	AuthErrorCheated
)

func (k AuthErrorKind) String() string {
	if k == AuthErrorCheated {
		return "cheated"
	}
	return "protocol"
}
