package interfaces

import domaintypes "veil/internal/domain/types"

// SessionListener observes session status changes.
type SessionListener interface {
	SessionStatusChanged(id *domaintypes.SessionIdentity)
	MultipleEndpointsDetected(id *domaintypes.SessionIdentity)
	OutgoingSessionChanged(id *domaintypes.SessionIdentity)
	AuthProgressChanged(id *domaintypes.SessionIdentity)
}

// PolicyListener observes global and per-contact policy writes.
type PolicyListener interface {
	GlobalPolicyChanged()
	ContactPolicyChanged(party domaintypes.RemoteParty)
}

// TrustListener observes fingerprint verification changes.
type TrustListener interface {
	VerificationStatusChanged(id *domaintypes.SessionIdentity, fp domaintypes.Fingerprint)
}

// Notifier routes user-facing notices to the messaging UI.
type Notifier interface {
	Notify(n domaintypes.Notice)
}
