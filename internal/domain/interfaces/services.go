package interfaces

import (
	"time"

	"github.com/google/uuid"

	domaintypes "veil/internal/domain/types"
)

// IdentityResolver maps (party, endpoint) pairs to canonical identities.
type IdentityResolver interface {
	Resolve(party domaintypes.RemoteParty, endpoint domaintypes.Endpoint) *domaintypes.SessionIdentity
	ByGUID(guid uuid.UUID) (*domaintypes.SessionIdentity, bool)
}

// TimeoutScheduler arms and cancels delayed status transitions.
type TimeoutScheduler interface {
	Schedule(id *domaintypes.SessionIdentity, target domaintypes.SessionStatus, delay time.Duration)
	Cancel(id *domaintypes.SessionIdentity) bool
	Pending(id *domaintypes.SessionIdentity) bool
}
