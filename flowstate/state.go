package flowstate

import "time"

// PendingGrant records an in-flight secondary OAuth flow on behalf of a known
// primary session. One slot per browser context; a new initiation overwrites
// the old one, which is presumed abandoned. Removed on every callback exit
// path, success or failure.
type PendingGrant struct {
	ExpectedUserID    string
	ExpectedUserEmail string
	FlowMarker        bool
	CreatedAt         time.Time
}

// Repo manages the side-channel slot, keyed by browser context ID.
type Repo interface {
	Upsert(contextID string, pending *PendingGrant) error
	Get(contextID string) (*PendingGrant, error)
	Delete(contextID string) error
}
