package reportcache

import (
	"encoding/json"
	"time"
)

// Key identifies one cached reporting query.
type Key struct {
	UserID     string
	ResourceID string
	StartDate  string // absolute, YYYY-MM-DD
	EndDate    string // absolute, YYYY-MM-DD
}

// CachedReport is a memoized reporting API result. Served only while
// now < ExpiresAt; otherwise treated as absent.
type CachedReport struct {
	Key       Key
	Payload   json.RawMessage
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Fresh reports whether the entry may still be served at the given instant.
func (c *CachedReport) Fresh(now time.Time) bool {
	return now.Before(c.ExpiresAt)
}

// Repo manages cached report rows. Insert deletes any existing row for the
// same key first, so a key never has duplicate or conflicting rows.
type Repo interface {
	Get(key Key) (*CachedReport, error)
	Insert(entry *CachedReport) error
	DeleteByUser(userID string) error
}
