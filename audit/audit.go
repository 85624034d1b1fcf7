package audit

import "time"

type Action string

const (
	ActionConnected     Action = "connected"
	ActionRefreshed     Action = "refreshed"
	ActionRefreshFailed Action = "refresh_failed"
	ActionRevoked       Action = "revoked"
	ActionDisconnected  Action = "disconnected"
)

// Entry is one row of the revocable-token audit trail. TokenHint carries only
// a truncated token prefix, never the full token.
type Entry struct {
	ID        string
	UserID    string
	Action    Action
	TokenHint string
	Detail    string
	At        time.Time
}

type Repo interface {
	Append(entry *Entry) error
	ListByUser(userID string, limit int) ([]*Entry, error)
}

// TokenHint truncates a token for audit logging.
func TokenHint(token string) string {
	const hintLength = 8
	if len(token) <= hintLength {
		return token
	}
	return token[:hintLength] + "..."
}
