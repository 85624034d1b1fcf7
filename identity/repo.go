package identity

// Repo manages server-side storage of primary sessions, keyed by the opaque
// session ID carried in the host application's cookie.
type Repo interface {
	Upsert(sessionID string, session PrimarySession) error
	Get(sessionID string) (PrimarySession, error)
	Delete(sessionID string) error
}
