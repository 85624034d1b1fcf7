package grants

// Repo manages storage of secondary grants, keyed by the primary user ID.
// Upsert overwrites any prior grant for the same user.
type Repo interface {
	Upsert(grant *SecondaryGrant) error
	Get(userID string) (*SecondaryGrant, error)
	Delete(userID string) error
}
