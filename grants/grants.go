package grants

import "time"

// SecondaryGrant holds the tokens obtained from the secondary provider for a
// single primary user. One grant per user per provider; a new connection
// flow overwrites the previous grant.
type SecondaryGrant struct {
	UserID       string
	AccessToken  string
	RefreshToken string // optional, provider-dependent
	ExpiresAt    time.Time
	Scopes       []string

	// GrantedEmail is the provider-side account that approved the grant,
	// taken from the verified id_token when one is returned. Audit only.
	GrantedEmail string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the access token has passed its expiry at the
// given instant.
func (g *SecondaryGrant) Expired(now time.Time) bool {
	return !g.ExpiresAt.IsZero() && !now.Before(g.ExpiresAt)
}
