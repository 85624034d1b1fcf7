package provider

import (
	"context"
	"time"
)

// Token is the result of a code exchange or refresh.
type Token struct {
	AccessToken  string
	RefreshToken string // may be empty; refreshes only replace it when rotated
	ExpiresAt    time.Time
	Scopes       []string

	// GrantedEmail is the provider account that approved the grant, taken
	// from the verified id_token when the provider returned one. Audit only.
	GrantedEmail string
}

// Client is the secondary provider abstraction: the three OAuth2 endpoints
// plus the reporting API. All failures are tagged *provider.Error values.
type Client interface {
	// AuthCodeURL builds the authorization redirect URL for the given signed
	// state value.
	AuthCodeURL(state string) string

	// Exchange swaps an authorization code for tokens with a direct request
	// to the token endpoint.
	Exchange(ctx context.Context, code string) (*Token, error)

	// Refresh obtains a new access token from a refresh token.
	Refresh(ctx context.Context, refreshToken string) (*Token, error)

	// Revoke invalidates a token at the provider. Best-effort.
	Revoke(ctx context.Context, token string) error

	// RunReport executes a reporting query with the given access token.
	RunReport(ctx context.Context, accessToken string, req *ReportRequest) (*ReportResponse, error)
}
