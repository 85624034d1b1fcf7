package config

import "strings"

// ProviderConfig describes the secondary OAuth provider: its OAuth2 endpoints,
// the client registered with it, and the reporting API.
type ProviderConfig interface {
	GetProviderAuthURL() string
	GetProviderTokenURL() string
	GetProviderRevokeURL() string
	GetProviderReportingURL() string
	GetProviderIssuer() string
	GetProviderClientID() string
	GetProviderClientSecret() string
	GetProviderScopes() []string
	GetProviderRedirectPath() string
}

type Provider struct{}

var _ ProviderConfig = Provider{}

func (Provider) GetProviderAuthURL() string {
	return GetEnv("PROVIDER_AUTH_URL", "https://accounts.google.com/o/oauth2/v2/auth")
}

func (Provider) GetProviderTokenURL() string {
	return GetEnv("PROVIDER_TOKEN_URL", "https://oauth2.googleapis.com/token")
}

func (Provider) GetProviderRevokeURL() string {
	return GetEnv("PROVIDER_REVOKE_URL", "https://oauth2.googleapis.com/revoke")
}

func (Provider) GetProviderReportingURL() string {
	return GetEnv("PROVIDER_REPORTING_URL", "https://analyticsdata.googleapis.com/v1beta")
}

// GetProviderIssuer returns the OIDC issuer used to verify id_tokens returned
// alongside the access token. Empty disables verification.
func (Provider) GetProviderIssuer() string {
	return GetEnv("PROVIDER_ISSUER", "https://accounts.google.com")
}

func (Provider) GetProviderClientID() string {
	return GetEnv("PROVIDER_CLIENT_ID", "")
}

func (Provider) GetProviderClientSecret() string {
	return GetEnv("PROVIDER_CLIENT_SECRET", "")
}

// GetProviderScopes returns the minimum scopes requested for the secondary
// grant. Read-only reporting access plus openid/email for identity logging.
func (Provider) GetProviderScopes() []string {
	scopes := GetEnv("PROVIDER_SCOPES", "openid email https://www.googleapis.com/auth/analytics.readonly")
	return strings.Fields(scopes)
}

func (Provider) GetProviderRedirectPath() string {
	return GetEnv("PROVIDER_REDIRECT_PATH", "/api/analytics/callback")
}
