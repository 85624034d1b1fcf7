package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/imetrics/go-connect-server/internal/config"
	"golang.org/x/oauth2"
)

var _ Client = (*HTTPClient)(nil)

// HTTPClient talks to the secondary provider over plain HTTP: the three
// OAuth2 endpoints and the reporting API. Token exchange is a direct request
// to the token endpoint, never a call that establishes a session of its own.
type HTTPClient struct {
	oauth        *oauth2.Config
	revokeURL    string
	reportingURL string
	issuer       string
	httpClient   *http.Client
	maxAttempts  int

	verifierOnce sync.Once
	verifier     *oidc.IDTokenVerifier
}

// NewHTTPClient builds a provider client from configuration. The redirect URI
// is owned by the connect server (base URL + callback path).
func NewHTTPClient(cfg config.Config) *HTTPClient {
	return &HTTPClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.GetProviderClientID(),
			ClientSecret: cfg.GetProviderClientSecret(),
			RedirectURL:  cfg.GetBaseURL() + cfg.GetProviderRedirectPath(),
			Scopes:       cfg.GetProviderScopes(),
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.GetProviderAuthURL(),
				TokenURL: cfg.GetProviderTokenURL(),
			},
		},
		revokeURL:    cfg.GetProviderRevokeURL(),
		reportingURL: strings.TrimSuffix(cfg.GetProviderReportingURL(), "/"),
		issuer:       cfg.GetProviderIssuer(),
		httpClient:   &http.Client{Timeout: cfg.GetNetworkTimeout()},
		maxAttempts:  cfg.GetMaxRetryAttempts(),
	}
}

// AuthCodeURL builds the authorization redirect. Offline access so a refresh
// token is issued; prompt=consent so the provider re-issues one on reconnect.
func (c *HTTPClient) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange swaps an authorization code for tokens.
func (c *HTTPClient) Exchange(ctx context.Context, code string) (*Token, error) {
	var tok *oauth2.Token
	err := c.withRetry(ctx, func() error {
		var exchangeErr error
		tok, exchangeErr = c.oauth.Exchange(c.oauthContext(ctx), code)
		if exchangeErr != nil {
			return c.classifyOAuthError(exchangeErr, KindAuthorizationExpired)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.newToken(ctx, tok), nil
}

// Refresh obtains a fresh access token. A rejected refresh token surfaces as
// KindUnauthorized; the caller decides whether the grant is terminal.
func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	var tok *oauth2.Token
	err := c.withRetry(ctx, func() error {
		src := c.oauth.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
		var refreshErr error
		tok, refreshErr = src.Token()
		if refreshErr != nil {
			return c.classifyOAuthError(refreshErr, KindUnauthorized)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c.newToken(ctx, tok), nil
}

// Revoke invalidates a token at the provider's revocation endpoint.
func (c *HTTPClient) Revoke(ctx context.Context, token string) error {
	return c.withRetry(ctx, func() error {
		form := url.Values{"token": {token}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.revokeURL,
			strings.NewReader(form.Encode()))
		if err != nil {
			return &Error{Kind: KindInvalidRequest, Message: err.Error()}
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return classifyTransportError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return &Error{
				Kind:    kindFromStatus(resp.StatusCode),
				Status:  resp.StatusCode,
				Message: strings.TrimSpace(string(body)),
			}
		}
		return nil
	})
}

// RunReport executes a reporting query. 401 is returned untouched so the
// coordinator can refresh and retry once; it is never retried here.
func (c *HTTPClient) RunReport(ctx context.Context, accessToken string, reportReq *ReportRequest) (*ReportResponse, error) {
	endpoint := fmt.Sprintf("%s/properties/%s:runReport", c.reportingURL, url.PathEscape(reportReq.ResourceID))

	payload, err := json.Marshal(newReportBody(reportReq))
	if err != nil {
		return nil, &Error{Kind: KindInvalidRequest, Message: err.Error()}
	}

	var report ReportResponse
	err = c.withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return &Error{Kind: KindInvalidRequest, Message: err.Error()}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+accessToken)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return classifyTransportError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			return &Error{
				Kind:    kindFromStatus(resp.StatusCode),
				Status:  resp.StatusCode,
				Message: strings.TrimSpace(string(body)),
			}
		}

		report = ReportResponse{}
		if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
			return &Error{Kind: KindInvalidRequest, Message: "malformed report response: " + err.Error()}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// withRetry runs op with bounded exponential backoff. Only retryable kinds
// (transient, rate-limited, timeout) are attempted again.
func (c *HTTPClient) withRetry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxAttempts-1)),
		ctx,
	)
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		var pe *Error
		if errors.As(err, &pe) && pe.Retryable() {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

// oauthContext routes the oauth2 package's internal HTTP calls through the
// timeout-bounded client.
func (c *HTTPClient) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// classifyOAuthError maps golang.org/x/oauth2 failures onto tagged kinds.
// invalidGrantKind is the kind an "invalid_grant" response maps to: an
// expired code in an exchange, a rejected refresh token in a refresh.
func (c *HTTPClient) classifyOAuthError(err error, invalidGrantKind ErrorKind) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		kind := kindFromStatus(retrieveErr.Response.StatusCode)
		if retrieveErr.ErrorCode == "invalid_grant" {
			kind = invalidGrantKind
		}
		return &Error{
			Kind:    kind,
			Status:  retrieveErr.Response.StatusCode,
			Message: retrieveErr.ErrorCode + " " + retrieveErr.ErrorDescription,
		}
	}
	return classifyTransportError(err)
}

// classifyTransportError maps network-level failures onto tagged kinds.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: err.Error()}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &Error{Kind: KindTimeout, Message: err.Error()}
	}
	return &Error{Kind: KindTransient, Message: err.Error()}
}

// newToken converts an oauth2 token, extracting the granting account's email
// from a verified id_token when one is present.
func (c *HTTPClient) newToken(ctx context.Context, tok *oauth2.Token) *Token {
	token := &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
		Scopes:       c.oauth.Scopes,
	}
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		token.Scopes = strings.Fields(scope)
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return token
	}
	verifier := c.idTokenVerifier(ctx)
	if verifier == nil {
		return token
	}
	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return token
	}
	var claims struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&claims); err == nil {
		token.GrantedEmail = claims.Email
	}
	return token
}

// idTokenVerifier lazily runs OIDC discovery against the configured issuer.
// The granting identity is audit-only, so discovery failure disables
// verification rather than failing the exchange.
func (c *HTTPClient) idTokenVerifier(ctx context.Context) *oidc.IDTokenVerifier {
	c.verifierOnce.Do(func() {
		if c.issuer == "" {
			return
		}
		discoveryCtx, cancel := context.WithTimeout(oidc.ClientContext(ctx, c.httpClient), 10*time.Second)
		defer cancel()
		oidcProvider, err := oidc.NewProvider(discoveryCtx, c.issuer)
		if err != nil {
			return
		}
		c.verifier = oidcProvider.Verifier(&oidc.Config{ClientID: c.oauth.ClientID})
	})
	return c.verifier
}
