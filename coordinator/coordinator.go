package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/imetrics/go-connect-server/audit"
	"github.com/imetrics/go-connect-server/flowstate"
	"github.com/imetrics/go-connect-server/grants"
	"github.com/imetrics/go-connect-server/identity"
	apperrors "github.com/imetrics/go-connect-server/internal/errors"
	"github.com/imetrics/go-connect-server/provider"
	"github.com/imetrics/go-connect-server/reportcache"
	"github.com/pkg/errors"
)

const defaultCacheTTL = 1 * time.Hour

// Repos holds all repository dependencies for the Coordinator
type Repos struct {
	Grants  grants.Repo      // Secondary grants keyed by primary user ID
	Pending flowstate.Repo   // Side-channel slot per browser context
	Cache   reportcache.Repo // Cached reporting results
	Audit   audit.Repo       // Revocable-token audit trail
}

// Coordinator runs the dual-session OAuth flow: it lets a user with an
// active primary session grant the secondary provider read access without
// that grant's completion replacing the primary identity. The secondary
// grant is always filed under the identity that initiated the flow.
type Coordinator struct {
	repos    Repos
	provider provider.Client
	states   *flowstate.Codec
	cacheTTL time.Duration
	nowTime  func() time.Time // nowTime function (injectable for testing)
}

// Option defines a function type to modify the Coordinator instance.
type Option func(*Coordinator)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Coordinator) {
		c.nowTime = nowFunc
	}
}

// WithCacheTTL sets the TTL applied to cached report rows.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Coordinator) {
		c.cacheTTL = ttl
	}
}

// New initializes a Coordinator with required dependencies.
func New(repos Repos, providerClient provider.Client, stateCodec *flowstate.Codec, options ...Option) (*Coordinator, error) {
	if repos.Grants == nil {
		return nil, errors.New("[coordinator.New] Grants repo is required")
	}
	if repos.Pending == nil {
		return nil, errors.New("[coordinator.New] Pending repo is required")
	}
	if repos.Cache == nil {
		return nil, errors.New("[coordinator.New] Cache repo is required")
	}
	if repos.Audit == nil {
		return nil, errors.New("[coordinator.New] Audit repo is required")
	}
	if providerClient == nil {
		return nil, errors.New("[coordinator.New] provider client is required")
	}
	if stateCodec == nil {
		return nil, errors.New("[coordinator.New] state codec is required")
	}

	c := &Coordinator{
		repos:    repos,
		provider: providerClient,
		states:   stateCodec,
		cacheTTL: defaultCacheTTL,
		nowTime:  time.Now,
	}

	for _, opt := range options {
		opt(c)
	}

	return c, nil
}

// InitiateSecondaryConnection records the primary identity in the side
// channel, signs it into the OAuth state parameter, and returns the provider
// authorization URL to redirect the user agent to. Nothing in this path
// touches the primary session.
func (c *Coordinator) InitiateSecondaryConnection(contextID string, session *identity.PrimarySession) (string, error) {
	if session == nil || session.UserID == "" {
		return "", apperrors.ErrNotAuthenticated
	}

	pending := &flowstate.PendingGrant{
		ExpectedUserID:    session.UserID,
		ExpectedUserEmail: session.UserEmail,
		FlowMarker:        true,
		CreatedAt:         c.nowTime(),
	}

	// A second initiation overwrites the slot: the old flow is presumed
	// abandoned once a new one starts.
	if err := c.repos.Pending.Upsert(contextID, pending); err != nil {
		return "", errors.Wrap(err, "[InitiateSecondaryConnection] Pending.Upsert")
	}

	state, err := c.states.Sign(contextID, pending)
	if err != nil {
		return "", errors.Wrap(err, "[InitiateSecondaryConnection] states.Sign")
	}

	return c.provider.AuthCodeURL(state), nil
}

// HandleCallback processes the provider redirect: verify the pending flow,
// exchange the code, re-verify the primary identity, persist the grant under
// the EXPECTED user. The side-channel slot is cleared on every exit path.
func (c *Coordinator) HandleCallback(ctx context.Context, contextID, code, state string, ambient identity.AmbientReader) (*grants.SecondaryGrant, error) {
	// Cleanup guarantee: stale flow markers must never leak into later,
	// unrelated sign-ins.
	defer func() {
		_ = c.repos.Pending.Delete(contextID)
	}()

	pending, err := c.repos.Pending.Get(contextID)
	if err != nil {
		return nil, errors.Wrap(err, "[HandleCallback] Pending.Get")
	}
	if pending == nil || !pending.FlowMarker {
		return nil, apperrors.ErrNoPendingGrant
	}

	claims, err := c.states.Verify(state)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidState, err.Error())
	}
	if claims.ContextID != contextID || claims.ExpectedUserID != pending.ExpectedUserID {
		return nil, apperrors.ErrInvalidState
	}

	// Step 1 - snapshot. If provider plumbing already corrupted the ambient
	// session, continue under the EXPECTED identity; the grant is never
	// filed under whatever the ambient ecosystem currently reports.
	if ambient == nil {
		return nil, errors.New("[HandleCallback] ambient reader is required")
	}
	if _, err := ambient.CurrentSession(ctx); err != nil {
		return nil, errors.Wrap(err, "[HandleCallback] ambient.CurrentSession")
	}

	// Step 2 - token exchange, direct against the token endpoint.
	tok, err := c.provider.Exchange(ctx, code)
	if err != nil {
		if provider.IsKind(err, provider.KindAuthorizationExpired) {
			return nil, errors.Wrap(apperrors.ErrAuthorizationExpired, err.Error())
		}
		if provider.IsKind(err, provider.KindTimeout) {
			return nil, errors.Wrap(apperrors.ErrNetworkTimeout, err.Error())
		}
		return nil, errors.Wrap(apperrors.ErrTokenExchangeFailed, err.Error())
	}

	// Step 3 - post-exchange verification. A non-nil ambient session that
	// reports a different identity means the primary session really was
	// overwritten; that is fatal, nothing is persisted.
	postSession, err := ambient.CurrentSession(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[HandleCallback] ambient.CurrentSession post-exchange")
	}
	if postSession != nil && !postSession.Matches(pending.ExpectedUserID, pending.ExpectedUserEmail) {
		return nil, apperrors.ErrIdentityDrift
	}

	// Step 4 - persist, keyed by the expected user, overwriting any prior
	// grant.
	now := c.nowTime()
	grant := &grants.SecondaryGrant{
		UserID:       pending.ExpectedUserID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.ExpiresAt,
		Scopes:       tok.Scopes,
		GrantedEmail: tok.GrantedEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.repos.Grants.Upsert(grant); err != nil {
		return nil, errors.Wrap(err, "[HandleCallback] Grants.Upsert")
	}

	c.appendAudit(pending.ExpectedUserID, audit.ActionConnected, tok.AccessToken, tok.GrantedEmail)

	return grant, nil
}

// RefreshSecondaryGrant replaces the grant's access token (and refresh token
// if rotated) in place. A rejected refresh token is terminal: the grant is
// deleted and the caller must surface a reconnect affordance, not retry.
func (c *Coordinator) RefreshSecondaryGrant(ctx context.Context, userID string) (*grants.SecondaryGrant, error) {
	grant, err := c.repos.Grants.Get(userID)
	if err != nil {
		return nil, errors.Wrap(err, "[RefreshSecondaryGrant] Grants.Get")
	}

	if grant.RefreshToken == "" {
		return nil, c.expireGrant(userID, grant, "no refresh token")
	}

	tok, err := c.provider.Refresh(ctx, grant.RefreshToken)
	if err != nil {
		if provider.IsKind(err, provider.KindUnauthorized) {
			return nil, c.expireGrant(userID, grant, err.Error())
		}
		return nil, errors.Wrap(err, "[RefreshSecondaryGrant] provider.Refresh")
	}

	grant.AccessToken = tok.AccessToken
	grant.ExpiresAt = tok.ExpiresAt
	if tok.RefreshToken != "" {
		grant.RefreshToken = tok.RefreshToken
	}
	grant.UpdatedAt = c.nowTime()

	if err := c.repos.Grants.Upsert(grant); err != nil {
		return nil, errors.Wrap(err, "[RefreshSecondaryGrant] Grants.Upsert")
	}

	c.appendAudit(userID, audit.ActionRefreshed, grant.AccessToken, "")

	return grant, nil
}

// DisconnectSecondaryGrant revokes the stored tokens (best-effort), then
// deletes the grant and every cached report for the user. Idempotent.
func (c *Coordinator) DisconnectSecondaryGrant(ctx context.Context, userID string) error {
	grant, err := c.repos.Grants.Get(userID)
	if err != nil && !apperrors.Is(err, apperrors.ErrGrantNotFound) {
		return errors.Wrap(err, "[DisconnectSecondaryGrant] Grants.Get")
	}
	if grant != nil {
		// Failure to revoke does not block local deletion.
		if revokeErr := c.provider.Revoke(ctx, grant.AccessToken); revokeErr == nil {
			c.appendAudit(userID, audit.ActionRevoked, grant.AccessToken, "access token")
		}
		if grant.RefreshToken != "" {
			if revokeErr := c.provider.Revoke(ctx, grant.RefreshToken); revokeErr == nil {
				c.appendAudit(userID, audit.ActionRevoked, grant.RefreshToken, "refresh token")
			}
		}

		if err := c.repos.Grants.Delete(userID); err != nil {
			return errors.Wrap(err, "[DisconnectSecondaryGrant] Grants.Delete")
		}
		c.appendAudit(userID, audit.ActionDisconnected, "", "")
	}

	if err := c.repos.Cache.DeleteByUser(userID); err != nil {
		return errors.Wrap(err, "[DisconnectSecondaryGrant] Cache.DeleteByUser")
	}

	return nil
}

// Grant returns the stored secondary grant for a user.
func (c *Coordinator) Grant(userID string) (*grants.SecondaryGrant, error) {
	grant, err := c.repos.Grants.Get(userID)
	if err != nil {
		return nil, errors.Wrap(err, "[Grant] Grants.Get")
	}
	return grant, nil
}

// ClearPendingGrant drops the side-channel slot for a browser context. Called
// on primary sign-out so an abandoned flow cannot outlive the session that
// started it.
func (c *Coordinator) ClearPendingGrant(contextID string) error {
	return c.repos.Pending.Delete(contextID)
}

// ListAudit returns the most recent audit trail entries for a user.
func (c *Coordinator) ListAudit(userID string, limit int) ([]*audit.Entry, error) {
	entries, err := c.repos.Audit.ListByUser(userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "[ListAudit] Audit.ListByUser")
	}
	return entries, nil
}

// expireGrant removes a grant whose refresh credential is gone and reports
// the terminal reauthentication error.
func (c *Coordinator) expireGrant(userID string, grant *grants.SecondaryGrant, detail string) error {
	_ = c.repos.Grants.Delete(userID)
	c.appendAudit(userID, audit.ActionRefreshFailed, grant.RefreshToken, detail)
	return apperrors.ErrReauthenticationRequired
}

// appendAudit writes a trail entry. The trail is advisory; a write failure
// never fails the operation that produced it.
func (c *Coordinator) appendAudit(userID string, action audit.Action, token, detail string) {
	_ = c.repos.Audit.Append(&audit.Entry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		TokenHint: audit.TokenHint(token),
		Detail:    detail,
		At:        c.nowTime(),
	})
}
