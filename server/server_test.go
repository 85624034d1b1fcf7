package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	auditrepofake "github.com/imetrics/go-connect-server/audit/repofake"
	"github.com/imetrics/go-connect-server/coordinator"
	"github.com/imetrics/go-connect-server/flowstate"
	grantrepofake "github.com/imetrics/go-connect-server/grants/repofake"
	"github.com/imetrics/go-connect-server/identity"
	"github.com/imetrics/go-connect-server/internal/config"
	"github.com/imetrics/go-connect-server/provider"
	"github.com/imetrics/go-connect-server/provider/providerfake"
	cacherepofake "github.com/imetrics/go-connect-server/reportcache/repofake"
	"github.com/imetrics/go-connect-server/server"
)

const (
	testSessionID = "sess-1"
	testUserID    = "u1"
	testUserEmail = "alice@co.com"
)

type serverFixture struct {
	server    *server.Server
	sessions  *identity.InMemorySessionRepo
	provider  *providerfake.FakeProvider
	grantRepo *grantrepofake.FakeGrantRepo
}

func setupServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	fakeProvider := providerfake.NewFakeProvider()
	grantRepo := grantrepofake.NewFakeGrantRepo()
	sessions := identity.NewInMemorySessionRepo()

	codec, err := flowstate.NewCodec("test-secret", 15*time.Minute)
	require.NoError(t, err)

	coord, err := coordinator.New(coordinator.Repos{
		Grants:  grantRepo,
		Pending: flowstate.NewInMemoryRepo(),
		Cache:   cacherepofake.NewFakeReportCacheRepo(),
		Audit:   auditrepofake.NewFakeAuditRepo(),
	}, fakeProvider, codec)
	require.NoError(t, err)

	srv, err := server.New(config.New(), coord, sessions)
	require.NoError(t, err)

	return &serverFixture{
		server:    srv,
		sessions:  sessions,
		provider:  fakeProvider,
		grantRepo: grantRepo,
	}
}

func (f *serverFixture) signIn(t *testing.T) {
	t.Helper()
	err := f.sessions.Upsert(testSessionID, identity.PrimarySession{
		UserID:    testUserID,
		UserEmail: testUserEmail,
		IssuedAt:  time.Now(),
	})
	require.NoError(t, err)
}

func (f *serverFixture) request(method, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, r)
	return w
}

func sessionCookie() *http.Cookie {
	return &http.Cookie{Name: server.SessionCookieName, Value: testSessionID}
}

// connect runs the full flow up to the provider redirect and returns the
// context cookie and the state parameter carried in the authorization URL.
func (f *serverFixture) connect(t *testing.T) (*http.Cookie, string) {
	t.Helper()

	w := f.request(http.MethodGet, server.RouteConnect, sessionCookie())
	require.Equal(t, http.StatusFound, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state := location.Query().Get("state")
	require.NotEmpty(t, state)

	var ctxCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == server.ContextCookieName {
			ctxCookie = c
		}
	}
	require.NotNil(t, ctxCookie, "connect should set the context cookie")

	return ctxCookie, state
}

func TestConnectRequiresSession(t *testing.T) {
	f := setupServerFixture(t)

	w := f.request(http.MethodGet, server.RouteConnect)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "not_authenticated")
}

func TestConnectRedirectsToProvider(t *testing.T) {
	f := setupServerFixture(t)
	f.signIn(t)

	ctxCookie, state := f.connect(t)
	require.NotEmpty(t, ctxCookie.Value)
	require.NotEmpty(t, state)
}

func TestCallbackCompletesConnection(t *testing.T) {
	f := setupServerFixture(t)
	f.signIn(t)

	ctxCookie, state := f.connect(t)

	target := fmt.Sprintf("%s?code=abc123&state=%s", server.RouteCallback, url.QueryEscape(state))
	w := f.request(http.MethodGet, target, sessionCookie(), ctxCookie)

	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/?analytics=connected", w.Header().Get("Location"))

	grant, err := f.grantRepo.Get(testUserID)
	require.NoError(t, err)
	require.Equal(t, testUserID, grant.UserID)
}

func TestCallbackWithoutPendingFlow(t *testing.T) {
	f := setupServerFixture(t)
	f.signIn(t)

	target := server.RouteCallback + "?code=abc123&state=whatever"
	ctxCookie := &http.Cookie{Name: server.ContextCookieName, Value: "ctx-unknown"}
	w := f.request(http.MethodGet, target, sessionCookie(), ctxCookie)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "no_pending_grant")
}

func TestCallbackProviderErrorClearsFlow(t *testing.T) {
	f := setupServerFixture(t)
	f.signIn(t)

	ctxCookie, _ := f.connect(t)

	target := server.RouteCallback + "?error=access_denied&error_description=user+denied"
	w := f.request(http.MethodGet, target, sessionCookie(), ctxCookie)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "access_denied")

	// A later stray callback must not find a pending flow.
	w = f.request(http.MethodGet, server.RouteCallback+"?code=abc123&state=whatever", sessionCookie(), ctxCookie)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "no_pending_grant")
}

func TestStatusReflectsConnection(t *testing.T) {
	f := setupServerFixture(t)
	f.signIn(t)

	w := f.request(http.MethodGet, server.RouteStatus, sessionCookie())
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"connected":false`)

	ctxCookie, state := f.connect(t)
	target := fmt.Sprintf("%s?code=abc123&state=%s", server.RouteCallback, url.QueryEscape(state))
	f.request(http.MethodGet, target, sessionCookie(), ctxCookie)

	w = f.request(http.MethodGet, server.RouteStatus, sessionCookie())
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"connected":true`)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	f := setupServerFixture(t)
	f.signIn(t)

	ctxCookie, state := f.connect(t)
	target := fmt.Sprintf("%s?code=abc123&state=%s", server.RouteCallback, url.QueryEscape(state))
	f.request(http.MethodGet, target, sessionCookie(), ctxCookie)

	w := f.request(http.MethodPost, server.RouteDisconnect, sessionCookie())
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.request(http.MethodPost, server.RouteDisconnect, sessionCookie())
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestReportRequiresConnection(t *testing.T) {
	f := setupServerFixture(t)
	f.signIn(t)

	target := server.RouteReport + "?resource=prop-1&metrics=activeUsers&start=7daysAgo&end=today"
	w := f.request(http.MethodGet, target, sessionCookie())
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "not_connected")
}

func TestReportReturnsProviderRows(t *testing.T) {
	f := setupServerFixture(t)
	f.signIn(t)

	f.provider.RunReportFunc = func(_ context.Context, _ string, req *provider.ReportRequest) (*provider.ReportResponse, error) {
		return &provider.ReportResponse{
			Rows: []provider.Row{{
				DimensionValues: []provider.Value{{Value: "organic"}},
				MetricValues:    []provider.Value{{Value: "42"}},
			}},
			RowCount: 1,
		}, nil
	}

	ctxCookie, state := f.connect(t)
	target := fmt.Sprintf("%s?code=abc123&state=%s", server.RouteCallback, url.QueryEscape(state))
	f.request(http.MethodGet, target, sessionCookie(), ctxCookie)

	reportTarget := server.RouteReport + "?resource=prop-1&metrics=activeUsers,sessions&dimensions=sessionSource&start=7daysAgo&end=today"
	w := f.request(http.MethodGet, reportTarget, sessionCookie())
	require.Equal(t, http.StatusOK, w.Code)

	var report provider.ReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.Equal(t, 1, report.RowCount)
	require.Equal(t, "42", report.Rows[0].MetricValues[0].Value)
}

func TestReportRejectsBadDateExpression(t *testing.T) {
	f := setupServerFixture(t)
	f.signIn(t)

	ctxCookie, state := f.connect(t)
	target := fmt.Sprintf("%s?code=abc123&state=%s", server.RouteCallback, url.QueryEscape(state))
	f.request(http.MethodGet, target, sessionCookie(), ctxCookie)

	reportTarget := server.RouteReport + "?resource=prop-1&metrics=activeUsers&start=lastTuesday&end=today"
	w := f.request(http.MethodGet, reportTarget, sessionCookie())
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "invalid_date_expression")
}

func TestAuditListsTrail(t *testing.T) {
	f := setupServerFixture(t)
	f.signIn(t)

	ctxCookie, state := f.connect(t)
	target := fmt.Sprintf("%s?code=abc123&state=%s", server.RouteCallback, url.QueryEscape(state))
	f.request(http.MethodGet, target, sessionCookie(), ctxCookie)

	w := f.request(http.MethodGet, server.RouteAudit, sessionCookie())
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "connected")
}

func TestSessionSyncUpsertAndDelete(t *testing.T) {
	f := setupServerFixture(t)

	body := `{"sessionId":"sess-9","userId":"u9","userEmail":"bob@co.com"}`
	r := httptest.NewRequest(http.MethodPost, server.RouteInternalSession, strings.NewReader(body))
	w := httptest.NewRecorder()
	f.server.ServeHTTP(w, r)
	require.Equal(t, http.StatusNoContent, w.Code)

	session, err := f.sessions.Get("sess-9")
	require.NoError(t, err)
	require.Equal(t, "u9", session.UserID)

	w = f.request(http.MethodDelete, server.RouteInternalSession+"?sessionId=sess-9")
	require.Equal(t, http.StatusNoContent, w.Code)

	_, err = f.sessions.Get("sess-9")
	require.Error(t, err)
}

func TestLogoutClearsSessionAndPendingFlow(t *testing.T) {
	f := setupServerFixture(t)
	f.signIn(t)

	ctxCookie, state := f.connect(t)

	w := f.request(http.MethodPost, server.RouteLogout, sessionCookie(), ctxCookie)
	require.Equal(t, http.StatusNoContent, w.Code)

	_, err := f.sessions.Get(testSessionID)
	require.Error(t, err)

	// The abandoned flow must not be resumable after sign-out.
	f.signIn(t)
	target := fmt.Sprintf("%s?code=abc123&state=%s", server.RouteCallback, url.QueryEscape(state))
	w = f.request(http.MethodGet, target, sessionCookie(), ctxCookie)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "no_pending_grant")
}

func TestHealthEndpoint(t *testing.T) {
	f := setupServerFixture(t)

	w := f.request(http.MethodGet, server.RouteHealth)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", w.Body.String())
}
