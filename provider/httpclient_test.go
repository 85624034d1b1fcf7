package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/imetrics/go-connect-server/internal/config"
	"github.com/imetrics/go-connect-server/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig overrides the provider endpoints to point at a test server.
type testConfig struct {
	config.Config
	serverURL string
}

func (c testConfig) GetProviderAuthURL() string      { return c.serverURL + "/authorize" }
func (c testConfig) GetProviderTokenURL() string     { return c.serverURL + "/token" }
func (c testConfig) GetProviderRevokeURL() string    { return c.serverURL + "/revoke" }
func (c testConfig) GetProviderReportingURL() string { return c.serverURL + "/reporting" }
func (c testConfig) GetProviderIssuer() string       { return "" } // no id_token verification in tests
func (c testConfig) GetProviderClientID() string     { return "test-client" }
func (c testConfig) GetProviderClientSecret() string { return "test-secret" }
func (c testConfig) GetProviderScopes() []string     { return []string{"analytics.readonly"} }
func (c testConfig) GetNetworkTimeout() time.Duration { return 5 * time.Second }
func (c testConfig) GetMaxRetryAttempts() int         { return 3 }

func newTestClient(serverURL string) *provider.HTTPClient {
	return provider.NewHTTPClient(testConfig{Config: config.New(), serverURL: serverURL})
}

func writeJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestAuthCodeURLRequestsOfflineAccess(t *testing.T) {
	client := newTestClient("http://provider.test")

	u := client.AuthCodeURL("signed-state")
	assert.Contains(t, u, "state=signed-state")
	assert.Contains(t, u, "access_type=offline")
	assert.Contains(t, u, "prompt=consent")
	assert.Contains(t, u, "client_id=test-client")
}

func TestExchangeSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "abc123", r.FormValue("code"))
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"scope":         "openid analytics.readonly",
		})
	}))
	defer srv.Close()

	tok, err := newTestClient(srv.URL).Exchange(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.AccessToken)
	assert.Equal(t, "rt-1", tok.RefreshToken)
	assert.Equal(t, []string{"openid", "analytics.readonly"}, tok.Scopes)
	assert.True(t, tok.ExpiresAt.After(time.Now()))
}

func TestExchangeExpiredCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "code expired",
		})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Exchange(context.Background(), "stale-code")
	require.Error(t, err)
	assert.True(t, provider.IsKind(err, provider.KindAuthorizationExpired))
}

func TestRefreshRejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Refresh(context.Background(), "revoked-rt")
	require.Error(t, err)
	assert.True(t, provider.IsKind(err, provider.KindUnauthorized))
}

func TestRunReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/reporting/properties/prop-1:runReport", r.URL.Path)
		require.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))

		var body struct {
			Metrics    []provider.Name      `json:"metrics"`
			Dimensions []provider.Name      `json:"dimensions"`
			DateRanges []provider.DateRange `json:"dateRanges"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, []provider.Name{{Name: "activeUsers"}}, body.Metrics)
		require.Equal(t, []provider.DateRange{{Start: "2026-08-23", End: "2026-08-30"}}, body.DateRanges)

		writeJSON(w, http.StatusOK, map[string]any{
			"rows": []map[string]any{
				{
					"dimensionValues": []map[string]string{{"value": "2026-08-23"}},
					"metricValues":    []map[string]string{{"value": "17"}},
				},
			},
			"rowCount": 1,
		})
	}))
	defer srv.Close()

	report, err := newTestClient(srv.URL).RunReport(context.Background(), "at-1", &provider.ReportRequest{
		ResourceID: "prop-1",
		Spec:       provider.MetricSpec{Metrics: []string{"activeUsers"}, Dimensions: []string{"date"}},
		DateRange:  provider.DateRange{Start: "2026-08-23", End: "2026-08-30"},
	})
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "17", report.Rows[0].MetricValues[0].Value)
	assert.Equal(t, 1, report.RowCount)
}

func TestRunReportDoesNotRetryUnauthorized(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).RunReport(context.Background(), "expired-at", &provider.ReportRequest{
		ResourceID: "prop-1",
		Spec:       provider.MetricSpec{Metrics: []string{"activeUsers"}},
		DateRange:  provider.DateRange{Start: "2026-08-23", End: "2026-08-30"},
	})
	require.Error(t, err)
	assert.True(t, provider.IsKind(err, provider.KindUnauthorized))
	assert.Equal(t, 1, attempts)
}

func TestRunReportRetriesTransientErrors(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rowCount": 0})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).RunReport(context.Background(), "at-1", &provider.ReportRequest{
		ResourceID: "prop-1",
		Spec:       provider.MetricSpec{Metrics: []string{"activeUsers"}},
		DateRange:  provider.DateRange{Start: "2026-08-23", End: "2026-08-30"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRunReportBoundedRetries(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "unavailable"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).RunReport(context.Background(), "at-1", &provider.ReportRequest{
		ResourceID: "prop-1",
		Spec:       provider.MetricSpec{Metrics: []string{"activeUsers"}},
		DateRange:  provider.DateRange{Start: "2026-08-23", End: "2026-08-30"},
	})
	require.Error(t, err)
	assert.True(t, provider.IsKind(err, provider.KindTransient))
	assert.Equal(t, 3, attempts) // max attempts, then surface the error
}

func TestRevokeBestEffort(t *testing.T) {
	var revoked string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/revoke", r.URL.Path)
		require.NoError(t, r.ParseForm())
		revoked = r.FormValue("token")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, newTestClient(srv.URL).Revoke(context.Background(), "at-1"))
	assert.Equal(t, "at-1", revoked)
}

func TestErrorKindClassification(t *testing.T) {
	err := &provider.Error{Kind: provider.KindRateLimited, Status: 429, Message: "slow down"}
	assert.True(t, err.Retryable())
	assert.True(t, provider.IsKind(err, provider.KindRateLimited))
	assert.False(t, provider.IsKind(err, provider.KindTransient))
	assert.Contains(t, err.Error(), "429")

	timeout := &provider.Error{Kind: provider.KindTimeout, Message: "deadline exceeded"}
	assert.True(t, timeout.Retryable())

	invalid := &provider.Error{Kind: provider.KindInvalidRequest, Status: 400, Message: "bad metric"}
	assert.False(t, invalid.Retryable())
}
