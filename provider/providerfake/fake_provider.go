package providerfake

import (
	"context"
	"sync"
	"time"

	"github.com/imetrics/go-connect-server/provider"
)

var _ provider.Client = (*FakeProvider)(nil)

// FakeProvider is a programmable provider client for tests. Behaviour is
// overridden per test via the *Func fields; call counts are recorded.
type FakeProvider struct {
	AuthCodeURLFunc func(state string) string
	ExchangeFunc    func(ctx context.Context, code string) (*provider.Token, error)
	RefreshFunc     func(ctx context.Context, refreshToken string) (*provider.Token, error)
	RevokeFunc      func(ctx context.Context, token string) error
	RunReportFunc   func(ctx context.Context, accessToken string, req *provider.ReportRequest) (*provider.ReportResponse, error)

	// NowFunc stamps token expiries in the default responses. Tests that
	// freeze the clock elsewhere must set it to the same clock, or token
	// expiry becomes relative to wall time.
	NowFunc func() time.Time

	ExchangeCalls  int
	RefreshCalls   int
	RevokeCalls    int
	RunReportCalls int

	lock sync.Mutex
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{}
}

func (f *FakeProvider) now() time.Time {
	if f.NowFunc != nil {
		return f.NowFunc()
	}
	return time.Now()
}

func (f *FakeProvider) AuthCodeURL(state string) string {
	if f.AuthCodeURLFunc != nil {
		return f.AuthCodeURLFunc(state)
	}
	return "https://provider.example.com/authorize?state=" + state
}

func (f *FakeProvider) Exchange(ctx context.Context, code string) (*provider.Token, error) {
	f.lock.Lock()
	f.ExchangeCalls++
	f.lock.Unlock()

	if f.ExchangeFunc != nil {
		return f.ExchangeFunc(ctx, code)
	}
	return &provider.Token{
		AccessToken:  "access-" + code,
		RefreshToken: "refresh-" + code,
		ExpiresAt:    f.now().Add(time.Hour),
		Scopes:       []string{"analytics.readonly"},
	}, nil
}

func (f *FakeProvider) Refresh(ctx context.Context, refreshToken string) (*provider.Token, error) {
	f.lock.Lock()
	f.RefreshCalls++
	f.lock.Unlock()

	if f.RefreshFunc != nil {
		return f.RefreshFunc(ctx, refreshToken)
	}
	return &provider.Token{
		AccessToken: "refreshed-access",
		ExpiresAt:   f.now().Add(time.Hour),
		Scopes:      []string{"analytics.readonly"},
	}, nil
}

func (f *FakeProvider) Revoke(ctx context.Context, token string) error {
	f.lock.Lock()
	f.RevokeCalls++
	f.lock.Unlock()

	if f.RevokeFunc != nil {
		return f.RevokeFunc(ctx, token)
	}
	return nil
}

func (f *FakeProvider) RunReport(ctx context.Context, accessToken string, req *provider.ReportRequest) (*provider.ReportResponse, error) {
	f.lock.Lock()
	f.RunReportCalls++
	f.lock.Unlock()

	if f.RunReportFunc != nil {
		return f.RunReportFunc(ctx, accessToken, req)
	}
	return &provider.ReportResponse{
		Rows: []provider.Row{
			{
				DimensionValues: []provider.Value{{Value: "2026-08-01"}},
				MetricValues:    []provider.Value{{Value: "42"}},
			},
		},
		RowCount: 1,
	}, nil
}
