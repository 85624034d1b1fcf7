package coordinator

import (
	"context"
	"encoding/json"

	apperrors "github.com/imetrics/go-connect-server/internal/errors"
	"github.com/imetrics/go-connect-server/provider"
	"github.com/imetrics/go-connect-server/reportcache"
	"github.com/pkg/errors"
)

// FetchMetrics resolves the date range, serves from cache while fresh, and
// otherwise queries the provider's reporting endpoint. On a 401 it performs
// at most one refresh of the grant before retrying the same query once.
// Fresh results replace the cache row for the key with a fixed TTL.
func (c *Coordinator) FetchMetrics(ctx context.Context, userID, resourceID string, spec provider.MetricSpec, dateRange provider.DateRange) (*provider.ReportResponse, error) {
	now := c.nowTime()

	resolved, err := provider.ResolveDateRange(dateRange, now)
	if err != nil {
		return nil, errors.Wrap(err, "[FetchMetrics] ResolveDateRange")
	}

	key := reportcache.Key{
		UserID:     userID,
		ResourceID: resourceID,
		StartDate:  resolved.Start,
		EndDate:    resolved.End,
	}

	if entry, err := c.repos.Cache.Get(key); err == nil && entry != nil && entry.Fresh(now) {
		report := &provider.ReportResponse{}
		if err := json.Unmarshal(entry.Payload, report); err == nil {
			return report, nil
		}
		// Undecodable cache rows are treated as absent and overwritten below.
	}

	grant, err := c.repos.Grants.Get(userID)
	if err != nil {
		return nil, errors.Wrap(err, "[FetchMetrics] Grants.Get")
	}

	refreshed := false

	// A token already past its expiry will be rejected; refresh it up front
	// rather than spending a round trip on a guaranteed 401.
	if grant.Expired(now) && grant.RefreshToken != "" {
		grant, err = c.RefreshSecondaryGrant(ctx, userID)
		if err != nil {
			return nil, err
		}
		refreshed = true
	}

	req := &provider.ReportRequest{
		ResourceID: resourceID,
		Spec:       spec,
		DateRange:  resolved,
	}

	report, err := c.provider.RunReport(ctx, grant.AccessToken, req)
	if err != nil && provider.IsKind(err, provider.KindUnauthorized) && !refreshed {
		grant, err = c.RefreshSecondaryGrant(ctx, userID)
		if err != nil {
			return nil, err
		}
		report, err = c.provider.RunReport(ctx, grant.AccessToken, req)
	}
	if err != nil {
		if provider.IsKind(err, provider.KindTimeout) {
			return nil, errors.Wrap(apperrors.ErrNetworkTimeout, err.Error())
		}
		return nil, errors.Wrap(err, "[FetchMetrics] provider.RunReport")
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return nil, errors.Wrap(err, "[FetchMetrics] marshal report")
	}
	if err := c.repos.Cache.Insert(&reportcache.CachedReport{
		Key:       key,
		Payload:   payload,
		ExpiresAt: now.Add(c.cacheTTL),
		CreatedAt: now,
	}); err != nil {
		return nil, errors.Wrap(err, "[FetchMetrics] Cache.Insert")
	}

	return report, nil
}
