package storage

import (
	"strings"
	"time"

	"github.com/imetrics/go-connect-server/audit"
	"github.com/imetrics/go-connect-server/grants"
	"github.com/imetrics/go-connect-server/reportcache"
)

// GrantModel is the persistence model for a secondary grant
type GrantModel struct {
	UserID       string `gorm:"primaryKey;size:128"`
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       string // space-separated
	GrantedEmail string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (GrantModel) TableName() string { return "secondary_grants" }

func (m *GrantModel) ToDomain() *grants.SecondaryGrant {
	return &grants.SecondaryGrant{
		UserID:       m.UserID,
		AccessToken:  m.AccessToken,
		RefreshToken: m.RefreshToken,
		ExpiresAt:    m.ExpiresAt,
		Scopes:       strings.Fields(m.Scopes),
		GrantedEmail: m.GrantedEmail,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func newGrantModel(g *grants.SecondaryGrant) *GrantModel {
	return &GrantModel{
		UserID:       g.UserID,
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		ExpiresAt:    g.ExpiresAt,
		Scopes:       strings.Join(g.Scopes, " "),
		GrantedEmail: g.GrantedEmail,
		CreatedAt:    g.CreatedAt,
		UpdatedAt:    g.UpdatedAt,
	}
}

// CachedReportModel is the persistence model for one cached reporting query,
// keyed by (user, resource, date range).
type CachedReportModel struct {
	UserID     string `gorm:"primaryKey;size:128"`
	ResourceID string `gorm:"primaryKey;size:128"`
	StartDate  string `gorm:"primaryKey;size:10"`
	EndDate    string `gorm:"primaryKey;size:10"`
	Payload    []byte
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

func (CachedReportModel) TableName() string { return "cached_reports" }

func (m *CachedReportModel) ToDomain() *reportcache.CachedReport {
	return &reportcache.CachedReport{
		Key: reportcache.Key{
			UserID:     m.UserID,
			ResourceID: m.ResourceID,
			StartDate:  m.StartDate,
			EndDate:    m.EndDate,
		},
		Payload:   m.Payload,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}

func newCachedReportModel(entry *reportcache.CachedReport) *CachedReportModel {
	return &CachedReportModel{
		UserID:     entry.Key.UserID,
		ResourceID: entry.Key.ResourceID,
		StartDate:  entry.Key.StartDate,
		EndDate:    entry.Key.EndDate,
		Payload:    entry.Payload,
		ExpiresAt:  entry.ExpiresAt,
		CreatedAt:  entry.CreatedAt,
	}
}

// AuditEntryModel is the persistence model for the token audit trail
type AuditEntryModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"index;size:128"`
	Action    string
	TokenHint string
	Detail    string
	At        time.Time
}

func (AuditEntryModel) TableName() string { return "token_audit" }

func (m *AuditEntryModel) ToDomain() *audit.Entry {
	return &audit.Entry{
		ID:        m.ID,
		UserID:    m.UserID,
		Action:    audit.Action(m.Action),
		TokenHint: m.TokenHint,
		Detail:    m.Detail,
		At:        m.At,
	}
}

func newAuditEntryModel(e *audit.Entry) *AuditEntryModel {
	return &AuditEntryModel{
		ID:        e.ID,
		UserID:    e.UserID,
		Action:    string(e.Action),
		TokenHint: e.TokenHint,
		Detail:    e.Detail,
		At:        e.At,
	}
}
