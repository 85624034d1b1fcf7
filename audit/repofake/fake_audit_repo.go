package auditrepofake

import (
	"sort"
	"sync"

	"github.com/imetrics/go-connect-server/audit"
)

var _ audit.Repo = (*FakeAuditRepo)(nil)

type FakeAuditRepo struct {
	entries []*audit.Entry
	lock    sync.RWMutex
}

func NewFakeAuditRepo() *FakeAuditRepo {
	return &FakeAuditRepo{}
}

func (ar *FakeAuditRepo) Append(entry *audit.Entry) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	copied := *entry
	ar.entries = append(ar.entries, &copied)
	return nil
}

func (ar *FakeAuditRepo) ListByUser(userID string, limit int) ([]*audit.Entry, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	entries := make([]*audit.Entry, 0)
	for _, e := range ar.entries {
		if e.UserID == userID {
			copied := *e
			entries = append(entries, &copied)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].At.After(entries[j].At)
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
