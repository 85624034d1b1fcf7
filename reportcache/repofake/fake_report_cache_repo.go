package cacherepofake

import (
	"sync"

	"github.com/imetrics/go-connect-server/reportcache"
)

var _ reportcache.Repo = (*FakeReportCacheRepo)(nil)

type FakeReportCacheRepo struct {
	entries map[reportcache.Key]*reportcache.CachedReport
	lock    sync.RWMutex
}

func NewFakeReportCacheRepo() *FakeReportCacheRepo {
	return &FakeReportCacheRepo{
		entries: make(map[reportcache.Key]*reportcache.CachedReport),
	}
}

func (cr *FakeReportCacheRepo) Get(key reportcache.Key) (*reportcache.CachedReport, error) {
	cr.lock.RLock()
	defer cr.lock.RUnlock()

	entry, ok := cr.entries[key]
	if !ok {
		return nil, nil
	}
	copied := *entry
	return &copied, nil
}

func (cr *FakeReportCacheRepo) Insert(entry *reportcache.CachedReport) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	// Delete-then-insert: the map overwrite gives the same end state as the
	// SQL delete + insert the persistent store performs.
	copied := *entry
	cr.entries[entry.Key] = &copied
	return nil
}

func (cr *FakeReportCacheRepo) DeleteByUser(userID string) error {
	cr.lock.Lock()
	defer cr.lock.Unlock()

	for key := range cr.entries {
		if key.UserID == userID {
			delete(cr.entries, key)
		}
	}
	return nil
}

// Len reports the number of stored entries (test helper).
func (cr *FakeReportCacheRepo) Len() int {
	cr.lock.RLock()
	defer cr.lock.RUnlock()
	return len(cr.entries)
}
