package grantrepofake

import (
	"sync"

	"github.com/imetrics/go-connect-server/grants"
	apperrors "github.com/imetrics/go-connect-server/internal/errors"
)

var _ grants.Repo = (*FakeGrantRepo)(nil)

type FakeGrantRepo struct {
	grants map[string]*grants.SecondaryGrant
	lock   sync.RWMutex
}

func NewFakeGrantRepo() *FakeGrantRepo {
	return &FakeGrantRepo{
		grants: make(map[string]*grants.SecondaryGrant),
	}
}

func (gr *FakeGrantRepo) Upsert(grant *grants.SecondaryGrant) error {
	gr.lock.Lock()
	defer gr.lock.Unlock()

	copied := *grant
	gr.grants[grant.UserID] = &copied
	return nil
}

func (gr *FakeGrantRepo) Get(userID string) (*grants.SecondaryGrant, error) {
	gr.lock.RLock()
	defer gr.lock.RUnlock()

	grant, ok := gr.grants[userID]
	if !ok {
		return nil, apperrors.ErrGrantNotFound
	}
	copied := *grant
	return &copied, nil
}

func (gr *FakeGrantRepo) Delete(userID string) error {
	gr.lock.Lock()
	defer gr.lock.Unlock()

	delete(gr.grants, userID)
	return nil
}
