package repository

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/smartreview-app/smartreview/pkg/domain/model"
	"github.com/smartreview-app/smartreview/pkg/domain/types"
)

// Memory is an in-memory credential repository for tests and for local
// development where persistence does not matter.
type Memory struct {
	mu    sync.RWMutex
	creds map[int64]model.EncryptedCredential
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		creds: make(map[int64]model.EncryptedCredential),
	}
}

func (r *Memory) Put(ctx context.Context, cred *model.EncryptedCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creds[cred.OwnerID] = *cred
	return nil
}

func (r *Memory) Get(ctx context.Context, ownerID int64) (*model.EncryptedCredential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cred, ok := r.creds[ownerID]
	if !ok {
		return nil, goerr.Wrap(types.ErrCredentialNotFound, "no stored credential",
			goerr.V("owner_id", ownerID))
	}
	return &cred, nil
}

func (r *Memory) Delete(ctx context.Context, ownerID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.creds[ownerID]; !ok {
		return false, nil
	}
	delete(r.creds, ownerID)
	return true, nil
}
