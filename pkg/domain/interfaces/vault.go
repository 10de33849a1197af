package interfaces

import (
	"context"

	"github.com/smartreview-app/smartreview/pkg/domain/model"
)

// Vault stores per-user analysis service API keys encrypted at rest.
type Vault interface {
	// Store encrypts and upserts the secret for an owner. Last write
	// wins; there is no versioning.
	Store(ctx context.Context, ownerID int64, secret string) error

	// Retrieve decrypts and returns the owner's secret. Returns
	// types.ErrCredentialNotFound when no secret is stored or the
	// stored ciphertext cannot be decrypted.
	Retrieve(ctx context.Context, ownerID int64) (string, error)

	// Delete removes the owner's secret. Reports whether a record
	// existed.
	Delete(ctx context.Context, ownerID int64) (bool, error)
}

// CredentialRepository is the persistence backend behind the vault. It
// deals only in ciphertext; encryption happens in the vault layer.
type CredentialRepository interface {
	Put(ctx context.Context, cred *model.EncryptedCredential) error
	Get(ctx context.Context, ownerID int64) (*model.EncryptedCredential, error)
	Delete(ctx context.Context, ownerID int64) (bool, error)
}
