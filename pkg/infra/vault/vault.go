package vault

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/smartreview-app/smartreview/pkg/domain/interfaces"
	"github.com/smartreview-app/smartreview/pkg/domain/model"
	"github.com/smartreview-app/smartreview/pkg/domain/types"
)

// KeySize is the required length of the vault encryption key in bytes.
const KeySize = chacha20poly1305.KeySize

// Vault encrypts per-user secrets with ChaCha20-Poly1305 before handing
// them to a CredentialRepository. The key is process-wide configuration
// loaded once at start-up; key rotation is not supported, re-encrypting
// stored records after a key change is a manual operation.
type Vault struct {
	repo interfaces.CredentialRepository
	seal cipher.AEAD
}

// New creates a vault. The key must be exactly KeySize bytes.
func New(key []byte, repo interfaces.CredentialRepository) (*Vault, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to initialize vault cipher")
	}

	return &Vault{
		repo: repo,
		seal: aead,
	}, nil
}

// Store encrypts and upserts the secret for an owner.
func (v *Vault) Store(ctx context.Context, ownerID int64, secret string) error {
	nonce := make([]byte, v.seal.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return goerr.Wrap(err, "failed to generate nonce")
	}

	ciphertext := v.seal.Seal(nil, nonce, []byte(secret), nil)

	cred := &model.EncryptedCredential{
		OwnerID:    ownerID,
		Ciphertext: ciphertext,
		Nonce:      nonce,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := v.repo.Put(ctx, cred); err != nil {
		return goerr.Wrap(err, "failed to store credential", goerr.V("owner_id", ownerID))
	}

	return nil
}

// Retrieve decrypts the owner's secret. A missing record and an
// undecryptable record both surface as types.ErrCredentialNotFound so
// that callers cannot probe the vault's cryptographic state.
func (v *Vault) Retrieve(ctx context.Context, ownerID int64) (string, error) {
	cred, err := v.repo.Get(ctx, ownerID)
	if err != nil {
		return "", err
	}

	plaintext, err := v.seal.Open(nil, cred.Nonce, cred.Ciphertext, nil)
	if err != nil {
		ctxlog.From(ctx).Warn("credential decryption failed, treating as not found",
			"owner_id", ownerID,
		)
		return "", goerr.Wrap(types.ErrCredentialNotFound, "undecryptable credential",
			goerr.V("owner_id", ownerID))
	}

	return string(plaintext), nil
}

// Delete removes the owner's secret. Reports whether a record existed.
func (v *Vault) Delete(ctx context.Context, ownerID int64) (bool, error) {
	return v.repo.Delete(ctx, ownerID)
}
