package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/smartreview-app/smartreview/pkg/domain/model"
	"github.com/smartreview-app/smartreview/pkg/domain/types"
)

const credentialCollection = "credentials"

// Firestore is the credential repository for GCP deployments. One
// document per owner in the "credentials" collection, keyed by the
// decimal owner ID.
type Firestore struct {
	client *firestore.Client
}

type credentialDoc struct {
	Ciphertext []byte    `firestore:"ciphertext"`
	Nonce      []byte    `firestore:"nonce"`
	UpdatedAt  time.Time `firestore:"updated_at"`
}

// NewFirestore connects to Firestore in the given project. A
// credentials file path may be empty, in which case application
// default credentials are used.
func NewFirestore(ctx context.Context, projectID, credentialsFile string) (*Firestore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, goerr.Wrap(errors.Join(types.ErrVaultUninitialized, err), "failed to create Firestore client",
			goerr.V("project_id", projectID))
	}

	return &Firestore{client: client}, nil
}

// Close releases the Firestore client.
func (r *Firestore) Close() error {
	return r.client.Close()
}

func (r *Firestore) doc(ownerID int64) *firestore.DocumentRef {
	return r.client.Collection(credentialCollection).Doc(strconv.FormatInt(ownerID, 10))
}

func (r *Firestore) Put(ctx context.Context, cred *model.EncryptedCredential) error {
	_, err := r.doc(cred.OwnerID).Set(ctx, &credentialDoc{
		Ciphertext: cred.Ciphertext,
		Nonce:      cred.Nonce,
		UpdatedAt:  cred.UpdatedAt,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to upsert credential", goerr.V("owner_id", cred.OwnerID))
	}
	return nil
}

func (r *Firestore) Get(ctx context.Context, ownerID int64) (*model.EncryptedCredential, error) {
	snap, err := r.doc(ownerID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(types.ErrCredentialNotFound, "no stored credential",
				goerr.V("owner_id", ownerID))
		}
		return nil, goerr.Wrap(err, "failed to fetch credential", goerr.V("owner_id", ownerID))
	}

	var doc credentialDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode credential document",
			goerr.V("owner_id", ownerID))
	}

	return &model.EncryptedCredential{
		OwnerID:    ownerID,
		Ciphertext: doc.Ciphertext,
		Nonce:      doc.Nonce,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

func (r *Firestore) Delete(ctx context.Context, ownerID int64) (bool, error) {
	ref := r.doc(ownerID)

	// Firestore deletes are idempotent and do not report existence, so
	// check first. The management API is the only writer, races here
	// only affect the reported bool.
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to check credential", goerr.V("owner_id", ownerID))
	}

	if _, err := ref.Delete(ctx); err != nil {
		return false, goerr.Wrap(err, "failed to delete credential", goerr.V("owner_id", ownerID))
	}
	return true, nil
}
