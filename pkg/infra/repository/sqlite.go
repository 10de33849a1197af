package repository

import (
	"context"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/smartreview-app/smartreview/pkg/domain/model"
	"github.com/smartreview-app/smartreview/pkg/domain/types"
)

const credentialSchema = `
CREATE TABLE IF NOT EXISTS credentials (
	owner_id   INTEGER PRIMARY KEY,
	ciphertext BLOB NOT NULL,
	nonce      BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// SQLite is the default credential repository, backed by a SQLite
// connection pool. Safe for concurrent use; SQLite serializes writes
// internally.
type SQLite struct {
	pool *sqlitex.Pool
}

// NewSQLite opens (and creates if needed) the credential database at
// path. Use ":memory:" with poolSize 1 for tests.
func NewSQLite(path string, poolSize int) (*SQLite, error) {
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitex.NewPool(path, sqlitex.PoolOptions{
		PoolSize: poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, credentialSchema, nil)
		},
	})
	if err != nil {
		return nil, goerr.Wrap(errors.Join(types.ErrVaultUninitialized, err), "failed to open credential database",
			goerr.V("path", path))
	}

	return &SQLite{pool: pool}, nil
}

// Close releases the connection pool.
func (r *SQLite) Close() error {
	return r.pool.Close()
}

func (r *SQLite) Put(ctx context.Context, cred *model.EncryptedCredential) error {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return goerr.Wrap(errors.Join(types.ErrVaultUninitialized, err), "failed to acquire connection")
	}
	defer r.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO credentials (owner_id, ciphertext, nonce, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(owner_id) DO UPDATE SET
		   ciphertext = excluded.ciphertext,
		   nonce = excluded.nonce,
		   updated_at = excluded.updated_at`,
		&sqlitex.ExecOptions{
			Args: []any{
				cred.OwnerID,
				cred.Ciphertext,
				cred.Nonce,
				cred.UpdatedAt.Unix(),
			},
		})
	if err != nil {
		return goerr.Wrap(err, "failed to upsert credential", goerr.V("owner_id", cred.OwnerID))
	}

	return nil
}

func (r *SQLite) Get(ctx context.Context, ownerID int64) (*model.EncryptedCredential, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return nil, goerr.Wrap(errors.Join(types.ErrVaultUninitialized, err), "failed to acquire connection")
	}
	defer r.pool.Put(conn)

	var cred *model.EncryptedCredential
	err = sqlitex.Execute(conn,
		`SELECT ciphertext, nonce, updated_at FROM credentials WHERE owner_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{ownerID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				ciphertext := make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, ciphertext)
				nonce := make([]byte, stmt.ColumnLen(1))
				stmt.ColumnBytes(1, nonce)

				cred = &model.EncryptedCredential{
					OwnerID:    ownerID,
					Ciphertext: ciphertext,
					Nonce:      nonce,
					UpdatedAt:  time.Unix(stmt.ColumnInt64(2), 0).UTC(),
				}
				return nil
			},
		})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query credential", goerr.V("owner_id", ownerID))
	}
	if cred == nil {
		return nil, goerr.Wrap(types.ErrCredentialNotFound, "no stored credential",
			goerr.V("owner_id", ownerID))
	}

	return cred, nil
}

func (r *SQLite) Delete(ctx context.Context, ownerID int64) (bool, error) {
	conn, err := r.pool.Take(ctx)
	if err != nil {
		return false, goerr.Wrap(errors.Join(types.ErrVaultUninitialized, err), "failed to acquire connection")
	}
	defer r.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`DELETE FROM credentials WHERE owner_id = ?`,
		&sqlitex.ExecOptions{Args: []any{ownerID}})
	if err != nil {
		return false, goerr.Wrap(err, "failed to delete credential", goerr.V("owner_id", ownerID))
	}

	return conn.Changes() > 0, nil
}
