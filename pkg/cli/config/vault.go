package config

import (
	"encoding/base64"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/smartreview-app/smartreview/pkg/infra/vault"
)

// Vault backend names.
const (
	VaultBackendSQLite    = "sqlite"
	VaultBackendFirestore = "firestore"
	VaultBackendMemory    = "memory"
)

// Vault holds credential vault configuration
type Vault struct {
	KeyBase64                string
	Backend                  string
	DBPath                   string
	FirestoreProjectID       string
	FirestoreCredentialsFile string
}

// Flags returns CLI flags for vault configuration
func (c *Vault) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "vault-key",
			Usage:       "Base64-encoded 32-byte encryption key for stored credentials",
			Required:    true,
			Destination: &c.KeyBase64,
			Sources:     cli.EnvVars("SMARTREVIEW_VAULT_KEY"),
		},
		&cli.StringFlag{
			Name:        "vault-backend",
			Usage:       "Credential storage backend (sqlite, firestore, memory)",
			Value:       VaultBackendSQLite,
			Destination: &c.Backend,
			Sources:     cli.EnvVars("SMARTREVIEW_VAULT_BACKEND"),
		},
		&cli.StringFlag{
			Name:        "vault-db-path",
			Usage:       "SQLite database path for the sqlite backend",
			Value:       "smartreview.db",
			Destination: &c.DBPath,
			Sources:     cli.EnvVars("SMARTREVIEW_VAULT_DB_PATH"),
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "GCP project ID for the firestore backend",
			Destination: &c.FirestoreProjectID,
			Sources:     cli.EnvVars("SMARTREVIEW_FIRESTORE_PROJECT_ID"),
		},
		&cli.StringFlag{
			Name:        "firestore-credentials-file",
			Usage:       "Service account credentials file for the firestore backend",
			Destination: &c.FirestoreCredentialsFile,
			Sources:     cli.EnvVars("SMARTREVIEW_FIRESTORE_CREDENTIALS_FILE"),
		},
	}
}

// Key decodes and validates the vault encryption key.
func (c *Vault) Key() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.KeyBase64)
	if err != nil {
		return nil, goerr.Wrap(err, "vault key is not valid base64")
	}
	if len(key) != vault.KeySize {
		return nil, goerr.New("vault key must decode to exactly 32 bytes",
			goerr.V("decoded_len", len(key)))
	}
	return key, nil
}
