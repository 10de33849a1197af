package config

import (
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// GitHub holds GitHub App configuration
type GitHub struct {
	WebhookSecret  string
	AppID          int64
	PrivateKey     string
	PrivateKeyFile string
	APIBaseURL     string
	RefreshMargin  time.Duration
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-webhook-secret",
			Usage:       "GitHub webhook secret (empty disables signature verification; dev only)",
			Destination: &c.WebhookSecret,
			Sources:     cli.EnvVars("SMARTREVIEW_GITHUB_WEBHOOK_SECRET"),
		},
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID",
			Required:    true,
			Destination: &c.AppID,
			Sources:     cli.EnvVars("SMARTREVIEW_GITHUB_APP_ID"),
		},
		&cli.StringFlag{
			Name:        "github-app-private-key",
			Usage:       "GitHub App private key in PEM format",
			Destination: &c.PrivateKey,
			Sources:     cli.EnvVars("SMARTREVIEW_GITHUB_APP_PRIVATE_KEY"),
		},
		&cli.StringFlag{
			Name:        "github-app-private-key-file",
			Usage:       "Path to the GitHub App private key PEM file",
			Destination: &c.PrivateKeyFile,
			Sources:     cli.EnvVars("SMARTREVIEW_GITHUB_APP_PRIVATE_KEY_FILE"),
		},
		&cli.StringFlag{
			Name:        "github-api-base-url",
			Usage:       "GitHub API base URL (for GitHub Enterprise)",
			Destination: &c.APIBaseURL,
			Sources:     cli.EnvVars("SMARTREVIEW_GITHUB_API_BASE_URL"),
		},
		&cli.DurationFlag{
			Name:        "github-token-refresh-margin",
			Usage:       "Refresh installation tokens this long before expiry",
			Value:       5 * time.Minute,
			Destination: &c.RefreshMargin,
			Sources:     cli.EnvVars("SMARTREVIEW_GITHUB_TOKEN_REFRESH_MARGIN"),
		},
	}
}

// PrivateKeyPEM returns the App private key, from the inline value or
// the configured file. Exactly one of the two must be set.
func (c *GitHub) PrivateKeyPEM() ([]byte, error) {
	switch {
	case c.PrivateKey != "" && c.PrivateKeyFile != "":
		return nil, goerr.New("github-app-private-key and github-app-private-key-file are mutually exclusive")
	case c.PrivateKey != "":
		return []byte(c.PrivateKey), nil
	case c.PrivateKeyFile != "":
		pem, err := os.ReadFile(c.PrivateKeyFile)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read private key file",
				goerr.V("path", c.PrivateKeyFile))
		}
		return pem, nil
	default:
		return nil, goerr.New("GitHub App private key is not configured")
	}
}
