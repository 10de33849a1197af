package config

import (
	"time"

	"github.com/urfave/cli/v3"
)

// Server holds HTTP server and dispatcher configuration
type Server struct {
	Addr       string
	APIToken   string
	Workers    int64
	QueueSize  int64
	RunTimeout time.Duration
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("SMARTREVIEW_ADDR"),
		},
		&cli.StringFlag{
			Name:        "api-token",
			Usage:       "Bearer token for the credential management API (disabled when empty)",
			Destination: &c.APIToken,
			Sources:     cli.EnvVars("SMARTREVIEW_API_TOKEN"),
		},
		&cli.Int64Flag{
			Name:        "workers",
			Usage:       "Number of concurrent review workers",
			Value:       4,
			Destination: &c.Workers,
			Sources:     cli.EnvVars("SMARTREVIEW_WORKERS"),
		},
		&cli.Int64Flag{
			Name:        "queue-size",
			Usage:       "Pending review queue capacity",
			Value:       64,
			Destination: &c.QueueSize,
			Sources:     cli.EnvVars("SMARTREVIEW_QUEUE_SIZE"),
		},
		&cli.DurationFlag{
			Name:        "run-timeout",
			Usage:       "Time limit for a single review run",
			Value:       5 * time.Minute,
			Destination: &c.RunTimeout,
			Sources:     cli.EnvVars("SMARTREVIEW_RUN_TIMEOUT"),
		},
	}
}
