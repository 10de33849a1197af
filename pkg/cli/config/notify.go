package config

import "github.com/urfave/cli/v3"

// Notify holds operator notification and error reporting configuration
type Notify struct {
	SlackWebhookURL string
	SentryDSN       string
}

// Flags returns CLI flags for notification configuration
func (c *Notify) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-webhook-url",
			Usage:       "Slack incoming webhook for skipped/failed review notices (disabled when empty)",
			Destination: &c.SlackWebhookURL,
			Sources:     cli.EnvVars("SMARTREVIEW_SLACK_WEBHOOK_URL"),
		},
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN for error reporting (disabled when empty)",
			Destination: &c.SentryDSN,
			Sources:     cli.EnvVars("SMARTREVIEW_SENTRY_DSN"),
		},
	}
}
