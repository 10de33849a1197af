package config

import "github.com/urfave/cli/v3"

// LLM holds analysis service configuration. The API key itself is
// per-user and lives in the credential vault, not here.
type LLM struct {
	Model string
}

// Flags returns CLI flags for LLM configuration
func (c *LLM) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm-model",
			Usage:       "Model used for review analysis",
			Value:       "gpt-4o-mini",
			Destination: &c.Model,
			Sources:     cli.EnvVars("SMARTREVIEW_LLM_MODEL"),
		},
	}
}
