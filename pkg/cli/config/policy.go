package config

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"

	"github.com/smartreview-app/smartreview/pkg/domain/model"
)

// Policy holds the optional review policy file configuration
type Policy struct {
	Path string
}

// Flags returns CLI flags for policy configuration
func (c *Policy) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "policy",
			Usage:       "Path to a TOML review policy file (prompt override, exclusion globs, size cap)",
			Destination: &c.Path,
			Sources:     cli.EnvVars("SMARTREVIEW_POLICY"),
		},
	}
}

// Load parses the policy file. Returns the zero policy when no path is
// configured.
func (c *Policy) Load() (model.ReviewPolicy, error) {
	var policy model.ReviewPolicy
	if c.Path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(c.Path)
	if err != nil {
		return policy, goerr.Wrap(err, "failed to read policy file", goerr.V("path", c.Path))
	}
	if err := toml.Unmarshal(data, &policy); err != nil {
		return policy, goerr.Wrap(err, "failed to parse policy file", goerr.V("path", c.Path))
	}

	return policy, nil
}
