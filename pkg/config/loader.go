package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into cfg, which must be a pointer to a
// struct using `env` and `envDefault` tags.
func Load(cfg any) error {
	return LoadWithPrefix(cfg, "")
}

// LoadWithPrefix is Load with every variable name prefixed, so two services
// can share one environment without colliding.
func LoadWithPrefix(cfg any, prefix string) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: prefix}); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
