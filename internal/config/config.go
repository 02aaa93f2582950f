// Package config loads tilery settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/giannimassi/tilery/internal/stats"
	"github.com/giannimassi/tilery/pkg/model"
)

// DefaultPath is where the deployment settings live relative to the checkout.
const DefaultPath = "remote/config.yml"

// Load reads configuration from a YAML file on top of model.DefaultConfig.
// A missing file yields the defaults.
func Load(path string) (model.Config, error) {
	cfg := model.DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	cfg.SSH.IdentityFile = expandHome(cfg.SSH.IdentityFile)
	cfg.SSH.KnownHostsFile = expandHome(cfg.SSH.KnownHostsFile)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(c *model.Config) {
	if v, ok := os.LookupEnv("TILERY_HOST"); ok {
		c.Host = v
	}
	if v := os.Getenv("TILERY_PSQL_VERSION"); v != "" {
		c.PsqlVersion = v
	}
	if v := os.Getenv("TILERY_LOG_PATH"); v != "" {
		c.LogPath = v
	}
	if v := os.Getenv("TILERY_SORT"); v != "" {
		c.Sort = v
	}
	if v := os.Getenv("TILERY_SSH_USER"); v != "" {
		c.SSH.User = v
	}
}

// expandHome resolves a leading "~/" against the user's home directory.
func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}

// Validate checks the settings an analysis run depends on.
func Validate(c model.Config) error {
	if c.LogPath == "" && c.PsqlVersion == "" {
		return fmt.Errorf("psql_version or log_path must be set")
	}
	if c.Identity == "" {
		return fmt.Errorf("identity must be set (user@database)")
	}
	if !strings.Contains(c.Identity, "@") {
		return fmt.Errorf("invalid identity %q: expected user@database", c.Identity)
	}
	if _, err := stats.ParseSortKey(c.Sort); err != nil {
		return err
	}
	if c.Host != "" && c.SSH.Port < 0 {
		return fmt.Errorf("invalid ssh port: %d", c.SSH.Port)
	}
	return nil
}
