package model

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultIdentity is the user@database pair the tile server connects as.
const DefaultIdentity = "tilery@tilery"

// Config holds runtime configuration for tilery.
type Config struct {
	Host        string    `yaml:"host"`         // SSH host; empty reads the local filesystem
	PsqlVersion string    `yaml:"psql_version"` // PostgreSQL major version, used to derive the log path
	LogPath     string    `yaml:"log_path"`     // Overrides the derived log path
	Identity    string    `yaml:"identity"`     // user@database written in each log line
	Sort        string    `yaml:"sort"`         // duration, total or date
	SSH         SSHConfig `yaml:"ssh"`
}

// SSHConfig configures the connection used to fetch remote logs.
type SSHConfig struct {
	User           string `yaml:"user"`
	Port           int    `yaml:"port"`
	IdentityFile   string `yaml:"identity_file"`
	KnownHostsFile string `yaml:"known_hosts_file"`
	Timeout        string `yaml:"timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		PsqlVersion: "10",
		Identity:    DefaultIdentity,
		Sort:        "date",
		SSH: SSHConfig{
			User:           os.Getenv("USER"),
			Port:           22,
			IdentityFile:   filepath.Join(home, ".ssh", "id_ed25519"),
			KnownHostsFile: filepath.Join(home, ".ssh", "known_hosts"),
			Timeout:        "30s",
		},
	}
}

// ResolvedLogPath returns the slow-query log location on the database host.
func (c Config) ResolvedLogPath() string {
	if c.LogPath != "" {
		return c.LogPath
	}
	return fmt.Sprintf("/var/log/postgresql/postgresql-%s-main.log", c.PsqlVersion)
}
