package cli

import (
	"github.com/spf13/cobra"

	"github.com/giannimassi/tilery/internal/config"
	"github.com/giannimassi/tilery/pkg/model"
)

// sourceFlags are per-command overrides of the configuration file.
type sourceFlags struct {
	host        string
	psqlVersion string
	logFile     string
	identity    string
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.host, "host", "", "SSH host holding the log (empty reads the local filesystem)")
	cmd.Flags().StringVar(&f.psqlVersion, "psql-version", "", "PostgreSQL version used to locate the log")
	cmd.Flags().StringVar(&f.logFile, "log-file", "", "Explicit log path, overrides --psql-version (.gz and .xz are decompressed)")
	cmd.Flags().StringVar(&f.identity, "identity", "", "user@database of the rendering queries (default tilery@tilery)")
}

// loadConfig reads the config file and applies flags the user actually set.
func loadConfig(cmd *cobra.Command, path string, f *sourceFlags) (model.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = f.host
	}
	if flags.Changed("psql-version") {
		cfg.PsqlVersion = f.psqlVersion
	}
	if flags.Changed("log-file") {
		cfg.LogPath = f.logFile
	}
	if flags.Changed("identity") {
		cfg.Identity = f.identity
	}

	return cfg, nil
}
