package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/giannimassi/tilery/internal/analyze"
	"github.com/giannimassi/tilery/internal/config"
)

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and log access",
		Long:  "Run diagnostic checks: load the configuration, reach the log source, and count the slow tile queries it holds.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if _, err := os.Stat(opts.configPath); err != nil {
				fmt.Fprintf(out, "config:   %s (not found, using defaults)\n", opts.configPath)
			} else {
				fmt.Fprintf(out, "config:   %s\n", opts.configPath)
			}

			cfg, err := loadConfig(cmd, opts.configPath, &src)
			if err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			source, err := analyze.NewSource(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "source:   %s\n", source)
			fmt.Fprintf(out, "log:      %s\n", cfg.ResolvedLogPath())

			agg, size, err := analyze.Scan(cmd.Context(), analyze.Options{
				Path:     cfg.ResolvedLogPath(),
				Identity: cfg.Identity,
				Source:   source,
				Logger:   opts.log(),
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "size:     %s\n", humanize.Bytes(uint64(size)))
			fmt.Fprintf(out, "queries:  %d slow tile queries in %d groups\n", agg.Entries(), agg.Len())
			return nil
		},
	}

	src.register(cmd)

	return cmd
}
