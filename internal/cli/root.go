package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/giannimassi/tilery/internal/config"
)

var Version = "dev"

// rootOptions carries persistent flag values and the logger to subcommands.
type rootOptions struct {
	configPath string
	verbose    bool
	logger     *zap.Logger
}

func (o *rootOptions) log() *zap.Logger {
	if o.logger == nil {
		return zap.NewNop()
	}
	return o.logger
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "tilery",
		Short: "Tile server operations toolkit",
		Long:  "Tilery operates a map tile server: it reads the PostgreSQL slow-query log, groups tile queries by shape, and reports where rendering time goes.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zc := zap.NewProductionConfig()
			if opts.verbose {
				zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			logger, err := zc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", config.DefaultPath, "Path to the YAML configuration file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging on stderr")

	root.AddCommand(
		newSlowQueryStatsCmd(opts),
		newDoctorCmd(opts),
	)

	root.SilenceUsage = true
	root.Version = Version
	root.SetVersionTemplate(fmt.Sprintf("tilery %s\n", Version))

	return root
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
