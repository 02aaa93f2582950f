package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/giannimassi/tilery/internal/analyze"
	"github.com/giannimassi/tilery/internal/config"
	"github.com/giannimassi/tilery/internal/stats"
)

func newSlowQueryStatsCmd(opts *rootOptions) *cobra.Command {
	var sortFlag string
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   "slow-query-stats",
		Short: "Compile slow tile queries",
		Long: "Read the PostgreSQL slow-query log, group tile queries that only differ by their BOX3D bounding box, " +
			"and print occurrences, average duration and last seen date per group.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts.configPath, &src)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("sort") {
				cfg.Sort = sortFlag
			}
			if err := config.Validate(cfg); err != nil {
				return err
			}
			key, err := stats.ParseSortKey(cfg.Sort)
			if err != nil {
				return err
			}

			source, err := analyze.NewSource(cfg)
			if err != nil {
				return err
			}

			logger := opts.log()
			res, err := analyze.Run(cmd.Context(), analyze.Options{
				Path:     cfg.ResolvedLogPath(),
				Identity: cfg.Identity,
				Sort:     key,
				Source:   source,
				Out:      cmd.OutOrStdout(),
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			logger.Debug("Slow query report written",
				zap.Int("entries", res.Entries),
				zap.Int("groups", res.Groups))
			return nil
		},
	}

	cmd.Flags().StringVar(&sortFlag, "sort", string(stats.SortByDate), "Sort groups by duration, total or date")
	src.register(cmd)

	return cmd
}
