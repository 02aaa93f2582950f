// Package analyze runs the slow-query pipeline: fetch, extract, aggregate,
// rank and report.
package analyze

import (
	"context"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/giannimassi/tilery/internal/parser"
	"github.com/giannimassi/tilery/internal/report"
	"github.com/giannimassi/tilery/internal/source"
	"github.com/giannimassi/tilery/internal/stats"
	"github.com/giannimassi/tilery/pkg/model"
)

// Options describe a single analysis run.
type Options struct {
	Path     string        // log file to fetch
	Identity string        // user@database of the tile renderer
	Sort     stats.SortKey // ranking key, validated by the caller
	Source   source.Source
	Out      io.Writer
	Logger   *zap.Logger
}

// Result contains the outcome of an analysis run.
type Result struct {
	Bytes   int
	Entries int
	Groups  int
}

// Scan fetches the log and aggregates it without ranking or reporting.
func Scan(ctx context.Context, opts Options) (*stats.Aggregator, int, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	extractor, err := parser.NewExtractor(opts.Identity)
	if err != nil {
		return nil, 0, err
	}

	logger.Debug("Fetching slow query log",
		zap.Stringer("source", opts.Source),
		zap.String("path", opts.Path))

	data, err := opts.Source.Fetch(ctx, opts.Path)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", opts.Path, err)
	}

	logger.Info("Fetched slow query log",
		zap.String("path", opts.Path),
		zap.String("size", humanize.Bytes(uint64(len(data)))))

	agg := stats.NewAggregator(parser.Normalize)
	agg.AddAll(extractor.Extract(string(data)))

	logger.Debug("Aggregated entries",
		zap.Int("entries", agg.Entries()),
		zap.Int("groups", agg.Len()))

	return agg, len(data), nil
}

// Run executes the full pipeline and writes the report to opts.Out.
// Nothing is written if the log cannot be fetched.
func Run(ctx context.Context, opts Options) (*Result, error) {
	// Reject a bad key before touching the source.
	if _, err := stats.ParseSortKey(string(opts.Sort)); err != nil {
		return nil, err
	}

	agg, size, err := Scan(ctx, opts)
	if err != nil {
		return nil, err
	}

	ranked, err := stats.Rank(agg.Groups(), opts.Sort)
	if err != nil {
		return nil, err
	}

	if err := report.Write(opts.Out, ranked, opts.Sort); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	return &Result{
		Bytes:   size,
		Entries: agg.Entries(),
		Groups:  len(ranked),
	}, nil
}

// NewSource picks the log source for cfg: SSH when a host is configured,
// the local filesystem otherwise.
func NewSource(cfg model.Config) (source.Source, error) {
	if cfg.Host == "" {
		return source.NewFileSource(), nil
	}
	return source.NewSSHSource(cfg.Host, cfg.SSH)
}
