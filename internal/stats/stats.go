// Package stats groups slow-query entries by query signature and ranks the groups.
package stats

import (
	"cmp"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/giannimassi/tilery/pkg/model"
)

// SortKey selects the field groups are ranked by.
type SortKey string

const (
	SortByDuration SortKey = "duration" // mean duration
	SortByTotal    SortKey = "total"    // occurrence count
	SortByDate     SortKey = "date"     // last seen timestamp
)

// SortKeys lists the accepted sort keys.
var SortKeys = []SortKey{SortByDuration, SortByTotal, SortByDate}

// ErrUnknownSortKey is returned for sort keys outside SortKeys.
var ErrUnknownSortKey = errors.New("unknown sort key")

// ParseSortKey validates a sort key given on the command line or in config.
func ParseSortKey(s string) (SortKey, error) {
	for _, k := range SortKeys {
		if string(k) == s {
			return k, nil
		}
	}
	names := make([]string, len(SortKeys))
	for i, k := range SortKeys {
		names[i] = string(k)
	}
	return "", fmt.Errorf("%w %q (valid: %s)", ErrUnknownSortKey, s, strings.Join(names, ", "))
}

// Aggregator accumulates entries into per-signature statistics.
// The zero value is not usable; call NewAggregator.
type Aggregator struct {
	normalize func(string) string
	groups    map[string]*model.AggregateStats
	order     []string
	entries   int
}

// NewAggregator returns an Aggregator that derives signatures with normalize.
func NewAggregator(normalize func(string) string) *Aggregator {
	return &Aggregator{
		normalize: normalize,
		groups:    make(map[string]*model.AggregateStats),
	}
}

// Add folds a single entry into its group.
func (a *Aggregator) Add(e model.LogEntry) {
	a.entries++
	sig := a.normalize(e.RawQuery)

	g, ok := a.groups[sig]
	if !ok {
		a.groups[sig] = &model.AggregateStats{
			Signature:            sig,
			OccurrenceCount:      1,
			CumulativeDurationMs: e.DurationMs,
			LastSeenTimestamp:    e.Timestamp,
			ExampleQuery:         e.RawQuery,
		}
		a.order = append(a.order, sig)
		return
	}

	g.OccurrenceCount++
	g.CumulativeDurationMs += e.DurationMs
	// Timestamps are fixed-width and zero-padded, so text order is time order
	// within a single timezone.
	if e.Timestamp > g.LastSeenTimestamp {
		g.LastSeenTimestamp = e.Timestamp
	}
}

// AddAll consumes the whole sequence.
func (a *Aggregator) AddAll(entries iter.Seq[model.LogEntry]) {
	for e := range entries {
		a.Add(e)
	}
}

// Entries returns how many entries were folded in.
func (a *Aggregator) Entries() int {
	return a.entries
}

// Len returns the number of distinct signatures.
func (a *Aggregator) Len() int {
	return len(a.order)
}

// Groups returns the accumulated groups in first-occurrence order.
// The returned values are copies; the aggregator keeps ownership of its map.
func (a *Aggregator) Groups() []model.AggregateStats {
	out := make([]model.AggregateStats, 0, len(a.order))
	for _, sig := range a.order {
		out = append(out, *a.groups[sig])
	}
	return out
}

// Rank finalizes the average duration of every group and returns the groups
// sorted ascending by key. Equal keys keep their input order.
func Rank(groups []model.AggregateStats, key SortKey) ([]model.AggregateStats, error) {
	compare, err := comparator(key)
	if err != nil {
		return nil, err
	}

	ranked := make([]model.AggregateStats, len(groups))
	for i, g := range groups {
		g.AverageDurationMs = g.CumulativeDurationMs / float64(g.OccurrenceCount)
		ranked[i] = g
	}
	slices.SortStableFunc(ranked, compare)
	return ranked, nil
}

func comparator(key SortKey) (func(a, b model.AggregateStats) int, error) {
	switch key {
	case SortByDuration:
		return func(a, b model.AggregateStats) int {
			return cmp.Compare(a.AverageDurationMs, b.AverageDurationMs)
		}, nil
	case SortByTotal:
		return func(a, b model.AggregateStats) int {
			return cmp.Compare(a.OccurrenceCount, b.OccurrenceCount)
		}, nil
	case SortByDate:
		return func(a, b model.AggregateStats) int {
			return strings.Compare(a.LastSeenTimestamp, b.LastSeenTimestamp)
		}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownSortKey, key)
	}
}
