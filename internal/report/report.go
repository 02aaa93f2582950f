// Package report renders ranked slow-query groups as plain text.
package report

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/giannimassi/tilery/internal/stats"
	"github.com/giannimassi/tilery/pkg/model"
)

const width = 80

var (
	groupSeparator = strings.Repeat("-", width)
	closeSeparator = strings.Repeat("—", width)
)

// Write prints one block per group followed by a closing summary line.
func Write(w io.Writer, groups []model.AggregateStats, key stats.SortKey) error {
	bw := bufio.NewWriter(w)

	for _, g := range groups {
		fmt.Fprintln(bw, groupSeparator)
		fmt.Fprintln(bw, g.ExampleQuery)
		fmt.Fprintf(bw, "Total: %d ● Average duration: %d ● Last seen %s\n",
			g.OccurrenceCount, truncate(g.AverageDurationMs), g.LastSeenTimestamp)
	}

	fmt.Fprintln(bw, closeSeparator)
	fmt.Fprintf(bw, "Total requests: %d (sorted by %s)\n", len(groups), key)

	return bw.Flush()
}

// truncate drops the fractional part of a duration, rounding toward zero.
func truncate(ms float64) int64 {
	return int64(math.Trunc(ms))
}
