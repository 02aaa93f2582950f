package parser

import (
	"fmt"
	"iter"
	"strconv"

	"github.com/grafana/regexp"

	"github.com/giannimassi/tilery/pkg/model"
)

// QueryPrefix is how every tile-rendering query issued by Mapnik begins.
const QueryPrefix = `SELECT ST_AsBinary("geometry") AS geom,`

// bboxPlaceholder replaces BOX3D literals in signatures.
const bboxPlaceholder = "BBOX"

var bboxPattern = regexp.MustCompile(`BOX3D\([^)]+\)`)

// Extractor scans PostgreSQL logs for slow tile queries issued by one
// user@database identity.
type Extractor struct {
	record *regexp.Regexp
}

// NewExtractor returns an Extractor matching log lines written for identity,
// e.g. "tilery@tilery".
func NewExtractor(identity string) (*Extractor, error) {
	if identity == "" {
		return nil, fmt.Errorf("identity required")
	}
	// The query body runs across newlines up to the parameter list that starts
	// at the next '['. The '[' itself is checked outside the pattern so it is
	// left in place for the following scan.
	expr := `(?s)(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} [A-Z]+) \[\d+-\d+\] ` +
		regexp.QuoteMeta(identity) +
		` LOG:  duration: (\d+(?:\.\d+)?) ms  execute <unnamed>: (` +
		regexp.QuoteMeta(QueryPrefix) + `[^\[]*)`
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile record pattern: %w", err)
	}
	return &Extractor{record: re}, nil
}

// Extract returns the slow-query entries found in data, in order of appearance.
// Text that does not form a complete record is skipped.
func (e *Extractor) Extract(data string) iter.Seq[model.LogEntry] {
	return func(yield func(model.LogEntry) bool) {
		pos := 0
		for pos < len(data) {
			loc := e.record.FindStringSubmatchIndex(data[pos:])
			if loc == nil {
				return
			}
			end := pos + loc[1]
			if end >= len(data) || data[end] != '[' {
				// Body ran to the end of the buffer without its terminator.
				return
			}

			entry, ok := buildEntry(data[pos:], loc)
			pos = end
			if !ok {
				continue
			}
			if !yield(entry) {
				return
			}
		}
	}
}

// buildEntry converts submatch indexes into a LogEntry.
func buildEntry(s string, loc []int) (model.LogEntry, bool) {
	duration, err := strconv.ParseFloat(s[loc[4]:loc[5]], 64)
	if err != nil || duration < 0 {
		return model.LogEntry{}, false
	}
	return model.LogEntry{
		Timestamp:  s[loc[2]:loc[3]],
		DurationMs: duration,
		RawQuery:   s[loc[6]:loc[7]],
	}, true
}

// Normalize returns the grouping signature of a query: the query text with every
// BOX3D(...) literal replaced by a fixed placeholder.
func Normalize(query string) string {
	return bboxPattern.ReplaceAllLiteralString(query, bboxPlaceholder)
}
