package model

// LogEntry represents a single slow-query record extracted from a PostgreSQL log.
// Timestamp keeps the log's own text form, e.g. "2024-03-01 10:15:42 UTC".
type LogEntry struct {
	Timestamp  string  `json:"timestamp"`
	DurationMs float64 `json:"duration_ms"`
	RawQuery   string  `json:"raw_query"`
}

// AggregateStats holds the running statistics for one query signature.
// CumulativeDurationMs is the running sum while aggregating; AverageDurationMs
// is only set once the group is finalized.
type AggregateStats struct {
	Signature            string  `json:"-"`
	OccurrenceCount      int     `json:"occurrence_count"`
	CumulativeDurationMs float64 `json:"cumulative_duration_ms"`
	AverageDurationMs    float64 `json:"average_duration_ms"`
	LastSeenTimestamp    string  `json:"last_seen"`
	ExampleQuery         string  `json:"example_query"`
}
