package parser

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/giannimassi/tilery/pkg/model"
)

func testdataPath(name string) string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata", name)
}

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewExtractor(model.DefaultIdentity)
	require.NoError(t, err)
	return e
}

func TestExtractFixture(t *testing.T) {
	data, err := os.ReadFile(testdataPath("postgresql-10-main.log"))
	require.NoError(t, err)

	got := slices.Collect(newTestExtractor(t).Extract(string(data)))

	want := []model.LogEntry{
		{
			Timestamp:  "2024-03-01 10:15:42 UTC",
			DurationMs: 12.5,
			RawQuery:   `SELECT ST_AsBinary("geometry") AS geom,"name" FROM osm_roads WHERE "geometry" && ST_SetSRID('BOX3D(0 0,1 1)'::box3d, 3857) `,
		},
		{
			Timestamp:  "2024-03-01 10:17:10 CET",
			DurationMs: 40.25,
			RawQuery: "SELECT ST_AsBinary(\"geometry\") AS geom,\"name\",\"type\"\n" +
				"  FROM osm_landusages\n" +
				"  WHERE \"geometry\" && ST_SetSRID('BOX3D(10 10,20 20)'::box3d, 3857) ",
		},
		{
			Timestamp:  "2024-03-01 10:19:30 UTC",
			DurationMs: 7.5,
			RawQuery:   `SELECT ST_AsBinary("geometry") AS geom,"name" FROM osm_roads WHERE "geometry" && ST_SetSRID('BOX3D(5 5,6 6)'::box3d, 3857) `,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract(t *testing.T) {
	const prefix = `2024-01-02 03:04:05 UTC [42-1] tilery@tilery LOG:  duration: `

	tests := []struct {
		name      string
		input     string
		wantCount int
		check     func(t *testing.T, entries []model.LogEntry)
	}{
		{
			name:      "empty buffer",
			input:     "",
			wantCount: 0,
		},
		{
			name:      "single record stops before parameter list",
			input:     prefix + `5.250 ms  execute <unnamed>: SELECT ST_AsBinary("geometry") AS geom, x FROM t [params]`,
			wantCount: 1,
			check: func(t *testing.T, entries []model.LogEntry) {
				assert.Equal(t, "2024-01-02 03:04:05 UTC", entries[0].Timestamp)
				assert.Equal(t, 5.25, entries[0].DurationMs)
				assert.Equal(t, `SELECT ST_AsBinary("geometry") AS geom, x FROM t `, entries[0].RawQuery)
			},
		},
		{
			name:      "integer duration",
			input:     prefix + `17 ms  execute <unnamed>: SELECT ST_AsBinary("geometry") AS geom, x [p]`,
			wantCount: 1,
			check: func(t *testing.T, entries []model.LogEntry) {
				assert.Equal(t, 17.0, entries[0].DurationMs)
			},
		},
		{
			name:      "missing parameter list terminator",
			input:     prefix + `5.250 ms  execute <unnamed>: SELECT ST_AsBinary("geometry") AS geom, x FROM t`,
			wantCount: 0,
		},
		{
			name:      "query without tile prefix",
			input:     prefix + `5.250 ms  execute <unnamed>: SELECT ST_AsBinary(way) AS geom, x FROM t [params]`,
			wantCount: 0,
		},
		{
			name:      "other identity",
			input:     `2024-01-02 03:04:05 UTC [42-1] renderd@tilery LOG:  duration: 1.0 ms  execute <unnamed>: SELECT ST_AsBinary("geometry") AS geom, x [p]`,
			wantCount: 0,
		},
		{
			name:      "timestamp without timezone",
			input:     `2024-01-02 03:04:05 [42-1] tilery@tilery LOG:  duration: 1.0 ms  execute <unnamed>: SELECT ST_AsBinary("geometry") AS geom, x [p]`,
			wantCount: 0,
		},
		{
			name:      "negative duration",
			input:     prefix + `-1.0 ms  execute <unnamed>: SELECT ST_AsBinary("geometry") AS geom, x [p]`,
			wantCount: 0,
		},
		{
			name: "records separated by noise keep input order",
			input: "noise\n" +
				prefix + `1.0 ms  execute <unnamed>: SELECT ST_AsBinary("geometry") AS geom, a [p]` + "\n" +
				"2024-01-02 03:04:06 UTC [42-2] tilery@tilery LOG:  checkpoint starting\n" +
				`2024-01-02 03:04:07 UTC [42-3] tilery@tilery LOG:  duration: 2.0 ms  execute <unnamed>: SELECT ST_AsBinary("geometry") AS geom, b [p]`,
			wantCount: 2,
			check: func(t *testing.T, entries []model.LogEntry) {
				assert.Equal(t, `SELECT ST_AsBinary("geometry") AS geom, a `, entries[0].RawQuery)
				assert.Equal(t, `SELECT ST_AsBinary("geometry") AS geom, b `, entries[1].RawQuery)
				assert.Equal(t, "2024-01-02 03:04:07 UTC", entries[1].Timestamp)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := slices.Collect(newTestExtractor(t).Extract(tt.input))
			assert.Len(t, entries, tt.wantCount)
			if tt.check != nil && len(entries) == tt.wantCount {
				tt.check(t, entries)
			}
		})
	}
}

func TestExtractStopsWhenConsumerStops(t *testing.T) {
	line := `2024-01-02 03:04:05 UTC [42-1] tilery@tilery LOG:  duration: 1.0 ms  execute <unnamed>: SELECT ST_AsBinary("geometry") AS geom, a [p]` + "\n"
	input := line + line + line

	var seen int
	for range newTestExtractor(t).Extract(input) {
		seen++
		if seen == 2 {
			break
		}
	}
	assert.Equal(t, 2, seen)
}

func TestNewExtractorIdentity(t *testing.T) {
	_, err := NewExtractor("")
	require.Error(t, err)

	e, err := NewExtractor("carto@gis")
	require.NoError(t, err)

	input := `2024-01-02 03:04:05 CEST [7-1] carto@gis LOG:  duration: 3.5 ms  execute <unnamed>: SELECT ST_AsBinary("geometry") AS geom, x [p]`
	entries := slices.Collect(e.Extract(input))
	require.Len(t, entries, 1)
	assert.Equal(t, "2024-01-02 03:04:05 CEST", entries[0].Timestamp)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no bbox",
			input: "SELECT 1",
			want:  "SELECT 1",
		},
		{
			name:  "single bbox",
			input: "WHERE geom && BOX3D(0 0,1 1) [x]",
			want:  "WHERE geom && BBOX [x]",
		},
		{
			name:  "several bboxes",
			input: "BOX3D(1 2,3 4) OR BOX3D(-5.5 6,7 8.25)",
			want:  "BBOX OR BBOX",
		},
		{
			name:  "bbox spanning lines",
			input: "BOX3D(0 0,\n1 1)",
			want:  "BBOX",
		},
		{
			name:  "empty bbox is not a literal",
			input: "BOX3D()",
			want:  "BOX3D()",
		},
		{
			name:  "lowercase is untouched",
			input: "box3d(0 0,1 1)",
			want:  "box3d(0 0,1 1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeGrouping(t *testing.T) {
	a := `SELECT ST_AsBinary("geometry") AS geom, x FROM t WHERE geom && BOX3D(0 0,1 1) `
	b := `SELECT ST_AsBinary("geometry") AS geom, x FROM t WHERE geom && BOX3D(5 5,6 6) `
	c := `SELECT ST_AsBinary("geometry") AS geom, x FROM t  WHERE geom && BOX3D(5 5,6 6) `
	d := `SELECT ST_AsBinary("geometry") AS geom, y FROM t WHERE geom && BOX3D(0 0,1 1) `

	assert.Equal(t, Normalize(a), Normalize(b), "only the bbox differs")
	assert.NotEqual(t, Normalize(b), Normalize(c), "whitespace differs")
	assert.NotEqual(t, Normalize(a), Normalize(d), "column differs")
}
