package dataset

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

// csvFile joins lines into a delimited extract.
func csvFile(lines ...string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(strings.Join(lines, "\n") + "\n")}
}

// scenarioFS holds the two-source example: A covers K1,K2 and B covers K2,K3,
// both with a Price column.
func scenarioFS() fstest.MapFS {
	return fstest.MapFS{
		"A-2025.csv": csvFile(
			"Date,Region_Name,Area_Code,Price",
			"2020-01-01,Leeds,E08000035,100",
			"2020-02-01,Leeds,E08000035,110",
		),
		"B-2025.csv": csvFile(
			"Date,Region_Name,Area_Code,Price",
			"2020-02-01,Leeds,E08000035,210",
			"2020-03-01,Leeds,E08000035,220",
		),
	}
}

func scenarioSources() []Source {
	return []Source{
		{ID: "a", Path: "A-2025.csv", Namespace: "A"},
		{ID: "b", Path: "B-2025.csv", Namespace: "B"},
	}
}

func mustMerge(t *testing.T, fsys fstest.MapFS, sources []Source) *MergeResult {
	t.Helper()
	res, err := Merge(context.Background(), fsys, sources, Options{})
	require.NoError(t, err)
	return res
}

// cellText renders a column of t as text, one entry per row.
func cellText(t *testing.T, tbl *Table, column string) []string {
	t.Helper()
	out := make([]string, 0, tbl.Len())
	for _, r := range tbl.Rows {
		c, ok := tbl.Value(r, column)
		require.True(t, ok, "column %s", column)
		out = append(out, c.String())
	}
	return out
}
