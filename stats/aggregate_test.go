package stats

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStats(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAggregator_Run_TagsDiffsAndCollects(t *testing.T) {
	// GIVEN two runs whose directories carry the row parameter
	dir := t.TempDir()
	f1 := writeStats(t, filepath.Join(dir, "row_0", "vcache_stats.csv"),
		"vcache,tag,misses\nvc0,start,10\nvc0,end,14\n")
	f2 := writeStats(t, filepath.Join(dir, "row_1", "vcache_stats.csv"),
		"vcache,tag,misses\nvc0,start,20\nvc0,end,29\n")

	// WHEN aggregated with the default settings
	out, err := NewAggregator().Run([]string{f1, f2})
	require.NoError(t, err)

	// THEN rows keep file order, carry the parameter and are diffed per run
	assert.Equal(t, []string{"vcache", "tag", "misses", "row"}, out.Columns)
	assert.Equal(t, [][]string{
		{"vc0", "start", "10", "0"},
		{"vc0", "end", "4", "0"},
		{"vc0", "start", "20", "1"},
		{"vc0", "end", "9", "1"},
	}, out.Rows)
}

func TestAggregator_ExtractorFieldsJoinGroupKey(t *testing.T) {
	// GIVEN a file tagged with a static parameter and an existing pod column
	dir := t.TempDir()
	f := writeStats(t, filepath.Join(dir, "stats.csv"), "vcache,pod,n\nvc0,0,1\nvc0,1,5\nvc0,0,3\n")

	agg := &Aggregator{
		Extractor:   StaticParameters{{"input", "roadcentral"}},
		BaseGroupBy: []string{"vcache", "pod"},
	}

	// WHEN aggregated
	out, err := agg.Run([]string{f})
	require.NoError(t, err)

	// THEN rows with different pod values are diffed independently
	assert.Equal(t, [][]string{
		{"vc0", "0", "1", "roadcentral"},
		{"vc0", "1", "5", "roadcentral"},
		{"vc0", "0", "2", "roadcentral"},
	}, out.Rows)
}

func TestAggregator_Run_RelativeAndParentPathsShareSchema(t *testing.T) {
	// GIVEN two runs under runs/, one beneath an ancestor shaped like a parameter
	base := filepath.Join(t.TempDir(), "bigblade_6", "runs")
	writeStats(t, filepath.Join(base, "row_1", "x.csv"), "vcache,n\nvc0,1\nvc0,4\n")
	writeStats(t, filepath.Join(base, "row_2", "x.csv"), "vcache,n\nvc0,2\nvc0,7\n")
	t.Chdir(filepath.Join(base, "row_1"))

	// WHEN aggregated from inside runs/row_1
	out, err := NewAggregator().Run([]string{"x.csv", "../row_2/x.csv"})
	require.NoError(t, err)

	// THEN both files carry only the row parameter
	assert.Equal(t, []string{"vcache", "n", "row"}, out.Columns)
	assert.Equal(t, [][]string{
		{"vc0", "1", "1"},
		{"vc0", "3", "1"},
		{"vc0", "2", "2"},
		{"vc0", "5", "2"},
	}, out.Rows)
}

func TestAggregator_Run_MissingFileAbortsRun(t *testing.T) {
	dir := t.TempDir()
	good := writeStats(t, filepath.Join(dir, "a.csv"), "vcache,n\nvc0,1\n")

	_, err := NewAggregator().Run([]string{good, filepath.Join(dir, "missing.csv")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAggregator_Run_IncompatibleSchemasFail(t *testing.T) {
	dir := t.TempDir()
	a := writeStats(t, filepath.Join(dir, "a.csv"), "vcache,n\nvc0,1\n")
	b := writeStats(t, filepath.Join(dir, "b.csv"), "vcache,m\nvc0,1\n")

	_, err := NewAggregator().Run([]string{a, b})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestMergeFields_Deduplicates(t *testing.T) {
	assert.Equal(t, []string{"vcache", "row"}, mergeFields([]string{"vcache"}, []string{"vcache", "row"}))
}
