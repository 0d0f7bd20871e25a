package stats

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// DefaultSummaryPath is where the aggregate command writes its result.
const DefaultSummaryPath = "vcache.summary.csv"

// DefaultGroupBy are the base grouping fields of a vcache stats file: one
// counter set per victim cache.
var DefaultGroupBy = []string{"vcache"}

// Aggregator turns per-run stats files into one diffed summary table.
// Extractor supplies the experiment parameters of each file; their names are
// appended to BaseGroupBy to form the group key.
type Aggregator struct {
	Extractor   ParameterExtractor
	BaseGroupBy []string
	Diff        DiffOptions
}

// NewAggregator returns an Aggregator using path-derived parameters and the
// default vcache grouping.
func NewAggregator() *Aggregator {
	return &Aggregator{
		Extractor:   PathParameters{},
		BaseGroupBy: append([]string(nil), DefaultGroupBy...),
	}
}

// Process reads one stats file, tags its rows with the file's parameters and
// diffs it.
func (a *Aggregator) Process(path string) (*Table, error) {
	t, err := ReadCSV(path)
	if err != nil {
		return nil, err
	}

	var params Parameters
	if a.Extractor != nil {
		params, err = a.Extractor.Extract(path)
		if err != nil {
			return nil, fmt.Errorf("extracting parameters from %s: %w", path, err)
		}
	}
	for _, p := range params {
		t.AddColumn(p.Name, p.Value)
	}

	groupBy := mergeFields(a.BaseGroupBy, params.Names())
	diffed, err := Diff(t, groupBy, a.Diff)
	if err != nil {
		return nil, fmt.Errorf("diffing %s: %w", path, err)
	}

	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		groups, _ := Groups(t, groupBy)
		logrus.WithFields(logrus.Fields{
			"file":     path,
			"rows":     t.Len(),
			"groups":   groups,
			"group_by": groupBy,
		}).Debug("diffed stats file")
	}
	return diffed, nil
}

// Run processes paths in order and concatenates the results. The first
// failing file aborts the run. A PathParameters extractor without a Root is
// rooted at the deepest directory shared by all paths, so only the
// components that tell the runs apart become parameters.
func (a *Aggregator) Run(paths []string) (*Table, error) {
	run := *a
	if a.Extractor != nil && len(paths) > 0 {
		root, err := CommonRoot(paths)
		if err != nil {
			return nil, err
		}
		run.Extractor = defaultRoot(a.Extractor, root)
		logrus.WithField("root", root).Debug("resolved parameter root")
	}

	tables := make([]*Table, 0, len(paths))
	for _, path := range paths {
		t, err := run.Process(path)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return Collect(tables...)
}

func mergeFields(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	var out []string
	for _, f := range append(append([]string(nil), base...), extra...) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}
