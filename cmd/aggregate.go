package cmd

import (
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bsg-tools/cosimkit/stats"
)

var (
	summaryPath string            // Output CSV path
	groupBy     []string          // Base group-by fields
	diffColumns []string          // Explicit diff columns
	dropFirst   bool              // Drop the first row of every group
	paramRoot   string            // Directory path parameters are read below
	extraParams map[string]string // Parameters attached to every file
)

var aggregateCmd = &cobra.Command{
	Use:   "aggregate FILE...",
	Short: "Diff vcache stats per run and write one summary CSV",
	Long: "Reads vcache stats CSV files, tags rows with parameters found in each path " +
		"(key_N or key=value tokens separated by __), diffs consecutive rows of every group " +
		"and writes the concatenated result.",
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		n, err := runAggregate(newAggregator(), args, summaryPath)
		if err != nil {
			logrus.Fatalf("Aggregation failed: %v", err)
		}
		logrus.Infof("Wrote %d rows from %d files to %s", n, len(args), summaryPath)
	},
}

func newAggregator() *stats.Aggregator {
	agg := stats.NewAggregator()
	agg.Extractor = stats.Chain{stats.PathParameters{Root: paramRoot}, staticParams(extraParams)}
	agg.BaseGroupBy = groupBy
	agg.Diff.Columns = diffColumns
	if dropFirst {
		agg.Diff.FirstRow = stats.DropFirst
	}
	return agg
}

// staticParams orders --param values by name so the column order is stable.
func staticParams(kv map[string]string) stats.StaticParameters {
	names := make([]string, 0, len(kv))
	for k := range kv {
		names = append(names, k)
	}
	sort.Strings(names)
	params := make(stats.StaticParameters, len(names))
	for i, k := range names {
		params[i] = stats.Parameter{Name: k, Value: kv[k]}
	}
	return params
}

// runAggregate aggregates paths into out and returns the number of rows written.
func runAggregate(agg *stats.Aggregator, paths []string, out string) (int, error) {
	summary, err := agg.Run(paths)
	if err != nil {
		return 0, err
	}
	if err := summary.WriteCSV(out); err != nil {
		return 0, err
	}
	return summary.Len(), nil
}

func init() {
	aggregateCmd.Flags().StringVar(&summaryPath, "out", stats.DefaultSummaryPath, "Summary CSV path")
	aggregateCmd.Flags().StringSliceVar(&groupBy, "group-by", stats.DefaultGroupBy, "Base group-by fields, extended by path parameters")
	aggregateCmd.Flags().StringSliceVar(&diffColumns, "diff-columns", nil, "Columns to diff (default: every numeric non-grouping column)")
	aggregateCmd.Flags().StringVar(&paramRoot, "param-root", "", "Read path parameters only below this directory (default: deepest directory shared by all inputs)")
	aggregateCmd.Flags().StringToStringVar(&extraParams, "param", nil, "Extra parameter attached to every file, key=value (repeatable; overrides path parameters)")
	aggregateCmd.Flags().BoolVar(&dropFirst, "drop-first", false, "Drop the first row of each group instead of keeping it unchanged")

	rootCmd.AddCommand(aggregateCmd)
}
