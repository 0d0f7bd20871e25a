// Package stats aggregates per-run performance-counter CSV files into a
// single summary table.
//
// # Pipeline
//
//   - params.go: derive experiment parameters from an input file path
//   - diff.go: group rows and replace each row by its delta from the previous
//     row of the same group
//   - collect.go: concatenate per-file tables with a common column set
//   - aggregate.go: the Aggregator that chains the three per input file
//
// Grouping fields are supplied explicitly: Aggregator.BaseGroupBy plus the
// names returned by its ParameterExtractor.
package stats
