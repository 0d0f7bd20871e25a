package stats

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNonNumericColumn reports a value in the diff path that cannot be
// subtracted.
var ErrNonNumericColumn = errors.New("non-numeric column in diff path")

// FirstRowPolicy decides what happens to the first row of each group, which
// has no predecessor to diff against.
type FirstRowPolicy int

const (
	// KeepFirst emits the first row of a group unchanged. Output row count
	// equals input row count.
	KeepFirst FirstRowPolicy = iota
	// DropFirst omits the first row of a group. Output row count is the
	// input row count minus the number of groups.
	DropFirst
)

// String returns the flag spelling of the policy.
func (p FirstRowPolicy) String() string {
	switch p {
	case KeepFirst:
		return "keep"
	case DropFirst:
		return "drop"
	default:
		return fmt.Sprintf("FirstRowPolicy(%d)", int(p))
	}
}

// DiffOptions configures Diff.
type DiffOptions struct {
	// Columns lists the columns to diff. Empty means every non-grouping
	// column whose values are all numeric.
	Columns  []string
	FirstRow FirstRowPolicy
}

// Diff partitions t by the values of groupBy and replaces each row after the
// first in a group by its element-wise difference from the preceding row of
// that group. Columns that are not diffed are taken from the later row.
// Rows stay in input order; t is not modified.
func Diff(t *Table, groupBy []string, opts DiffOptions) (*Table, error) {
	keyIdx, err := columnIndexes(t, groupBy)
	if err != nil {
		return nil, err
	}
	diffIdx, err := diffColumns(t, groupBy, opts.Columns)
	if err != nil {
		return nil, err
	}

	out := NewTable(t.Columns...)
	prev := make(map[string][]string)
	for i, row := range t.Rows {
		key := groupKey(row, keyIdx)
		last, seen := prev[key]
		prev[key] = row
		if !seen {
			if opts.FirstRow == KeepFirst {
				out.Rows = append(out.Rows, append([]string(nil), row...))
			}
			continue
		}

		diffed := append([]string(nil), row...)
		for _, c := range diffIdx {
			v, err := subtract(row[c], last[c])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i, t.Columns[c], err)
			}
			diffed[c] = v
		}
		out.Rows = append(out.Rows, diffed)
	}
	return out, nil
}

// Groups returns the number of distinct group keys over groupBy.
func Groups(t *Table, groupBy []string) (int, error) {
	keyIdx, err := columnIndexes(t, groupBy)
	if err != nil {
		return 0, err
	}
	keys := make(map[string]struct{})
	for _, row := range t.Rows {
		keys[groupKey(row, keyIdx)] = struct{}{}
	}
	return len(keys), nil
}

func columnIndexes(t *Table, names []string) ([]int, error) {
	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = t.Column(name)
		if idx[i] < 0 {
			return nil, fmt.Errorf("%w: unknown column %q", ErrSchema, name)
		}
	}
	return idx, nil
}

// diffColumns resolves the diff set. Explicit columns must hold only numbers;
// inferred columns are those where every non-blank value is a number.
func diffColumns(t *Table, groupBy, explicit []string) ([]int, error) {
	grouped := make(map[string]bool, len(groupBy))
	for _, g := range groupBy {
		grouped[g] = true
	}

	if len(explicit) > 0 {
		idx, err := columnIndexes(t, explicit)
		if err != nil {
			return nil, err
		}
		for i, c := range idx {
			if grouped[explicit[i]] {
				return nil, fmt.Errorf("%w: column %q is both grouped and diffed", ErrSchema, explicit[i])
			}
			if !numericColumn(t, c) {
				return nil, fmt.Errorf("%w: %q", ErrNonNumericColumn, explicit[i])
			}
		}
		return idx, nil
	}

	var idx []int
	for c, name := range t.Columns {
		if !grouped[name] && len(t.Rows) > 0 && numericColumn(t, c) {
			idx = append(idx, c)
		}
	}
	return idx, nil
}

func numericColumn(t *Table, c int) bool {
	for _, row := range t.Rows {
		if isBlank(row[c]) {
			continue
		}
		if _, ok := parseNumber(row[c]); !ok {
			return false
		}
	}
	return true
}

func groupKey(row []string, idx []int) string {
	parts := make([]string, len(idx))
	for i, c := range idx {
		parts[i] = row[c]
	}
	return strings.Join(parts, "\x00")
}

// number keeps integers exact so counters diff without float rounding.
type number struct {
	i     int64
	f     float64
	isInt bool
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

func parseNumber(s string) (number, bool) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return number{i: i, f: float64(i), isInt: true}, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return number{}, false
	}
	return number{f: f}, true
}

// subtract returns cur - prev. A blank operand yields a blank result.
func subtract(cur, prev string) (string, error) {
	if isBlank(cur) || isBlank(prev) {
		return "", nil
	}
	a, ok := parseNumber(cur)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNonNumericColumn, cur)
	}
	b, ok := parseNumber(prev)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNonNumericColumn, prev)
	}
	if a.isInt && b.isInt && !subOverflows(a.i, b.i) {
		return strconv.FormatInt(a.i-b.i, 10), nil
	}
	return strconv.FormatFloat(a.f-b.f, 'g', -1, 64), nil
}

// subOverflows reports whether a-b leaves the int64 range.
func subOverflows(a, b int64) bool {
	if b < 0 {
		return a > math.MaxInt64+b
	}
	return a < math.MinInt64+b
}
