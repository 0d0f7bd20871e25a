package stats

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaMismatch reports tables that cannot be concatenated because their
// column sets differ.
var ErrSchemaMismatch = errors.New("column schema mismatch")

// Collect concatenates tables in argument order, keeping each table's row
// order. Column sets must match; a table whose columns are a permutation of
// the first table's is reordered to the first table's layout. Nothing is
// deduplicated or sorted.
func Collect(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return NewTable(), nil
	}

	out := NewTable(tables[0].Columns...)
	for n, t := range tables {
		perm, err := permutation(out.Columns, t.Columns)
		if err != nil {
			return nil, fmt.Errorf("table %d: %w", n, err)
		}
		for _, row := range t.Rows {
			mapped := make([]string, len(perm))
			for dst, src := range perm {
				mapped[dst] = row[src]
			}
			out.Rows = append(out.Rows, mapped)
		}
	}
	return out, nil
}

// permutation maps each column of want to its index in got.
func permutation(want, got []string) ([]int, error) {
	pos := make(map[string]int, len(got))
	for i, c := range got {
		pos[c] = i
	}

	var missing, extra []string
	perm := make([]int, len(want))
	wanted := make(map[string]bool, len(want))
	for i, c := range want {
		wanted[c] = true
		src, ok := pos[c]
		if !ok {
			missing = append(missing, c)
			continue
		}
		perm[i] = src
	}
	for _, c := range got {
		if !wanted[c] {
			extra = append(extra, c)
		}
	}
	if len(missing) > 0 || len(extra) > 0 || len(got) != len(want) {
		return nil, fmt.Errorf("%w: missing [%s] extra [%s]", ErrSchemaMismatch,
			strings.Join(missing, ","), strings.Join(extra, ","))
	}
	return perm, nil
}
