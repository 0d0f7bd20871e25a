package stats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrSchema reports a table whose shape does not fit the requested operation:
// ragged rows, a missing header, or a reference to an unknown column.
var ErrSchema = errors.New("schema error")

// Table is a header plus string-valued rows. A row has no identity beyond its
// position, so every operation preserves row order.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable returns an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// AddColumn sets name to value on every row, appending the column if absent.
func (t *Table) AddColumn(name, value string) {
	idx := t.Column(name)
	if idx < 0 {
		t.Columns = append(t.Columns, name)
		for i := range t.Rows {
			t.Rows[i] = append(t.Rows[i], value)
		}
		return
	}
	for _, row := range t.Rows {
		row[idx] = value
	}
}

// ReadCSV loads a CSV file with a header row.
func ReadCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	t, err := ParseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return t, nil
}

// ParseCSV decodes CSV from r. The first record is the header; every
// following record must have the same number of fields.
func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: missing header row", ErrSchema)
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate column %q in header", ErrSchema, name)
		}
		seen[name] = true
	}

	t := NewTable(header...)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		if len(row) != len(header) {
			return nil, fmt.Errorf("%w: line %d has %d fields, header has %d", ErrSchema, line, len(row), len(header))
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteCSV writes the table to path, replacing any existing file.
func (t *Table) WriteCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := t.Encode(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return file.Close()
}

// Encode writes the header row followed by every row.
func (t *Table) Encode(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
