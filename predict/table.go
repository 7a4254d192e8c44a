package predict

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Table is a CSV table kept as raw cell text so values round-trip unchanged.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadTable parses a CSV document with a header row. UTF-8 input may carry a
// BOM; UTF-16 input must.
func ReadTable(r io.Reader) (*Table, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(bufio.NewReader(decoded))

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("no columns to parse from file")
	}
	if err != nil {
		return nil, err
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	return &Table{Header: header, Rows: rows}, nil
}

// ColumnIndex returns the position of each header name, ignoring surrounding
// spaces. The first occurrence wins when a name repeats.
func (t *Table) ColumnIndex() map[string]int {
	index := make(map[string]int, len(t.Header))
	for i, raw := range t.Header {
		name := strings.TrimSpace(raw)
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}
	return index
}

// Missing returns the names in required that the header lacks, in the order
// given.
func (t *Table) Missing(required []string) []string {
	index := t.ColumnIndex()
	var missing []string
	for _, name := range required {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Select returns a new table with only the named columns, in that order,
// headed by the given names. Cells are copied unchanged.
func (t *Table) Select(columns []string) (*Table, error) {
	index := t.ColumnIndex()
	positions := make([]int, len(columns))
	for i, name := range columns {
		pos, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("column %q not found", name)
		}
		positions[i] = pos
	}

	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		selected := make([]string, len(positions))
		for i, pos := range positions {
			selected[i] = row[pos]
		}
		rows[r] = selected
	}
	return &Table{Header: append([]string(nil), columns...), Rows: rows}, nil
}

// AppendColumn adds a column at the right edge. values must have one entry
// per row.
func (t *Table) AppendColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(t.Rows))
	}
	t.Header = append(t.Header, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], values[i])
	}
	return nil
}

func (t *Table) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return err
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return err
	}
	return writer.Error()
}

func (t *Table) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
