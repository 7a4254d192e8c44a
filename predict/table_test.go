package predict

import (
	"bytes"
	"os"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/text/encoding/unicode"
)

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}

func mustSelect(t *testing.T, table *Table, columns []string) *Table {
	t.Helper()
	selected, err := table.Select(columns)
	if err != nil {
		t.Fatalf("select %v: %v", columns, err)
	}
	return selected
}

func TestReadTable(t *testing.T) {
	table, err := ReadTable(strings.NewReader("a,b,c\n1,2,3\n4,5,6\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(table.Header, []string{"a", "b", "c"}) {
		t.Errorf("unexpected header %q", table.Header)
	}
	if !reflect.DeepEqual(table.Rows, [][]string{{"1", "2", "3"}, {"4", "5", "6"}}) {
		t.Errorf("unexpected rows %q", table.Rows)
	}
}

func TestReadTableKeepsRawText(t *testing.T) {
	table, err := ReadTable(strings.NewReader("a, b \n 1,2 \n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(table.Header, []string{"a", " b "}) {
		t.Errorf("header should be kept as written, got %q", table.Header)
	}
	if !reflect.DeepEqual(table.Rows, [][]string{{" 1", "2 "}}) {
		t.Errorf("cells should be kept as written, got %q", table.Rows)
	}

	// padded names still match
	selected := mustSelect(t, table, []string{"b", "a"})
	if !reflect.DeepEqual(selected.Rows, [][]string{{"2 ", " 1"}}) {
		t.Errorf("unexpected selected rows %q", selected.Rows)
	}

	out, err := selected.Bytes()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "b,a\n2 ,\" 1\"\n" {
		t.Errorf("unexpected output %q", out)
	}
	again, err := ReadTable(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(again.Rows, selected.Rows) {
		t.Errorf("cells changed on round trip: %q -> %q", selected.Rows, again.Rows)
	}
}

func TestReadTableEmpty(t *testing.T) {
	if _, err := ReadTable(strings.NewReader("")); err == nil || !strings.Contains(err.Error(), "no columns") {
		t.Fatalf("expected no columns error, got %v", err)
	}
}

func TestReadTableUTF16(t *testing.T) {
	encoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	encoded, err := encoder.String("x,y\n1,2\n")
	if err != nil {
		t.Fatal(err)
	}

	table, err := ReadTable(strings.NewReader(encoded))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(table.Header, []string{"x", "y"}) || !reflect.DeepEqual(table.Rows, [][]string{{"1", "2"}}) {
		t.Errorf("unexpected table %+v", table)
	}
}

func TestTableSelectAndAppend(t *testing.T) {
	table := &Table{
		Header: []string{"a", "b", "c"},
		Rows:   [][]string{{"1", "2", "3"}, {"4", "5", "6"}},
	}

	selected := mustSelect(t, table, []string{"c", "a"})
	if err := selected.AppendColumn("label", []string{"x", "y"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(selected.Header, []string{"c", "a", "label"}) {
		t.Errorf("unexpected header %q", selected.Header)
	}
	if !reflect.DeepEqual(selected.Rows, [][]string{{"3", "1", "x"}, {"6", "4", "y"}}) {
		t.Errorf("unexpected rows %q", selected.Rows)
	}
	if !reflect.DeepEqual(table.Rows[0], []string{"1", "2", "3"}) {
		t.Errorf("source table must not change, got %q", table.Rows[0])
	}

	if err := selected.AppendColumn("short", []string{"only one"}); err == nil {
		t.Error("expected error for short column")
	}
	if _, err := table.Select([]string{"zzz"}); err == nil {
		t.Error("expected error for unknown column")
	}
}

func TestTableMissingAndDuplicates(t *testing.T) {
	table := &Table{Header: []string{"a", "b", "a"}}
	if got := table.ColumnIndex()["a"]; got != 0 {
		t.Errorf("first occurrence should win, got %d", got)
	}
	if got := table.Missing([]string{"a", "c", "b", "d"}); !reflect.DeepEqual(got, []string{"c", "d"}) {
		t.Errorf("unexpected missing columns %q", got)
	}
	if got := table.Missing([]string{"b"}); got != nil {
		t.Errorf("expected no missing columns, got %q", got)
	}
}

func TestTableWriteCSVQuotes(t *testing.T) {
	table := &Table{
		Header: []string{"name", "Predicted Type"},
		Rows:   [][]string{{"a,b", "Main Sequence"}},
	}
	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := buf.String(); got != "name,Predicted Type\n\"a,b\",Main Sequence\n" {
		t.Errorf("unexpected csv %q", got)
	}
}
