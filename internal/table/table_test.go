package table

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Helper para criar tabela a partir de texto CSV
func mustParse(t *testing.T, text string) *Table {
	t.Helper()
	tbl, err := ReadFrom(strings.NewReader(text))
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	return tbl
}

func TestReadFromPadsRaggedRows(t *testing.T) {
	tbl := mustParse(t, "timestamp,cores,extra\n1,0.5\n2,0.7,x,overflow\n")

	if tbl.Len() != 2 {
		t.Fatalf("Expected 2 rows, got %d", tbl.Len())
	}
	if got := tbl.Value(0, "extra"); got != "" {
		t.Errorf("Expected empty padded cell, got %q", got)
	}
	if len(tbl.Rows[1]) != 3 {
		t.Errorf("Expected row truncated to 3 cells, got %d", len(tbl.Rows[1]))
	}
}

func TestReadFromEmptyInput(t *testing.T) {
	tbl := mustParse(t, "")
	if len(tbl.Columns) != 0 || tbl.Len() != 0 {
		t.Errorf("Expected empty table, got %v", tbl.Columns)
	}
}

func TestReadStripsBOM(t *testing.T) {
	tbl := mustParse(t, "\ufefftimestamp,cores\n1,2\n")
	if !tbl.Has("timestamp") {
		t.Errorf("Expected BOM to be stripped from header, got %q", tbl.Columns[0])
	}
}

func TestWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")

	tbl := New("Name", "Requests/s")
	tbl.AddRow("GET /product/:id", "1.5")
	tbl.AddRow("with,comma", "2")

	if err := tbl.Write(path); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}

	loaded, err := Read(path)
	if err != nil {
		t.Fatalf("Failed to read: %v", err)
	}
	if loaded.Value(1, "Name") != "with,comma" {
		t.Errorf("Expected quoted cell to survive, got %q", loaded.Value(1, "Name"))
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "absent.csv"))
	if !os.IsNotExist(err) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestOuterJoinUnionOfKeys(t *testing.T) {
	cpu := mustParse(t, "timestamp,cores\n1,0.5\n2,0.6\n3,0.7\n")
	hpa := mustParse(t, "timestamp,current_replicas\n2,3\n3,4\n4,5\n")

	joined, err := OuterJoin(cpu, hpa, "timestamp", "_dup")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	if joined.Len() != 4 {
		t.Fatalf("Expected 4 rows (union of timestamps), got %d", joined.Len())
	}

	want := []string{"timestamp", "cores", "current_replicas"}
	if strings.Join(joined.Columns, ",") != strings.Join(want, ",") {
		t.Errorf("Expected columns %v, got %v", want, joined.Columns)
	}

	// linha só do lado direito mantém a chave e deixa cores vazio
	last := joined.Rows[3]
	if last[0] != "4" || last[1] != "" || last[2] != "5" {
		t.Errorf("Unexpected right-only row: %v", last)
	}

	if joined.Value(0, "current_replicas") != "" {
		t.Errorf("Expected left-only row to have empty replicas")
	}
}

func TestOuterJoinSuffixesOverlap(t *testing.T) {
	a := mustParse(t, "timestamp,value\n1,a\n")
	b := mustParse(t, "timestamp,value\n1,b\n")

	joined, err := OuterJoin(a, b, "timestamp", "_dup")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if !joined.Has("value_dup") {
		t.Fatalf("Expected value_dup column, got %v", joined.Columns)
	}

	deduped := joined.DropSuffixed("_dup")
	for _, c := range deduped.Columns {
		if strings.HasSuffix(c, "_dup") {
			t.Errorf("Column %q should have been dropped", c)
		}
	}
	if deduped.Value(0, "value") != "a" {
		t.Errorf("Expected left value to win, got %q", deduped.Value(0, "value"))
	}
}

func TestOuterJoinDuplicateKeys(t *testing.T) {
	a := mustParse(t, "timestamp,x\n1,a\n1,b\n")
	b := mustParse(t, "timestamp,y\n1,c\n1,d\n")

	joined, err := OuterJoin(a, b, "timestamp", "_dup")
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if joined.Len() != 4 {
		t.Errorf("Expected cross product of 4 rows, got %d", joined.Len())
	}
}

func TestOuterJoinMissingKey(t *testing.T) {
	a := mustParse(t, "timestamp,x\n1,a\n")
	b := mustParse(t, "time,y\n1,c\n")

	if _, err := OuterJoin(a, b, "timestamp", "_dup"); err == nil {
		t.Error("Expected error for missing key column")
	}
}

func TestConcatUnionColumns(t *testing.T) {
	a := mustParse(t, "timestamp,cores\n1,0.5\n")
	b := mustParse(t, "timestamp,current_replicas\n2,3\n")

	out := Concat(a, nil, b)
	if out.Len() != 2 {
		t.Fatalf("Expected 2 rows, got %d", out.Len())
	}
	if got := strings.Join(out.Columns, ","); got != "timestamp,cores,current_replicas" {
		t.Errorf("Unexpected columns %s", got)
	}
	if out.Value(1, "cores") != "" || out.Value(1, "current_replicas") != "3" {
		t.Errorf("Unexpected second row %v", out.Rows[1])
	}
}

func TestSortByNumeric(t *testing.T) {
	tbl := mustParse(t, "timestamp,v\n10,a\n9,b\n,c\n100,d\n9,e\n")

	sorted := tbl.SortBy("timestamp")
	got := strings.Join(sorted.Column("v"), "")
	if got != "beadc" {
		t.Errorf("Expected order beadc, got %s", got)
	}

	// original intacta
	if tbl.Value(0, "v") != "a" {
		t.Error("SortBy must not mutate the receiver")
	}
}

func TestSortByTimestamps(t *testing.T) {
	tbl := mustParse(t, "timestamp\n2025-01-02 10:00:00\n2025-01-01 23:00:00\n2025-01-02T09:00:00Z\n")

	sorted := tbl.SortBy("timestamp")
	col := sorted.Column("timestamp")
	if col[0] != "2025-01-01 23:00:00" || col[2] != "2025-01-02 10:00:00" {
		t.Errorf("Unexpected time order: %v", col)
	}
}

func TestSortByNonDecreasing(t *testing.T) {
	tbl := New("timestamp")
	for _, v := range []string{"5", "3", "3", "8", "1", "5"} {
		tbl.AddRow(v)
	}
	col := tbl.SortBy("timestamp").Column("timestamp")
	for i := 1; i < len(col); i++ {
		if col[i] < col[i-1] {
			t.Fatalf("Order violated at %d: %v", i, col)
		}
	}
}

func TestGroupSum(t *testing.T) {
	pods := mustParse(t, "timestamp,pod,cores\n2,p1,0.25\n1,p1,0.5\n1,p2,0.25\n,p3,9\n2,p2,bad\n")

	out, err := pods.GroupSum("timestamp", "cores")
	if err != nil {
		t.Fatalf("GroupSum failed: %v", err)
	}
	if out.Len() != 2 {
		t.Fatalf("Expected 2 groups, got %d", out.Len())
	}
	if out.Value(0, "timestamp") != "1" || out.Value(0, "cores") != "0.75" {
		t.Errorf("Unexpected first group %v", out.Rows[0])
	}
	if out.Value(1, "cores") != "0.25" {
		t.Errorf("Expected non-numeric cells to be skipped, got %v", out.Rows[1])
	}

	if _, err := pods.GroupSum("timestamp", "memory"); err == nil {
		t.Error("Expected error for missing column")
	}
}

func TestRenameAndConstant(t *testing.T) {
	tbl := mustParse(t, "Timestamp,User Count\n1,10\n")

	out := tbl.Rename(map[string]string{"Timestamp": "timestamp", "Absent": "x"}).
		WithConstant("architecture", "monolith")

	if got := strings.Join(out.Columns, ","); got != "timestamp,User Count,architecture" {
		t.Errorf("Unexpected columns %s", got)
	}
	if out.Value(0, "architecture") != "monolith" {
		t.Errorf("Expected constant column value")
	}

	again := out.WithConstant("architecture", "decoupled")
	if len(again.Columns) != 3 || again.Value(0, "architecture") != "decoupled" {
		t.Errorf("Expected existing column to be overwritten, got %v", again.Rows[0])
	}
}

func TestFilterAndRecords(t *testing.T) {
	tbl := mustParse(t, "service,v\ncart,1\nhome,2\ncart,3\n")

	carts := tbl.Filter("service", "cart")
	if carts.Len() != 2 {
		t.Fatalf("Expected 2 rows, got %d", carts.Len())
	}

	recs := carts.Records()
	if recs[1]["v"] != "3" {
		t.Errorf("Unexpected record %v", recs[1])
	}

	var buf bytes.Buffer
	if err := carts.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "service,v\n") {
		t.Errorf("Unexpected output %q", buf.String())
	}
}
