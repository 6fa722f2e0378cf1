package extract

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/burqi/orderflow/internal/orders"
	"github.com/burqi/orderflow/internal/pipeline"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestReadFile_NormalizesHeaders(t *testing.T) {
	path := writeCSV(t, "Order_Number,Product,Assigned Supervisor\n1001,Widget,Sam\n")

	rows, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}

	row := rows[0]
	if row[orders.ColOrderNumber] != "1001" {
		t.Errorf("expected order_number 1001, got %q", row[orders.ColOrderNumber])
	}
	if row[orders.ColProduct] != "Widget" {
		t.Errorf("expected product Widget, got %q", row[orders.ColProduct])
	}
	if row[orders.ColAssignedSupervisor] != "Sam" {
		t.Errorf("expected assigned_supervisor Sam, got %q", row[orders.ColAssignedSupervisor])
	}
}

func TestReadFile_ValuesStayText(t *testing.T) {
	path := writeCSV(t, "Order_Number,Cost\n1,not-a-number\n")

	rows, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if rows[0][orders.ColCost] != "not-a-number" {
		t.Errorf("extractor must not coerce values, got %q", rows[0][orders.ColCost])
	}
}

func TestReadFile_PreservesRowOrder(t *testing.T) {
	path := writeCSV(t, "Order_Number\n3\n1\n2\n")

	rows, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	want := []string{"3", "1", "2"}
	for i, w := range want {
		if rows[i][orders.ColOrderNumber] != w {
			t.Errorf("row %d: expected %s, got %s", i, w, rows[i][orders.ColOrderNumber])
		}
	}
}

func TestReadFile_MissingKeyColumn(t *testing.T) {
	path := writeCSV(t, "Product,Cost\nWidget,9.5\n")

	_, err := ReadFile(path)
	var parseErr *pipeline.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Code != pipeline.CodeHeaderMismatch {
		t.Errorf("expected %s, got %s", pipeline.CodeHeaderMismatch, parseErr.Code)
	}
}

func TestReadFile_MalformedRowAbortsRun(t *testing.T) {
	// Second data row has a trailing field; the whole extraction fails,
	// no partial row set is returned.
	path := writeCSV(t, "Order_Number,Cost\n1,9.5\n2,3.0,extra\n")

	rows, err := ReadFile(path)
	var parseErr *pipeline.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if parseErr.Line != 3 {
		t.Errorf("expected failure at line 3, got %d", parseErr.Line)
	}
	if rows != nil {
		t.Errorf("expected no partial rows, got %d", len(rows))
	}
}

func TestReadFile_EmptyFile(t *testing.T) {
	path := writeCSV(t, "")

	_, err := ReadFile(path)
	var parseErr *pipeline.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}
