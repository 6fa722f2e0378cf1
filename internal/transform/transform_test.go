package transform

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/burqi/orderflow/internal/orders"
	"github.com/burqi/orderflow/internal/pipeline"
)

// row builds a raw row that satisfies the default required columns, then
// applies overrides.
func row(overrides map[string]string) orders.RawRow {
	r := orders.RawRow{
		orders.ColOrderNumber: "1001",
		orders.ColCost:        "10.0",
		orders.ColSales:       "15.0",
	}
	for k, v := range overrides {
		r[k] = v
	}
	return r
}

func TestClean_DropsExactDuplicates(t *testing.T) {
	rows := []orders.RawRow{
		row(map[string]string{orders.ColOrderNumber: "1"}),
		row(map[string]string{orders.ColOrderNumber: "1"}),
		row(map[string]string{orders.ColOrderNumber: "2"}),
	}

	recs, err := Clean(rows, DefaultRules())
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records after dedup, got %d", len(recs))
	}
	// First occurrence wins, in read order.
	if recs[0].OrderNumber != "1" || recs[1].OrderNumber != "2" {
		t.Errorf("unexpected order: %s, %s", recs[0].OrderNumber, recs[1].OrderNumber)
	}
}

func TestClean_NumericCoercion(t *testing.T) {
	rows := []orders.RawRow{
		row(map[string]string{orders.ColCost: "12.5"}),
	}

	recs, err := Clean(rows, DefaultRules())
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if recs[0].Cost != 12.5 {
		t.Errorf("expected cost 12.5, got %v", recs[0].Cost)
	}
}

func TestClean_UncoercibleRequiredNumericDropsRow(t *testing.T) {
	rows := []orders.RawRow{
		row(map[string]string{orders.ColOrderNumber: "1"}),
		row(map[string]string{orders.ColOrderNumber: "2", orders.ColCost: "abc"}),
	}

	recs, err := Clean(rows, DefaultRules())
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].OrderNumber != "1" {
		t.Errorf("wrong surviving record: %s", recs[0].OrderNumber)
	}
}

func TestClean_MissingRequiredColumnDropsRow(t *testing.T) {
	rows := []orders.RawRow{
		row(map[string]string{orders.ColSales: ""}),
		row(map[string]string{orders.ColOrderNumber: "2"}),
	}

	recs, err := Clean(rows, DefaultRules())
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if len(recs) != 1 || recs[0].OrderNumber != "2" {
		t.Fatalf("expected only record 2 to survive, got %d records", len(recs))
	}
}

func TestClean_OptionalDefaults(t *testing.T) {
	rows := []orders.RawRow{
		row(map[string]string{
			orders.ColCustomerName: "",
			orders.ColQuantity:     "oops",
		}),
	}

	recs, err := Clean(rows, DefaultRules())
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if recs[0].CustomerName != "Unknown" {
		t.Errorf("expected customer_name Unknown, got %q", recs[0].CustomerName)
	}
	if recs[0].Quantity != 0 {
		t.Errorf("expected quantity 0, got %v", recs[0].Quantity)
	}
}

func TestClean_DateCoercion(t *testing.T) {
	t.Run("reformats DD/MM/YYYY", func(t *testing.T) {
		rows := []orders.RawRow{
			row(map[string]string{orders.ColOrderDate: "17/12/2024"}),
		}
		recs, err := Clean(rows, DefaultRules())
		if err != nil {
			t.Fatalf("Clean failed: %v", err)
		}
		if recs[0].OrderDate != "2024-12-17" {
			t.Errorf("expected 2024-12-17, got %q", recs[0].OrderDate)
		}
	})

	t.Run("uncoercible date becomes missing, row survives", func(t *testing.T) {
		rows := []orders.RawRow{
			row(map[string]string{orders.ColOrderDate: "not-a-date"}),
		}
		recs, err := Clean(rows, DefaultRules())
		if err != nil {
			t.Fatalf("Clean failed: %v", err)
		}
		if len(recs) != 1 {
			t.Fatalf("expected row to survive, got %d records", len(recs))
		}
		if recs[0].OrderDate != "" {
			t.Errorf("expected empty order_date, got %q", recs[0].OrderDate)
		}
	})
}

func TestClean_KeyNormalization(t *testing.T) {
	rows := []orders.RawRow{
		row(map[string]string{orders.ColOrderNumber: "1001.0"}),
	}

	recs, err := Clean(rows, DefaultRules())
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if recs[0].OrderNumber != "1001" {
		t.Errorf("expected normalized key 1001, got %q", recs[0].OrderNumber)
	}
}

func TestClean_Deterministic(t *testing.T) {
	rows := []orders.RawRow{
		row(map[string]string{orders.ColOrderNumber: "3", orders.ColOrderDate: "01/02/2023"}),
		row(map[string]string{orders.ColOrderNumber: "1", orders.ColQuantity: "4"}),
		row(map[string]string{orders.ColOrderNumber: "2", orders.ColCost: "bad"}),
	}

	first, err := Clean(rows, DefaultRules())
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	second, err := Clean(rows, DefaultRules())
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Clean is not deterministic:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestClean_EmptyStaging(t *testing.T) {
	_, err := Clean(nil, DefaultRules())
	var transformErr *pipeline.TransformError
	if !errors.As(err, &transformErr) {
		t.Fatalf("expected TransformError, got %v", err)
	}
	if transformErr.Code != pipeline.CodeEmptyStaging {
		t.Errorf("expected %s, got %s", pipeline.CodeEmptyStaging, transformErr.Code)
	}
}

func TestLoadRules(t *testing.T) {
	t.Run("parses override file", func(t *testing.T) {
		content := `
keyColumn: order_number
dateFormat: "2006-01-02"
columns:
  - name: order_number
    type: text
    required: true
  - name: quantity
    type: numeric
    required: true
`
		path := filepath.Join(t.TempDir(), "rules.yaml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write rules: %v", err)
		}

		rules, err := LoadRules(path)
		if err != nil {
			t.Fatalf("LoadRules failed: %v", err)
		}
		if len(rules.Columns) != 2 {
			t.Errorf("expected 2 rules, got %d", len(rules.Columns))
		}
		if !rules.Columns[1].Required {
			t.Errorf("expected quantity to be required")
		}
	})

	t.Run("rejects unknown column", func(t *testing.T) {
		content := `
columns:
  - name: order_number
    type: text
    required: true
  - name: no_such_column
    type: text
`
		path := filepath.Join(t.TempDir(), "rules.yaml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write rules: %v", err)
		}

		if _, err := LoadRules(path); err == nil {
			t.Fatal("expected validation error for unknown column")
		}
	})

	t.Run("requires a required key rule", func(t *testing.T) {
		content := `
columns:
  - name: product
    type: text
`
		path := filepath.Join(t.TempDir(), "rules.yaml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write rules: %v", err)
		}

		if _, err := LoadRules(path); err == nil {
			t.Fatal("expected validation error for uncovered key column")
		}
	})
}
