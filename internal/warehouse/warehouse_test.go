package warehouse

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/burqi/orderflow/internal/orders"
)

// Integration test against a real PostgreSQL destination database.
func TestPostgres_Integration_Replace(t *testing.T) {
	dsn := os.Getenv("ORDERFLOW_DESTINATION_TEST_DSN")
	if dsn == "" {
		t.Skip("ORDERFLOW_DESTINATION_TEST_DSN not set")
	}

	table := fmt.Sprintf("online_orders_test_%d", time.Now().UnixNano())
	dest, err := Open(dsn, table)
	if err != nil {
		t.Fatalf("Failed to open destination: %v", err)
	}
	defer dest.Close()

	ctx := context.Background()
	if err := dest.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	defer dest.DB.ExecContext(ctx, "DROP TABLE IF EXISTS "+table)

	first := []orders.Order{
		{OrderNumber: "1", Product: "Widget", Cost: 10, Sales: 15, OrderDate: "2024-12-17"},
		{OrderNumber: "2", Product: "Gadget", Cost: 7.5, Sales: 9},
	}
	if err := dest.Replace(ctx, first); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	n, err := dest.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 records, got %d", n)
	}

	// The destination reflects the latest run only, never an accumulation.
	second := []orders.Order{
		{OrderNumber: "3", Product: "Sprocket", Cost: 1, Sales: 2},
	}
	if err := dest.Replace(ctx, second); err != nil {
		t.Fatalf("Second replace failed: %v", err)
	}

	n, err = dest.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 record after replace, got %d", n)
	}

	var num string
	query := "SELECT order_number FROM " + table
	if err := dest.DB.QueryRowContext(ctx, query).Scan(&num); err != nil {
		t.Fatalf("read back failed: %v", err)
	}
	if num != "3" {
		t.Errorf("expected order 3, got %s", num)
	}
}
