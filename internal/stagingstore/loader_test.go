package stagingstore

import (
	"context"
	"errors"
	"testing"

	"github.com/burqi/orderflow/internal/orders"
)

// memStore implements Store in memory for loader tests.
type memStore struct {
	rows       []orders.RawRow
	failInsert bool
}

func (m *memStore) ExistingKeys(ctx context.Context) (map[string]struct{}, error) {
	keys := make(map[string]struct{}, len(m.rows))
	for _, r := range m.rows {
		keys[r[orders.KeyColumn]] = struct{}{}
	}
	return keys, nil
}

func (m *memStore) InsertRows(ctx context.Context, rows []orders.RawRow) error {
	if m.failInsert {
		return errors.New("connection lost")
	}
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *memStore) FetchAll(ctx context.Context) ([]orders.RawRow, error) {
	out := make([]orders.RawRow, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func rawRow(key, product string) orders.RawRow {
	return orders.RawRow{
		orders.ColOrderNumber: key,
		orders.ColProduct:     product,
	}
}

func TestLoad_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	batch := []orders.RawRow{rawRow("1", "Widget"), rawRow("2", "Gadget")}

	inserted, err := Load(ctx, store, batch)
	if err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	if inserted != 2 {
		t.Errorf("expected 2 inserted, got %d", inserted)
	}

	// Rerunning with identical source rows must not duplicate keys.
	inserted, err = Load(ctx, store, batch)
	if err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("expected 0 inserted on rerun, got %d", inserted)
	}
	if len(store.rows) != 2 {
		t.Errorf("expected exactly 2 staged rows, got %d", len(store.rows))
	}
}

func TestLoad_SkipsExistingWithoutOverwriting(t *testing.T) {
	ctx := context.Background()
	store := &memStore{rows: []orders.RawRow{rawRow("1", "Original")}}

	_, err := Load(ctx, store, []orders.RawRow{rawRow("1", "Changed"), rawRow("2", "Gadget")})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if len(store.rows) != 2 {
		t.Fatalf("expected 2 staged rows, got %d", len(store.rows))
	}
	// Existing keys are skipped, never overwritten.
	if store.rows[0][orders.ColProduct] != "Original" {
		t.Errorf("staged row was overwritten: %q", store.rows[0][orders.ColProduct])
	}
}

func TestLoad_BatchInternalDuplicates(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}

	inserted, err := Load(ctx, store, []orders.RawRow{
		rawRow("1", "Widget"),
		rawRow("1", "Widget"),
		rawRow("2", "Gadget"),
	})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if inserted != 2 {
		t.Errorf("expected 2 inserted, got %d", inserted)
	}
}

func TestLoad_InsertFailureAbortsBatch(t *testing.T) {
	ctx := context.Background()
	store := &memStore{failInsert: true}

	_, err := Load(ctx, store, []orders.RawRow{rawRow("1", "Widget")})
	if err == nil {
		t.Fatal("expected load error")
	}
	if len(store.rows) != 0 {
		t.Errorf("expected no partial rows after failure, got %d", len(store.rows))
	}
}
