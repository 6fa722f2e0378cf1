// Package handoff moves row sets between pipeline tasks through temp
// files, keeping large payloads out of the scheduler's event history.
package handoff

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/burqi/orderflow/internal/orders"
)

// StageJSON writes any JSON-serializable value to a handoff file and
// returns its path.
func StageJSON(value any, prefix string) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to marshal records: %w", err)
	}

	filename := fmt.Sprintf("%s-%s.json", prefix, uuid.New().String())
	path := filepath.Join(os.TempDir(), filename)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write handoff file: %w", err)
	}

	return path, nil
}

// LoadRawRows reads raw rows from a handoff file.
func LoadRawRows(path string) ([]orders.RawRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read handoff file: %w", err)
	}

	var rows []orders.RawRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal rows: %w", err)
	}

	return rows, nil
}

// LoadOrders reads cleaned records from a handoff file.
func LoadOrders(path string) ([]orders.Order, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read handoff file: %w", err)
	}

	var recs []orders.Order
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal records: %w", err)
	}

	return recs, nil
}

// Cleanup removes a handoff file.
func Cleanup(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}
