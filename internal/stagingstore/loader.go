package stagingstore

import (
	"context"

	"github.com/burqi/orderflow/internal/orders"
)

// Load runs the stage-load step: rows whose order number is already
// staged are skipped, the rest are appended in one transaction. Within a
// batch the first occurrence of a key wins.
//
// Returns the number of rows inserted; skipped is len(rows) - inserted.
func Load(ctx context.Context, store Store, rows []orders.RawRow) (int, error) {
	existing, err := store.ExistingKeys(ctx)
	if err != nil {
		return 0, err
	}

	fresh := make([]orders.RawRow, 0, len(rows))
	for _, row := range rows {
		key := row[orders.KeyColumn]
		if _, ok := existing[key]; ok {
			continue
		}
		existing[key] = struct{}{}
		fresh = append(fresh, row)
	}

	if len(fresh) == 0 {
		return 0, nil
	}
	if err := store.InsertRows(ctx, fresh); err != nil {
		return 0, err
	}
	return len(fresh), nil
}
