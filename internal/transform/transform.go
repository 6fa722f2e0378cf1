package transform

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/burqi/orderflow/internal/orders"
	"github.com/burqi/orderflow/internal/pipeline"
)

// Clean applies the cleaning rules to staged rows, in order: exact
// duplicates are dropped (first occurrence wins), every column is coerced
// to its declared type, then the missing-value policy runs: rows missing
// a required value are dropped, optional columns are filled with their
// default.
//
// The output is deterministic for fixed input: rows keep their read
// order, and every rule is applied the same way on every run.
func Clean(rows []orders.RawRow, rules *RuleSet) ([]orders.Order, error) {
	if len(rows) == 0 {
		return nil, &pipeline.TransformError{
			Code: pipeline.CodeEmptyStaging,
			Err:  errors.New("staging contains no rows"),
		}
	}

	seen := make(map[string]struct{}, len(rows))
	cleaned := make([]orders.Order, 0, len(rows))

	for _, row := range rows {
		fp := row.Fingerprint()
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}

		rec, ok := cleanRow(row, rules)
		if !ok {
			continue
		}
		cleaned = append(cleaned, rec)
	}

	return cleaned, nil
}

// cleanRow coerces one row. The second return is false when the row must
// be dropped: some required column was missing or uncoercible.
func cleanRow(row orders.RawRow, rules *RuleSet) (orders.Order, bool) {
	var rec orders.Order

	for _, rule := range rules.Columns {
		raw := strings.TrimSpace(row[rule.Name])

		switch rule.Type {
		case TypeNumeric:
			val, ok := coerceNumeric(raw)
			if !ok {
				if rule.Required {
					return orders.Order{}, false
				}
				val, _ = coerceNumeric(rule.Default)
			}
			setNumeric(&rec, rule.Name, val)

		case TypeDate:
			val, ok := coerceDate(raw, rules.DateFormat)
			if !ok {
				if rule.Required {
					return orders.Order{}, false
				}
				val = rule.Default
			}
			setText(&rec, rule.Name, val)

		default: // text
			val := raw
			if rule.Name == rules.KeyColumn {
				val = normalizeKey(raw)
			}
			if val == "" {
				if rule.Required {
					return orders.Order{}, false
				}
				val = rule.Default
			}
			setText(&rec, rule.Name, val)
		}
	}

	return rec, true
}

// coerceNumeric parses a numeric value. Anything unparsable counts as
// missing.
func coerceNumeric(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return val, true
}

// coerceDate reparses a source date into YYYY-MM-DD.
func coerceDate(raw, layout string) (string, bool) {
	if raw == "" {
		return "", false
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// normalizeKey renders numeric-looking order numbers as plain integer
// strings ("1001.0" and "1001" identify the same order).
func normalizeKey(raw string) string {
	if raw == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return strconv.FormatInt(int64(f), 10)
	}
	return raw
}

func setText(rec *orders.Order, col, val string) {
	switch col {
	case orders.ColOrderNumber:
		rec.OrderNumber = val
	case orders.ColStateCode:
		rec.StateCode = val
	case orders.ColCustomerName:
		rec.CustomerName = val
	case orders.ColOrderDate:
		rec.OrderDate = val
	case orders.ColStatus:
		rec.Status = val
	case orders.ColProduct:
		rec.Product = val
	case orders.ColCategory:
		rec.Category = val
	case orders.ColBrand:
		rec.Brand = val
	case orders.ColAssignedSupervisor:
		rec.AssignedSupervisor = val
	}
}

func setNumeric(rec *orders.Order, col string, val float64) {
	switch col {
	case orders.ColCost:
		rec.Cost = val
	case orders.ColSales:
		rec.Sales = val
	case orders.ColQuantity:
		rec.Quantity = val
	case orders.ColTotalCost:
		rec.TotalCost = val
	case orders.ColTotalSales:
		rec.TotalSales = val
	}
}
