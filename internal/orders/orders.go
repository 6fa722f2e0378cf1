// Package orders defines the row schema shared across the pipeline steps.
//
// Column names are the contract between the extractor and everything
// downstream: they are the normalized CSV header names, and they double as
// the column names of the staging and destination tables.
package orders

import "strings"

// Normalized column names, in table order.
const (
	ColOrderNumber        = "order_number"
	ColStateCode          = "state_code"
	ColCustomerName       = "customer_name"
	ColOrderDate          = "order_date"
	ColStatus             = "status"
	ColProduct            = "product"
	ColCategory           = "category"
	ColBrand              = "brand"
	ColCost               = "cost"
	ColSales              = "sales"
	ColQuantity           = "quantity"
	ColTotalCost          = "total_cost"
	ColTotalSales         = "total_sales"
	ColAssignedSupervisor = "assigned_supervisor"
)

// Columns lists every pipeline column in table order. The natural source
// key is Columns[0].
var Columns = []string{
	ColOrderNumber,
	ColStateCode,
	ColCustomerName,
	ColOrderDate,
	ColStatus,
	ColProduct,
	ColCategory,
	ColBrand,
	ColCost,
	ColSales,
	ColQuantity,
	ColTotalCost,
	ColTotalSales,
	ColAssignedSupervisor,
}

// KeyColumn is the natural source key for staging dedup.
const KeyColumn = ColOrderNumber

// NormalizeColumn maps a source CSV header to its pipeline column name.
// The source file mixes styles ("Order_Number", "Assigned Supervisor");
// normalization lower-cases and replaces spaces with underscores.
func NormalizeColumn(header string) string {
	h := strings.TrimSpace(header)
	h = strings.ReplaceAll(h, " ", "_")
	return strings.ToLower(h)
}

// RawRow is a source row as parsed from the CSV: untyped text keyed by
// normalized column name. Values stay text until the transform step.
type RawRow map[string]string

// Fingerprint returns a stable full-row identity over the pipeline
// columns, used for exact-duplicate removal.
func (r RawRow) Fingerprint() string {
	parts := make([]string, len(Columns))
	for i, col := range Columns {
		parts[i] = r[col]
	}
	return strings.Join(parts, "\x1f")
}

// Order is a cleaned record ready for the destination table.
type Order struct {
	OrderNumber        string  `json:"orderNumber"`
	StateCode          string  `json:"stateCode"`
	CustomerName       string  `json:"customerName"`
	OrderDate          string  `json:"orderDate"` // YYYY-MM-DD, empty when the source value was uncoercible
	Status             string  `json:"status"`
	Product            string  `json:"product"`
	Category           string  `json:"category"`
	Brand              string  `json:"brand"`
	Cost               float64 `json:"cost"`
	Sales              float64 `json:"sales"`
	Quantity           float64 `json:"quantity"`
	TotalCost          float64 `json:"totalCost"`
	TotalSales         float64 `json:"totalSales"`
	AssignedSupervisor string  `json:"assignedSupervisor"`
}

// Values returns the record's fields in Columns order, for bulk inserts.
// An empty order date maps to NULL.
func (o *Order) Values() []any {
	var date any
	if o.OrderDate != "" {
		date = o.OrderDate
	}
	return []any{
		o.OrderNumber,
		o.StateCode,
		o.CustomerName,
		date,
		o.Status,
		o.Product,
		o.Category,
		o.Brand,
		o.Cost,
		o.Sales,
		o.Quantity,
		o.TotalCost,
		o.TotalSales,
		o.AssignedSupervisor,
	}
}
