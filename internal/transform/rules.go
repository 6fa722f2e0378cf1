// Package transform cleans staged rows into typed, analysis-ready
// records.
package transform

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/burqi/orderflow/internal/orders"
)

// Column value kinds.
const (
	TypeText    = "text"
	TypeNumeric = "numeric"
	TypeDate    = "date"
)

// ColumnRule declares how one column is coerced and what happens when its
// value is missing or uncoercible.
type ColumnRule struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required"`
	Default  string `yaml:"default"`
}

// RuleSet is the full cleaning policy: key column, date layout, and one
// rule per column.
type RuleSet struct {
	KeyColumn  string       `yaml:"keyColumn"`
	DateFormat string       `yaml:"dateFormat"`
	Columns    []ColumnRule `yaml:"columns"`
}

// DefaultRules returns the compiled-in cleaning policy for the
// online-ecommerce dataset: order number, cost and sales are required;
// descriptive columns default to "Unknown"; derived numerics default to
// zero; the order date is reformatted from DD/MM/YYYY.
func DefaultRules() *RuleSet {
	return &RuleSet{
		KeyColumn:  orders.KeyColumn,
		DateFormat: "02/01/2006",
		Columns: []ColumnRule{
			{Name: orders.ColOrderNumber, Type: TypeText, Required: true},
			{Name: orders.ColStateCode, Type: TypeText, Default: "Unknown"},
			{Name: orders.ColCustomerName, Type: TypeText, Default: "Unknown"},
			{Name: orders.ColOrderDate, Type: TypeDate},
			{Name: orders.ColStatus, Type: TypeText, Default: "Unknown"},
			{Name: orders.ColProduct, Type: TypeText, Default: "Unknown"},
			{Name: orders.ColCategory, Type: TypeText, Default: "Unknown"},
			{Name: orders.ColBrand, Type: TypeText, Default: "Unknown"},
			{Name: orders.ColCost, Type: TypeNumeric, Required: true},
			{Name: orders.ColSales, Type: TypeNumeric, Required: true},
			{Name: orders.ColQuantity, Type: TypeNumeric, Default: "0"},
			{Name: orders.ColTotalCost, Type: TypeNumeric, Default: "0"},
			{Name: orders.ColTotalSales, Type: TypeNumeric, Default: "0"},
			{Name: orders.ColAssignedSupervisor, Type: TypeText, Default: "Unknown"},
		},
	}
}

// LoadRules reads a rule set override from a YAML file.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	rules := &RuleSet{}
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	if rules.DateFormat == "" {
		rules.DateFormat = "02/01/2006"
	}
	if rules.KeyColumn == "" {
		rules.KeyColumn = orders.KeyColumn
	}

	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// Validate checks that every rule names a known pipeline column and that
// the key column is covered by a required rule.
func (r *RuleSet) Validate() error {
	known := make(map[string]struct{}, len(orders.Columns))
	for _, col := range orders.Columns {
		known[col] = struct{}{}
	}

	keyCovered := false
	for _, rule := range r.Columns {
		if _, ok := known[rule.Name]; !ok {
			return fmt.Errorf("rule references unknown column %q", rule.Name)
		}
		switch rule.Type {
		case TypeText, TypeNumeric, TypeDate:
		default:
			return fmt.Errorf("column %q has unknown type %q", rule.Name, rule.Type)
		}
		if rule.Name == r.KeyColumn && rule.Required {
			keyCovered = true
		}
	}
	if !keyCovered {
		return fmt.Errorf("key column %q must have a required rule", r.KeyColumn)
	}
	return nil
}
