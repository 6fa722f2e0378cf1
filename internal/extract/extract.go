// Package extract parses a downloaded delimited file into raw rows.
package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/burqi/orderflow/internal/orders"
	"github.com/burqi/orderflow/internal/pipeline"
)

// ReadFile parses the CSV at path into ordered raw rows. The header row
// defines the column schema; every header is normalized via
// orders.NormalizeColumn and must include the natural key column.
//
// Malformed rows abort the whole extraction. Partial extraction is never
// surfaced downstream.
func ReadFile(path string) ([]orders.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &pipeline.ParseError{Code: pipeline.CodeMalformedInput, Err: err}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &pipeline.ParseError{
			Code: pipeline.CodeHeaderMismatch,
			Err:  errors.New("file is empty"),
		}
	}
	if err != nil {
		return nil, parseError(err)
	}

	columns := make([]string, len(header))
	hasKey := false
	for i, h := range header {
		columns[i] = orders.NormalizeColumn(h)
		if columns[i] == orders.KeyColumn {
			hasKey = true
		}
	}
	if !hasKey {
		return nil, &pipeline.ParseError{
			Code: pipeline.CodeHeaderMismatch,
			Err:  fmt.Errorf("header missing key column %q", orders.KeyColumn),
		}
	}

	var rows []orders.RawRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, parseError(err)
		}

		row := make(orders.RawRow, len(columns))
		for i, col := range columns {
			row[col] = record[i]
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// parseError lifts a csv error into a ParseError, keeping the source line
// when the reader reports one.
func parseError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &pipeline.ParseError{
			Code: pipeline.CodeMalformedInput,
			Line: csvErr.Line,
			Err:  err,
		}
	}
	return &pipeline.ParseError{Code: pipeline.CodeMalformedInput, Err: err}
}
