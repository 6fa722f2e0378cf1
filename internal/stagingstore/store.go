// Package stagingstore persists raw rows in the MySQL staging table.
//
// Staging is append-only: a row whose order number is already present is
// skipped, never overwritten, so reruns over the same source data are
// idempotent and nothing previously loaded is ever lost.
package stagingstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/burqi/orderflow/internal/orders"
	"github.com/burqi/orderflow/internal/pipeline"
)

// Store is the staging-table contract the stage loader runs against.
type Store interface {
	// ExistingKeys returns the set of order numbers already staged.
	ExistingKeys(ctx context.Context) (map[string]struct{}, error)

	// InsertRows appends rows in one transaction, all or nothing.
	InsertRows(ctx context.Context, rows []orders.RawRow) error

	// FetchAll returns the full staging contents in insertion order.
	FetchAll(ctx context.Context) ([]orders.RawRow, error)
}

// MySQL implements Store over a MySQL staging table.
type MySQL struct {
	DB    *sql.DB
	table string
}

// Open connects to the staging database.
func Open(dsn, table string) (*MySQL, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open staging database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &MySQL{DB: db, table: table}, nil
}

// Close releases database resources.
func (s *MySQL) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// EnsureSchema creates the staging table if it does not exist. Values stay
// text until transformation; seq preserves insertion order.
func (s *MySQL) EnsureSchema(ctx context.Context) error {
	cols := make([]string, 0, len(orders.Columns))
	for _, col := range orders.Columns {
		if col == orders.KeyColumn {
			continue
		}
		cols = append(cols, fmt.Sprintf("%s TEXT", col))
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		seq BIGINT NOT NULL AUTO_INCREMENT,
		%s VARCHAR(64) NOT NULL,
		%s,
		PRIMARY KEY (seq),
		UNIQUE KEY uq_%s (%s)
	)`, s.table, orders.KeyColumn, strings.Join(cols, ",\n\t\t"), orders.KeyColumn, orders.KeyColumn)

	if _, err := s.DB.ExecContext(ctx, ddl); err != nil {
		return s.loadError("ensure schema", err)
	}
	return nil
}

// ExistingKeys reads the staged order numbers into an explicit set.
func (s *MySQL) ExistingKeys(ctx context.Context) (map[string]struct{}, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", orders.KeyColumn, s.table)
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, s.loadError("read existing keys", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, s.loadError("scan key", err)
		}
		keys[key] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, s.loadError("read existing keys", err)
	}

	return keys, nil
}

// InsertRows appends rows inside a single transaction.
func (s *MySQL) InsertRows(ctx context.Context, rows []orders.RawRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return s.loadError("begin insert", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(orders.Columns)), ",")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, strings.Join(orders.Columns, ", "), placeholders)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return s.loadError("prepare insert", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		args := make([]any, len(orders.Columns))
		for i, col := range orders.Columns {
			args[i] = row[col]
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return s.loadError("insert row", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return s.loadError("commit insert", err)
	}
	return nil
}

// FetchAll returns every staged row in insertion order.
func (s *MySQL) FetchAll(ctx context.Context) ([]orders.RawRow, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY seq",
		strings.Join(orders.Columns, ", "), s.table)

	result, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, s.loadError("read staging", err)
	}
	defer result.Close()

	var out []orders.RawRow
	values := make([]sql.NullString, len(orders.Columns))
	scanArgs := make([]any, len(orders.Columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	for result.Next() {
		if err := result.Scan(scanArgs...); err != nil {
			return nil, s.loadError("scan staging row", err)
		}
		row := make(orders.RawRow, len(orders.Columns))
		for i, col := range orders.Columns {
			row[col] = values[i].String
		}
		out = append(out, row)
	}
	if err := result.Err(); err != nil {
		return nil, s.loadError("read staging", err)
	}

	return out, nil
}

// loadError classifies a MySQL failure. Constraint violations are not
// retryable; everything else is assumed transient connectivity.
func (s *MySQL) loadError(op string, err error) error {
	retryable := true
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		retryable = false
	}
	return &pipeline.LoadError{
		Code:      code(retryable),
		Table:     s.table,
		Retryable: retryable,
		Err:       fmt.Errorf("%s: %w", op, err),
	}
}

func code(retryable bool) string {
	if retryable {
		return pipeline.CodeConnection
	}
	return pipeline.CodeConstraint
}
