// Package warehouse writes cleaned records to the PostgreSQL destination
// table.
//
// The destination always reflects the latest completed run: the load is a
// transactional replace (delete plus bulk insert in one transaction), so
// readers never observe a half-written table and a failed run leaves the
// prior contents intact.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/burqi/orderflow/internal/orders"
	"github.com/burqi/orderflow/internal/pipeline"
)

// Destination is the destination-table contract the final loader runs
// against.
type Destination interface {
	// Replace swaps the table contents for recs atomically.
	Replace(ctx context.Context, recs []orders.Order) error
}

// Postgres implements Destination over a PostgreSQL table.
type Postgres struct {
	DB    *sql.DB
	table string
}

// Open connects to the destination database.
func Open(dsn, table string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open destination database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Postgres{DB: db, table: table}, nil
}

// Close releases database resources.
func (p *Postgres) Close() error {
	if p.DB != nil {
		return p.DB.Close()
	}
	return nil
}

// EnsureSchema creates the destination table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	cols := make([]string, 0, len(orders.Columns))
	for _, col := range orders.Columns {
		cols = append(cols, fmt.Sprintf("%s %s", pq.QuoteIdentifier(col), columnType(col)))
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		pq.QuoteIdentifier(p.table), strings.Join(cols, ", "))

	if _, err := p.DB.ExecContext(ctx, ddl); err != nil {
		return p.loadError("ensure schema", err)
	}
	return nil
}

// Replace overwrites the destination table with recs in one transaction.
func (p *Postgres) Replace(ctx context.Context, recs []orders.Order) error {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return p.loadError("begin replace", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+pq.QuoteIdentifier(p.table)); err != nil {
		tx.Rollback()
		return p.loadError("clear table", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(p.table, orders.Columns...))
	if err != nil {
		tx.Rollback()
		return p.loadError("prepare copy", err)
	}

	for i := range recs {
		if _, err := stmt.ExecContext(ctx, recs[i].Values()...); err != nil {
			stmt.Close()
			tx.Rollback()
			return p.loadError("copy record", err)
		}
	}

	// Flush the COPY stream.
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		tx.Rollback()
		return p.loadError("flush copy", err)
	}
	if err := stmt.Close(); err != nil {
		tx.Rollback()
		return p.loadError("close copy", err)
	}

	if err := tx.Commit(); err != nil {
		return p.loadError("commit replace", err)
	}
	return nil
}

// Count returns the number of destination records.
func (p *Postgres) Count(ctx context.Context) (int, error) {
	var n int
	query := "SELECT COUNT(*) FROM " + pq.QuoteIdentifier(p.table)
	if err := p.DB.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, p.loadError("count", err)
	}
	return n, nil
}

func columnType(col string) string {
	switch col {
	case orders.ColCost, orders.ColSales, orders.ColQuantity,
		orders.ColTotalCost, orders.ColTotalSales:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

func (p *Postgres) loadError(op string, err error) error {
	return &pipeline.LoadError{
		Code:      pipeline.CodeConnection,
		Table:     p.table,
		Retryable: true,
		Err:       fmt.Errorf("%s: %w", op, err),
	}
}
