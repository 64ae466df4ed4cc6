// Package sqldb runs learner queries through database/sql. It backs the
// MySQL and SQLite sandboxes; PostgreSQL goes through the pgx adapter.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/guillermoBallester/sqlgym/internal/core/domain"
	"github.com/guillermoBallester/sqlgym/internal/core/port"
)

// Runner executes learner queries against one database/sql sandbox. Each call
// opens its own handle and closes it before returning.
type Runner struct {
	driverName     string
	dsn            string
	schemaQuery    string
	maxRows        int
	connectTimeout time.Duration
	queryTimeout   time.Duration
}

var (
	_ port.QueryRunner     = (*Runner)(nil)
	_ port.SchemaDescriber = (*Runner)(nil)
)

func newRunner(driverName, dsn, schemaQuery string, maxRows int, connectTimeout, queryTimeout time.Duration) *Runner {
	return &Runner{
		driverName:     driverName,
		dsn:            dsn,
		schemaQuery:    schemaQuery,
		maxRows:        maxRows,
		connectTimeout: connectTimeout,
		queryTimeout:   queryTimeout,
	}
}

func (r *Runner) Run(ctx context.Context, query string) (*domain.ResultSet, error) {
	var rs *domain.ResultSet
	err := r.inReadOnlyTx(ctx, func(qctx context.Context, cancel context.CancelFunc, tx *sql.Tx) error {
		rows, err := tx.QueryContext(qctx, query)
		if err != nil {
			return err
		}
		var truncated bool
		rs, truncated, err = collectRows(rows, r.maxRows)
		if truncated {
			cancel()
		}
		_ = rows.Close()
		return err
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// DescribeSchema lists the sandbox tables with their columns.
func (r *Runner) DescribeSchema(ctx context.Context) ([]port.TableSchema, error) {
	tables := []port.TableSchema{}
	err := r.inReadOnlyTx(ctx, func(qctx context.Context, _ context.CancelFunc, tx *sql.Tx) error {
		rows, err := tx.QueryContext(qctx, r.schemaQuery)
		if err != nil {
			return fmt.Errorf("describing schema: %w", err)
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var (
				table          string
				col            port.ColumnSchema
				nullable, isPK int
			)
			if err := rows.Scan(&table, &col.Name, &col.DataType, &nullable, &isPK); err != nil {
				return fmt.Errorf("scanning column row: %w", err)
			}
			col.Nullable = nullable != 0
			col.PrimaryKey = isPK != 0
			tables = port.AppendColumn(tables, table, col)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// inReadOnlyTx opens a dedicated handle, starts a read-only transaction under
// the execution budget and hands it to fn. Everything is released on return.
func (r *Runner) inReadOnlyTx(ctx context.Context, fn func(qctx context.Context, cancel context.CancelFunc, tx *sql.Tx) error) error {
	db, err := sql.Open(r.driverName, r.dsn)
	if err != nil {
		return fmt.Errorf("connecting to sandbox: %w", err)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	connCtx, cancelConn := context.WithTimeout(ctx, r.connectTimeout)
	conn, err := db.Conn(connCtx)
	cancelConn()
	if err != nil {
		return fmt.Errorf("connecting to sandbox: %w", err)
	}
	defer func() { _ = conn.Close() }()

	qctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	tx, err := conn.BeginTx(qctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return r.engineError(qctx, fmt.Errorf("beginning transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(qctx, cancel, tx); err != nil {
		return r.engineError(qctx, err)
	}
	return nil
}

// engineError tags failures caused by the execution budget running out.
func (r *Runner) engineError(qctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(qctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", domain.ErrQueryTimeout, r.queryTimeout, err)
	}
	return err
}

func collectRows(rows *sql.Rows, maxRows int) (rs *domain.ResultSet, truncated bool, err error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, false, fmt.Errorf("reading columns: %w", err)
	}
	rs = &domain.ResultSet{Columns: cols, Rows: [][]any{}}

	for rows.Next() {
		if len(rs.Rows) >= maxRows {
			return rs, true, nil
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, false, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range vals {
			vals[i] = domain.NormalizeValue(v)
		}
		rs.Rows = append(rs.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return rs, false, nil
}
