package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guillermoBallester/sqlgym/internal/core/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// sqlStateQueryCanceled is raised when statement_timeout fires.
const sqlStateQueryCanceled = "57014"

// Runner executes learner queries against one PostgreSQL sandbox. Every call
// opens its own connection and closes it before returning; there is no pool.
type Runner struct {
	connConfig   *pgx.ConnConfig
	maxRows      int
	queryTimeout time.Duration
	schemas      []string
}

func NewRunner(connConfig *pgx.ConnConfig, maxRows int, queryTimeout time.Duration) *Runner {
	return &Runner{
		connConfig:   connConfig,
		maxRows:      maxRows,
		queryTimeout: queryTimeout,
	}
}

func (r *Runner) Run(ctx context.Context, sql string) (*domain.ResultSet, error) {
	conn, err := connect(ctx, r.connConfig)
	if err != nil {
		return nil, err
	}
	defer closeConn(conn)

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, r.engineError(fmt.Errorf("beginning transaction: %w", err))
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	// Enforce statement timeout at the database level so PostgreSQL cancels
	// the query server-side even if the Go context is cancelled first.
	// SET LOCAL scopes to this transaction only.
	timeoutMS := r.queryTimeout.Milliseconds()
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL statement_timeout = '%d'", timeoutMS)); err != nil {
		return nil, r.engineError(fmt.Errorf("setting statement timeout: %w", err))
	}

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, r.engineError(err)
	}

	rs, truncated, err := collectRows(rows, r.maxRows)
	if truncated {
		// Abort the rest of the result instead of draining it.
		cancel()
	}
	rows.Close()
	if err != nil {
		return nil, r.engineError(err)
	}
	return rs, nil
}

// engineError tags timeouts so callers can tell them from other engine errors.
func (r *Runner) engineError(err error) error {
	var pgErr *pgconn.PgError
	if errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &pgErr) && pgErr.Code == sqlStateQueryCanceled) {
		return fmt.Errorf("%w after %s: %w", domain.ErrQueryTimeout, r.queryTimeout, err)
	}
	return err
}
