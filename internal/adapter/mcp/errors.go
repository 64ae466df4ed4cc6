package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/guillermoBallester/sqlgym/internal/core/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

// sanitizeError turns a Go error into a message that is safe to show the
// learner. Caller mistakes pass through; anything else is logged and replaced.
func sanitizeError(logger *slog.Logger, err error, op string) string {
	switch {
	case domain.IsValidationError(err),
		errors.Is(err, domain.ErrUnknownDatabase),
		errors.Is(err, domain.ErrUnknownExercise),
		errors.Is(err, domain.ErrSchemaUnsupported):
		return err.Error()
	case isTimeout(err):
		return domain.ErrQueryTimeout.Error()
	}

	logger.Error("tool failed",
		slog.String("mcp.operation", op),
		slog.String("error.message", err.Error()),
	)
	return fmt.Sprintf("internal error during %s; check server logs", op)
}

func isTimeout(err error) bool {
	if errors.Is(err, domain.ErrQueryTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "57014"
}
