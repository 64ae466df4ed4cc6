package port

import (
	"context"

	"github.com/guillermoBallester/sqlgym/internal/core/domain"
)

// QueryRunner executes one already-validated statement against a single
// sandbox database. Implementations open a connection per call, release it on
// every exit path, cap the fetched rows and enforce the execution budget.
// Any returned error is an engine error (syntax, missing table, timeout).
type QueryRunner interface {
	Run(ctx context.Context, sql string) (*domain.ResultSet, error)
}

// SandboxInfo describes a sandbox database without exposing credentials.
type SandboxInfo struct {
	ID          string `json:"id"`
	Engine      string `json:"engine"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
}

// SandboxResolver maps a database identifier to its runner.
// Unknown identifiers yield an error wrapping domain.ErrUnknownDatabase.
type SandboxResolver interface {
	Resolve(dbID string) (QueryRunner, error)
	List() []SandboxInfo
}
