// Package sandbox maps catalog database identifiers to query runners.
package sandbox

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/guillermoBallester/sqlgym/internal/adapter/catalog"
	"github.com/guillermoBallester/sqlgym/internal/adapter/postgres"
	"github.com/guillermoBallester/sqlgym/internal/adapter/sqldb"
	"github.com/guillermoBallester/sqlgym/internal/core/domain"
	"github.com/guillermoBallester/sqlgym/internal/core/port"
)

// Limits bound every sandbox execution.
type Limits struct {
	MaxRows        int
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
}

type entry struct {
	info   port.SandboxInfo
	runner port.QueryRunner
}

// Registry is an immutable set of sandboxes built at startup.
type Registry struct {
	entries map[string]entry
}

var _ port.SandboxResolver = (*Registry)(nil)

// NewRegistry builds a runner for every database in the catalog. Connection
// settings are parsed eagerly so a malformed DSN fails at startup rather than
// on the first learner query. No connection is opened here.
func NewRegistry(dbs map[string]catalog.Database, limits Limits, logger *slog.Logger) (*Registry, error) {
	r := &Registry{entries: make(map[string]entry, len(dbs))}
	for id, db := range dbs {
		runner, err := newRunner(db, limits)
		if err != nil {
			return nil, fmt.Errorf("sandbox %q: %w", id, err)
		}
		r.entries[id] = entry{
			info: port.SandboxInfo{
				ID:          id,
				Engine:      db.Engine,
				DisplayName: db.DisplayName,
				Description: db.Description,
			},
			runner: runner,
		}
		logger.Debug("sandbox registered",
			slog.String("db.namespace", id),
			slog.String("db.system", db.Engine),
		)
	}
	return r, nil
}

// NewStaticRegistry wraps already constructed runners. Tests use it to put
// fakes behind the resolver; production wiring goes through NewRegistry.
func NewStaticRegistry(runners map[string]port.QueryRunner) *Registry {
	r := &Registry{entries: make(map[string]entry, len(runners))}
	for id, runner := range runners {
		r.entries[id] = entry{info: port.SandboxInfo{ID: id}, runner: runner}
	}
	return r
}

func newRunner(db catalog.Database, limits Limits) (port.QueryRunner, error) {
	switch db.Engine {
	case catalog.EnginePostgres:
		cfg, err := postgres.ParseConnConfig(db.PostgresDSN(), limits.ConnectTimeout)
		if err != nil {
			return nil, err
		}
		return postgres.NewRunner(cfg, limits.MaxRows, limits.QueryTimeout).WithSchemas(db.Schemas), nil
	case catalog.EngineMySQL:
		if db.DSN != "" {
			cfg, err := sqldb.ParseMySQLDSN(db.DSN)
			if err != nil {
				return nil, err
			}
			return sqldb.NewMySQLRunner(cfg, limits.MaxRows, limits.ConnectTimeout, limits.QueryTimeout), nil
		}
		endpoint := sqldb.MySQLEndpoint{
			Host:     db.Host,
			Port:     db.Port,
			User:     db.User,
			Password: db.Password,
			Database: db.Name,
		}
		return sqldb.NewMySQLRunner(endpoint.Config(), limits.MaxRows, limits.ConnectTimeout, limits.QueryTimeout), nil
	case catalog.EngineSQLite:
		return sqldb.NewSQLiteRunner(db.Path, limits.MaxRows, limits.ConnectTimeout, limits.QueryTimeout), nil
	default:
		return nil, fmt.Errorf("unsupported engine %q", db.Engine)
	}
}

// Resolve returns the runner for dbID, or an error wrapping
// domain.ErrUnknownDatabase.
func (r *Registry) Resolve(dbID string) (port.QueryRunner, error) {
	e, ok := r.entries[dbID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDatabase, dbID)
	}
	return e.runner, nil
}

// List returns the sandboxes sorted by id.
func (r *Registry) List() []port.SandboxInfo {
	out := make([]port.SandboxInfo, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
