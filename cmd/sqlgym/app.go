package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sort"

	"github.com/guillermoBallester/sqlgym/internal/adapter/catalog"
	"github.com/guillermoBallester/sqlgym/internal/adapter/sandbox"
	"github.com/guillermoBallester/sqlgym/internal/adapter/sqldb"
	"github.com/guillermoBallester/sqlgym/internal/adapter/tutor"
	"github.com/guillermoBallester/sqlgym/internal/audit"
	"github.com/guillermoBallester/sqlgym/internal/config"
	"github.com/guillermoBallester/sqlgym/internal/core/domain"
	"github.com/guillermoBallester/sqlgym/internal/core/port"
	"github.com/guillermoBallester/sqlgym/internal/core/service"
	"github.com/guillermoBallester/sqlgym/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// app is the wired object graph shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	catalog  *catalog.Catalog
	practice *service.PracticeService
	tutor    port.Tutor
	tracer   trace.Tracer
	inst     port.Instrumentation

	closers []func(context.Context) error
}

func newApp(ctx context.Context, flags *flagValues) (*app, error) {
	cfg, err := config.Load(flags.overrides())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr; stdout is reserved for the MCP stdio transport and
	// for command output.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	a := &app{cfg: cfg, logger: logger}
	if err := a.wire(ctx); err != nil {
		a.close(context.Background())
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	a.tracer = telemetry.NoopTracer()
	a.inst = telemetry.NoopInstruments()
	if cfg.OTelEnabled {
		provider, err := telemetry.Init(ctx, "sqlgym", version)
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		a.closers = append(a.closers, provider.Shutdown)
		a.tracer = provider.Tracer()
		a.inst = provider.Instruments()
		a.logger.Info("opentelemetry enabled")
	}

	cat, err := catalog.LoadFromFile(cfg.CatalogFile)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	a.catalog = cat
	a.logDatabases()

	registry, err := sandbox.NewRegistry(cat.Databases, sandbox.Limits{
		MaxRows:        cfg.MaxRows,
		ConnectTimeout: cfg.ConnectTimeout,
		QueryTimeout:   cfg.QueryTimeout,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("building sandboxes: %w", err)
	}

	var auditor port.QueryAuditor = port.NoopAuditor{}
	if cfg.AuditLog != "" {
		fa, err := audit.NewFileAuditor(cfg.AuditLog)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return fa.Close() })
		auditor = fa
		a.logger.Info("audit log enabled", slog.String("path", cfg.AuditLog))
	}

	validator := domain.NewLexicalValidator(
		domain.DefaultPolicy().WithExtraKeywords(cat.Policy.ExtraForbiddenKeywords...),
	)

	a.practice = service.NewPracticeService(validator, registry, auditor, a.logger, a.tracer, a.inst).
		WithComparator(domain.Comparator{FoldColumnCase: cfg.FoldColumnCase})
	a.tutor = tutor.Mock{}
	return nil
}

func (a *app) logDatabases() {
	ids := make([]string, 0, len(a.catalog.Databases))
	for id := range a.catalog.Databases {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		db := a.catalog.Databases[id]
		target := db.Path
		switch {
		case db.DSN != "" && db.Engine == catalog.EngineMySQL:
			target = redactMySQLDSN(db.DSN)
		case db.DSN != "":
			target = redactDSN(db.DSN)
		case db.Host != "":
			target = fmt.Sprintf("%s:%d/%s", db.Host, db.Port, db.Name)
		}
		a.logger.Info("sandbox configured",
			slog.String("db.namespace", id),
			slog.String("db.system", db.Engine),
			slog.String("target", target),
		)
	}
	a.logger.Info("catalog loaded",
		slog.String("file", a.cfg.CatalogFile),
		slog.Int("databases", len(a.catalog.Databases)),
		slog.Int("exercises", len(a.catalog.Exercises)),
	)
}

// close runs the registered closers in reverse order.
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Error("shutdown error", slog.String("error.message", err.Error()))
		}
	}
	a.closers = nil
}

// redactDSN replaces the password in a URL-style DSN. Unparseable input is
// fully masked since it may still carry credentials.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" || u.Opaque != "" {
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

func redactMySQLDSN(dsn string) string {
	cfg, err := sqldb.ParseMySQLDSN(dsn)
	if err != nil {
		return "***"
	}
	if cfg.Passwd != "" {
		cfg.Passwd = "***"
	}
	return cfg.FormatDSN()
}
