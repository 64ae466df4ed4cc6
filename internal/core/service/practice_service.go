package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/guillermoBallester/sqlgym/internal/core/domain"
	"github.com/guillermoBallester/sqlgym/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type toolNameKey struct{}

// WithToolName returns a context carrying the calling tool name for audit logging.
func WithToolName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, toolNameKey{}, name)
}

func toolNameFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(toolNameKey{}).(string); ok {
		return v
	}
	return ""
}

// Grade is the outcome of grading one submission. It marshals as the verdict
// fields plus the learner's own result under "user_result".
type Grade struct {
	domain.Verdict
	Candidate *domain.Envelope `json:"user_result"`
}

// PracticeService orchestrates validation (domain), sandbox execution
// (infrastructure) and result comparison (domain).
type PracticeService struct {
	validator  port.QueryValidator
	sandboxes  port.SandboxResolver
	comparator domain.Comparator
	auditor    port.QueryAuditor
	logger     *slog.Logger
	tracer     trace.Tracer
	inst       port.Instrumentation
}

func NewPracticeService(validator port.QueryValidator, sandboxes port.SandboxResolver, auditor port.QueryAuditor, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *PracticeService {
	if auditor == nil {
		auditor = port.NoopAuditor{}
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("noop")
	}
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	return &PracticeService{
		validator: validator,
		sandboxes: sandboxes,
		auditor:   auditor,
		logger:    logger,
		tracer:    tracer,
		inst:      inst,
	}
}

// WithComparator replaces the default case-sensitive comparator.
func (s *PracticeService) WithComparator(c domain.Comparator) *PracticeService {
	s.comparator = c
	return s
}

// Databases lists the configured sandboxes.
func (s *PracticeService) Databases() []port.SandboxInfo {
	return s.sandboxes.List()
}

// DescribeDatabase lists the tables of sandbox dbID.
func (s *PracticeService) DescribeDatabase(ctx context.Context, dbID string) ([]port.TableSchema, error) {
	ctx, span := s.tracer.Start(ctx, "PracticeService.DescribeDatabase",
		trace.WithAttributes(attribute.String("db.namespace", dbID)),
	)
	defer span.End()

	runner, err := s.sandboxes.Resolve(dbID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	describer, ok := runner.(port.SchemaDescriber)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrSchemaUnsupported, dbID)
	}

	tables, err := describer.DescribeSchema(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "schema description failed",
			slog.String("db.namespace", dbID),
			slog.String("error.message", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("sqlgym.tables", len(tables)))
	return tables, nil
}

// Execute validates sql and, if allowed, runs it against the sandbox dbID.
//
// The only returned error is a configuration error (unknown database).
// Policy rejections and engine failures come back as unsuccessful envelopes.
func (s *PracticeService) Execute(ctx context.Context, sql, dbID string) (*domain.Envelope, error) {
	attemptID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "PracticeService.Execute",
		trace.WithAttributes(
			attribute.String("db.namespace", dbID),
			attribute.String("db.operation.name", "query"),
			attribute.String("db.statement", sql),
			attribute.String("sqlgym.attempt_id", attemptID),
		),
	)
	defer span.End()

	runner, err := s.sandboxes.Resolve(dbID)
	if err != nil {
		s.logger.ErrorContext(ctx, "sandbox resolution failed",
			slog.String("db.namespace", dbID),
			slog.String("error.type", "configuration_error"),
			slog.String("error.message", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := s.validator.Validate(sql); err != nil {
		s.logger.WarnContext(ctx, "query validation rejected",
			slog.String("attempt_id", attemptID),
			slog.String("db.namespace", dbID),
			slog.String("db.statement", sql),
			slog.String("error.type", "validation_error"),
			slog.String("error.message", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementRejections(ctx)
		s.audit(ctx, attemptID, dbID, sql, 0, 0, err)
		return domain.NewFailureEnvelope(err.Error(), 0), nil
	}

	start := time.Now()
	rs, err := runSafely(ctx, runner, sql)
	elapsed := time.Since(start)

	s.inst.RecordQueryDuration(ctx, float64(elapsed.Milliseconds()))

	if err != nil {
		s.logger.WarnContext(ctx, "query execution failed",
			slog.String("attempt_id", attemptID),
			slog.String("db.namespace", dbID),
			slog.String("db.statement", sql),
			slog.String("error.type", "engine_error"),
			slog.String("error.message", err.Error()),
			slog.Duration("duration", elapsed),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementQueryErrors(ctx)
		s.audit(ctx, attemptID, dbID, sql, 0, elapsed.Milliseconds(), err)
		return domain.NewFailureEnvelope(err.Error(), elapsed), nil
	}

	env := domain.NewSuccessEnvelope(rs, elapsed)
	s.inst.IncrementQueryCount(ctx)
	span.SetAttributes(attribute.Int("db.response.returned_rows", env.RowCount))
	s.audit(ctx, attemptID, dbID, sql, env.RowCount, elapsed.Milliseconds(), nil)

	s.logger.DebugContext(ctx, "query executed",
		slog.String("attempt_id", attemptID),
		slog.String("db.namespace", dbID),
		slog.Int("rows", env.RowCount),
		slog.Duration("duration", elapsed),
	)

	return env, nil
}

// Compare decides whether candidate is structurally equivalent to expected.
func (s *PracticeService) Compare(candidate, expected *domain.Envelope) domain.Verdict {
	return s.comparator.Compare(candidate, expected)
}

// Grade runs a learner's query and the reference query against the same
// sandbox and compares them. A failed candidate short-circuits to the
// "execution failed" verdict without touching the reference. A reference that
// does not execute is a catalog error and is returned as ErrReferenceFailed.
func (s *PracticeService) Grade(ctx context.Context, candidateSQL, expectedSQL, dbID string) (*Grade, error) {
	ctx, span := s.tracer.Start(ctx, "PracticeService.Grade",
		trace.WithAttributes(attribute.String("db.namespace", dbID)),
	)
	defer span.End()

	candidate, err := s.Execute(ctx, candidateSQL, dbID)
	if err != nil {
		return nil, err
	}

	if !candidate.Success {
		verdict := s.Compare(candidate, nil)
		s.inst.RecordVerdict(ctx, false)
		span.SetAttributes(attribute.String("sqlgym.verdict", string(verdict.Kind)))
		return &Grade{Verdict: verdict, Candidate: candidate}, nil
	}

	expected, err := s.Execute(WithToolName(ctx, "reference"), expectedSQL, dbID)
	if err != nil {
		return nil, err
	}
	if !expected.Success {
		err := fmt.Errorf("%w on %q: %s", domain.ErrReferenceFailed, dbID, expected.ErrorMessage())
		s.logger.ErrorContext(ctx, "reference query failed",
			slog.String("db.namespace", dbID),
			slog.String("db.statement", expectedSQL),
			slog.String("error.type", "configuration_error"),
			slog.String("error.message", expected.ErrorMessage()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	verdict := s.Compare(candidate, expected)
	s.inst.RecordVerdict(ctx, verdict.Correct)
	span.SetAttributes(attribute.String("sqlgym.verdict", string(verdict.Kind)))

	return &Grade{Verdict: verdict, Candidate: candidate}, nil
}

func (s *PracticeService) audit(ctx context.Context, attemptID, dbID, sql string, rows int, durationMS int64, err error) {
	s.auditor.Record(ctx, port.AuditEntry{
		AttemptID:    attemptID,
		Tool:         toolNameFromCtx(ctx),
		Database:     dbID,
		SQL:          sql,
		RowsReturned: rows,
		DurationMS:   durationMS,
		Err:          err,
	})
}

// errRunnerPanic marks a recovered fault inside a runner.
var errRunnerPanic = errors.New("unexpected failure while executing query")

// runSafely turns a runner panic into an ordinary engine error. Runners
// release their connection with defer, so the connection is closed before
// the panic reaches this frame.
func runSafely(ctx context.Context, runner port.QueryRunner, sql string) (rs *domain.ResultSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			rs = nil
			err = fmt.Errorf("%w: %v", errRunnerPanic, r)
		}
	}()
	return runner.Run(ctx, sql)
}
