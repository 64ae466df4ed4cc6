package telemetry

import (
	"context"

	"github.com/guillermoBallester/sqlgym/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/guillermoBallester/sqlgym"

// Instruments holds pre-created OTel metric instruments.
type Instruments struct {
	QueryCount    metric.Int64Counter
	QueryDuration metric.Float64Histogram
	QueryErrors   metric.Int64Counter
	Rejections    metric.Int64Counter
	Verdicts      metric.Int64Counter
	ToolDuration  metric.Float64Histogram
}

var _ port.Instrumentation = (*Instruments)(nil)

// NoopInstruments returns instruments that record nothing.
func NoopInstruments() *Instruments {
	return newInstrumentsFromMeter(noop.NewMeterProvider().Meter(meterName))
}

func newInstrumentsFromMeter(meter metric.Meter) *Instruments {
	// The SDK hands back a working noop instrument alongside any error.
	queryCount, _ := meter.Int64Counter("sqlgym.query.count",
		metric.WithDescription("Learner queries that executed successfully"),
	)
	queryDuration, _ := meter.Float64Histogram("sqlgym.query.duration",
		metric.WithDescription("Sandbox execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	queryErrors, _ := meter.Int64Counter("sqlgym.query.errors",
		metric.WithDescription("Queries the sandbox engine failed to execute"),
	)
	rejections, _ := meter.Int64Counter("sqlgym.query.rejections",
		metric.WithDescription("Queries refused by the validator before execution"),
	)
	verdicts, _ := meter.Int64Counter("sqlgym.grade.verdicts",
		metric.WithDescription("Graded submissions, split by correctness"),
	)
	toolDuration, _ := meter.Float64Histogram("sqlgym.tool.duration",
		metric.WithDescription("MCP tool call duration in milliseconds"),
		metric.WithUnit("ms"),
	)

	return &Instruments{
		QueryCount:    queryCount,
		QueryDuration: queryDuration,
		QueryErrors:   queryErrors,
		Rejections:    rejections,
		Verdicts:      verdicts,
		ToolDuration:  toolDuration,
	}
}

func (i *Instruments) RecordQueryDuration(ctx context.Context, ms float64) {
	i.QueryDuration.Record(ctx, ms)
}

func (i *Instruments) IncrementQueryCount(ctx context.Context) {
	i.QueryCount.Add(ctx, 1)
}

func (i *Instruments) IncrementQueryErrors(ctx context.Context) {
	i.QueryErrors.Add(ctx, 1)
}

func (i *Instruments) IncrementRejections(ctx context.Context) {
	i.Rejections.Add(ctx, 1)
}

func (i *Instruments) RecordVerdict(ctx context.Context, correct bool) {
	i.Verdicts.Add(ctx, 1, metric.WithAttributes(attribute.Bool("sqlgym.correct", correct)))
}

func (i *Instruments) RecordToolDuration(ctx context.Context, ms float64) {
	i.ToolDuration.Record(ctx, ms)
}
