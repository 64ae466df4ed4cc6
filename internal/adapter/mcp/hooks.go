package mcp

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/guillermoBallester/sqlgym/internal/core/port"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var errToolResult = errors.New("tool returned error")

// inflight is the per-request state kept between the before and after hooks.
type inflight struct {
	start time.Time
	span  trace.Span
}

// callTracker pairs hook invocations by JSON-RPC request id.
type callTracker struct {
	calls  sync.Map // id -> *inflight
	logger *slog.Logger
	tracer trace.Tracer
	inst   port.Instrumentation
}

func (c *callTracker) begin(ctx context.Context, id any, req *mcp.CallToolRequest) {
	call := &inflight{start: time.Now()}
	if c.tracer != nil {
		attrs := []attribute.KeyValue{attribute.String("mcp.tool", req.Params.Name)}
		if ex := req.GetString("exercise_id", ""); ex != "" {
			attrs = append(attrs, attribute.String("sqlgym.exercise_id", ex))
		}
		_, call.span = c.tracer.Start(ctx, "mcp.tool.call", trace.WithAttributes(attrs...))
	}
	c.calls.Store(id, call)
}

// end logs the finished call. err is nil for a clean result.
func (c *callTracker) end(ctx context.Context, id any, tool string, err error) {
	var (
		elapsed time.Duration
		span    trace.Span
	)
	if v, ok := c.calls.LoadAndDelete(id); ok {
		call := v.(*inflight)
		elapsed = time.Since(call.start)
		span = call.span
	}

	attrs := []slog.Attr{
		slog.String("rpc.method", string(mcp.MethodToolsCall)),
		slog.String("mcp.tool", tool),
		slog.Duration("duration", elapsed),
		slog.Bool("error", err != nil),
	}
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
		attrs = append(attrs, slog.String("error.message", err.Error()))
	}
	c.logger.LogAttrs(ctx, level, "tool call", attrs...)

	if c.inst != nil {
		c.inst.RecordToolDuration(ctx, float64(elapsed.Milliseconds()))
	}

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// ToolCallHooks logs every tool call and, when tracer and inst are set,
// records a span and the call duration.
func ToolCallHooks(logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.Hooks {
	tracker := &callTracker{logger: logger, tracer: tracer, inst: inst}
	hooks := &server.Hooks{}

	hooks.AddBeforeCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest) {
		tracker.begin(ctx, id, req)
	})

	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, result any) {
		var err error
		if r, ok := result.(*mcp.CallToolResult); ok && r.IsError {
			err = errToolResult
		}
		tracker.end(ctx, id, req.Params.Name, err)
	})

	hooks.AddOnError(func(ctx context.Context, id any, method mcp.MCPMethod, message any, err error) {
		req, ok := message.(*mcp.CallToolRequest)
		if !ok {
			return
		}
		tracker.end(ctx, id, req.Params.Name, err)
	})

	return hooks
}
