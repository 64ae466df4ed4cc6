package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/guillermoBallester/sqlgym/internal/core/port"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type toolTimer struct {
	port.NoopInstrumentation
	calls int
}

func (c *toolTimer) RecordToolDuration(context.Context, float64) { c.calls++ }

func hookedServer(t *testing.T, logs *bytes.Buffer) (*server.MCPServer, *tracetest.InMemoryExporter, *toolTimer) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	logger := slog.New(slog.NewJSONHandler(logs, nil))
	timer := &toolTimer{}
	s := server.NewMCPServer("test", "0.1.0",
		server.WithToolCapabilities(true),
		server.WithHooks(ToolCallHooks(logger, tp.Tracer("test"), timer)),
	)
	s.AddTool(mcp.NewTool("ok"), func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("fine"), nil
	})
	s.AddTool(mcp.NewTool("fails"), func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("nope"), nil
	})
	return s, exporter, timer
}

func TestToolCallHooks_Success(t *testing.T) {
	var logs bytes.Buffer
	s, exporter, timer := hookedServer(t, &logs)

	callTool(t, s, "ok", map[string]any{"exercise_id": "hr-names"})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "mcp.tool.call", spans[0].Name)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)

	attrs := make(map[string]string)
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	assert.Equal(t, "ok", attrs["mcp.tool"])
	assert.Equal(t, "hr-names", attrs["sqlgym.exercise_id"])
	assert.Equal(t, 1, timer.calls)

	entry := lastLogLine(t, &logs)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "ok", entry["mcp.tool"])
	assert.Equal(t, false, entry["error"])
}

func TestToolCallHooks_ErrorResult(t *testing.T) {
	var logs bytes.Buffer
	s, exporter, _ := hookedServer(t, &logs)

	result := callTool(t, s, "fails", nil)
	require.True(t, result.IsError)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)

	entry := lastLogLine(t, &logs)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, true, entry["error"])
}

func lastLogLine(t *testing.T, logs *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}
