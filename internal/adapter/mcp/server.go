package mcp

import (
	"log/slog"

	"github.com/guillermoBallester/sqlgym/internal/core/port"
	"github.com/guillermoBallester/sqlgym/internal/core/service"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

const serverName = "sqlgym"

const serverInstructions = "SQL practice sandbox. Call list_exercises to pick a problem and get_exercise to read it. " +
	"describe_database shows the tables you can query. Try queries with run_query, then grade them with submit_query. " +
	"Only a single SELECT statement is accepted; comments and write keywords are rejected."

// NewServer creates an MCPServer with the practice tools and call hooks.
func NewServer(version string, practice *service.PracticeService, exercises ExerciseCatalog, tutor port.Tutor, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithInstructions(serverInstructions),
		server.WithRecovery(),
		server.WithHooks(ToolCallHooks(logger, tracer, inst)),
	)

	RegisterTools(s, practice, exercises, tutor, logger)

	return s
}
