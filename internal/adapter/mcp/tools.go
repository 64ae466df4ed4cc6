package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/guillermoBallester/sqlgym/internal/adapter/catalog"
	"github.com/guillermoBallester/sqlgym/internal/core/port"
	"github.com/guillermoBallester/sqlgym/internal/core/service"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ExerciseCatalog is the read side of the exercise catalog.
type ExerciseCatalog interface {
	ListExercises(f catalog.ExerciseFilter) []catalog.ExerciseSummary
	Exercise(id string) (*catalog.Exercise, error)
}

const (
	descListDatabases = "List the sandbox databases you can practice against, with their engine and a short description."

	descDescribeDatabase = "List the tables and views of a sandbox database with their columns, types, nullability and primary keys. " +
		"Use it before writing a query to learn the table and column names."

	descListExercises = "List practice exercises ordered from first to last. " +
		"Optionally filter by database and difficulty (easy, medium, hard)."

	descGetExercise = "Show one exercise: its statement, starter query, difficulty, tags and hints. " +
		"Hints are ordered from gentlest to most revealing."

	descRunQuery = "Run a single SELECT statement against a sandbox and return the result envelope " +
		"{success, columns, rows, row_count, execution_time, error}. " +
		"Give either exercise_id (runs on that exercise's database) or database. " +
		"Rows are capped server-side and the statement is cancelled when it exceeds the time budget. " +
		"Comments, multiple statements and write keywords such as DROP or UPDATE are rejected before execution."

	descSubmitQuery = "Grade a SELECT statement against an exercise's reference solution. " +
		"Row order and column order are ignored; column names, row count and cell values must match. " +
		"Returns {correct, kind, message, diff, user_result}; diff lists missing and extra columns."

	descAskTutor = "Ask the SQL tutor for a hint. Pass the exercise, your current query and the last error to get targeted help."
)

func RegisterTools(s *server.MCPServer, practice *service.PracticeService, exercises ExerciseCatalog, tutor port.Tutor, logger *slog.Logger) {
	s.AddTool(
		mcp.NewTool("list_databases",
			mcp.WithDescription(descListDatabases),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		listDatabasesHandler(practice),
	)

	s.AddTool(
		mcp.NewTool("describe_database",
			mcp.WithDescription(descDescribeDatabase),
			mcp.WithString("database",
				mcp.Required(),
				mcp.Description("Database id from list_databases"),
			),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		describeDatabaseHandler(practice, logger),
	)

	s.AddTool(
		mcp.NewTool("list_exercises",
			mcp.WithDescription(descListExercises),
			mcp.WithString("database",
				mcp.Description("Only exercises on this database"),
			),
			mcp.WithString("difficulty",
				mcp.Description("Only exercises of this difficulty"),
				mcp.Enum("easy", "medium", "hard"),
			),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		listExercisesHandler(exercises),
	)

	s.AddTool(
		mcp.NewTool("get_exercise",
			mcp.WithDescription(descGetExercise),
			mcp.WithString("exercise_id",
				mcp.Required(),
				mcp.Description("Exercise id from list_exercises"),
			),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		getExerciseHandler(exercises, logger),
	)

	s.AddTool(
		mcp.NewTool("run_query",
			mcp.WithDescription(descRunQuery),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description("A single SELECT statement"),
			),
			mcp.WithString("exercise_id",
				mcp.Description("Run on the database of this exercise"),
			),
			mcp.WithString("database",
				mcp.Description("Database id, used when exercise_id is not given"),
			),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		runQueryHandler(practice, exercises, logger),
	)

	s.AddTool(
		mcp.NewTool("submit_query",
			mcp.WithDescription(descSubmitQuery),
			mcp.WithString("exercise_id",
				mcp.Required(),
				mcp.Description("Exercise being answered"),
			),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description("Your answer, a single SELECT statement"),
			),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		submitQueryHandler(practice, exercises, logger),
	)

	if tutor != nil {
		s.AddTool(
			mcp.NewTool("ask_tutor",
				mcp.WithDescription(descAskTutor),
				mcp.WithString("message",
					mcp.Required(),
					mcp.Description("Your question"),
				),
				mcp.WithString("exercise_id",
					mcp.Description("Exercise you are working on"),
				),
				mcp.WithString("query",
					mcp.Description("Your current query"),
				),
				mcp.WithString("error",
					mcp.Description("The last error you saw"),
				),
			),
			askTutorHandler(tutor, exercises, logger),
		)
	}
}

func listDatabasesHandler(practice *service.PracticeService) server.ToolHandlerFunc {
	return func(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(practice.Databases())
	}
}

func describeDatabaseHandler(practice *service.PracticeService, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbID := request.GetString("database", "")
		if dbID == "" {
			return mcp.NewToolResultError("database is required"), nil
		}

		tables, err := practice.DescribeDatabase(ctx, dbID)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "describe database")), nil
		}
		return jsonResult(tables)
	}
}

func listExercisesHandler(exercises ExerciseCatalog) server.ToolHandlerFunc {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(exercises.ListExercises(catalog.ExerciseFilter{
			Database:   request.GetString("database", ""),
			Difficulty: request.GetString("difficulty", ""),
		}))
	}
}

func getExerciseHandler(exercises ExerciseCatalog, logger *slog.Logger) server.ToolHandlerFunc {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := request.GetString("exercise_id", "")
		if id == "" {
			return mcp.NewToolResultError("exercise_id is required"), nil
		}

		ex, err := exercises.Exercise(id)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "get exercise")), nil
		}
		return jsonResult(ex)
	}
}

// runQueryHandler returns the result envelope as data even when the query
// was rejected or failed; only configuration problems are tool errors.
func runQueryHandler(practice *service.PracticeService, exercises ExerciseCatalog, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql := request.GetString("sql", "")
		if sql == "" {
			return mcp.NewToolResultError("sql is required"), nil
		}

		dbID := request.GetString("database", "")
		if id := request.GetString("exercise_id", ""); id != "" {
			ex, err := exercises.Exercise(id)
			if err != nil {
				return mcp.NewToolResultError(sanitizeError(logger, err, "run query")), nil
			}
			dbID = ex.Database
		}
		if dbID == "" {
			return mcp.NewToolResultError("database or exercise_id is required"), nil
		}

		ctx = service.WithToolName(ctx, "run_query")
		env, err := practice.Execute(ctx, sql, dbID)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "run query")), nil
		}
		return jsonResult(env)
	}
}

func submitQueryHandler(practice *service.PracticeService, exercises ExerciseCatalog, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := request.GetString("exercise_id", "")
		if id == "" {
			return mcp.NewToolResultError("exercise_id is required"), nil
		}
		sql := request.GetString("sql", "")
		if sql == "" {
			return mcp.NewToolResultError("sql is required"), nil
		}

		ex, err := exercises.Exercise(id)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "submit query")), nil
		}

		ctx = service.WithToolName(ctx, "submit_query")
		grade, err := practice.Grade(ctx, sql, ex.ExpectedSQL, ex.Database)
		if err != nil {
			return mcp.NewToolResultError(sanitizeError(logger, err, "submit query")), nil
		}
		return jsonResult(grade)
	}
}

func askTutorHandler(tutor port.Tutor, exercises ExerciseCatalog, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		msg := request.GetString("message", "")
		if msg == "" {
			return mcp.NewToolResultError("message is required"), nil
		}

		req := port.TutorRequest{
			Message:   msg,
			UserQuery: request.GetString("query", ""),
			Error:     request.GetString("error", ""),
		}
		if id := request.GetString("exercise_id", ""); id != "" {
			ex, err := exercises.Exercise(id)
			if err != nil {
				return mcp.NewToolResultError(sanitizeError(logger, err, "ask tutor")), nil
			}
			req.ExerciseTitle = ex.Title
		}

		return mcp.NewToolResultText(tutor.Respond(ctx, req)), nil
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
