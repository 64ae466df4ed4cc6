package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/guillermoBallester/sqlgym/internal/core/service"
	"github.com/spf13/cobra"
)

var errIncorrect = errors.New("submission is not correct")

func newRunCmd(flags *flagValues) *cobra.Command {
	var database, exerciseID, query string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one query against a sandbox and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (database == "") == (exerciseID == "") {
				return errors.New("exactly one of --database or --exercise is required")
			}
			sql, err := readSQL(query, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			if exerciseID != "" {
				ex, err := a.catalog.Exercise(exerciseID)
				if err != nil {
					return err
				}
				database = ex.Database
			}

			env, err := a.practice.Execute(service.WithToolName(ctx, "cli_run"), sql, database)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), env)
		},
	}

	cmd.Flags().StringVar(&database, "database", "", "sandbox database id")
	cmd.Flags().StringVar(&exerciseID, "exercise", "", "run against the database of this exercise")
	cmd.Flags().StringVar(&query, "sql", "-", `query text, or "-" to read it from stdin`)
	return cmd
}

func newCheckCmd(flags *flagValues) *cobra.Command {
	var exerciseID, query string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Grade a query against an exercise and print the verdict as JSON",
		Long:  "Grade a query against an exercise. Exits non-zero when the submission is not correct.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sql, err := readSQL(query, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			ex, err := a.catalog.Exercise(exerciseID)
			if err != nil {
				return err
			}

			grade, err := a.practice.Grade(service.WithToolName(ctx, "cli_check"), sql, ex.ExpectedSQL, ex.Database)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), grade); err != nil {
				return err
			}
			if !grade.Correct {
				return errIncorrect
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&exerciseID, "exercise", "", "exercise id")
	cmd.Flags().StringVar(&query, "sql", "-", `query text, or "-" to read it from stdin`)
	_ = cmd.MarkFlagRequired("exercise")
	return cmd
}

// readSQL returns query, or the whole of stdin when query is "-".
func readSQL(query string, stdin io.Reader) (string, error) {
	if query != "-" {
		if strings.TrimSpace(query) == "" {
			return "", errors.New("--sql is empty")
		}
		return query, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading query from stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errors.New("no query on stdin")
	}
	return string(data), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

