package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/guillermoBallester/sqlgym/internal/adapter/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(flags *flagValues) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the practice tools over MCP (stdio or http)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				a.close(shutdownCtx)
			}()

			a.logger.Info("starting sqlgym",
				slog.String("version", version),
				slog.String("log_level", a.cfg.LogLevel.String()),
				slog.String("transport", a.cfg.Transport),
				slog.Int("max_rows", a.cfg.MaxRows),
				slog.String("query_timeout", a.cfg.QueryTimeout.String()),
				slog.String("connect_timeout", a.cfg.ConnectTimeout.String()),
			)

			s := mcp.NewServer(version, a.practice, a.catalog, a.tutor, a.logger, a.tracer, a.inst)

			if a.cfg.Transport == "http" {
				return serveHTTP(ctx, a, s)
			}
			return serveStdio(ctx, a, s)
		},
	}
}

func serveStdio(ctx context.Context, a *app, s *mcpserver.MCPServer) error {
	stdioServer := mcpserver.NewStdioServer(s)

	a.logger.Info("serving MCP over stdio")
	if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	a.logger.Info("shutdown complete")
	return nil
}

func serveHTTP(ctx context.Context, a *app, s *mcpserver.MCPServer) error {
	streamable := mcpserver.NewStreamableHTTPServer(s,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(r.Header))
		}),
	)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           newHTTPHandler(streamable, a.cfg.HTTPBearerToken, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("serving MCP over http", slog.String("server.address", a.cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := streamable.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("mcp session shutdown", slog.String("error.message", err.Error()))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	a.logger.Info("shutdown complete")
	return nil
}
