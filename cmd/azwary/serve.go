package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"github.com/superemem/azwaryfocus/internal/config"
	"github.com/superemem/azwaryfocus/internal/domain/project"
	"github.com/superemem/azwaryfocus/internal/mcp"
)

const shutdownTimeout = 5 * time.Second

func serveCmd(a *app) *cobra.Command {
	var (
		transport string
		projectID string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the board tools over MCP",
		Long: `Serve the board tools over MCP on stdio or streamable HTTP.

Examples:
  azwary serve
  azwary serve --transport http --project 7f3c...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if transport != "" {
				a.cfg.Transport.Mode = transport
			}
			switch a.cfg.Transport.Mode {
			case config.TransportStdio, config.TransportHTTP:
			default:
				return fmt.Errorf("invalid transport %q", a.cfg.Transport.Mode)
			}
			return runServe(cmd.Context(), a, projectID)
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "", "stdio or http (default from config)")
	cmd.Flags().StringVar(&projectID, "project", "", "project to open on start")
	return cmd
}

func runServe(ctx context.Context, a *app, projectID string) error {
	sess, err := a.authenticate(ctx)
	if err != nil {
		return err
	}
	engine, err := a.newEngine(sess, true)
	if err != nil {
		return err
	}
	if projectID != "" {
		if err := engine.LoadProject(ctx, projectID); err != nil {
			return err
		}
	}

	gw := a.gateway.WithToken(sess.AccessToken)
	server := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Board:    engine,
			Projects: project.NewService(gw, a.logger),
			Activity: a.activity,
			Search:   gw,
		},
		UserID:        sess.UserID(),
		AuthToken:     a.cfg.Transport.AuthToken,
		TransportMode: a.cfg.Transport.Mode,
		Version:       Version,
		LogTraffic:    a.cfg.Transport.LogTraffic,
		Logger:        a.logger,
	})

	if a.cfg.Transport.Mode == config.TransportStdio {
		a.logger.Info("starting stdio transport", "user_id", sess.UserID())
		// Run returns when stdin closes or ctx is cancelled.
		if err := server.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio server: %w", err)
		}
		return nil
	}
	return serveHTTP(ctx, a, server)
}

func serveHTTP(ctx context.Context, a *app, server *sdkmcp.Server) error {
	addr := a.cfg.Transport.Addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mcp.NewHTTPHandler(server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", "addr", addr, "auth", a.cfg.Transport.AuthToken != "")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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
	a.logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
