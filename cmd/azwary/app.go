package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/superemem/azwaryfocus/internal/config"
	"github.com/superemem/azwaryfocus/internal/domain/activity"
	"github.com/superemem/azwaryfocus/internal/domain/kanban"
	"github.com/superemem/azwaryfocus/internal/domain/realtime"
	"github.com/superemem/azwaryfocus/internal/domain/session"
	"github.com/superemem/azwaryfocus/internal/feed"
	"github.com/superemem/azwaryfocus/internal/feedback"
	"github.com/superemem/azwaryfocus/internal/gateway"
	"github.com/superemem/azwaryfocus/internal/sqlite"
	"gopkg.in/natefinch/lumberjack.v2"
)

// app holds what every subcommand shares. Resources are released by close
// in reverse order of acquisition.
type app struct {
	configPath string
	logLevel   string

	cfg      config.Config
	logger   *slog.Logger
	db       *sqlite.DB
	gateway  *gateway.Client
	sessions *session.Service
	activity *activity.Service
	closers  []func() error
}

func (a *app) init(cmd *cobra.Command) error {
	if a.configPath != "" {
		if err := os.Setenv(config.ConfigPathEnv, a.configPath); err != nil {
			return fmt.Errorf("set config path: %w", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.cfg = cfg

	logger, err := a.newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	a.logger = logger

	if err := ensureDir(cfg.DB.Path); err != nil {
		return fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.Open(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	gw, err := gateway.New(gateway.Options{
		URL:     cfg.Backend.URL,
		AnonKey: cfg.Backend.AnonKey,
		Timeout: cfg.Backend.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("backend: %w", err)
	}
	a.gateway = gw
	a.sessions = session.NewService(gw, logger, session.WithStore(sqlite.NewSessionStore(db)))
	a.activity = activity.NewService(sqlite.NewActivityRepository(db), logger)
	return nil
}

// newLogger writes to w, or to a rotated file when one is configured.
// Stdout is never used so it stays free for command output and stdio MCP.
func (a *app) newLogger(w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(a.cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	if path := a.cfg.Log.File; path != "" {
		if err := ensureDir(path); err != nil {
			return nil, fmt.Errorf("prepare log path: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    a.cfg.Log.MaxSizeMB,
			MaxBackups: a.cfg.Log.MaxBackups,
			MaxAge:     a.cfg.Log.MaxAgeDays,
		}
		a.closers = append(a.closers, rotating.Close)
		w = rotating
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// authenticate picks the first available of: configured access token,
// stored session, configured email and password.
func (a *app) authenticate(ctx context.Context) (*session.Session, error) {
	b := a.cfg.Backend
	if b.AccessToken != "" {
		return a.sessions.Restore(ctx, b.AccessToken, b.UserID)
	}
	sess, err := a.sessions.Resume(ctx)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, session.ErrNotAuthenticated) {
		return nil, err
	}
	if b.Email != "" && b.Password != "" {
		return a.sessions.SignIn(ctx, b.Email, b.Password)
	}
	return nil, fmt.Errorf("%w: run azwary login or set AZWARY_ACCESS_TOKEN", session.ErrNotAuthenticated)
}

// newEngine builds a board engine acting as sess. With live set and the
// change feed enabled, the engine follows remote changes.
func (a *app) newEngine(sess *session.Session, live bool) (*kanban.Engine, error) {
	messages, err := feedback.LoadMessages(a.cfg.Feedback.Locale)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	var transport realtime.Transport
	if live && a.cfg.Realtime.Enabled {
		fc, err := feed.New(feed.Options{
			URL:         a.cfg.Backend.URL,
			AnonKey:     a.cfg.Backend.AnonKey,
			AccessToken: sess.AccessToken,
			Heartbeat:   a.cfg.Realtime.Heartbeat,
			JoinTimeout: a.cfg.Realtime.JoinTimeout,
			MinBackoff:  a.cfg.Realtime.MinBackoff,
			MaxBackoff:  a.cfg.Realtime.MaxBackoff,
			Logger:      a.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("change feed: %w", err)
		}
		a.closers = append(a.closers, fc.Close)
		transport = fc
	}

	engine := kanban.New(kanban.Config{
		Gateway:       a.gateway.WithToken(sess.AccessToken),
		Feed:          transport,
		Feedback:      feedback.NewLogSink(a.logger),
		Messages:      messages,
		Journal:       a.activity,
		UserID:        sess.UserID(),
		LiveTransport: transport != nil,
		Logger:        a.logger,
	})
	a.closers = append(a.closers, func() error {
		engine.Close()
		return nil
	})
	return engine, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.logger != nil {
			a.logger.Warn("shutdown", "error", err)
		}
	}
	a.closers = nil
}

func ensureDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
