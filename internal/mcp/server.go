package mcp

import (
	"context"
	"io"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/superemem/azwaryfocus/internal/domain/activity"
	"github.com/superemem/azwaryfocus/internal/domain/board"
	"github.com/superemem/azwaryfocus/internal/domain/kanban"
	"github.com/superemem/azwaryfocus/internal/domain/project"
)

// Transport modes.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Board defines the board engine operations needed by MCP.
type Board interface {
	Snapshot() kanban.State
	LoadProject(ctx context.Context, projectID string) error
	CreateTask(ctx context.Context, in board.NewTask) (*board.Task, error)
	UpdateTask(ctx context.Context, taskID string, changes board.TaskChanges) (*board.Task, error)
	MoveTask(ctx context.Context, taskID, columnID string) error
	DeleteTask(ctx context.Context, taskID string) error
	ArchiveProject(ctx context.Context) error
}

// ProjectService defines project operations needed by MCP.
type ProjectService interface {
	ListForUser(ctx context.Context, userID string) ([]project.Summary, error)
}

// ActivityService defines activity operations needed by MCP.
type ActivityService interface {
	GetRecentActivity(ctx context.Context, userID string, opts activity.ListOptions) ([]activity.Entry, error)
}

// TaskSearcher searches tasks on the backend.
type TaskSearcher interface {
	SearchTasks(ctx context.Context, projectID, term string) ([]board.Task, error)
}

// Services contains all domain services needed by MCP. Search and
// Activity are optional.
type Services struct {
	Board    Board
	Projects ProjectService
	Activity ActivityService
	Search   TaskSearcher
}

// Config contains server configuration.
type Config struct {
	Services Services
	// UserID is the backend user every request acts as.
	UserID string
	// AuthToken enables bearer auth in HTTP mode when set.
	AuthToken     string
	TransportMode string
	Version       string
	// LogTraffic logs every request and response at debug level.
	LogTraffic bool
	Logger     *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "azwary",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       logger,
	})

	registerDocResources(server)

	// Stdio is local only, so the token is only checked over HTTP.
	auth := noAuthMiddleware(cfg.UserID)
	if cfg.TransportMode == TransportHTTP && cfg.AuthToken != "" {
		auth = authMiddleware(cfg.AuthToken, cfg.UserID)
	}
	// Within one call the first middleware runs first.
	if cfg.LogTraffic {
		server.AddReceivingMiddleware(auth, trafficLoggingMiddleware(logger, "inbound"))
		server.AddSendingMiddleware(trafficLoggingMiddleware(logger, "outbound"))
	} else {
		server.AddReceivingMiddleware(auth)
	}

	registerTools(server, newToolset(cfg.Services, logger))

	return server
}
