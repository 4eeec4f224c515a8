package kanban

import (
	"context"

	"github.com/superemem/azwaryfocus/internal/domain/activity"
	"github.com/superemem/azwaryfocus/internal/domain/board"
)

// Gateway is the remote data capability the engine mutates through.
type Gateway interface {
	LoadBoard(ctx context.Context, projectID string) (*board.Snapshot, error)
	InsertTask(ctx context.Context, projectID string, task board.NewTask) (*board.Task, error)
	UpdateTask(ctx context.Context, taskID string, changes board.TaskChanges) (*board.Task, error)
	MoveTask(ctx context.Context, taskID, columnID string) error
	DeleteTask(ctx context.Context, taskID string) error
	ArchiveProject(ctx context.Context, projectID string) error
	ProjectRoster(ctx context.Context, projectID string) (*board.Roster, error)
}

// Journal records sync outcomes. Failures are logged and otherwise ignored.
type Journal interface {
	LogActivity(ctx context.Context, userID string, entry *activity.Entry) error
}
