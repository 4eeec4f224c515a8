package activity

import "time"

// Type identifies a sync outcome worth keeping.
type Type string

const (
	TypeProjectLoaded      Type = "project_loaded"
	TypeProjectLoadFailed  Type = "project_load_failed"
	TypeProjectArchived    Type = "project_archived"
	TypeTaskCreated        Type = "task_created"
	TypeTaskUpdated        Type = "task_updated"
	TypeTaskMoved          Type = "task_moved"
	TypeTaskMoveReverted   Type = "task_move_reverted"
	TypeTaskDeleted        Type = "task_deleted"
	TypeTaskDeleteReverted Type = "task_delete_reverted"
)

// Entry is one line of the local sync journal.
type Entry struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	ProjectID string    `json:"project_id"`
	TaskID    *string   `json:"task_id,omitempty"`
	Type      Type      `json:"type"`
	Summary   string    `json:"summary"`
	Details   string    `json:"details,omitempty"` // JSON string
	CreatedAt time.Time `json:"created_at"`
}
