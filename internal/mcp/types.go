package mcp

import (
	"time"

	"github.com/superemem/azwaryfocus/internal/domain/activity"
	"github.com/superemem/azwaryfocus/internal/domain/board"
	"github.com/superemem/azwaryfocus/internal/domain/kanban"
	"github.com/superemem/azwaryfocus/internal/domain/project"
)

type ListProjectsParams struct{}

type OpenProjectParams struct {
	ProjectID string `json:"project_id" jsonschema:"id of the project to open"`
}

type GetBoardParams struct {
	ColumnID string `json:"column_id,omitempty" jsonschema:"only include this column"`
}

type BoardStatsParams struct{}

type SearchTasksParams struct {
	Query  string `json:"query" jsonschema:"text matched against task title and description"`
	Remote bool   `json:"remote,omitempty" jsonschema:"query the backend instead of the loaded board"`
}

type CreateTaskParams struct {
	ColumnID    string  `json:"column_id,omitempty" jsonschema:"destination column id"`
	ColumnName  string  `json:"column_name,omitempty" jsonschema:"destination column name, used when column_id is empty"`
	Title       string  `json:"title" jsonschema:"task title"`
	Description string  `json:"description,omitempty" jsonschema:"task description"`
	AssignedTo  *string `json:"assigned_to,omitempty" jsonschema:"assignee user id"`
	Priority    string  `json:"priority,omitempty" jsonschema:"priority label"`
	DueDate     *string `json:"due_date,omitempty" jsonschema:"due date (YYYY-MM-DD)"`
}

type UpdateTaskParams struct {
	TaskID        string   `json:"task_id" jsonschema:"task to update"`
	Title         *string  `json:"title,omitempty"`
	Description   *string  `json:"description,omitempty"`
	AssignedTo    *string  `json:"assigned_to,omitempty"`
	ClearAssignee bool     `json:"clear_assignee,omitempty" jsonschema:"unassign the task; wins over assigned_to"`
	Order         *float64 `json:"order,omitempty"`
	Priority      *string  `json:"priority,omitempty"`
	DueDate       *string  `json:"due_date,omitempty"`
	ClearDueDate  bool     `json:"clear_due_date,omitempty" jsonschema:"remove the due date; wins over due_date"`
	SessionCount  *int     `json:"session_count,omitempty" jsonschema:"completed pomodoro sessions"`
}

type MoveTaskParams struct {
	TaskID     string `json:"task_id" jsonschema:"task to move"`
	ColumnID   string `json:"column_id,omitempty" jsonschema:"destination column id"`
	ColumnName string `json:"column_name,omitempty" jsonschema:"destination column name, used when column_id is empty"`
}

type DeleteTaskParams struct {
	TaskID string `json:"task_id" jsonschema:"task to delete"`
}

type ArchiveProjectParams struct {
	Confirm bool `json:"confirm" jsonschema:"must be true"`
}

type RecentActivityParams struct {
	ProjectID string `json:"project_id,omitempty" jsonschema:"filter by project"`
	TaskID    string `json:"task_id,omitempty" jsonschema:"filter by task"`
	Type      string `json:"type,omitempty" jsonschema:"filter by activity type"`
	Since     string `json:"since,omitempty" jsonschema:"only entries at or after this RFC 3339 time"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum entries (default 50)"`
}

type ProjectResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	Role        string `json:"role,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type ListProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type TaskResponse struct {
	ID           string  `json:"id"`
	ColumnID     string  `json:"column_id"`
	Title        string  `json:"title"`
	Description  string  `json:"description,omitempty"`
	AssignedTo   string  `json:"assigned_to,omitempty"`
	Assignee     string  `json:"assignee,omitempty"`
	Priority     string  `json:"priority,omitempty"`
	DueDate      string  `json:"due_date,omitempty"`
	Order        float64 `json:"order"`
	SessionCount int     `json:"session_count"`
}

type ColumnResponse struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Order int            `json:"order"`
	Tasks []TaskResponse `json:"tasks"`
}

type StatsResponse struct {
	TodoCount       int `json:"todo_count"`
	InProgressCount int `json:"in_progress_count"`
	DoneCount       int `json:"done_count"`
	TotalTasks      int `json:"total_tasks"`
	ProgressPercent int `json:"progress_percent"`
}

type BoardResponse struct {
	Project     ProjectResponse  `json:"project"`
	ProjectLead string           `json:"project_lead,omitempty"`
	TeamMembers []string         `json:"team_members"`
	Columns     []ColumnResponse `json:"columns"`
	// Unplaced holds tasks whose column is not on the board yet.
	Unplaced []TaskResponse `json:"unplaced,omitempty"`
	Stats    StatsResponse  `json:"stats"`
}

type SearchTasksResponse struct {
	Query string         `json:"query"`
	Tasks []TaskResponse `json:"tasks"`
}

type TaskResult struct {
	Task TaskResponse `json:"task"`
}

type MoveTaskResponse struct {
	TaskID   string `json:"task_id"`
	ColumnID string `json:"column_id"`
	Column   string `json:"column"`
}

type DeleteTaskResponse struct {
	TaskID  string `json:"task_id"`
	Deleted bool   `json:"deleted"`
}

type ArchiveProjectResponse struct {
	ProjectID string `json:"project_id"`
	Archived  bool   `json:"archived"`
}

type ActivityResponse struct {
	ID        int64  `json:"id"`
	ProjectID string `json:"project_id"`
	TaskID    string `json:"task_id,omitempty"`
	Type      string `json:"type"`
	Summary   string `json:"summary"`
	Details   string `json:"details,omitempty"`
	CreatedAt string `json:"created_at"`
}

type RecentActivityResponse struct {
	Entries []ActivityResponse `json:"entries"`
}

func projectResponse(p board.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Status:      string(p.Status),
		CreatedAt:   formatTime(p.CreatedAt),
	}
}

func summaryResponse(s project.Summary) ProjectResponse {
	out := projectResponse(s.Project)
	out.Role = string(s.Role)
	return out
}

func taskResponse(t board.Task) TaskResponse {
	return TaskResponse{
		ID:           t.ID,
		ColumnID:     t.ColumnID,
		Title:        t.Title,
		Description:  t.Description,
		AssignedTo:   stringValue(t.AssignedTo),
		Assignee:     t.Assignee.Username(),
		Priority:     t.Priority,
		DueDate:      stringValue(t.DueDate),
		Order:        t.Order,
		SessionCount: t.SessionCount,
	}
}

func taskResponses(tasks []board.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskResponse(t))
	}
	return out
}

func statsResponse(s kanban.Stats) StatsResponse {
	return StatsResponse(s)
}

// boardResponse groups tasks under their columns in display order.
func boardResponse(s kanban.State, columnID string) BoardResponse {
	resp := BoardResponse{
		ProjectLead: s.ProjectLead,
		TeamMembers: append([]string{}, s.TeamMembers...),
		Columns:     []ColumnResponse{},
		Stats:       statsResponse(s.Stats()),
	}
	if s.Project != nil {
		resp.Project = projectResponse(*s.Project)
	}

	placed := make(map[string]bool, len(s.Columns))
	for _, c := range sortedColumns(s.Columns) {
		placed[c.ID] = true
		if columnID != "" && c.ID != columnID {
			continue
		}
		resp.Columns = append(resp.Columns, ColumnResponse{
			ID:    c.ID,
			Name:  c.Name,
			Order: c.Order,
			Tasks: taskResponses(sortedTasks(s.TasksByColumn(c.ID))),
		})
	}
	if columnID == "" {
		for _, t := range s.Tasks {
			if !placed[t.ColumnID] {
				resp.Unplaced = append(resp.Unplaced, taskResponse(t))
			}
		}
	}
	return resp
}

func activityResponse(e activity.Entry) ActivityResponse {
	return ActivityResponse{
		ID:        e.ID,
		ProjectID: e.ProjectID,
		TaskID:    stringValue(e.TaskID),
		Type:      string(e.Type),
		Summary:   e.Summary,
		Details:   e.Details,
		CreatedAt: formatTime(e.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// nullable maps an optional value plus a clear flag onto an update field.
func nullable(v *string, unset bool) board.Nullable[string] {
	switch {
	case unset:
		return board.Null[string]()
	case v != nil:
		return board.Set(*v)
	}
	return board.Nullable[string]{}
}

func stringValue(val *string) string {
	if val == nil {
		return ""
	}
	return *val
}
