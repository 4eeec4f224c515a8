package board

import "time"

// ProjectStatus is the lifecycle status of a project.
type ProjectStatus string

const (
	StatusActive   ProjectStatus = "active"
	StatusArchived ProjectStatus = "archived"
)

// Project is a board owned by a lead and shared with members.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	CreatedBy   string        `json:"created_by,omitempty"`
	CreatedAt   time.Time     `json:"created_at,omitzero"`
}

// Column is one ordered lane of a project board.
type Column struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Name      string `json:"name"`
	Order     int    `json:"order"`
}

// Task is a card on the board. Column membership is carried by ColumnID only.
type Task struct {
	ID           string        `json:"id"`
	ProjectID    string        `json:"project_id"`
	ColumnID     string        `json:"column_id"`
	Title        string        `json:"title"`
	Description  string        `json:"description,omitempty"`
	AssignedTo   *string       `json:"assigned_to"`
	CreatedBy    string        `json:"created_by,omitempty"`
	Order        float64       `json:"order"`
	Priority     string        `json:"priority,omitempty"`
	DueDate      *string       `json:"due_date"`
	SessionCount int           `json:"session_count"`
	Assignee     JoinedProfile `json:"assignee_profile,omitzero"`
	Creator      JoinedProfile `json:"created_by_profile,omitzero"`
}

// NewTask holds the fields of a task to insert. The project is supplied by the caller.
type NewTask struct {
	ColumnID    string  `json:"column_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
	CreatedBy   string  `json:"created_by,omitempty"`
	Order       float64 `json:"order"`
	Priority    string  `json:"priority,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

// TaskChanges is a partial task update. Nil and unset fields are left
// untouched remotely; the assignee and due date can also be cleared.
type TaskChanges struct {
	ColumnID     *string          `json:"column_id,omitempty"`
	Title        *string          `json:"title,omitempty"`
	Description  *string          `json:"description,omitempty"`
	AssignedTo   Nullable[string] `json:"assigned_to,omitzero"`
	Order        *float64         `json:"order,omitempty"`
	Priority     *string          `json:"priority,omitempty"`
	DueDate      Nullable[string] `json:"due_date,omitzero"`
	SessionCount *int             `json:"session_count,omitempty"`
}

// IsEmpty reports whether no field is set.
func (c TaskChanges) IsEmpty() bool {
	return c.ColumnID == nil && c.Title == nil && c.Description == nil &&
		c.AssignedTo.IsZero() && c.Order == nil && c.Priority == nil &&
		c.DueDate.IsZero() && c.SessionCount == nil
}

// ProfileRef resolves a user id to a display name.
type ProfileRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Member is a project_members row with its joined profile.
type Member struct {
	UserID    string        `json:"user_id"`
	Profile   JoinedProfile `json:"profiles"`
	CreatedAt time.Time     `json:"created_at,omitzero"`
}

// Snapshot is the batched result of loading one project.
type Snapshot struct {
	Project     *Project     `json:"project"`
	Columns     []Column     `json:"columns"`
	Tasks       []Task       `json:"tasks"`
	Members     []ProfileRef `json:"members"`
	ProjectLead string       `json:"project_lead"`
}

// Roster is the lead and member list of a project as read from the
// projects and project_members relations.
type Roster struct {
	LeadID  string        `json:"created_by"`
	Lead    JoinedProfile `json:"profiles"`
	Members []Member      `json:"members"`
}
