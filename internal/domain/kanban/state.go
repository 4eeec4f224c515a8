package kanban

import (
	"math"
	"strings"

	"github.com/superemem/azwaryfocus/internal/domain/board"
)

// Well-known column names counted by Stats.
const (
	ColumnTodo       = "to do"
	ColumnInProgress = "in progress"
	ColumnDone       = "done"
)

// State is the engine's view of the open project. Published states are
// snapshots: their slices are never modified after publication.
type State struct {
	ProjectID   string             `json:"project_id"`
	Project     *board.Project     `json:"project"`
	Columns     []board.Column     `json:"columns"`
	Tasks       []board.Task       `json:"tasks"`
	Profiles    []board.ProfileRef `json:"profiles"`
	Loading     bool               `json:"loading"`
	Error       string             `json:"error,omitempty"`
	SearchQuery string             `json:"search_query,omitempty"`
	ProjectLead string             `json:"project_lead,omitempty"`
	TeamMembers []string           `json:"team_members"`
}

// Stats summarizes task counts per well-known column.
type Stats struct {
	TodoCount       int `json:"todo_count"`
	InProgressCount int `json:"in_progress_count"`
	DoneCount       int `json:"done_count"`
	TotalTasks      int `json:"total_tasks"`
	ProgressPercent int `json:"progress_percent"`
}

// Stats counts tasks in the "to do", "in progress" and "done" columns.
// TotalTasks is the sum of those three counts.
func (s State) Stats() Stats {
	count := func(name string) int {
		col, ok := s.FindColumnByName(name)
		if !ok {
			return 0
		}
		return len(s.TasksByColumn(col.ID))
	}

	st := Stats{
		TodoCount:       count(ColumnTodo),
		InProgressCount: count(ColumnInProgress),
		DoneCount:       count(ColumnDone),
	}
	st.TotalTasks = st.TodoCount + st.InProgressCount + st.DoneCount
	if st.TotalTasks > 0 {
		st.ProgressPercent = int(math.Round(float64(st.DoneCount) / float64(st.TotalTasks) * 100))
	}
	return st
}

// FilteredTasks returns tasks whose title or description contains the search
// query, ignoring case. The query is matched as typed, surrounding spaces
// included. An empty query returns every task.
func (s State) FilteredTasks() []board.Task {
	query := strings.ToLower(s.SearchQuery)
	if query == "" {
		return append([]board.Task(nil), s.Tasks...)
	}
	out := make([]board.Task, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		if strings.Contains(strings.ToLower(t.Title), query) ||
			strings.Contains(strings.ToLower(t.Description), query) {
			out = append(out, t)
		}
	}
	return out
}

// FindColumnByName returns the first column whose name equals name, ignoring case.
func (s State) FindColumnByName(name string) (board.Column, bool) {
	for _, c := range s.Columns {
		if strings.EqualFold(strings.TrimSpace(c.Name), strings.TrimSpace(name)) {
			return c, true
		}
	}
	return board.Column{}, false
}

// TasksByColumn returns the tasks held by columnID.
func (s State) TasksByColumn(columnID string) []board.Task {
	var out []board.Task
	for _, t := range s.Tasks {
		if t.ColumnID == columnID {
			out = append(out, t)
		}
	}
	return out
}

func (s State) clone() State {
	out := s
	if s.Project != nil {
		p := *s.Project
		out.Project = &p
	}
	out.Columns = append([]board.Column(nil), s.Columns...)
	out.Tasks = append([]board.Task(nil), s.Tasks...)
	out.Profiles = append([]board.ProfileRef(nil), s.Profiles...)
	out.TeamMembers = append([]string(nil), s.TeamMembers...)
	return out
}

func (s State) findTask(id string) (int, bool) {
	for i, t := range s.Tasks {
		if t.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s State) findColumn(id string) (int, bool) {
	for i, c := range s.Columns {
		if c.ID == id {
			return i, true
		}
	}
	return -1, false
}

// The helpers below return new slices and never write to their input.

func upsertTask(tasks []board.Task, task board.Task) []board.Task {
	for i, t := range tasks {
		if t.ID == task.ID {
			return replaceTaskAt(tasks, i, task)
		}
	}
	out := make([]board.Task, len(tasks), len(tasks)+1)
	copy(out, tasks)
	return append(out, task)
}

func replaceTaskAt(tasks []board.Task, i int, task board.Task) []board.Task {
	out := append([]board.Task(nil), tasks...)
	out[i] = task
	return out
}

func removeTaskAt(tasks []board.Task, i int) []board.Task {
	out := make([]board.Task, 0, len(tasks)-1)
	out = append(out, tasks[:i]...)
	return append(out, tasks[i+1:]...)
}

func removeTasksInColumn(tasks []board.Task, columnID string) []board.Task {
	out := make([]board.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ColumnID != columnID {
			out = append(out, t)
		}
	}
	return out
}

func upsertColumn(columns []board.Column, column board.Column) []board.Column {
	out := append([]board.Column(nil), columns...)
	for i, c := range out {
		if c.ID == column.ID {
			out[i] = column
			return out
		}
	}
	return append(out, column)
}

func removeColumnAt(columns []board.Column, i int) []board.Column {
	out := make([]board.Column, 0, len(columns)-1)
	out = append(out, columns[:i]...)
	return append(out, columns[i+1:]...)
}
