package kanban

import (
	"github.com/superemem/azwaryfocus/internal/domain/board"
	"github.com/superemem/azwaryfocus/internal/domain/realtime"
)

// callbacks merges change-feed events last-write-wins by entity id. Events
// scoped to a project other than the open one are ignored.
func (e *Engine) callbacks() realtime.Callbacks {
	return realtime.Callbacks{
		OnTaskInsert:    e.ApplyTaskInsert,
		OnTaskUpdate:    e.ApplyTaskUpdate,
		OnTaskDelete:    e.ApplyTaskDelete,
		OnColumnInsert:  e.ApplyColumnInsert,
		OnColumnUpdate:  e.ApplyColumnUpdate,
		OnColumnDelete:  e.ApplyColumnDelete,
		OnProjectUpdate: e.ApplyProjectUpdate,
	}
}

// ApplyTaskInsert appends task, or replaces it when the id is already held.
func (e *Engine) ApplyTaskInsert(projectID string, task board.Task) {
	e.commit(func(s *State) bool {
		if !s.accepts(projectID) || (task.ProjectID != "" && task.ProjectID != projectID) {
			return false
		}
		s.Tasks = upsertTask(s.Tasks, task)
		return true
	})
}

// ApplyTaskUpdate replaces the task with the same id. Unknown ids are ignored.
func (e *Engine) ApplyTaskUpdate(projectID string, task board.Task) {
	applied := e.commit(func(s *State) bool {
		if !s.accepts(projectID) {
			return false
		}
		i, ok := s.findTask(task.ID)
		if !ok {
			return false
		}
		s.Tasks = replaceTaskAt(s.Tasks, i, task)
		return true
	})
	if !applied {
		e.logger.Debug("task update event not applied", "task_id", task.ID, "reason", ErrReconciliationSkipped)
	}
}

// ApplyTaskDelete removes the task. Removing an absent id is a no-op.
func (e *Engine) ApplyTaskDelete(projectID, taskID string) {
	e.commit(func(s *State) bool {
		if !s.accepts(projectID) {
			return false
		}
		i, ok := s.findTask(taskID)
		if !ok {
			return false
		}
		s.Tasks = removeTaskAt(s.Tasks, i)
		return true
	})
}

// ApplyColumnInsert appends column, or replaces it when the id is already held.
func (e *Engine) ApplyColumnInsert(projectID string, column board.Column) {
	e.commit(func(s *State) bool {
		if !s.accepts(projectID) {
			return false
		}
		s.Columns = upsertColumn(s.Columns, column)
		return true
	})
}

// ApplyColumnUpdate replaces the column with the same id. Unknown ids are ignored.
func (e *Engine) ApplyColumnUpdate(projectID string, column board.Column) {
	e.commit(func(s *State) bool {
		if !s.accepts(projectID) {
			return false
		}
		if _, ok := s.findColumn(column.ID); !ok {
			return false
		}
		s.Columns = upsertColumn(s.Columns, column)
		return true
	})
}

// ApplyColumnDelete removes the column and every task it held. Tasks are
// removed even when the column itself was not yet known locally.
func (e *Engine) ApplyColumnDelete(projectID, columnID string) {
	e.commit(func(s *State) bool {
		if !s.accepts(projectID) {
			return false
		}
		changed := false
		if i, ok := s.findColumn(columnID); ok {
			s.Columns = removeColumnAt(s.Columns, i)
			changed = true
		}
		if remaining := removeTasksInColumn(s.Tasks, columnID); len(remaining) != len(s.Tasks) {
			s.Tasks = remaining
			changed = true
		}
		return changed
	})
}

// ApplyProjectUpdate replaces the project record.
func (e *Engine) ApplyProjectUpdate(projectID string, project board.Project) {
	e.commit(func(s *State) bool {
		if !s.accepts(projectID) || project.ID != projectID {
			return false
		}
		s.Project = &project
		return true
	})
}

func (s State) accepts(projectID string) bool {
	return projectID != "" && s.ProjectID == projectID
}
