package kanban

import (
	"context"
	"fmt"
	"strings"

	"github.com/superemem/azwaryfocus/internal/domain/activity"
	"github.com/superemem/azwaryfocus/internal/domain/board"
	"github.com/superemem/azwaryfocus/internal/feedback"
)

// activeProject returns the open project id or the precondition error.
func (e *Engine) activeProject() (string, error) {
	if e.gateway == nil {
		return "", ErrNotAuthenticated
	}
	s := e.Snapshot()
	if s.ProjectID == "" || s.Project == nil {
		return "", ErrNoActiveProject
	}
	return s.ProjectID, nil
}

// CreateTask inserts a task into the open project. The task appears locally
// only once the server has returned the stored row.
func (e *Engine) CreateTask(ctx context.Context, in board.NewTask) (*board.Task, error) {
	projectID, err := e.activeProject()
	if err != nil {
		return nil, e.fail(feedback.KeyErrCreateTask, err)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, e.fail(feedback.KeyErrCreateTask, fmt.Errorf("title is required: %w", ErrInvalidInput))
	}
	if in.CreatedBy == "" {
		in.CreatedBy = e.userID
	}

	task, err := e.gateway.InsertTask(ctx, projectID, in)
	if err != nil {
		return nil, e.fail(feedback.KeyErrCreateTask, remoteError("create task", err))
	}

	e.commit(func(s *State) bool {
		if s.ProjectID != projectID {
			return false
		}
		s.Tasks = upsertTask(s.Tasks, *task)
		return true
	})

	e.sink.Notify(feedback.KindSuccess, e.messages.Text(feedback.KeyTitleTaskCreated), e.messages.Text(feedback.KeyTaskCreated, task.Title))
	e.record(ctx, activity.TypeTaskCreated, projectID, task.ID, task.Title, map[string]string{"column_id": task.ColumnID})
	return task, nil
}

// UpdateTask applies changes remotely and replaces the local task with the
// returned row. A task no longer held locally is left absent.
func (e *Engine) UpdateTask(ctx context.Context, taskID string, changes board.TaskChanges) (*board.Task, error) {
	projectID, err := e.activeProject()
	if err != nil {
		return nil, e.fail(feedback.KeyErrUpdateTask, err)
	}
	if changes.IsEmpty() {
		return nil, e.fail(feedback.KeyErrUpdateTask, fmt.Errorf("no fields to update: %w", ErrInvalidInput))
	}

	task, err := e.gateway.UpdateTask(ctx, taskID, changes)
	if err != nil {
		return nil, e.fail(feedback.KeyErrUpdateTask, remoteError("update task", err))
	}

	replaced := e.commit(func(s *State) bool {
		if s.ProjectID != projectID {
			return false
		}
		i, ok := s.findTask(task.ID)
		if !ok {
			return false
		}
		s.Tasks = replaceTaskAt(s.Tasks, i, *task)
		return true
	})
	if !replaced {
		e.logger.Info("task update not applied locally", "task_id", taskID, "reason", ErrReconciliationSkipped)
	}

	e.sink.Notify(feedback.KindSuccess, e.messages.Text(feedback.KeyTitleTaskUpdated), e.messages.Text(feedback.KeyTaskUpdated, task.Title))
	e.record(ctx, activity.TypeTaskUpdated, projectID, task.ID, task.Title, changes)
	return task, nil
}

// DeleteTask removes the task locally, then remotely. On failure the task
// list is restored to what it was before the call.
func (e *Engine) DeleteTask(ctx context.Context, taskID string) error {
	projectID, err := e.activeProject()
	if err != nil {
		return e.fail(feedback.KeyErrDeleteTask, err)
	}

	title := e.messages.Text(feedback.KeyTaskFallbackTitle)
	var before []board.Task
	e.commit(func(s *State) bool {
		if s.ProjectID != projectID {
			return false
		}
		before = s.Tasks
		i, ok := s.findTask(taskID)
		if !ok {
			return false
		}
		if t := s.Tasks[i].Title; t != "" {
			title = t
		}
		s.Tasks = removeTaskAt(s.Tasks, i)
		return true
	})

	if err := e.gateway.DeleteTask(ctx, taskID); err != nil {
		e.restoreTasks(projectID, before)
		e.record(ctx, activity.TypeTaskDeleteReverted, projectID, taskID, title, map[string]string{"error": err.Error()})
		return e.fail(feedback.KeyErrDeleteTask, remoteError("delete task", err))
	}

	e.sink.Notify(feedback.KindSuccess, e.messages.Text(feedback.KeyTitleTaskDeleted), e.messages.Text(feedback.KeyTaskDeleted, title))
	e.record(ctx, activity.TypeTaskDeleted, projectID, taskID, title, nil)
	return nil
}

// MoveTask puts a task into another column. Only the column changes, both
// locally and in the request sent to the gateway. On failure the task list
// is restored to what it was before the call.
func (e *Engine) MoveTask(ctx context.Context, taskID, columnID string) error {
	projectID, err := e.activeProject()
	if err != nil {
		return e.fail(feedback.KeyErrMoveTask, err)
	}

	var (
		task   board.Task
		column board.Column
		before []board.Task
		lookup error
	)
	e.commit(func(s *State) bool {
		if s.ProjectID != projectID {
			lookup = ErrNoActiveProject
			return false
		}
		ti, ok := s.findTask(taskID)
		if !ok {
			lookup = fmt.Errorf("task %s: %w", taskID, ErrEntityNotFound)
			return false
		}
		ci, ok := s.findColumn(columnID)
		if !ok {
			lookup = fmt.Errorf("column %s: %w", columnID, ErrEntityNotFound)
			return false
		}
		task, column, before = s.Tasks[ti], s.Columns[ci], s.Tasks
		moved := task
		moved.ColumnID = columnID
		s.Tasks = replaceTaskAt(s.Tasks, ti, moved)
		return true
	})
	if lookup != nil {
		return e.fail(feedback.KeyErrMoveTask, lookup)
	}

	if err := e.gateway.MoveTask(ctx, taskID, columnID); err != nil {
		e.restoreTasks(projectID, before)
		e.record(ctx, activity.TypeTaskMoveReverted, projectID, taskID, task.Title, map[string]string{"from": task.ColumnID, "to": columnID})
		return e.fail(feedback.KeyErrMoveTask, remoteError("move task", err))
	}

	kind, text := e.arrival(task.Title, column.Name)
	e.sink.Notify(kind, e.messages.Text(feedback.KeyTitleTaskMoved), text)
	e.record(ctx, activity.TypeTaskMoved, projectID, taskID, task.Title, map[string]string{"from": task.ColumnID, "to": columnID})
	return nil
}

// arrival picks the notification for a task landing in a column.
func (e *Engine) arrival(title, columnName string) (feedback.Kind, string) {
	name := strings.ToLower(columnName)
	switch {
	case strings.Contains(name, ColumnInProgress):
		return feedback.KindCelebrate, e.messages.Text(feedback.KeyTaskInProgress, title)
	case strings.Contains(name, ColumnDone):
		return feedback.KindCelebrate, e.messages.Text(feedback.KeyTaskCompleted, title)
	default:
		return feedback.KindInfo, e.messages.Text(feedback.KeyTaskMoved, title, columnName)
	}
}

func (e *Engine) restoreTasks(projectID string, tasks []board.Task) {
	e.commit(func(s *State) bool {
		if s.ProjectID != projectID {
			return false
		}
		s.Tasks = tasks
		return true
	})
}

// ArchiveProject archives the open project remotely and resets the engine.
func (e *Engine) ArchiveProject(ctx context.Context) error {
	projectID, err := e.activeProject()
	if err != nil {
		return e.fail(feedback.KeyErrArchiveProject, err)
	}
	name := ""
	if p := e.Snapshot().Project; p != nil {
		name = p.Name
	}

	if err := e.gateway.ArchiveProject(ctx, projectID); err != nil {
		return e.fail(feedback.KeyErrArchiveProject, remoteError("archive project", err))
	}

	e.sink.Notify(feedback.KindSuccess, e.messages.Text(feedback.KeyTitleProjectArchived), e.messages.Text(feedback.KeyProjectArchived, name))
	e.record(ctx, activity.TypeProjectArchived, projectID, "", name, nil)
	e.Reset()
	return nil
}

// RefreshMembers re-reads the project lead and members. On failure the lead
// falls back to a placeholder name and the member list is cleared.
func (e *Engine) RefreshMembers(ctx context.Context) error {
	projectID, err := e.activeProject()
	if err != nil {
		return err
	}
	unknown := e.messages.Text(feedback.KeyProjectLeadUnknown)

	roster, err := e.gateway.ProjectRoster(ctx, projectID)
	if err != nil {
		e.logger.Warn("loading project members", "project_id", projectID, "error", err)
		e.commit(func(s *State) bool {
			if s.ProjectID != projectID {
				return false
			}
			s.ProjectLead = unknown
			s.TeamMembers = nil
			return true
		})
		return remoteError("load members", err)
	}

	e.commit(func(s *State) bool {
		if s.ProjectID != projectID {
			return false
		}
		s.ProjectLead = roster.LeadName(unknown)
		s.TeamMembers = roster.TeamMembers()
		return true
	})
	return nil
}
