package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/superemem/azwaryfocus/internal/domain/activity"
	"github.com/superemem/azwaryfocus/internal/domain/board"
	"github.com/superemem/azwaryfocus/internal/domain/kanban"
	"github.com/superemem/azwaryfocus/internal/domain/project"
	"github.com/superemem/azwaryfocus/internal/gateway"
	"github.com/stretchr/testify/require"
)

type boardStub struct {
	state     kanban.State
	loadFn    func(context.Context, string) error
	createFn  func(context.Context, board.NewTask) (*board.Task, error)
	updateFn  func(context.Context, string, board.TaskChanges) (*board.Task, error)
	moveFn    func(context.Context, string, string) error
	deleteFn  func(context.Context, string) error
	archiveFn func(context.Context) error
	moves     int
}

func (b *boardStub) Snapshot() kanban.State { return b.state }
func (b *boardStub) LoadProject(ctx context.Context, projectID string) error {
	return b.loadFn(ctx, projectID)
}
func (b *boardStub) CreateTask(ctx context.Context, in board.NewTask) (*board.Task, error) {
	return b.createFn(ctx, in)
}
func (b *boardStub) UpdateTask(ctx context.Context, taskID string, changes board.TaskChanges) (*board.Task, error) {
	return b.updateFn(ctx, taskID, changes)
}
func (b *boardStub) MoveTask(ctx context.Context, taskID, columnID string) error {
	b.moves++
	return b.moveFn(ctx, taskID, columnID)
}
func (b *boardStub) DeleteTask(ctx context.Context, taskID string) error {
	return b.deleteFn(ctx, taskID)
}
func (b *boardStub) ArchiveProject(ctx context.Context) error {
	return b.archiveFn(ctx)
}

type projectStub struct {
	listFn func(context.Context, string) ([]project.Summary, error)
}

func (p projectStub) ListForUser(ctx context.Context, userID string) ([]project.Summary, error) {
	return p.listFn(ctx, userID)
}

type activityStub struct {
	listFn func(context.Context, string, activity.ListOptions) ([]activity.Entry, error)
}

func (a activityStub) GetRecentActivity(ctx context.Context, userID string, opts activity.ListOptions) ([]activity.Entry, error) {
	return a.listFn(ctx, userID, opts)
}

type searchStub struct {
	searchFn func(context.Context, string, string) ([]board.Task, error)
}

func (s searchStub) SearchTasks(ctx context.Context, projectID, term string) ([]board.Task, error) {
	return s.searchFn(ctx, projectID, term)
}

func loadedState() kanban.State {
	return kanban.State{
		ProjectID: "p1",
		Project:   &board.Project{ID: "p1", Name: "Launch", Status: board.StatusActive},
		Columns: []board.Column{
			{ID: "c3", ProjectID: "p1", Name: "Done", Order: 3},
			{ID: "c1", ProjectID: "p1", Name: "To Do", Order: 1},
			{ID: "c2", ProjectID: "p1", Name: "In Progress", Order: 2},
		},
		Tasks: []board.Task{
			{ID: "t2", ProjectID: "p1", ColumnID: "c1", Title: "Write copy", Order: 2},
			{ID: "t1", ProjectID: "p1", ColumnID: "c1", Title: "Buy milk", Description: "oat", Order: 1},
			{ID: "t3", ProjectID: "p1", ColumnID: "c3", Title: "Milk the cow", Order: 1},
			{ID: "t4", ProjectID: "p1", ColumnID: "c9", Title: "Stray", Order: 1},
		},
		ProjectLead: "ani",
		TeamMembers: []string{"budi"},
	}
}

func newTestToolset(services Services) *toolset {
	return newToolset(services, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func requireAPIError(t *testing.T, err error, code string) *APIError {
	t.Helper()
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected APIError, got %v", err)
	require.Equal(t, code, apiErr.Code)
	return apiErr
}

func TestBoardToolsRequireOpenProject(t *testing.T) {
	ts := newTestToolset(Services{Board: &boardStub{}})
	ctx := context.Background()

	_, _, err := ts.getBoard(ctx, nil, GetBoardParams{})
	requireAPIError(t, err, "NO_ACTIVE_PROJECT")

	_, _, err = ts.boardStats(ctx, nil, BoardStatsParams{})
	requireAPIError(t, err, "NO_ACTIVE_PROJECT")

	_, _, err = ts.createTask(ctx, nil, CreateTaskParams{ColumnID: "c1", Title: "x"})
	requireAPIError(t, err, "NO_ACTIVE_PROJECT")
}

func TestOpenProjectReturnsBoard(t *testing.T) {
	stub := &boardStub{}
	stub.loadFn = func(_ context.Context, projectID string) error {
		require.Equal(t, "p1", projectID)
		stub.state = loadedState()
		return nil
	}
	ts := newTestToolset(Services{Board: stub})

	_, resp, err := ts.openProject(context.Background(), nil, OpenProjectParams{ProjectID: " p1 "})
	require.NoError(t, err)
	require.Equal(t, "Launch", resp.Project.Name)
	require.Equal(t, "ani", resp.ProjectLead)
	require.Equal(t, []string{"budi"}, resp.TeamMembers)

	require.Len(t, resp.Columns, 3)
	require.Equal(t, []string{"c1", "c2", "c3"}, []string{resp.Columns[0].ID, resp.Columns[1].ID, resp.Columns[2].ID})
	require.Len(t, resp.Columns[0].Tasks, 2)
	require.Equal(t, "t1", resp.Columns[0].Tasks[0].ID)
	require.Empty(t, resp.Columns[1].Tasks)

	require.Len(t, resp.Unplaced, 1)
	require.Equal(t, "t4", resp.Unplaced[0].ID)
	require.Equal(t, StatsResponse{TodoCount: 2, DoneCount: 1, TotalTasks: 3, ProgressPercent: 33}, resp.Stats)
}

func TestOpenProjectReportsLoadFailure(t *testing.T) {
	stub := &boardStub{}
	stub.loadFn = func(_ context.Context, projectID string) error {
		stub.state = kanban.State{ProjectID: projectID, Error: "permission denied for table tasks"}
		return nil
	}
	ts := newTestToolset(Services{Board: stub})

	_, _, err := ts.openProject(context.Background(), nil, OpenProjectParams{ProjectID: "p1"})
	apiErr := requireAPIError(t, err, "LOAD_FAILED")
	require.Equal(t, "permission denied for table tasks", apiErr.Message)
}

func TestOpenProjectWithoutSession(t *testing.T) {
	stub := &boardStub{loadFn: func(context.Context, string) error { return kanban.ErrNotAuthenticated }}
	ts := newTestToolset(Services{Board: stub})

	_, _, err := ts.openProject(context.Background(), nil, OpenProjectParams{ProjectID: "p1"})
	requireAPIError(t, err, "NOT_AUTHENTICATED")

	_, _, err = ts.openProject(context.Background(), nil, OpenProjectParams{})
	requireAPIError(t, err, "INVALID_INPUT")
}

func TestGetBoardSingleColumn(t *testing.T) {
	ts := newTestToolset(Services{Board: &boardStub{state: loadedState()}})

	_, resp, err := ts.getBoard(context.Background(), nil, GetBoardParams{ColumnID: "c3"})
	require.NoError(t, err)
	require.Len(t, resp.Columns, 1)
	require.Equal(t, "Done", resp.Columns[0].Name)
	require.Empty(t, resp.Unplaced)

	_, _, err = ts.getBoard(context.Background(), nil, GetBoardParams{ColumnID: "nope"})
	requireAPIError(t, err, "NOT_FOUND")
}

func TestSearchTasksLocalAndRemote(t *testing.T) {
	var remoteTerm string
	ts := newTestToolset(Services{
		Board: &boardStub{state: loadedState()},
		Search: searchStub{searchFn: func(_ context.Context, projectID, term string) ([]board.Task, error) {
			require.Equal(t, "p1", projectID)
			remoteTerm = term
			return []board.Task{{ID: "t9", Title: "Archived milk"}}, nil
		}},
	})
	ctx := context.Background()

	_, resp, err := ts.searchTasks(ctx, nil, SearchTasksParams{Query: "MILK"})
	require.NoError(t, err)
	require.Len(t, resp.Tasks, 2)
	require.ElementsMatch(t, []string{"t1", "t3"}, []string{resp.Tasks[0].ID, resp.Tasks[1].ID})
	require.Empty(t, remoteTerm)

	_, resp, err = ts.searchTasks(ctx, nil, SearchTasksParams{Query: "milk", Remote: true})
	require.NoError(t, err)
	require.Equal(t, "milk", remoteTerm)
	require.Len(t, resp.Tasks, 1)
	require.Equal(t, "t9", resp.Tasks[0].ID)

	_, _, err = ts.searchTasks(ctx, nil, SearchTasksParams{Query: "  "})
	requireAPIError(t, err, "INVALID_INPUT")
}

func TestCreateTaskResolvesColumnByName(t *testing.T) {
	var got board.NewTask
	stub := &boardStub{state: loadedState()}
	stub.createFn = func(_ context.Context, in board.NewTask) (*board.Task, error) {
		got = in
		return &board.Task{ID: "t5", ProjectID: "p1", ColumnID: in.ColumnID, Title: in.Title, Order: in.Order}, nil
	}
	ts := newTestToolset(Services{Board: stub})
	ctx := withUserID(context.Background(), "u1")

	_, resp, err := ts.createTask(ctx, nil, CreateTaskParams{ColumnName: "to do", Title: " Call mom "})
	require.NoError(t, err)
	require.Equal(t, "c1", got.ColumnID)
	require.Equal(t, "Call mom", got.Title)
	require.Equal(t, "u1", got.CreatedBy)
	require.Equal(t, float64(3), got.Order)
	require.Equal(t, "t5", resp.Task.ID)

	_, _, err = ts.createTask(ctx, nil, CreateTaskParams{ColumnName: "backlog", Title: "x"})
	requireAPIError(t, err, "NOT_FOUND")

	_, _, err = ts.createTask(ctx, nil, CreateTaskParams{Title: "x"})
	requireAPIError(t, err, "INVALID_INPUT")
}

func TestUpdateTaskPassesOnlyGivenFields(t *testing.T) {
	title := "Buy oat milk"
	stub := &boardStub{state: loadedState()}
	stub.updateFn = func(_ context.Context, taskID string, changes board.TaskChanges) (*board.Task, error) {
		require.Equal(t, "t1", taskID)
		require.Equal(t, &title, changes.Title)
		require.Nil(t, changes.Description)
		require.Nil(t, changes.ColumnID)
		require.True(t, changes.AssignedTo.IsZero())
		require.True(t, changes.DueDate.IsZero())
		return &board.Task{ID: "t1", ColumnID: "c1", Title: title}, nil
	}
	ts := newTestToolset(Services{Board: stub})

	_, resp, err := ts.updateTask(context.Background(), nil, UpdateTaskParams{TaskID: "t1", Title: &title})
	require.NoError(t, err)
	require.Equal(t, title, resp.Task.Title)
}

func TestUpdateTaskClearsAssigneeAndDueDate(t *testing.T) {
	due := "2026-11-01"
	stub := &boardStub{state: loadedState()}
	stub.updateFn = func(_ context.Context, _ string, changes board.TaskChanges) (*board.Task, error) {
		require.True(t, changes.AssignedTo.IsNull())
		require.True(t, changes.DueDate.IsNull())
		return &board.Task{ID: "t1", ColumnID: "c1", Title: "Buy milk"}, nil
	}
	ts := newTestToolset(Services{Board: stub})

	_, resp, err := ts.updateTask(context.Background(), nil, UpdateTaskParams{
		TaskID:        "t1",
		ClearAssignee: true,
		DueDate:       &due,
		ClearDueDate:  true,
	})
	require.NoError(t, err)
	require.Empty(t, resp.Task.AssignedTo)
	require.Empty(t, resp.Task.DueDate)
}

func TestMoveTask(t *testing.T) {
	t.Run("by name", func(t *testing.T) {
		stub := &boardStub{state: loadedState()}
		stub.moveFn = func(_ context.Context, taskID, columnID string) error {
			require.Equal(t, "t1", taskID)
			require.Equal(t, "c3", columnID)
			return nil
		}
		ts := newTestToolset(Services{Board: stub})

		_, resp, err := ts.moveTask(context.Background(), nil, MoveTaskParams{TaskID: "t1", ColumnName: "DONE"})
		require.NoError(t, err)
		require.Equal(t, MoveTaskResponse{TaskID: "t1", ColumnID: "c3", Column: "Done"}, resp)
	})

	t.Run("unknown column never reaches the board", func(t *testing.T) {
		stub := &boardStub{state: loadedState()}
		ts := newTestToolset(Services{Board: stub})

		_, _, err := ts.moveTask(context.Background(), nil, MoveTaskParams{TaskID: "t1", ColumnID: "c9"})
		requireAPIError(t, err, "NOT_FOUND")
		require.Zero(t, stub.moves)
	})

	t.Run("remote failure", func(t *testing.T) {
		stub := &boardStub{state: loadedState()}
		stub.moveFn = func(context.Context, string, string) error {
			return &kanban.RemoteOperationError{Op: "move task", Message: "timeout", Err: &gateway.Error{Status: 504}}
		}
		ts := newTestToolset(Services{Board: stub})

		_, _, err := ts.moveTask(context.Background(), nil, MoveTaskParams{TaskID: "t1", ColumnID: "c2"})
		apiErr := requireAPIError(t, err, "REMOTE_FAILURE")
		require.Equal(t, "timeout", apiErr.Message)
		require.Equal(t, 1, stub.moves)
	})
}

func TestDeleteTask(t *testing.T) {
	stub := &boardStub{state: loadedState()}
	stub.deleteFn = func(_ context.Context, taskID string) error {
		require.Equal(t, "t2", taskID)
		return nil
	}
	ts := newTestToolset(Services{Board: stub})

	_, resp, err := ts.deleteTask(context.Background(), nil, DeleteTaskParams{TaskID: "t2"})
	require.NoError(t, err)
	require.True(t, resp.Deleted)
}

func TestArchiveProjectRequiresConfirm(t *testing.T) {
	archived := false
	stub := &boardStub{state: loadedState()}
	stub.archiveFn = func(context.Context) error {
		archived = true
		return nil
	}
	ts := newTestToolset(Services{Board: stub})

	_, _, err := ts.archiveProject(context.Background(), nil, ArchiveProjectParams{})
	requireAPIError(t, err, "INVALID_INPUT")
	require.False(t, archived)

	_, resp, err := ts.archiveProject(context.Background(), nil, ArchiveProjectParams{Confirm: true})
	require.NoError(t, err)
	require.Equal(t, ArchiveProjectResponse{ProjectID: "p1", Archived: true}, resp)
	require.True(t, archived)
}

func TestListProjects(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ts := newTestToolset(Services{
		Board: &boardStub{},
		Projects: projectStub{listFn: func(_ context.Context, userID string) ([]project.Summary, error) {
			require.Equal(t, "u1", userID)
			return []project.Summary{{
				Project: board.Project{ID: "p1", Name: "Launch", Status: board.StatusActive, CreatedAt: created},
				Role:    project.RoleOwner,
			}}, nil
		}},
	})

	_, resp, err := ts.listProjects(withUserID(context.Background(), "u1"), nil, ListProjectsParams{})
	require.NoError(t, err)
	require.Equal(t, []ProjectResponse{{
		ID:        "p1",
		Name:      "Launch",
		Status:    "active",
		Role:      "owner",
		CreatedAt: "2026-03-01T10:00:00Z",
	}}, resp.Projects)

	_, _, err = ts.listProjects(context.Background(), nil, ListProjectsParams{})
	requireAPIError(t, err, "NOT_AUTHENTICATED")
}

func TestRecentActivity(t *testing.T) {
	taskID := "t1"
	var got activity.ListOptions
	ts := newTestToolset(Services{
		Board: &boardStub{},
		Activity: activityStub{listFn: func(_ context.Context, userID string, opts activity.ListOptions) ([]activity.Entry, error) {
			require.Equal(t, "u1", userID)
			got = opts
			return []activity.Entry{{
				ID:        7,
				ProjectID: "p1",
				TaskID:    &taskID,
				Type:      activity.TypeTaskMoveReverted,
				Summary:   "Buy milk",
				CreatedAt: time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC),
			}}, nil
		}},
	})
	ctx := withUserID(context.Background(), "u1")

	_, resp, err := ts.recentActivity(ctx, nil, RecentActivityParams{
		ProjectID: "p1",
		Type:      "task_move_reverted",
		Since:     "2026-03-01T00:00:00Z",
		Limit:     5,
	})
	require.NoError(t, err)
	require.Equal(t, "p1", got.ProjectID)
	require.Equal(t, 5, got.Limit)
	require.NotNil(t, got.Type)
	require.Equal(t, activity.TypeTaskMoveReverted, *got.Type)
	require.NotNil(t, got.Since)
	require.Nil(t, got.TaskID)

	require.Len(t, resp.Entries, 1)
	require.Equal(t, "t1", resp.Entries[0].TaskID)
	require.Equal(t, "2026-03-02T08:30:00Z", resp.Entries[0].CreatedAt)

	_, _, err = ts.recentActivity(ctx, nil, RecentActivityParams{Since: "yesterday"})
	requireAPIError(t, err, "INVALID_INPUT")
}

func TestRecentActivityWithoutJournal(t *testing.T) {
	ts := newTestToolset(Services{Board: &boardStub{}})

	_, _, err := ts.recentActivity(context.Background(), nil, RecentActivityParams{})
	require.ErrorIs(t, err, errJournalDisabled)
}

func TestMapError(t *testing.T) {
	require.Nil(t, MapError(nil))
	require.Nil(t, MapError(errors.New("boom")))

	apiErr := MapError(project.ErrProjectNotFound)
	require.Equal(t, "PROJECT_NOT_FOUND", apiErr.Code)
	require.ErrorIs(t, apiErr, project.ErrProjectNotFound)

	apiErr = MapError(&kanban.RemoteOperationError{Op: "delete task", Message: "row locked"})
	require.Equal(t, "REMOTE_FAILURE", apiErr.Code)
	require.Equal(t, map[string]string{"operation": "delete task"}, apiErr.Details)
	require.Equal(t, "REMOTE_FAILURE: row locked (Retry later)", apiErr.Error())
}
