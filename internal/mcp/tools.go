package mcp

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/superemem/azwaryfocus/internal/domain/activity"
	"github.com/superemem/azwaryfocus/internal/domain/board"
	"github.com/superemem/azwaryfocus/internal/domain/kanban"
	"github.com/superemem/azwaryfocus/internal/domain/session"
)

// errJournalDisabled is returned by recent_activity without a journal.
var errJournalDisabled = errors.New("activity journal is disabled")

type toolset struct {
	services Services
	logger   *slog.Logger
}

func newToolset(services Services, logger *slog.Logger) *toolset {
	return &toolset{services: services, logger: logger}
}

func registerTools(server *sdkmcp.Server, t *toolset) {
	// Projects
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List the active projects you own or have joined, newest first",
	}, t.listProjects)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "open_project",
		Description: "Load a project board and follow its live changes. Other board tools act on the open project",
	}, t.openProject)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "archive_project",
		Description: "Archive the open project and close it",
	}, t.archiveProject)

	// Board views
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_board",
		Description: "Get the open board: columns in order with their tasks, lead, members and stats",
	}, t.getBoard)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "board_stats",
		Description: "Count tasks in the to do, in progress and done columns of the open board",
	}, t.boardStats)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "search_tasks",
		Description: "Find tasks whose title or description contains the query",
	}, t.searchTasks)

	// Mutations
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_task",
		Description: "Create a task in a column of the open board",
	}, t.createTask)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_task",
		Description: "Change fields of a task. Omitted fields are left untouched",
	}, t.updateTask)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "move_task",
		Description: "Move a task to another column",
	}, t.moveTask)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_task",
		Description: "Delete a task",
	}, t.deleteTask)

	// Journal
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "recent_activity",
		Description: "List recent sync outcomes recorded on this machine, newest first",
	}, t.recentActivity)
}

func (t *toolset) listProjects(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ListProjectsParams) (*sdkmcp.CallToolResult, ListProjectsResponse, error) {
	userID := getUserID(ctx)
	if userID == "" {
		return nil, ListProjectsResponse{}, toolError(session.ErrNotAuthenticated)
	}
	projects, err := t.services.Projects.ListForUser(ctx, userID)
	if err != nil {
		return nil, ListProjectsResponse{}, toolError(err)
	}
	resp := ListProjectsResponse{Projects: make([]ProjectResponse, 0, len(projects))}
	for _, p := range projects {
		resp.Projects = append(resp.Projects, summaryResponse(p))
	}
	return nil, resp, nil
}

func (t *toolset) openProject(ctx context.Context, _ *sdkmcp.CallToolRequest, in OpenProjectParams) (*sdkmcp.CallToolResult, BoardResponse, error) {
	projectID := strings.TrimSpace(in.ProjectID)
	if projectID == "" {
		return nil, BoardResponse{}, toolError(fmt.Errorf("project_id is required: %w", kanban.ErrInvalidInput))
	}
	if err := t.services.Board.LoadProject(ctx, projectID); err != nil {
		return nil, BoardResponse{}, toolError(err)
	}

	s := t.services.Board.Snapshot()
	if s.ProjectID != projectID {
		return nil, BoardResponse{}, fmt.Errorf("project %s was closed while loading", projectID)
	}
	if s.Error != "" {
		return nil, BoardResponse{}, &APIError{Code: "LOAD_FAILED", Message: s.Error, RecoveryHint: "Check the project id or retry"}
	}
	if s.Loading {
		return nil, BoardResponse{}, &APIError{Code: "LOADING", Message: "project is still loading", RecoveryHint: "Call get_board shortly"}
	}
	return nil, boardResponse(s, ""), nil
}

func (t *toolset) getBoard(_ context.Context, _ *sdkmcp.CallToolRequest, in GetBoardParams) (*sdkmcp.CallToolResult, BoardResponse, error) {
	s, err := t.openBoard()
	if err != nil {
		return nil, BoardResponse{}, toolError(err)
	}
	if in.ColumnID != "" && !slices.ContainsFunc(s.Columns, func(c board.Column) bool { return c.ID == in.ColumnID }) {
		return nil, BoardResponse{}, toolError(fmt.Errorf("column %s: %w", in.ColumnID, kanban.ErrEntityNotFound))
	}
	return nil, boardResponse(s, in.ColumnID), nil
}

func (t *toolset) boardStats(_ context.Context, _ *sdkmcp.CallToolRequest, _ BoardStatsParams) (*sdkmcp.CallToolResult, StatsResponse, error) {
	s, err := t.openBoard()
	if err != nil {
		return nil, StatsResponse{}, toolError(err)
	}
	return nil, statsResponse(s.Stats()), nil
}

func (t *toolset) searchTasks(ctx context.Context, _ *sdkmcp.CallToolRequest, in SearchTasksParams) (*sdkmcp.CallToolResult, SearchTasksResponse, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, SearchTasksResponse{}, toolError(fmt.Errorf("query is required: %w", kanban.ErrInvalidInput))
	}
	s, err := t.openBoard()
	if err != nil {
		return nil, SearchTasksResponse{}, toolError(err)
	}

	var tasks []board.Task
	if in.Remote && t.services.Search != nil {
		t.logger.Debug("searching tasks remotely", "project_id", s.ProjectID, "query", query)
		tasks, err = t.services.Search.SearchTasks(ctx, s.ProjectID, query)
		if err != nil {
			return nil, SearchTasksResponse{}, fmt.Errorf("searching tasks: %w", err)
		}
	} else {
		s.SearchQuery = query
		tasks = s.FilteredTasks()
	}
	return nil, SearchTasksResponse{Query: query, Tasks: taskResponses(sortedTasks(tasks))}, nil
}

func (t *toolset) createTask(ctx context.Context, _ *sdkmcp.CallToolRequest, in CreateTaskParams) (*sdkmcp.CallToolResult, TaskResult, error) {
	s, err := t.openBoard()
	if err != nil {
		return nil, TaskResult{}, toolError(err)
	}
	column, err := resolveColumn(s, in.ColumnID, in.ColumnName)
	if err != nil {
		return nil, TaskResult{}, toolError(err)
	}

	task, err := t.services.Board.CreateTask(ctx, board.NewTask{
		ColumnID:    column.ID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		AssignedTo:  in.AssignedTo,
		CreatedBy:   getUserID(ctx),
		Order:       nextOrder(s.TasksByColumn(column.ID)),
		Priority:    in.Priority,
		DueDate:     in.DueDate,
	})
	if err != nil {
		return nil, TaskResult{}, toolError(err)
	}
	return nil, TaskResult{Task: taskResponse(*task)}, nil
}

func (t *toolset) updateTask(ctx context.Context, _ *sdkmcp.CallToolRequest, in UpdateTaskParams) (*sdkmcp.CallToolResult, TaskResult, error) {
	task, err := t.services.Board.UpdateTask(ctx, in.TaskID, board.TaskChanges{
		Title:        in.Title,
		Description:  in.Description,
		AssignedTo:   nullable(in.AssignedTo, in.ClearAssignee),
		Order:        in.Order,
		Priority:     in.Priority,
		DueDate:      nullable(in.DueDate, in.ClearDueDate),
		SessionCount: in.SessionCount,
	})
	if err != nil {
		return nil, TaskResult{}, toolError(err)
	}
	return nil, TaskResult{Task: taskResponse(*task)}, nil
}

func (t *toolset) moveTask(ctx context.Context, _ *sdkmcp.CallToolRequest, in MoveTaskParams) (*sdkmcp.CallToolResult, MoveTaskResponse, error) {
	s, err := t.openBoard()
	if err != nil {
		return nil, MoveTaskResponse{}, toolError(err)
	}
	column, err := resolveColumn(s, in.ColumnID, in.ColumnName)
	if err != nil {
		return nil, MoveTaskResponse{}, toolError(err)
	}
	if err := t.services.Board.MoveTask(ctx, in.TaskID, column.ID); err != nil {
		return nil, MoveTaskResponse{}, toolError(err)
	}
	return nil, MoveTaskResponse{TaskID: in.TaskID, ColumnID: column.ID, Column: column.Name}, nil
}

func (t *toolset) deleteTask(ctx context.Context, _ *sdkmcp.CallToolRequest, in DeleteTaskParams) (*sdkmcp.CallToolResult, DeleteTaskResponse, error) {
	if err := t.services.Board.DeleteTask(ctx, in.TaskID); err != nil {
		return nil, DeleteTaskResponse{}, toolError(err)
	}
	return nil, DeleteTaskResponse{TaskID: in.TaskID, Deleted: true}, nil
}

func (t *toolset) archiveProject(ctx context.Context, _ *sdkmcp.CallToolRequest, in ArchiveProjectParams) (*sdkmcp.CallToolResult, ArchiveProjectResponse, error) {
	if !in.Confirm {
		return nil, ArchiveProjectResponse{}, toolError(fmt.Errorf("confirm must be true: %w", kanban.ErrInvalidInput))
	}
	projectID := t.services.Board.Snapshot().ProjectID
	if err := t.services.Board.ArchiveProject(ctx); err != nil {
		return nil, ArchiveProjectResponse{}, toolError(err)
	}
	return nil, ArchiveProjectResponse{ProjectID: projectID, Archived: true}, nil
}

func (t *toolset) recentActivity(ctx context.Context, _ *sdkmcp.CallToolRequest, in RecentActivityParams) (*sdkmcp.CallToolResult, RecentActivityResponse, error) {
	if t.services.Activity == nil {
		return nil, RecentActivityResponse{}, errJournalDisabled
	}
	opts := activity.ListOptions{ProjectID: in.ProjectID, Limit: in.Limit}
	if in.TaskID != "" {
		opts.TaskID = &in.TaskID
	}
	if in.Type != "" {
		typ := activity.Type(in.Type)
		opts.Type = &typ
	}
	if in.Since != "" {
		since, err := time.Parse(time.RFC3339, in.Since)
		if err != nil {
			return nil, RecentActivityResponse{}, toolError(fmt.Errorf("since: %w", activity.ErrInvalidInput))
		}
		opts.Since = &since
	}

	entries, err := t.services.Activity.GetRecentActivity(ctx, getUserID(ctx), opts)
	if err != nil {
		return nil, RecentActivityResponse{}, toolError(err)
	}
	resp := RecentActivityResponse{Entries: make([]ActivityResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, activityResponse(e))
	}
	return nil, resp, nil
}

// openBoard returns the loaded board or ErrNoActiveProject.
func (t *toolset) openBoard() (kanban.State, error) {
	s := t.services.Board.Snapshot()
	if s.ProjectID == "" || s.Project == nil {
		return kanban.State{}, kanban.ErrNoActiveProject
	}
	return s, nil
}

// resolveColumn prefers the id and falls back to a case-insensitive name.
func resolveColumn(s kanban.State, id, name string) (board.Column, error) {
	switch {
	case id != "":
		for _, c := range s.Columns {
			if c.ID == id {
				return c, nil
			}
		}
		return board.Column{}, fmt.Errorf("column %s: %w", id, kanban.ErrEntityNotFound)
	case strings.TrimSpace(name) != "":
		if c, ok := s.FindColumnByName(name); ok {
			return c, nil
		}
		return board.Column{}, fmt.Errorf("column %q: %w", name, kanban.ErrEntityNotFound)
	default:
		return board.Column{}, fmt.Errorf("column_id or column_name is required: %w", kanban.ErrInvalidInput)
	}
}

// nextOrder places a new task after the last one in its column.
func nextOrder(tasks []board.Task) float64 {
	var last float64
	for _, t := range tasks {
		last = max(last, t.Order)
	}
	return last + 1
}

func sortedColumns(columns []board.Column) []board.Column {
	out := slices.Clone(columns)
	slices.SortStableFunc(out, func(a, b board.Column) int { return cmp.Compare(a.Order, b.Order) })
	return out
}

func sortedTasks(tasks []board.Task) []board.Task {
	out := slices.Clone(tasks)
	slices.SortStableFunc(out, func(a, b board.Task) int { return cmp.Compare(a.Order, b.Order) })
	return out
}
