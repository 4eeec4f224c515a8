package functional_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
	"github.com/superemem/azwaryfocus/internal/domain/activity"
	"github.com/superemem/azwaryfocus/internal/domain/board"
	"github.com/superemem/azwaryfocus/internal/mcp"
	"github.com/superemem/azwaryfocus/internal/testserver"
)

func newServer(t *testing.T) *testserver.TestServer {
	t.Helper()
	ts := testserver.New(t, "token", "u-lead")
	b := ts.Backend
	b.AddProject(board.Project{ID: "p1", Name: "Launch", CreatedBy: "u-lead"}, board.ProfileRef{ID: "u-lead", Username: "ani"})
	b.AddMember("p1", board.ProfileRef{ID: "u-member", Username: "budi"})
	b.AddColumn(board.Column{ID: "c1", ProjectID: "p1", Name: "To Do", Order: 1})
	b.AddColumn(board.Column{ID: "c2", ProjectID: "p1", Name: "In Progress", Order: 2})
	b.AddColumn(board.Column{ID: "c3", ProjectID: "p1", Name: "Done", Order: 3})
	b.AddTask(board.Task{ID: "t1", ProjectID: "p1", ColumnID: "c1", Title: "Draft copy", Description: "landing page", Order: 1})
	b.AddTask(board.Task{ID: "t2", ProjectID: "p1", ColumnID: "c3", Title: "Pick a name", Order: 1})
	return ts
}

// callTool calls name and decodes the structured result into out.
func callTool(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any, out any) {
	t.Helper()
	result := callToolRaw(t, session, name, args)
	require.False(t, result.IsError, "Tool error: %s", toolText(result))
	if out == nil {
		return
	}
	data, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out))
}

func callToolRaw(t *testing.T, session *sdkmcp.ClientSession, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	result, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return result
}

func toolText(result *sdkmcp.CallToolResult) string {
	for _, c := range result.Content {
		if text, ok := c.(*sdkmcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}

func TestFunctional_Authentication(t *testing.T) {
	ts := newServer(t)

	session := ts.ConnectWithToken(t, "wrong")
	_, err := session.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: "list_projects"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unauthorized")

	// Health stays open.
	resp, err := http.Get(ts.Server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFunctional_OpenProjectAndBoard(t *testing.T) {
	ts := newServer(t)
	session := ts.Connect(t)

	result := callToolRaw(t, session, "get_board", nil)
	require.True(t, result.IsError)
	require.Contains(t, toolText(result), "NO_ACTIVE_PROJECT")

	var listed mcp.ListProjectsResponse
	callTool(t, session, "list_projects", nil, &listed)
	require.Len(t, listed.Projects, 1)
	require.Equal(t, "owner", listed.Projects[0].Role)

	var opened mcp.BoardResponse
	callTool(t, session, "open_project", map[string]any{"project_id": "p1"}, &opened)
	require.Equal(t, "Launch", opened.Project.Name)
	require.Equal(t, "ani", opened.ProjectLead)
	require.Equal(t, []string{"budi"}, opened.TeamMembers)
	require.Len(t, opened.Columns, 3)
	require.Equal(t, "To Do", opened.Columns[0].Name)
	require.Equal(t, mcp.StatsResponse{TodoCount: 1, DoneCount: 1, TotalTasks: 2, ProgressPercent: 50}, opened.Stats)

	var stats mcp.StatsResponse
	callTool(t, session, "board_stats", nil, &stats)
	require.Equal(t, opened.Stats, stats)
}

func TestFunctional_TaskWorkflow(t *testing.T) {
	ts := newServer(t)
	session := ts.Connect(t)
	callTool(t, session, "open_project", map[string]any{"project_id": "p1"}, nil)

	var created mcp.TaskResult
	callTool(t, session, "create_task", map[string]any{
		"column_name": "to do",
		"title":       "Write release notes",
		"priority":    "high",
	}, &created)
	require.NotEmpty(t, created.Task.ID)
	require.Equal(t, "c1", created.Task.ColumnID)
	require.Equal(t, float64(2), created.Task.Order)
	stored, ok := ts.Backend.Task(created.Task.ID)
	require.True(t, ok)
	require.Equal(t, "u-lead", stored.CreatedBy)

	var moved mcp.MoveTaskResponse
	callTool(t, session, "move_task", map[string]any{"task_id": "t1", "column_name": "In Progress"}, &moved)
	require.Equal(t, "c2", moved.ColumnID)
	stored, _ = ts.Backend.Task("t1")
	require.Equal(t, "c2", stored.ColumnID)

	var updated mcp.TaskResult
	callTool(t, session, "update_task", map[string]any{"task_id": "t1", "session_count": 3}, &updated)
	require.Equal(t, 3, updated.Task.SessionCount)
	require.Equal(t, "c2", updated.Task.ColumnID)

	var deleted mcp.DeleteTaskResponse
	callTool(t, session, "delete_task", map[string]any{"task_id": created.Task.ID}, &deleted)
	require.True(t, deleted.Deleted)
	_, ok = ts.Backend.Task(created.Task.ID)
	require.False(t, ok)

	var stats mcp.StatsResponse
	callTool(t, session, "board_stats", nil, &stats)
	require.Equal(t, mcp.StatsResponse{InProgressCount: 1, DoneCount: 1, TotalTasks: 2, ProgressPercent: 50}, stats)

	var recent mcp.RecentActivityResponse
	callTool(t, session, "recent_activity", map[string]any{"project_id": "p1", "limit": 2}, &recent)
	require.Len(t, recent.Entries, 2)
	require.Equal(t, string(activity.TypeTaskDeleted), recent.Entries[0].Type)
	require.Equal(t, string(activity.TypeTaskUpdated), recent.Entries[1].Type)
}

func TestFunctional_RemoteFailureRestoresBoard(t *testing.T) {
	ts := newServer(t)
	session := ts.Connect(t)
	callTool(t, session, "open_project", map[string]any{"project_id": "p1"}, nil)

	ts.Backend.FailNext(http.MethodPatch, "tasks", http.StatusInternalServerError, "XX000", "boom")
	result := callToolRaw(t, session, "move_task", map[string]any{"task_id": "t1", "column_id": "c3"})
	require.True(t, result.IsError)
	require.Contains(t, toolText(result), "REMOTE_FAILURE")

	var column mcp.BoardResponse
	callTool(t, session, "get_board", map[string]any{"column_id": "c1"}, &column)
	require.Len(t, column.Columns, 1)
	require.Len(t, column.Columns[0].Tasks, 1)
	require.Equal(t, "t1", column.Columns[0].Tasks[0].ID)

	var recent mcp.RecentActivityResponse
	callTool(t, session, "recent_activity", map[string]any{"type": string(activity.TypeTaskMoveReverted)}, &recent)
	require.Len(t, recent.Entries, 1)
	require.Equal(t, "t1", recent.Entries[0].TaskID)

	notes := ts.Feedback.Notifications()
	require.NotEmpty(t, notes)
}

func TestFunctional_Search(t *testing.T) {
	ts := newServer(t)
	session := ts.Connect(t)
	callTool(t, session, "open_project", map[string]any{"project_id": "p1"}, nil)

	var local mcp.SearchTasksResponse
	callTool(t, session, "search_tasks", map[string]any{"query": "LANDING"}, &local)
	require.Len(t, local.Tasks, 1)
	require.Equal(t, "t1", local.Tasks[0].ID)

	var remote mcp.SearchTasksResponse
	callTool(t, session, "search_tasks", map[string]any{"query": "name", "remote": true}, &remote)
	require.Len(t, remote.Tasks, 1)
	require.Equal(t, "t2", remote.Tasks[0].ID)
	require.Contains(t, ts.Backend.Requests(), "GET /rest/v1/tasks")
}

func TestFunctional_ArchiveProject(t *testing.T) {
	ts := newServer(t)
	session := ts.Connect(t)
	callTool(t, session, "open_project", map[string]any{"project_id": "p1"}, nil)

	result := callToolRaw(t, session, "archive_project", map[string]any{"confirm": false})
	require.True(t, result.IsError)
	require.Contains(t, toolText(result), "INVALID_INPUT")

	var archived mcp.ArchiveProjectResponse
	callTool(t, session, "archive_project", map[string]any{"confirm": true}, &archived)
	require.True(t, archived.Archived)
	require.Equal(t, "p1", archived.ProjectID)

	p, ok := ts.Backend.Project("p1")
	require.True(t, ok)
	require.Equal(t, board.StatusArchived, p.Status)

	var listed mcp.ListProjectsResponse
	callTool(t, session, "list_projects", nil, &listed)
	require.Empty(t, listed.Projects)

	result = callToolRaw(t, session, "board_stats", nil)
	require.True(t, result.IsError)
	require.Contains(t, toolText(result), "NO_ACTIVE_PROJECT")
}

func TestFunctional_OpenMissingProject(t *testing.T) {
	ts := newServer(t)
	session := ts.Connect(t)

	result := callToolRaw(t, session, "open_project", map[string]any{"project_id": "nope"})
	require.True(t, result.IsError)
	require.Contains(t, toolText(result), "LOAD_FAILED")
}
