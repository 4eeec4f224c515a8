package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/superemem/azwaryfocus/internal/domain/board"
	"github.com/superemem/azwaryfocus/internal/domain/kanban"
	"github.com/superemem/azwaryfocus/internal/repository"
	"golang.org/x/sync/errgroup"
)

const (
	taskSelect   = "*, assignee_profile:profiles!tasks_assigned_to_fkey(username), created_by_profile:profiles!tasks_created_by_fkey(username)"
	leadSelect   = "created_by,profiles!projects_created_by_fkey(username)"
	memberSelect = "user_id,profiles!project_members_user_id_fkey(username),created_at"

	loadProjectRPC = "load_kanban_project"
)

var _ kanban.Gateway = (*Client)(nil)

// LoadBoard fetches project, columns, tasks and members in one RPC.
func (c *Client) LoadBoard(ctx context.Context, projectID string) (*board.Snapshot, error) {
	var snap board.Snapshot
	if err := c.RPC(ctx, loadProjectRPC, map[string]string{"project_id": projectID}, &snap); err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}
	return &snap, nil
}

type taskRow struct {
	board.NewTask
	ProjectID string `json:"project_id"`
}

// InsertTask stores a task and returns the stored row with joined profiles.
func (c *Client) InsertTask(ctx context.Context, projectID string, task board.NewTask) (*board.Task, error) {
	var rows []board.Task
	err := c.From("tasks").Select(taskSelect).Insert(ctx, taskRow{NewTask: task, ProjectID: projectID}, &rows)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return firstTask(rows, "insert task")
}

// UpdateTask patches a task and returns the stored row.
func (c *Client) UpdateTask(ctx context.Context, taskID string, changes board.TaskChanges) (*board.Task, error) {
	var rows []board.Task
	err := c.From("tasks").Select(taskSelect).Eq("id", taskID).Update(ctx, changes, &rows)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return firstTask(rows, "update task")
}

// MoveTask sends only the new column id.
func (c *Client) MoveTask(ctx context.Context, taskID, columnID string) error {
	err := c.From("tasks").Eq("id", taskID).Update(ctx, map[string]string{"column_id": columnID}, nil)
	if err != nil {
		return fmt.Errorf("move task: %w", err)
	}
	return nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	if err := c.From("tasks").Eq("id", taskID).Delete(ctx); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// ArchiveProject sets the project status to archived.
func (c *Client) ArchiveProject(ctx context.Context, projectID string) error {
	err := c.From("projects").Eq("id", projectID).Update(ctx, map[string]board.ProjectStatus{"status": board.StatusArchived}, nil)
	if err != nil {
		return fmt.Errorf("archive project: %w", err)
	}
	return nil
}

// ProjectRoster reads the project lead and member rows in parallel.
func (c *Client) ProjectRoster(ctx context.Context, projectID string) (*board.Roster, error) {
	var roster board.Roster
	var members []board.Member

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.From("projects").Select(leadSelect).Eq("id", projectID).Single().Get(gctx, &roster)
	})
	g.Go(func() error {
		return c.From("project_members").Select(memberSelect).Eq("project_id", projectID).Get(gctx, &members)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load project roster: %w", err)
	}
	roster.Members = members
	return &roster, nil
}

// SearchTasks matches term against task titles and descriptions server-side.
func (c *Client) SearchTasks(ctx context.Context, projectID, term string) ([]board.Task, error) {
	pattern := "*" + sanitizeTerm(term) + "*"
	var rows []board.Task
	err := c.From("tasks").
		Select(taskSelect).
		Eq("project_id", projectID).
		Or("title.ilike."+pattern, "description.ilike."+pattern).
		Order("order", true).
		Get(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("search tasks: %w", err)
	}
	return rows, nil
}

// sanitizeTerm drops characters that delimit PostgREST filter lists.
func sanitizeTerm(term string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', '(', ')', '*':
			return -1
		}
		return r
	}, strings.TrimSpace(term))
}

func firstTask(rows []board.Task, op string) (*board.Task, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: no row returned: %w", op, repository.ErrNotFound)
	}
	return &rows[0], nil
}
