package gateway

import (
	"context"
	"fmt"

	"github.com/superemem/azwaryfocus/internal/domain/board"
	"github.com/superemem/azwaryfocus/internal/domain/project"
)

var _ project.Repository = (*Client)(nil)

// OwnedProjects lists the non-archived projects created by userID.
func (c *Client) OwnedProjects(ctx context.Context, userID string) ([]board.Project, error) {
	var rows []board.Project
	err := c.From("projects").
		Select("*").
		Eq("created_by", userID).
		Neq("status", string(board.StatusArchived)).
		Order("created_at", false).
		Get(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list owned projects: %w", err)
	}
	return rows, nil
}

// JoinedProjects lists the non-archived projects userID is a member of.
func (c *Client) JoinedProjects(ctx context.Context, userID string) ([]board.Project, error) {
	var rows []struct {
		ProjectID string         `json:"project_id"`
		Project   *board.Project `json:"projects"`
	}
	err := c.From("project_members").
		Select("project_id,projects!inner(*)").
		Eq("user_id", userID).
		Neq("projects.status", string(board.StatusArchived)).
		Get(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list joined projects: %w", err)
	}
	out := make([]board.Project, 0, len(rows))
	for _, row := range rows {
		if row.Project != nil {
			out = append(out, *row.Project)
		}
	}
	return out, nil
}

// GetProject fetches one project by id.
func (c *Client) GetProject(ctx context.Context, id string) (*board.Project, error) {
	var p board.Project
	if err := c.From("projects").Select("*").Eq("id", id).Single().Get(ctx, &p); err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &p, nil
}
