package project

import (
	"context"

	"github.com/superemem/azwaryfocus/internal/domain/board"
)

// Repository reads the projects a user can see.
type Repository interface {
	OwnedProjects(ctx context.Context, userID string) ([]board.Project, error)
	JoinedProjects(ctx context.Context, userID string) ([]board.Project, error)
	GetProject(ctx context.Context, id string) (*board.Project, error)
}
