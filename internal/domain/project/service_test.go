package project_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/superemem/azwaryfocus/internal/domain/board"
	"github.com/superemem/azwaryfocus/internal/domain/project"
	"github.com/superemem/azwaryfocus/internal/repository"
	"github.com/superemem/azwaryfocus/internal/repository/mocks"
)

func TestProjectService_ListForUserMergesOwnedAndJoined(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	repo := &mocks.ProjectRepository{}
	repo.On("OwnedProjects", mock.Anything, "u1").Return([]board.Project{
		{ID: "p1", Name: "Old", Status: board.StatusActive, CreatedAt: base},
		{ID: "p2", Name: "Shared", Status: board.StatusActive, CreatedAt: base.Add(48 * time.Hour)},
	}, nil)
	repo.On("JoinedProjects", mock.Anything, "u1").Return([]board.Project{
		{ID: "p2", Name: "Shared", Status: board.StatusActive, CreatedAt: base.Add(48 * time.Hour)},
		{ID: "p3", Name: "Team", Status: board.StatusActive, CreatedAt: base.Add(24 * time.Hour)},
		{ID: "p4", Name: "Gone", Status: board.StatusArchived, CreatedAt: base.Add(72 * time.Hour)},
	}, nil)

	svc := project.NewService(repo, nil)
	got, err := svc.ListForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "p2", got[0].ID)
	require.Equal(t, project.RoleOwner, got[0].Role)
	require.Equal(t, "p3", got[1].ID)
	require.Equal(t, project.RoleMember, got[1].Role)
	require.Equal(t, "p1", got[2].ID)
}

func TestProjectService_ListForUserErrors(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	repo.On("OwnedProjects", mock.Anything, "u1").Return([]board.Project{}, nil)
	repo.On("JoinedProjects", mock.Anything, "u1").Return(nil, errors.New("boom"))

	svc := project.NewService(repo, nil)
	_, err := svc.ListForUser(ctx, "u1")
	require.ErrorContains(t, err, "listing joined projects")

	_, err = svc.ListForUser(ctx, " ")
	require.ErrorIs(t, err, project.ErrInvalidInput)
}

func TestProjectService_Get(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.ProjectRepository{}
	repo.On("GetProject", ctx, "p1").Return(&board.Project{ID: "p1", Name: "Board"}, nil)
	repo.On("GetProject", ctx, "missing").Return(nil, repository.ErrNotFound)

	svc := project.NewService(repo, nil)
	proj, err := svc.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "Board", proj.Name)

	_, err = svc.Get(ctx, "missing")
	require.ErrorIs(t, err, project.ErrProjectNotFound)
}
