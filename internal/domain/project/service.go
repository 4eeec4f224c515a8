package project

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/superemem/azwaryfocus/internal/domain/board"
	"github.com/superemem/azwaryfocus/internal/repository"
	"golang.org/x/sync/errgroup"
)

// Service handles project listing.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new project service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, logger: logger}
}

// ListForUser returns the active projects userID owns or has joined, each
// listed once, newest first. Ownership wins over membership.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]Summary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrInvalidInput
	}

	var owned, joined []board.Project
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		owned, err = s.repo.OwnedProjects(gctx, userID)
		if err != nil {
			return fmt.Errorf("listing owned projects: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		joined, err = s.repo.JoinedProjects(gctx, userID)
		if err != nil {
			return fmt.Errorf("listing joined projects: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(owned)+len(joined))
	out := make([]Summary, 0, len(owned)+len(joined))
	add := func(projects []board.Project, role Role) {
		for _, p := range projects {
			if p.Status == board.StatusArchived {
				continue
			}
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			out = append(out, Summary{Project: p, Role: role})
		}
	}
	add(owned, RoleOwner)
	add(joined, RoleMember)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	s.logger.Debug("listed projects", "user_id", userID, "owned", len(owned), "joined", len(joined), "visible", len(out))
	return out, nil
}

// Get fetches a project by ID.
func (s *Service) Get(ctx context.Context, id string) (*board.Project, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidInput
	}
	proj, err := s.repo.GetProject(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	return proj, nil
}
