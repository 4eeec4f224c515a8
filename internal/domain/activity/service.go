package activity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const defaultListLimit = 50

// Service handles journal operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new activity service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// LogActivity stores an entry, stamping the current time if missing.
func (s *Service) LogActivity(ctx context.Context, userID string, entry *Entry) error {
	if entry == nil || strings.TrimSpace(entry.ProjectID) == "" || entry.Type == "" {
		return ErrInvalidInput
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if err := s.repo.Log(ctx, userID, entry); err != nil {
		return fmt.Errorf("logging activity: %w", err)
	}
	return nil
}

// GetRecentActivity lists entries newest first. A zero limit means 50.
func (s *Service) GetRecentActivity(ctx context.Context, userID string, opts ListOptions) ([]Entry, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	entries, err := s.repo.List(ctx, userID, opts)
	if err != nil {
		return nil, fmt.Errorf("listing activity: %w", err)
	}
	return entries, nil
}
