package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/superemem/azwaryfocus/internal/domain/session"
	"github.com/superemem/azwaryfocus/internal/repository"
)

// SessionStore keeps signed-in backend sessions between CLI runs
type SessionStore struct {
	db  *DB
	now func() time.Time
}

var _ session.Store = (*SessionStore)(nil)

// NewSessionStore creates a new SessionStore
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

// Save stores sess, replacing any earlier session of the same user
func (s *SessionStore) Save(ctx context.Context, sess *session.Session) error {
	if sess == nil || sess.User.ID == "" {
		return fmt.Errorf("save session: %w", session.ErrInvalidInput)
	}
	var expiresAt sql.NullTime
	if !sess.ExpiresAt.IsZero() {
		expiresAt = sql.NullTime{Time: sess.ExpiresAt.UTC(), Valid: true}
	}

	query := `
		INSERT INTO auth_sessions (
			user_id, email, access_token, refresh_token, expires_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			email = excluded.email,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		sess.User.ID,
		sess.User.Email,
		sess.AccessToken,
		sess.RefreshToken,
		expiresAt,
		s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns the most recently saved session
func (s *SessionStore) Load(ctx context.Context) (*session.Session, error) {
	query := `
		SELECT user_id, email, access_token, refresh_token, expires_at
		FROM auth_sessions
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var sess session.Session
	var expiresAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query).Scan(
		&sess.User.ID,
		&sess.User.Email,
		&sess.AccessToken,
		&sess.RefreshToken,
		&expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if expiresAt.Valid {
		sess.ExpiresAt = expiresAt.Time
	}
	return &sess, nil
}

// Clear removes every stored session
func (s *SessionStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions`); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	return nil
}
