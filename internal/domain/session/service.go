package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/superemem/azwaryfocus/internal/repository"
)

// Service holds the current session and bootstraps it from credentials or
// a stored access token.
type Service struct {
	auth   Authenticator
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	current *Session
}

// Option configures a Service.
type Option func(*Service)

// WithStore persists signed-in sessions to store.
func WithStore(store Store) Option {
	return func(s *Service) { s.store = store }
}

// NewService creates a new session service.
func NewService(auth Authenticator, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{auth: auth, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignIn authenticates with email and password and keeps the session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrInvalidInput
	}
	sess, err := s.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, repository.ErrUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("signing in: %w", err)
	}
	s.set(sess)
	s.persist(ctx, sess)
	s.logger.Info("signed in", "user_id", sess.UserID())
	return sess, nil
}

// Resume adopts the stored session when it has not expired.
func (s *Service) Resume(ctx context.Context) (*Session, error) {
	if s.store == nil {
		return nil, ErrNotAuthenticated
	}
	sess, err := s.store.Load(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("loading stored session: %w", err)
	}
	if sess.Expired(s.now()) {
		s.logger.Info("stored session expired", "user_id", sess.UserID())
		return nil, ErrNotAuthenticated
	}
	s.set(sess)
	return sess, nil
}

// Restore adopts an existing access token. When userID is empty the token
// is verified against the backend to resolve it.
func (s *Service) Restore(ctx context.Context, accessToken, userID string) (*Session, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, ErrInvalidInput
	}
	user := User{ID: userID}
	if userID == "" {
		u, err := s.auth.GetUser(ctx, accessToken)
		if err != nil {
			if errors.Is(err, repository.ErrUnauthorized) {
				return nil, ErrNotAuthenticated
			}
			return nil, fmt.Errorf("verifying token: %w", err)
		}
		user = *u
	}
	sess := &Session{User: user, AccessToken: accessToken}
	s.set(sess)
	return sess, nil
}

// Require returns the current session or ErrNotAuthenticated.
func (s *Service) Require() (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || s.current.Expired(s.now()) {
		return nil, ErrNotAuthenticated
	}
	sess := *s.current
	return &sess, nil
}

// SignOut drops the current session and any stored copy.
func (s *Service) SignOut(ctx context.Context) {
	s.set(nil)
	if s.store == nil {
		return
	}
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Warn("clearing stored session", "error", err)
	}
}

func (s *Service) persist(ctx context.Context, sess *Session) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, sess); err != nil {
		s.logger.Warn("storing session", "user_id", sess.UserID(), "error", err)
	}
}

func (s *Service) set(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sess
}
