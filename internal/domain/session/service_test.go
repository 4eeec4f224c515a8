package session_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/superemem/azwaryfocus/internal/domain/session"
	"github.com/superemem/azwaryfocus/internal/repository"
	"github.com/superemem/azwaryfocus/internal/repository/mocks"
)

func TestSessionService_RequireWithoutSession(t *testing.T) {
	svc := session.NewService(&mocks.Authenticator{}, nil)
	_, err := svc.Require()
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestSessionService_SignIn(t *testing.T) {
	ctx := context.Background()
	auth := &mocks.Authenticator{}
	auth.On("SignInWithPassword", ctx, "ayu@example.com", "secret").Return(&session.Session{
		User:        session.User{ID: "u1", Email: "ayu@example.com"},
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil)

	svc := session.NewService(auth, nil)
	_, err := svc.SignIn(ctx, "ayu@example.com", "secret")
	require.NoError(t, err)

	sess, err := svc.Require()
	require.NoError(t, err)
	require.Equal(t, "u1", sess.UserID())

	svc.SignOut(ctx)
	_, err = svc.Require()
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestSessionService_SignInErrors(t *testing.T) {
	ctx := context.Background()
	auth := &mocks.Authenticator{}
	auth.On("SignInWithPassword", ctx, "bad@example.com", "nope").Return(nil, fmt.Errorf("token: %w", repository.ErrUnauthorized))
	auth.On("SignInWithPassword", ctx, "down@example.com", "pw").Return(nil, errors.New("connection refused"))

	svc := session.NewService(auth, nil)
	_, err := svc.SignIn(ctx, "", "x")
	require.ErrorIs(t, err, session.ErrInvalidInput)

	_, err = svc.SignIn(ctx, "bad@example.com", "nope")
	require.ErrorIs(t, err, session.ErrInvalidCredentials)

	_, err = svc.SignIn(ctx, "down@example.com", "pw")
	require.ErrorContains(t, err, "signing in")
}

func TestSessionService_ExpiredSessionIsRejected(t *testing.T) {
	ctx := context.Background()
	auth := &mocks.Authenticator{}
	auth.On("SignInWithPassword", ctx, "a@example.com", "pw").Return(&session.Session{
		User:        session.User{ID: "u1"},
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(-time.Minute),
	}, nil)

	svc := session.NewService(auth, nil)
	_, err := svc.SignIn(ctx, "a@example.com", "pw")
	require.NoError(t, err)
	_, err = svc.Require()
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestSessionService_Restore(t *testing.T) {
	ctx := context.Background()
	auth := &mocks.Authenticator{}
	auth.On("GetUser", ctx, "tok").Return(&session.User{ID: "u7"}, nil)
	auth.On("GetUser", ctx, "stale").Return(nil, repository.ErrUnauthorized)

	svc := session.NewService(auth, nil)

	sess, err := svc.Restore(ctx, "tok2", "u2")
	require.NoError(t, err)
	require.Equal(t, "u2", sess.UserID())

	sess, err = svc.Restore(ctx, "tok", "")
	require.NoError(t, err)
	require.Equal(t, "u7", sess.UserID())

	_, err = svc.Restore(ctx, "stale", "")
	require.ErrorIs(t, err, session.ErrNotAuthenticated)

	_, err = svc.Restore(ctx, "", "u1")
	require.ErrorIs(t, err, session.ErrInvalidInput)

	auth.AssertNotCalled(t, "GetUser", ctx, "tok2")
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	require.False(t, (&session.Session{}).Expired(now))
	require.True(t, (&session.Session{ExpiresAt: now}).Expired(now))
	require.False(t, (&session.Session{ExpiresAt: now.Add(time.Second)}).Expired(now))
}

func TestSessionService_StorePersistsAndResumes(t *testing.T) {
	ctx := context.Background()
	stored := &session.Session{User: session.User{ID: "u1"}, AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}
	auth := &mocks.Authenticator{}
	auth.On("SignInWithPassword", ctx, "a@example.com", "pw").Return(stored, nil)
	store := &mocks.SessionStore{}
	store.On("Save", ctx, stored).Return(errors.New("disk full")).Once()
	store.On("Load", ctx).Return(stored, nil).Once()
	store.On("Clear", ctx).Return(nil).Once()

	svc := session.NewService(auth, nil, session.WithStore(store))
	_, err := svc.SignIn(ctx, "a@example.com", "pw")
	require.NoError(t, err, "store failures do not fail sign in")

	svc.SignOut(ctx)
	_, err = svc.Require()
	require.ErrorIs(t, err, session.ErrNotAuthenticated)

	sess, err := svc.Resume(ctx)
	require.NoError(t, err)
	require.Equal(t, "u1", sess.UserID())
	store.AssertExpectations(t)
}

func TestSessionService_ResumeWithoutStoredSession(t *testing.T) {
	ctx := context.Background()
	store := &mocks.SessionStore{}
	store.On("Load", ctx).Return(nil, repository.ErrNotFound).Once()
	store.On("Load", ctx).Return(&session.Session{User: session.User{ID: "u1"}, ExpiresAt: time.Now().Add(-time.Hour)}, nil).Once()

	svc := session.NewService(&mocks.Authenticator{}, nil, session.WithStore(store))
	_, err := svc.Resume(ctx)
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
	_, err = svc.Resume(ctx)
	require.ErrorIs(t, err, session.ErrNotAuthenticated)

	_, err = session.NewService(&mocks.Authenticator{}, nil).Resume(ctx)
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
}
