package session

import "context"

// Authenticator exchanges credentials with the backend auth service.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	GetUser(ctx context.Context, accessToken string) (*User, error)
}

// Store persists the signed-in session between runs.
type Store interface {
	Save(ctx context.Context, sess *Session) error
	Load(ctx context.Context) (*Session, error)
	Clear(ctx context.Context) error
}
