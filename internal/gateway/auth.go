package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/superemem/azwaryfocus/internal/domain/session"
)

var _ session.Authenticator = (*Client)(nil)

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         session.User `json:"user"`
}

// SignInWithPassword exchanges email and password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error) {
	data, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	var tok tokenResponse
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}

	s := &session.Session{
		User:         tok.User,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	switch {
	case tok.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tok.ExpiresAt, 0)
	case tok.ExpiresIn > 0:
		s.ExpiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return s, nil
}

// GetUser resolves the user that owns accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*session.User, error) {
	data, err := c.WithToken(accessToken).do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/v1/user",
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	var u session.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}
