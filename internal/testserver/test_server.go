// Package testserver runs the full board stack against a fake backend for
// end-to-end tests.
package testserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
	"github.com/superemem/azwaryfocus/internal/domain/activity"
	"github.com/superemem/azwaryfocus/internal/domain/kanban"
	"github.com/superemem/azwaryfocus/internal/domain/project"
	"github.com/superemem/azwaryfocus/internal/feedback"
	"github.com/superemem/azwaryfocus/internal/gateway"
	"github.com/superemem/azwaryfocus/internal/mcp"
	"github.com/superemem/azwaryfocus/internal/sqlite"
)

// AccessToken is the user token the gateway presents to the fake backend.
const AccessToken = "test-access-token"

type TestServer struct {
	Server   *httptest.Server
	Backend  *Backend
	DB       *sqlite.DB
	Engine   *kanban.Engine
	Activity *activity.Service
	Feedback *feedback.Recorder
	Token    string
	UserID   string
}

// New starts the MCP HTTP endpoint guarded by token, acting as userID.
func New(t *testing.T, token, userID string) *TestServer {
	t.Helper()

	backend := NewBackend(t)
	gw, err := gateway.New(gateway.Options{URL: backend.URL(), AnonKey: AnonKey})
	require.NoError(t, err)
	gw = gw.WithToken(AccessToken)

	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)

	messages, err := feedback.LoadMessages(feedback.BaseLocale)
	require.NoError(t, err)

	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), nil)
	recorder := feedback.NewRecorder(0)
	engine := kanban.New(kanban.Config{
		Gateway:  gw,
		Feedback: recorder,
		Messages: messages,
		Journal:  activitySvc,
		UserID:   userID,
	})

	server := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Board:    engine,
			Projects: project.NewService(gw, nil),
			Activity: activitySvc,
			Search:   gw,
		},
		UserID:        userID,
		AuthToken:     token,
		TransportMode: mcp.TransportHTTP,
		Version:       "test",
	})
	httpServer := httptest.NewServer(mcp.NewHTTPHandler(server))

	t.Cleanup(func() {
		httpServer.Close()
		engine.Close()
		_ = db.Close()
	})

	return &TestServer{
		Server:   httpServer,
		Backend:  backend,
		DB:       db,
		Engine:   engine,
		Activity: activitySvc,
		Feedback: recorder,
		Token:    token,
		UserID:   userID,
	}
}

// Connect opens a client session presenting the server token.
func (ts *TestServer) Connect(t *testing.T) *sdkmcp.ClientSession {
	t.Helper()
	return ts.ConnectWithToken(t, ts.Token)
}

// ConnectWithToken opens a client session presenting token.
func (ts *TestServer) ConnectWithToken(t *testing.T, token string) *sdkmcp.ClientSession {
	t.Helper()

	transport := &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: bearerTransport{token: token, next: http.DefaultTransport}},
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(context.Background(), transport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (b bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.next.RoundTrip(req)
}
