package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/superemem/azwaryfocus/internal/domain/activity"
	"github.com/superemem/azwaryfocus/internal/domain/board"
	"github.com/superemem/azwaryfocus/internal/domain/session"
)

// BoardGateway is a mock for kanban.Gateway.
type BoardGateway struct {
	mock.Mock
}

func (m *BoardGateway) LoadBoard(ctx context.Context, projectID string) (*board.Snapshot, error) {
	args := m.Called(ctx, projectID)
	if snap, ok := args.Get(0).(*board.Snapshot); ok {
		return snap, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BoardGateway) InsertTask(ctx context.Context, projectID string, task board.NewTask) (*board.Task, error) {
	args := m.Called(ctx, projectID, task)
	if t, ok := args.Get(0).(*board.Task); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BoardGateway) UpdateTask(ctx context.Context, taskID string, changes board.TaskChanges) (*board.Task, error) {
	args := m.Called(ctx, taskID, changes)
	if t, ok := args.Get(0).(*board.Task); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *BoardGateway) MoveTask(ctx context.Context, taskID, columnID string) error {
	args := m.Called(ctx, taskID, columnID)
	return args.Error(0)
}

func (m *BoardGateway) DeleteTask(ctx context.Context, taskID string) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func (m *BoardGateway) ArchiveProject(ctx context.Context, projectID string) error {
	args := m.Called(ctx, projectID)
	return args.Error(0)
}

func (m *BoardGateway) ProjectRoster(ctx context.Context, projectID string) (*board.Roster, error) {
	args := m.Called(ctx, projectID)
	if r, ok := args.Get(0).(*board.Roster); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

// ProjectRepository is a mock for project.Repository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) OwnedProjects(ctx context.Context, userID string) ([]board.Project, error) {
	args := m.Called(ctx, userID)
	if list, ok := args.Get(0).([]board.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) JoinedProjects(ctx context.Context, userID string) ([]board.Project, error) {
	args := m.Called(ctx, userID)
	if list, ok := args.Get(0).([]board.Project); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) GetProject(ctx context.Context, id string) (*board.Project, error) {
	args := m.Called(ctx, id)
	if proj, ok := args.Get(0).(*board.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

// ActivityRepository is a mock for activity.Repository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Log(ctx context.Context, userID string, entry *activity.Entry) error {
	args := m.Called(ctx, userID, entry)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, userID string, opts activity.ListOptions) ([]activity.Entry, error) {
	args := m.Called(ctx, userID, opts)
	if list, ok := args.Get(0).([]activity.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// Journal is a mock for kanban.Journal.
type Journal struct {
	mock.Mock
}

func (m *Journal) LogActivity(ctx context.Context, userID string, entry *activity.Entry) error {
	args := m.Called(ctx, userID, entry)
	return args.Error(0)
}

// Authenticator is a mock for session.Authenticator.
type Authenticator struct {
	mock.Mock
}

func (m *Authenticator) SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error) {
	args := m.Called(ctx, email, password)
	if sess, ok := args.Get(0).(*session.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Authenticator) GetUser(ctx context.Context, accessToken string) (*session.User, error) {
	args := m.Called(ctx, accessToken)
	if u, ok := args.Get(0).(*session.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// SessionStore is a mock for session.Store.
type SessionStore struct {
	mock.Mock
}

func (m *SessionStore) Save(ctx context.Context, sess *session.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

func (m *SessionStore) Load(ctx context.Context) (*session.Session, error) {
	args := m.Called(ctx)
	if sess, ok := args.Get(0).(*session.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
