package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/superemem/azwaryfocus/internal/domain/board"
	"github.com/tidwall/gjson"
)

// Callbacks receive typed changes. Each callback is given the project id the
// listener was scoped to when the change arrived. Nil callbacks are skipped.
type Callbacks struct {
	OnTaskInsert    func(projectID string, task board.Task)
	OnTaskUpdate    func(projectID string, task board.Task)
	OnTaskDelete    func(projectID, taskID string)
	OnColumnInsert  func(projectID string, column board.Column)
	OnColumnUpdate  func(projectID string, column board.Column)
	OnColumnDelete  func(projectID, columnID string)
	OnProjectUpdate func(projectID string, project board.Project)
}

// Listener keeps the task, column and project subscriptions of one project.
type Listener struct {
	transport Transport
	callbacks Callbacks
	logger    *slog.Logger

	mu        sync.Mutex
	state     ListenerState
	projectID string
	active    []Subscription
	channels  []Channel
}

// NewListener creates a listener in the uninitialized state.
func NewListener(transport Transport, callbacks Callbacks, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Listener{transport: transport, callbacks: callbacks, logger: logger}
}

// Scope tears down any live subscriptions and subscribes to projectID.
// If any subscription fails, the ones already opened are closed and the
// listener ends up cleaned up.
func (l *Listener) Scope(ctx context.Context, projectID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cleanupLocked()

	subs := Subscriptions(projectID)
	channels := make([]Channel, 0, len(subs))
	for _, sub := range subs {
		ch, err := l.transport.Subscribe(ctx, sub, l.dispatch(projectID, sub.Table))
		if err != nil {
			for _, opened := range channels {
				_ = opened.Close()
			}
			l.state = StateCleanedUp
			return fmt.Errorf("subscribing to %s: %w", sub.Table, err)
		}
		channels = append(channels, ch)
	}

	l.projectID = projectID
	l.active = subs
	l.channels = channels
	l.state = StateActive
	l.logger.Debug("change feed scoped", "project_id", projectID, "subscriptions", len(channels))
	return nil
}

// Cleanup closes all live subscriptions. It is safe to call repeatedly.
func (l *Listener) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cleanupLocked()
}

func (l *Listener) cleanupLocked() {
	if l.state != StateActive {
		return
	}
	var errs []error
	for _, ch := range l.channels {
		if err := ch.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		l.logger.Warn("closing change channels", "project_id", l.projectID, "error", err)
	}
	l.logger.Debug("change feed cleaned up", "project_id", l.projectID)
	l.channels = nil
	l.active = nil
	l.projectID = ""
	l.state = StateCleanedUp
}

// State returns the lifecycle state.
func (l *Listener) State() ListenerState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// ProjectID returns the scoped project, empty when not active.
func (l *Listener) ProjectID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.projectID
}

// ActiveSubscriptions returns a copy of the live subscriptions.
func (l *Listener) ActiveSubscriptions() []Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Subscription, len(l.active))
	copy(out, l.active)
	return out
}

// dispatch must not take l.mu: transports may deliver while Scope is subscribing.
func (l *Listener) dispatch(projectID, table string) func(Change) {
	return func(change Change) {
		if err := l.route(projectID, table, change); err != nil {
			l.logger.Warn("dropping change", "project_id", projectID, "table", table, "type", change.Type, "error", err)
		}
	}
}

func (l *Listener) route(projectID, table string, change Change) error {
	cb := l.callbacks
	switch table {
	case TableTasks:
		switch change.Type {
		case EventInsert, EventUpdate:
			var task board.Task
			if err := json.Unmarshal(change.Record, &task); err != nil {
				return fmt.Errorf("decoding task: %w", err)
			}
			if change.Type == EventInsert {
				deliver(cb.OnTaskInsert, projectID, task)
			} else {
				deliver(cb.OnTaskUpdate, projectID, task)
			}
		case EventDelete:
			id, err := oldRowID(change)
			if err != nil {
				return err
			}
			deliver(cb.OnTaskDelete, projectID, id)
		default:
			return fmt.Errorf("unknown event type %q", change.Type)
		}
	case TableColumns:
		switch change.Type {
		case EventInsert, EventUpdate:
			var column board.Column
			if err := json.Unmarshal(change.Record, &column); err != nil {
				return fmt.Errorf("decoding column: %w", err)
			}
			if change.Type == EventInsert {
				deliver(cb.OnColumnInsert, projectID, column)
			} else {
				deliver(cb.OnColumnUpdate, projectID, column)
			}
		case EventDelete:
			id, err := oldRowID(change)
			if err != nil {
				return err
			}
			deliver(cb.OnColumnDelete, projectID, id)
		default:
			return fmt.Errorf("unknown event type %q", change.Type)
		}
	case TableProjects:
		if change.Type != EventUpdate {
			return nil
		}
		var project board.Project
		if err := json.Unmarshal(change.Record, &project); err != nil {
			return fmt.Errorf("decoding project: %w", err)
		}
		deliver(cb.OnProjectUpdate, projectID, project)
	default:
		return fmt.Errorf("unexpected table %q", table)
	}
	return nil
}

func oldRowID(change Change) (string, error) {
	id := gjson.GetBytes(change.OldRecord, "id")
	if !id.Exists() || id.String() == "" {
		return "", errors.New("delete without old row id")
	}
	return id.String(), nil
}

func deliver[T any](fn func(string, T), projectID string, v T) {
	if fn != nil {
		fn(projectID, v)
	}
}
