package kanban

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/superemem/azwaryfocus/internal/domain/activity"
	"github.com/superemem/azwaryfocus/internal/domain/board"
	"github.com/superemem/azwaryfocus/internal/domain/realtime"
	"github.com/superemem/azwaryfocus/internal/feedback"
)

// Config wires an Engine. Gateway nil means no authenticated session.
type Config struct {
	Gateway  Gateway
	Feed     realtime.Transport
	Feedback feedback.Sink
	Messages *feedback.Messages
	Journal  Journal
	UserID   string
	// LiveTransport enables the change feed and celebratory notifications.
	LiveTransport bool
	Logger        *slog.Logger
}

// Engine owns the in-memory state of the open project.
//
// Remote calls are made without holding the state lock, so change-feed
// events and other mutations may be applied while a call is in flight.
// Whichever change is applied last wins.
type Engine struct {
	gateway  Gateway
	listener *realtime.Listener
	sink     feedback.Sink
	messages *feedback.Messages
	journal  Journal
	userID   string
	logger   *slog.Logger

	mu      sync.Mutex
	state   State
	loadGen uint64

	// notifyMu orders observer delivery with state commits.
	notifyMu    sync.Mutex
	subMu       sync.Mutex
	subscribers map[int]func(State)
	nextSub     int

	// scopeMu serializes listener rescoping.
	scopeMu sync.Mutex
}

// New creates an Engine with empty state.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sink := cfg.Feedback
	if sink == nil {
		sink = feedback.Discard{}
	}
	if !cfg.LiveTransport {
		sink = feedback.Plain(sink)
	}
	messages := cfg.Messages
	if messages == nil {
		messages = feedback.MustLoadMessages(feedback.BaseLocale)
	}

	e := &Engine{
		gateway:     cfg.Gateway,
		sink:        sink,
		messages:    messages,
		journal:     cfg.Journal,
		userID:      cfg.UserID,
		logger:      logger,
		subscribers: map[int]func(State){},
	}
	if cfg.LiveTransport && cfg.Feed != nil {
		e.listener = realtime.NewListener(cfg.Feed, e.callbacks(), logger)
	}
	return e
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// Subscribe registers fn for every subsequent state change, delivered in
// commit order. fn must not call Engine mutations synchronously.
func (e *Engine) Subscribe(fn func(State)) (unsubscribe func()) {
	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subscribers[id] = fn
	e.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.subMu.Lock()
			delete(e.subscribers, id)
			e.subMu.Unlock()
		})
	}
}

// Listener exposes the change feed listener, nil without a live transport.
func (e *Engine) Listener() *realtime.Listener {
	return e.listener
}

// Stats returns the column statistics of the current state.
func (e *Engine) Stats() Stats {
	return e.Snapshot().Stats()
}

// FilteredTasks returns tasks matching the current search query.
func (e *Engine) FilteredTasks() []board.Task {
	return e.Snapshot().FilteredTasks()
}

// FindColumnByName looks up a column of the open project by name.
func (e *Engine) FindColumnByName(name string) (board.Column, bool) {
	return e.Snapshot().FindColumnByName(name)
}

// TasksByColumn returns the tasks held by a column of the open project.
func (e *Engine) TasksByColumn(columnID string) []board.Task {
	return e.Snapshot().TasksByColumn(columnID)
}

// SetSearchQuery updates the filter used by FilteredTasks.
func (e *Engine) SetSearchQuery(query string) {
	e.commit(func(s *State) bool {
		if s.SearchQuery == query {
			return false
		}
		s.SearchQuery = query
		return true
	})
}

// LoadProject loads projectID and scopes the change feed to it. An empty id
// resets the engine. A second call for a project that is already loading is
// a no-op. Remote failures end in State.Error and a feedback notification
// rather than an error return; only a missing session is returned.
func (e *Engine) LoadProject(ctx context.Context, projectID string) error {
	if projectID == "" {
		e.Reset()
		return nil
	}
	if e.gateway == nil {
		e.sink.NotifyError(e.messages.Text(feedback.KeyErrLoadProject), ErrNotAuthenticated.Error())
		return ErrNotAuthenticated
	}

	var gen uint64
	var switched bool
	started := e.commit(func(s *State) bool {
		if s.Loading && s.ProjectID == projectID {
			return false
		}
		if s.ProjectID != projectID {
			switched = true
			*s = State{SearchQuery: s.SearchQuery}
		}
		s.ProjectID = projectID
		s.Loading = true
		s.Error = ""
		e.loadGen++
		gen = e.loadGen
		return true
	})
	if !started {
		e.logger.Debug("project load already in flight", "project_id", projectID)
		return nil
	}
	if switched {
		e.teardownListener()
	}

	snap, err := e.gateway.LoadBoard(ctx, projectID)
	if err == nil && (snap == nil || snap.Project == nil) {
		err = ErrEntityNotFound
	}
	if err != nil {
		e.loadFailed(ctx, projectID, gen, err)
		return nil
	}

	applied := e.commit(func(s *State) bool {
		if s.ProjectID != projectID || e.loadGen != gen {
			return false
		}
		project := *snap.Project
		*s = State{
			ProjectID:   projectID,
			Project:     &project,
			Columns:     append([]board.Column(nil), snap.Columns...),
			Tasks:       append([]board.Task(nil), snap.Tasks...),
			Profiles:    append([]board.ProfileRef(nil), snap.Members...),
			SearchQuery: s.SearchQuery,
			ProjectLead: snap.ProjectLead,
			TeamMembers: board.TeamMembers(snap.Members, snap.ProjectLead),
		}
		return true
	})
	if !applied {
		e.logger.Debug("discarding superseded project load", "project_id", projectID)
		return nil
	}

	e.logger.Info("project loaded", "project_id", projectID, "columns", len(snap.Columns), "tasks", len(snap.Tasks))
	e.record(ctx, activity.TypeProjectLoaded, projectID, "", "Loaded "+snap.Project.Name, nil)
	e.rescope(ctx, projectID)
	return nil
}

func (e *Engine) loadFailed(ctx context.Context, projectID string, gen uint64, err error) {
	remote := remoteError("load project", err)
	applied := e.commit(func(s *State) bool {
		if s.ProjectID != projectID || e.loadGen != gen {
			return false
		}
		*s = State{ProjectID: projectID, Error: remote.Message, SearchQuery: s.SearchQuery}
		return true
	})
	if !applied {
		return
	}
	e.teardownListener()
	e.logger.Warn("project load failed", "project_id", projectID, "error", err)
	e.sink.NotifyError(e.messages.Text(feedback.KeyErrLoadProject), e.messages.Friendly(err, feedback.KeyErrLoadProject))
	e.record(ctx, activity.TypeProjectLoadFailed, projectID, "", remote.Message, nil)
}

// Reset discards the open project, cancels the effect of any in-flight load
// and tears down the change feed.
func (e *Engine) Reset() {
	e.commit(func(s *State) bool {
		e.loadGen++
		*s = State{}
		return true
	})
	e.teardownListener()
}

// Close releases the change feed. State is kept.
func (e *Engine) Close() {
	e.teardownListener()
}

func (e *Engine) rescope(ctx context.Context, projectID string) {
	if e.listener == nil {
		return
	}
	e.scopeMu.Lock()
	defer e.scopeMu.Unlock()
	if e.Snapshot().ProjectID != projectID {
		return
	}
	if err := e.listener.Scope(ctx, projectID); err != nil {
		e.logger.Warn("change feed unavailable", "project_id", projectID, "error", err)
	}
}

func (e *Engine) teardownListener() {
	if e.listener == nil {
		return
	}
	e.scopeMu.Lock()
	defer e.scopeMu.Unlock()
	e.listener.Cleanup()
}

// commit applies fn to a copy of the state and publishes it when fn reports
// a change. fn must replace slices rather than write into them.
func (e *Engine) commit(fn func(*State) bool) bool {
	e.mu.Lock()
	next := e.state
	if !fn(&next) {
		e.mu.Unlock()
		return false
	}
	e.state = next
	published := next.clone()
	e.notifyMu.Lock()
	e.mu.Unlock()
	defer e.notifyMu.Unlock()

	e.subMu.Lock()
	subs := make([]func(State), 0, len(e.subscribers))
	for _, sub := range e.subscribers {
		subs = append(subs, sub)
	}
	e.subMu.Unlock()
	for _, sub := range subs {
		sub(published)
	}
	return true
}

func (e *Engine) record(ctx context.Context, typ activity.Type, projectID, taskID, summary string, details any) {
	if e.journal == nil {
		return
	}
	entry := &activity.Entry{ProjectID: projectID, Type: typ, Summary: summary}
	if taskID != "" {
		entry.TaskID = &taskID
	}
	if details != nil {
		if data, err := json.Marshal(details); err == nil {
			entry.Details = string(data)
		}
	}
	if err := e.journal.LogActivity(context.WithoutCancel(ctx), e.userID, entry); err != nil {
		e.logger.Warn("journal write failed", "type", typ, "error", err)
	}
}

// fail reports a mutation failure to the feedback sink and returns err.
func (e *Engine) fail(titleKey string, err error) error {
	var remote *RemoteOperationError
	detail := err.Error()
	if errors.As(err, &remote) {
		detail = e.messages.Friendly(remote.Err, titleKey)
	}
	e.sink.NotifyError(e.messages.Text(titleKey), detail)
	return err
}
