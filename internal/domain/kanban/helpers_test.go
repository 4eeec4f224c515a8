package kanban_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/superemem/azwaryfocus/internal/domain/board"
	"github.com/superemem/azwaryfocus/internal/domain/kanban"
	"github.com/superemem/azwaryfocus/internal/domain/realtime"
	"github.com/superemem/azwaryfocus/internal/feedback"
	"github.com/superemem/azwaryfocus/internal/repository/mocks"
)

type feedChannel struct {
	sub     realtime.Subscription
	handler func(realtime.Change)
	closed  bool
}

type fakeFeed struct {
	mu       sync.Mutex
	channels []*feedChannel
}

func (f *fakeFeed) Subscribe(_ context.Context, sub realtime.Subscription, handler func(realtime.Change)) (realtime.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := &feedChannel{sub: sub, handler: handler}
	f.channels = append(f.channels, ch)
	return closer{f: f, ch: ch}, nil
}

type closer struct {
	f  *fakeFeed
	ch *feedChannel
}

func (c closer) Close() error {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	c.ch.closed = true
	return nil
}

func (f *fakeFeed) open() []realtime.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []realtime.Subscription
	for _, ch := range f.channels {
		if !ch.closed {
			out = append(out, ch.sub)
		}
	}
	return out
}

func (f *fakeFeed) openFor(projectID string) int {
	n := 0
	for _, sub := range f.open() {
		if strings.HasSuffix(sub.Filter, "eq."+projectID) {
			n++
		}
	}
	return n
}

func (f *fakeFeed) emit(table string, change realtime.Change) {
	f.mu.Lock()
	var target *feedChannel
	for _, ch := range f.channels {
		if !ch.closed && ch.sub.Table == table {
			target = ch
		}
	}
	f.mu.Unlock()
	if target != nil {
		target.handler(change)
	}
}

type harness struct {
	engine  *kanban.Engine
	gateway *mocks.BoardGateway
	feed    *fakeFeed
	sink    *feedback.Recorder
}

func newHarness(t *testing.T, live bool) *harness {
	t.Helper()
	h := &harness{
		gateway: &mocks.BoardGateway{},
		feed:    &fakeFeed{},
		sink:    feedback.NewRecorder(0),
	}
	h.engine = kanban.New(kanban.Config{
		Gateway:       h.gateway,
		Feed:          h.feed,
		Feedback:      h.sink,
		Messages:      feedback.MustLoadMessages("en-US"),
		UserID:        "u1",
		LiveTransport: live,
	})
	t.Cleanup(h.engine.Close)
	return h
}

// loaded returns a harness with fixture project p1 open.
func loaded(t *testing.T, live bool) *harness {
	t.Helper()
	h := newHarness(t, live)
	h.gateway.On("LoadBoard", mock.Anything, "p1").Return(fixture("p1"), nil).Once()
	if err := h.engine.LoadProject(context.Background(), "p1"); err != nil {
		t.Fatalf("load: %v", err)
	}
	return h
}

func strPtr(s string) *string { return &s }

func fixture(projectID string) *board.Snapshot {
	return &board.Snapshot{
		Project: &board.Project{ID: projectID, Name: "Launch", Status: board.StatusActive, CreatedBy: "u1"},
		Columns: []board.Column{
			{ID: "c1", ProjectID: projectID, Name: "To Do", Order: 1},
			{ID: "c2", ProjectID: projectID, Name: "In Progress", Order: 2},
			{ID: "c3", ProjectID: projectID, Name: "Done", Order: 3},
			{ID: "c4", ProjectID: projectID, Name: "Review", Order: 4},
		},
		Tasks: []board.Task{
			{ID: "t1", ProjectID: projectID, ColumnID: "c1", Title: "Buy milk", AssignedTo: strPtr("u2"), Priority: "high", Order: 1},
			{ID: "t2", ProjectID: projectID, ColumnID: "c1", Title: "Write report", Description: "quarterly numbers", Order: 2},
			{ID: "t3", ProjectID: projectID, ColumnID: "c3", Title: "Milk the cow", AssignedTo: strPtr("u3"), Order: 1},
		},
		Members: []board.ProfileRef{
			{ID: "u1", Username: "ayu"},
			{ID: "u2", Username: "budi"},
			{ID: "u3", Username: "budi"},
			{ID: "u4", Username: ""},
		},
		ProjectLead: "ayu",
	}
}
