package feedback

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// Kind classifies a user-facing notification.
type Kind string

const (
	KindSuccess   Kind = "success"
	KindInfo      Kind = "info"
	KindWarning   Kind = "warning"
	KindError     Kind = "error"
	KindCelebrate Kind = "celebrate"
)

// Sink receives mutation outcomes. Calls are fire-and-forget.
type Sink interface {
	Notify(kind Kind, title, message string)
	NotifyError(title, detail string)
}

// Notification is one delivered message.
type Notification struct {
	Kind    Kind      `json:"kind"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(Kind, string, string) {}
func (Discard) NotifyError(string, string)  {}

// LogSink writes notifications to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink. A nil logger discards output.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(kind Kind, title, message string) {
	s.logger.Info(message, "kind", string(kind), "title", title)
}

func (s *LogSink) NotifyError(title, detail string) {
	s.logger.Error(title, "detail", detail)
}

// Recorder keeps the most recent notifications in memory.
type Recorder struct {
	mu      sync.Mutex
	limit   int
	entries []Notification
}

// NewRecorder keeps up to limit notifications; limit <= 0 means 100.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 100
	}
	return &Recorder{limit: limit}
}

func (r *Recorder) Notify(kind Kind, title, message string) {
	r.add(Notification{Kind: kind, Title: title, Message: message, At: time.Now()})
}

func (r *Recorder) NotifyError(title, detail string) {
	r.add(Notification{Kind: KindError, Title: title, Message: detail, At: time.Now()})
}

func (r *Recorder) add(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, n)
	if over := len(r.entries) - r.limit; over > 0 {
		r.entries = append([]Notification(nil), r.entries[over:]...)
	}
}

// Notifications returns a copy, oldest first.
func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.entries))
	copy(out, r.entries)
	return out
}

// Last returns the newest notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return Notification{}, false
	}
	return r.entries[len(r.entries)-1], true
}

// Multi fans out to every sink in order.
type Multi []Sink

func (m Multi) Notify(kind Kind, title, message string) {
	for _, s := range m {
		s.Notify(kind, title, message)
	}
}

func (m Multi) NotifyError(title, detail string) {
	for _, s := range m {
		s.NotifyError(title, detail)
	}
}

// Plain downgrades celebratory notifications to success. Used when no live
// UI is attached to render them.
func Plain(s Sink) Sink {
	return plainSink{next: s}
}

type plainSink struct {
	next Sink
}

func (p plainSink) Notify(kind Kind, title, message string) {
	if kind == KindCelebrate {
		kind = KindSuccess
	}
	p.next.Notify(kind, title, message)
}

func (p plainSink) NotifyError(title, detail string) {
	p.next.NotifyError(title, detail)
}
