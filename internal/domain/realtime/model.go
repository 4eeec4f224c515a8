package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// EventType is the row operation carried by a change.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
	EventAll    EventType = "*"
)

// Relations watched by a listener.
const (
	TableTasks    = "tasks"
	TableColumns  = "columns"
	TableProjects = "projects"
)

// Subscription scopes a channel to one table and a row filter such as
// "project_id=eq.42".
type Subscription struct {
	Table  string    `json:"table"`
	Filter string    `json:"filter"`
	Event  EventType `json:"event"`
}

// Change is one row-level notification with new and old row images.
type Change struct {
	Table           string          `json:"table"`
	Type            EventType       `json:"type"`
	Record          json.RawMessage `json:"record,omitempty"`
	OldRecord       json.RawMessage `json:"old_record,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp,omitzero"`
}

// Channel is a live subscription. Channels are not reclaimed automatically and
// must be closed explicitly.
type Channel interface {
	Close() error
}

// Transport opens change channels against the backend.
type Transport interface {
	Subscribe(ctx context.Context, sub Subscription, handler func(Change)) (Channel, error)
}

// ListenerState is the lifecycle position of a Listener.
type ListenerState int

const (
	StateUninitialized ListenerState = iota
	StateActive
	StateCleanedUp
)

func (s ListenerState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateActive:
		return "active"
	case StateCleanedUp:
		return "cleaned_up"
	default:
		return fmt.Sprintf("ListenerState(%d)", int(s))
	}
}

// Subscriptions returns the three subscriptions that cover one project.
func Subscriptions(projectID string) []Subscription {
	return []Subscription{
		{Table: TableTasks, Filter: "project_id=eq." + projectID, Event: EventAll},
		{Table: TableColumns, Filter: "project_id=eq." + projectID, Event: EventAll},
		{Table: TableProjects, Filter: "id=eq." + projectID, Event: EventUpdate},
	}
}
