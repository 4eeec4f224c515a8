package feed

import (
	"encoding/json"
	"time"

	"github.com/superemem/azwaryfocus/internal/domain/realtime"
)

// Phoenix channel events.
const (
	eventJoin      = "phx_join"
	eventLeave     = "phx_leave"
	eventReply     = "phx_reply"
	eventError     = "phx_error"
	eventClose     = "phx_close"
	eventHeartbeat = "heartbeat"
	eventChanges   = "postgres_changes"
	eventSystem    = "system"

	phoenixTopic = "phoenix"
	topicPrefix  = "realtime:"
	schemaPublic = "public"
)

type outbound struct {
	Topic   string `json:"topic"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
	Ref     string `json:"ref"`
	JoinRef string `json:"join_ref,omitempty"`
}

type inbound struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

type postgresChange struct {
	Event  realtime.EventType `json:"event"`
	Schema string             `json:"schema"`
	Table  string             `json:"table"`
	Filter string             `json:"filter,omitempty"`
}

type joinConfig struct {
	PostgresChanges []postgresChange `json:"postgres_changes"`
}

type joinPayload struct {
	Config      joinConfig `json:"config"`
	AccessToken string     `json:"access_token,omitempty"`
}

type replyPayload struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type changePayload struct {
	Data struct {
		Table           string             `json:"table"`
		Type            realtime.EventType `json:"type"`
		Record          json.RawMessage    `json:"record"`
		OldRecord       json.RawMessage    `json:"old_record"`
		CommitTimestamp string             `json:"commit_timestamp"`
	} `json:"data"`
}

func (p changePayload) change() realtime.Change {
	c := realtime.Change{
		Table:     p.Data.Table,
		Type:      p.Data.Type,
		Record:    p.Data.Record,
		OldRecord: p.Data.OldRecord,
	}
	if ts, err := time.Parse(time.RFC3339Nano, p.Data.CommitTimestamp); err == nil {
		c.CommitTimestamp = ts
	}
	return c
}

func newJoin(sub realtime.Subscription, token string) joinPayload {
	event := sub.Event
	if event == "" {
		event = realtime.EventAll
	}
	return joinPayload{
		Config: joinConfig{PostgresChanges: []postgresChange{{
			Event:  event,
			Schema: schemaPublic,
			Table:  sub.Table,
			Filter: sub.Filter,
		}}},
		AccessToken: token,
	}
}
