package events

import (
	"encoding/json"
	"time"
)

// Event types published by the chat pipeline.
const (
	TypeChatAnswered = "CHAT_ANSWERED"
	TypeChatRejected = "CHAT_REJECTED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CHAT_ANSWERED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the concrete Event used on the bus and on the wire.
type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurredAt"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// ChatUsage describes the outcome of one chat request. It carries no message text.
type ChatUsage struct {
	RequestID        string
	Outcome          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Latency          time.Duration
}

// NewChatUsageEvent builds the event for a finished chat request. Requests that got an
// answer are TypeChatAnswered; every early exit is TypeChatRejected.
func NewChatUsageEvent(u ChatUsage, at time.Time) BaseEvent {
	eventType := TypeChatRejected
	if u.Outcome == "success" {
		eventType = TypeChatAnswered
	}

	return BaseEvent{
		Type: eventType,
		Data: map[string]interface{}{
			"requestId":        u.RequestID,
			"outcome":          u.Outcome,
			"model":            u.Model,
			"promptTokens":     u.PromptTokens,
			"completionTokens": u.CompletionTokens,
			"latencyMs":        u.Latency.Milliseconds(),
		},
		OccurredAt: at.UTC(),
	}
}

func Marshal(e Event) ([]byte, error) {
	return json.Marshal(BaseEvent{
		Type:       e.EventType(),
		Data:       e.Payload(),
		OccurredAt: e.Timestamp(),
	})
}

func Unmarshal(raw []byte) (BaseEvent, error) {
	var e BaseEvent
	err := json.Unmarshal(raw, &e)
	return e, err
}
