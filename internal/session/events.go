package session

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spboyer/syndi/internal/orchestration"
)

// Event is a single timestamped entry in a session log.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	SessionID string         `json:"session,omitempty"`
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(sessionID, t string, data map[string]any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		SessionID: sessionID,
		Type:      t,
		Data:      data,
	}
}

// FromProgress converts a progress event into a log event. Typed payloads
// are flattened through their JSON form so the log matches the wire.
func FromProgress(pe orchestration.ProgressEvent) (Event, error) {
	data, err := toMap(pe.Data)
	if err != nil {
		return Event{}, fmt.Errorf("encoding %s event: %w", pe.Type, err)
	}
	return NewEvent(pe.SessionID, string(pe.Type), data), nil
}

func toMap(v any) (map[string]any, error) {
	if v == nil {
		return nil, nil
	}
	if m, ok := v.(map[string]any); ok {
		return m, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		// Non-object payloads are kept under a single key.
		var raw any
		if err := json.Unmarshal(b, &raw); err != nil {
			return nil, err
		}
		return map[string]any{"value": raw}, nil
	}
	return m, nil
}
