package publishers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samvad-hq/reqwatch/internal/domain"
)

// Event is the message published for a settled attempt.
type Event struct {
	ID          string            `json:"id"`
	TargetID    string            `json:"target_id"`
	Settlement  domain.Settlement `json:"settlement"`
	PublishedAt time.Time         `json:"published_at"`
}

// NewEvent wraps a settlement for publishing.
func NewEvent(s domain.Settlement) Event {
	return Event{
		ID:          uuid.NewString(),
		TargetID:    s.TargetID,
		Settlement:  s,
		PublishedAt: time.Now().UTC(),
	}
}

// encode returns the JSON body of the event.
func (e Event) encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return b, nil
}

// attributes are attached to queue and topic messages so subscribers can
// filter without decoding the body. Empty values are omitted.
func (e Event) attributes() map[string]string {
	out := make(map[string]string, 3)
	if e.ID != "" {
		out["event_id"] = e.ID
	}
	if e.TargetID != "" {
		out["target_id"] = e.TargetID
	}
	if e.Settlement.Outcome != "" {
		out["outcome"] = string(e.Settlement.Outcome)
	}
	return out
}
