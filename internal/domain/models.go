package domain

import "time"

// Domain contains core models shared by the monitor, storage and publishers.

// Outcome classifies how a request attempt settled.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailure  Outcome = "failure"
	OutcomeCanceled Outcome = "canceled"
)

// Settlement describes one settled attempt of a watched target.
type Settlement struct {
	TargetID   string    `json:"target_id"`
	URL        string    `json:"url"`
	Attempt    uint64    `json:"attempt"`
	Outcome    Outcome   `json:"outcome"`
	StatusCode int       `json:"status_code,omitempty"`
	Data       any       `json:"data,omitempty"`
	Error      string    `json:"error,omitempty"`
	Digest     string    `json:"digest,omitempty"`
	SettledAt  time.Time `json:"settled_at"`
}

// DedupKey identifies a payload of a target for change detection.
func (s Settlement) DedupKey() string {
	return s.TargetID + "/" + s.Digest
}
