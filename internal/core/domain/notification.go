package domain

import (
	"encoding/json"
	"time"
)

// SummaryNotification is the inbound "summary ready" event.
// It carries no mode flag; consumers decide whether fileId belongs to a
// single-file or workspace context.
type SummaryNotification struct {
	FileID    string    `json:"fileId"`
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// UnmarshalJSON decodes an event, reading timestamp with ParseTimestamp.
func (n *SummaryNotification) UnmarshalJSON(data []byte) error {
	type plain SummaryNotification
	var aux struct {
		plain
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*n = SummaryNotification(aux.plain)
	n.Timestamp = ParseTimestamp(aux.Timestamp)
	return nil
}

// Validate checks that the event can be routed.
func (n SummaryNotification) Validate() error {
	if n.FileID == "" {
		return ErrInvalidInput
	}
	return nil
}

// SummaryRoute records where a notification was applied.
type SummaryRoute struct {
	// SingleFile is true when the per-file session summary was set.
	SingleFile bool

	// Workspaces lists workspaces whose file summary was set.
	Workspaces []string
}
