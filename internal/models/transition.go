// internal/models/transition.go
package models

import (
	"encoding/json"
	"time"
)

// TransitionRecord is one immutable entry of an application's audit log.
// Failed attempts are recorded too, with Success=false and FromState == ToState.
type TransitionRecord struct {
	ID            string          `json:"id"`
	ApplicationID string          `json:"applicationId"`
	Seq           int64           `json:"seq"`
	FromState     State           `json:"fromState"`
	ToState       State           `json:"toState"`
	Event         Event           `json:"event"`
	Context       json.RawMessage `json:"context,omitempty"`
	TriggeredBy   string          `json:"triggeredBy"`
	Success       bool            `json:"success"`
	ErrorCode     string          `json:"errorCode,omitempty"`
	ErrorMessage  string          `json:"errorMessage,omitempty"`
	OccurredAt    time.Time       `json:"occurredAt"`
}
