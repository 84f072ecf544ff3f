// Package audit records every credential access decision. Events are written
// to a local JSONL floor synchronously, then delivered to the remote events
// collector in the background; failed deliveries land in a bounded retry
// queue.
package audit

import "time"

// Outcome classifies how a credential access attempt ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeDenied  Outcome = "denied"
	OutcomeError   Outcome = "error"
)

// Event types emitted by the broker.
const (
	EventCredentialAccess = "credential_access"
	EventTokenGeneration  = "token_generation"
	EventTokenValidation  = "token_validation"
)

const (
	eventSource  = "keyrelay-credential-broker"
	eventVersion = "1.0.0"
)

// Event is the structured audit record. The JSON shape is the wire contract
// with the events collector and the local log; changing tags breaks both.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	EventType string         `json:"event_type"`
	Protocol  string         `json:"protocol"`
	AgentID   string         `json:"agent_id"`
	Resource  string         `json:"resource"`
	Outcome   Outcome        `json:"outcome"`
	Source    string         `json:"source"`
	Version   string         `json:"version"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
