// Package session tracks ACP conversation history. Sessions hold summarized
// interactions, never credential material, so the store needs no encryption.
package session

import (
	"strings"
	"time"
)

// Status of a completed run.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusRunning   Status = "running"
	StatusFailed    Status = "failed"
	StatusError     Status = "error"
)

// MessagePart is one typed chunk of a message.
type MessagePart struct {
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
}

// Message is an ACP message: a role plus ordered parts. Error is set on
// assistant messages describing a failed run.
type Message struct {
	Role  string        `json:"role"`
	Parts []MessagePart `json:"parts"`
	Error string        `json:"error,omitempty"`
}

// Interaction is one run recorded against a session. Only summaries are
// stored; full message bodies are discarded.
type Interaction struct {
	Timestamp     time.Time `json:"timestamp"`
	RunID         string    `json:"run_id"`
	InputSummary  string    `json:"input_summary"`
	OutputSummary string    `json:"output_summary"`
	Status        Status    `json:"status"`
}

// Session is a conversation's stored state.
type Session struct {
	ID           string        `json:"session_id"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
	Interactions []Interaction `json:"interactions"`
}

const summaryLimit = 100

// Summarize reduces messages to the first text part, truncated to 100
// characters. Empty input yields an empty summary; messages without any text
// part yield a placeholder.
func Summarize(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}

	for _, message := range messages {
		for _, part := range message.Parts {
			if part.ContentType != "text/plain" || part.Content == "" {
				continue
			}
			content := strings.TrimSpace(part.Content)
			if len(content) > summaryLimit {
				return content[:summaryLimit] + "..."
			}
			return content
		}
	}
	return "No text content"
}
