package session

import (
	"context"

	dErrors "keyrelay/pkg/domain-errors"
)

// ErrNotFound is returned by Get for unknown session IDs.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "session not found")

// Store persists session history.
type Store interface {
	// CreateOrGet returns the existing session or creates one. An empty
	// sessionID generates a fresh ID.
	CreateOrGet(ctx context.Context, sessionID string) (*Session, error)

	// AppendInteraction records a run against a session, creating the
	// session if it does not exist yet.
	AppendInteraction(ctx context.Context, sessionID, runID string, input, output []Message, status Status) error

	// Get returns a session's history or ErrNotFound.
	Get(ctx context.Context, sessionID string) (*Session, error)
}
