package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps sessions in process memory. History is lost on restart;
// use the Redis store when that matters.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) CreateOrGet(_ context.Context, sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copySession(s.createOrGetLocked(sessionID)), nil
}

func (s *MemoryStore) AppendInteraction(_ context.Context, sessionID, runID string, input, output []Message, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.createOrGetLocked(sessionID)
	now := s.now().UTC()
	session.Interactions = append(session.Interactions, Interaction{
		Timestamp:     now,
		RunID:         runID,
		InputSummary:  Summarize(input),
		OutputSummary: Summarize(output),
		Status:        status,
	})
	session.LastActivity = now
	return nil
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return copySession(session), nil
}

func (s *MemoryStore) createOrGetLocked(sessionID string) *Session {
	if sessionID != "" {
		if session, ok := s.sessions[sessionID]; ok {
			return session
		}
	}
	if sessionID == "" {
		sessionID = "session-" + uuid.NewString()
	}

	now := s.now().UTC()
	session := &Session{
		ID:           sessionID,
		CreatedAt:    now,
		LastActivity: now,
	}
	s.sessions[sessionID] = session
	return session
}

func copySession(session *Session) *Session {
	copied := *session
	copied.Interactions = append([]Interaction(nil), session.Interactions...)
	return &copied
}
