package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	now   time.Time
}

func (s *MemoryStoreSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.store = NewMemoryStore(WithClock(func() time.Time { return s.now }))
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func textMessage(content string) Message {
	return Message{
		Role:  "user",
		Parts: []MessagePart{{ContentType: "text/plain", Content: content}},
	}
}

func (s *MemoryStoreSuite) TestCreateOrGetIsIdempotent() {
	ctx := context.Background()

	first, err := s.store.CreateOrGet(ctx, "session-abc")
	s.Require().NoError(err)
	s.Equal("session-abc", first.ID)
	s.Equal(s.now, first.CreatedAt)

	s.now = s.now.Add(time.Hour)
	second, err := s.store.CreateOrGet(ctx, "session-abc")
	s.Require().NoError(err)
	s.Equal(first.CreatedAt, second.CreatedAt)
}

func (s *MemoryStoreSuite) TestCreateOrGetGeneratesID() {
	one, err := s.store.CreateOrGet(context.Background(), "")
	s.Require().NoError(err)
	two, err := s.store.CreateOrGet(context.Background(), "")
	s.Require().NoError(err)

	s.True(strings.HasPrefix(one.ID, "session-"))
	s.NotEqual(one.ID, two.ID)
}

func (s *MemoryStoreSuite) TestAppendInteractionAutoCreates() {
	ctx := context.Background()

	err := s.store.AppendInteraction(ctx, "session-new", "run-1",
		[]Message{textMessage("I need database credentials for production-postgres")},
		[]Message{textMessage("Credentials issued")},
		StatusCompleted,
	)
	s.Require().NoError(err)

	session, err := s.store.Get(ctx, "session-new")
	s.Require().NoError(err)
	s.Require().Len(session.Interactions, 1)
	s.Equal("run-1", session.Interactions[0].RunID)
	s.Equal("I need database credentials for production-postgres", session.Interactions[0].InputSummary)
	s.Equal("Credentials issued", session.Interactions[0].OutputSummary)
	s.Equal(StatusCompleted, session.Interactions[0].Status)
}

func (s *MemoryStoreSuite) TestAppendUpdatesLastActivity() {
	ctx := context.Background()

	_, err := s.store.CreateOrGet(ctx, "session-abc")
	s.Require().NoError(err)

	s.now = s.now.Add(10 * time.Minute)
	s.Require().NoError(s.store.AppendInteraction(ctx, "session-abc", "run-1", nil, nil, StatusError))

	session, err := s.store.Get(ctx, "session-abc")
	s.Require().NoError(err)
	s.Equal(s.now, session.LastActivity)
	s.Equal(s.now.Add(-10*time.Minute), session.CreatedAt)
}

func (s *MemoryStoreSuite) TestGetUnknownSession() {
	_, err := s.store.Get(context.Background(), "session-missing")
	s.ErrorIs(err, ErrNotFound)
}

func (s *MemoryStoreSuite) TestGetReturnsCopy() {
	ctx := context.Background()
	s.Require().NoError(s.store.AppendInteraction(ctx, "session-abc", "run-1", nil, nil, StatusCompleted))

	session, err := s.store.Get(ctx, "session-abc")
	s.Require().NoError(err)
	session.Interactions[0].RunID = "mutated"

	fresh, err := s.store.Get(ctx, "session-abc")
	s.Require().NoError(err)
	s.Equal("run-1", fresh.Interactions[0].RunID)
}

func (s *MemoryStoreSuite) TestSummarize() {
	s.Run("empty input", func() {
		s.Equal("", Summarize(nil))
	})

	s.Run("no text part", func() {
		messages := []Message{{
			Role:  "agent",
			Parts: []MessagePart{{ContentType: "application/jwt", Content: "eyJ..."}},
		}}
		s.Equal("No text content", Summarize(messages))
	})

	s.Run("long text is truncated", func() {
		long := strings.Repeat("x", 150)
		summary := Summarize([]Message{textMessage(long)})
		s.Equal(strings.Repeat("x", 100)+"...", summary)
		s.Len(summary, 103)
	})
}
