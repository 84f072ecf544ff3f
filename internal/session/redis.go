package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "keyrelay:session:"

// RedisStore persists sessions in Redis with a sliding expiry: every write
// resets the key's TTL to maxAge, so idle sessions age out.
type RedisStore struct {
	client *redis.Client
	maxAge time.Duration
	now    func() time.Time
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr string, maxAge time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{
		client: client,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) CreateOrGet(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID != "" {
		session, err := s.load(ctx, sessionID)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
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
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *RedisStore) AppendInteraction(ctx context.Context, sessionID, runID string, input, output []Message, status Status) error {
	session, err := s.CreateOrGet(ctx, sessionID)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	session.Interactions = append(session.Interactions, Interaction{
		Timestamp:     now,
		RunID:         runID,
		InputSummary:  Summarize(input),
		OutputSummary: Summarize(output),
		Status:        status,
	})
	session.LastActivity = now
	return s.save(ctx, session)
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	return s.load(ctx, sessionID)
}

func (s *RedisStore) load(ctx context.Context, sessionID string) (*Session, error) {
	payload, err := s.client.Get(ctx, redisKeyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) save(ctx context.Context, session *Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+session.ID, payload, s.maxAge).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
