package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"keyrelay/internal/platform/metrics"
)

const retryQueueCapacity = 1000

// Sink records credential access events. The local floor write is synchronous
// so an event is durable before the caller proceeds; remote delivery happens
// in the background and never blocks or fails the access path.
type Sink struct {
	collectorURL string
	token        string
	httpClient   *http.Client
	floor        Floor
	queue        *retryQueue
	logger       *slog.Logger
	metrics      *metrics.Metrics
	kafka        *Publisher

	maxRetries int
	retryDelay time.Duration
	now        func() time.Time
	sleep      func(time.Duration)
	blocking   bool

	wg sync.WaitGroup
}

// SinkOption configures the Sink.
type SinkOption func(*Sink)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(httpClient *http.Client) SinkOption {
	return func(s *Sink) {
		s.httpClient = httpClient
	}
}

// WithMetrics wires delivery and queue depth instrumentation.
func WithMetrics(m *metrics.Metrics) SinkOption {
	return func(s *Sink) {
		s.metrics = m
	}
}

// WithKafka mirrors every event onto a Kafka topic.
func WithKafka(publisher *Publisher) SinkOption {
	return func(s *Sink) {
		s.kafka = publisher
	}
}

// WithBlockingDelivery makes remote delivery run inline instead of in a
// goroutine. Tests use it for deterministic ordering.
func WithBlockingDelivery() SinkOption {
	return func(s *Sink) {
		s.blocking = true
	}
}

// WithRetryPolicy overrides the collector retry attempts and base delay.
func WithRetryPolicy(maxRetries int, retryDelay time.Duration) SinkOption {
	return func(s *Sink) {
		s.maxRetries = maxRetries
		s.retryDelay = retryDelay
	}
}

// WithSinkClock overrides the event timestamp source.
func WithSinkClock(now func() time.Time) SinkOption {
	return func(s *Sink) {
		s.now = now
	}
}

// WithSleep overrides the backoff sleeper (for testing).
func WithSleep(sleep func(time.Duration)) SinkOption {
	return func(s *Sink) {
		s.sleep = sleep
	}
}

// NewSink creates a sink. An empty collector URL or token disables remote
// delivery; events then only hit the local floor.
func NewSink(collectorURL, token string, floor Floor, logger *slog.Logger, opts ...SinkOption) *Sink {
	s := &Sink{
		collectorURL: collectorURL,
		token:        token,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		floor:        floor,
		queue:        newRetryQueue(retryQueueCapacity),
		logger:       logger,
		maxRetries:   3,
		retryDelay:   time.Second,
		now:          time.Now,
		sleep:        time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.Enabled() {
		logger.Warn("events collector not configured, audit events will only be logged locally")
	}
	return s
}

// Enabled reports whether remote delivery is configured.
func (s *Sink) Enabled() bool {
	return s.collectorURL != "" && s.token != ""
}

// QueueDepth reports how many events await redelivery.
func (s *Sink) QueueDepth() int {
	return s.queue.len()
}

// Close waits for in-flight background deliveries to finish.
func (s *Sink) Close() {
	s.wg.Wait()
	if s.kafka != nil {
		s.kafka.Close()
	}
}

// LogAccess records a credential access attempt.
func (s *Sink) LogAccess(ctx context.Context, protocol, agentID, resource string, outcome Outcome, metadata map[string]any) {
	s.emit(ctx, Event{
		EventType: EventCredentialAccess,
		Protocol:  protocol,
		AgentID:   agentID,
		Resource:  resource,
		Outcome:   outcome,
		Metadata:  metadata,
	})
}

// LogTokenGeneration records a successful token issuance.
func (s *Sink) LogTokenGeneration(ctx context.Context, protocol, agentID, resource string, ttlMinutes int, metadata map[string]any) {
	merged := map[string]any{"ttl_minutes": ttlMinutes}
	for k, v := range metadata {
		merged[k] = v
	}
	s.emit(ctx, Event{
		EventType: EventTokenGeneration,
		Protocol:  protocol,
		AgentID:   agentID,
		Resource:  resource,
		Outcome:   OutcomeSuccess,
		Metadata:  merged,
	})
}

// LogTokenValidation records a token validation attempt.
func (s *Sink) LogTokenValidation(ctx context.Context, protocol, agentID string, valid bool, metadata map[string]any) {
	outcome := OutcomeSuccess
	if !valid {
		outcome = OutcomeFailure
	}
	s.emit(ctx, Event{
		EventType: EventTokenValidation,
		Protocol:  protocol,
		AgentID:   agentID,
		Resource:  "token_validation",
		Outcome:   outcome,
		Metadata:  metadata,
	})
}

// RetryFailedEvents drains the retry queue and re-attempts delivery,
// re-queueing anything that fails again. Returns the number delivered.
func (s *Sink) RetryFailedEvents(ctx context.Context) int {
	pending := s.queue.drain()
	if len(pending) == 0 {
		return 0
	}
	s.logger.Info("retrying failed audit events", "count", len(pending))

	delivered := 0
	for _, event := range pending {
		if s.postWithRetry(ctx, event) {
			delivered++
			s.recordDelivery("collector", true)
		} else {
			s.queue.push(event)
		}
	}
	s.updateQueueDepth()

	s.logger.Info("audit retry complete", "delivered", delivered, "still_queued", s.queue.len())
	return delivered
}

func (s *Sink) emit(ctx context.Context, event Event) {
	event.Timestamp = s.now().UTC()
	event.Source = eventSource
	event.Version = eventVersion

	// Durability floor first, always.
	if err := s.floor.Append(event); err != nil {
		s.logger.Error("failed to write local audit log", "error", err, "event_type", event.EventType)
	}

	s.logger.Info("audit",
		"event_type", event.EventType,
		"protocol", event.Protocol,
		"agent_id", event.AgentID,
		"resource", event.Resource,
		"outcome", event.Outcome,
	)

	if s.blocking {
		s.deliver(ctx, event)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.deliver(context.WithoutCancel(ctx), event)
	}()
}

func (s *Sink) deliver(ctx context.Context, event Event) {
	if s.kafka != nil {
		if err := s.kafka.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish audit event to kafka", "error", err)
			s.recordDelivery("kafka", false)
		} else {
			s.recordDelivery("kafka", true)
		}
	}

	if !s.Enabled() {
		return
	}
	if s.postWithRetry(ctx, event) {
		s.recordDelivery("collector", true)
		return
	}

	s.queue.push(event)
	s.recordDelivery("collector", false)
	s.updateQueueDepth()
	s.logger.Warn("audit event queued for retry", "queue_depth", s.queue.len())
}

// postWithRetry posts one event to the collector. Transport errors back off
// exponentially up to maxRetries; a non-2xx response is terminal because the
// collector saw the request and retrying the same payload will not help.
func (s *Sink) postWithRetry(ctx context.Context, event Event) bool {
	for attempt := 0; ; attempt++ {
		ok, retryable := s.post(ctx, event)
		if ok {
			return true
		}
		if !retryable || attempt >= s.maxRetries {
			return false
		}
		delay := s.retryDelay << attempt
		s.logger.Info("retrying audit event delivery",
			"delay", delay, "attempt", attempt+1, "max_retries", s.maxRetries)
		s.sleep(delay)
	}
}

func (s *Sink) post(ctx context.Context, event Event) (ok, retryable bool) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to serialize audit event", "error", err)
		return false, false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.collectorURL+"/events", bytes.NewReader(payload))
	if err != nil {
		return false, false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("failed to post audit event", "error", err)
		return false, true
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
		return true, false
	default:
		s.logger.Warn("events collector rejected audit event",
			"status", fmt.Sprintf("%d", resp.StatusCode))
		return false, false
	}
}

func (s *Sink) recordDelivery(channel string, ok bool) {
	if s.metrics != nil {
		s.metrics.RecordAuditDelivery(channel, ok)
	}
}

func (s *Sink) updateQueueDepth() {
	if s.metrics != nil {
		s.metrics.SetAuditQueueDepth(s.queue.len())
	}
}
