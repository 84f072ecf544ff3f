package ops

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"keyrelay/internal/credential"
	"keyrelay/internal/vault"
)

type stubService struct {
	health credential.Health
}

func (s *stubService) HealthCheck(context.Context) credential.Health { return s.health }

type stubRetrier struct {
	depth     int
	delivered int
}

func (s *stubRetrier) QueueDepth() int { return s.depth }

func (s *stubRetrier) RetryFailedEvents(context.Context) int {
	s.depth = 0
	return s.delivered
}

type HandlerSuite struct {
	suite.Suite
	service *stubService
	retrier *stubRetrier
	server  *httptest.Server
}

func (s *HandlerSuite) SetupTest() {
	s.service = &stubService{health: credential.Health{
		Status:            "healthy",
		Vault:             vault.Probe{Connected: true, VaultAccessible: true, VaultName: "test-vault"},
		TokenAlgorithm:    "HS256",
		DefaultTTLMinutes: 5,
	}}
	s.retrier = &stubRetrier{depth: 3, delivered: 2}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	New(s.service, s.retrier, logger).Register(router)
	s.server = httptest.NewServer(router)
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) TestHealthzHealthy() {
	resp, err := http.Get(s.server.URL + "/healthz")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var decoded map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&decoded))
	s.Equal("healthy", decoded["status"])

	components := decoded["components"].(map[string]any)
	s.Equal("test-vault", components["vault"].(map[string]any)["vault_name"])
	s.Equal("HS256", components["token_codec"].(map[string]any)["algorithm"])
	s.Equal(float64(3), components["audit"].(map[string]any)["retry_queue_depth"])
}

func (s *HandlerSuite) TestHealthzDegraded() {
	s.service.health.Status = "degraded"
	s.service.health.Vault = vault.Probe{Connected: true, Error: "vault unreachable"}

	resp, err := http.Get(s.server.URL + "/healthz")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusServiceUnavailable, resp.StatusCode)
}

func (s *HandlerSuite) TestAuditRetry() {
	resp, err := http.Post(s.server.URL+"/audit/retry", "application/json", nil)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var decoded map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&decoded))
	s.Equal(float64(2), decoded["delivered"])
	s.Equal(float64(0), decoded["still_queued"])
}

func (s *HandlerSuite) TestMetricsEndpoint() {
	resp, err := http.Get(s.server.URL + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}
