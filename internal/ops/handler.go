// Package ops serves the operational endpoints: readiness, Prometheus
// metrics, and the audit retry trigger. The router binds to its own address
// so none of this is reachable through the protocol front-ends.
package ops

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"keyrelay/internal/credential"
	"keyrelay/internal/transport/httpx"
)

// Service is the health dependency.
type Service interface {
	HealthCheck(ctx context.Context) credential.Health
}

// AuditRetrier triggers redelivery of queued audit events.
type AuditRetrier interface {
	QueueDepth() int
	RetryFailedEvents(ctx context.Context) int
}

// Handler serves the ops routes.
type Handler struct {
	service Service
	audit   AuditRetrier
	logger  *slog.Logger
}

func New(service Service, audit AuditRetrier, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		audit:   audit,
		logger:  logger,
	}
}

// Register registers the ops routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/healthz", h.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/audit/retry", h.handleAuditRetry)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	health := h.service.HealthCheck(r.Context())

	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, map[string]any{
		"status": health.Status,
		"components": map[string]any{
			"vault": map[string]any{
				"connected":        health.Vault.Connected,
				"vault_accessible": health.Vault.VaultAccessible,
				"vault_name":       health.Vault.VaultName,
				"error":            health.Vault.Error,
			},
			"token_codec": map[string]any{
				"algorithm":   health.TokenAlgorithm,
				"default_ttl": health.DefaultTTLMinutes,
			},
			"audit": map[string]any{
				"retry_queue_depth": h.audit.QueueDepth(),
			},
		},
	})
}

func (h *Handler) handleAuditRetry(w http.ResponseWriter, r *http.Request) {
	delivered := h.audit.RetryFailedEvents(r.Context())
	h.logger.InfoContext(r.Context(), "audit retry triggered", "delivered", delivered)

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"delivered":    delivered,
		"still_queued": h.audit.QueueDepth(),
	})
}
