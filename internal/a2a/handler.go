// Package a2a exposes the broker to peer agents: card discovery, bearer-token
// authenticated task execution, and health/status reporting. Task failures
// that belong to the caller (bad parameters, unknown resources) come back as
// failed task responses with HTTP 200; only protocol-level problems get
// non-200 statuses.
package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"keyrelay/internal/credential"
	"keyrelay/internal/platform/middleware"
	"keyrelay/internal/transport/httpx"
	dErrors "keyrelay/pkg/domain-errors"
	"keyrelay/pkg/validation"
)

// Service is the issuance dependency.
type Service interface {
	FetchAndIssue(ctx context.Context, req credential.IssueRequest) (*credential.Grant, error)
	HealthCheck(ctx context.Context) credential.Health
}

// AuditInspector exposes the retry queue depth for status reporting.
type AuditInspector interface {
	QueueDepth() int
}

// Handler serves the A2A front-end routes.
type Handler struct {
	service     Service
	audit       AuditInspector
	logger      *slog.Logger
	bearerToken string
	startedAt   time.Time
}

func New(service Service, audit AuditInspector, bearerToken string, logger *slog.Logger) *Handler {
	return &Handler{
		service:     service,
		audit:       audit,
		logger:      logger,
		bearerToken: bearerToken,
		startedAt:   time.Now(),
	}
}

// Register registers the A2A routes. Task execution requires the bearer
// token; discovery and health do not.
func (h *Handler) Register(r chi.Router) {
	r.Get("/agent-card", h.handleAgentCard)
	r.Get("/health", h.handleHealth)
	r.Get("/status", h.handleStatus)
	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(h.bearerToken, h.logger))
		r.Post("/task", h.handleTask)
	})
}

type taskRequest struct {
	TaskID            string         `json:"task_id" validate:"required,notblank"`
	CapabilityName    string         `json:"capability_name" validate:"required,notblank"`
	Parameters        map[string]any `json:"parameters"`
	RequestingAgentID string         `json:"requesting_agent_id" validate:"required,notblank"`
}

type taskResponse struct {
	TaskID          string         `json:"task_id"`
	Status          string         `json:"status"`
	Result          map[string]any `json:"result,omitempty"`
	Error           string         `json:"error,omitempty"`
	ExecutionTimeMS float64        `json:"execution_time_ms"`
}

// capabilitySpec maps a capability to its resource type, the parameter
// carrying the resource name, and the key naming it in the result.
type capabilitySpec struct {
	resourceType credential.ResourceType
	paramName    string
	resultKey    string
}

var capabilities = map[string]capabilitySpec{
	"request_database_credentials": {credential.ResourceDatabase, "database_name", "database"},
	"request_api_credentials":      {credential.ResourceAPI, "api_name", "api"},
	"request_ssh_credentials":      {credential.ResourceSSH, "ssh_resource_name", "ssh_resource"},
	"request_generic_secret":       {credential.ResourceGeneric, "secret_name", "secret"},
}

func (h *Handler) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "agent card requested",
		"request_id", middleware.GetRequestID(r.Context()))
	httpx.WriteJSON(w, http.StatusOK, agentCard)
}

func (h *Handler) handleTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode task request", "request_id", requestID, "error", err)
		httpx.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid task request", "request_id", requestID, "error", err)
		httpx.WriteError(w, err)
		return
	}

	spec, ok := capabilities[req.CapabilityName]
	if !ok {
		httpx.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
			fmt.Sprintf("unknown capability: %s", req.CapabilityName)))
		return
	}

	h.logger.InfoContext(ctx, "task execution requested",
		"request_id", requestID,
		"task_id", req.TaskID,
		"capability", req.CapabilityName,
		"agent_id", req.RequestingAgentID,
	)

	resourceName, ttlMinutes, err := extractParams(req.Parameters, spec.paramName)
	if err != nil {
		h.writeFailedTask(w, req.TaskID, err, start)
		return
	}

	grant, err := h.service.FetchAndIssue(ctx, credential.IssueRequest{
		Protocol:     "a2a",
		AgentID:      req.RequestingAgentID,
		ResourceType: string(spec.resourceType),
		ResourceName: resourceName,
		TTLMinutes:   ttlMinutes,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "task failed",
			"request_id", requestID, "task_id", req.TaskID, "error", err)
		h.writeFailedTask(w, req.TaskID, err, start)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, taskResponse{
		TaskID: req.TaskID,
		Status: "completed",
		Result: map[string]any{
			"ephemeral_token":    grant.Token,
			"expires_in_seconds": grant.ExpiresIn,
			spec.resultKey:       resourceName,
			"issued_at":          grant.IssuedAt.Format(time.RFC3339),
		},
		ExecutionTimeMS: float64(time.Since(start).Microseconds()) / 1000,
	})
}

// extractParams pulls the resource name and duration out of the loosely typed
// parameter map. JSON numbers arrive as float64; a fractional duration is
// rejected rather than truncated.
func extractParams(params map[string]any, nameKey string) (string, int, error) {
	name, _ := params[nameKey].(string)
	if name == "" {
		return "", 0, dErrors.New(dErrors.CodeValidation, nameKey+" is required")
	}

	raw, ok := params["duration_minutes"]
	if !ok {
		return name, 0, nil
	}
	f, ok := raw.(float64)
	if !ok || f != float64(int(f)) {
		return "", 0, dErrors.New(dErrors.CodeValidation, "duration_minutes must be an integer")
	}
	minutes := int(f)
	if minutes < 1 || minutes > 15 {
		return "", 0, dErrors.New(dErrors.CodeValidation, "duration_minutes must be between 1 and 15")
	}
	return name, minutes, nil
}

func (h *Handler) writeFailedTask(w http.ResponseWriter, taskID string, err error, start time.Time) {
	httpx.WriteJSON(w, http.StatusOK, taskResponse{
		TaskID:          taskID,
		Status:          "failed",
		Error:           err.Error(),
		ExecutionTimeMS: float64(time.Since(start).Microseconds()) / 1000,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := h.service.HealthCheck(r.Context())
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  health.Status,
		"service": "a2a-server",
		"version": agentCard.Version,
		"components": map[string]any{
			"vault": map[string]any{
				"connected":        health.Vault.Connected,
				"vault_accessible": health.Vault.VaultAccessible,
				"vault_name":       health.Vault.VaultName,
			},
			"token_codec": map[string]any{
				"algorithm":   health.TokenAlgorithm,
				"default_ttl": health.DefaultTTLMinutes,
			},
		},
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"service":  "a2a-server",
		"version":  agentCard.Version,
		"protocol": "a2a",
		"agent_card": map[string]any{
			"agent_id":           agentCard.AgentID,
			"capabilities_count": len(agentCard.Capabilities),
		},
		"uptime_seconds":          int(time.Since(h.startedAt).Seconds()),
		"audit_retry_queue_depth": h.audit.QueueDepth(),
	})
}
