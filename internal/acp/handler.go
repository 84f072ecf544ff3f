// Package acp exposes the broker as a conversational agent: free-form text in,
// a summary plus an application/jwt token part out, with per-session history.
// Run outcomes that belong to the caller (unparseable text, unknown resources)
// come back as error/failed runs with HTTP 200, matching how conversational
// clients consume the protocol.
package acp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"keyrelay/internal/credential"
	"keyrelay/internal/intent"
	"keyrelay/internal/platform/middleware"
	"keyrelay/internal/session"
	"keyrelay/internal/transport/httpx"
	dErrors "keyrelay/pkg/domain-errors"
	"keyrelay/pkg/validation"
)

const agentName = "credential-broker"

// Service is the issuance dependency.
type Service interface {
	FetchAndIssue(ctx context.Context, req credential.IssueRequest) (*credential.Grant, error)
}

// Handler serves the ACP front-end routes.
type Handler struct {
	service  Service
	sessions session.Store
	logger   *slog.Logger
}

func New(service Service, sessions session.Store, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		logger:   logger,
	}
}

// Register registers the ACP routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/agents", h.handleListAgents)
	r.Post("/run", h.handleRun)
	r.Get("/sessions/{sessionID}", h.handleGetSession)
	r.Get("/health", h.handleHealth)
}

type runRequest struct {
	AgentName string            `json:"agent_name" validate:"required,notblank"`
	Input     []session.Message `json:"input"`
	SessionID string            `json:"session_id"`
}

type runResponse struct {
	RunID           string            `json:"run_id"`
	AgentName       string            `json:"agent_name"`
	SessionID       string            `json:"session_id"`
	Status          session.Status    `json:"status"`
	Output          []session.Message `json:"output"`
	ExecutionTimeMS float64           `json:"execution_time_ms"`
}

type agentInfo struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	Version      string   `json:"version"`
}

func (h *Handler) handleListAgents(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "agent discovery requested",
		"request_id", middleware.GetRequestID(r.Context()))

	agents := []agentInfo{{
		Name: agentName,
		Description: "Ephemeral credential provisioning from the vault. Provides " +
			"just-in-time credentials with automatic expiration for databases, " +
			"APIs, SSH, and generic secrets.",
		Capabilities: []string{
			"database_credentials",
			"api_credentials",
			"ssh_credentials",
			"generic_secrets",
			"natural_language_parsing",
			"session_management",
		},
		Version: "1.0.0",
	}}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"agents": agents,
		"count":  len(agents),
	})
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	start := time.Now()
	runID := "run-" + uuid.NewString()

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode run request", "request_id", requestID, "error", err)
		httpx.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if req.AgentName != agentName {
		httpx.WriteError(w, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf(
			"agent '%s' not found, available agents: %s", req.AgentName, agentName)))
		return
	}

	sess, err := h.sessions.CreateOrGet(ctx, req.SessionID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to open session", "request_id", requestID, "error", err)
		httpx.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to open session"))
		return
	}

	h.logger.InfoContext(ctx, "run request received",
		"request_id", requestID, "run_id", runID, "session_id", sess.ID)

	text := firstText(req.Input)
	if text == "" {
		h.finishRun(w, ctx, req, sess.ID, runID, session.StatusFailed, start, assistantError(
			"Failed to provision credentials: no input message provided",
			"no input message provided"))
		return
	}

	parsed := intent.Parse(text)
	if parsed.ResourceName == "" {
		h.logger.InfoContext(ctx, "could not parse credential request",
			"request_id", requestID, "run_id", runID)
		h.finishRun(w, ctx, req, sess.ID, runID, session.StatusError, start, assistantError(
			"I couldn't understand your credential request. "+
				"Please specify what credentials you need, for example:\n"+
				"- 'I need database credentials for prod-postgres'\n"+
				"- 'Get API credentials for stripe-api'\n"+
				"- 'Request SSH keys for production-server'\n"+
				"- 'Provide credentials for generic-secret-name'",
			"could not parse credential request"))
		return
	}

	grant, err := h.service.FetchAndIssue(ctx, credential.IssueRequest{
		Protocol:     "acp",
		AgentID:      sess.ID,
		ResourceType: parsed.ResourceType,
		ResourceName: parsed.ResourceName,
		TTLMinutes:   parsed.DurationMinutes,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "run failed",
			"request_id", requestID, "run_id", runID, "error", err)
		h.finishRun(w, ctx, req, sess.ID, runID, session.StatusFailed, start, assistantError(
			"Failed to provision credentials: "+err.Error(), err.Error()))
		return
	}

	output := []session.Message{{
		Role: "assistant",
		Parts: []session.MessagePart{
			{
				ContentType: "text/plain",
				Content: fmt.Sprintf(
					"Generated ephemeral %s credentials for %s.\n\n"+
						"Token expires in %d minutes (%d seconds).\n"+
						"Issued at: %s",
					parsed.ResourceType, parsed.ResourceName,
					grant.TTLMinutes, grant.ExpiresIn,
					grant.IssuedAt.Format(time.RFC3339)),
			},
			{ContentType: "application/jwt", Content: grant.Token},
		},
	}}
	h.finishRun(w, ctx, req, sess.ID, runID, session.StatusCompleted, start, output)
}

// finishRun records the interaction and writes the run response. Every run,
// whatever its status, lands in session history exactly once.
func (h *Handler) finishRun(w http.ResponseWriter, ctx context.Context, req runRequest, sessionID, runID string, status session.Status, start time.Time, output []session.Message) {
	if err := h.sessions.AppendInteraction(ctx, sessionID, runID, req.Input, output, status); err != nil {
		h.logger.ErrorContext(ctx, "failed to record interaction",
			"session_id", sessionID, "run_id", runID, "error", err)
	}

	httpx.WriteJSON(w, http.StatusOK, runResponse{
		RunID:           runID,
		AgentName:       req.AgentName,
		SessionID:       sessionID,
		Status:          status,
		Output:          output,
		ExecutionTimeMS: float64(time.Since(start).Microseconds()) / 1000,
	})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	sess, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	interactions := make([]map[string]any, 0, len(sess.Interactions))
	for _, it := range sess.Interactions {
		interactions = append(interactions, map[string]any{
			"timestamp":      it.Timestamp.Format(time.RFC3339),
			"run_id":         it.RunID,
			"input_summary":  it.InputSummary,
			"output_summary": it.OutputSummary,
			"status":         it.Status,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"session_id":        sess.ID,
		"created_at":        sess.CreatedAt.Format(time.RFC3339),
		"last_activity":     sess.LastActivity.Format(time.RFC3339),
		"interaction_count": len(sess.Interactions),
		"interactions":      interactions,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "acp-server",
		"version":   "1.0.0",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// firstText returns the first text part of the first message.
func firstText(input []session.Message) string {
	for _, message := range input {
		for _, part := range message.Parts {
			if part.ContentType == "text/plain" && part.Content != "" {
				return part.Content
			}
		}
		break
	}
	return ""
}

func assistantError(text, errMsg string) []session.Message {
	return []session.Message{{
		Role: "assistant",
		Parts: []session.MessagePart{{
			ContentType: "text/plain",
			Content:     text,
		}},
		Error: errMsg,
	}}
}
