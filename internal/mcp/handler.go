// Package mcp exposes the broker to model-context-protocol clients: a tool
// listing plus a single get_credentials tool. Tool execution failures are
// reported as error content blocks, matching how MCP clients expect tool
// results; only malformed requests get non-200 statuses.
package mcp

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

const toolName = "get_credentials"

// Service is the issuance dependency.
type Service interface {
	FetchAndIssue(ctx context.Context, req credential.IssueRequest) (*credential.Grant, error)
}

// Handler serves the MCP front-end routes.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register registers the MCP routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/tools", h.handleListTools)
	r.Post("/tools/call", h.handleCallTool)
}

type toolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type callRequest struct {
	Name      string        `json:"name" validate:"required"`
	Arguments toolArguments `json:"arguments"`
}

type toolArguments struct {
	ResourceType      string `json:"resource_type" validate:"required,oneof=database api ssh generic"`
	ResourceName      string `json:"resource_name" validate:"required,notblank"`
	RequestingAgentID string `json:"requesting_agent_id" validate:"required,notblank"`
	TTLMinutes        int    `json:"ttl_minutes" validate:"omitempty,min=1,max=15"`
}

type callResponse struct {
	Content []contentBlock `json:"content"`
	Result  *grantResult   `json:"result,omitempty"`
	IsError bool           `json:"is_error"`
}

type grantResult struct {
	Token      string `json:"token"`
	Resource   string `json:"resource"`
	ExpiresIn  int    `json:"expires_in"`
	TTLMinutes int    `json:"ttl_minutes"`
	IssuedAt   string `json:"issued_at"`
	ExpiresAt  string `json:"expires_at"`
}

func (h *Handler) handleListTools(w http.ResponseWriter, r *http.Request) {
	h.logger.InfoContext(r.Context(), "mcp tool listing requested",
		"request_id", middleware.GetRequestID(r.Context()))

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"tools": []toolDefinition{{
			Name: toolName,
			Description: "Retrieve ephemeral credentials from the vault. Returns a " +
				"short-lived JWT token (default 5 minutes) containing encrypted " +
				"credentials for the requested resource. Supports database, API, " +
				"SSH, and generic credential types.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"resource_type": map[string]any{
						"type":        "string",
						"enum":        credential.ValidResourceTypes(),
						"description": "Type of credential resource to retrieve",
					},
					"resource_name": map[string]any{
						"type":        "string",
						"description": "Name/title of the credential item in the vault",
					},
					"requesting_agent_id": map[string]any{
						"type":        "string",
						"description": "Unique identifier of the requesting agent (for audit logging)",
					},
					"ttl_minutes": map[string]any{
						"type":        "integer",
						"description": "Token time-to-live in minutes (default: 5, max: 15)",
						"default":     5,
						"minimum":     1,
						"maximum":     15,
					},
				},
				"required": []string{"resource_type", "resource_name", "requesting_agent_id"},
			},
		}},
	})
}

func (h *Handler) handleCallTool(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode tool call", "request_id", requestID, "error", err)
		httpx.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Name != toolName {
		httpx.WriteError(w, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("unknown tool: %s", req.Name)))
		return
	}
	if err := validation.Validate(&req.Arguments); err != nil {
		h.logger.WarnContext(ctx, "invalid tool arguments", "request_id", requestID, "error", err)
		httpx.WriteError(w, err)
		return
	}

	grant, err := h.service.FetchAndIssue(ctx, credential.IssueRequest{
		Protocol:     "mcp",
		AgentID:      req.Arguments.RequestingAgentID,
		ResourceType: req.Arguments.ResourceType,
		ResourceName: req.Arguments.ResourceName,
		TTLMinutes:   req.Arguments.TTLMinutes,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "tool call failed",
			"request_id", requestID,
			"resource", req.Arguments.ResourceType+"/"+req.Arguments.ResourceName,
			"error", err,
		)
		httpx.WriteJSON(w, http.StatusOK, callResponse{
			Content: []contentBlock{{
				Type: "text",
				Text: "Error retrieving credentials: " + err.Error(),
			}},
			IsError: true,
		})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, callResponse{
		Content: []contentBlock{{
			Type: "text",
			Text: summarizeGrant(grant),
		}},
		Result: &grantResult{
			Token:      grant.Token,
			Resource:   grant.Resource,
			ExpiresIn:  grant.ExpiresIn,
			TTLMinutes: grant.TTLMinutes,
			IssuedAt:   grant.IssuedAt.Format(time.RFC3339),
			ExpiresAt:  grant.ExpiresAt.Format(time.RFC3339),
		},
	})
}

// summarizeGrant renders the human-readable block. The token is elided here;
// clients read it from the structured result.
func summarizeGrant(grant *credential.Grant) string {
	tokenPreview := grant.Token
	if len(tokenPreview) > 40 {
		tokenPreview = tokenPreview[:20] + "..." + tokenPreview[len(tokenPreview)-20:]
	}
	return fmt.Sprintf(
		"Ephemeral credentials generated successfully\n\n"+
			"Resource: %s\n"+
			"Token: %s\n"+
			"Expires in: %d seconds (%d minutes)\n"+
			"Issued at: %s\n"+
			"Expires at: %s\n\n"+
			"This token is ephemeral and will expire automatically.",
		grant.Resource,
		tokenPreview,
		grant.ExpiresIn, grant.TTLMinutes,
		grant.IssuedAt.Format(time.RFC3339),
		grant.ExpiresAt.Format(time.RFC3339),
	)
}
