package vault

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	dErrors "keyrelay/pkg/domain-errors"
)

// Client is a Gateway backed by the 1Password Connect REST API.
type Client struct {
	baseURL        string
	token          string
	defaultVaultID string
	httpClient     *http.Client
	logger         *slog.Logger
}

var _ Gateway = (*Client)(nil)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client (for testing).
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Connect API client. Host and token are required; the
// default vault ID is used whenever a lookup passes an empty vault ID.
func NewClient(host, token, defaultVaultID string, timeout time.Duration, logger *slog.Logger, opts ...ClientOption) (*Client, error) {
	if host == "" || token == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput,
			"vault connection not configured: host and token are required")
	}

	c := &Client{
		baseURL:        strings.TrimRight(host, "/"),
		token:          token,
		defaultVaultID: defaultVaultID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// connectItem is the Connect API item representation. The list endpoint
// returns summaries (no fields); the detail endpoint fills them in.
type connectItem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Vault  struct {
		ID string `json:"id"`
	} `json:"vault"`
	Fields []connectField `json:"fields"`
}

type connectField struct {
	Label   string `json:"label"`
	Value   string `json:"value"`
	Purpose string `json:"purpose"`
}

type connectVault struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LookupByTitle lists the vault and matches titles case-insensitively, then
// fetches the full item detail for the first match. Returns (nil, nil) when
// no item carries the title.
func (c *Client) LookupByTitle(ctx context.Context, title, vaultID string) (*Item, error) {
	if vaultID == "" {
		vaultID = c.defaultVaultID
	}
	if vaultID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "vault id is required")
	}

	var summaries []connectItem
	if err := c.getJSON(ctx, fmt.Sprintf("/v1/vaults/%s/items", vaultID), &summaries); err != nil {
		return nil, err
	}

	for _, summary := range summaries {
		if !strings.EqualFold(summary.Title, title) {
			continue
		}

		var detail connectItem
		path := fmt.Sprintf("/v1/vaults/%s/items/%s", vaultID, summary.ID)
		if err := c.getJSON(ctx, path, &detail); err != nil {
			return nil, err
		}
		c.logger.Info("vault item found", "title", title, "item_id", detail.ID)
		return itemFromConnect(detail), nil
	}

	c.logger.Warn("vault item not found", "title", title, "vault_id", vaultID)
	return nil, nil
}

// HealthProbe fetches the default vault to confirm connectivity and access.
func (c *Client) HealthProbe(ctx context.Context) Probe {
	if c.defaultVaultID == "" {
		return Probe{Error: "no default vault configured"}
	}

	var v connectVault
	if err := c.getJSON(ctx, "/v1/vaults/"+c.defaultVaultID, &v); err != nil {
		return Probe{Error: err.Error()}
	}
	return Probe{
		Connected:       true,
		VaultAccessible: true,
		VaultName:       v.Name,
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create vault request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return dErrors.Wrap(err, dErrors.CodeTransient, "vault request timed out")
		}
		return dErrors.Wrap(err, dErrors.CodeTransient, "vault unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransient, "read vault response")
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return dErrors.New(dErrors.CodeTransient, "vault rejected credentials")
	case http.StatusNotFound:
		return dErrors.New(dErrors.CodeNotFound, "vault or item not found")
	default:
		return dErrors.New(dErrors.CodeTransient,
			fmt.Sprintf("vault returned unexpected status %d", resp.StatusCode))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTransient, "parse vault response")
	}
	return nil
}

func itemFromConnect(detail connectItem) *Item {
	item := &Item{
		ID:      detail.ID,
		Title:   detail.Title,
		VaultID: detail.Vault.ID,
		Fields:  make([]Field, 0, len(detail.Fields)),
	}
	for _, f := range detail.Fields {
		if f.Purpose == "USERNAME" && item.Username == "" {
			item.Username = f.Value
			continue
		}
		item.Fields = append(item.Fields, Field{Label: f.Label, Value: f.Value})
	}
	return item
}
