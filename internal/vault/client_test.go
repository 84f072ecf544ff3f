package vault

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "keyrelay/pkg/domain-errors"
)

type ClientSuite struct {
	suite.Suite
	server *httptest.Server
	client *Client
}

func (s *ClientSuite) SetupTest() {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/vaults/vault-1/items", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer connect-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		s.writeJSON(w, []map[string]any{
			{"id": "item-1", "title": "Production-Postgres"},
			{"id": "item-2", "title": "stripe-api"},
		})
	})
	mux.HandleFunc("/v1/vaults/vault-1/items/item-1", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, map[string]any{
			"id":    "item-1",
			"title": "Production-Postgres",
			"vault": map[string]string{"id": "vault-1"},
			"fields": []map[string]string{
				{"label": "username", "value": "app_rw", "purpose": "USERNAME"},
				{"label": "password", "value": "pg-pass"},
			},
		})
	})
	mux.HandleFunc("/v1/vaults/vault-1", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, map[string]string{"id": "vault-1", "name": "Infrastructure"})
	})
	s.server = httptest.NewServer(mux)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := NewClient(s.server.URL, "connect-token", "vault-1", 5*time.Second, logger)
	s.Require().NoError(err)
	s.client = client
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	s.Require().NoError(json.NewEncoder(w).Encode(v))
}

func (s *ClientSuite) TestNewClientRequiresHostAndToken() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := NewClient("", "token", "vault-1", time.Second, logger)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ClientSuite) TestLookupByTitleMatchesCaseInsensitively() {
	item, err := s.client.LookupByTitle(context.Background(), "production-postgres", "")
	s.Require().NoError(err)
	s.Require().NotNil(item)

	s.Equal("item-1", item.ID)
	s.Equal("Production-Postgres", item.Title)
	s.Equal("vault-1", item.VaultID)
	s.Equal("app_rw", item.Username)
	s.Require().Len(item.Fields, 1)
	s.Equal("password", item.Fields[0].Label)
}

func (s *ClientSuite) TestLookupByTitleNoMatch() {
	item, err := s.client.LookupByTitle(context.Background(), "no-such-item", "")
	s.NoError(err)
	s.Nil(item)
}

func (s *ClientSuite) TestLookupUnknownVaultIsNotFound() {
	_, err := s.client.LookupByTitle(context.Background(), "anything", "vault-404")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ClientSuite) TestLookupUnreachableVaultIsTransient() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client, err := NewClient("http://127.0.0.1:1", "token", "vault-1", 200*time.Millisecond, logger)
	s.Require().NoError(err)

	_, err = client.LookupByTitle(context.Background(), "anything", "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTransient))
}

func (s *ClientSuite) TestHealthProbe() {
	probe := s.client.HealthProbe(context.Background())
	s.True(probe.Connected)
	s.True(probe.VaultAccessible)
	s.Equal("Infrastructure", probe.VaultName)
}
