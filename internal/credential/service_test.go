package credential

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"keyrelay/internal/audit"
	"keyrelay/internal/credential/mocks"
	"keyrelay/internal/token"
	"keyrelay/internal/vault"
	dErrors "keyrelay/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	auditor *mocks.MockAuditor
	codec   *token.Codec
	clock   time.Time
	logger  *slog.Logger
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.auditor = mocks.NewMockAuditor(s.ctrl)
	s.clock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	codec, err := token.NewCodec("service-test-master-secret-0123456789", 5, s.logger,
		token.WithClock(func() time.Time { return s.clock }))
	s.Require().NoError(err)
	s.codec = codec
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) seededVault() *vault.Fake {
	f := vault.NewFake("test-vault")
	f.Seed(&vault.Item{
		ID: "item-1", Title: "production-postgres", VaultID: "test-vault",
		Username: "app_rw",
		Fields:   []vault.Field{{Label: "password", Value: "pg-pass"}},
	})
	return f
}

func (s *ServiceSuite) newService(gateway VaultGateway) *Service {
	return NewService(gateway, s.codec, s.auditor, s.logger)
}

func (s *ServiceSuite) TestInvalidResourceTypeNeverReachesVault() {
	gateway := mocks.NewMockVaultGateway(s.ctrl)
	// No LookupByTitle expectation: the request must fail before the vault.
	s.auditor.EXPECT().
		LogAccess(gomock.Any(), "mcp", "agent-1", "filesystem/etc-passwd", audit.OutcomeFailure, gomock.Any())

	svc := s.newService(gateway)
	_, err := svc.FetchAndIssue(context.Background(), IssueRequest{
		Protocol:     "mcp",
		AgentID:      "agent-1",
		ResourceType: "filesystem",
		ResourceName: "etc-passwd",
	})

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ServiceSuite) TestFetchAndIssueRoundTrip() {
	fake := s.seededVault()
	s.auditor.EXPECT().
		LogTokenGeneration(gomock.Any(), "a2a", "agent-1", "database/production-postgres", 10, gomock.Any())
	s.auditor.EXPECT().
		LogAccess(gomock.Any(), "a2a", "agent-1", "database/production-postgres", audit.OutcomeSuccess, gomock.Any())

	svc := s.newService(fake)
	grant, err := svc.FetchAndIssue(context.Background(), IssueRequest{
		Protocol:     "a2a",
		AgentID:      "agent-1",
		ResourceType: "database",
		ResourceName: "production-postgres",
		TTLMinutes:   10,
	})
	s.Require().NoError(err)

	s.Equal("database/production-postgres", grant.Resource)
	s.Equal(10, grant.TTLMinutes)
	s.Equal(600, grant.ExpiresIn)
	s.Equal(s.clock, grant.IssuedAt)
	s.Equal(s.clock.Add(10*time.Minute), grant.ExpiresAt)
	s.Equal(1, fake.Lookups())

	// The issued token must decrypt back to exactly what the vault held.
	access, err := s.codec.VerifyAndDecrypt(grant.Token)
	s.Require().NoError(err)
	s.Equal("agent-1", access.AgentID)
	s.Equal("app_rw", access.Credentials["username"])
	s.Equal("pg-pass", access.Credentials["password"])
	s.Equal("item-1", access.Credentials["_item_id"])
}

func (s *ServiceSuite) TestFetchAndIssueUnknownResource() {
	s.auditor.EXPECT().
		LogAccess(gomock.Any(), "mcp", "agent-1", "database/no-such-db", audit.OutcomeFailure, gomock.Any())

	svc := s.newService(s.seededVault())
	_, err := svc.FetchAndIssue(context.Background(), IssueRequest{
		Protocol:     "mcp",
		AgentID:      "agent-1",
		ResourceType: "database",
		ResourceName: "no-such-db",
	})

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestFetchAndIssueVaultOutage() {
	fake := s.seededVault()
	fake.SetUnreachable(true)
	s.auditor.EXPECT().
		LogAccess(gomock.Any(), "acp", "agent-1", "database/production-postgres", audit.OutcomeError, gomock.Any())

	svc := s.newService(fake)
	_, err := svc.FetchAndIssue(context.Background(), IssueRequest{
		Protocol:     "acp",
		AgentID:      "agent-1",
		ResourceType: "database",
		ResourceName: "production-postgres",
	})

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTransient))
}

func (s *ServiceSuite) TestValidate() {
	s.auditor.EXPECT().
		LogTokenGeneration(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any())
	s.auditor.EXPECT().
		LogAccess(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), audit.OutcomeSuccess, gomock.Any())

	svc := s.newService(s.seededVault())
	grant, err := svc.FetchAndIssue(context.Background(), IssueRequest{
		Protocol:     "mcp",
		AgentID:      "agent-9",
		ResourceType: "database",
		ResourceName: "production-postgres",
		TTLMinutes:   5,
	})
	s.Require().NoError(err)

	s.auditor.EXPECT().LogTokenValidation(gomock.Any(), "mcp", "agent-9", true, gomock.Any())
	validation, err := svc.Validate(context.Background(), "mcp", grant.Token)
	s.Require().NoError(err)
	s.True(validation.Valid)
	s.Equal("agent-9", validation.AgentID)
	s.Equal("database", validation.ResourceType)
	s.Equal(300, validation.TimeRemaining)

	// Past expiry the same token fails with the expired code.
	s.clock = s.clock.Add(6 * time.Minute)
	s.auditor.EXPECT().LogTokenValidation(gomock.Any(), "mcp", "unknown", false, gomock.Any())
	_, err = svc.Validate(context.Background(), "mcp", grant.Token)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeTokenExpired))
}

func (s *ServiceSuite) TestDecryptForUseInvalidToken() {
	s.auditor.EXPECT().
		LogAccess(gomock.Any(), "mcp", "unknown", "token_decrypt", audit.OutcomeDenied, gomock.Any())

	svc := s.newService(s.seededVault())
	_, err := svc.DecryptForUse(context.Background(), "mcp", "not-a-token")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
}

func (s *ServiceSuite) TestHealthCheck() {
	fake := s.seededVault()
	svc := s.newService(fake)

	health := svc.HealthCheck(context.Background())
	s.Equal("healthy", health.Status)
	s.Equal("HS256", health.TokenAlgorithm)
	s.Equal(5, health.DefaultTTLMinutes)
	s.Equal("test-vault", health.Vault.VaultName)

	fake.SetUnreachable(true)
	health = svc.HealthCheck(context.Background())
	s.Equal("degraded", health.Status)
	s.False(health.Vault.Connected)
}
