// Package credential orchestrates the broker's core flow: fetch a secret from
// the vault, seal it into a short-lived token, and audit the access. All three
// protocol front-ends call into this package; none of them touch the vault or
// the codec directly.
package credential

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"keyrelay/internal/audit"
	"keyrelay/internal/platform/metrics"
	"keyrelay/internal/token"
	"keyrelay/internal/vault"
	dErrors "keyrelay/pkg/domain-errors"
)

// ResourceType classifies what kind of credential is being requested.
type ResourceType string

const (
	ResourceDatabase ResourceType = "database"
	ResourceAPI      ResourceType = "api"
	ResourceSSH      ResourceType = "ssh"
	ResourceGeneric  ResourceType = "generic"
)

// ValidResourceTypes lists the accepted resource type values.
func ValidResourceTypes() []string {
	return []string{
		string(ResourceDatabase),
		string(ResourceAPI),
		string(ResourceSSH),
		string(ResourceGeneric),
	}
}

// ParseResourceType validates a raw resource type value.
func ParseResourceType(raw string) (ResourceType, error) {
	switch ResourceType(raw) {
	case ResourceDatabase, ResourceAPI, ResourceSSH, ResourceGeneric:
		return ResourceType(raw), nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf(
			"invalid resource_type: %s, must be one of: %s",
			raw, strings.Join(ValidResourceTypes(), ", ")))
	}
}

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// VaultGateway is the secret store dependency.
// Error Contract:
// - LookupByTitle returns (nil, nil) when no item matches the title
// - transport and store failures carry the transient domain code
type VaultGateway interface {
	LookupByTitle(ctx context.Context, title, vaultID string) (*vault.Item, error)
	HealthProbe(ctx context.Context) vault.Probe
}

// Codec is the token layer dependency.
type Codec interface {
	Issue(agentID string, credentials map[string]string, resourceType, resourceName string, ttlMinutes int) (string, *token.Claims, error)
	Verify(tokenString string) (*token.Claims, error)
	VerifyAndDecrypt(tokenString string) (*token.Access, error)
	TimeUntilExpiry(tokenString string) time.Duration
	Algorithm() string
	DefaultTTLMinutes() int
}

// Auditor records access decisions. Implementations must never fail the
// calling path.
type Auditor interface {
	LogAccess(ctx context.Context, protocol, agentID, resource string, outcome audit.Outcome, metadata map[string]any)
	LogTokenGeneration(ctx context.Context, protocol, agentID, resource string, ttlMinutes int, metadata map[string]any)
	LogTokenValidation(ctx context.Context, protocol, agentID string, valid bool, metadata map[string]any)
}

// IssueRequest carries one credential request through the service.
type IssueRequest struct {
	Protocol     string
	AgentID      string
	ResourceType string
	ResourceName string
	TTLMinutes   int
	VaultID      string
}

// Grant is an issued token plus its public metadata.
type Grant struct {
	Token      string
	Resource   string
	TTLMinutes int
	ExpiresIn  int
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// Validation is the public view of a verified token; credentials stay sealed.
type Validation struct {
	Valid         bool
	AgentID       string
	ResourceType  string
	ResourceName  string
	IssuedAt      time.Time
	ExpiresAt     time.Time
	TimeRemaining int
}

// Health aggregates component health for readiness reporting.
type Health struct {
	Status            string
	Vault             vault.Probe
	TokenAlgorithm    string
	DefaultTTLMinutes int
}

const defaultVaultTimeout = 10 * time.Second

// Service wires the vault, codec, and auditor together.
type Service struct {
	vault        VaultGateway
	codec        Codec
	auditor      Auditor
	logger       *slog.Logger
	metrics      *metrics.Metrics
	tracer       trace.Tracer
	vaultTimeout time.Duration
}

// Option configures the Service.
type Option func(*Service)

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithVaultTimeout bounds how long a single vault lookup may take.
func WithVaultTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.vaultTimeout = timeout
		}
	}
}

func NewService(gateway VaultGateway, codec Codec, auditor Auditor, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		vault:        gateway,
		codec:        codec,
		auditor:      auditor,
		logger:       logger,
		tracer:       otel.Tracer("keyrelay/credential"),
		vaultTimeout: defaultVaultTimeout,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Fetch looks up a resource in the vault and flattens it into a credential
// map. The lookup runs under the service's vault timeout so a hung vault
// surfaces as a transient error instead of stalling the request.
func (s *Service) Fetch(ctx context.Context, resourceType, resourceName, vaultID string) (map[string]string, error) {
	parsed, err := ParseResourceType(resourceType)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "credential.Fetch",
		trace.WithAttributes(
			attribute.String("resource.type", string(parsed)),
			attribute.String("resource.name", resourceName),
		))
	defer span.End()

	lookupCtx, cancel := context.WithTimeout(ctx, s.vaultTimeout)
	defer cancel()

	start := time.Now()
	item, err := s.vault.LookupByTitle(lookupCtx, resourceName, vaultID)
	if s.metrics != nil {
		s.metrics.ObserveVaultLookup(time.Since(start).Seconds())
	}
	if err != nil {
		s.logger.Error("vault lookup failed", "resource_name", resourceName, "error", err)
		return nil, err
	}
	if item == nil {
		return nil, dErrors.New(dErrors.CodeNotFound,
			fmt.Sprintf("resource '%s' not found in vault", resourceName))
	}

	credentials := vault.Flatten(item)
	s.logger.Info("credentials fetched",
		"resource_type", parsed, "resource_name", resourceName, "fields", len(credentials))
	return credentials, nil
}

// Issue seals already-fetched credentials into a signed token.
func (s *Service) Issue(ctx context.Context, req IssueRequest, credentials map[string]string) (*Grant, error) {
	_, span := s.tracer.Start(ctx, "credential.Issue",
		trace.WithAttributes(attribute.String("agent.id", req.AgentID)))
	defer span.End()

	signed, claims, err := s.codec.Issue(req.AgentID, credentials, req.ResourceType, req.ResourceName, req.TTLMinutes)
	if err != nil {
		s.logger.Error("token issuance failed", "agent_id", req.AgentID, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	resource := req.ResourceType + "/" + req.ResourceName
	grant := &Grant{
		Token:      signed,
		Resource:   resource,
		TTLMinutes: claims.TTLMinutes,
		ExpiresIn:  claims.TTLMinutes * 60,
		IssuedAt:   claims.IssuedAt.Time,
		ExpiresAt:  claims.ExpiresAt.Time,
	}

	if s.metrics != nil {
		s.metrics.RecordTokenIssued(claims.TTLMinutes)
	}
	s.auditor.LogTokenGeneration(ctx, req.Protocol, req.AgentID, resource, claims.TTLMinutes, nil)

	s.logger.Info("ephemeral token issued",
		"agent_id", req.AgentID, "resource", resource, "ttl_minutes", claims.TTLMinutes)
	return grant, nil
}

// FetchAndIssue is the full flow behind every credential request. Every
// outcome, success or not, produces exactly one credential_access audit event.
func (s *Service) FetchAndIssue(ctx context.Context, req IssueRequest) (*Grant, error) {
	ctx, span := s.tracer.Start(ctx, "credential.FetchAndIssue",
		trace.WithAttributes(
			attribute.String("protocol", req.Protocol),
			attribute.String("agent.id", req.AgentID),
		))
	defer span.End()

	resource := req.ResourceType + "/" + req.ResourceName
	start := time.Now()

	credentials, err := s.Fetch(ctx, req.ResourceType, req.ResourceName, req.VaultID)
	if err != nil {
		outcome := outcomeForError(err)
		s.auditor.LogAccess(ctx, req.Protocol, req.AgentID, resource, outcome,
			map[string]any{"error": err.Error()})
		s.recordRequest(req.Protocol, outcome, start)
		return nil, err
	}

	grant, err := s.Issue(ctx, req, credentials)
	if err != nil {
		s.auditor.LogAccess(ctx, req.Protocol, req.AgentID, resource, audit.OutcomeError,
			map[string]any{"error": err.Error()})
		s.recordRequest(req.Protocol, audit.OutcomeError, start)
		return nil, err
	}

	s.auditor.LogAccess(ctx, req.Protocol, req.AgentID, resource, audit.OutcomeSuccess,
		map[string]any{"ttl_minutes": grant.TTLMinutes})
	s.recordRequest(req.Protocol, audit.OutcomeSuccess, start)
	return grant, nil
}

// Validate verifies a token's signature and expiry without exposing the
// sealed credentials.
func (s *Service) Validate(ctx context.Context, protocol, tokenString string) (*Validation, error) {
	_, span := s.tracer.Start(ctx, "credential.Validate")
	defer span.End()

	claims, err := s.codec.Verify(tokenString)
	if err != nil {
		s.auditor.LogTokenValidation(ctx, protocol, "unknown", false,
			map[string]any{"reason": err.Error()})
		return nil, err
	}

	remaining := int(s.codec.TimeUntilExpiry(tokenString).Seconds())
	s.auditor.LogTokenValidation(ctx, protocol, claims.Subject, true, nil)

	return &Validation{
		Valid:         true,
		AgentID:       claims.Subject,
		ResourceType:  claims.ResourceType,
		ResourceName:  claims.ResourceName,
		IssuedAt:      claims.IssuedAt.Time,
		ExpiresAt:     claims.ExpiresAt.Time,
		TimeRemaining: remaining,
	}, nil
}

// DecryptForUse verifies a token and returns the sealed credentials. This is
// the only service path that exposes secret material, so it always audits as
// a credential access.
func (s *Service) DecryptForUse(ctx context.Context, protocol, tokenString string) (*token.Access, error) {
	_, span := s.tracer.Start(ctx, "credential.DecryptForUse")
	defer span.End()

	access, err := s.codec.VerifyAndDecrypt(tokenString)
	if err != nil {
		outcome := audit.OutcomeDenied
		if dErrors.HasCode(err, dErrors.CodeTokenExpired) {
			outcome = audit.OutcomeFailure
		}
		s.auditor.LogAccess(ctx, protocol, "unknown", "token_decrypt", outcome,
			map[string]any{"reason": err.Error()})
		return nil, err
	}

	resource := access.ResourceType + "/" + access.ResourceName
	s.auditor.LogAccess(ctx, protocol, access.AgentID, resource, audit.OutcomeSuccess,
		map[string]any{"via": "token_decrypt"})
	return access, nil
}

// HealthCheck probes the vault and reports codec configuration. The broker is
// degraded, not down, when the vault is unreachable: issued tokens can still
// be validated and decrypted.
func (s *Service) HealthCheck(ctx context.Context) Health {
	probeCtx, cancel := context.WithTimeout(ctx, s.vaultTimeout)
	defer cancel()

	probe := s.vault.HealthProbe(probeCtx)
	status := "healthy"
	if !probe.Connected || !probe.VaultAccessible {
		status = "degraded"
	}
	return Health{
		Status:            status,
		Vault:             probe,
		TokenAlgorithm:    s.codec.Algorithm(),
		DefaultTTLMinutes: s.codec.DefaultTTLMinutes(),
	}
}

func (s *Service) recordRequest(protocol string, outcome audit.Outcome, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncrementRequests(protocol, string(outcome))
	s.metrics.ObserveRequestDuration(protocol, time.Since(start).Seconds())
}

// outcomeForError maps a fetch failure to its audit outcome: caller mistakes
// are failures, infrastructure problems are errors.
func outcomeForError(err error) audit.Outcome {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInvalidInput, dErrors.CodeValidation, dErrors.CodeBadRequest, dErrors.CodeNotFound:
		return audit.OutcomeFailure
	default:
		return audit.OutcomeError
	}
}
