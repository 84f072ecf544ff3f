package token

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	dErrors "keyrelay/pkg/domain-errors"
)

const testSecret = "unit-test-master-secret-0123456789abcdef"

type CodecSuite struct {
	suite.Suite
	codec *Codec
	now   time.Time
}

func (s *CodecSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec, err := NewCodec(testSecret, 5, discardLogger(), WithClock(func() time.Time { return s.now }))
	s.Require().NoError(err)
	s.codec = codec
}

func TestCodecSuite(t *testing.T) {
	suite.Run(t, new(CodecSuite))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *CodecSuite) TestNewCodecRequiresSecret() {
	_, err := NewCodec("", 5, discardLogger())
	s.Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *CodecSuite) TestEncryptDecryptRoundTrip() {
	credentials := map[string]string{
		"username":    "svc-user",
		"password":    "s3cret",
		"_item_id":    "item-123",
		"_item_title": "prod-postgres",
	}

	encrypted, err := s.codec.Encrypt(credentials)
	s.Require().NoError(err)
	s.NotContains(encrypted, "s3cret")

	decrypted, err := s.codec.Decrypt(encrypted)
	s.Require().NoError(err)
	s.Equal(credentials, decrypted)
}

func (s *CodecSuite) TestDecryptWithDifferentKeyFails() {
	encrypted, err := s.codec.Encrypt(map[string]string{"password": "s3cret"})
	s.Require().NoError(err)

	other, err := NewCodec("a-completely-different-master-secret-key", 5, discardLogger())
	s.Require().NoError(err)

	_, err = other.Decrypt(encrypted)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
}

func (s *CodecSuite) TestDecryptGarbageFails() {
	for _, input := range []string{"", "not-base64!!!", "dG9vc2hvcnQ"} {
		_, err := s.codec.Decrypt(input)
		s.Require().Error(err, "input %q", input)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
	}
}

func (s *CodecSuite) TestIssueClaims() {
	signed, claims, err := s.codec.Issue("agent-1", map[string]string{"k": "v"}, "database", "prod-postgres", 10)
	s.Require().NoError(err)
	s.NotEmpty(signed)

	s.Equal("agent-1", claims.Subject)
	s.Equal("database", claims.ResourceType)
	s.Equal("prod-postgres", claims.ResourceName)
	s.Equal(10, claims.TTLMinutes)
	s.Equal(Issuer, claims.Issuer)
	s.Equal(s.now, claims.IssuedAt.Time)
	s.Equal(s.now.Add(10*time.Minute), claims.ExpiresAt.Time)
	s.NotEmpty(claims.Credentials)
}

func (s *CodecSuite) TestIssueDefaultsTTL() {
	_, claims, err := s.codec.Issue("agent-1", nil, "api", "stripe-api", 0)
	s.Require().NoError(err)
	s.Equal(5, claims.TTLMinutes)
	s.Equal(s.now.Add(5*time.Minute), claims.ExpiresAt.Time)
}

func (s *CodecSuite) TestTokenLifecycle() {
	for _, ttl := range []int{1, 5, 15} {
		issuedAt := s.now
		signed, _, err := s.codec.Issue("agent-1", map[string]string{"k": "v"}, "ssh", "bastion", ttl)
		s.Require().NoError(err)
		expiry := issuedAt.Add(time.Duration(ttl) * time.Minute)

		// Valid anywhere inside [issuedAt, expiry).
		s.now = issuedAt
		_, err = s.codec.Verify(signed)
		s.NoError(err, "ttl=%d at issuance", ttl)

		s.now = expiry.Add(-time.Second)
		_, err = s.codec.Verify(signed)
		s.NoError(err, "ttl=%d just before expiry", ttl)
		s.False(s.codec.IsExpired(signed))

		// Exactly at expiry counts as expired.
		s.now = expiry
		_, err = s.codec.Verify(signed)
		s.Require().Error(err, "ttl=%d at expiry", ttl)
		s.True(dErrors.HasCode(err, dErrors.CodeTokenExpired))
		s.True(s.codec.IsExpired(signed))

		s.now = issuedAt
	}
}

func (s *CodecSuite) TestTamperedSignatureIsInvalidNotExpired() {
	signed, _, err := s.codec.Issue("agent-1", map[string]string{"k": "v"}, "api", "stripe-api", 5)
	s.Require().NoError(err)

	parts := strings.Split(signed, ".")
	s.Require().Len(parts, 3)

	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = s.codec.Verify(tampered)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
	s.False(dErrors.HasCode(err, dErrors.CodeTokenExpired))
}

func (s *CodecSuite) TestVerifyAndDecryptRoundTrip() {
	credentials := map[string]string{"username": "svc", "password": "pw"}
	signed, _, err := s.codec.Issue("agent-7", credentials, "database", "prod-postgres", 5)
	s.Require().NoError(err)

	access, err := s.codec.VerifyAndDecrypt(signed)
	s.Require().NoError(err)
	s.Equal("agent-7", access.AgentID)
	s.Equal("database", access.ResourceType)
	s.Equal("prod-postgres", access.ResourceName)
	s.Equal(credentials, access.Credentials)
	s.Equal(5, access.TTLMinutes)
}

func (s *CodecSuite) TestVerifyAndDecryptMissingPayload() {
	// A structurally valid token signed with our key but carrying no
	// encrypted payload.
	claims := &Claims{
		ResourceType: "api",
		ResourceName: "stripe-api",
		TTLMinutes:   5,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "agent-1",
			IssuedAt:  jwt.NewNumericDate(s.now),
			ExpiresAt: jwt.NewNumericDate(s.now.Add(5 * time.Minute)),
			Issuer:    Issuer,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	s.Require().NoError(err)

	_, err = s.codec.VerifyAndDecrypt(signed)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
	s.Contains(err.Error(), "does not contain encrypted credentials")
}

func (s *CodecSuite) TestWrongIssuerRejected() {
	claims := &Claims{
		TTLMinutes: 5,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "agent-1",
			IssuedAt:  jwt.NewNumericDate(s.now),
			ExpiresAt: jwt.NewNumericDate(s.now.Add(5 * time.Minute)),
			Issuer:    "someone-else",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	s.Require().NoError(err)

	_, err = s.codec.Verify(signed)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidToken))
}

func (s *CodecSuite) TestIntrospectionIsLenient() {
	// Garbage and expired tokens look the same through the lenient helpers.
	s.True(s.codec.IsExpired("not-a-token"))
	s.Zero(s.codec.TimeUntilExpiry("not-a-token"))

	signed, _, err := s.codec.Issue("agent-1", nil, "generic", "thing", 2)
	s.Require().NoError(err)

	s.Equal(2*time.Minute, s.codec.TimeUntilExpiry(signed))

	s.now = s.now.Add(3 * time.Minute)
	s.Zero(s.codec.TimeUntilExpiry(signed))
	s.True(s.codec.IsExpired(signed))
}
