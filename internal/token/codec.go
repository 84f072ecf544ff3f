// Package token implements the broker's two-layer ephemeral token: an HS256
// signed claim envelope carrying a separately encrypted credential payload.
// Verifying the signature never exposes the credentials; decryption requires
// the payload key derived from the master secret.
package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/pbkdf2"

	dErrors "keyrelay/pkg/domain-errors"
)

// Issuer is the iss claim stamped on every token. Resource-side consumers
// match on this string, so it is part of the wire contract.
const Issuer = "keyrelay-credential-broker"

const (
	// Fixed salt and iteration count make key derivation deterministic: the
	// same master secret always yields the same payload key, so any broker
	// instance sharing the secret can decrypt.
	kdfSalt       = "keyrelay-broker-salt"
	kdfIterations = 100_000
	kdfKeyLen     = 32
)

// Claims is the signed, non-secret envelope of a token. Credentials holds the
// independently encrypted payload; everything else is inspectable by any
// holder without the decryption key.
type Claims struct {
	Credentials  string `json:"credentials,omitempty"`
	ResourceType string `json:"resource_type"`
	ResourceName string `json:"resource_name"`
	TTLMinutes   int    `json:"ttl_minutes"`
	jwt.RegisteredClaims
}

// Access is the full decrypted view of a token, returned only by
// VerifyAndDecrypt. This is the single place raw secret material re-emerges.
type Access struct {
	AgentID      string
	ResourceType string
	ResourceName string
	Credentials  map[string]string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	TTLMinutes   int
}

// Codec signs, encrypts, verifies, and decrypts ephemeral tokens. All
// operations are pure CPU work; the codec performs no I/O.
type Codec struct {
	signingKey        []byte
	aead              cipher.AEAD
	defaultTTLMinutes int
	now               func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source. Used by tests to pin issuance and
// verification times.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec derives the payload key from the master secret and prepares the
// cipher. The signing key is the master secret itself; the payload key is a
// PBKDF2 derivation of it, so compromise of the signing key alone does not
// leak credentials.
func NewCodec(masterSecret string, defaultTTLMinutes int, logger *slog.Logger, opts ...Option) (*Codec, error) {
	if masterSecret == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "master secret not configured")
	}
	if len(masterSecret) < 32 && logger != nil {
		logger.Warn("master secret is shorter than recommended (32+ characters)")
	}
	if defaultTTLMinutes <= 0 {
		defaultTTLMinutes = 5
	}

	key := pbkdf2.Key([]byte(masterSecret), []byte(kdfSalt), kdfIterations, kdfKeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("initialize payload cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("initialize payload cipher: %w", err)
	}

	c := &Codec{
		signingKey:        []byte(masterSecret),
		aead:              aead,
		defaultTTLMinutes: defaultTTLMinutes,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Algorithm reports the signing algorithm for health self-reports.
func (c *Codec) Algorithm() string { return jwt.SigningMethodHS256.Alg() }

// DefaultTTLMinutes reports the TTL applied when callers pass none.
func (c *Codec) DefaultTTLMinutes() int { return c.defaultTTLMinutes }

// Encrypt serializes the credential map and encrypts it with AES-256-GCM.
// Key derivation is deterministic; only the nonce is random.
func (c *Codec) Encrypt(credentials map[string]string) (string, error) {
	plaintext, err := json.Marshal(credentials)
	if err != nil {
		return "", fmt.Errorf("serialize credentials: %w", err)
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Every failure mode (wrong key, truncated or
// tampered ciphertext, bad auth tag) collapses to one generic error so the
// codec never acts as a decryption oracle.
func (c *Codec) Decrypt(encrypted string) (map[string]string, error) {
	invalid := dErrors.New(dErrors.CodeInvalidToken, "invalid or corrupted encrypted data")

	sealed, err := base64.RawURLEncoding.DecodeString(encrypted)
	if err != nil || len(sealed) < c.aead.NonceSize() {
		return nil, invalid
	}

	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, invalid
	}

	var credentials map[string]string
	if err := json.Unmarshal(plaintext, &credentials); err != nil {
		return nil, invalid
	}
	return credentials, nil
}

// Issue encrypts the credentials and signs the claim envelope. A ttlMinutes
// of zero applies the default. Expiry is always issued-at plus TTL.
func (c *Codec) Issue(agentID string, credentials map[string]string, resourceType, resourceName string, ttlMinutes int) (string, *Claims, error) {
	if ttlMinutes <= 0 {
		ttlMinutes = c.defaultTTLMinutes
	}

	encrypted, err := c.Encrypt(credentials)
	if err != nil {
		return "", nil, err
	}

	now := c.now().UTC()
	claims := &Claims{
		Credentials:  encrypted,
		ResourceType: resourceType,
		ResourceName: resourceName,
		TTLMinutes:   ttlMinutes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   agentID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlMinutes) * time.Minute)),
			Issuer:    Issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Verify validates signature and expiry. Expired tokens fail with a distinct
// code from tampered or malformed ones; callers branch on the difference.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, c.keyFunc, jwt.WithTimeFunc(c.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeTokenExpired, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid token")
	}
	if claims.Issuer != Issuer {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "invalid token issuer")
	}
	return claims, nil
}

// VerifyAndDecrypt composes Verify with payload decryption.
func (c *Codec) VerifyAndDecrypt(tokenString string) (*Access, error) {
	claims, err := c.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Credentials == "" {
		return nil, dErrors.New(dErrors.CodeInvalidToken, "token does not contain encrypted credentials")
	}

	credentials, err := c.Decrypt(claims.Credentials)
	if err != nil {
		return nil, err
	}

	return &Access{
		AgentID:      claims.Subject,
		ResourceType: claims.ResourceType,
		ResourceName: claims.ResourceName,
		Credentials:  credentials,
		IssuedAt:     claims.IssuedAt.Time,
		ExpiresAt:    claims.ExpiresAt.Time,
		TTLMinutes:   claims.TTLMinutes,
	}, nil
}

// IsExpired reports whether a token is past its expiry without returning an
// error. Unparseable tokens count as expired; callers needing the strict
// expired/invalid distinction must use Verify.
func (c *Codec) IsExpired(tokenString string) bool {
	claims, err := c.peek(tokenString)
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return !c.now().UTC().Before(claims.ExpiresAt.Time)
}

// TimeUntilExpiry returns the remaining validity window, or zero for expired
// or unparseable tokens.
func (c *Codec) TimeUntilExpiry(tokenString string) time.Duration {
	claims, err := c.peek(tokenString)
	if err != nil || claims.ExpiresAt == nil {
		return 0
	}
	remaining := claims.ExpiresAt.Time.Sub(c.now().UTC())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// peek parses a token checking the signature but not the expiry, so expired
// tokens can still be introspected.
func (c *Codec) peek(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, c.keyFunc,
		jwt.WithTimeFunc(c.now),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	return claims, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, jwt.ErrTokenUnverifiable
	}
	return c.signingKey, nil
}
