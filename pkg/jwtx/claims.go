package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultServiceTokenTTL is the lifetime of tokens minted for mail jobs.
const DefaultServiceTokenTTL = 15 * time.Minute

// Scopes understood by the link issuance API.
const (
	ScopeLinksIssue  = "links:issue"
	ScopeEventsWrite = "events:write"
)

// Claims are the bearer token claims accepted by the league API.
type Claims struct {
	jwt.RegisteredClaims

	// Permission scopes, e.g. "links:issue".
	Scopes []string `json:"scopes,omitempty"`
}

// NewServiceClaims builds claims for a machine caller such as the mail job.
// A non-positive ttl means DefaultServiceTokenTTL.
func NewServiceClaims(subject, issuer string, scopes []string, ttl time.Duration, now time.Time) Claims {
	if ttl <= 0 {
		ttl = DefaultServiceTokenTTL
	}
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Scopes: scopes,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// HasScope reports whether the claims grant scope.
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiryWithLeeway checks exp and nbf allowing for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
