package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultLeeway tolerates clock skew between the mail job and the service.
const DefaultLeeway = 30 * time.Second

// HS256 signs and verifies API bearer tokens with a shared secret. The
// league API has exactly one kind of caller, so a symmetric key is enough.
type HS256 struct {
	key    []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewHS256 returns an HS256 signer/verifier. Keys shorter than 32 bytes are
// rejected.
func NewHS256(key []byte, issuer string) (*HS256, error) {
	if len(key) < 32 {
		return nil, ErrWeakKey
	}
	return &HS256{key: key, issuer: issuer, leeway: DefaultLeeway, now: time.Now}, nil
}

// SetClock overrides the time source. Intended for tests.
func (h *HS256) SetClock(now func() time.Time) { h.now = now }

// Sign turns claims into a compact JWT.
func (h *HS256) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.key)
}

// Verify parses token, checks the signature and then issuer and expiry.
func (h *HS256) Verify(token string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	parsed, err := parser.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return h.key, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidClaim
	}
	if err := claims.ValidateIssuer(h.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiryWithLeeway(h.now(), h.leeway); err != nil {
		return Claims{}, err
	}
	return *claims, nil
}
