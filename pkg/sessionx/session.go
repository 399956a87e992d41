// Package sessionx stores the signed-in member in an encrypted cookie.
//
// The session secret is independent from the action link secret: a leaked
// link key cannot mint sessions and rotating one does not log anyone out of
// the other.
package sessionx

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/aussiebroadwan/league/pkg/cryptox"
)

// ErrUnauthenticated covers every way a cookie can fail to yield a session:
// missing, undecryptable, expired or carrying an unknown role.
var ErrUnauthenticated = errors.New("sessionx: unauthenticated")

const sealPurpose = "league/session/aes-256-gcm/v1"

// Session is the authenticated principal carried by the cookie.
type Session struct {
	SubjectID string    `json:"sub"`
	Role      string    `json:"role"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// Codec seals and opens session payloads.
type Codec struct {
	sealer *cryptox.Sealer
	ttl    time.Duration
	roles  []string
	now    func() time.Time
}

// NewCodec builds a codec whose sessions last ttl and must carry one of roles.
func NewCodec(secret []byte, ttl time.Duration, roles ...string) (*Codec, error) {
	if len(secret) < 32 {
		return nil, errors.New("sessionx: secret too short")
	}
	if ttl <= 0 {
		return nil, errors.New("sessionx: ttl must be positive")
	}
	sealer, err := cryptox.NewSealer(secret, sealPurpose)
	if err != nil {
		return nil, err
	}
	return &Codec{sealer: sealer, ttl: ttl, roles: roles, now: time.Now}, nil
}

// SetClock overrides the time source. Intended for tests.
func (c *Codec) SetClock(now func() time.Time) {
	c.now = now
}

// TTL is the lifetime of newly issued sessions.
func (c *Codec) TTL() time.Duration { return c.ttl }

// New returns a fresh session for subjectID.
func (c *Codec) New(subjectID, role string) Session {
	now := c.now().UTC().Truncate(time.Second)
	return Session{
		SubjectID: subjectID,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(c.ttl),
	}
}

// Encode seals s into an opaque cookie value.
func (c *Codec) Encode(s Session) (string, error) {
	payload, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	sealed, err := c.sealer.Seal(payload, nil)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Authenticate opens a cookie value. Any failure yields ErrUnauthenticated.
func (c *Codec) Authenticate(value string) (Session, error) {
	if value == "" {
		return Session{}, ErrUnauthenticated
	}
	sealed, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return Session{}, ErrUnauthenticated
	}
	payload, err := c.sealer.Open(sealed, nil)
	if err != nil {
		return Session{}, ErrUnauthenticated
	}

	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return Session{}, ErrUnauthenticated
	}
	if s.SubjectID == "" || !slices.Contains(c.roles, s.Role) {
		return Session{}, ErrUnauthenticated
	}
	if !c.now().Before(s.ExpiresAt) {
		return Session{}, ErrUnauthenticated
	}
	return s, nil
}
