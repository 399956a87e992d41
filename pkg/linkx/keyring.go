package linkx

import (
	"crypto/hkdf"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// MinSecretLen is the shortest secret accepted for signing links.
const MinSecretLen = 32

// DefaultLeeway tolerates clock skew between issuer and resolver.
const DefaultLeeway = 5 * time.Second

const keyInfo = "league/actionlink/hmac-sha256/v1"

// Keyring signs claims with the current key and verifies against the current
// key and, during rotation, the previous one.
type Keyring struct {
	current  []byte
	previous []byte
	leeway   time.Duration
	now      func() time.Time
}

// Option configures a Keyring.
type Option func(*Keyring)

// WithLeeway sets the clock skew tolerance applied to expiry checks.
func WithLeeway(d time.Duration) Option {
	return func(k *Keyring) {
		if d >= 0 {
			k.leeway = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(k *Keyring) {
		if now != nil {
			k.now = now
		}
	}
}

// NewKeyring derives signing keys from the given secrets. previous may be nil.
func NewKeyring(current, previous []byte, opts ...Option) (*Keyring, error) {
	cur, err := deriveKey(current)
	if err != nil {
		return nil, err
	}
	k := &Keyring{current: cur, leeway: DefaultLeeway, now: time.Now}
	if len(previous) > 0 {
		prev, err := deriveKey(previous)
		if err != nil {
			return nil, err
		}
		k.previous = prev
	}
	for _, opt := range opts {
		opt(k)
	}
	return k, nil
}

func deriveKey(secret []byte) ([]byte, error) {
	if len(secret) < MinSecretLen {
		return nil, ErrWeakSecret
	}
	return hkdf.Key(sha256.New, secret, nil, keyInfo, sha256.Size)
}

// Rotate returns a keyring that signs with next and still accepts links
// signed with the receiver's current key.
func (k *Keyring) Rotate(next []byte) (*Keyring, error) {
	key, err := deriveKey(next)
	if err != nil {
		return nil, err
	}
	return &Keyring{current: key, previous: k.current, leeway: k.leeway, now: k.now}, nil
}

// Retire drops the previous key.
func (k *Keyring) Retire() *Keyring {
	return &Keyring{current: k.current, leeway: k.leeway, now: k.now}
}

// Sign returns the lowercase hex HMAC-SHA256 tag of a canonical claims string.
func (k *Keyring) Sign(canonical string) string {
	return tag(k.current, canonical)
}

// Verify reports whether sig is a valid tag for canonical under the current or
// previous key. The comparison is constant time.
func (k *Keyring) Verify(canonical, sig string) bool {
	ok := hmac.Equal([]byte(tag(k.current, canonical)), []byte(sig))
	if k.previous != nil {
		ok = hmac.Equal([]byte(tag(k.previous, canonical)), []byte(sig)) || ok
	}
	return ok
}

// SignClaims canonicalises and signs claims.
func (k *Keyring) SignClaims(c Claims) (string, error) {
	canonical, err := Canonical(c)
	if err != nil {
		return "", err
	}
	return k.Sign(canonical), nil
}

// Authenticate checks the signature and then the expiry of claims.
func (k *Keyring) Authenticate(c Claims, sig string) error {
	canonical, err := Canonical(c)
	if err != nil {
		return err
	}
	if !k.Verify(canonical, sig) {
		return ErrSignatureInvalid
	}
	if k.now().After(c.Expiry().Add(k.leeway)) {
		return ErrExpired
	}
	return nil
}

// Expired reports whether err is an expiry failure. Expired links carry
// authentic claims, so callers may use them to explain what to do next.
func Expired(err error) bool {
	return errors.Is(err, ErrExpired)
}

func tag(key []byte, canonical string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}
