package linkx

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
)

// Reserved query parameters of an action link.
const (
	ParamAction    = "action"
	ParamSubject   = "id"
	ParamExpires   = "expires"
	ParamSignature = "signature"
)

func reserved(key string) bool {
	switch key {
	case ParamAction, ParamSubject, ParamExpires, ParamSignature:
		return true
	}
	return false
}

// Values renders the claims as query parameters, without the signature.
func Values(c Claims) url.Values {
	v := make(url.Values, 3+len(c.Extra))
	v.Set(ParamAction, string(c.Action))
	v.Set(ParamSubject, c.SubjectID)
	v.Set(ParamExpires, strconv.FormatInt(c.ExpiresAt, 10))
	for k, val := range c.Extra {
		v.Set(k, val)
	}
	return v
}

// Canonical returns the exact string that is signed: the claims encoded as a
// query string with keys sorted.
func Canonical(c Claims) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	for k := range c.Extra {
		if reserved(k) {
			return "", fmt.Errorf("%w: reserved field %q", ErrMalformed, k)
		}
	}
	return Values(c).Encode(), nil
}

// FromValues rebuilds claims from link query parameters. The signature
// parameter is ignored. Repeated keys, non canonical numbers and fields the
// action does not define are rejected.
func FromValues(v url.Values) (Claims, error) {
	var c Claims
	for key, vals := range v {
		if len(vals) != 1 {
			return Claims{}, fmt.Errorf("%w: repeated field %q", ErrMalformed, key)
		}
		val := vals[0]
		switch key {
		case ParamSignature:
		case ParamAction:
			kind, ok := ParseKind(val)
			if !ok {
				return Claims{}, fmt.Errorf("%w: unknown action", ErrMalformed)
			}
			c.Action = kind
		case ParamSubject:
			c.SubjectID = val
		case ParamExpires:
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil || strconv.FormatInt(n, 10) != val {
				return Claims{}, fmt.Errorf("%w: bad expiry", ErrMalformed)
			}
			c.ExpiresAt = n
		default:
			if c.Extra == nil {
				c.Extra = make(map[string]string)
			}
			c.Extra[key] = val
		}
	}
	if err := c.Validate(); err != nil {
		return Claims{}, err
	}
	return c, nil
}

// Encode serialises claims into a compact URL-safe token.
func Encode(c Claims) (string, error) {
	canonical, err := Canonical(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString([]byte(canonical)), nil
}

// Decode parses a token produced by Encode. Input that does not decode to
// exactly the canonical form of its own claims is rejected, so truncated,
// reordered or padded tokens fail closed.
func Decode(token string) (Claims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: bad encoding", ErrMalformed)
	}
	v, err := url.ParseQuery(string(raw))
	if err != nil {
		return Claims{}, fmt.Errorf("%w: bad query", ErrMalformed)
	}
	if v.Has(ParamSignature) {
		return Claims{}, fmt.Errorf("%w: unexpected signature", ErrMalformed)
	}
	c, err := FromValues(v)
	if err != nil {
		return Claims{}, err
	}
	canonical, err := Canonical(c)
	if err != nil {
		return Claims{}, err
	}
	if canonical != string(raw) {
		return Claims{}, fmt.Errorf("%w: not canonical", ErrMalformed)
	}
	return c, nil
}
