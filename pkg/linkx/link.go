package linkx

import (
	"fmt"
	"net/url"
)

// SignedValues returns the full query of a signed link: the claims plus the
// signature parameter.
func (k *Keyring) SignedValues(c Claims) (url.Values, error) {
	sig, err := k.SignClaims(c)
	if err != nil {
		return nil, err
	}
	v := Values(c)
	v.Set(ParamSignature, sig)
	return v, nil
}

// ParseQuery splits link query parameters into claims and signature. It only
// decodes; callers must still Authenticate the result.
func ParseQuery(v url.Values) (Claims, string, error) {
	sigs := v[ParamSignature]
	if len(sigs) != 1 || sigs[0] == "" {
		return Claims{}, "", fmt.Errorf("%w: missing signature", ErrMalformed)
	}
	c, err := FromValues(v)
	if err != nil {
		return Claims{}, "", err
	}
	return c, sigs[0], nil
}

// VerifyQuery decodes and authenticates link query parameters in one step. On
// ErrExpired the decoded claims are still returned.
func (k *Keyring) VerifyQuery(v url.Values) (Claims, error) {
	c, sig, err := ParseQuery(v)
	if err != nil {
		return Claims{}, err
	}
	if err := k.Authenticate(c, sig); err != nil {
		if Expired(err) {
			return c, err
		}
		return Claims{}, err
	}
	return c, nil
}
