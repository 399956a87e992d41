package linkx

import "errors"

var (
	ErrMalformed        = errors.New("linkx: malformed claims")
	ErrSignatureInvalid = errors.New("linkx: invalid signature")
	ErrExpired          = errors.New("linkx: link expired")
	ErrWeakSecret       = errors.New("linkx: secret too short")
)
