package service

import "errors"

var (
	ErrInvalidSubject = errors.New("invalid subject")
	ErrInvalidAction  = errors.New("invalid action")

	// ErrCapacityExceeded means the event had no free slot at mutation time.
	ErrCapacityExceeded = errors.New("event is full")

	// ErrReferentMissing means the event or clinic a request points at no
	// longer exists or was cancelled.
	ErrReferentMissing = errors.New("referenced event no longer exists")

	// ErrTransient is returned after bounded retries of a conflicting write.
	ErrTransient = errors.New("temporarily unavailable")

	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNotPending         = errors.New("member is not awaiting approval")
	ErrMFARequired        = errors.New("TOTP code required")
	ErrInvalidTOTPCode    = errors.New("invalid TOTP code")
	ErrMFANotEnrolled     = errors.New("MFA not enrolled")
	ErrMFAAlreadyEnabled  = errors.New("MFA already enabled")
)
