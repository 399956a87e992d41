package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/league/internal/league/store"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// MFAEnrollment is shown once to the admin enrolling an authenticator.
type MFAEnrollment struct {
	Secret  string
	URL     string // otpauth:// URL for QR codes
	Issuer  string
	Account string
}

type MFAService struct {
	Store  store.Store
	Issuer string // shown in authenticator apps
	Clock  Clock
}

// Enroll generates a TOTP secret for the member. MFA stays disabled until
// Verify succeeds.
func (s *MFAService) Enroll(ctx context.Context, memberID string) (MFAEnrollment, error) {
	m, err := s.Store.Members().GetMemberByID(ctx, memberID)
	if err != nil {
		return MFAEnrollment{}, fmt.Errorf("failed to get member: %w", err)
	}
	if m.MFAEnabled() {
		return MFAEnrollment{}, ErrMFAAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: m.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return MFAEnrollment{}, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	if err := s.Store.Members().UpdateTOTPSecret(ctx, memberID, key.Secret()); err != nil {
		return MFAEnrollment{}, fmt.Errorf("failed to store TOTP secret: %w", err)
	}

	return MFAEnrollment{
		Secret:  key.Secret(),
		URL:     key.URL(),
		Issuer:  s.Issuer,
		Account: m.Email,
	}, nil
}

// Verify checks the first code from a freshly enrolled authenticator and
// enables MFA.
func (s *MFAService) Verify(ctx context.Context, memberID, code string) error {
	m, err := s.Store.Members().GetMemberByID(ctx, memberID)
	if err != nil {
		return fmt.Errorf("failed to get member: %w", err)
	}
	if m.TOTPSecret == nil || *m.TOTPSecret == "" {
		return ErrMFANotEnrolled
	}
	if m.MFAEnabled() {
		return ErrMFAAlreadyEnabled
	}

	now := s.Clock.now()
	if !validTOTP(code, *m.TOTPSecret, now) {
		return ErrInvalidTOTPCode
	}
	return s.Store.Members().EnableTOTP(ctx, memberID, now)
}

// validTOTP accepts the code for now and one period either side.
func validTOTP(code, secret string, now time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, now, totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}
