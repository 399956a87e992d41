package domain

import "time"

type Member struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string // argon2id PHC string
	Role         Role

	WaiverConfirmed    bool
	WaiverConfirmedAt  *time.Time
	WelcomeConfirmedAt *time.Time

	TOTPSecret    *string    // base32, set during enrollment
	TOTPEnabledAt *time.Time // nil until the first code is verified

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MFAEnabled reports whether sign-in requires a TOTP code.
func (m Member) MFAEnabled() bool {
	return m.TOTPEnabledAt != nil && m.TOTPSecret != nil
}

// Gate applies the yearly waiver and welcome policy to m.
func (m Member) Gate(now time.Time) GateState {
	return DashboardGate(m.WaiverConfirmed, m.WaiverConfirmedAt, m.WelcomeConfirmedAt, now)
}
