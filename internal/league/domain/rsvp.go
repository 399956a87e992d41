package domain

import "time"

type RSVPStatus string

const (
	RSVPNone         RSVPStatus = ""
	RSVPAttending    RSVPStatus = "attending"
	RSVPNotAttending RSVPStatus = "not-attending"
)

type RSVP struct {
	EventID   string
	MemberID  string
	Status    RSVPStatus
	UpdatedAt time.Time
}

// RSVPToken backs the opaque /rsvp/<token> links. Only the fingerprint of the
// token is stored.
type RSVPToken struct {
	TokenHash string
	EventID   string
	MemberID  string
	ExpiresAt time.Time
	CreatedAt time.Time
}
