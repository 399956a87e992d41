package domain

import "time"

// Subscription records whether a member receives league email.
type Subscription struct {
	MemberID    string
	EmailOptOut bool
	UpdatedAt   time.Time
}
