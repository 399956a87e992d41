package domain

import "time"

// Event is a league fixture or, when ParentID is set, a clinic held as part
// of one.
type Event struct {
	ID       string
	ParentID string
	Title    string
	StartsAt time.Time

	// Capacity is nil for events without an attendance limit.
	Capacity       *int
	AttendingCount int
	Cancelled      bool

	CreatedAt time.Time
}

// IsClinic reports whether e is a sub-event.
func (e Event) IsClinic() bool { return e.ParentID != "" }

// Full reports whether no attending slot is left.
func (e Event) Full() bool {
	return e.Capacity != nil && e.AttendingCount >= *e.Capacity
}

// SpotsLeft returns the remaining slots, or -1 when unlimited.
func (e Event) SpotsLeft() int {
	if e.Capacity == nil {
		return -1
	}
	return max(*e.Capacity-e.AttendingCount, 0)
}
