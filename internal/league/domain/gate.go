package domain

import "time"

// GateState is where the dashboard sends a member.
type GateState int

const (
	GateActive GateState = iota
	GateNeedsWaiver
	GateNeedsWelcome
)

func (g GateState) String() string {
	switch g {
	case GateNeedsWaiver:
		return "needs-waiver"
	case GateNeedsWelcome:
		return "needs-welcome"
	default:
		return "active"
	}
}

// DashboardGate decides whether a member must confirm the waiver or the
// welcome message before using the dashboard. Both confirmations are valid for
// the calendar year they were made in, evaluated in now's location. The
// waiver is checked first.
func DashboardGate(waiverConfirmed bool, waiverConfirmedAt, welcomeConfirmedAt *time.Time, now time.Time) GateState {
	if !waiverConfirmed || !sameYear(waiverConfirmedAt, now) {
		return GateNeedsWaiver
	}
	if !sameYear(welcomeConfirmedAt, now) {
		return GateNeedsWelcome
	}
	return GateActive
}

func sameYear(t *time.Time, now time.Time) bool {
	return t != nil && t.In(now.Location()).Year() == now.Year()
}
