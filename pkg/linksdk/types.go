package linksdk

import "time"

// Action kinds accepted by IssueLink.
const (
	ActionUnsubscribe = "unsubscribe"
	ActionRSVP        = "rsvp"
	ActionClinicRSVP  = "clinic-rsvp"
	ActionSignIn      = "signin"
)

// IssueLinkRequest is the body of POST /v1/links.
type IssueLinkRequest struct {
	Action    string `json:"action"`
	SubjectID string `json:"subject_id"`

	// TTLSeconds overrides the server's per-action default when positive.
	TTLSeconds int64             `json:"ttl_seconds,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// IssueLinkResponse carries an absolute signed URL.
type IssueLinkResponse struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"` // unix seconds
}

// RSVPTokenRequest is the body of POST /v1/rsvp-tokens.
type RSVPTokenRequest struct {
	EventID  string `json:"event_id"`
	MemberID string `json:"member_id"`
}

type RSVPTokenResponse struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

// CreateEventRequest is the body of POST /v1/events. Set ParentID to create a
// clinic of an existing event.
type CreateEventRequest struct {
	Title    string    `json:"title"`
	StartsAt time.Time `json:"starts_at"`
	Capacity *int      `json:"capacity,omitempty"`
	ParentID string    `json:"parent_id,omitempty"`
}

type CreateEventResponse struct {
	ID string `json:"id"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports readiness of critical dependencies.
type HealthChecks struct {
	Database string `json:"database"`
}
