package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrCapacityExceeded is returned by Attend when the event has no free slot.
	ErrCapacityExceeded = errors.New("store: capacity exceeded")

	// ErrConflict reports a transient write conflict (busy database,
	// serialization failure). Callers may retry.
	ErrConflict = errors.New("store: write conflict")

	// ErrAlreadyUsed is returned when a one-shot link fingerprint is recorded twice.
	ErrAlreadyUsed = errors.New("store: link already used")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories are reached through methods so a Tx-scoped
// store exposes the same repos bound to the transaction.
type Store interface {
	Members() Members
	Events() Events
	RSVPs() RSVPs
	Subscriptions() Subscriptions
	RSVPTokens() RSVPTokens
	UsedLinks() UsedLinks

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Members interface {
	GetMemberByID(ctx context.Context, id string) (domain.Member, error)

	// GetMemberByEmail matches case-insensitively.
	GetMemberByEmail(ctx context.Context, email string) (domain.Member, error)

	// CreateMember inserts m. ErrAlreadyExists when the email is taken.
	CreateMember(ctx context.Context, m domain.Member) error

	UpdateRole(ctx context.Context, memberID string, role domain.Role) error

	// ConfirmWaiver sets the waiver flag and timestamp.
	ConfirmWaiver(ctx context.Context, memberID string, at time.Time) error

	ConfirmWelcome(ctx context.Context, memberID string, at time.Time) error

	// UpdateTOTPSecret stores a pending secret and clears any enabled timestamp.
	UpdateTOTPSecret(ctx context.Context, memberID string, secret string) error

	EnableTOTP(ctx context.Context, memberID string, at time.Time) error

	// ListMembersByRole returns members oldest first.
	ListMembersByRole(ctx context.Context, role domain.Role) ([]domain.Member, error)
}

type Events interface {
	GetEvent(ctx context.Context, id string) (domain.Event, error)

	// CreateEvent inserts e with an attending count of zero.
	CreateEvent(ctx context.Context, e domain.Event) error

	CancelEvent(ctx context.Context, id string) error

	// ListClinics returns the sub-events of parentID.
	ListClinics(ctx context.Context, parentID string) ([]domain.Event, error)
}

// RSVPs mutate attendance. Attend and Cancel read then write and must run
// inside a transaction (Store.WithTx) to keep the attending count exact.
type RSVPs interface {
	GetRSVP(ctx context.Context, eventID, memberID string) (domain.RSVP, error)

	// Attend marks the member attending, incrementing the event's attending
	// count only if a slot is free. Returns changed=false when the member was
	// already attending. ErrCapacityExceeded when full, ErrNotFound when the
	// event is missing or cancelled.
	Attend(ctx context.Context, eventID, memberID string, at time.Time) (changed bool, err error)

	// Cancel marks the member not attending, releasing their slot if they held one.
	Cancel(ctx context.Context, eventID, memberID string, at time.Time) (changed bool, err error)

	// ListAttending returns RSVPs with status attending for memberID.
	ListAttending(ctx context.Context, memberID string) ([]domain.RSVP, error)
}

type Subscriptions interface {
	// GetSubscription returns ErrNotFound when no preference was recorded.
	GetSubscription(ctx context.Context, memberID string) (domain.Subscription, error)

	// SetEmailOptOut upserts the preference.
	SetEmailOptOut(ctx context.Context, memberID string, optOut bool, at time.Time) error
}

type RSVPTokens interface {
	CreateRSVPToken(ctx context.Context, t domain.RSVPToken) error

	// GetActiveRSVPToken returns the token if it has not expired at now.
	GetActiveRSVPToken(ctx context.Context, tokenHash string, now time.Time) (domain.RSVPToken, error)

	DeleteExpiredRSVPTokens(ctx context.Context, now time.Time) (int64, error)
}

// UsedLinks remembers consumed one-shot links until they would have expired.
type UsedLinks interface {
	// MarkLinkUsed records fingerprint. ErrAlreadyUsed if already present.
	MarkLinkUsed(ctx context.Context, fingerprint string, expiresAt time.Time) error

	DeleteExpiredUsedLinks(ctx context.Context, now time.Time) (int64, error)
}
