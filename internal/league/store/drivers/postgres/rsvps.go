package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
	"github.com/aussiebroadwan/league/internal/league/store"
)

type rsvpsRepo struct {
	q querier
}

func (r *rsvpsRepo) GetRSVP(ctx context.Context, eventID, memberID string) (domain.RSVP, error) {
	var (
		status    string
		updatedAt time.Time
	)
	err := r.q.QueryRow(ctx,
		`SELECT status, updated_at FROM rsvps WHERE event_id = $1 AND member_id = $2`,
		eventID, memberID,
	).Scan(&status, &updatedAt)
	if err != nil {
		return domain.RSVP{}, mapErr(err)
	}
	return domain.RSVP{
		EventID:   eventID,
		MemberID:  memberID,
		Status:    domain.RSVPStatus(status),
		UpdatedAt: updatedAt.UTC(),
	}, nil
}

// current locks the event row for the rest of the transaction and returns the
// member's status. Missing or cancelled events and unknown members are
// ErrNotFound.
func (r *rsvpsRepo) current(ctx context.Context, eventID, memberID string) (domain.RSVPStatus, error) {
	var cancelled bool
	err := r.q.QueryRow(ctx, `SELECT cancelled FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&cancelled)
	if err != nil {
		return domain.RSVPNone, mapErr(err)
	}
	if cancelled {
		return domain.RSVPNone, store.ErrNotFound
	}

	var one int
	if err := r.q.QueryRow(ctx, `SELECT 1 FROM members WHERE id = $1`, memberID).Scan(&one); err != nil {
		return domain.RSVPNone, mapErr(err)
	}

	rsvp, err := r.GetRSVP(ctx, eventID, memberID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.RSVPNone, nil
	}
	return rsvp.Status, err
}

func (r *rsvpsRepo) upsert(ctx context.Context, eventID, memberID string, status domain.RSVPStatus, at time.Time) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO rsvps (event_id, member_id, status, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, member_id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		eventID, memberID, string(status), at,
	)
	return mapErr(err)
}

func (r *rsvpsRepo) Attend(ctx context.Context, eventID, memberID string, at time.Time) (bool, error) {
	status, err := r.current(ctx, eventID, memberID)
	if err != nil {
		return false, err
	}
	if status == domain.RSVPAttending {
		return false, nil
	}

	tag, err := r.q.Exec(ctx, `
		UPDATE events SET attending_count = attending_count + 1
		WHERE id = $1 AND NOT cancelled AND (capacity IS NULL OR attending_count < capacity)`,
		eventID,
	)
	if err != nil {
		return false, mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return false, store.ErrCapacityExceeded
	}

	if err := r.upsert(ctx, eventID, memberID, domain.RSVPAttending, at); err != nil {
		return false, err
	}
	return true, nil
}

func (r *rsvpsRepo) Cancel(ctx context.Context, eventID, memberID string, at time.Time) (bool, error) {
	status, err := r.current(ctx, eventID, memberID)
	if err != nil {
		return false, err
	}
	if status == domain.RSVPNotAttending {
		return false, nil
	}

	if status == domain.RSVPAttending {
		_, err := r.q.Exec(ctx,
			`UPDATE events SET attending_count = attending_count - 1 WHERE id = $1 AND attending_count > 0`,
			eventID,
		)
		if err != nil {
			return false, mapErr(err)
		}
	}

	if err := r.upsert(ctx, eventID, memberID, domain.RSVPNotAttending, at); err != nil {
		return false, err
	}
	return true, nil
}

func (r *rsvpsRepo) ListAttending(ctx context.Context, memberID string) ([]domain.RSVP, error) {
	rows, err := r.q.Query(ctx, `
		SELECT r.event_id, r.updated_at FROM rsvps r
		JOIN events e ON e.id = r.event_id
		WHERE r.member_id = $1 AND r.status = 'attending' AND NOT e.cancelled
		ORDER BY e.starts_at`,
		memberID,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.RSVP
	for rows.Next() {
		var (
			eventID   string
			updatedAt time.Time
		)
		if err := rows.Scan(&eventID, &updatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, domain.RSVP{
			EventID:   eventID,
			MemberID:  memberID,
			Status:    domain.RSVPAttending,
			UpdatedAt: updatedAt.UTC(),
		})
	}
	return out, mapErr(rows.Err())
}
