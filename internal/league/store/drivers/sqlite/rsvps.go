package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
	"github.com/aussiebroadwan/league/internal/league/store"
)

type rsvpsRepo struct {
	q dbtx
}

func (r *rsvpsRepo) GetRSVP(ctx context.Context, eventID, memberID string) (domain.RSVP, error) {
	var (
		status    string
		updatedAt int64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT status, updated_at FROM rsvps WHERE event_id = ? AND member_id = ?`,
		eventID, memberID,
	).Scan(&status, &updatedAt)
	if err != nil {
		return domain.RSVP{}, mapErr(err)
	}
	return domain.RSVP{
		EventID:   eventID,
		MemberID:  memberID,
		Status:    domain.RSVPStatus(status),
		UpdatedAt: fromUnix(updatedAt),
	}, nil
}

// current returns the member's status for an open event. Missing or
// cancelled events and unknown members are ErrNotFound.
func (r *rsvpsRepo) current(ctx context.Context, eventID, memberID string) (domain.RSVPStatus, error) {
	var cancelled bool
	err := r.q.QueryRowContext(ctx, `SELECT cancelled FROM events WHERE id = ?`, eventID).Scan(&cancelled)
	if err != nil {
		return domain.RSVPNone, mapErr(err)
	}
	if cancelled {
		return domain.RSVPNone, store.ErrNotFound
	}

	var one int
	if err := r.q.QueryRowContext(ctx, `SELECT 1 FROM members WHERE id = ?`, memberID).Scan(&one); err != nil {
		return domain.RSVPNone, mapErr(err)
	}

	rsvp, err := r.GetRSVP(ctx, eventID, memberID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.RSVPNone, nil
	}
	return rsvp.Status, err
}

func (r *rsvpsRepo) upsert(ctx context.Context, eventID, memberID string, status domain.RSVPStatus, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO rsvps (event_id, member_id, status, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (event_id, member_id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		eventID, memberID, string(status), unix(at),
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

	res, err := r.q.ExecContext(ctx, `
		UPDATE events SET attending_count = attending_count + 1
		WHERE id = ? AND cancelled = 0 AND (capacity IS NULL OR attending_count < capacity)`,
		eventID,
	)
	if err != nil {
		return false, mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
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
		_, err := r.q.ExecContext(ctx,
			`UPDATE events SET attending_count = attending_count - 1 WHERE id = ? AND attending_count > 0`,
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
	rows, err := r.q.QueryContext(ctx, `
		SELECT r.event_id, r.updated_at FROM rsvps r
		JOIN events e ON e.id = r.event_id
		WHERE r.member_id = ? AND r.status = 'attending' AND e.cancelled = 0
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
			updatedAt int64
		)
		if err := rows.Scan(&eventID, &updatedAt); err != nil {
			return nil, mapErr(err)
		}
		out = append(out, domain.RSVP{
			EventID:   eventID,
			MemberID:  memberID,
			Status:    domain.RSVPAttending,
			UpdatedAt: fromUnix(updatedAt),
		})
	}
	return out, mapErr(rows.Err())
}
