package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
)

type subscriptionsRepo struct {
	q dbtx
}

func (r *subscriptionsRepo) GetSubscription(ctx context.Context, memberID string) (domain.Subscription, error) {
	var (
		s         = domain.Subscription{MemberID: memberID}
		updatedAt int64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT email_opt_out, updated_at FROM subscriptions WHERE member_id = ?`, memberID,
	).Scan(&s.EmailOptOut, &updatedAt)
	if err != nil {
		return domain.Subscription{}, mapErr(err)
	}
	s.UpdatedAt = fromUnix(updatedAt)
	return s, nil
}

func (r *subscriptionsRepo) SetEmailOptOut(ctx context.Context, memberID string, optOut bool, at time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO subscriptions (member_id, email_opt_out, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (member_id) DO UPDATE SET email_opt_out = excluded.email_opt_out, updated_at = excluded.updated_at`,
		memberID, optOut, unix(at),
	)
	return mapErr(err)
}
