package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
)

type subscriptionsRepo struct {
	q querier
}

func (r *subscriptionsRepo) GetSubscription(ctx context.Context, memberID string) (domain.Subscription, error) {
	s := domain.Subscription{MemberID: memberID}
	err := r.q.QueryRow(ctx,
		`SELECT email_opt_out, updated_at FROM subscriptions WHERE member_id = $1`, memberID,
	).Scan(&s.EmailOptOut, &s.UpdatedAt)
	if err != nil {
		return domain.Subscription{}, mapErr(err)
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

func (r *subscriptionsRepo) SetEmailOptOut(ctx context.Context, memberID string, optOut bool, at time.Time) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO subscriptions (member_id, email_opt_out, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (member_id) DO UPDATE SET email_opt_out = EXCLUDED.email_opt_out, updated_at = EXCLUDED.updated_at`,
		memberID, optOut, at,
	)
	return mapErr(err)
}
