package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
)

type rsvpTokensRepo struct {
	q querier
}

func (r *rsvpTokensRepo) CreateRSVPToken(ctx context.Context, t domain.RSVPToken) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO rsvp_tokens (token_hash, event_id, member_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		t.TokenHash, t.EventID, t.MemberID, t.ExpiresAt, t.CreatedAt,
	)
	return mapErr(err)
}

func (r *rsvpTokensRepo) GetActiveRSVPToken(ctx context.Context, tokenHash string, now time.Time) (domain.RSVPToken, error) {
	t := domain.RSVPToken{TokenHash: tokenHash}
	err := r.q.QueryRow(ctx, `
		SELECT event_id, member_id, expires_at, created_at FROM rsvp_tokens
		WHERE token_hash = $1 AND expires_at > $2`,
		tokenHash, now,
	).Scan(&t.EventID, &t.MemberID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return domain.RSVPToken{}, mapErr(err)
	}
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func (r *rsvpTokensRepo) DeleteExpiredRSVPTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM rsvp_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}
