package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
)

type rsvpTokensRepo struct {
	q dbtx
}

func (r *rsvpTokensRepo) CreateRSVPToken(ctx context.Context, t domain.RSVPToken) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO rsvp_tokens (token_hash, event_id, member_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.TokenHash, t.EventID, t.MemberID, unix(t.ExpiresAt), unix(t.CreatedAt),
	)
	return mapErr(err)
}

func (r *rsvpTokensRepo) GetActiveRSVPToken(ctx context.Context, tokenHash string, now time.Time) (domain.RSVPToken, error) {
	var (
		t                    = domain.RSVPToken{TokenHash: tokenHash}
		expiresAt, createdAt int64
	)
	err := r.q.QueryRowContext(ctx, `
		SELECT event_id, member_id, expires_at, created_at FROM rsvp_tokens
		WHERE token_hash = ? AND expires_at > ?`,
		tokenHash, unix(now),
	).Scan(&t.EventID, &t.MemberID, &expiresAt, &createdAt)
	if err != nil {
		return domain.RSVPToken{}, mapErr(err)
	}
	t.ExpiresAt = fromUnix(expiresAt)
	t.CreatedAt = fromUnix(createdAt)
	return t, nil
}

func (r *rsvpTokensRepo) DeleteExpiredRSVPTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM rsvp_tokens WHERE expires_at <= ?`, unix(now))
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}
