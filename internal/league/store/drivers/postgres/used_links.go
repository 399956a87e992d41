package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/league/internal/league/store"
)

type usedLinksRepo struct {
	q querier
}

func (r *usedLinksRepo) MarkLinkUsed(ctx context.Context, fingerprint string, expiresAt time.Time) error {
	tag, err := r.q.Exec(ctx,
		`INSERT INTO used_links (fingerprint, expires_at) VALUES ($1, $2) ON CONFLICT (fingerprint) DO NOTHING`,
		fingerprint, expiresAt,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrAlreadyUsed
	}
	return nil
}

func (r *usedLinksRepo) DeleteExpiredUsedLinks(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM used_links WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}
