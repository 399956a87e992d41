package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/league/internal/league/store"
)

type usedLinksRepo struct {
	q dbtx
}

func (r *usedLinksRepo) MarkLinkUsed(ctx context.Context, fingerprint string, expiresAt time.Time) error {
	res, err := r.q.ExecContext(ctx,
		`INSERT INTO used_links (fingerprint, expires_at) VALUES (?, ?) ON CONFLICT (fingerprint) DO NOTHING`,
		fingerprint, unix(expiresAt),
	)
	if err != nil {
		err = mapErr(err)
		if errors.Is(err, store.ErrAlreadyExists) {
			return store.ErrAlreadyUsed
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrAlreadyUsed
	}
	return nil
}

func (r *usedLinksRepo) DeleteExpiredUsedLinks(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM used_links WHERE expires_at <= ?`, unix(now))
	if err != nil {
		return 0, mapErr(err)
	}
	return res.RowsAffected()
}
