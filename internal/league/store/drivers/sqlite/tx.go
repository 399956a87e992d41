package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/league/internal/league/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op, the caller commits or rolls back.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Members() store.Members             { return &membersRepo{q: t.tx} }
func (t *txStore) Events() store.Events               { return &eventsRepo{q: t.tx} }
func (t *txStore) RSVPs() store.RSVPs                 { return &rsvpsRepo{q: t.tx} }
func (t *txStore) Subscriptions() store.Subscriptions { return &subscriptionsRepo{q: t.tx} }
func (t *txStore) RSVPTokens() store.RSVPTokens       { return &rsvpTokensRepo{q: t.tx} }
func (t *txStore) UsedLinks() store.UsedLinks         { return &usedLinksRepo{q: t.tx} }

// ApplyMigrations is a no-op; migrations run before any transaction.
func (t *txStore) ApplyMigrations() error { return nil }
