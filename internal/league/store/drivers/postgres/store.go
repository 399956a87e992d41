// Package postgres implements store.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/league/internal/league/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxPool is the subset of *pgxpool.Pool the store needs. pgxmock.PgxPoolIface
// satisfies it in tests.
type PgxPool interface {
	querier
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// querier is satisfied by the pool and by pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool PgxPool
	dsn  string
}

// NewStore connects a pool to dsn.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, dsn: dsn}, nil
}

// NewStoreWithPool wraps an existing pool. Migrations need a dsn and are
// unavailable on stores built this way.
func NewStoreWithPool(pool PgxPool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, mapErr(err)
	}
	return &txStore{tx: tx, ctx: ctx}, nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	return mapErr(tx.Commit())
}

func (s *Store) Members() store.Members             { return &membersRepo{q: s.pool} }
func (s *Store) Events() store.Events               { return &eventsRepo{q: s.pool} }
func (s *Store) RSVPs() store.RSVPs                 { return &rsvpsRepo{q: s.pool} }
func (s *Store) Subscriptions() store.Subscriptions { return &subscriptionsRepo{q: s.pool} }
func (s *Store) RSVPTokens() store.RSVPTokens       { return &rsvpTokensRepo{q: s.pool} }
func (s *Store) UsedLinks() store.UsedLinks         { return &usedLinksRepo{q: s.pool} }

type txStore struct {
	tx  pgx.Tx
	ctx context.Context
}

func (t *txStore) Commit() error   { return t.tx.Commit(t.ctx) }
func (t *txStore) Rollback() error { return t.tx.Rollback(t.ctx) }
func (t *txStore) Close() error    { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, pgx.ErrTxClosed
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return pgx.ErrTxClosed
}

func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Members() store.Members             { return &membersRepo{q: t.tx} }
func (t *txStore) Events() store.Events               { return &eventsRepo{q: t.tx} }
func (t *txStore) RSVPs() store.RSVPs                 { return &rsvpsRepo{q: t.tx} }
func (t *txStore) Subscriptions() store.Subscriptions { return &subscriptionsRepo{q: t.tx} }
func (t *txStore) RSVPTokens() store.RSVPTokens       { return &rsvpTokensRepo{q: t.tx} }
func (t *txStore) UsedLinks() store.UsedLinks         { return &usedLinksRepo{q: t.tx} }

// PostgreSQL error codes.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pg *pgconn.PgError
	if errors.As(err, &pg) {
		switch pg.Code {
		case codeUniqueViolation:
			return errors.Join(store.ErrAlreadyExists, err)
		case codeForeignKeyViolation:
			return errors.Join(store.ErrNotFound, err)
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return errors.Join(store.ErrConflict, err)
		}
	}
	return err
}

func requireRow(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
