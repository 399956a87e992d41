package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
)

type eventsRepo struct {
	q dbtx
}

const eventColumns = `id, parent_id, title, starts_at, capacity, attending_count, cancelled, created_at`

func scanEvent(row rowScanner) (domain.Event, error) {
	var (
		e                   domain.Event
		parentID            sql.NullString
		capacity            sql.NullInt64
		startsAt, createdAt int64
	)
	err := row.Scan(&e.ID, &parentID, &e.Title, &startsAt, &capacity, &e.AttendingCount, &e.Cancelled, &createdAt)
	if err != nil {
		return domain.Event{}, mapErr(err)
	}
	e.ParentID = parentID.String
	if capacity.Valid {
		c := int(capacity.Int64)
		e.Capacity = &c
	}
	e.StartsAt = fromUnix(startsAt)
	e.CreatedAt = fromUnix(createdAt)
	return e, nil
}

func (r *eventsRepo) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	return scanEvent(r.q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
}

func (r *eventsRepo) CreateEvent(ctx context.Context, e domain.Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var capacity sql.NullInt64
	if e.Capacity != nil {
		capacity = sql.NullInt64{Int64: int64(*e.Capacity), Valid: true}
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO events (id, parent_id, title, starts_at, capacity, attending_count, cancelled, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		e.ID, nullString(e.ParentID), e.Title, unix(e.StartsAt), capacity, e.Cancelled, unix(e.CreatedAt),
	)
	return mapErr(err)
}

func (r *eventsRepo) CancelEvent(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `UPDATE events SET cancelled = 1 WHERE id = ?`, id)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(res)
}

func (r *eventsRepo) ListClinics(ctx context.Context, parentID string) ([]domain.Event, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE parent_id = ? ORDER BY starts_at, id`, parentID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, mapErr(rows.Err())
}
