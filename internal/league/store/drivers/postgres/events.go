package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
)

type eventsRepo struct {
	q querier
}

const eventColumns = `id, parent_id, title, starts_at, capacity, attending_count, cancelled, created_at`

func scanEvent(row rowScanner) (domain.Event, error) {
	var (
		e        domain.Event
		parentID sql.NullString
		capacity sql.NullInt64
		count    int64
	)
	err := row.Scan(&e.ID, &parentID, &e.Title, &e.StartsAt, &capacity, &count, &e.Cancelled, &e.CreatedAt)
	if err != nil {
		return domain.Event{}, mapErr(err)
	}
	e.ParentID = parentID.String
	if capacity.Valid {
		c := int(capacity.Int64)
		e.Capacity = &c
	}
	e.AttendingCount = int(count)
	e.StartsAt = e.StartsAt.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	return e, nil
}

func (r *eventsRepo) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	return scanEvent(r.q.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

func (r *eventsRepo) CreateEvent(ctx context.Context, e domain.Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	var parentID *string
	if e.ParentID != "" {
		parentID = &e.ParentID
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO events (id, parent_id, title, starts_at, capacity, attending_count, cancelled, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)`,
		e.ID, parentID, e.Title, e.StartsAt, e.Capacity, e.Cancelled, e.CreatedAt,
	)
	return mapErr(err)
}

func (r *eventsRepo) CancelEvent(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `UPDATE events SET cancelled = TRUE WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(tag)
}

func (r *eventsRepo) ListClinics(ctx context.Context, parentID string) ([]domain.Event, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE parent_id = $1 ORDER BY starts_at, id`, parentID)
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
