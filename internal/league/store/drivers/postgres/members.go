package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
)

type membersRepo struct {
	q querier
}

const memberColumns = `id, email, display_name, password_hash, role, waiver_confirmed,
	waiver_confirmed_at, welcome_confirmed_at, totp_secret, totp_enabled_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (domain.Member, error) {
	var (
		m                   domain.Member
		role                string
		waiverAt, welcomeAt sql.NullTime
		totpSecret          sql.NullString
		totpEnabled         sql.NullTime
	)
	err := row.Scan(&m.ID, &m.Email, &m.DisplayName, &m.PasswordHash, &role, &m.WaiverConfirmed,
		&waiverAt, &welcomeAt, &totpSecret, &totpEnabled, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return domain.Member{}, mapErr(err)
	}
	m.Role = domain.Role(role)
	m.WaiverConfirmedAt = fromNullTime(waiverAt)
	m.WelcomeConfirmedAt = fromNullTime(welcomeAt)
	if totpSecret.Valid {
		s := totpSecret.String
		m.TOTPSecret = &s
	}
	m.TOTPEnabledAt = fromNullTime(totpEnabled)
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	return m, nil
}

func (r *membersRepo) GetMemberByID(ctx context.Context, id string) (domain.Member, error) {
	return scanMember(r.q.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id))
}

func (r *membersRepo) GetMemberByEmail(ctx context.Context, email string) (domain.Member, error) {
	return scanMember(r.q.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE lower(email) = lower($1)`, email))
}

func (r *membersRepo) CreateMember(ctx context.Context, m domain.Member) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO members (id, email, display_name, password_hash, role, waiver_confirmed,
			waiver_confirmed_at, welcome_confirmed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		m.ID, m.Email, m.DisplayName, m.PasswordHash, string(m.Role), m.WaiverConfirmed,
		m.WaiverConfirmedAt, m.WelcomeConfirmedAt, m.CreatedAt,
	)
	return mapErr(err)
}

func (r *membersRepo) UpdateRole(ctx context.Context, memberID string, role domain.Role) error {
	return r.update(ctx, `UPDATE members SET role = $1, updated_at = now() WHERE id = $2`, string(role), memberID)
}

func (r *membersRepo) ConfirmWaiver(ctx context.Context, memberID string, at time.Time) error {
	return r.update(ctx,
		`UPDATE members SET waiver_confirmed = TRUE, waiver_confirmed_at = $1, updated_at = $1 WHERE id = $2`,
		at, memberID)
}

func (r *membersRepo) ConfirmWelcome(ctx context.Context, memberID string, at time.Time) error {
	return r.update(ctx, `UPDATE members SET welcome_confirmed_at = $1, updated_at = $1 WHERE id = $2`, at, memberID)
}

func (r *membersRepo) UpdateTOTPSecret(ctx context.Context, memberID string, secret string) error {
	var v *string
	if secret != "" {
		v = &secret
	}
	return r.update(ctx,
		`UPDATE members SET totp_secret = $1, totp_enabled_at = NULL, updated_at = now() WHERE id = $2`,
		v, memberID)
}

func (r *membersRepo) EnableTOTP(ctx context.Context, memberID string, at time.Time) error {
	return r.update(ctx,
		`UPDATE members SET totp_enabled_at = $1, updated_at = $1 WHERE id = $2 AND totp_secret IS NOT NULL`,
		at, memberID)
}

func (r *membersRepo) ListMembersByRole(ctx context.Context, role domain.Role) ([]domain.Member, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+memberColumns+` FROM members WHERE role = $1 ORDER BY created_at, id`, string(role))
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, mapErr(rows.Err())
}

func (r *membersRepo) update(ctx context.Context, query string, args ...any) error {
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(tag)
}

func fromNullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
