package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/league/internal/league/domain"
	"github.com/aussiebroadwan/league/internal/league/store"
)

type membersRepo struct {
	q dbtx
}

const memberColumns = `id, email, display_name, password_hash, role, waiver_confirmed,
	waiver_confirmed_at, welcome_confirmed_at, totp_secret, totp_enabled_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (domain.Member, error) {
	var (
		m                    domain.Member
		role                 string
		waiverAt, welcomeAt  sql.NullInt64
		totpSecret           sql.NullString
		totpEnabled          sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(&m.ID, &m.Email, &m.DisplayName, &m.PasswordHash, &role, &m.WaiverConfirmed,
		&waiverAt, &welcomeAt, &totpSecret, &totpEnabled, &createdAt, &updatedAt)
	if err != nil {
		return domain.Member{}, mapErr(err)
	}
	m.Role = domain.Role(role)
	m.WaiverConfirmedAt = fromNullUnix(waiverAt)
	m.WelcomeConfirmedAt = fromNullUnix(welcomeAt)
	m.TOTPSecret = fromNullString(totpSecret)
	m.TOTPEnabledAt = fromNullUnix(totpEnabled)
	m.CreatedAt = fromUnix(createdAt)
	m.UpdatedAt = fromUnix(updatedAt)
	return m, nil
}

func (r *membersRepo) GetMemberByID(ctx context.Context, id string) (domain.Member, error) {
	return scanMember(r.q.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id))
}

func (r *membersRepo) GetMemberByEmail(ctx context.Context, email string) (domain.Member, error) {
	return scanMember(r.q.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE email = ?`, email))
}

func (r *membersRepo) CreateMember(ctx context.Context, m domain.Member) error {
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO members (id, email, display_name, password_hash, role, waiver_confirmed,
			waiver_confirmed_at, welcome_confirmed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Email, m.DisplayName, m.PasswordHash, string(m.Role), m.WaiverConfirmed,
		nullUnix(m.WaiverConfirmedAt), nullUnix(m.WelcomeConfirmedAt), unix(m.CreatedAt), unix(m.CreatedAt),
	)
	return mapErr(err)
}

func (r *membersRepo) UpdateRole(ctx context.Context, memberID string, role domain.Role) error {
	return r.update(ctx, `UPDATE members SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), unix(time.Now()), memberID)
}

func (r *membersRepo) ConfirmWaiver(ctx context.Context, memberID string, at time.Time) error {
	return r.update(ctx, `UPDATE members SET waiver_confirmed = 1, waiver_confirmed_at = ?, updated_at = ? WHERE id = ?`,
		unix(at), unix(at), memberID)
}

func (r *membersRepo) ConfirmWelcome(ctx context.Context, memberID string, at time.Time) error {
	return r.update(ctx, `UPDATE members SET welcome_confirmed_at = ?, updated_at = ? WHERE id = ?`,
		unix(at), unix(at), memberID)
}

func (r *membersRepo) UpdateTOTPSecret(ctx context.Context, memberID string, secret string) error {
	return r.update(ctx, `UPDATE members SET totp_secret = ?, totp_enabled_at = NULL, updated_at = ? WHERE id = ?`,
		nullString(secret), unix(time.Now()), memberID)
}

func (r *membersRepo) EnableTOTP(ctx context.Context, memberID string, at time.Time) error {
	return r.update(ctx, `UPDATE members SET totp_enabled_at = ?, updated_at = ? WHERE id = ? AND totp_secret IS NOT NULL`,
		unix(at), unix(at), memberID)
}

func (r *membersRepo) ListMembersByRole(ctx context.Context, role domain.Role) ([]domain.Member, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE role = ? ORDER BY created_at, id`, string(role))
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

// update runs a single-row UPDATE and reports ErrNotFound when nothing matched.
func (r *membersRepo) update(ctx context.Context, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
