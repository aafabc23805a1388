package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/outreach-tracker/internal/domain"
)

var userColumns = userColumnsFor("")

// userColumnsFor lists user columns qualified with prefix, e.g. "u.".
func userColumnsFor(p string) string {
	return strings.NewReplacer("{p}", p).Replace(`{p}id, {p}email, COALESCE({p}full_name,''), COALESCE({p}position,''),
	COALESCE({p}company_name,''), COALESCE({p}company_description,''), {p}combine_contacts,
	{p}followup_interval_days, {p}lastchance_interval_days,
	COALESCE({p}gmail_access_token,''), COALESCE({p}gmail_refresh_token,''), {p}gmail_token_expiry,
	{p}created_at`)
}

// UserRepo reads and updates outreach users.
type UserRepo struct{ db *sql.DB }

// NewUserRepo creates a Postgres-backed user repository.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

func scanUser(s rowScanner) (*domain.User, error) {
	var (
		u        domain.User
		followup sql.NullInt64
		last     sql.NullInt64
		expiry   sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Email, &u.FullName, &u.Position,
		&u.CompanyName, &u.CompanyDescription, &u.CombineContacts,
		&followup, &last,
		&u.GmailAccessToken, &u.GmailRefreshToken, &expiry,
		&u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.Intervals = domain.IntervalSettings{
		FollowupDays:   int(followup.Int64),
		LastchanceDays: int(last.Int64),
	}.OrDefault()
	u.GmailTokenExpiry = nullTime(expiry)
	return &u, nil
}

func (r *UserRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM outreach_users WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *UserRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM outreach_users WHERE lower(email) = $1`, domain.NormalizeEmail(email)))
	if err == sql.ErrNoRows {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *UserRepo) UpdateIntervals(ctx context.Context, userID int64, s domain.IntervalSettings) error {
	return r.exec(ctx, "update intervals",
		`UPDATE outreach_users SET followup_interval_days = $1, lastchance_interval_days = $2 WHERE id = $3`,
		s.FollowupDays, s.LastchanceDays, userID)
}

// UpdateGmailToken stores a refreshed OAuth token.
func (r *UserRepo) UpdateGmailToken(ctx context.Context, userID int64, access, refresh string, expiry time.Time) error {
	return r.exec(ctx, "update gmail token",
		`UPDATE outreach_users
		 SET gmail_access_token = $1, gmail_refresh_token = COALESCE(NULLIF($2,''), gmail_refresh_token), gmail_token_expiry = $3
		 WHERE id = $4`,
		access, refresh, expiry, userID)
}

func (r *UserRepo) exec(ctx context.Context, op, q string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
