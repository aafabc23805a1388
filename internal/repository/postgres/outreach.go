package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/outreach-tracker/internal/domain"
	"github.com/lib/pq"
)

const recordColumns = `id, owner_id, template_id, origin_record_id,
	recipient_email, COALESCE(recipient_name,''), COALESCE(recipient_company,''),
	COALESCE(subject,''), COALESCE(body,''), stage, status, COALESCE(thread_id,''),
	shared_by_user_id, created_at, sent_at, followup_due_at, lastchance_due_at,
	reminded_followup_at, version`

const uniqueViolation = "23505"

// OutreachRepo implements the outreach, dedup and sweep record stores
// against PostgreSQL.
type OutreachRepo struct{ db *sql.DB }

// NewOutreachRepo creates a Postgres-backed outreach record repository.
func NewOutreachRepo(db *sql.DB) *OutreachRepo { return &OutreachRepo{db: db} }

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s rowScanner) (*domain.OutreachRecord, error) {
	var (
		rec                                           domain.OutreachRecord
		templateID, originID, sharedBy                sql.NullInt64
		stage, status                                 string
		sentAt, followupAt, lastchanceAt, remindedAt sql.NullTime
	)
	err := s.Scan(
		&rec.ID, &rec.OwnerID, &templateID, &originID,
		&rec.RecipientEmail, &rec.RecipientName, &rec.RecipientCompany,
		&rec.Subject, &rec.Body, &stage, &status, &rec.ThreadID,
		&sharedBy, &rec.CreatedAt, &sentAt, &followupAt, &lastchanceAt,
		&remindedAt, &rec.Version,
	)
	if err != nil {
		return nil, err
	}
	if rec.Stage, err = domain.ParseStage(stage); err != nil {
		return nil, fmt.Errorf("record %d: %w", rec.ID, err)
	}
	if rec.Status, err = domain.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("record %d: %w", rec.ID, err)
	}
	rec.TemplateID = nullInt(templateID)
	rec.OriginRecordID = nullInt(originID)
	rec.SharedByUserID = nullInt(sharedBy)
	rec.SentAt = nullTime(sentAt)
	rec.FollowupDueAt = nullTime(followupAt)
	rec.LastchanceDueAt = nullTime(lastchanceAt)
	rec.RemindedFollowupAt = nullTime(remindedAt)
	return &rec, nil
}

func (r *OutreachRepo) Get(ctx context.Context, ownerID, id int64) (*domain.OutreachRecord, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM outreach_records WHERE id = $1 AND owner_id = $2`, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get outreach record: %w", err)
	}
	return rec, nil
}

func (r *OutreachRepo) ListByOwner(ctx context.Context, ownerID int64) ([]domain.OutreachRecord, error) {
	return r.query(ctx, "list outreach records",
		`SELECT `+recordColumns+` FROM outreach_records WHERE owner_id = $1 ORDER BY id`, ownerID)
}

func (r *OutreachRepo) ListByStage(ctx context.Context, ownerID int64, stage domain.Stage) ([]domain.OutreachRecord, error) {
	return r.query(ctx, "list outreach records by stage",
		`SELECT `+recordColumns+` FROM outreach_records WHERE owner_id = $1 AND stage = $2 ORDER BY id`,
		ownerID, string(stage))
}

// ListByOwners returns every record of the given owners ordered by id.
func (r *OutreachRepo) ListByOwners(ctx context.Context, ownerIDs []int64) ([]domain.OutreachRecord, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	return r.query(ctx, "list outreach records by owners",
		`SELECT `+recordColumns+` FROM outreach_records WHERE owner_id = ANY($1) ORDER BY id`,
		pq.Array(ownerIDs))
}

// ListDirectlySent returns directly-sent records of the given owners.
func (r *OutreachRepo) ListDirectlySent(ctx context.Context, ownerIDs []int64) ([]domain.OutreachRecord, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	return r.query(ctx, "list sent outreach records",
		`SELECT `+recordColumns+` FROM outreach_records
		 WHERE owner_id = ANY($1) AND status = ANY($2) ORDER BY id`,
		pq.Array(ownerIDs), pq.Array(sentStatuses()))
}

// ListFollowupDue returns followup_due records whose follow-up or last
// chance date has passed at now. Records already reminded for their current
// follow-up date stay in the result so replies keep being checked.
func (r *OutreachRepo) ListFollowupDue(ctx context.Context, now time.Time, limit int) ([]domain.OutreachRecord, error) {
	return r.query(ctx, "list followup due records", `
		SELECT `+recordColumns+` FROM outreach_records
		WHERE status = $1
		  AND (lastchance_due_at <= $2 OR followup_due_at <= $2)
		ORDER BY id
		LIMIT $3`,
		string(domain.StatusFollowupDue), now, limit)
}

func (r *OutreachRepo) query(ctx context.Context, op, q string, args ...interface{}) ([]domain.OutreachRecord, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []domain.OutreachRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *OutreachRepo) Create(ctx context.Context, rec *domain.OutreachRecord) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO outreach_records (
			owner_id, template_id, origin_record_id, recipient_email, recipient_name,
			recipient_company, subject, body, stage, status, thread_id, shared_by_user_id,
			created_at, sent_at, followup_due_at, lastchance_due_at, version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NULLIF($11,''),$12,$13,$14,$15,$16,1)
		RETURNING id`,
		rec.OwnerID, rec.TemplateID, rec.OriginRecordID, rec.RecipientEmail, rec.RecipientName,
		rec.RecipientCompany, rec.Subject, rec.Body, string(rec.Stage), string(rec.Status),
		rec.ThreadID, rec.SharedByUserID, rec.CreatedAt, rec.SentAt, rec.FollowupDueAt, rec.LastchanceDueAt,
	).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && rec.OriginRecordID != nil {
			return 0, domain.ErrChildExists
		}
		return 0, fmt.Errorf("create outreach record: %w", err)
	}
	rec.Version = 1
	return id, nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// writeStatus applies the lifecycle fields of rec guarded by version and
// reports whether a row was updated.
func writeStatus(ctx context.Context, db execer, rec *domain.OutreachRecord, expectedVersion int64) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE outreach_records
		SET status = $1, sent_at = $2, followup_due_at = $3, lastchance_due_at = $4,
		    shared_by_user_id = $5, reminded_followup_at = $6, thread_id = NULLIF($7,''),
		    version = version + 1
		WHERE id = $8 AND version = $9`,
		string(rec.Status), rec.SentAt, rec.FollowupDueAt, rec.LastchanceDueAt,
		rec.SharedByUserID, rec.RemindedFollowupAt, rec.ThreadID, rec.ID, expectedVersion,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}
	rec.Version = expectedVersion + 1
	return true, nil
}

func (r *OutreachRepo) UpdateStatus(ctx context.Context, rec *domain.OutreachRecord, expectedVersion int64) error {
	ok, err := writeStatus(ctx, r.db, rec, expectedVersion)
	if err != nil {
		return fmt.Errorf("update outreach status: %w", err)
	}
	if ok {
		return nil
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM outreach_records WHERE id = $1)`, rec.ID).Scan(&exists); err != nil {
		return fmt.Errorf("update outreach status: %w", err)
	}
	if exists {
		return domain.ErrConflict
	}
	return domain.ErrRecordNotFound
}

func (r *OutreachRepo) Delete(ctx context.Context, ownerID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM outreach_records WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete outreach record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *OutreachRepo) FindChild(ctx context.Context, originID int64, stage domain.Stage) (*domain.OutreachRecord, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM outreach_records WHERE origin_record_id = $1 AND stage = $2`,
		originID, string(stage)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find child record: %w", err)
	}
	return rec, nil
}

// OwnerEmails returns the recipient of every record the user owns.
func (r *OutreachRepo) OwnerEmails(ctx context.Context, userID int64) ([]string, error) {
	return r.emails(ctx, `SELECT recipient_email FROM outreach_records WHERE owner_id = $1`, userID)
}

// SentEmails returns recipients of directly-sent records of the owners.
func (r *OutreachRepo) SentEmails(ctx context.Context, ownerIDs []int64) ([]string, error) {
	if len(ownerIDs) == 0 {
		return nil, nil
	}
	return r.emails(ctx,
		`SELECT recipient_email FROM outreach_records WHERE owner_id = ANY($1) AND status = ANY($2)`,
		pq.Array(ownerIDs), pq.Array(sentStatuses()))
}

func (r *OutreachRepo) emails(ctx context.Context, q string, args ...interface{}) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list recipient emails: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func sentStatuses() []string {
	st := domain.DirectlySentStatuses()
	out := make([]string, len(st))
	for i, s := range st {
		out[i] = string(s)
	}
	return out
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
