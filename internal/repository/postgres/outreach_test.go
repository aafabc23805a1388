package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ignite/outreach-tracker/internal/domain"
	"github.com/lib/pq"
)

var recordCols = []string{
	"id", "owner_id", "template_id", "origin_record_id",
	"recipient_email", "recipient_name", "recipient_company",
	"subject", "body", "stage", "status", "thread_id",
	"shared_by_user_id", "created_at", "sent_at", "followup_due_at", "lastchance_due_at",
	"reminded_followup_at", "version",
}

func recordRow(id int64, status string, sentAt interface{}) []driver.Value {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	return []driver.Value{
		id, int64(1), nil, nil,
		"Ann@Example.com", "Ann", "Acme",
		"Hi", "Body", "outreach", status, "",
		nil, created, sentAt, nil, nil,
		nil, int64(3),
	}
}

func TestOutreachRepo_GetNormalizesLegacyStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sent := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .* FROM outreach_records WHERE id = \$1 AND owner_id = \$2`).
		WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows(recordCols).AddRow(recordRow(7, "sent", sent)...))

	rec, err := NewOutreachRepo(db).Get(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != domain.StatusOutreachSent {
		t.Errorf("status = %s, want outreach_sent", rec.Status)
	}
	if rec.SentAt == nil || !rec.SentAt.Equal(sent) || rec.Version != 3 {
		t.Errorf("unexpected record %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestOutreachRepo_GetNotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM outreach_records`).
		WillReturnRows(sqlmock.NewRows(recordCols))

	if _, err := NewOutreachRepo(db).Get(context.Background(), 1, 9); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestOutreachRepo_UpdateStatusVersionGuard(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	repo := NewOutreachRepo(db)
	rec := &domain.OutreachRecord{ID: 5, Status: domain.StatusFollowupDue, ThreadID: "18c2f0a9d3"}

	mock.ExpectExec(`thread_id = NULLIF\(\$7,''\)`).
		WithArgs("followup_due", nil, nil, nil, nil, nil, "18c2f0a9d3", int64(5), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.UpdateStatus(context.Background(), rec, 2); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if rec.Version != 3 {
		t.Errorf("version = %d, want 3", rec.Version)
	}

	mock.ExpectExec(`UPDATE outreach_records`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	if err := repo.UpdateStatus(context.Background(), rec, 2); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	mock.ExpectExec(`UPDATE outreach_records`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	if err := repo.UpdateStatus(context.Background(), rec, 3); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestOutreachRepo_CreateDuplicateChild(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	origin := int64(4)
	mock.ExpectQuery(`INSERT INTO outreach_records`).
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "outreach_records_origin_stage_key"})

	_, err := NewOutreachRepo(db).Create(context.Background(), &domain.OutreachRecord{
		OwnerID: 1, OriginRecordID: &origin, Stage: domain.StageFollowup, Status: domain.StatusDraft,
	})
	if !errors.Is(err, domain.ErrChildExists) {
		t.Errorf("expected ErrChildExists, got %v", err)
	}
}

func TestOutreachRepo_Create(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO outreach_records`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))

	rec := &domain.OutreachRecord{OwnerID: 1, RecipientEmail: "a@x.io", Stage: domain.StageOutreach, Status: domain.StatusDraft}
	id, err := NewOutreachRepo(db).Create(context.Background(), rec)
	if err != nil || id != 11 {
		t.Fatalf("Create = %d, %v", id, err)
	}
	if rec.Version != 1 || rec.CreatedAt.IsZero() {
		t.Errorf("create did not initialise record: %+v", rec)
	}
}

func TestOutreachRepo_FindChildNone(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectQuery(`WHERE origin_record_id = \$1 AND stage = \$2`).
		WithArgs(int64(3), "lastchance").
		WillReturnRows(sqlmock.NewRows(recordCols))

	child, err := NewOutreachRepo(db).FindChild(context.Background(), 3, domain.StageLastchance)
	if err != nil || child != nil {
		t.Errorf("FindChild = %v, %v; want nil, nil", child, err)
	}
}

func TestOutreachRepo_SentEmails(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	repo := NewOutreachRepo(db)

	if got, err := repo.SentEmails(context.Background(), nil); err != nil || got != nil {
		t.Fatalf("empty owners should not query: %v %v", got, err)
	}

	mock.ExpectQuery(`owner_id = ANY\(\$1\) AND status = ANY\(\$2\)`).
		WillReturnRows(sqlmock.NewRows([]string{"recipient_email"}).AddRow("e@x.io").AddRow("f@x.io"))
	got, err := repo.SentEmails(context.Background(), []int64{2, 3})
	if err != nil || len(got) != 2 {
		t.Errorf("SentEmails = %v, %v", got, err)
	}
}

func TestOutreachRepo_ListFollowupDue(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`WHERE status = \$1`).
		WithArgs("followup_due", now, 500).
		WillReturnRows(sqlmock.NewRows(recordCols).
			AddRow(recordRow(1, "followup_due", now)...).
			AddRow(recordRow(2, "followup_due", now)...))

	got, err := NewOutreachRepo(db).ListFollowupDue(context.Background(), now, 500)
	if err != nil || len(got) != 2 || got[1].ID != 2 {
		t.Errorf("ListFollowupDue = %+v, %v", got, err)
	}
}

func TestOutreachRepo_DeleteForeign(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectExec(`DELETE FROM outreach_records`).WithArgs(int64(5), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := NewOutreachRepo(db).Delete(context.Background(), 2, 5); !errors.Is(err, domain.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound, got %v", err)
	}
}
