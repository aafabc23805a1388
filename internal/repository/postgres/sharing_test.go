package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ignite/outreach-tracker/internal/domain"
)

func sharingRecords() []domain.OutreachRecord {
	sent := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fid := int64(2)
	return []domain.OutreachRecord{
		{ID: 1, Status: domain.StatusSentByFriend, SentAt: &sent, SharedByUserID: &fid, Version: 4},
		{ID: 2, Status: domain.StatusSentByFriend, SentAt: &sent, SharedByUserID: &fid, Version: 1},
	}
}

func TestStore_ApplySharingCommitsFlagAndRecords(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE outreach_users SET combine_contacts = \$1`).WithArgs(true, int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE outreach_records`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE outreach_records`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	applied, conflicts, err := NewStore(db).ApplySharing(context.Background(), 2, true, sharingRecords())
	if err != nil {
		t.Fatalf("ApplySharing: %v", err)
	}
	if len(applied) != 1 || applied[0].ID != 1 || applied[0].Version != 5 || conflicts != 1 {
		t.Errorf("applied=%+v conflicts=%d", applied, conflicts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStore_ApplySharingRollsBackOnWriteFailure(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE outreach_users`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE outreach_records`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE outreach_records`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err := NewStore(db).ApplySharing(context.Background(), 2, true, sharingRecords())
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestStore_ApplySharingUnknownUser(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE outreach_users`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if _, _, err := NewStore(db).ApplySharing(context.Background(), 9, false, nil); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
