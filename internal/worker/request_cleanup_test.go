package worker

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func TestRequestCleanup_DeletesInBatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	cutoff := now.Add(-DefaultRequestRetention)
	q := regexp.QuoteMeta("DELETE FROM outreach_friend_requests")
	mock.ExpectExec(q).WithArgs(cutoff, cleanupBatchSize).WillReturnResult(sqlmock.NewResult(0, cleanupBatchSize))
	mock.ExpectExec(q).WithArgs(cutoff, cleanupBatchSize).WillReturnResult(sqlmock.NewResult(0, 12))
	mock.ExpectExec(q).WithArgs(cutoff, cleanupBatchSize).WillReturnResult(sqlmock.NewResult(0, 0))

	c := NewRequestCleanupWorker(db)
	c.now = func() time.Time { return now }
	c.pause = 0

	if got := c.Cleanup(context.Background()); got != cleanupBatchSize+12 {
		t.Errorf("removed = %d, want %d", got, cleanupBatchSize+12)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRequestCleanup_MissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec("DELETE FROM outreach_friend_requests").
		WillReturnError(&pq.Error{Code: undefinedTable, Message: `relation "outreach_friend_requests" does not exist`})

	c := NewRequestCleanupWorker(db)
	if got := c.Cleanup(context.Background()); got != 0 {
		t.Errorf("removed = %d, want 0", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
