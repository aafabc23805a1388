package worker

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/lib/pq"
)

// Answered friend requests are only needed while the requester may look at
// them; the friendship edges are the durable record.
const (
	DefaultCleanupInterval  = time.Hour
	DefaultRequestRetention = 30 * 24 * time.Hour

	cleanupBatchSize = 5000
	undefinedTable   = "42P01"
)

const deleteAnsweredRequests = `
	DELETE FROM outreach_friend_requests
	WHERE id IN (
		SELECT id FROM outreach_friend_requests
		WHERE status IN ('accepted', 'rejected')
		  AND created_at < $1
		LIMIT $2
	)`

// RequestCleanupWorker periodically removes answered friend requests older
// than the retention window, in batches.
type RequestCleanupWorker struct {
	db        *sql.DB
	interval  time.Duration
	retention time.Duration
	pause     time.Duration
	now       func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRequestCleanupWorker(db *sql.DB) *RequestCleanupWorker {
	return &RequestCleanupWorker{
		db:        db,
		interval:  DefaultCleanupInterval,
		retention: DefaultRequestRetention,
		pause:     100 * time.Millisecond,
		now:       time.Now,
	}
}

// Start runs a cleanup immediately and then every interval.
func (c *RequestCleanupWorker) Start(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.mu.Unlock()

	log.Printf("[RequestCleanup] Starting (interval=%s, retention=%s)", c.interval, c.retention)
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			c.Cleanup(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (c *RequestCleanupWorker) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Println("[RequestCleanup] Stopped")
}

// Cleanup deletes in batches until a batch removes nothing and returns the
// number of rows removed. A missing table is not an error.
func (c *RequestCleanupWorker) Cleanup(ctx context.Context) int64 {
	cutoff := c.now().UTC().Add(-c.retention)
	var total int64
	for ctx.Err() == nil {
		queryCtx, cancel := context.WithTimeout(ctx, time.Minute)
		res, err := c.db.ExecContext(queryCtx, deleteAnsweredRequests, cutoff, cleanupBatchSize)
		cancel()
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == undefinedTable {
				log.Println("[RequestCleanup] outreach_friend_requests does not exist, skipping")
			} else {
				log.Printf("[RequestCleanup] delete failed: %v", err)
			}
			break
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			break
		}
		total += n
		time.Sleep(c.pause)
	}
	if total > 0 {
		log.Printf("[RequestCleanup] Removed %d answered friend requests older than %s", total, c.retention)
	}
	return total
}
