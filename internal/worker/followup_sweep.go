package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/outreach-tracker/internal/domain"
	"github.com/ignite/outreach-tracker/internal/metrics"
	"github.com/ignite/outreach-tracker/internal/pkg/distlock"
	"github.com/ignite/outreach-tracker/internal/pkg/logger"
	"github.com/ignite/outreach-tracker/internal/service/outreach"
)

// =============================================================================
// FOLLOW-UP SWEEP WORKER
// =============================================================================
// Walks followup_due records and applies the time-driven transitions:
//   - last chance due, no reply: notify the owner, status -> lastchance_due
//   - follow-up due, no reply:   one reminder per due date, status unchanged
//   - reply detected:            status -> completed
// Replies are checked on every pass, including after the reminder went out.
// The sweep never spawns child records.

const (
	DefaultSweepInterval  = 15 * time.Minute
	DefaultSweepBatchSize = 500
	DefaultSweepLockTTL   = 10 * time.Minute

	sweepLockKey = "outreach:sweep"
)

// SweepStore is the record access the sweep needs.
type SweepStore interface {
	// ListFollowupDue returns up to limit followup_due records whose
	// follow-up or last chance date has passed at now, ordered by id.
	ListFollowupDue(ctx context.Context, now time.Time, limit int) ([]domain.OutreachRecord, error)
	UpdateStatus(ctx context.Context, rec *domain.OutreachRecord, expectedVersion int64) error
}

// Archiver stores finished sweep reports.
type Archiver interface {
	ArchiveSweep(ctx context.Context, report *domain.SweepReport) error
}

// FollowupSweep applies time-based lifecycle transitions.
type FollowupSweep struct {
	store    SweepStore
	users    outreach.UserStore
	oracle   outreach.ReplyOracle
	notifier outreach.Notifier
	locks    distlock.Factory
	archiver Archiver

	interval    time.Duration
	batchSize   int
	lockTTL     time.Duration
	extendEvery time.Duration
	now         func() time.Time

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

// NewFollowupSweep creates a sweep. oracle and notifier may be nil: a nil
// oracle never reports replies and a nil notifier sends nothing.
func NewFollowupSweep(store SweepStore, users outreach.UserStore, oracle outreach.ReplyOracle, notifier outreach.Notifier) *FollowupSweep {
	return &FollowupSweep{
		store:     store,
		users:     users,
		oracle:    oracle,
		notifier:  notifier,
		interval:  DefaultSweepInterval,
		batchSize: DefaultSweepBatchSize,
		lockTTL:   DefaultSweepLockTTL,
		now:       time.Now,

		extendEvery: DefaultSweepLockTTL / 2,
	}
}

// SetLocker guards each pass with a distributed lock so only one instance
// sweeps at a time. Locks that can be extended are pushed out by ttl every
// half ttl while a pass runs; a failed extension ends the pass.
func (w *FollowupSweep) SetLocker(f distlock.Factory, ttl time.Duration) {
	w.locks = f
	if ttl > 0 {
		w.lockTTL = ttl
		w.extendEvery = ttl / 2
	}
}

func (w *FollowupSweep) SetArchiver(a Archiver) { w.archiver = a }

// SetSchedule overrides the tick interval and the per-pass record cap.
func (w *FollowupSweep) SetSchedule(interval time.Duration, batchSize int) {
	if interval > 0 {
		w.interval = interval
	}
	if batchSize > 0 {
		w.batchSize = batchSize
	}
}

// Start runs one pass immediately and then every interval until ctx is
// cancelled or Stop is called.
func (w *FollowupSweep) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("followup sweep already running")
	}
	w.running = true
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	log.Printf("[FollowupSweep] Starting with interval %v, batch size %d", w.interval, w.batchSize)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			if _, err := w.Run(ctx, w.now().UTC()); err != nil {
				log.Printf("[FollowupSweep] pass failed: %v", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return nil
}

// Stop cancels the loop and waits for the current pass to finish.
func (w *FollowupSweep) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.cancel()
	w.mu.Unlock()

	w.wg.Wait()
	log.Printf("[FollowupSweep] Stopped")
}

// Run performs one sweep pass at now.
func (w *FollowupSweep) Run(ctx context.Context, now time.Time) (*domain.SweepReport, error) {
	start := time.Now()
	report := &domain.SweepReport{RunID: uuid.NewString(), Now: now, StartedAt: start.UTC()}
	var keep func() error

	if w.locks != nil {
		lock := w.locks(sweepLockKey, w.lockTTL)
		ok, err := lock.Acquire(ctx)
		if err != nil {
			metrics.RecordSweep("error", time.Since(start))
			return report, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if !ok {
			report.Skipped = true
			report.FinishedAt = time.Now().UTC()
			metrics.RecordSweep("skipped", time.Since(start))
			logger.Info("sweep skipped, lock held elsewhere", "run_id", report.RunID)
			return report, nil
		}
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				logger.Warn("sweep lock release failed", "run_id", report.RunID, "error", err)
			}
		}()
		if ext, ok := lock.(distlock.Extender); ok {
			keep = func() error { return ext.Extend(ctx, w.lockTTL) }
		}
	}

	recs, err := w.store.ListFollowupDue(ctx, now, w.batchSize)
	if err != nil {
		metrics.RecordSweep("error", time.Since(start))
		return report, fmt.Errorf("list followup due: %w", err)
	}
	report.Scanned = len(recs)

	owners := make(map[int64]*domain.User)
	lastExtend := time.Now()
	for i := range recs {
		rec := &recs[i]
		if keep != nil && time.Since(lastExtend) >= w.extendEvery {
			if err := keep(); err != nil {
				metrics.RecordSweep("error", time.Since(start))
				logger.Error("sweep lock lost, stopping pass", "run_id", report.RunID, "processed", i, "error", err)
				report.FinishedAt = time.Now().UTC()
				return report, fmt.Errorf("extend sweep lock: %w", err)
			}
			lastExtend = time.Now()
		}
		owner, ok := owners[rec.OwnerID]
		if !ok {
			owner, err = w.users.GetUser(ctx, rec.OwnerID)
			if err != nil {
				logger.Error("sweep owner lookup failed", "record_id", rec.ID, "owner_id", rec.OwnerID, "error", err)
				report.Failed++
				continue
			}
			owners[rec.OwnerID] = owner
		}
		w.process(ctx, now, owner, rec, report)
	}

	report.FinishedAt = time.Now().UTC()
	metrics.RecordSweep("ok", time.Since(start))
	metrics.RecordSweepRecords("reminded", report.Reminded)
	metrics.RecordSweepRecords("lastchance_due", report.LastchanceDue)
	metrics.RecordSweepRecords("completed", report.Completed)
	metrics.RecordSweepRecords("conflict", report.Conflicts)

	logger.Info("sweep finished",
		"run_id", report.RunID,
		"scanned", report.Scanned,
		"reminded", report.Reminded,
		"lastchance_due", report.LastchanceDue,
		"completed", report.Completed,
		"conflicts", report.Conflicts,
		"failed", report.Failed,
	)

	if w.archiver != nil {
		if err := w.archiver.ArchiveSweep(ctx, report); err != nil {
			logger.Warn("sweep archive failed", "run_id", report.RunID, "error", err)
		}
	}
	return report, nil
}

func (w *FollowupSweep) process(ctx context.Context, now time.Time, owner *domain.User, rec *domain.OutreachRecord, report *domain.SweepReport) {
	switch {
	case rec.LastchanceDueAt != nil && !rec.LastchanceDueAt.After(now):
		if w.replied(ctx, owner, rec, report) {
			w.complete(ctx, rec, report)
			return
		}
		rec.Status = domain.StatusLastchanceDue
		if !w.write(ctx, rec, report) {
			return
		}
		report.LastchanceDue++
		metrics.RecordTransition(string(rec.Status))
		w.notify(ctx, owner, rec, report,
			fmt.Sprintf("Last chance: %s", rec.RecipientEmail),
			fmt.Sprintf("No reply from %s to %q. It's time for a last-chance email.", rec.RecipientEmail, rec.Subject))

	case rec.FollowupDueAt != nil && !rec.FollowupDueAt.After(now):
		if w.replied(ctx, owner, rec, report) {
			w.complete(ctx, rec, report)
			return
		}
		if rec.RemindedFollowupAt != nil && rec.RemindedFollowupAt.Equal(*rec.FollowupDueAt) {
			return
		}
		due := *rec.FollowupDueAt
		rec.RemindedFollowupAt = &due
		if !w.write(ctx, rec, report) {
			return
		}
		report.Reminded++
		w.notify(ctx, owner, rec, report,
			fmt.Sprintf("Follow-up due: %s", rec.RecipientEmail),
			fmt.Sprintf("No reply from %s to %q yet. Your follow-up is ready to send.", rec.RecipientEmail, rec.Subject))
	}
}

func (w *FollowupSweep) complete(ctx context.Context, rec *domain.OutreachRecord, report *domain.SweepReport) {
	rec.Status = domain.StatusCompleted
	if w.write(ctx, rec, report) {
		report.Completed++
		metrics.RecordTransition(string(rec.Status))
	}
}

// write commits rec against the version it was read at. A record moved by
// someone else since the read is skipped.
func (w *FollowupSweep) write(ctx context.Context, rec *domain.OutreachRecord, report *domain.SweepReport) bool {
	err := w.store.UpdateStatus(ctx, rec, rec.Version)
	switch {
	case err == nil:
		return true
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrRecordNotFound):
		report.Conflicts++
		logger.Debug("sweep skipped concurrently modified record", "record_id", rec.ID)
	default:
		report.Failed++
		logger.Error("sweep status write failed", "record_id", rec.ID, "status", rec.Status, "error", err)
	}
	return false
}

func (w *FollowupSweep) replied(ctx context.Context, owner *domain.User, rec *domain.OutreachRecord, report *domain.SweepReport) bool {
	if w.oracle == nil {
		return false
	}
	ok, err := w.oracle.HasReplied(ctx, owner, rec)
	if err != nil {
		report.OracleFailures++
		metrics.RecordCollaboratorError("reply_oracle")
		logger.Warn("reply check failed, treating as no reply", "record_id", rec.ID, "stage", rec.Stage, "error", err)
		return false
	}
	return ok
}

func (w *FollowupSweep) notify(ctx context.Context, owner *domain.User, rec *domain.OutreachRecord, report *domain.SweepReport, subject, body string) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Notify(ctx, owner.Email, subject, body); err != nil {
		report.NotifyFailures++
		metrics.RecordCollaboratorError("notifier")
		logger.Warn("sweep notification failed", "record_id", rec.ID, "stage", rec.Stage, "error", err)
	}
}
