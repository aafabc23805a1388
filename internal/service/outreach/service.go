package outreach

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ignite/outreach-tracker/internal/domain"
	"github.com/ignite/outreach-tracker/internal/metrics"
	"github.com/ignite/outreach-tracker/internal/pkg/distlock"
	"github.com/ignite/outreach-tracker/internal/pkg/logger"
)

const defaultSpawnLockTTL = 2 * time.Minute

// Service implements the explicit side of the outreach lifecycle. All
// public methods are safe for concurrent use if the underlying stores are.
type Service struct {
	repo      Repository
	users     UserStore
	templates TemplateStore
	content   ContentProvider
	locks     distlock.Factory
	lockTTL   time.Duration
	now       func() time.Time
	log       *logger.Logger
}

// NewService creates an outreach service. Templates and the spawn lock are
// optional and set with SetTemplates and SetSpawnLocker.
func NewService(repo Repository, users UserStore, content ContentProvider) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		content: content,
		lockTTL: defaultSpawnLockTTL,
		now:     func() time.Time { return time.Now().UTC() },
		log:     logger.With("component", "outreach"),
	}
}

// SetTemplates enables template lookup for spawned children and batches.
func (s *Service) SetTemplates(t TemplateStore) { s.templates = t }

// SetSpawnLocker guards each spawn with a distributed lock. A nil factory
// leaves spawns guarded by the version check and unique index only.
func (s *Service) SetSpawnLocker(f distlock.Factory) { s.locks = f }

// SetClock overrides the time source, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Get returns a single record owned by ownerID.
func (s *Service) Get(ctx context.Context, ownerID, id int64) (*domain.OutreachRecord, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// Delete removes a record owned by ownerID. Children are kept.
func (s *Service) Delete(ctx context.Context, ownerID, id int64) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.log.Info("record deleted", "record_id", id, "owner_id", ownerID)
	return nil
}

// ListByStage returns the owner's records for a stage view. The followup
// view also holds sent outreach whose follow-up is scheduled or due,
// whatever their stage.
func (s *Service) ListByStage(ctx context.Context, ownerID int64, stage domain.Stage) ([]domain.OutreachRecord, error) {
	if _, err := domain.ParseStage(string(stage)); err != nil {
		return nil, err
	}
	if stage != domain.StageFollowup {
		return s.repo.ListByStage(ctx, ownerID, stage)
	}

	all, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.OutreachRecord, 0, len(all))
	for _, rec := range all {
		if InFollowupView(&rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// InFollowupView reports whether rec belongs on the followup page.
func InFollowupView(rec *domain.OutreachRecord) bool {
	switch {
	case rec.Stage == domain.StageFollowup:
		return true
	case rec.Status == domain.StatusFollowupDue:
		return true
	case rec.Status == domain.StatusOutreachSent && rec.FollowupDueAt != nil:
		return true
	}
	return false
}

// MarkSent records that the owner sent a draft. It stamps sent_at and the
// due dates from the owner's current interval settings, moves the record to
// followup_due and spawns the follow-up draft. threadID, when known, is the
// Gmail thread the message went out on and is what reply detection reads.
func (s *Service) MarkSent(ctx context.Context, ownerID, id int64, threadID string) (*TransitionResult, error) {
	rec, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != domain.StatusDraft {
		return nil, fmt.Errorf("%w: record %d is %s", ErrAlreadySent, id, rec.Status)
	}
	owner, err := s.users.GetUser(ctx, rec.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}
	setThread(rec, threadID)
	return s.markSent(ctx, owner, rec)
}

func setThread(rec *domain.OutreachRecord, threadID string) {
	if t := strings.TrimSpace(threadID); t != "" {
		rec.ThreadID = t
	}
}

func (s *Service) markSent(ctx context.Context, owner *domain.User, rec *domain.OutreachRecord) (*TransitionResult, error) {
	now := s.now()
	followup, lastchance := owner.Intervals.OrDefault().DueDates(now)

	from := rec.Status
	expected := rec.Version
	rec.Status = domain.StatusFollowupDue
	rec.SentAt = &now
	rec.FollowupDueAt = &followup
	rec.LastchanceDueAt = &lastchance
	rec.RemindedFollowupAt = nil

	if err := s.repo.UpdateStatus(ctx, rec, expected); err != nil {
		return nil, fmt.Errorf("mark sent %d: %w", rec.ID, err)
	}
	metrics.RecordTransition(string(rec.Status))
	s.log.Info("record marked sent", "record_id", rec.ID, "from", from, "followup_due_at", followup.Format(time.RFC3339))

	res := &TransitionResult{
		Record:  rec,
		Primary: Outcome{From: from, To: rec.Status, Changed: true},
	}
	res.SideEffect = s.spawnChild(ctx, owner, rec, domain.StageFollowup, nil)
	return res, nil
}

// SetStatus applies an explicit status change. The raw status is parsed
// first, so legacy spellings are accepted.
//
// Moving an unsent record to outreach_sent or followup_due behaves exactly
// like MarkSent. Any other sent variant stamps sent_at if it is unset, and
// lastchance_due also spawns the last-chance draft. Reverting to draft
// clears every send timestamp and the thread id. threadID is stored for
// sent variants and ignored for draft.
func (s *Service) SetStatus(ctx context.Context, ownerID, id int64, raw, threadID string) (*TransitionResult, error) {
	status, err := domain.ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	owner, err := s.users.GetUser(ctx, rec.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}

	if status != domain.StatusDraft {
		setThread(rec, threadID)
	}
	if (status == domain.StatusOutreachSent || status == domain.StatusFollowupDue) && rec.SentAt == nil {
		return s.markSent(ctx, owner, rec)
	}

	from := rec.Status
	expected := rec.Version
	rec.Status = status
	switch {
	case status == domain.StatusDraft:
		rec.SentAt = nil
		rec.FollowupDueAt = nil
		rec.LastchanceDueAt = nil
		rec.SharedByUserID = nil
		rec.RemindedFollowupAt = nil
		rec.ThreadID = ""
	case rec.SentAt == nil:
		now := s.now()
		rec.SentAt = &now
	}

	if err := s.repo.UpdateStatus(ctx, rec, expected); err != nil {
		return nil, fmt.Errorf("set status %d: %w", rec.ID, err)
	}
	metrics.RecordTransition(string(status))
	s.log.Info("record status set", "record_id", rec.ID, "from", from, "to", status)

	res := &TransitionResult{
		Record:  rec,
		Primary: Outcome{From: from, To: status, Changed: from != status},
	}
	if status == domain.StatusLastchanceDue {
		res.SideEffect = s.spawnChild(ctx, owner, rec, domain.StageLastchance, nil)
	}
	return res, nil
}

// RegenerateLastchance explicitly drafts the last-chance email for a record,
// optionally from a specific lastchance template. If the child already
// exists it is returned unchanged. Unlike the spawn after a transition, a
// drafting failure here is the operation's error.
func (s *Service) RegenerateLastchance(ctx context.Context, ownerID, id int64, templateID *int64) (*TransitionResult, error) {
	rec, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	var tmpl *domain.Template
	if templateID != nil {
		if tmpl, err = s.stageTemplate(ctx, ownerID, *templateID, domain.StageLastchance); err != nil {
			return nil, err
		}
	}
	owner, err := s.users.GetUser(ctx, rec.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}

	side := s.spawnChild(ctx, owner, rec, domain.StageLastchance, tmpl)
	if side.Err != nil {
		return nil, side.Err
	}
	return &TransitionResult{
		Record:     rec,
		Primary:    Outcome{From: rec.Status, To: rec.Status},
		SideEffect: side,
	}, nil
}

// ListTemplates returns the owner's templates.
func (s *Service) ListTemplates(ctx context.Context, ownerID int64) ([]domain.Template, error) {
	if s.templates == nil {
		return nil, nil
	}
	return s.templates.ListTemplates(ctx, ownerID)
}

func (s *Service) stageTemplate(ctx context.Context, ownerID, templateID int64, stage domain.Stage) (*domain.Template, error) {
	if s.templates == nil {
		return nil, ErrTemplateNotFound
	}
	tmpl, err := s.templates.GetTemplate(ctx, ownerID, templateID)
	if err != nil {
		return nil, err
	}
	if tmpl.Category != stage {
		return nil, fmt.Errorf("%w: template %d is for %s, not %s", ErrTemplateNotFound, templateID, tmpl.Category, stage)
	}
	return tmpl, nil
}

// spawnChild creates the draft for the next stage of origin. It never
// returns an error: every failure is logged and carried in the outcome,
// wrapped with domain.ErrCollaboratorFailure.
func (s *Service) spawnChild(ctx context.Context, owner *domain.User, origin *domain.OutreachRecord, stage domain.Stage, tmpl *domain.Template) *SideEffectOutcome {
	out := &SideEffectOutcome{Stage: stage}
	fail := func(step string, err error) *SideEffectOutcome {
		out.Err = fmt.Errorf("%w: spawn %s for record %d: %s: %v", domain.ErrCollaboratorFailure, stage, origin.ID, step, err)
		metrics.RecordSpawn(string(stage), "failed")
		if step == "generate content" {
			metrics.RecordCollaboratorError("content")
		}
		s.log.Warn("spawn failed", "record_id", origin.ID, "stage", stage, "step", step, "error", err)
		return out
	}

	if s.locks != nil {
		lock := s.locks(fmt.Sprintf("outreach:spawn:%d:%s", origin.ID, stage), s.lockTTL)
		acquired, err := lock.Acquire(ctx)
		if err != nil {
			return fail("acquire lock", err)
		}
		if !acquired {
			out.Skipped = true
			metrics.RecordSpawn(string(stage), "skipped")
			s.log.Info("spawn in progress elsewhere", "record_id", origin.ID, "stage", stage)
			return out
		}
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				s.log.Warn("spawn lock release failed", "record_id", origin.ID, "error", err)
			}
		}()
	}

	existing, err := s.repo.FindChild(ctx, origin.ID, stage)
	if err != nil {
		return fail("find child", err)
	}
	if existing != nil {
		out.Child = existing
		out.AlreadyExisted = true
		metrics.RecordSpawn(string(stage), "existing")
		return out
	}

	if tmpl == nil && s.templates != nil {
		if tmpl, err = s.templates.DefaultTemplate(ctx, owner.ID, stage); err != nil {
			return fail("load default template", err)
		}
	}

	content, err := s.content.Generate(ctx, domain.DraftRequest{
		Recipient: origin.Recipient(),
		Stage:     stage,
		Owner:     owner.Profile(),
		Template:  tmpl,
		Previous:  &domain.Content{Subject: origin.Subject, Body: origin.Body},
	})
	if err != nil {
		return fail("generate content", err)
	}

	originID := origin.ID
	child := &domain.OutreachRecord{
		OwnerID:          origin.OwnerID,
		OriginRecordID:   &originID,
		RecipientEmail:   origin.RecipientEmail,
		RecipientName:    origin.RecipientName,
		RecipientCompany: origin.RecipientCompany,
		Subject:          content.Subject,
		Body:             content.Body,
		Stage:            stage,
		Status:           domain.StatusDraft,
		ThreadID:         origin.ThreadID,
		CreatedAt:        s.now(),
	}
	if tmpl != nil {
		tid := tmpl.ID
		child.TemplateID = &tid
	}

	id, err := s.repo.Create(ctx, child)
	if errors.Is(err, ErrChildExists) {
		existing, ferr := s.repo.FindChild(ctx, origin.ID, stage)
		if ferr != nil {
			return fail("find child", ferr)
		}
		out.Child = existing
		out.AlreadyExisted = true
		metrics.RecordSpawn(string(stage), "existing")
		return out
	}
	if err != nil {
		return fail("create child", err)
	}
	child.ID = id
	out.Child = child
	metrics.RecordSpawn(string(stage), "created")
	s.log.Info("child spawned", "record_id", origin.ID, "child_id", id, "stage", stage)
	return out
}
