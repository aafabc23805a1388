package api

import (
	"context"
	"time"

	"github.com/ignite/outreach-tracker/internal/domain"
	"github.com/ignite/outreach-tracker/internal/service/friends"
	"github.com/ignite/outreach-tracker/internal/service/outreach"
	"github.com/ignite/outreach-tracker/internal/service/sharing"
)

// OutreachService is the lifecycle surface the handlers use.
type OutreachService interface {
	ListByStage(ctx context.Context, ownerID int64, stage domain.Stage) ([]domain.OutreachRecord, error)
	MarkSent(ctx context.Context, ownerID, id int64, threadID string) (*outreach.TransitionResult, error)
	SetStatus(ctx context.Context, ownerID, id int64, status, threadID string) (*outreach.TransitionResult, error)
	RegenerateLastchance(ctx context.Context, ownerID, id int64, templateID *int64) (*outreach.TransitionResult, error)
	Delete(ctx context.Context, ownerID, id int64) error
	GenerateBatch(ctx context.Context, ownerID int64, dedup outreach.Deduper, in outreach.BatchInput) (*outreach.BatchResult, error)
	ListTemplates(ctx context.Context, ownerID int64) ([]domain.Template, error)
}

type SharingService interface {
	SetSharing(ctx context.Context, ownerID, friendID int64, enabled bool) (*sharing.Result, error)
	Annotate(ctx context.Context, ownerID int64, recs []domain.OutreachRecord) ([]sharing.AnnotatedRecord, error)
	SharedEmails(ctx context.Context, userID int64) ([]sharing.AnnotatedRecord, error)
}

type FriendService interface {
	List(ctx context.Context, userID int64) ([]friends.Friend, error)
	PendingRequests(ctx context.Context, userID int64) ([]friends.PendingRequest, error)
	SendRequest(ctx context.Context, fromUserID int64, email string) (*domain.FriendRequest, error)
	Respond(ctx context.Context, userID, fromUserID int64, status string) error
	Remove(ctx context.Context, userID, friendID int64) error
}

type SettingsService interface {
	Intervals(ctx context.Context, userID int64) (domain.IntervalSettings, error)
	UpdateIntervals(ctx context.Context, userID int64, followupDays, lastchanceDays int) (domain.IntervalSettings, error)
}

// Sweeper runs one follow-up sweep pass.
type Sweeper interface {
	Run(ctx context.Context, now time.Time) (*domain.SweepReport, error)
}

// Handlers holds the services behind the HTTP API.
type Handlers struct {
	outreach OutreachService
	dedup    outreach.Deduper
	sharing  SharingService
	friends  FriendService
	settings SettingsService
	sweeper  Sweeper
	now      func() time.Time
}

func NewHandlers(o OutreachService, d outreach.Deduper, s SharingService, f FriendService, st SettingsService, sw Sweeper) *Handlers {
	return &Handlers{
		outreach: o,
		dedup:    d,
		sharing:  s,
		friends:  f,
		settings: st,
		sweeper:  sw,
		now:      time.Now,
	}
}
