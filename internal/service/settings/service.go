package settings

import (
	"context"
	"fmt"

	"github.com/ignite/outreach-tracker/internal/domain"
	"github.com/ignite/outreach-tracker/internal/pkg/logger"
)

// Repository persists interval settings on the user row.
type Repository interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	UpdateIntervals(ctx context.Context, userID int64, s domain.IntervalSettings) error
}

type Service struct {
	repo     Repository
	defaults domain.IntervalSettings
}

// NewService builds the service. defaults fill users with no stored values
// and must already be valid.
func NewService(repo Repository, defaults domain.IntervalSettings) *Service {
	if defaults.Validate() != nil {
		defaults = domain.DefaultIntervals()
	}
	return &Service{repo: repo, defaults: defaults}
}

// Intervals returns the user's settings with defaults applied.
func (s *Service) Intervals(ctx context.Context, userID int64) (domain.IntervalSettings, error) {
	u, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return domain.IntervalSettings{}, err
	}
	in := u.Intervals
	if in.FollowupDays == 0 {
		in.FollowupDays = s.defaults.FollowupDays
	}
	if in.LastchanceDays == 0 {
		in.LastchanceDays = s.defaults.LastchanceDays
	}
	return in, nil
}

// UpdateIntervals validates and stores new settings. Due dates already
// computed on existing records are left alone.
func (s *Service) UpdateIntervals(ctx context.Context, userID int64, followupDays, lastchanceDays int) (domain.IntervalSettings, error) {
	in, err := domain.NewIntervalSettings(followupDays, lastchanceDays)
	if err != nil {
		return domain.IntervalSettings{}, err
	}
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return domain.IntervalSettings{}, err
	}
	if err := s.repo.UpdateIntervals(ctx, userID, in); err != nil {
		return domain.IntervalSettings{}, fmt.Errorf("update intervals: %w", err)
	}
	logger.Info("interval settings updated", "user_id", userID, "followup_days", in.FollowupDays, "lastchance_days", in.LastchanceDays)
	return in, nil
}
