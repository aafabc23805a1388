package dedup

import (
	"context"
	"fmt"

	"github.com/ignite/outreach-tracker/internal/domain"
	"github.com/ignite/outreach-tracker/internal/pkg/logger"
)

// Options tweaks filtering behaviour.
type Options struct {
	// KeepBatchDuplicates disables collapsing repeated emails inside one batch.
	KeepBatchDuplicates bool
}

// Service is the dedup engine.
type Service struct {
	repo Repository
	opts Options
}

// NewService creates a dedup engine backed by the given repository.
func NewService(repo Repository, opts Options) *Service {
	return &Service{repo: repo, opts: opts}
}

// Filter returns the candidates that are new for userID, in input order.
// The querying user's own sharing flag plays no part: only friends who
// opted in contribute their sent history.
func (s *Service) Filter(ctx context.Context, userID int64, candidates []domain.Candidate, mergeFriends bool) ([]domain.Candidate, error) {
	if len(candidates) == 0 {
		return []domain.Candidate{}, nil
	}

	seen, err := s.history(ctx, userID, mergeFriends)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		key := domain.NormalizeEmail(c.Recipient.Email)
		if _, dup := seen[key]; dup {
			continue
		}
		if !s.opts.KeepBatchDuplicates {
			seen[key] = struct{}{}
		}
		out = append(out, c)
	}

	if dropped := len(candidates) - len(out); dropped > 0 {
		logger.Debug("dedup filtered batch", "user_id", userID, "in", len(candidates), "dropped", dropped, "merge_friends", mergeFriends)
	}
	return out, nil
}

func (s *Service) history(ctx context.Context, userID int64, mergeFriends bool) (map[string]struct{}, error) {
	own, err := s.repo.OwnerEmails(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("owner emails: %w", err)
	}
	seen := make(map[string]struct{}, len(own))
	for _, e := range own {
		seen[domain.NormalizeEmail(e)] = struct{}{}
	}
	if !mergeFriends {
		return seen, nil
	}

	friends, err := s.repo.SharingFriendIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sharing friends: %w", err)
	}
	if len(friends) == 0 {
		return seen, nil
	}
	sent, err := s.repo.SentEmails(ctx, friends)
	if err != nil {
		return nil, fmt.Errorf("friend sent emails: %w", err)
	}
	for _, e := range sent {
		seen[domain.NormalizeEmail(e)] = struct{}{}
	}
	return seen, nil
}
