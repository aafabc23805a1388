package sharing

import (
	"context"
	"fmt"

	"github.com/ignite/outreach-tracker/internal/domain"
	"github.com/ignite/outreach-tracker/internal/metrics"
	"github.com/ignite/outreach-tracker/internal/pkg/logger"
)

// Result lists the records a toggle changed.
type Result struct {
	Enabled  bool                    `json:"enabled"`
	SharedBy string                  `json:"shared_by"`
	Updated  []domain.OutreachRecord `json:"updated_emails"`
	Conflict int                     `json:"conflicts"`
}

// AnnotatedRecord is a record plus the email of the friend who already sent
// to the same recipient in the same stage, if any.
type AnnotatedRecord struct {
	domain.OutreachRecord
	SharedBy string `json:"shared_by,omitempty"`
}

// Service is the sharing propagator.
type Service struct {
	repo Repository
	log  *logger.Logger
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, log: logger.With("component", "sharing")}
}

type matchKey struct {
	email string
	stage domain.Stage
}

// SetSharing toggles the friend's CombineContacts flag and reconciles the
// owner's records. Enabling only ever adds sent_by_friend marks; disabling
// reverts every sent_by_friend record of the owner to draft. The flag and
// every record write commit together or not at all.
//
// A record modified concurrently between read and write is counted in
// Result.Conflict and left alone.
func (s *Service) SetSharing(ctx context.Context, ownerID, friendID int64, enabled bool) (*Result, error) {
	ok, err := s.repo.AreFriends(ctx, ownerID, friendID)
	if err != nil {
		return nil, fmt.Errorf("check friendship: %w", err)
	}
	if !ok {
		return nil, domain.ErrNotFriends
	}
	friend, err := s.repo.GetUser(ctx, friendID)
	if err != nil {
		return nil, err
	}

	var changes []domain.OutreachRecord
	if enabled {
		changes, err = s.enable(ctx, ownerID, friend)
	} else {
		changes, err = s.disable(ctx, ownerID)
	}
	if err != nil {
		return nil, err
	}

	applied, conflicts, err := s.repo.ApplySharing(ctx, friendID, enabled, changes)
	if err != nil {
		return nil, fmt.Errorf("apply sharing: %w", err)
	}
	for _, rec := range applied {
		metrics.RecordTransition(string(rec.Status))
	}
	if conflicts > 0 {
		s.log.Warn("records changed during sharing toggle", "owner_id", ownerID, "conflicts", conflicts)
	}

	res := &Result{Enabled: enabled, SharedBy: friend.Email, Updated: applied, Conflict: conflicts}
	if res.Updated == nil {
		res.Updated = []domain.OutreachRecord{}
	}
	s.log.Info("sharing toggled", "owner_id", ownerID, "friend_id", friendID, "enabled", enabled, "updated", len(res.Updated), "conflicts", res.Conflict)
	return res, nil
}

// enable returns the owner's unsent records that the friend already sent to
// in the same stage, marked sent_by_friend.
func (s *Service) enable(ctx context.Context, ownerID int64, friend *domain.User) ([]domain.OutreachRecord, error) {
	sent, err := s.repo.ListDirectlySent(ctx, []int64{friend.ID})
	if err != nil {
		return nil, fmt.Errorf("friend sent records: %w", err)
	}
	first := firstByKey(sent)

	own, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("owner records: %w", err)
	}
	var out []domain.OutreachRecord
	for _, rec := range own {
		if rec.Status.IsDirectlySent() || rec.Status == domain.StatusSentByFriend {
			continue
		}
		match, ok := first[matchKey{rec.EmailKey(), rec.Stage}]
		if !ok {
			continue
		}
		rec.Status = domain.StatusSentByFriend
		rec.SentAt = match.SentAt
		fid := friend.ID
		rec.SharedByUserID = &fid
		out = append(out, rec)
	}
	return out, nil
}

// disable returns every sent_by_friend record of the owner reverted to draft.
func (s *Service) disable(ctx context.Context, ownerID int64) ([]domain.OutreachRecord, error) {
	own, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("owner records: %w", err)
	}
	var out []domain.OutreachRecord
	for _, rec := range own {
		if rec.Status != domain.StatusSentByFriend {
			continue
		}
		rec.Status = domain.StatusDraft
		rec.SentAt = nil
		rec.FollowupDueAt = nil
		rec.LastchanceDueAt = nil
		rec.SharedByUserID = nil
		out = append(out, rec)
	}
	return out, nil
}

// firstByKey keeps the lowest-id record for each (email, stage).
func firstByKey(recs []domain.OutreachRecord) map[matchKey]domain.OutreachRecord {
	out := make(map[matchKey]domain.OutreachRecord, len(recs))
	for _, r := range recs {
		k := matchKey{r.EmailKey(), r.Stage}
		if cur, ok := out[k]; !ok || r.ID < cur.ID {
			out[k] = r
		}
	}
	return out
}

// Annotate pairs each record with the first sharing friend who directly sent
// to the same (email, stage). It reads only.
func (s *Service) Annotate(ctx context.Context, ownerID int64, recs []domain.OutreachRecord) ([]AnnotatedRecord, error) {
	out := make([]AnnotatedRecord, len(recs))
	for i, r := range recs {
		out[i] = AnnotatedRecord{OutreachRecord: r}
	}
	if len(recs) == 0 {
		return out, nil
	}

	friends, err := s.repo.SharingFriends(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("sharing friends: %w", err)
	}
	if len(friends) == 0 {
		return out, nil
	}
	emails := make(map[int64]string, len(friends))
	ids := make([]int64, 0, len(friends))
	for _, f := range friends {
		emails[f.ID] = f.Email
		ids = append(ids, f.ID)
	}
	sent, err := s.repo.ListDirectlySent(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("friend sent records: %w", err)
	}
	first := firstByKey(sent)

	for i := range out {
		if m, ok := first[matchKey{out[i].EmailKey(), out[i].Stage}]; ok {
			out[i].SharedBy = emails[m.OwnerID]
		}
	}
	return out, nil
}

// SharedEmails returns every record of the user's friends who opted in to
// sharing, tagged with the owning friend's email.
func (s *Service) SharedEmails(ctx context.Context, userID int64) ([]AnnotatedRecord, error) {
	friends, err := s.repo.SharingFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sharing friends: %w", err)
	}
	out := []AnnotatedRecord{}
	if len(friends) == 0 {
		return out, nil
	}
	emails := make(map[int64]string, len(friends))
	ids := make([]int64, 0, len(friends))
	for _, f := range friends {
		emails[f.ID] = f.Email
		ids = append(ids, f.ID)
	}
	recs, err := s.repo.ListByOwners(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("friend records: %w", err)
	}
	for _, r := range recs {
		out = append(out, AnnotatedRecord{OutreachRecord: r, SharedBy: emails[r.OwnerID]})
	}
	return out, nil
}
