package sharing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ignite/outreach-tracker/internal/domain"
)

type mockRepo struct {
	mu      sync.RWMutex
	users   map[int64]*domain.User
	friends map[[2]int64]bool
	records map[int64]*domain.OutreachRecord
	// bump, when set, moves the version of a record right before its write.
	bump int64
	// failOn, when set, fails the write of that record.
	failOn int64
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		users:   map[int64]*domain.User{},
		friends: map[[2]int64]bool{},
		records: map[int64]*domain.OutreachRecord{},
	}
}

func (m *mockRepo) befriend(a, b int64) {
	m.friends[[2]int64{a, b}] = true
	m.friends[[2]int64{b, a}] = true
}

func (m *mockRepo) add(rec domain.OutreachRecord) {
	rec.Version = 1
	cp := rec
	m.records[rec.ID] = &cp
}

func (m *mockRepo) AreFriends(_ context.Context, a, b int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.friends[[2]int64{a, b}], nil
}

func (m *mockRepo) GetUser(_ context.Context, id int64) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepo) SharingFriends(_ context.Context, userID int64) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.User
	for k := range m.friends {
		if k[0] == userID && m.users[k[1]].CombineContacts {
			out = append(out, *m.users[k[1]])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepo) filter(match func(*domain.OutreachRecord) bool) []domain.OutreachRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.OutreachRecord
	for _, r := range m.records {
		if match(r) {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func in(ids []int64, id int64) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func (m *mockRepo) ListByOwner(_ context.Context, ownerID int64) ([]domain.OutreachRecord, error) {
	return m.filter(func(r *domain.OutreachRecord) bool { return r.OwnerID == ownerID }), nil
}

func (m *mockRepo) ListDirectlySent(_ context.Context, owners []int64) ([]domain.OutreachRecord, error) {
	return m.filter(func(r *domain.OutreachRecord) bool { return in(owners, r.OwnerID) && r.Status.IsDirectlySent() }), nil
}

func (m *mockRepo) ListByOwners(_ context.Context, owners []int64) ([]domain.OutreachRecord, error) {
	return m.filter(func(r *domain.OutreachRecord) bool { return in(owners, r.OwnerID) }), nil
}

// ApplySharing mirrors the transactional store: a write error restores the
// flag and every record touched before it.
func (m *mockRepo) ApplySharing(_ context.Context, userID int64, enabled bool, recs []domain.OutreachRecord) ([]domain.OutreachRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, 0, domain.ErrUserNotFound
	}
	prevFlag := u.CombineContacts
	saved := make(map[int64]domain.OutreachRecord, len(m.records))
	for id, r := range m.records {
		saved[id] = *r
	}
	rollback := func() {
		u.CombineContacts = prevFlag
		for id, r := range saved {
			cp := r
			m.records[id] = &cp
		}
	}

	u.CombineContacts = enabled
	var applied []domain.OutreachRecord
	conflicts := 0
	for _, rec := range recs {
		if m.failOn == rec.ID {
			rollback()
			return nil, 0, fmt.Errorf("update record %d: %w", rec.ID, errors.New("connection reset"))
		}
		r, ok := m.records[rec.ID]
		if !ok {
			conflicts++
			continue
		}
		if m.bump == rec.ID {
			r.Version++
		}
		if r.Version != rec.Version {
			conflicts++
			continue
		}
		r.Status = rec.Status
		r.SentAt = rec.SentAt
		r.FollowupDueAt = rec.FollowupDueAt
		r.LastchanceDueAt = rec.LastchanceDueAt
		r.SharedByUserID = rec.SharedByUserID
		r.Version++
		rec.Version = r.Version
		applied = append(applied, rec)
	}
	return applied, conflicts, nil
}

func ts(day int) *time.Time {
	t := time.Date(2024, 5, day, 12, 0, 0, 0, time.UTC)
	return &t
}

const (
	owner  int64 = 1
	friend int64 = 2
)

func setup() *mockRepo {
	m := newMockRepo()
	m.users[owner] = &domain.User{ID: owner, Email: "owner@example.com"}
	m.users[friend] = &domain.User{ID: friend, Email: "friend@example.com"}
	m.users[3] = &domain.User{ID: 3, Email: "stranger@example.com"}
	m.befriend(owner, friend)
	return m
}

func TestSetSharing_NotFriends(t *testing.T) {
	m := setup()
	m.add(domain.OutreachRecord{ID: 1, OwnerID: owner, RecipientEmail: "a@x.io", Stage: domain.StageOutreach, Status: domain.StatusDraft})
	svc := NewService(m)

	_, err := svc.SetSharing(context.Background(), owner, 3, true)
	if !errors.Is(err, domain.ErrNotFriends) {
		t.Fatalf("expected ErrNotFriends, got %v", err)
	}
	if m.users[3].CombineContacts || m.records[1].Status != domain.StatusDraft {
		t.Fatal("state mutated for non-friend")
	}
}

func TestSetSharing_EnableMarksMatches(t *testing.T) {
	m := setup()
	m.add(domain.OutreachRecord{ID: 10, OwnerID: friend, RecipientEmail: "A@x.io", Stage: domain.StageOutreach, Status: domain.StatusOutreachSent, SentAt: ts(1)})
	m.add(domain.OutreachRecord{ID: 11, OwnerID: friend, RecipientEmail: "a@x.io", Stage: domain.StageOutreach, Status: domain.StatusCompleted, SentAt: ts(2)})
	m.add(domain.OutreachRecord{ID: 12, OwnerID: friend, RecipientEmail: "b@x.io", Stage: domain.StageFollowup, Status: domain.StatusFollowupDue, SentAt: ts(3)})
	m.add(domain.OutreachRecord{ID: 13, OwnerID: friend, RecipientEmail: "c@x.io", Stage: domain.StageOutreach, Status: domain.StatusDraft})

	m.add(domain.OutreachRecord{ID: 1, OwnerID: owner, RecipientEmail: "a@x.io", Stage: domain.StageOutreach, Status: domain.StatusDraft})
	m.add(domain.OutreachRecord{ID: 2, OwnerID: owner, RecipientEmail: "b@x.io", Stage: domain.StageOutreach, Status: domain.StatusDraft})
	m.add(domain.OutreachRecord{ID: 3, OwnerID: owner, RecipientEmail: "c@x.io", Stage: domain.StageOutreach, Status: domain.StatusDraft})
	m.add(domain.OutreachRecord{ID: 4, OwnerID: owner, RecipientEmail: "b@x.io", Stage: domain.StageFollowup, Status: domain.StatusFollowupDue, SentAt: ts(9)})

	svc := NewService(m)
	res, err := svc.SetSharing(context.Background(), owner, friend, true)
	if err != nil {
		t.Fatalf("enable: %v", err)
	}
	if !m.users[friend].CombineContacts {
		t.Error("friend flag not set")
	}
	if res.SharedBy != "friend@example.com" || len(res.Updated) != 1 || res.Updated[0].ID != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	a := m.records[1]
	if a.Status != domain.StatusSentByFriend || !a.SentAt.Equal(*ts(1)) || a.SharedByUserID == nil || *a.SharedByUserID != friend {
		t.Errorf("record 1 not marked from lowest friend id: %+v", a)
	}
	if m.records[2].Status != domain.StatusDraft {
		t.Error("stage mismatch must not match")
	}
	if m.records[3].Status != domain.StatusDraft {
		t.Error("friend draft must not match")
	}
	if r := m.records[4]; r.Status != domain.StatusFollowupDue || !r.SentAt.Equal(*ts(9)) {
		t.Error("directly sent record must never be downgraded")
	}

	again, err := svc.SetSharing(context.Background(), owner, friend, true)
	if err != nil {
		t.Fatalf("re-enable: %v", err)
	}
	if len(again.Updated) != 0 {
		t.Errorf("re-enable should add nothing, got %d", len(again.Updated))
	}
}

func TestSetSharing_DisableRevertsOnlyFriendMarks(t *testing.T) {
	m := setup()
	fid := friend
	m.add(domain.OutreachRecord{ID: 1, OwnerID: owner, RecipientEmail: "a@x.io", Stage: domain.StageOutreach, Status: domain.StatusSentByFriend, SentAt: ts(1), SharedByUserID: &fid})
	m.add(domain.OutreachRecord{ID: 2, OwnerID: owner, RecipientEmail: "b@x.io", Stage: domain.StageOutreach, Status: domain.StatusOutreachSent, SentAt: ts(2)})
	m.add(domain.OutreachRecord{ID: 3, OwnerID: owner, RecipientEmail: "c@x.io", Stage: domain.StageOutreach, Status: domain.StatusCompleted, SentAt: ts(3)})
	m.users[friend].CombineContacts = true

	res, err := NewService(m).SetSharing(context.Background(), owner, friend, false)
	if err != nil {
		t.Fatalf("disable: %v", err)
	}
	if m.users[friend].CombineContacts {
		t.Error("friend flag still set")
	}
	if len(res.Updated) != 1 {
		t.Fatalf("expected one reverted record, got %d", len(res.Updated))
	}
	r := m.records[1]
	if r.Status != domain.StatusDraft || r.SentAt != nil || r.SharedByUserID != nil {
		t.Errorf("record 1 not reverted: %+v", r)
	}
	if m.records[2].Status != domain.StatusOutreachSent || !m.records[2].SentAt.Equal(*ts(2)) {
		t.Error("plain sent record touched")
	}
	if m.records[3].Status != domain.StatusCompleted {
		t.Error("completed record touched")
	}
}

func TestSetSharing_ConflictSkipsRecord(t *testing.T) {
	m := setup()
	m.add(domain.OutreachRecord{ID: 10, OwnerID: friend, RecipientEmail: "a@x.io", Stage: domain.StageOutreach, Status: domain.StatusOutreachSent, SentAt: ts(1)})
	m.add(domain.OutreachRecord{ID: 1, OwnerID: owner, RecipientEmail: "a@x.io", Stage: domain.StageOutreach, Status: domain.StatusDraft})
	m.bump = 1

	res, err := NewService(m).SetSharing(context.Background(), owner, friend, true)
	if err != nil {
		t.Fatalf("enable: %v", err)
	}
	if res.Conflict != 1 || len(res.Updated) != 0 {
		t.Fatalf("expected one conflict, got %+v", res)
	}
	if m.records[1].Status != domain.StatusDraft {
		t.Error("conflicting record must be left alone")
	}
}

func TestSetSharing_WriteFailureMutatesNothing(t *testing.T) {
	m := setup()
	m.add(domain.OutreachRecord{ID: 10, OwnerID: friend, RecipientEmail: "a@x.io", Stage: domain.StageOutreach, Status: domain.StatusOutreachSent, SentAt: ts(1)})
	m.add(domain.OutreachRecord{ID: 11, OwnerID: friend, RecipientEmail: "b@x.io", Stage: domain.StageOutreach, Status: domain.StatusOutreachSent, SentAt: ts(2)})
	m.add(domain.OutreachRecord{ID: 1, OwnerID: owner, RecipientEmail: "a@x.io", Stage: domain.StageOutreach, Status: domain.StatusDraft})
	m.add(domain.OutreachRecord{ID: 2, OwnerID: owner, RecipientEmail: "b@x.io", Stage: domain.StageOutreach, Status: domain.StatusDraft})
	m.failOn = 2

	res, err := NewService(m).SetSharing(context.Background(), owner, friend, true)
	if err == nil {
		t.Fatalf("expected error, got %+v", res)
	}
	if m.users[friend].CombineContacts {
		t.Error("friend flag flipped despite failure")
	}
	for _, id := range []int64{1, 2} {
		if r := m.records[id]; r.Status != domain.StatusDraft || r.SentAt != nil || r.Version != 1 {
			t.Errorf("record %d mutated: %+v", id, r)
		}
	}
}

func TestAnnotate(t *testing.T) {
	m := setup()
	m.users[friend].CombineContacts = true
	m.add(domain.OutreachRecord{ID: 10, OwnerID: friend, RecipientEmail: "a@x.io", Stage: domain.StageOutreach, Status: domain.StatusOutreachSent})
	m.add(domain.OutreachRecord{ID: 1, OwnerID: owner, RecipientEmail: "A@X.io", Stage: domain.StageOutreach, Status: domain.StatusDraft})
	m.add(domain.OutreachRecord{ID: 2, OwnerID: owner, RecipientEmail: "z@x.io", Stage: domain.StageOutreach, Status: domain.StatusDraft})

	own, _ := m.ListByOwner(context.Background(), owner)
	got, err := NewService(m).Annotate(context.Background(), owner, own)
	if err != nil {
		t.Fatalf("annotate: %v", err)
	}
	if got[0].SharedBy != "friend@example.com" || got[1].SharedBy != "" {
		t.Errorf("unexpected annotations: %q %q", got[0].SharedBy, got[1].SharedBy)
	}
	if m.records[1].Status != domain.StatusDraft {
		t.Error("annotate must not write")
	}
}

func TestSharedEmails(t *testing.T) {
	m := setup()
	m.add(domain.OutreachRecord{ID: 10, OwnerID: friend, RecipientEmail: "a@x.io", Stage: domain.StageOutreach, Status: domain.StatusDraft})
	svc := NewService(m)

	got, err := svc.SharedEmails(context.Background(), owner)
	if err != nil || len(got) != 0 {
		t.Fatalf("sharing off: got %v, %v", got, err)
	}

	m.users[friend].CombineContacts = true
	got, err = svc.SharedEmails(context.Background(), owner)
	if err != nil {
		t.Fatalf("shared emails: %v", err)
	}
	if len(got) != 1 || got[0].SharedBy != "friend@example.com" {
		t.Fatalf("unexpected %+v", got)
	}
}
