package friends

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/ignite/outreach-tracker/internal/domain"
)

type mockRepo struct {
	mu       sync.RWMutex
	users    map[int64]*domain.User
	edges    map[[2]int64]bool
	requests []*domain.FriendRequest
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		users: map[int64]*domain.User{
			1: {ID: 1, Email: "ann@example.com", FullName: "Ann"},
			2: {ID: 2, Email: "ben@example.com", FullName: "Ben", CombineContacts: true},
			3: {ID: 3, Email: "cy@example.com", FullName: "Cy"},
		},
		edges: map[[2]int64]bool{},
	}
}

func (m *mockRepo) GetUser(_ context.Context, id int64) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockRepo) AreFriends(_ context.Context, a, b int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.edges[[2]int64{a, b}], nil
}

func (m *mockRepo) ListFriends(_ context.Context, userID int64) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.User
	for k := range m.edges {
		if k[0] == userID {
			out = append(out, *m.users[k[1]])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepo) AddFriendship(_ context.Context, a, b int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges[[2]int64{a, b}] = true
	m.edges[[2]int64{b, a}] = true
	return nil
}

func (m *mockRepo) RemoveFriendship(_ context.Context, a, b int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.edges, [2]int64{a, b})
	delete(m.edges, [2]int64{b, a})
	return nil
}

func (m *mockRepo) CreateRequest(_ context.Context, from, to int64) (*domain.FriendRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := &domain.FriendRequest{ID: int64(len(m.requests) + 1), FromUserID: from, ToUserID: to, Status: domain.FriendRequestPending}
	m.requests = append(m.requests, r)
	return r, nil
}

func (m *mockRepo) PendingRequest(_ context.Context, from, to int64) (*domain.FriendRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.requests {
		if r.FromUserID == from && r.ToUserID == to && r.Status == domain.FriendRequestPending {
			return r, nil
		}
	}
	return nil, domain.ErrFriendRequestNotFound
}

func (m *mockRepo) ListPendingTo(_ context.Context, userID int64) ([]domain.FriendRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.FriendRequest
	for _, r := range m.requests {
		if r.ToUserID == userID && r.Status == domain.FriendRequestPending {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockRepo) SetRequestStatus(_ context.Context, id int64, st domain.FriendRequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.ID == id {
			r.Status = st
			return nil
		}
	}
	return domain.ErrFriendRequestNotFound
}

func TestRequestAcceptFlow(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if _, err := svc.SendRequest(ctx, 1, "BEN@example.com"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := svc.SendRequest(ctx, 1, "ben@example.com"); !errors.Is(err, domain.ErrRequestPending) {
		t.Fatalf("expected ErrRequestPending, got %v", err)
	}

	pending, err := svc.PendingRequests(ctx, 2)
	if err != nil || len(pending) != 1 || pending[0].Email != "ann@example.com" {
		t.Fatalf("pending = %+v, %v", pending, err)
	}

	if err := svc.Respond(ctx, 2, 1, "accepted"); err != nil {
		t.Fatalf("respond: %v", err)
	}
	for _, pair := range [][2]int64{{1, 2}, {2, 1}} {
		if ok, _ := repo.AreFriends(ctx, pair[0], pair[1]); !ok {
			t.Errorf("missing edge %v", pair)
		}
	}

	friends, _ := svc.List(ctx, 1)
	if len(friends) != 1 || friends[0].ID != 2 || !friends[0].CombineContacts {
		t.Errorf("friends = %+v", friends)
	}

	if _, err := svc.SendRequest(ctx, 2, "ann@example.com"); !errors.Is(err, domain.ErrAlreadyFriends) {
		t.Errorf("expected ErrAlreadyFriends, got %v", err)
	}
	if err := svc.Respond(ctx, 2, 1, "accepted"); !errors.Is(err, domain.ErrFriendRequestNotFound) {
		t.Errorf("answered request should be gone, got %v", err)
	}
}

func TestRespond_Reject(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()
	if _, err := svc.SendRequest(ctx, 3, "ann@example.com"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := svc.Respond(ctx, 1, 3, "maybe"); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if err := svc.Respond(ctx, 1, 3, "rejected"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if ok, _ := repo.AreFriends(ctx, 1, 3); ok {
		t.Error("rejected request created a friendship")
	}
}

func TestSendRequest_Errors(t *testing.T) {
	svc := NewService(newMockRepo())
	if _, err := svc.SendRequest(context.Background(), 1, "nobody@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.SendRequest(context.Background(), 1, "ann@example.com"); err == nil {
		t.Error("expected self-request error")
	}
}

func TestRemove(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()
	repo.AddFriendship(ctx, 1, 2)

	if err := svc.Remove(ctx, 2, 1); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ok, _ := repo.AreFriends(ctx, 1, 2); ok {
		t.Error("edge 1->2 still present")
	}
	if err := svc.Remove(ctx, 1, 2); !errors.Is(err, domain.ErrNotFriends) {
		t.Errorf("expected ErrNotFriends, got %v", err)
	}
}
