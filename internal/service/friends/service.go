package friends

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ignite/outreach-tracker/internal/domain"
	"github.com/ignite/outreach-tracker/internal/pkg/logger"
)

// Friend is a friend as listed to a user.
type Friend struct {
	ID              int64  `json:"id"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	CombineContacts bool   `json:"combine_contacts"`
}

// PendingRequest is an incoming request with the sender's details.
type PendingRequest struct {
	ID         int64  `json:"id"`
	FromUserID int64  `json:"from_user_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the user's friends with their sharing flag.
func (s *Service) List(ctx context.Context, userID int64) ([]Friend, error) {
	users, err := s.repo.ListFriends(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]Friend, 0, len(users))
	for _, u := range users {
		out = append(out, Friend{ID: u.ID, Email: u.Email, Name: u.FullName, CombineContacts: u.CombineContacts})
	}
	return out, nil
}

// PendingRequests lists requests waiting for userID to answer.
func (s *Service) PendingRequests(ctx context.Context, userID int64) ([]PendingRequest, error) {
	reqs, err := s.repo.ListPendingTo(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]PendingRequest, 0, len(reqs))
	for _, r := range reqs {
		sender, err := s.repo.GetUser(ctx, r.FromUserID)
		if errors.Is(err, domain.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, PendingRequest{ID: r.ID, FromUserID: r.FromUserID, Email: sender.Email, Name: sender.FullName})
	}
	return out, nil
}

// SendRequest invites the user with the given email.
func (s *Service) SendRequest(ctx context.Context, fromUserID int64, email string) (*domain.FriendRequest, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	to, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if to.ID == fromUserID {
		return nil, fmt.Errorf("cannot befriend yourself")
	}
	ok, err := s.repo.AreFriends(ctx, fromUserID, to.ID)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, domain.ErrAlreadyFriends
	}
	if _, err := s.repo.PendingRequest(ctx, fromUserID, to.ID); err == nil {
		return nil, domain.ErrRequestPending
	} else if !errors.Is(err, domain.ErrFriendRequestNotFound) {
		return nil, err
	}

	req, err := s.repo.CreateRequest(ctx, fromUserID, to.ID)
	if err != nil {
		return nil, fmt.Errorf("create friend request: %w", err)
	}
	logger.Info("friend request sent", "from_user_id", fromUserID, "to_user_id", to.ID)
	return req, nil
}

// Respond accepts or rejects the pending request fromUserID sent to userID.
// Accepting stores both directions of the friendship.
func (s *Service) Respond(ctx context.Context, userID, fromUserID int64, status string) error {
	st := domain.FriendRequestStatus(strings.ToLower(strings.TrimSpace(status)))
	if st != domain.FriendRequestAccepted && st != domain.FriendRequestRejected {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}
	req, err := s.repo.PendingRequest(ctx, fromUserID, userID)
	if err != nil {
		return err
	}
	if st == domain.FriendRequestAccepted {
		if err := s.repo.AddFriendship(ctx, userID, fromUserID); err != nil {
			return fmt.Errorf("add friendship: %w", err)
		}
	}
	if err := s.repo.SetRequestStatus(ctx, req.ID, st); err != nil {
		return fmt.Errorf("update friend request: %w", err)
	}
	logger.Info("friend request answered", "request_id", req.ID, "status", st)
	return nil
}

// Remove deletes the friendship in both directions.
func (s *Service) Remove(ctx context.Context, userID, friendID int64) error {
	ok, err := s.repo.AreFriends(ctx, userID, friendID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFriends
	}
	return s.repo.RemoveFriendship(ctx, userID, friendID)
}
