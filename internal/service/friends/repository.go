package friends

import (
	"context"

	"github.com/ignite/outreach-tracker/internal/domain"
)

// Repository defines the data access contract for friendships.
type Repository interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	// GetUserByEmail matches case-insensitively. Returns domain.ErrUserNotFound.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	AreFriends(ctx context.Context, userID, friendID int64) (bool, error)
	// ListFriends returns the users befriended by userID ordered by id.
	ListFriends(ctx context.Context, userID int64) ([]domain.User, error)
	// AddFriendship stores both directed edges atomically.
	AddFriendship(ctx context.Context, a, b int64) error
	// RemoveFriendship deletes both directed edges.
	RemoveFriendship(ctx context.Context, a, b int64) error

	CreateRequest(ctx context.Context, fromUserID, toUserID int64) (*domain.FriendRequest, error)
	// PendingRequest returns the pending request from → to, or
	// domain.ErrFriendRequestNotFound.
	PendingRequest(ctx context.Context, fromUserID, toUserID int64) (*domain.FriendRequest, error)
	// ListPendingTo returns pending requests addressed to userID.
	ListPendingTo(ctx context.Context, userID int64) ([]domain.FriendRequest, error)
	SetRequestStatus(ctx context.Context, id int64, status domain.FriendRequestStatus) error
}
