package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/outreach-tracker/internal/domain"
)

// FriendRepo stores friendships and friend requests.
type FriendRepo struct{ db *sql.DB }

// NewFriendRepo creates a Postgres-backed friendship repository.
func NewFriendRepo(db *sql.DB) *FriendRepo { return &FriendRepo{db: db} }

func (r *FriendRepo) AreFriends(ctx context.Context, userID, friendID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM outreach_friendships WHERE user_id = $1 AND friend_id = $2)`,
		userID, friendID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check friendship: %w", err)
	}
	return ok, nil
}

func (r *FriendRepo) ListFriends(ctx context.Context, userID int64) ([]domain.User, error) {
	return r.friends(ctx, userID, false)
}

// SharingFriends returns the friends of userID with combine_contacts on.
func (r *FriendRepo) SharingFriends(ctx context.Context, userID int64) ([]domain.User, error) {
	return r.friends(ctx, userID, true)
}

func (r *FriendRepo) SharingFriendIDs(ctx context.Context, userID int64) ([]int64, error) {
	users, err := r.friends(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	return ids, nil
}

func (r *FriendRepo) friends(ctx context.Context, userID int64, sharingOnly bool) ([]domain.User, error) {
	q := `SELECT ` + userColumnsFor("u.") + `
		FROM outreach_friendships f
		JOIN outreach_users u ON u.id = f.friend_id
		WHERE f.user_id = $1`
	if sharingOnly {
		q += ` AND u.combine_contacts`
	}
	q += ` ORDER BY u.id`

	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("list friends: scan: %w", err)
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// AddFriendship inserts both directed edges in one transaction.
func (r *FriendRepo) AddFriendship(ctx context.Context, a, b int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, e := range [][2]int64{{a, b}, {b, a}} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO outreach_friendships (user_id, friend_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			e[0], e[1]); err != nil {
			return fmt.Errorf("insert friendship: %w", err)
		}
	}
	return tx.Commit()
}

func (r *FriendRepo) RemoveFriendship(ctx context.Context, a, b int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM outreach_friendships
		WHERE (user_id = $1 AND friend_id = $2) OR (user_id = $2 AND friend_id = $1)`, a, b)
	if err != nil {
		return fmt.Errorf("remove friendship: %w", err)
	}
	return nil
}

func (r *FriendRepo) CreateRequest(ctx context.Context, fromUserID, toUserID int64) (*domain.FriendRequest, error) {
	req := &domain.FriendRequest{FromUserID: fromUserID, ToUserID: toUserID, Status: domain.FriendRequestPending}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO outreach_friend_requests (from_user_id, to_user_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		fromUserID, toUserID, string(req.Status)).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create friend request: %w", err)
	}
	return req, nil
}

func (r *FriendRepo) PendingRequest(ctx context.Context, fromUserID, toUserID int64) (*domain.FriendRequest, error) {
	req := &domain.FriendRequest{}
	var status string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, from_user_id, to_user_id, status, created_at
		FROM outreach_friend_requests
		WHERE from_user_id = $1 AND to_user_id = $2 AND status = $3
		ORDER BY id LIMIT 1`,
		fromUserID, toUserID, string(domain.FriendRequestPending),
	).Scan(&req.ID, &req.FromUserID, &req.ToUserID, &status, &req.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrFriendRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get friend request: %w", err)
	}
	req.Status = domain.FriendRequestStatus(status)
	return req, nil
}

func (r *FriendRepo) ListPendingTo(ctx context.Context, userID int64) ([]domain.FriendRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, from_user_id, to_user_id, status, created_at
		FROM outreach_friend_requests
		WHERE to_user_id = $1 AND status = $2
		ORDER BY id`, userID, string(domain.FriendRequestPending))
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	defer rows.Close()

	var out []domain.FriendRequest
	for rows.Next() {
		var req domain.FriendRequest
		var status string
		if err := rows.Scan(&req.ID, &req.FromUserID, &req.ToUserID, &status, &req.CreatedAt); err != nil {
			return nil, err
		}
		req.Status = domain.FriendRequestStatus(status)
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *FriendRepo) SetRequestStatus(ctx context.Context, id int64, status domain.FriendRequestStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outreach_friend_requests SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("update friend request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrFriendRequestNotFound
	}
	return nil
}
