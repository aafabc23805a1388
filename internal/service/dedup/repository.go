package dedup

import "context"

// Repository is the read-only view of history the engine needs.
type Repository interface {
	// OwnerEmails returns the recipient emails of every record owned by
	// userID, in any status.
	OwnerEmails(ctx context.Context, userID int64) ([]string, error)

	// SharingFriendIDs returns the friends of userID whose CombineContacts
	// flag is on.
	SharingFriendIDs(ctx context.Context, userID int64) ([]int64, error)

	// SentEmails returns the recipient emails of directly-sent records
	// owned by any of ownerIDs.
	SentEmails(ctx context.Context, ownerIDs []int64) ([]string, error)
}
