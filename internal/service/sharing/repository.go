package sharing

import (
	"context"

	"github.com/ignite/outreach-tracker/internal/domain"
)

// Repository is the data access the propagator needs.
type Repository interface {
	AreFriends(ctx context.Context, userID, friendID int64) (bool, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)

	// SharingFriends returns the friends of userID with CombineContacts on.
	SharingFriends(ctx context.Context, userID int64) ([]domain.User, error)

	// ListByOwner returns the owner's records ordered by id.
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.OutreachRecord, error)

	// ListDirectlySent returns directly-sent records of the given owners
	// ordered by id.
	ListDirectlySent(ctx context.Context, ownerIDs []int64) ([]domain.OutreachRecord, error)

	// ListByOwners returns every record of the given owners ordered by id.
	ListByOwners(ctx context.Context, ownerIDs []int64) ([]domain.OutreachRecord, error)

	// ApplySharing sets userID's combine_contacts flag and writes each
	// record against its Version in one transaction. Records whose version
	// moved are skipped and counted in conflicts. Any other error means
	// nothing was written.
	ApplySharing(ctx context.Context, userID int64, enabled bool, recs []domain.OutreachRecord) (applied []domain.OutreachRecord, conflicts int, err error)
}
