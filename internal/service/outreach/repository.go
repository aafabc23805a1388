package outreach

import (
	"context"

	"github.com/ignite/outreach-tracker/internal/domain"
)

// Repository defines the data access contract for outreach records.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a record owned by ownerID. Returns ErrNotFound if it
	// doesn't exist or belongs to someone else.
	Get(ctx context.Context, ownerID, id int64) (*domain.OutreachRecord, error)

	// ListByOwner returns all of the owner's records ordered by id.
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.OutreachRecord, error)

	// ListByStage returns the owner's records of one stage ordered by id.
	ListByStage(ctx context.Context, ownerID int64, stage domain.Stage) ([]domain.OutreachRecord, error)

	// Create inserts a record and returns its ID. Returns ErrChildExists when
	// a child for the same (origin record, stage) is already stored.
	Create(ctx context.Context, rec *domain.OutreachRecord) (int64, error)

	// UpdateStatus writes the lifecycle fields of rec (status, sent_at, due
	// dates, thread_id, shared_by_user_id, reminded_followup_at) if the stored version
	// still equals expectedVersion, and bumps the version. Returns
	// ErrConflict when the version moved and ErrNotFound when the row is gone.
	UpdateStatus(ctx context.Context, rec *domain.OutreachRecord, expectedVersion int64) error

	// Delete removes a record unconditionally. Children keep existing with
	// their origin reference cleared.
	Delete(ctx context.Context, ownerID, id int64) error

	// FindChild returns the child spawned from originID for stage, or nil
	// when there is none.
	FindChild(ctx context.Context, originID int64, stage domain.Stage) (*domain.OutreachRecord, error)
}

// UserStore resolves the owner of a record.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
}

// TemplateStore reads owner-scoped templates.
type TemplateStore interface {
	// GetTemplate returns ErrTemplateNotFound for a missing or foreign template.
	GetTemplate(ctx context.Context, ownerID, id int64) (*domain.Template, error)

	// DefaultTemplate returns the owner's default for a category, or nil
	// when none is marked default.
	DefaultTemplate(ctx context.Context, ownerID int64, category domain.Stage) (*domain.Template, error)

	ListTemplates(ctx context.Context, ownerID int64) ([]domain.Template, error)
}
