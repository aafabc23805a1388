package outreach

import (
	"context"

	"github.com/ignite/outreach-tracker/internal/domain"
)

// ContentProvider drafts the subject and body of one email.
type ContentProvider interface {
	Generate(ctx context.Context, req domain.DraftRequest) (domain.Content, error)
}

// ReplyOracle reports whether the recipient of rec has replied. Callers
// treat an error the same as false.
type ReplyOracle interface {
	HasReplied(ctx context.Context, owner *domain.User, rec *domain.OutreachRecord) (bool, error)
}

// Notifier delivers a plain-text notification to a record owner.
type Notifier interface {
	Notify(ctx context.Context, to, subject, body string) error
}
