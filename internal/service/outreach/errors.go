package outreach

import "github.com/ignite/outreach-tracker/internal/domain"

// Sentinel errors for the outreach service layer. They alias the domain
// sentinels so callers can match with errors.Is against either package.
var (
	ErrNotFound         = domain.ErrRecordNotFound
	ErrInvalidStatus    = domain.ErrInvalidStatus
	ErrInvalidStage     = domain.ErrInvalidStage
	ErrAlreadySent      = domain.ErrAlreadySent
	ErrConflict         = domain.ErrConflict
	ErrChildExists      = domain.ErrChildExists
	ErrTemplateNotFound = domain.ErrTemplateNotFound
)
