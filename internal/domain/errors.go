package domain

import "errors"

// Sentinel errors shared by the outreach services. Validation errors abort an
// operation before anything is written; ErrCollaboratorFailure only ever
// describes a side effect and never fails the primary transition.
var (
	ErrInvalidStatus         = errors.New("invalid status")
	ErrInvalidStage          = errors.New("invalid stage")
	ErrNotFriends            = errors.New("users are not friends")
	ErrRecordNotFound        = errors.New("outreach record not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrIntervalConfigInvalid = errors.New("invalid interval settings")
	ErrCollaboratorFailure   = errors.New("collaborator failure")

	ErrAlreadySent = errors.New("outreach record already sent")
	ErrConflict    = errors.New("outreach record was modified concurrently")
	ErrChildExists = errors.New("child record already spawned for stage")

	ErrTemplateNotFound      = errors.New("template not found")
	ErrFriendRequestNotFound = errors.New("friend request not found")
	ErrAlreadyFriends        = errors.New("users are already friends")
	ErrRequestPending        = errors.New("friend request already pending")
)
