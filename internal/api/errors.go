package api

import (
	"errors"
	"net/http"

	"github.com/ignite/outreach-tracker/internal/domain"
	"github.com/ignite/outreach-tracker/internal/pkg/httputil"
)

// writeServiceError maps service errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidStatus),
		errors.Is(err, domain.ErrInvalidStage),
		errors.Is(err, domain.ErrIntervalConfigInvalid),
		errors.Is(err, domain.ErrAlreadyFriends),
		errors.Is(err, domain.ErrRequestPending):
		httputil.ErrorWithCode(w, http.StatusBadRequest, errorCode(err), err.Error())
	case errors.Is(err, domain.ErrRecordNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrNotFriends),
		errors.Is(err, domain.ErrTemplateNotFound),
		errors.Is(err, domain.ErrFriendRequestNotFound):
		httputil.ErrorWithCode(w, http.StatusNotFound, errorCode(err), err.Error())
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrAlreadySent),
		errors.Is(err, domain.ErrChildExists):
		httputil.ErrorWithCode(w, http.StatusConflict, errorCode(err), err.Error())
	case errors.Is(err, domain.ErrCollaboratorFailure):
		httputil.ErrorWithCode(w, http.StatusBadGateway, "collaborator_failure", err.Error())
	default:
		httputil.InternalError(w, err)
	}
}

var errorCodes = map[error]string{
	domain.ErrInvalidStatus:         "invalid_status",
	domain.ErrInvalidStage:          "invalid_stage",
	domain.ErrIntervalConfigInvalid: "interval_config_invalid",
	domain.ErrAlreadyFriends:        "already_friends",
	domain.ErrRequestPending:        "request_pending",
	domain.ErrRecordNotFound:        "record_not_found",
	domain.ErrUserNotFound:          "user_not_found",
	domain.ErrNotFriends:            "not_friends",
	domain.ErrTemplateNotFound:      "template_not_found",
	domain.ErrFriendRequestNotFound: "friend_request_not_found",
	domain.ErrConflict:              "conflict",
	domain.ErrAlreadySent:           "already_sent",
	domain.ErrChildExists:           "child_exists",
}

func errorCode(err error) string {
	for sentinel, code := range errorCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return ""
}
