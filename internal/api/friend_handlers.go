package api

import (
	"net/http"

	"github.com/ignite/outreach-tracker/internal/pkg/httputil"
	"github.com/ignite/outreach-tracker/internal/service/friends"
	"github.com/ignite/outreach-tracker/internal/service/sharing"
)

// GET /api/friends
func (h *Handlers) ListFriends(w http.ResponseWriter, r *http.Request) {
	list, err := h.friends.List(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []friends.Friend{}
	}
	httputil.OK(w, list)
}

// GET /api/friends/requests
func (h *Handlers) ListFriendRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.friends.PendingRequests(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if reqs == nil {
		reqs = []friends.PendingRequest{}
	}
	httputil.OK(w, reqs)
}

// POST /api/friends/requests  {"email": "..."}
func (h *Handlers) SendFriendRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	if body.Email == "" {
		httputil.BadRequest(w, "email is required")
		return
	}
	req, err := h.friends.SendRequest(r.Context(), userID(r), body.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Created(w, req)
}

// POST /api/friends/requests/{fromUserID}/respond  {"status": "accepted"|"rejected"}
func (h *Handlers) RespondFriendRequest(w http.ResponseWriter, r *http.Request) {
	from, ok := pathID(w, r, "fromUserID")
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	if err := h.friends.Respond(r.Context(), userID(r), from, body.Status); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"message": "Friend request " + body.Status})
}

// SetSharing toggles contact sharing with a friend and reconciles records.
//
//	POST /api/friends/{id}/share  {"share_enabled": true}
func (h *Handlers) SetSharing(w http.ResponseWriter, r *http.Request) {
	friendID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		ShareEnabled bool `json:"share_enabled"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	res, err := h.sharing.SetSharing(r.Context(), userID(r), friendID, body.ShareEnabled)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, res)
}

// DELETE /api/friends/{id}
func (h *Handlers) RemoveFriend(w http.ResponseWriter, r *http.Request) {
	friendID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.friends.Remove(r.Context(), userID(r), friendID); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.NoContent(w)
}

// GET /api/friends/shared-emails
func (h *Handlers) SharedEmails(w http.ResponseWriter, r *http.Request) {
	recs, err := h.sharing.SharedEmails(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if recs == nil {
		recs = []sharing.AnnotatedRecord{}
	}
	httputil.OK(w, recs)
}

// GET /api/settings/intervals
func (h *Handlers) GetIntervals(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Intervals(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, s)
}

// POST /api/settings/intervals  {"followup_days": 3, "lastchance_days": 6}
func (h *Handlers) UpdateIntervals(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FollowupDays   int `json:"followup_days"`
		LastchanceDays int `json:"lastchance_days"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	s, err := h.settings.UpdateIntervals(r.Context(), userID(r), body.FollowupDays, body.LastchanceDays)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, s)
}
