package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ignite/outreach-tracker/internal/domain"
	"github.com/ignite/outreach-tracker/internal/pkg/httputil"
	"github.com/ignite/outreach-tracker/internal/service/outreach"
)

const maxUploadBytes = 10 << 20

type transitionResponse struct {
	*outreach.TransitionResult
	SideEffectError string `json:"side_effect_error,omitempty"`
}

func writeTransition(w http.ResponseWriter, res *outreach.TransitionResult) {
	out := transitionResponse{TransitionResult: res}
	if res.SideEffect.Failed() {
		out.SideEffectError = res.SideEffect.Err.Error()
	}
	httputil.OK(w, out)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httputil.BadRequest(w, "invalid "+name)
		return 0, false
	}
	return id, true
}

// ListByStage returns the caller's records for a stage page, annotated
// with the friend who already sent to the same recipient.
//
//	GET /api/outreach/by-stage/{stage}
func (h *Handlers) ListByStage(w http.ResponseWriter, r *http.Request) {
	stage, err := domain.ParseStage(chi.URLParam(r, "stage"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	recs, err := h.outreach.ListByStage(r.Context(), userID(r), stage)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	annotated, err := h.sharing.Annotate(r.Context(), userID(r), recs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, annotated)
}

// SetStatus applies an explicit status change. thread_id is optional and
// only kept for sent statuses.
//
//	PUT /api/outreach/{id}/status  {"status": "...", "thread_id": "..."}
func (h *Handlers) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Status   string `json:"status"`
		ThreadID string `json:"thread_id"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	res, err := h.outreach.SetStatus(r.Context(), userID(r), id, body.Status, body.ThreadID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeTransition(w, res)
}

// POST /api/outreach/{id}/mark-sent  {"thread_id": "..."} (body optional)
func (h *Handlers) MarkSent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		ThreadID string `json:"thread_id"`
	}
	if !httputil.DecodeOptional(w, r, &body) {
		return
	}
	res, err := h.outreach.MarkSent(r.Context(), userID(r), id, body.ThreadID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeTransition(w, res)
}

// RegenerateLastchance drafts the last-chance email for a record.
//
//	POST /api/outreach/{id}/lastchance  {"template_id": 3}
func (h *Handlers) RegenerateLastchance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		TemplateID *int64 `json:"template_id"`
	}
	if !httputil.DecodeOptional(w, r, &body) {
		return
	}
	res, err := h.outreach.RegenerateLastchance(r.Context(), userID(r), id, body.TemplateID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeTransition(w, res)
}

// DELETE /api/outreach/{id}
func (h *Handlers) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.outreach.Delete(r.Context(), userID(r), id); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.NoContent(w)
}

// GenerateBatch drafts records from an uploaded contact CSV.
//
//	POST /api/outreach/generate  multipart: file, stage, template_id, avoid_duplicates
func (h *Handlers) GenerateBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.BadRequest(w, "invalid multipart form: "+err.Error())
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "file is required")
		return
	}
	defer file.Close()

	recipients, err := outreach.ParseContactsCSV(file)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	in := outreach.BatchInput{
		Recipients:      recipients,
		Stage:           domain.Stage(strings.TrimSpace(r.FormValue("stage"))),
		AvoidDuplicates: r.FormValue("avoid_duplicates") == "true",
	}
	if v := strings.TrimSpace(r.FormValue("template_id")); v != "" {
		tid, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httputil.BadRequest(w, "invalid template_id")
			return
		}
		in.TemplateID = &tid
	}

	res, err := h.outreach.GenerateBatch(r.Context(), userID(r), h.dedup, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Created(w, res)
}

// Dedup filters a candidate batch without generating anything.
//
//	POST /api/outreach/dedup  {"candidates": [...], "merge_friends": true}
func (h *Handlers) Dedup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Candidates []struct {
			Email string `json:"email"`
			Name  string `json:"name"`
			Stage string `json:"stage"`
		} `json:"candidates"`
		MergeFriends bool `json:"merge_friends"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	candidates := make([]domain.Candidate, 0, len(body.Candidates))
	for _, c := range body.Candidates {
		stage := domain.StageOutreach
		if c.Stage != "" {
			var err error
			if stage, err = domain.ParseStage(c.Stage); err != nil {
				writeServiceError(w, err)
				return
			}
		}
		candidates = append(candidates, domain.Candidate{
			Recipient: domain.Recipient{Email: c.Email, Name: c.Name},
			Stage:     stage,
		})
	}
	kept, err := h.dedup.Filter(r.Context(), userID(r), candidates, body.MergeFriends)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"candidates": kept,
		"removed":    len(candidates) - len(kept),
	})
}

// GET /api/templates
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	tmpls, err := h.outreach.ListTemplates(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if tmpls == nil {
		tmpls = []domain.Template{}
	}
	httputil.OK(w, tmpls)
}

// RunSweep triggers one follow-up sweep pass.
//
//	POST /api/admin/sweep
func (h *Handlers) RunSweep(w http.ResponseWriter, r *http.Request) {
	if h.sweeper == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "sweep not configured")
		return
	}
	report, err := h.sweeper.Run(r.Context(), h.now().UTC())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, report)
}
