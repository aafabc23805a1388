package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/ignite/outreach-tracker/internal/pkg/logger"
)

// MaxJSONBody caps the size of a decoded JSON request body. Uploads go
// through multipart parsing and are not subject to it.
const MaxJSONBody = 1 << 20

// ErrorResponse is the standard error envelope for all API errors. Code is
// a stable machine-readable identifier (for example "record_not_found")
// that clients can switch on; Error is the human-readable message and may
// change between releases.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// JSON writes data as a JSON response with the given status code and sets
// Content-Type. The header is already sent when encoding runs, so an encode
// failure can only be logged, not turned into a 500.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("json encode failed", "status", status, "error", err)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Created writes a 201 response. Used when an operation inserted records.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// NoContent writes a 204 response with no body.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes an error envelope without a code. Prefer ErrorWithCode for
// anything a client may need to branch on.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// ErrorWithCode writes an error envelope carrying a machine-readable code.
// Service errors are mapped to status and code in one place by the API
// layer and written through here.
func ErrorWithCode(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorResponse{Error: message, Code: code})
}

// BadRequest writes a 400 error for malformed input that never reached a
// service call.
func BadRequest(w http.ResponseWriter, message string) {
	ErrorWithCode(w, http.StatusBadRequest, "bad_request", message)
}

// Unauthorized writes a 401 error.
func Unauthorized(w http.ResponseWriter, message string) {
	ErrorWithCode(w, http.StatusUnauthorized, "unauthorized", message)
}

// InternalError writes a 500 error. The real error is logged; the client
// only ever sees a generic message so SQL text and hostnames stay server
// side.
func InternalError(w http.ResponseWriter, err error) {
	logger.Error("internal error", "error", err)
	ErrorWithCode(w, http.StatusInternalServerError, "internal", "internal server error")
}

// Decode reads a required JSON body into dst, limited to MaxJSONBody.
// Returns false and writes a 400 response if the body is missing,
// oversized or malformed.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decode(w, r, dst); err != nil {
		BadRequest(w, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// DecodeOptional is Decode for endpoints whose body may be omitted. An
// empty body leaves dst untouched and succeeds.
func DecodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	err := decode(w, r, dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	BadRequest(w, "invalid JSON: "+err.Error())
	return false
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return io.EOF
	}
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxJSONBody)).Decode(dst)
}
