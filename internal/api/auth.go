package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/ignite/outreach-tracker/internal/pkg/httputil"
)

type ctxKey int

const userIDKey ctxKey = iota

// requireUser resolves the caller from the X-User-ID header. Identity is
// established upstream; this service only trusts the header.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
		if err != nil || id <= 0 {
			httputil.Unauthorized(w, "missing or invalid X-User-ID header")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
	})
}

func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}
