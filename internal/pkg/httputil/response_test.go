package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type threadBody struct {
	ThreadID string `json:"thread_id"`
}

func TestDecodeOptional(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		ok     bool
		thread string
	}{
		{"empty", "", true, ""},
		{"present", `{"thread_id":"18c2"}`, true, "18c2"},
		{"malformed", `{bad`, false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var dst threadBody
			assert.Equal(t, tc.ok, DecodeOptional(rec, req, &dst))
			assert.Equal(t, tc.thread, dst.ThreadID)
			if !tc.ok {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestDecode_RequiresBodyAndCapsSize(t *testing.T) {
	rec := httptest.NewRecorder()
	var dst threadBody
	assert.False(t, Decode(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	big := `{"thread_id":"` + strings.Repeat("x", MaxJSONBody) + `"}`
	rec = httptest.NewRecorder()
	assert.False(t, Decode(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big)), &dst))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInternalError_HidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	InternalError(rec, errors.New("pq: relation outreach_records does not exist"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var got ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "internal", got.Code)
	assert.NotContains(t, got.Error, "outreach_records")
}
