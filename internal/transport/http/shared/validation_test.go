package shared

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transitionPayload struct {
	Status string `json:"status" validate:"required,stage"`
	Note   string `json:"note" validate:"omitempty,notblank,max=10"`
}

func TestValidateStructUsesJSONNames(t *testing.T) {
	issues := ValidateStruct(transitionPayload{Status: "review", Note: "   "})
	require.Len(t, issues, 2)
	assert.Equal(t, "note", issues[0].Field)
	assert.Equal(t, "status", issues[1].Field)
	assert.Contains(t, issues[1].Reason, "self-evaluation")

	assert.Empty(t, ValidateStruct(transitionPayload{Status: "feedback"}))
}

func TestDecodeJSON(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		ok     bool
		status int
	}{
		{"valid", `{"status":"pdi"}`, true, http.StatusOK},
		{"empty", ``, false, http.StatusBadRequest},
		{"malformed", `{"status":`, false, http.StatusBadRequest},
		{"unknown field", `{"status":"pdi","extra":1}`, false, http.StatusBadRequest},
		{"invalid stage", `{"status":"done"}`, false, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tc.body))
			var payload transitionPayload
			ok := DecodeJSON(rec, req, &payload, "req-1")
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestFailValidationEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	v := NewValidator()
	v.Enum("status", "done", []string{"active", "completed"})
	v.Date("from", "yesterday")
	require.True(t, v.Reject(rec, "req-9"))

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []ValidationIssue `json:"fields"`
			} `json:"details"`
		} `json:"error"`
		RequestID string `json:"requestId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", body.Error.Code)
	assert.Equal(t, "req-9", body.RequestID)
	require.Len(t, body.Error.Details.Fields, 2)
	assert.Equal(t, "from", body.Error.Details.Fields[0].Field)
}

func TestPageFrom(t *testing.T) {
	v := NewValidator()
	req := httptest.NewRequest(http.MethodGet, "/?limit=900&offset=20", nil)
	assert.Equal(t, Page{Limit: 500, Offset: 20}, PageFrom(req, v, 100, 500))
	assert.False(t, v.HasIssues())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, Page{Limit: 100}, PageFrom(req, v, 100, 500))

	req = httptest.NewRequest(http.MethodGet, "/?limit=0&offset=x", nil)
	assert.Equal(t, Page{Limit: 100}, PageFrom(req, v, 100, 500))
	assert.Equal(t, []ValidationIssue{
		{Field: "limit", Reason: "must be a positive integer"},
		{Field: "offset", Reason: "must be zero or a positive integer"},
	}, v.Issues())
}

func TestValidatorDate(t *testing.T) {
	v := NewValidator()
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), v.Date("start", "2024-03-01"))
	assert.True(t, v.Date("end", "").IsZero())
	assert.False(t, v.HasIssues())

	v.Date("end", "03/01/2024")
	assert.True(t, v.HasIssues())
}
