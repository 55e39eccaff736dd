package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrreview/internal/platform/apperr"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestFailErrorMapsKinds(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"weight", apperr.New(apperr.KindInvalidWeight, "weight 15 exceeds available credit 10"), http.StatusUnprocessableEntity, "invalid_weight"},
		{"locked", apperr.New(apperr.KindAlreadyLocked, "evaluation is locked"), http.StatusConflict, "already_locked"},
		{"owner", apperr.New(apperr.KindNotOwner, "nope"), http.StatusForbidden, "not_owner"},
		{"missing", apperr.New(apperr.KindNotFound, "cycle not found"), http.StatusNotFound, "not_found"},
		{"transition", apperr.New(apperr.KindInvalidTransition, "bad"), http.StatusConflict, "invalid_transition"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			FailError(rec, tc.err, "req-1")
			assert.Equal(t, tc.status, rec.Code)
			env := decode(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, "req-1", env.RequestID)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestFailErrorReportsCause(t *testing.T) {
	inner := apperr.New(apperr.KindIncompleteAllocation, "weights must total exactly 100")
	rec := httptest.NewRecorder()
	FailError(rec, apperr.Wrap(apperr.KindValidationFailed, "evaluation is not ready for submission", inner), "req-2")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "validation_failed", env.Error.Code)
	cause, ok := env.Error.Details["cause"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "incomplete_allocation", cause["code"])
}

func TestFailErrorHidesInternalText(t *testing.T) {
	rec := httptest.NewRecorder()
	FailError(rec, errors.New("pq: connection refused at 10.0.0.3"), "req-3")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")

	rec = httptest.NewRecorder()
	FailError(rec, apperr.Unavailable(errors.New("dial tcp: timeout")), "req-4")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "dial tcp")
}
