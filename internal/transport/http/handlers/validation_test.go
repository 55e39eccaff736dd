package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldNames(t *testing.T, env envelope) []string {
	t.Helper()
	require.NotNil(t, env.Error)
	require.Equal(t, "validation_error", env.Error.Code)
	raw, ok := env.Error.Details["fields"].([]any)
	require.True(t, ok)
	names := make([]string, 0, len(raw))
	for _, item := range raw {
		names = append(names, item.(map[string]any)["field"].(string))
	}
	return names
}

func TestPayloadValidationErrors(t *testing.T) {
	s := startServer(t)
	admin := s.adminToken(t)

	cases := []struct {
		name   string
		path   string
		body   any
		fields []string
	}{
		{"competency category", "/api/v1/competencies", map[string]string{"name": "Go", "category": "magic"}, []string{"category"}},
		{"blank position", "/api/v1/positions", map[string]string{"name": "   "}, []string{"name"}},
		{"cycle type and dates", "/api/v1/cycles", map[string]string{"name": "Q", "type": "weekly", "startDate": "2024-13-01", "endDate": "x"}, []string{"type"}},
		{"bad cycle dates", "/api/v1/cycles", map[string]string{"name": "Q", "type": "semester", "startDate": "2024-13-01", "endDate": "x"}, []string{"endDate", "startDate"}},
		{"empty enroll", "/api/v1/cycles/c1/enroll", map[string]any{"employeeIds": []string{}}, []string{"employeeIds"}},
		{"user role", "/api/v1/users", map[string]string{"email": "x@test.local", "password": "Password1", "role": "owner"}, []string{"role"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := s.do(t, http.MethodPost, tc.path, admin, tc.body)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tc.fields, fieldNames(t, env))
		})
	}
}

func TestDomainRuleErrors(t *testing.T) {
	s := startServer(t)
	admin := s.adminToken(t)

	status, env := s.do(t, http.MethodPost, "/api/v1/cycles", admin, map[string]string{
		"name": "Backwards", "type": "semester", "startDate": "2024-06-30", "endDate": "2024-01-01",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", env.Error.Code)

	status, env = s.do(t, http.MethodPost, "/api/v1/cycles", admin, map[string]string{"name": "Q", "type": "semester"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.ElementsMatch(t, []string{"startDate", "endDate"}, fieldNames(t, env))

	status, env = s.do(t, http.MethodPost, "/api/v1/competencies", admin, map[string]any{"name": "Go", "category": "technical", "extra": true})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", env.Error.Code)
}
