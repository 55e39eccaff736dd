package handlers_test

import (
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type evaluationView struct {
	ID               string  `json:"id"`
	Status           string  `json:"status"`
	CompetencyCount  int     `json:"competencyCount"`
	PerformanceScore float64 `json:"performanceScore"`
	EmployeeName     string  `json:"employeeName"`
	Weights          []struct {
		CompetencyID string `json:"competencyId"`
		Weight       int    `json:"weight"`
	} `json:"weights"`
}

type statusView struct {
	CurrentStatus string `json:"currentStatus"`
	Progress      int    `json:"progress"`
}

func TestEvaluationAndCycleJourney(t *testing.T) {
	s := startServer(t)
	admin := s.adminToken(t)

	competencies := []string{
		s.create(t, "/api/v1/competencies", admin, map[string]string{"name": "Go", "category": "technical"}),
		s.create(t, "/api/v1/competencies", admin, map[string]string{"name": "Communication", "category": "behavioral"}),
		s.create(t, "/api/v1/competencies", admin, map[string]string{"name": "Mentoring", "category": "leadership"}),
	}
	positionID := s.create(t, "/api/v1/positions", admin, map[string]string{"name": "Engineer"})
	employeeID := s.create(t, "/api/v1/employees", admin, map[string]string{
		"code": "E-100", "name": "Ana Lima", "positionId": positionID, "department": "R&D",
	})

	leaderID := s.create(t, "/api/v1/users", admin, map[string]string{
		"email": "leader@test.local", "password": "Leader123!", "role": "leader",
	})
	s.create(t, "/api/v1/users", admin, map[string]string{
		"email": "ana@test.local", "password": "Employee123!", "role": "employee", "employeeId": employeeID,
	})
	s.create(t, "/api/v1/authorizations", admin, map[string]string{"leaderId": leaderID, "employeeId": employeeID})

	today := time.Now().UTC()
	cycleID := s.create(t, "/api/v1/cycles", admin, map[string]string{
		"name":      "H1",
		"type":      "semester",
		"startDate": today.AddDate(0, 0, -10).Format("2006-01-02"),
		"endDate":   today.AddDate(0, 0, 170).Format("2006-01-02"),
	})
	s.expect(t, http.StatusOK, http.MethodPut, "/api/v1/cycles/"+cycleID+"/status", admin, map[string]string{"status": "active"}, nil)
	var enrolled struct {
		Enrolled int `json:"enrolled"`
	}
	s.expect(t, http.StatusOK, http.MethodPost, "/api/v1/cycles/"+cycleID+"/enroll", admin,
		map[string][]string{"employeeIds": {employeeID}}, &enrolled)
	assert.Equal(t, 1, enrolled.Enrolled)

	leader := s.login(t, "leader@test.local", "Leader123!")
	employee := s.login(t, "ana@test.local", "Employee123!")

	var current idOnly
	s.expect(t, http.StatusOK, http.MethodGet, "/api/v1/cycles/current", employee, nil, &current)
	assert.Equal(t, cycleID, current.ID)

	var st statusView
	statusPath := "/api/v1/cycles/" + cycleID + "/employees/" + employeeID
	s.expect(t, http.StatusOK, http.MethodPost, statusPath+"/transition", employee, map[string]string{"status": "self-evaluation"}, &st)
	assert.Equal(t, "self-evaluation", st.CurrentStatus)
	assert.Equal(t, 33, st.Progress)
	s.expect(t, http.StatusOK, http.MethodPost, statusPath+"/transition", leader, map[string]string{"status": "leader-evaluation"}, &st)

	var ev evaluationView
	s.expect(t, http.StatusCreated, http.MethodPost, "/api/v1/evaluations", leader, map[string]string{
		"employeeId": employeeID, "period": "2024-H1", "cycleId": cycleID,
	}, &ev)
	assert.Equal(t, 3, ev.CompetencyCount)
	assert.Equal(t, "Ana Lima", ev.EmployeeName)
	evalPath := "/api/v1/evaluations/" + ev.ID

	weights := []int{50, 30, 20}
	scores := []float64{4, 3, 5}
	for i, id := range competencies {
		s.expect(t, http.StatusOK, http.MethodPut, evalPath+"/scores/"+id, leader, map[string]any{"score": scores[i]}, nil)
		s.expect(t, http.StatusOK, http.MethodPut, evalPath+"/weights/"+id, leader, map[string]any{"weight": weights[i]}, nil)
	}

	var report struct {
		Remaining int  `json:"remaining"`
		Ready     bool `json:"ready"`
	}
	s.expect(t, http.StatusOK, http.MethodGet, evalPath+"/validation", leader, nil, &report)
	assert.Equal(t, 0, report.Remaining)
	assert.True(t, report.Ready)

	s.expect(t, http.StatusOK, http.MethodPost, evalPath+"/submit", leader, nil, &ev)
	assert.Equal(t, "submitted", ev.Status)
	assert.InDelta(t, 1.3, ev.PerformanceScore, 1e-9)

	env := s.expect(t, http.StatusConflict, http.MethodPost, evalPath+"/submit", leader, nil, nil)
	assert.Equal(t, "already_locked", env.Error.Code)
	env = s.expect(t, http.StatusConflict, http.MethodPut, evalPath+"/weights/"+competencies[0], leader, map[string]any{"weight": 10}, nil)
	assert.Equal(t, "already_locked", env.Error.Code)

	var lock struct {
		Locked bool `json:"locked"`
	}
	s.expect(t, http.StatusOK, http.MethodGet, evalPath+"/lock", admin, nil, &lock)
	assert.True(t, lock.Locked)

	s.expect(t, http.StatusOK, http.MethodGet, statusPath+"/status", employee, nil, &st)
	assert.Equal(t, "feedback", st.CurrentStatus)

	s.create(t, evalPath+"/feedback", leader, map[string]string{"type": "strengths", "content": "Clear design docs"})
	s.create(t, evalPath+"/pdi", leader, map[string]string{"developmentArea": "Public speaking", "timeline": "Q3"})

	var summary struct {
		Total      int `json:"total"`
		InProgress int `json:"inProgress"`
	}
	s.expect(t, http.StatusOK, http.MethodGet, "/api/v1/cycles/"+cycleID+"/summary", admin, nil, &summary)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.InProgress)

	var history []statusView
	s.expect(t, http.StatusOK, http.MethodGet, "/api/v1/employees/"+employeeID+"/cycle-history", employee, nil, &history)
	require.Len(t, history, 1)

	req, err := http.NewRequest(http.MethodGet, s.ts.URL+evalPath+"/report", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+employee)
	resp, err := s.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	pdf, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))

	s.expect(t, http.StatusOK, http.MethodPost, evalPath+"/complete", leader, nil, &ev)
	assert.Equal(t, "completed", ev.Status)

	var events []struct {
		Action string `json:"action"`
	}
	s.expect(t, http.StatusOK, http.MethodGet, "/api/v1/audit?action=evaluation.submit", admin, nil, &events)
	require.Len(t, events, 1)
}

func TestPermissionsAcrossRoles(t *testing.T) {
	s := startServer(t)
	admin := s.adminToken(t)

	employeeID := s.create(t, "/api/v1/employees", admin, map[string]string{"code": "E-200", "name": "Bruno"})
	otherID := s.create(t, "/api/v1/employees", admin, map[string]string{"code": "E-201", "name": "Carla"})
	s.create(t, "/api/v1/users", admin, map[string]string{
		"email": "bruno@test.local", "password": "Employee123!", "role": "employee", "employeeId": employeeID,
	})
	s.create(t, "/api/v1/users", admin, map[string]string{
		"email": "lead@test.local", "password": "Leader123!", "role": "leader",
	})
	employee := s.login(t, "bruno@test.local", "Employee123!")
	leader := s.login(t, "lead@test.local", "Leader123!")

	today := time.Now().UTC()
	cycleID := s.create(t, "/api/v1/cycles", admin, map[string]string{
		"name": "H2", "type": "semester",
		"startDate": today.AddDate(0, 0, -1).Format("2006-01-02"),
		"endDate":   today.AddDate(0, 0, 30).Format("2006-01-02"),
	})

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
		code   string
	}{
		{"anonymous", http.MethodGet, "/api/v1/competencies", "", nil, http.StatusUnauthorized, "unauthenticated"},
		{"bad credentials", http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "bruno@test.local", "password": "nope"}, http.StatusUnauthorized, "unauthenticated"},
		{"employee manages catalog", http.MethodPost, "/api/v1/competencies", employee, map[string]string{"name": "X", "category": "technical"}, http.StatusForbidden, "forbidden"},
		{"leader creates cycle", http.MethodPost, "/api/v1/cycles", leader, map[string]string{"name": "Q", "type": "semester", "startDate": "2024-01-01", "endDate": "2024-06-30"}, http.StatusForbidden, "forbidden"},
		{"admin writes evaluation", http.MethodPost, "/api/v1/evaluations", admin, map[string]string{"employeeId": employeeID, "period": "p"}, http.StatusForbidden, "forbidden"},
		{"leader without authorization", http.MethodPost, "/api/v1/evaluations", leader, map[string]string{"employeeId": employeeID, "period": "p"}, http.StatusForbidden, "forbidden"},
		{"employee reads audit", http.MethodGet, "/api/v1/audit", employee, nil, http.StatusForbidden, "forbidden"},
		{"employee transitions someone else", http.MethodPost, "/api/v1/cycles/" + cycleID + "/employees/" + otherID + "/transition", employee, map[string]string{"status": "self-evaluation"}, http.StatusForbidden, "forbidden"},
		{"skipped stage", http.MethodPost, "/api/v1/cycles/" + cycleID + "/employees/" + employeeID + "/transition", employee, map[string]string{"status": "feedback"}, http.StatusConflict, "invalid_transition"},
		{"unknown evaluation", http.MethodGet, "/api/v1/evaluations/00000000-0000-0000-0000-000000000000", leader, nil, http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := s.do(t, tc.method, tc.path, tc.token, tc.body)
			require.Equal(t, tc.want, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestOperationalEndpoints(t *testing.T) {
	s := startServer(t)

	resp, err := s.ts.Client().Get(s.ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = s.ts.Client().Get(s.ts.URL + "/readyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	s.adminToken(t)
	resp, err = s.ts.Client().Get(s.ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `route="/api/v1/auth/login"`)
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}
