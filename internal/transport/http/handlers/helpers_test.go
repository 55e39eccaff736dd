package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hrreview/internal/app/server"
	"hrreview/internal/platform/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type testServer struct {
	app *server.App
	ts  *httptest.Server
	cfg config.Config
}

func testConfig(t *testing.T) config.Config {
	return config.Config{
		Addr:               ":0",
		Environment:        "test",
		StoreDriver:        config.DriverSQLite,
		SQLitePath:         filepath.Join(t.TempDir(), "hrreview.db"),
		JWTSecret:          "test-secret",
		JWTTTL:             time.Hour,
		SeedAdminEmail:     "admin@test.local",
		SeedAdminPassword:  "ChangeMe123!",
		RunSeed:            true,
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
		MetricsEnabled:     true,
	}
}

func startServer(t *testing.T) *testServer {
	t.Helper()
	cfg := testConfig(t)
	app, err := server.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)
	return &testServer{app: app, ts: ts, cfg: cfg}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

// expect performs the request, requires the status and decodes data into out.
func (s *testServer) expect(t *testing.T, want int, method, path, token string, body, out any) envelope {
	t.Helper()
	status, env := s.do(t, method, path, token, body)
	require.Equalf(t, want, status, "%s %s: %+v", method, path, env.Error)
	if out != nil {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	var out struct {
		Token string `json:"token"`
	}
	s.expect(t, http.StatusOK, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": password}, &out)
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (s *testServer) adminToken(t *testing.T) string {
	return s.login(t, s.cfg.SeedAdminEmail, s.cfg.SeedAdminPassword)
}

type idOnly struct {
	ID string `json:"id"`
}

func (s *testServer) create(t *testing.T, path, token string, body any) string {
	t.Helper()
	var out idOnly
	s.expect(t, http.StatusCreated, http.MethodPost, path, token, body, &out)
	require.NotEmpty(t, out.ID)
	return out.ID
}
