package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"hrreview/internal/app/server"
	"hrreview/internal/domain/auth"
	"hrreview/internal/domain/cycle"
	"hrreview/internal/platform/config"
)

func sqliteConfig(path string) Loader {
	return func() config.Config {
		return config.Config{
			Environment:        "test",
			StoreDriver:        config.DriverSQLite,
			SQLitePath:         path,
			JWTSecret:          "cli-secret",
			JWTTTL:             time.Hour,
			MaxBodyBytes:       1048576,
			RateLimitPerMinute: 100,
		}
	}
}

func run(t *testing.T, load Loader, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(load)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPolicyCheckDefaultWindow(t *testing.T) {
	out, err := run(t, sqliteConfig(""), "policy-check", "--start", "2024-01-01", "--end", "2024-06-30")
	require.NoError(t, err)

	var rows []stageDeadline
	require.NoError(t, yaml.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, len(cycle.Stages))
	assert.Equal(t, stageDeadline{Stage: cycle.StagePlanning, Deadline: "2024-02-06"}, rows[0])
	assert.Equal(t, stageDeadline{Stage: cycle.StagePDI, Deadline: "2024-06-30"}, rows[4])
	assert.Equal(t, stageDeadline{Stage: cycle.StageCompleted}, rows[5])
}

func TestPolicyCheckFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stages:\n  planning:\n    anchor: start\n    offsetDays: 3\n"), 0o600))

	out, err := run(t, sqliteConfig(""), "policy-check", path, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"deadline": "2024-01-04"`)

	_, err = run(t, sqliteConfig(""), "policy-check", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	_, err = run(t, sqliteConfig(""), "policy-check", "--start", "2024-06-30", "--end", "2024-01-01")
	assert.Error(t, err)
}

func TestCycleSummaryAndSweep(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	load := sqliteConfig(dbPath)

	app, err := server.New(context.Background(), load())
	require.NoError(t, err)
	admin := auth.SystemActor()
	c, err := app.Services.Cycles.CreateCycle(context.Background(), admin, cycle.CycleInput{
		Name:      "H1",
		Type:      cycle.TypeSemester,
		StartDate: time.Now().UTC().AddDate(0, 0, -5),
		EndDate:   time.Now().UTC().AddDate(0, 0, 60),
	})
	require.NoError(t, err)
	app.Close()

	out, err := run(t, load, "cycle-summary", c.ID, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"total": 0`)

	out, err = run(t, load, "sweep-overdue")
	require.NoError(t, err)
	assert.Contains(t, out, "checked: 0")

	_, err = run(t, load, "cycle-summary", "no-such-cycle")
	assert.Error(t, err)
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := run(t, sqliteConfig(""), "policy-check", "-o", "xml")
	assert.Error(t, err)
}
