package cycle

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrreview/internal/platform/apperr"
)

func testCycle() Cycle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return Cycle{ID: "c1", StartDate: start, EndDate: start.AddDate(0, 0, 50), Status: CycleActive}
}

func TestWindowPolicySplitsWindow(t *testing.T) {
	c := testCycle()
	var p WindowPolicy

	d, ok := p.Deadline(c, StagePlanning)
	require.True(t, ok)
	assert.Equal(t, c.StartDate.AddDate(0, 0, 10), d)

	d, ok = p.Deadline(c, StagePDI)
	require.True(t, ok)
	assert.Equal(t, c.EndDate, d)

	_, ok = p.Deadline(c, StageCompleted)
	assert.False(t, ok)
}

func TestIsOverdue(t *testing.T) {
	c := testCycle()
	policy := WindowPolicy{}
	deadline, _ := policy.Deadline(c, StageSelfEvaluation)

	st := Status{CurrentStatus: StageSelfEvaluation}
	assert.False(t, IsOverdue(c, st, deadline, policy))
	assert.True(t, IsOverdue(c, st, deadline.Add(time.Second), policy))

	st.CurrentStatus = StageLeaderEvaluation
	assert.False(t, IsOverdue(c, st, deadline.Add(time.Second), policy))

	st.CurrentStatus = StageCompleted
	assert.False(t, IsOverdue(c, st, c.EndDate.AddDate(1, 0, 0), policy))
}

func TestParsePolicy(t *testing.T) {
	policy, err := ParsePolicy([]byte(`
stages:
  planning:
    offsetDays: 3
  pdi:
    anchor: end
    offsetDays: -2
`))
	require.NoError(t, err)
	c := testCycle()

	d, ok := policy.Deadline(c, StagePlanning)
	require.True(t, ok)
	assert.Equal(t, c.StartDate.AddDate(0, 0, 3), d)

	d, ok = policy.Deadline(c, StagePDI)
	require.True(t, ok)
	assert.Equal(t, c.EndDate.AddDate(0, 0, -2), d)

	fallback, _ := WindowPolicy{}.Deadline(c, StageFeedback)
	d, ok = policy.Deadline(c, StageFeedback)
	require.True(t, ok)
	assert.Equal(t, fallback, d)
}

func TestParsePolicyRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":         "  ",
		"unknown stage": "stages:\n  review:\n    offsetDays: 1\n",
		"completed":     "stages:\n  completed:\n    offsetDays: 1\n",
		"bad anchor":    "stages:\n  pdi:\n    anchor: middle\n",
		"not yaml":      "stages: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(raw))
			require.Error(t, err)
			assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.IsType(t, WindowPolicy{}, p)

	path := filepath.Join(t.TempDir(), "deadlines.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stages:\n  feedback:\n    anchor: end\n    offsetDays: -5\n"), 0o600))
	p, err = LoadPolicy(path)
	require.NoError(t, err)
	d, ok := p.Deadline(testCycle(), StageFeedback)
	require.True(t, ok)
	assert.Equal(t, testCycle().EndDate.AddDate(0, 0, -5), d)

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
