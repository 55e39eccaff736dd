package cycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrreview/internal/platform/apperr"
)

func TestProgressPerStage(t *testing.T) {
	cases := map[string]int{
		StagePlanning:         17,
		StageSelfEvaluation:   33,
		StageLeaderEvaluation: 50,
		StageFeedback:         67,
		StagePDI:              83,
		StageCompleted:        100,
		"unknown":             0,
	}
	for stage, want := range cases {
		t.Run(stage, func(t *testing.T) {
			assert.Equal(t, want, Progress(stage))
		})
	}
}

func TestSuccessorTableIsLinear(t *testing.T) {
	for i, stage := range Stages[:len(Stages)-1] {
		next, ok := Successor(stage)
		require.True(t, ok)
		assert.Equal(t, Stages[i+1], next)
	}
	_, ok := Successor(StageCompleted)
	assert.False(t, ok)
}

func TestAdvanceStampsEntryDatesOnce(t *testing.T) {
	st := newStatus("c", "e")
	t1 := time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(48 * time.Hour)

	require.NoError(t, st.Advance(StageSelfEvaluation, t1))
	require.NotNil(t, st.SelfEvaluationDate)
	assert.Equal(t, t1, *st.SelfEvaluationDate)

	require.NoError(t, st.Advance(StageLeaderEvaluation, t2))
	assert.Equal(t, t1, *st.SelfEvaluationDate)
	require.NotNil(t, st.LeaderEvaluationDate)
	assert.Equal(t, t2, *st.LeaderEvaluationDate)
	assert.Equal(t, 50, st.Progress)

	preset := t1.Add(-time.Hour)
	st.FeedbackDate = &preset
	require.NoError(t, st.Advance(StageFeedback, t2))
	assert.Equal(t, preset, *st.FeedbackDate)
}

func TestAdvanceRejectsSkipsAndBackwardMoves(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name   string
		from   string
		target string
		kind   apperr.Kind
	}{
		{"skip", StagePlanning, StageLeaderEvaluation, apperr.KindInvalidTransition},
		{"backward", StageFeedback, StageSelfEvaluation, apperr.KindInvalidTransition},
		{"same stage", StagePDI, StagePDI, apperr.KindInvalidTransition},
		{"after completed", StageCompleted, StagePlanning, apperr.KindInvalidTransition},
		{"unknown", StagePlanning, "review", apperr.KindInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := newStatus("c", "e")
			st.CurrentStatus = tc.from
			err := st.Advance(tc.target, now)
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperr.KindOf(err))
			assert.Equal(t, tc.from, st.CurrentStatus)
		})
	}
}

func TestProgressNeverDecreasesAlongTheChain(t *testing.T) {
	st := newStatus("c", "e")
	last := st.Progress
	now := time.Now()
	for _, stage := range Stages[1:] {
		require.NoError(t, st.Advance(stage, now))
		assert.Greater(t, st.Progress, last)
		last = st.Progress
	}
	assert.Equal(t, 100, last)
}

func TestProgressSummary(t *testing.T) {
	t.Run("mixed stages", func(t *testing.T) {
		var statuses []Status
		for _, stage := range []string{StageCompleted, StageFeedback, StageLeaderEvaluation, StageSelfEvaluation, StagePlanning} {
			statuses = append(statuses, Status{CurrentStatus: stage})
		}
		statuses[1].IsOverdue = true

		summary := buildProgressSummary("c1", statuses)
		assert.Equal(t, ProgressSummary{
			CycleID: "c1", Total: 5, Completed: 1, InProgress: 3, Pending: 1, Overdue: 1, PercentageCompleted: 20,
		}, summary)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, ProgressSummary{CycleID: "c1"}, buildProgressSummary("c1", nil))
	})

	t.Run("rounds half up", func(t *testing.T) {
		statuses := []Status{{CurrentStatus: StageCompleted}, {CurrentStatus: StagePDI}, {CurrentStatus: StagePDI}}
		assert.Equal(t, 33, buildProgressSummary("c1", statuses).PercentageCompleted)
		statuses = append(statuses[:1], Status{CurrentStatus: StageCompleted}, Status{CurrentStatus: StagePDI})
		assert.Equal(t, 67, buildProgressSummary("c1", statuses).PercentageCompleted)
	})
}
