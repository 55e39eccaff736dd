package evaluation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrreview/internal/platform/apperr"
)

func template(n int) WeightSet {
	rows := make([]CompetencyWeight, n)
	for i := range rows {
		rows[i] = CompetencyWeight{CompetencyID: fmt.Sprintf("c%d", i+1), CompetencyName: fmt.Sprintf("Competency %d", i+1)}
	}
	return NewTemplate(rows)
}

func fill(t *testing.T, ws *WeightSet, weights []int, scores []float64) {
	t.Helper()
	for i := range weights {
		id := fmt.Sprintf("c%d", i+1)
		_, err := ws.SetScore(id, scores[i], nil)
		require.NoError(t, err)
		_, err = ws.SetWeight(id, weights[i])
		require.NoError(t, err)
	}
}

func TestPerformanceScoreDividesByTemplateSize(t *testing.T) {
	ws := template(6)
	fill(t, &ws, []int{20, 30, 25, 15, 10, 0}, []float64{5, 4, 3, 4, 5, 0})

	assert.Equal(t, 100, ws.Total())
	assert.InDelta(t, 0.675, ws.RawPerformanceScore(), 1e-9)
	assert.Equal(t, 0.7, ws.PerformanceScore())
	assert.NoError(t, ws.ValidateForSubmission())

	item, ok := ws.Item("c4")
	require.True(t, ok)
	assert.InDelta(t, 0.6, item.WeightedScore, 1e-9)
}

func TestWeightAboveAvailableCreditRejected(t *testing.T) {
	ws := template(3)
	fill(t, &ws, []int{60, 30, 0}, []float64{3, 3, 3})
	require.Equal(t, 10, ws.AvailableCredit("c3"))

	before := ws.Items()
	_, err := ws.SetWeight("c3", 15)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidWeight)
	assert.Equal(t, before, ws.Items())

	_, err = ws.SetWeight("c3", -1)
	assert.ErrorIs(t, err, ErrInvalidWeight)

	_, err = ws.SetWeight("c3", 10)
	require.NoError(t, err)
	assert.Equal(t, 100, ws.Total())
	assert.Equal(t, 0, ws.Remaining())
}

func TestSubmissionRequiresFullAllocationAndScores(t *testing.T) {
	incomplete := template(3)
	fill(t, &incomplete, []int{50, 40, 0}, []float64{3, 3, 0})
	err := incomplete.ValidateForSubmission()
	assert.ErrorIs(t, err, ErrIncompleteAllocation)
	assert.Equal(t, apperr.KindIncompleteAllocation, apperr.KindOf(err))

	missing := template(3)
	fill(t, &missing, []int{50, 50, 0}, []float64{3, 0, 0})
	err = missing.ValidateForSubmission()
	assert.ErrorIs(t, err, ErrMissingScore)
	assert.Contains(t, err.Error(), "Competency 2")
}

func TestZeroWeightCompetenciesAreExempt(t *testing.T) {
	ws := template(4)
	fill(t, &ws, []int{100, 0, 0, 0}, []float64{4, 0, 2.5, 0})
	assert.NoError(t, ws.ValidateForSubmission())
	assert.Equal(t, 1.0, ws.PerformanceScore())
}

func TestSetWeightIsIdempotent(t *testing.T) {
	ws := template(3)
	fill(t, &ws, []int{40, 30, 0}, []float64{4, 2, 0})

	first, err := ws.SetWeight("c3", 30)
	require.NoError(t, err)
	snapshot := ws.Items()
	second, err := ws.SetWeight("c3", 30)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, ws.Items())
}

func TestSetScoreBounds(t *testing.T) {
	ws := template(2)
	for _, score := range []float64{-0.1, 5.01, math.NaN(), math.Inf(1)} {
		_, err := ws.SetScore("c1", score, nil)
		assert.ErrorIs(t, err, ErrInvalidScore, "score %v", score)
	}

	comment := "  solid work "
	item, err := ws.SetScore("c1", 4.26, &comment)
	require.NoError(t, err)
	assert.Equal(t, 4.3, item.Score)
	assert.Equal(t, "solid work", item.Comments)

	_, err = ws.SetScore("nope", 3, nil)
	assert.ErrorIs(t, err, ErrCompetencyNotFound)
}

func TestPerformanceScoreIsLinear(t *testing.T) {
	ws := template(5)
	fill(t, &ws, []int{20, 20, 20, 20, 20}, []float64{3, 3, 3, 3, 3})
	base := ws.RawPerformanceScore()

	_, err := ws.SetScore("c2", 4, nil)
	require.NoError(t, err)

	// One point on a 20% weight moves the score by 0.2 / N.
	assert.InDelta(t, 0.2/5, ws.RawPerformanceScore()-base, 1e-9)
}

func TestPerformanceScoreStaysInRange(t *testing.T) {
	ws := template(3)
	fill(t, &ws, []int{50, 25, 25}, []float64{5, 5, 5})
	assert.InDelta(t, 5.0/3, ws.RawPerformanceScore(), 1e-9)
	assert.Equal(t, 1.7, ws.PerformanceScore())

	empty := WeightSet{}
	assert.Equal(t, 0.0, empty.PerformanceScore())
	assert.Equal(t, 0.0, empty.RawPerformanceScore())
}

func TestRandomUpdatesNeverExceedTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ws := template(8)

	for i := 0; i < 5000; i++ {
		id := fmt.Sprintf("c%d", rng.Intn(8)+1)
		weight := rng.Intn(140) - 20
		before := ws.Total()
		_, err := ws.SetWeight(id, weight)
		if err != nil {
			require.True(t, errors.Is(err, ErrInvalidWeight))
			require.Equal(t, before, ws.Total())
		}
		require.LessOrEqual(t, ws.Total(), TotalWeight)
		require.GreaterOrEqual(t, ws.Total(), 0)
	}
}

func TestValidateIffCompleteAndScored(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		items := make([]CompetencyWeight, 4)
		remaining := TotalWeight
		for j := range items {
			w := 0
			if remaining > 0 {
				w = rng.Intn(remaining + 1)
			}
			if j == len(items)-1 && rng.Intn(2) == 0 {
				w = remaining
			}
			remaining -= w
			items[j] = CompetencyWeight{CompetencyID: fmt.Sprintf("c%d", j), Weight: w, Score: float64(rng.Intn(3))}
		}

		expected := TotalOf(items) == TotalWeight
		for _, item := range items {
			if item.Weight > 0 && item.Score <= 0 {
				expected = false
			}
		}
		assert.Equal(t, expected, ValidateForSubmission(items) == nil)
	}
}

func TestNewWeightSetRejectsBrokenRows(t *testing.T) {
	_, err := NewWeightSet(2, []CompetencyWeight{{CompetencyID: "a", Weight: 70}, {CompetencyID: "b", Weight: 40}})
	assert.ErrorIs(t, err, ErrInvalidWeight)

	_, err = NewWeightSet(2, []CompetencyWeight{{CompetencyID: "a"}, {CompetencyID: "a"}})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))

	ws, err := NewWeightSet(6, []CompetencyWeight{{CompetencyID: "a", Weight: 100, Score: 3}})
	require.NoError(t, err)
	assert.Equal(t, 6, ws.TemplateSize())
	assert.Equal(t, 0.5, ws.PerformanceScore())
}

func TestEvaluationJSONKeepsTemplateSize(t *testing.T) {
	ws, err := NewWeightSet(8, template(6).Items())
	require.NoError(t, err)
	fill(t, &ws, []int{20, 30, 25, 15, 10, 0}, []float64{5, 4, 3, 4, 5, 0})
	ev := Evaluation{ID: "ev-1", Status: StatusDraft, CompetencyCount: 8, Weights: ws}

	raw, err := json.Marshal(ev)
	require.NoError(t, err)

	var got Evaluation
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "ev-1", got.ID)
	assert.Equal(t, 8, got.Weights.TemplateSize())
	assert.Equal(t, 6, got.Weights.Len())
	assert.Equal(t, ws.PerformanceScore(), got.Weights.PerformanceScore())
	assert.InDelta(t, ws.RawPerformanceScore(), got.Weights.RawPerformanceScore(), 1e-9)
}
