package evaluation

import (
	"encoding/json"
	"math"
	"strings"

	"hrreview/internal/platform/apperr"
)

const (
	TotalWeight = 100
	MaxScore    = 5.0
)

// CompetencyWeight is one row of an evaluation's weight pool.
type CompetencyWeight struct {
	CompetencyID   string  `json:"competencyId"`
	CompetencyName string  `json:"competencyName"`
	Category       string  `json:"category"`
	Position       int     `json:"position"`
	Weight         int     `json:"weight"`
	Score          float64 `json:"score"`
	WeightedScore  float64 `json:"weightedScore"`
	Comments       string  `json:"comments"`
}

// WeightSet is the weight pool owned by one evaluation. SetWeight and
// SetScore are the only mutators; the total never exceeds TotalWeight.
type WeightSet struct {
	templateSize int
	items        []CompetencyWeight
}

// NewWeightSet rebuilds a pool from stored rows. templateSize is N, the
// number of catalog competencies when the evaluation was created.
func NewWeightSet(templateSize int, items []CompetencyWeight) (WeightSet, error) {
	if templateSize < len(items) {
		templateSize = len(items)
	}
	seen := make(map[string]struct{}, len(items))
	total := 0
	out := make([]CompetencyWeight, len(items))
	for i, item := range items {
		if _, dup := seen[item.CompetencyID]; dup {
			return WeightSet{}, apperr.Newf(apperr.KindInvalidInput, "competency %s appears twice", item.CompetencyID)
		}
		seen[item.CompetencyID] = struct{}{}
		if item.Weight < 0 || item.Weight > TotalWeight {
			return WeightSet{}, ErrInvalidWeight.WithMessage("weight %d for %s is outside 0-100", item.Weight, item.CompetencyName)
		}
		if !validScore(item.Score) {
			return WeightSet{}, ErrInvalidScore
		}
		total += item.Weight
		item.WeightedScore = WeightedScore(item.Score, item.Weight)
		out[i] = item
	}
	if total > TotalWeight {
		return WeightSet{}, ErrInvalidWeight.WithMessage("weights total %d exceeds %d", total, TotalWeight)
	}
	return WeightSet{templateSize: templateSize, items: out}, nil
}

// NewTemplate builds a zeroed pool with one row per competency.
func NewTemplate(rows []CompetencyWeight) WeightSet {
	items := make([]CompetencyWeight, len(rows))
	for i, row := range rows {
		row.Position = i
		row.Weight = 0
		row.Score = 0
		row.WeightedScore = 0
		items[i] = row
	}
	return WeightSet{templateSize: len(items), items: items}
}

func (w WeightSet) TemplateSize() int {
	return w.templateSize
}

func (w WeightSet) Len() int {
	return len(w.items)
}

// Items returns a copy of the rows in template order.
func (w WeightSet) Items() []CompetencyWeight {
	out := make([]CompetencyWeight, len(w.items))
	copy(out, w.items)
	return out
}

func (w WeightSet) Item(competencyID string) (CompetencyWeight, bool) {
	i := w.index(competencyID)
	if i < 0 {
		return CompetencyWeight{}, false
	}
	return w.items[i], true
}

func (w WeightSet) index(competencyID string) int {
	for i := range w.items {
		if w.items[i].CompetencyID == competencyID {
			return i
		}
	}
	return -1
}

func (w WeightSet) Total() int {
	return TotalOf(w.items)
}

func (w WeightSet) Remaining() int {
	return TotalWeight - w.Total()
}

// AvailableCredit is what competencyID may hold: 100 minus every other weight.
func (w WeightSet) AvailableCredit(competencyID string) int {
	return AvailableCredit(w.items, competencyID)
}

// SetWeight replaces one competency's weight and recomputes its weighted
// score from the last known score. On error the set is unchanged.
func (w *WeightSet) SetWeight(competencyID string, weight int) (CompetencyWeight, error) {
	i := w.index(competencyID)
	if i < 0 {
		return CompetencyWeight{}, ErrCompetencyNotFound
	}
	if weight < 0 {
		return CompetencyWeight{}, ErrInvalidWeight.WithMessage("weight must not be negative")
	}
	if available := w.AvailableCredit(competencyID); weight > available {
		return CompetencyWeight{}, ErrInvalidWeight.WithMessage("weight %d exceeds available credit %d", weight, available)
	}
	w.items[i].Weight = weight
	w.items[i].WeightedScore = WeightedScore(w.items[i].Score, weight)
	return w.items[i], nil
}

// SetScore records a score (rounded to one decimal) and optionally replaces
// the comments. Zero-weight competencies may carry scores.
func (w *WeightSet) SetScore(competencyID string, score float64, comments *string) (CompetencyWeight, error) {
	i := w.index(competencyID)
	if i < 0 {
		return CompetencyWeight{}, ErrCompetencyNotFound
	}
	if !validScore(score) {
		return CompetencyWeight{}, ErrInvalidScore.WithMessage("score %v is outside 0-5", score)
	}
	score = RoundTenth(score)
	w.items[i].Score = score
	w.items[i].WeightedScore = WeightedScore(score, w.items[i].Weight)
	if comments != nil {
		w.items[i].Comments = strings.TrimSpace(*comments)
	}
	return w.items[i], nil
}

// RawPerformanceScore is the unrounded performance score.
func (w WeightSet) RawPerformanceScore() float64 {
	return ComputePerformanceScore(w.items, w.templateSize)
}

// PerformanceScore is the score as reported and stored, to one decimal.
func (w WeightSet) PerformanceScore() float64 {
	return ReportedPerformanceScore(w.items, w.templateSize)
}

func (w WeightSet) ValidateForSubmission() error {
	return ValidateForSubmission(w.items)
}

func (w WeightSet) MarshalJSON() ([]byte, error) {
	if w.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(w.items)
}

func validScore(score float64) bool {
	return !math.IsNaN(score) && score >= 0 && score <= MaxScore
}

func RoundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func WeightedScore(score float64, weight int) float64 {
	return score * float64(weight) / TotalWeight
}

func TotalOf(items []CompetencyWeight) int {
	total := 0
	for _, item := range items {
		total += item.Weight
	}
	return total
}

func AvailableCredit(items []CompetencyWeight, competencyID string) int {
	others := 0
	for _, item := range items {
		if item.CompetencyID != competencyID {
			others += item.Weight
		}
	}
	return TotalWeight - others
}

// ComputePerformanceScore is (Σ score × weight / 100) / n, where n is the
// template size and not the number of weighted competencies.
func ComputePerformanceScore(items []CompetencyWeight, n int) float64 {
	if n <= 0 {
		return 0
	}
	sum := 0.0
	for _, item := range items {
		sum += WeightedScore(item.Score, item.Weight)
	}
	return sum / float64(n)
}

// ReportedPerformanceScore rounds the performance score half up to one
// decimal. Scores carry one decimal, so the sum is exact in integer tenths.
func ReportedPerformanceScore(items []CompetencyWeight, n int) float64 {
	if n <= 0 {
		return 0
	}
	var sum int64
	for _, item := range items {
		sum += int64(math.Round(item.Score*10)) * int64(item.Weight)
	}
	denom := int64(TotalWeight) * int64(n)
	tenths := (2*sum + denom) / (2 * denom)
	return float64(tenths) / 10
}

// ValidateForSubmission requires a total of exactly 100 and a positive score
// on every competency that carries weight.
func ValidateForSubmission(items []CompetencyWeight) error {
	if total := TotalOf(items); total != TotalWeight {
		return ErrIncompleteAllocation.WithMessage("weights total %d, expected %d", total, TotalWeight)
	}
	var missing []string
	for _, item := range items {
		if item.Weight > 0 && item.Score <= 0 {
			missing = append(missing, item.CompetencyName)
		}
	}
	if len(missing) > 0 {
		return ErrMissingScore.WithMessage("missing scores for: %s", strings.Join(missing, ", "))
	}
	return nil
}
