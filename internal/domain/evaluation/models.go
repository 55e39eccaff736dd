package evaluation

import (
	"encoding/json"
	"time"
)

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusCompleted = "completed"
)

const LockReasonSubmitted = "submitted"

const (
	FeedbackStrengths        = "strengths"
	FeedbackImprovements     = "improvements"
	FeedbackDevelopmentAreas = "development-areas"
	FeedbackGeneral          = "general"
)

const (
	PDIPlanned    = "planned"
	PDIInProgress = "in-progress"
	PDICompleted  = "completed"
	PDIPostponed  = "postponed"
)

func validFeedbackType(t string) bool {
	switch t {
	case FeedbackStrengths, FeedbackImprovements, FeedbackDevelopmentAreas, FeedbackGeneral:
		return true
	}
	return false
}

func validPDIStatus(s string) bool {
	switch s {
	case PDIPlanned, PDIInProgress, PDICompleted, PDIPostponed:
		return true
	}
	return false
}

// EmployeeSnapshot is copied from the employee record when the evaluation
// is created and never re-synced.
type EmployeeSnapshot struct {
	EmployeeName string `json:"employeeName"`
	EmployeeCode string `json:"employeeCode"`
	PositionName string `json:"positionName"`
	Department   string `json:"department"`
}

type Evaluation struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employeeId"`
	LeaderID   string `json:"leaderId"`
	CycleID    string `json:"cycleId,omitempty"`
	Period     string `json:"period"`
	Status     string `json:"status"`
	EmployeeSnapshot
	CompetencyCount  int        `json:"competencyCount"`
	Weights          WeightSet  `json:"weights"`
	PerformanceScore float64    `json:"performanceScore"`
	Comments         string     `json:"comments"`
	SubmittedAt      *time.Time `json:"submittedAt,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// UnmarshalJSON rebuilds the weight pool against competencyCount so the
// score divisor survives a round trip.
func (e *Evaluation) UnmarshalJSON(data []byte) error {
	type plain Evaluation
	var raw struct {
		plain
		Weights []CompetencyWeight `json:"weights"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	weights, err := NewWeightSet(raw.CompetencyCount, raw.Weights)
	if err != nil {
		return err
	}
	*e = Evaluation(raw.plain)
	e.Weights = weights
	return nil
}

// Header is an evaluation without its weight rows, used by listings.
type Header struct {
	ID         string `json:"id"`
	EmployeeID string `json:"employeeId"`
	LeaderID   string `json:"leaderId"`
	CycleID    string `json:"cycleId,omitempty"`
	Period     string `json:"period"`
	Status     string `json:"status"`
	EmployeeSnapshot
	CompetencyCount  int        `json:"competencyCount"`
	PerformanceScore float64    `json:"performanceScore"`
	SubmittedAt      *time.Time `json:"submittedAt,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (e Evaluation) Header() Header {
	return Header{
		ID:               e.ID,
		EmployeeID:       e.EmployeeID,
		LeaderID:         e.LeaderID,
		CycleID:          e.CycleID,
		Period:           e.Period,
		Status:           e.Status,
		EmployeeSnapshot: e.EmployeeSnapshot,
		CompetencyCount:  e.CompetencyCount,
		PerformanceScore: e.PerformanceScore,
		SubmittedAt:      e.SubmittedAt,
		CompletedAt:      e.CompletedAt,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// Editable reports whether weights, scores and comments may still change.
func (e Evaluation) Editable(locked bool) bool {
	return e.Status == StatusDraft && !locked
}

type Lock struct {
	ID           string    `json:"id"`
	EvaluationID string    `json:"evaluationId"`
	LockedBy     string    `json:"lockedBy"`
	Reason       string    `json:"reason"`
	CanUnlock    bool      `json:"canUnlock"`
	LockedAt     time.Time `json:"lockedAt"`
}

type Feedback struct {
	ID           string    `json:"id"`
	EvaluationID string    `json:"evaluationId"`
	AuthorID     string    `json:"authorId"`
	Type         string    `json:"type"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"createdAt"`
}

type PDIItem struct {
	ID              string    `json:"id"`
	EvaluationID    string    `json:"evaluationId"`
	DevelopmentArea string    `json:"developmentArea"`
	Actions         string    `json:"actions"`
	Timeline        string    `json:"timeline"`
	Responsible     string    `json:"responsible"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type ListFilter struct {
	EmployeeID string
	LeaderID   string
	CycleID    string
	Status     string
	Period     string
}
