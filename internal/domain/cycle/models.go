package cycle

import "time"

const (
	TypeBimonthly = "bimonthly"
	TypeSemester  = "semester"
)

const (
	CyclePlanning  = "planning"
	CycleActive    = "active"
	CycleCompleted = "completed"
	CycleArchived  = "archived"
)

var cycleStatusOrder = []string{CyclePlanning, CycleActive, CycleCompleted, CycleArchived}

func ValidType(t string) bool {
	return t == TypeBimonthly || t == TypeSemester
}

func cycleStatusIndex(status string) int {
	for i, s := range cycleStatusOrder {
		if s == status {
			return i
		}
	}
	return -1
}

func ValidCycleStatus(status string) bool {
	return cycleStatusIndex(status) >= 0
}

type Cycle struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	ParentCycleID string    `json:"parentCycleId,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Closed cycles accept no transitions, enrollments or evaluations.
func (c Cycle) Closed() bool {
	return c.Status == CycleCompleted || c.Status == CycleArchived
}

// Contains reports whether t falls inside the cycle window, bounds included.
func (c Cycle) Contains(t time.Time) bool {
	return !t.Before(c.StartDate) && !t.After(c.EndDate)
}

// Status is one employee's position in a cycle. Stage dates are set once
// when the stage is entered and never cleared.
type Status struct {
	ID                   string     `json:"id"`
	CycleID              string     `json:"cycleId"`
	EmployeeID           string     `json:"employeeId"`
	CurrentStatus        string     `json:"currentStatus"`
	SelfEvaluationDate   *time.Time `json:"selfEvaluationDate,omitempty"`
	LeaderEvaluationDate *time.Time `json:"leaderEvaluationDate,omitempty"`
	FeedbackDate         *time.Time `json:"feedbackDate,omitempty"`
	PDIDate              *time.Time `json:"pdiDate,omitempty"`
	CompletionDate       *time.Time `json:"completionDate,omitempty"`
	IsOverdue            bool       `json:"isOverdue"`
	Progress             int        `json:"progress"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

type ProgressSummary struct {
	CycleID             string `json:"cycleId"`
	Total               int    `json:"total"`
	Completed           int    `json:"completed"`
	InProgress          int    `json:"inProgress"`
	Pending             int    `json:"pending"`
	Overdue             int    `json:"overdue"`
	PercentageCompleted int    `json:"percentageCompleted"`
}

type Filter struct {
	Status string
	Type   string
}

type SweepResult struct {
	Cycles  int `json:"cycles"`
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Overdue int `json:"overdue"`
}
