package core

import "time"

const (
	CategoryTechnical  = "technical"
	CategoryBehavioral = "behavioral"
	CategoryLeadership = "leadership"
)

const (
	EmployeeStatusActive   = "active"
	EmployeeStatusInactive = "inactive"
)

const (
	AuthorizationActive   = "active"
	AuthorizationInactive = "inactive"
	AuthorizationRevoked  = "revoked"
)

func ValidCategory(category string) bool {
	switch category {
	case CategoryTechnical, CategoryBehavioral, CategoryLeadership:
		return true
	}
	return false
}

type Position struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Responsibilities string    `json:"responsibilities"`
	Requirements     string    `json:"requirements"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type Competency struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Employee is the catalog record evaluations snapshot from. PositionName is
// resolved on read.
type Employee struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId,omitempty"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	PositionID   string    `json:"positionId,omitempty"`
	PositionName string    `json:"positionName,omitempty"`
	Department   string    `json:"department"`
	ManagerID    string    `json:"managerId,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Authorization allows a leader (user id) to evaluate an employee.
type Authorization struct {
	ID           string     `json:"id"`
	LeaderID     string     `json:"leaderId"`
	EmployeeID   string     `json:"employeeId"`
	AuthorizedBy string     `json:"authorizedBy"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	RevokedAt    *time.Time `json:"revokedAt,omitempty"`
}

type EmployeeFilter struct {
	ManagerID  string
	PositionID string
	Department string
}

type AuthorizationFilter struct {
	LeaderID   string
	EmployeeID string
	Status     string
}
