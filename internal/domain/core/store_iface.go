package core

import (
	"context"
	"time"
)

type StoreAPI interface {
	ListPositions(ctx context.Context) ([]Position, error)
	GetPosition(ctx context.Context, id string) (Position, error)
	CreatePosition(ctx context.Context, p Position) (Position, error)
	UpdatePosition(ctx context.Context, p Position) (Position, error)
	// DeletePosition refuses with ErrPositionInUse while an employee holds it.
	DeletePosition(ctx context.Context, id string) error

	ListCompetencies(ctx context.Context) ([]Competency, error)
	GetCompetency(ctx context.Context, id string) (Competency, error)
	CreateCompetency(ctx context.Context, c Competency) (Competency, error)
	// UpdateCompetency and DeleteCompetency refuse with
	// ErrCompetencyReferenced once an evaluation uses the competency.
	UpdateCompetency(ctx context.Context, c Competency) (Competency, error)
	DeleteCompetency(ctx context.Context, id string) error

	ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, error)
	GetEmployee(ctx context.Context, id string) (Employee, error)
	CreateEmployee(ctx context.Context, e Employee) (Employee, error)
	UpdateEmployee(ctx context.Context, e Employee) (Employee, error)

	ListAuthorizations(ctx context.Context, filter AuthorizationFilter) ([]Authorization, error)
	CreateAuthorization(ctx context.Context, a Authorization) (Authorization, error)
	RevokeAuthorization(ctx context.Context, id string, at time.Time) (Authorization, error)
	ActiveAuthorization(ctx context.Context, leaderID, employeeID string) (bool, error)
}
