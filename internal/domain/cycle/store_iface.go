package cycle

import (
	"context"
	"errors"
	"time"
)

// errNoChange lets a StatusFunc abandon a mutation without failing it. The
// store rolls back and returns the status as read.
var errNoChange = errors.New("no change")

// StatusFunc mutates a locked status row. A row that did not exist yet is
// passed in as a fresh planning status.
type StatusFunc func(st *Status) error

type StoreAPI interface {
	CreateCycle(ctx context.Context, c Cycle) (Cycle, error)
	GetCycle(ctx context.Context, id string) (Cycle, error)
	ListCycles(ctx context.Context, filter Filter) ([]Cycle, error)
	CurrentCycle(ctx context.Context, now time.Time) (Cycle, error)
	// SetCycleStatus moves a cycle from one status to another and fails with
	// ErrStatusChanged when it is no longer in from.
	SetCycleStatus(ctx context.Context, id, from, to string) (Cycle, error)

	Enroll(ctx context.Context, cycleID string, employeeIDs []string) (int, error)
	GetStatus(ctx context.Context, cycleID, employeeID string) (Status, error)
	ListStatuses(ctx context.Context, cycleID string) ([]Status, error)
	History(ctx context.Context, employeeID string) ([]Status, error)
	MutateStatus(ctx context.Context, cycleID, employeeID string, fn StatusFunc) (Status, error)
	// SetOverdue stores the flag only while the row is still in stage.
	SetOverdue(ctx context.Context, id, stage string, overdue bool) (bool, error)
}
