package evaluation

import "context"

// Change tells the store what a mutation touched besides the header row.
type Change struct {
	Weights []string
	Lock    *Lock
}

// MutateFunc edits ev in place. locked reports whether a lock row exists.
// Returning an error rolls the transaction back.
type MutateFunc func(ev *Evaluation, locked bool) (Change, error)

type StoreAPI interface {
	Create(ctx context.Context, ev Evaluation) (Evaluation, error)
	Get(ctx context.Context, id string) (Evaluation, error)
	List(ctx context.Context, filter ListFilter) ([]Evaluation, error)
	// Mutate loads the evaluation under a row lock, applies fn and persists
	// the header, the changed weight rows and an optional lock atomically.
	// A concurrent lock insert surfaces as ErrAlreadyLocked.
	Mutate(ctx context.Context, id string, fn MutateFunc) (Evaluation, error)
	GetLock(ctx context.Context, evaluationID string) (*Lock, error)

	AddFeedback(ctx context.Context, f Feedback) (Feedback, error)
	ListFeedback(ctx context.Context, evaluationID string) ([]Feedback, error)
	AddPDI(ctx context.Context, item PDIItem) (PDIItem, error)
	GetPDI(ctx context.Context, evaluationID, id string) (PDIItem, error)
	UpdatePDI(ctx context.Context, item PDIItem) (PDIItem, error)
	ListPDI(ctx context.Context, evaluationID string) ([]PDIItem, error)
}
