package cycle

import "hrreview/internal/platform/apperr"

var (
	ErrCycleNotFound     = apperr.New(apperr.KindNotFound, "cycle not found")
	ErrStatusNotFound    = apperr.New(apperr.KindNotFound, "cycle status not found")
	ErrNoCurrentCycle    = apperr.New(apperr.KindNotFound, "no active cycle covers the current date")
	ErrInvalidTransition = apperr.New(apperr.KindInvalidTransition, "invalid stage transition")
	ErrUnknownStage      = apperr.New(apperr.KindInvalidInput, "unknown stage")
	ErrCycleClosed       = apperr.New(apperr.KindInvalidTransition, "cycle is closed")
	ErrInvalidCycle      = apperr.New(apperr.KindInvalidInput, "invalid cycle")
	ErrInvalidPolicy     = apperr.New(apperr.KindInvalidInput, "invalid deadline policy")
	ErrNotAuthorized     = apperr.New(apperr.KindForbidden, "not allowed to act on this employee's cycle status")
	ErrStatusChanged     = apperr.New(apperr.KindConflict, "cycle status changed concurrently")
)
