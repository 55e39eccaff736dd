package evaluation

import "hrreview/internal/platform/apperr"

var (
	ErrInvalidWeight        = apperr.New(apperr.KindInvalidWeight, "invalid weight")
	ErrInvalidScore         = apperr.New(apperr.KindInvalidScore, "score must be between 0 and 5")
	ErrIncompleteAllocation = apperr.New(apperr.KindIncompleteAllocation, "weights must total exactly 100")
	ErrMissingScore         = apperr.New(apperr.KindMissingScore, "every weighted competency needs a score above 0")
	ErrValidationFailed     = apperr.New(apperr.KindValidationFailed, "evaluation is not ready for submission")
	ErrAlreadyLocked        = apperr.New(apperr.KindAlreadyLocked, "evaluation is locked")
	ErrNotOwner             = apperr.New(apperr.KindNotOwner, "only the owning leader may change this evaluation")
	ErrNotFound             = apperr.New(apperr.KindNotFound, "evaluation not found")
	ErrCompetencyNotFound   = apperr.New(apperr.KindNotFound, "competency is not part of this evaluation")
	ErrPDINotFound          = apperr.New(apperr.KindNotFound, "pdi item not found")
	ErrNotAuthorized        = apperr.New(apperr.KindForbidden, "leader is not authorized to evaluate this employee")
	ErrNotSubmitted         = apperr.New(apperr.KindInvalidTransition, "only submitted evaluations can be completed")
	ErrEmptyCatalog         = apperr.New(apperr.KindInvalidInput, "the competency catalog is empty")
)
