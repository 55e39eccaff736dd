package core

import "hrreview/internal/platform/apperr"

var (
	ErrPositionNotFound      = apperr.New(apperr.KindNotFound, "position not found")
	ErrCompetencyNotFound    = apperr.New(apperr.KindNotFound, "competency not found")
	ErrEmployeeNotFound      = apperr.New(apperr.KindNotFound, "employee not found")
	ErrAuthorizationNotFound = apperr.New(apperr.KindNotFound, "authorization not found")
	ErrCompetencyReferenced  = apperr.New(apperr.KindConflict, "competency is referenced by an evaluation")
	ErrPositionInUse         = apperr.New(apperr.KindConflict, "position is assigned to employees")
	ErrDuplicate             = apperr.New(apperr.KindConflict, "record already exists")
	ErrAuthorizationExists   = apperr.New(apperr.KindConflict, "an active authorization already exists for this pair")
	ErrNotAuthorized         = apperr.New(apperr.KindForbidden, "leader is not authorized to evaluate this employee")
)
