package evaluation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"hrreview/internal/domain/audit"
	"hrreview/internal/domain/auth"
	"hrreview/internal/domain/core"
	"hrreview/internal/platform/apperr"
	"hrreview/internal/platform/metrics"
)

// Directory is the read side of the core catalog the engine depends on.
type Directory interface {
	Employee(ctx context.Context, id string) (core.Employee, error)
	Competencies(ctx context.Context) ([]core.Competency, error)
	ActiveAuthorization(ctx context.Context, leaderID, employeeID string) (bool, error)
}

// CycleChecker confirms a cycle exists and accepts new evaluations.
type CycleChecker interface {
	CheckCycle(ctx context.Context, cycleID string) error
}

// SubmissionListener is told about committed submissions. Its failures are
// logged and never undo the submission.
type SubmissionListener interface {
	EvaluationSubmitted(ctx context.Context, ev Evaluation) error
}

type Service struct {
	Store     StoreAPI
	Directory Directory
	Cycles    CycleChecker
	Listener  SubmissionListener
	Audit     audit.Recorder
	Metrics   *metrics.Collector
	Now       func() time.Time
}

func NewService(store StoreAPI, directory Directory, recorder audit.Recorder) *Service {
	return &Service{Store: store, Directory: directory, Audit: recorder, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func canView(actor auth.Actor, ev Evaluation) bool {
	switch {
	case actor.IsAdmin():
		return true
	case actor.IsLeader():
		return ev.LeaderID == actor.UserID
	case actor.IsEmployee():
		return actor.Owns(ev.EmployeeID)
	}
	return false
}

// requireDraftOwner is the gate shared by every weight pool mutation.
func requireDraftOwner(actor auth.Actor, ev *Evaluation, locked bool) error {
	if ev.LeaderID != actor.UserID {
		return ErrNotOwner
	}
	if !ev.Editable(locked) {
		return ErrAlreadyLocked.WithMessage("evaluation is %s and can no longer change", ev.Status)
	}
	return nil
}

type CreateInput struct {
	EmployeeID string `json:"employeeId" validate:"required,uuid"`
	Period     string `json:"period" validate:"required,notblank,max=40"`
	CycleID    string `json:"cycleId" validate:"omitempty,uuid"`
	Comments   string `json:"comments" validate:"max=4000"`
}

// Create starts a draft evaluation. Every catalog competency becomes a zero
// weight row and the catalog size is fixed as the template size.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (Evaluation, error) {
	if err := actor.Require(auth.PermEvaluationsWrite); err != nil {
		return Evaluation{}, err
	}
	period := strings.TrimSpace(in.Period)
	if period == "" {
		return Evaluation{}, apperr.New(apperr.KindInvalidInput, "period is required")
	}

	employee, err := s.Directory.Employee(ctx, in.EmployeeID)
	if err != nil {
		return Evaluation{}, err
	}
	if actor.Owns(employee.ID) {
		return Evaluation{}, ErrNotAuthorized.WithMessage("leaders cannot evaluate themselves")
	}
	ok, err := s.Directory.ActiveAuthorization(ctx, actor.UserID, employee.ID)
	if err != nil {
		return Evaluation{}, err
	}
	if !ok {
		return Evaluation{}, ErrNotAuthorized
	}
	cycleID := strings.TrimSpace(in.CycleID)
	if cycleID != "" && s.Cycles != nil {
		if err := s.Cycles.CheckCycle(ctx, cycleID); err != nil {
			return Evaluation{}, err
		}
	}

	catalog, err := s.Directory.Competencies(ctx)
	if err != nil {
		return Evaluation{}, err
	}
	if len(catalog) == 0 {
		return Evaluation{}, ErrEmptyCatalog
	}
	rows := make([]CompetencyWeight, len(catalog))
	for i, c := range catalog {
		rows[i] = CompetencyWeight{CompetencyID: c.ID, CompetencyName: c.Name, Category: c.Category}
	}
	weights := NewTemplate(rows)

	created, err := s.Store.Create(ctx, Evaluation{
		EmployeeID: employee.ID,
		LeaderID:   actor.UserID,
		CycleID:    cycleID,
		Period:     period,
		Status:     StatusDraft,
		EmployeeSnapshot: EmployeeSnapshot{
			EmployeeName: employee.Name,
			EmployeeCode: employee.Code,
			PositionName: employee.PositionName,
			Department:   employee.Department,
		},
		CompetencyCount: weights.TemplateSize(),
		Weights:         weights,
		Comments:        strings.TrimSpace(in.Comments),
	})
	if err != nil {
		return Evaluation{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionEvaluationCreate, EntityType: "evaluation", EntityID: created.ID,
		After: map[string]any{"employeeId": created.EmployeeID, "period": created.Period, "competencyCount": created.CompetencyCount},
	})
	return created, nil
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (Evaluation, error) {
	if err := actor.Require(auth.PermEvaluationsRead); err != nil {
		return Evaluation{}, err
	}
	ev, err := s.Store.Get(ctx, id)
	if err != nil {
		return Evaluation{}, err
	}
	if !canView(actor, ev) {
		return Evaluation{}, auth.ErrForbidden.WithMessage("evaluation %s is not visible to this user", id)
	}
	return ev, nil
}

// List scopes the filter to what the actor may see: leaders their own
// evaluations, employees evaluations about them.
func (s *Service) List(ctx context.Context, actor auth.Actor, filter ListFilter) ([]Header, error) {
	if err := actor.Require(auth.PermEvaluationsRead); err != nil {
		return nil, err
	}
	switch {
	case actor.IsAdmin():
	case actor.IsLeader():
		filter.LeaderID = actor.UserID
	default:
		if actor.EmployeeID == "" {
			return nil, nil
		}
		filter.EmployeeID = actor.EmployeeID
	}
	evaluations, err := s.Store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	headers := make([]Header, 0, len(evaluations))
	for _, ev := range evaluations {
		headers = append(headers, ev.Header())
	}
	return headers, nil
}

func (s *Service) SetWeight(ctx context.Context, actor auth.Actor, id, competencyID string, weight int) (Evaluation, error) {
	if err := actor.Require(auth.PermEvaluationsWrite); err != nil {
		return Evaluation{}, err
	}
	var before, after CompetencyWeight
	ev, err := s.Store.Mutate(ctx, id, func(ev *Evaluation, locked bool) (Change, error) {
		if err := requireDraftOwner(actor, ev, locked); err != nil {
			return Change{}, err
		}
		prev, ok := ev.Weights.Item(competencyID)
		if !ok {
			return Change{}, ErrCompetencyNotFound
		}
		next, err := ev.Weights.SetWeight(competencyID, weight)
		if err != nil {
			return Change{}, err
		}
		before, after = prev, next
		ev.PerformanceScore = ev.Weights.PerformanceScore()
		return Change{Weights: []string{competencyID}}, nil
	})
	if err != nil {
		return Evaluation{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionWeightUpdate, EntityType: "evaluation", EntityID: id,
		Before: map[string]any{"competencyId": competencyID, "weight": before.Weight},
		After:  map[string]any{"competencyId": competencyID, "weight": after.Weight, "total": ev.Weights.Total()},
	})
	return ev, nil
}

type ScoreInput struct {
	Score    *float64 `json:"score" validate:"required"`
	Comments *string  `json:"comments" validate:"omitempty,max=4000"`
}

func (s *Service) SetScore(ctx context.Context, actor auth.Actor, id, competencyID string, score float64, comments *string) (Evaluation, error) {
	if err := actor.Require(auth.PermEvaluationsWrite); err != nil {
		return Evaluation{}, err
	}
	var before, after CompetencyWeight
	ev, err := s.Store.Mutate(ctx, id, func(ev *Evaluation, locked bool) (Change, error) {
		if err := requireDraftOwner(actor, ev, locked); err != nil {
			return Change{}, err
		}
		prev, ok := ev.Weights.Item(competencyID)
		if !ok {
			return Change{}, ErrCompetencyNotFound
		}
		next, err := ev.Weights.SetScore(competencyID, score, comments)
		if err != nil {
			return Change{}, err
		}
		before, after = prev, next
		ev.PerformanceScore = ev.Weights.PerformanceScore()
		return Change{Weights: []string{competencyID}}, nil
	})
	if err != nil {
		return Evaluation{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionScoreUpdate, EntityType: "evaluation", EntityID: id,
		Before: map[string]any{"competencyId": competencyID, "score": before.Score, "comments": before.Comments},
		After:  map[string]any{"competencyId": competencyID, "score": after.Score, "comments": after.Comments},
	})
	return ev, nil
}

func (s *Service) SetComments(ctx context.Context, actor auth.Actor, id, comments string) (Evaluation, error) {
	if err := actor.Require(auth.PermEvaluationsWrite); err != nil {
		return Evaluation{}, err
	}
	var before string
	ev, err := s.Store.Mutate(ctx, id, func(ev *Evaluation, locked bool) (Change, error) {
		if err := requireDraftOwner(actor, ev, locked); err != nil {
			return Change{}, err
		}
		before = ev.Comments
		ev.Comments = strings.TrimSpace(comments)
		return Change{}, nil
	})
	if err != nil {
		return Evaluation{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionEvaluationComments, EntityType: "evaluation", EntityID: id,
		Before: map[string]any{"comments": before}, After: map[string]any{"comments": ev.Comments},
	})
	return ev, nil
}

type ValidationReport struct {
	Total            int      `json:"total"`
	Remaining        int      `json:"remaining"`
	PerformanceScore float64  `json:"performanceScore"`
	Ready            bool     `json:"ready"`
	Code             string   `json:"code,omitempty"`
	Message          string   `json:"message,omitempty"`
	Locked           bool     `json:"locked"`
	Status           string   `json:"status"`
	Missing          []string `json:"missing,omitempty"`
}

// Validation reports the live credit and whether the evaluation could be
// submitted now.
func (s *Service) Validation(ctx context.Context, actor auth.Actor, id string) (ValidationReport, error) {
	ev, err := s.Get(ctx, actor, id)
	if err != nil {
		return ValidationReport{}, err
	}
	lock, err := s.Store.GetLock(ctx, id)
	if err != nil {
		return ValidationReport{}, err
	}
	report := ValidationReport{
		Total:            ev.Weights.Total(),
		Remaining:        ev.Weights.Remaining(),
		PerformanceScore: ev.Weights.PerformanceScore(),
		Locked:           lock != nil,
		Status:           ev.Status,
	}
	for _, item := range ev.Weights.Items() {
		if item.Weight > 0 && item.Score <= 0 {
			report.Missing = append(report.Missing, item.CompetencyID)
		}
	}
	if err := ev.Weights.ValidateForSubmission(); err != nil {
		report.Code = string(apperr.KindOf(err))
		report.Message = apperr.MessageOf(err)
	} else {
		report.Ready = ev.Editable(report.Locked)
	}
	return report, nil
}

// Submit finalizes a draft. Status, submittedAt and the lock row are written
// in one transaction; a second submit fails with ErrAlreadyLocked.
func (s *Service) Submit(ctx context.Context, actor auth.Actor, id string) (Evaluation, error) {
	ev, err := s.submit(ctx, actor, id)
	if err != nil {
		s.Metrics.Submission(string(apperr.KindOf(err)))
		return Evaluation{}, err
	}
	s.Metrics.Submission("submitted")

	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionEvaluationSubmit, EntityType: "evaluation", EntityID: id,
		Before: map[string]any{"status": StatusDraft},
		After:  map[string]any{"status": ev.Status, "performanceScore": ev.PerformanceScore, "submittedAt": ev.SubmittedAt},
	})
	if s.Listener != nil && ev.CycleID != "" {
		if err := s.Listener.EvaluationSubmitted(ctx, ev); err != nil {
			slog.Warn("cycle advance after submission failed", "evaluationId", id, "cycleId", ev.CycleID, "err", err)
		}
	}
	return ev, nil
}

func (s *Service) submit(ctx context.Context, actor auth.Actor, id string) (Evaluation, error) {
	if err := actor.Require(auth.PermEvaluationsWrite); err != nil {
		return Evaluation{}, err
	}
	now := s.now()
	return s.Store.Mutate(ctx, id, func(ev *Evaluation, locked bool) (Change, error) {
		if err := requireDraftOwner(actor, ev, locked); err != nil {
			return Change{}, err
		}
		if err := ev.Weights.ValidateForSubmission(); err != nil {
			return Change{}, apperr.Wrap(apperr.KindValidationFailed, ErrValidationFailed.Message, err)
		}
		ev.Status = StatusSubmitted
		ev.SubmittedAt = &now
		ev.PerformanceScore = ev.Weights.PerformanceScore()
		return Change{Lock: &Lock{
			EvaluationID: ev.ID,
			LockedBy:     actor.UserID,
			Reason:       LockReasonSubmitted,
			CanUnlock:    false,
			LockedAt:     now,
		}}, nil
	})
}

// Complete closes a submitted evaluation. Admins and the owning leader may
// complete it.
func (s *Service) Complete(ctx context.Context, actor auth.Actor, id string) (Evaluation, error) {
	if err := actor.Require(auth.PermEvaluationsComplete); err != nil {
		return Evaluation{}, err
	}
	now := s.now()
	ev, err := s.Store.Mutate(ctx, id, func(ev *Evaluation, _ bool) (Change, error) {
		if !actor.IsAdmin() && ev.LeaderID != actor.UserID {
			return Change{}, ErrNotOwner
		}
		if ev.Status != StatusSubmitted {
			return Change{}, ErrNotSubmitted.WithMessage("evaluation is %s, expected %s", ev.Status, StatusSubmitted)
		}
		ev.Status = StatusCompleted
		ev.CompletedAt = &now
		return Change{}, nil
	})
	if err != nil {
		return Evaluation{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionEvaluationComplete, EntityType: "evaluation", EntityID: id,
		Before: map[string]any{"status": StatusSubmitted}, After: map[string]any{"status": ev.Status},
	})
	return ev, nil
}

// Lock returns the lock row, or nil while the evaluation is unlocked.
func (s *Service) Lock(ctx context.Context, actor auth.Actor, id string) (*Lock, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.Store.GetLock(ctx, id)
}

// ownedByLeader loads an evaluation the actor may attach feedback or PDI
// items to.
func (s *Service) ownedByLeader(ctx context.Context, actor auth.Actor, id string) (Evaluation, error) {
	if err := actor.Require(auth.PermEvaluationsWrite); err != nil {
		return Evaluation{}, err
	}
	ev, err := s.Store.Get(ctx, id)
	if err != nil {
		return Evaluation{}, err
	}
	if ev.LeaderID != actor.UserID {
		return Evaluation{}, ErrNotOwner
	}
	return ev, nil
}

type FeedbackInput struct {
	Type    string `json:"type" validate:"required,oneof=strengths improvements development-areas general"`
	Content string `json:"content" validate:"required,notblank,max=8000"`
}

func (s *Service) AddFeedback(ctx context.Context, actor auth.Actor, id string, in FeedbackInput) (Feedback, error) {
	if !validFeedbackType(in.Type) {
		return Feedback{}, apperr.Newf(apperr.KindInvalidInput, "unknown feedback type %q", in.Type)
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return Feedback{}, apperr.New(apperr.KindInvalidInput, "feedback content is required")
	}
	if _, err := s.ownedByLeader(ctx, actor, id); err != nil {
		return Feedback{}, err
	}
	f, err := s.Store.AddFeedback(ctx, Feedback{EvaluationID: id, AuthorID: actor.UserID, Type: in.Type, Content: content})
	if err != nil {
		return Feedback{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionFeedbackCreate, EntityType: "evaluation", EntityID: id, After: f,
	})
	return f, nil
}

func (s *Service) ListFeedback(ctx context.Context, actor auth.Actor, id string) ([]Feedback, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.Store.ListFeedback(ctx, id)
}

type PDIInput struct {
	DevelopmentArea string `json:"developmentArea" validate:"required,notblank,max=200"`
	Actions         string `json:"actions" validate:"max=4000"`
	Timeline        string `json:"timeline" validate:"max=200"`
	Responsible     string `json:"responsible" validate:"max=200"`
	Status          string `json:"status" validate:"omitempty,oneof=planned in-progress completed postponed"`
}

func (in PDIInput) item(evaluationID, id string) (PDIItem, error) {
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = PDIPlanned
	}
	if !validPDIStatus(status) {
		return PDIItem{}, apperr.Newf(apperr.KindInvalidInput, "unknown pdi status %q", in.Status)
	}
	area := strings.TrimSpace(in.DevelopmentArea)
	if area == "" {
		return PDIItem{}, apperr.New(apperr.KindInvalidInput, "developmentArea is required")
	}
	return PDIItem{
		ID:              id,
		EvaluationID:    evaluationID,
		DevelopmentArea: area,
		Actions:         strings.TrimSpace(in.Actions),
		Timeline:        strings.TrimSpace(in.Timeline),
		Responsible:     strings.TrimSpace(in.Responsible),
		Status:          status,
	}, nil
}

func (s *Service) AddPDI(ctx context.Context, actor auth.Actor, id string, in PDIInput) (PDIItem, error) {
	item, err := in.item(id, "")
	if err != nil {
		return PDIItem{}, err
	}
	if _, err := s.ownedByLeader(ctx, actor, id); err != nil {
		return PDIItem{}, err
	}
	created, err := s.Store.AddPDI(ctx, item)
	if err != nil {
		return PDIItem{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionPDICreate, EntityType: "evaluation", EntityID: id, After: created,
	})
	return created, nil
}

func (s *Service) UpdatePDI(ctx context.Context, actor auth.Actor, id, itemID string, in PDIInput) (PDIItem, error) {
	item, err := in.item(id, itemID)
	if err != nil {
		return PDIItem{}, err
	}
	if _, err := s.ownedByLeader(ctx, actor, id); err != nil {
		return PDIItem{}, err
	}
	before, err := s.Store.GetPDI(ctx, id, itemID)
	if err != nil {
		return PDIItem{}, err
	}
	updated, err := s.Store.UpdatePDI(ctx, item)
	if err != nil {
		return PDIItem{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionPDIUpdate, EntityType: "evaluation", EntityID: id, Before: before, After: updated,
	})
	return updated, nil
}

func (s *Service) ListPDI(ctx context.Context, actor auth.Actor, id string) ([]PDIItem, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.Store.ListPDI(ctx, id)
}
