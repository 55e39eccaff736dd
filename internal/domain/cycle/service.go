package cycle

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"hrreview/internal/domain/audit"
	"hrreview/internal/domain/auth"
	"hrreview/internal/domain/core"
	"hrreview/internal/domain/evaluation"
	"hrreview/internal/platform/apperr"
	"hrreview/internal/platform/cache"
	"hrreview/internal/platform/metrics"
)

const DefaultSummaryTTL = 30 * time.Second

// Directory answers the employee questions the tracker needs.
type Directory interface {
	Employee(ctx context.Context, id string) (core.Employee, error)
	ActiveAuthorization(ctx context.Context, leaderID, employeeID string) (bool, error)
}

// SummaryCache stores progress summaries under versioned keys.
// *cache.Cache implements it.
type SummaryCache interface {
	Enabled() bool
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Version(ctx context.Context, key string) (int64, error)
	Bump(ctx context.Context, key string) error
}

type Service struct {
	Store      StoreAPI
	Directory  Directory
	Policy     DeadlinePolicy
	Cache      SummaryCache
	SummaryTTL time.Duration
	Audit      audit.Recorder
	Metrics    *metrics.Collector
	Now        func() time.Time
}

func NewService(store StoreAPI, directory Directory, recorder audit.Recorder) *Service {
	return &Service{
		Store:      store,
		Directory:  directory,
		Policy:     WindowPolicy{},
		SummaryTTL: DefaultSummaryTTL,
		Audit:      recorder,
		Now:        time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) policy() DeadlinePolicy {
	if s.Policy == nil {
		return WindowPolicy{}
	}
	return s.Policy
}

// A summary is cached under the cycle's current version. Invalidation bumps
// the version, so a summary computed before a transition lands under a key
// that is no longer read.
func summaryKey(cycleID string, version int64) string {
	return "cycle-summary:" + cycleID + ":v" + strconv.FormatInt(version, 10)
}

func summaryVersionKey(cycleID string) string {
	return "cycle-summary-version:" + cycleID
}

func (s *Service) cacheEnabled() bool {
	return s.Cache != nil && s.Cache.Enabled()
}

// authorizeEmployee decides whether actor may read or move employeeID's
// statuses: admins always, employees for themselves, leaders for employees
// they hold an active authorization for.
func (s *Service) authorizeEmployee(ctx context.Context, actor auth.Actor, employeeID string) error {
	switch {
	case actor.IsAdmin():
		return nil
	case actor.Owns(employeeID):
		return nil
	case actor.IsLeader():
		ok, err := s.Directory.ActiveAuthorization(ctx, actor.UserID, employeeID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return ErrNotAuthorized
}

type CycleInput struct {
	Name          string    `json:"name" validate:"required,notblank,max=120"`
	Type          string    `json:"type" validate:"required,oneof=bimonthly semester"`
	StartDate     time.Time `json:"startDate" validate:"required"`
	EndDate       time.Time `json:"endDate" validate:"required"`
	ParentCycleID string    `json:"parentCycleId" validate:"omitempty"`
}

func (s *Service) CreateCycle(ctx context.Context, actor auth.Actor, in CycleInput) (Cycle, error) {
	if err := actor.Require(auth.PermCyclesManage); err != nil {
		return Cycle{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Cycle{}, ErrInvalidCycle.WithMessage("name is required")
	}
	if !ValidType(in.Type) {
		return Cycle{}, ErrInvalidCycle.WithMessage("type must be %s or %s", TypeBimonthly, TypeSemester)
	}
	if !in.EndDate.After(in.StartDate) {
		return Cycle{}, ErrInvalidCycle.WithMessage("endDate must be after startDate")
	}
	if in.ParentCycleID != "" {
		if in.Type != TypeBimonthly {
			return Cycle{}, ErrInvalidCycle.WithMessage("only bimonthly cycles nest in a parent")
		}
		parent, err := s.Store.GetCycle(ctx, in.ParentCycleID)
		if err != nil {
			return Cycle{}, err
		}
		if parent.Type != TypeSemester {
			return Cycle{}, ErrInvalidCycle.WithMessage("parent cycle must be a semester")
		}
	}
	created, err := s.Store.CreateCycle(ctx, Cycle{
		Name:          name,
		Type:          in.Type,
		StartDate:     in.StartDate.UTC(),
		EndDate:       in.EndDate.UTC(),
		ParentCycleID: in.ParentCycleID,
		Status:        CyclePlanning,
	})
	if err != nil {
		return Cycle{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionCycleCreate, EntityType: "cycle", EntityID: created.ID, After: created,
	})
	return created, nil
}

// ListCycles shows non-admins active cycles only.
func (s *Service) ListCycles(ctx context.Context, actor auth.Actor, filter Filter) ([]Cycle, error) {
	if err := actor.Require(auth.PermCyclesRead); err != nil {
		return nil, err
	}
	if filter.Status != "" && !ValidCycleStatus(filter.Status) {
		return nil, apperr.Newf(apperr.KindInvalidInput, "unknown cycle status %q", filter.Status)
	}
	if !actor.IsAdmin() {
		if filter.Status != "" && filter.Status != CycleActive {
			return nil, nil
		}
		filter.Status = CycleActive
	}
	return s.Store.ListCycles(ctx, filter)
}

func (s *Service) GetCycle(ctx context.Context, actor auth.Actor, id string) (Cycle, error) {
	if err := actor.Require(auth.PermCyclesRead); err != nil {
		return Cycle{}, err
	}
	return s.Store.GetCycle(ctx, id)
}

// CurrentCycle returns the active cycle whose window contains now.
func (s *Service) CurrentCycle(ctx context.Context, actor auth.Actor) (Cycle, error) {
	if err := actor.Require(auth.PermCyclesRead); err != nil {
		return Cycle{}, err
	}
	return s.Store.CurrentCycle(ctx, s.now())
}

// UpdateCycleStatus only moves forward through planning, active,
// completed, archived. Skipping ahead is allowed.
func (s *Service) UpdateCycleStatus(ctx context.Context, actor auth.Actor, id, status string) (Cycle, error) {
	if err := actor.Require(auth.PermCyclesManage); err != nil {
		return Cycle{}, err
	}
	if !ValidCycleStatus(status) {
		return Cycle{}, apperr.Newf(apperr.KindInvalidInput, "unknown cycle status %q", status)
	}
	current, err := s.Store.GetCycle(ctx, id)
	if err != nil {
		return Cycle{}, err
	}
	if cycleStatusIndex(status) <= cycleStatusIndex(current.Status) {
		return Cycle{}, ErrInvalidTransition.WithMessage("cycle cannot move from %s to %s", current.Status, status)
	}
	updated, err := s.Store.SetCycleStatus(ctx, id, current.Status, status)
	if err != nil {
		return Cycle{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionCycleStatus, EntityType: "cycle", EntityID: id,
		Before: map[string]any{"status": current.Status}, After: map[string]any{"status": updated.Status},
	})
	return updated, nil
}

type EnrollResult struct {
	Enrolled int `json:"enrolled"`
	Skipped  int `json:"skipped"`
}

// Enroll creates planning rows for the given employees. Employees already in
// the cycle are skipped.
func (s *Service) Enroll(ctx context.Context, actor auth.Actor, cycleID string, employeeIDs []string) (EnrollResult, error) {
	if err := actor.Require(auth.PermCyclesManage); err != nil {
		return EnrollResult{}, err
	}
	if len(employeeIDs) == 0 {
		return EnrollResult{}, apperr.New(apperr.KindInvalidInput, "employeeIds must not be empty")
	}
	c, err := s.Store.GetCycle(ctx, cycleID)
	if err != nil {
		return EnrollResult{}, err
	}
	if c.Closed() {
		return EnrollResult{}, ErrCycleClosed.WithMessage("cycle %s is %s", cycleID, c.Status)
	}
	unique := make([]string, 0, len(employeeIDs))
	seen := make(map[string]struct{}, len(employeeIDs))
	for _, id := range employeeIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	n, err := s.Store.Enroll(ctx, cycleID, unique)
	if err != nil {
		return EnrollResult{}, err
	}
	s.invalidateSummary(ctx, cycleID)
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionCycleEnroll, EntityType: "cycle", EntityID: cycleID,
		After: map[string]any{"employeeIds": unique, "enrolled": n},
	})
	return EnrollResult{Enrolled: n, Skipped: len(unique) - n}, nil
}

func (s *Service) ListStatuses(ctx context.Context, actor auth.Actor, cycleID string) ([]Status, error) {
	if err := actor.Require(auth.PermCyclesManage); err != nil {
		return nil, err
	}
	if _, err := s.Store.GetCycle(ctx, cycleID); err != nil {
		return nil, err
	}
	return s.Store.ListStatuses(ctx, cycleID)
}

func (s *Service) Status(ctx context.Context, actor auth.Actor, cycleID, employeeID string) (Status, error) {
	if err := actor.Require(auth.PermCyclesRead); err != nil {
		return Status{}, err
	}
	if err := s.authorizeEmployee(ctx, actor, employeeID); err != nil {
		return Status{}, err
	}
	return s.Store.GetStatus(ctx, cycleID, employeeID)
}

// History lists the employee's statuses across cycles, oldest cycle first.
func (s *Service) History(ctx context.Context, actor auth.Actor, employeeID string) ([]Status, error) {
	if err := actor.Require(auth.PermCyclesRead); err != nil {
		return nil, err
	}
	if err := s.authorizeEmployee(ctx, actor, employeeID); err != nil {
		return nil, err
	}
	return s.Store.History(ctx, employeeID)
}

// Transition advances one employee to target, which must be the immediate
// successor of the current stage. A missing row is created in planning.
func (s *Service) Transition(ctx context.Context, actor auth.Actor, cycleID, employeeID, target string) (Status, error) {
	if err := actor.Require(auth.PermCycleStatusUpdate); err != nil {
		return Status{}, err
	}
	if !ValidStage(target) {
		return Status{}, ErrUnknownStage.WithMessage("unknown stage %q", target)
	}
	if err := s.authorizeEmployee(ctx, actor, employeeID); err != nil {
		return Status{}, err
	}
	return s.transition(ctx, actor.UserID, cycleID, employeeID, func(st *Status) error { return nil }, target)
}

// transition runs the shared path. guard may return errNoChange to leave the
// row alone.
func (s *Service) transition(ctx context.Context, actorID, cycleID, employeeID string, guard StatusFunc, target string) (Status, error) {
	c, err := s.Store.GetCycle(ctx, cycleID)
	if err != nil {
		return Status{}, err
	}
	if c.Closed() {
		return Status{}, ErrCycleClosed.WithMessage("cycle %s is %s", cycleID, c.Status)
	}

	now := s.now()
	var before Status
	changed := false
	st, err := s.Store.MutateStatus(ctx, cycleID, employeeID, func(st *Status) error {
		if err := guard(st); err != nil {
			return err
		}
		before = *st
		if err := st.Advance(target, now); err != nil {
			return err
		}
		st.IsOverdue = IsOverdue(c, *st, now, s.policy())
		changed = true
		return nil
	})
	if err != nil {
		return Status{}, err
	}
	if !changed {
		return st, nil
	}

	s.Metrics.Transition(target)
	s.invalidateSummary(ctx, cycleID)
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actorID, Action: audit.ActionCycleTransition, EntityType: "cycle_status", EntityID: st.ID,
		Before: map[string]any{"cycleId": cycleID, "employeeId": employeeID, "status": before.CurrentStatus},
		After:  map[string]any{"cycleId": cycleID, "employeeId": employeeID, "status": st.CurrentStatus, "isOverdue": st.IsOverdue},
	})
	return st, nil
}

// CheckCycle accepts evaluations for cycles that exist and are not closed.
func (s *Service) CheckCycle(ctx context.Context, cycleID string) error {
	c, err := s.Store.GetCycle(ctx, cycleID)
	if err != nil {
		return err
	}
	if c.Closed() {
		return ErrCycleClosed.WithMessage("cycle %s is %s", cycleID, c.Status)
	}
	return nil
}

// EvaluationSubmitted moves the employee from leader-evaluation to feedback
// once their evaluation for the cycle is submitted. Other stages are left
// alone.
func (s *Service) EvaluationSubmitted(ctx context.Context, ev evaluation.Evaluation) error {
	if ev.CycleID == "" {
		return nil
	}
	_, err := s.transition(ctx, ev.LeaderID, ev.CycleID, ev.EmployeeID, func(st *Status) error {
		if st.CurrentStatus != StageLeaderEvaluation {
			return errNoChange
		}
		return nil
	}, StageFeedback)
	if errors.Is(err, ErrCycleClosed) {
		slog.Info("cycle closed, submission not advanced", "cycleId", ev.CycleID, "employeeId", ev.EmployeeID)
		return nil
	}
	return err
}

// Summary aggregates a cycle's statuses, served from the cache when one is
// configured. Transitions and enrollments invalidate the entry.
func (s *Service) Summary(ctx context.Context, actor auth.Actor, cycleID string) (ProgressSummary, error) {
	if err := actor.Require(auth.PermCyclesManage); err != nil {
		return ProgressSummary{}, err
	}
	return s.summary(ctx, cycleID)
}

func (s *Service) summary(ctx context.Context, cycleID string) (ProgressSummary, error) {
	version := int64(-1)
	if s.cacheEnabled() {
		v, err := s.Cache.Version(ctx, summaryVersionKey(cycleID))
		if err != nil {
			slog.Warn("summary cache version read failed", "cycleId", cycleID, "err", err)
		} else {
			version = v
			var cached ProgressSummary
			err := s.Cache.Get(ctx, summaryKey(cycleID, version), &cached)
			if err == nil {
				s.Metrics.CacheLookup(true)
				return cached, nil
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				slog.Warn("summary cache read failed", "cycleId", cycleID, "err", err)
			}
			s.Metrics.CacheLookup(false)
		}
	}

	if _, err := s.Store.GetCycle(ctx, cycleID); err != nil {
		return ProgressSummary{}, err
	}
	statuses, err := s.Store.ListStatuses(ctx, cycleID)
	if err != nil {
		return ProgressSummary{}, err
	}
	summary := buildProgressSummary(cycleID, statuses)
	if version >= 0 {
		if err := s.Cache.Set(ctx, summaryKey(cycleID, version), summary, s.SummaryTTL); err != nil {
			slog.Warn("summary cache write failed", "cycleId", cycleID, "err", err)
		}
	}
	return summary, nil
}

func (s *Service) invalidateSummary(ctx context.Context, cycleID string) {
	if !s.cacheEnabled() {
		return
	}
	if err := s.Cache.Bump(ctx, summaryVersionKey(cycleID)); err != nil {
		slog.Warn("summary cache invalidation failed", "cycleId", cycleID, "err", err)
	}
}

// SweepOverdue recomputes isOverdue for every status of every active cycle.
// A row that moved stage while the sweep ran is left for the next pass.
func (s *Service) SweepOverdue(ctx context.Context) (SweepResult, error) {
	cycles, err := s.Store.ListCycles(ctx, Filter{Status: CycleActive})
	if err != nil {
		return SweepResult{}, err
	}
	now := s.now()
	var result SweepResult
	for _, c := range cycles {
		statuses, err := s.Store.ListStatuses(ctx, c.ID)
		if err != nil {
			return result, err
		}
		result.Cycles++
		overdue := 0
		updated := 0
		for _, st := range statuses {
			result.Checked++
			flag := IsOverdue(c, st, now, s.policy())
			if flag != st.IsOverdue {
				ok, err := s.Store.SetOverdue(ctx, st.ID, st.CurrentStatus, flag)
				if err != nil {
					return result, err
				}
				if ok {
					updated++
				} else {
					flag = st.IsOverdue
				}
			}
			if flag {
				overdue++
			}
		}
		result.Updated += updated
		result.Overdue += overdue
		s.Metrics.Overdue(c.ID, overdue)
		if updated > 0 {
			s.invalidateSummary(ctx, c.ID)
		}
	}
	return result, nil
}
