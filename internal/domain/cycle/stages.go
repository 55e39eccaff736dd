package cycle

import "time"

const (
	StagePlanning         = "planning"
	StageSelfEvaluation   = "self-evaluation"
	StageLeaderEvaluation = "leader-evaluation"
	StageFeedback         = "feedback"
	StagePDI              = "pdi"
	StageCompleted        = "completed"
)

// Stages is the fixed review order.
var Stages = []string{
	StagePlanning,
	StageSelfEvaluation,
	StageLeaderEvaluation,
	StageFeedback,
	StagePDI,
	StageCompleted,
}

var successors = map[string]string{
	StagePlanning:         StageSelfEvaluation,
	StageSelfEvaluation:   StageLeaderEvaluation,
	StageLeaderEvaluation: StageFeedback,
	StageFeedback:         StagePDI,
	StagePDI:              StageCompleted,
}

func StageIndex(stage string) int {
	for i, s := range Stages {
		if s == stage {
			return i
		}
	}
	return -1
}

func ValidStage(stage string) bool {
	return StageIndex(stage) >= 0
}

// Successor returns the only stage reachable from stage.
func Successor(stage string) (string, bool) {
	next, ok := successors[stage]
	return next, ok
}

// Progress is (index+1)/6 as a whole percentage, rounded half up.
func Progress(stage string) int {
	i := StageIndex(stage)
	if i < 0 {
		return 0
	}
	n := len(Stages)
	return ((i+1)*200 + n) / (2 * n)
}

func newStatus(cycleID, employeeID string) Status {
	return Status{CycleID: cycleID, EmployeeID: employeeID, CurrentStatus: StagePlanning, Progress: Progress(StagePlanning)}
}

func (st *Status) stamp(stage string) **time.Time {
	switch stage {
	case StageSelfEvaluation:
		return &st.SelfEvaluationDate
	case StageLeaderEvaluation:
		return &st.LeaderEvaluationDate
	case StageFeedback:
		return &st.FeedbackDate
	case StagePDI:
		return &st.PDIDate
	case StageCompleted:
		return &st.CompletionDate
	}
	return nil
}

// Advance moves the status to target, which must be the immediate
// successor of the current stage. The entry date of target is stamped only
// if it is still empty.
func (st *Status) Advance(target string, now time.Time) error {
	if !ValidStage(target) {
		return ErrUnknownStage.WithMessage("unknown stage %q", target)
	}
	next, ok := Successor(st.CurrentStatus)
	if !ok {
		return ErrInvalidTransition.WithMessage("%s is the final stage", st.CurrentStatus)
	}
	if next != target {
		return ErrInvalidTransition.WithMessage("cannot move from %s to %s, next stage is %s", st.CurrentStatus, target, next)
	}
	st.CurrentStatus = target
	if field := st.stamp(target); field != nil && *field == nil {
		at := now
		*field = &at
	}
	st.Progress = Progress(target)
	return nil
}

func buildProgressSummary(cycleID string, statuses []Status) ProgressSummary {
	summary := ProgressSummary{CycleID: cycleID, Total: len(statuses)}
	if summary.Total == 0 {
		return summary
	}
	for _, st := range statuses {
		switch st.CurrentStatus {
		case StageCompleted:
			summary.Completed++
		case StagePlanning:
			summary.Pending++
		default:
			summary.InProgress++
		}
		if st.IsOverdue {
			summary.Overdue++
		}
	}
	summary.PercentageCompleted = (summary.Completed*200 + summary.Total) / (2 * summary.Total)
	return summary
}
