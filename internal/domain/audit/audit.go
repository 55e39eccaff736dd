package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

const (
	ActionWeightUpdate        = "evaluation.weight.update"
	ActionScoreUpdate         = "evaluation.score.update"
	ActionEvaluationCreate    = "evaluation.create"
	ActionEvaluationComments  = "evaluation.comments.update"
	ActionEvaluationSubmit    = "evaluation.submit"
	ActionEvaluationComplete  = "evaluation.complete"
	ActionFeedbackCreate      = "evaluation.feedback.create"
	ActionPDICreate           = "evaluation.pdi.create"
	ActionPDIUpdate           = "evaluation.pdi.update"
	ActionCycleCreate         = "cycle.create"
	ActionCycleStatus         = "cycle.status.update"
	ActionCycleEnroll         = "cycle.enroll"
	ActionCycleTransition     = "cycle.employee.transition"
	ActionCompetencyCreate    = "core.competency.create"
	ActionCompetencyUpdate    = "core.competency.update"
	ActionCompetencyDelete    = "core.competency.delete"
	ActionPositionCreate      = "core.position.create"
	ActionPositionUpdate      = "core.position.update"
	ActionPositionDelete      = "core.position.delete"
	ActionEmployeeCreate      = "core.employee.create"
	ActionEmployeeUpdate      = "core.employee.update"
	ActionAuthorizationGrant  = "core.authorization.create"
	ActionAuthorizationRevoke = "core.authorization.revoke"
	ActionUserCreate          = "auth.user.create"
)

// Entry is one audited mutation. Before and After are marshalled to JSON.
type Entry struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Before     any
	After      any
}

// Recorder is called by services after a mutation has committed.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Emit records entry on rec when one is configured. A failed audit write is
// logged and never undoes the mutation it describes.
func Emit(ctx context.Context, rec Recorder, entry Entry) {
	if rec == nil {
		return
	}
	if err := rec.Record(ctx, entry); err != nil {
		slog.Warn("audit "+entry.Action+" failed", "entityId", entry.EntityID, "err", err)
	}
}

type Event struct {
	ID         string          `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

type Filter struct {
	Action     string
	EntityType string
	ActorID    string
	EntityID   string
}

// Reader lists recorded events, newest first.
type Reader interface {
	Count(ctx context.Context, filter Filter) (int, error)
	List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error)
}

func marshalPayloads(before, after any) ([]byte, []byte, error) {
	var beforeJSON, afterJSON []byte
	if before != nil {
		payload, err := json.Marshal(before)
		if err != nil {
			return nil, nil, err
		}
		beforeJSON = payload
	}
	if after != nil {
		payload, err := json.Marshal(after)
		if err != nil {
			return nil, nil, err
		}
		afterJSON = payload
	}
	return beforeJSON, afterJSON, nil
}
