package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrreview/internal/platform/sqlite"
	"hrreview/internal/requestctx"
)

func TestBuildBaseQuery(t *testing.T) {
	query, args := buildBaseQuery("SELECT COUNT(1)", Filter{Action: ActionEvaluationSubmit, ActorID: "u1"}, dollarPlaceholder)
	assert.Equal(t, "SELECT COUNT(1) FROM audit_events WHERE 1=1 AND action = $1 AND actor_id = $2", query)
	assert.Equal(t, []any{ActionEvaluationSubmit, "u1"}, args)

	query, args = buildBaseQuery("SELECT id", Filter{}, questionPlaceholder)
	assert.Equal(t, "SELECT id FROM audit_events WHERE 1=1", query)
	assert.Empty(t, args)
}

func TestSQLiteRecordAndList(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	svc := NewSQLite(db)

	reqCtx := requestctx.WithClientIP(requestctx.WithRequestID(ctx, "req-1"), "203.0.113.7")
	require.NoError(t, svc.Record(reqCtx, Entry{
		ActorID:    "leader-1",
		Action:     ActionWeightUpdate,
		EntityType: "evaluation",
		EntityID:   "ev-1",
		Before:     map[string]int{"weight": 10},
		After:      map[string]int{"weight": 20},
	}))
	require.NoError(t, svc.Record(ctx, Entry{ActorID: "leader-1", Action: ActionEvaluationSubmit, EntityType: "evaluation", EntityID: "ev-1"}))

	total, err := svc.Count(ctx, Filter{EntityID: "ev-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	events, err := svc.List(ctx, Filter{Action: ActionWeightUpdate}, true, 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.Equal(t, "203.0.113.7", events[0].IP)

	var after map[string]int
	require.NoError(t, json.Unmarshal(events[0].After, &after))
	assert.Equal(t, 20, after["weight"])

	brief, err := svc.List(ctx, Filter{Action: ActionWeightUpdate}, false, 10, 0)
	require.NoError(t, err)
	assert.Nil(t, brief[0].Before)
}
