package jobs

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrreview/internal/platform/metrics"
	"hrreview/internal/platform/sqlite"
)

func TestRunNowRecordsRun(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := New(SQLiteRunLog{DB: db}, metrics.New())

	details, err := svc.RunNow(ctx, JobOverdueSweep, func(context.Context) (any, error) {
		return map[string]int{"flagged": 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"flagged": 2}, details)

	_, err = svc.RunNow(ctx, JobOverdueSweep, func(context.Context) (any, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	var completed, failed int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM job_runs WHERE status = 'completed' AND completed_at IS NOT NULL`).Scan(&completed))
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM job_runs WHERE status = 'failed'`).Scan(&failed))
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, failed)
}

func TestWorkerDrainsQueue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := New(nil, nil)
	svc.Start(ctx)

	done := make(chan struct{})
	require.True(t, svc.Enqueue("test", func(context.Context) (any, error) {
		close(done)
		return nil, nil
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued job did not run")
	}
}

func TestScheduleRunsPeriodically(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := New(nil, nil)
	ran := make(chan struct{}, 4)
	svc.Every("tick", 10*time.Millisecond, func(context.Context) (any, error) {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil, nil
	})
	svc.Every("disabled", 0, func(context.Context) (any, error) {
		t.Error("disabled schedule ran")
		return nil, nil
	})
	assert.Len(t, svc.schedules, 1)
	svc.Start(ctx)

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled job did not run")
	}
}
