package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrreview/internal/platform/sqlite"
)

// RunLog persists job runs in the job_runs table.
type RunLog interface {
	Start(ctx context.Context, jobType string) (string, error)
	Finish(ctx context.Context, runID, status string, details []byte) error
}

type PostgresRunLog struct {
	DB *pgxpool.Pool
}

func (l PostgresRunLog) Start(ctx context.Context, jobType string) (string, error) {
	var id string
	err := l.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_type, status)
    VALUES ($1,$2)
    RETURNING id
  `, jobType, StatusRunning).Scan(&id)
	return id, err
}

func (l PostgresRunLog) Finish(ctx context.Context, runID, status string, details []byte) error {
	_, err := l.DB.Exec(ctx, `
    UPDATE job_runs
    SET status = $1, details_json = $2, completed_at = now()
    WHERE id = $3
  `, status, details, runID)
	return err
}

type SQLiteRunLog struct {
	DB *sql.DB
}

func (l SQLiteRunLog) Start(ctx context.Context, jobType string) (string, error) {
	id := uuid.NewString()
	_, err := l.DB.ExecContext(ctx, `
    INSERT INTO job_runs (id, job_type, status, started_at)
    VALUES (?,?,?,?)
  `, id, jobType, StatusRunning, sqlite.FormatTime(time.Now()))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (l SQLiteRunLog) Finish(ctx context.Context, runID, status string, details []byte) error {
	_, err := l.DB.ExecContext(ctx, `
    UPDATE job_runs
    SET status = ?, details_json = ?, completed_at = ?
    WHERE id = ?
  `, status, string(details), sqlite.FormatTime(time.Now()), runID)
	return err
}
