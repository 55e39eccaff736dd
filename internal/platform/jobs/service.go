package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"hrreview/internal/platform/metrics"
)

const (
	JobOverdueSweep = "overdue_sweep"

	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// RunFunc performs one job run and returns details recorded in job_runs.
type RunFunc func(context.Context) (any, error)

type Service struct {
	Runs      RunLog
	Metrics   *metrics.Collector
	queue     chan job
	schedules []schedule
}

type job struct {
	Type string
	Run  RunFunc
}

type schedule struct {
	Type     string
	Interval time.Duration
	Run      RunFunc
}

func New(runs RunLog, collector *metrics.Collector) *Service {
	return &Service{
		Runs:    runs,
		Metrics: collector,
		queue:   make(chan job, 128),
	}
}

// Every registers a periodic job. It must be called before Start; intervals
// that are not positive disable the schedule.
func (s *Service) Every(jobType string, interval time.Duration, run RunFunc) {
	if interval <= 0 {
		return
	}
	s.schedules = append(s.schedules, schedule{Type: jobType, Interval: interval, Run: run})
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	for _, sc := range s.schedules {
		go s.schedule(ctx, sc)
	}
}

func (s *Service) Enqueue(jobType string, run RunFunc) bool {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "jobType", jobType)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run RunFunc) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.Runs != nil {
		id, err := s.Runs.Start(ctx, j.Type)
		if err != nil {
			slog.Warn("job run insert failed", "jobType", j.Type, "err", err)
		}
		runID = id
	}

	details, err := j.Run(ctx)
	status := StatusCompleted
	if err != nil {
		status = StatusFailed
	}
	s.Metrics.JobRun(j.Type, status)

	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if updErr := s.Runs.Finish(ctx, runID, status, detailsJSON); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return details, err
}

func (s *Service) schedule(ctx context.Context, sc schedule) {
	ticker := time.NewTicker(sc.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(sc.Type, sc.Run)
		}
	}
}
