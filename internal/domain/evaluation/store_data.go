package evaluation

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"hrreview/internal/platform/apperr"
	"hrreview/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

type pgQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

const evaluationColumns = `id::text, employee_id::text, leader_id::text, COALESCE(cycle_id::text, ''), period, status,
  employee_name, employee_code, position_name, department, competency_count, performance_score::float8,
  comments, submitted_at, completed_at, created_at, updated_at`

func scanEvaluation(row pgx.Row) (Evaluation, error) {
	var ev Evaluation
	err := row.Scan(&ev.ID, &ev.EmployeeID, &ev.LeaderID, &ev.CycleID, &ev.Period, &ev.Status,
		&ev.EmployeeName, &ev.EmployeeCode, &ev.PositionName, &ev.Department, &ev.CompetencyCount,
		&ev.PerformanceScore, &ev.Comments, &ev.SubmittedAt, &ev.CompletedAt, &ev.CreatedAt, &ev.UpdatedAt)
	return ev, err
}

func loadWeights(ctx context.Context, q pgQuerier, ev *Evaluation) error {
	rows, err := q.Query(ctx, `
    SELECT competency_id::text, competency_name, category, sort_order, weight, score, comments
    FROM evaluation_weights
    WHERE evaluation_id = $1
    ORDER BY sort_order
  `, ev.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	var items []CompetencyWeight
	for rows.Next() {
		var w CompetencyWeight
		if err := rows.Scan(&w.CompetencyID, &w.CompetencyName, &w.Category, &w.Position, &w.Weight, &w.Score, &w.Comments); err != nil {
			return err
		}
		items = append(items, w)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	ws, err := NewWeightSet(ev.CompetencyCount, items)
	if err != nil {
		return err
	}
	ev.Weights = ws
	return nil
}

func (s *Store) Create(ctx context.Context, ev Evaluation) (Evaluation, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Evaluation{}, apperr.Unavailable(err)
	}
	defer tx.Rollback(ctx)

	created, err := scanEvaluation(tx.QueryRow(ctx, `
    INSERT INTO evaluations (employee_id, leader_id, cycle_id, period, status, employee_name, employee_code,
      position_name, department, competency_count, performance_score, comments)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
    RETURNING `+evaluationColumns,
		ev.EmployeeID, ev.LeaderID, nullIfEmpty(ev.CycleID), ev.Period, ev.Status, ev.EmployeeName, ev.EmployeeCode,
		ev.PositionName, ev.Department, ev.CompetencyCount, ev.PerformanceScore, ev.Comments))
	if db.IsForeignKeyViolation(err) {
		return Evaluation{}, apperr.Wrap(apperr.KindInvalidInput, "referenced employee, leader or cycle does not exist", err)
	}
	if err != nil {
		return Evaluation{}, apperr.Unavailable(err)
	}

	batch := &pgx.Batch{}
	for _, w := range ev.Weights.Items() {
		batch.Queue(`
      INSERT INTO evaluation_weights (evaluation_id, competency_id, competency_name, category, sort_order,
        weight, score, weighted_score, comments)
      VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `, created.ID, w.CompetencyID, w.CompetencyName, w.Category, w.Position, w.Weight, w.Score, w.WeightedScore, w.Comments)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return Evaluation{}, apperr.Unavailable(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Evaluation{}, apperr.Unavailable(err)
	}
	created.Weights = ev.Weights
	return created, nil
}

func (s *Store) Get(ctx context.Context, id string) (Evaluation, error) {
	if !validID(id) {
		return Evaluation{}, ErrNotFound
	}
	ev, err := scanEvaluation(s.DB.QueryRow(ctx, `SELECT `+evaluationColumns+` FROM evaluations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Evaluation{}, ErrNotFound
	}
	if err != nil {
		return Evaluation{}, apperr.Unavailable(err)
	}
	if err := loadWeights(ctx, s.DB, &ev); err != nil {
		return Evaluation{}, apperr.Unavailable(err)
	}
	return ev, nil
}

// List returns headers only; Weights is empty.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Evaluation, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluations WHERE 1=1`
	var args []any
	add := func(column, value string, isID bool) bool {
		if value == "" {
			return true
		}
		if isID && !validID(value) {
			return false
		}
		args = append(args, value)
		query += " AND " + column + " = $" + strconv.Itoa(len(args))
		return true
	}
	if !add("employee_id", filter.EmployeeID, true) || !add("leader_id", filter.LeaderID, true) ||
		!add("cycle_id", filter.CycleID, true) {
		return nil, nil
	}
	add("status", filter.Status, false)
	add("period", filter.Period, false)
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []Evaluation
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, ev)
	}
	return out, apperr.Unavailable(rows.Err())
}

func (s *Store) Mutate(ctx context.Context, id string, fn MutateFunc) (Evaluation, error) {
	if !validID(id) {
		return Evaluation{}, ErrNotFound
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Evaluation{}, apperr.Unavailable(err)
	}
	defer tx.Rollback(ctx)

	ev, err := scanEvaluation(tx.QueryRow(ctx, `SELECT `+evaluationColumns+` FROM evaluations WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Evaluation{}, ErrNotFound
	}
	if err != nil {
		return Evaluation{}, apperr.Unavailable(err)
	}
	if err := loadWeights(ctx, tx, &ev); err != nil {
		return Evaluation{}, apperr.Unavailable(err)
	}
	var locked bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM evaluation_locks WHERE evaluation_id = $1)`, id).Scan(&locked); err != nil {
		return Evaluation{}, apperr.Unavailable(err)
	}

	change, err := fn(&ev, locked)
	if err != nil {
		return Evaluation{}, err
	}

	if err := tx.QueryRow(ctx, `
    UPDATE evaluations
    SET status = $2, performance_score = $3, comments = $4, submitted_at = $5, completed_at = $6, updated_at = now()
    WHERE id = $1
    RETURNING updated_at
  `, id, ev.Status, ev.PerformanceScore, ev.Comments, ev.SubmittedAt, ev.CompletedAt).Scan(&ev.UpdatedAt); err != nil {
		return Evaluation{}, apperr.Unavailable(err)
	}
	for _, competencyID := range change.Weights {
		w, ok := ev.Weights.Item(competencyID)
		if !ok {
			return Evaluation{}, ErrCompetencyNotFound
		}
		if _, err := tx.Exec(ctx, `
      UPDATE evaluation_weights
      SET weight = $3, score = $4, weighted_score = $5, comments = $6
      WHERE evaluation_id = $1 AND competency_id = $2
    `, id, competencyID, w.Weight, w.Score, w.WeightedScore, w.Comments); err != nil {
			return Evaluation{}, apperr.Unavailable(err)
		}
	}
	if change.Lock != nil {
		l := change.Lock
		err := tx.QueryRow(ctx, `
      INSERT INTO evaluation_locks (evaluation_id, locked_by, reason, can_unlock, locked_at)
      VALUES ($1,$2,$3,$4,$5)
      RETURNING id::text
    `, id, l.LockedBy, l.Reason, l.CanUnlock, l.LockedAt).Scan(&l.ID)
		if db.IsUniqueViolation(err) {
			return Evaluation{}, ErrAlreadyLocked
		}
		if err != nil {
			return Evaluation{}, apperr.Unavailable(err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Evaluation{}, apperr.Unavailable(err)
	}
	return ev, nil
}

func (s *Store) GetLock(ctx context.Context, evaluationID string) (*Lock, error) {
	if !validID(evaluationID) {
		return nil, nil
	}
	var l Lock
	err := s.DB.QueryRow(ctx, `
    SELECT id::text, evaluation_id::text, locked_by, reason, can_unlock, locked_at
    FROM evaluation_locks
    WHERE evaluation_id = $1
  `, evaluationID).Scan(&l.ID, &l.EvaluationID, &l.LockedBy, &l.Reason, &l.CanUnlock, &l.LockedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	return &l, nil
}

func (s *Store) AddFeedback(ctx context.Context, f Feedback) (Feedback, error) {
	err := s.DB.QueryRow(ctx, `
    INSERT INTO feedback_records (evaluation_id, author_id, type, content)
    VALUES ($1,$2,$3,$4)
    RETURNING id::text, created_at
  `, f.EvaluationID, f.AuthorID, f.Type, f.Content).Scan(&f.ID, &f.CreatedAt)
	if err != nil {
		return Feedback{}, apperr.Unavailable(err)
	}
	return f, nil
}

func (s *Store) ListFeedback(ctx context.Context, evaluationID string) ([]Feedback, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id::text, evaluation_id::text, author_id, type, content, created_at
    FROM feedback_records
    WHERE evaluation_id = $1
    ORDER BY created_at
  `, evaluationID)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.EvaluationID, &f.AuthorID, &f.Type, &f.Content, &f.CreatedAt); err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, f)
	}
	return out, apperr.Unavailable(rows.Err())
}

const pdiColumns = `id::text, evaluation_id::text, development_area, actions, timeline, responsible, status, created_at, updated_at`

func scanPDI(row pgx.Row) (PDIItem, error) {
	var p PDIItem
	err := row.Scan(&p.ID, &p.EvaluationID, &p.DevelopmentArea, &p.Actions, &p.Timeline, &p.Responsible, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) AddPDI(ctx context.Context, item PDIItem) (PDIItem, error) {
	out, err := scanPDI(s.DB.QueryRow(ctx, `
    INSERT INTO pdi_items (evaluation_id, development_area, actions, timeline, responsible, status)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING `+pdiColumns,
		item.EvaluationID, item.DevelopmentArea, item.Actions, item.Timeline, item.Responsible, item.Status))
	if err != nil {
		return PDIItem{}, apperr.Unavailable(err)
	}
	return out, nil
}

func (s *Store) GetPDI(ctx context.Context, evaluationID, id string) (PDIItem, error) {
	if !validID(id) {
		return PDIItem{}, ErrPDINotFound
	}
	out, err := scanPDI(s.DB.QueryRow(ctx, `SELECT `+pdiColumns+` FROM pdi_items WHERE id = $1 AND evaluation_id = $2`, id, evaluationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return PDIItem{}, ErrPDINotFound
	}
	if err != nil {
		return PDIItem{}, apperr.Unavailable(err)
	}
	return out, nil
}

func (s *Store) UpdatePDI(ctx context.Context, item PDIItem) (PDIItem, error) {
	out, err := scanPDI(s.DB.QueryRow(ctx, `
    UPDATE pdi_items
    SET development_area = $3, actions = $4, timeline = $5, responsible = $6, status = $7, updated_at = now()
    WHERE id = $1 AND evaluation_id = $2
    RETURNING `+pdiColumns,
		item.ID, item.EvaluationID, item.DevelopmentArea, item.Actions, item.Timeline, item.Responsible, item.Status))
	if errors.Is(err, pgx.ErrNoRows) {
		return PDIItem{}, ErrPDINotFound
	}
	if err != nil {
		return PDIItem{}, apperr.Unavailable(err)
	}
	return out, nil
}

func (s *Store) ListPDI(ctx context.Context, evaluationID string) ([]PDIItem, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+pdiColumns+` FROM pdi_items WHERE evaluation_id = $1 ORDER BY created_at`, evaluationID)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []PDIItem
	for rows.Next() {
		p, err := scanPDI(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, p)
	}
	return out, apperr.Unavailable(rows.Err())
}
