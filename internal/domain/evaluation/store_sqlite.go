package evaluation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"hrreview/internal/platform/apperr"
	"hrreview/internal/platform/sqlite"
)

type SQLiteStore struct {
	DB *sql.DB
}

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{DB: db}
}

type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

const sqliteEvaluationColumns = `id, employee_id, leader_id, COALESCE(cycle_id, ''), period, status,
  employee_name, employee_code, position_name, department, competency_count, performance_score,
  comments, submitted_at, completed_at, created_at, updated_at`

func scanSQLiteEvaluation(row rowScanner) (Evaluation, error) {
	var ev Evaluation
	var submitted, completed sql.NullString
	var created, updated string
	if err := row.Scan(&ev.ID, &ev.EmployeeID, &ev.LeaderID, &ev.CycleID, &ev.Period, &ev.Status,
		&ev.EmployeeName, &ev.EmployeeCode, &ev.PositionName, &ev.Department, &ev.CompetencyCount,
		&ev.PerformanceScore, &ev.Comments, &submitted, &completed, &created, &updated); err != nil {
		return Evaluation{}, err
	}
	var err error
	if ev.SubmittedAt, err = sqlite.ParseNullTime(submitted); err != nil {
		return Evaluation{}, err
	}
	if ev.CompletedAt, err = sqlite.ParseNullTime(completed); err != nil {
		return Evaluation{}, err
	}
	if ev.CreatedAt, err = sqlite.ParseTime(created); err != nil {
		return Evaluation{}, err
	}
	if ev.UpdatedAt, err = sqlite.ParseTime(updated); err != nil {
		return Evaluation{}, err
	}
	return ev, nil
}

func loadSQLiteWeights(ctx context.Context, q sqlQuerier, ev *Evaluation) error {
	rows, err := q.QueryContext(ctx, `
    SELECT competency_id, competency_name, category, sort_order, weight, score, comments
    FROM evaluation_weights
    WHERE evaluation_id = ?
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

func (s *SQLiteStore) Create(ctx context.Context, ev Evaluation) (Evaluation, error) {
	ev.ID = uuid.NewString()
	now := time.Now().UTC()
	ev.CreatedAt, ev.UpdatedAt = now, now

	err := sqlite.WithinTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
      INSERT INTO evaluations (id, employee_id, leader_id, cycle_id, period, status, employee_name, employee_code,
        position_name, department, competency_count, performance_score, comments, created_at, updated_at)
      VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
    `, ev.ID, ev.EmployeeID, ev.LeaderID, nullIfEmpty(ev.CycleID), ev.Period, ev.Status, ev.EmployeeName,
			ev.EmployeeCode, ev.PositionName, ev.Department, ev.CompetencyCount, ev.PerformanceScore, ev.Comments,
			sqlite.FormatTime(now), sqlite.FormatTime(now)); err != nil {
			return err
		}
		for _, w := range ev.Weights.Items() {
			if _, err := tx.ExecContext(ctx, `
        INSERT INTO evaluation_weights (evaluation_id, competency_id, competency_name, category, sort_order,
          weight, score, weighted_score, comments)
        VALUES (?,?,?,?,?,?,?,?,?)
      `, ev.ID, w.CompetencyID, w.CompetencyName, w.Category, w.Position, w.Weight, w.Score, w.WeightedScore, w.Comments); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Evaluation{}, apperr.Unavailable(err)
	}
	return ev, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Evaluation, error) {
	ev, err := scanSQLiteEvaluation(s.DB.QueryRowContext(ctx, `SELECT `+sqliteEvaluationColumns+` FROM evaluations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Evaluation{}, ErrNotFound
	}
	if err != nil {
		return Evaluation{}, apperr.Unavailable(err)
	}
	if err := loadSQLiteWeights(ctx, s.DB, &ev); err != nil {
		return Evaluation{}, apperr.Unavailable(err)
	}
	return ev, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]Evaluation, error) {
	query := `SELECT ` + sqliteEvaluationColumns + ` FROM evaluations WHERE 1=1`
	var args []any
	for _, f := range []struct{ column, value string }{
		{"employee_id", filter.EmployeeID},
		{"leader_id", filter.LeaderID},
		{"cycle_id", filter.CycleID},
		{"status", filter.Status},
		{"period", filter.Period},
	} {
		if f.value != "" {
			query += " AND " + f.column + " = ?"
			args = append(args, f.value)
		}
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []Evaluation
	for rows.Next() {
		ev, err := scanSQLiteEvaluation(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, ev)
	}
	return out, apperr.Unavailable(rows.Err())
}

// Mutate relies on the single-connection pool: the transaction holds the
// only connection, so concurrent mutations run one after another.
func (s *SQLiteStore) Mutate(ctx context.Context, id string, fn MutateFunc) (Evaluation, error) {
	var ev Evaluation
	err := sqlite.WithinTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		ev, err = scanSQLiteEvaluation(tx.QueryRowContext(ctx, `SELECT `+sqliteEvaluationColumns+` FROM evaluations WHERE id = ?`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return apperr.Unavailable(err)
		}
		if err := loadSQLiteWeights(ctx, tx, &ev); err != nil {
			return apperr.Unavailable(err)
		}
		var locked int
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM evaluation_locks WHERE evaluation_id = ?)`, id).Scan(&locked); err != nil {
			return apperr.Unavailable(err)
		}

		change, err := fn(&ev, locked == 1)
		if err != nil {
			return err
		}

		ev.UpdatedAt = time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `
      UPDATE evaluations
      SET status = ?, performance_score = ?, comments = ?, submitted_at = ?, completed_at = ?, updated_at = ?
      WHERE id = ?
    `, ev.Status, ev.PerformanceScore, ev.Comments, sqlite.NullTime(ev.SubmittedAt), sqlite.NullTime(ev.CompletedAt),
			sqlite.FormatTime(ev.UpdatedAt), id); err != nil {
			return apperr.Unavailable(err)
		}
		for _, competencyID := range change.Weights {
			w, ok := ev.Weights.Item(competencyID)
			if !ok {
				return ErrCompetencyNotFound
			}
			if _, err := tx.ExecContext(ctx, `
        UPDATE evaluation_weights
        SET weight = ?, score = ?, weighted_score = ?, comments = ?
        WHERE evaluation_id = ? AND competency_id = ?
      `, w.Weight, w.Score, w.WeightedScore, w.Comments, id, competencyID); err != nil {
				return apperr.Unavailable(err)
			}
		}
		if change.Lock != nil {
			l := change.Lock
			l.ID = uuid.NewString()
			_, err := tx.ExecContext(ctx, `
        INSERT INTO evaluation_locks (id, evaluation_id, locked_by, reason, can_unlock, locked_at)
        VALUES (?,?,?,?,?,?)
      `, l.ID, id, l.LockedBy, l.Reason, l.CanUnlock, sqlite.FormatTime(l.LockedAt))
			if sqlite.IsUniqueViolation(err) {
				return ErrAlreadyLocked
			}
			if err != nil {
				return apperr.Unavailable(err)
			}
		}
		return nil
	})
	if err != nil {
		return Evaluation{}, apperr.Unavailable(err)
	}
	return ev, nil
}

func (s *SQLiteStore) GetLock(ctx context.Context, evaluationID string) (*Lock, error) {
	var l Lock
	var lockedAt string
	err := s.DB.QueryRowContext(ctx, `
    SELECT id, evaluation_id, locked_by, reason, can_unlock, locked_at
    FROM evaluation_locks
    WHERE evaluation_id = ?
  `, evaluationID).Scan(&l.ID, &l.EvaluationID, &l.LockedBy, &l.Reason, &l.CanUnlock, &lockedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	if l.LockedAt, err = sqlite.ParseTime(lockedAt); err != nil {
		return nil, apperr.Unavailable(err)
	}
	return &l, nil
}

func (s *SQLiteStore) AddFeedback(ctx context.Context, f Feedback) (Feedback, error) {
	f.ID = uuid.NewString()
	f.CreatedAt = time.Now().UTC()
	_, err := s.DB.ExecContext(ctx, `
    INSERT INTO feedback_records (id, evaluation_id, author_id, type, content, created_at)
    VALUES (?,?,?,?,?,?)
  `, f.ID, f.EvaluationID, f.AuthorID, f.Type, f.Content, sqlite.FormatTime(f.CreatedAt))
	if err != nil {
		return Feedback{}, apperr.Unavailable(err)
	}
	return f, nil
}

func (s *SQLiteStore) ListFeedback(ctx context.Context, evaluationID string) ([]Feedback, error) {
	rows, err := s.DB.QueryContext(ctx, `
    SELECT id, evaluation_id, author_id, type, content, created_at
    FROM feedback_records
    WHERE evaluation_id = ?
    ORDER BY created_at
  `, evaluationID)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []Feedback
	for rows.Next() {
		var f Feedback
		var created string
		if err := rows.Scan(&f.ID, &f.EvaluationID, &f.AuthorID, &f.Type, &f.Content, &created); err != nil {
			return nil, apperr.Unavailable(err)
		}
		if f.CreatedAt, err = sqlite.ParseTime(created); err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, f)
	}
	return out, apperr.Unavailable(rows.Err())
}

const sqlitePDIColumns = `id, evaluation_id, development_area, actions, timeline, responsible, status, created_at, updated_at`

func scanSQLitePDI(row rowScanner) (PDIItem, error) {
	var p PDIItem
	var created, updated string
	if err := row.Scan(&p.ID, &p.EvaluationID, &p.DevelopmentArea, &p.Actions, &p.Timeline, &p.Responsible, &p.Status, &created, &updated); err != nil {
		return PDIItem{}, err
	}
	var err error
	if p.CreatedAt, err = sqlite.ParseTime(created); err != nil {
		return PDIItem{}, err
	}
	p.UpdatedAt, err = sqlite.ParseTime(updated)
	return p, err
}

func (s *SQLiteStore) AddPDI(ctx context.Context, item PDIItem) (PDIItem, error) {
	item.ID = uuid.NewString()
	now := time.Now().UTC()
	item.CreatedAt, item.UpdatedAt = now, now
	_, err := s.DB.ExecContext(ctx, `
    INSERT INTO pdi_items (id, evaluation_id, development_area, actions, timeline, responsible, status, created_at, updated_at)
    VALUES (?,?,?,?,?,?,?,?,?)
  `, item.ID, item.EvaluationID, item.DevelopmentArea, item.Actions, item.Timeline, item.Responsible, item.Status,
		sqlite.FormatTime(now), sqlite.FormatTime(now))
	if err != nil {
		return PDIItem{}, apperr.Unavailable(err)
	}
	return item, nil
}

func (s *SQLiteStore) GetPDI(ctx context.Context, evaluationID, id string) (PDIItem, error) {
	p, err := scanSQLitePDI(s.DB.QueryRowContext(ctx, `SELECT `+sqlitePDIColumns+` FROM pdi_items WHERE id = ? AND evaluation_id = ?`, id, evaluationID))
	if errors.Is(err, sql.ErrNoRows) {
		return PDIItem{}, ErrPDINotFound
	}
	if err != nil {
		return PDIItem{}, apperr.Unavailable(err)
	}
	return p, nil
}

func (s *SQLiteStore) UpdatePDI(ctx context.Context, item PDIItem) (PDIItem, error) {
	res, err := s.DB.ExecContext(ctx, `
    UPDATE pdi_items
    SET development_area = ?, actions = ?, timeline = ?, responsible = ?, status = ?, updated_at = ?
    WHERE id = ? AND evaluation_id = ?
  `, item.DevelopmentArea, item.Actions, item.Timeline, item.Responsible, item.Status, sqlite.FormatTime(time.Now()),
		item.ID, item.EvaluationID)
	if err != nil {
		return PDIItem{}, apperr.Unavailable(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return PDIItem{}, ErrPDINotFound
	}
	return s.GetPDI(ctx, item.EvaluationID, item.ID)
}

func (s *SQLiteStore) ListPDI(ctx context.Context, evaluationID string) ([]PDIItem, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+sqlitePDIColumns+` FROM pdi_items WHERE evaluation_id = ? ORDER BY created_at`, evaluationID)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []PDIItem
	for rows.Next() {
		p, err := scanSQLitePDI(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, p)
	}
	return out, apperr.Unavailable(rows.Err())
}
