package cycle

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

type rowScanner interface {
	Scan(dest ...any) error
}

const sqliteCycleColumns = `id, name, type, start_date, end_date, COALESCE(parent_cycle_id, ''), status, created_at, updated_at`

func scanSQLiteCycle(row rowScanner) (Cycle, error) {
	var c Cycle
	var start, end, created, updated string
	if err := row.Scan(&c.ID, &c.Name, &c.Type, &start, &end, &c.ParentCycleID, &c.Status, &created, &updated); err != nil {
		return Cycle{}, err
	}
	var err error
	for _, f := range []struct {
		raw string
		dst *time.Time
	}{{start, &c.StartDate}, {end, &c.EndDate}, {created, &c.CreatedAt}, {updated, &c.UpdatedAt}} {
		if *f.dst, err = sqlite.ParseTime(f.raw); err != nil {
			return Cycle{}, err
		}
	}
	return c, nil
}

const sqliteStatusColumns = `s.id, s.cycle_id, s.employee_id, s.current_status, s.self_evaluation_date,
  s.leader_evaluation_date, s.feedback_date, s.pdi_date, s.completion_date, s.is_overdue, s.created_at, s.updated_at`

func scanSQLiteStatus(row rowScanner) (Status, error) {
	var st Status
	var self, leader, feedback, pdi, completion sql.NullString
	var created, updated string
	if err := row.Scan(&st.ID, &st.CycleID, &st.EmployeeID, &st.CurrentStatus, &self, &leader, &feedback, &pdi,
		&completion, &st.IsOverdue, &created, &updated); err != nil {
		return Status{}, err
	}
	var err error
	for _, f := range []struct {
		raw sql.NullString
		dst **time.Time
	}{{self, &st.SelfEvaluationDate}, {leader, &st.LeaderEvaluationDate}, {feedback, &st.FeedbackDate}, {pdi, &st.PDIDate}, {completion, &st.CompletionDate}} {
		if *f.dst, err = sqlite.ParseNullTime(f.raw); err != nil {
			return Status{}, err
		}
	}
	if st.CreatedAt, err = sqlite.ParseTime(created); err != nil {
		return Status{}, err
	}
	if st.UpdatedAt, err = sqlite.ParseTime(updated); err != nil {
		return Status{}, err
	}
	st.Progress = Progress(st.CurrentStatus)
	return st, nil
}

func (s *SQLiteStore) CreateCycle(ctx context.Context, c Cycle) (Cycle, error) {
	if c.ParentCycleID != "" {
		if _, err := s.GetCycle(ctx, c.ParentCycleID); err != nil {
			return Cycle{}, err
		}
	}
	c.ID = uuid.NewString()
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := s.DB.ExecContext(ctx, `
    INSERT INTO performance_cycles (id, name, type, start_date, end_date, parent_cycle_id, status, created_at, updated_at)
    VALUES (?,?,?,?,?,?,?,?,?)
  `, c.ID, c.Name, c.Type, sqlite.FormatTime(c.StartDate), sqlite.FormatTime(c.EndDate), nullIfEmpty(c.ParentCycleID),
		c.Status, sqlite.FormatTime(now), sqlite.FormatTime(now))
	if err != nil {
		return Cycle{}, apperr.Unavailable(err)
	}
	c.StartDate, c.EndDate = c.StartDate.UTC(), c.EndDate.UTC()
	return c, nil
}

func (s *SQLiteStore) GetCycle(ctx context.Context, id string) (Cycle, error) {
	c, err := scanSQLiteCycle(s.DB.QueryRowContext(ctx, `SELECT `+sqliteCycleColumns+` FROM performance_cycles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Cycle{}, ErrCycleNotFound
	}
	if err != nil {
		return Cycle{}, apperr.Unavailable(err)
	}
	return c, nil
}

func (s *SQLiteStore) ListCycles(ctx context.Context, filter Filter) ([]Cycle, error) {
	rows, err := s.DB.QueryContext(ctx, `
    SELECT `+sqliteCycleColumns+`
    FROM performance_cycles
    WHERE (? = '' OR status = ?) AND (? = '' OR type = ?)
    ORDER BY start_date DESC
  `, filter.Status, filter.Status, filter.Type, filter.Type)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []Cycle
	for rows.Next() {
		c, err := scanSQLiteCycle(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, c)
	}
	return out, apperr.Unavailable(rows.Err())
}

// CurrentCycle compares RFC3339Nano UTC strings, which sort like the instants
// they encode.
func (s *SQLiteStore) CurrentCycle(ctx context.Context, now time.Time) (Cycle, error) {
	stamp := sqlite.FormatTime(now)
	c, err := scanSQLiteCycle(s.DB.QueryRowContext(ctx, `
    SELECT `+sqliteCycleColumns+`
    FROM performance_cycles
    WHERE status = ? AND start_date <= ? AND end_date >= ?
    ORDER BY start_date DESC
    LIMIT 1
  `, CycleActive, stamp, stamp))
	if errors.Is(err, sql.ErrNoRows) {
		return Cycle{}, ErrNoCurrentCycle
	}
	if err != nil {
		return Cycle{}, apperr.Unavailable(err)
	}
	return c, nil
}

func (s *SQLiteStore) SetCycleStatus(ctx context.Context, id, from, to string) (Cycle, error) {
	res, err := s.DB.ExecContext(ctx, `
    UPDATE performance_cycles SET status = ?, updated_at = ? WHERE id = ? AND status = ?
  `, to, sqlite.FormatTime(time.Now()), id, from)
	if err != nil {
		return Cycle{}, apperr.Unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Cycle{}, apperr.Unavailable(err)
	}
	c, err := s.GetCycle(ctx, id)
	if err != nil {
		return Cycle{}, err
	}
	if n == 0 {
		return Cycle{}, ErrStatusChanged
	}
	return c, nil
}

func (s *SQLiteStore) Enroll(ctx context.Context, cycleID string, employeeIDs []string) (int, error) {
	enrolled := 0
	err := sqlite.WithinTx(ctx, s.DB, func(tx *sql.Tx) error {
		now := sqlite.FormatTime(time.Now())
		for _, employeeID := range employeeIDs {
			var exists int
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM employees WHERE id = ?)`, employeeID).Scan(&exists); err != nil {
				return apperr.Unavailable(err)
			}
			if exists == 0 {
				return apperr.Newf(apperr.KindNotFound, "employee %s not found", employeeID)
			}
			res, err := tx.ExecContext(ctx, `
        INSERT INTO cycle_statuses (id, cycle_id, employee_id, current_status, created_at, updated_at)
        VALUES (?,?,?,?,?,?)
        ON CONFLICT (cycle_id, employee_id) DO NOTHING
      `, uuid.NewString(), cycleID, employeeID, StagePlanning, now, now)
			if err != nil {
				return apperr.Unavailable(err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return apperr.Unavailable(err)
			}
			enrolled += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, apperr.Unavailable(err)
	}
	return enrolled, nil
}

func (s *SQLiteStore) GetStatus(ctx context.Context, cycleID, employeeID string) (Status, error) {
	st, err := scanSQLiteStatus(s.DB.QueryRowContext(ctx, `
    SELECT `+sqliteStatusColumns+` FROM cycle_statuses s WHERE s.cycle_id = ? AND s.employee_id = ?
  `, cycleID, employeeID))
	if errors.Is(err, sql.ErrNoRows) {
		return Status{}, ErrStatusNotFound
	}
	if err != nil {
		return Status{}, apperr.Unavailable(err)
	}
	return st, nil
}

func (s *SQLiteStore) queryStatuses(ctx context.Context, query string, arg string) ([]Status, error) {
	rows, err := s.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []Status
	for rows.Next() {
		st, err := scanSQLiteStatus(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, st)
	}
	return out, apperr.Unavailable(rows.Err())
}

func (s *SQLiteStore) ListStatuses(ctx context.Context, cycleID string) ([]Status, error) {
	return s.queryStatuses(ctx, `
    SELECT `+sqliteStatusColumns+` FROM cycle_statuses s WHERE s.cycle_id = ? ORDER BY s.created_at
  `, cycleID)
}

func (s *SQLiteStore) History(ctx context.Context, employeeID string) ([]Status, error) {
	return s.queryStatuses(ctx, `
    SELECT `+sqliteStatusColumns+`
    FROM cycle_statuses s
    JOIN performance_cycles c ON c.id = s.cycle_id
    WHERE s.employee_id = ?
    ORDER BY c.start_date, c.id
  `, employeeID)
}

func (s *SQLiteStore) MutateStatus(ctx context.Context, cycleID, employeeID string, fn StatusFunc) (Status, error) {
	var st Status
	var unchanged bool
	err := sqlite.WithinTx(ctx, s.DB, func(tx *sql.Tx) error {
		now := sqlite.FormatTime(time.Now())
		for _, check := range []struct {
			query string
			id    string
		}{
			{`SELECT EXISTS (SELECT 1 FROM performance_cycles WHERE id = ?)`, cycleID},
			{`SELECT EXISTS (SELECT 1 FROM employees WHERE id = ?)`, employeeID},
		} {
			var exists int
			if err := tx.QueryRowContext(ctx, check.query, check.id).Scan(&exists); err != nil {
				return apperr.Unavailable(err)
			}
			if exists == 0 {
				return ErrStatusNotFound.WithMessage("cycle or employee does not exist")
			}
		}
		if _, err := tx.ExecContext(ctx, `
      INSERT INTO cycle_statuses (id, cycle_id, employee_id, current_status, created_at, updated_at)
      VALUES (?,?,?,?,?,?)
      ON CONFLICT (cycle_id, employee_id) DO NOTHING
    `, uuid.NewString(), cycleID, employeeID, StagePlanning, now, now); err != nil {
			return apperr.Unavailable(err)
		}
		var err error
		st, err = scanSQLiteStatus(tx.QueryRowContext(ctx, `
      SELECT `+sqliteStatusColumns+` FROM cycle_statuses s WHERE s.cycle_id = ? AND s.employee_id = ?
    `, cycleID, employeeID))
		if err != nil {
			return apperr.Unavailable(err)
		}
		read := st

		if err := fn(&st); err != nil {
			if errors.Is(err, errNoChange) {
				st, unchanged = read, true
			}
			return err
		}

		st.UpdatedAt = time.Now().UTC()
		if _, err := tx.ExecContext(ctx, `
      UPDATE cycle_statuses
      SET current_status = ?,
          self_evaluation_date = COALESCE(self_evaluation_date, ?),
          leader_evaluation_date = COALESCE(leader_evaluation_date, ?),
          feedback_date = COALESCE(feedback_date, ?),
          pdi_date = COALESCE(pdi_date, ?),
          completion_date = COALESCE(completion_date, ?),
          is_overdue = ?,
          updated_at = ?
      WHERE id = ?
    `, st.CurrentStatus, sqlite.NullTime(st.SelfEvaluationDate), sqlite.NullTime(st.LeaderEvaluationDate),
			sqlite.NullTime(st.FeedbackDate), sqlite.NullTime(st.PDIDate), sqlite.NullTime(st.CompletionDate),
			st.IsOverdue, sqlite.FormatTime(st.UpdatedAt), st.ID); err != nil {
			return apperr.Unavailable(err)
		}
		return nil
	})
	if unchanged {
		return st, nil
	}
	if err != nil {
		return Status{}, apperr.Unavailable(err)
	}
	return st, nil
}

func (s *SQLiteStore) SetOverdue(ctx context.Context, id, stage string, overdue bool) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `
    UPDATE cycle_statuses SET is_overdue = ?, updated_at = ?
    WHERE id = ? AND current_status = ? AND is_overdue <> ?
  `, overdue, sqlite.FormatTime(time.Now()), id, stage, overdue)
	if err != nil {
		return false, apperr.Unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperr.Unavailable(err)
	}
	return n == 1, nil
}
