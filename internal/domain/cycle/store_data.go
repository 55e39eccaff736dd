package cycle

import (
	"context"
	"errors"
	"time"

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

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

const cycleColumns = `id::text, name, type, start_date, end_date, COALESCE(parent_cycle_id::text, ''), status, created_at, updated_at`

func scanCycle(row pgx.Row) (Cycle, error) {
	var c Cycle
	err := row.Scan(&c.ID, &c.Name, &c.Type, &c.StartDate, &c.EndDate, &c.ParentCycleID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

const statusColumns = `s.id::text, s.cycle_id::text, s.employee_id::text, s.current_status, s.self_evaluation_date,
  s.leader_evaluation_date, s.feedback_date, s.pdi_date, s.completion_date, s.is_overdue, s.created_at, s.updated_at`

func scanStatus(row pgx.Row) (Status, error) {
	var st Status
	err := row.Scan(&st.ID, &st.CycleID, &st.EmployeeID, &st.CurrentStatus, &st.SelfEvaluationDate,
		&st.LeaderEvaluationDate, &st.FeedbackDate, &st.PDIDate, &st.CompletionDate, &st.IsOverdue,
		&st.CreatedAt, &st.UpdatedAt)
	st.Progress = Progress(st.CurrentStatus)
	return st, err
}

func (s *Store) CreateCycle(ctx context.Context, c Cycle) (Cycle, error) {
	created, err := scanCycle(s.DB.QueryRow(ctx, `
    INSERT INTO performance_cycles (name, type, start_date, end_date, parent_cycle_id, status)
    VALUES ($1,$2,$3,$4,$5,$6)
    RETURNING `+cycleColumns,
		c.Name, c.Type, c.StartDate, c.EndDate, nullIfEmpty(c.ParentCycleID), c.Status))
	if db.IsForeignKeyViolation(err) {
		return Cycle{}, ErrCycleNotFound.WithMessage("parent cycle %s not found", c.ParentCycleID)
	}
	if err != nil {
		return Cycle{}, apperr.Unavailable(err)
	}
	return created, nil
}

func (s *Store) GetCycle(ctx context.Context, id string) (Cycle, error) {
	if !validID(id) {
		return Cycle{}, ErrCycleNotFound
	}
	c, err := scanCycle(s.DB.QueryRow(ctx, `SELECT `+cycleColumns+` FROM performance_cycles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Cycle{}, ErrCycleNotFound
	}
	if err != nil {
		return Cycle{}, apperr.Unavailable(err)
	}
	return c, nil
}

func (s *Store) ListCycles(ctx context.Context, filter Filter) ([]Cycle, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+cycleColumns+`
    FROM performance_cycles
    WHERE ($1 = '' OR status = $1) AND ($2 = '' OR type = $2)
    ORDER BY start_date DESC
  `, filter.Status, filter.Type)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, c)
	}
	return out, apperr.Unavailable(rows.Err())
}

func (s *Store) CurrentCycle(ctx context.Context, now time.Time) (Cycle, error) {
	c, err := scanCycle(s.DB.QueryRow(ctx, `
    SELECT `+cycleColumns+`
    FROM performance_cycles
    WHERE status = $1 AND start_date <= $2 AND end_date >= $2
    ORDER BY start_date DESC
    LIMIT 1
  `, CycleActive, now))
	if errors.Is(err, pgx.ErrNoRows) {
		return Cycle{}, ErrNoCurrentCycle
	}
	if err != nil {
		return Cycle{}, apperr.Unavailable(err)
	}
	return c, nil
}

func (s *Store) SetCycleStatus(ctx context.Context, id, from, to string) (Cycle, error) {
	if !validID(id) {
		return Cycle{}, ErrCycleNotFound
	}
	c, err := scanCycle(s.DB.QueryRow(ctx, `
    UPDATE performance_cycles SET status = $3, updated_at = now()
    WHERE id = $1 AND status = $2
    RETURNING `+cycleColumns, id, from, to))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.GetCycle(ctx, id); getErr != nil {
			return Cycle{}, getErr
		}
		return Cycle{}, ErrStatusChanged
	}
	if err != nil {
		return Cycle{}, apperr.Unavailable(err)
	}
	return c, nil
}

func (s *Store) Enroll(ctx context.Context, cycleID string, employeeIDs []string) (int, error) {
	if !validID(cycleID) {
		return 0, ErrCycleNotFound
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return 0, apperr.Unavailable(err)
	}
	defer tx.Rollback(ctx)

	enrolled := 0
	for _, employeeID := range employeeIDs {
		if !validID(employeeID) {
			return 0, apperr.Newf(apperr.KindNotFound, "employee %s not found", employeeID)
		}
		tag, err := tx.Exec(ctx, `
      INSERT INTO cycle_statuses (cycle_id, employee_id, current_status)
      VALUES ($1,$2,$3)
      ON CONFLICT (cycle_id, employee_id) DO NOTHING
    `, cycleID, employeeID, StagePlanning)
		if db.IsForeignKeyViolation(err) {
			return 0, apperr.Newf(apperr.KindNotFound, "employee %s not found", employeeID)
		}
		if err != nil {
			return 0, apperr.Unavailable(err)
		}
		enrolled += int(tag.RowsAffected())
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, apperr.Unavailable(err)
	}
	return enrolled, nil
}

func (s *Store) GetStatus(ctx context.Context, cycleID, employeeID string) (Status, error) {
	if !validID(cycleID) || !validID(employeeID) {
		return Status{}, ErrStatusNotFound
	}
	st, err := scanStatus(s.DB.QueryRow(ctx, `
    SELECT `+statusColumns+` FROM cycle_statuses s WHERE s.cycle_id = $1 AND s.employee_id = $2
  `, cycleID, employeeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Status{}, ErrStatusNotFound
	}
	if err != nil {
		return Status{}, apperr.Unavailable(err)
	}
	return st, nil
}

func (s *Store) queryStatuses(ctx context.Context, query string, arg string) ([]Status, error) {
	rows, err := s.DB.Query(ctx, query, arg)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []Status
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, st)
	}
	return out, apperr.Unavailable(rows.Err())
}

func (s *Store) ListStatuses(ctx context.Context, cycleID string) ([]Status, error) {
	if !validID(cycleID) {
		return nil, ErrCycleNotFound
	}
	return s.queryStatuses(ctx, `
    SELECT `+statusColumns+` FROM cycle_statuses s WHERE s.cycle_id = $1 ORDER BY s.created_at
  `, cycleID)
}

func (s *Store) History(ctx context.Context, employeeID string) ([]Status, error) {
	if !validID(employeeID) {
		return nil, nil
	}
	return s.queryStatuses(ctx, `
    SELECT `+statusColumns+`
    FROM cycle_statuses s
    JOIN performance_cycles c ON c.id = s.cycle_id
    WHERE s.employee_id = $1
    ORDER BY c.start_date, c.id
  `, employeeID)
}

// MutateStatus creates the row on first use and holds a row lock while fn
// runs, so transitions of one (cycle, employee) pair are serialized.
func (s *Store) MutateStatus(ctx context.Context, cycleID, employeeID string, fn StatusFunc) (Status, error) {
	if !validID(cycleID) {
		return Status{}, ErrCycleNotFound
	}
	if !validID(employeeID) {
		return Status{}, ErrStatusNotFound
	}
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Status{}, apperr.Unavailable(err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
    INSERT INTO cycle_statuses (cycle_id, employee_id, current_status)
    VALUES ($1,$2,$3)
    ON CONFLICT (cycle_id, employee_id) DO NOTHING
  `, cycleID, employeeID, StagePlanning)
	if db.IsForeignKeyViolation(err) {
		return Status{}, ErrStatusNotFound.WithMessage("cycle or employee does not exist")
	}
	if err != nil {
		return Status{}, apperr.Unavailable(err)
	}
	st, err := scanStatus(tx.QueryRow(ctx, `
    SELECT `+statusColumns+` FROM cycle_statuses s WHERE s.cycle_id = $1 AND s.employee_id = $2 FOR UPDATE
  `, cycleID, employeeID))
	if err != nil {
		return Status{}, apperr.Unavailable(err)
	}
	read := st

	if err := fn(&st); err != nil {
		if errors.Is(err, errNoChange) {
			return read, nil
		}
		return Status{}, err
	}

	if err := tx.QueryRow(ctx, `
    UPDATE cycle_statuses
    SET current_status = $2,
        self_evaluation_date = COALESCE(self_evaluation_date, $3),
        leader_evaluation_date = COALESCE(leader_evaluation_date, $4),
        feedback_date = COALESCE(feedback_date, $5),
        pdi_date = COALESCE(pdi_date, $6),
        completion_date = COALESCE(completion_date, $7),
        is_overdue = $8,
        updated_at = now()
    WHERE id = $1
    RETURNING updated_at
  `, st.ID, st.CurrentStatus, st.SelfEvaluationDate, st.LeaderEvaluationDate, st.FeedbackDate, st.PDIDate,
		st.CompletionDate, st.IsOverdue).Scan(&st.UpdatedAt); err != nil {
		return Status{}, apperr.Unavailable(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Status{}, apperr.Unavailable(err)
	}
	return st, nil
}

func (s *Store) SetOverdue(ctx context.Context, id, stage string, overdue bool) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE cycle_statuses SET is_overdue = $3, updated_at = now()
    WHERE id = $1 AND current_status = $2 AND is_overdue <> $3
  `, id, stage, overdue)
	if err != nil {
		return false, apperr.Unavailable(err)
	}
	return tag.RowsAffected() == 1, nil
}
