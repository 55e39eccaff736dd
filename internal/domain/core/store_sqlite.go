package core

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

func sqliteErr(err error, notFound error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return notFound
	case sqlite.IsUniqueViolation(err):
		return ErrDuplicate
	default:
		return apperr.Unavailable(err)
	}
}

func parseStamps(created, updated string, createdAt, updatedAt *time.Time) error {
	var err error
	if *createdAt, err = sqlite.ParseTime(created); err != nil {
		return err
	}
	*updatedAt, err = sqlite.ParseTime(updated)
	return err
}

const sqlitePositionColumns = `id, name, description, responsibilities, requirements, created_at, updated_at`

func scanSQLitePosition(row rowScanner) (Position, error) {
	var p Position
	var created, updated string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Responsibilities, &p.Requirements, &created, &updated); err != nil {
		return Position{}, err
	}
	return p, parseStamps(created, updated, &p.CreatedAt, &p.UpdatedAt)
}

func (s *SQLiteStore) ListPositions(ctx context.Context) ([]Position, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+sqlitePositionColumns+` FROM positions ORDER BY name`)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []Position
	for rows.Next() {
		p, err := scanSQLitePosition(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, p)
	}
	return out, apperr.Unavailable(rows.Err())
}

func (s *SQLiteStore) GetPosition(ctx context.Context, id string) (Position, error) {
	p, err := scanSQLitePosition(s.DB.QueryRowContext(ctx, `SELECT `+sqlitePositionColumns+` FROM positions WHERE id = ?`, id))
	if err != nil {
		return Position{}, sqliteErr(err, ErrPositionNotFound)
	}
	return p, nil
}

func (s *SQLiteStore) CreatePosition(ctx context.Context, p Position) (Position, error) {
	p.ID = uuid.NewString()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := s.DB.ExecContext(ctx, `
    INSERT INTO positions (id, name, description, responsibilities, requirements, created_at, updated_at)
    VALUES (?,?,?,?,?,?,?)
  `, p.ID, p.Name, p.Description, p.Responsibilities, p.Requirements, sqlite.FormatTime(now), sqlite.FormatTime(now))
	if err != nil {
		return Position{}, sqliteErr(err, ErrPositionNotFound)
	}
	return p, nil
}

func (s *SQLiteStore) UpdatePosition(ctx context.Context, p Position) (Position, error) {
	res, err := s.DB.ExecContext(ctx, `
    UPDATE positions
    SET name = ?, description = ?, responsibilities = ?, requirements = ?, updated_at = ?
    WHERE id = ?
  `, p.Name, p.Description, p.Responsibilities, p.Requirements, sqlite.FormatTime(time.Now()), p.ID)
	if err != nil {
		return Position{}, sqliteErr(err, ErrPositionNotFound)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Position{}, ErrPositionNotFound
	}
	return s.GetPosition(ctx, p.ID)
}

func (s *SQLiteStore) DeletePosition(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `
    DELETE FROM positions
    WHERE id = ? AND NOT EXISTS (SELECT 1 FROM employees WHERE position_id = ?)
  `, id, id)
	if err != nil {
		return apperr.Unavailable(err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := s.GetPosition(ctx, id); err != nil {
		return err
	}
	return ErrPositionInUse
}

const sqliteCompetencyColumns = `id, name, category, description, created_at, updated_at`

func scanSQLiteCompetency(row rowScanner) (Competency, error) {
	var c Competency
	var created, updated string
	if err := row.Scan(&c.ID, &c.Name, &c.Category, &c.Description, &created, &updated); err != nil {
		return Competency{}, err
	}
	return c, parseStamps(created, updated, &c.CreatedAt, &c.UpdatedAt)
}

func (s *SQLiteStore) ListCompetencies(ctx context.Context) ([]Competency, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+sqliteCompetencyColumns+` FROM competencies ORDER BY category, name`)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []Competency
	for rows.Next() {
		c, err := scanSQLiteCompetency(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, c)
	}
	return out, apperr.Unavailable(rows.Err())
}

func (s *SQLiteStore) GetCompetency(ctx context.Context, id string) (Competency, error) {
	c, err := scanSQLiteCompetency(s.DB.QueryRowContext(ctx, `SELECT `+sqliteCompetencyColumns+` FROM competencies WHERE id = ?`, id))
	if err != nil {
		return Competency{}, sqliteErr(err, ErrCompetencyNotFound)
	}
	return c, nil
}

func (s *SQLiteStore) CreateCompetency(ctx context.Context, c Competency) (Competency, error) {
	c.ID = uuid.NewString()
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := s.DB.ExecContext(ctx, `
    INSERT INTO competencies (id, name, category, description, created_at, updated_at)
    VALUES (?,?,?,?,?,?)
  `, c.ID, c.Name, c.Category, c.Description, sqlite.FormatTime(now), sqlite.FormatTime(now))
	if err != nil {
		return Competency{}, sqliteErr(err, ErrCompetencyNotFound)
	}
	return c, nil
}

func (s *SQLiteStore) UpdateCompetency(ctx context.Context, c Competency) (Competency, error) {
	res, err := s.DB.ExecContext(ctx, `
    UPDATE competencies
    SET name = ?, category = ?, description = ?, updated_at = ?
    WHERE id = ? AND NOT EXISTS (SELECT 1 FROM evaluation_weights WHERE competency_id = ?)
  `, c.Name, c.Category, c.Description, sqlite.FormatTime(time.Now()), c.ID, c.ID)
	if err != nil {
		return Competency{}, sqliteErr(err, ErrCompetencyNotFound)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetCompetency(ctx, c.ID); err != nil {
			return Competency{}, err
		}
		return Competency{}, ErrCompetencyReferenced
	}
	return s.GetCompetency(ctx, c.ID)
}

func (s *SQLiteStore) DeleteCompetency(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `
    DELETE FROM competencies
    WHERE id = ? AND NOT EXISTS (SELECT 1 FROM evaluation_weights WHERE competency_id = ?)
  `, id, id)
	if err != nil {
		return apperr.Unavailable(err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}
	if _, err := s.GetCompetency(ctx, id); err != nil {
		return err
	}
	return ErrCompetencyReferenced
}

const sqliteEmployeeColumns = `e.id, COALESCE(e.user_id, ''), e.code, e.name, COALESCE(e.position_id, ''),
  COALESCE(p.name, ''), e.department, COALESCE(e.manager_id, ''), e.status, e.created_at, e.updated_at`

func scanSQLiteEmployee(row rowScanner) (Employee, error) {
	var e Employee
	var created, updated string
	if err := row.Scan(&e.ID, &e.UserID, &e.Code, &e.Name, &e.PositionID, &e.PositionName, &e.Department,
		&e.ManagerID, &e.Status, &created, &updated); err != nil {
		return Employee{}, err
	}
	return e, parseStamps(created, updated, &e.CreatedAt, &e.UpdatedAt)
}

func (s *SQLiteStore) ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, error) {
	query := `SELECT ` + sqliteEmployeeColumns + employeeFrom + ` WHERE 1=1`
	var args []any
	if filter.ManagerID != "" {
		query += " AND e.manager_id = ?"
		args = append(args, filter.ManagerID)
	}
	if filter.PositionID != "" {
		query += " AND e.position_id = ?"
		args = append(args, filter.PositionID)
	}
	if filter.Department != "" {
		query += " AND e.department = ?"
		args = append(args, filter.Department)
	}
	query += " ORDER BY e.name"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []Employee
	for rows.Next() {
		e, err := scanSQLiteEmployee(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, e)
	}
	return out, apperr.Unavailable(rows.Err())
}

func (s *SQLiteStore) GetEmployee(ctx context.Context, id string) (Employee, error) {
	e, err := scanSQLiteEmployee(s.DB.QueryRowContext(ctx, `SELECT `+sqliteEmployeeColumns+employeeFrom+` WHERE e.id = ?`, id))
	if err != nil {
		return Employee{}, sqliteErr(err, ErrEmployeeNotFound)
	}
	return e, nil
}

func (s *SQLiteStore) CreateEmployee(ctx context.Context, e Employee) (Employee, error) {
	e.ID = uuid.NewString()
	if e.Status == "" {
		e.Status = EmployeeStatusActive
	}
	now := sqlite.FormatTime(time.Now())
	_, err := s.DB.ExecContext(ctx, `
    INSERT INTO employees (id, user_id, code, name, position_id, department, manager_id, status, created_at, updated_at)
    VALUES (?,?,?,?,?,?,?,?,?,?)
  `, e.ID, nullIfEmpty(e.UserID), e.Code, e.Name, nullIfEmpty(e.PositionID), e.Department, nullIfEmpty(e.ManagerID), e.Status, now, now)
	if err != nil {
		return Employee{}, sqliteErr(err, ErrEmployeeNotFound)
	}
	return s.GetEmployee(ctx, e.ID)
}

func (s *SQLiteStore) UpdateEmployee(ctx context.Context, e Employee) (Employee, error) {
	res, err := s.DB.ExecContext(ctx, `
    UPDATE employees
    SET user_id = ?, code = ?, name = ?, position_id = ?, department = ?, manager_id = ?, status = ?, updated_at = ?
    WHERE id = ?
  `, nullIfEmpty(e.UserID), e.Code, e.Name, nullIfEmpty(e.PositionID), e.Department, nullIfEmpty(e.ManagerID), e.Status,
		sqlite.FormatTime(time.Now()), e.ID)
	if err != nil {
		return Employee{}, sqliteErr(err, ErrEmployeeNotFound)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Employee{}, ErrEmployeeNotFound
	}
	return s.GetEmployee(ctx, e.ID)
}

const sqliteAuthorizationColumns = `id, leader_id, employee_id, authorized_by, status, created_at, revoked_at`

func scanSQLiteAuthorization(row rowScanner) (Authorization, error) {
	var a Authorization
	var created string
	var revoked sql.NullString
	if err := row.Scan(&a.ID, &a.LeaderID, &a.EmployeeID, &a.AuthorizedBy, &a.Status, &created, &revoked); err != nil {
		return Authorization{}, err
	}
	var err error
	if a.CreatedAt, err = sqlite.ParseTime(created); err != nil {
		return Authorization{}, err
	}
	a.RevokedAt, err = sqlite.ParseNullTime(revoked)
	return a, err
}

func (s *SQLiteStore) ListAuthorizations(ctx context.Context, filter AuthorizationFilter) ([]Authorization, error) {
	query := `SELECT ` + sqliteAuthorizationColumns + ` FROM evaluation_authorizations WHERE 1=1`
	var args []any
	if filter.LeaderID != "" {
		query += " AND leader_id = ?"
		args = append(args, filter.LeaderID)
	}
	if filter.EmployeeID != "" {
		query += " AND employee_id = ?"
		args = append(args, filter.EmployeeID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []Authorization
	for rows.Next() {
		a, err := scanSQLiteAuthorization(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, a)
	}
	return out, apperr.Unavailable(rows.Err())
}

func (s *SQLiteStore) CreateAuthorization(ctx context.Context, a Authorization) (Authorization, error) {
	a.ID = uuid.NewString()
	a.Status = AuthorizationActive
	a.CreatedAt = time.Now().UTC()
	_, err := s.DB.ExecContext(ctx, `
    INSERT INTO evaluation_authorizations (id, leader_id, employee_id, authorized_by, status, created_at)
    VALUES (?,?,?,?,?,?)
  `, a.ID, a.LeaderID, a.EmployeeID, a.AuthorizedBy, a.Status, sqlite.FormatTime(a.CreatedAt))
	if sqlite.IsUniqueViolation(err) {
		return Authorization{}, ErrAuthorizationExists
	}
	if err != nil {
		return Authorization{}, sqliteErr(err, ErrAuthorizationNotFound)
	}
	return a, nil
}

func (s *SQLiteStore) RevokeAuthorization(ctx context.Context, id string, at time.Time) (Authorization, error) {
	res, err := s.DB.ExecContext(ctx, `
    UPDATE evaluation_authorizations
    SET status = ?, revoked_at = COALESCE(revoked_at, ?)
    WHERE id = ?
  `, AuthorizationRevoked, sqlite.FormatTime(at), id)
	if err != nil {
		return Authorization{}, apperr.Unavailable(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Authorization{}, ErrAuthorizationNotFound
	}
	a, err := scanSQLiteAuthorization(s.DB.QueryRowContext(ctx,
		`SELECT `+sqliteAuthorizationColumns+` FROM evaluation_authorizations WHERE id = ?`, id))
	if err != nil {
		return Authorization{}, sqliteErr(err, ErrAuthorizationNotFound)
	}
	return a, nil
}

func (s *SQLiteStore) ActiveAuthorization(ctx context.Context, leaderID, employeeID string) (bool, error) {
	var exists int
	err := s.DB.QueryRowContext(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM evaluation_authorizations
      WHERE leader_id = ? AND employee_id = ? AND status = ?
    )
  `, leaderID, employeeID, AuthorizationActive).Scan(&exists)
	if err != nil {
		return false, apperr.Unavailable(err)
	}
	return exists == 1, nil
}
