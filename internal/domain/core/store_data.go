package core

import (
	"context"
	"errors"
	"strings"
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
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func storeErr(err error, notFound error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return notFound
	case db.IsUniqueViolation(err):
		return ErrDuplicate
	case db.IsForeignKeyViolation(err):
		return apperr.Wrap(apperr.KindInvalidInput, "referenced record does not exist", err)
	default:
		return apperr.Unavailable(err)
	}
}

const positionColumns = `id::text, name, description, responsibilities, requirements, created_at, updated_at`

func scanPosition(row pgx.Row) (Position, error) {
	var p Position
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Responsibilities, &p.Requirements, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *Store) ListPositions(ctx context.Context) ([]Position, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+positionColumns+` FROM positions ORDER BY name`)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, p)
	}
	return out, apperr.Unavailable(rows.Err())
}

func (s *Store) GetPosition(ctx context.Context, id string) (Position, error) {
	if !validID(id) {
		return Position{}, ErrPositionNotFound
	}
	p, err := scanPosition(s.DB.QueryRow(ctx, `SELECT `+positionColumns+` FROM positions WHERE id = $1`, id))
	if err != nil {
		return Position{}, storeErr(err, ErrPositionNotFound)
	}
	return p, nil
}

func (s *Store) CreatePosition(ctx context.Context, p Position) (Position, error) {
	out, err := scanPosition(s.DB.QueryRow(ctx, `
    INSERT INTO positions (name, description, responsibilities, requirements)
    VALUES ($1,$2,$3,$4)
    RETURNING `+positionColumns,
		p.Name, p.Description, p.Responsibilities, p.Requirements))
	if err != nil {
		return Position{}, storeErr(err, ErrPositionNotFound)
	}
	return out, nil
}

func (s *Store) UpdatePosition(ctx context.Context, p Position) (Position, error) {
	if !validID(p.ID) {
		return Position{}, ErrPositionNotFound
	}
	out, err := scanPosition(s.DB.QueryRow(ctx, `
    UPDATE positions
    SET name = $2, description = $3, responsibilities = $4, requirements = $5, updated_at = now()
    WHERE id = $1
    RETURNING `+positionColumns,
		p.ID, p.Name, p.Description, p.Responsibilities, p.Requirements))
	if err != nil {
		return Position{}, storeErr(err, ErrPositionNotFound)
	}
	return out, nil
}

func (s *Store) DeletePosition(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrPositionNotFound
	}
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM positions
    WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM employees WHERE position_id = $1)
  `, id)
	if err != nil {
		return apperr.Unavailable(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := s.GetPosition(ctx, id); err != nil {
		return err
	}
	return ErrPositionInUse
}

const competencyColumns = `id::text, name, category, description, created_at, updated_at`

func scanCompetency(row pgx.Row) (Competency, error) {
	var c Competency
	err := row.Scan(&c.ID, &c.Name, &c.Category, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) ListCompetencies(ctx context.Context) ([]Competency, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+competencyColumns+` FROM competencies ORDER BY category, name`)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []Competency
	for rows.Next() {
		c, err := scanCompetency(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, c)
	}
	return out, apperr.Unavailable(rows.Err())
}

func (s *Store) GetCompetency(ctx context.Context, id string) (Competency, error) {
	if !validID(id) {
		return Competency{}, ErrCompetencyNotFound
	}
	c, err := scanCompetency(s.DB.QueryRow(ctx, `SELECT `+competencyColumns+` FROM competencies WHERE id = $1`, id))
	if err != nil {
		return Competency{}, storeErr(err, ErrCompetencyNotFound)
	}
	return c, nil
}

func (s *Store) CreateCompetency(ctx context.Context, c Competency) (Competency, error) {
	out, err := scanCompetency(s.DB.QueryRow(ctx, `
    INSERT INTO competencies (name, category, description)
    VALUES ($1,$2,$3)
    RETURNING `+competencyColumns,
		c.Name, c.Category, c.Description))
	if err != nil {
		return Competency{}, storeErr(err, ErrCompetencyNotFound)
	}
	return out, nil
}

func (s *Store) UpdateCompetency(ctx context.Context, c Competency) (Competency, error) {
	if !validID(c.ID) {
		return Competency{}, ErrCompetencyNotFound
	}
	out, err := scanCompetency(s.DB.QueryRow(ctx, `
    UPDATE competencies
    SET name = $2, category = $3, description = $4, updated_at = now()
    WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM evaluation_weights WHERE competency_id = $1)
    RETURNING `+competencyColumns,
		c.ID, c.Name, c.Category, c.Description))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, getErr := s.GetCompetency(ctx, c.ID); getErr != nil {
			return Competency{}, getErr
		}
		return Competency{}, ErrCompetencyReferenced
	}
	if err != nil {
		return Competency{}, storeErr(err, ErrCompetencyNotFound)
	}
	return out, nil
}

func (s *Store) DeleteCompetency(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrCompetencyNotFound
	}
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM competencies
    WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM evaluation_weights WHERE competency_id = $1)
  `, id)
	if err != nil {
		return apperr.Unavailable(err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	if _, err := s.GetCompetency(ctx, id); err != nil {
		return err
	}
	return ErrCompetencyReferenced
}

const employeeColumns = `e.id::text, COALESCE(e.user_id::text, ''), e.code, e.name,
  COALESCE(e.position_id::text, ''), COALESCE(p.name, ''), e.department,
  COALESCE(e.manager_id::text, ''), e.status, e.created_at, e.updated_at`

const employeeFrom = ` FROM employees e LEFT JOIN positions p ON p.id = e.position_id`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.UserID, &e.Code, &e.Name, &e.PositionID, &e.PositionName, &e.Department,
		&e.ManagerID, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (s *Store) ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, error) {
	query := `SELECT ` + employeeColumns + employeeFrom + ` WHERE 1=1`
	var args []any
	if filter.ManagerID != "" {
		if !validID(filter.ManagerID) {
			return nil, nil
		}
		args = append(args, filter.ManagerID)
		query += " AND e.manager_id = $" + itoa(len(args))
	}
	if filter.PositionID != "" {
		if !validID(filter.PositionID) {
			return nil, nil
		}
		args = append(args, filter.PositionID)
		query += " AND e.position_id = $" + itoa(len(args))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		query += " AND e.department = $" + itoa(len(args))
	}
	query += " ORDER BY e.name"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, e)
	}
	return out, apperr.Unavailable(rows.Err())
}

func (s *Store) GetEmployee(ctx context.Context, id string) (Employee, error) {
	if !validID(id) {
		return Employee{}, ErrEmployeeNotFound
	}
	e, err := scanEmployee(s.DB.QueryRow(ctx, `SELECT `+employeeColumns+employeeFrom+` WHERE e.id = $1`, id))
	if err != nil {
		return Employee{}, storeErr(err, ErrEmployeeNotFound)
	}
	return e, nil
}

func (s *Store) CreateEmployee(ctx context.Context, e Employee) (Employee, error) {
	if e.Status == "" {
		e.Status = EmployeeStatusActive
	}
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (user_id, code, name, position_id, department, manager_id, status)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id::text
  `, nullIfEmpty(e.UserID), e.Code, e.Name, nullIfEmpty(e.PositionID), e.Department, nullIfEmpty(e.ManagerID), e.Status).Scan(&id)
	if err != nil {
		return Employee{}, storeErr(err, ErrEmployeeNotFound)
	}
	return s.GetEmployee(ctx, id)
}

func (s *Store) UpdateEmployee(ctx context.Context, e Employee) (Employee, error) {
	if !validID(e.ID) {
		return Employee{}, ErrEmployeeNotFound
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET user_id = $2, code = $3, name = $4, position_id = $5, department = $6, manager_id = $7,
        status = $8, updated_at = now()
    WHERE id = $1
  `, e.ID, nullIfEmpty(e.UserID), e.Code, e.Name, nullIfEmpty(e.PositionID), e.Department, nullIfEmpty(e.ManagerID), e.Status)
	if err != nil {
		return Employee{}, storeErr(err, ErrEmployeeNotFound)
	}
	if tag.RowsAffected() == 0 {
		return Employee{}, ErrEmployeeNotFound
	}
	return s.GetEmployee(ctx, e.ID)
}

const authorizationColumns = `id::text, leader_id::text, employee_id::text, authorized_by, status, created_at, revoked_at`

func scanAuthorization(row pgx.Row) (Authorization, error) {
	var a Authorization
	err := row.Scan(&a.ID, &a.LeaderID, &a.EmployeeID, &a.AuthorizedBy, &a.Status, &a.CreatedAt, &a.RevokedAt)
	return a, err
}

func (s *Store) ListAuthorizations(ctx context.Context, filter AuthorizationFilter) ([]Authorization, error) {
	query := `SELECT ` + authorizationColumns + ` FROM evaluation_authorizations WHERE 1=1`
	var args []any
	if filter.LeaderID != "" {
		if !validID(filter.LeaderID) {
			return nil, nil
		}
		args = append(args, filter.LeaderID)
		query += " AND leader_id = $" + itoa(len(args))
	}
	if filter.EmployeeID != "" {
		if !validID(filter.EmployeeID) {
			return nil, nil
		}
		args = append(args, filter.EmployeeID)
		query += " AND employee_id = $" + itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += " AND status = $" + itoa(len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	defer rows.Close()
	var out []Authorization
	for rows.Next() {
		a, err := scanAuthorization(rows)
		if err != nil {
			return nil, apperr.Unavailable(err)
		}
		out = append(out, a)
	}
	return out, apperr.Unavailable(rows.Err())
}

func (s *Store) CreateAuthorization(ctx context.Context, a Authorization) (Authorization, error) {
	if !validID(a.LeaderID) || !validID(a.EmployeeID) {
		return Authorization{}, apperr.New(apperr.KindInvalidInput, "leaderId and employeeId must be valid ids")
	}
	out, err := scanAuthorization(s.DB.QueryRow(ctx, `
    INSERT INTO evaluation_authorizations (leader_id, employee_id, authorized_by, status)
    VALUES ($1,$2,$3,$4)
    RETURNING `+authorizationColumns,
		a.LeaderID, a.EmployeeID, a.AuthorizedBy, AuthorizationActive))
	if db.IsUniqueViolation(err) {
		return Authorization{}, ErrAuthorizationExists
	}
	if err != nil {
		return Authorization{}, storeErr(err, ErrAuthorizationNotFound)
	}
	return out, nil
}

func (s *Store) RevokeAuthorization(ctx context.Context, id string, at time.Time) (Authorization, error) {
	if !validID(id) {
		return Authorization{}, ErrAuthorizationNotFound
	}
	out, err := scanAuthorization(s.DB.QueryRow(ctx, `
    UPDATE evaluation_authorizations
    SET status = $2, revoked_at = COALESCE(revoked_at, $3)
    WHERE id = $1
    RETURNING `+authorizationColumns,
		id, AuthorizationRevoked, at))
	if err != nil {
		return Authorization{}, storeErr(err, ErrAuthorizationNotFound)
	}
	return out, nil
}

func (s *Store) ActiveAuthorization(ctx context.Context, leaderID, employeeID string) (bool, error) {
	if !validID(leaderID) || !validID(employeeID) {
		return false, nil
	}
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM evaluation_authorizations
      WHERE leader_id = $1 AND employee_id = $2 AND status = $3
    )
  `, leaderID, employeeID, AuthorizationActive).Scan(&exists)
	if err != nil {
		return false, apperr.Unavailable(err)
	}
	return exists, nil
}
