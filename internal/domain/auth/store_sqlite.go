package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
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

const sqliteUserColumns = `id, email, password_hash, role, COALESCE(employee_id, ''), status, last_login, created_at`

func scanSQLiteUser(row *sql.Row) (User, error) {
	var u User
	var lastLogin sql.NullString
	var createdAt string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.EmployeeID, &u.Status, &lastLogin, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, apperr.Unavailable(err)
	}
	if u.LastLogin, err = sqlite.ParseNullTime(lastLogin); err != nil {
		return User{}, apperr.Unavailable(err)
	}
	if u.CreatedAt, err = sqlite.ParseTime(createdAt); err != nil {
		return User{}, apperr.Unavailable(err)
	}
	return u, nil
}

func (s *SQLiteStore) FindActiveUserByEmail(ctx context.Context, email string) (User, error) {
	return scanSQLiteUser(s.DB.QueryRowContext(ctx, `
    SELECT `+sqliteUserColumns+`
    FROM users
    WHERE lower(email) = lower(?) AND status = ?
  `, strings.TrimSpace(email), UserStatusActive))
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (User, error) {
	return scanSQLiteUser(s.DB.QueryRowContext(ctx, `SELECT `+sqliteUserColumns+` FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) CreateUser(ctx context.Context, user User) (User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Status == "" {
		user.Status = UserStatusActive
	}
	user.CreatedAt = time.Now().UTC()
	_, err := s.DB.ExecContext(ctx, `
    INSERT INTO users (id, email, password_hash, role, employee_id, status, created_at)
    VALUES (?,?,?,?,?,?,?)
  `, user.ID, user.Email, user.PasswordHash, user.Role, nullIfEmpty(user.EmployeeID), user.Status, sqlite.FormatTime(user.CreatedAt))
	if sqlite.IsUniqueViolation(err) {
		return User{}, ErrEmailTaken
	}
	if err != nil {
		return User{}, apperr.Unavailable(err)
	}
	return user, nil
}

func (s *SQLiteStore) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.ExecContext(ctx, "UPDATE users SET last_login = ? WHERE id = ?", sqlite.FormatTime(time.Now()), userID)
	return err
}
