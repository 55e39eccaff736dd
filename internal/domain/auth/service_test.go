package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrreview/internal/platform/sqlite"
)

func newSQLiteService(t *testing.T) *Service {
	t.Helper()
	db, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(NewSQLiteStore(db), "test-secret", time.Hour)
}

func TestLoginIssuesToken(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "Admin@Example.com", "password123")
	require.NoError(t, err)
	require.True(t, created)

	result, err := svc.Login(ctx, "admin@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, result.User.Role)

	claims, err := ParseToken("test-secret", result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)

	me, err := svc.Me(ctx, claims.Actor())
	require.NoError(t, err)
	assert.NotNil(t, me.LastLogin)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()
	_, err := svc.EnsureAdmin(ctx, "admin@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "admin@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "ghost@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	first, err := svc.EnsureAdmin(ctx, "admin@example.com", "password123")
	require.NoError(t, err)
	second, err := svc.EnsureAdmin(ctx, "admin@example.com", "password123")
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}

func TestCreateUserRequiresUsersManage(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()
	leader := Actor{UserID: "l1", Role: RoleLeader}

	_, err := svc.CreateUser(ctx, leader, NewUser{Email: "e@example.com", Password: "password123", Role: RoleEmployee})
	assert.ErrorIs(t, err, ErrForbidden)

	admin := Actor{UserID: "a1", Role: RoleAdmin}
	user, err := svc.CreateUser(ctx, admin, NewUser{Email: "e@example.com", Password: "password123", Role: RoleEmployee, EmployeeID: "emp-1"})
	require.NoError(t, err)
	assert.Equal(t, "emp-1", user.EmployeeID)

	_, err = svc.CreateUser(ctx, admin, NewUser{Email: "e@example.com", Password: "password123", Role: RoleEmployee})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUnknownUser(t *testing.T) {
	svc := newSQLiteService(t)
	_, err := svc.Store.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NotErrorIs(t, err, sql.ErrNoRows)
}
