package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"hrreview/internal/domain/audit"
	"hrreview/internal/platform/apperr"
)

type Service struct {
	Store  StoreAPI
	Secret string
	TTL    time.Duration
	Audit  audit.Recorder
}

func NewService(store StoreAPI, secret string, ttl time.Duration) *Service {
	return &Service{Store: store, Secret: secret, TTL: ttl}
}

type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

// Login checks the password and issues a bearer token. Unknown emails and
// wrong passwords produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	user, err := s.Store.FindActiveUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if err := CheckPassword(user.PasswordHash, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := GenerateToken(s.Secret, Claims{
		UserID:     user.ID,
		Role:       user.Role,
		EmployeeID: user.EmployeeID,
		Email:      user.Email,
	}, s.TTL)
	if err != nil {
		return LoginResult{}, apperr.Wrap(apperr.KindInternal, "failed to issue token", err)
	}

	if err := s.Store.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("update last_login failed", "userId", user.ID, "err", err)
	}
	return LoginResult{Token: token, ExpiresAt: time.Now().Add(s.TTL).UTC(), User: user}, nil
}

func (s *Service) Me(ctx context.Context, actor Actor) (User, error) {
	if !actor.Authenticated() {
		return User{}, ErrUnauthenticated
	}
	return s.Store.GetUser(ctx, actor.UserID)
}

type NewUser struct {
	Email      string
	Password   string
	Role       string
	EmployeeID string
}

func (s *Service) CreateUser(ctx context.Context, actor Actor, input NewUser) (User, error) {
	if err := actor.Require(PermUsersManage); err != nil {
		return User{}, err
	}
	user, err := s.createUser(ctx, input)
	if err != nil {
		return User{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionUserCreate, EntityType: "user", EntityID: user.ID,
		After: map[string]any{"email": user.Email, "role": user.Role, "employeeId": user.EmployeeID},
	})
	return user, nil
}

func (s *Service) createUser(ctx context.Context, input NewUser) (User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, apperr.New(apperr.KindInvalidInput, "a valid email is required")
	}
	if !ValidRole(input.Role) {
		return User{}, apperr.Newf(apperr.KindInvalidInput, "unknown role %q", input.Role)
	}
	if len(input.Password) < 8 {
		return User{}, apperr.New(apperr.KindInvalidInput, "password must be at least 8 characters")
	}
	hash, err := HashPassword(input.Password)
	if err != nil {
		return User{}, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}
	return s.Store.CreateUser(ctx, User{
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		EmployeeID:   strings.TrimSpace(input.EmployeeID),
	})
}

// EnsureAdmin creates an administrator account unless the email is already
// registered.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	_, err := s.createUser(ctx, NewUser{Email: email, Password: password, Role: RoleAdmin})
	if errors.Is(err, ErrEmailTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
