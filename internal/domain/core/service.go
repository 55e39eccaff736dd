package core

import (
	"context"
	"strings"
	"time"

	"hrreview/internal/domain/audit"
	"hrreview/internal/domain/auth"
	"hrreview/internal/platform/apperr"
)

// UserLookup resolves user accounts; auth.StoreAPI satisfies it.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (auth.User, error)
}

type Service struct {
	Store StoreAPI
	Users UserLookup
	Audit audit.Recorder
	Now   func() time.Time
}

func NewService(store StoreAPI, users UserLookup, recorder audit.Recorder) *Service {
	return &Service{Store: store, Users: users, Audit: recorder, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

type PositionInput struct {
	Name             string `json:"name" validate:"required,notblank,max=120"`
	Description      string `json:"description" validate:"max=2000"`
	Responsibilities string `json:"responsibilities" validate:"max=4000"`
	Requirements     string `json:"requirements" validate:"max=4000"`
}

func (in PositionInput) position(id string) (Position, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Position{}, apperr.New(apperr.KindInvalidInput, "position name is required")
	}
	return Position{
		ID:               id,
		Name:             name,
		Description:      strings.TrimSpace(in.Description),
		Responsibilities: strings.TrimSpace(in.Responsibilities),
		Requirements:     strings.TrimSpace(in.Requirements),
	}, nil
}

func (s *Service) ListPositions(ctx context.Context, actor auth.Actor) ([]Position, error) {
	if err := actor.Require(auth.PermCatalogRead); err != nil {
		return nil, err
	}
	return s.Store.ListPositions(ctx)
}

func (s *Service) GetPosition(ctx context.Context, actor auth.Actor, id string) (Position, error) {
	if err := actor.Require(auth.PermCatalogRead); err != nil {
		return Position{}, err
	}
	return s.Store.GetPosition(ctx, id)
}

func (s *Service) CreatePosition(ctx context.Context, actor auth.Actor, in PositionInput) (Position, error) {
	if err := actor.Require(auth.PermCatalogManage); err != nil {
		return Position{}, err
	}
	p, err := in.position("")
	if err != nil {
		return Position{}, err
	}
	created, err := s.Store.CreatePosition(ctx, p)
	if err != nil {
		return Position{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionPositionCreate, EntityType: "position", EntityID: created.ID, After: created,
	})
	return created, nil
}

func (s *Service) UpdatePosition(ctx context.Context, actor auth.Actor, id string, in PositionInput) (Position, error) {
	if err := actor.Require(auth.PermCatalogManage); err != nil {
		return Position{}, err
	}
	p, err := in.position(id)
	if err != nil {
		return Position{}, err
	}
	before, err := s.Store.GetPosition(ctx, id)
	if err != nil {
		return Position{}, err
	}
	updated, err := s.Store.UpdatePosition(ctx, p)
	if err != nil {
		return Position{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionPositionUpdate, EntityType: "position", EntityID: id, Before: before, After: updated,
	})
	return updated, nil
}

func (s *Service) DeletePosition(ctx context.Context, actor auth.Actor, id string) error {
	if err := actor.Require(auth.PermCatalogManage); err != nil {
		return err
	}
	before, err := s.Store.GetPosition(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.DeletePosition(ctx, id); err != nil {
		return err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionPositionDelete, EntityType: "position", EntityID: id, Before: before,
	})
	return nil
}

type CompetencyInput struct {
	Name        string `json:"name" validate:"required,notblank,max=120"`
	Category    string `json:"category" validate:"required,oneof=technical behavioral leadership"`
	Description string `json:"description" validate:"max=2000"`
}

func (in CompetencyInput) competency(id string) (Competency, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Competency{}, apperr.New(apperr.KindInvalidInput, "competency name is required")
	}
	category := strings.ToLower(strings.TrimSpace(in.Category))
	if !ValidCategory(category) {
		return Competency{}, apperr.Newf(apperr.KindInvalidInput, "unknown competency category %q", in.Category)
	}
	return Competency{ID: id, Name: name, Category: category, Description: strings.TrimSpace(in.Description)}, nil
}

func (s *Service) ListCompetencies(ctx context.Context, actor auth.Actor) ([]Competency, error) {
	if err := actor.Require(auth.PermCatalogRead); err != nil {
		return nil, err
	}
	return s.Store.ListCompetencies(ctx)
}

// Competencies returns the full catalog without an access check. The
// evaluation engine uses it to build templates.
func (s *Service) Competencies(ctx context.Context) ([]Competency, error) {
	return s.Store.ListCompetencies(ctx)
}

func (s *Service) GetCompetency(ctx context.Context, actor auth.Actor, id string) (Competency, error) {
	if err := actor.Require(auth.PermCatalogRead); err != nil {
		return Competency{}, err
	}
	return s.Store.GetCompetency(ctx, id)
}

func (s *Service) CreateCompetency(ctx context.Context, actor auth.Actor, in CompetencyInput) (Competency, error) {
	if err := actor.Require(auth.PermCatalogManage); err != nil {
		return Competency{}, err
	}
	c, err := in.competency("")
	if err != nil {
		return Competency{}, err
	}
	created, err := s.Store.CreateCompetency(ctx, c)
	if err != nil {
		return Competency{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionCompetencyCreate, EntityType: "competency", EntityID: created.ID, After: created,
	})
	return created, nil
}

func (s *Service) UpdateCompetency(ctx context.Context, actor auth.Actor, id string, in CompetencyInput) (Competency, error) {
	if err := actor.Require(auth.PermCatalogManage); err != nil {
		return Competency{}, err
	}
	c, err := in.competency(id)
	if err != nil {
		return Competency{}, err
	}
	before, err := s.Store.GetCompetency(ctx, id)
	if err != nil {
		return Competency{}, err
	}
	updated, err := s.Store.UpdateCompetency(ctx, c)
	if err != nil {
		return Competency{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionCompetencyUpdate, EntityType: "competency", EntityID: id, Before: before, After: updated,
	})
	return updated, nil
}

func (s *Service) DeleteCompetency(ctx context.Context, actor auth.Actor, id string) error {
	if err := actor.Require(auth.PermCatalogManage); err != nil {
		return err
	}
	before, err := s.Store.GetCompetency(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Store.DeleteCompetency(ctx, id); err != nil {
		return err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionCompetencyDelete, EntityType: "competency", EntityID: id, Before: before,
	})
	return nil
}

type EmployeeInput struct {
	UserID     string `json:"userId" validate:"omitempty,uuid"`
	Code       string `json:"code" validate:"required,notblank,max=40"`
	Name       string `json:"name" validate:"required,notblank,max=160"`
	PositionID string `json:"positionId" validate:"omitempty,uuid"`
	Department string `json:"department" validate:"max=120"`
	ManagerID  string `json:"managerId" validate:"omitempty,uuid"`
	Status     string `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (s *Service) employeeFromInput(ctx context.Context, id string, in EmployeeInput) (Employee, error) {
	e := Employee{
		ID:         id,
		UserID:     strings.TrimSpace(in.UserID),
		Code:       strings.TrimSpace(in.Code),
		Name:       strings.TrimSpace(in.Name),
		PositionID: strings.TrimSpace(in.PositionID),
		Department: strings.TrimSpace(in.Department),
		ManagerID:  strings.TrimSpace(in.ManagerID),
		Status:     strings.TrimSpace(in.Status),
	}
	if e.Code == "" || e.Name == "" {
		return Employee{}, apperr.New(apperr.KindInvalidInput, "employee code and name are required")
	}
	if e.Status == "" {
		e.Status = EmployeeStatusActive
	}
	if e.Status != EmployeeStatusActive && e.Status != EmployeeStatusInactive {
		return Employee{}, apperr.Newf(apperr.KindInvalidInput, "unknown employee status %q", e.Status)
	}
	if id != "" && e.ManagerID == id {
		return Employee{}, apperr.New(apperr.KindInvalidInput, "an employee cannot manage themselves")
	}
	if e.PositionID != "" {
		if _, err := s.Store.GetPosition(ctx, e.PositionID); err != nil {
			return Employee{}, err
		}
	}
	if e.ManagerID != "" {
		if _, err := s.Store.GetEmployee(ctx, e.ManagerID); err != nil {
			return Employee{}, err
		}
	}
	return e, nil
}

func (s *Service) ListEmployees(ctx context.Context, actor auth.Actor, filter EmployeeFilter) ([]Employee, error) {
	if err := actor.Require(auth.PermCatalogRead); err != nil {
		return nil, err
	}
	return s.Store.ListEmployees(ctx, filter)
}

func (s *Service) GetEmployee(ctx context.Context, actor auth.Actor, id string) (Employee, error) {
	if err := actor.Require(auth.PermCatalogRead); err != nil {
		return Employee{}, err
	}
	return s.Store.GetEmployee(ctx, id)
}

// Employee returns an employee record without an access check.
func (s *Service) Employee(ctx context.Context, id string) (Employee, error) {
	return s.Store.GetEmployee(ctx, id)
}

func (s *Service) CreateEmployee(ctx context.Context, actor auth.Actor, in EmployeeInput) (Employee, error) {
	if err := actor.Require(auth.PermCatalogManage); err != nil {
		return Employee{}, err
	}
	e, err := s.employeeFromInput(ctx, "", in)
	if err != nil {
		return Employee{}, err
	}
	created, err := s.Store.CreateEmployee(ctx, e)
	if err != nil {
		return Employee{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionEmployeeCreate, EntityType: "employee", EntityID: created.ID, After: created,
	})
	return created, nil
}

func (s *Service) UpdateEmployee(ctx context.Context, actor auth.Actor, id string, in EmployeeInput) (Employee, error) {
	if err := actor.Require(auth.PermCatalogManage); err != nil {
		return Employee{}, err
	}
	before, err := s.Store.GetEmployee(ctx, id)
	if err != nil {
		return Employee{}, err
	}
	e, err := s.employeeFromInput(ctx, id, in)
	if err != nil {
		return Employee{}, err
	}
	updated, err := s.Store.UpdateEmployee(ctx, e)
	if err != nil {
		return Employee{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionEmployeeUpdate, EntityType: "employee", EntityID: id, Before: before, After: updated,
	})
	return updated, nil
}

// ListAuthorizations returns authorizations visible to the actor. Leaders
// only ever see their own.
func (s *Service) ListAuthorizations(ctx context.Context, actor auth.Actor, filter AuthorizationFilter) ([]Authorization, error) {
	if err := actor.Require(auth.PermAuthorizationsRead); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		filter.LeaderID = actor.UserID
	}
	return s.Store.ListAuthorizations(ctx, filter)
}

type AuthorizationInput struct {
	LeaderID   string `json:"leaderId" validate:"required,uuid"`
	EmployeeID string `json:"employeeId" validate:"required,uuid"`
}

func (s *Service) CreateAuthorization(ctx context.Context, actor auth.Actor, in AuthorizationInput) (Authorization, error) {
	if err := actor.Require(auth.PermAuthorizationsManage); err != nil {
		return Authorization{}, err
	}
	leaderID := strings.TrimSpace(in.LeaderID)
	employeeID := strings.TrimSpace(in.EmployeeID)
	if leaderID == "" || employeeID == "" {
		return Authorization{}, apperr.New(apperr.KindInvalidInput, "leaderId and employeeId are required")
	}
	if s.Users != nil {
		leader, err := s.Users.GetUser(ctx, leaderID)
		if err != nil {
			return Authorization{}, err
		}
		if leader.Role != auth.RoleLeader {
			return Authorization{}, apperr.New(apperr.KindInvalidInput, "authorized user must have the leader role")
		}
		if leader.EmployeeID != "" && leader.EmployeeID == employeeID {
			return Authorization{}, apperr.New(apperr.KindInvalidInput, "a leader cannot be authorized to evaluate themselves")
		}
	}
	if _, err := s.Store.GetEmployee(ctx, employeeID); err != nil {
		return Authorization{}, err
	}

	created, err := s.Store.CreateAuthorization(ctx, Authorization{
		LeaderID:     leaderID,
		EmployeeID:   employeeID,
		AuthorizedBy: actor.UserID,
	})
	if err != nil {
		return Authorization{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionAuthorizationGrant, EntityType: "authorization", EntityID: created.ID, After: created,
	})
	return created, nil
}

func (s *Service) RevokeAuthorization(ctx context.Context, actor auth.Actor, id string) (Authorization, error) {
	if err := actor.Require(auth.PermAuthorizationsManage); err != nil {
		return Authorization{}, err
	}
	revoked, err := s.Store.RevokeAuthorization(ctx, id, s.now())
	if err != nil {
		return Authorization{}, err
	}
	audit.Emit(ctx, s.Audit, audit.Entry{
		ActorID: actor.UserID, Action: audit.ActionAuthorizationRevoke, EntityType: "authorization", EntityID: id, After: revoked,
	})
	return revoked, nil
}

// ActiveAuthorization reports whether leaderID may currently evaluate
// employeeID.
func (s *Service) ActiveAuthorization(ctx context.Context, leaderID, employeeID string) (bool, error) {
	return s.Store.ActiveAuthorization(ctx, leaderID, employeeID)
}
