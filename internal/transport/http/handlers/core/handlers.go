package corehandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrreview/internal/domain/auth"
	"hrreview/internal/domain/core"
	"hrreview/internal/transport/http/api"
	"hrreview/internal/transport/http/middleware"
	"hrreview/internal/transport/http/shared"
)

type Handler struct {
	Service *core.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *core.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) perm(permission string) func(http.Handler) http.Handler {
	return middleware.RequirePermission(permission, h.Perms)
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(h.perm(auth.PermCatalogRead)).Get("/competencies", h.handleListCompetencies)
	r.With(h.perm(auth.PermCatalogManage)).Post("/competencies", h.handleCreateCompetency)
	r.With(h.perm(auth.PermCatalogRead)).Get("/competencies/{competencyID}", h.handleGetCompetency)
	r.With(h.perm(auth.PermCatalogManage)).Put("/competencies/{competencyID}", h.handleUpdateCompetency)
	r.With(h.perm(auth.PermCatalogManage)).Delete("/competencies/{competencyID}", h.handleDeleteCompetency)

	r.With(h.perm(auth.PermCatalogRead)).Get("/positions", h.handleListPositions)
	r.With(h.perm(auth.PermCatalogManage)).Post("/positions", h.handleCreatePosition)
	r.With(h.perm(auth.PermCatalogRead)).Get("/positions/{positionID}", h.handleGetPosition)
	r.With(h.perm(auth.PermCatalogManage)).Put("/positions/{positionID}", h.handleUpdatePosition)
	r.With(h.perm(auth.PermCatalogManage)).Delete("/positions/{positionID}", h.handleDeletePosition)

	r.With(h.perm(auth.PermCatalogRead)).Get("/employees", h.handleListEmployees)
	r.With(h.perm(auth.PermCatalogManage)).Post("/employees", h.handleCreateEmployee)
	r.With(h.perm(auth.PermCatalogRead)).Get("/employees/{employeeID}", h.handleGetEmployee)
	r.With(h.perm(auth.PermCatalogManage)).Put("/employees/{employeeID}", h.handleUpdateEmployee)

	r.With(h.perm(auth.PermAuthorizationsRead)).Get("/authorizations", h.handleListAuthorizations)
	r.With(h.perm(auth.PermAuthorizationsManage)).Post("/authorizations", h.handleCreateAuthorization)
	r.With(h.perm(auth.PermAuthorizationsManage)).Post("/authorizations/{authorizationID}/revoke", h.handleRevokeAuthorization)
}

func (h *Handler) handleListCompetencies(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	items, err := h.Service.ListCompetencies(r.Context(), middleware.Actor(r.Context()))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleCreateCompetency(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload core.CompetencyInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	item, err := h.Service.CreateCompetency(r.Context(), middleware.Actor(r.Context()), payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, item, reqID)
}

func (h *Handler) handleGetCompetency(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	item, err := h.Service.GetCompetency(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "competencyID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, item, reqID)
}

func (h *Handler) handleUpdateCompetency(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload core.CompetencyInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	item, err := h.Service.UpdateCompetency(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "competencyID"), payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, item, reqID)
}

func (h *Handler) handleDeleteCompetency(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "competencyID")
	if err := h.Service.DeleteCompetency(r.Context(), middleware.Actor(r.Context()), id); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"id": id, "status": "deleted"}, reqID)
}

func (h *Handler) handleListPositions(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	items, err := h.Service.ListPositions(r.Context(), middleware.Actor(r.Context()))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleCreatePosition(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload core.PositionInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	item, err := h.Service.CreatePosition(r.Context(), middleware.Actor(r.Context()), payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, item, reqID)
}

func (h *Handler) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	item, err := h.Service.GetPosition(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "positionID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, item, reqID)
}

func (h *Handler) handleUpdatePosition(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload core.PositionInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	item, err := h.Service.UpdatePosition(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "positionID"), payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, item, reqID)
}

func (h *Handler) handleDeletePosition(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "positionID")
	if err := h.Service.DeletePosition(r.Context(), middleware.Actor(r.Context()), id); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"id": id, "status": "deleted"}, reqID)
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	filter := core.EmployeeFilter{
		ManagerID:  q.Get("managerId"),
		PositionID: q.Get("positionId"),
		Department: q.Get("department"),
	}
	items, err := h.Service.ListEmployees(r.Context(), middleware.Actor(r.Context()), filter)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload core.EmployeeInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	item, err := h.Service.CreateEmployee(r.Context(), middleware.Actor(r.Context()), payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, item, reqID)
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	item, err := h.Service.GetEmployee(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "employeeID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, item, reqID)
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload core.EmployeeInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	item, err := h.Service.UpdateEmployee(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "employeeID"), payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, item, reqID)
}

func (h *Handler) handleListAuthorizations(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	v := shared.NewValidator()
	v.Enum("status", q.Get("status"), []string{core.AuthorizationActive, core.AuthorizationInactive, core.AuthorizationRevoked})
	if v.Reject(w, reqID) {
		return
	}
	filter := core.AuthorizationFilter{
		LeaderID:   q.Get("leaderId"),
		EmployeeID: q.Get("employeeId"),
		Status:     q.Get("status"),
	}
	items, err := h.Service.ListAuthorizations(r.Context(), middleware.Actor(r.Context()), filter)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleCreateAuthorization(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload core.AuthorizationInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	item, err := h.Service.CreateAuthorization(r.Context(), middleware.Actor(r.Context()), payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, item, reqID)
}

func (h *Handler) handleRevokeAuthorization(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	item, err := h.Service.RevokeAuthorization(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "authorizationID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, item, reqID)
}
