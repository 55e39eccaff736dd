package authhandler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"hrreview/internal/domain/auth"
	"hrreview/internal/transport/http/api"
	"hrreview/internal/transport/http/middleware"
	"hrreview/internal/transport/http/shared"
)

type Handler struct {
	Service *auth.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *auth.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Get("/auth/me", h.handleMe)
	r.With(middleware.RequirePermission(auth.PermUsersManage, h.Perms)).Post("/users", h.handleCreateUser)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type createUserRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8"`
	Role       string `json:"role" validate:"required,oneof=admin leader employee"`
	EmployeeID string `json:"employeeId" validate:"omitempty,uuid"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}

	result, err := h.Service.Login(r.Context(), strings.ToLower(strings.TrimSpace(payload.Email)), payload.Password)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, result, reqID)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, err := h.Service.Me(r.Context(), middleware.Actor(r.Context()))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, user, reqID)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload createUserRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}

	user, err := h.Service.CreateUser(r.Context(), middleware.Actor(r.Context()), auth.NewUser{
		Email:      payload.Email,
		Password:   payload.Password,
		Role:       payload.Role,
		EmployeeID: payload.EmployeeID,
	})
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, user, reqID)
}
