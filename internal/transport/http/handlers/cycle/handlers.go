package cyclehandler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hrreview/internal/domain/auth"
	"hrreview/internal/domain/cycle"
	"hrreview/internal/transport/http/api"
	"hrreview/internal/transport/http/middleware"
	"hrreview/internal/transport/http/shared"
)

type Handler struct {
	Service *cycle.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *cycle.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) perm(permission string) func(http.Handler) http.Handler {
	return middleware.RequirePermission(permission, h.Perms)
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(h.perm(auth.PermCyclesRead)).Get("/cycles", h.handleList)
	r.With(h.perm(auth.PermCyclesManage)).Post("/cycles", h.handleCreate)
	r.With(h.perm(auth.PermCyclesRead)).Get("/cycles/current", h.handleCurrent)
	r.With(h.perm(auth.PermCyclesRead)).Get("/cycles/{cycleID}", h.handleGet)
	r.With(h.perm(auth.PermCyclesManage)).Put("/cycles/{cycleID}/status", h.handleUpdateStatus)
	r.With(h.perm(auth.PermCyclesManage)).Post("/cycles/{cycleID}/enroll", h.handleEnroll)
	r.With(h.perm(auth.PermCyclesManage)).Get("/cycles/{cycleID}/statuses", h.handleListStatuses)
	r.With(h.perm(auth.PermCyclesManage)).Get("/cycles/{cycleID}/summary", h.handleSummary)
	r.With(h.perm(auth.PermCyclesRead)).Get("/cycles/{cycleID}/employees/{employeeID}/status", h.handleStatus)
	r.With(h.perm(auth.PermCycleStatusUpdate)).Post("/cycles/{cycleID}/employees/{employeeID}/transition", h.handleTransition)
	r.With(h.perm(auth.PermCyclesRead)).Get("/employees/{employeeID}/cycle-history", h.handleHistory)
}

type createRequest struct {
	Name          string `json:"name" validate:"required,notblank,max=120"`
	Type          string `json:"type" validate:"required,cycle_type"`
	StartDate     string `json:"startDate" validate:"required"`
	EndDate       string `json:"endDate" validate:"required"`
	ParentCycleID string `json:"parentCycleId" validate:"omitempty"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=planning active completed archived"`
}

type enrollRequest struct {
	EmployeeIDs []string `json:"employeeIds" validate:"required,min=1,dive,required"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required,stage"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	v := shared.NewValidator()
	v.Enum("status", q.Get("status"), []string{cycle.CyclePlanning, cycle.CycleActive, cycle.CycleCompleted, cycle.CycleArchived})
	v.Enum("type", q.Get("type"), []string{cycle.TypeBimonthly, cycle.TypeSemester})
	if v.Reject(w, reqID) {
		return
	}
	items, err := h.Service.ListCycles(r.Context(), middleware.Actor(r.Context()), cycle.Filter{Status: q.Get("status"), Type: q.Get("type")})
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload createRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	start := parseDay(v, "startDate", payload.StartDate)
	end := parseDay(v, "endDate", payload.EndDate)
	if v.Reject(w, reqID) {
		return
	}
	c, err := h.Service.CreateCycle(r.Context(), middleware.Actor(r.Context()), cycle.CycleInput{
		Name:          payload.Name,
		Type:          payload.Type,
		StartDate:     start,
		EndDate:       end,
		ParentCycleID: payload.ParentCycleID,
	})
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, c, reqID)
}

// parseDay accepts either a calendar date or a full RFC 3339 timestamp.
func parseDay(v *shared.Validator, field, raw string) time.Time {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC()
	}
	return v.Date(field, raw)
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	c, err := h.Service.CurrentCycle(r.Context(), middleware.Actor(r.Context()))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, c, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	c, err := h.Service.GetCycle(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "cycleID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, c, reqID)
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload statusRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	c, err := h.Service.UpdateCycleStatus(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "cycleID"), payload.Status)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, c, reqID)
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload enrollRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	result, err := h.Service.Enroll(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "cycleID"), payload.EmployeeIDs)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, result, reqID)
}

func (h *Handler) handleListStatuses(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	items, err := h.Service.ListStatuses(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "cycleID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	summary, err := h.Service.Summary(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "cycleID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, summary, reqID)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	st, err := h.Service.Status(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "cycleID"), chi.URLParam(r, "employeeID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, st, reqID)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload transitionRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	st, err := h.Service.Transition(r.Context(), middleware.Actor(r.Context()),
		chi.URLParam(r, "cycleID"), chi.URLParam(r, "employeeID"), payload.Status)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, st, reqID)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	items, err := h.Service.History(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "employeeID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, items, reqID)
}
