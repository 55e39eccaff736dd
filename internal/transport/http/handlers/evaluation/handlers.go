package evaluationhandler

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hrreview/internal/domain/auth"
	"hrreview/internal/domain/evaluation"
	"hrreview/internal/transport/http/api"
	"hrreview/internal/transport/http/middleware"
	"hrreview/internal/transport/http/shared"
)

type Handler struct {
	Service *evaluation.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *evaluation.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Perms: perms}
}

func (h *Handler) perm(permission string) func(http.Handler) http.Handler {
	return middleware.RequirePermission(permission, h.Perms)
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/evaluations", func(r chi.Router) {
		r.With(h.perm(auth.PermEvaluationsRead)).Get("/", h.handleList)
		r.With(h.perm(auth.PermEvaluationsWrite)).Post("/", h.handleCreate)
		r.Route("/{evaluationID}", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(h.perm(auth.PermEvaluationsRead))
				r.Get("/", h.handleGet)
				r.Get("/validation", h.handleValidation)
				r.Get("/lock", h.handleLock)
				r.Get("/feedback", h.handleListFeedback)
				r.Get("/pdi", h.handleListPDI)
				r.Get("/report", h.handleReport)
			})
			r.Group(func(r chi.Router) {
				r.Use(h.perm(auth.PermEvaluationsWrite))
				r.Put("/weights/{competencyID}", h.handleSetWeight)
				r.Put("/scores/{competencyID}", h.handleSetScore)
				r.Put("/comments", h.handleSetComments)
				r.Post("/submit", h.handleSubmit)
				r.Post("/feedback", h.handleAddFeedback)
				r.Post("/pdi", h.handleAddPDI)
				r.Put("/pdi/{itemID}", h.handleUpdatePDI)
			})
			r.With(h.perm(auth.PermEvaluationsComplete)).Post("/complete", h.handleComplete)
		})
	})
}

type weightRequest struct {
	Weight *int `json:"weight" validate:"required"`
}

type commentsRequest struct {
	Comments string `json:"comments" validate:"max=4000"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	v := shared.NewValidator()
	v.Enum("status", q.Get("status"), []string{evaluation.StatusDraft, evaluation.StatusSubmitted, evaluation.StatusCompleted})
	if v.Reject(w, reqID) {
		return
	}
	filter := evaluation.ListFilter{
		EmployeeID: q.Get("employeeId"),
		LeaderID:   q.Get("leaderId"),
		CycleID:    q.Get("cycleId"),
		Status:     q.Get("status"),
		Period:     q.Get("period"),
	}
	items, err := h.Service.List(r.Context(), middleware.Actor(r.Context()), filter)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload evaluation.CreateInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	ev, err := h.Service.Create(r.Context(), middleware.Actor(r.Context()), payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, ev, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	ev, err := h.Service.Get(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "evaluationID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, ev, reqID)
}

func (h *Handler) handleSetWeight(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload weightRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	ev, err := h.Service.SetWeight(r.Context(), middleware.Actor(r.Context()),
		chi.URLParam(r, "evaluationID"), chi.URLParam(r, "competencyID"), *payload.Weight)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, ev, reqID)
}

func (h *Handler) handleSetScore(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload evaluation.ScoreInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	ev, err := h.Service.SetScore(r.Context(), middleware.Actor(r.Context()),
		chi.URLParam(r, "evaluationID"), chi.URLParam(r, "competencyID"), *payload.Score, payload.Comments)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, ev, reqID)
}

func (h *Handler) handleSetComments(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload commentsRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	ev, err := h.Service.SetComments(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "evaluationID"), payload.Comments)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, ev, reqID)
}

func (h *Handler) handleValidation(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	report, err := h.Service.Validation(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "evaluationID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, report, reqID)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	ev, err := h.Service.Submit(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "evaluationID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, ev, reqID)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	ev, err := h.Service.Complete(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "evaluationID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, ev, reqID)
}

func (h *Handler) handleLock(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	lock, err := h.Service.Lock(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "evaluationID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, map[string]any{"locked": lock != nil, "lock": lock}, reqID)
}

func (h *Handler) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	items, err := h.Service.ListFeedback(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "evaluationID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleAddFeedback(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload evaluation.FeedbackInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	item, err := h.Service.AddFeedback(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "evaluationID"), payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, item, reqID)
}

func (h *Handler) handleListPDI(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	items, err := h.Service.ListPDI(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "evaluationID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleAddPDI(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload evaluation.PDIInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	item, err := h.Service.AddPDI(r.Context(), middleware.Actor(r.Context()), chi.URLParam(r, "evaluationID"), payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Created(w, item, reqID)
}

func (h *Handler) handleUpdatePDI(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload evaluation.PDIInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	item, err := h.Service.UpdatePDI(r.Context(), middleware.Actor(r.Context()),
		chi.URLParam(r, "evaluationID"), chi.URLParam(r, "itemID"), payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, item, reqID)
}

// handleReport renders into memory first so authorization and lookup
// failures still produce a JSON envelope.
func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id := chi.URLParam(r, "evaluationID")
	var buf bytes.Buffer
	if err := h.Service.Report(r.Context(), middleware.Actor(r.Context()), id, &buf); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=evaluation-"+id+".pdf")
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Warn("report write failed", "evaluationId", id, "err", err)
	}
}
