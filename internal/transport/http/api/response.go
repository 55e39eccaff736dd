package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"hrreview/internal/platform/apperr"
)

type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "err", err)
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]any, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message, Details: details}, RequestID: requestID})
}

// FailError maps a domain error onto the envelope. A typed cause of a
// different kind, such as the allocation failure behind validation_failed,
// is reported under details.cause. Server-side failures are logged and their
// text is not exposed.
func FailError(w http.ResponseWriter, err error, requestID string) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "requestId", requestID, "kind", kind, "err", err)
		message := "internal error"
		if kind == apperr.KindUnavailable {
			message = "storage unavailable"
		}
		Fail(w, status, string(kind), message, requestID)
		return
	}

	var details map[string]any
	var outer *apperr.Error
	if errors.As(err, &outer) && outer.Err != nil {
		var cause *apperr.Error
		if errors.As(outer.Err, &cause) && cause.Kind != outer.Kind {
			details = map[string]any{"cause": Error{Code: string(cause.Kind), Message: cause.Message}}
		}
	}
	FailWithDetails(w, status, string(kind), apperr.MessageOf(err), details, requestID)
}
