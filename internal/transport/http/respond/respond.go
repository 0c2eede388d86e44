package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/corray333/backend-labs/takeout/internal/service/models/order"
)

// ErrorBody is the JSON body of every failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Error sending response", "error", err)
	}
}

// Error maps err to a status code and writes it.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, code := Classify(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
		slog.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	} else {
		slog.InfoContext(r.Context(), "Request refused", "path", r.URL.Path, "status", status, "error", err)
	}

	JSON(w, r, status, ErrorBody{Code: code, Message: msg})
}

// Classify returns the HTTP status and error code for err.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, order.ErrValidation):
		return http.StatusBadRequest, "VALIDATION"
	case errors.Is(err, order.ErrOrderNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, order.ErrInvalidStateTransition):
		return http.StatusConflict, "INVALID_STATE_TRANSITION"
	case errors.Is(err, order.ErrAlreadyPaid):
		return http.StatusConflict, "ALREADY_PAID"
	case errors.Is(err, order.ErrStorageConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, order.ErrPaymentGateway):
		return http.StatusBadGateway, "PAYMENT_GATEWAY"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}
