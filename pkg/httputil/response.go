package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/riturajsingh8919/anti-romantic/pkg/errors"
	"github.com/riturajsingh8919/anti-romantic/pkg/logger"
	"github.com/riturajsingh8919/anti-romantic/pkg/pagination"
	"github.com/riturajsingh8919/anti-romantic/pkg/validator"
)

// Response is the JSON envelope used by every endpoint.
type Response struct {
	Success   bool              `json:"success"`
	Data      any               `json:"data,omitempty"`
	Message   string            `json:"message,omitempty"`
	Error     string            `json:"error,omitempty"`
	Code      string            `json:"code,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// PaginatedResponse is the envelope for one page of a list.
type PaginatedResponse[T any] struct {
	Success    bool            `json:"success"`
	Data       []T             `json:"data"`
	Pagination pagination.Meta `json:"pagination"`
}

// NewPaginatedResponse wraps items and their pagination block. A nil slice
// is rendered as an empty array.
func NewPaginatedResponse[T any](items []T, meta pagination.Meta) PaginatedResponse[T] {
	if items == nil {
		items = []T{}
	}
	return PaginatedResponse[T]{Success: true, Data: items, Pagination: meta}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes {success:true, data, message}.
func WriteSuccess(w http.ResponseWriter, status int, data any, message string) {
	WriteJSON(w, status, Response{Success: true, Data: data, Message: message})
}

// WriteError writes {success:false, error, code} based on the error type.
// It prefers the request-scoped logger from context (set by the
// RequestLogger middleware) over the fallback logger and logs every 5xx.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	status, code, message := apperrors.Describe(err)

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("code", code),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{
		Success:   false,
		Error:     message,
		Code:      code,
		RequestID: requestID,
	})
}

// WriteValidationError writes a 400 response. Validation failures from the
// validator package carry field-level messages.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   valErr.Error(),
			Code:    "VALIDATION_ERROR",
			Fields:  valErr.Fields(),
		})
		return
	}

	WriteJSON(w, http.StatusBadRequest, Response{
		Success: false,
		Error:   err.Error(),
		Code:    "INVALID_INPUT",
	})
}
