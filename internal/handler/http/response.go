package http

import (
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/riturajsingh8919/anti-romantic/pkg/errors"
	"github.com/riturajsingh8919/anti-romantic/pkg/httputil"
)

// writeServiceError renders err. Errors that carry no user-facing message
// are shown as fallback with a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string, logger *slog.Logger) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		err = &apperrors.AppError{
			Code:    "INTERNAL_ERROR",
			Message: fallback,
			Status:  http.StatusInternalServerError,
			Err:     err,
		}
	}
	httputil.WriteError(w, r, err, logger)
}

func writeInvalidParameter(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Success: false,
		Error:   message,
		Code:    "INVALID_PARAMETER",
	})
}
