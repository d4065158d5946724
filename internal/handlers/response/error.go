package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"gitlab.com/fcv-2025.net/grader/internal/static/errs"
)

type ErrorMessage struct {
	Message    string `json:"message"`
	Reason     string `json:"reason,omitempty"`
	StatusCode int    `json:"status_code"`
}

func WriteError(w http.ResponseWriter, err ErrorMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	_ = json.NewEncoder(w).Encode(err)
}

func WriteSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// FromError maps service errors to a client-safe message; unknown errors become a bare 500
func FromError(err error) ErrorMessage {
	var verr *errs.ValidationError
	if errors.As(err, &verr) {
		return ErrorMessage{Message: verr.Error(), Reason: verr.Reason.Error(), StatusCode: http.StatusBadRequest}
	}

	switch {
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, errs.ErrJobNotFound):
		return ErrorMessage{Message: err.Error(), StatusCode: http.StatusNotFound}
	case errors.Is(err, errs.ErrForbidden):
		return ErrorMessage{Message: "forbidden", StatusCode: http.StatusForbidden}
	case errors.Is(err, errs.ErrDeadlinePassed), errors.Is(err, errs.ErrNoTestCases):
		return ErrorMessage{Message: err.Error(), StatusCode: http.StatusUnprocessableEntity}
	case errors.Is(err, errs.ErrFinalExists):
		return ErrorMessage{Message: err.Error(), StatusCode: http.StatusConflict}
	case errors.Is(err, errs.ErrQueueFull), errors.Is(err, errs.ErrQueueClosed):
		return ErrorMessage{Message: err.Error(), StatusCode: http.StatusServiceUnavailable}
	}
	return ErrorMessage{Message: "internal server error", StatusCode: http.StatusInternalServerError}
}
