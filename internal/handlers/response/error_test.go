package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gitlab.com/fcv-2025.net/grader/internal/static/errs"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{errs.Validation(errs.ErrCodeTooLong, "60000 characters"), http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", errs.Validation(errs.ErrUnsupportedLanguage, "cobol")), http.StatusBadRequest},
		{fmt.Errorf("question q1: %w", errs.ErrNotFound), http.StatusNotFound},
		{errs.ErrJobNotFound, http.StatusNotFound},
		{errs.ErrForbidden, http.StatusForbidden},
		{errs.ErrDeadlinePassed, http.StatusUnprocessableEntity},
		{errs.ErrFinalExists, http.StatusConflict},
		{errs.ErrQueueFull, http.StatusServiceUnavailable},
		{errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := FromError(tc.err); got.StatusCode != tc.status {
			t.Errorf("FromError(%v) = %d, want %d", tc.err, got.StatusCode, tc.status)
		}
	}
}

func TestFromErrorHidesInternalDetail(t *testing.T) {
	msg := FromError(errors.New("pq: password authentication failed"))
	if msg.Message != "internal server error" {
		t.Fatalf("message leaked: %q", msg.Message)
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, FromError(errs.Validation(errs.ErrForbiddenPattern, `"exec("`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body ErrorMessage
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Reason != errs.ErrForbiddenPattern.Error() || body.StatusCode != http.StatusBadRequest {
		t.Fatalf("body = %+v", body)
	}
}
