package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/handlers/response"
)

// maxBodyBytes bounds request bodies; code itself is capped lower by the validator
const maxBodyBytes = 1 << 20

func ResponseWithJson(w http.ResponseWriter, statusCode int, data interface{}) {
	response.WriteSuccess(w, statusCode, data)
}

func ResponseError(w http.ResponseWriter, message string, code int) {
	response.WriteError(w, response.ErrorMessage{Message: message, StatusCode: code})
}

// ResponseServiceError maps err to a status code and logs server-side failures
func ResponseServiceError(w http.ResponseWriter, logger primary.Logger, action string, err error) {
	msg := response.FromError(err)
	if msg.StatusCode >= http.StatusInternalServerError {
		logger.Error("Failed to "+action, "status", msg.StatusCode, "error", err)
	} else {
		logger.Debug("Rejected request", "action", action, "status", msg.StatusCode, "error", err)
	}
	response.WriteError(w, msg)
}

// DecodeJSON reads a bounded JSON body into dst
func DecodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
