package jobs

import "github.com/google/uuid"

// CreateJobRequest represents a request to queue one execution
type CreateJobRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Stdin    string `json:"stdin"`
	Priority string `json:"priority"`
}

// CreateJobResponse represents a response to a create job request
type CreateJobResponse struct {
	JobID uuid.UUID `json:"jobId"`
}

type CancelJobResponse struct {
	JobID     uuid.UUID `json:"jobId"`
	Cancelled bool      `json:"cancelled"`
}
