package jobs

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/core/services/queue"
	"gitlab.com/fcv-2025.net/grader/internal/core/services/validator"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
	"gitlab.com/fcv-2025.net/grader/internal/handlers"
	"gitlab.com/fcv-2025.net/grader/internal/static/errs"
)

// JobHandler exposes the execution queue for polling clients
type JobHandler struct {
	queue     queue.IExecutionQueue
	validator validator.IValidator
	logger    primary.Logger
}

// NewJobHandler creates a new job handler
func NewJobHandler(q queue.IExecutionQueue, v validator.IValidator, logger primary.Logger) *JobHandler {
	return &JobHandler{
		queue:     q,
		validator: v,
		logger:    logger,
	}
}

// RegisterRoutes registers the API routes for JobHandler
func (h *JobHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/jobs", h.CreateJob).Methods(http.MethodPost)
	router.HandleFunc("/api/jobs/stats", h.GetStats).Methods(http.MethodGet)
	router.HandleFunc("/api/jobs/{jobId}", h.GetJob).Methods(http.MethodGet)
	router.HandleFunc("/api/jobs/{jobId}/cancel", h.CancelJob).Methods(http.MethodPost)
}

// CreateJob queues an execution and returns before it runs
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Debug("Failed to decode request", "error", err)
		handlers.ResponseError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	priority, err := domain.ParsePriority(req.Priority)
	if err != nil {
		handlers.ResponseError(w, err.Error(), http.StatusBadRequest)
		return
	}
	// only staff may jump the queue
	if priority == domain.PriorityHigh && !handlers.Caller(r).IsStaff() {
		priority = domain.PriorityNormal
	}
	if err := h.validator.ValidateLanguage(req.Language); err != nil {
		handlers.ResponseServiceError(w, h.logger, "create job", err)
		return
	}
	if err := h.validator.Validate(req.Code); err != nil {
		handlers.ResponseServiceError(w, h.logger, "create job", err)
		return
	}

	payload := domain.JobPayload{
		Language:    req.Language,
		Code:        req.Code,
		Stdin:       req.Stdin,
		SubmittedBy: handlers.Caller(r).UserID,
	}
	jobID, err := h.queue.Submit(r.Context(), payload, priority)
	if err != nil {
		handlers.ResponseServiceError(w, h.logger, "create job", err)
		return
	}

	handlers.ResponseWithJson(w, http.StatusAccepted, CreateJobResponse{JobID: jobID})
}

// GetJob handles job retrieval requests
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobID(w, r)
	if !ok {
		return
	}

	job, err := h.visibleJob(r, jobID)
	if err != nil {
		handlers.ResponseServiceError(w, h.logger, "get job", err)
		return
	}
	if !handlers.Caller(r).IsStaff() {
		job = job.ForStudent()
	}
	handlers.ResponseWithJson(w, http.StatusOK, job)
}

// CancelJob only succeeds for jobs that are still queued
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.jobID(w, r)
	if !ok {
		return
	}

	if _, err := h.visibleJob(r, jobID); err != nil {
		handlers.ResponseServiceError(w, h.logger, "cancel job", err)
		return
	}

	cancelled, err := h.queue.Cancel(r.Context(), jobID)
	if err != nil {
		handlers.ResponseServiceError(w, h.logger, "cancel job", err)
		return
	}

	status := http.StatusOK
	if !cancelled {
		status = http.StatusConflict
	}
	handlers.ResponseWithJson(w, status, CancelJobResponse{JobID: jobID, Cancelled: cancelled})
}

func (h *JobHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	handlers.ResponseWithJson(w, http.StatusOK, h.queue.Stats(r.Context()))
}

// visibleJob hides other users' jobs from non-staff callers as not found
func (h *JobHandler) visibleJob(r *http.Request, jobID uuid.UUID) (*domain.Job, error) {
	job, err := h.queue.Status(r.Context(), jobID)
	if err != nil {
		return nil, err
	}
	caller := handlers.Caller(r)
	if !caller.IsStaff() && !job.OwnedBy(caller.UserID) {
		return nil, errs.ErrJobNotFound
	}
	return job, nil
}

func (h *JobHandler) jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	jobIDStr := mux.Vars(r)["jobId"]
	jobID, err := uuid.Parse(jobIDStr)
	if err != nil {
		h.logger.Debug("Invalid job ID", "id", jobIDStr)
		handlers.ResponseError(w, "Invalid job ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return jobID, true
}
