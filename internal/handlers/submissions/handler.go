package submissions

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/core/services/submission"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
	"gitlab.com/fcv-2025.net/grader/internal/handlers"
)

// SubmissionHandler serves the draft/final submission lifecycle
type SubmissionHandler struct {
	service submission.ISubmissionService
	logger  primary.Logger
}

func NewSubmissionHandler(service submission.ISubmissionService, logger primary.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes expects router to already enforce JWTMiddleware
func (h *SubmissionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/submissions", h.SubmitFinal).Methods(http.MethodPost)
	router.HandleFunc("/api/submissions/draft", h.SaveDraft).Methods(http.MethodPost)
	router.HandleFunc("/api/submissions", h.List).Methods(http.MethodGet)
	router.HandleFunc("/api/submissions/latest", h.Latest).Methods(http.MethodGet)
	router.HandleFunc("/api/submissions/{id}", h.Get).Methods(http.MethodGet)
	router.HandleFunc("/api/submissions/{id}/grade", h.ManualGrade).Methods(http.MethodPut)
}

func (r SubmitRequest) toService() submission.SubmitRequest {
	return submission.SubmitRequest{
		AssignmentID: r.AssignmentID,
		QuestionID:   r.QuestionID,
		Code:         r.Code,
		Language:     r.Language,
	}
}

// view hides hidden test case data from students
func view(caller domain.Principal, s *domain.Submission) *domain.Submission {
	if caller.IsStaff() {
		return s
	}
	return s.ForStudent()
}

func (h *SubmissionHandler) SubmitFinal(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.ResponseError(w, err.Error(), http.StatusBadRequest)
		return
	}

	caller := handlers.Caller(r)
	sub, err := h.service.SubmitFinal(r.Context(), caller, req.toService())
	if err != nil {
		handlers.ResponseServiceError(w, h.logger, "submit final", err)
		return
	}

	sub = view(caller, sub)
	handlers.ResponseWithJson(w, http.StatusCreated, SubmitResponse{
		SubmissionID:    sub.ID,
		Status:          sub.Status,
		Score:           sub.Score,
		PassedTestCases: sub.PassedTestCases,
		TotalTestCases:  sub.TotalTestCases,
		TestResults:     sub.TestResults,
	})
}

func (h *SubmissionHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.ResponseError(w, err.Error(), http.StatusBadRequest)
		return
	}

	draft, err := h.service.SaveDraft(r.Context(), handlers.Caller(r), req.toService())
	if err != nil {
		handlers.ResponseServiceError(w, h.logger, "save draft", err)
		return
	}

	// nothing to save is still a success
	if draft == nil {
		handlers.ResponseWithJson(w, http.StatusOK, DraftResponse{})
		return
	}
	handlers.ResponseWithJson(w, http.StatusOK, DraftResponse{DraftID: &draft.ID, SavedAt: draft.UpdatedAt})
}

func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.SubmissionFilter{
		StudentID:    q.Get("studentId"),
		AssignmentID: q.Get("assignmentId"),
		QuestionID:   q.Get("questionId"),
	}
	if v := q.Get("includeDrafts"); v != "" {
		include, err := strconv.ParseBool(v)
		if err != nil {
			handlers.ResponseError(w, "includeDrafts must be a boolean", http.StatusBadRequest)
			return
		}
		filter.IncludeDrafts = include
	}
	for _, v := range q["status"] {
		for _, part := range strings.Split(v, ",") {
			status := domain.SubmissionStatus(strings.TrimSpace(part))
			if !status.Valid() {
				handlers.ResponseError(w, "unknown status "+strconv.Quote(part), http.StatusBadRequest)
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			handlers.ResponseError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	caller := handlers.Caller(r)
	subs, err := h.service.List(r.Context(), caller, filter)
	if err != nil {
		handlers.ResponseServiceError(w, h.logger, "list submissions", err)
		return
	}
	for i := range subs {
		subs[i] = view(caller, subs[i])
	}
	handlers.ResponseWithJson(w, http.StatusOK, map[string]interface{}{"submissions": subs, "count": len(subs)})
}

func (h *SubmissionHandler) Latest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	assignmentID, questionID := q.Get("assignmentId"), q.Get("questionId")
	if assignmentID == "" || questionID == "" {
		handlers.ResponseError(w, "assignmentId and questionId are required", http.StatusBadRequest)
		return
	}

	caller := handlers.Caller(r)
	sub, err := h.service.Latest(r.Context(), caller, assignmentID, questionID)
	if err != nil {
		handlers.ResponseServiceError(w, h.logger, "get latest submission", err)
		return
	}
	handlers.ResponseWithJson(w, http.StatusOK, view(caller, sub))
}

func (h *SubmissionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	caller := handlers.Caller(r)
	sub, err := h.service.Get(r.Context(), caller, id)
	if err != nil {
		handlers.ResponseServiceError(w, h.logger, "get submission", err)
		return
	}
	handlers.ResponseWithJson(w, http.StatusOK, view(caller, sub))
}

func (h *SubmissionHandler) ManualGrade(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req ManualGradeRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.ResponseError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Score == nil {
		handlers.ResponseError(w, "score is required", http.StatusBadRequest)
		return
	}

	sub, err := h.service.ManualGrade(r.Context(), handlers.Caller(r), id, *req.Score, req.Feedback)
	if err != nil {
		handlers.ResponseServiceError(w, h.logger, "grade submission", err)
		return
	}
	handlers.ResponseWithJson(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := mux.Vars(r)["id"]
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Debug("Invalid submission ID", "id", idStr)
		handlers.ResponseError(w, "Invalid submission ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
