package execution

import (
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/core/services/grader"
	"gitlab.com/fcv-2025.net/grader/internal/core/services/validator"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
	"gitlab.com/fcv-2025.net/grader/internal/handlers"
	"gitlab.com/fcv-2025.net/grader/internal/static/errs"
)

// ExecutionHandler runs code without persisting anything
type ExecutionHandler struct {
	validator     validator.IValidator
	grader        grader.IGrader
	languages     domain.LanguageTable
	maxAdHocCases int
	logger        primary.Logger
}

func NewExecutionHandler(
	v validator.IValidator,
	g grader.IGrader,
	languages domain.LanguageTable,
	maxAdHocCases int,
	logger primary.Logger,
) *ExecutionHandler {
	return &ExecutionHandler{
		validator:     v,
		grader:        g,
		languages:     languages,
		maxAdHocCases: maxAdHocCases,
		logger:        logger,
	}
}

func (h *ExecutionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/execute/test", h.Test).Methods(http.MethodPost)
	router.HandleFunc("/api/execute/run", h.Run).Methods(http.MethodPost)
	router.HandleFunc("/api/languages", h.Languages).Methods(http.MethodGet)
}

func (h *ExecutionHandler) validate(language, code string) error {
	if err := h.validator.ValidateLanguage(language); err != nil {
		return err
	}
	return h.validator.Validate(code)
}

// Test runs one input, the "Run" button in the editor
func (h *ExecutionHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req TestRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.ResponseError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate(req.Language, req.Code); err != nil {
		handlers.ResponseServiceError(w, h.logger, "run code", err)
		return
	}

	res, err := h.grader.Execute(r.Context(), req.Language, req.Code, req.Input)
	if err != nil {
		handlers.ResponseServiceError(w, h.logger, "run code", err)
		return
	}
	if !handlers.Caller(r).IsStaff() {
		cp := *res
		cp.Message = ""
		res = &cp
	}
	handlers.ResponseWithJson(w, http.StatusOK, res)
}

// Run grades ad hoc test cases
func (h *ExecutionHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		handlers.ResponseError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate(req.Language, req.Code); err != nil {
		handlers.ResponseServiceError(w, h.logger, "run test cases", err)
		return
	}
	if len(req.TestCases) == 0 {
		handlers.ResponseServiceError(w, h.logger, "run test cases", errs.Validation(errs.ErrInvalidRequest, "at least one test case is required"))
		return
	}
	if h.maxAdHocCases > 0 && len(req.TestCases) > h.maxAdHocCases {
		handlers.ResponseServiceError(w, h.logger, "run test cases",
			errs.Validation(errs.ErrTooManyTestCases, "%d given, limit is %d", len(req.TestCases), h.maxAdHocCases))
		return
	}
	if err := domain.ValidateTestCases(req.TestCases); err != nil {
		handlers.ResponseServiceError(w, h.logger, "run test cases", err)
		return
	}

	report, err := h.grader.Grade(r.Context(), req.Language, req.Code, req.TestCases, req.Policy)
	if err != nil {
		handlers.ResponseServiceError(w, h.logger, "run test cases", err)
		return
	}
	handlers.ResponseWithJson(w, http.StatusOK, report)
}

func (h *ExecutionHandler) Languages(w http.ResponseWriter, _ *http.Request) {
	handlers.ResponseWithJson(w, http.StatusOK, map[string]interface{}{"languages": h.languages.List()})
}
