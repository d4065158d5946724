package submission

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/grader/internal/core/services/grader"
	"gitlab.com/fcv-2025.net/grader/internal/core/services/validator"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
	"gitlab.com/fcv-2025.net/grader/internal/static/errs"
)

var _ ISubmissionService = (*SubmissionService)(nil)

type SubmissionService struct {
	repo        secondary.SubmissionRepository
	questions   secondary.QuestionReader
	assignments secondary.AssignmentReader
	validator   validator.IValidator
	grader      grader.IGrader
	events      secondary.EventPublisher
	logger      primary.Logger
	locks       *tupleLocks
	now         func() time.Time
}

func NewSubmissionService(
	repo secondary.SubmissionRepository,
	questions secondary.QuestionReader,
	assignments secondary.AssignmentReader,
	validator validator.IValidator,
	grader grader.IGrader,
	events secondary.EventPublisher,
	logger primary.Logger,
) *SubmissionService {
	return &SubmissionService{
		repo:        repo,
		questions:   questions,
		assignments: assignments,
		validator:   validator,
		grader:      grader,
		events:      events,
		logger:      logger,
		locks:       newTupleLocks(),
		now:         time.Now,
	}
}

func keyFor(caller domain.Principal, req SubmitRequest) domain.SubmissionKey {
	return domain.SubmissionKey{
		StudentID:    caller.UserID,
		AssignmentID: req.AssignmentID,
		QuestionID:   req.QuestionID,
	}
}

func (s *SubmissionService) loadQuestion(ctx context.Context, id string) (*domain.Question, error) {
	question, err := s.questions.GetQuestion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load question %s: %w", id, err)
	}
	if question == nil {
		return nil, fmt.Errorf("question %s: %w", id, errs.ErrNotFound)
	}
	return question, nil
}

func (s *SubmissionService) SubmitFinal(ctx context.Context, caller domain.Principal, req SubmitRequest) (*domain.Submission, error) {
	if req.AssignmentID == "" || req.QuestionID == "" {
		return nil, errs.Validation(errs.ErrInvalidRequest, "assignmentId and questionId are required")
	}
	if err := s.validator.ValidateLanguage(req.Language); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(req.Code); err != nil {
		return nil, err
	}

	question, err := s.loadQuestion(ctx, req.QuestionID)
	if err != nil {
		return nil, err
	}
	if !question.AllowsLanguage(req.Language) {
		return nil, errs.Validation(errs.ErrLanguageNotAllowed, "%q, allowed: %s", req.Language, strings.Join(question.AllowedLanguages, ", "))
	}

	assignment, err := s.assignments.GetAssignment(ctx, req.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignment %s: %w", req.AssignmentID, err)
	}
	if assignment == nil {
		return nil, fmt.Errorf("assignment %s: %w", req.AssignmentID, errs.ErrNotFound)
	}
	if assignment.Closed(s.now()) {
		return nil, errs.ErrDeadlinePassed
	}

	key := keyFor(caller, req)
	unlock := s.locks.lock(key)
	defer unlock()

	sub, err := s.repo.FindFinal(ctx, key)
	if err != nil {
		s.logger.Error("Failed to look up final submission", "studentId", key.StudentID, "questionId", key.QuestionID, "error", err)
		return nil, fmt.Errorf("failed to look up final submission: %w", err)
	}
	now := s.now()
	if sub == nil {
		sub = &domain.Submission{
			ID:           uuid.New(),
			StudentID:    key.StudentID,
			AssignmentID: key.AssignmentID,
			QuestionID:   key.QuestionID,
		}
	}
	sub.Code = req.Code
	sub.Language = req.Language
	sub.IsDraft = false
	sub.Status = domain.SubmissionGrading
	sub.Score = 0
	sub.PassedTestCases = 0
	sub.TotalTestCases = len(question.TestCases)
	sub.TestResults = nil
	sub.ManualGrade = nil
	sub.Metrics = s.validator.Analyze(req.Code)
	sub.SubmittedAt = now
	sub.UpdatedAt = now

	if err := s.repo.Save(ctx, sub); err != nil {
		s.logger.Error("Failed to save submission", "submissionId", sub.ID, "error", err)
		return nil, fmt.Errorf("failed to save submission: %w", err)
	}
	if n, err := s.repo.DeleteDrafts(ctx, key); err != nil {
		s.logger.Warn("Failed to delete drafts", "submissionId", sub.ID, "error", err)
	} else if n > 0 {
		s.logger.Debug("Deleted drafts after final submission", "submissionId", sub.ID, "count", n)
	}

	if len(question.TestCases) == 0 {
		sub.Status = domain.SubmissionPending
		s.logger.Info("Question has no test cases, awaiting manual grading", "submissionId", sub.ID, "questionId", question.ID)
		return sub, s.persist(ctx, sub)
	}

	report, err := s.grader.Grade(ctx, req.Language, req.Code, question.TestCases, question.GradingPolicy)
	if err != nil {
		s.logger.Error("Grading failed", "submissionId", sub.ID, "error", err)
		sub.Status = domain.SubmissionError
		if perr := s.persist(context.WithoutCancel(ctx), sub); perr != nil {
			return nil, perr
		}
		return sub, fmt.Errorf("failed to grade submission: %w", err)
	}

	sub.ApplyReport(report)
	sub.UpdatedAt = s.now()
	if err := s.persist(ctx, sub); err != nil {
		return nil, err
	}
	s.publish(ctx, sub, report)
	return sub, nil
}

func (s *SubmissionService) persist(ctx context.Context, sub *domain.Submission) error {
	if err := s.repo.Save(ctx, sub); err != nil {
		s.logger.Error("Failed to persist grading result", "submissionId", sub.ID, "status", sub.Status, "error", err)
		return fmt.Errorf("failed to persist grading result: %w", err)
	}
	return nil
}

func (s *SubmissionService) publish(ctx context.Context, sub *domain.Submission, report *domain.GradeReport) {
	if s.events == nil {
		return
	}
	event := domain.GradingEvent{
		Type:         domain.EventSubmissionGraded,
		SubmissionID: sub.ID,
		StudentID:    sub.StudentID,
		AssignmentID: sub.AssignmentID,
		QuestionID:   sub.QuestionID,
		Language:     sub.Language,
		Score:        sub.Score,
		Passed:       report.PassedCount,
		Total:        report.TotalCount,
		Errored:      report.ErroredCount,
		OccurredAt:   s.now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish grading event", "submissionId", sub.ID, "type", event.Type, "error", err)
	}
	if report.ErroredCount == 0 {
		return
	}
	event.Type = domain.EventInfrastructureFailed
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish grading event", "submissionId", sub.ID, "type", event.Type, "error", err)
	}
}

func (s *SubmissionService) SaveDraft(ctx context.Context, caller domain.Principal, req SubmitRequest) (*domain.Submission, error) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, nil
	}
	if req.AssignmentID == "" || req.QuestionID == "" {
		return nil, errs.Validation(errs.ErrInvalidRequest, "assignmentId and questionId are required")
	}
	if err := s.validator.ValidateLanguage(req.Language); err != nil {
		return nil, err
	}
	// drafts may hold half-written code, so only the size bound applies
	if err := s.validator.Validate(req.Code); err != nil && !errors.Is(err, errs.ErrForbiddenPattern) {
		return nil, err
	}

	key := keyFor(caller, req)
	unlock := s.locks.lock(key)
	defer unlock()

	final, err := s.repo.FindFinal(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up final submission: %w", err)
	}
	if final != nil {
		return nil, errs.ErrFinalExists
	}

	draft, err := s.repo.FindDraft(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up draft: %w", err)
	}
	now := s.now()
	if draft == nil {
		draft = &domain.Submission{
			ID:           uuid.New(),
			StudentID:    key.StudentID,
			AssignmentID: key.AssignmentID,
			QuestionID:   key.QuestionID,
			IsDraft:      true,
		}
	}
	draft.Code = req.Code
	draft.Language = req.Language
	draft.Status = domain.SubmissionPending
	draft.Metrics = s.validator.Analyze(req.Code)
	draft.SubmittedAt = now
	draft.UpdatedAt = now

	if err := s.repo.Save(ctx, draft); err != nil {
		s.logger.Error("Failed to save draft", "draftId", draft.ID, "error", err)
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	return draft, nil
}

func (s *SubmissionService) List(ctx context.Context, caller domain.Principal, filter domain.SubmissionFilter) ([]*domain.Submission, error) {
	if !caller.IsStaff() {
		filter.StudentID = caller.UserID
		filter.IncludeDrafts = true
	}
	subs, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list submissions", "error", err)
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return subs, nil
}

func (s *SubmissionService) Get(ctx context.Context, caller domain.Principal, id uuid.UUID) (*domain.Submission, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if sub == nil {
		return nil, errs.ErrNotFound
	}
	if !caller.IsStaff() && sub.StudentID != caller.UserID {
		return nil, errs.ErrForbidden
	}
	return sub, nil
}

func (s *SubmissionService) Latest(ctx context.Context, caller domain.Principal, assignmentID, questionID string) (*domain.Submission, error) {
	key := domain.SubmissionKey{StudentID: caller.UserID, AssignmentID: assignmentID, QuestionID: questionID}

	final, err := s.repo.FindFinal(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up final submission: %w", err)
	}
	if final != nil {
		return final, nil
	}
	draft, err := s.repo.FindDraft(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up draft: %w", err)
	}
	if draft == nil {
		return nil, errs.ErrNotFound
	}
	return draft, nil
}

func (s *SubmissionService) ManualGrade(ctx context.Context, caller domain.Principal, id uuid.UUID, score float64, feedback string) (*domain.Submission, error) {
	if !caller.IsStaff() {
		return nil, errs.ErrForbidden
	}
	if math.IsNaN(score) || score < 0 || score > 100 {
		return nil, errs.Validation(errs.ErrInvalidScore, "got %v", score)
	}

	found, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if found == nil {
		return nil, errs.ErrNotFound
	}

	unlock := s.locks.lock(found.Key())
	defer unlock()

	// a regrade may have finished while we waited for the lock
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	if sub == nil {
		return nil, errs.ErrNotFound
	}
	if sub.IsDraft {
		return nil, errs.Validation(errs.ErrInvalidRequest, "drafts cannot be graded")
	}

	now := s.now()
	sub.ManualGrade = &domain.ManualGrade{
		Score:    score,
		Feedback: feedback,
		GradedBy: caller.UserID,
		GradedAt: now,
	}
	sub.Score = score
	sub.Status = domain.SubmissionGraded
	sub.UpdatedAt = now

	if err := s.repo.Save(ctx, sub); err != nil {
		s.logger.Error("Failed to save manual grade", "submissionId", id, "error", err)
		return nil, fmt.Errorf("failed to save manual grade: %w", err)
	}
	s.logger.Info("Submission graded manually", "submissionId", id, "gradedBy", caller.UserID, "score", score)
	return sub, nil
}
