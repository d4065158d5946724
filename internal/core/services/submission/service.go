package submission

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

// SubmitRequest carries code for one (assignment, question) pair
type SubmitRequest struct {
	AssignmentID string
	QuestionID   string
	Code         string
	Language     string
}

// ISubmissionService owns the draft/final lifecycle of submissions
type ISubmissionService interface {
	// SubmitFinal grades the code and overwrites any previous final for the tuple
	SubmitFinal(ctx context.Context, caller domain.Principal, req SubmitRequest) (*domain.Submission, error)

	// SaveDraft stores work in progress; returns (nil, nil) when there is no code to save
	SaveDraft(ctx context.Context, caller domain.Principal, req SubmitRequest) (*domain.Submission, error)

	// List is role scoped: students only see their own submissions
	List(ctx context.Context, caller domain.Principal, filter domain.SubmissionFilter) ([]*domain.Submission, error)

	Get(ctx context.Context, caller domain.Principal, id uuid.UUID) (*domain.Submission, error)

	// Latest returns the caller's final submission, or the draft when no final exists
	Latest(ctx context.Context, caller domain.Principal, assignmentID, questionID string) (*domain.Submission, error)

	// ManualGrade replaces the automated score; staff only
	ManualGrade(ctx context.Context, caller domain.Principal, id uuid.UUID, score float64, feedback string) (*domain.Submission, error)
}
