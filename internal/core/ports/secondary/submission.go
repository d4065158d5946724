package secondary

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

// SubmissionRepository persists submission records.
// Finders return (nil, nil) when nothing matches.
type SubmissionRepository interface {
	FindFinal(ctx context.Context, key domain.SubmissionKey) (*domain.Submission, error)
	FindDraft(ctx context.Context, key domain.SubmissionKey) (*domain.Submission, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error)
	List(ctx context.Context, filter domain.SubmissionFilter) ([]*domain.Submission, error)
	// Save inserts or updates the record by id
	Save(ctx context.Context, submission *domain.Submission) error
	DeleteDrafts(ctx context.Context, key domain.SubmissionKey) (int64, error)
}

// QuestionReader loads immutable question records owned by the content store
type QuestionReader interface {
	GetQuestion(ctx context.Context, id string) (*domain.Question, error)
}

// AssignmentReader loads assignment records owned by the content store
type AssignmentReader interface {
	GetAssignment(ctx context.Context, id string) (*domain.Assignment, error)
}

// EventPublisher notifies external collaborators about grading outcomes
type EventPublisher interface {
	Publish(ctx context.Context, event domain.GradingEvent) error
}
