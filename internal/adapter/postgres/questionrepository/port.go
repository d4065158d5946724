package questionrepository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

var (
	_ secondary.QuestionReader   = (*ContentRepository)(nil)
	_ secondary.AssignmentReader = (*ContentRepository)(nil)
)

// ContentRepository reads questions and assignments owned by the content store
type ContentRepository struct {
	db     *sqlx.DB
	logger primary.Logger
}

func NewContentRepository(db *sqlx.DB, logger primary.Logger) *ContentRepository {
	return &ContentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ContentRepository) GetQuestion(ctx context.Context, id string) (*domain.Question, error) {
	query := `
		SELECT id, title, grading_policy, allowed_languages, test_cases
		FROM questions
		WHERE id = $1
	`

	var (
		q         domain.Question
		policy    string
		languages pq.StringArray
		casesJSON []byte
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&q.ID, &q.Title, &policy, &languages, &casesJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get question", "questionId", id, "error", err)
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	q.GradingPolicy = domain.GradingPolicy(policy).Normalize()
	q.AllowedLanguages = []string(languages)
	if len(casesJSON) > 0 {
		if err := json.Unmarshal(casesJSON, &q.TestCases); err != nil {
			r.logger.Error("Failed to unmarshal test cases", "questionId", id, "error", err)
			return nil, fmt.Errorf("failed to unmarshal test cases: %w", err)
		}
	}
	if err := domain.ValidateTestCases(q.TestCases); err != nil {
		r.logger.Error("Question has invalid test cases", "questionId", id, "error", err)
		return nil, fmt.Errorf("question %s: %w", id, err)
	}
	return &q, nil
}

func (r *ContentRepository) GetAssignment(ctx context.Context, id string) (*domain.Assignment, error) {
	query := `
		SELECT id, title, due_date
		FROM assignments
		WHERE id = $1
	`

	var (
		a       domain.Assignment
		dueDate sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Title, &dueDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get assignment", "assignmentId", id, "error", err)
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if dueDate.Valid {
		a.DueDate = &dueDate.Time
	}
	return &a, nil
}
