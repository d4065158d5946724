package submissionrepository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
	querybuilder "gitlab.com/fcv-2025.net/grader/internal/utils"
)

var _ secondary.SubmissionRepository = (*SubmissionRepository)(nil)

const defaultListLimit = 500

// SubmissionRepository stores code_submissions rows with PostgreSQL
type SubmissionRepository struct {
	db     *sqlx.DB
	logger primary.Logger
}

func NewSubmissionRepository(db *sqlx.DB, logger primary.Logger) *SubmissionRepository {
	return &SubmissionRepository{
		db:     db,
		logger: logger,
	}
}

// submissionRow mirrors the table; JSONB columns are decoded in toDomain
type submissionRow struct {
	ID              uuid.UUID      `db:"id"`
	StudentID       string         `db:"student_id"`
	AssignmentID    string         `db:"assignment_id"`
	QuestionID      string         `db:"question_id"`
	Code            string         `db:"code"`
	Language        string         `db:"language"`
	IsDraft         bool           `db:"is_draft"`
	Status          string         `db:"status"`
	Score           float64        `db:"score"`
	PassedTestCases int            `db:"passed_test_cases"`
	TotalTestCases  int            `db:"total_test_cases"`
	TestResults     []byte         `db:"test_results"`
	Metrics         []byte         `db:"code_metrics"`
	ManualGrade     sql.NullString `db:"manual_grade"`
	SubmittedAt     time.Time      `db:"submitted_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func columns() []string {
	tbl := domain.GetSubmissionTable()
	return []string{
		tbl.ID, tbl.StudentID, tbl.AssignmentID, tbl.QuestionID,
		tbl.Code, tbl.Language, tbl.IsDraft, tbl.Status, tbl.Score,
		tbl.PassedTestCases, tbl.TotalTestCases, tbl.TestResults,
		tbl.Metrics, tbl.ManualGrade, tbl.SubmittedAt, tbl.UpdatedAt,
	}
}

func (r submissionRow) toDomain() (*domain.Submission, error) {
	s := &domain.Submission{
		ID:              r.ID,
		StudentID:       r.StudentID,
		AssignmentID:    r.AssignmentID,
		QuestionID:      r.QuestionID,
		Code:            r.Code,
		Language:        r.Language,
		IsDraft:         r.IsDraft,
		Status:          domain.SubmissionStatus(r.Status),
		Score:           r.Score,
		PassedTestCases: r.PassedTestCases,
		TotalTestCases:  r.TotalTestCases,
		SubmittedAt:     r.SubmittedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if len(r.TestResults) > 0 {
		if err := json.Unmarshal(r.TestResults, &s.TestResults); err != nil {
			return nil, fmt.Errorf("failed to unmarshal test results: %w", err)
		}
	}
	if len(r.Metrics) > 0 {
		if err := json.Unmarshal(r.Metrics, &s.Metrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal code metrics: %w", err)
		}
	}
	if r.ManualGrade.Valid {
		s.ManualGrade = &domain.ManualGrade{}
		if err := json.Unmarshal([]byte(r.ManualGrade.String), s.ManualGrade); err != nil {
			return nil, fmt.Errorf("failed to unmarshal manual grade: %w", err)
		}
	}
	return s, nil
}

func (r *SubmissionRepository) selectBuilder() querybuilder.QueryBuilder {
	return querybuilder.NewQueryBuilder("public").
		Select(columns()...).
		From(domain.GetSubmissionTable().TableName())
}

func (r *SubmissionRepository) getOne(ctx context.Context, qb querybuilder.QueryBuilder) (*domain.Submission, error) {
	query, args := qb.Build()

	var row submissionRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(query), args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get submission", "error", err)
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return row.toDomain()
}

func (r *SubmissionRepository) byKey(key domain.SubmissionKey, draft bool) querybuilder.QueryBuilder {
	tbl := domain.GetSubmissionTable()
	return r.selectBuilder().
		Where(tbl.StudentID+" = ?", key.StudentID).
		And(tbl.AssignmentID+" = ?", key.AssignmentID).
		And(tbl.QuestionID+" = ?", key.QuestionID).
		And(tbl.IsDraft+" = ?", draft).
		Limit(1)
}

func (r *SubmissionRepository) FindFinal(ctx context.Context, key domain.SubmissionKey) (*domain.Submission, error) {
	return r.getOne(ctx, r.byKey(key, false))
}

func (r *SubmissionRepository) FindDraft(ctx context.Context, key domain.SubmissionKey) (*domain.Submission, error) {
	return r.getOne(ctx, r.byKey(key, true))
}

func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Submission, error) {
	return r.getOne(ctx, r.selectBuilder().Where(domain.GetSubmissionTable().ID+" = ?", id))
}

// List returns the newest submissions first
func (r *SubmissionRepository) List(ctx context.Context, filter domain.SubmissionFilter) ([]*domain.Submission, error) {
	query, args := r.listQuery(filter)

	var rows []submissionRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		r.logger.Error("Failed to list submissions", "error", err)
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	subs := make([]*domain.Submission, 0, len(rows))
	for _, row := range rows {
		s, err := row.toDomain()
		if err != nil {
			r.logger.Error("Failed to decode submission row", "submissionId", row.ID, "error", err)
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, nil
}

func (r *SubmissionRepository) listQuery(filter domain.SubmissionFilter) (string, []interface{}) {
	tbl := domain.GetSubmissionTable()
	qb := r.selectBuilder()
	if filter.StudentID != "" {
		qb.Where(tbl.StudentID+" = ?", filter.StudentID)
	}
	if filter.AssignmentID != "" {
		qb.Where(tbl.AssignmentID+" = ?", filter.AssignmentID)
	}
	if filter.QuestionID != "" {
		qb.Where(tbl.QuestionID+" = ?", filter.QuestionID)
	}
	if len(filter.Statuses) > 0 {
		qb.AndGroup(func(group querybuilder.QueryBuilder) {
			for _, status := range filter.Statuses {
				group.Or(tbl.Status+" = ?", string(status))
			}
		})
	}
	if !filter.IncludeDrafts {
		qb.Where(tbl.IsDraft+" = ?", false)
	}
	limit := filter.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	return qb.OrderBy(tbl.SubmittedAt, false).Limit(limit).Build()
}

// Save upserts by id; identity columns are never rewritten
func (r *SubmissionRepository) Save(ctx context.Context, s *domain.Submission) error {
	results := s.TestResults
	if results == nil {
		results = []domain.PerCaseResult{}
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal test results: %w", err)
	}
	metricsJSON, err := json.Marshal(s.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal code metrics: %w", err)
	}
	var manualGrade interface{}
	if s.ManualGrade != nil {
		b, err := json.Marshal(s.ManualGrade)
		if err != nil {
			return fmt.Errorf("failed to marshal manual grade: %w", err)
		}
		manualGrade = string(b)
	}

	tbl := domain.GetSubmissionTable()
	query, args := querybuilder.NewQueryBuilder("public").
		Insert(columns()...).
		Into(tbl.TableName()).
		Values(
			s.ID, s.StudentID, s.AssignmentID, s.QuestionID,
			s.Code, s.Language, s.IsDraft, string(s.Status), s.Score,
			s.PassedTestCases, s.TotalTestCases, string(resultsJSON),
			string(metricsJSON), manualGrade, s.SubmittedAt, s.UpdatedAt,
		).
		OnConflict(tbl.ID).
		SetExclude(
			tbl.Code, tbl.Language, tbl.IsDraft, tbl.Status, tbl.Score,
			tbl.PassedTestCases, tbl.TotalTestCases, tbl.TestResults,
			tbl.Metrics, tbl.ManualGrade, tbl.SubmittedAt, tbl.UpdatedAt,
		).
		Build()

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		r.logger.Error("Failed to save submission", "submissionId", s.ID, "error", err)
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return nil
}

func (r *SubmissionRepository) DeleteDrafts(ctx context.Context, key domain.SubmissionKey) (int64, error) {
	query := `
		DELETE FROM code_submissions
		WHERE student_id = $1 AND assignment_id = $2 AND question_id = $3 AND is_draft
	`
	result, err := r.db.ExecContext(ctx, query, key.StudentID, key.AssignmentID, key.QuestionID)
	if err != nil {
		r.logger.Error("Failed to delete drafts", "studentId", key.StudentID, "questionId", key.QuestionID, "error", err)
		return 0, fmt.Errorf("failed to delete drafts: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error checking rows affected: %w", err)
	}
	return rowsAffected, nil
}
