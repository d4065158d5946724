//go:build integration

package submissionrepository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"gitlab.com/fcv-2025.net/grader/internal/adapter/logging"
	"gitlab.com/fcv-2025.net/grader/internal/adapter/postgres"
	"gitlab.com/fcv-2025.net/grader/internal/adapter/postgres/migrations"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

func newRepo(t *testing.T) *SubmissionRepository {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	if err := migrations.Up(url); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db, err := postgres.Open(context.Background(), url)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewSubmissionRepository(db, logging.NewNopLogger())
}

func TestSubmissionLifecycle(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	key := domain.SubmissionKey{StudentID: "it-" + uuid.NewString(), AssignmentID: "a1", QuestionID: "q1"}
	now := time.Now().UTC().Truncate(time.Millisecond)

	draft := &domain.Submission{
		ID: uuid.New(), StudentID: key.StudentID, AssignmentID: key.AssignmentID, QuestionID: key.QuestionID,
		Code: "print(", Language: "python", IsDraft: true, Status: domain.SubmissionPending,
		SubmittedAt: now, UpdatedAt: now,
	}
	if err := repo.Save(ctx, draft); err != nil {
		t.Fatalf("save draft: %v", err)
	}

	final := &domain.Submission{
		ID: uuid.New(), StudentID: key.StudentID, AssignmentID: key.AssignmentID, QuestionID: key.QuestionID,
		Code: "print(5)", Language: "python", Status: domain.SubmissionGraded, Score: 100,
		PassedTestCases: 1, TotalTestCases: 1,
		TestResults: []domain.PerCaseResult{{Input: "2 3", ExpectedOutput: "5", ActualOutput: "5", Passed: true}},
		Metrics:     domain.CodeMetrics{LinesOfCode: 1},
		ManualGrade: &domain.ManualGrade{Score: 90, GradedBy: "ins", GradedAt: now},
		SubmittedAt: now, UpdatedAt: now,
	}
	if err := repo.Save(ctx, final); err != nil {
		t.Fatalf("save final: %v", err)
	}

	got, err := repo.FindFinal(ctx, key)
	if err != nil || got == nil {
		t.Fatalf("find final: %v %v", got, err)
	}
	if got.ID != final.ID || len(got.TestResults) != 1 || got.ManualGrade == nil || got.ManualGrade.Score != 90 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	n, err := repo.DeleteDrafts(ctx, key)
	if err != nil || n != 1 {
		t.Fatalf("delete drafts = %d, %v", n, err)
	}
	if d, _ := repo.FindDraft(ctx, key); d != nil {
		t.Fatalf("draft still present")
	}

	list, err := repo.List(ctx, domain.SubmissionFilter{StudentID: key.StudentID})
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %d, %v", len(list), err)
	}

	dup := *final
	dup.ID = uuid.New()
	if err := repo.Save(ctx, &dup); err == nil {
		t.Fatalf("second final for the same tuple must violate the unique index")
	}
}
