package submissions

import (
	"time"

	"github.com/google/uuid"

	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

// SubmitRequest is the body of both the final and the draft endpoints
type SubmitRequest struct {
	AssignmentID string `json:"assignmentId"`
	QuestionID   string `json:"questionId"`
	Code         string `json:"code"`
	Language     string `json:"language"`
}

type SubmitResponse struct {
	SubmissionID    uuid.UUID               `json:"submissionId"`
	Status          domain.SubmissionStatus `json:"status"`
	Score           float64                 `json:"score"`
	PassedTestCases int                     `json:"passedTestCases"`
	TotalTestCases  int                     `json:"totalTestCases"`
	TestResults     []domain.PerCaseResult  `json:"testResults"`
}

type DraftResponse struct {
	DraftID *uuid.UUID `json:"draftId"`
	SavedAt time.Time  `json:"savedAt"`
}

type ManualGradeRequest struct {
	Score    *float64 `json:"score"`
	Feedback string   `json:"feedback"`
}
