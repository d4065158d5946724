package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus tracks grading progress of a submission
type SubmissionStatus string

const (
	SubmissionPending SubmissionStatus = "pending"
	SubmissionGrading SubmissionStatus = "grading"
	SubmissionGraded  SubmissionStatus = "graded"
	SubmissionError   SubmissionStatus = "error"
)

func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionPending, SubmissionGrading, SubmissionGraded, SubmissionError:
		return true
	}
	return false
}

// SubmissionKey identifies the (student, assignment, question) tuple
type SubmissionKey struct {
	StudentID    string
	AssignmentID string
	QuestionID   string
}

// CodeMetrics are cheap static facts about submitted code
type CodeMetrics struct {
	LinesOfCode  int  `json:"linesOfCode"`
	HasComments  bool `json:"hasComments"`
	HasFunctions bool `json:"hasFunctions"`
}

// ManualGrade is a staff override of the automated score
type ManualGrade struct {
	Score    float64   `json:"score"`
	Feedback string    `json:"feedback"`
	GradedBy string    `json:"gradedBy"`
	GradedAt time.Time `json:"gradedAt"`
}

// Submission is the one record this core persists
type Submission struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	StudentID       string           `json:"studentId" db:"student_id"`
	AssignmentID    string           `json:"assignmentId" db:"assignment_id"`
	QuestionID      string           `json:"questionId" db:"question_id"`
	Code            string           `json:"code" db:"code"`
	Language        string           `json:"language" db:"language"`
	IsDraft         bool             `json:"isDraft" db:"is_draft"`
	Status          SubmissionStatus `json:"status" db:"status"`
	Score           float64          `json:"score" db:"score"`
	PassedTestCases int              `json:"passedTestCases" db:"passed_test_cases"`
	TotalTestCases  int              `json:"totalTestCases" db:"total_test_cases"`
	TestResults     []PerCaseResult  `json:"testResults" db:"-"`
	Metrics         CodeMetrics      `json:"codeMetrics" db:"-"`
	ManualGrade     *ManualGrade     `json:"manualGrade,omitempty" db:"-"`
	SubmittedAt     time.Time        `json:"submittedAt" db:"submitted_at"`
	UpdatedAt       time.Time        `json:"updatedAt" db:"updated_at"`
}

func (s *Submission) Key() SubmissionKey {
	return SubmissionKey{StudentID: s.StudentID, AssignmentID: s.AssignmentID, QuestionID: s.QuestionID}
}

// ApplyReport copies a grading report onto the submission
func (s *Submission) ApplyReport(report *GradeReport) {
	s.Score = report.Score
	s.PassedTestCases = report.PassedCount
	s.TotalTestCases = report.TotalCount
	s.TestResults = report.Results
	if report.ErroredCount > 0 {
		s.Status = SubmissionError
		return
	}
	s.Status = SubmissionGraded
}

// ForStudent returns a copy with hidden test case data removed
func (s *Submission) ForStudent() *Submission {
	cp := *s
	if s.TestResults != nil {
		cp.TestResults = make([]PerCaseResult, len(s.TestResults))
		for i, r := range s.TestResults {
			cp.TestResults[i] = r.Redacted()
		}
	}
	return &cp
}

// SubmissionFilter narrows a submission listing
type SubmissionFilter struct {
	StudentID     string
	AssignmentID  string
	QuestionID    string
	IncludeDrafts bool
	Limit         int
	// Statuses matches any of the listed statuses; empty means all
	Statuses []SubmissionStatus
}

type SubmissionTable struct {
	ID              string
	StudentID       string
	AssignmentID    string
	QuestionID      string
	Code            string
	Language        string
	IsDraft         string
	Status          string
	Score           string
	PassedTestCases string
	TotalTestCases  string
	TestResults     string
	Metrics         string
	ManualGrade     string
	SubmittedAt     string
	UpdatedAt       string
}

func GetSubmissionTable() SubmissionTable {
	return SubmissionTable{
		ID:              "id",
		StudentID:       "student_id",
		AssignmentID:    "assignment_id",
		QuestionID:      "question_id",
		Code:            "code",
		Language:        "language",
		IsDraft:         "is_draft",
		Status:          "status",
		Score:           "score",
		PassedTestCases: "passed_test_cases",
		TotalTestCases:  "total_test_cases",
		TestResults:     "test_results",
		Metrics:         "code_metrics",
		ManualGrade:     "manual_grade",
		SubmittedAt:     "submitted_at",
		UpdatedAt:       "updated_at",
	}
}

func (SubmissionTable) TableName() string {
	return "code_submissions"
}
