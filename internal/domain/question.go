package domain

import (
	"time"

	"github.com/google/uuid"
)

// Question is read from the content store; this core never writes it
type Question struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	GradingPolicy    GradingPolicy `json:"gradingPolicy"`
	AllowedLanguages []string      `json:"allowedLanguages"`
	TestCases        []TestCase    `json:"testCases"`
}

// AllowsLanguage reports whether language may be used; an empty list allows all
func (q *Question) AllowsLanguage(language string) bool {
	if len(q.AllowedLanguages) == 0 {
		return true
	}
	for _, l := range q.AllowedLanguages {
		if l == language {
			return true
		}
	}
	return false
}

// Assignment is read from the content store for its deadline
type Assignment struct {
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	DueDate *time.Time `json:"dueDate,omitempty"`
}

// Closed reports whether the deadline has passed at now
func (a *Assignment) Closed(now time.Time) bool {
	return a.DueDate != nil && now.After(*a.DueDate)
}

// GradingEventType names events published after grading
type GradingEventType string

const (
	EventSubmissionGraded     GradingEventType = "submission.graded"
	EventInfrastructureFailed GradingEventType = "submission.grading_infrastructure_error"
)

// GradingEvent is published for staff tooling and usage counters
type GradingEvent struct {
	Type         GradingEventType `json:"type"`
	SubmissionID uuid.UUID        `json:"submissionId"`
	StudentID    string           `json:"studentId"`
	AssignmentID string           `json:"assignmentId"`
	QuestionID   string           `json:"questionId"`
	Language     string           `json:"language"`
	Score        float64          `json:"score"`
	Passed       int              `json:"passedTestCases"`
	Total        int              `json:"totalTestCases"`
	Errored      int              `json:"erroredTestCases"`
	OccurredAt   time.Time        `json:"occurredAt"`
}
