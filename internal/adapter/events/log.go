package events

import (
	"context"

	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

var _ secondary.EventPublisher = (*LogPublisher)(nil)

// LogPublisher is used when no broker is configured
type LogPublisher struct {
	logger primary.Logger
}

func NewLogPublisher(logger primary.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event domain.GradingEvent) error {
	if event.Type == domain.EventInfrastructureFailed {
		p.logger.Warn("Grading hit sandbox infrastructure errors",
			"submissionId", event.SubmissionID, "errored", event.Errored, "total", event.Total)
		return nil
	}
	p.logger.Info("Submission graded",
		"submissionId", event.SubmissionID, "studentId", event.StudentID,
		"score", event.Score, "passed", event.Passed, "total", event.Total)
	return nil
}
