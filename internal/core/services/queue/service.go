package queue

import (
	"context"

	"github.com/google/uuid"

	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

// IExecutionQueue caps how many executions run against the sandbox at once
type IExecutionQueue interface {
	// Submit admits a job to its priority lane and returns immediately
	Submit(ctx context.Context, payload domain.JobPayload, priority domain.JobPriority) (uuid.UUID, error)

	// Status returns a snapshot of a retained job
	Status(ctx context.Context, jobID uuid.UUID) (*domain.Job, error)

	// Run submits a job and blocks until it is terminal. A job still queued
	// when ctx ends is cancelled.
	Run(ctx context.Context, payload domain.JobPayload, priority domain.JobPriority) (*domain.Job, error)

	// Wait blocks until the job reaches a terminal state or ctx ends
	Wait(ctx context.Context, jobID uuid.UUID) (*domain.Job, error)

	// Cancel removes a queued job; active and finished jobs are not cancellable
	Cancel(ctx context.Context, jobID uuid.UUID) (bool, error)

	Stats(ctx context.Context) domain.QueueStats
}
