package grader

import (
	"context"

	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

// IGrader runs code against test cases through the cache and the execution queue
type IGrader interface {
	// Grade runs every case sequentially and scores the outcome with policy
	Grade(ctx context.Context, language, code string, testCases []domain.TestCase, policy domain.GradingPolicy) (*domain.GradeReport, error)

	// Execute runs a single input, serving repeated requests from the cache
	Execute(ctx context.Context, language, code, stdin string) (*domain.ExecutionResult, error)
}
