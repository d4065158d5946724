package secondary

import (
	"context"

	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

// ExecutionCache memoizes successful executions by (language, code, input)
type ExecutionCache interface {
	Get(ctx context.Context, language, code, input string) (*domain.ExecutionResult, bool)
	// Set stores result only when it succeeded
	Set(ctx context.Context, language, code, input string, result *domain.ExecutionResult)
	Stats(ctx context.Context) domain.CacheStats
	Clear(ctx context.Context) error
	// Sweep reclaims expired entries and returns how many were removed
	Sweep(ctx context.Context) int
}
