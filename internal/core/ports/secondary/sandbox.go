package secondary

import (
	"context"

	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

// SandboxBackend executes untrusted code on an external isolation service.
// Transport failures come back as a result with ErrorKindBackendUnavailable;
// the returned error is reserved for requests that were never sent.
type SandboxBackend interface {
	Name() string
	Execute(ctx context.Context, language, code, stdin string) (*domain.ExecutionResult, error)
	HealthCheck(ctx context.Context) domain.BackendHealth
	SupportedLanguages() []domain.Language
}
