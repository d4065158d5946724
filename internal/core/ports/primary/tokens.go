package primary

import (
	"context"

	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

// TokenVerifier turns a bearer token into the calling principal
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (domain.Principal, error)
}
