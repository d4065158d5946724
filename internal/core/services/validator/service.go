package validator

import "gitlab.com/fcv-2025.net/grader/internal/domain"

// IValidator is the static pre-flight gate run before any sandbox call
type IValidator interface {
	// Validate rejects empty, oversized or forbidden code
	Validate(code string) error

	// ValidateLanguage rejects languages outside the allow-list
	ValidateLanguage(language string) error

	// Analyze computes static code metrics
	Analyze(code string) domain.CodeMetrics
}
