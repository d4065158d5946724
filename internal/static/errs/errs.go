package errs

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCode           = errors.New("code must not be empty")
	ErrCodeTooLong         = errors.New("code exceeds maximum length")
	ErrForbiddenPattern    = errors.New("code contains a forbidden pattern")
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrLanguageNotAllowed  = errors.New("language not allowed for this question")
	ErrInvalidScore        = errors.New("score must be between 0 and 100")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrTooManyTestCases    = errors.New("too many test cases")
	ErrInvalidWeight       = errors.New("test case weight must be a non-negative number")
)

var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrDeadlinePassed = errors.New("assignment deadline has passed")
	ErrFinalExists    = errors.New("a final submission already exists")
	ErrNoTestCases    = errors.New("no test cases")
)

var (
	ErrQueueFull   = errors.New("execution queue is full")
	ErrQueueClosed = errors.New("execution queue is closed")
	ErrJobNotFound = errors.New("job not found")
)

// ValidationError is returned synchronously for input that never reaches the sandbox
type ValidationError struct {
	Reason error
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%s: %s", e.Reason.Error(), e.Detail)
}

func (e *ValidationError) Unwrap() error {
	return e.Reason
}

func Validation(reason error, format string, args ...interface{}) error {
	return &ValidationError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err carries a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
