package validator

import (
	"regexp"
	"strings"

	"gitlab.com/fcv-2025.net/grader/internal/domain"
	"gitlab.com/fcv-2025.net/grader/internal/static/errs"
)

var _ IValidator = (*Validator)(nil)

const DefaultMaxCodeLength = 50000

// deniedPatterns is a coarse process-escape filter. Isolation is the sandbox's job.
var deniedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bexec\s*\(`),
	regexp.MustCompile(`(?i)\beval\s*\(`),
	regexp.MustCompile(`(?i)\bsystem\s*\(`),
	regexp.MustCompile(`(?i)\bimport\s+os\b`),
	regexp.MustCompile(`(?i)\bfrom\s+os\s+import\b`),
	regexp.MustCompile(`(?i)\bsubprocess\b`),
	regexp.MustCompile(`(?i)#include\s*<sys/`),
	regexp.MustCompile(`(?i)\bchild_process\b`),
	regexp.MustCompile(`(?i)\bProcessBuilder\b`),
	regexp.MustCompile(`(?i)\bRuntime\.getRuntime\(\)`),
	regexp.MustCompile(`(?i)\bpopen\s*\(`),
	regexp.MustCompile(`(?i)\bfork\s*\(\s*\)`),
}

var (
	commentPattern  = regexp.MustCompile(`(?m)//|/\*|^\s*#([^i]|$)`)
	functionPattern = regexp.MustCompile(`\bdef\s+\w+\s*\(|\bfunction\b|=>|\b\w+\s+\w+\s*\([^;{}]*\)\s*\{`)
)

type Validator struct {
	maxLength int
	languages domain.LanguageTable
}

func NewValidator(languages domain.LanguageTable, maxLength int) *Validator {
	if maxLength <= 0 {
		maxLength = DefaultMaxCodeLength
	}
	return &Validator{
		maxLength: maxLength,
		languages: languages,
	}
}

func (v *Validator) Validate(code string) error {
	if strings.TrimSpace(code) == "" {
		return errs.Validation(errs.ErrEmptyCode, "")
	}
	if len(code) > v.maxLength {
		return errs.Validation(errs.ErrCodeTooLong, "%d characters, limit is %d", len(code), v.maxLength)
	}
	for _, p := range deniedPatterns {
		if loc := p.FindStringIndex(code); loc != nil {
			return errs.Validation(errs.ErrForbiddenPattern, "%q", code[loc[0]:loc[1]])
		}
	}
	return nil
}

func (v *Validator) ValidateLanguage(language string) error {
	if _, ok := v.languages.Lookup(language); !ok {
		return errs.Validation(errs.ErrUnsupportedLanguage, "%q, supported: %s", language, strings.Join(v.languages.Names(), ", "))
	}
	return nil
}

func (v *Validator) Analyze(code string) domain.CodeMetrics {
	lines := 0
	for _, line := range strings.Split(code, "\n") {
		if strings.TrimSpace(line) != "" {
			lines++
		}
	}
	return domain.CodeMetrics{
		LinesOfCode:  lines,
		HasComments:  commentPattern.MatchString(code),
		HasFunctions: functionPattern.MatchString(code),
	}
}
