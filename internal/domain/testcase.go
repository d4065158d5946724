package domain

import (
	"encoding/json"
	"math"
	"strings"

	"gitlab.com/fcv-2025.net/grader/internal/static/errs"
)

// DefaultWeight applies to test cases stored without a weight
const DefaultWeight = 1.0

// TestCase is one input/expected-output pair owned by a question
type TestCase struct {
	Input          string  `json:"input"`
	ExpectedOutput string  `json:"expectedOutput"`
	Weight         float64 `json:"weight"`
	IsHidden       bool    `json:"isHidden,omitempty"`
}

// UnmarshalJSON gives a missing or null weight the default; an explicit 0 is kept
func (tc *TestCase) UnmarshalJSON(data []byte) error {
	type plain TestCase
	var raw struct {
		plain
		Weight *float64 `json:"weight"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*tc = TestCase(raw.plain)
	tc.Weight = DefaultWeight
	if raw.Weight != nil {
		tc.Weight = *raw.Weight
	}
	return nil
}

// ValidateTestCases rejects negative or non-finite weights
func ValidateTestCases(testCases []TestCase) error {
	for i, tc := range testCases {
		if tc.Weight < 0 || math.IsNaN(tc.Weight) || math.IsInf(tc.Weight, 0) {
			return errs.Validation(errs.ErrInvalidWeight, "test case %d has weight %v", i+1, tc.Weight)
		}
	}
	return nil
}

// PerCaseResult is the frozen grading snapshot of one test case
type PerCaseResult struct {
	Input           string    `json:"input"`
	ExpectedOutput  string    `json:"expectedOutput"`
	ActualOutput    string    `json:"actualOutput"`
	Passed          bool      `json:"passed"`
	ErrorKind       ErrorKind `json:"errorKind"`
	Stderr          string    `json:"stderr,omitempty"`
	ExecutionTimeMs int64     `json:"executionTimeMs"`
	Hidden          bool      `json:"hidden,omitempty"`
}

// Redacted strips the data of a hidden case, keeping only its outcome
func (r PerCaseResult) Redacted() PerCaseResult {
	if !r.Hidden {
		return r
	}
	return PerCaseResult{
		Passed:          r.Passed,
		ErrorKind:       r.ErrorKind,
		ExecutionTimeMs: r.ExecutionTimeMs,
		Hidden:          true,
	}
}

// Errored reports whether the case failed because grading infrastructure was down
func (r PerCaseResult) Errored() bool {
	return r.ErrorKind == ErrorKindBackendUnavailable
}

// GradingPolicy selects how passed cases turn into a score
type GradingPolicy string

const (
	GradingAllOrNothing GradingPolicy = "all_or_nothing"
	GradingWeighted     GradingPolicy = "weighted"
)

// Normalize maps stored spellings onto a policy. "partial" is proportional
// credit and so grades as weighted; unknown or empty values get the default.
func (p GradingPolicy) Normalize() GradingPolicy {
	switch strings.ToLower(strings.TrimSpace(string(p))) {
	case "weighted", "partial":
		return GradingWeighted
	default:
		return GradingAllOrNothing
	}
}

// GradeReport is the grader's output for one submission
type GradeReport struct {
	PassedCount  int             `json:"passedTestCases"`
	TotalCount   int             `json:"totalTestCases"`
	Score        float64         `json:"score"`
	Policy       GradingPolicy   `json:"policy"`
	Results      []PerCaseResult `json:"testResults"`
	ErroredCount int             `json:"erroredTestCases"`
}
