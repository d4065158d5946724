package grader

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/grader/internal/core/services/queue"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
	"gitlab.com/fcv-2025.net/grader/internal/static/errs"
)

var _ IGrader = (*Grader)(nil)

type Grader struct {
	cache          secondary.ExecutionCache
	queue          queue.IExecutionQueue
	logger         primary.Logger
	interCaseDelay time.Duration
	priority       domain.JobPriority
}

func NewGrader(
	cache secondary.ExecutionCache,
	executionQueue queue.IExecutionQueue,
	interCaseDelay time.Duration,
	logger primary.Logger,
) *Grader {
	return &Grader{
		cache:          cache,
		queue:          executionQueue,
		logger:         logger,
		interCaseDelay: interCaseDelay,
		priority:       domain.PriorityNormal,
	}
}

// WithPriority returns a grader whose jobs go to the given lane
func (g *Grader) WithPriority(priority domain.JobPriority) *Grader {
	cp := *g
	cp.priority = priority
	return &cp
}

func (g *Grader) Execute(ctx context.Context, language, code, stdin string) (*domain.ExecutionResult, error) {
	if res, hit := g.cache.Get(ctx, language, code, stdin); hit {
		return res, nil
	}

	job, err := g.queue.Run(ctx, domain.JobPayload{Language: language, Code: code, Stdin: stdin}, g.priority)
	if err != nil {
		return nil, fmt.Errorf("failed to run execution: %w", err)
	}

	switch job.Status {
	case domain.JobStatusCompleted:
		g.cache.Set(ctx, language, code, stdin, job.Result)
		return job.Result, nil
	case domain.JobStatusFailed:
		if job.Result != nil {
			return job.Result, nil
		}
		return domain.Unavailable("job %s failed: %s", job.ID, job.Error), nil
	}
	return domain.Unavailable("job %s ended %s", job.ID, job.Status), nil
}

func (g *Grader) Grade(ctx context.Context, language, code string, testCases []domain.TestCase, policy domain.GradingPolicy) (*domain.GradeReport, error) {
	if len(testCases) == 0 {
		return nil, errs.ErrNoTestCases
	}
	if err := domain.ValidateTestCases(testCases); err != nil {
		return nil, err
	}

	report := &domain.GradeReport{
		TotalCount: len(testCases),
		Policy:     policy.Normalize(),
		Results:    make([]domain.PerCaseResult, 0, len(testCases)),
	}

	for i, tc := range testCases {
		if i > 0 && g.interCaseDelay > 0 {
			if err := pause(ctx, g.interCaseDelay); err != nil {
				return nil, err
			}
		}

		res, err := g.Execute(ctx, language, code, tc.Input)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			g.logger.Error("Test case could not be executed", "case", i, "language", language, "error", err)
			res = domain.Unavailable("%v", err)
		}

		caseResult := compare(tc, res)
		if caseResult.Passed {
			report.PassedCount++
		}
		if caseResult.Errored() {
			report.ErroredCount++
		}
		report.Results = append(report.Results, caseResult)
	}

	report.Score = Score(report.Policy, testCases, report.Results)
	g.logger.Info("Graded submission",
		"language", language,
		"passed", report.PassedCount,
		"total", report.TotalCount,
		"errored", report.ErroredCount,
		"score", report.Score)
	return report, nil
}

// compare passes a case only when execution succeeded and trimmed outputs match exactly
func compare(tc domain.TestCase, res *domain.ExecutionResult) domain.PerCaseResult {
	actual := strings.TrimSpace(res.Stdout)
	return domain.PerCaseResult{
		Input:           tc.Input,
		ExpectedOutput:  tc.ExpectedOutput,
		ActualOutput:    actual,
		Passed:          res.Success && actual == strings.TrimSpace(tc.ExpectedOutput),
		ErrorKind:       res.ErrorKind,
		Stderr:          res.Stderr,
		ExecutionTimeMs: res.ExecutionTimeMs,
		Hidden:          tc.IsHidden,
	}
}

// Score applies policy to per-case outcomes. Weighted grading with no weight
// at all falls back to all-or-nothing. Negative weights count as zero so the
// result always stays within 0..100.
func Score(policy domain.GradingPolicy, testCases []domain.TestCase, results []domain.PerCaseResult) float64 {
	if len(results) == 0 {
		return 0
	}
	passed := 0
	var totalWeight, passedWeight float64
	for i, r := range results {
		w := testCases[i].Weight
		if !(w > 0) || math.IsInf(w, 0) {
			w = 0
		}
		totalWeight += w
		if r.Passed {
			passed++
			passedWeight += w
		}
	}

	if policy.Normalize() == domain.GradingWeighted && totalWeight > 0 {
		return math.Min(100, 100*passedWeight/totalWeight)
	}
	if passed == len(results) {
		return 100
	}
	return 0
}

func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
