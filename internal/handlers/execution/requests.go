package execution

import "gitlab.com/fcv-2025.net/grader/internal/domain"

type TestRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Input    string `json:"input"`
}

type RunRequest struct {
	Language  string               `json:"language"`
	Code      string               `json:"code"`
	TestCases []domain.TestCase    `json:"testCases"`
	Policy    domain.GradingPolicy `json:"policy"`
}
