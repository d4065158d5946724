package config

import "time"

type GradingConfig struct {
	InterCaseDelay time.Duration
	MaxCodeLength  int
	MaxAdHocCases  int
}

func NewGradingConfig() *GradingConfig {
	return &GradingConfig{
		InterCaseDelay: getMillisEnv("GRADING_INTER_CASE_DELAY_MS", 100*time.Millisecond),
		MaxCodeLength:  getIntEnv("VALIDATOR_MAX_CODE_LENGTH", 50000),
		MaxAdHocCases:  getIntEnv("GRADING_MAX_ADHOC_CASES", 20),
	}
}
