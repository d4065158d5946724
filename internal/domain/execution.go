package domain

import (
	"encoding/json"
	"fmt"
)

// ErrorKind classifies why an execution did not succeed
type ErrorKind int

const (
	ErrorKindNone ErrorKind = iota
	ErrorKindCompile
	ErrorKindRuntime
	ErrorKindTimeout
	ErrorKindBackendUnavailable
)

var errorKindNames = map[ErrorKind]string{
	ErrorKindNone:               "NONE",
	ErrorKindCompile:            "COMPILE_ERROR",
	ErrorKindRuntime:            "RUNTIME_ERROR",
	ErrorKindTimeout:            "TIMEOUT",
	ErrorKindBackendUnavailable: "BACKEND_UNAVAILABLE",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

func (k ErrorKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *ErrorKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for kind, n := range errorKindNames {
		if n == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown error kind %q", name)
}

// ExecutionResult is the normalized outcome of one sandbox execution
type ExecutionResult struct {
	Success         bool      `json:"success"`
	Stdout          string    `json:"stdout"`
	Stderr          string    `json:"stderr"`
	ErrorKind       ErrorKind `json:"errorKind"`
	ExecutionTimeMs int64     `json:"executionTimeMs"`
	// Message carries backend diagnostics for infrastructure failures. It is never shown to students.
	Message   string `json:"message,omitempty"`
	FromCache bool   `json:"fromCache,omitempty"`
}

// Unavailable builds the result used for transport level failures
func Unavailable(format string, args ...interface{}) *ExecutionResult {
	return &ExecutionResult{
		Success:   false,
		ErrorKind: ErrorKindBackendUnavailable,
		Message:   fmt.Sprintf(format, args...),
	}
}

// Transient reports whether retrying the execution could change its outcome
func (r *ExecutionResult) Transient() bool {
	return r != nil && r.ErrorKind == ErrorKindBackendUnavailable
}

// BackendHealth is reported by a sandbox backend health check
type BackendHealth struct {
	Backend   string `json:"backend"`
	Reachable bool   `json:"reachable"`
	Languages int    `json:"supportedLanguages"`
	Message   string `json:"message,omitempty"`
}

// CacheStats describes the execution cache for operational visibility
type CacheStats struct {
	Backend string  `json:"backend"`
	Size    int     `json:"size"`
	MaxSize int     `json:"maxSize"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hitRate"`
	TTLSec  int64   `json:"ttlSeconds"`
}

// ComputeHitRate fills HitRate from the hit and miss counters
func (s *CacheStats) ComputeHitRate() {
	total := s.Hits + s.Misses
	if total == 0 {
		s.HitRate = 0
		return
	}
	s.HitRate = float64(s.Hits) / float64(total)
}
