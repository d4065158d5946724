package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a queued execution
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusActive    JobStatus = "ACTIVE"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// Terminal reports whether no further transition is possible
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// JobPriority selects the lane a job is admitted to
type JobPriority int

const (
	PriorityNormal JobPriority = iota
	PriorityHigh
)

func (p JobPriority) String() string {
	if p == PriorityHigh {
		return "high"
	}
	return "normal"
}

func ParsePriority(s string) (JobPriority, error) {
	switch s {
	case "", "normal":
		return PriorityNormal, nil
	case "high":
		return PriorityHigh, nil
	}
	return PriorityNormal, fmt.Errorf("unknown priority %q", s)
}

func (p JobPriority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *JobPriority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePriority(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// JobPayload is the single execution a job performs
type JobPayload struct {
	Language string `json:"language"`
	Code     string `json:"-"`
	Stdin    string `json:"stdin"`
	// SubmittedBy is empty for jobs the grader queues on its own behalf
	SubmittedBy string `json:"submittedBy,omitempty"`
}

// Job is a unit of queued work against the sandbox
type Job struct {
	ID          uuid.UUID        `json:"id"`
	Payload     JobPayload       `json:"payload"`
	Priority    JobPriority      `json:"priority"`
	Status      JobStatus        `json:"status"`
	Progress    int              `json:"progress"`
	Attempts    int              `json:"attempts"`
	MaxAttempts int              `json:"maxAttempts"`
	Result      *ExecutionResult `json:"result,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	StartedAt   *time.Time       `json:"startedAt,omitempty"`
	FinishedAt  *time.Time       `json:"finishedAt,omitempty"`
}

// NewJob creates a queued job
func NewJob(payload JobPayload, priority JobPriority, maxAttempts int) *Job {
	return &Job{
		ID:          uuid.New(),
		Payload:     payload,
		Priority:    priority,
		Status:      JobStatusQueued,
		MaxAttempts: maxAttempts,
		CreatedAt:   time.Now(),
	}
}

// Snapshot returns a copy safe to hand out to pollers
func (j *Job) Snapshot() *Job {
	cp := *j
	if j.Result != nil {
		res := *j.Result
		cp.Result = &res
	}
	return &cp
}

// OwnedBy reports whether userID queued the job through the API
func (j *Job) OwnedBy(userID string) bool {
	return userID != "" && j.Payload.SubmittedBy == userID
}

// ForStudent drops backend diagnostics from a snapshot
func (j *Job) ForStudent() *Job {
	cp := j.Snapshot()
	if cp.Error != "" {
		cp.Error = "execution could not be completed"
	}
	if cp.Result != nil {
		cp.Result.Message = ""
	}
	return cp
}

// QueueStats summarizes the execution queue
type QueueStats struct {
	PoolSize  int `json:"poolSize"`
	Queued    int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}
