package config

import "time"

type QueueConfig struct {
	PoolSize      int
	LaneCapacity  int
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
	KeepCompleted int
	KeepFailed    int
}

func NewQueueConfig() *QueueConfig {
	return &QueueConfig{
		PoolSize:      getIntEnv("QUEUE_POOL_SIZE", 5),
		LaneCapacity:  getIntEnv("QUEUE_LANE_CAPACITY", 256),
		MaxAttempts:   getIntEnv("QUEUE_MAX_ATTEMPTS", 3),
		BackoffBase:   getMillisEnv("QUEUE_BACKOFF_BASE_MS", 2*time.Second),
		BackoffMax:    getMillisEnv("QUEUE_BACKOFF_MAX_MS", 30*time.Second),
		KeepCompleted: getIntEnv("QUEUE_KEEP_COMPLETED", 100),
		KeepFailed:    getIntEnv("QUEUE_KEEP_FAILED", 50),
	}
}
