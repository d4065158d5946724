package config

import "time"

const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type CacheConfig struct {
	Backend       string
	MaxSize       int
	TTL           time.Duration
	SweepInterval time.Duration
	KeyPrefix     string
}

func NewCacheConfig() *CacheConfig {
	return &CacheConfig{
		Backend:       getEnv("CACHE_BACKEND", CacheBackendMemory),
		MaxSize:       getIntEnv("CACHE_MAX_SIZE", 1000),
		TTL:           getSecondsEnv("CACHE_TTL_SEC", time.Hour),
		SweepInterval: getSecondsEnv("CACHE_SWEEP_INTERVAL_SEC", 5*time.Minute),
		KeyPrefix:     getEnv("CACHE_KEY_PREFIX", "exec:"),
	}
}
