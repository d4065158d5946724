package config

import "time"

type HTTPConfig struct {
	Port            int
	ShutdownTimeout time.Duration
}

func NewHTTPConfig() *HTTPConfig {
	return &HTTPConfig{
		Port:            getIntEnv("HTTP_PORT", 8082),
		ShutdownTimeout: getSecondsEnv("HTTP_SHUTDOWN_TIMEOUT_SEC", 30*time.Second),
	}
}
