package config

import "os"

type AppConfig struct {
	DebugMode      bool
	LogLevel       string
	HTTPConfig     *HTTPConfig
	SandboxConfig  *SandboxConfig
	CacheConfig    *CacheConfig
	QueueConfig    *QueueConfig
	GradingConfig  *GradingConfig
	RedisConfig    *RedisConfig
	PostgresConfig *PostgresConfig
	JwtConfig      *JwtConfig
	RabbitMQConfig *RabbitMQConfig
}

func NewSystemConfig() (*AppConfig, error) {
	sandboxCfg, err := NewSandboxConfig()
	if err != nil {
		return nil, err
	}
	return &AppConfig{
		DebugMode:      os.Getenv("DEBUG_MODE") == "true",
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		HTTPConfig:     NewHTTPConfig(),
		SandboxConfig:  sandboxCfg,
		CacheConfig:    NewCacheConfig(),
		QueueConfig:    NewQueueConfig(),
		GradingConfig:  NewGradingConfig(),
		RedisConfig:    NewRedisConfig(),
		PostgresConfig: NewPostgresConfig(),
		JwtConfig:      NewJwtConfig(),
		RabbitMQConfig: NewRabbitMQConfig(),
	}, nil
}
