package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"gitlab.com/fcv-2025.net/grader/internal/adapter/cache/memory"
	"gitlab.com/fcv-2025.net/grader/internal/adapter/cache/rediscache"
	"gitlab.com/fcv-2025.net/grader/internal/adapter/crypto"
	"gitlab.com/fcv-2025.net/grader/internal/adapter/events"
	"gitlab.com/fcv-2025.net/grader/internal/adapter/logging"
	"gitlab.com/fcv-2025.net/grader/internal/adapter/postgres"
	"gitlab.com/fcv-2025.net/grader/internal/adapter/postgres/questionrepository"
	"gitlab.com/fcv-2025.net/grader/internal/adapter/postgres/submissionrepository"
	"gitlab.com/fcv-2025.net/grader/internal/adapter/sandbox"
	"gitlab.com/fcv-2025.net/grader/internal/config"
	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/grader/internal/core/services/grader"
	"gitlab.com/fcv-2025.net/grader/internal/core/services/queue"
	"gitlab.com/fcv-2025.net/grader/internal/core/services/submission"
	"gitlab.com/fcv-2025.net/grader/internal/core/services/validator"
	"gitlab.com/fcv-2025.net/grader/internal/handlers"
	"gitlab.com/fcv-2025.net/grader/internal/handlers/execution"
	"gitlab.com/fcv-2025.net/grader/internal/handlers/jobs"
	"gitlab.com/fcv-2025.net/grader/internal/handlers/submissions"
	"gitlab.com/fcv-2025.net/grader/internal/handlers/system"
	http2 "gitlab.com/fcv-2025.net/grader/internal/http"
	"gitlab.com/fcv-2025.net/grader/internal/schedulerengine"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the grading HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	sysCfg, err := config.NewSystemConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewZapLogger(sysCfg.LogLevel)
	defer logger.Sync()
	logger.Info("Starting grader service", "sandbox", sysCfg.SandboxConfig.Provider, "cache", sysCfg.CacheConfig.Backend)

	// SECONDARY PORTS
	backend, err := sandbox.New(sysCfg.SandboxConfig, logger)
	if err != nil {
		return err
	}

	cache, closeCache, err := setupCache(ctx, sysCfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	db, err := postgres.Open(ctx, sysCfg.PostgresConfig.Url)
	if err != nil {
		logger.Error("Failed to set up database", "error", err)
		return err
	}
	defer db.Close()

	submissionRepo := submissionrepository.NewSubmissionRepository(db, logger)
	contentRepo := questionrepository.NewContentRepository(db, logger)

	publisher, closePublisher, err := setupPublisher(sysCfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	//primary ports
	jwtProvider, err := crypto.NewJWTService(sysCfg.JwtConfig)
	if err != nil {
		return err
	}

	// workers and requests outlive the signal so shutdown can drain them in order
	appCtx := context.WithoutCancel(ctx)

	//services
	executionQueue := queue.NewExecutionQueue(backend, queue.OptionsFromConfig(sysCfg.QueueConfig), logger.With("component", "queue"))
	executionQueue.Start(appCtx)

	codeValidator := validator.NewValidator(sysCfg.SandboxConfig.Languages, sysCfg.GradingConfig.MaxCodeLength)
	testGrader := grader.NewGrader(cache, executionQueue, sysCfg.GradingConfig.InterCaseDelay, logger.With("component", "grader"))
	submissionSvc := submission.NewSubmissionService(
		submissionRepo, contentRepo, contentRepo, codeValidator, testGrader, publisher, logger,
	)

	sweeper := schedulerengine.NewSweepEngine(cache, sysCfg.CacheConfig.SweepInterval, logger.With("component", "sweeper"))
	sweeper.Start(ctx)

	serviceProvider := http2.NewServiceProvider(
		submissions.NewSubmissionHandler(submissionSvc, logger),
		execution.NewExecutionHandler(codeValidator, testGrader, sysCfg.SandboxConfig.Languages, sysCfg.GradingConfig.MaxAdHocCases, logger),
		jobs.NewJobHandler(executionQueue, codeValidator, logger),
		system.NewSystemHandler(backend, cache, executionQueue, logger),
		handlers.NewMiddlewareProvider(jwtProvider, logger),
	)

	//server
	httpServer := http2.NewServer(sysCfg.HTTPConfig.Port, "grader", *serviceProvider, logger)
	if err := httpServer.Init(); err != nil {
		return err
	}
	httpServer.Start(appCtx)

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), sysCfg.HTTPConfig.ShutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := httpServer.Stop(shutdownCtx); err != nil {
		shutdownErr = err
	}
	sweeper.Stop()
	if err := executionQueue.Stop(shutdownCtx); err != nil {
		logger.Error("Execution queue did not drain", "error", err)
		shutdownErr = err
	}

	logger.Info("successfully shutdown server")
	return shutdownErr
}

func setupCache(ctx context.Context, sysCfg *config.AppConfig, logger primary.Logger) (secondary.ExecutionCache, func(), error) {
	cacheCfg := sysCfg.CacheConfig
	switch cacheCfg.Backend {
	case config.CacheBackendMemory:
		return memory.New(cacheCfg.MaxSize, cacheCfg.TTL), func() {}, nil
	case config.CacheBackendRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     sysCfg.RedisConfig.Url,
			Password: sysCfg.RedisConfig.Password,
			DB:       sysCfg.RedisConfig.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			logger.Error("Failed to connect to redis", "addr", sysCfg.RedisConfig.Url, "error", err)
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		c := rediscache.New(redisClient, cacheCfg.KeyPrefix, cacheCfg.MaxSize, cacheCfg.TTL, logger)
		return c, func() { _ = redisClient.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cacheCfg.Backend)
	}
}

func setupPublisher(sysCfg *config.AppConfig, logger primary.Logger) (secondary.EventPublisher, func(), error) {
	if sysCfg.RabbitMQConfig.URL == "" {
		logger.Info("RABBITMQ_URL not set, grading events are only logged")
		return events.NewLogPublisher(logger), func() {}, nil
	}
	publisher, err := events.NewRabbitMQPublisher(sysCfg.RabbitMQConfig, logger)
	if err != nil {
		return nil, nil, err
	}
	return publisher, func() { _ = publisher.Close() }, nil
}
