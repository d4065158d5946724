// Package sandbox selects the configured execution backend.
package sandbox

import (
	"fmt"

	"gitlab.com/fcv-2025.net/grader/internal/adapter/sandbox/judge0"
	"gitlab.com/fcv-2025.net/grader/internal/adapter/sandbox/piston"
	"gitlab.com/fcv-2025.net/grader/internal/config"
	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/core/ports/secondary"
)

// New builds the backend named by cfg.Provider
func New(cfg *config.SandboxConfig, logger primary.Logger) (secondary.SandboxBackend, error) {
	switch cfg.Provider {
	case config.ProviderPiston:
		return piston.New(piston.Config{
			URL:            cfg.PistonURL,
			CompileTimeout: cfg.CompileTimeout,
			RunTimeout:     cfg.RunTimeout,
			ClientTimeout:  cfg.ClientTimeout,
			MemoryLimitMB:  cfg.MemoryLimitMB,
			Languages:      cfg.Languages,
		}, logger), nil
	case config.ProviderJudge0:
		return judge0.New(judge0.Config{
			URL:           cfg.Judge0URL,
			AuthToken:     cfg.Judge0Token,
			RunTimeout:    cfg.RunTimeout,
			ClientTimeout: cfg.ClientTimeout,
			MemoryLimitMB: cfg.MemoryLimitMB,
			Languages:     cfg.Languages,
		}, logger), nil
	}
	return nil, fmt.Errorf("unknown sandbox provider %q", cfg.Provider)
}
