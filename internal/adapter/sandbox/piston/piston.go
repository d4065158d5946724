// Package piston talks to a Piston v2 execution API.
package piston

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
	"gitlab.com/fcv-2025.net/grader/internal/static/errs"
)

var _ secondary.SandboxBackend = (*Backend)(nil)

const healthTimeout = 5 * time.Second

type Config struct {
	URL            string
	CompileTimeout time.Duration
	RunTimeout     time.Duration
	ClientTimeout  time.Duration
	MemoryLimitMB  int
	Languages      domain.LanguageTable
}

type Backend struct {
	baseURL string
	cfg     Config
	client  *http.Client
	logger  primary.Logger
}

func New(cfg Config, logger primary.Logger) *Backend {
	return &Backend{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.ClientTimeout},
		logger:  logger,
	}
}

type file struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type executeRequest struct {
	Language           string `json:"language"`
	Version            string `json:"version"`
	Files              []file `json:"files"`
	Stdin              string `json:"stdin"`
	CompileTimeout     int64  `json:"compile_timeout"`
	RunTimeout         int64  `json:"run_timeout"`
	CompileMemoryLimit int64  `json:"compile_memory_limit,omitempty"`
	RunMemoryLimit     int64  `json:"run_memory_limit,omitempty"`
}

type stage struct {
	Code            *int     `json:"code"`
	Signal          string   `json:"signal"`
	Status          string   `json:"status"`
	Stdout          string   `json:"stdout"`
	Stderr          string   `json:"stderr"`
	Output          string   `json:"output"`
	ExecutionTimeMs *float64 `json:"execution_time_ms"`
	WallTime        *float64 `json:"wall_time"`
}

// exitCode treats a missing code with a signal as abnormal termination
func (s *stage) exitCode() int {
	if s.Code != nil {
		return *s.Code
	}
	if s.Signal != "" {
		return -1
	}
	return 0
}

func (s *stage) timedOut() bool {
	return s.Status == "TO" || (s.Code == nil && s.Signal == "SIGKILL")
}

func (s *stage) elapsedMs() int64 {
	switch {
	case s.ExecutionTimeMs != nil:
		return int64(*s.ExecutionTimeMs)
	case s.WallTime != nil:
		return int64(*s.WallTime)
	}
	return 0
}

type executeResponse struct {
	Language string `json:"language"`
	Version  string `json:"version"`
	Compile  *stage `json:"compile"`
	Run      *stage `json:"run"`
	Message  string `json:"message"`
}

func (b *Backend) Name() string {
	return "piston"
}

func (b *Backend) Execute(ctx context.Context, language, code, stdin string) (*domain.ExecutionResult, error) {
	lang, ok := b.cfg.Languages.Lookup(language)
	if !ok {
		return nil, errs.Validation(errs.ErrUnsupportedLanguage, "%q", language)
	}

	payload := executeRequest{
		Language:       lang.Name,
		Version:        lang.Version,
		Files:          []file{{Name: lang.FileName, Content: code}},
		Stdin:          stdin,
		CompileTimeout: b.cfg.CompileTimeout.Milliseconds(),
		RunTimeout:     b.cfg.RunTimeout.Milliseconds(),
	}
	if b.cfg.MemoryLimitMB > 0 {
		limit := int64(b.cfg.MemoryLimitMB) * 1024 * 1024
		payload.CompileMemoryLimit = limit
		payload.RunMemoryLimit = limit
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Warn("Piston request failed", "language", language, "error", err)
		return domain.Unavailable("piston request failed: %v", err), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		b.logger.Warn("Piston returned error status", "status", resp.StatusCode, "language", language)
		return domain.Unavailable("piston returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil
	}

	var out executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.Unavailable("decode piston response: %v", err), nil
	}
	return normalize(&out), nil
}

// normalize collapses the compile and run stages into one result.
// A failed compile stage wins and the run stage is never consulted.
func normalize(out *executeResponse) *domain.ExecutionResult {
	if c := out.Compile; c != nil && c.exitCode() != 0 {
		stderr := c.Stderr
		if stderr == "" {
			stderr = c.Output
		}
		return &domain.ExecutionResult{
			Success:   false,
			Stdout:    c.Stdout,
			Stderr:    stderr,
			ErrorKind: domain.ErrorKindCompile,
		}
	}

	run := out.Run
	if run == nil {
		if out.Message != "" {
			return domain.Unavailable("piston: %s", out.Message)
		}
		return domain.Unavailable("piston response has no run stage")
	}

	result := &domain.ExecutionResult{
		Stdout:          run.Stdout,
		Stderr:          run.Stderr,
		ExecutionTimeMs: run.elapsedMs(),
	}
	switch {
	case run.timedOut():
		result.ErrorKind = domain.ErrorKindTimeout
	case run.exitCode() != 0:
		result.ErrorKind = domain.ErrorKindRuntime
	default:
		result.Success = true
	}
	return result
}

type runtimeInfo struct {
	Language string   `json:"language"`
	Version  string   `json:"version"`
	Aliases  []string `json:"aliases"`
}

func (b *Backend) HealthCheck(ctx context.Context) domain.BackendHealth {
	health := domain.BackendHealth{Backend: b.Name(), Languages: len(b.cfg.Languages)}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/runtimes", nil)
	if err != nil {
		health.Message = err.Error()
		return health
	}
	resp, err := b.client.Do(req)
	if err != nil {
		health.Message = err.Error()
		return health
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		health.Message = fmt.Sprintf("runtimes returned HTTP %d", resp.StatusCode)
		return health
	}

	var runtimes []runtimeInfo
	if err := json.NewDecoder(resp.Body).Decode(&runtimes); err != nil {
		health.Message = fmt.Sprintf("decode runtimes: %v", err)
		return health
	}
	health.Reachable = true

	installed := make(map[string]bool, len(runtimes))
	for _, rt := range runtimes {
		installed[rt.Language] = true
		for _, alias := range rt.Aliases {
			installed[alias] = true
		}
	}
	var missing []string
	for _, name := range b.cfg.Languages.Names() {
		if !installed[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		health.Message = "runtimes not installed: " + strings.Join(missing, ", ")
	}
	return health
}

func (b *Backend) SupportedLanguages() []domain.Language {
	return b.cfg.Languages.List()
}
