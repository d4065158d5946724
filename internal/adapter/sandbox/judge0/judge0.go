// Package judge0 talks to a Judge0 CE instance in synchronous mode.
package judge0

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
	"gitlab.com/fcv-2025.net/grader/internal/static/errs"
)

var _ secondary.SandboxBackend = (*Backend)(nil)

// Judge0 status ids
const (
	statusInQueue         = 1
	statusProcessing      = 2
	statusAccepted        = 3
	statusWrongAnswer     = 4
	statusTimeLimit       = 5
	statusCompileError    = 6
	statusInternalError   = 13
	statusExecFormatError = 14
)

type Config struct {
	URL           string
	AuthToken     string
	RunTimeout    time.Duration
	ClientTimeout time.Duration
	MemoryLimitMB int
	Languages     domain.LanguageTable
}

type Backend struct {
	url    string
	cfg    Config
	client *http.Client
	logger primary.Logger
}

func New(cfg Config, logger primary.Logger) *Backend {
	return &Backend{
		url:    strings.TrimRight(cfg.URL, "/"),
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.ClientTimeout},
		logger: logger,
	}
}

func (b *Backend) Name() string {
	return "judge0"
}

type submissionResponse struct {
	Token         string  `json:"token"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Time          *string `json:"time"`
	Status        struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
	} `json:"status"`
}

// Execute submits source code with wait=true so Judge0 answers with the final verdict.
// Source, stdin and outputs travel base64 encoded.
func (b *Backend) Execute(ctx context.Context, language, code, stdin string) (*domain.ExecutionResult, error) {
	lang, ok := b.cfg.Languages.Lookup(language)
	if !ok || lang.Judge0ID == 0 {
		return nil, errs.Validation(errs.ErrUnsupportedLanguage, "%q", language)
	}

	limit := b.cfg.RunTimeout.Seconds()
	reqBody := map[string]interface{}{
		"source_code":     base64.StdEncoding.EncodeToString([]byte(code)),
		"language_id":     lang.Judge0ID,
		"cpu_time_limit":  limit,
		"wall_time_limit": limit,
	}
	if stdin != "" {
		reqBody["stdin"] = base64.StdEncoding.EncodeToString([]byte(stdin))
	}
	if b.cfg.MemoryLimitMB > 0 {
		reqBody["memory_limit"] = b.cfg.MemoryLimitMB * 1024
	}

	bodyJSON, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.url+"/submissions?base64_encoded=true&wait=true", bytes.NewReader(bodyJSON))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.cfg.AuthToken != "" {
		req.Header.Set("X-Auth-Token", b.cfg.AuthToken)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Warn("Judge0 request failed", "language", language, "error", err)
		return domain.Unavailable("submit to judge0: %v", err), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		b.logger.Warn("Judge0 returned error status", "status", resp.StatusCode, "language", language)
		return domain.Unavailable("judge0 returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil
	}

	var raw submissionResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return domain.Unavailable("decode judge0 response: %v", err), nil
	}
	return normalize(&raw), nil
}

func normalize(raw *submissionResponse) *domain.ExecutionResult {
	result := &domain.ExecutionResult{
		Stdout:          decode(raw.Stdout),
		Stderr:          decode(raw.Stderr),
		ExecutionTimeMs: parseSeconds(raw.Time),
	}

	switch id := raw.Status.ID; {
	case id == statusAccepted || id == statusWrongAnswer:
		result.Success = true
	case id == statusTimeLimit:
		result.ErrorKind = domain.ErrorKindTimeout
	case id == statusCompileError:
		result.ErrorKind = domain.ErrorKindCompile
		result.Stderr = decode(raw.CompileOutput)
		result.Stdout = ""
		result.ExecutionTimeMs = 0
	case id == statusInQueue || id == statusProcessing || id == statusInternalError:
		return domain.Unavailable("judge0 status %d %s: %s", id, raw.Status.Description, decode(raw.Message))
	case id > statusCompileError && id <= statusExecFormatError:
		result.ErrorKind = domain.ErrorKindRuntime
		if result.Stderr == "" {
			result.Stderr = decode(raw.Message)
		}
	default:
		return domain.Unavailable("judge0 returned unknown status %d", id)
	}
	return result
}

func decode(field *string) string {
	if field == nil {
		return ""
	}
	dec, err := base64.StdEncoding.DecodeString(*field)
	if err != nil {
		return *field
	}
	return string(dec)
}

// parseSeconds turns Judge0's "0.012" into milliseconds
func parseSeconds(field *string) int64 {
	if field == nil {
		return 0
	}
	sec, err := strconv.ParseFloat(*field, 64)
	if err != nil {
		return 0
	}
	return int64(sec * 1000)
}

func (b *Backend) HealthCheck(ctx context.Context) domain.BackendHealth {
	health := domain.BackendHealth{Backend: b.Name(), Languages: len(b.SupportedLanguages())}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url+"/about", nil)
	if err != nil {
		health.Message = err.Error()
		return health
	}
	if b.cfg.AuthToken != "" {
		req.Header.Set("X-Auth-Token", b.cfg.AuthToken)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		health.Message = err.Error()
		return health
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		health.Message = fmt.Sprintf("about returned HTTP %d", resp.StatusCode)
		return health
	}
	health.Reachable = true
	return health
}

func (b *Backend) SupportedLanguages() []domain.Language {
	var out []domain.Language
	for _, lang := range b.cfg.Languages.List() {
		if lang.Judge0ID > 0 {
			out = append(out, lang)
		}
	}
	return out
}
