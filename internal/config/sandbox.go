package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

const (
	ProviderPiston = "piston"
	ProviderJudge0 = "judge0"
)

// clientTimeoutMargin keeps the HTTP client deadline above the backend's own budget
const clientTimeoutMargin = 5 * time.Second

type SandboxConfig struct {
	Provider       string
	PistonURL      string
	Judge0URL      string
	Judge0Token    string
	CompileTimeout time.Duration
	RunTimeout     time.Duration
	ClientTimeout  time.Duration
	MemoryLimitMB  int
	Languages      domain.LanguageTable
}

func NewSandboxConfig() (*SandboxConfig, error) {
	cfg := &SandboxConfig{
		Provider:       getEnv("SANDBOX_PROVIDER", ProviderPiston),
		PistonURL:      getEnv("PISTON_URL", "https://emkc.org/api/v2/piston"),
		Judge0URL:      getEnv("JUDGE0_URL", "http://localhost:2358"),
		Judge0Token:    os.Getenv("JUDGE0_AUTH_TOKEN"),
		CompileTimeout: getMillisEnv("SANDBOX_COMPILE_TIMEOUT_MS", 10*time.Second),
		RunTimeout:     getMillisEnv("SANDBOX_RUN_TIMEOUT_MS", 3*time.Second),
		ClientTimeout:  getMillisEnv("SANDBOX_CLIENT_TIMEOUT_MS", 30*time.Second),
		MemoryLimitMB:  getIntEnv("SANDBOX_MEMORY_LIMIT_MB", 128),
		Languages:      domain.DefaultLanguages(),
	}

	if path := os.Getenv("SANDBOX_LANGUAGES_FILE"); path != "" {
		languages, err := LoadLanguageTable(path)
		if err != nil {
			return nil, err
		}
		cfg.Languages = languages
	}

	cfg.Normalize()
	return cfg, nil
}

// Normalize raises the client timeout above compile+run so that a backend
// enforcing its own limits is never cut off by the client first.
func (c *SandboxConfig) Normalize() {
	floor := c.CompileTimeout + c.RunTimeout + clientTimeoutMargin
	if c.ClientTimeout < floor {
		c.ClientTimeout = floor
	}
}

type languageFile struct {
	Languages []domain.Language `yaml:"languages"`
}

// LoadLanguageTable reads a YAML language list, e.g.
//
//	languages:
//	  - name: python
//	    version: 3.12.0
//	    file_name: solution.py
//	    judge0_id: 71
func LoadLanguageTable(path string) (domain.LanguageTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read language file: %w", err)
	}
	return ParseLanguageTable(data)
}

func ParseLanguageTable(data []byte) (domain.LanguageTable, error) {
	var file languageFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse language file: %w", err)
	}
	if len(file.Languages) == 0 {
		return nil, fmt.Errorf("language file declares no languages")
	}

	table := make(domain.LanguageTable, len(file.Languages))
	for _, lang := range file.Languages {
		if lang.Name == "" || lang.FileName == "" {
			return nil, fmt.Errorf("language entry %q is missing name or file_name", lang.Name)
		}
		table[lang.Name] = lang
	}
	return table, nil
}
