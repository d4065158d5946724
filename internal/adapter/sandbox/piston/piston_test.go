package piston

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gitlab.com/fcv-2025.net/grader/internal/adapter/logging"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
	"gitlab.com/fcv-2025.net/grader/internal/static/errs"
)

func newBackend(url string) *Backend {
	return New(Config{
		URL:            url,
		CompileTimeout: 10 * time.Second,
		RunTimeout:     3 * time.Second,
		ClientTimeout:  5 * time.Second,
		Languages:      domain.DefaultLanguages(),
	}, logging.NewNopLogger())
}

func serve(t *testing.T, status int, body string, inspect func(executeRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/execute" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req executeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if inspect != nil {
			inspect(req)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExecuteSendsLanguageTriple(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"run":{"code":0,"stdout":"5\n","stderr":"","execution_time_ms":12}}`, func(req executeRequest) {
		if req.Language != "python" || req.Version != "3.12.0" {
			t.Errorf("unexpected language triple %s %s", req.Language, req.Version)
		}
		if len(req.Files) != 1 || req.Files[0].Name != "solution.py" {
			t.Errorf("unexpected files %+v", req.Files)
		}
		if req.Stdin != "2 3" {
			t.Errorf("unexpected stdin %q", req.Stdin)
		}
		if req.CompileTimeout != 10000 || req.RunTimeout != 3000 {
			t.Errorf("unexpected timeouts %d/%d", req.CompileTimeout, req.RunTimeout)
		}
	})

	res, err := newBackend(srv.URL).Execute(context.Background(), "python", "print(5)", "2 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Stdout != "5\n" || res.ExecutionTimeMs != 12 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestExecuteNormalizesStages(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		kind    domain.ErrorKind
		success bool
		stderr  string
		elapsed int64
	}{
		{
			name:    "compile error skips run stage",
			body:    `{"compile":{"code":1,"stdout":"","stderr":"error: expected ';'"},"run":{"code":0,"stdout":"ignored","execution_time_ms":40}}`,
			kind:    domain.ErrorKindCompile,
			stderr:  "error: expected ';'",
			elapsed: 0,
		},
		{
			name:    "runtime error",
			body:    `{"compile":{"code":0},"run":{"code":1,"stdout":"partial","stderr":"Traceback","execution_time_ms":7}}`,
			kind:    domain.ErrorKindRuntime,
			stderr:  "Traceback",
			elapsed: 7,
		},
		{
			name:    "killed by timeout",
			body:    `{"run":{"code":null,"signal":"SIGKILL","stdout":"","stderr":"","wall_time":3001}}`,
			kind:    domain.ErrorKindTimeout,
			elapsed: 3001,
		},
		{
			name: "timeout status",
			body: `{"run":{"code":null,"status":"TO","signal":"SIGKILL"}}`,
			kind: domain.ErrorKindTimeout,
		},
		{
			name:    "success without compile stage",
			body:    `{"run":{"code":0,"stdout":"ok","execution_time_ms":3}}`,
			kind:    domain.ErrorKindNone,
			success: true,
			elapsed: 3,
		},
		{
			name: "missing run stage",
			body: `{"message":"python-3.12.0 runtime is unknown"}`,
			kind: domain.ErrorKindBackendUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, http.StatusOK, tt.body, nil)
			res, err := newBackend(srv.URL).Execute(context.Background(), "cpp", "int main(){}", "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.ErrorKind != tt.kind || res.Success != tt.success {
				t.Fatalf("expected kind %v success %v, got %+v", tt.kind, tt.success, res)
			}
			if tt.stderr != "" && res.Stderr != tt.stderr {
				t.Fatalf("expected stderr %q, got %q", tt.stderr, res.Stderr)
			}
			if res.ExecutionTimeMs != tt.elapsed {
				t.Fatalf("expected %dms, got %d", tt.elapsed, res.ExecutionTimeMs)
			}
		})
	}
}

func TestExecuteServiceUnavailable(t *testing.T) {
	srv := serve(t, http.StatusServiceUnavailable, "overloaded", nil)
	res, err := newBackend(srv.URL).Execute(context.Background(), "python", "print(1)", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ErrorKind != domain.ErrorKindBackendUnavailable || res.Success {
		t.Fatalf("expected backend unavailable, got %+v", res)
	}
	if !res.Transient() {
		t.Fatalf("expected result to be transient")
	}
}

func TestExecuteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res, err := newBackend(url).Execute(context.Background(), "python", "print(1)", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ErrorKind != domain.ErrorKindBackendUnavailable {
		t.Fatalf("expected backend unavailable, got %+v", res)
	}
}

func TestExecuteUnsupportedLanguageSkipsNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := newBackend(srv.URL).Execute(context.Background(), "cobol", "DISPLAY 'HI'", "")
	if !errors.Is(err, errs.ErrUnsupportedLanguage) {
		t.Fatalf("expected unsupported language, got %v", err)
	}
	if called {
		t.Fatalf("backend must not be called for unsupported languages")
	}
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/runtimes" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`[
			{"language":"python","version":"3.12.0","aliases":["py"]},
			{"language":"javascript","version":"20.11.1","aliases":["node-js"]},
			{"language":"java","version":"15.0.2","aliases":[]},
			{"language":"c++","version":"10.2.0","aliases":["cpp"]},
			{"language":"c","version":"10.2.0","aliases":["gcc"]}
		]`))
	}))
	defer srv.Close()

	health := newBackend(srv.URL).HealthCheck(context.Background())
	if !health.Reachable {
		t.Fatalf("expected reachable, got %+v", health)
	}
	if health.Languages != 5 || health.Message != "" {
		t.Fatalf("unexpected health %+v", health)
	}
}

func TestHealthCheckUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	health := newBackend(srv.URL).HealthCheck(context.Background())
	if health.Reachable {
		t.Fatalf("expected unreachable")
	}
	if health.Backend != "piston" {
		t.Fatalf("unexpected backend name %q", health.Backend)
	}
}
