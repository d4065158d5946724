package judge0

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gitlab.com/fcv-2025.net/grader/internal/adapter/logging"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
	"gitlab.com/fcv-2025.net/grader/internal/static/errs"
)

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

func newBackend(url string) *Backend {
	return New(Config{
		URL:           url,
		AuthToken:     "secret",
		RunTimeout:    3 * time.Second,
		ClientTimeout: 10 * time.Second,
		Languages:     domain.DefaultLanguages(),
	}, logging.NewNopLogger())
}

func TestExecuteEncodesRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("base64_encoded") != "true" || r.URL.Query().Get("wait") != "true" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if r.Header.Get("X-Auth-Token") != "secret" {
			t.Errorf("missing auth token")
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body["language_id"].(float64) != 71 {
			t.Errorf("unexpected language id %v", body["language_id"])
		}
		if body["source_code"] != b64("print(5)") || body["stdin"] != b64("2 3") {
			t.Errorf("unexpected encoded body %v", body)
		}
		if body["cpu_time_limit"].(float64) != 3 {
			t.Errorf("unexpected cpu limit %v", body["cpu_time_limit"])
		}
		fmt.Fprintf(w, `{"stdout":%q,"time":"0.025","status":{"id":3,"description":"Accepted"}}`, b64("5\n"))
	}))
	defer srv.Close()

	res, err := newBackend(srv.URL).Execute(context.Background(), "python", "print(5)", "2 3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success || res.Stdout != "5\n" || res.ExecutionTimeMs != 25 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestNormalizeStatuses(t *testing.T) {
	str := func(s string) *string { return &s }
	tests := []struct {
		name    string
		raw     submissionResponse
		kind    domain.ErrorKind
		success bool
	}{
		{name: "accepted", raw: withStatus(3, nil), kind: domain.ErrorKindNone, success: true},
		{name: "time limit", raw: withStatus(5, nil), kind: domain.ErrorKindTimeout},
		{name: "compile error", raw: withStatus(6, str(b64("syntax error"))), kind: domain.ErrorKindCompile},
		{name: "runtime sigsegv", raw: withStatus(11, nil), kind: domain.ErrorKindRuntime},
		{name: "internal error", raw: withStatus(13, nil), kind: domain.ErrorKindBackendUnavailable},
		{name: "still processing", raw: withStatus(2, nil), kind: domain.ErrorKindBackendUnavailable},
		{name: "unknown", raw: withStatus(99, nil), kind: domain.ErrorKindBackendUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := normalize(&tt.raw)
			if res.ErrorKind != tt.kind || res.Success != tt.success {
				t.Fatalf("expected %v/%v, got %+v", tt.kind, tt.success, res)
			}
		})
	}

	res := normalize(&submissionResponse{CompileOutput: str(b64("syntax error")), Time: str("0.5"), Status: withStatus(6, nil).Status})
	if res.Stderr != "syntax error" || res.ExecutionTimeMs != 0 {
		t.Fatalf("compile errors report compiler output and no time, got %+v", res)
	}
}

func withStatus(id int, compileOutput *string) submissionResponse {
	var raw submissionResponse
	raw.Status.ID = id
	raw.CompileOutput = compileOutput
	return raw
}

func TestExecuteHTTPFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	res, err := newBackend(srv.URL).Execute(context.Background(), "cpp", "int main(){}", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ErrorKind != domain.ErrorKindBackendUnavailable {
		t.Fatalf("expected backend unavailable, got %+v", res)
	}
}

func TestExecuteUnsupportedLanguage(t *testing.T) {
	_, err := newBackend("http://127.0.0.1:1").Execute(context.Background(), "kotlin", "fun main() {}", "")
	if !errors.Is(err, errs.ErrUnsupportedLanguage) {
		t.Fatalf("expected unsupported language, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/about" {
			_, _ = w.Write([]byte(`{"version":"1.13.1"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	health := newBackend(srv.URL).HealthCheck(context.Background())
	if !health.Reachable || health.Languages != 5 || health.Backend != "judge0" {
		t.Fatalf("unexpected health %+v", health)
	}
}
