package system

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/fcv-2025.net/grader/internal/adapter/cache/memory"
	"gitlab.com/fcv-2025.net/grader/internal/adapter/logging"
	"gitlab.com/fcv-2025.net/grader/internal/core/services/queue"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
	"gitlab.com/fcv-2025.net/grader/internal/handlers"
)

type healthBackend struct {
	reachable bool
}

func (healthBackend) Name() string { return "stub" }

func (healthBackend) Execute(context.Context, string, string, string) (*domain.ExecutionResult, error) {
	return &domain.ExecutionResult{Success: true}, nil
}

func (b healthBackend) HealthCheck(context.Context) domain.BackendHealth {
	if !b.reachable {
		return domain.BackendHealth{Backend: "stub", Message: "connection refused"}
	}
	return domain.BackendHealth{Backend: "stub", Reachable: true, Languages: 5}
}

func (healthBackend) SupportedLanguages() []domain.Language { return domain.DefaultLanguages().List() }

type allowAll struct{ role domain.Role }

func (a allowAll) Verify(context.Context, string) (domain.Principal, error) {
	return domain.Principal{UserID: "u", Role: a.role}, nil
}

func newRouter(t *testing.T, backend healthBackend, role domain.Role) (http.Handler, *memory.Cache) {
	t.Helper()
	logger := logging.NewNopLogger()
	cache := memory.New(10, time.Hour)
	q := queue.NewExecutionQueue(backend, queue.Options{PoolSize: 3}, logger)
	t.Cleanup(func() { _ = q.Stop(context.Background()) })

	h := NewSystemHandler(backend, cache, q, logger)
	mw := handlers.NewMiddlewareProvider(allowAll{role: role}, logger)

	router := mux.NewRouter()
	h.RegisterPublicRoutes(router)
	staff := router.NewRoute().Subrouter()
	staff.Use(mw.JWTMiddleware, mw.RequireStaff)
	h.RegisterStaffRoutes(staff)
	return router, cache
}

func get(h http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer t")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := newRouter(t, healthBackend{reachable: true}, domain.RoleStudent)

	rec := get(h, http.MethodGet, "/api/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Sandbox.Languages != 5 || resp.Queue.PoolSize != 3 || resp.Cache.MaxSize != 10 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestHealthDegraded(t *testing.T) {
	h, _ := newRouter(t, healthBackend{}, domain.RoleStudent)

	rec := get(h, http.MethodGet, "/api/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCacheStatsAndClear(t *testing.T) {
	ctx := context.Background()
	h, cache := newRouter(t, healthBackend{reachable: true}, domain.RoleAdmin)
	cache.Set(ctx, "python", "print(1)", "", &domain.ExecutionResult{Success: true, Stdout: "1"})
	cache.Get(ctx, "python", "print(1)", "")

	rec := get(h, http.MethodGet, "/api/cache/stats")
	var stats domain.CacheStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Size != 1 || stats.Hits != 1 || stats.HitRate != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	if rec := get(h, http.MethodDelete, "/api/cache"); rec.Code != http.StatusNoContent {
		t.Fatalf("clear: status = %d", rec.Code)
	}
	if stats := cache.Stats(ctx); stats.Size != 0 {
		t.Fatalf("cache not cleared: %+v", stats)
	}
}

func TestClearCacheRequiresStaff(t *testing.T) {
	h, _ := newRouter(t, healthBackend{reachable: true}, domain.RoleStudent)

	if rec := get(h, http.MethodDelete, "/api/cache"); rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d", rec.Code)
	}
}
