package system

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/grader/internal/core/services/queue"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
	"gitlab.com/fcv-2025.net/grader/internal/handlers"
)

const healthProbeTimeout = 5 * time.Second

type HealthResponse struct {
	Status  string               `json:"status"`
	Sandbox domain.BackendHealth `json:"sandbox"`
	Cache   domain.CacheStats    `json:"cache"`
	Queue   domain.QueueStats    `json:"queue"`
}

// SystemHandler reports backend reachability, cache and queue state
type SystemHandler struct {
	backend secondary.SandboxBackend
	cache   secondary.ExecutionCache
	queue   queue.IExecutionQueue
	logger  primary.Logger
}

func NewSystemHandler(backend secondary.SandboxBackend, cache secondary.ExecutionCache, q queue.IExecutionQueue, logger primary.Logger) *SystemHandler {
	return &SystemHandler{
		backend: backend,
		cache:   cache,
		queue:   q,
		logger:  logger,
	}
}

// RegisterPublicRoutes mounts the unauthenticated health routes
func (h *SystemHandler) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/api/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/api/cache/stats", h.CacheStats).Methods(http.MethodGet)
}

// RegisterStaffRoutes expects router to enforce staff access
func (h *SystemHandler) RegisterStaffRoutes(router *mux.Router) {
	router.HandleFunc("/api/cache", h.ClearCache).Methods(http.MethodDelete)
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:  "ok",
		Sandbox: h.backend.HealthCheck(ctx),
		Cache:   h.cache.Stats(ctx),
		Queue:   h.queue.Stats(ctx),
	}
	status := http.StatusOK
	if !resp.Sandbox.Reachable {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
		h.logger.Warn("Sandbox backend unreachable", "backend", resp.Sandbox.Backend, "message", resp.Sandbox.Message)
	}
	handlers.ResponseWithJson(w, status, resp)
}

func (h *SystemHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	handlers.ResponseWithJson(w, http.StatusOK, h.cache.Stats(r.Context()))
}

func (h *SystemHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Clear(r.Context()); err != nil {
		handlers.ResponseServiceError(w, h.logger, "clear cache", err)
		return
	}
	h.logger.Info("Execution cache cleared", "by", handlers.Caller(r).UserID)
	w.WriteHeader(http.StatusNoContent)
}
