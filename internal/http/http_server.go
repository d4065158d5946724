package http

// this is entry point of the http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/handlers"
	"gitlab.com/fcv-2025.net/grader/internal/handlers/execution"
	"gitlab.com/fcv-2025.net/grader/internal/handlers/jobs"
	"gitlab.com/fcv-2025.net/grader/internal/handlers/submissions"
	"gitlab.com/fcv-2025.net/grader/internal/handlers/system"
)

type ServiceProvider struct {
	submissions *submissions.SubmissionHandler
	execution   *execution.ExecutionHandler
	jobs        *jobs.JobHandler
	system      *system.SystemHandler
	middleware  *handlers.MiddlewareProvider
}

func NewServiceProvider(
	submissionHandler *submissions.SubmissionHandler,
	executionHandler *execution.ExecutionHandler,
	jobHandler *jobs.JobHandler,
	systemHandler *system.SystemHandler,
	middleware *handlers.MiddlewareProvider,
) *ServiceProvider {
	return &ServiceProvider{
		submissions: submissionHandler,
		execution:   executionHandler,
		jobs:        jobHandler,
		system:      systemHandler,
		middleware:  middleware,
	}
}

type Server struct {
	router          *mux.Router
	srv             *http.Server
	Port            int
	ServiceName     string
	ServiceProvider ServiceProvider
	logger          primary.Logger
}

func NewServer(port int, serviceName string, serviceProvider ServiceProvider, logger primary.Logger) *Server {
	return &Server{
		Port:            port,
		ServiceName:     serviceName,
		ServiceProvider: serviceProvider,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	sp := s.ServiceProvider
	if sp.middleware == nil {
		return errors.New("middleware provider is required")
	}

	r := mux.NewRouter()
	r.Use(sp.middleware.LoggingMiddleware)

	// health and cache stats stay unauthenticated for load balancer checks
	sp.system.RegisterPublicRoutes(r)

	authed := r.NewRoute().Subrouter()
	authed.Use(sp.middleware.JWTMiddleware)

	staff := authed.NewRoute().Subrouter()
	staff.Use(sp.middleware.RequireStaff)
	sp.system.RegisterStaffRoutes(staff)

	sp.submissions.RegisterRoutes(authed)
	sp.execution.RegisterRoutes(authed)
	sp.jobs.RegisterRoutes(authed)

	s.router = r
	return nil
}

// Handler exposes the router for in-process tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		s.logger.Info("Server listening", "service", s.ServiceName, "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down http server...")
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("Server forced to shutdown", "error", err)
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}
	return nil
}
