package handlers

import (
	"net/http"
	"strings"
	"time"

	"gitlab.com/fcv-2025.net/grader/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/grader/internal/domain"
)

type MiddlewareProvider struct {
	verifier primary.TokenVerifier
	logger   primary.Logger
}

func NewMiddlewareProvider(verifier primary.TokenVerifier, logger primary.Logger) *MiddlewareProvider {
	return &MiddlewareProvider{
		verifier: verifier,
		logger:   logger,
	}
}

// JWTMiddleware resolves the bearer token into a domain.Principal on the request context
func (m *MiddlewareProvider) JWTMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			ResponseError(w, "Authorization header missing", http.StatusUnauthorized)
			return
		}

		tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || tokenString == "" {
			ResponseError(w, "Authorization header must be a bearer token", http.StatusUnauthorized)
			return
		}

		principal, err := m.verifier.Verify(r.Context(), tokenString)
		if err != nil {
			m.logger.Debug("Rejected token", "path", r.URL.Path, "error", err)
			ResponseError(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(domain.WithPrincipal(r.Context(), principal)))
	})
}

// RequireStaff must run after JWTMiddleware
func (m *MiddlewareProvider) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := domain.PrincipalFrom(r.Context())
		if !ok || !principal.IsStaff() {
			ResponseError(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (m *MiddlewareProvider) LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if p := recover(); p != nil {
				m.logger.Error("Handler panicked", "method", r.Method, "path", r.URL.Path, "panic", p)
				ResponseError(rec, "internal server error", http.StatusInternalServerError)
			}
			m.logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"durationMs", time.Since(start).Milliseconds())
		}()
		next.ServeHTTP(rec, r)
	})
}

// Caller returns the principal set by JWTMiddleware
func Caller(r *http.Request) domain.Principal {
	p, _ := domain.PrincipalFrom(r.Context())
	return p
}
