package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nuclear/internal/apperr"
	"nuclear/internal/metrics"
	"nuclear/internal/models"
	"nuclear/internal/security"
)

type contextKey string

const requestIDKey contextKey = "request_id"

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Middleware holds dependencies for middleware functions
type Middleware struct {
	verifier     *security.TokenVerifier
	limiter      *security.Limiter
	authDisabled bool
	log          *zap.Logger
}

// NewMiddleware creates a new middleware instance. With authDisabled every
// request runs as an anonymous administrator.
func NewMiddleware(verifier *security.TokenVerifier, limiter *security.Limiter, authDisabled bool, log *zap.Logger) *Middleware {
	return &Middleware{
		verifier:     verifier,
		limiter:      limiter,
		authDisabled: authDisabled,
		log:          log.Named("http"),
	}
}

// RequireAuth rejects requests without a valid bearer token
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.authDisabled {
			ctx := security.WithPrincipal(r.Context(), &security.Principal{Role: models.RoleAdmin})
			next(w, r.WithContext(ctx))
			return
		}

		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			respondWithError(w, r, m.log, apperr.Unauthorized("missing bearer token"))
			return
		}

		principal, err := m.verifier.Verify(strings.TrimSpace(raw))
		if err != nil {
			respondWithError(w, r, m.log, err)
			return
		}

		next(w, r.WithContext(security.WithPrincipal(r.Context(), principal)))
	}
}

// RequireAdmin requires an authenticated ADMIN caller
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !security.PrincipalFrom(r.Context()).IsAdmin() {
			respondWithError(w, r, m.log, apperr.Forbidden("admin role required"))
			return
		}
		next(w, r)
	})
}

// RateLimit limits requests per client IP
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter == nil {
			next(w, r)
			return
		}

		allowed, err := m.limiter.Allow(r.Context(), security.GetClientIP(r))
		if err != nil {
			m.log.Warn("rate limiter unavailable, allowing request", zap.Error(err))
		}
		if !allowed {
			metrics.RateLimited.Inc()
			respondJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Too many requests"})
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Logging assigns a request id, then logs and measures every request
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", reqID)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, reqID))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(r.Method, route, strconv.Itoa(rec.status), elapsed)

		m.log.Info("request",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed))
	})
}

// Recover turns a panic into a 500
func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				respondWithError(w, r, m.log, apperr.Operation("", "handle request", fmt.Errorf("panic: %v", v)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
