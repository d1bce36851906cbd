package adapthttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"foodtracker/internal/app"
	"foodtracker/internal/domain"
	"foodtracker/internal/logger"
)

type contextKey string

const userContextKey contextKey = "user"

const requestIDHeader = "X-Request-ID"

// errUnauthenticated means neither a forward-auth header nor a valid
// session cookie was presented.
var errUnauthenticated = errors.New("unauthenticated")

// authenticate resolves the caller from the Remote-User forward-auth header
// first, then from the session cookie.
func (s *Server) authenticate(r *http.Request) (*domain.User, error) {
	if remoteUser := r.Header.Get("Remote-User"); remoteUser != "" {
		user, err := s.authSvc.ValidateForwardAuth(r.Context(), remoteUser)
		if err == nil && user != nil {
			return user, nil
		}
	}

	cookie, err := r.Cookie("session")
	if err != nil || cookie.Value == "" {
		return nil, errUnauthenticated
	}

	user, err := s.authSvc.ValidateSession(r.Context(), cookie.Value, r.UserAgent())
	switch {
	case errors.Is(err, app.ErrSessionNotFound), errors.Is(err, app.ErrSessionExpired), errors.Is(err, app.ErrUserNotFound):
		return nil, errUnauthenticated
	case err != nil:
		return nil, err
	}
	return user, nil
}

// authMiddleware guards API routes: unauthenticated callers get 401.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if disabled (for tests)
		if s.disableAuth {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.authenticate(r)
		if errors.Is(err, errUnauthenticated) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if err != nil {
			s.requestLog(r).Error("authenticate", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// pageAuth guards HTML routes: unauthenticated callers are sent to /login.
func (s *Server) pageAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.disableAuth {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.authenticate(r)
		if errors.Is(err, errUnauthenticated) {
			s.clearSessionCookie(w)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		if err != nil {
			s.requestLog(r).Error("authenticate", zap.Error(err))
			s.renderError(w, r, http.StatusInternalServerError, "Authentication failed.")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) code() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

// loggingMiddleware tags every request with an id and logs its outcome.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx, log := logger.WithRequestID(r.Context(), s.log, id)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r.WithContext(ctx))

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.code()),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		}
		switch {
		case rec.code() >= http.StatusInternalServerError:
			log.Error("request", fields...)
		case rec.code() >= http.StatusBadRequest:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	})
}

// metricsMiddleware records per-route request counts and latency. It must
// wrap the mux directly so the matched pattern is visible afterwards.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveHTTP(r.Method, route, rec.code(), time.Since(start))
	})
}
