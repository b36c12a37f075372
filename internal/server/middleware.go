package server

import (
	"context"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/student-auth/studentauth/internal/auth"
	"github.com/student-auth/studentauth/internal/errors"
	"github.com/student-auth/studentauth/internal/observability"
	"github.com/student-auth/studentauth/pkg/api"
)

type contextKey string

const sessionTokenKey contextKey = "studentauth_session_token"

// requestID propagates the caller's X-Request-ID or assigns a new one.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(api.HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = observability.NewRequestID()
		}
		w.Header().Set(api.HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(observability.ContextWithRequestID(r.Context(), id)))
	})
}

// logRequests writes one structured line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info("request",
			zap.String("request_id", observability.RequestIDFromContext(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// recoverPanics turns a handler panic into a 500 response.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.log.Error("handler panic",
					zap.String("request_id", observability.RequestIDFromContext(r.Context())),
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				writeJSON(w, http.StatusInternalServerError, errorBody("internal error", "", ""))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requireSession rejects requests without a bearer session token. The token
// itself is verified by the handler through the accounts service.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r.Header.Get(api.HeaderAuthorization))
		if token == "" {
			s.writeError(w, r, errors.NewAuthFailed("session token required"))
			return
		}
		ctx := context.WithValue(r.Context(), sessionTokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin rejects requests without a valid admin token.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r.Header.Get(api.HeaderAuthorization))
		principal, err := s.admin.ValidateToken(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if !principal.HasRole(auth.RoleAdmin) {
			s.writeError(w, r, errors.NewAuthFailed("admin role required"))
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), principal)))
	})
}

func sessionToken(ctx context.Context) string {
	token, _ := ctx.Value(sessionTokenKey).(string)
	return token
}
