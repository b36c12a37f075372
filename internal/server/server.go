// Package server exposes the registration, login and scoring operations
// over HTTP.
package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/student-auth/studentauth/internal/accounts"
	"github.com/student-auth/studentauth/internal/auth"
	"github.com/student-auth/studentauth/internal/status"
	"github.com/student-auth/studentauth/pkg/api"
)

// Config holds server configuration.
type Config struct {
	// Version is reported by /health.
	Version string

	// MaxBodyBytes caps request bodies. Default: 1 MiB.
	MaxBodyBytes int64
}

// Server is the HTTP front end. It implements http.Handler.
type Server struct {
	accounts *accounts.Service
	admin    auth.Authenticator
	checker  *status.Checker
	log      *zap.Logger
	config   Config
	router   chi.Router
}

// New creates a server. The accounts service and admin authenticator are
// required; checker may be nil, in which case readiness only probes the
// student store.
func New(svc *accounts.Service, admin auth.Authenticator, checker *status.Checker, log *zap.Logger, cfg Config) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("server: accounts service is required")
	}
	if admin == nil {
		return nil, fmt.Errorf("server: admin authenticator is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if checker == nil {
		checker = status.NewChecker(0)
		checker.Register("database", svc.CheckConnectivity)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.Version == "" {
		cfg.Version = api.Version
	}

	s := &Server{
		accounts: svc,
		admin:    admin,
		checker:  checker,
		log:      log.Named("http"),
		config:   cfg,
	}
	s.router = s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)
	r.Use(chimw.CleanPath)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody("not found", "no route for "+r.URL.Path, ""))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed", r.Method+" is not supported on "+r.URL.Path, ""))
	})

	r.Get(api.EndpointHealth, s.handleHealth)
	r.Get(api.EndpointReady, s.handleReady)

	r.Post(api.EndpointValidate, s.handleValidate)
	r.Post(api.EndpointRegister, s.handleRegister)
	r.Post(api.EndpointLogin, s.handleLogin)
	r.Post(api.EndpointScore, s.handleScore)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Post(api.EndpointLogout, s.handleLogout)
		r.Get(api.EndpointMe, s.handleMe)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get(api.EndpointStudents, s.handleListStudents)
		r.Get(api.EndpointAuditSummary, s.handleAuditSummary)
	})
	return r
}
