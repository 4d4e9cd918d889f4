// Package api exposes the control API over HTTP: operator auth, call
// control (dial, answer, conference, video mode), call records and
// Prometheus metrics. Every call mutation is posted to the serialized
// request worker so handlers never race each other.
package api

import (
	"net/http"

	"github.com/callgrid/callgrid/internal/call"
	"github.com/callgrid/callgrid/internal/cdr"
	"github.com/callgrid/callgrid/internal/config"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/callgrid/callgrid/internal/api/middleware"
)

// Server holds HTTP handler dependencies and the chi router.
type Server struct {
	router   *chi.Mux
	cfg      *config.Config
	registry *call.Registry
	worker   *call.RequestHandler
	process  *call.RequestProcess
	store    cdr.Store
	gatherer prometheus.Gatherer

	jwtSecret    []byte
	passwordHash []byte

	readThrottle   *mw.Throttle
	mutateThrottle *mw.Throttle
	loginThrottle  *mw.Throttle
}

// NewServer creates the HTTP handler with all routes mounted. It
// derives the JWT signing key and the operator password hash from the
// configuration.
func NewServer(cfg *config.Config, registry *call.Registry, worker *call.RequestHandler,
	process *call.RequestProcess, store cdr.Store, gatherer prometheus.Gatherer) (*Server, error) {
	secret, err := cfg.JWTSecretBytes()
	if err != nil {
		return nil, err
	}
	hash, err := cfg.APIPasswordHash()
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:         chi.NewRouter(),
		cfg:            cfg,
		registry:       registry,
		worker:         worker,
		process:        process,
		store:          store,
		gatherer:       gatherer,
		jwtSecret:      secret,
		passwordHash:   hash,
		readThrottle:   mw.NewThrottle("read", mw.ReadQuota),
		mutateThrottle: mw.NewThrottle("call-mutation", mw.MutateQuota),
		loginThrottle:  mw.NewThrottle("login", mw.LoginQuota),
	}

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close stops the throttle sweep goroutines.
func (s *Server) Close() {
	s.readThrottle.Close()
	s.mutateThrottle.Close()
	s.loginThrottle.Close()
}

// routes configures all middleware and mounts all route groups.
func (s *Server) routes() {
	r := s.router

	// Global middleware stack. The read throttle is the outer bound for
	// everything; mutation and login routes stack tighter ones below.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.RequestLogger)
	r.Use(mw.Recoverer)
	r.Use(s.readThrottle.Limit)

	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated routes.
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.loginThrottle.Limit)
			r.Post("/auth/login", s.handleLogin)
		})

		// Operator routes.
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth(s.jwtSecret))

			r.Route("/calls", func(r chi.Router) {
				r.Get("/", s.handleListCalls)
				r.Get("/foreground", s.handleForegroundCall)
				r.With(s.mutateThrottle.Limit).Post("/dial", s.handleDial)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetCall)

					r.Group(func(r chi.Router) {
						r.Use(s.mutateThrottle.Limit)
						r.Post("/answer", s.handleAnswer)
						r.Post("/reject", s.handleReject)
						r.Post("/hangup", s.handleHangUp)
						r.Post("/hold", s.handleHold)
						r.Post("/unhold", s.handleUnHold)
						r.Post("/switch", s.handleSwitch)
						r.Post("/media-mode", s.handleUpdateMediaMode)
						r.Post("/rtt/start", s.handleStartRtt)
						r.Post("/rtt/stop", s.handleStopRtt)
						r.Post("/dtmf/start", s.handleStartDtmf)
						r.Post("/dtmf/stop", s.handleStopDtmf)
					})
				})
			})

			r.Route("/conference", func(r chi.Router) {
				r.Use(s.mutateThrottle.Limit)
				r.Post("/combine", s.handleCombineConference)
				r.Post("/{id}/separate", s.handleSeparateConference)
				r.Post("/{id}/kickout", s.handleKickOutFromConference)
			})

			r.Route("/records", func(r chi.Router) {
				r.Get("/", s.handleListRecords)
				r.Get("/{recordID}", s.handleGetRecord)
			})
		})
	})
}

// handleHealth returns basic health status. Unauthenticated.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"active_calls": s.registry.GetActiveCallCount(),
	})
}
