// Package httpserver exposes the REST API over gorilla/mux.
package httpserver

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/and161185/fittrack/internal/metrics"
	"github.com/and161185/fittrack/internal/service"
)

// HealthCheck reports backend readiness for /healthz.
type HealthCheck func(ctx context.Context) error

// Server wires services to HTTP routes.
type Server struct {
	auth     service.AuthService
	workouts service.WorkoutService
	signKey  []byte
	log      *zap.Logger

	metrics     *metrics.Manager
	gatherer    prometheus.Gatherer
	limiter     RequestRateLimiter
	limitPerMin int
	health      HealthCheck

	router *mux.Router
}

// Option customizes Server.
type Option func(*Server)

// WithMetrics enables request metrics and serves g on /metrics.
func WithMetrics(m *metrics.Manager, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithRateLimiter throttles every client IP to perMin requests.
func WithRateLimiter(rl RequestRateLimiter, perMin int) Option {
	return func(s *Server) {
		s.limiter = rl
		s.limitPerMin = perMin
	}
}

// WithHealthCheck makes /healthz ping the backend.
func WithHealthCheck(h HealthCheck) Option {
	return func(s *Server) { s.health = h }
}

// New builds the server and its router.
func New(auth service.AuthService, workouts service.WorkoutService, signKey []byte, log *zap.Logger, opts ...Option) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{auth: auth, workouts: workouts, signKey: signKey, log: log}
	for _, o := range opts {
		o(s)
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Use(RequestID(), Logging(s.log), Recover(s.log, s.metrics))
	if s.metrics != nil {
		r.Use(RequestMetrics(s.metrics))
	}

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	if s.limiter != nil && s.limitPerMin > 0 {
		api.Use(RateLimit(s.limiter, s.limitPerMin, s.log))
	}

	api.HandleFunc("/auth/signup", s.handleSignup).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	priv := api.NewRoute().Subrouter()
	priv.Use(s.Auth())

	priv.HandleFunc("/user/{id:[0-9]+}", s.handleGetProfile).Methods(http.MethodGet)
	priv.HandleFunc("/user/{id:[0-9]+}", s.handleUpdateProfile).Methods(http.MethodPut)
	priv.HandleFunc("/user/{id:[0-9]+}/export", s.handleExport).Methods(http.MethodGet)

	priv.HandleFunc("/workouts", s.handleCreateWorkout).Methods(http.MethodPost)
	priv.HandleFunc("/workouts/user/{userId:[0-9]+}", s.handleListWorkouts).Methods(http.MethodGet)
	priv.HandleFunc("/workouts/{id:[0-9]+}", s.handleGetWorkout).Methods(http.MethodGet)
	priv.HandleFunc("/workouts/{id:[0-9]+}", s.handleUpdateWorkout).Methods(http.MethodPut)
	priv.HandleFunc("/workouts/{id:[0-9]+}", s.handleDeleteWorkout).Methods(http.MethodDelete)

	priv.HandleFunc("/stats/summary", s.handleSummary).Methods(http.MethodGet)
	priv.HandleFunc("/stats/weekly", s.handleWeekly).Methods(http.MethodGet)
	priv.HandleFunc("/stats/monthly", s.handleMonthly).Methods(http.MethodGet)
	priv.HandleFunc("/stats/distribution", s.handleDistribution).Methods(http.MethodGet)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			writeMessage(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
