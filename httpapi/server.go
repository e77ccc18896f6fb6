// Package httpapi exposes the lock ledger over HTTP: token rules, supply and
// per-account lock queries, lock creation and withdrawal, and Prometheus metrics.
package httpapi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/go-veledger/metrics"
	"github.com/rony4d/go-veledger/vetoken"
)

type ctxKey int

const requestIDKey ctxKey = iota

// Config holds server configuration.
type Config struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration

	Rules      vetoken.Rules
	Authorizer Authorizer // nil selects AllowAll
	Metrics    *metrics.Metrics
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
	// Clock supplies "now" for lock operations. Nil selects time.Now.
	Clock  func() time.Time
	Logger logrus.FieldLogger
}

// DefaultConfig returns local-only defaults.
func DefaultConfig() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           18645,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		RequestTimeout: 5 * time.Second,
	}
}

// Server serves the ledger API.
type Server struct {
	router  *mux.Router
	server  *http.Server
	ledger  Ledger
	rules   vetoken.Rules
	auth    Authorizer
	metrics *metrics.Metrics
	clock   func() time.Time
	timeout time.Duration
	log     logrus.FieldLogger
}

// New builds the server and its routes. It does not listen until Start.
func New(l Ledger, cfg Config) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		ledger:  l,
		rules:   cfg.Rules,
		auth:    cfg.Authorizer,
		metrics: cfg.Metrics,
		clock:   cfg.Clock,
		timeout: cfg.RequestTimeout,
		log:     cfg.Logger,
	}
	if s.auth == nil {
		s.auth = AllowAll
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	s.setupRoutes(cfg.Gatherer)

	s.server = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.timeoutMiddleware)

	api := s.router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/token", s.token).Methods(http.MethodGet)
	api.HandleFunc("/supply", s.supply).Methods(http.MethodGet)
	api.HandleFunc("/locks", s.createLock).Methods(http.MethodPost)
	api.HandleFunc("/locks/{account}", s.lockedBalance).Methods(http.MethodGet)
	api.HandleFunc("/locks/{account}/withdraw", s.withdraw).Methods(http.MethodPost)

	if gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	s.router.NotFoundHandler = http.HandlerFunc(s.notFound)
}

// ServeHTTP makes the server usable as a plain handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start listens and serves until Shutdown. It returns http.ErrServerClosed
// after a clean shutdown.
func (s *Server) Start() error {
	s.log.WithField("addr", s.server.Addr).Info("Starting HTTP API")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP API")
	return s.server.Shutdown(ctx)
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()[:8]
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		s.log.WithFields(logrus.Fields{
			"request_id": requestID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     wrapper.statusCode,
			"elapsed":    time.Since(start),
			"remote":     r.RemoteAddr,
		}).Debug("Served request")
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.timeout <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
