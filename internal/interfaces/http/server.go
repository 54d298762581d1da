// Package http exposes the valuation engine over a JSON API, plus a
// Prometheus scrape endpoint and a websocket alert stream.
package http

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/carworth/carworth/internal/engine"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DefaultServerConfig returns a local-only default.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "127.0.0.1",
		Port:         8080,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server is the HTTP front for the engine.
type Server struct {
	router   *mux.Router
	server   *http.Server
	handlers *Handlers
	stream   *AlertStream
	config   ServerConfig
}

// NewServer wires routes, middleware and the alert stream.
func NewServer(config ServerConfig, eng *engine.Engine, gatherer prometheus.Gatherer) *Server {
	if config.Port == 0 {
		config = DefaultServerConfig()
	}

	stream := NewAlertStream()
	eng.Detector().SetAlertSink(stream)

	s := &Server{
		router:   mux.NewRouter(),
		handlers: NewHandlers(eng),
		stream:   stream,
		config:   config,
	}
	s.setupRoutes(gatherer)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(jsonContentTypeMiddleware)

	api.HandleFunc("/health", s.handlers.Health).Methods("GET")
	api.HandleFunc("/valuations", s.handlers.Valuate).Methods("POST")
	api.HandleFunc("/tracking", s.handlers.InitTracking).Methods("POST")
	api.HandleFunc("/tracking/{vehicleID}", s.handlers.RemoveTracking).Methods("DELETE")
	api.HandleFunc("/tracking/{vehicleID}/eligibility", s.handlers.RefreshEligibility).Methods("GET")
	api.HandleFunc("/tracking/{vehicleID}/refresh", s.handlers.ManualRefresh).Methods("POST")
	api.HandleFunc("/alerts", s.handlers.ActiveAlerts).Methods("GET")
	api.HandleFunc("/alerts/{alertID}/refresh", s.handlers.TriggerAlertRefresh).Methods("POST")

	// Websocket and scrape endpoints bypass the JSON middleware.
	s.router.HandleFunc("/ws/alerts", s.stream.Serve).Methods("GET")
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(s.handlers.NotFound)
}

// Start runs the listener and the alert stream hub until Shutdown.
func (s *Server) Start() error {
	go s.stream.Run()
	log.Info().Str("addr", s.server.Addr).Msg("http server listening")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests and closes the alert stream.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stream.Close()
	return s.server.Shutdown(ctx)
}

// Address returns the bound host:port.
func (s *Server) Address() string { return s.server.Addr }

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		log.Info().
			Str("request_id", requestID(r)).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return id
	}
	return "unknown"
}

// responseWrapper captures the status code for request logging.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade reach the underlying connection.
func (rw *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}
