package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/benmeehan/s8-co2-bridge/internal/models"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// HealthFunc reports the current health of the bridge.
type HealthFunc func() models.Health

// MetricsServer serves the Prometheus exposition and a health report over HTTP.
type MetricsServer struct {
	addr            string
	shutdownTimeout time.Duration
	metrics         http.Handler
	health          HealthFunc
	logger          zerolog.Logger

	server   *http.Server
	listener net.Listener
	done     chan struct{}
	mu       sync.Mutex
}

// NewMetricsServer initializes a new MetricsServer listening on addr.
func NewMetricsServer(addr string, shutdownTimeout time.Duration, metrics http.Handler, health HealthFunc, logger zerolog.Logger) *MetricsServer {
	return &MetricsServer{
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
		metrics:         metrics,
		health:          health,
		logger:          logger,
	}
}

// Router builds the HTTP routes.
func (s *MetricsServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.HealthCheck).Methods(http.MethodGet)
	return r
}

// HealthCheck writes the health report. The status is 200 while the poll loop
// is RUNNING and 503 otherwise.
func (s *MetricsServer) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := s.health()

	status := http.StatusOK
	if health.LoopState != LoopRunning.String() {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode health report")
	}
}

// Start binds the listener and serves in the background. A bind failure is
// returned to the caller.
func (s *MetricsServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("metrics server is already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind metrics listener on %s: %w", s.addr, err)
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.done = make(chan struct{})

	go func(server *http.Server, done chan struct{}) {
		defer close(done)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Metrics server stopped unexpectedly")
		}
	}(s.server, s.done)

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("MetricsServer started")
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *MetricsServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop shuts the server down, waiting at most the shutdown timeout for
// in-flight scrapes.
func (s *MetricsServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return errors.New("metrics server is not running")
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	err := s.server.Shutdown(ctx)
	if err != nil {
		_ = s.server.Close()
	}
	<-s.done

	s.server = nil
	s.listener = nil
	s.logger.Info().Msg("MetricsServer stopped")
	return err
}
