// Package healthcheck serves the aggregated component health of the
// follower node over HTTP. Every registered service contributes its status
// through the service registry.
package healthcheck

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/syncstack/follower/runtime"
)

var log = logrus.WithField("prefix", "healthcheck")

// Config holds the health check server settings.
type Config struct {
	Port          int
	SlowTimeLimit time.Duration
	HardTimeLimit time.Duration
}

// Service binds the reporting port and answers health queries against the
// service registry.
type Service struct {
	cfg        *Config
	server     *http.Server
	registry   *runtime.ServiceRegistry
	failStatus error
}

// NewService builds the health check server for a registry.
func NewService(cfg *Config, registry *runtime.ServiceRegistry) *Service {
	s := &Service{cfg: cfg, registry: registry}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: time.Second,
	}
	return s
}

func (s *Service) healthHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	if s.cfg.HardTimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.HardTimeLimit)
		defer cancel()
	}

	type entry struct {
		name string
		err  error
	}
	var entries []entry
	for kind, err := range s.registry.Statuses() {
		entries = append(entries, entry{name: kind.String(), err: err})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	hasError := false
	var buf bytes.Buffer
	for _, e := range entries {
		status := "OK"
		if e.err != nil {
			hasError = true
			status = "ERROR " + e.err.Error()
		}
		fmt.Fprintf(&buf, "%s: %s\n", e.name, status)
	}

	select {
	case <-ctx.Done():
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	default:
	}

	if hasError {
		w.WriteHeader(http.StatusInternalServerError)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Errorf("Could not write health body: %v", err)
	}

	if elapsed := time.Since(start); s.cfg.SlowTimeLimit > 0 && elapsed > s.cfg.SlowTimeLimit {
		log.WithField("elapsed", elapsed).Warn("Slow health check response")
	}
}

// Start the health check server.
func (s *Service) Start() {
	log.WithField("endpoint", s.server.Addr).Info("Starting service")
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Errorf("Could not listen on %s: %v", s.server.Addr, err)
			s.failStatus = err
		}
	}()
}

// Stop the server gracefully.
func (s *Service) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Status checks for any service failure conditions.
func (s *Service) Status() error {
	return s.failStatus
}
