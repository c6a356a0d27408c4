package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "api")

const apiNamespace = "follower"

// HTTPConfig holds the HTTP API server parameters.
type HTTPConfig struct {
	Port       int
	Namespaces []string
	Backend    *Backend
}

// HTTPService serves the read API as JSON-RPC over HTTP.
type HTTPService struct {
	server     *http.Server
	rpcServer  *gethrpc.Server
	failStatus error
}

// NewHTTPService builds the HTTP API server.
func NewHTTPService(cfg *HTTPConfig) (*HTTPService, error) {
	rpcServer := gethrpc.NewServer()
	if err := rpcServer.RegisterName(apiNamespace, NewFollowerAPI(cfg.Backend)); err != nil {
		return nil, errors.Wrap(err, "could not register the follower API namespace")
	}

	router := mux.NewRouter()
	router.Handle("/", rpcServer).Methods(http.MethodPost)

	return &HTTPService{
		rpcServer: rpcServer,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: time.Second,
		},
	}, nil
}

// Start the HTTP API server.
func (s *HTTPService) Start() {
	log.WithField("endpoint", s.server.Addr).Info("Starting HTTP API")
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Errorf("Could not listen on %s: %v", s.server.Addr, err)
			s.failStatus = err
		}
	}()
}

// Stop the server gracefully.
func (s *HTTPService) Stop() error {
	s.rpcServer.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Status checks for any service failure conditions.
func (s *HTTPService) Status() error {
	return s.failStatus
}
