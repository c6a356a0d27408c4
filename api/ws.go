package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// WSConfig holds the WebSocket API server parameters.
type WSConfig struct {
	Port           int
	AllowedOrigins []string
	Backend        *Backend
}

// WSService serves the same read API as JSON-RPC over WebSocket.
type WSService struct {
	server     *http.Server
	rpcServer  *gethrpc.Server
	failStatus error
}

// NewWSService builds the WebSocket API server.
func NewWSService(cfg *WSConfig) (*WSService, error) {
	rpcServer := gethrpc.NewServer()
	if err := rpcServer.RegisterName(apiNamespace, NewFollowerAPI(cfg.Backend)); err != nil {
		return nil, errors.Wrap(err, "could not register the follower API namespace")
	}

	router := mux.NewRouter()
	router.Handle("/", rpcServer.WebsocketHandler(cfg.AllowedOrigins))

	return &WSService{
		rpcServer: rpcServer,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: time.Second,
		},
	}, nil
}

// Start the WebSocket API server.
func (s *WSService) Start() {
	log.WithField("endpoint", s.server.Addr).Info("Starting WebSocket API")
	go func() {
		err := s.server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Errorf("Could not listen on %s: %v", s.server.Addr, err)
			s.failStatus = err
		}
	}()
}

// Stop the server gracefully.
func (s *WSService) Stop() error {
	s.rpcServer.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Status checks for any service failure conditions.
func (s *WSService) Status() error {
	return s.failStatus
}
