// Package feed implements the input stage of the replication pipeline: an
// ordered stream of sealed batches pulled from the main node for replay.
package feed

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/syncstack/follower/client/mainnode"
	"github.com/syncstack/follower/sync/persistence"
	"github.com/syncstack/follower/types"
)

var log = logrus.WithField("prefix", "feed")

const pollInterval = time.Second

// Config holds the input feed parameters.
type Config struct {
	// ChainID scopes the feed to the rollup chain being replicated.
	ChainID     uint64
	Client      *mainnode.Client
	Persistence *persistence.Service
}

// Service streams batch envelopes in strictly increasing number order.
type Service struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *Config
	out    chan *types.BatchEnvelope
}

// NewService builds the input feed.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		out:    make(chan *types.BatchEnvelope),
	}
}

// Output is the ordered stream of batches to replay. The channel is closed
// when the feed stops.
func (s *Service) Output() <-chan *types.BatchEnvelope {
	return s.out
}

// Start resumes from the persistence cursor and polls the main node.
func (s *Service) Start() {
	defer close(s.out)

	// Wait for the seal cursor so the feed resumes exactly after the
	// newest locally sealed batch.
	select {
	case <-s.cfg.Persistence.Ready():
	case <-s.ctx.Done():
		return
	}
	next := s.cfg.Persistence.LastSealed() + 1
	log.WithField("batch", next).Info("Resuming replication")

	for {
		env, err := s.cfg.Client.FetchBatch(s.ctx, next)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			// Transient upstream failures are retried here rather
			// than surfaced as node-level errors.
			log.WithError(err).WithField("batch", next).Warn("Could not fetch batch, retrying")
			if !s.sleep(pollInterval) {
				return
			}
			continue
		}
		if env == nil {
			// Caught up with the upstream head.
			if !s.sleep(pollInterval) {
				return
			}
			continue
		}
		select {
		case s.out <- env:
			next++
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Service) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// Stop terminates the feed.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

// Status always reports healthy: upstream fetch failures are retried
// inside the feed loop instead of becoming sticky.
func (s *Service) Status() error {
	return nil
}
