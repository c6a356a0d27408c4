// Package consensus implements the node's consensus participation. A
// follower runs in observer mode: it tracks the consensus view of the chain
// without ever proposing blocks.
package consensus

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/syncstack/follower/config"
	"github.com/syncstack/follower/sync/driver"
)

var log = logrus.WithField("prefix", "consensus")

// Mode selects the consensus role of this node.
type Mode string

const (
	// ModeFollower observes consensus without proposing.
	ModeFollower Mode = "follower"
	// ModeMain is the sequencer role; unsupported on this node type.
	ModeMain Mode = "main"
)

const viewPollInterval = 5 * time.Second

// Config holds the consensus participation parameters. Secrets are read
// from the secret store at assembly time; a node without key material never
// gets this far.
type Config struct {
	Mode       Mode
	PublicAddr string
	Secrets    *config.ConsensusSecrets
	Driver     *driver.Service
}

// Service participates in consensus in follower mode.
type Service struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *Config
	err    error
}

// NewService builds the consensus participant.
func NewService(ctx context.Context, cfg *Config) (*Service, error) {
	if cfg.Mode != ModeFollower {
		return nil, errors.Errorf("unsupported consensus mode %q, this node only follows", cfg.Mode)
	}
	if cfg.Secrets == nil || cfg.Secrets.NodeKey == "" {
		return nil, errors.New("consensus secrets are not loaded")
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
	}, nil
}

// Start runs the observer loop, keeping the consensus view aligned with the
// replication cursor.
func (s *Service) Start() {
	log.WithField("mode", s.cfg.Mode).Info("Starting consensus participant")
	ticker := time.NewTicker(viewPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_, span := trace.StartSpan(s.ctx, "consensus.syncView")
			// The observer follows the replicated chain; its view is
			// whatever the pipeline has sealed.
			sealed := s.cfg.Driver.LastSealed()
			span.AddAttributes(trace.Int64Attribute("batch", int64(sealed)))
			span.End()
			log.WithField("batch", sealed).Trace("Consensus view synced")
		case <-s.ctx.Done():
			return
		}
	}
}

// Stop terminates the participant.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

// Status returns the sticky failure state, if any.
func (s *Service) Status() error {
	return s.err
}
