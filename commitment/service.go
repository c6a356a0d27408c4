// Package commitment computes the data committed to L1 for each locally
// sealed batch.
package commitment

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/syncstack/follower/sync/driver"
	"github.com/syncstack/follower/types"
)

var log = logrus.WithField("prefix", "commitment")

const generationInterval = 10 * time.Second

// Digest computes the commitment for a batch payload under the given mode.
// Rollup mode commits to the full payload; validium mode commits to its
// hash only, keeping pubdata off L1.
func Digest(mode types.CommitmentMode, payload []byte) common.Hash {
	if mode == types.CommitmentModeValidium {
		return crypto.Keccak256Hash(crypto.Keccak256(payload))
	}
	return crypto.Keccak256Hash(payload)
}

// Config holds the commitment generator parameters.
type Config struct {
	CommitmentMode types.CommitmentMode
	// MaxParallelism caps how many batches are processed concurrently.
	MaxParallelism int
	Driver         *driver.Service
}

// Service generates batch commitments as the pipeline seals batches.
type Service struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cfg       *Config
	mu        sync.Mutex
	generated map[types.L1BatchNumber]types.BatchCommitment
	cursor    types.L1BatchNumber
	err       error
}

// NewService builds the commitment generator.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		ctx:       ctx,
		cancel:    cancel,
		cfg:       cfg,
		generated: make(map[types.L1BatchNumber]types.BatchCommitment),
	}
}

// Commitment returns the generated commitment for a batch, if any.
func (s *Service) Commitment(n types.L1BatchNumber) (types.BatchCommitment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.generated[n]
	return c, ok
}

// Start runs the generation loop.
func (s *Service) Start() {
	log.WithFields(logrus.Fields{
		"mode":        s.cfg.CommitmentMode,
		"parallelism": s.cfg.MaxParallelism,
	}).Info("Starting commitment generator")
	ticker := time.NewTicker(generationInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.generatePending(); err != nil {
				log.WithError(err).Warn("Commitment generation pass failed")
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// generatePending computes commitments for every sealed batch past the
// cursor, at most MaxParallelism batches at a time. The generator never
// runs ahead of the replication driver.
func (s *Service) generatePending() error {
	sealed := s.cfg.Driver.LastSealed()
	if sealed <= s.cursor {
		return nil
	}

	g, ctx := errgroup.WithContext(s.ctx)
	parallelism := s.cfg.MaxParallelism
	if parallelism <= 0 {
		parallelism = 1
	}
	g.SetLimit(parallelism)

	for n := s.cursor + 1; n <= sealed; n++ {
		n := n
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			s.generate(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	s.cursor = sealed
	return nil
}

func (s *Service) generate(n types.L1BatchNumber) {
	var payload []byte
	if block, ok := s.cfg.Driver.CachedBlock(types.L2BlockNumber(n)); ok {
		for _, tx := range block.Transactions {
			payload = append(payload, tx.Hash.Bytes()...)
		}
	}
	c := types.BatchCommitment{
		Number:     n,
		Mode:       s.cfg.CommitmentMode,
		Commitment: Digest(s.cfg.CommitmentMode, payload),
	}
	s.mu.Lock()
	s.generated[n] = c
	s.mu.Unlock()
	log.WithField("batch", n).Debug("Generated commitment")
}

// Stop terminates the generator.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

// Status returns the sticky failure state, if any.
func (s *Service) Status() error {
	return s.err
}
