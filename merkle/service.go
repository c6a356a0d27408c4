// Package merkle maintains the node's own Merkle tree over replicated
// state. Running it requires the core component on the same process:
// distributed tree operation is not supported.
package merkle

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/syncstack/follower/db"
	"github.com/syncstack/follower/sync/driver"
	"github.com/syncstack/follower/types"
)

var log = logrus.WithField("prefix", "merkle")

const updateInterval = 10 * time.Second

// Config holds the tree builder parameters.
type Config struct {
	Pools  *db.PoolSet
	Driver *driver.Service
	// ServeAPI additionally exposes the tree over the in-process handle
	// consumed by the API servers. Selected through the tree_api
	// component, which registers no layers of its own.
	ServeAPI bool
}

// Service incrementally extends the tree as batches seal.
type Service struct {
	ctx       context.Context
	cancel    context.CancelFunc
	cfg       *Config
	mu        sync.RWMutex
	roots     map[types.L1BatchNumber]common.Hash
	processed types.L1BatchNumber
	err       error
}

// NewService builds the tree maintenance service.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		roots:  make(map[types.L1BatchNumber]common.Hash),
	}
}

// APIEnabled reports whether the in-process tree handle is exposed to the
// API servers.
func (s *Service) APIEnabled() bool {
	return s.cfg.ServeAPI
}

// Root returns the tree root for a batch, if already computed.
func (s *Service) Root(n types.L1BatchNumber) (common.Hash, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	root, ok := s.roots[n]
	return root, ok
}

// Start runs the tree update loop.
func (s *Service) Start() {
	log.WithField("api", s.cfg.ServeAPI).Info("Starting tree builder")
	ticker := time.NewTicker(updateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.extend()
		case <-s.ctx.Done():
			return
		}
	}
}

// extend folds every newly sealed batch into the tree. Each root chains the
// previous root with the batch's cached content so the tree stays a
// function of the replicated history.
func (s *Service) extend() {
	sealed := s.cfg.Driver.LastSealed()
	for n := s.processed + 1; n <= sealed; n++ {
		prev, _ := s.Root(n - 1) // zero hash below the first batch
		payload := prev.Bytes()
		if block, ok := s.cfg.Driver.CachedBlock(types.L2BlockNumber(n)); ok {
			for _, tx := range block.Transactions {
				payload = append(payload, tx.Hash.Bytes()...)
			}
		}
		root := crypto.Keccak256Hash(payload)
		s.mu.Lock()
		s.roots[n] = root
		s.mu.Unlock()
		s.persist(n, root)
		s.processed = n
		log.WithFields(logrus.Fields{
			"batch": n,
			"root":  root,
		}).Debug("Extended tree")
	}
}

func (s *Service) persist(n types.L1BatchNumber, root common.Hash) {
	if s.cfg.Pools == nil {
		return
	}
	if _, err := s.cfg.Pools.Primary().Exec(s.ctx,
		"UPDATE l1_batches SET tree_root = $1 WHERE number = $2", root.Bytes(), int64(n)); err != nil {
		log.WithError(err).WithField("batch", n).Warn("Could not persist tree root")
	}
}

// Stop terminates the tree builder.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

// Status returns the sticky failure state, if any.
func (s *Service) Status() error {
	return s.err
}
