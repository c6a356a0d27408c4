// Package treefetcher pulls externally computed tree roots for nodes that
// do not maintain their own Merkle tree. It is the alternative to the tree
// builder component for operators who trust an external root source.
package treefetcher

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/syncstack/follower/client/mainnode"
	"github.com/syncstack/follower/db"
	"github.com/syncstack/follower/sync/driver"
	"github.com/syncstack/follower/types"
)

var log = logrus.WithField("prefix", "treefetcher")

const fetchInterval = 15 * time.Second

// Config holds the tree data fetcher parameters.
type Config struct {
	// DiamondProxyAddr scopes fetched roots to the rollup contract.
	DiamondProxyAddr common.Address
	Client           *mainnode.Client
	Pools            *db.PoolSet
	Driver           *driver.Service
}

// Service fetches tree roots for sealed batches.
type Service struct {
	ctx     context.Context
	cancel  context.CancelFunc
	cfg     *Config
	fetched types.L1BatchNumber
	err     error
}

// NewService builds the tree data fetcher.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
	}
}

// Start runs the fetch loop.
func (s *Service) Start() {
	log.WithField("contract", s.cfg.DiamondProxyAddr).Info("Starting tree data fetcher")
	ticker := time.NewTicker(fetchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.fetchPending(); err != nil {
				log.WithError(err).Warn("Tree root fetch failed")
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Service) fetchPending() error {
	sealed := s.cfg.Driver.LastSealed()
	for n := s.fetched + 1; n <= sealed; n++ {
		root, err := s.cfg.Client.TreeRoot(s.ctx, n)
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			return err
		}
		if root == (common.Hash{}) {
			// The upstream tree has not processed this batch yet.
			return nil
		}
		if err := s.record(n, root); err != nil {
			return err
		}
		s.fetched = n
		log.WithFields(logrus.Fields{
			"batch": n,
			"root":  root,
		}).Debug("Fetched tree root")
	}
	return nil
}

func (s *Service) record(n types.L1BatchNumber, root common.Hash) error {
	if s.cfg.Pools == nil {
		return nil
	}
	_, err := s.cfg.Pools.Primary().Exec(s.ctx,
		"UPDATE l1_batches SET tree_root = $1 WHERE number = $2", root.Bytes(), int64(n))
	return err
}

// Stop terminates the fetcher.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

// Status returns the sticky failure state, if any.
func (s *Service) Status() error {
	return s.err
}
