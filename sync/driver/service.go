// Package driver implements the replication driver, the stage that owns the
// local state cache and tracks the pipeline's forward progress.
package driver

import (
	"context"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/syncstack/follower/sync/persistence"
	"github.com/syncstack/follower/types"
)

var log = logrus.WithField("prefix", "driver")

const progressInterval = 15 * time.Second

// Config holds the replication driver parameters.
type Config struct {
	// CachePath is the directory of the local state cache.
	CachePath string
	// BlockCacheCapacity bounds the in-memory block cache.
	BlockCacheCapacity int
	// MaxOpenFiles bounds file handles used by the state cache.
	MaxOpenFiles int
	Persistence  *persistence.Service
}

// Service owns the local state cache and reports replication progress.
type Service struct {
	ctx        context.Context
	cancel     context.CancelFunc
	cfg        *Config
	blockCache *lru.Cache
	err        error
}

// NewService builds the replication driver. The cache directory is created
// eagerly so a bad path fails assembly, not a running node.
func NewService(ctx context.Context, cfg *Config) (*Service, error) {
	if cfg.CachePath != "" {
		if err := os.MkdirAll(cfg.CachePath, 0700); err != nil {
			return nil, errors.Wrapf(err, "could not create state cache at %s", cfg.CachePath)
		}
	}
	capacity := cfg.BlockCacheCapacity
	if capacity <= 0 {
		capacity = 128
	}
	cache, err := lru.New(capacity)
	if err != nil {
		return nil, errors.Wrap(err, "could not create block cache")
	}
	ctx, cancel := context.WithCancel(ctx)
	log.WithFields(logrus.Fields{
		"path":         cfg.CachePath,
		"blocks":       capacity,
		"maxOpenFiles": cfg.MaxOpenFiles,
	}).Debug("State cache configured")
	return &Service{
		ctx:        ctx,
		cancel:     cancel,
		cfg:        cfg,
		blockCache: cache,
	}, nil
}

// CacheBlock stores a replayed block for fast API reads.
func (s *Service) CacheBlock(block *types.Block) {
	s.blockCache.Add(block.Number, block)
}

// CachedBlock returns a replayed block if it is still cached.
func (s *Service) CachedBlock(number types.L2BlockNumber) (*types.Block, bool) {
	v, ok := s.blockCache.Get(number)
	if !ok {
		return nil, false
	}
	return v.(*types.Block), true
}

// LastSealed exposes the replication cursor for downstream consumers. The
// consistency checker and commitment generator must not run ahead of it.
func (s *Service) LastSealed() types.L1BatchNumber {
	return s.cfg.Persistence.LastSealed()
}

// Start runs the progress loop.
func (s *Service) Start() {
	var last types.L1BatchNumber
	stalledSince := time.Now()
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case env := <-s.cfg.Persistence.Sealed():
			for i := range env.Blocks {
				s.CacheBlock(&env.Blocks[i])
			}
		case <-ticker.C:
			current := s.cfg.Persistence.LastSealed()
			if current != last {
				log.WithField("batch", current).Info("Replication progress")
				last = current
				stalledSince = time.Now()
				continue
			}
			if since := time.Since(stalledSince); since > 10*progressInterval {
				log.WithFields(logrus.Fields{
					"batch":   current,
					"stalled": since,
				}).Warn("Replication has not advanced")
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// Stop terminates the driver.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

// Status returns the sticky failure state, if any.
func (s *Service) Status() error {
	return s.err
}
