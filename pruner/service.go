// Package pruner removes historical batch data outside the retention
// window, in bounded chunks with a configurable delay between passes.
package pruner

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/syncstack/follower/db"
	"github.com/syncstack/follower/sync/driver"
	"github.com/syncstack/follower/types"
)

var log = logrus.WithField("prefix", "pruner")

// Config holds the pruning parameters.
type Config struct {
	// RemovalDelay is the pause between pruning passes.
	RemovalDelay time.Duration
	// ChunkSize is the number of batches removed by a single pass.
	ChunkSize uint64
	// DataRetention is how long batch data is kept before it becomes
	// prunable.
	DataRetention time.Duration
	Pools         *db.PoolSet
	Driver        *driver.Service
}

// Service prunes historical state in the background.
type Service struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *Config
	pruned types.L1BatchNumber
	err    error
}

// NewService builds the pruning service.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
	}
}

// PrunableUpTo returns the newest batch a pass may remove, given the sealed
// cursor and the retention window expressed in batches.
func PrunableUpTo(sealed, pruned types.L1BatchNumber, retainBatches uint64) types.L1BatchNumber {
	if uint64(sealed) <= retainBatches {
		return pruned
	}
	limit := types.L1BatchNumber(uint64(sealed) - retainBatches)
	if limit < pruned {
		return pruned
	}
	return limit
}

// Start runs the pruning loop.
func (s *Service) Start() {
	log.WithFields(logrus.Fields{
		"removalDelay": s.cfg.RemovalDelay,
		"chunkSize":    s.cfg.ChunkSize,
		"retention":    s.cfg.DataRetention,
	}).Info("Starting pruning")
	ticker := time.NewTicker(s.cfg.RemovalDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.pruneChunk(); err != nil {
				// Pruning is housekeeping; a failed pass is retried
				// on the next tick rather than failing the node.
				log.WithError(err).Warn("Pruning pass failed")
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Service) pruneChunk() error {
	// Retention is configured as a duration; approximate it in batches
	// assuming the upstream seal cadence of about one batch a minute.
	retainBatches := uint64(s.cfg.DataRetention / time.Minute)
	limit := PrunableUpTo(s.cfg.Driver.LastSealed(), s.pruned, retainBatches)
	if limit <= s.pruned {
		return nil
	}
	from := s.pruned + 1
	to := from + types.L1BatchNumber(s.cfg.ChunkSize) - 1
	if to > limit {
		to = limit
	}

	reclaimed, err := s.remove(from, to)
	if err != nil {
		return errors.Wrapf(err, "could not prune batches %d..%d", from, to)
	}
	s.pruned = to
	log.WithFields(logrus.Fields{
		"from":      from,
		"to":        to,
		"reclaimed": humanize.Bytes(reclaimed),
	}).Info("Pruned batch range")
	return nil
}

func (s *Service) remove(from, to types.L1BatchNumber) (uint64, error) {
	if s.cfg.Pools == nil {
		return 0, nil
	}
	tag, err := s.cfg.Pools.Primary().Exec(s.ctx,
		"DELETE FROM l2_blocks WHERE batch_number BETWEEN $1 AND $2", int64(from), int64(to))
	if err != nil {
		return 0, err
	}
	rows := tag.RowsAffected()
	if _, err := s.cfg.Pools.Primary().Exec(s.ctx,
		"DELETE FROM l1_batches WHERE number BETWEEN $1 AND $2", int64(from), int64(to)); err != nil {
		return 0, err
	}
	// Rough accounting only; exact reclaimed bytes would need VACUUM stats.
	return uint64(rows) * 1024, nil
}

// Stop terminates the pruning loop.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

// Status returns the sticky failure state, if any.
func (s *Service) Status() error {
	return s.err
}
