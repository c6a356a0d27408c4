// Package batchstatus reconciles the locally recorded lifecycle status of
// batches against what the main node reports.
package batchstatus

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/syncstack/follower/client/mainnode"
	"github.com/syncstack/follower/db"
	"github.com/syncstack/follower/sync/driver"
	"github.com/syncstack/follower/types"
)

var log = logrus.WithField("prefix", "batchstatus")

const pollInterval = 20 * time.Second

// Config holds the updater dependencies. The updater itself carries no
// tunables.
type Config struct {
	Client *mainnode.Client
	Pools  *db.PoolSet
	Driver *driver.Service
}

// Service polls upstream batch statuses and updates local records.
type Service struct {
	ctx     context.Context
	cancel  context.CancelFunc
	cfg     *Config
	updated types.L1BatchNumber
	err     error
}

// NewService builds the batch status updater.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
	}
}

// Start runs the reconciliation loop.
func (s *Service) Start() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.reconcile(); err != nil {
				log.WithError(err).Warn("Batch status reconciliation failed")
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Service) reconcile() error {
	sealed := s.cfg.Driver.LastSealed()
	for n := s.updated + 1; n <= sealed; n++ {
		status, err := s.cfg.Client.BatchStatus(s.ctx, n)
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			return err
		}
		if status == types.BatchSealed {
			// Upstream has not progressed this batch; stop early, the
			// remaining batches cannot be further along either.
			return nil
		}
		if err := s.record(n, status); err != nil {
			return err
		}
		s.updated = n
		log.WithFields(logrus.Fields{
			"batch":  n,
			"status": status,
		}).Debug("Updated batch status")
	}
	return nil
}

func (s *Service) record(n types.L1BatchNumber, status types.BatchStatus) error {
	if s.cfg.Pools == nil {
		return nil
	}
	_, err := s.cfg.Pools.Primary().Exec(s.ctx,
		"UPDATE l1_batches SET status = $1 WHERE number = $2", string(status), int64(n))
	return err
}

// Stop terminates the updater.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

// Status returns the sticky failure state, if any.
func (s *Service) Status() error {
	return s.err
}
