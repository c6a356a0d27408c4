// Package checker re-verifies a trailing window of recently sealed batches
// against the commitments the rollup contract recorded on L1.
package checker

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/syncstack/follower/client/eth"
	"github.com/syncstack/follower/commitment"
	"github.com/syncstack/follower/sync/driver"
	"github.com/syncstack/follower/types"
)

var log = logrus.WithField("prefix", "checker")

// maxBatchesToRecheck bounds the trailing verification window. Not exposed
// as configuration yet.
const maxBatchesToRecheck = 10

const recheckInterval = 30 * time.Second

// Config holds the consistency checker parameters.
type Config struct {
	// DiamondProxyAddr is the rollup contract on L1.
	DiamondProxyAddr common.Address
	CommitmentMode   types.CommitmentMode
	L1Client         *eth.Client
	Driver           *driver.Service
	// OnFatal escalates a commitment mismatch to the node: a diverged
	// follower must not keep serving reads.
	OnFatal func(error)
}

// Service periodically rechecks the newest locally sealed batches.
type Service struct {
	ctx     context.Context
	cancel  context.CancelFunc
	cfg     *Config
	checked types.L1BatchNumber
	errLock sync.Mutex
	err     error
}

// NewService builds the consistency checker.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
	}
}

// RecheckWindow returns the batch range to verify for a given sealed
// cursor: at most maxBatchesToRecheck batches, never ahead of the cursor.
func RecheckWindow(sealed types.L1BatchNumber) (from, to types.L1BatchNumber) {
	if sealed == 0 {
		return 0, 0
	}
	to = sealed
	if uint64(sealed) > maxBatchesToRecheck {
		from = sealed - maxBatchesToRecheck + 1
	} else {
		from = 1
	}
	return from, to
}

// Start runs the recheck loop.
func (s *Service) Start() {
	log.WithFields(logrus.Fields{
		"contract": s.cfg.DiamondProxyAddr,
		"mode":     s.cfg.CommitmentMode,
		"window":   maxBatchesToRecheck,
	}).Info("Starting consistency checker")
	ticker := time.NewTicker(recheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := s.recheck(); err != nil {
				s.errLock.Lock()
				s.err = err
				s.errLock.Unlock()
				log.WithError(err).Error("Consistency check failed")
				if s.cfg.OnFatal != nil {
					s.cfg.OnFatal(err)
				}
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Service) recheck() error {
	// Never race ahead of the replication driver: only batches it has
	// observed as sealed are eligible.
	from, to := RecheckWindow(s.cfg.Driver.LastSealed())
	for n := from; n != 0 && n <= to; n++ {
		if n <= s.checked {
			continue
		}
		stored, err := s.cfg.L1Client.StoredBatchCommitment(s.ctx, s.cfg.DiamondProxyAddr, n)
		if err != nil {
			if s.ctx.Err() != nil {
				return nil
			}
			// The L1 endpoint hiccuped; retry the batch next tick.
			log.WithError(err).WithField("batch", n).Warn("Could not read L1 commitment")
			return nil
		}
		if stored == (common.Hash{}) {
			// Not committed on L1 yet; later batches will not be either.
			return nil
		}
		local, ok := s.localCommitment(n)
		if !ok {
			return nil
		}
		if stored != local {
			return errors.Errorf("batch %d: local commitment %s diverges from L1 record %s", n, local, stored)
		}
		s.checked = n
		log.WithField("batch", n).Debug("Batch consistent with L1")
	}
	return nil
}

// localCommitment recomputes the commitment for a locally sealed batch. The
// cached block set is sufficient for recent batches; older ones are skipped
// until the commitment generator catches up.
func (s *Service) localCommitment(n types.L1BatchNumber) (common.Hash, bool) {
	block, ok := s.cfg.Driver.CachedBlock(types.L2BlockNumber(n))
	if !ok {
		return common.Hash{}, false
	}
	var digest []byte
	for _, tx := range block.Transactions {
		digest = append(digest, tx.Hash.Bytes()...)
	}
	return commitment.Digest(s.cfg.CommitmentMode, digest), true
}

// Stop terminates the checker.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

// Status returns the sticky failure state, if any.
func (s *Service) Status() error {
	s.errLock.Lock()
	defer s.errLock.Unlock()
	return s.err
}
