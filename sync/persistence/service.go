// Package persistence implements the output handling stage of the
// replication pipeline. Executed batches are queued on a bounded seal queue
// and written to storage in strict batch-number order.
package persistence

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"

	"github.com/syncstack/follower/db"
	"github.com/syncstack/follower/types"
)

var log = logrus.WithField("prefix", "persistence")

var lastSealedBatch = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "follower_last_sealed_batch",
	Help: "Number of the newest batch sealed locally.",
})

// Config holds the output handler parameters.
type Config struct {
	// BridgeAddr is the L2 shared bridge address sealed blocks reference.
	BridgeAddr common.Address
	// QueueCapacity bounds the seal queue. A full queue backpressures the
	// executor.
	QueueCapacity int
	// PreInsertTxs marks transactions as already inserted upstream. A
	// follower replays transactions the main node sealed, so this is
	// always on for this node type.
	PreInsertTxs bool
	// ProtectiveReadsPersistence stores the data needed to re-validate
	// reads without re-execution.
	ProtectiveReadsPersistence bool
	Pools                      *db.PoolSet
	// OnFatal escalates an unrecoverable persistence failure to the node.
	OnFatal func(error)
}

// Service seals executed batches into storage.
type Service struct {
	ctx        context.Context
	cancel     context.CancelFunc
	cfg        *Config
	queue      chan *types.BatchEnvelope
	sealed     chan *types.BatchEnvelope
	ready      chan struct{}
	lastSealed atomic.Uint64
	errLock    sync.Mutex
	err        error
}

// NewService builds the output handler.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	capacity := cfg.QueueCapacity
	if capacity <= 0 {
		capacity = 1
	}
	return &Service{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		queue:  make(chan *types.BatchEnvelope, capacity),
		sealed: make(chan *types.BatchEnvelope, capacity),
		ready:  make(chan struct{}),
	}
}

// Sealed is a best-effort notification stream of freshly sealed batches. A
// slow consumer misses envelopes instead of stalling the seal loop.
func (s *Service) Sealed() <-chan *types.BatchEnvelope {
	return s.sealed
}

// Enqueue hands an executed batch to the seal queue. It blocks once the
// queue is at capacity, which caps memory use by backpressuring the caller.
func (s *Service) Enqueue(ctx context.Context, env *types.BatchEnvelope) error {
	select {
	case s.queue <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// Ready is closed once the sealed-batch cursor has been recovered from
// storage. The input feed waits on it before deciding where to resume.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// LastSealed returns the number of the newest locally sealed batch.
func (s *Service) LastSealed() types.L1BatchNumber {
	return types.L1BatchNumber(s.lastSealed.Load())
}

// Start recovers the seal cursor and runs the seal loop.
func (s *Service) Start() {
	if err := s.recoverCursor(); err != nil {
		s.fail(errors.Wrap(err, "could not recover seal cursor"))
		return
	}
	close(s.ready)

	for {
		select {
		case env := <-s.queue:
			if err := s.seal(env); err != nil {
				s.fail(err)
				return
			}
		case <-s.ctx.Done():
			s.drain()
			return
		}
	}
}

func (s *Service) recoverCursor() error {
	if s.cfg.Pools == nil {
		return nil
	}
	var last *int64
	row := s.cfg.Pools.Primary().QueryRow(s.ctx, "SELECT MAX(number) FROM l1_batches")
	if err := row.Scan(&last); err != nil {
		return err
	}
	if last != nil {
		s.lastSealed.Store(uint64(*last))
	}
	return nil
}

// seal writes one batch. Out-of-order envelopes are an invariant violation
// of the pipeline and abort the node.
func (s *Service) seal(env *types.BatchEnvelope) error {
	want := types.L1BatchNumber(s.lastSealed.Load() + 1)
	if s.lastSealed.Load() == 0 && env.Number != want {
		// A fresh database accepts whatever batch the feed resumed from.
		want = env.Number
	}
	if env.Number != want {
		return errors.Errorf("out-of-order batch: sealed up to %d, received %d", s.lastSealed.Load(), env.Number)
	}
	if err := s.write(env); err != nil {
		return errors.Wrapf(err, "could not persist batch %d", env.Number)
	}
	s.lastSealed.Store(uint64(env.Number))
	lastSealedBatch.Set(float64(env.Number))
	select {
	case s.sealed <- env:
	default:
	}
	log.WithFields(logrus.Fields{
		"batch":  env.Number,
		"blocks": len(env.Blocks),
	}).Debug("Sealed batch")
	return nil
}

func (s *Service) write(env *types.BatchEnvelope) error {
	if s.cfg.Pools == nil {
		return nil
	}
	// Writes run against a fresh context so an in-flight batch is still
	// flushed during shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	tx, err := s.cfg.Pools.Primary().Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		// Rollback is a no-op after commit.
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx,
		"INSERT INTO l1_batches (number, state_root, bridge_addr) VALUES ($1, $2, $3)",
		int64(env.Number), env.StateRoot.Bytes(), s.cfg.BridgeAddr.Bytes(),
	); err != nil {
		return err
	}
	for _, block := range env.Blocks {
		if _, err := tx.Exec(ctx,
			"INSERT INTO l2_blocks (number, batch_number, timestamp, tx_count, pre_inserted) VALUES ($1, $2, $3, $4, $5)",
			int64(block.Number), int64(env.Number), int64(block.Timestamp), len(block.Transactions), s.cfg.PreInsertTxs,
		); err != nil {
			return err
		}
	}
	if s.cfg.ProtectiveReadsPersistence {
		for _, read := range env.ProtectiveReads {
			if _, err := tx.Exec(ctx,
				"INSERT INTO protective_reads (batch_number, data) VALUES ($1, $2)",
				int64(env.Number), read,
			); err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

// drain flushes whatever is already queued before exiting, so an in-flight
// batch is not lost on shutdown.
func (s *Service) drain() {
	for {
		select {
		case env := <-s.queue:
			if err := s.seal(env); err != nil {
				log.WithError(err).Error("Could not flush batch during shutdown")
				return
			}
		default:
			return
		}
	}
}

func (s *Service) fail(err error) {
	s.errLock.Lock()
	s.err = err
	s.errLock.Unlock()
	log.WithError(err).Error("Persistence failure")
	if s.cfg.OnFatal != nil {
		s.cfg.OnFatal(err)
	}
}

// Stop terminates the seal loop.
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
