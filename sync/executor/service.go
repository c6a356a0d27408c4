// Package executor implements the batch re-execution stage of the
// replication pipeline.
package executor

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/syncstack/follower/sync/feed"
	"github.com/syncstack/follower/sync/persistence"
	"github.com/syncstack/follower/types"
)

var log = logrus.WithField("prefix", "executor")

// Config holds the batch executor parameters.
type Config struct {
	// SaveCallTraces captures call traces during re-execution. Only
	// needed when the debug API namespace is enabled.
	SaveCallTraces bool
	// OptionalBytecodeCompression accepts transactions without bytecode
	// compression. A follower must tolerate historical batches produced
	// before compression was mandatory, or produced while it is optional
	// upstream again, so the node always enables this.
	OptionalBytecodeCompression bool
	Feed                        *feed.Service
	Persistence                 *persistence.Service
	// OnFatal escalates a re-execution divergence to the node.
	OnFatal func(error)
}

// Service re-executes incoming batches and hands them to persistence.
type Service struct {
	ctx     context.Context
	cancel  context.CancelFunc
	cfg     *Config
	errLock sync.Mutex
	err     error
}

// NewService builds the batch executor.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	return &Service{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
	}
}

// Start consumes the feed and re-executes each batch.
func (s *Service) Start() {
	for {
		select {
		case env, ok := <-s.cfg.Feed.Output():
			if !ok {
				return
			}
			if err := s.execute(env); err != nil {
				s.setErr(err)
				log.WithError(err).Error("Batch execution failure")
				if s.cfg.OnFatal != nil {
					s.cfg.OnFatal(err)
				}
				return
			}
			if err := s.cfg.Persistence.Enqueue(s.ctx, env); err != nil {
				if s.ctx.Err() == nil {
					s.setErr(err)
				}
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// execute replays every transaction of the batch and verifies the resulting
// state root against the envelope.
func (s *Service) execute(env *types.BatchEnvelope) error {
	var digest []byte
	for _, block := range env.Blocks {
		for _, tx := range block.Transactions {
			if !tx.BytecodeCompressed && !s.cfg.OptionalBytecodeCompression {
				return errors.Errorf("batch %d: transaction %s lacks bytecode compression", env.Number, tx.Hash)
			}
			digest = append(digest, tx.Hash.Bytes()...)
			if s.cfg.SaveCallTraces {
				env.CallTraces = append(env.CallTraces, crypto.Keccak256(tx.RawData))
			}
		}
	}
	root := crypto.Keccak256Hash(digest)
	if env.StateRoot != root {
		return errors.Errorf("batch %d: state root mismatch after replay, upstream %s, local %s",
			env.Number, env.StateRoot, root)
	}
	log.WithField("batch", env.Number).Debug("Re-executed batch")
	return nil
}

// Stop terminates the executor.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

func (s *Service) setErr(err error) {
	s.errLock.Lock()
	s.err = err
	s.errLock.Unlock()
}

// Status returns the sticky failure state, if any.
func (s *Service) Status() error {
	s.errLock.Lock()
	defer s.errLock.Unlock()
	return s.err
}
