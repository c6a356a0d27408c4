// Package db manages the postgres connection pools shared by the follower
// node subsystems.
package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "db")

// PoolConfig holds the settings for one connection pool.
type PoolConfig struct {
	URL                string
	MaxConns           int
	SlowQueryThreshold time.Duration
}

// PoolSet bundles the primary pool and the read replica pool. Both pools are
// safe for concurrent use by every registered service.
type PoolSet struct {
	primary            *pgxpool.Pool
	replica            *pgxpool.Pool
	slowQueryThreshold time.Duration
}

// NewPoolSet creates the primary and replica pools. The node configuration
// surface does not support independent replica tuning, so the replica pool
// reuses the primary settings.
func NewPoolSet(ctx context.Context, cfg *PoolConfig) (*PoolSet, error) {
	primary, err := newPool(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "could not create primary pool")
	}
	replica, err := newPool(ctx, cfg)
	if err != nil {
		primary.Close()
		return nil, errors.Wrap(err, "could not create replica pool")
	}
	return &PoolSet{
		primary:            primary,
		replica:            replica,
		slowQueryThreshold: cfg.SlowQueryThreshold,
	}, nil
}

func newPool(ctx context.Context, cfg *PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse database URL")
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}
	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// Primary returns the read-write pool.
func (s *PoolSet) Primary() *pgxpool.Pool {
	return s.primary
}

// Replica returns the read-only pool.
func (s *PoolSet) Replica() *pgxpool.Pool {
	return s.replica
}

// QueryRow runs a read query against the replica pool and logs it when it
// exceeds the slow query threshold.
func (s *PoolSet) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	start := time.Now()
	row := s.replica.QueryRow(ctx, sql, args...)
	if elapsed := time.Since(start); s.slowQueryThreshold > 0 && elapsed > s.slowQueryThreshold {
		log.WithFields(logrus.Fields{
			"sql":     sql,
			"elapsed": elapsed,
		}).Warn("Slow query")
	}
	return row
}

// Close releases both pools.
func (s *PoolSet) Close() {
	s.primary.Close()
	s.replica.Close()
}
