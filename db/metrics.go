package db

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	acquiredConns = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "follower_db_acquired_connections",
		Help: "Number of connections currently checked out of the pool.",
	}, []string{"pool"})
	idleConns = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "follower_db_idle_connections",
		Help: "Number of idle connections held by the pool.",
	}, []string{"pool"})
	totalConns = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "follower_db_total_connections",
		Help: "Total number of connections held by the pool.",
	}, []string{"pool"})
)

const metricsCollectionInterval = 10 * time.Second

// MetricsService periodically exports connection pool statistics. It is
// registered by the core component as part of node-wide housekeeping.
type MetricsService struct {
	ctx    context.Context
	cancel context.CancelFunc
	pools  *PoolSet
}

// NewMetricsService instantiates the pool statistics exporter.
func NewMetricsService(ctx context.Context, pools *PoolSet) *MetricsService {
	ctx, cancel := context.WithCancel(ctx)
	return &MetricsService{
		ctx:    ctx,
		cancel: cancel,
		pools:  pools,
	}
}

// Start the collection loop.
func (s *MetricsService) Start() {
	ticker := time.NewTicker(metricsCollectionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.collect()
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *MetricsService) collect() {
	primary := s.pools.Primary().Stat()
	replica := s.pools.Replica().Stat()
	acquiredConns.WithLabelValues("primary").Set(float64(primary.AcquiredConns()))
	acquiredConns.WithLabelValues("replica").Set(float64(replica.AcquiredConns()))
	idleConns.WithLabelValues("primary").Set(float64(primary.IdleConns()))
	idleConns.WithLabelValues("replica").Set(float64(replica.IdleConns()))
	totalConns.WithLabelValues("primary").Set(float64(primary.TotalConns()))
	totalConns.WithLabelValues("replica").Set(float64(replica.TotalConns()))
}

// Stop the collection loop.
func (s *MetricsService) Stop() error {
	s.cancel()
	return nil
}

// Status always returns nil; metrics collection is best-effort.
func (s *MetricsService) Status() error {
	return nil
}
