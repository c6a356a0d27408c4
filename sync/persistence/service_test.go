package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/syncstack/follower/shared/testutil/assert"
	"github.com/syncstack/follower/shared/testutil/require"
	"github.com/syncstack/follower/types"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Condition not reached in time")
}

func TestService_SealsInOrder(t *testing.T) {
	svc := NewService(context.Background(), &Config{QueueCapacity: 4})
	go svc.Start()
	defer func() {
		require.NoError(t, svc.Stop())
	}()
	<-svc.Ready()

	for n := types.L1BatchNumber(1); n <= 3; n++ {
		require.NoError(t, svc.Enqueue(context.Background(), &types.BatchEnvelope{Number: n}))
	}
	waitFor(t, func() bool { return svc.LastSealed() == 3 })
}

func TestService_FreshDatabaseAcceptsResumePoint(t *testing.T) {
	svc := NewService(context.Background(), &Config{QueueCapacity: 1})
	go svc.Start()
	defer func() {
		require.NoError(t, svc.Stop())
	}()
	<-svc.Ready()

	// A node bootstrapping from a snapshot starts mid-chain.
	require.NoError(t, svc.Enqueue(context.Background(), &types.BatchEnvelope{Number: 500}))
	waitFor(t, func() bool { return svc.LastSealed() == 500 })
}

func TestService_OutOfOrderBatchIsFatal(t *testing.T) {
	fatal := make(chan error, 1)
	svc := NewService(context.Background(), &Config{
		QueueCapacity: 4,
		OnFatal:       func(err error) { fatal <- err },
	})
	go svc.Start()
	<-svc.Ready()

	require.NoError(t, svc.Enqueue(context.Background(), &types.BatchEnvelope{Number: 1}))
	require.NoError(t, svc.Enqueue(context.Background(), &types.BatchEnvelope{Number: 5}))

	select {
	case err := <-fatal:
		require.ErrorContains(t, "out-of-order batch", err)
	case <-time.After(5 * time.Second):
		t.Fatal("Expected a fatal pipeline error")
	}
	require.NotNil(t, svc.Status())
}

func TestService_StatusSafeDuringFailure(t *testing.T) {
	// Status is polled by the healthcheck while the seal loop may be
	// recording a failure. Hammer both sides so the race detector can
	// catch an unguarded write.
	svc := NewService(context.Background(), &Config{QueueCapacity: 4})
	go svc.Start()
	<-svc.Ready()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			_ = svc.Status()
		}
	}()

	require.NoError(t, svc.Enqueue(context.Background(), &types.BatchEnvelope{Number: 1}))
	require.NoError(t, svc.Enqueue(context.Background(), &types.BatchEnvelope{Number: 7}))
	<-done
	waitFor(t, func() bool { return svc.Status() != nil })
	require.ErrorContains(t, "out-of-order batch", svc.Status())
}

func TestService_EnqueueBackpressure(t *testing.T) {
	// The seal loop is not running, so the queue fills up and stays full.
	svc := NewService(context.Background(), &Config{QueueCapacity: 1})
	require.NoError(t, svc.Enqueue(context.Background(), &types.BatchEnvelope{Number: 1}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := svc.Enqueue(ctx, &types.BatchEnvelope{Number: 2})
	assert.Equal(t, context.DeadlineExceeded, err)
}
