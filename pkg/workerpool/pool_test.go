package workerpool

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/grafana/dskit/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func newTestPool(t *testing.T, cfg Config) *Pool {
	t.Helper()

	if cfg.NamePrefix == "" {
		cfg.NamePrefix = "test-worker"
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = time.Minute
	}

	p, err := New(cfg, prometheus.NewPedanticRegistry(), log.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, services.StartAndAwaitRunning(context.Background(), p))

	t.Cleanup(func() {
		_ = services.StopAndAwaitTerminated(context.Background(), p)
	})

	return p
}

// blockingTask returns a task that signals started and then waits for release.
func blockingTask(started chan<- struct{}, release <-chan struct{}) func() {
	return func() {
		started <- struct{}{}
		<-release
	}
}

func TestPoolRunsAllTasks(t *testing.T) {
	p := newTestPool(t, Config{CoreSize: 4, MaxSize: 8, QueueCapacity: 100})

	const n = 100
	var (
		wg    sync.WaitGroup
		count = atomic.NewInt32(0)
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		require.NoError(t, p.Submit(func() {
			defer wg.Done()
			count.Inc()
		}))
	}
	wg.Wait()

	assert.Equal(t, int32(n), count.Load())
	assert.Eventually(t, func() bool {
		return p.Stats().Completed == n
	}, time.Second, 5*time.Millisecond)
}

func TestPoolQueuesThenRejects(t *testing.T) {
	p := newTestPool(t, Config{CoreSize: 1, MaxSize: 1, QueueCapacity: 1})

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	defer close(release)

	// Setup
	require.NoError(t, p.Submit(blockingTask(started, release)))
	<-started
	require.NoError(t, p.Submit(blockingTask(started, release)), "second task must be queued")

	// Do
	err := p.Submit(func() {})

	// Assert
	assert.ErrorIs(t, err, ErrRejectedExecution)
	stats := p.Stats()
	assert.Equal(t, 1, stats.Workers)
	assert.Equal(t, 1, stats.Queued)
	assert.Equal(t, uint64(1), stats.Rejected)
	assert.Equal(t, float64(1), testutil.ToFloat64(p.rejectedTotal))
}

func TestPoolGrowsToMaxSize(t *testing.T) {
	p := newTestPool(t, Config{CoreSize: 1, MaxSize: 2, QueueCapacity: 1, KeepAlive: 20 * time.Millisecond})

	started := make(chan struct{}, 3)
	release := make(chan struct{})

	require.NoError(t, p.Submit(blockingTask(started, release)))
	<-started
	require.NoError(t, p.Submit(blockingTask(started, release)), "queued")
	require.NoError(t, p.Submit(blockingTask(started, release)), "runs on an extra worker")
	<-started

	assert.Equal(t, 2, p.Stats().Workers)
	assert.ErrorIs(t, p.Submit(func() {}), ErrRejectedExecution)

	close(release)

	assert.Eventually(t, func() bool {
		s := p.Stats()
		return s.Completed == 3 && s.Workers == 1
	}, time.Second, 5*time.Millisecond, "extra worker must exit after keep alive")
}

func TestPoolRejectsWhenNotRunning(t *testing.T) {
	p, err := New(Config{CoreSize: 1, MaxSize: 1, QueueCapacity: 1, NamePrefix: "w", KeepAlive: time.Second}, nil, log.NewNopLogger())
	require.NoError(t, err)

	assert.ErrorIs(t, p.Submit(func() {}), ErrRejectedExecution)
}

func TestPoolStopDrainsQueue(t *testing.T) {
	p, err := New(Config{CoreSize: 1, MaxSize: 1, QueueCapacity: 5, NamePrefix: "w", KeepAlive: time.Second}, nil, log.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, services.StartAndAwaitRunning(context.Background(), p))

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	count := atomic.NewInt32(0)

	require.NoError(t, p.Submit(blockingTask(started, release)))
	<-started
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Submit(func() { count.Inc() }))
	}

	p.StopAsync()
	close(release)
	require.NoError(t, p.AwaitTerminated(context.Background()))

	assert.Equal(t, int32(3), count.Load())
	assert.Equal(t, 0, p.Stats().Workers)
	assert.ErrorIs(t, p.Submit(func() {}), ErrRejectedExecution)
}

func TestPoolSurvivesPanics(t *testing.T) {
	p := newTestPool(t, Config{CoreSize: 1, MaxSize: 1, QueueCapacity: 2})

	done := make(chan struct{})
	require.NoError(t, p.Submit(func() { panic("boom") }))
	require.NoError(t, p.Submit(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker died after panic")
	}
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(p.panicsTotal) == 1
	}, time.Second, 5*time.Millisecond)
}

type validateTest struct {
	cfg   Config
	valid bool
}

var validateTests = []validateTest{
	{Config{CoreSize: 10, MaxSize: 20, QueueCapacity: 100, KeepAlive: time.Minute}, true},
	{Config{CoreSize: 1, MaxSize: 1, QueueCapacity: 0, KeepAlive: time.Second}, true},
	{Config{CoreSize: 0, MaxSize: 1, QueueCapacity: 1, KeepAlive: time.Second}, false},
	{Config{CoreSize: 2, MaxSize: 1, QueueCapacity: 1, KeepAlive: time.Second}, false},
	{Config{CoreSize: 1, MaxSize: 1, QueueCapacity: -1, KeepAlive: time.Second}, false},
	{Config{CoreSize: 1, MaxSize: 1, QueueCapacity: 1}, false},
}

func TestConfigValidate(t *testing.T) {
	for _, v := range validateTests {
		err := v.cfg.Validate()
		assert.Equal(t, v.valid, err == nil, fmt.Sprintf("config %+v: expected valid=%t, got %v", v.cfg, v.valid, err))
	}
}
