// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package threadpool_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/cofw/config"
	"code.hybscloud.com/cofw/scheduler"
	"code.hybscloud.com/cofw/status"
	"code.hybscloud.com/cofw/threadpool"
)

func newPool(t *testing.T, cfg config.ThreadPool) *threadpool.Pool {
	t.Helper()
	p := threadpool.NewPool(scheduler.NewNativeCollaborator())
	require.Equal(t, status.OK, p.InitWithConfig(cfg))
	t.Cleanup(func() { p.Deinit(false) })
	return p
}

func TestPoolInitDeinitIdempotence(t *testing.T) {
	p := threadpool.NewPool(scheduler.NewNativeCollaborator())
	require.Equal(t, status.OK, p.Init())
	require.Equal(t, status.AlreadyInitialized, p.Init())
	require.Equal(t, threadpool.StateRunning, p.State())
	require.Equal(t, status.OK, p.Deinit(false))
	require.Equal(t, threadpool.StateStopped, p.State())
	require.Equal(t, status.NotInitialized, p.Deinit(false))
}

func TestPoolSubmitRejectsNilTask(t *testing.T) {
	p := newPool(t, config.DefaultThreadPool())
	require.Equal(t, status.NullPointer, p.Submit(nil, nil, threadpool.Normal, time.Second))
}

func TestPoolSubmitRejectsWhenNotRunning(t *testing.T) {
	p := threadpool.NewPool(scheduler.NewNativeCollaborator())
	require.Equal(t, status.NotInitialized, p.Submit(func(any) {}, nil, threadpool.Normal, time.Second))
}

// TestPoolPriorityOrdering mirrors end-to-end scenario 1 (§8): with a
// single worker, submitting Low(A) then High(B) then Critical(C) while A
// is running must complete in the order A, C, B.
func TestPoolPriorityOrdering(t *testing.T) {
	cfg := config.DefaultThreadPool()
	cfg.ThreadCount = 1
	p := newPool(t, cfg)

	var mu sync.Mutex
	var order []string
	record := func(name string) func(any) {
		return func(any) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	started := make(chan struct{})
	release := make(chan struct{})
	require.Equal(t, status.OK, p.Submit(func(any) {
		close(started)
		<-release
		record("A")(nil)
	}, nil, threadpool.Low, time.Second))

	<-started
	require.Equal(t, status.OK, p.Submit(record("B"), nil, threadpool.High, time.Second))
	require.Equal(t, status.OK, p.Submit(record("C"), nil, threadpool.Critical, time.Second))
	close(release)

	require.Equal(t, status.OK, p.WaitIdle(time.Second))
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"A", "C", "B"}, order)
}

// TestPoolShutdownDrain mirrors end-to-end scenario 6 (§8): 50 tasks each
// sleeping 20ms, then an immediate waiting deinit must return within a
// few seconds having completed every submitted task.
func TestPoolShutdownDrain(t *testing.T) {
	cfg := config.DefaultThreadPool()
	cfg.ThreadCount = 4
	cfg.QueueSize = 64
	p := threadpool.NewPool(scheduler.NewNativeCollaborator())
	require.Equal(t, status.OK, p.InitWithConfig(cfg))

	const n = 50
	for i := 0; i < n; i++ {
		require.Equal(t, status.OK, p.Submit(func(any) {
			time.Sleep(20 * time.Millisecond)
		}, nil, threadpool.Normal, time.Second))
	}

	done := make(chan status.Code, 1)
	go func() { done <- p.Deinit(true) }()

	select {
	case code := <-done:
		require.Equal(t, status.OK, code)
	case <-time.After(6 * time.Second):
		t.Fatal("deinit did not return within 6s")
	}
	require.EqualValues(t, n, p.Submitted())
	require.EqualValues(t, n, p.Completed())
}

func TestPoolSubmitFromISRNonBlockingNoStats(t *testing.T) {
	p := newPool(t, config.DefaultThreadPool())

	var ran atomic.Bool
	require.Equal(t, status.OK, p.SubmitFromISR(func(any) { ran.Store(true) }, nil, threadpool.Critical))
	require.Equal(t, status.OK, p.WaitIdle(time.Second))
	require.True(t, ran.Load())
	require.Zero(t, p.Submitted())
}

func TestPoolPanicDoesNotCorruptCounters(t *testing.T) {
	p := newPool(t, config.DefaultThreadPool())
	require.Equal(t, status.OK, p.Submit(func(any) { panic("boom") }, nil, threadpool.Normal, time.Second))
	require.Equal(t, status.OK, p.WaitIdle(time.Second))
	require.EqualValues(t, 1, p.Submitted())
	require.EqualValues(t, 1, p.Completed())
	require.Zero(t, p.ActiveCount())
}

func TestPoolQueueFullReturnsQueueOrTimeoutError(t *testing.T) {
	cfg := config.DefaultThreadPool()
	cfg.ThreadCount = 1
	cfg.QueueSize = 1
	p := newPool(t, cfg)

	block := make(chan struct{})
	require.Equal(t, status.OK, p.Submit(func(any) { <-block }, nil, threadpool.Critical, time.Second))
	// Fill the Critical queue (capacity 1) behind the in-flight task.
	require.Equal(t, status.OK, p.Submit(func(any) {}, nil, threadpool.Critical, time.Second))

	code := p.Submit(func(any) {}, nil, threadpool.Critical, 20*time.Millisecond)
	require.Equal(t, status.Timeout, code)
	close(block)
}
