// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/cofw/scheduler"
	"code.hybscloud.com/cofw/status"
)

func TestQueueBasicSendReceive(t *testing.T) {
	q := scheduler.NewQueue[int](4)
	require.Equal(t, status.OK, q.Send(1, scheduler.NoWait))
	require.Equal(t, status.OK, q.Send(2, scheduler.NoWait))
	require.Equal(t, 2, q.Count())

	v, code := q.Receive(scheduler.NoWait)
	require.Equal(t, status.OK, code)
	require.Equal(t, 1, v)

	v, code = q.Receive(scheduler.NoWait)
	require.Equal(t, status.OK, code)
	require.Equal(t, 2, v)
}

func TestQueueFullNoWait(t *testing.T) {
	q := scheduler.NewQueue[int](1)
	require.Equal(t, status.OK, q.Send(1, scheduler.NoWait))
	require.Equal(t, status.QueueFull, q.Send(2, scheduler.NoWait))
}

func TestQueueEmptyNoWait(t *testing.T) {
	q := scheduler.NewQueue[int](1)
	_, code := q.Receive(scheduler.NoWait)
	require.Equal(t, status.QueueEmpty, code)
}

func TestQueueSendTimeout(t *testing.T) {
	q := scheduler.NewQueue[int](1)
	require.Equal(t, status.OK, q.Send(1, scheduler.NoWait))

	start := time.Now()
	code := q.Send(2, 50*time.Millisecond)
	require.Equal(t, status.Timeout, code)
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestQueueReceiveUnblocksOnSend(t *testing.T) {
	q := scheduler.NewQueue[int](1)
	var wg sync.WaitGroup
	wg.Add(1)
	var got int
	var code status.Code
	go func() {
		defer wg.Done()
		got, code = q.Receive(time.Second)
	}()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, status.OK, q.Send(42, scheduler.NoWait))
	wg.Wait()
	require.Equal(t, status.OK, code)
	require.Equal(t, 42, got)
}

func TestQueueSendFromISRNonBlocking(t *testing.T) {
	q := scheduler.NewQueue[int](1)
	require.Equal(t, status.OK, q.SendFromISR(1))
	require.Equal(t, status.QueueFull, q.SendFromISR(2))
}

func TestQueueIntrospection(t *testing.T) {
	q := scheduler.NewQueue[int](4)
	require.True(t, q.IsEmpty())
	require.False(t, q.IsFull())
	require.Equal(t, 4, q.Available())

	for i := 0; i < 4; i++ {
		require.Equal(t, status.OK, q.Send(i, scheduler.NoWait))
	}
	require.True(t, q.IsFull())
	require.Equal(t, 0, q.Available())

	require.Equal(t, status.OK, q.Reset())
	require.True(t, q.IsEmpty())
}

func TestQueueConcurrentProducersConsumers(t *testing.T) {
	const capacity = 16
	const producers = 8
	const perProducer = 500
	q := scheduler.NewQueue[int](capacity)

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				for q.Send(i, 10*time.Millisecond) != status.OK {
				}
			}
		}()
	}

	received := 0
	done := make(chan struct{})
	go func() {
		for received < producers*perProducer {
			_, code := q.Receive(100 * time.Millisecond)
			if code == status.OK {
				received++
			}
		}
		close(done)
	}()

	wg.Wait()
	<-done
	require.Equal(t, producers*perProducer, received)
}
