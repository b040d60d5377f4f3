// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"time"

	"code.hybscloud.com/iox"

	"code.hybscloud.com/cofw/status"
)

// noCopy is a sentinel used to prevent copying of synchronization
// primitives, mirroring the teacher's own types.go.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// chanQueue is a Queue[T] backed by a buffered Go channel. Send and Receive
// follow the same retry-with-adaptive-backoff shape as the teacher's
// BoundedPool.Get/Put: a single non-blocking attempt (tryX, returning
// iox.ErrWouldBlock) is retried inside a loop that backs off between
// attempts, bounded by an optional deadline derived from the timeout.
type chanQueue[T any] struct {
	_ noCopy

	ch       chan T
	capacity int
	closed   bool
}

// NewQueue creates a Queue[T] with the given capacity (>=1).
func NewQueue[T any](capacity int) Queue[T] {
	if capacity < 1 {
		panic("queue capacity must be >= 1")
	}
	return &chanQueue[T]{ch: make(chan T, capacity), capacity: capacity}
}

func (q *chanQueue[T]) trySend(item T) error {
	select {
	case q.ch <- item:
		return nil
	default:
		return iox.ErrWouldBlock
	}
}

func (q *chanQueue[T]) tryReceive() (item T, err error) {
	select {
	case item = <-q.ch:
		return item, nil
	default:
		return item, iox.ErrWouldBlock
	}
}

func (q *chanQueue[T]) Send(item T, timeout time.Duration) status.Code {
	if timeout == NoWait {
		if err := q.trySend(item); err != nil {
			return status.QueueFull
		}
		return status.OK
	}

	deadline, hasDeadline := deadlineFor(timeout)
	var aw iox.Backoff
	for {
		if err := q.trySend(item); err == nil {
			return status.OK
		}
		if hasDeadline && !time.Now().Before(deadline) {
			return status.Timeout
		}
		aw.Wait()
	}
}

func (q *chanQueue[T]) Receive(timeout time.Duration) (T, status.Code) {
	if timeout == NoWait {
		item, err := q.tryReceive()
		if err != nil {
			return item, status.QueueEmpty
		}
		return item, status.OK
	}

	deadline, hasDeadline := deadlineFor(timeout)
	var aw iox.Backoff
	for {
		item, err := q.tryReceive()
		if err == nil {
			return item, status.OK
		}
		if hasDeadline && !time.Now().Before(deadline) {
			return item, status.Timeout
		}
		aw.Wait()
	}
}

// SendFromISR never blocks and never waits: it is the only path that may be
// used from interrupt context (§5: "Mutexes are never taken from interrupt
// context").
func (q *chanQueue[T]) SendFromISR(item T) status.Code {
	if err := q.trySend(item); err != nil {
		return status.QueueFull
	}
	return status.OK
}

func (q *chanQueue[T]) Count() int {
	return len(q.ch)
}

func (q *chanQueue[T]) Available() int {
	return q.capacity - len(q.ch)
}

func (q *chanQueue[T]) IsEmpty() bool {
	return len(q.ch) == 0
}

func (q *chanQueue[T]) IsFull() bool {
	return len(q.ch) == q.capacity
}

func (q *chanQueue[T]) Cap() int {
	return q.capacity
}

// Reset drains the queue. The caller must ensure no concurrent Send or
// Receive is racing this call.
func (q *chanQueue[T]) Reset() status.Code {
	for {
		select {
		case <-q.ch:
		default:
			return status.OK
		}
	}
}

func (q *chanQueue[T]) Destroy() status.Code {
	if q.closed {
		return status.InvalidState
	}
	q.closed = true
	return status.OK
}

func deadlineFor(timeout time.Duration) (deadline time.Time, has bool) {
	if timeout == WaitForever {
		return time.Time{}, false
	}
	return time.Now().Add(timeout), true
}
