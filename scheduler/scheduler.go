// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package scheduler defines the collaborator interface the core consumes
// from its host environment: mutexes, bounded queues, tasks, and a heap
// allocator, all following the WAIT_FOREVER/NO_WAIT timeout convention in
// §6.2 of the specification. The specification deliberately does not
// prescribe how the scheduler is implemented; native.go ships a
// self-contained implementation backed by the Go runtime so the module is
// usable without an external RTOS binding.
package scheduler

import (
	"time"

	"code.hybscloud.com/cofw/status"
)

// WaitForever and NoWait are the two distinguished timeout values every
// blocking operation in this package understands: WaitForever blocks with
// no deadline, NoWait attempts the operation exactly once and returns
// immediately. Any other positive duration is a bounded wait.
const (
	WaitForever = time.Duration(-1)
	NoWait      = time.Duration(0)
)

// Mutex is the scheduler's lock primitive: create, lock with a timeout,
// unlock, destroy.
type Mutex interface {
	// Lock attempts to acquire the mutex, blocking up to timeout.
	// Returns status.Timeout if the timeout elapses first.
	Lock(timeout time.Duration) status.Code

	// Unlock releases the mutex. Unlocking an unlocked mutex is a caller
	// error reported as status.InvalidState.
	Unlock() status.Code

	// Destroy releases the mutex's resources. The mutex must not be
	// locked at the time of destruction.
	Destroy() status.Code
}

// Queue is a bounded FIFO of items of type T, parameterised by capacity.
// Send and Receive honor the WaitForever/NoWait timeout convention.
// Implementations must be safe for concurrent use by multiple producers and
// multiple consumers.
type Queue[T any] interface {
	// Send enqueues item, blocking up to timeout when the queue is full.
	Send(item T, timeout time.Duration) status.Code

	// Receive dequeues the oldest item, blocking up to timeout when the
	// queue is empty.
	Receive(timeout time.Duration) (T, status.Code)

	// SendFromISR is the non-blocking, allocation-free enqueue path
	// usable from interrupt/ISR-equivalent context: it never takes a
	// lock wider than the queue's internal one and never blocks.
	SendFromISR(item T) status.Code

	// Count returns the current number of queued items.
	Count() int

	// Available returns the remaining capacity (Cap - Count).
	Available() int

	// IsEmpty reports whether Count() == 0.
	IsEmpty() bool

	// IsFull reports whether Count() == Cap().
	IsFull() bool

	// Cap returns the queue's fixed capacity.
	Cap() int

	// Reset discards all queued items. The caller must ensure no
	// concurrent Send/Receive is in flight; Reset does not itself
	// synchronize against them beyond the queue's own item-slot lock.
	Reset() status.Code

	// Destroy releases the queue's resources.
	Destroy() status.Code
}

// TaskFunc is the entry point of a task created by a Task factory.
type TaskFunc func(arg any)

// Task is a handle to a running unit of work created by Collaborator.
// NewTask. Cancellation is not supported (per §5's "None" on cancellation):
// Delete waits for the task's entry function to return.
type Task interface {
	// Delete waits for the task to finish and releases its resources.
	Delete() status.Code
}

// Heap is the optional heap allocator collaborator (§1). A nil Heap means
// no heap fallback is available; callers must treat that as permanent
// allocation failure from the heap path.
type Heap interface {
	// Alloc returns size bytes, or nil on failure.
	Alloc(size int) []byte

	// Free releases memory returned by Alloc. Freeing nil is a no-op.
	Free(p []byte)
}

// Collaborator bundles the non-generic parts of the scheduler interface:
// mutex and task creation, delay, tick count, and heap access. Queue
// creation is a free generic function (NewQueue) because Go does not permit
// generic methods on an interface.
type Collaborator interface {
	// NewMutex creates a new, unlocked Mutex.
	NewMutex() (Mutex, status.Code)

	// NewTask creates and starts a task running entry(arg) on its own
	// thread of control, named name, with the given stack size hint and
	// priority.
	NewTask(name string, entry TaskFunc, arg any, stackSize, priority int) (Task, status.Code)

	// DelayMs suspends the calling task for the given number of
	// milliseconds.
	DelayMs(ms uint32)

	// TickCount returns a monotonic tick counter, implementation-defined
	// in resolution.
	TickCount() uint64

	// Heap returns the collaborator's heap allocator, or nil if none is
	// configured.
	Heap() Heap
}
