// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config holds the compile-time configuration surface for the
// memory pool, thread pool, and event bus subsystems. Per §6.3 of the
// specification this module is configured entirely at compile time: there
// is no config-file parser and no CLI, only plain structs with validated
// defaults, mirroring the teacher's validate-then-build constructor idiom.
package config

import "time"

// Bounds shared across subsystems.
const (
	MinSubscribers = 4
	MaxSubscribers = 64

	MinThreadCount = 1
	MaxThreadCount = 16

	MaxMemPools     = 8
	DefaultMaxPools = MaxMemPools

	DefaultMaxSize = 2048

	MaxPoolBlockCount = 64
)

// EventBus holds the event bus's compile-time configuration.
type EventBus struct {
	// MaxSubscribers bounds the fixed subscriber table. Default 32, must
	// fall within [MinSubscribers, MaxSubscribers].
	MaxSubscribers int

	// UseMemoryPool enables the memory-pool-preferring async dispatch
	// fast path (§4.3, §9 open question 1); when false, the async
	// dispatch payload copy is always allocated from the heap.
	UseMemoryPool bool

	// MaxInflightAsyncPerPublish bounds the async deliveries in flight
	// across the whole bus: a slot is taken when a dispatch is submitted
	// and returned once its callback has run. A delivery that finds no
	// free slot is dropped.
	MaxInflightAsyncPerPublish int64
}

// DefaultEventBus returns the default event bus configuration.
func DefaultEventBus() EventBus {
	return EventBus{
		MaxSubscribers:             32,
		UseMemoryPool:              true,
		MaxInflightAsyncPerPublish: 8,
	}
}

// Validate checks c against the documented bounds.
func (c EventBus) Validate() bool {
	if c.MaxSubscribers < MinSubscribers || c.MaxSubscribers > MaxSubscribers {
		return false
	}
	if c.MaxInflightAsyncPerPublish < 1 {
		return false
	}
	return true
}

// ThreadPool holds the thread pool's compile-time configuration.
type ThreadPool struct {
	// ThreadCount is the fixed worker count, 1..16.
	ThreadCount int

	// QueueSize is the capacity of the Critical, High, and Low queues.
	// The Normal queue's capacity is always 2*QueueSize.
	QueueSize int

	// StackSize is advisory on platforms (like this one) where goroutine
	// stacks are managed by the runtime; it is retained because the
	// scheduler collaborator interface's Task.Create takes a stack size
	// parameter and a host RTOS binding will need it.
	StackSize int

	// WorkerPriority is the base OS/RTOS priority workers run at.
	WorkerPriority int

	// NormalReceiveTimeout bounds how long a worker blocks on the Normal
	// queue before re-checking for shutdown (§4.2 worker algorithm step 3).
	NormalReceiveTimeout time.Duration

	// ShutdownDrainWait is the fixed delay Deinit sleeps after entering
	// ShuttingDown before it deletes the workers. Deleting a worker still
	// waits for the task it is running, if any, to return.
	ShutdownDrainWait time.Duration
}

// DefaultThreadPool returns the default thread pool configuration.
func DefaultThreadPool() ThreadPool {
	return ThreadPool{
		ThreadCount:          4,
		QueueSize:            64,
		StackSize:            4096,
		WorkerPriority:        0,
		NormalReceiveTimeout: 100 * time.Millisecond,
		ShutdownDrainWait:    100 * time.Millisecond,
	}
}

// Validate checks c against the documented bounds.
func (c ThreadPool) Validate() bool {
	if c.ThreadCount < MinThreadCount || c.ThreadCount > MaxThreadCount {
		return false
	}
	if c.QueueSize <= 0 {
		return false
	}
	if c.StackSize <= 0 {
		return false
	}
	return true
}

// MemPool holds the memory pool manager's compile-time configuration.
type MemPool struct {
	// MaxPools bounds the fixed pool array.
	MaxPools int

	// MaxSize bounds the size→pool lookup table and the largest size any
	// pool can be routed to serve.
	MaxSize int

	// PoolLockTimeout is the try-lock ceiling used by allocate-from-pool
	// so that an alloc never blocks indefinitely (§4.1 concurrency).
	PoolLockTimeout time.Duration
}

// DefaultMemPool returns the default memory pool manager configuration.
func DefaultMemPool() MemPool {
	return MemPool{
		MaxPools:        DefaultMaxPools,
		MaxSize:         DefaultMaxSize,
		PoolLockTimeout: 10 * time.Millisecond,
	}
}

// Validate checks c against the documented bounds.
func (c MemPool) Validate() bool {
	if c.MaxPools <= 0 || c.MaxPools > MaxMemPools {
		return false
	}
	if c.MaxSize <= 0 {
		return false
	}
	return true
}
