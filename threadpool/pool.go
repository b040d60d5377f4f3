// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package threadpool

import (
	"fmt"
	"sync/atomic"
	"time"

	"code.hybscloud.com/cofw/config"
	"code.hybscloud.com/cofw/scheduler"
	"code.hybscloud.com/cofw/status"
)

// Pool is the process-wide thread pool. Construct with NewPool, then Init
// or InitWithConfig before submitting work.
type Pool struct {
	_ noCopy

	collab scheduler.Collaborator
	cfg    config.ThreadPool

	initialized atomic.Bool
	state       atomic.Int32

	mu        scheduler.Mutex
	submitted uint64
	completed uint64
	active    int

	critical scheduler.Queue[descriptor]
	high     scheduler.Queue[descriptor]
	normal   scheduler.Queue[descriptor]
	low      scheduler.Queue[descriptor]

	workers []scheduler.Task
}

// NewPool constructs a Pool backed by collab. The pool is not usable until
// Init or InitWithConfig succeeds.
func NewPool(collab scheduler.Collaborator) *Pool {
	return &Pool{collab: collab}
}

// Init brings the pool up with default configuration.
func (p *Pool) Init() status.Code {
	return p.InitWithConfig(config.DefaultThreadPool())
}

// InitWithConfig creates the mutex, the four priority queues (Normal sized
// twice cfg.QueueSize, the others sized cfg.QueueSize directly), sets
// state to Running, then spawns cfg.ThreadCount workers named
// Worker0..Worker(N-1). A failure partway through spawning unwinds every
// resource already created and leaves the pool uninitialised.
func (p *Pool) InitWithConfig(cfg config.ThreadPool) status.Code {
	if p.initialized.Load() {
		return status.AlreadyInitialized
	}
	if !cfg.Validate() {
		return status.InvalidParam
	}

	mu, code := p.collab.NewMutex()
	if code != status.OK {
		return code
	}

	p.mu = mu
	p.cfg = cfg
	p.critical = scheduler.NewQueue[descriptor](cfg.QueueSize)
	p.high = scheduler.NewQueue[descriptor](cfg.QueueSize)
	p.normal = scheduler.NewQueue[descriptor](cfg.QueueSize * 2)
	p.low = scheduler.NewQueue[descriptor](cfg.QueueSize)
	p.submitted, p.completed, p.active = 0, 0, 0
	p.state.Store(int32(StateRunning))

	p.workers = make([]scheduler.Task, 0, cfg.ThreadCount)
	for i := 0; i < cfg.ThreadCount; i++ {
		name := fmt.Sprintf("Worker%d", i)
		task, code := p.collab.NewTask(name, p.workerLoop, nil, cfg.StackSize, cfg.WorkerPriority)
		if code != status.OK {
			p.state.Store(int32(StateShuttingDown))
			for _, w := range p.workers {
				w.Delete()
			}
			p.mu.Destroy()
			p.state.Store(int32(StateStopped))
			return code
		}
		p.workers = append(p.workers, task)
	}

	p.initialized.Store(true)
	return status.OK
}

// Deinit transitions the pool to ShuttingDown, optionally waiting for
// in-flight work to drain first, gives workers cfg.ShutdownDrainWait
// (100ms by default) to finish whatever call they are mid-invocation of,
// deletes every worker, destroys the
// queues and mutex, then transitions to Stopped.
func (p *Pool) Deinit(waitForTasks bool) status.Code {
	if !p.initialized.Load() {
		return status.NotInitialized
	}
	if waitForTasks {
		p.WaitIdle(5000 * time.Millisecond)
	}

	p.state.Store(int32(StateShuttingDown))
	p.collab.DelayMs(uint32(p.cfg.ShutdownDrainWait.Milliseconds()))

	for _, w := range p.workers {
		w.Delete()
	}
	p.workers = nil
	p.critical.Destroy()
	p.high.Destroy()
	p.normal.Destroy()
	p.low.Destroy()
	p.mu.Destroy()

	p.state.Store(int32(StateStopped))
	p.initialized.Store(false)
	return status.OK
}

// Submit rejects a nil task, rejects submission when uninitialised or not
// Running, enqueues a descriptor onto the queue matching priority with the
// given timeout, and on success bumps total_submitted under the mutex.
func (p *Pool) Submit(fn Func, arg any, priority Priority, timeout time.Duration) status.Code {
	if fn == nil {
		return status.NullPointer
	}
	if !p.initialized.Load() {
		return status.NotInitialized
	}
	if State(p.state.Load()) != StateRunning {
		return status.InvalidState
	}
	q, ok := p.queueFor(priority)
	if !ok {
		return status.InvalidParam
	}
	if code := q.Send(descriptor{fn: fn, arg: arg}, timeout); code != status.OK {
		return code
	}
	p.mu.Lock(scheduler.WaitForever)
	p.submitted++
	p.mu.Unlock()
	return status.OK
}

// SubmitFromISR is the ISR-safe submission path: a non-blocking enqueue
// that never takes the pool mutex and never updates statistics.
func (p *Pool) SubmitFromISR(fn Func, arg any, priority Priority) status.Code {
	if fn == nil {
		return status.NullPointer
	}
	if !p.initialized.Load() {
		return status.NotInitialized
	}
	if State(p.state.Load()) != StateRunning {
		return status.InvalidState
	}
	q, ok := p.queueFor(priority)
	if !ok {
		return status.InvalidParam
	}
	return q.SendFromISR(descriptor{fn: fn, arg: arg})
}

func (p *Pool) queueFor(priority Priority) (scheduler.Queue[descriptor], bool) {
	switch priority {
	case Critical:
		return p.critical, true
	case High:
		return p.high, true
	case Normal:
		return p.normal, true
	case Low:
		return p.low, true
	default:
		return nil, false
	}
}

// ActiveCount returns the number of tasks currently executing.
func (p *Pool) ActiveCount() int {
	p.mu.Lock(scheduler.WaitForever)
	defer p.mu.Unlock()
	return p.active
}

// PendingCount returns the sum of the four queue depths.
func (p *Pool) PendingCount() int {
	return p.critical.Count() + p.high.Count() + p.normal.Count() + p.low.Count()
}

// IsIdle reports whether both ActiveCount and PendingCount are zero.
func (p *Pool) IsIdle() bool {
	return p.ActiveCount() == 0 && p.PendingCount() == 0
}

// State returns the pool's current lifecycle state.
func (p *Pool) State() State {
	return State(p.state.Load())
}

// Submitted and Completed return the pool's monotonic submit/complete
// counters.
func (p *Pool) Submitted() uint64 {
	p.mu.Lock(scheduler.WaitForever)
	defer p.mu.Unlock()
	return p.submitted
}

func (p *Pool) Completed() uint64 {
	p.mu.Lock(scheduler.WaitForever)
	defer p.mu.Unlock()
	return p.completed
}

// WaitIdle polls IsIdle at 10ms intervals until idle or timeout elapses.
func (p *Pool) WaitIdle(timeout time.Duration) status.Code {
	deadline := time.Now().Add(timeout)
	for {
		if p.IsIdle() {
			return status.OK
		}
		if time.Now().After(deadline) {
			return status.Timeout
		}
		p.collab.DelayMs(10)
	}
}
