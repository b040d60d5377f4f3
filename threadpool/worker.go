// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package threadpool

import (
	"time"

	"code.hybscloud.com/cofw/assert"
	"code.hybscloud.com/cofw/scheduler"
	"code.hybscloud.com/cofw/status"
)

// workerLoop is the entry function run by every worker task. It performs
// a strict priority drain on each iteration: Critical non-blocking, High
// non-blocking, Normal blocking with cfg.NormalReceiveTimeout, Low
// non-blocking. There is no aging — an uninterrupted stream of
// Critical/High work can starve Normal and Low indefinitely.
func (p *Pool) workerLoop(any) {
	for State(p.state.Load()) == StateRunning {
		if p.tryRun(p.critical, scheduler.NoWait) {
			continue
		}
		if p.tryRun(p.high, scheduler.NoWait) {
			continue
		}
		if p.tryRun(p.normal, p.cfg.NormalReceiveTimeout) {
			continue
		}
		if p.tryRun(p.low, scheduler.NoWait) {
			continue
		}
	}
}

// tryRun attempts to receive one descriptor from q and, on a hit, runs it
// to completion while keeping active_tasks and total_completed consistent
// under the mutex. Returns whether a task was received.
func (p *Pool) tryRun(q scheduler.Queue[descriptor], timeout time.Duration) bool {
	d, code := q.Receive(timeout)
	if code != status.OK {
		return false
	}

	p.mu.Lock(scheduler.WaitForever)
	p.active++
	p.mu.Unlock()

	runTask(d)

	p.mu.Lock(scheduler.WaitForever)
	p.active--
	p.completed++
	// SubmitFromISR enqueues without bumping submitted, so completed can
	// legitimately exceed submitted; active dropping below zero can't
	// happen under any submission path and would mean the increment/
	// decrement pairing above this function has been broken.
	assert.Verify(p.active >= 0, "worker active count went negative: %d", p.active)
	p.mu.Unlock()
	return true
}

// runTask invokes the task closure with a recover guard so a panicking
// task cannot skip the counter updates in tryRun or take down the worker.
func runTask(d descriptor) {
	defer func() {
		_ = recover()
	}()
	d.fn(d.arg)
}
