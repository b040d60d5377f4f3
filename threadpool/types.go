// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package threadpool implements the four-priority-class FIFO thread pool
// described in §4.2: a fixed set of worker goroutines drains Critical,
// High, Normal, and Low queues in strict priority order, with no aging.
package threadpool

// noCopy mirrors the teacher's own copy-guard sentinel.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Priority is a task's priority class. There is no aging: a sustained
// stream of Critical/High work can starve Normal and Low indefinitely.
type Priority int

const (
	Low Priority = iota
	Normal
	High
	Critical
)

func (p Priority) String() string {
	switch p {
	case Low:
		return "Low"
	case Normal:
		return "Normal"
	case High:
		return "High"
	case Critical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// State is the pool's lifecycle state machine: Stopped -> Running ->
// ShuttingDown -> Stopped.
type State int32

const (
	StateStopped State = iota
	StateRunning
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateRunning:
		return "Running"
	case StateShuttingDown:
		return "ShuttingDown"
	default:
		return "Unknown"
	}
}

// Func is a submitted task closure. Tasks are never cancelled or retried;
// a panic inside Func is recovered by the worker so it cannot corrupt the
// pool's counters, but the task itself is not resumed.
type Func func(arg any)

// descriptor is the record enqueued on a priority queue.
type descriptor struct {
	fn  Func
	arg any
}
