// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package scheduler

import (
	"sync/atomic"
	"time"

	"code.hybscloud.com/spin"

	"code.hybscloud.com/cofw/status"
)

// mutexSpinAttempts bounds the fast, non-blocking spin phase Lock performs
// before parking on the channel. It is a fixed, small budget so spinning
// never itself becomes the source of unbounded latency.
const mutexSpinAttempts = 32

var processStart = time.Now()

// native is the self-contained Collaborator backed directly by the Go
// runtime: goroutines for Task, a channel-based semaphore for Mutex, and
// the Go allocator for Heap. §9 notes the specification does not prescribe
// how the scheduler is implemented; this is the default so the module works
// without an external RTOS binding.
type native struct {
	heap Heap
}

// NewNativeCollaborator returns the Go-runtime-backed Collaborator.
func NewNativeCollaborator() Collaborator {
	return &native{heap: nativeHeap{}}
}

func (n *native) NewMutex() (Mutex, status.Code) {
	m := &nativeMutex{sem: make(chan struct{}, 1)}
	m.sem <- struct{}{}
	return m, status.OK
}

func (n *native) NewTask(name string, entry TaskFunc, arg any, stackSize, priority int) (Task, status.Code) {
	if entry == nil {
		return nil, status.NullPointer
	}
	t := &nativeTask{name: name, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		entry(arg)
	}()
	return t, status.OK
}

func (n *native) DelayMs(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

func (n *native) TickCount() uint64 {
	return uint64(time.Since(processStart).Milliseconds())
}

func (n *native) Heap() Heap {
	return n.heap
}

// nativeMutex is a channel-based binary semaphore: the channel holds at
// most one token, Lock acquires it (optionally with a deadline), Unlock
// returns it. A separate locked flag lets Unlock detect double-unlock
// without relying on channel state alone.
type nativeMutex struct {
	_ noCopy

	sem       chan struct{}
	locked    atomic.Bool
	destroyed atomic.Bool
}

func (m *nativeMutex) Lock(timeout time.Duration) status.Code {
	if m.destroyed.Load() {
		return status.InvalidState
	}
	if timeout == NoWait {
		select {
		case <-m.sem:
			m.locked.Store(true)
			return status.OK
		default:
			return status.Timeout
		}
	}

	// Fast path: a short bounded spin before parking on the channel.
	// Most critical sections in this module are short (bitmask flips,
	// counter updates), so a contested lock often clears within a few
	// spins — avoiding a goroutine park/wake round trip.
	var sw spin.Wait
	for i := 0; i < mutexSpinAttempts; i++ {
		select {
		case <-m.sem:
			m.locked.Store(true)
			return status.OK
		default:
		}
		sw.Once()
	}

	if timeout == WaitForever {
		<-m.sem
		m.locked.Store(true)
		return status.OK
	}
	select {
	case <-m.sem:
		m.locked.Store(true)
		return status.OK
	case <-time.After(timeout):
		return status.Timeout
	}
}

func (m *nativeMutex) Unlock() status.Code {
	if !m.locked.CompareAndSwap(true, false) {
		return status.InvalidState
	}
	m.sem <- struct{}{}
	return status.OK
}

func (m *nativeMutex) Destroy() status.Code {
	if m.locked.Load() {
		return status.Busy
	}
	if !m.destroyed.CompareAndSwap(false, true) {
		return status.InvalidState
	}
	return status.OK
}

// nativeTask wraps a goroutine. Cancellation is unsupported (§5): Delete
// waits for the entry function to return on its own.
type nativeTask struct {
	name string
	done chan struct{}
}

func (t *nativeTask) Delete() status.Code {
	<-t.done
	return status.OK
}

// nativeHeap delegates directly to the Go allocator and garbage collector.
type nativeHeap struct{}

func (nativeHeap) Alloc(size int) []byte {
	if size <= 0 {
		return nil
	}
	return make([]byte, size)
}

func (nativeHeap) Free([]byte) {
	// The Go garbage collector reclaims the slice once unreferenced;
	// there is no explicit free step.
}
