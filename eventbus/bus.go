// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package eventbus

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sync/semaphore"

	"code.hybscloud.com/cofw/config"
	"code.hybscloud.com/cofw/logsink"
	"code.hybscloud.com/cofw/memorypool"
	"code.hybscloud.com/cofw/scheduler"
	"code.hybscloud.com/cofw/status"
	"code.hybscloud.com/cofw/threadpool"
)

// Bus is the process-wide publish/subscribe event bus. Construct with
// NewBus, then Init before subscribing or publishing.
type Bus struct {
	_ noCopy

	collab scheduler.Collaborator
	pool   *threadpool.Pool
	mm     *memorypool.Manager
	cfg    config.EventBus
	log    logsink.Sink

	initialized atomic.Bool
	mu          scheduler.Mutex

	subscribers  []Subscriber
	activeCount  int
	totalPublished uint64

	failedDeliveries atomic.Uint64

	inflight *semaphore.Weighted
}

// NewBus constructs a Bus that delivers async subscriptions via pool and
// prefers mm (when cfg.UseMemoryPool is set) for dispatch payload copies,
// falling back to collab's heap. mm may be nil when UseMemoryPool is
// false. Dropped async deliveries (§4.3/§7) are reported to log, which
// defaults to logsink.Nop() so logging stays fully optional.
func NewBus(collab scheduler.Collaborator, pool *threadpool.Pool, mm *memorypool.Manager, cfg config.EventBus) *Bus {
	return &Bus{collab: collab, pool: pool, mm: mm, cfg: cfg, log: logsink.Nop()}
}

// SetSink installs the Sink dropped async deliveries are reported to. A
// nil sink restores the no-op default.
func (b *Bus) SetSink(sink logsink.Sink) {
	if sink == nil {
		sink = logsink.Nop()
	}
	b.log = sink
}

// Init creates the mutex and zeros the subscriber table. A second Init
// without an intervening Deinit fails with AlreadyInitialized.
func (b *Bus) Init() status.Code {
	if b.initialized.Load() {
		return status.AlreadyInitialized
	}
	if !b.cfg.Validate() {
		return status.InvalidParam
	}
	if b.log == nil {
		b.log = logsink.Nop()
	}
	mu, code := b.collab.NewMutex()
	if code != status.OK {
		return code
	}
	b.mu = mu
	b.subscribers = make([]Subscriber, b.cfg.MaxSubscribers)
	b.activeCount = 0
	b.totalPublished = 0
	b.failedDeliveries.Store(0)
	b.inflight = semaphore.NewWeighted(b.cfg.MaxInflightAsyncPerPublish)
	b.initialized.Store(true)
	return status.OK
}

// Deinit tears down every subscriber and destroys the mutex.
func (b *Bus) Deinit() status.Code {
	if !b.initialized.Load() {
		return status.NotInitialized
	}
	b.mu.Lock(scheduler.WaitForever)
	b.subscribers = nil
	b.activeCount = 0
	b.mu.Unlock()
	b.mu.Destroy()
	b.initialized.Store(false)
	return status.OK
}

// IsInitialized reports whether Init has succeeded without a matching
// Deinit.
func (b *Bus) IsInitialized() bool {
	return b.initialized.Load()
}

// TotalPublished returns the number of Publish/PublishData calls observed
// so far.
func (b *Bus) TotalPublished() uint64 {
	b.mu.Lock(scheduler.WaitForever)
	defer b.mu.Unlock()
	return b.totalPublished
}

// FailedDeliveries returns the monotonic count of async deliveries
// dropped because the in-flight async budget was exhausted, a dispatch
// payload could not be allocated, or the dispatch record could not be
// enqueued onto the thread pool.
func (b *Bus) FailedDeliveries() uint64 {
	return b.failedDeliveries.Load()
}

// Subscribe registers callback for eventID (0 meaning every event, the
// wildcard) and returns a stable handle. Rejects a nil callback and
// rejects subscription before Init. Fails with NoMemory once the fixed
// subscriber table is full.
func (b *Bus) Subscribe(eventID uint32, callback Callback, userData any, mode Mode) (*Subscriber, status.Code) {
	if callback == nil {
		return nil, status.NullPointer
	}
	if !b.initialized.Load() {
		return nil, status.NotInitialized
	}

	if code := b.mu.Lock(scheduler.WaitForever); code != status.OK {
		return nil, code
	}
	defer b.mu.Unlock()

	for i := range b.subscribers {
		if b.subscribers[i].active {
			continue
		}
		b.subscribers[i] = Subscriber{
			active:   true,
			eventID:  eventID,
			callback: callback,
			userData: userData,
			mode:     mode,
		}
		b.activeCount++
		return &b.subscribers[i], status.OK
	}
	return nil, status.NoMemory
}

// Unsubscribe deactivates h's slot. Rejects a nil handle and a handle that
// does not point within this bus's table or whose slot is already
// inactive.
func (b *Bus) Unsubscribe(h *Subscriber) status.Code {
	if h == nil {
		return status.NullPointer
	}
	if code := b.mu.Lock(scheduler.WaitForever); code != status.OK {
		return code
	}
	defer b.mu.Unlock()

	if !b.inTable(h) || !h.active {
		return status.InvalidParam
	}
	h.active = false
	b.activeCount--
	return status.OK
}

// UnsubscribeAll deactivates every slot whose event id matches eventID
// exactly (so eventID 0 only deactivates wildcard subscribers) and returns
// the count deactivated.
func (b *Bus) UnsubscribeAll(eventID uint32) uint32 {
	b.mu.Lock(scheduler.WaitForever)
	defer b.mu.Unlock()

	var n uint32
	for i := range b.subscribers {
		if b.subscribers[i].active && b.subscribers[i].eventID == eventID {
			b.subscribers[i].active = false
			b.activeCount--
			n++
		}
	}
	return n
}

// SubscriberCount returns the number of currently active subscribers.
func (b *Bus) SubscriberCount() uint32 {
	b.mu.Lock(scheduler.WaitForever)
	defer b.mu.Unlock()
	return uint32(b.activeCount)
}

// EventSubscriberCount returns the number of active subscribers whose
// event id matches id exactly, not counting wildcard subscribers unless
// id is itself the wildcard 0.
func (b *Bus) EventSubscriberCount(id uint32) uint32 {
	b.mu.Lock(scheduler.WaitForever)
	defer b.mu.Unlock()
	var n uint32
	for i := range b.subscribers {
		if b.subscribers[i].active && b.subscribers[i].eventID == id {
			n++
		}
	}
	return n
}

// inTable reports whether h points at a slot within b.subscribers. Caller
// must hold b.mu.
func (b *Bus) inTable(h *Subscriber) bool {
	if len(b.subscribers) == 0 {
		return false
	}
	addr := uintptr(unsafe.Pointer(h))
	first := uintptr(unsafe.Pointer(&b.subscribers[0]))
	last := uintptr(unsafe.Pointer(&b.subscribers[len(b.subscribers)-1]))
	return addr >= first && addr <= last && (addr-first)%unsafe.Sizeof(b.subscribers[0]) == 0
}
