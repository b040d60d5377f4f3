// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package eventbus

import (
	"time"

	"code.hybscloud.com/cofw/logsink"
	"code.hybscloud.com/cofw/scheduler"
	"code.hybscloud.com/cofw/status"
	"code.hybscloud.com/cofw/threadpool"
)

// asyncSubmitTimeout bounds how long Publish waits to enqueue a dispatch
// record onto the thread pool's Normal queue before giving up and
// dropping the delivery.
const asyncSubmitTimeout = 100 * time.Millisecond

// dispatchRecord carries everything a worker needs to invoke one async
// subscriber's callback. Per the design note on dispatch-record allocation,
// only the payload copy is required to survive via the pool-then-heap path;
// the record itself is an ordinary short-lived Go value.
type dispatchRecord struct {
	eventID  uint32
	callback Callback
	userData any
	data     []byte
}

// Publish delivers eventID with no payload.
func (b *Bus) Publish(eventID uint32) status.Code {
	return b.PublishData(eventID, nil, 0)
}

// PublishData delivers eventID with a payload. Rejects size > 0 paired
// with nil data. A non-nil data with size 0 is accepted and delivers a
// zero-length payload. Sync subscribers run directly on this goroutine
// while the bus mutex is held; async subscribers get a dispatch record
// submitted to the thread pool at Normal priority and run later on a
// worker.
func (b *Bus) PublishData(eventID uint32, data []byte, size int) status.Code {
	if data == nil && size > 0 {
		return status.NullPointer
	}
	if size > len(data) {
		return status.InvalidParam
	}
	if !b.initialized.Load() {
		return status.NotInitialized
	}

	var payload []byte
	if data != nil {
		payload = data[:size]
	}

	if code := b.mu.Lock(scheduler.WaitForever); code != status.OK {
		return code
	}
	defer b.mu.Unlock()

	b.totalPublished++
	for i := range b.subscribers {
		sub := &b.subscribers[i]
		if !sub.active || (sub.eventID != eventID && sub.eventID != 0) {
			continue
		}
		switch sub.mode {
		case Sync:
			sub.callback(eventID, payload, sub.userData)
		case Async:
			b.deliverAsync(sub, eventID, payload)
		}
	}
	return status.OK
}

// deliverAsync allocates a payload copy (memory pool preferred, heap
// fallback) and submits a dispatch record to the thread pool. Allocation
// failure, submit failure, or exhaustion of the in-flight async budget
// all silently drop the delivery and bump failedDeliveries — the bus
// never fails a Publish call because one async subscriber could not be
// serviced.
func (b *Bus) deliverAsync(sub *Subscriber, eventID uint32, payload []byte) {
	if !b.inflight.TryAcquire(1) {
		b.failedDeliveries.Add(1)
		b.log.Write(logsink.LevelWarn, "async delivery dropped: in-flight budget exhausted",
			logsink.Field{Key: "event_id", Value: eventID})
		return
	}

	copied, code := b.allocPayloadCopy(payload)
	if code != status.OK {
		b.inflight.Release(1)
		b.failedDeliveries.Add(1)
		b.log.Write(logsink.LevelWarn, "async delivery dropped: payload copy allocation failed",
			logsink.Field{Key: "event_id", Value: eventID}, logsink.Field{Key: "status", Value: code})
		return
	}

	rec := dispatchRecord{eventID: eventID, callback: sub.callback, userData: sub.userData, data: copied}
	submitCode := b.pool.Submit(func(any) { b.runDispatch(rec) }, nil, threadpool.Normal, asyncSubmitTimeout)
	if submitCode != status.OK {
		b.freePayloadCopy(copied)
		b.inflight.Release(1)
		b.failedDeliveries.Add(1)
		b.log.Write(logsink.LevelWarn, "async delivery dropped: thread pool submit failed",
			logsink.Field{Key: "event_id", Value: eventID}, logsink.Field{Key: "status", Value: submitCode})
	}
}

// runDispatch executes on a worker: invokes the callback, frees the
// payload copy, then releases the in-flight budget this delivery held.
func (b *Bus) runDispatch(rec dispatchRecord) {
	defer b.inflight.Release(1)
	rec.callback(rec.eventID, rec.data, rec.userData)
	b.freePayloadCopy(rec.data)
}

// allocPayloadCopy copies payload into freshly allocated storage,
// preferring the memory pool when enabled and falling back to the host
// heap. A zero-length payload needs no storage and is represented as nil,
// matching the bus's (null, 0) dispatch-record convention.
func (b *Bus) allocPayloadCopy(payload []byte) ([]byte, status.Code) {
	n := len(payload)
	if n == 0 {
		return nil, status.OK
	}

	if b.cfg.UseMemoryPool && b.mm != nil {
		if buf, code := b.mm.Alloc(n); code == status.OK {
			copy(buf, payload)
			return buf[:n], status.OK
		}
	}

	buf := b.collab.Heap().Alloc(n)
	if buf == nil {
		return nil, status.NoMemory
	}
	copy(buf, payload)
	return buf, status.OK
}

// freePayloadCopy releases storage obtained from allocPayloadCopy.
func (b *Bus) freePayloadCopy(buf []byte) {
	if len(buf) == 0 {
		return
	}
	if b.cfg.UseMemoryPool && b.mm != nil && b.mm.IsPoolPointer(buf) {
		b.mm.Free(buf)
		return
	}
	b.collab.Heap().Free(buf)
}
