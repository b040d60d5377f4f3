// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package eventbus implements the publish/subscribe layer described in
// §4.3: a flat, fixed-capacity subscriber table delivering identifier-
// tagged events either synchronously on the publisher's own goroutine or
// asynchronously via the thread pool.
package eventbus

// noCopy mirrors the teacher's own copy-guard sentinel.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Mode selects how a subscriber's callback is invoked.
type Mode int

const (
	Sync Mode = iota
	Async
)

func (m Mode) String() string {
	if m == Async {
		return "Async"
	}
	return "Sync"
}

// Callback is invoked with the published event id, the payload (nil if
// none was published, possibly zero-length if one was), and the opaque
// user-data handle supplied at subscribe time. For a Sync subscriber, data
// is only valid for the duration of the call — it is never copied.
//
// Sync callbacks must not call Publish or PublishData: the bus mutex is
// held across the entire publish loop, including sync callback
// invocations, and is not reentrant. Doing so deadlocks.
type Callback func(eventID uint32, data []byte, userData any)

// Subscriber is one slot in the bus's fixed-size table. A *Subscriber
// returned by Subscribe is the opaque handle passed back to Unsubscribe;
// it remains a valid identifier until unsubscribed, and must not be used
// afterward.
type Subscriber struct {
	active   bool
	eventID  uint32
	callback Callback
	userData any
	mode     Mode
}
