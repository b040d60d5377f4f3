// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cofw is embedded middleware providing three concurrency
// primitives for a cooperative-multitasking microcontroller runtime: a
// priority thread pool, a publish/subscribe event bus layered on it, and
// a memory-pool allocator the bus uses to avoid general-purpose
// allocation on its publish path.
//
// # Subsystems
//
//	Subsystem     Package      Responsibility
//	─────────     ───────      ──────────────
//	Memory pool   memorypool   Fixed-size block pools, size→pool routing.
//	Thread pool   threadpool   Four priority-class FIFO queues, N workers.
//	Event bus     eventbus     Publish/subscribe, sync in-place or async.
//
// All three are independently usable; this package only adds process-wide
// singleton wiring (§9) for applications that want one shared instance of
// each rather than owning them directly. Every public operation across
// every subsystem returns a status.Code instead of an idiomatic Go error,
// mirroring the flat numeric return-code taxonomy the three subsystems
// share.
//
// The scheduler package models the external collaborator (mutex, queue,
// task, heap primitives) the core subsystems are built against; a
// goroutine/channel-backed implementation (scheduler.NewNativeCollaborator)
// is provided so the module is self-contained, but any implementation of
// scheduler.Collaborator satisfying the WAIT_FOREVER/NO_WAIT timeout
// convention works.
package cofw
