// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cofw

import (
	"sync"

	"code.hybscloud.com/cofw/config"
	"code.hybscloud.com/cofw/eventbus"
	"code.hybscloud.com/cofw/memorypool"
	"code.hybscloud.com/cofw/scheduler"
	"code.hybscloud.com/cofw/status"
	"code.hybscloud.com/cofw/threadpool"
)

// Package-level singleton state (§9: guarded once-init module state is
// one of the two equally valid rewrites of the original's global
// singletons; this module picks it so an application can call Init once
// at startup without threading owner objects through every call site).
var (
	mu     sync.Mutex
	collab scheduler.Collaborator
	mm     *memorypool.Manager
	tp     *threadpool.Pool
	bus    *eventbus.Bus
)

// Init brings up the memory pool manager, the thread pool, and the event
// bus, in that dependency order, using default configuration throughout.
// A second Init without an intervening Deinit fails with
// AlreadyInitialized; a failure partway through unwinds whatever was
// already brought up.
func Init() status.Code {
	mu.Lock()
	defer mu.Unlock()
	if collab != nil {
		return status.AlreadyInitialized
	}

	c := scheduler.NewNativeCollaborator()
	m := memorypool.NewManager(c, config.DefaultMemPool())
	if code := m.Init(); code != status.OK {
		return code
	}
	p := threadpool.NewPool(c)
	if code := p.Init(); code != status.OK {
		m.Deinit()
		return code
	}
	b := eventbus.NewBus(c, p, m, config.DefaultEventBus())
	if code := b.Init(); code != status.OK {
		p.Deinit(false)
		m.Deinit()
		return code
	}

	collab, mm, tp, bus = c, m, p, b
	return status.OK
}

// Deinit tears the singletons down in reverse dependency order.
func Deinit() status.Code {
	mu.Lock()
	defer mu.Unlock()
	if collab == nil {
		return status.NotInitialized
	}
	bus.Deinit()
	tp.Deinit(true)
	mm.Deinit()
	collab, mm, tp, bus = nil, nil, nil, nil
	return status.OK
}

// EventBus returns the process-wide event bus, or nil if Init has not
// been called.
func EventBus() *eventbus.Bus {
	mu.Lock()
	defer mu.Unlock()
	return bus
}

// ThreadPool returns the process-wide thread pool, or nil if Init has not
// been called.
func ThreadPool() *threadpool.Pool {
	mu.Lock()
	defer mu.Unlock()
	return tp
}

// MemoryPool returns the process-wide memory pool manager, or nil if Init
// has not been called.
func MemoryPool() *memorypool.Manager {
	mu.Lock()
	defer mu.Unlock()
	return mm
}
