// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package memorypool implements the Memory Pool Manager (§4.1): fixed-size
// block pools with a global best-fit size→pool routing table and O(1)
// average-case allocation. Each pool tracks free blocks with two 32-bit
// bitmasks (covering up to 64 blocks per pool); the manager holds a global
// mutex for pool creation/destruction and map rebuilds, while per-pool
// mutexes guard each pool's bitmask and statistics independently.
package memorypool

import (
	"sync/atomic"

	"code.hybscloud.com/cofw/assert"
	"code.hybscloud.com/cofw/config"
	"code.hybscloud.com/cofw/scheduler"
	"code.hybscloud.com/cofw/status"
)

// sizeToPoolNone marks a size-table entry with no covering pool.
const sizeToPoolNone = 0xFF

// Manager is the process-wide memory pool manager described in §3/§4.1. A
// Manager must be constructed with NewManager and then Init before use.
type Manager struct {
	_ noCopy

	collab scheduler.Collaborator
	cfg    config.MemPool

	mu          scheduler.Mutex
	initialized atomic.Bool

	pools     []*Pool
	poolCount int

	sizeToPool []uint8

	globalAllocations   atomic.Uint64
	globalFailures      atomic.Uint64
	globalFragmentation atomic.Uint64
}

// NewManager constructs a Manager backed by collab with the given
// configuration. The manager is not usable until Init succeeds.
func NewManager(collab scheduler.Collaborator, cfg config.MemPool) *Manager {
	return &Manager{collab: collab, cfg: cfg}
}

// Init brings the manager up: creates the global mutex and zeroes storage.
// A second Init without an intervening Deinit fails with
// AlreadyInitialized — idempotent init is a fault, not a no-op.
func (m *Manager) Init() status.Code {
	if m.initialized.Load() {
		return status.AlreadyInitialized
	}
	if !m.cfg.Validate() {
		return status.InvalidParam
	}
	mu, code := m.collab.NewMutex()
	if code != status.OK {
		return code
	}
	m.mu = mu
	m.pools = make([]*Pool, m.cfg.MaxPools)
	m.sizeToPool = make([]uint8, m.cfg.MaxSize+1)
	for i := range m.sizeToPool {
		m.sizeToPool[i] = sizeToPoolNone
	}
	m.poolCount = 0
	m.globalAllocations.Store(0)
	m.globalFailures.Store(0)
	m.globalFragmentation.Store(0)
	m.initialized.Store(true)
	return status.OK
}

// Deinit locks the global mutex, destroys every live pool and its mutex,
// zeroes storage, then destroys the global mutex.
func (m *Manager) Deinit() status.Code {
	if !m.initialized.Load() {
		return status.NotInitialized
	}
	if code := m.mu.Lock(scheduler.WaitForever); code != status.OK {
		return code
	}
	heap := m.collab.Heap()
	for i, p := range m.pools {
		if p == nil {
			continue
		}
		p.mu.Lock(scheduler.WaitForever)
		heap.Free(p.base)
		p.active = false
		p.mu.Unlock()
		p.mu.Destroy()
		m.pools[i] = nil
	}
	m.poolCount = 0
	m.sizeToPool = nil
	m.mu.Unlock()
	m.mu.Destroy()
	m.initialized.Store(false)
	return status.OK
}

// CreatePool allocates blockSize*blockCount bytes from the host heap and
// registers a new pool. Rejects blockSize == 0, blockSize > MaxSize,
// blockCount == 0, or blockCount > 64.
func (m *Manager) CreatePool(blockSize, blockCount int, name string) (*Pool, status.Code) {
	if !m.initialized.Load() {
		return nil, status.NotInitialized
	}
	if blockSize <= 0 || blockSize > m.cfg.MaxSize {
		return nil, status.InvalidParam
	}
	if blockCount <= 0 || blockCount > config.MaxPoolBlockCount {
		return nil, status.InvalidParam
	}

	if code := m.mu.Lock(scheduler.WaitForever); code != status.OK {
		return nil, code
	}
	defer m.mu.Unlock()

	slot := -1
	for i, p := range m.pools {
		if p == nil {
			slot = i
			break
		}
	}
	if slot == -1 {
		return nil, status.NoResource
	}

	heap := m.collab.Heap()
	mem := heap.Alloc(blockSize * blockCount)
	if mem == nil {
		return nil, status.NoMemory
	}

	pmu, code := m.collab.NewMutex()
	if code != status.OK {
		heap.Free(mem)
		return nil, code
	}

	p := &Pool{
		magic:      poolMagic,
		active:     true,
		blockSize:  blockSize,
		blockCount: blockCount,
		name:       name,
		base:       mem,
		freeMask:   initFreeMask(blockCount),
		mu:         pmu,
	}
	m.pools[slot] = p
	m.poolCount++
	m.rebuildSizeMap()
	return p, status.OK
}

// DestroyPool locks the global mutex then the pool mutex, releases the
// backing memory, destroys the pool mutex last so no concurrent holder of
// the pool mutex is orphaned mid-operation, clears the slot, and rebuilds
// the size→pool map.
func (m *Manager) DestroyPool(h *Pool) status.Code {
	if h == nil {
		return status.NullPointer
	}
	if code := m.mu.Lock(scheduler.WaitForever); code != status.OK {
		return code
	}
	defer m.mu.Unlock()

	if !m.validPool(h) {
		return status.InvalidParam
	}
	if code := h.mu.Lock(scheduler.WaitForever); code != status.OK {
		return code
	}
	m.collab.Heap().Free(h.base)
	h.active = false
	h.mu.Unlock()
	h.mu.Destroy()

	for i, p := range m.pools {
		if p == h {
			m.pools[i] = nil
			break
		}
	}
	m.poolCount--
	m.rebuildSizeMap()
	return status.OK
}

// AllocFromPool performs an O(block_count) worst-case linear scan of h for
// a free block, starting from the allocation hint. It uses a try-lock
// bounded by the configured PoolLockTimeout (10ms by default) so a
// contended pool never stalls an allocation indefinitely; on a lock
// timeout the global failure counter is bumped but the pool's own
// allocation-failure stat is left untouched since it cannot be updated
// without holding the pool's mutex.
func (m *Manager) AllocFromPool(h *Pool) ([]byte, status.Code) {
	if !m.initialized.Load() {
		return nil, status.NotInitialized
	}
	if h == nil {
		return nil, status.NullPointer
	}
	return m.allocFromPool(h, h.blockSize)
}

func (m *Manager) allocFromPool(h *Pool, requestedSize int) ([]byte, status.Code) {
	code := h.mu.Lock(m.cfg.PoolLockTimeout)
	if code != status.OK {
		m.globalFailures.Add(1)
		return nil, status.Busy
	}
	defer h.mu.Unlock()

	idx := h.acquireBlock()
	if idx < 0 {
		h.stats.AllocationFailures++
		m.globalFailures.Add(1)
		return nil, status.NoMemory
	}
	h.stats.TotalAllocations++
	h.stats.CurrentUsed++
	if h.stats.CurrentUsed > h.stats.PeakUsed {
		h.stats.PeakUsed = h.stats.CurrentUsed
	}
	if h.blockSize > requestedSize {
		h.stats.FragmentationCount++
		m.globalFragmentation.Add(1)
	}
	m.globalAllocations.Add(1)
	assert.Verify(h.freeBitsSet() == h.blockCount-int(h.stats.CurrentUsed),
		"pool %q free bitmask inconsistent with CurrentUsed: free=%d blockCount=%d used=%d",
		h.name, h.freeBitsSet(), h.blockCount, h.stats.CurrentUsed)
	return h.blockAddr(idx), status.OK
}

// Alloc rejects size 0 or size > MaxSize, consults the size→pool routing
// table, and attempts allocation from the mapped pool. On failure it
// sweeps the remaining active pools whose block size covers size and tries
// each in turn.
func (m *Manager) Alloc(size int) ([]byte, status.Code) {
	if !m.initialized.Load() {
		return nil, status.NotInitialized
	}
	if size <= 0 || size > m.cfg.MaxSize {
		return nil, status.InvalidParam
	}

	if code := m.mu.Lock(scheduler.WaitForever); code != status.OK {
		return nil, code
	}
	primary := m.sizeToPool[size]
	var candidates []*Pool
	var primaryPool *Pool
	if primary != sizeToPoolNone {
		primaryPool = m.pools[primary]
		candidates = append(candidates, primaryPool)
	}
	for _, p := range m.pools {
		if p == nil || !p.active || p == primaryPool {
			continue
		}
		if p.blockSize >= size {
			candidates = append(candidates, p)
		}
	}
	m.mu.Unlock()

	for _, p := range candidates {
		ptr, code := m.allocFromPool(p, size)
		if code == status.OK {
			return ptr, status.OK
		}
	}
	m.globalFailures.Add(1)
	return nil, status.NoMemory
}

// Free is a no-op returning OK for a nil pointer. Otherwise it identifies
// the owning pool by linear scan of address ranges, rejects misaligned
// pointers, rejects double frees with InvalidState, and sets the block's
// free bit.
func (m *Manager) Free(ptr []byte) status.Code {
	if ptr == nil {
		return status.OK
	}
	if !m.initialized.Load() {
		return status.NotInitialized
	}

	if code := m.mu.Lock(scheduler.WaitForever); code != status.OK {
		return code
	}
	var owner *Pool
	for _, p := range m.pools {
		if p != nil && p.active && p.blockIndex(ptr) >= 0 {
			owner = p
			break
		}
	}
	m.mu.Unlock()

	if owner == nil {
		return status.InvalidParam
	}

	if code := owner.mu.Lock(scheduler.WaitForever); code != status.OK {
		return code
	}
	defer owner.mu.Unlock()

	idx := owner.blockIndex(ptr)
	if idx < 0 {
		return status.InvalidParam
	}
	if owner.isFree(idx) {
		return status.InvalidState
	}
	owner.releaseBlock(idx)
	owner.stats.CurrentUsed--
	owner.stats.TotalDeallocations++
	assert.Verify(owner.freeBitsSet() == owner.blockCount-int(owner.stats.CurrentUsed),
		"pool %q free bitmask inconsistent with CurrentUsed: free=%d blockCount=%d used=%d",
		owner.name, owner.freeBitsSet(), owner.blockCount, owner.stats.CurrentUsed)
	return status.OK
}

// GetStats returns a snapshot of h's statistics.
func (m *Manager) GetStats(h *Pool) (PoolStats, status.Code) {
	if h == nil {
		return PoolStats{}, status.NullPointer
	}
	if code := h.mu.Lock(scheduler.WaitForever); code != status.OK {
		return PoolStats{}, code
	}
	defer h.mu.Unlock()
	return h.stats, status.OK
}

// GetGlobalStats returns a snapshot of the manager's cross-pool counters.
func (m *Manager) GetGlobalStats() GlobalStats {
	m.mu.Lock(scheduler.WaitForever)
	active := m.poolCount
	m.mu.Unlock()
	return GlobalStats{
		TotalAllocations:   m.globalAllocations.Load(),
		TotalFailures:      m.globalFailures.Load(),
		TotalFragmentation: m.globalFragmentation.Load(),
		ActivePools:        active,
	}
}

// GetInfo returns descriptive and statistical information about h.
func (m *Manager) GetInfo(h *Pool) (PoolInfo, status.Code) {
	if h == nil {
		return PoolInfo{}, status.NullPointer
	}
	if code := h.mu.Lock(scheduler.WaitForever); code != status.OK {
		return PoolInfo{}, code
	}
	defer h.mu.Unlock()
	return PoolInfo{
		Name:       h.name,
		BlockSize:  h.blockSize,
		BlockCount: h.blockCount,
		Stats:      h.stats,
		Health:     healthFor(h.percentUsed()),
	}, status.OK
}

// IsPoolPointer reports whether ptr was returned by some live pool managed
// by m.
func (m *Manager) IsPoolPointer(ptr []byte) bool {
	if ptr == nil {
		return false
	}
	if code := m.mu.Lock(scheduler.WaitForever); code != status.OK {
		return false
	}
	defer m.mu.Unlock()
	for _, p := range m.pools {
		if p != nil && p.active && p.blockIndex(ptr) >= 0 {
			return true
		}
	}
	return false
}

// CheckHealth classifies h's current utilization per §4.1's thresholds. A
// nil or otherwise invalid handle reports HealthEmergency.
func (m *Manager) CheckHealth(h *Pool) (HealthReport, status.Code) {
	if code := m.mu.Lock(scheduler.WaitForever); code != status.OK {
		return HealthReport{Status: HealthEmergency}, code
	}
	valid := m.validPool(h)
	m.mu.Unlock()
	if !valid {
		return HealthReport{Status: HealthEmergency}, status.InvalidParam
	}

	if code := h.mu.Lock(scheduler.WaitForever); code != status.OK {
		return HealthReport{Status: HealthEmergency}, code
	}
	defer h.mu.Unlock()
	pct := h.percentUsed()
	return HealthReport{Status: healthFor(pct), PercentUsed: pct}, status.OK
}

// ResetStats zeroes h's statistics, or every pool's statistics when h is
// nil.
func (m *Manager) ResetStats(h *Pool) status.Code {
	if h != nil {
		if code := h.mu.Lock(scheduler.WaitForever); code != status.OK {
			return code
		}
		h.stats = PoolStats{}
		h.mu.Unlock()
		return status.OK
	}

	if code := m.mu.Lock(scheduler.WaitForever); code != status.OK {
		return code
	}
	pools := append([]*Pool(nil), m.pools...)
	m.mu.Unlock()

	for _, p := range pools {
		if p == nil {
			continue
		}
		p.mu.Lock(scheduler.WaitForever)
		p.stats = PoolStats{}
		p.mu.Unlock()
	}
	return status.OK
}

// validPool reports whether h is a live pool owned by m. Caller must hold
// m.mu.
func (m *Manager) validPool(h *Pool) bool {
	if h == nil || h.magic != poolMagic || !h.active {
		return false
	}
	for _, p := range m.pools {
		if p == h {
			return true
		}
	}
	return false
}

// rebuildSizeMap recomputes the size→pool routing table so that every size
// maps to the smallest active pool whose block size covers it. Caller must
// hold m.mu.
func (m *Manager) rebuildSizeMap() {
	for size := range m.sizeToPool {
		var best uint8 = sizeToPoolNone
		bestBlockSize := m.cfg.MaxSize + 1
		for i, p := range m.pools {
			if p == nil || !p.active {
				continue
			}
			if p.blockSize >= size && p.blockSize < bestBlockSize {
				best = uint8(i)
				bestBlockSize = p.blockSize
			}
		}
		m.sizeToPool[size] = best
	}
}

// initFreeMask returns the two-word free bitmask with exactly the low
// blockCount bits set to 1 across both words.
func initFreeMask(blockCount int) [2]uint32 {
	var mask [2]uint32
	if blockCount >= 32 {
		mask[0] = ^uint32(0)
		if remaining := blockCount - 32; remaining > 0 {
			mask[1] = uint32((uint64(1) << uint(remaining)) - 1)
		}
	} else if blockCount > 0 {
		mask[0] = uint32((uint64(1) << uint(blockCount)) - 1)
	}
	return mask
}
