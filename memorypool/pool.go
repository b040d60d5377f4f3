// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package memorypool

import (
	"unsafe"

	"code.hybscloud.com/cofw/scheduler"
)

// poolMagic validates a *Pool handle is live memory of the expected shape,
// guarding against a stale or foreign pointer being handed back to the
// manager.
const poolMagic = 0xC0FEBABE

// noCopy is a sentinel used to prevent copying of synchronization
// primitives, mirroring the teacher's own types.go.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Pool is one fixed-size block pool. Its free state is tracked by two
// 32-bit bitmasks covering up to 64 blocks; bit i of word 0 (i<32) or word 1
// (i>=32) is 1 iff block i is free. All bitmask and statistics access is
// serialized by mu; the pool's own mutex is acquired with a bounded try-lock
// in AllocFromPool so a single contended pool can never stall an allocation
// indefinitely (§4.1).
type Pool struct {
	_ noCopy

	magic     uint32
	active    bool
	blockSize int
	blockCount int
	name      string
	base      []byte

	freeMask [2]uint32
	hint     uint32

	mu scheduler.Mutex

	stats PoolStats
}

// blockAddr returns a []byte view of block i within the pool's backing
// storage: addr = base + i*blockSize, following the same unsafe.Add-based
// slice-viewing idiom the teacher uses for its cache-line- and
// page-aligned block helpers.
func (p *Pool) blockAddr(i int) []byte {
	base := unsafe.Pointer(unsafe.SliceData(p.base))
	return unsafe.Slice((*byte)(unsafe.Add(base, i*p.blockSize)), p.blockSize)
}

// blockIndex returns the block index owning ptr, or -1 if ptr does not
// fall within this pool's backing storage.
func (p *Pool) blockIndex(ptr []byte) int {
	if len(p.base) == 0 || len(ptr) == 0 {
		return -1
	}
	base := uintptr(unsafe.Pointer(unsafe.SliceData(p.base)))
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(ptr)))
	end := base + uintptr(p.blockCount*p.blockSize)
	if addr < base || addr >= end {
		return -1
	}
	offset := addr - base
	if offset%uintptr(p.blockSize) != 0 {
		return -1
	}
	return int(offset / uintptr(p.blockSize))
}

// isFree reports whether block i's free bit is set. Caller must hold mu.
func (p *Pool) isFree(i int) bool {
	word, bit := i/32, uint(i%32)
	return p.freeMask[word]&(1<<bit) != 0
}

// setFree sets or clears block i's free bit. Caller must hold mu.
func (p *Pool) setFree(i int, free bool) {
	word, bit := i/32, uint(i%32)
	if free {
		p.freeMask[word] |= 1 << bit
	} else {
		p.freeMask[word] &^= 1 << bit
	}
}

// freeBitsSet counts the number of set free bits across both words. Caller
// must hold mu.
func (p *Pool) freeBitsSet() int {
	n := 0
	for _, w := range p.freeMask {
		for w != 0 {
			n++
			w &= w - 1
		}
	}
	return n
}

// acquireBlock performs the O(block_count) worst-case linear scan starting
// at the allocation hint, returning the index of the first free block. The
// caller must hold mu. Returns -1 if none is free.
func (p *Pool) acquireBlock() int {
	for scanned := 0; scanned < p.blockCount; scanned++ {
		i := int((p.hint + uint32(scanned)) % uint32(p.blockCount))
		if p.isFree(i) {
			p.setFree(i, false)
			p.hint = uint32((i + 1) % p.blockCount)
			return i
		}
	}
	return -1
}

// releaseBlock marks block i free. Caller must hold mu.
func (p *Pool) releaseBlock(i int) {
	p.setFree(i, true)
}

// percentUsed returns the integer percentage of blocks currently in use.
func (p *Pool) percentUsed() int {
	if p.blockCount == 0 {
		return 0
	}
	return int(p.stats.CurrentUsed) * 100 / p.blockCount
}

// HealthStatus classifies a pool's utilization. See Manager.CheckHealth.
type HealthStatus int

const (
	HealthGood HealthStatus = iota
	HealthWarning
	HealthCritical
	HealthEmergency
)

func (h HealthStatus) String() string {
	switch h {
	case HealthGood:
		return "Good"
	case HealthWarning:
		return "Warning"
	case HealthCritical:
		return "Critical"
	case HealthEmergency:
		return "Emergency"
	default:
		return "Unknown"
	}
}

// healthFor classifies percentUsed per §4.1's thresholds: >=95% Critical,
// >=80% Warning, otherwise Good. Emergency is reserved for an invalid
// handle and is never returned from here.
func healthFor(percentUsed int) HealthStatus {
	switch {
	case percentUsed >= 95:
		return HealthCritical
	case percentUsed >= 80:
		return HealthWarning
	default:
		return HealthGood
	}
}
