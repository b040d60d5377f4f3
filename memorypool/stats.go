// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package memorypool

// PoolStats is a snapshot of one pool's allocation statistics.
type PoolStats struct {
	TotalAllocations   uint64
	TotalDeallocations uint64
	CurrentUsed        uint32
	PeakUsed           uint32
	AllocationFailures uint64
	FragmentationCount uint64
}

// GlobalStats is a snapshot of the manager's cross-pool counters, updated
// with fetch-and-add atomics on the hot allocation path (§5) so that the
// manager mutex is never acquired per-allocation just to bump a counter.
type GlobalStats struct {
	TotalAllocations   uint64
	TotalFailures      uint64
	TotalFragmentation uint64
	ActivePools        int
}

// PoolInfo is the introspection payload returned by Manager.GetInfo.
type PoolInfo struct {
	Name       string
	BlockSize  int
	BlockCount int
	Stats      PoolStats
	Health     HealthStatus
}

// HealthReport is returned by Manager.CheckHealth.
type HealthReport struct {
	Status      HealthStatus
	PercentUsed int
}

func (r HealthReport) String() string {
	return r.Status.String()
}
