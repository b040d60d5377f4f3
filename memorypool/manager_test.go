// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package memorypool_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/cofw/config"
	"code.hybscloud.com/cofw/memorypool"
	"code.hybscloud.com/cofw/scheduler"
	"code.hybscloud.com/cofw/status"
)

func newManager(t *testing.T) *memorypool.Manager {
	t.Helper()
	m := memorypool.NewManager(scheduler.NewNativeCollaborator(), config.DefaultMemPool())
	require.Equal(t, status.OK, m.Init())
	t.Cleanup(func() { m.Deinit() })
	return m
}

func TestManagerInitDeinitIdempotence(t *testing.T) {
	m := memorypool.NewManager(scheduler.NewNativeCollaborator(), config.DefaultMemPool())
	require.Equal(t, status.OK, m.Init())
	require.Equal(t, status.AlreadyInitialized, m.Init())
	require.Equal(t, status.OK, m.Deinit())
	require.Equal(t, status.NotInitialized, m.Deinit())
}

func TestManagerCreatePoolRejectsInvalidParams(t *testing.T) {
	m := newManager(t)
	_, code := m.CreatePool(0, 4, "zero-size")
	require.Equal(t, status.InvalidParam, code)

	_, code = m.CreatePool(config.DefaultMaxSize+1, 4, "too-big")
	require.Equal(t, status.InvalidParam, code)

	_, code = m.CreatePool(16, 0, "zero-count")
	require.Equal(t, status.InvalidParam, code)

	_, code = m.CreatePool(16, config.MaxPoolBlockCount+1, "too-many-blocks")
	require.Equal(t, status.InvalidParam, code)
}

func TestManagerAllocFreeRoundTrip(t *testing.T) {
	m := newManager(t)
	pool, code := m.CreatePool(32, 4, "round-trip")
	require.Equal(t, status.OK, code)

	ptr, code := m.AllocFromPool(pool)
	require.Equal(t, status.OK, code)
	require.Len(t, ptr, 32)

	stats, code := m.GetStats(pool)
	require.Equal(t, status.OK, code)
	require.EqualValues(t, 1, stats.TotalAllocations)
	require.EqualValues(t, 1, stats.CurrentUsed)

	require.Equal(t, status.OK, m.Free(ptr))
	stats, _ = m.GetStats(pool)
	require.EqualValues(t, 1, stats.TotalDeallocations)
	require.EqualValues(t, 0, stats.CurrentUsed)
	require.EqualValues(t, 1, stats.PeakUsed)
}

func TestManagerDoubleFreeIsRejectedWithoutChangingCurrentUsed(t *testing.T) {
	m := newManager(t)
	pool, _ := m.CreatePool(32, 4, "double-free")
	ptr, _ := m.AllocFromPool(pool)

	require.Equal(t, status.OK, m.Free(ptr))
	statsBefore, _ := m.GetStats(pool)

	require.Equal(t, status.InvalidState, m.Free(ptr))
	statsAfter, _ := m.GetStats(pool)
	require.Equal(t, statsBefore.CurrentUsed, statsAfter.CurrentUsed)
}

func TestManagerPoolExhaustionReturnsNoMemory(t *testing.T) {
	m := newManager(t)
	pool, _ := m.CreatePool(16, 2, "tiny")

	_, code := m.AllocFromPool(pool)
	require.Equal(t, status.OK, code)
	_, code = m.AllocFromPool(pool)
	require.Equal(t, status.OK, code)

	_, code = m.AllocFromPool(pool)
	require.Equal(t, status.NoMemory, code)

	stats, _ := m.GetStats(pool)
	require.EqualValues(t, 1, stats.AllocationFailures)
}

func TestManagerBlockCountSixtyFourExercisesBothWords(t *testing.T) {
	m := newManager(t)
	pool, code := m.CreatePool(8, config.MaxPoolBlockCount, "full-width")
	require.Equal(t, status.OK, code)

	ptrs := make([][]byte, 0, config.MaxPoolBlockCount)
	for i := 0; i < config.MaxPoolBlockCount; i++ {
		ptr, code := m.AllocFromPool(pool)
		require.Equal(t, status.OK, code, "allocation %d should succeed", i)
		ptrs = append(ptrs, ptr)
	}
	_, code = m.AllocFromPool(pool)
	require.Equal(t, status.NoMemory, code)

	for _, ptr := range ptrs {
		require.Equal(t, status.OK, m.Free(ptr))
	}

	stats, _ := m.GetStats(pool)
	require.EqualValues(t, config.MaxPoolBlockCount, stats.TotalAllocations)
	require.EqualValues(t, config.MaxPoolBlockCount, stats.TotalDeallocations)
	require.EqualValues(t, 0, stats.CurrentUsed)
}

func TestManagerAllocRoutesBySizeAndCountsFragmentation(t *testing.T) {
	m := newManager(t)
	small, _ := m.CreatePool(16, 4, "small")
	large, _ := m.CreatePool(64, 4, "large")

	ptr, code := m.Alloc(16)
	require.Equal(t, status.OK, code)
	require.Len(t, ptr, 16)
	require.True(t, m.IsPoolPointer(ptr))

	smallStats, _ := m.GetStats(small)
	require.EqualValues(t, 1, smallStats.TotalAllocations)
	require.EqualValues(t, 0, smallStats.FragmentationCount)

	for i := 0; i < 4; i++ {
		_, code := m.Alloc(16)
		require.Equal(t, status.OK, code)
	}
	largeStats, _ := m.GetStats(large)
	require.EqualValues(t, 1, largeStats.TotalAllocations)
	require.EqualValues(t, 1, largeStats.FragmentationCount)

	global := m.GetGlobalStats()
	require.EqualValues(t, 1, global.TotalFragmentation)
}

func TestManagerAllocSizeBoundaries(t *testing.T) {
	m := newManager(t)
	_, code := m.Alloc(0)
	require.Equal(t, status.InvalidParam, code)

	_, code = m.Alloc(config.DefaultMaxSize + 1)
	require.Equal(t, status.InvalidParam, code)

	_, code = m.Alloc(16)
	require.Equal(t, status.NoMemory, code)
}

func TestManagerFreeOfNilIsNoOp(t *testing.T) {
	m := newManager(t)
	require.Equal(t, status.OK, m.Free(nil))
}

func TestManagerFreeOfForeignPointerIsRejected(t *testing.T) {
	m := newManager(t)
	m.CreatePool(16, 4, "p")
	foreign := make([]byte, 16)
	require.Equal(t, status.InvalidParam, m.Free(foreign))
}

func TestManagerCheckHealthThresholds(t *testing.T) {
	m := newManager(t)
	pool, _ := m.CreatePool(8, 20, "health")

	report, code := m.CheckHealth(pool)
	require.Equal(t, status.OK, code)
	require.Equal(t, memorypool.HealthGood, report.Status)

	for i := 0; i < 16; i++ {
		_, code := m.AllocFromPool(pool)
		require.Equal(t, status.OK, code)
	}
	report, _ = m.CheckHealth(pool)
	require.Equal(t, memorypool.HealthWarning, report.Status)

	for i := 0; i < 3; i++ {
		_, code := m.AllocFromPool(pool)
		require.Equal(t, status.OK, code)
	}
	report, _ = m.CheckHealth(pool)
	require.Equal(t, memorypool.HealthCritical, report.Status)
}

func TestManagerCheckHealthInvalidHandleIsEmergency(t *testing.T) {
	m := newManager(t)
	report, code := m.CheckHealth(nil)
	require.Equal(t, status.InvalidParam, code)
	require.Equal(t, memorypool.HealthEmergency, report.Status)
}

func TestManagerDestroyPoolRejectsUnknownHandle(t *testing.T) {
	m := newManager(t)
	other := memorypool.NewManager(scheduler.NewNativeCollaborator(), config.DefaultMemPool())
	require.Equal(t, status.OK, other.Init())
	defer other.Deinit()

	foreign, _ := other.CreatePool(16, 4, "foreign")
	require.Equal(t, status.InvalidParam, m.DestroyPool(foreign))
}

func TestManagerResetStatsAllPools(t *testing.T) {
	m := newManager(t)
	a, _ := m.CreatePool(16, 4, "a")
	b, _ := m.CreatePool(32, 4, "b")
	m.AllocFromPool(a)
	m.AllocFromPool(b)

	require.Equal(t, status.OK, m.ResetStats(nil))

	statsA, _ := m.GetStats(a)
	statsB, _ := m.GetStats(b)
	require.Zero(t, statsA.TotalAllocations)
	require.Zero(t, statsB.TotalAllocations)
}

func TestManagerCreatePoolExhaustsSlots(t *testing.T) {
	m := newManager(t)
	for i := 0; i < config.DefaultMaxPools; i++ {
		_, code := m.CreatePool(16, 1, "p")
		require.Equal(t, status.OK, code)
	}
	_, code := m.CreatePool(16, 1, "overflow")
	require.Equal(t, status.NoResource, code)
}
