// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package eventid_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/cofw/eventid"
)

// TestMakeIDRoundTrip samples the 16-bit domain/event space rather than
// enumerating all 2^32 combinations exhaustively.
func TestMakeIDRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100000; i++ {
		domain := uint16(rng.Uint32())
		event := uint16(rng.Uint32())
		id := eventid.MakeID(domain, event)
		require.Equal(t, domain, eventid.Domain(id))
		require.Equal(t, event, eventid.Event(id))
	}
}

func TestMakeIDBoundaries(t *testing.T) {
	cases := [][2]uint16{
		{0x0000, 0x0000}, {0xFFFF, 0xFFFF}, {0x0000, 0xFFFF}, {0xFFFF, 0x0000},
	}
	for _, c := range cases {
		id := eventid.MakeID(c[0], c[1])
		require.Equal(t, c[0], eventid.Domain(id))
		require.Equal(t, c[1], eventid.Event(id))
	}
}

func TestWildcard(t *testing.T) {
	require.True(t, eventid.IsWildcard(0))
	require.False(t, eventid.IsWildcard(eventid.MakeID(eventid.DomainFramework, 1)))
}

func TestDomainRanges(t *testing.T) {
	require.True(t, eventid.IsApplicationDomain(0x0100))
	require.True(t, eventid.IsApplicationDomain(0x0FFF))
	require.False(t, eventid.IsApplicationDomain(0x00FF))
	require.False(t, eventid.IsApplicationDomain(0x1000))

	require.True(t, eventid.IsDriverDomain(0x1000))
	require.True(t, eventid.IsDriverDomain(0xFFFF))
	require.False(t, eventid.IsDriverDomain(0x0FFF))
}
