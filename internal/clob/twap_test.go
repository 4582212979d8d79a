package clob

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTWAPFirstObservationIsUnclamped(t *testing.T) {
	o := NewTWAPOracle(250)
	o.Observe(1, 1_000)
	require.Equal(t, uint64(1_000), o.LastObservation)
	require.Equal(t, uint64(1), o.LastUpdatedSlot)
}

func TestTWAPClampsLargeJump(t *testing.T) {
	o := NewTWAPOracle(250) // 2.5% max change per update
	o.Observe(1, 1_000)
	o.Observe(2, 2_000) // +100%, clamped to +2.5%

	require.Equal(t, uint64(1_025), o.LastObservation)
}

func TestTWAPClampsLargeDrop(t *testing.T) {
	o := NewTWAPOracle(250)
	o.Observe(1, 1_000)
	o.Observe(2, 1) // huge drop, clamped to -2.5%

	require.Equal(t, uint64(975), o.LastObservation)
}

func TestTWAPSameSlotIsNoOp(t *testing.T) {
	o := NewTWAPOracle(250)
	o.Observe(5, 1_000)
	agg := o.ObservationAggregator.Clone()
	o.Observe(5, 5_000)

	require.Equal(t, uint64(1_000), o.LastObservation)
	require.Equal(t, agg.Uint64(), o.ObservationAggregator.Uint64())
}

func TestTWAPAccumulatesTimeWeighted(t *testing.T) {
	o := NewTWAPOracle(10_000) // no effective clamp
	o.Observe(1, 100)
	o.Observe(11, 100) // 1 slot then 10 more slots, both at 100
	require.Equal(t, uint64(1_100), o.ObservationAggregator.Uint64())
}
