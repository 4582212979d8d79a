package clob

import "github.com/holiman/uint256"

// TWAPOracle accumulates a clamped, time-weighted average price. Clamping
// bounds the cost of manipulating the printed mid, since moving it is capped
// to MaxObservationChangePerUpdateBps per update regardless of how wide the
// attacker is willing to pay to skew the spread.
type TWAPOracle struct {
	LastUpdatedSlot        uint64
	LastObservation        uint64
	ObservationAggregator  *uint256.Int

	MaxObservationChangePerUpdateBps uint16

	// MaxObservationChangePerSlotBps is reserved for future per-slot pacing;
	// it is stored but not yet consulted by Observe.
	MaxObservationChangePerSlotBps uint16
}

// NewTWAPOracle returns an oracle with the given update clamp, matching
// initialize_order_book's default of 250 bps.
func NewTWAPOracle(maxChangePerUpdateBps uint16) TWAPOracle {
	return TWAPOracle{
		ObservationAggregator:             uint256.NewInt(0),
		MaxObservationChangePerUpdateBps:  maxChangePerUpdateBps,
	}
}

// Observe applies one clock tick. now must be the host's current slot
// counter; spot is the freshly computed best-bid/best-ask midpoint. A no-op
// if now equals the last-updated slot (already observed this slot).
func (o *TWAPOracle) Observe(now, spot uint64) {
	if now == o.LastUpdatedSlot {
		return
	}

	var observation uint64
	if o.LastUpdatedSlot == 0 {
		// First observation is unclamped.
		observation = spot
	} else {
		delta := uint64(o.MaxObservationChangePerUpdateBps)
		up := mulDivU64(o.LastObservation, MaxBps+delta, MaxBps)
		down := mulDivU64(o.LastObservation, MaxBps-delta, MaxBps)
		observation = clampU64(spot, down, up)
	}

	dt := now - o.LastUpdatedSlot
	weighted := new(uint256.Int).Mul(uint256.NewInt(observation), uint256.NewInt(dt))
	o.ObservationAggregator.Add(o.ObservationAggregator, weighted)

	o.LastUpdatedSlot = now
	o.LastObservation = observation
}

func clampU64(v, lo, hi uint64) uint64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// mulDivU64 computes a*b/c with a 256-bit intermediate product, avoiding the
// uint64 overflow that a naive a*b would risk for large last-observation
// values times (MaxBps+delta).
func mulDivU64(a, b, c uint64) uint64 {
	product := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	return product.Div(product, uint256.NewInt(c)).Uint64()
}
