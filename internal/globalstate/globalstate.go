// Package globalstate holds the process-wide configuration record described
// the fee collector identity, taker fee rate, and
// market-maker anti-squatting burn amount. It is read on every take order
// (for the fee rate) but never written on a hot path — writes only happen
// at initialize_global_state.
package globalstate

import "github.com/tradsys/clob/internal/host"

// GlobalState is configuration only; per-pair state lives in each
// OrderBook, never here.
type GlobalState struct {
	FeeCollector         host.Identity
	TakerFeeInBps        uint16
	MarketMakerBurn      uint64
}

// New seeds a GlobalState matching initialize_global_state's defaults.
func New(feeCollector host.Identity) GlobalState {
	return GlobalState{
		FeeCollector:    feeCollector,
		TakerFeeInBps:   10,
		MarketMakerBurn: 1_000_000_000,
	}
}
