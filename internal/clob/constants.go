// Package clob implements the data plane of a central limit order book for
// a single base/quote pair: a fixed-capacity, intrusively linked
// price-sorted order list, a market-maker balance table, and a
// manipulation-resistant TWAP oracle.
//
// The package has no knowledge of transport, persistence, or signature
// verification; those are the concern of internal/host and internal/api.
package clob

// BookDepth is the number of resting-order slots per side of a book.
const BookDepth = 128

// NumMarketMakers is the number of registered-market-maker slots per book.
const NumMarketMakers = 64

// PricePrecision scales price (quote per base) into a fixed-point uint64.
const PricePrecision = 1_000_000_000

// MaxBps is one hundred percent in basis points.
const MaxBps = 10_000

// NullIndex is the sentinel "no slot" value for next/prev/best/worst indices.
const NullIndex = BookDepth

// DefaultMaxObservationChangePerUpdateBps is the TWAP clamp new books are
// initialized with (250 bps = 2.5%), matching initialize_order_book.
const DefaultMaxObservationChangePerUpdateBps = 250

// DefaultTakerFeeBps and DefaultMarketMakerBurn seed a freshly initialized
// global configuration, matching initialize_global_state.
const (
	DefaultTakerFeeBps    = 10
	DefaultMarketMakerBurn = 1_000_000_000
)
