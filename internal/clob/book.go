package clob

import (
	"sync"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	pools "github.com/tradsys/clob/internal/common/pool/matching"
	"github.com/tradsys/clob/internal/host"
	"github.com/tradsys/clob/internal/metrics"
)

// OrderBook is the top-level record for one base/quote pair: two
// price-sorted order lists, a market-maker balance table, a TWAP oracle, and
// fee accumulators. Every mutating method takes the book's single lock for
// its full duration: single-writer per book record.
type OrderBook struct {
	mu sync.Mutex

	Base  host.Identity
	Quote host.Identity

	BaseVault  host.Identity
	QuoteVault host.Identity

	Buys  OrderList
	Sells OrderList

	MarketMakers [NumMarketMakers]MarketMaker

	TWAP TWAPOracle

	BaseFeesSweepable  uint64
	QuoteFeesSweepable uint64

	SigningTag host.SigningTag

	logger  *zap.Logger
	metrics *metrics.MatchingMetrics
}

// SetMetrics attaches the process-wide matching metric set. Nil-safe: a book
// with no attached metrics simply skips recording.
func (b *OrderBook) SetMetrics(m *metrics.MatchingMetrics) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = m
}

func sideLabel(side Side) string {
	if side == Buy {
		return "buy"
	}
	return "sell"
}

// NewOrderBook initializes both sides empty with the default TWAP clamp,
// matching initialize_order_book.
func NewOrderBook(base, quote, baseVault, quoteVault host.Identity, tag host.SigningTag, logger *zap.Logger) *OrderBook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderBook{
		Base:       base,
		Quote:      quote,
		BaseVault:  baseVault,
		QuoteVault: quoteVault,
		Buys:       NewOrderList(Buy),
		Sells:      NewOrderList(Sell),
		TWAP:       NewTWAPOracle(DefaultMaxObservationChangePerUpdateBps),
		SigningTag: tag,
		logger:     logger,
	}
}

// orderList returns the resting list for side.
func (b *OrderBook) orderList(side Side) *OrderList {
	if side == Buy {
		return &b.Buys
	}
	return &b.Sells
}

// updateTWAP is invoked at the start of every mutating operation, before the
// book itself changes. A no-op if either side is empty or the
// host slot has not advanced.
func (b *OrderBook) updateTWAP(now uint64) {
	if now == b.TWAP.LastUpdatedSlot {
		return
	}

	bestBid, _, ok := b.Buys.Iter().Next()
	if !ok {
		return
	}
	bestAsk, _, ok := b.Sells.Iter().Next()
	if !ok {
		return
	}

	spot := (bestBid.Price + bestAsk.Price) / 2
	b.TWAP.Observe(now, spot)
}

// SubmitLimitOrder authorizes the caller, debits the maker's input asset,
// and inserts the order into the correct side. On InferiorPrice
// the debit is reversed so a failed limit order is balance-neutral.
func (b *OrderBook) SubmitLimitOrder(now uint64, side Side, amountIn, price uint64, refID uint32, makerIdx uint8, caller host.Identity) (uint8, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	maker := &b.MarketMakers[makerIdx]
	if maker.Authority != caller {
		return 0, ErrUnauthorizedMarketMaker
	}

	b.updateTWAP(now)

	if side == Buy {
		if maker.QuoteBalance < amountIn {
			return 0, ErrInsufficientBalance
		}
		maker.QuoteBalance -= amountIn
	} else {
		if maker.BaseBalance < amountIn {
			return 0, ErrInsufficientBalance
		}
		maker.BaseBalance -= amountIn
	}

	list := b.orderList(side)
	slot, err := list.InsertOrder(amountIn, price, refID, makerIdx, &b.MarketMakers)
	if err != nil {
		// Balance-neutral on failure: undo the debit.
		if side == Buy {
			maker.QuoteBalance += amountIn
		} else {
			maker.BaseBalance += amountIn
		}
		b.logger.Warn("limit order rejected",
			zap.Uint8("side", uint8(side)),
			zap.Uint8("maker_idx", makerIdx),
			zap.Uint64("price", price),
			zap.Error(err))
		return 0, err
	}

	if b.metrics != nil {
		b.metrics.LimitOrdersInserted.WithLabelValues(sideLabel(side)).Inc()
		if list.LastInsertEvicted {
			b.metrics.LimitOrdersEvicted.WithLabelValues(sideLabel(side)).Inc()
		}
	}

	b.logger.Debug("limit order inserted",
		zap.Uint8("side", uint8(side)),
		zap.Uint8("maker_idx", makerIdx),
		zap.Uint8("slot", slot),
		zap.Uint64("price", price),
		zap.Uint64("amount_in", amountIn))
	return slot, nil
}

// CancelLimitOrder authorizes the caller against the resting order's own
// maker index and deletes it, crediting the maker their residual.
func (b *OrderBook) CancelLimitOrder(now uint64, side Side, slot uint8, makerIdx uint8, caller host.Identity) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	maker := &b.MarketMakers[makerIdx]
	if maker.Authority != caller {
		return ErrUnauthorizedMarketMaker
	}

	b.updateTWAP(now)

	list := b.orderList(side)
	order := list.Orders[slot]
	if order.isFree() || order.MarketMakerIndex != makerIdx {
		return ErrUnauthorizedMarketMaker
	}

	list.DeleteOrder(slot, &b.MarketMakers)
	if b.metrics != nil {
		b.metrics.LimitOrdersCancelled.WithLabelValues(sideLabel(side)).Inc()
	}
	b.logger.Debug("limit order cancelled", zap.Uint8("side", uint8(side)), zap.Uint8("slot", slot))
	return nil
}

// fillPlan is one resting order's contribution to a take-order walk,
// computed before any mutation so the whole operation can be rejected
// without having touched book state.
type fillPlan struct {
	slot          uint8
	makerIdx      uint8
	creditAmount  uint64 // credited to the maker in the taker's input asset
	residualDebit uint64 // subtracted from the resting order's AmountIn
	fullyConsumed bool
}

// TakeResult reports the outcome of a successful take order.
type TakeResult struct {
	AmountOut uint64
	FeeAmount uint64
}

// SubmitTakeOrder charges the taker fee, walks the opposing side in
// price-priority order, fractionally fills, and credits makers.
// The walk is computed into a plan first and applied only if the resulting
// AmountOut meets minOut, so a rejected take leaves book and balances
// untouched without needing external transaction
// rollback.
func (b *OrderBook) SubmitTakeOrder(now uint64, side Side, amountIn, minOut uint64, takerFeeBps uint16) (TakeResult, error) {
	if amountIn == 0 {
		return TakeResult{}, ErrInvalidOrder
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	start := time.Now()
	if b.metrics != nil {
		defer func() {
			b.metrics.TakeOrderLatency.WithLabelValues(sideLabel(side)).Observe(time.Since(start).Seconds())
		}()
	}

	b.updateTWAP(now)

	netIn := mulDivU64(amountIn, MaxBps-uint64(takerFeeBps), MaxBps)
	feeAmount := amountIn - netIn

	restingSide := side.opposite()
	list := b.orderList(restingSide)

	buf := fillBufferPool.Get()
	defer fillBufferPool.Put(buf)

	plans := make([]fillPlan, 0, 8)
	remaining := netIn
	var amountOut uint64

	it := list.Iter()
	for remaining > 0 {
		order, slot, ok := it.Next()
		if !ok {
			break
		}

		absorb := absorbCapacity(side, order.AmountIn, order.Price)

		if absorb >= remaining {
			out := convert(side, remaining, order.Price)
			amountOut += out
			// A final fill that leaves a zero residual is deleted like any
			// fully consumed order, so no zero-amount slot stays linked.
			emptied := out == order.AmountIn
			plans = append(plans, fillPlan{
				slot:          slot,
				makerIdx:      order.MarketMakerIndex,
				creditAmount:  remaining,
				residualDebit: out,
				fullyConsumed: emptied,
			})
			if emptied {
				buf.Slots = append(buf.Slots, slot)
			}
			remaining = 0
			break
		}

		amountOut += order.AmountIn
		plans = append(plans, fillPlan{
			slot:          slot,
			makerIdx:      order.MarketMakerIndex,
			creditAmount:  absorb,
			residualDebit: order.AmountIn,
			fullyConsumed: true,
		})
		remaining -= absorb
		buf.Slots = append(buf.Slots, slot)
	}

	if amountOut < minOut {
		if b.metrics != nil {
			b.metrics.TakeOrdersRejected.WithLabelValues(sideLabel(side)).Inc()
		}
		b.logger.Warn("take order not filled",
			zap.Uint8("side", uint8(side)),
			zap.Uint64("amount_in", amountIn),
			zap.Uint64("amount_out", amountOut),
			zap.Uint64("min_out", minOut))
		return TakeResult{}, ErrTakeNotFilled
	}

	// Apply the plan: decrement residuals, credit makers, then delete every
	// fully-consumed slot. The order that only partially absorbed the taker
	// (the final entry, if any, unless its residual reached zero) is never
	// staged for deletion — it keeps its reduced residual resting on the book.
	for _, p := range plans {
		list.Orders[p.slot].AmountIn -= p.residualDebit
		maker := &b.MarketMakers[p.makerIdx]
		if side == Buy {
			maker.QuoteBalance += p.creditAmount
		} else {
			maker.BaseBalance += p.creditAmount
		}
	}
	for _, slot := range buf.Slots {
		list.DeleteOrder(slot, &b.MarketMakers)
	}

	if side == Buy {
		b.QuoteFeesSweepable += feeAmount
	} else {
		b.BaseFeesSweepable += feeAmount
	}

	if b.metrics != nil {
		b.metrics.TakeOrdersFilled.WithLabelValues(sideLabel(side)).Inc()
		if feeAmount > 0 {
			asset := "quote"
			if side != Buy {
				asset = "base"
			}
			b.metrics.FeesAccrued.WithLabelValues(asset).Add(float64(feeAmount))
		}
	}

	b.logger.Info("take order filled",
		zap.Uint8("side", uint8(side)),
		zap.Uint64("amount_in", amountIn),
		zap.Uint64("amount_out", amountOut),
		zap.Uint64("fee", feeAmount))

	return TakeResult{AmountOut: amountOut, FeeAmount: feeAmount}, nil
}

// absorbCapacity computes the maximum amount of the taker's net input a
// resting order of restingAmountIn (in the maker's input asset) at price
// can consume, in 256-bit intermediate precision to prevent overflow.
func absorbCapacity(takerSide Side, restingAmountIn, price uint64) uint64 {
	if takerSide == Buy {
		// Maker is selling base; it can accept quote up to base/price.
		return mulDivU64(restingAmountIn, PricePrecision, price)
	}
	// Maker is buying with quote; it can accept base up to quote*price.
	return mulDivU64(restingAmountIn, price, PricePrecision)
}

// convert computes the taker's output for a given input amount at price,
// using the same per-side formula as absorbCapacity.
func convert(takerSide Side, in, price uint64) uint64 {
	if takerSide == Buy {
		return mulDivU64(in, PricePrecision, price)
	}
	return mulDivU64(in, price, PricePrecision)
}

// TopUpBalance credits a maker's balances after the caller's funds have
// already moved into the vaults (host.TokenService is invoked by the
// caller, e.g. internal/api, before this is called — crediting must never
// happen before transfer success).
func (b *OrderBook) TopUpBalance(makerIdx uint8, baseAmt, quoteAmt uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	maker := &b.MarketMakers[makerIdx]
	maker.BaseBalance += baseAmt
	maker.QuoteBalance += quoteAmt
}

// WithdrawBalance authorizes and checked-decrements a maker's balances. The
// caller is responsible for the subsequent vault-to-caller transfer.
func (b *OrderBook) WithdrawBalance(makerIdx uint8, baseAmt, quoteAmt uint64, caller host.Identity) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	maker := &b.MarketMakers[makerIdx]
	if maker.Authority != caller {
		return ErrUnauthorizedMarketMaker
	}
	if maker.BaseBalance < baseAmt || maker.QuoteBalance < quoteAmt {
		return ErrInsufficientBalance
	}
	maker.BaseBalance -= baseAmt
	maker.QuoteBalance -= quoteAmt
	return nil
}

// SweepFees zeroes both fee accumulators and returns the amounts the caller
// must forward to the fee collector.
func (b *OrderBook) SweepFees() (baseAmount, quoteAmount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	baseAmount, quoteAmount = b.BaseFeesSweepable, b.QuoteFeesSweepable
	b.BaseFeesSweepable, b.QuoteFeesSweepable = 0, 0
	return
}

// AddMarketMaker reserves slot idx for authority. The anti-squatting burn
// itself is a host-level transfer the caller performs before this returns.
func (b *OrderBook) AddMarketMaker(idx uint8, authority host.Identity) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return AddMarketMaker(&b.MarketMakers, idx, authority)
}

/**** Getters — read-only, still serialized behind the book's single lock.
 * Single-writer per book record governs the whole record, not just
 * mutators, since the record is small and not a hot read path. ****/

// GetTWAP returns a copy of the oracle state.
func (b *OrderBook) GetTWAP() TWAPOracle {
	b.mu.Lock()
	defer b.mu.Unlock()
	agg := new(uint256.Int)
	if b.TWAP.ObservationAggregator != nil {
		agg.Set(b.TWAP.ObservationAggregator)
	}
	cp := b.TWAP
	cp.ObservationAggregator = agg
	return cp
}

// GetMarketMakerBalances looks up a maker by authority.
func (b *OrderBook) GetMarketMakerBalances(authority host.Identity) (base, quote uint64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx, err := FindMarketMaker(&b.MarketMakers, authority)
	if err != nil {
		return 0, 0, err
	}
	m := b.MarketMakers[idx]
	return m.BaseBalance, m.QuoteBalance, nil
}

// GetOrderIndex finds a maker's resting order by (side, refID, makerIdx).
func (b *OrderBook) GetOrderIndex(side Side, refID uint32, makerIdx uint8) (uint8, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	it := b.orderList(side).Iter()
	for {
		order, slot, ok := it.Next()
		if !ok {
			return 0, false
		}
		if order.RefID == refID && order.MarketMakerIndex == makerIdx {
			return slot, true
		}
	}
}

// AmountAndPrice is one level of the get_best_orders getter response.
type AmountAndPrice struct {
	Amount uint64
	Price  uint64
}

// MaxReturnedLevels caps get_best_orders to the same number of levels the
// original host's MAX_RETURN_DATA budget allowed: floor((MAX_RETURN-4)/16).
const MaxReturnedLevels = (1024 - 4) / 16

// GetBestOrders returns up to MaxReturnedLevels (amount, price) pairs,
// best-first.
func (b *OrderBook) GetBestOrders(side Side) []AmountAndPrice {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]AmountAndPrice, 0, MaxReturnedLevels)
	it := b.orderList(side).Iter()
	for len(out) < MaxReturnedLevels {
		order, _, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, AmountAndPrice{Amount: order.AmountIn, Price: order.Price})
	}
	return out
}

var fillBufferPool = pools.NewFillBufferPool()
