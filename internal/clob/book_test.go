package clob

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tradsys/clob/internal/host"
)

func newTestBook() *OrderBook {
	var base, quote, baseVault, quoteVault host.Identity
	base = host.Identity{0xB}
	quote = host.Identity{0xA}
	return NewOrderBook(base, quote, baseVault, quoteVault, host.SigningTag{}, nil)
}

func TestSubmitLimitOrderDebitsAndRejectsUnauthorized(t *testing.T) {
	book := newTestBook()
	authority := host.Identity{1}
	require.NoError(t, book.AddMarketMaker(0, authority))
	book.TopUpBalance(0, 0, 1_000)

	_, err := book.SubmitLimitOrder(1, Buy, 100, PricePrecision, 1, 0, host.Identity{9})
	require.ErrorIs(t, err, ErrUnauthorizedMarketMaker)

	slot, err := book.SubmitLimitOrder(1, Buy, 100, PricePrecision, 1, 0, authority)
	require.NoError(t, err)
	require.Equal(t, uint8(0), slot)

	base, quoteBal, err := book.GetMarketMakerBalances(authority)
	require.NoError(t, err)
	require.Equal(t, uint64(0), base)
	require.Equal(t, uint64(900), quoteBal)
}

func TestSubmitLimitOrderInsufficientBalance(t *testing.T) {
	book := newTestBook()
	authority := host.Identity{1}
	require.NoError(t, book.AddMarketMaker(0, authority))

	_, err := book.SubmitLimitOrder(1, Buy, 100, PricePrecision, 1, 0, authority)
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestCancelLimitOrderCreditsResidual(t *testing.T) {
	book := newTestBook()
	authority := host.Identity{1}
	require.NoError(t, book.AddMarketMaker(0, authority))
	book.TopUpBalance(0, 0, 1_000)

	slot, err := book.SubmitLimitOrder(1, Buy, 100, PricePrecision, 1, 0, authority)
	require.NoError(t, err)

	require.ErrorIs(t, book.CancelLimitOrder(2, Buy, slot, 0, host.Identity{9}), ErrUnauthorizedMarketMaker)

	require.NoError(t, book.CancelLimitOrder(2, Buy, slot, 0, authority))
	_, quoteBal, err := book.GetMarketMakerBalances(authority)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), quoteBal)
}

func TestSubmitTakeOrderPartialFillLeavesResidual(t *testing.T) {
	book := newTestBook()
	maker := host.Identity{1}
	require.NoError(t, book.AddMarketMaker(0, maker))
	book.TopUpBalance(0, 50, 0)

	_, err := book.SubmitLimitOrder(1, Sell, 50, PricePrecision, 1, 0, maker)
	require.NoError(t, err)

	result, err := book.SubmitTakeOrder(2, Buy, 30, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(30), result.AmountOut)
	require.Equal(t, uint64(0), result.FeeAmount)

	_, quoteBal, err := book.GetMarketMakerBalances(maker)
	require.NoError(t, err)
	require.Equal(t, uint64(30), quoteBal)

	levels := book.GetBestOrders(Sell)
	require.Len(t, levels, 1)
	require.Equal(t, uint64(20), levels[0].Amount)
}

func TestSubmitTakeOrderWalksMultipleRestingOrders(t *testing.T) {
	book := newTestBook()
	makerA := host.Identity{1}
	makerB := host.Identity{2}
	require.NoError(t, book.AddMarketMaker(0, makerA))
	require.NoError(t, book.AddMarketMaker(1, makerB))
	book.TopUpBalance(0, 20, 0)
	book.TopUpBalance(1, 100, 0)

	_, err := book.SubmitLimitOrder(1, Sell, 20, PricePrecision, 1, 0, makerA)
	require.NoError(t, err)
	_, err = book.SubmitLimitOrder(1, Sell, 100, PricePrecision, 2, 1, makerB)
	require.NoError(t, err)

	result, err := book.SubmitTakeOrder(2, Buy, 50, 40, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(50), result.AmountOut)

	_, quoteA, err := book.GetMarketMakerBalances(makerA)
	require.NoError(t, err)
	require.Equal(t, uint64(20), quoteA)

	_, quoteB, err := book.GetMarketMakerBalances(makerB)
	require.NoError(t, err)
	require.Equal(t, uint64(30), quoteB)

	levels := book.GetBestOrders(Sell)
	require.Len(t, levels, 1)
	require.Equal(t, uint64(70), levels[0].Amount)
}

func TestSubmitTakeOrderRejectsWithoutMutatingState(t *testing.T) {
	book := newTestBook()
	maker := host.Identity{1}
	require.NoError(t, book.AddMarketMaker(0, maker))
	book.TopUpBalance(0, 50, 0)

	_, err := book.SubmitLimitOrder(1, Sell, 50, PricePrecision, 1, 0, maker)
	require.NoError(t, err)

	_, err = book.SubmitTakeOrder(2, Buy, 10, 1_000, 0)
	require.ErrorIs(t, err, ErrTakeNotFilled)

	_, quoteBal, err := book.GetMarketMakerBalances(maker)
	require.NoError(t, err)
	require.Equal(t, uint64(0), quoteBal)

	levels := book.GetBestOrders(Sell)
	require.Len(t, levels, 1)
	require.Equal(t, uint64(50), levels[0].Amount)
}

func TestSubmitTakeOrderAccruesFee(t *testing.T) {
	book := newTestBook()
	maker := host.Identity{1}
	require.NoError(t, book.AddMarketMaker(0, maker))
	book.TopUpBalance(0, 100, 0)

	_, err := book.SubmitLimitOrder(1, Sell, 100, PricePrecision, 1, 0, maker)
	require.NoError(t, err)

	// 10% taker fee: 100 in, net 90 routed to the book, 10 accrued as fee.
	result, err := book.SubmitTakeOrder(2, Buy, 100, 0, 1_000)
	require.NoError(t, err)
	require.Equal(t, uint64(90), result.AmountOut)
	require.Equal(t, uint64(10), result.FeeAmount)

	base, quote := book.SweepFees()
	require.Equal(t, uint64(0), base)
	require.Equal(t, uint64(10), quote)

	// A second sweep returns nothing: the accumulator was zeroed.
	base, quote = book.SweepFees()
	require.Equal(t, uint64(0), base)
	require.Equal(t, uint64(0), quote)
}

func TestWithdrawBalanceChecksAuthorizationAndFunds(t *testing.T) {
	book := newTestBook()
	maker := host.Identity{1}
	require.NoError(t, book.AddMarketMaker(0, maker))
	book.TopUpBalance(0, 10, 20)

	require.ErrorIs(t, book.WithdrawBalance(0, 1, 1, host.Identity{9}), ErrUnauthorizedMarketMaker)
	require.ErrorIs(t, book.WithdrawBalance(0, 11, 0, maker), ErrInsufficientBalance)

	require.NoError(t, book.WithdrawBalance(0, 10, 20, maker))
	base, quote, err := book.GetMarketMakerBalances(maker)
	require.NoError(t, err)
	require.Equal(t, uint64(0), base)
	require.Equal(t, uint64(0), quote)
}
