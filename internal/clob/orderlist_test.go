package clob

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func freshMakers() *[NumMarketMakers]MarketMaker {
	return &[NumMarketMakers]MarketMaker{}
}

func TestInsertOrderMaintainsPriceOrder(t *testing.T) {
	list := NewOrderList(Buy)
	makers := freshMakers()

	prices := []uint64{100, 300, 200}
	for _, p := range prices {
		_, err := list.InsertOrder(10, p, 0, 0, makers)
		require.NoError(t, err)
	}

	it := list.Iter()
	var seen []uint64
	for {
		o, _, ok := it.Next()
		if !ok {
			break
		}
		seen = append(seen, o.Price)
	}
	require.Equal(t, []uint64{300, 200, 100}, seen)
}

func TestInsertOrderSellSideOrdering(t *testing.T) {
	list := NewOrderList(Sell)
	makers := freshMakers()

	prices := []uint64{300, 100, 200}
	for _, p := range prices {
		_, err := list.InsertOrder(10, p, 0, 0, makers)
		require.NoError(t, err)
	}

	it := list.Iter()
	var seen []uint64
	for {
		o, _, ok := it.Next()
		if !ok {
			break
		}
		seen = append(seen, o.Price)
	}
	require.Equal(t, []uint64{100, 200, 300}, seen)
}

func TestInsertOrderRejectsInferiorPriceWhenFull(t *testing.T) {
	list := NewOrderList(Buy)
	makers := freshMakers()

	for i := uint64(0); i < BookDepth; i++ {
		_, err := list.InsertOrder(10, 100+i, 0, 0, makers)
		require.NoError(t, err)
	}

	_, err := list.InsertOrder(10, 50, 0, 0, makers)
	require.ErrorIs(t, err, ErrInferiorPrice)
}

func TestInsertOrderEvictsWorstWhenFullAndBetter(t *testing.T) {
	list := NewOrderList(Buy)
	makers := freshMakers()

	for i := uint64(0); i < BookDepth; i++ {
		_, err := list.InsertOrder(10, 100+i, 0, uint8(i%NumMarketMakers), makers)
		require.NoError(t, err)
	}

	// Worst resting price is 100 (the first inserted). A strictly better
	// price must evict it and credit its maker's quote balance.
	before := makers[0].QuoteBalance
	_, err := list.InsertOrder(10, 1000, 1, 0, makers)
	require.NoError(t, err)
	require.Equal(t, before+10, makers[0].QuoteBalance)

	it := list.Iter()
	var worst Order
	for {
		o, _, ok := it.Next()
		if !ok {
			break
		}
		worst = o
	}
	require.Equal(t, uint64(101), worst.Price)
}

func TestDeleteOrderCreditsMakerAndFreesSlot(t *testing.T) {
	list := NewOrderList(Sell)
	makers := freshMakers()

	slot, err := list.InsertOrder(42, 100, 7, 3, makers)
	require.NoError(t, err)
	require.True(t, list.Free.IsFree(slotNeighbor(slot)))

	list.DeleteOrder(slot, makers)
	require.Equal(t, uint64(42), makers[3].BaseBalance)
	require.True(t, list.Free.IsFree(slot))
}

// slotNeighbor picks any slot other than slot to sanity-check the free
// bitmap without asserting on the just-inserted slot itself.
func slotNeighbor(slot uint8) uint8 {
	if slot == 0 {
		return 1
	}
	return 0
}
