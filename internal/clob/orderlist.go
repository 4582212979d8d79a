package clob

// Order is a fixed-layout slot record. A slot is free iff AmountIn == 0.
type Order struct {
	NextIdx           uint8
	PrevIdx           uint8
	MarketMakerIndex  uint8
	RefID             uint32
	Price             uint64
	AmountIn          uint64
}

func (o *Order) isFree() bool { return o.AmountIn == 0 }

// OrderList is an intrusive, doubly-linked, price-sorted list over a fixed
// BookDepth slot array. It never allocates after construction.
type OrderList struct {
	Side          Side
	BestOrderIdx  uint8
	WorstOrderIdx uint8
	Free          FreeBitmap
	Orders        [BookDepth]Order

	// LastInsertEvicted reports whether the most recent InsertOrder call
	// evicted the worst-priced resting order to make room. Metrics-only;
	// matching semantics never read it.
	LastInsertEvicted bool
}

// NewOrderList returns an empty list for the given side.
func NewOrderList(side Side) OrderList {
	return OrderList{
		Side:          side,
		BestOrderIdx:  NullIndex,
		WorstOrderIdx: NullIndex,
		Free:          NewFreeBitmap(),
	}
}

// OrderIterator walks occupied slots from best to worst. It is not
// restartable and is only valid for the duration of the logical operation
// that created it: callers that need to mutate the list mid-walk must stage
// changes (e.g. slot indices to delete) and apply them after iteration ends,
// as SubmitTakeOrder does with its fill plan.
type OrderIterator struct {
	list *OrderList
	next uint8
}

// Iter returns an iterator positioned at the best (head) order.
func (l *OrderList) Iter() *OrderIterator {
	return &OrderIterator{list: l, next: l.BestOrderIdx}
}

// Next returns the next (Order, slot index) pair in best-to-worst order, or
// ok=false when the chain is exhausted. Iteration also stops, defensively,
// on the first slot whose AmountIn is zero — guarding against a slot that
// was freed mid-iteration by the same logical operation (e.g. an eviction
// triggered by the very insert that is iterating).
func (it *OrderIterator) Next() (order Order, slot uint8, ok bool) {
	i := it.next
	if i == NullIndex || it.list.Orders[i].isFree() {
		return Order{}, 0, false
	}
	o := it.list.Orders[i]
	it.next = o.NextIdx
	return o, i, true
}

// InsertOrder inserts a new resting order, maintaining side-aware price
// order (non-increasing for buys, non-decreasing for sells from best to
// worst), reusing a free slot or evicting the worst-priced order if the book
// is full and the new order is strictly better priced than it.
//
// Returns the assigned slot index, or ErrInferiorPrice if the book is full
// and the new order is not strictly better than the worst resting order.
func (l *OrderList) InsertOrder(amountIn, price uint64, refID uint32, makerIdx uint8, makers *[NumMarketMakers]MarketMaker) (uint8, error) {
	l.LastInsertEvicted = false
	newOrder := Order{
		AmountIn:         amountIn,
		Price:            price,
		RefID:            refID,
		MarketMakerIndex: makerIdx,
		NextIdx:          NullIndex,
		PrevIdx:          NullIndex,
	}

	prevIdx := uint8(NullIndex)
	it := l.Iter()
	for {
		restingOrder, restingIdx, ok := it.Next()
		if !ok {
			break
		}

		if !l.Side.isBetter(newOrder.Price, restingOrder.Price) {
			prevIdx = restingIdx
			continue
		}

		slot, haveFree := l.Free.FirstFree()
		if !haveFree {
			// Book is full: evict the worst-priced order and reuse its slot.
			worst := l.WorstOrderIdx
			l.deleteOrder(worst, makers)
			slot = worst
			l.LastInsertEvicted = true
		}

		newOrder.PrevIdx = prevIdx
		// The eviction above may have just deleted restingIdx itself, in the
		// rare case it was also the worst order; the free-slot bitmap check
		// on restingIdx's liveness (via isFree, already consumed by Iter)
		// cannot observe that here, so check directly.
		if l.Orders[restingIdx].isFree() {
			newOrder.NextIdx = NullIndex
		} else {
			newOrder.NextIdx = restingIdx
		}

		l.placeOrder(newOrder, slot)
		return slot, nil
	}

	// newOrder is inferior (or equal, which loses tie-break to existing
	// resting orders by insertion order) to every resting order: place it at
	// the tail iff a free slot remains.
	slot, haveFree := l.Free.FirstFree()
	if !haveFree {
		return 0, ErrInferiorPrice
	}
	newOrder.PrevIdx = prevIdx
	newOrder.NextIdx = NullIndex
	l.placeOrder(newOrder, slot)
	return slot, nil
}

// placeOrder threads newOrder into the chain at slot i (its Prev/Next are
// already resolved by the caller) and marks the slot occupied.
func (l *OrderList) placeOrder(order Order, i uint8) {
	if order.PrevIdx == NullIndex {
		l.BestOrderIdx = i
	} else {
		l.Orders[order.PrevIdx].NextIdx = i
	}

	if order.NextIdx == NullIndex {
		l.WorstOrderIdx = i
	} else {
		l.Orders[order.NextIdx].PrevIdx = i
	}

	l.Orders[i] = order
	l.Free.MarkReserved(i)
}

// DeleteOrder unlinks slot i, credits the maker's corresponding balance with
// the order's residual AmountIn, and frees the slot. This credit is the
// authoritative accounting of both cancellation and eviction.
func (l *OrderList) DeleteOrder(i uint8, makers *[NumMarketMakers]MarketMaker) {
	l.deleteOrder(i, makers)
}

func (l *OrderList) deleteOrder(i uint8, makers *[NumMarketMakers]MarketMaker) {
	order := l.Orders[i]

	if i == l.BestOrderIdx {
		l.BestOrderIdx = order.NextIdx
	} else {
		l.Orders[order.PrevIdx].NextIdx = order.NextIdx
	}

	if i == l.WorstOrderIdx {
		l.WorstOrderIdx = order.PrevIdx
	} else {
		l.Orders[order.NextIdx].PrevIdx = order.PrevIdx
	}

	maker := &makers[order.MarketMakerIndex]
	if l.Side == Buy {
		maker.QuoteBalance += order.AmountIn
	} else {
		maker.BaseBalance += order.AmountIn
	}

	l.Orders[i] = Order{}
	l.Free.MarkFree(i)
}
