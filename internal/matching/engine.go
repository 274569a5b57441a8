// Package matching implements stage S3 of the pipeline: price-time
// priority matching against per-symbol order books, run single-threaded
// (shard goroutine per symbol shard), driven by the command slot that
// rides the ring buffer.
//
// Real exchanges like LMAX achieve single-digit-microsecond matching
// latency with exactly this shape: one core per shard, no locks on the
// hot path, matching purely CPU-bound.
package matching

import (
	"sync/atomic"

	"github.com/rishav/clob-exchange-core/internal/command"
	"github.com/rishav/clob-exchange-core/internal/orderbook"
	"github.com/rishav/clob-exchange-core/internal/pool"
)

// Engine owns every symbol's order book and a trade-id counter. Process must only be called from the single goroutine that
// owns this engine's symbol shard.
type Engine struct {
	books   map[int32]*orderbook.OrderBook
	tradeID uint64
	events  *pool.Pool
}

// NewEngine creates an engine with no symbols registered yet and no
// event-node pool (every TradeEvent is freshly allocated).
func NewEngine() *Engine {
	return &Engine{books: make(map[int32]*orderbook.OrderBook)}
}

// NewEngineWithPool creates an engine that draws TradeEvent nodes from
// events instead of allocating fresh ones, per spec §4's SharedPool
// component: a command that produces no fills never touches the
// allocator at all, and a busy symbol's fill chain is recycled back to
// the pool once S5 has finished with it (see pipeline.Pipeline's use of
// PutChain after onResult).
func NewEngineWithPool(events *pool.Pool) *Engine {
	return &Engine{books: make(map[int32]*orderbook.OrderBook), events: events}
}

func (e *Engine) newEvent() *command.TradeEvent {
	if e.events == nil {
		return &command.TradeEvent{}
	}
	return e.events.GetChain()
}

// AddSymbol registers an empty book for symbolID if one doesn't exist yet.
func (e *Engine) AddSymbol(symbolID int32) {
	if _, exists := e.books[symbolID]; !exists {
		e.books[symbolID] = orderbook.NewOrderBook(symbolID)
	}
}

// Book returns the order book for symbolID, or nil.
func (e *Engine) Book(symbolID int32) *orderbook.OrderBook {
	return e.books[symbolID]
}

func (e *Engine) nextTradeID() uint64 {
	return atomic.AddUint64(&e.tradeID, 1)
}

// Process mutates slot in place: it matches the command against the
// relevant book, appends TradeEvent nodes to slot.EventsHead, and seals a
// result code. Slot.Result() must already be ResultValidForMatchingEngine
// (risk pre-check passed) or ResultNone (risk disabled) when this is
// called; any other sealed code means risk rejected the command upstream
// and matching must not touch the book.
func (e *Engine) Process(slot *command.Slot) {
	if slot.Result().Rejected() {
		return
	}

	switch slot.Kind {
	case command.KindPlaceOrder:
		e.processPlace(slot)
	case command.KindMoveOrder:
		e.processMove(slot)
	case command.KindCancelOrder:
		e.processCancel(slot)
	case command.KindReduceOrder:
		e.processReduce(slot)
	case command.KindOrderBookRequest:
		e.processOrderBookRequest(slot)
	default:
		// Not a matching-engine command; leave untouched for other stages.
	}
}

func (e *Engine) processPlace(slot *command.Slot) {
	book := e.books[slot.SymbolID]
	if book == nil {
		slot.ForceResult(command.ResultMatchingUnknownSymbol)
		return
	}
	if book.GetOrder(slot.OrderID) != nil {
		slot.ForceResult(command.ResultMatchingDuplicateOrderID)
		return
	}

	order := &orderbook.Order{
		OrderID:         slot.OrderID,
		UID:             slot.UID,
		Price:           slot.Price,
		Size:            slot.Size,
		Action:          slot.Action,
		OrderType:       slot.OrderType,
		ReserveBidPrice: slot.ReserveBidPrice,
		TimestampNs:     slot.TimestampNs,
	}

	if order.OrderType == command.OrderTypeFOKBudget {
		if !e.canFillBudget(book, order) {
			ev := e.newEvent()
			ev.EventType = command.EventReject
			ev.ActiveOrderCompleted = true
			appendEvent(slot, ev)
			slot.ForceResult(command.ResultSuccess)
			return
		}
	}

	e.match(book, order, slot)

	remaining := order.RemainingQty()
	if remaining > 0 {
		switch order.OrderType {
		case command.OrderTypeGTC:
			if err := book.AddRestingOrder(order); err != nil {
				slot.ForceResult(command.ResultMatchingDuplicateOrderID)
				return
			}
		case command.OrderTypeIOC, command.OrderTypeFOKBudget:
			// Unfilled remainder is rejected, not inserted (spec §4.2).
			ev := e.newEvent()
			ev.EventType = command.EventReject
			ev.ActiveOrderCompleted = true
			ev.Size = remaining
			appendEvent(slot, ev)
		}
	}

	slot.ForceResult(command.ResultSuccess)
}

// match executes order against the opposite side of book, maker-price
// fills (spec §4.2: trade executes at the resting order's price), FIFO
// within each level.
func (e *Engine) match(book *orderbook.OrderBook, order *orderbook.Order, slot *command.Slot) {
	tree := book.OppositeTree(order.Action)
	priceAcceptable := func(bookPrice int64) bool {
		if order.Action == command.ActionBid {
			return bookPrice <= order.Price
		}
		return bookPrice >= order.Price
	}

	for order.RemainingQty() > 0 {
		level := tree.Min()
		if level == nil || !priceAcceptable(level.Price) {
			break
		}

		node := level.Head()
		for node != nil && order.RemainingQty() > 0 {
			maker := node.Order
			next := node.Next()

			fillQty := min64(order.RemainingQty(), maker.RemainingQty())

			order.Filled += fillQty
			maker.Filled += fillQty

			makerCompleted := maker.IsFullyFilled()
			ev := e.newEvent()
			ev.EventType = command.EventTrade
			ev.ActiveOrderCompleted = order.IsFullyFilled()
			ev.MatchedOrderID = maker.OrderID
			ev.MatchedOrderUID = maker.UID
			ev.MatchedOrderCompleted = makerCompleted
			ev.Price = level.Price
			ev.Size = fillQty
			ev.BidderHoldPrice = maker.ReserveBidPrice
			appendEvent(slot, ev)

			// The level's volume drops by the fill either way; a completed
			// maker (remaining 0) is then unlinked without a further change.
			level.UpdateQuantity(-fillQty)
			if makerCompleted {
				book.CancelOrder(maker.OrderID)
			}
			node = next
		}

		if level.IsEmpty() {
			continue
		}
		if order.RemainingQty() == 0 {
			break
		}
	}
}

// canFillBudget checks whether a FOK-BUDGET order can be entirely
// satisfied: Size is interpreted as a quote-currency budget that must be
// fully spendable across the book up to the order's limit price, spec
// §4.2's "all-or-nothing based on quote budget across the book".
func (e *Engine) canFillBudget(book *orderbook.OrderBook, order *orderbook.Order) bool {
	tree := book.OppositeTree(order.Action)
	priceOK := func(p int64) bool {
		if order.Action == command.ActionBid {
			return p <= order.Price
		}
		return p >= order.Price
	}

	remainingBudget := order.Size
	ok := false
	tree.ForEach(func(level *orderbook.PriceLevel) bool {
		if !priceOK(level.Price) {
			return false
		}
		levelValue := level.Price * level.TotalQty
		if levelValue >= remainingBudget {
			remainingBudget = 0
			ok = true
			return false
		}
		remainingBudget -= levelValue
		return true
	})
	return ok || remainingBudget == 0
}

func (e *Engine) processMove(slot *command.Slot) {
	book := e.books[slot.SymbolID]
	if book == nil {
		slot.ForceResult(command.ResultMatchingUnknownSymbol)
		return
	}

	existing := book.GetOrder(slot.OrderID)
	if existing == nil {
		slot.ForceResult(command.ResultMatchingUnknownOrderID)
		return
	}
	if existing.UID != slot.UID {
		slot.ForceResult(command.ResultMatchingUnmatchedUID)
		return
	}

	holdPrice := existing.Price
	slot.Action = existing.Action

	book.CancelOrder(slot.OrderID)

	moved := &orderbook.Order{
		OrderID:         existing.OrderID,
		UID:             existing.UID,
		Price:           slot.Price,
		Size:            existing.RemainingQty(),
		Action:          existing.Action,
		OrderType:       existing.OrderType,
		ReserveBidPrice: existing.ReserveBidPrice,
		TimestampNs:     slot.TimestampNs, // fresh timestamp: loses time priority
	}

	// A moved order that now crosses the book fills as a taker at the
	// resting (maker) price, same code path as a fresh placement — see
	// the open-question decision recorded for MOVE pricing.
	e.match(book, moved, slot)

	if moved.RemainingQty() > 0 {
		if err := book.AddRestingOrder(moved); err != nil {
			slot.ForceResult(command.ResultMatchingDuplicateOrderID)
			return
		}
	}

	// Risk's hold for this order was reserved against holdPrice, not the
	// new target price; restore it so S4 releases/settles against the
	// basis it actually reserved (spec §4.3). The resting remainder's hold
	// keeps that same basis until it next fills or is cancelled.
	slot.Price = holdPrice
	slot.ForceResult(command.ResultSuccess)
}

func (e *Engine) processCancel(slot *command.Slot) {
	book := e.books[slot.SymbolID]
	if book == nil {
		slot.ForceResult(command.ResultMatchingUnknownSymbol)
		return
	}
	existing := book.GetOrder(slot.OrderID)
	if existing == nil {
		slot.ForceResult(command.ResultMatchingUnknownOrderID)
		return
	}
	if existing.UID != slot.UID {
		slot.ForceResult(command.ResultMatchingUnmatchedUID)
		return
	}

	slot.Action = existing.Action
	slot.Price = existing.Price
	slot.Size = existing.RemainingQty()

	book.CancelOrder(slot.OrderID)
	slot.ForceResult(command.ResultSuccess)
}

func (e *Engine) processReduce(slot *command.Slot) {
	book := e.books[slot.SymbolID]
	if book == nil {
		slot.ForceResult(command.ResultMatchingUnknownSymbol)
		return
	}
	existing := book.GetOrder(slot.OrderID)
	if existing == nil {
		slot.ForceResult(command.ResultMatchingUnknownOrderID)
		return
	}
	if existing.UID != slot.UID {
		slot.ForceResult(command.ResultMatchingUnmatchedUID)
		return
	}

	slot.Action = existing.Action
	slot.Price = existing.Price

	_, removed := book.ReduceOrder(slot.OrderID, slot.Size)
	ev := e.newEvent()
	ev.EventType = command.EventReduce
	ev.Size = removed
	appendEvent(slot, ev)
	slot.ForceResult(command.ResultSuccess)
}

func (e *Engine) processOrderBookRequest(slot *command.Slot) {
	book := e.books[slot.SymbolID]
	if book == nil {
		slot.ForceResult(command.ResultMatchingUnknownSymbol)
		return
	}
	bids, asks := book.L2Snapshot(int(slot.Size))
	slot.L2Snapshot = struct {
		Bids []orderbook.L2Level
		Asks []orderbook.L2Level
	}{Bids: bids, Asks: asks}
	slot.ForceResult(command.ResultSuccess)
}

func appendEvent(slot *command.Slot, ev *command.TradeEvent) {
	if slot.EventsHead == nil {
		slot.EventsHead = ev
		return
	}
	tail := slot.EventsHead
	for tail.NextEvent != nil {
		tail = tail.NextEvent
	}
	tail.NextEvent = ev
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
