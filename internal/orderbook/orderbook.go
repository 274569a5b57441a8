package orderbook

import (
	"fmt"
	"hash/crc32"

	"github.com/rishav/clob-exchange-core/internal/command"
)

// OrderBook maintains the bid and ask sides of one symbol: two red-black
// trees of price levels (bids descending, asks ascending) plus an
// orderId -> node map for O(1) cancel/move/reduce.
type OrderBook struct {
	SymbolID int32
	bids     *RBTree
	asks     *RBTree
	orders   map[uint64]*OrderNode
}

// NewOrderBook creates an empty book for symbolID.
func NewOrderBook(symbolID int32) *OrderBook {
	return &OrderBook{
		SymbolID: symbolID,
		bids:     NewRBTree(true),
		asks:     NewRBTree(false),
		orders:   make(map[uint64]*OrderNode),
	}
}

func (ob *OrderBook) treeFor(action command.Action) *RBTree {
	if action == command.ActionBid {
		return ob.bids
	}
	return ob.asks
}

// AddRestingOrder inserts order into the book at its resting price. It is
// the caller's (matching engine's) job to have already matched whatever
// quantity could be matched; AddRestingOrder only places the remainder.
func (ob *OrderBook) AddRestingOrder(order *Order) error {
	if _, exists := ob.orders[order.OrderID]; exists {
		return fmt.Errorf("orderbook: order %d already exists", order.OrderID)
	}

	tree := ob.treeFor(order.Action)
	level := tree.Get(order.Price)
	if level == nil {
		level = NewPriceLevel(order.Price)
		tree.Insert(level)
	}

	node := level.Append(order)
	ob.orders[order.OrderID] = node
	return nil
}

// CancelOrder removes order from the book wholesale and returns it, or nil
// if it was not found.
func (ob *OrderBook) CancelOrder(orderID uint64) *Order {
	node, exists := ob.orders[orderID]
	if !exists {
		return nil
	}

	order := node.Order
	level := node.level
	tree := ob.treeFor(order.Action)

	level.Remove(node)
	delete(ob.orders, orderID)

	if level.IsEmpty() {
		tree.Delete(level.Price)
	}

	return order
}

// ReduceOrder decreases order's size by qty without removing it, unless
// the reduction exhausts the remaining quantity, in which case the order
// is cancelled outright. Returns the order and the amount actually
// removed (capped at the order's remaining quantity).
func (ob *OrderBook) ReduceOrder(orderID uint64, qty int64) (*Order, int64) {
	node, exists := ob.orders[orderID]
	if !exists {
		return nil, 0
	}

	order := node.Order
	remaining := order.RemainingQty()
	if qty >= remaining {
		ob.CancelOrder(orderID)
		return order, remaining
	}

	order.Size -= qty
	node.level.UpdateQuantity(-qty)
	return order, qty
}

// GetOrder returns the order for orderID, or nil.
func (ob *OrderBook) GetOrder(orderID uint64) *Order {
	node, exists := ob.orders[orderID]
	if !exists {
		return nil
	}
	return node.Order
}

// GetBestBid returns the highest bid price level, or nil.
func (ob *OrderBook) GetBestBid() *PriceLevel {
	return ob.bids.Min()
}

// GetBestAsk returns the lowest ask price level, or nil.
func (ob *OrderBook) GetBestAsk() *PriceLevel {
	return ob.asks.Min()
}

// BestLevelFor returns the opposing side's best price level for an
// incoming order of the given action (bids match against asks, vice
// versa).
func (ob *OrderBook) BestLevelFor(action command.Action) *PriceLevel {
	if action == command.ActionBid {
		return ob.GetBestAsk()
	}
	return ob.GetBestBid()
}

// OppositeTree returns the tree an order of the given action matches
// against.
func (ob *OrderBook) OppositeTree(action command.Action) *RBTree {
	if action == command.ActionBid {
		return ob.asks
	}
	return ob.bids
}

// TotalOrders returns the number of resting orders in the book.
func (ob *OrderBook) TotalOrders() int {
	return len(ob.orders)
}

// BidLevels returns the number of distinct bid price levels.
func (ob *OrderBook) BidLevels() int { return ob.bids.Size() }

// AskLevels returns the number of distinct ask price levels.
func (ob *OrderBook) AskLevels() int { return ob.asks.Size() }

// L2Level is one row of an L2 depth snapshot.
type L2Level struct {
	Price      int64
	TotalQty   int64
	OrderCount int
}

// L2Snapshot returns up to maxLevels price levels per side, best price
// first. maxLevels <= 0 returns every level.
func (ob *OrderBook) L2Snapshot(maxLevels int) (bids, asks []L2Level) {
	return depth(ob.bids, maxLevels), depth(ob.asks, maxLevels)
}

func depth(tree *RBTree, maxLevels int) []L2Level {
	result := make([]L2Level, 0)
	count := 0
	tree.ForEach(func(level *PriceLevel) bool {
		result = append(result, L2Level{
			Price:      level.Price,
			TotalQty:   level.TotalQty,
			OrderCount: level.Count(),
		})
		count++
		if maxLevels > 0 && count >= maxLevels {
			return false
		}
		return true
	})
	return result
}

// NotCrossed reports whether the book satisfies the at-rest invariant:
// best bid strictly below best ask (or one side empty). Used by tests.
func (ob *OrderBook) NotCrossed() bool {
	bid := ob.GetBestBid()
	ask := ob.GetBestAsk()
	if bid == nil || ask == nil {
		return true
	}
	return bid.Price < ask.Price
}

// StateHash returns a deterministic, order-independent digest of every
// resting order in the book (both sides), for the core-wide state hash
// (spec §4.2/§8).
func (ob *OrderBook) StateHash() uint32 {
	var acc uint32
	for _, node := range ob.orders {
		o := node.Order
		b := fmt.Sprintf("%d|%d|%d|%d|%d|%d|%d", ob.SymbolID, o.OrderID, o.UID,
			o.Price, o.Size, o.Filled, o.Action)
		acc ^= crc32.ChecksumIEEE([]byte(b))
	}
	return acc
}
