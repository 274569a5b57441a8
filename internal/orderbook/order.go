package orderbook

import "github.com/rishav/clob-exchange-core/internal/command"

// Order is a resting order in the book, identified by OrderID and owned by
// UID. Price and Size are fixed-point int64 (spec §3's non-goal of
// floating-point pricing).
type Order struct {
	OrderID         uint64
	UID             uint64
	Price           int64
	Size            int64
	Filled          int64
	Action          command.Action
	OrderType       command.OrderType
	ReserveBidPrice int64 // bid-side budget reservation, used by FOK-BUDGET
	TimestampNs     int64 // reset on MOVE, loses time priority
}

// RemainingQty returns the size still open for matching.
func (o *Order) RemainingQty() int64 {
	return o.Size - o.Filled
}

// IsFullyFilled reports whether the order has no remaining quantity.
func (o *Order) IsFullyFilled() bool {
	return o.RemainingQty() <= 0
}
