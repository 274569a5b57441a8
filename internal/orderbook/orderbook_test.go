package orderbook

import (
	"testing"

	"github.com/rishav/clob-exchange-core/internal/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRestingOrderAndBestPrices(t *testing.T) {
	ob := NewOrderBook(1)
	require.NoError(t, ob.AddRestingOrder(&Order{OrderID: 1, UID: 10, Price: 100, Size: 5, Action: command.ActionBid}))
	require.NoError(t, ob.AddRestingOrder(&Order{OrderID: 2, UID: 11, Price: 105, Size: 5, Action: command.ActionBid}))
	require.NoError(t, ob.AddRestingOrder(&Order{OrderID: 3, UID: 12, Price: 110, Size: 5, Action: command.ActionAsk}))

	assert.Equal(t, int64(105), ob.GetBestBid().Price, "best bid is the highest bid price")
	assert.Equal(t, int64(110), ob.GetBestAsk().Price, "best ask is the lowest ask price")
	assert.True(t, ob.NotCrossed())
}

func TestAddRestingOrderDuplicateRejected(t *testing.T) {
	ob := NewOrderBook(1)
	require.NoError(t, ob.AddRestingOrder(&Order{OrderID: 1, Price: 100, Size: 5, Action: command.ActionBid}))
	err := ob.AddRestingOrder(&Order{OrderID: 1, Price: 101, Size: 5, Action: command.ActionBid})
	assert.Error(t, err)
}

func TestCancelOrderRemovesEmptyLevel(t *testing.T) {
	ob := NewOrderBook(1)
	require.NoError(t, ob.AddRestingOrder(&Order{OrderID: 1, Price: 100, Size: 5, Action: command.ActionBid}))
	require.Equal(t, 1, ob.BidLevels())

	cancelled := ob.CancelOrder(1)
	require.NotNil(t, cancelled)
	assert.Equal(t, 0, ob.BidLevels())
	assert.Nil(t, ob.GetOrder(1))
}

func TestReduceOrderPartial(t *testing.T) {
	ob := NewOrderBook(1)
	require.NoError(t, ob.AddRestingOrder(&Order{OrderID: 1, Price: 100, Size: 10, Action: command.ActionBid}))

	order, removed := ob.ReduceOrder(1, 3)
	require.NotNil(t, order)
	assert.Equal(t, int64(3), removed)
	assert.Equal(t, int64(7), ob.GetOrder(1).Size)
}

func TestReduceOrderBeyondRemainingCancels(t *testing.T) {
	ob := NewOrderBook(1)
	require.NoError(t, ob.AddRestingOrder(&Order{OrderID: 1, Price: 100, Size: 5, Action: command.ActionBid}))

	_, removed := ob.ReduceOrder(1, 100)
	assert.Equal(t, int64(5), removed)
	assert.Nil(t, ob.GetOrder(1))
}

func TestFIFOTimePriorityWithinLevel(t *testing.T) {
	ob := NewOrderBook(1)
	require.NoError(t, ob.AddRestingOrder(&Order{OrderID: 1, Price: 100, Size: 5, Action: command.ActionBid}))
	require.NoError(t, ob.AddRestingOrder(&Order{OrderID: 2, Price: 100, Size: 5, Action: command.ActionBid}))

	head := ob.GetBestBid().Head()
	assert.Equal(t, uint64(1), head.Order.OrderID, "first order at a price level keeps time priority")
	assert.Equal(t, uint64(2), head.Next().Order.OrderID)
}

func TestL2SnapshotLimitsLevels(t *testing.T) {
	ob := NewOrderBook(1)
	for i := int64(0); i < 5; i++ {
		require.NoError(t, ob.AddRestingOrder(&Order{OrderID: uint64(i + 1), Price: 100 + i, Size: 1, Action: command.ActionAsk}))
	}
	_, asks := ob.L2Snapshot(2)
	assert.Len(t, asks, 2)
	assert.Equal(t, int64(100), asks[0].Price, "asks ordered ascending from best")
}

func TestStateHashOrderIndependent(t *testing.T) {
	ob1 := NewOrderBook(1)
	ob1.AddRestingOrder(&Order{OrderID: 1, UID: 1, Price: 100, Size: 5, Action: command.ActionBid})
	ob1.AddRestingOrder(&Order{OrderID: 2, UID: 2, Price: 101, Size: 5, Action: command.ActionAsk})

	ob2 := NewOrderBook(1)
	ob2.AddRestingOrder(&Order{OrderID: 2, UID: 2, Price: 101, Size: 5, Action: command.ActionAsk})
	ob2.AddRestingOrder(&Order{OrderID: 1, UID: 1, Price: 100, Size: 5, Action: command.ActionBid})

	assert.Equal(t, ob1.StateHash(), ob2.StateHash())
}
