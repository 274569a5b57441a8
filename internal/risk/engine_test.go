package risk

import (
	"testing"

	"github.com/rishav/clob-exchange-core/internal/command"
	"github.com/rishav/clob-exchange-core/internal/symbol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quoteUSD int32 = 1
const baseBTC int32 = 2

var testSpec = symbol.Spec{
	SymbolID:      1,
	BaseCurrency:  baseBTC,
	QuoteCurrency: quoteUSD,
	BaseScaleK:    1,
	QuoteScaleK:   1,
}

func TestPreCheckRejectsUnknownUser(t *testing.T) {
	e := NewEngine(Config{Mode: ModeFullPerCurrency})
	slot := &command.Slot{Kind: command.KindPlaceOrder, UID: 1, Price: 100, Size: 5}
	e.PreCheck(slot, testSpec)
	assert.Equal(t, command.ResultUserNotFound, slot.Result())
}

func TestPreCheckRejectsSuspendedUser(t *testing.T) {
	e := NewEngine(Config{Mode: ModeFullPerCurrency})
	e.AddUser(1)
	e.Suspend(1)

	slot := &command.Slot{Kind: command.KindPlaceOrder, UID: 1, Price: 100, Size: 5}
	e.PreCheck(slot, testSpec)
	assert.Equal(t, command.ResultUserSuspended, slot.Result())
}

func TestPreCheckRejectsNSF(t *testing.T) {
	e := NewEngine(Config{Mode: ModeFullPerCurrency})
	p := e.AddUser(1)
	p.Balances[quoteUSD] = 100

	slot := &command.Slot{Kind: command.KindPlaceOrder, UID: 1, Price: 100, Size: 5}
	e.PreCheck(slot, testSpec)
	assert.Equal(t, command.ResultRiskNSF, slot.Result())
}

func TestPreCheckHoldsCollateralOnSuccess(t *testing.T) {
	e := NewEngine(Config{Mode: ModeFullPerCurrency})
	p := e.AddUser(1)
	p.Balances[quoteUSD] = 1000

	slot := &command.Slot{Kind: command.KindPlaceOrder, UID: 1, Price: 100, Size: 5, Action: command.ActionBid}
	e.PreCheck(slot, testSpec)

	require.Equal(t, command.ResultValidForMatchingEngine, slot.Result())
	assert.Equal(t, int64(500), p.Holds[quoteUSD])
	assert.Equal(t, int64(500), p.Available(quoteUSD))
}

func TestPreCheckHoldsBaseCurrencyForAsk(t *testing.T) {
	e := NewEngine(Config{Mode: ModeFullPerCurrency})
	p := e.AddUser(1)
	p.Balances[baseBTC] = 10

	slot := &command.Slot{Kind: command.KindPlaceOrder, UID: 1, Price: 100, Size: 5, Action: command.ActionAsk}
	e.PreCheck(slot, testSpec)

	require.Equal(t, command.ResultValidForMatchingEngine, slot.Result())
	assert.Equal(t, int64(5), p.Holds[baseBTC])
	assert.Equal(t, int64(0), p.Holds[quoteUSD])
}

func TestPreCheckAppliesQuoteScaleFactor(t *testing.T) {
	e := NewEngine(Config{Mode: ModeFullPerCurrency})
	p := e.AddUser(1)
	p.Balances[quoteUSD] = 10_000_000

	spec := testSpec
	spec.QuoteScaleK = 10

	slot := &command.Slot{Kind: command.KindPlaceOrder, UID: 1, Price: 30000, Size: 4, Action: command.ActionBid}
	e.PreCheck(slot, spec)

	require.Equal(t, command.ResultValidForMatchingEngine, slot.Result())
	assert.Equal(t, int64(4*30000*10), p.Holds[quoteUSD])
}

func TestNoRiskProcessingModeAlwaysPasses(t *testing.T) {
	e := NewEngine(Config{Mode: ModeNoRiskProcessing})
	slot := &command.Slot{Kind: command.KindPlaceOrder, UID: 999, Price: 100, Size: 5}
	e.PreCheck(slot, testSpec)
	assert.Equal(t, command.ResultValidForMatchingEngine, slot.Result())
}

func TestPostSettleTradeMovesBalancesAndReleasesHolds(t *testing.T) {
	e := NewEngine(Config{Mode: ModeFullPerCurrency})
	taker := e.AddUser(1)
	taker.Balances[quoteUSD] = 1000
	maker := e.AddUser(2)
	maker.Balances[baseBTC] = 5

	slot := &command.Slot{Kind: command.KindPlaceOrder, UID: 1, Price: 100, Size: 5, Action: command.ActionBid}
	e.PreCheck(slot, testSpec)
	require.Equal(t, command.ResultValidForMatchingEngine, slot.Result())

	slot.EventsHead = &command.TradeEvent{
		EventType:       command.EventTrade,
		MatchedOrderUID: 2,
		Price:           100,
		Size:            5,
	}
	slot.ForceResult(command.ResultSuccess)

	e.PostSettle(slot, testSpec)

	assert.Equal(t, int64(500), taker.Balances[quoteUSD])
	assert.Equal(t, int64(5), taker.Balances[baseBTC])
	assert.Equal(t, int64(500), maker.Balances[quoteUSD])
	assert.Equal(t, int64(0), maker.Balances[baseBTC])
	assert.Equal(t, int64(0), taker.Holds[quoteUSD], "hold released after settlement")
	assert.Equal(t, int64(0), maker.Holds[baseBTC], "maker's base hold released after settlement")
}

func TestPostSettleReleasesHoldOnReject(t *testing.T) {
	e := NewEngine(Config{Mode: ModeFullPerCurrency})
	p := e.AddUser(1)
	p.Balances[quoteUSD] = 1000

	slot := &command.Slot{Kind: command.KindPlaceOrder, UID: 1, Price: 100, Size: 5, Action: command.ActionBid}
	e.PreCheck(slot, testSpec)
	require.Equal(t, int64(500), p.Holds[quoteUSD])

	slot.ForceResult(command.ResultMatchingDuplicateOrderID)
	e.PostSettle(slot, testSpec)

	assert.Equal(t, int64(0), p.Holds[quoteUSD])
}

func TestPostSettleReleasesAskHoldOnCancel(t *testing.T) {
	e := NewEngine(Config{Mode: ModeFullPerCurrency})
	p := e.AddUser(1)
	p.Balances[baseBTC] = 10

	slot := &command.Slot{Kind: command.KindPlaceOrder, UID: 1, Price: 100, Size: 5, Action: command.ActionAsk}
	e.PreCheck(slot, testSpec)
	require.Equal(t, int64(5), p.Holds[baseBTC])

	cancel := &command.Slot{Kind: command.KindCancelOrder, UID: 1, Price: 100, Size: 5, Action: command.ActionAsk}
	cancel.ForceResult(command.ResultSuccess)
	e.PostSettle(cancel, testSpec)

	assert.Equal(t, int64(0), p.Holds[baseBTC])
}

func TestSuspendResumeRoundTrip(t *testing.T) {
	e := NewEngine(Config{Mode: ModeFullPerCurrency})
	e.AddUser(1)
	e.Suspend(1)
	assert.True(t, e.Profile(1).Suspended)
	e.Resume(1)
	assert.False(t, e.Profile(1).Suspended)
}
