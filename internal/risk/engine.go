package risk

import (
	"sync"

	"github.com/rishav/clob-exchange-core/internal/command"
	"github.com/rishav/clob-exchange-core/internal/symbol"
)

// Mode selects how aggressively the risk engine enforces holds/collateral.
type Mode uint8

const (
	// ModeFullPerCurrency reserves/settles balances per currency on every
	// command (spec §4.3).
	ModeFullPerCurrency Mode = iota
	// ModeNoRiskProcessing bypasses all balance checks; commands always
	// pass S2 and S4 is a no-op.
	ModeNoRiskProcessing
)

// Config configures one risk engine shard.
type Config struct {
	Mode Mode
}

// Engine owns the user profiles for the uids in its shard, plus the
// per-currency fee accumulator credited during S4 settlement.
type Engine struct {
	cfg      Config
	mu       sync.RWMutex
	profiles map[uint64]*UserProfile
	fees     map[int32]int64 // currency -> accumulated fee
}

// NewEngine creates a risk engine shard.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:      cfg,
		profiles: make(map[uint64]*UserProfile),
		fees:     make(map[int32]int64),
	}
}

// AddUser registers uid with zero balances if not already present.
func (e *Engine) AddUser(uid uint64) *UserProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.profiles[uid]
	if !ok {
		p = NewUserProfile(uid)
		e.profiles[uid] = p
	}
	return p
}

// Profile returns the profile for uid, or nil.
func (e *Engine) Profile(uid uint64) *UserProfile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.profiles[uid]
}

// AdjustBalance applies a signed balance adjustment to uid's currency
// balance (spec's BALANCE_ADJUSTMENT command).
func (e *Engine) AdjustBalance(uid uint64, currency int32, delta int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.profiles[uid]
	if !ok {
		p = NewUserProfile(uid)
		e.profiles[uid] = p
	}
	p.Balances[currency] += delta
}

// PreCheck is S2: veto-only. It never mutates committed balances, only
// places a hold reserving collateral for the command, and seals a
// rejecting result code on NSF/suspended/unknown-user. A command that
// passes is sealed ResultValidForMatchingEngine so S3 knows risk already
// cleared it.
func (e *Engine) PreCheck(slot *command.Slot, spec symbol.Spec) {
	if e.cfg.Mode == ModeNoRiskProcessing {
		slot.SealResult(command.ResultValidForMatchingEngine)
		return
	}

	switch slot.Kind {
	case command.KindPlaceOrder:
		e.preCheckPlaceOrder(slot, spec)
	case command.KindMoveOrder, command.KindCancelOrder, command.KindReduceOrder:
		e.preCheckRequiresUser(slot)
	default:
		slot.SealResult(command.ResultValidForMatchingEngine)
	}
}

func (e *Engine) preCheckRequiresUser(slot *command.Slot) {
	e.mu.RLock()
	p, ok := e.profiles[slot.UID]
	e.mu.RUnlock()
	if !ok {
		slot.SealResult(command.ResultUserNotFound)
		return
	}
	if p.Suspended {
		slot.SealResult(command.ResultUserSuspended)
		return
	}
	slot.SealResult(command.ResultValidForMatchingEngine)
}

func (e *Engine) preCheckPlaceOrder(slot *command.Slot, spec symbol.Spec) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.profiles[slot.UID]
	if !ok {
		slot.SealResult(command.ResultUserNotFound)
		return
	}
	if p.Suspended {
		slot.SealResult(command.ResultUserSuspended)
		return
	}

	currency, required := reserveForQty(slot.Action, slot.Price, slot.Size, spec)
	if p.Available(currency) < required {
		slot.SealResult(command.ResultRiskNSF)
		return
	}

	p.Holds[currency] += required
	slot.SealResult(command.ResultValidForMatchingEngine)
}

// reserveForQty is the collateral and currency a PLACE_ORDER command of the
// given action/price reserves for qty units (spec §4.3 / §3 "Lot sizing").
// A bid reserves quote currency, sized as if it always paid taker fee (the
// order doesn't yet know whether it will rest and later fill as a maker);
// an ask reserves base currency at a fixed rate, with no fee component —
// whichever fee it actually owes comes out of the quote proceeds at
// settlement instead. Grounded on original_source's CoreArithmeticUtils
// CalculateAmountBidTakerFee/CalculateAmountAsk.
func reserveForQty(action command.Action, price, qty int64, spec symbol.Spec) (currency int32, amount int64) {
	if action == command.ActionAsk {
		return spec.BaseCurrency, qty * spec.BaseScaleK
	}
	return spec.QuoteCurrency, qty * (price*spec.QuoteScaleK + spec.TakerFee)
}

// PostSettle is S4: debit/credit/fee collection and hold release, driven
// by the TradeEvent chain matching produced in S3. It never vetoes —
// matching's result is already sealed; S4 only moves money.
func (e *Engine) PostSettle(slot *command.Slot, spec symbol.Spec) {
	if e.cfg.Mode == ModeNoRiskProcessing {
		return
	}
	if slot.Result().Rejected() {
		// Only a PLACE that passed S2 and was then refused by matching had
		// a hold placed for it; risk-stage rejections reserved nothing.
		switch slot.Result() {
		case command.ResultMatchingDuplicateOrderID, command.ResultMatchingUnknownSymbol:
			if slot.Kind == command.KindPlaceOrder {
				e.releasePartialHold(slot, spec, slot.Size)
			}
		}
		return
	}

	for ev := slot.EventsHead; ev != nil; ev = ev.NextEvent {
		switch ev.EventType {
		case command.EventTrade:
			e.settleTrade(slot, ev, spec)
		case command.EventReduce, command.EventReject:
			e.releasePartialHold(slot, spec, ev.Size)
		}
	}

	if slot.Kind == command.KindCancelOrder {
		e.releasePartialHold(slot, spec, slot.Size)
	}
}

// settleTrade moves both currency legs of one fill: the bidder pays quote
// and receives base, the asker receives quote (less its fee) and pays
// base (spec §8's conservation law). slot is always the actively processed
// (taker) side; ev.MatchedOrderUID is always the resting (maker) side, and
// ev.Price/ev.Size are the maker's own price and the filled quantity (spec
// §4.2's maker-price fill rule). Each side's hold is released at the same
// price/fee basis it was reserved at in PreCheck — the maker's own price
// equals ev.Price since fills always execute there, and every order (maker
// or taker) reserves assuming taker fee; the taker/maker fee difference is
// realised directly against the balance leg instead, not the hold.
func (e *Engine) settleTrade(slot *command.Slot, ev *command.TradeEvent, spec symbol.Spec) {
	e.mu.Lock()
	defer e.mu.Unlock()

	quoteAmt := ev.Size * ev.Price * spec.QuoteScaleK
	baseAmt := ev.Size * spec.BaseScaleK
	takerFeeAmt := ev.Size * spec.TakerFee
	makerFeeAmt := ev.Size * spec.MakerFee
	e.fees[spec.QuoteCurrency] += takerFeeAmt + makerFeeAmt

	taker, takerOK := e.profiles[slot.UID]
	maker, makerOK := e.profiles[ev.MatchedOrderUID]

	if slot.Action == command.ActionBid {
		if takerOK {
			decHold(taker, spec.QuoteCurrency, ev.Size*(slot.Price*spec.QuoteScaleK+spec.TakerFee))
			taker.Balances[spec.QuoteCurrency] -= quoteAmt + takerFeeAmt
			taker.Balances[spec.BaseCurrency] += baseAmt
		}
		if makerOK {
			decHold(maker, spec.BaseCurrency, baseAmt)
			maker.Balances[spec.BaseCurrency] -= baseAmt
			maker.Balances[spec.QuoteCurrency] += quoteAmt - makerFeeAmt
		}
	} else {
		if takerOK {
			decHold(taker, spec.BaseCurrency, baseAmt)
			taker.Balances[spec.BaseCurrency] -= baseAmt
			taker.Balances[spec.QuoteCurrency] += quoteAmt - takerFeeAmt
		}
		if makerOK {
			decHold(maker, spec.QuoteCurrency, ev.Size*(ev.Price*spec.QuoteScaleK+spec.TakerFee))
			maker.Balances[spec.QuoteCurrency] -= quoteAmt + makerFeeAmt
			maker.Balances[spec.BaseCurrency] += baseAmt
		}
	}
}

// decHold releases amount from p's hold in currency, clamped at zero so a
// rounding or ordering discrepancy never drives a hold negative.
func decHold(p *UserProfile, currency int32, amount int64) {
	p.Holds[currency] -= amount
	if p.Holds[currency] < 0 {
		p.Holds[currency] = 0
	}
}

// releasePartialHold releases the hold for qty units of slot's own order
// (unfilled remainder on REDUCE/REJECT/CANCEL), at the currency and
// formula reserveForQty used when that qty was originally reserved.
func (e *Engine) releasePartialHold(slot *command.Slot, spec symbol.Spec, qty int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.profiles[slot.UID]
	if !ok {
		return
	}
	currency, released := reserveForQty(slot.Action, slot.Price, qty, spec)
	decHold(p, currency, released)
}

// Suspend marks uid suspended; future S2 pre-checks reject its commands.
func (e *Engine) Suspend(uid uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.profiles[uid]; ok {
		p.Suspended = true
	}
}

// Resume clears a suspension.
func (e *Engine) Resume(uid uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.profiles[uid]; ok {
		p.Suspended = false
	}
}

// TotalFees returns the accumulated fee balance for currency.
func (e *Engine) TotalFees(currency int32) int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fees[currency]
}

// ForEachProfile calls fn for every profile held by this shard, under a
// read lock. Used by internal/report to aggregate a TOTAL_CURRENCY_BALANCE
// report across shards without exposing the profile map directly.
func (e *Engine) ForEachProfile(fn func(*UserProfile)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, p := range e.profiles {
		fn(p)
	}
}

// AllFees returns a copy of the per-currency fee accumulator.
func (e *Engine) AllFees() map[int32]int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[int32]int64, len(e.fees))
	for k, v := range e.fees {
		out[k] = v
	}
	return out
}

// StateHash returns a deterministic, order-independent digest over every
// profile and the fee accumulator.
func (e *Engine) StateHash(digestProfile func(*UserProfile) uint32, digestFees func(map[int32]int64) uint32) uint32 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var acc uint32
	for _, p := range e.profiles {
		acc ^= digestProfile(p)
	}
	acc ^= digestFees(e.fees)
	return acc
}
