// Package command defines the command slot that travels through the
// pipeline, and the enums (kind, side, order type, result code) attached
// to it. A slot is produced once by the sequencer and then mutated,
// field-by-field, by each pipeline stage that owns that field.
package command

import "sync/atomic"

// Kind identifies what a command does.
type Kind uint8

const (
	KindPlaceOrder Kind = iota
	KindMoveOrder
	KindCancelOrder
	KindReduceOrder
	KindOrderBookRequest
	KindAddUser
	KindSuspendUser
	KindResumeUser
	KindBalanceAdjustment
	KindBinaryData
	KindReset
	KindNop
	KindPersistStateMatching
	KindPersistStateRisk
	KindGroupingControl
)

func (k Kind) String() string {
	switch k {
	case KindPlaceOrder:
		return "PLACE_ORDER"
	case KindMoveOrder:
		return "MOVE_ORDER"
	case KindCancelOrder:
		return "CANCEL_ORDER"
	case KindReduceOrder:
		return "REDUCE_ORDER"
	case KindOrderBookRequest:
		return "ORDER_BOOK_REQUEST"
	case KindAddUser:
		return "ADD_USER"
	case KindSuspendUser:
		return "SUSPEND_USER"
	case KindResumeUser:
		return "RESUME_USER"
	case KindBalanceAdjustment:
		return "BALANCE_ADJUSTMENT"
	case KindBinaryData:
		return "BINARY_DATA_COMMAND"
	case KindReset:
		return "RESET"
	case KindNop:
		return "NOP"
	case KindPersistStateMatching:
		return "PERSIST_STATE_MATCHING"
	case KindPersistStateRisk:
		return "PERSIST_STATE_RISK"
	case KindGroupingControl:
		return "GROUPING_CONTROL"
	default:
		return "UNKNOWN"
	}
}

// Action is the side of an order: ASK (sell) or BID (buy).
type Action uint8

const (
	ActionBid Action = iota
	ActionAsk
)

func (a Action) Opposite() Action {
	if a == ActionBid {
		return ActionAsk
	}
	return ActionBid
}

func (a Action) String() string {
	if a == ActionBid {
		return "BID"
	}
	return "ASK"
}

// OrderType selects matching semantics for unfilled remainder.
type OrderType uint8

const (
	OrderTypeGTC OrderType = iota
	OrderTypeIOC
	OrderTypeFOKBudget
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeGTC:
		return "GTC"
	case OrderTypeIOC:
		return "IOC"
	case OrderTypeFOKBudget:
		return "FOK_BUDGET"
	default:
		return "UNKNOWN"
	}
}

// ResultCode is the sealed outcome of a command. Once written by a stage
// that owns it, a downstream stage must not clobber it (§7 class 1).
type ResultCode int32

const (
	ResultNone ResultCode = iota
	ResultValidForMatchingEngine
	ResultSuccess
	ResultRiskNSF
	ResultRiskInvalidSymbol
	ResultUserSuspended
	ResultUserNotFound
	ResultMatchingUnknownOrderID
	ResultMatchingUnmatchedUID
	ResultMatchingDuplicateOrderID
	ResultMatchingUnknownSymbol
	ResultMatchingUnsupportedCommand
	ResultInvalidSymbolConfiguration
	ResultStateInvalid
)

func (r ResultCode) String() string {
	switch r {
	case ResultNone:
		return "NONE"
	case ResultValidForMatchingEngine:
		return "VALID_FOR_MATCHING_ENGINE"
	case ResultSuccess:
		return "SUCCESS"
	case ResultRiskNSF:
		return "RISK_NSF"
	case ResultRiskInvalidSymbol:
		return "RISK_INVALID_SYMBOL"
	case ResultUserSuspended:
		return "USER_SUSPENDED"
	case ResultUserNotFound:
		return "USER_NOT_FOUND"
	case ResultMatchingUnknownOrderID:
		return "MATCHING_UNKNOWN_ORDER_ID"
	case ResultMatchingUnmatchedUID:
		return "MATCHING_UNMATCHED_UID"
	case ResultMatchingDuplicateOrderID:
		return "MATCHING_DUPLICATE_ORDER_ID"
	case ResultMatchingUnknownSymbol:
		return "MATCHING_UNKNOWN_SYMBOL"
	case ResultMatchingUnsupportedCommand:
		return "MATCHING_UNSUPPORTED_COMMAND"
	case ResultInvalidSymbolConfiguration:
		return "INVALID_SYMBOL_CONFIGURATION"
	case ResultStateInvalid:
		return "STATE_INVALID"
	default:
		return "UNKNOWN"
	}
}

// Rejected reports whether the code represents a command that did not
// reach a successful outcome (everything except NONE/VALID/SUCCESS).
func (r ResultCode) Rejected() bool {
	switch r {
	case ResultNone, ResultValidForMatchingEngine, ResultSuccess:
		return false
	default:
		return true
	}
}

// EventType identifies the kind of a trade-chain node (§3 Trade event (E)).
type EventType uint8

const (
	EventTrade EventType = iota
	EventReduce
	EventReject
	EventBinary
)

func (t EventType) String() string {
	switch t {
	case EventTrade:
		return "TRADE"
	case EventReduce:
		return "REDUCE"
	case EventReject:
		return "REJECT"
	case EventBinary:
		return "BINARY"
	default:
		return "UNKNOWN"
	}
}

// TradeEvent is one node in the singly linked chain of fills/rejects
// produced while processing a single command. Events are appended in
// match order (FIFO of fills as they occurred).
type TradeEvent struct {
	EventType             EventType
	Section               int32
	ActiveOrderCompleted  bool
	MatchedOrderID        uint64
	MatchedOrderUID       uint64
	MatchedOrderCompleted bool
	Price                 int64
	Size                  int64
	BidderHoldPrice       int64
	NextEvent             *TradeEvent
}

// Slot is the fixed-size record that rides the ring buffer from producer
// to aggregator. Every downstream stage writes only the fields it owns;
// Seq is assigned exactly once and never mutated afterward.
type Slot struct {
	Seq             uint64
	TimestampNs     int64
	Kind            Kind
	SymbolID        int32
	UID             uint64
	OrderID         uint64
	Price           int64
	Size            int64
	ReserveBidPrice int64
	Action          Action
	OrderType       OrderType

	resultCode int32 // CAS-sealed; use Result()/SealResult()

	EventsHead *TradeEvent

	// BinaryPayload carries decoded BatchAddSymbols/BatchAddAccounts data
	// for KindBinaryData commands.
	BinaryPayload interface{}

	// L2Snapshot is populated by matching for KindOrderBookRequest.
	L2Snapshot interface{}
}

// Result returns the currently sealed result code (acquire semantics).
func (s *Slot) Result() ResultCode {
	return ResultCode(atomic.LoadInt32(&s.resultCode))
}

// SealResult seals a result code the first time it is called; a later
// caller cannot overwrite an already-sealed non-NONE code. This preserves
// the CAS contract described in spec §9 ("mutable resultCode ... preserve
// the observable CAS contract") while giving each stage a single field to
// write through.
func (s *Slot) SealResult(code ResultCode) bool {
	return atomic.CompareAndSwapInt32(&s.resultCode, int32(ResultNone), int32(code))
}

// ForceResult overwrites the sealed result unconditionally. Used only by
// S5 when reducing a stage-owned outcome into the final sealed code after
// every earlier stage has already finished with this slot.
func (s *Slot) ForceResult(code ResultCode) {
	atomic.StoreInt32(&s.resultCode, int32(code))
}

// Reset clears a slot for reuse by the ring buffer after full publication.
func (s *Slot) Reset() {
	*s = Slot{}
}
