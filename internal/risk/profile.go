// Package risk implements stage S2 (pre-check veto) and stage S4
// (post-settlement debit/credit) of the pipeline, sharded by uid. Config
// shape grounded on the teacher's risk.Config; balance/position
// accounting grounded on the teacher's settlement.Account hold-then-
// transfer pattern (adapted from T+2 netting into same-command
// settlement) plus hyperlicked's Account/Position field shape for margin.
package risk

// PositionRecord tracks one user's open margin position in one symbol
// (spec §3 "Position record (P)").
type PositionRecord struct {
	SymbolID        int32
	Direction       int8 // +1 long, -1 short, 0 flat
	OpenSize        int64
	OpenPriceSum    int64 // sum of (price*qty) for open lots, for weighted avg entry
	PendingBuySize  int64
	PendingSellSize int64
	PendingReserve  int64 // quote currency reserved against pending orders
}

// UserProfile holds one user's balances, holds, and margin positions.
type UserProfile struct {
	UID       uint64
	Suspended bool
	Balances  map[int32]int64           // currency -> balance, including any amount held
	Holds     map[int32]int64           // currency -> amount reserved by open orders
	Positions map[int32]*PositionRecord // symbolId -> position
}

// NewUserProfile creates an empty profile for uid.
func NewUserProfile(uid uint64) *UserProfile {
	return &UserProfile{
		UID:       uid,
		Balances:  make(map[int32]int64),
		Holds:     make(map[int32]int64),
		Positions: make(map[int32]*PositionRecord),
	}
}

// Available returns the balance in currency not already reserved by a
// hold.
func (p *UserProfile) Available(currency int32) int64 {
	return p.Balances[currency] - p.Holds[currency]
}

// position returns (creating if absent) the position record for symbolID.
func (p *UserProfile) position(symbolID int32) *PositionRecord {
	pos, ok := p.Positions[symbolID]
	if !ok {
		pos = &PositionRecord{SymbolID: symbolID}
		p.Positions[symbolID] = pos
	}
	return pos
}
