// Package report implements the read-only query side named in
// SPEC_FULL.md §7: aggregate/per-user balance snapshots built by
// scanning the risk engine shards, never by mutating them. Grounded on
// original_source's ReportQueryFactory.cpp (an explicit type-to-builder
// registry) and TotalCurrencyBalanceReportResult.cpp (nullable
// per-concern maps merged into one result). The registry here is
// constructed once at boot and passed by reference, replacing the
// original's reflection-based Meyers-singleton factory per spec §9's
// redesign note.
package report

import (
	"fmt"

	"github.com/rishav/clob-exchange-core/internal/risk"
)

// Type identifies which report a Query asks for.
type Type int32

const (
	TypeTotalCurrencyBalance Type = iota
	TypeSingleUser
)

func (t Type) String() string {
	switch t {
	case TypeTotalCurrencyBalance:
		return "TOTAL_CURRENCY_BALANCE"
	case TypeSingleUser:
		return "SINGLE_USER_REPORT"
	default:
		return "UNKNOWN"
	}
}

// Query is the input to a report builder. UID is only meaningful for
// TypeSingleUser.
type Query struct {
	Type Type
	UID  uint64
}

// TotalCurrencyBalanceResult mirrors the original's nullable-map shape.
// buildTotalCurrencyBalance always fills AccountBalances, Fees and Holds
// (amounts reserved by open orders), possibly as empty maps, and leaves
// OpenInterestLong and OpenInterestShort nil: no margin positions are
// aggregated.
type TotalCurrencyBalanceResult struct {
	AccountBalances   map[int32]int64
	Fees              map[int32]int64
	Holds             map[int32]int64
	OpenInterestLong  map[int32]int64
	OpenInterestShort map[int32]int64
}

// SingleUserResult is a point-in-time snapshot of one user's risk
// profile, merged from whichever shard owns that uid.
type SingleUserResult struct {
	UID       uint64
	Found     bool
	Suspended bool
	Balances  map[int32]int64
	Holds     map[int32]int64
	Positions map[int32]*risk.PositionRecord
}

// Builder produces a report result from the full set of risk shards.
// Returned as interface{} since different report types return
// different concrete result structs; callers type-assert on the Query
// Type they issued.
type Builder func(shards []*risk.Engine, q Query) (interface{}, error)

// Registry maps a report Type to the Builder that answers it, built
// once at startup and passed by reference into whatever issues
// queries (cmd/exchange's end-of-run report, a future RPC front end) — never a
// package-level global, per spec §9's redesign note.
type Registry struct {
	builders map[Type]Builder
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[Type]Builder)}
}

// Register installs the builder for t, overwriting any prior builder.
func (r *Registry) Register(t Type, b Builder) {
	r.builders[t] = b
}

// Run looks up the builder for q.Type and invokes it against shards.
func (r *Registry) Run(shards []*risk.Engine, q Query) (interface{}, error) {
	b, ok := r.builders[q.Type]
	if !ok {
		return nil, fmt.Errorf("report: no builder registered for %s", q.Type)
	}
	return b(shards, q)
}

// RegisterDefaults installs the two report types SPEC_FULL.md names.
func RegisterDefaults(r *Registry) {
	r.Register(TypeTotalCurrencyBalance, buildTotalCurrencyBalance)
	r.Register(TypeSingleUser, buildSingleUser)
}

func buildTotalCurrencyBalance(shards []*risk.Engine, _ Query) (interface{}, error) {
	res := TotalCurrencyBalanceResult{
		AccountBalances: make(map[int32]int64),
		Fees:            make(map[int32]int64),
		Holds:           make(map[int32]int64),
	}
	for _, shard := range shards {
		shard.ForEachProfile(func(p *risk.UserProfile) {
			for currency, bal := range p.Balances {
				res.AccountBalances[currency] += bal
			}
			for currency, hold := range p.Holds {
				res.Holds[currency] += hold
			}
		})
		for currency, fee := range shard.AllFees() {
			res.Fees[currency] += fee
		}
	}
	return &res, nil
}

func buildSingleUser(shards []*risk.Engine, q Query) (interface{}, error) {
	for _, shard := range shards {
		p := shard.Profile(q.UID)
		if p == nil {
			continue
		}
		return &SingleUserResult{
			UID:       p.UID,
			Found:     true,
			Suspended: p.Suspended,
			Balances:  copyInt64Map(p.Balances),
			Holds:     copyInt64Map(p.Holds),
			Positions: p.Positions,
		}, nil
	}
	return &SingleUserResult{UID: q.UID, Found: false}, nil
}

func copyInt64Map(m map[int32]int64) map[int32]int64 {
	out := make(map[int32]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
