// Package symbol implements SymbolSpecificationProvider: the add-once
// registry of per-symbol trading specifications (currencies, scale,
// margin requirements, fee schedule) consulted by risk and matching.
package symbol

import (
	"fmt"
	"sync"
)

// Type distinguishes how a symbol settles.
type Type uint8

const (
	TypeCurrencyExchangePair Type = iota
	TypeFuturesContract
)

// Spec is the immutable trading specification for one symbol, added once
// and never mutated afterward (spec §4.6).
type Spec struct {
	SymbolID      int32
	Type          Type
	BaseCurrency  int32
	QuoteCurrency int32
	BaseScaleK    int64
	QuoteScaleK   int64
	MarginBuy     int64
	MarginSell    int64
	TakerFee      int64
	MakerFee      int64
}

// Provider holds the add-once symbolId -> Spec map. Reset is only valid
// while the pipeline is fully drained (no in-flight commands reference a
// symbol), enforced by the caller holding a drain barrier before calling it.
type Provider struct {
	mu    sync.RWMutex
	specs map[int32]Spec
}

// New returns an empty provider.
func New() *Provider {
	return &Provider{specs: make(map[int32]Spec)}
}

// AddSymbol registers spec if its SymbolID is not already present. It
// returns false on a duplicate id, mirroring the original's
// SymbolSpecificationProvider::AddSymbol semantics: an add-once map, not
// an upsert.
func (p *Provider) AddSymbol(spec Spec) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.specs[spec.SymbolID]; exists {
		return false
	}
	p.specs[spec.SymbolID] = spec
	return true
}

// GetSymbolSpecification returns the spec for symbolID and whether it exists.
func (p *Provider) GetSymbolSpecification(symbolID int32) (Spec, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.specs[symbolID]
	return s, ok
}

// Reset clears every registered symbol. Callers must ensure the pipeline
// is drained before calling this — Reset does not itself synchronize with
// in-flight commands.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.specs = make(map[int32]Spec)
}

// Count returns the number of registered symbols.
func (p *Provider) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.specs)
}

// StateHash returns the XOR-fold of a per-symbol digest over every
// registered spec, order-independent per spec §4.2/§8.
func (p *Provider) StateHash(digest func(Spec) uint32) uint32 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var acc uint32
	for _, s := range p.specs {
		acc ^= digest(s)
	}
	return acc
}

func (s Spec) String() string {
	return fmt.Sprintf("Spec{id=%d base=%d quote=%d takerFee=%d makerFee=%d}",
		s.SymbolID, s.BaseCurrency, s.QuoteCurrency, s.TakerFee, s.MakerFee)
}
