// Package pipeline wires stages S1-S5 around a shared ring buffer: each
// stage is one or more single-threaded shard goroutines spin-waiting on
// the next sequence number, in the spirit of the teacher's
// disruptor.EventProcessor.processLoop, generalized from one consumer to
// five independently-gated stages.
package pipeline

import (
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/rishav/clob-exchange-core/internal/command"
	"github.com/rishav/clob-exchange-core/internal/matching"
	"github.com/rishav/clob-exchange-core/internal/pool"
	"github.com/rishav/clob-exchange-core/internal/ringbuf"
	"github.com/rishav/clob-exchange-core/internal/risk"
	"github.com/rishav/clob-exchange-core/internal/symbol"
)

// Journaler is the subset of internal/journal's API stage S1 needs: append
// the command before any later stage observes it.
type Journaler interface {
	Append(slot *command.Slot) error
}

// Config configures the pipeline's sharding.
type Config struct {
	RiskShards     int
	MatchingShards int
	// Symbols is consulted by S2/S4 for the scale factors, currencies and
	// fee schedule of the command's symbol. A nil Symbols (or an
	// unregistered symbol) yields a zero-value symbol.Spec, which every
	// formula treats as "no collateral, no fee".
	Symbols *symbol.Provider
}

// Pipeline owns the ring buffer and the five stage gates, and runs the
// shard goroutines for S1-S5.
type Pipeline struct {
	cfg Config
	rb  *ringbuf.RingBuffer
	log *zap.Logger

	journalGate  *ringbuf.StageGate
	riskPreGate  *ringbuf.StageGate
	matchGate    *ringbuf.StageGate
	riskPostGate *ringbuf.StageGate
	aggGate      *ringbuf.StageGate

	journal Journaler
	risk    []*risk.Engine     // one per risk shard, indexed by uid % len
	engines []*matching.Engine // one per matching shard, indexed by symbolID % len
	events  *pool.Pool         // TradeEvent node pool, recycled after S5

	shutdown     chan struct{}
	done         chan struct{}
	completedSeq uint64 // highest seq S5 has fully aggregated, read via Drained

	onResult func(*command.Slot) // S5 callback, e.g. journal seal / client notify
}

// New creates a pipeline. riskEngines and matchEngines must each have at
// least one element; their length is the shard count for that stage.
// events may be nil, in which case TradeEvent nodes are never recycled.
// journal may be nil, in which case S1 journals nothing and only applies
// admin commands.
func New(cfg Config, rb *ringbuf.RingBuffer, log *zap.Logger, journal Journaler, riskEngines []*risk.Engine, matchEngines []*matching.Engine, events *pool.Pool, onResult func(*command.Slot)) *Pipeline {
	return &Pipeline{
		cfg:          cfg,
		rb:           rb,
		log:          log,
		journalGate:  ringbuf.NewStageGate(1),
		riskPreGate:  ringbuf.NewStageGate(len(riskEngines)),
		matchGate:    ringbuf.NewStageGate(len(matchEngines)),
		riskPostGate: ringbuf.NewStageGate(len(riskEngines)),
		aggGate:      ringbuf.NewStageGate(1),
		journal:      journal,
		risk:         riskEngines,
		engines:      matchEngines,
		events:       events,
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}, 5),
		onResult:     onResult,
	}
}

// Gates exposes the five stage gates so RingBuffer construction can pass
// them in as the back-pressure set (the producer must not outrun S5, the
// slowest of all).
func (p *Pipeline) Gates() []*ringbuf.StageGate {
	return []*ringbuf.StageGate{p.journalGate, p.riskPreGate, p.matchGate, p.riskPostGate, p.aggGate}
}

// SetRingBuffer attaches the ring buffer built from Gates(). New takes rb
// directly for callers that already have one (e.g. a replay driver
// reusing an existing buffer); callers building a fresh buffer from this
// pipeline's own gates must construct it after New and attach it here,
// since RingBuffer.New needs the gates that only exist once New has run.
func (p *Pipeline) SetRingBuffer(rb *ringbuf.RingBuffer) {
	p.rb = rb
}

// Start launches one goroutine per stage shard.
func (p *Pipeline) Start() {
	go p.runJournalStage()
	for shard := range p.risk {
		go p.runRiskPreStage(shard)
	}
	for shard := range p.engines {
		go p.runMatchStage(shard)
	}
	for shard := range p.risk {
		go p.runRiskPostStage(shard)
	}
	go p.runAggregateStage()
}

// Stop signals every stage goroutine to exit after its current slot.
func (p *Pipeline) Stop() {
	close(p.shutdown)
}

func (p *Pipeline) stopped() bool {
	select {
	case <-p.shutdown:
		return true
	default:
		return false
	}
}

// waitFor spin-waits until seq is published, returning false if shutdown
// fires first.
func (p *Pipeline) waitFor(seq uint64) bool {
	for {
		if p.rb.IsPublished(seq) {
			return true
		}
		if p.stopped() {
			return false
		}
		runtime.Gosched()
	}
}

func (p *Pipeline) runJournalStage() {
	defer func() { p.done <- struct{}{} }()
	seq := uint64(1)
	for {
		if !p.waitFor(seq) {
			return
		}
		slot := p.rb.Get(seq)
		if p.journal != nil {
			if err := p.journal.Append(slot); err != nil {
				p.log.Fatal("journal append failed, halting pipeline", zap.Uint64("seq", seq), zap.Error(err))
				return
			}
		}
		p.applyAdmin(slot)
		p.journalGate.Advance(0, seq)
		seq++
	}
}

// applyAdmin executes the admin command kinds (spec §6 inbound sequencer
// commands) in sequencer order, the one place they ever take effect. S1 is
// single-threaded and strictly ahead of every other stage for a given seq,
// so a command journaled and applied here replays deterministically from
// an empty state (spec §4.4) — S2-S5's switches on these kinds stay
// default/no-op, sealing a result here is enough since SealResult only
// takes the first caller.
func (p *Pipeline) applyAdmin(slot *command.Slot) {
	n := len(p.risk)
	switch slot.Kind {
	case command.KindAddUser:
		p.risk[shardOf(slot.UID, n)].AddUser(slot.UID)
		slot.SealResult(command.ResultSuccess)
	case command.KindSuspendUser:
		p.risk[shardOf(slot.UID, n)].Suspend(slot.UID)
		slot.SealResult(command.ResultSuccess)
	case command.KindResumeUser:
		p.risk[shardOf(slot.UID, n)].Resume(slot.UID)
		slot.SealResult(command.ResultSuccess)
	case command.KindBalanceAdjustment:
		// Slot has no dedicated currency/delta fields; BALANCE_ADJUSTMENT
		// reuses SymbolID as the currency id and Size as the signed delta.
		p.risk[shardOf(slot.UID, n)].AdjustBalance(slot.UID, slot.SymbolID, slot.Size)
		slot.SealResult(command.ResultSuccess)
	case command.KindBinaryData:
		p.applyBinaryBatch(slot)
		slot.SealResult(command.ResultSuccess)
	}
}

func (p *Pipeline) applyBinaryBatch(slot *command.Slot) {
	n := len(p.risk)
	m := len(p.engines)
	switch batch := slot.BinaryPayload.(type) {
	case []command.SymbolBatchEntry:
		for _, e := range batch {
			spec := symbol.Spec{
				SymbolID:      e.SymbolID,
				Type:          symbol.Type(e.Type),
				BaseCurrency:  e.BaseCurrency,
				QuoteCurrency: e.QuoteCurrency,
				BaseScaleK:    e.BaseScaleK,
				QuoteScaleK:   e.QuoteScaleK,
				MarginBuy:     e.MarginBuy,
				MarginSell:    e.MarginSell,
				TakerFee:      e.TakerFee,
				MakerFee:      e.MakerFee,
			}
			if p.cfg.Symbols != nil && p.cfg.Symbols.AddSymbol(spec) && m > 0 {
				p.engines[shardOf(uint64(e.SymbolID), m)].AddSymbol(e.SymbolID)
			}
		}
	case []command.AccountBatchEntry:
		for _, e := range batch {
			p.risk[shardOf(e.UID, n)].AdjustBalance(e.UID, e.Currency, e.Balance)
		}
	}
}

func (p *Pipeline) runRiskPreStage(shard int) {
	defer func() { p.done <- struct{}{} }()
	seq := uint64(1)
	n := len(p.risk)
	for {
		if !p.waitFor(seq) {
			return
		}
		for p.journalGate.Cursor() < seq {
			if p.stopped() {
				return
			}
			runtime.Gosched()
		}
		slot := p.rb.Get(seq)
		if shardOf(slot.UID, n) == shard {
			p.risk[shard].PreCheck(slot, p.specFor(slot.SymbolID))
		}
		p.riskPreGate.Advance(shard, seq)
		seq++
	}
}

func (p *Pipeline) runMatchStage(shard int) {
	defer func() { p.done <- struct{}{} }()
	seq := uint64(1)
	n := len(p.engines)
	for {
		if !p.waitFor(seq) {
			return
		}
		for p.riskPreGate.Cursor() < seq {
			if p.stopped() {
				return
			}
			runtime.Gosched()
		}
		slot := p.rb.Get(seq)
		if shardOf(uint64(slot.SymbolID), n) == shard {
			p.engines[shard].Process(slot)
		}
		p.matchGate.Advance(shard, seq)
		seq++
	}
}

func (p *Pipeline) runRiskPostStage(shard int) {
	defer func() { p.done <- struct{}{} }()
	seq := uint64(1)
	n := len(p.risk)
	for {
		if !p.waitFor(seq) {
			return
		}
		for p.matchGate.Cursor() < seq {
			if p.stopped() {
				return
			}
			runtime.Gosched()
		}
		slot := p.rb.Get(seq)
		if shardOf(slot.UID, n) == shard {
			p.risk[shard].PostSettle(slot, p.specFor(slot.SymbolID))
		}
		p.riskPostGate.Advance(shard, seq)
		seq++
	}
}

func (p *Pipeline) runAggregateStage() {
	defer func() { p.done <- struct{}{} }()
	seq := uint64(1)
	for {
		if !p.waitFor(seq) {
			return
		}
		for p.riskPostGate.Cursor() < seq {
			if p.stopped() {
				return
			}
			runtime.Gosched()
		}
		slot := p.rb.Get(seq)
		if p.onResult != nil {
			p.onResult(slot)
		}
		if p.events != nil && slot.EventsHead != nil {
			p.events.PutChain(slot.EventsHead)
		}
		p.aggGate.Advance(0, seq)
		atomic.StoreUint64(&p.completedSeq, seq)
		seq++
	}
}

// Drained returns the highest sequence S5 has fully aggregated. A caller
// wanting a consistent snapshot (for Chain.SealJournal/snapshot) waits until
// this equals the producer's last published sequence.
func (p *Pipeline) Drained() uint64 {
	return atomic.LoadUint64(&p.completedSeq)
}

// specFor looks up symbolID's trading spec, or the zero value if Symbols is
// nil or the symbol isn't registered (e.g. ORDER_BOOK_REQUEST/admin kinds
// that risk's switch no-ops on anyway).
func (p *Pipeline) specFor(symbolID int32) symbol.Spec {
	if p.cfg.Symbols == nil {
		return symbol.Spec{}
	}
	spec, _ := p.cfg.Symbols.GetSymbolSpecification(symbolID)
	return spec
}

func shardOf(key uint64, shardCount int) int {
	if shardCount <= 1 {
		return 0
	}
	return int(key % uint64(shardCount))
}
