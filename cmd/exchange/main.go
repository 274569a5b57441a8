// Command exchange boots the matching core described in SPEC_FULL.md:
// symbol registry, shared event-node pool, journal, sharded risk and
// matching engines, and the S1-S5 pipeline wired around one ring
// buffer. There is no HTTP or RPC front end (§1 Non-goals) — this
// binary seeds one demo symbol and a few demo accounts, submits a
// scripted command feed, logs each settled command's result, and logs a
// TOTAL_CURRENCY_BALANCE report before shutting down.
//
// Grounded on the teacher's cmd/server/main.go bootstrap order (event
// log, then engine, then disruptor, then graceful shutdown), trimmed of
// its http.Server/mux wiring.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rishav/clob-exchange-core/internal/command"
	"github.com/rishav/clob-exchange-core/internal/journal"
	"github.com/rishav/clob-exchange-core/internal/matching"
	"github.com/rishav/clob-exchange-core/internal/obs"
	"github.com/rishav/clob-exchange-core/internal/pipeline"
	"github.com/rishav/clob-exchange-core/internal/pool"
	"github.com/rishav/clob-exchange-core/internal/report"
	"github.com/rishav/clob-exchange-core/internal/ringbuf"
	"github.com/rishav/clob-exchange-core/internal/risk"
	"github.com/rishav/clob-exchange-core/internal/symbol"
)

// Config holds the binary's bootstrap configuration.
type Config struct {
	DataDir     string
	BufferSize  uint64
	RiskShards  int
	MatchShards int
	SyncJournal bool
	PoolSize    int
}

// DefaultConfig returns the binary's defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:     "data",
		BufferSize:  8192,
		RiskShards:  2,
		MatchShards: 2,
		SyncJournal: false,
		PoolSize:    4096,
	}
}

const (
	currencyUSD  = 1
	currencyBTC  = 2
	symbolBTCUSD = 1
)

func main() {
	dataDir := flag.String("data-dir", DefaultConfig().DataDir, "directory for journal and snapshot store")
	bufferSize := flag.Uint64("buffer-size", DefaultConfig().BufferSize, "ring buffer size, must be a power of two")
	riskShards := flag.Int("risk-shards", DefaultConfig().RiskShards, "number of risk engine shards")
	matchShards := flag.Int("match-shards", DefaultConfig().MatchShards, "number of matching engine shards")
	syncJournal := flag.Bool("sync-journal", DefaultConfig().SyncJournal, "fsync the journal after every append")
	poolSize := flag.Int("pool-size", DefaultConfig().PoolSize, "max free TradeEvent nodes held by the shared pool")
	flag.Parse()

	cfg := Config{
		DataDir:     *dataDir,
		BufferSize:  *bufferSize,
		RiskShards:  *riskShards,
		MatchShards: *matchShards,
		SyncJournal: *syncJournal,
		PoolSize:    *poolSize,
	}

	log, err := obs.NewLogger()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("exchange exited with error", zap.Error(err))
	}
}

func run(cfg Config, log *zap.Logger) error {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return err
	}

	symbols := symbol.New()
	symbols.AddSymbol(symbol.Spec{
		SymbolID:      symbolBTCUSD,
		Type:          symbol.TypeCurrencyExchangePair,
		BaseCurrency:  currencyBTC,
		QuoteCurrency: currencyUSD,
		BaseScaleK:    1,
		QuoteScaleK:   1,
		TakerFee:      2000, // flat quote units per lot filled
		MakerFee:      1000, // flat quote units per lot filled
	})

	j, err := journal.Open(journal.Config{
		Path: filepath.Join(cfg.DataDir, "commands.journal"),
		Sync: cfg.SyncJournal,
	})
	if err != nil {
		return err
	}
	defer j.Close()

	store, err := journal.OpenStore(filepath.Join(cfg.DataDir, "snapshots"))
	if err != nil {
		return err
	}
	defer store.Close()
	chain := journal.NewChain(int32(cfg.MatchShards), int32(cfg.RiskShards))
	chain.OpenJournal(0, j.LastSequence()+1)

	events := pool.New(cfg.PoolSize)

	riskEngines := make([]*risk.Engine, cfg.RiskShards)
	for i := range riskEngines {
		riskEngines[i] = risk.NewEngine(risk.Config{Mode: risk.ModeFullPerCurrency})
	}

	matchEngines := make([]*matching.Engine, cfg.MatchShards)
	for i := range matchEngines {
		matchEngines[i] = matching.NewEngineWithPool(events)
		matchEngines[i].AddSymbol(symbolBTCUSD)
	}

	seedDemoAccounts(riskEngines)

	reports := report.NewRegistry()
	report.RegisterDefaults(reports)

	pcfg := pipeline.Config{
		RiskShards:     cfg.RiskShards,
		MatchingShards: cfg.MatchShards,
		Symbols:        symbols,
	}

	p := pipeline.New(pcfg, nil, log, j, riskEngines, matchEngines, events, func(slot *command.Slot) {
		log.Info("command settled",
			zap.Uint64("seq", slot.Seq),
			zap.String("kind", slot.Kind.String()),
			zap.String("result", slot.Result().String()))
	})

	rb := ringbuf.New(ringbuf.Config{BufferSize: cfg.BufferSize}, p.Gates()...)
	p.SetRingBuffer(rb)
	p.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	submitDemoFeed(rb, log)

	waitDrained(ctx, p, log)

	if out, err := reports.Run(riskEngines, report.Query{Type: report.TypeTotalCurrencyBalance}); err == nil {
		res := out.(*report.TotalCurrencyBalanceResult)
		log.Info("total currency balance report",
			zap.Any("accountBalances", res.AccountBalances),
			zap.Any("fees", res.Fees))
	}

	chain.SealJournal(p.Drained())
	p.Stop()
	return nil
}

func seedDemoAccounts(shards []*risk.Engine) {
	seed := []struct {
		uid      uint64
		currency int32
		balance  int64
	}{
		{uid: 1, currency: currencyUSD, balance: 1_000_000},
		{uid: 2, currency: currencyUSD, balance: 1_000_000},
		{uid: 1, currency: currencyBTC, balance: 100},
		{uid: 2, currency: currencyBTC, balance: 100},
	}
	for _, s := range seed {
		shard := shards[s.uid%uint64(len(shards))]
		p := shard.AddUser(s.uid)
		p.Balances[s.currency] += s.balance
	}
}

// submitDemoFeed publishes a small resting-order-then-crossing-order
// sequence, standing in for whatever upstream gateway would normally
// produce command slots (out of scope per §1 Non-goals).
func submitDemoFeed(rb *ringbuf.RingBuffer, log *zap.Logger) {
	commands := []func(*command.Slot){
		func(s *command.Slot) {
			s.Kind = command.KindPlaceOrder
			s.SymbolID = symbolBTCUSD
			s.UID = 1
			s.OrderID = 1
			s.Price = 50000
			s.Size = 1
			s.Action = command.ActionAsk
			s.OrderType = command.OrderTypeGTC
			s.TimestampNs = time.Now().UnixNano()
		},
		func(s *command.Slot) {
			s.Kind = command.KindPlaceOrder
			s.SymbolID = symbolBTCUSD
			s.UID = 2
			s.OrderID = 2
			s.Price = 50000
			s.Size = 1
			s.Action = command.ActionBid
			s.OrderType = command.OrderTypeGTC
			s.TimestampNs = time.Now().UnixNano()
		},
	}
	for _, fill := range commands {
		seq, err := rb.Next()
		if err != nil {
			log.Error("failed to claim sequence", zap.Error(err))
			return
		}
		rb.Publish(seq, fill)
	}
}

func waitDrained(ctx context.Context, p *pipeline.Pipeline, log *zap.Logger) {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.Drained() >= 2 {
				return
			}
		}
	}
}
