package pipeline

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rishav/clob-exchange-core/internal/command"
	"github.com/rishav/clob-exchange-core/internal/matching"
	"github.com/rishav/clob-exchange-core/internal/ringbuf"
	"github.com/rishav/clob-exchange-core/internal/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJournal struct {
	appended []uint64
}

func (f *fakeJournal) Append(slot *command.Slot) error {
	f.appended = append(f.appended, slot.Seq)
	return nil
}

func TestPipelineEndToEndPlaceOrder(t *testing.T) {
	riskEngine := risk.NewEngine(risk.Config{Mode: risk.ModeNoRiskProcessing})
	matchEngine := matching.NewEngine()
	matchEngine.AddSymbol(1)

	var results []*command.Slot
	j := &fakeJournal{}

	p := New(Config{}, nil, zap.NewNop(), j, []*risk.Engine{riskEngine}, []*matching.Engine{matchEngine}, nil,
		func(s *command.Slot) { results = append(results, s) })

	rb := ringbuf.New(ringbuf.Config{BufferSize: 16}, p.Gates()...)
	p.SetRingBuffer(rb)
	p.Start()
	defer p.Stop()

	seq, err := rb.Next()
	require.NoError(t, err)
	rb.Publish(seq, func(s *command.Slot) {
		s.Kind = command.KindPlaceOrder
		s.SymbolID = 1
		s.UID = 1
		s.OrderID = 1
		s.Price = 100
		s.Size = 5
		s.Action = command.ActionBid
		s.OrderType = command.OrderTypeGTC
	})

	require.Eventually(t, func() bool { return p.Drained() >= seq }, time.Second, time.Millisecond)

	require.Len(t, results, 1)
	assert.Equal(t, command.ResultSuccess, results[0].Result())
	assert.Equal(t, []uint64{seq}, j.appended)
	assert.Equal(t, int64(100), matchEngine.Book(1).GetBestBid().Price)
}

func TestShardOf(t *testing.T) {
	assert.Equal(t, 0, shardOf(5, 1))
	assert.Equal(t, 1, shardOf(5, 2))
	assert.Equal(t, 0, shardOf(4, 2))
}
