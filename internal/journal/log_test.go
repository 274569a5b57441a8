package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishav/clob-exchange-core/internal/command"
)

func TestAppendThenReplayRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.log")
	l, err := Open(Config{Path: path})
	require.NoError(t, err)

	slot1 := &command.Slot{Seq: 1, Kind: command.KindPlaceOrder, SymbolID: 1, UID: 7, OrderID: 100, Price: 50, Size: 3, Action: command.ActionBid}
	slot2 := &command.Slot{Seq: 2, Kind: command.KindCancelOrder, SymbolID: 1, UID: 7, OrderID: 100}

	require.NoError(t, l.Append(slot1))
	require.NoError(t, l.Append(slot2))
	require.NoError(t, l.Close())

	l2, err := Open(Config{Path: path})
	require.NoError(t, err)
	defer l2.Close()
	assert.Equal(t, uint64(2), l2.LastSequence())

	var replayed []*command.Slot
	err = l2.Replay(1, func(s *command.Slot) error {
		replayed = append(replayed, s)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, replayed, 2)
	assert.Equal(t, uint64(100), replayed[0].OrderID)
	assert.Equal(t, command.KindCancelOrder, replayed[1].Kind)
}

func TestReplayFromSeqSkipsEarlierRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.log")
	l, err := Open(Config{Path: path})
	require.NoError(t, err)
	defer l.Close()

	for seq := uint64(1); seq <= 5; seq++ {
		require.NoError(t, l.Append(&command.Slot{Seq: seq, Kind: command.KindNop}))
	}

	var seqs []uint64
	require.NoError(t, l.Replay(4, func(s *command.Slot) error {
		seqs = append(seqs, s.Seq)
		return nil
	}))
	assert.Equal(t, []uint64{4, 5}, seqs)
}

func TestReplayEmptyJournalIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.log")
	l := &Log{path: path}
	called := false
	require.NoError(t, l.Replay(0, func(s *command.Slot) error {
		called = true
		return nil
	}))
	assert.False(t, called)
}

func TestBinaryPayloadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.log")
	l, err := Open(Config{Path: path})
	require.NoError(t, err)
	defer l.Close()

	payload := command.EncodeSymbolBatch([]command.SymbolBatchEntry{{SymbolID: 1}})
	require.NoError(t, l.Append(&command.Slot{Seq: 1, Kind: command.KindBinaryData, BinaryPayload: payload}))

	var got *command.Slot
	require.NoError(t, l.Replay(1, func(s *command.Slot) error {
		got = s
		return nil
	}))
	require.NotNil(t, got)
	assert.Equal(t, payload, got.BinaryPayload)
}
