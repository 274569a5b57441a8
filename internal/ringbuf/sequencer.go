package ringbuf

import (
	"runtime"
	"sync/atomic"
)

func spinWait() {
	runtime.Gosched()
}

// StageGate tracks how far one pipeline stage has progressed. A stage
// with N shards (e.g. risk pre-check sharded by uid, matching sharded by
// symbol) registers N shard cursors; the gate's overall Cursor() is the
// minimum across shards, so the stage as a whole only advances past a
// sequence once every shard has finished it — matching the spec's rule
// that a stage only advances past seq s once every shard of that stage
// has finished s.
type StageGate struct {
	shardCursors []uint64
}

// NewStageGate creates a gate with shardCount independent shard cursors,
// all starting at 0 (nothing processed).
func NewStageGate(shardCount int) *StageGate {
	if shardCount < 1 {
		shardCount = 1
	}
	return &StageGate{shardCursors: make([]uint64, shardCount)}
}

// Advance records that shard has finished processing seq. Sequences
// within a shard must be advanced in order; this stores unconditionally
// since each shard is only ever touched by its own single goroutine.
func (g *StageGate) Advance(shard int, seq uint64) {
	atomic.StoreUint64(&g.shardCursors[shard], seq)
}

// ShardCursor returns how far shard has progressed.
func (g *StageGate) ShardCursor(shard int) uint64 {
	return atomic.LoadUint64(&g.shardCursors[shard])
}

// Cursor returns the minimum cursor across every shard: the sequence the
// stage as a whole has fully finished.
func (g *StageGate) Cursor() uint64 {
	min := atomic.LoadUint64(&g.shardCursors[0])
	for i := 1; i < len(g.shardCursors); i++ {
		if c := atomic.LoadUint64(&g.shardCursors[i]); c < min {
			min = c
		}
	}
	return min
}

// ShardCount returns the number of shards this gate tracks.
func (g *StageGate) ShardCount() int {
	return len(g.shardCursors)
}
