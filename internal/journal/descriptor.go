// Package journal implements S1 (command journaling) and the
// snapshot/replay protocol described in SPEC_FULL.md §4.4, grounded on
// the teacher's internal/events/log.go (gob-encoded, CRC32-checked,
// sequence-gapped append log) for the record format and on
// original_source's JournalDescriptor.h/SnapshotDescriptor.h for the
// descriptor chain shape.
package journal

// JournalDescriptor describes one journal segment: the range of
// sequence numbers it covers and the snapshot it is based on.
//
// The original C++ links these with raw pointers (JournalDescriptor.h).
// Per SPEC_FULL.md's redesign note, this port keeps the same prev/next
// chain but as integer indices into Chain's append-only slice, so the
// descriptor set stays trivially copyable, comparable, and free of
// dangling pointers across a process restart.
type JournalDescriptor struct {
	TimestampNs int64
	SeqFirst    uint64
	SeqLast     uint64 // 0 means not sealed yet
	Sealed      bool

	BaseSnapshot int // index into Chain.snapshots, -1 if none

	prev int // index into Chain.journals, -1 if none
	next int // index into Chain.journals, -1 if none
}

// SnapshotDescriptor describes one snapshot artifact: the sequence
// number it was taken at and the shard counts it was taken with (a
// snapshot taken with N risk shards cannot be replayed against a
// pipeline configured with a different N).
type SnapshotDescriptor struct {
	SnapshotID  int64 // 0 means the empty bootstrap snapshot
	Seq         uint64
	TimestampNs int64

	NumMatchingEngines int32
	NumRiskEngines     int32

	prev int // index into Chain.snapshots, -1 if none
	next int // index into Chain.snapshots, -1 if none
}

// Chain is the append-only descriptor history for one exchange
// instance: every snapshot ever taken and every journal segment ever
// opened, addressable by (snapshotId, seq) identity rather than by
// pointer chasing.
type Chain struct {
	snapshots []SnapshotDescriptor
	journals  []JournalDescriptor
}

// NewChain returns a chain seeded with the empty bootstrap snapshot
// (snapshotId 0, seq 0), matching SnapshotDescriptor::CreateEmpty.
func NewChain(numMatchingEngines, numRiskEngines int32) *Chain {
	return &Chain{
		snapshots: []SnapshotDescriptor{{
			SnapshotID:         0,
			Seq:                0,
			NumMatchingEngines: numMatchingEngines,
			NumRiskEngines:     numRiskEngines,
			prev:               -1,
			next:               -1,
		}},
	}
}

// LatestSnapshot returns the most recently appended snapshot descriptor.
func (c *Chain) LatestSnapshot() SnapshotDescriptor {
	return c.snapshots[len(c.snapshots)-1]
}

// AppendSnapshot records a new snapshot taken at seq, chained after the
// current latest snapshot.
func (c *Chain) AppendSnapshot(snapshotID int64, seq uint64, timestampNs int64) SnapshotDescriptor {
	prevIdx := len(c.snapshots) - 1
	prev := c.snapshots[prevIdx]
	next := SnapshotDescriptor{
		SnapshotID:         snapshotID,
		Seq:                seq,
		TimestampNs:        timestampNs,
		NumMatchingEngines: prev.NumMatchingEngines,
		NumRiskEngines:     prev.NumRiskEngines,
		prev:               prevIdx,
		next:               -1,
	}
	c.snapshots[prevIdx].next = len(c.snapshots)
	c.snapshots = append(c.snapshots, next)
	return next
}

// OpenJournal starts a new journal segment based on the chain's latest
// snapshot, linked after the previous journal segment (if any).
func (c *Chain) OpenJournal(timestampNs int64, seqFirst uint64) *JournalDescriptor {
	prevIdx := -1
	if len(c.journals) > 0 {
		prevIdx = len(c.journals) - 1
	}
	jd := JournalDescriptor{
		TimestampNs:  timestampNs,
		SeqFirst:     seqFirst,
		BaseSnapshot: len(c.snapshots) - 1,
		prev:         prevIdx,
		next:         -1,
	}
	if prevIdx >= 0 {
		c.journals[prevIdx].next = len(c.journals)
	}
	c.journals = append(c.journals, jd)
	return &c.journals[len(c.journals)-1]
}

// SealJournal marks the current (last-opened) journal segment's final
// sequence number, closing it to further appends.
func (c *Chain) SealJournal(seqLast uint64) {
	if len(c.journals) == 0 {
		return
	}
	last := &c.journals[len(c.journals)-1]
	last.SeqLast = seqLast
	last.Sealed = true
}

// CurrentJournal returns the most recently opened journal descriptor,
// and false if none has been opened yet.
func (c *Chain) CurrentJournal() (JournalDescriptor, bool) {
	if len(c.journals) == 0 {
		return JournalDescriptor{}, false
	}
	return c.journals[len(c.journals)-1], true
}

// Snapshots returns every snapshot descriptor in append order.
func (c *Chain) Snapshots() []SnapshotDescriptor {
	out := make([]SnapshotDescriptor, len(c.snapshots))
	copy(out, c.snapshots)
	return out
}

// Journals returns every journal descriptor in append order.
func (c *Chain) Journals() []JournalDescriptor {
	out := make([]JournalDescriptor, len(c.journals))
	copy(out, c.journals)
	return out
}
