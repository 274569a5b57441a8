// Package ringbuf implements the pre-allocated, power-of-two ring buffer
// and CAS sequencer that the pipeline is built on top of, generalized
// from the teacher's single-producer/single-consumer disruptor to the
// spec's multi-stage model: one ring of command.Slot, one producer
// cursor, and an arbitrary number of independent stage cursors each
// gating how far the producer may run ahead.
package ringbuf

import (
	"errors"
	"sync/atomic"

	"github.com/rishav/clob-exchange-core/internal/command"
)

// ErrBufferFull is returned when the ring has no free slot for the
// slowest stage's gating sequence.
var ErrBufferFull = errors.New("ringbuf: buffer is full")

// Config configures the ring buffer.
type Config struct {
	// BufferSize is the number of slots; must be a power of two.
	BufferSize uint64
}

// DefaultConfig returns the teacher's own default sizing.
func DefaultConfig() Config {
	return Config{BufferSize: 8192}
}

// entry is one pre-allocated physical slot: a command.Slot plus the
// sequence number currently published into it. published uses the same
// release-store/acquire-load pattern as the teacher's RingBufferSlot.
type entry struct {
	published uint64
	slot      command.Slot
	_         [32]byte // cache-line padding, avoids false sharing between entries
}

// RingBuffer is a lock-free, single-producer, multi-consumer-stage ring
// of command slots.
type RingBuffer struct {
	bufferSize uint64
	indexMask  uint64
	entries    []entry

	cursor uint64 // highest claimed sequence, CAS-updated by the producer

	gates []*StageGate // every stage the producer must not outrun
}

// New creates an empty ring buffer gated by gates — the producer will
// block (return ErrBufferFull) rather than overwrite a slot no gate has
// finished with yet.
func New(cfg Config, gates ...*StageGate) *RingBuffer {
	if cfg.BufferSize == 0 || (cfg.BufferSize&(cfg.BufferSize-1)) != 0 {
		panic("ringbuf: BufferSize must be a power of two")
	}
	return &RingBuffer{
		bufferSize: cfg.BufferSize,
		indexMask:  cfg.BufferSize - 1,
		entries:    make([]entry, cfg.BufferSize),
		gates:      gates,
	}
}

// BufferSize returns the configured ring size.
func (rb *RingBuffer) BufferSize() uint64 {
	return rb.bufferSize
}

// slowestGate returns the minimum cursor across every registered gate,
// or an effectively unbounded value when no gates are registered.
func (rb *RingBuffer) slowestGate() uint64 {
	if len(rb.gates) == 0 {
		return ^uint64(0) >> 1 // effectively unbounded: no consumers to wait for
	}
	min := rb.gates[0].Cursor()
	for _, g := range rb.gates[1:] {
		if c := g.Cursor(); c < min {
			min = c
		}
	}
	return min
}

// Next claims the next sequence number for the producer. It spins briefly
// against a slow consumer before giving up with ErrBufferFull, mirroring
// the teacher's Sequencer.Next.
func (rb *RingBuffer) Next() (uint64, error) {
	const maxSpins = 10000

	for spins := 0; spins < maxSpins; spins++ {
		current := atomic.LoadUint64(&rb.cursor)
		next := current + 1

		gated := rb.slowestGate() + rb.bufferSize
		if next > gated {
			spinWait()
			continue
		}

		if atomic.CompareAndSwapUint64(&rb.cursor, current, next) {
			return next, nil
		}
	}
	return 0, ErrBufferFull
}

// Publish writes the fully-populated slot data into the claimed sequence
// and marks it ready for every stage. fill is called with a pointer to
// the zeroed physical slot so the caller can populate command fields
// in place, without an extra allocation or copy.
func (rb *RingBuffer) Publish(seq uint64, fill func(*command.Slot)) {
	e := &rb.entries[seq&rb.indexMask]
	e.slot = command.Slot{}
	e.slot.Seq = seq
	fill(&e.slot)
	atomic.StoreUint64(&e.published, seq) // release: slot writes happen-before this
}

// Get returns the slot published at seq, blocking the caller's caller
// is not this function's job — callers spin on IsPublished first.
func (rb *RingBuffer) Get(seq uint64) *command.Slot {
	return &rb.entries[seq&rb.indexMask].slot
}

// IsPublished reports whether seq has been published yet (acquire load).
func (rb *RingBuffer) IsPublished(seq uint64) bool {
	e := &rb.entries[seq&rb.indexMask]
	return atomic.LoadUint64(&e.published) == seq
}

// Cursor returns the highest sequence claimed so far.
func (rb *RingBuffer) Cursor() uint64 {
	return atomic.LoadUint64(&rb.cursor)
}
