// Package pool implements SharedPool: a bounded free list of event-chain
// nodes reused across commands to keep the matching hot path allocation
// free. Grounded on the pool sizing/discard semantics of the original
// SharedPool (GetChain/PutChain/DeleteChain), reimplemented here as a
// Go channel-backed MPMC queue in the style of the teacher's own
// buffered-channel backpressure (internal/disruptor's batch queue).
package pool

import "github.com/rishav/clob-exchange-core/internal/command"

// Pool is a bounded, concurrency-safe free list of TradeEvent chain
// nodes. A channel backs the free list: Go channels are already a safe
// MPMC queue, so no additional locking is needed.
type Pool struct {
	free    chan *command.TradeEvent
	maxSize int
}

// New creates a pool that holds at most maxSize free nodes; puts beyond
// that are discarded rather than blocking the caller.
func New(maxSize int) *Pool {
	return &Pool{
		free:    make(chan *command.TradeEvent, maxSize),
		maxSize: maxSize,
	}
}

// GetChain returns a free node, allocating a new one if the pool is
// empty.
func (p *Pool) GetChain() *command.TradeEvent {
	select {
	case ev := <-p.free:
		*ev = command.TradeEvent{}
		return ev
	default:
		return &command.TradeEvent{}
	}
}

// PutChain returns every node in the chain starting at head to the pool,
// discarding any that don't fit once the pool reaches maxSize.
func (p *Pool) PutChain(head *command.TradeEvent) {
	for ev := head; ev != nil; {
		next := ev.NextEvent
		ev.NextEvent = nil
		select {
		case p.free <- ev:
		default:
			// pool full: discard, let GC reclaim
		}
		ev = next
	}
}

// Len returns the number of nodes currently held free (approximate under
// concurrent use, exposed for tests and metrics only).
func (p *Pool) Len() int {
	return len(p.free)
}

// MaxSize returns the configured bound.
func (p *Pool) MaxSize() int {
	return p.maxSize
}
