package journal

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sync"

	"github.com/rishav/clob-exchange-core/internal/command"
)

// record is the on-disk representation of one command slot, written by
// S1 before any later stage observes the slot. Only the producer-owned
// input fields are journaled; resultCode and EventsHead are derived
// deterministically by replaying the command through the same pipeline,
// so persisting them would be redundant (and would let a corrupt replay
// silently diverge from a corrupt journal without either being
// detected).
type record struct {
	Seq             uint64
	TimestampNs     int64
	Kind            command.Kind
	SymbolID        int32
	UID             uint64
	OrderID         uint64
	Price           int64
	Size            int64
	ReserveBidPrice int64
	Action          command.Action
	OrderType       command.OrderType
	BinaryPayload   []byte
	Checksum        uint32
}

func newRecord(slot *command.Slot) record {
	r := record{
		Seq:             slot.Seq,
		TimestampNs:     slot.TimestampNs,
		Kind:            slot.Kind,
		SymbolID:        slot.SymbolID,
		UID:             slot.UID,
		OrderID:         slot.OrderID,
		Price:           slot.Price,
		Size:            slot.Size,
		ReserveBidPrice: slot.ReserveBidPrice,
		Action:          slot.Action,
		OrderType:       slot.OrderType,
	}
	if b, ok := slot.BinaryPayload.([]byte); ok {
		r.BinaryPayload = b
	}
	r.Checksum = crc32.ChecksumIEEE([]byte(fmt.Sprintf("%v", r)))
	return r
}

func (r record) verify() error {
	check := r
	check.Checksum = 0
	if crc32.ChecksumIEEE([]byte(fmt.Sprintf("%v", check))) != r.Checksum {
		return fmt.Errorf("journal: checksum mismatch at seq %d", r.Seq)
	}
	return nil
}

// Log is an append-only, durable command journal: S1 of the pipeline.
// Grounded on the teacher's internal/events/log.go (gob encoding,
// buffered writer, per-record CRC32, sequence-gap detection on replay).
type Log struct {
	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	encoder *gob.Encoder
	path    string
	sync    bool
	lastSeq uint64
}

// Config configures the journal.
type Config struct {
	Path string
	// Sync fsyncs after every append. Off by default, matching the
	// teacher's async-mode default; turn on for durability at the cost
	// of per-command latency.
	Sync bool
}

// Open opens or creates the journal file at cfg.Path and recovers the
// last sequence number already written, so a restarted process can
// detect a gap between the journal tail and the first live command.
func Open(cfg Config) (*Log, error) {
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", cfg.Path, err)
	}
	l := &Log{
		file:   f,
		writer: bufio.NewWriter(f),
		path:   cfg.Path,
		sync:   cfg.Sync,
	}
	l.encoder = gob.NewEncoder(l.writer)
	if err := l.recoverLastSeq(); err != nil {
		f.Close()
		return nil, fmt.Errorf("journal: recover %s: %w", cfg.Path, err)
	}
	return l, nil
}

func (l *Log) recoverLastSeq() error {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	dec := gob.NewDecoder(f)
	for {
		var r record
		if err := dec.Decode(&r); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		l.lastSeq = r.Seq
	}
}

// Append implements pipeline.Journaler: writes slot's input fields as
// one gob record, flushes, and fsyncs if configured to. Sequence gaps
// are not checked on Append (a producer may legitimately
// skip sequence numbers for commands that never reach the journal
// stage, e.g. a ring buffer slot overwritten before publish never
// happens) — gap detection runs on Replay instead, against the
// sequence that was actually written.
func (l *Log) Append(slot *command.Slot) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := newRecord(slot)
	if err := l.encoder.Encode(r); err != nil {
		return fmt.Errorf("journal: encode seq %d: %w", r.Seq, err)
	}
	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("journal: flush seq %d: %w", r.Seq, err)
	}
	if l.sync {
		if err := l.file.Sync(); err != nil {
			return fmt.Errorf("journal: fsync seq %d: %w", r.Seq, err)
		}
	}
	l.lastSeq = r.Seq
	return nil
}

// LastSequence returns the highest sequence number durably appended.
func (l *Log) LastSequence() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastSeq
}

// Sync forces a flush and fsync of any buffered writes.
func (l *Log) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writer.Flush(); err != nil {
		return err
	}
	return l.file.Sync()
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writer.Flush(); err != nil {
		return err
	}
	return l.file.Close()
}

// Replay reads every record from seq fromSeq onward (inclusive) and
// calls handler for each, in order, stopping at the first error. Used
// both for full startup replay (fromSeq = snapshot.Seq+1) and for the
// determinism check of replaying a live journal against a second,
// independent pipeline instance.
func (l *Log) Replay(fromSeq uint64, handler func(*command.Slot) error) error {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("journal: open for replay: %w", err)
	}
	defer f.Close()

	dec := gob.NewDecoder(f)
	var lastSeq uint64
	for {
		var r record
		if err := dec.Decode(&r); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("journal: decode during replay: %w", err)
		}
		if lastSeq > 0 && r.Seq != lastSeq+1 {
			return fmt.Errorf("journal: sequence gap, expected %d got %d", lastSeq+1, r.Seq)
		}
		lastSeq = r.Seq
		if err := r.verify(); err != nil {
			return err
		}
		if r.Seq < fromSeq {
			continue
		}
		slot := &command.Slot{
			Seq:             r.Seq,
			TimestampNs:     r.TimestampNs,
			Kind:            r.Kind,
			SymbolID:        r.SymbolID,
			UID:             r.UID,
			OrderID:         r.OrderID,
			Price:           r.Price,
			Size:            r.Size,
			ReserveBidPrice: r.ReserveBidPrice,
			Action:          r.Action,
			OrderType:       r.OrderType,
		}
		if r.BinaryPayload != nil {
			slot.BinaryPayload = r.BinaryPayload
		}
		if err := handler(slot); err != nil {
			return fmt.Errorf("journal: replay handler at seq %d: %w", r.Seq, err)
		}
	}
}
