package command

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"
)

// Frame writes a length-prefixed, big-endian payload: a 4-byte length
// followed by the payload bytes. Big-endian matches the cross-replica
// journal/wire format required by spec §6.
func Frame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame written by Frame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}
	return payload, nil
}

// SymbolBatchEntry is one row of a BatchAddSymbols binary command,
// grounded on original_source's BatchAddSymbolsCommand.cpp.
type SymbolBatchEntry struct {
	SymbolID      int32
	Type          uint8 // symbol.Type: 0 = CURRENCY_EXCHANGE_PAIR, 1 = FUTURES_CONTRACT
	BaseCurrency  int32
	QuoteCurrency int32
	BaseScaleK    int64
	QuoteScaleK   int64
	MarginBuy     int64
	MarginSell    int64
	TakerFee      int64
	MakerFee      int64
}

// AccountBatchEntry is one row of a BatchAddAccounts binary command,
// grounded on original_source's BatchAddAccountsCommand.cpp.
type AccountBatchEntry struct {
	UID      uint64
	Currency int32
	Balance  int64
}

// EncodeSymbolBatch writes an int32 count followed by fixed-width entries,
// big-endian, per spec §6's collection framing rule.
func EncodeSymbolBatch(entries []SymbolBatchEntry) []byte {
	buf := make([]byte, 0, 4+len(entries)*56)
	buf = appendU32(buf, uint32(len(entries)))
	for _, e := range entries {
		buf = appendI32(buf, e.SymbolID)
		buf = append(buf, e.Type)
		buf = appendI32(buf, e.BaseCurrency)
		buf = appendI32(buf, e.QuoteCurrency)
		buf = appendI64(buf, e.BaseScaleK)
		buf = appendI64(buf, e.QuoteScaleK)
		buf = appendI64(buf, e.MarginBuy)
		buf = appendI64(buf, e.MarginSell)
		buf = appendI64(buf, e.TakerFee)
		buf = appendI64(buf, e.MakerFee)
	}
	return buf
}

// DecodeSymbolBatch decodes the wire format produced by EncodeSymbolBatch
// and returns entries sorted by SymbolID. The wire order of a batch is
// unspecified (spec §6 / §9 "bag equality"); sorting here makes command
// application order independent of producer map-iteration order.
func DecodeSymbolBatch(buf []byte) ([]SymbolBatchEntry, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("symbol batch: truncated count")
	}
	n := binary.BigEndian.Uint32(buf)
	buf = buf[4:]
	out := make([]SymbolBatchEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		if len(buf) < 61 {
			return nil, fmt.Errorf("symbol batch: truncated entry %d", i)
		}
		var e SymbolBatchEntry
		e.SymbolID = int32(binary.BigEndian.Uint32(buf))
		buf = buf[4:]
		e.Type = buf[0]
		buf = buf[1:]
		e.BaseCurrency = int32(binary.BigEndian.Uint32(buf))
		buf = buf[4:]
		e.QuoteCurrency = int32(binary.BigEndian.Uint32(buf))
		buf = buf[4:]
		e.BaseScaleK = int64(binary.BigEndian.Uint64(buf))
		buf = buf[8:]
		e.QuoteScaleK = int64(binary.BigEndian.Uint64(buf))
		buf = buf[8:]
		e.MarginBuy = int64(binary.BigEndian.Uint64(buf))
		buf = buf[8:]
		e.MarginSell = int64(binary.BigEndian.Uint64(buf))
		buf = buf[8:]
		e.TakerFee = int64(binary.BigEndian.Uint64(buf))
		buf = buf[8:]
		e.MakerFee = int64(binary.BigEndian.Uint64(buf))
		buf = buf[8:]
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SymbolID < out[j].SymbolID })
	return out, nil
}

// EncodeAccountBatch writes an int32 count followed by fixed-width entries.
func EncodeAccountBatch(entries []AccountBatchEntry) []byte {
	buf := make([]byte, 0, 4+len(entries)*20)
	buf = appendU32(buf, uint32(len(entries)))
	for _, e := range entries {
		buf = appendU64(buf, e.UID)
		buf = appendI32(buf, e.Currency)
		buf = appendI64(buf, e.Balance)
	}
	return buf
}

// DecodeAccountBatch decodes the wire format and returns entries sorted by
// (UID, Currency) for the same bag-equality reason as DecodeSymbolBatch.
func DecodeAccountBatch(buf []byte) ([]AccountBatchEntry, error) {
	if len(buf) < 4 {
		return nil, fmt.Errorf("account batch: truncated count")
	}
	n := binary.BigEndian.Uint32(buf)
	buf = buf[4:]
	out := make([]AccountBatchEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		if len(buf) < 20 {
			return nil, fmt.Errorf("account batch: truncated entry %d", i)
		}
		var e AccountBatchEntry
		e.UID = binary.BigEndian.Uint64(buf)
		buf = buf[8:]
		e.Currency = int32(binary.BigEndian.Uint32(buf))
		buf = buf[4:]
		e.Balance = int64(binary.BigEndian.Uint64(buf))
		buf = buf[8:]
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UID != out[j].UID {
			return out[i].UID < out[j].UID
		}
		return out[i].Currency < out[j].Currency
	})
	return out, nil
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendI32(buf []byte, v int32) []byte { return appendU32(buf, uint32(v)) }

func appendU64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendI64(buf []byte, v int64) []byte { return appendU64(buf, uint64(v)) }
