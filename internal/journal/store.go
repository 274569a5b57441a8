package journal

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Store persists snapshot blobs keyed by (module, instanceId, seq),
// grounded on uhyunpark-hyperlicked/pkg/storage/pebble_store.go's
// prefix-keyed pebble.Set/Get idiom. The journal log itself stays a
// flat file (matching the teacher's append-only event log); Store only
// holds the point-in-time snapshots that let replay start later than
// seq 0.
type Store struct {
	db *pebble.DB
}

// OpenStore opens (or creates) a pebble database at path.
func OpenStore(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("journal store: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// snapshotKey formats a sortable key: "snap:<module>:" followed by the
// big-endian 4-byte instanceId and 8-byte seq, with no separator between them.
func snapshotKey(module string, instanceID int32, seq uint64) []byte {
	key := append([]byte("snap:"+module+":"), encodeI32(instanceID)...)
	return append(key, encodeU64(seq)...)
}

func encodeI32(v int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

func encodeU64(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// SaveSnapshot gob-encodes state and persists it under (module,
// instanceId, seq), fsyncing so a crash right after a successful
// SaveSnapshot never leaves a torn write.
func (s *Store) SaveSnapshot(module string, instanceID int32, seq uint64, state interface{}) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return fmt.Errorf("journal store: encode snapshot: %w", err)
	}
	key := snapshotKey(module, instanceID, seq)
	if err := s.db.Set(key, buf.Bytes(), pebble.Sync); err != nil {
		return fmt.Errorf("journal store: set snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot decodes the snapshot at (module, instanceId, seq) into
// out (a pointer), returning false if no such snapshot exists.
func (s *Store) LoadSnapshot(module string, instanceID int32, seq uint64, out interface{}) (bool, error) {
	key := snapshotKey(module, instanceID, seq)
	val, closer, err := s.db.Get(key)
	if err != nil {
		if err == pebble.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("journal store: get snapshot: %w", err)
	}
	defer closer.Close()
	if err := gob.NewDecoder(bytes.NewReader(val)).Decode(out); err != nil {
		return false, fmt.Errorf("journal store: decode snapshot: %w", err)
	}
	return true, nil
}

// LatestSnapshotSeq scans the (module, instanceId) prefix and returns
// the highest seq with a persisted snapshot, or false if none exists.
func (s *Store) LatestSnapshotSeq(module string, instanceID int32) (uint64, bool, error) {
	prefix := append([]byte("snap:"+module+":"), encodeI32(instanceID)...)
	upper := append(append([]byte{}, prefix...), 0xff)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return 0, false, fmt.Errorf("journal store: iter: %w", err)
	}
	defer iter.Close()

	found := false
	var best uint64
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(key) < len(prefix)+8 {
			continue
		}
		seq := binary.BigEndian.Uint64(key[len(prefix):])
		if !found || seq > best {
			best = seq
			found = true
		}
	}
	return best, found, nil
}
