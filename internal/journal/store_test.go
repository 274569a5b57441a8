package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeState struct {
	Balances map[int32]int64
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "snap.db"))
	require.NoError(t, err)
	defer store.Close()

	in := fakeState{Balances: map[int32]int64{1: 100, 2: 200}}
	require.NoError(t, store.SaveSnapshot("risk", 0, 10, in))

	var out fakeState
	found, err := store.LoadSnapshot("risk", 0, 10, &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in.Balances, out.Balances)
}

func TestLoadSnapshotMissingReturnsFalse(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "snap.db"))
	require.NoError(t, err)
	defer store.Close()

	var out fakeState
	found, err := store.LoadSnapshot("risk", 0, 99, &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLatestSnapshotSeqTracksHighest(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "snap.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveSnapshot("matching", 1, 5, fakeState{}))
	require.NoError(t, store.SaveSnapshot("matching", 1, 20, fakeState{}))
	require.NoError(t, store.SaveSnapshot("matching", 1, 12, fakeState{}))

	seq, found, err := store.LatestSnapshotSeq("matching", 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(20), seq)
}

func TestLatestSnapshotSeqSeparatesInstances(t *testing.T) {
	store, err := OpenStore(filepath.Join(t.TempDir(), "snap.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveSnapshot("risk", 0, 7, fakeState{}))
	_, found, err := store.LatestSnapshotSeq("risk", 1)
	require.NoError(t, err)
	assert.False(t, found)
}
