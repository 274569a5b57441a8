package symbol

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func digestFNV(s Spec) uint32 {
	b := []byte(s.String())
	return crc32.ChecksumIEEE(b)
}

func TestAddSymbolOnce(t *testing.T) {
	p := New()
	require.True(t, p.AddSymbol(Spec{SymbolID: 1, TakerFee: 10}))
	assert.False(t, p.AddSymbol(Spec{SymbolID: 1, TakerFee: 999}), "duplicate add must be rejected")

	got, ok := p.GetSymbolSpecification(1)
	require.True(t, ok)
	assert.Equal(t, int64(10), got.TakerFee, "first add wins, duplicate must not overwrite")
}

func TestGetSymbolSpecificationMissing(t *testing.T) {
	p := New()
	_, ok := p.GetSymbolSpecification(42)
	assert.False(t, ok)
}

func TestResetClearsAll(t *testing.T) {
	p := New()
	p.AddSymbol(Spec{SymbolID: 1})
	p.AddSymbol(Spec{SymbolID: 2})
	require.Equal(t, 2, p.Count())

	p.Reset()
	assert.Equal(t, 0, p.Count())
	_, ok := p.GetSymbolSpecification(1)
	assert.False(t, ok)
}

func TestStateHashOrderIndependent(t *testing.T) {
	p1 := New()
	p1.AddSymbol(Spec{SymbolID: 1, TakerFee: 5})
	p1.AddSymbol(Spec{SymbolID: 2, TakerFee: 7})

	p2 := New()
	p2.AddSymbol(Spec{SymbolID: 2, TakerFee: 7})
	p2.AddSymbol(Spec{SymbolID: 1, TakerFee: 5})

	assert.Equal(t, p1.StateHash(digestFNV), p2.StateHash(digestFNV),
		"state hash must not depend on insertion order")
}

func TestStateHashChangesOnMutation(t *testing.T) {
	p := New()
	p.AddSymbol(Spec{SymbolID: 1, TakerFee: 5})
	h1 := p.StateHash(digestFNV)

	p.AddSymbol(Spec{SymbolID: 2, TakerFee: 7})
	h2 := p.StateHash(digestFNV)

	assert.NotEqual(t, h1, h2)
}
