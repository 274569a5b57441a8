package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishav/clob-exchange-core/internal/risk"
)

func newShardWithUser(uid uint64, currency int32, balance, hold int64) *risk.Engine {
	e := risk.NewEngine(risk.Config{Mode: risk.ModeFullPerCurrency})
	p := e.AddUser(uid)
	p.Balances[currency] = balance
	p.Holds[currency] = hold
	return e
}

func TestTotalCurrencyBalanceMergesAcrossShards(t *testing.T) {
	reg := NewRegistry()
	RegisterDefaults(reg)

	shard1 := newShardWithUser(1, 10, 1000, 100)
	shard2 := newShardWithUser(2, 10, 500, 50)

	out, err := reg.Run([]*risk.Engine{shard1, shard2}, Query{Type: TypeTotalCurrencyBalance})
	require.NoError(t, err)

	res := out.(*TotalCurrencyBalanceResult)
	assert.Equal(t, int64(1500), res.AccountBalances[10])
	assert.Equal(t, int64(150), res.Holds[10])
}

func TestSingleUserFoundInSecondShard(t *testing.T) {
	reg := NewRegistry()
	RegisterDefaults(reg)

	shard1 := newShardWithUser(1, 10, 1000, 0)
	shard2 := newShardWithUser(2, 10, 500, 0)

	out, err := reg.Run([]*risk.Engine{shard1, shard2}, Query{Type: TypeSingleUser, UID: 2})
	require.NoError(t, err)

	res := out.(*SingleUserResult)
	assert.True(t, res.Found)
	assert.Equal(t, int64(500), res.Balances[10])
}

func TestSingleUserNotFound(t *testing.T) {
	reg := NewRegistry()
	RegisterDefaults(reg)

	shard1 := newShardWithUser(1, 10, 1000, 0)
	out, err := reg.Run([]*risk.Engine{shard1}, Query{Type: TypeSingleUser, UID: 99})
	require.NoError(t, err)

	res := out.(*SingleUserResult)
	assert.False(t, res.Found)
}

func TestRunUnregisteredTypeErrors(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Run(nil, Query{Type: TypeTotalCurrencyBalance})
	require.Error(t, err)
}
