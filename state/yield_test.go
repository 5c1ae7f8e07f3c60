package state

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"yakisoba/storage"
)

func TestAccountYieldSourceCustody(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	holder := common.HexToAddress("0x00000000000000000000000000000000000000f1")
	source := NewAccountYieldSource(manager, holder)

	received, err := source.Deposit(big.NewInt(500))
	require.NoError(t, err)
	require.Equal(t, int64(500), received.Int64())

	held, err := source.Held()
	require.NoError(t, err)
	require.Equal(t, int64(500), held.Int64())

	// Over-withdrawal is capped at custody.
	released, err := source.Withdraw(big.NewInt(800))
	require.NoError(t, err)
	require.Equal(t, int64(500), released.Int64())

	held, err = source.Held()
	require.NoError(t, err)
	require.Zero(t, held.Sign())

	out, err := source.Deposit(nil)
	require.NoError(t, err)
	require.Zero(t, out.Sign())
}

func TestAccountYieldSourceSurvivesReload(t *testing.T) {
	db := storage.NewMemDB()
	holder := common.HexToAddress("0x00000000000000000000000000000000000000f2")

	first := NewAccountYieldSource(NewManager(db), holder)
	_, err := first.Deposit(big.NewInt(1234))
	require.NoError(t, err)

	// A fresh manager over the same database sees the custody balance.
	second := NewAccountYieldSource(NewManager(db), holder)
	held, err := second.Held()
	require.NoError(t, err)
	require.Equal(t, int64(1234), held.Int64())
}
