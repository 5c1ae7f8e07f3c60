package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Account tracks the balances held by a participant of the vault system.
// Amounts are denominated in the reserve asset's smallest unit and expressed
// as big integers to match on-chain precision.
type Account struct {
	// Address is the unique identifier of the account.
	Address common.Address
	// Balance is the reserve-asset balance available to the account.
	Balance *big.Int
	// NativeBalance holds the native (gas) currency used to fund cross-chain
	// message fees.
	NativeBalance *big.Int
}

// NewAccount returns a zeroed account for the given address.
func NewAccount(addr common.Address) *Account {
	return &Account{
		Address:       addr,
		Balance:       big.NewInt(0),
		NativeBalance: big.NewInt(0),
	}
}

// Normalize replaces nil balance pointers with zero values so callers can
// operate on the account without nil checks.
func (a *Account) Normalize() *Account {
	if a == nil {
		return nil
	}
	if a.Balance == nil {
		a.Balance = big.NewInt(0)
	}
	if a.NativeBalance == nil {
		a.NativeBalance = big.NewInt(0)
	}
	return a
}

// Copy returns a deep copy to avoid callers mutating shared pointers.
func (a *Account) Copy() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	if a.NativeBalance != nil {
		clone.NativeBalance = new(big.Int).Set(a.NativeBalance)
	}
	return &clone
}
