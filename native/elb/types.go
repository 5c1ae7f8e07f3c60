package elb

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"yakisoba/native/stableswap"
)

// PooledToken is one leg of the pool. Index 0 is virtual and never custodies
// tokens; its balance is a synthetic counter. Index 1 is the yield-bearing
// wrapped reserve.
type PooledToken struct {
	// Address identifies the token contract; zero for the virtual leg.
	Address common.Address
	// Decimals of the token, capped at stableswap.MaxDecimals.
	Decimals uint8
	// Multiplier normalizes raw amounts to pool precision.
	Multiplier *big.Int
	// Balance is the accounted raw balance of this leg.
	Balance *big.Int
}

// SwapState is the persisted pool state.
type SwapState struct {
	Tokens     [stableswap.NumTokens]PooledToken
	Underlying [stableswap.NumTokens]common.Address
	Amp        *stableswap.Amplification
	// SwapFeeBps is charged on every swap output; AdminFeeBps is the share
	// of that fee routed to the admin fee pot (raw real-leg units).
	SwapFeeBps  uint64
	AdminFeeBps uint64
	AdminFees   *big.Int
	// LPSupply counts nominal virtual-LP units at pool precision.
	LPSupply *big.Int
	Migrated bool
}

// Copy returns a deep copy so callers cannot mutate shared pool state.
func (s *SwapState) Copy() *SwapState {
	if s == nil {
		return nil
	}
	clone := *s
	for i := range s.Tokens {
		if s.Tokens[i].Multiplier != nil {
			clone.Tokens[i].Multiplier = new(big.Int).Set(s.Tokens[i].Multiplier)
		}
		if s.Tokens[i].Balance != nil {
			clone.Tokens[i].Balance = new(big.Int).Set(s.Tokens[i].Balance)
		}
	}
	clone.Amp = s.Amp.Copy()
	if s.AdminFees != nil {
		clone.AdminFees = new(big.Int).Set(s.AdminFees)
	}
	if s.LPSupply != nil {
		clone.LPSupply = new(big.Int).Set(s.LPSupply)
	}
	return &clone
}

func (s *SwapState) balances() [stableswap.NumTokens]*big.Int {
	var out [stableswap.NumTokens]*big.Int
	for i := range s.Tokens {
		out[i] = s.Tokens[i].Balance
	}
	return out
}

func (s *SwapState) multipliers() [stableswap.NumTokens]*big.Int {
	var out [stableswap.NumTokens]*big.Int
	for i := range s.Tokens {
		out[i] = s.Tokens[i].Multiplier
	}
	return out
}

// PoolConfig parameterizes Initialize. The token slices must hold exactly two
// entries ordered virtual-first.
type PoolConfig struct {
	PooledTokens []common.Address
	Underlying   []common.Address
	Decimals     []uint8
	InitialA     uint64
	SwapFeeBps   uint64
	AdminFeeBps  uint64
}

// MigrationOutcome distinguishes a clean migration from one where the yield
// source failed but local state still advanced.
type MigrationOutcome int

const (
	// MigrationBlocked means the call was rejected and nothing changed.
	MigrationBlocked MigrationOutcome = iota
	// MigrationCompleted means all funds were pulled back to the owner.
	MigrationCompleted
	// MigrationExternalFailure means the yield source withdrawal failed; the
	// pool is marked migrated and the residual is recoverable.
	MigrationExternalFailure
)

// YieldSource adapts the external lending market the real leg is parked in.
// Deposit moves reserve assets in and reports the wrapped amount received;
// Withdraw burns wrapped value and reports the reserve assets returned.
type YieldSource interface {
	Deposit(amount *big.Int) (*big.Int, error)
	Withdraw(amount *big.Int) (*big.Int, error)
}
