package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"yakisoba/native/elb"
)

const (
	// UnlockWindow is the period over which anticipated remote profit is
	// released linearly into the share price.
	UnlockWindow = 2 * 24 * 60 * 60

	// SecondsPerYear scales the management fee accrual.
	SecondsPerYear = 365 * 24 * 60 * 60

	feeDenominator = 10_000

	// dispatchFloorBps is the lowest slippage bound a dispatch may carry,
	// as a fraction of the dispatched amount.
	dispatchFloorBps = 9_700

	// Hard fee ceilings.
	MaxPerformanceFeeBps = 10_000
	MaxManagementFeeBps  = 10_000
	MaxWithdrawFeeBps    = 2_000
)

// FeeConfig bundles the three vault fee rates, all in basis points.
type FeeConfig struct {
	PerformanceBps uint64
	ManagementBps  uint64
	WithdrawBps    uint64
}

// ChainRecord tracks the debt owed by a remote allocator and the routing used
// to reach it. Debt survives routing updates.
type ChainRecord struct {
	ChainID         uint64
	Debt            *big.Int
	MaxDeposit      *big.Int
	Bridge          common.Address
	RemoteAllocator common.Address
	RemoteBridge    common.Address
}

func (c *ChainRecord) normalize() *ChainRecord {
	if c.Debt == nil {
		c.Debt = big.NewInt(0)
	}
	if c.MaxDeposit == nil {
		c.MaxDeposit = big.NewInt(0)
	}
	return c
}

// LiquidityPoolRecord tracks the value parked in the elastic liquidity pool.
// Debt is the vault's claim on the pool, Liquidity the configured target band.
type LiquidityPoolRecord struct {
	Pool      common.Address
	Debt      *big.Int
	Liquidity *big.Int
	LPUnits   *big.Int
	Enabled   bool
}

func (r *LiquidityPoolRecord) normalize() *LiquidityPoolRecord {
	if r.Debt == nil {
		r.Debt = big.NewInt(0)
	}
	if r.Liquidity == nil {
		r.Liquidity = big.NewInt(0)
	}
	if r.LPUnits == nil {
		r.LPUnits = big.NewInt(0)
	}
	return r
}

// SnapshotEntry records a balance as it stood immediately before the first
// change following snapshot ID.
type SnapshotEntry struct {
	ID    uint64
	Value *big.Int
}

// ShareAccount is a share-token balance with its snapshot history.
type ShareAccount struct {
	Address   common.Address
	Balance   *big.Int
	Snapshots []SnapshotEntry
}

func NewShareAccount(addr common.Address) *ShareAccount {
	return &ShareAccount{Address: addr, Balance: big.NewInt(0)}
}

func (a *ShareAccount) normalize() *ShareAccount {
	if a.Balance == nil {
		a.Balance = big.NewInt(0)
	}
	return a
}

// VaultState is the persistent accounting state of the yakisoba vault.
type VaultState struct {
	Asset         common.Address
	AssetDecimals uint8
	LocalChainID  uint64

	TotalSupply    *big.Int
	MaxTotalAssets *big.Int
	Paused         bool

	Fees                 FeeConfig
	CheckpointSharePrice *big.Int
	CheckpointTime       int64

	AnticipatedProfit *big.Int
	LastProfitUpdate  int64

	Pool   *LiquidityPoolRecord
	Chains map[uint64]*ChainRecord

	SnapshotID      uint64
	SupplySnapshots []SnapshotEntry

	StrayTokens map[common.Address]*big.Int
}

func (s *VaultState) normalize() *VaultState {
	if s.TotalSupply == nil {
		s.TotalSupply = big.NewInt(0)
	}
	if s.MaxTotalAssets == nil {
		s.MaxTotalAssets = big.NewInt(0)
	}
	if s.CheckpointSharePrice == nil {
		s.CheckpointSharePrice = big.NewInt(0)
	}
	if s.AnticipatedProfit == nil {
		s.AnticipatedProfit = big.NewInt(0)
	}
	if s.Chains == nil {
		s.Chains = make(map[uint64]*ChainRecord)
	}
	if s.StrayTokens == nil {
		s.StrayTokens = make(map[common.Address]*big.Int)
	}
	if s.Pool != nil {
		s.Pool.normalize()
	}
	for _, rec := range s.Chains {
		rec.normalize()
	}
	return s
}

// LiquidityPool is the surface the vault needs from the elastic liquidity
// pool engine.
type LiquidityPool interface {
	AddLiquidity(caller common.Address, amount *big.Int, deadline int64) (*big.Int, error)
	RemoveLiquidity(caller common.Address, lpAmount *big.Int, deadline int64) (*big.Int, error)
	SwapAssetToVirtual(caller common.Address, dx *big.Int, deadline int64) (*big.Int, error)
	SwapVirtualToAsset(caller common.Address, dx, minDy *big.Int, deadline int64, recipient common.Address) (*big.Int, error)
	CalculateSwap(i, j int, dx *big.Int) (*big.Int, error)
	Migrate(caller common.Address) (elb.MigrationOutcome, error)
}

// VaultConfig parameterises Initialize. The vault starts paused; SeedDeposit
// assets are pulled from the owner and minted one-to-one so the share price is
// defined from genesis.
type VaultConfig struct {
	Asset         common.Address
	AssetDecimals uint8
	LocalChainID  uint64
	Fees          FeeConfig
	SeedDeposit   *big.Int
}
