package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"yakisoba/native/elb"
)

// MigrateLiquidityPool retires the current pool, tolerating its failure, and
// installs newPool. A zero newPoolAddr disables pool routing entirely. When
// seedAmount is positive the new pool is enabled immediately with that
// liquidity. Owner only.
func (e *Engine) MigrateLiquidityPool(caller common.Address, newPool LiquidityPool, newPoolAddr common.Address, seedAmount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return errNotOwner
	}
	st, err := e.loadState()
	if err != nil {
		return err
	}
	oldPoolAddr := common.Address{}
	outcome := "none"
	if st.Pool != nil {
		oldPoolAddr = st.Pool.Pool
		if e.pool != nil {
			// Migration proceeds even when the old pool cannot pay out;
			// its residual stays recoverable on the pool side.
			res, merr := e.pool.Migrate(e.vaultAddress)
			switch {
			case merr != nil:
				outcome = "failed"
			case res == elb.MigrationExternalFailure:
				outcome = "externalFailure"
			default:
				outcome = "completed"
			}
		}
		st.Pool = nil
	}
	e.pool = newPool
	if newPool != nil && newPoolAddr != (common.Address{}) {
		st.Pool = (&LiquidityPoolRecord{Pool: newPoolAddr}).normalize()
	}
	if err := e.state.PutVault(st); err != nil {
		return err
	}
	e.emit(newPoolMigratedEvent(oldPoolAddr, newPoolAddr, outcome))
	if st.Pool != nil && seedAmount != nil && seedAmount.Sign() > 0 {
		return e.enablePool(st, seedAmount)
	}
	return nil
}

// EnableLiquidityPool seeds the installed pool with liquidity and opens
// deposit routing through it. Owner only.
func (e *Engine) EnableLiquidityPool(caller common.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return errNotOwner
	}
	st, err := e.loadState()
	if err != nil {
		return err
	}
	return e.enablePool(st, amount)
}

func (e *Engine) enablePool(st *VaultState, amount *big.Int) error {
	if st.Pool == nil || e.pool == nil {
		return errPoolNotSet
	}
	if amount == nil || amount.Sign() <= 0 {
		return errAmountZero
	}
	minted, err := e.pool.AddLiquidity(e.vaultAddress, amount, e.now())
	if err != nil {
		return err
	}
	st.Pool.Debt = new(big.Int).Add(st.Pool.Debt, amount)
	st.Pool.Liquidity = new(big.Int).Set(amount)
	st.Pool.LPUnits = new(big.Int).Add(st.Pool.LPUnits, minted)
	st.Pool.Enabled = true
	if err := e.state.PutVault(st); err != nil {
		return err
	}
	e.emit(newLiquidityPoolEnabledEvent(st.Pool.Pool, amount))
	return nil
}

// IncreaseLiquidity parks more local assets in the pool and widens the
// target band. Owner only.
func (e *Engine) IncreaseLiquidity(caller common.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return errNotOwner
	}
	st, err := e.loadState()
	if err != nil {
		return err
	}
	if st.Pool == nil || !st.Pool.Enabled || e.pool == nil {
		return errPoolNotSet
	}
	if amount == nil || amount.Sign() <= 0 {
		return errAmountZero
	}
	minted, err := e.pool.AddLiquidity(e.vaultAddress, amount, e.now())
	if err != nil {
		return err
	}
	st.Pool.Debt = new(big.Int).Add(st.Pool.Debt, amount)
	st.Pool.Liquidity = new(big.Int).Add(st.Pool.Liquidity, amount)
	st.Pool.LPUnits = new(big.Int).Add(st.Pool.LPUnits, minted)
	return e.state.PutVault(st)
}

// DecreaseLiquidity pulls value out of the pool back into the local balance
// and narrows the target band. Owner only.
func (e *Engine) DecreaseLiquidity(caller common.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return errNotOwner
	}
	st, err := e.loadState()
	if err != nil {
		return err
	}
	if st.Pool == nil || !st.Pool.Enabled || e.pool == nil {
		return errPoolNotSet
	}
	if amount == nil || amount.Sign() <= 0 {
		return errAmountZero
	}
	if amount.Cmp(st.Pool.Debt) > 0 {
		return errInsufficientFunds
	}
	lp := new(big.Int).Mul(st.Pool.LPUnits, amount)
	lp.Quo(lp, st.Pool.Debt)
	if _, err := e.pool.RemoveLiquidity(e.vaultAddress, lp, e.now()); err != nil {
		return err
	}
	st.Pool.Debt = new(big.Int).Sub(st.Pool.Debt, amount)
	st.Pool.LPUnits = new(big.Int).Sub(st.Pool.LPUnits, lp)
	newLiquidity := new(big.Int).Sub(st.Pool.Liquidity, amount)
	if newLiquidity.Sign() < 0 {
		newLiquidity.SetInt64(0)
	}
	st.Pool.Liquidity = newLiquidity
	return e.state.PutVault(st)
}

// RebalanceLiquidityPool moves the pool debt back toward the target band:
// local surplus fills an underweight pool, an overweight pool is drained back
// into the local balance. Rejected while paused. Owner only.
func (e *Engine) RebalanceLiquidityPool(caller common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return errNotOwner
	}
	st, err := e.loadState()
	if err != nil {
		return err
	}
	if st.Paused {
		return errPaused
	}
	if st.Pool == nil || !st.Pool.Enabled || e.pool == nil {
		return errPoolNotSet
	}
	now := e.now()
	switch st.Pool.Debt.Cmp(st.Pool.Liquidity) {
	case -1:
		local, err := e.localBalance()
		if err != nil {
			return err
		}
		if local.Sign() == 0 {
			return errNoFundsToRebalance
		}
		room := new(big.Int).Sub(st.Pool.Liquidity, st.Pool.Debt)
		amount := minBig(new(big.Int).Set(local), room)
		dy, err := e.pool.SwapAssetToVirtual(e.vaultAddress, amount, now)
		if err != nil {
			return err
		}
		st.Pool.Debt = new(big.Int).Add(st.Pool.Debt, dy)
		if err := e.state.PutVault(st); err != nil {
			return err
		}
		e.emit(newRebalanceEvent("fill", amount))
		return nil
	case 1:
		excess := new(big.Int).Sub(st.Pool.Debt, st.Pool.Liquidity)
		if _, err := e.pool.SwapVirtualToAsset(e.vaultAddress, excess, nil, now, e.vaultAddress); err != nil {
			return err
		}
		st.Pool.Debt = new(big.Int).Sub(st.Pool.Debt, excess)
		if err := e.state.PutVault(st); err != nil {
			return err
		}
		e.emit(newRebalanceEvent("drain", excess))
		return nil
	default:
		return errNoFundsToRebalance
	}
}

// PoolRecord reports the current liquidity pool bookkeeping.
func (e *Engine) PoolRecord() (*LiquidityPoolRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	if st.Pool == nil {
		return nil, errPoolNotSet
	}
	clone := *st.Pool
	clone.Debt = new(big.Int).Set(st.Pool.Debt)
	clone.Liquidity = new(big.Int).Set(st.Pool.Liquidity)
	clone.LPUnits = new(big.Int).Set(st.Pool.LPUnits)
	return &clone, nil
}
