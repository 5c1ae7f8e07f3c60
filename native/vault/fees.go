package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

func validateFees(fees FeeConfig) error {
	if fees.PerformanceBps > MaxPerformanceFeeBps {
		return &FeeError{Name: "performance", Bps: fees.PerformanceBps, Ceiling: MaxPerformanceFeeBps}
	}
	if fees.ManagementBps > MaxManagementFeeBps {
		return &FeeError{Name: "management", Bps: fees.ManagementBps, Ceiling: MaxManagementFeeBps}
	}
	if fees.WithdrawBps > MaxWithdrawFeeBps {
		return &FeeError{Name: "withdraw", Bps: fees.WithdrawBps, Ceiling: MaxWithdrawFeeBps}
	}
	return nil
}

// computeFees derives the performance and management fee, both in assets.
// Performance comes from share-price gain since the checkpoint, management
// accrues pro rata over a year; their sum is capped at the asset gain since
// the checkpoint so fees can never be minted out of principal.
func computeFees(st *VaultState, total *big.Int, now int64) (perf, mgmt *big.Int) {
	unit := priceUnit(st.AssetDecimals)
	price := sharePrice(st, total)
	perf = big.NewInt(0)
	if price.Cmp(st.CheckpointSharePrice) > 0 && st.TotalSupply.Sign() > 0 {
		perf = new(big.Int).Sub(price, st.CheckpointSharePrice)
		perf.Mul(perf, new(big.Int).SetUint64(st.Fees.PerformanceBps))
		perf.Quo(perf, big.NewInt(feeDenominator))
		perf.Mul(perf, st.TotalSupply)
		perf.Quo(perf, unit)
	}
	elapsed := now - st.CheckpointTime
	if elapsed < 0 {
		elapsed = 0
	}
	mgmt = new(big.Int).Mul(total, new(big.Int).SetUint64(st.Fees.ManagementBps))
	mgmt.Quo(mgmt, big.NewInt(feeDenominator))
	mgmt.Mul(mgmt, big.NewInt(elapsed))
	mgmt.Quo(mgmt, big.NewInt(SecondsPerYear))

	gain := new(big.Int).Mul(st.TotalSupply, st.CheckpointSharePrice)
	gain.Quo(gain, unit)
	gain.Sub(total, gain)
	if gain.Sign() < 0 {
		gain.SetInt64(0)
	}
	sum := new(big.Int).Add(perf, mgmt)
	if sum.Cmp(gain) > 0 {
		perf = minBig(perf, gain)
		mgmt = new(big.Int).Sub(gain, perf)
	}
	return perf, mgmt
}

// ComputeFees quotes the fees claimable right now.
func (e *Engine) ComputeFees() (perf, mgmt *big.Int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, total, err := e.stateAndTotal()
	if err != nil {
		return nil, nil, err
	}
	perf, mgmt = computeFees(st, total, e.now())
	return perf, mgmt, nil
}

// TakeFees mints the claimable fees as shares to the owner and advances the
// checkpoint. Owner only.
func (e *Engine) TakeFees(caller common.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return nil, errNotOwner
	}
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	now := e.now()
	total, err := e.totalAssets(st, now)
	if err != nil {
		return nil, err
	}
	perf, mgmt := computeFees(st, total, now)
	feeAssets := new(big.Int).Add(perf, mgmt)
	shares := big.NewInt(0)
	if feeAssets.Sign() > 0 {
		shares = toShares(st, total, feeAssets)
		ownerShares, err := e.loadShare(e.owner)
		if err != nil {
			return nil, err
		}
		mintShares(st, ownerShares, shares)
		if err := e.state.PutShareAccount(e.owner, ownerShares); err != nil {
			return nil, err
		}
	}
	// Checkpoint at the post-mint price so the same gain is never charged
	// twice.
	st.CheckpointSharePrice = sharePrice(st, total)
	st.CheckpointTime = now
	if err := e.state.PutVault(st); err != nil {
		return nil, err
	}
	e.emit(newFeesTakenEvent(perf, mgmt, shares))
	return shares, nil
}

// SetFees replaces the fee configuration. Owner only; each rate must sit
// below its hard ceiling.
func (e *Engine) SetFees(caller common.Address, fees FeeConfig) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return errNotOwner
	}
	if err := validateFees(fees); err != nil {
		return err
	}
	st, err := e.loadState()
	if err != nil {
		return err
	}
	st.Fees = fees
	if err := e.state.PutVault(st); err != nil {
		return err
	}
	e.emit(newFeesEvent(fees))
	return nil
}

// Fees reports the current fee configuration.
func (e *Engine) Fees() (FeeConfig, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.loadState()
	if err != nil {
		return FeeConfig{}, err
	}
	return st.Fees, nil
}

// Checkpoint reports the share price and time of the last fee checkpoint.
func (e *Engine) Checkpoint() (*big.Int, int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.loadState()
	if err != nil {
		return nil, 0, err
	}
	return new(big.Int).Set(st.CheckpointSharePrice), st.CheckpointTime, nil
}
