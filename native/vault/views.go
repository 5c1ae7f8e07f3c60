package vault

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TotalAssets reports local balance plus pool debt plus remote debt, net of
// still-locked anticipated profit.
func (e *Engine) TotalAssets() (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	return e.totalAssets(st, e.now())
}

// SharePrice reports assets per share scaled by 10^decimals.
func (e *Engine) SharePrice() (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	total, err := e.totalAssets(st, e.now())
	if err != nil {
		return nil, err
	}
	return sharePrice(st, total), nil
}

// TotalSupply reports outstanding shares.
func (e *Engine) TotalSupply() (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(st.TotalSupply), nil
}

// BalanceOf reports the share balance of addr.
func (e *Engine) BalanceOf(addr common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, errNilState
	}
	acc, err := e.loadShare(addr)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(acc.Balance), nil
}

// UnrealizedGains reports the anticipated profit still locked out of the
// share price.
func (e *Engine) UnrealizedGains() (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	return lockedProfit(st, e.now()), nil
}

// AnticipatedProfits reports the full anticipated profit amount and the time
// its unlock window last restarted.
func (e *Engine) AnticipatedProfits() (*big.Int, int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.loadState()
	if err != nil {
		return nil, 0, err
	}
	return new(big.Int).Set(st.AnticipatedProfit), st.LastProfitUpdate, nil
}

// TotalRemoteAssets reports the sum of all remote chain debt.
func (e *Engine) TotalRemoteAssets() (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	total := big.NewInt(0)
	for _, rec := range st.Chains {
		total.Add(total, rec.Debt)
	}
	return total, nil
}

// MaxTotalAssets reports the deposit cap.
func (e *Engine) MaxTotalAssets() (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(st.MaxTotalAssets), nil
}

// IsPaused reports the pause switch.
func (e *Engine) IsPaused() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.loadState()
	if err != nil {
		return false, err
	}
	return st.Paused, nil
}

// ConvertToShares quotes the share value of an asset amount at the current
// share price.
func (e *Engine) ConvertToShares(assets *big.Int) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, total, err := e.stateAndTotal()
	if err != nil {
		return nil, err
	}
	return toShares(st, total, assets), nil
}

// ConvertToAssets quotes the asset value of a share amount.
func (e *Engine) ConvertToAssets(shares *big.Int) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, total, err := e.stateAndTotal()
	if err != nil {
		return nil, err
	}
	return toAssets(st, total, shares), nil
}

// PreviewDeposit mirrors Deposit without moving funds.
func (e *Engine) PreviewDeposit(assets *big.Int) (*big.Int, error) {
	return e.ConvertToShares(assets)
}

// PreviewMint quotes the asset cost of minting an exact share amount.
func (e *Engine) PreviewMint(shares *big.Int) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, total, err := e.stateAndTotal()
	if err != nil {
		return nil, err
	}
	return mintCost(st, total, shares), nil
}

// PreviewWithdraw quotes the shares burned to pay out an exact asset amount,
// fee included.
func (e *Engine) PreviewWithdraw(assets *big.Int) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, total, err := e.stateAndTotal()
	if err != nil {
		return nil, err
	}
	gross := new(big.Int).Mul(assets, big.NewInt(feeDenominator))
	gross.Quo(gross, big.NewInt(feeDenominator-int64(st.Fees.WithdrawBps)))
	return toShares(st, total, gross), nil
}

// PreviewRedeem quotes the net proceeds of burning an exact share amount.
func (e *Engine) PreviewRedeem(shares *big.Int) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, total, err := e.stateAndTotal()
	if err != nil {
		return nil, err
	}
	assets := toAssets(st, total, shares)
	assets.Mul(assets, big.NewInt(feeDenominator-int64(st.Fees.WithdrawBps)))
	assets.Quo(assets, big.NewInt(feeDenominator))
	return assets, nil
}

func (e *Engine) stateAndTotal() (*VaultState, *big.Int, error) {
	if e.state == nil {
		return nil, nil, errNilState
	}
	st, err := e.loadState()
	if err != nil {
		return nil, nil, err
	}
	total, err := e.totalAssets(st, e.now())
	if err != nil {
		return nil, nil, err
	}
	return st, total, nil
}
