package vault

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"yakisoba/core/types"
	"yakisoba/native/bridge"
	"yakisoba/native/elb"
)

type engineState interface {
	GetVault() (*VaultState, error)
	PutVault(*VaultState) error
	GetShareAccount(addr common.Address) (*ShareAccount, error)
	PutShareAccount(addr common.Address, acc *ShareAccount) error
	GetAccount(addr common.Address) (*types.Account, error)
	PutAccount(addr common.Address, acc *types.Account) error
}

// Engine is the yakisoba vault: share accounting, the multi-chain debt
// ledger, and the fee machine. Custody of the reserve asset is tracked in the
// account bank under the vault's module address. All entry points run under a
// single mutex; accounting is updated before external calls.
type Engine struct {
	mu           sync.Mutex
	state        engineState
	owner        common.Address
	vaultAddress common.Address
	pool         LiquidityPool
	relay        bridge.Relay
	clock        func() time.Time
	events       types.EventSink
}

// NewEngine constructs a vault engine owned by owner, custodying assets under
// vaultAddr.
func NewEngine(owner, vaultAddr common.Address) *Engine {
	return &Engine{
		owner:        owner,
		vaultAddress: vaultAddr,
		clock:        time.Now,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLiquidityPool wires the elastic liquidity pool engine.
func (e *Engine) SetLiquidityPool(pool LiquidityPool) { e.pool = pool }

// SetRelay wires the cross-chain messaging relay.
func (e *Engine) SetRelay(relay bridge.Relay) { e.relay = relay }

// SetClock overrides the time source (primarily for deterministic testing).
func (e *Engine) SetClock(clock func() time.Time) {
	if e == nil || clock == nil {
		return
	}
	e.clock = clock
}

// SetEventSink wires the sink receiving vault events.
func (e *Engine) SetEventSink(sink types.EventSink) {
	if e == nil {
		return
	}
	e.events = sink
}

func (e *Engine) emit(evt *types.Event) {
	if e.events != nil && evt != nil {
		e.events.Emit(evt)
	}
}

func (e *Engine) now() int64 { return e.clock().Unix() }

// Initialize writes the genesis vault state. The vault starts paused with a
// zero deposit cap; the optional seed deposit is pulled from the owner and
// minted one-to-one so the share price is defined from the first block.
func (e *Engine) Initialize(cfg VaultConfig) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, err := e.state.GetVault(); err != nil {
		return err
	} else if existing != nil {
		return errAlreadyInitialized
	}
	now := e.now()
	st := (&VaultState{
		Asset:          cfg.Asset,
		AssetDecimals:  cfg.AssetDecimals,
		LocalChainID:   cfg.LocalChainID,
		Fees:           cfg.Fees,
		Paused:         true,
		CheckpointTime: now,
	}).normalize()
	if err := validateFees(cfg.Fees); err != nil {
		return err
	}
	st.CheckpointSharePrice = priceUnit(st.AssetDecimals)
	if cfg.SeedDeposit != nil && cfg.SeedDeposit.Sign() > 0 {
		if err := e.moveAssets(e.owner, e.vaultAddress, cfg.SeedDeposit); err != nil {
			return err
		}
		seedShares := new(big.Int).Set(cfg.SeedDeposit)
		ownerShares, err := e.loadShare(e.owner)
		if err != nil {
			return err
		}
		mintShares(st, ownerShares, seedShares)
		if err := e.state.PutShareAccount(e.owner, ownerShares); err != nil {
			return err
		}
	}
	return e.state.PutVault(st)
}

func (e *Engine) loadState() (*VaultState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	st, err := e.state.GetVault()
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errNotInitialized
	}
	return st.normalize(), nil
}

func (e *Engine) loadShare(addr common.Address) (*ShareAccount, error) {
	acc, err := e.state.GetShareAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = NewShareAccount(addr)
	}
	return acc.normalize(), nil
}

func (e *Engine) loadAccount(addr common.Address) (*types.Account, error) {
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = types.NewAccount(addr)
	}
	return acc.Normalize(), nil
}

func (e *Engine) moveAssets(from, to common.Address, amount *big.Int) error {
	fromAcc, err := e.loadAccount(from)
	if err != nil {
		return err
	}
	if fromAcc.Balance.Cmp(amount) < 0 {
		return errInsufficientFunds
	}
	toAcc, err := e.loadAccount(to)
	if err != nil {
		return err
	}
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amount)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amount)
	if err := e.state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to, toAcc)
}

func (e *Engine) localBalance() (*big.Int, error) {
	acc, err := e.loadAccount(e.vaultAddress)
	if err != nil {
		return nil, err
	}
	return acc.Balance, nil
}

func priceUnit(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// lockedProfit is the still-locked slice of the anticipated profit, released
// linearly over UnlockWindow since the last positive debt update.
func lockedProfit(st *VaultState, now int64) *big.Int {
	if st.AnticipatedProfit.Sign() == 0 {
		return big.NewInt(0)
	}
	elapsed := now - st.LastProfitUpdate
	if elapsed >= UnlockWindow {
		return big.NewInt(0)
	}
	if elapsed < 0 {
		elapsed = 0
	}
	locked := new(big.Int).Mul(st.AnticipatedProfit, big.NewInt(UnlockWindow-elapsed))
	return locked.Quo(locked, big.NewInt(UnlockWindow))
}

func (e *Engine) totalAssets(st *VaultState, now int64) (*big.Int, error) {
	local, err := e.localBalance()
	if err != nil {
		return nil, err
	}
	total := new(big.Int).Set(local)
	if st.Pool != nil {
		total.Add(total, st.Pool.Debt)
	}
	for _, rec := range st.Chains {
		total.Add(total, rec.Debt)
	}
	total.Sub(total, lockedProfit(st, now))
	if total.Sign() < 0 {
		total.SetInt64(0)
	}
	return total, nil
}

func sharePrice(st *VaultState, total *big.Int) *big.Int {
	unit := priceUnit(st.AssetDecimals)
	if st.TotalSupply.Sign() == 0 {
		return unit
	}
	price := new(big.Int).Mul(total, unit)
	return price.Quo(price, st.TotalSupply)
}

func toShares(st *VaultState, total, assets *big.Int) *big.Int {
	price := sharePrice(st, total)
	if price.Sign() == 0 {
		return big.NewInt(0)
	}
	shares := new(big.Int).Mul(assets, priceUnit(st.AssetDecimals))
	return shares.Quo(shares, price)
}

func toAssets(st *VaultState, total, shares *big.Int) *big.Int {
	assets := new(big.Int).Mul(shares, sharePrice(st, total))
	return assets.Quo(assets, priceUnit(st.AssetDecimals))
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// poolSwapIn is the slice of a fresh deposit that gets routed into the
// liquidity pool: capped at the band headroom, zero when no pool is wired.
func (e *Engine) poolSwapIn(st *VaultState, assets *big.Int) *big.Int {
	if st.Pool == nil || !st.Pool.Enabled || e.pool == nil {
		return big.NewInt(0)
	}
	room := new(big.Int).Sub(st.Pool.Liquidity, st.Pool.Debt)
	if room.Sign() <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Set(minBig(assets, room))
}

// routePoolDeposit swaps swapIn of the vault's local balance into virtual
// units and books them as pool debt.
func (e *Engine) routePoolDeposit(st *VaultState, swapIn *big.Int, now int64) error {
	if swapIn.Sign() <= 0 {
		return nil
	}
	dy, err := e.pool.SwapAssetToVirtual(e.vaultAddress, swapIn, now)
	if err != nil {
		return err
	}
	st.Pool.Debt = new(big.Int).Add(st.Pool.Debt, dy)
	return nil
}

// Deposit pulls assets from the caller and mints shares to the receiver at
// the pre-deposit share price. When the liquidity pool has headroom the
// deposit is routed through it and any swap bonus accrues to the depositor.
// A deposit over the cap fails with the remaining capacity; pausing forces
// the cap to zero.
func (e *Engine) Deposit(caller, receiver common.Address, assets *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deposit(caller, receiver, assets, nil)
}

// SafeDeposit is Deposit with a deadline and a minimum share bound. Both are
// checked before anything is persisted.
func (e *Engine) SafeDeposit(caller, receiver common.Address, assets, minShares *big.Int, deadline int64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if deadline < e.now() {
		return nil, errExpired
	}
	return e.deposit(caller, receiver, assets, minShares)
}

func (e *Engine) deposit(caller, receiver common.Address, assets, minShares *big.Int) (*big.Int, error) {
	if assets == nil || assets.Sign() <= 0 {
		return nil, errAmountZero
	}
	if receiver == e.vaultAddress {
		return nil, errSelfReceiver
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
	headroom := new(big.Int).Sub(st.MaxTotalAssets, total)
	if headroom.Sign() < 0 {
		headroom.SetInt64(0)
	}
	if assets.Cmp(headroom) > 0 {
		return nil, &AmountTooHighError{Max: headroom}
	}
	priceBefore := sharePrice(st, total)

	// Quote the pool leg first so the share amount, and with it the
	// minShares bound, is known before anything is written.
	swapIn := e.poolSwapIn(st, assets)
	effective := new(big.Int).Set(assets)
	if swapIn.Sign() > 0 {
		dy, err := e.pool.CalculateSwap(elb.RealIndex, elb.VirtualIndex, swapIn)
		if err != nil {
			return nil, err
		}
		effective.Sub(effective, swapIn)
		effective.Add(effective, dy)
	}
	shares := toShares(st, total, effective)
	if minShares != nil && shares.Cmp(minShares) < 0 {
		return nil, errIncorrectShares
	}

	if err := e.moveAssets(caller, e.vaultAddress, assets); err != nil {
		return nil, err
	}
	if err := e.routePoolDeposit(st, swapIn, now); err != nil {
		return nil, err
	}
	receiverShares, err := e.loadShare(receiver)
	if err != nil {
		return nil, err
	}
	mintShares(st, receiverShares, shares)
	if err := e.state.PutShareAccount(receiver, receiverShares); err != nil {
		return nil, err
	}
	if err := e.state.PutVault(st); err != nil {
		return nil, err
	}
	totalAfter, err := e.totalAssets(st, now)
	if err != nil {
		return nil, err
	}
	e.emit(newDepositEvent(caller, receiver, assets, shares))
	e.emit(newSharePriceUpdatedEvent(priceBefore, sharePrice(st, totalAfter)))
	return shares, nil
}

// Mint issues an exact share amount, pulling the asset cost from the caller.
// Fails outright while paused.
func (e *Engine) Mint(caller, receiver common.Address, shares *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if shares == nil || shares.Sign() <= 0 {
		return nil, errAmountZero
	}
	if receiver == e.vaultAddress {
		return nil, errSelfReceiver
	}
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	if st.Paused {
		return nil, errPaused
	}
	now := e.now()
	total, err := e.totalAssets(st, now)
	if err != nil {
		return nil, err
	}
	assets := mintCost(st, total, shares)
	headroom := new(big.Int).Sub(st.MaxTotalAssets, total)
	if headroom.Sign() < 0 {
		headroom.SetInt64(0)
	}
	if assets.Cmp(headroom) > 0 {
		return nil, &AmountTooHighError{Max: headroom}
	}
	priceBefore := sharePrice(st, total)
	if err := e.moveAssets(caller, e.vaultAddress, assets); err != nil {
		return nil, err
	}
	// Minting routes through the pool the same way deposits do; the share
	// amount is fixed, so any swap delta accrues to the vault.
	if err := e.routePoolDeposit(st, e.poolSwapIn(st, assets), now); err != nil {
		return nil, err
	}
	receiverShares, err := e.loadShare(receiver)
	if err != nil {
		return nil, err
	}
	mintShares(st, receiverShares, shares)
	if err := e.state.PutShareAccount(receiver, receiverShares); err != nil {
		return nil, err
	}
	if err := e.state.PutVault(st); err != nil {
		return nil, err
	}
	totalAfter, err := e.totalAssets(st, now)
	if err != nil {
		return nil, err
	}
	e.emit(newDepositEvent(caller, receiver, assets, shares))
	e.emit(newSharePriceUpdatedEvent(priceBefore, sharePrice(st, totalAfter)))
	return assets, nil
}

// mintCost rounds the asset cost of an exact share amount up so minting can
// never dilute existing holders.
func mintCost(st *VaultState, total, shares *big.Int) *big.Int {
	unit := priceUnit(st.AssetDecimals)
	cost := new(big.Int).Mul(shares, sharePrice(st, total))
	rem := new(big.Int)
	cost.QuoRem(cost, unit, rem)
	if rem.Sign() > 0 {
		cost.Add(cost, big.NewInt(1))
	}
	return cost
}

// Withdraw burns the shares needed to pay out an exact asset amount, grossing
// the burn up by the withdraw fee. Local balance is drained first, the
// remainder is pulled out of the liquidity pool.
func (e *Engine) Withdraw(caller, receiver, owner common.Address, assets *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.withdraw(caller, receiver, owner, assets, nil)
}

// SafeWithdraw is Withdraw with a deadline and a maximum share bound. Both are
// checked before anything is persisted.
func (e *Engine) SafeWithdraw(caller, receiver, owner common.Address, assets, maxShares *big.Int, deadline int64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if deadline < e.now() {
		return nil, errExpired
	}
	return e.withdraw(caller, receiver, owner, assets, maxShares)
}

func (e *Engine) withdraw(caller, receiver, owner common.Address, assets, maxShares *big.Int) (*big.Int, error) {
	if assets == nil || assets.Sign() <= 0 {
		return nil, errAmountZero
	}
	if receiver == e.vaultAddress {
		return nil, errSelfReceiver
	}
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	if st.Paused {
		return nil, errPaused
	}
	now := e.now()
	total, err := e.totalAssets(st, now)
	if err != nil {
		return nil, err
	}
	// Gross the burn up front so the fee stays in the vault.
	gross := new(big.Int).Mul(assets, big.NewInt(feeDenominator))
	gross.Quo(gross, big.NewInt(feeDenominator-int64(st.Fees.WithdrawBps)))
	shares := toShares(st, total, gross)
	if shares.Sign() == 0 {
		return nil, errAmountZero
	}
	if maxShares != nil && shares.Cmp(maxShares) > 0 {
		return nil, errIncorrectShares
	}
	if err := e.payOut(st, caller, receiver, owner, assets, shares, total, now); err != nil {
		return nil, err
	}
	return shares, nil
}

// Redeem burns an exact share amount and pays out its value net of the
// withdraw fee.
func (e *Engine) Redeem(caller, receiver, owner common.Address, shares *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.redeem(caller, receiver, owner, shares, nil)
}

// SafeRedeem is Redeem with a deadline and a minimum asset bound. Both are
// checked before anything is persisted.
func (e *Engine) SafeRedeem(caller, receiver, owner common.Address, shares, minAssets *big.Int, deadline int64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if deadline < e.now() {
		return nil, errExpired
	}
	return e.redeem(caller, receiver, owner, shares, minAssets)
}

func (e *Engine) redeem(caller, receiver, owner common.Address, shares, minAssets *big.Int) (*big.Int, error) {
	if shares == nil || shares.Sign() <= 0 {
		return nil, errAmountZero
	}
	if receiver == e.vaultAddress {
		return nil, errSelfReceiver
	}
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	if st.Paused {
		return nil, errPaused
	}
	now := e.now()
	total, err := e.totalAssets(st, now)
	if err != nil {
		return nil, err
	}
	// Convert first, then shave the fee off the proceeds.
	assets := toAssets(st, total, shares)
	assets.Mul(assets, big.NewInt(feeDenominator-int64(st.Fees.WithdrawBps)))
	assets.Quo(assets, big.NewInt(feeDenominator))
	if assets.Sign() == 0 {
		return nil, errAmountZero
	}
	if minAssets != nil && assets.Cmp(minAssets) < 0 {
		return nil, errIncorrectAssets
	}
	if err := e.payOut(st, caller, receiver, owner, assets, shares, total, now); err != nil {
		return nil, err
	}
	return assets, nil
}

// payOut burns shares from owner and settles assets to receiver, draining the
// local balance before spending liquidity pool debt.
func (e *Engine) payOut(st *VaultState, caller, receiver, owner common.Address, assets, shares, total *big.Int, now int64) error {
	local, err := e.localBalance()
	if err != nil {
		return err
	}
	available := new(big.Int).Set(local)
	if st.Pool != nil && st.Pool.Enabled && e.pool != nil {
		available.Add(available, st.Pool.Debt)
	}
	if available.Cmp(assets) < 0 {
		return errInsufficientFunds
	}
	ownerShares, err := e.loadShare(owner)
	if err != nil {
		return err
	}
	if ownerShares.Balance.Cmp(shares) < 0 {
		return errInsufficientShares
	}
	priceBefore := sharePrice(st, total)
	burnShares(st, ownerShares, shares)
	if err := e.state.PutShareAccount(owner, ownerShares); err != nil {
		return err
	}

	payLocal := minBig(local, assets)
	if payLocal.Sign() > 0 {
		if err := e.moveAssets(e.vaultAddress, receiver, payLocal); err != nil {
			return err
		}
	}
	need := new(big.Int).Sub(assets, payLocal)
	if need.Sign() > 0 {
		if _, err := e.pool.SwapVirtualToAsset(e.vaultAddress, need, nil, now, receiver); err != nil {
			return err
		}
		st.Pool.Debt = new(big.Int).Sub(st.Pool.Debt, need)
	}
	if err := e.state.PutVault(st); err != nil {
		return err
	}
	totalAfter, err := e.totalAssets(st, now)
	if err != nil {
		return err
	}
	e.emit(newWithdrawEvent(caller, receiver, owner, assets, shares))
	e.emit(newSharePriceUpdatedEvent(priceBefore, sharePrice(st, totalAfter)))
	return nil
}

// Pause halts share issuance and redemption and forces the deposit cap to
// zero. Unpause does not restore the cap.
func (e *Engine) Pause(caller common.Address) error {
	return e.setPaused(caller, true)
}

func (e *Engine) Unpause(caller common.Address) error {
	return e.setPaused(caller, false)
}

func (e *Engine) setPaused(caller common.Address, paused bool) error {
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
	st.Paused = paused
	if paused {
		st.MaxTotalAssets = big.NewInt(0)
	}
	if err := e.state.PutVault(st); err != nil {
		return err
	}
	e.emit(newPauseEvent(paused))
	return nil
}

// SetMaxTotalAssets sets the deposit cap. The cap is frozen while the vault
// is paused with live shares.
func (e *Engine) SetMaxTotalAssets(caller common.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return errNotOwner
	}
	if amount == nil || amount.Sign() < 0 {
		return errAmountZero
	}
	st, err := e.loadState()
	if err != nil {
		return err
	}
	if st.Paused && st.TotalSupply.Sign() != 0 {
		return errNotPaused
	}
	before := st.MaxTotalAssets
	st.MaxTotalAssets = new(big.Int).Set(amount)
	if err := e.state.PutVault(st); err != nil {
		return err
	}
	e.emit(newMaxTotalAssetsEvent(before, st.MaxTotalAssets))
	return nil
}

// RescueToken sweeps stray balances to the owner. The reserve asset itself is
// never rescuable.
func (e *Engine) RescueToken(caller common.Address, token common.Address, native bool) (*big.Int, error) {
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
	if native {
		vaultAcc, err := e.loadAccount(e.vaultAddress)
		if err != nil {
			return nil, err
		}
		amount := new(big.Int).Set(vaultAcc.NativeBalance)
		if amount.Sign() == 0 {
			return nil, errAmountZero
		}
		ownerAcc, err := e.loadAccount(e.owner)
		if err != nil {
			return nil, err
		}
		vaultAcc.NativeBalance = big.NewInt(0)
		ownerAcc.NativeBalance = new(big.Int).Add(ownerAcc.NativeBalance, amount)
		if err := e.state.PutAccount(e.vaultAddress, vaultAcc); err != nil {
			return nil, err
		}
		if err := e.state.PutAccount(e.owner, ownerAcc); err != nil {
			return nil, err
		}
		e.emit(newTokenRescuedEvent(common.Address{}, true, amount))
		return amount, nil
	}
	if token == st.Asset {
		return nil, errCannotRescueReserve
	}
	amount := st.StrayTokens[token]
	if amount == nil || amount.Sign() == 0 {
		return nil, errAmountZero
	}
	swept := new(big.Int).Set(amount)
	delete(st.StrayTokens, token)
	if err := e.state.PutVault(st); err != nil {
		return nil, err
	}
	e.emit(newTokenRescuedEvent(token, false, swept))
	return swept, nil
}

// CreditStrayToken records a non-reserve balance that landed on the vault,
// making it sweepable through RescueToken.
func (e *Engine) CreditStrayToken(token common.Address, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if amount == nil || amount.Sign() <= 0 {
		return errAmountZero
	}
	st, err := e.loadState()
	if err != nil {
		return err
	}
	prev := st.StrayTokens[token]
	if prev == nil {
		prev = big.NewInt(0)
	}
	st.StrayTokens[token] = new(big.Int).Add(prev, amount)
	return e.state.PutVault(st)
}
