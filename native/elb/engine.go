package elb

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"yakisoba/core/types"
	"yakisoba/native/stableswap"
)

// Token indexes inside the pool.
const (
	VirtualIndex = 0
	RealIndex    = 1
)

var (
	errNilState            = errors.New("elb: state not configured")
	errNotInitialized      = errors.New("elb: pool not initialised")
	errOnlyYakisoba        = errors.New("elb: caller is not the yakisoba")
	errNotOwner            = errors.New("elb: caller is not the owner")
	errAmountZero          = errors.New("elb: amount is zero")
	errExpired             = errors.New("elb: transaction expired")
	errInsufficientBalance = errors.New("elb: insufficient balance")
	errWrongBalance        = errors.New("elb: yield source returned less than requested")
	errWrongToken          = errors.New("elb: real asset token must be set and virtual leg empty")
	errWrongAFactor        = errors.New("elb: amplification coefficient above maximum")
	errWrongLength         = errors.New("elb: token arrays must have exactly two entries")
	errAlreadyInitialized  = errors.New("elb: pool already initialised")
	errMigrated            = errors.New("elb: pool already migrated")
	errNotMigrated         = errors.New("elb: pool not migrated")
	errMinDyNotMet         = errors.New("elb: minimum output not met")
)

// Exported matchers for callers routing on error class.
var (
	ErrOnlyYakisoba       = errOnlyYakisoba
	ErrExpired            = errExpired
	ErrMigrated           = errMigrated
	ErrMinDyNotMet        = errMinDyNotMet
	ErrAlreadyInitialized = errAlreadyInitialized
)

// WrongDecimalsError reports a pooled token whose decimals exceed the pool
// maximum, citing the offending index.
type WrongDecimalsError struct {
	Index    int
	Decimals uint8
}

func (e *WrongDecimalsError) Error() string {
	return fmt.Sprintf("elb: token %d has %d decimals, maximum is %d", e.Index, e.Decimals, stableswap.MaxDecimals)
}

type engineState interface {
	GetSwap() (*SwapState, error)
	PutSwap(*SwapState) error
	GetAccount(addr common.Address) (*types.Account, error)
	PutAccount(addr common.Address, acc *types.Account) error
}

// Engine is the Elastic Liquidity Pool: asset custody and fee bookkeeping
// around the stableswap invariant. All entry points run under a single mutex;
// ledgers are updated before the yield source is called.
type Engine struct {
	mu            sync.Mutex
	state         engineState
	owner         common.Address
	yakisoba      common.Address
	moduleAddress common.Address
	yield         YieldSource
	clock         func() time.Time
	events        types.EventSink
}

// NewEngine constructs an engine owned by owner, accepting liquidity and swap
// calls only from the yakisoba vault, custodying assets under moduleAddr.
func NewEngine(owner, yakisoba, moduleAddr common.Address, yield YieldSource) *Engine {
	return &Engine{
		owner:         owner,
		yakisoba:      yakisoba,
		moduleAddress: moduleAddr,
		yield:         yield,
		clock:         time.Now,
	}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetClock overrides the time source (primarily for deterministic testing).
func (e *Engine) SetClock(clock func() time.Time) {
	if e == nil || clock == nil {
		return
	}
	e.clock = clock
}

// SetEventSink wires the sink receiving pool events.
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

// Initialize validates the pool configuration and writes the initial state.
// The pool starts active with empty balances.
func (e *Engine) Initialize(cfg PoolConfig) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, err := e.state.GetSwap(); err != nil {
		return err
	} else if existing != nil {
		return errAlreadyInitialized
	}
	if len(cfg.PooledTokens) != stableswap.NumTokens ||
		len(cfg.Underlying) != stableswap.NumTokens ||
		len(cfg.Decimals) != stableswap.NumTokens {
		return errWrongLength
	}
	for i, dec := range cfg.Decimals {
		if dec > stableswap.MaxDecimals {
			return &WrongDecimalsError{Index: i, Decimals: dec}
		}
	}
	if cfg.PooledTokens[VirtualIndex] != (common.Address{}) ||
		cfg.PooledTokens[RealIndex] == (common.Address{}) {
		return errWrongToken
	}
	if cfg.InitialA == 0 || cfg.InitialA > stableswap.MaxA {
		return errWrongAFactor
	}
	swap := &SwapState{
		Amp:         stableswap.NewAmplification(cfg.InitialA),
		SwapFeeBps:  cfg.SwapFeeBps,
		AdminFeeBps: cfg.AdminFeeBps,
		AdminFees:   big.NewInt(0),
		LPSupply:    big.NewInt(0),
	}
	for i := 0; i < stableswap.NumTokens; i++ {
		swap.Tokens[i] = PooledToken{
			Address:    cfg.PooledTokens[i],
			Decimals:   cfg.Decimals[i],
			Multiplier: stableswap.MultiplierFor(cfg.Decimals[i]),
			Balance:    big.NewInt(0),
		}
		swap.Underlying[i] = cfg.Underlying[i]
	}
	return e.state.PutSwap(swap)
}

func (e *Engine) loadSwap() (*SwapState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	swap, err := e.state.GetSwap()
	if err != nil {
		return nil, err
	}
	if swap == nil {
		return nil, errNotInitialized
	}
	for i := range swap.Tokens {
		if swap.Tokens[i].Balance == nil {
			swap.Tokens[i].Balance = big.NewInt(0)
		}
	}
	if swap.AdminFees == nil {
		swap.AdminFees = big.NewInt(0)
	}
	if swap.LPSupply == nil {
		swap.LPSupply = big.NewInt(0)
	}
	return swap, nil
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

func (e *Engine) checkDeadline(deadline int64) error {
	if deadline < e.now() {
		return errExpired
	}
	return nil
}

// AddLiquidity deposits reserve assets from the yakisoba, parks them in the
// yield source, and mints virtual-LP units proportional to invariant growth.
// The real leg is credited with the amount the yield source actually handed
// back, guarding against deposit slippage.
func (e *Engine) AddLiquidity(caller common.Address, amount *big.Int, deadline int64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.yakisoba {
		return nil, errOnlyYakisoba
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errAmountZero
	}
	if err := e.checkDeadline(deadline); err != nil {
		return nil, err
	}
	swap, err := e.loadSwap()
	if err != nil {
		return nil, err
	}
	if swap.Migrated {
		return nil, errMigrated
	}
	callerAcc, err := e.loadAccount(caller)
	if err != nil {
		return nil, err
	}
	if callerAcc.Balance.Cmp(amount) < 0 {
		return nil, errInsufficientBalance
	}
	moduleAcc, err := e.loadAccount(e.moduleAddress)
	if err != nil {
		return nil, err
	}

	callerAcc.Balance = new(big.Int).Sub(callerAcc.Balance, amount)
	moduleAcc.Balance = new(big.Int).Add(moduleAcc.Balance, amount)
	if err := e.state.PutAccount(caller, callerAcc); err != nil {
		return nil, err
	}
	if err := e.state.PutAccount(e.moduleAddress, moduleAcc); err != nil {
		return nil, err
	}

	dBefore := stableswap.D(normalizedBalances(swap), swap.Amp.Precise(e.now()))

	received, err := e.yield.Deposit(amount)
	if err != nil {
		return nil, err
	}
	if received == nil || received.Cmp(amount) < 0 {
		return nil, errWrongBalance
	}
	// The module account handed the assets to the yield source.
	moduleAcc.Balance = new(big.Int).Sub(moduleAcc.Balance, amount)
	if err := e.state.PutAccount(e.moduleAddress, moduleAcc); err != nil {
		return nil, err
	}

	swap.Tokens[VirtualIndex].Balance = new(big.Int).Add(swap.Tokens[VirtualIndex].Balance, amount)
	swap.Tokens[RealIndex].Balance = new(big.Int).Add(swap.Tokens[RealIndex].Balance, received)

	dAfter := stableswap.D(normalizedBalances(swap), swap.Amp.Precise(e.now()))
	var minted *big.Int
	if swap.LPSupply.Sign() == 0 {
		minted = new(big.Int).Set(dAfter)
	} else {
		minted = new(big.Int).Sub(dAfter, dBefore)
		minted.Mul(minted, swap.LPSupply)
		minted.Quo(minted, dBefore)
	}
	swap.LPSupply = new(big.Int).Add(swap.LPSupply, minted)

	if err := e.state.PutSwap(swap); err != nil {
		return nil, err
	}
	e.emit(newAddLiquidityEvent(caller, amount, received, minted))
	return minted, nil
}

// RemoveLiquidity burns virtual-LP units and returns the proportional real-leg
// value, withdrawn from the yield source, to the caller. Owner only.
func (e *Engine) RemoveLiquidity(caller common.Address, lpAmount *big.Int, deadline int64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner && caller != e.yakisoba {
		return nil, errNotOwner
	}
	if lpAmount == nil || lpAmount.Sign() <= 0 {
		return nil, errAmountZero
	}
	if err := e.checkDeadline(deadline); err != nil {
		return nil, err
	}
	swap, err := e.loadSwap()
	if err != nil {
		return nil, err
	}
	if swap.LPSupply.Sign() == 0 || lpAmount.Cmp(swap.LPSupply) > 0 {
		return nil, errInsufficientBalance
	}

	virtualOut := new(big.Int).Mul(swap.Tokens[VirtualIndex].Balance, lpAmount)
	virtualOut.Quo(virtualOut, swap.LPSupply)
	realOut := new(big.Int).Mul(swap.Tokens[RealIndex].Balance, lpAmount)
	realOut.Quo(realOut, swap.LPSupply)

	swap.Tokens[VirtualIndex].Balance = new(big.Int).Sub(swap.Tokens[VirtualIndex].Balance, virtualOut)
	swap.Tokens[RealIndex].Balance = new(big.Int).Sub(swap.Tokens[RealIndex].Balance, realOut)
	swap.LPSupply = new(big.Int).Sub(swap.LPSupply, lpAmount)
	if err := e.state.PutSwap(swap); err != nil {
		return nil, err
	}

	assets := big.NewInt(0)
	if realOut.Sign() > 0 {
		assets, err = e.yield.Withdraw(realOut)
		if err != nil {
			return nil, err
		}
	}
	callerAcc, err := e.loadAccount(caller)
	if err != nil {
		return nil, err
	}
	callerAcc.Balance = new(big.Int).Add(callerAcc.Balance, assets)
	if err := e.state.PutAccount(caller, callerAcc); err != nil {
		return nil, err
	}
	e.emit(newRemoveLiquidityEvent(caller, lpAmount, assets))
	return assets, nil
}

// SwapVirtualToAsset spends dx virtual units and sends the real output,
// withdrawn from the yield source, to recipient. Fails when the output would
// be below minDy.
func (e *Engine) SwapVirtualToAsset(caller common.Address, dx, minDy *big.Int, deadline int64, recipient common.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.yakisoba {
		return nil, errOnlyYakisoba
	}
	if err := e.checkDeadline(deadline); err != nil {
		return nil, err
	}
	if dx == nil || dx.Sign() == 0 {
		return big.NewInt(0), nil
	}
	swap, err := e.loadSwap()
	if err != nil {
		return nil, err
	}
	if swap.Migrated {
		return nil, errMigrated
	}
	dy, fee, err := stableswap.CalculateSwap(VirtualIndex, RealIndex, dx,
		swap.balances(), swap.multipliers(), swap.Amp.Precise(e.now()), swap.SwapFeeBps)
	if err != nil {
		return nil, err
	}
	if minDy != nil && dy.Cmp(minDy) < 0 {
		return nil, errMinDyNotMet
	}
	if dy.Cmp(swap.Tokens[RealIndex].Balance) > 0 {
		return nil, errInsufficientBalance
	}
	adminShare := new(big.Int).Mul(fee, new(big.Int).SetUint64(swap.AdminFeeBps))
	adminShare.Quo(adminShare, big.NewInt(10_000))

	swap.Tokens[VirtualIndex].Balance = new(big.Int).Add(swap.Tokens[VirtualIndex].Balance, dx)
	newReal := new(big.Int).Sub(swap.Tokens[RealIndex].Balance, dy)
	newReal.Sub(newReal, adminShare)
	swap.Tokens[RealIndex].Balance = newReal
	swap.AdminFees = new(big.Int).Add(swap.AdminFees, adminShare)
	if err := e.state.PutSwap(swap); err != nil {
		return nil, err
	}

	assets, err := e.yield.Withdraw(dy)
	if err != nil {
		return nil, err
	}
	recipientAcc, err := e.loadAccount(recipient)
	if err != nil {
		return nil, err
	}
	recipientAcc.Balance = new(big.Int).Add(recipientAcc.Balance, assets)
	if err := e.state.PutAccount(recipient, recipientAcc); err != nil {
		return nil, err
	}
	e.emit(newSwapEvent(caller, VirtualIndex, RealIndex, dx, assets, fee))
	return assets, nil
}

// SwapAssetToVirtual deposits dx reserve assets from the caller into the
// yield source and credits back dy virtual units.
func (e *Engine) SwapAssetToVirtual(caller common.Address, dx *big.Int, deadline int64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.yakisoba {
		return nil, errOnlyYakisoba
	}
	if err := e.checkDeadline(deadline); err != nil {
		return nil, err
	}
	if dx == nil || dx.Sign() == 0 {
		return big.NewInt(0), nil
	}
	swap, err := e.loadSwap()
	if err != nil {
		return nil, err
	}
	if swap.Migrated {
		return nil, errMigrated
	}
	callerAcc, err := e.loadAccount(caller)
	if err != nil {
		return nil, err
	}
	if callerAcc.Balance.Cmp(dx) < 0 {
		return nil, errInsufficientBalance
	}
	dy, fee, err := stableswap.CalculateSwap(RealIndex, VirtualIndex, dx,
		swap.balances(), swap.multipliers(), swap.Amp.Precise(e.now()), swap.SwapFeeBps)
	if err != nil {
		return nil, err
	}
	if dy.Cmp(swap.Tokens[VirtualIndex].Balance) > 0 {
		return nil, errInsufficientBalance
	}

	callerAcc.Balance = new(big.Int).Sub(callerAcc.Balance, dx)
	if err := e.state.PutAccount(caller, callerAcc); err != nil {
		return nil, err
	}
	received, err := e.yield.Deposit(dx)
	if err != nil {
		return nil, err
	}
	if received == nil || received.Cmp(dx) < 0 {
		return nil, errWrongBalance
	}
	swap.Tokens[RealIndex].Balance = new(big.Int).Add(swap.Tokens[RealIndex].Balance, received)
	swap.Tokens[VirtualIndex].Balance = new(big.Int).Sub(swap.Tokens[VirtualIndex].Balance, dy)
	if err := e.state.PutSwap(swap); err != nil {
		return nil, err
	}
	e.emit(newSwapEvent(caller, RealIndex, VirtualIndex, dx, dy, fee))
	return dy, nil
}

// RampA starts ramping the amplification coefficient. Owner only.
func (e *Engine) RampA(caller common.Address, futureA uint64, futureATime int64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return errNotOwner
	}
	swap, err := e.loadSwap()
	if err != nil {
		return err
	}
	if err := swap.Amp.StartRamp(futureA, futureATime, e.now()); err != nil {
		return err
	}
	if err := e.state.PutSwap(swap); err != nil {
		return err
	}
	e.emit(newRampEvent(futureA, futureATime))
	return nil
}

// StopRampA freezes the amplification coefficient. Owner only.
func (e *Engine) StopRampA(caller common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return errNotOwner
	}
	swap, err := e.loadSwap()
	if err != nil {
		return err
	}
	if err := swap.Amp.StopRamp(e.now()); err != nil {
		return err
	}
	if err := e.state.PutSwap(swap); err != nil {
		return err
	}
	e.emit(newStopRampEvent(swap.Amp.FutureA))
	return nil
}

// Migrate pulls all real-leg value out of the yield source back to the owner
// and retires the pool. A failing yield source does not block the migration:
// the pool is still marked migrated and the residual stays recoverable.
func (e *Engine) Migrate(caller common.Address) (MigrationOutcome, error) {
	if e == nil || e.state == nil {
		return MigrationBlocked, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner && caller != e.yakisoba {
		return MigrationBlocked, errNotOwner
	}
	swap, err := e.loadSwap()
	if err != nil {
		return MigrationBlocked, err
	}
	if swap.Migrated {
		return MigrationBlocked, errMigrated
	}
	total := new(big.Int).Add(swap.Tokens[RealIndex].Balance, swap.AdminFees)

	swap.Migrated = true
	outcome := MigrationCompleted
	if total.Sign() > 0 {
		assets, werr := e.yield.Withdraw(total)
		if werr != nil {
			// Best-effort: leave the residual balance in place for
			// RecoverAssets and keep going.
			outcome = MigrationExternalFailure
		} else {
			swap.Tokens[RealIndex].Balance = big.NewInt(0)
			swap.Tokens[VirtualIndex].Balance = big.NewInt(0)
			swap.AdminFees = big.NewInt(0)
			swap.LPSupply = big.NewInt(0)
			ownerAcc, aerr := e.loadAccount(e.owner)
			if aerr != nil {
				return MigrationBlocked, aerr
			}
			ownerAcc.Balance = new(big.Int).Add(ownerAcc.Balance, assets)
			if aerr := e.state.PutAccount(e.owner, ownerAcc); aerr != nil {
				return MigrationBlocked, aerr
			}
		}
	} else {
		swap.Tokens[VirtualIndex].Balance = big.NewInt(0)
		swap.LPSupply = big.NewInt(0)
	}
	if err := e.state.PutSwap(swap); err != nil {
		return MigrationBlocked, err
	}
	e.emit(newMigratedEvent(outcome))
	return outcome, nil
}

// RecoverAssets sweeps residual real-leg value after a migration. Owner only.
func (e *Engine) RecoverAssets(caller common.Address, amount *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return nil, errNotOwner
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, errAmountZero
	}
	swap, err := e.loadSwap()
	if err != nil {
		return nil, err
	}
	if !swap.Migrated {
		return nil, errNotMigrated
	}
	assets, err := e.yield.Withdraw(amount)
	if err != nil {
		return nil, err
	}
	residual := new(big.Int).Add(swap.Tokens[RealIndex].Balance, swap.AdminFees)
	if residual.Sign() > 0 {
		// Residual accounting exists only until swept once.
		swap.Tokens[RealIndex].Balance = big.NewInt(0)
		swap.AdminFees = big.NewInt(0)
		if err := e.state.PutSwap(swap); err != nil {
			return nil, err
		}
	}
	ownerAcc, err := e.loadAccount(e.owner)
	if err != nil {
		return nil, err
	}
	ownerAcc.Balance = new(big.Int).Add(ownerAcc.Balance, assets)
	if err := e.state.PutAccount(e.owner, ownerAcc); err != nil {
		return nil, err
	}
	return assets, nil
}

// WithdrawAdminFees moves accrued admin fees out of the yield source to the
// owner. Owner only.
func (e *Engine) WithdrawAdminFees(caller common.Address) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return nil, errNotOwner
	}
	swap, err := e.loadSwap()
	if err != nil {
		return nil, err
	}
	if swap.AdminFees.Sign() == 0 {
		return big.NewInt(0), nil
	}
	pot := new(big.Int).Set(swap.AdminFees)
	swap.AdminFees = big.NewInt(0)
	if err := e.state.PutSwap(swap); err != nil {
		return nil, err
	}
	assets, err := e.yield.Withdraw(pot)
	if err != nil {
		return nil, err
	}
	ownerAcc, err := e.loadAccount(e.owner)
	if err != nil {
		return nil, err
	}
	ownerAcc.Balance = new(big.Int).Add(ownerAcc.Balance, assets)
	if err := e.state.PutAccount(e.owner, ownerAcc); err != nil {
		return nil, err
	}
	e.emit(newAdminFeesEvent(assets))
	return assets, nil
}

// CalculateSwap quotes a swap without moving funds.
func (e *Engine) CalculateSwap(i, j int, dx *big.Int) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	swap, err := e.loadSwap()
	if err != nil {
		return nil, err
	}
	dy, _, err := stableswap.CalculateSwap(i, j, dx, swap.balances(), swap.multipliers(),
		swap.Amp.Precise(e.now()), swap.SwapFeeBps)
	return dy, err
}

// VirtualPrice reports invariant value per LP unit, 18 decimals.
func (e *Engine) VirtualPrice() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	swap, err := e.loadSwap()
	if err != nil {
		return nil, err
	}
	return stableswap.VirtualPrice(swap.balances(), swap.multipliers(),
		swap.Amp.Precise(e.now()), swap.LPSupply), nil
}

// A returns the unscaled amplification coefficient at the current time.
func (e *Engine) A() (*big.Int, error) {
	swap, err := e.snapshotSwap()
	if err != nil {
		return nil, err
	}
	return swap.Amp.Value(e.now()), nil
}

// APrecise returns the amplification coefficient scaled by APrecision.
func (e *Engine) APrecise() (*big.Int, error) {
	swap, err := e.snapshotSwap()
	if err != nil {
		return nil, err
	}
	return swap.Amp.Precise(e.now()), nil
}

// AssetBalance returns the accounted real-leg balance.
func (e *Engine) AssetBalance() (*big.Int, error) {
	swap, err := e.snapshotSwap()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(swap.Tokens[RealIndex].Balance), nil
}

// VirtualBalance returns the accounted virtual-leg balance.
func (e *Engine) VirtualBalance() (*big.Int, error) {
	swap, err := e.snapshotSwap()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(swap.Tokens[VirtualIndex].Balance), nil
}

// LPSupply returns the outstanding virtual-LP units.
func (e *Engine) LPSupply() (*big.Int, error) {
	swap, err := e.snapshotSwap()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(swap.LPSupply), nil
}

func (e *Engine) snapshotSwap() (*SwapState, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadSwap()
}

func normalizedBalances(swap *SwapState) [stableswap.NumTokens]*big.Int {
	var xp [stableswap.NumTokens]*big.Int
	for i := range swap.Tokens {
		xp[i] = stableswap.Normalize(swap.Tokens[i].Balance, swap.Tokens[i].Multiplier)
	}
	return xp
}
