package vault

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func newPoolVault(t *testing.T, seedLiquidity int64) (*testVault, *mockPool) {
	t.Helper()
	v := newTestVault(t, FeeConfig{})
	openVault(t, v, 10_000*unit)
	pool := newMockPool(v.state, vaultAddr)
	if err := v.engine.MigrateLiquidityPool(ownerAddr, pool, poolAddr, nil); err != nil {
		t.Fatalf("install pool: %v", err)
	}
	if seedLiquidity > 0 {
		if err := v.engine.EnableLiquidityPool(ownerAddr, big.NewInt(seedLiquidity)); err != nil {
			t.Fatalf("enable pool: %v", err)
		}
	}
	return v, pool
}

func TestEnableLiquidityPool(t *testing.T) {
	v := newTestVault(t, FeeConfig{})
	if err := v.engine.EnableLiquidityPool(ownerAddr, big.NewInt(unit)); err != errPoolNotSet {
		t.Fatalf("expected pool not set, got %v", err)
	}

	v, pool := newPoolVault(t, 80*unit)
	rec, err := v.engine.PoolRecord()
	if err != nil {
		t.Fatalf("pool record: %v", err)
	}
	if !rec.Enabled || rec.Debt.Cmp(big.NewInt(80*unit)) != 0 || rec.Liquidity.Cmp(big.NewInt(80*unit)) != 0 {
		t.Fatalf("record %+v", rec)
	}
	if got := v.state.balance(vaultAddr); got.Cmp(big.NewInt(20*unit)) != 0 {
		t.Fatalf("vault local balance %s", got)
	}
	if pool.held.Cmp(big.NewInt(80*unit)) != 0 {
		t.Fatalf("pool holds %s", pool.held)
	}
	// Pool debt still counts toward total assets.
	total, err := v.engine.TotalAssets()
	if err != nil || total.Cmp(big.NewInt(100*unit)) != 0 {
		t.Fatalf("total %v err %v", total, err)
	}
	if err := v.engine.EnableLiquidityPool(aliceAddr, big.NewInt(unit)); err != errNotOwner {
		t.Fatalf("expected owner error, got %v", err)
	}
}

func TestWithdrawDrainsLocalThenPool(t *testing.T) {
	v, pool := newPoolVault(t, 80*unit)
	fund(v.state, aliceAddr, 50*unit)
	mustDeposit(t, v, aliceAddr, aliceAddr, 50*unit)
	// Local 70, pool debt 80.

	if _, err := v.engine.Withdraw(ownerAddr, ownerAddr, ownerAddr, big.NewInt(60*unit)); err != nil {
		t.Fatalf("owner withdraw: %v", err)
	}
	// Local 10 left: the next withdrawal has to pull 40 out of the pool.
	if _, err := v.engine.Withdraw(aliceAddr, aliceAddr, aliceAddr, big.NewInt(50*unit)); err != nil {
		t.Fatalf("alice withdraw: %v", err)
	}
	if got := v.state.balance(aliceAddr); got.Cmp(big.NewInt(50*unit)) != 0 {
		t.Fatalf("alice received %s", got)
	}
	rec, err := v.engine.PoolRecord()
	if err != nil || rec.Debt.Cmp(big.NewInt(40*unit)) != 0 {
		t.Fatalf("pool debt %v err %v", rec, err)
	}
	if pool.held.Cmp(big.NewInt(40*unit)) != 0 {
		t.Fatalf("pool holds %s", pool.held)
	}
}

func TestDepositRefillsPoolHeadroom(t *testing.T) {
	v, pool := newPoolVault(t, 80*unit)
	fund(v.state, aliceAddr, 50*unit)
	mustDeposit(t, v, aliceAddr, aliceAddr, 50*unit)
	if _, err := v.engine.Withdraw(ownerAddr, ownerAddr, ownerAddr, big.NewInt(60*unit)); err != nil {
		t.Fatalf("owner withdraw: %v", err)
	}
	if _, err := v.engine.Withdraw(aliceAddr, aliceAddr, aliceAddr, big.NewInt(50*unit)); err != nil {
		t.Fatalf("alice withdraw: %v", err)
	}
	// Pool debt 40, band 80: the next deposit is routed in up to the band.
	fund(v.state, bobAddr, 30*unit)
	shares := mustDeposit(t, v, bobAddr, bobAddr, 30*unit)
	if shares.Cmp(big.NewInt(30*unit)) != 0 {
		t.Fatalf("bob shares %s", shares)
	}
	rec, err := v.engine.PoolRecord()
	if err != nil || rec.Debt.Cmp(big.NewInt(70*unit)) != 0 {
		t.Fatalf("pool debt after refill %v err %v", rec, err)
	}
	if pool.held.Cmp(big.NewInt(70*unit)) != 0 {
		t.Fatalf("pool holds %s", pool.held)
	}
}

func TestMintRoutesThroughPool(t *testing.T) {
	v, pool := newPoolVault(t, 80*unit)
	fund(v.state, aliceAddr, 50*unit)
	mustDeposit(t, v, aliceAddr, aliceAddr, 50*unit)
	if _, err := v.engine.Withdraw(ownerAddr, ownerAddr, ownerAddr, big.NewInt(60*unit)); err != nil {
		t.Fatalf("owner withdraw: %v", err)
	}
	if _, err := v.engine.Withdraw(aliceAddr, aliceAddr, aliceAddr, big.NewInt(50*unit)); err != nil {
		t.Fatalf("alice withdraw: %v", err)
	}
	// Pool debt 40, band 80: minting refills the pool exactly like a deposit.
	fund(v.state, bobAddr, 30*unit)
	assets, err := v.engine.Mint(bobAddr, bobAddr, big.NewInt(30*unit))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if assets.Cmp(big.NewInt(30*unit)) != 0 {
		t.Fatalf("mint cost %s", assets)
	}
	rec, err := v.engine.PoolRecord()
	if err != nil || rec.Debt.Cmp(big.NewInt(70*unit)) != 0 {
		t.Fatalf("pool debt after mint %v err %v", rec, err)
	}
	if pool.held.Cmp(big.NewInt(70*unit)) != 0 {
		t.Fatalf("pool holds %s", pool.held)
	}
	if got := v.state.balance(vaultAddr); got.Sign() != 0 {
		t.Fatalf("local after mint %s", got)
	}
}

func TestWithdrawWithoutPoolEngineFallsBack(t *testing.T) {
	v, _ := newPoolVault(t, 80*unit)
	// A restarted engine over the same state with no pool wired: the enabled
	// record alone must not grant access to pool liquidity.
	engine := NewEngine(ownerAddr, vaultAddr)
	engine.SetState(v.state)
	engine.SetClock(func() time.Time { return v.now })

	// Local balance is 20: withdrawals within it still pay out.
	if _, err := engine.Withdraw(ownerAddr, ownerAddr, ownerAddr, big.NewInt(10*unit)); err != nil {
		t.Fatalf("local withdraw: %v", err)
	}
	// Anything needing the pool leg is a plain shortage.
	if _, err := engine.Withdraw(ownerAddr, ownerAddr, ownerAddr, big.NewInt(50*unit)); err != errInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestDepositSwapBonusAccruesToDepositor(t *testing.T) {
	v, pool := newPoolVault(t, 80*unit)
	if _, err := v.engine.Withdraw(ownerAddr, ownerAddr, ownerAddr, big.NewInt(50*unit)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	// Pool debt 50, band 80. A positive swap delta lands on the depositor.
	pool.swapBonus = 7
	fund(v.state, bobAddr, 30*unit)
	shares := mustDeposit(t, v, bobAddr, bobAddr, 30*unit)
	want := big.NewInt(30*unit + 7)
	if shares.Cmp(want) != 0 {
		t.Fatalf("bonus shares %s, want %s", shares, want)
	}
}

func TestRebalanceLiquidityPool(t *testing.T) {
	v, pool := newPoolVault(t, 80*unit)

	// Debt sits exactly on the band: nothing to move.
	if err := v.engine.RebalanceLiquidityPool(ownerAddr); err != errNoFundsToRebalance {
		t.Fatalf("expected nothing to rebalance, got %v", err)
	}

	// Underweight pool, local surplus: fill.
	v.state.vault.Pool.Debt = big.NewInt(60 * unit)
	pool.held = big.NewInt(60 * unit)
	if err := v.engine.RebalanceLiquidityPool(ownerAddr); err != nil {
		t.Fatalf("fill rebalance: %v", err)
	}
	rec, err := v.engine.PoolRecord()
	if err != nil || rec.Debt.Cmp(big.NewInt(80*unit)) != 0 {
		t.Fatalf("debt after fill %v err %v", rec, err)
	}
	if got := v.state.balance(vaultAddr); got.Sign() != 0 {
		t.Fatalf("local after fill %s", got)
	}

	// Overweight pool: drain back to the band.
	v.state.vault.Pool.Debt = big.NewInt(100 * unit)
	pool.held = big.NewInt(100 * unit)
	if err := v.engine.RebalanceLiquidityPool(ownerAddr); err != nil {
		t.Fatalf("drain rebalance: %v", err)
	}
	rec, err = v.engine.PoolRecord()
	if err != nil || rec.Debt.Cmp(big.NewInt(80*unit)) != 0 {
		t.Fatalf("debt after drain %v err %v", rec, err)
	}
	if got := v.state.balance(vaultAddr); got.Cmp(big.NewInt(20*unit)) != 0 {
		t.Fatalf("local after drain %s", got)
	}

	if err := v.engine.Pause(ownerAddr); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := v.engine.RebalanceLiquidityPool(ownerAddr); err != errPaused {
		t.Fatalf("expected paused, got %v", err)
	}
}

func TestIncreaseDecreaseLiquidity(t *testing.T) {
	v, pool := newPoolVault(t, 80*unit)

	if err := v.engine.DecreaseLiquidity(ownerAddr, big.NewInt(30*unit)); err != nil {
		t.Fatalf("decrease: %v", err)
	}
	rec, err := v.engine.PoolRecord()
	if err != nil || rec.Debt.Cmp(big.NewInt(50*unit)) != 0 || rec.Liquidity.Cmp(big.NewInt(50*unit)) != 0 {
		t.Fatalf("record after decrease %+v err %v", rec, err)
	}
	if got := v.state.balance(vaultAddr); got.Cmp(big.NewInt(50*unit)) != 0 {
		t.Fatalf("local after decrease %s", got)
	}
	if err := v.engine.DecreaseLiquidity(ownerAddr, big.NewInt(100*unit)); err != errInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	if err := v.engine.IncreaseLiquidity(ownerAddr, big.NewInt(10*unit)); err != nil {
		t.Fatalf("increase: %v", err)
	}
	rec, err = v.engine.PoolRecord()
	if err != nil || rec.Debt.Cmp(big.NewInt(60*unit)) != 0 || rec.Liquidity.Cmp(big.NewInt(60*unit)) != 0 {
		t.Fatalf("record after increase %+v err %v", rec, err)
	}
	if pool.held.Cmp(big.NewInt(60*unit)) != 0 {
		t.Fatalf("pool holds %s", pool.held)
	}
	if err := v.engine.IncreaseLiquidity(aliceAddr, big.NewInt(unit)); err != errNotOwner {
		t.Fatalf("expected owner error, got %v", err)
	}
}

func TestMigrateLiquidityPoolBringsFundsHome(t *testing.T) {
	v, _ := newPoolVault(t, 80*unit)

	if err := v.engine.MigrateLiquidityPool(ownerAddr, nil, common.Address{}, nil); err != nil {
		t.Fatalf("migrate out: %v", err)
	}
	if _, err := v.engine.PoolRecord(); err != errPoolNotSet {
		t.Fatalf("record should be cleared, got %v", err)
	}
	if got := v.state.balance(vaultAddr); got.Cmp(big.NewInt(100*unit)) != 0 {
		t.Fatalf("local after migrate %s", got)
	}
	total, err := v.engine.TotalAssets()
	if err != nil || total.Cmp(big.NewInt(100*unit)) != 0 {
		t.Fatalf("total after migrate %v err %v", total, err)
	}
}

func TestMigrateLiquidityPoolToleratesFailure(t *testing.T) {
	v, pool := newPoolVault(t, 80*unit)
	pool.migrateErr = errors.New("pool unreachable")

	if err := v.engine.MigrateLiquidityPool(ownerAddr, nil, common.Address{}, nil); err != nil {
		t.Fatalf("migration must tolerate pool failure: %v", err)
	}
	if _, err := v.engine.PoolRecord(); err != errPoolNotSet {
		t.Fatalf("record should be cleared, got %v", err)
	}
	if err := v.engine.MigrateLiquidityPool(aliceAddr, nil, common.Address{}, nil); err != errNotOwner {
		t.Fatalf("expected owner error, got %v", err)
	}
}

func TestMigrateLiquidityPoolWithSeed(t *testing.T) {
	v := newTestVault(t, FeeConfig{})
	openVault(t, v, 10_000*unit)
	pool := newMockPool(v.state, vaultAddr)

	if err := v.engine.MigrateLiquidityPool(ownerAddr, pool, poolAddr, big.NewInt(40*unit)); err != nil {
		t.Fatalf("migrate with seed: %v", err)
	}
	rec, err := v.engine.PoolRecord()
	if err != nil || !rec.Enabled || rec.Debt.Cmp(big.NewInt(40*unit)) != 0 {
		t.Fatalf("record %+v err %v", rec, err)
	}
	if pool.held.Cmp(big.NewInt(40*unit)) != 0 {
		t.Fatalf("pool holds %s", pool.held)
	}
}
