package vault

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"yakisoba/core/types"
	"yakisoba/native/elb"
)

// mockEngineState hands out copies on every Get, the way the codec-backed
// store does: nothing the engine stages in memory is visible until it is put
// back.
type mockEngineState struct {
	vault    *VaultState
	shares   map[common.Address]*ShareAccount
	accounts map[common.Address]*types.Account
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{
		shares:   make(map[common.Address]*ShareAccount),
		accounts: make(map[common.Address]*types.Account),
	}
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func copyVaultState(st *VaultState) *VaultState {
	if st == nil {
		return nil
	}
	clone := *st
	clone.TotalSupply = copyBig(st.TotalSupply)
	clone.MaxTotalAssets = copyBig(st.MaxTotalAssets)
	clone.CheckpointSharePrice = copyBig(st.CheckpointSharePrice)
	clone.AnticipatedProfit = copyBig(st.AnticipatedProfit)
	if st.Pool != nil {
		pool := *st.Pool
		pool.Debt = copyBig(st.Pool.Debt)
		pool.Liquidity = copyBig(st.Pool.Liquidity)
		pool.LPUnits = copyBig(st.Pool.LPUnits)
		clone.Pool = &pool
	}
	clone.Chains = make(map[uint64]*ChainRecord, len(st.Chains))
	for id, rec := range st.Chains {
		c := *rec
		c.Debt = copyBig(rec.Debt)
		c.MaxDeposit = copyBig(rec.MaxDeposit)
		clone.Chains[id] = &c
	}
	clone.SupplySnapshots = append([]SnapshotEntry(nil), st.SupplySnapshots...)
	clone.StrayTokens = make(map[common.Address]*big.Int, len(st.StrayTokens))
	for token, amount := range st.StrayTokens {
		clone.StrayTokens[token] = copyBig(amount)
	}
	return &clone
}

func (m *mockEngineState) GetVault() (*VaultState, error) { return copyVaultState(m.vault), nil }

func (m *mockEngineState) PutVault(st *VaultState) error {
	m.vault = st
	return nil
}

func (m *mockEngineState) GetShareAccount(addr common.Address) (*ShareAccount, error) {
	acc := m.shares[addr]
	if acc == nil {
		return nil, nil
	}
	clone := *acc
	clone.Balance = copyBig(acc.Balance)
	clone.Snapshots = append([]SnapshotEntry(nil), acc.Snapshots...)
	return &clone, nil
}

func (m *mockEngineState) PutShareAccount(addr common.Address, acc *ShareAccount) error {
	m.shares[addr] = acc
	return nil
}

func (m *mockEngineState) GetAccount(addr common.Address) (*types.Account, error) {
	return m.accounts[addr].Copy(), nil
}

func (m *mockEngineState) PutAccount(addr common.Address, acc *types.Account) error {
	m.accounts[addr] = acc
	return nil
}

func (m *mockEngineState) balance(addr common.Address) *big.Int {
	if acc := m.accounts[addr]; acc != nil && acc.Balance != nil {
		return acc.Balance
	}
	return big.NewInt(0)
}

// mockPool settles swaps one-to-one against the account bank, with an
// optional bonus on the virtual leg and failure injection.
type mockPool struct {
	state      *mockEngineState
	vaultAddr  common.Address
	held       *big.Int
	swapBonus  int64
	failSwaps  bool
	migrateErr error
	migrateRes elb.MigrationOutcome
}

func newMockPool(state *mockEngineState, vaultAddr common.Address) *mockPool {
	return &mockPool{
		state:      state,
		vaultAddr:  vaultAddr,
		held:       big.NewInt(0),
		migrateRes: elb.MigrationCompleted,
	}
}

func (p *mockPool) debit(addr common.Address, amount *big.Int) error {
	acc := p.state.accounts[addr]
	if acc == nil || acc.Balance.Cmp(amount) < 0 {
		return errInsufficientFunds
	}
	acc.Balance = new(big.Int).Sub(acc.Balance, amount)
	return nil
}

func (p *mockPool) credit(addr common.Address, amount *big.Int) {
	acc := p.state.accounts[addr]
	if acc == nil {
		acc = types.NewAccount(addr)
		p.state.accounts[addr] = acc
	}
	acc.Balance = new(big.Int).Add(acc.Normalize().Balance, amount)
}

func (p *mockPool) AddLiquidity(caller common.Address, amount *big.Int, deadline int64) (*big.Int, error) {
	if err := p.debit(caller, amount); err != nil {
		return nil, err
	}
	p.held.Add(p.held, amount)
	return new(big.Int).Set(amount), nil
}

func (p *mockPool) RemoveLiquidity(caller common.Address, lpAmount *big.Int, deadline int64) (*big.Int, error) {
	out := new(big.Int).Set(lpAmount)
	p.held.Sub(p.held, out)
	p.credit(caller, out)
	return out, nil
}

func (p *mockPool) SwapAssetToVirtual(caller common.Address, dx *big.Int, deadline int64) (*big.Int, error) {
	if p.failSwaps {
		return nil, elb.ErrMigrated
	}
	if err := p.debit(caller, dx); err != nil {
		return nil, err
	}
	p.held.Add(p.held, dx)
	return new(big.Int).Add(dx, big.NewInt(p.swapBonus)), nil
}

func (p *mockPool) CalculateSwap(i, j int, dx *big.Int) (*big.Int, error) {
	if p.failSwaps {
		return nil, elb.ErrMigrated
	}
	if i == elb.RealIndex {
		return new(big.Int).Add(dx, big.NewInt(p.swapBonus)), nil
	}
	return new(big.Int).Set(dx), nil
}

func (p *mockPool) SwapVirtualToAsset(caller common.Address, dx, minDy *big.Int, deadline int64, recipient common.Address) (*big.Int, error) {
	if p.failSwaps {
		return nil, elb.ErrMigrated
	}
	out := new(big.Int).Set(dx)
	p.held.Sub(p.held, out)
	p.credit(recipient, out)
	return out, nil
}

func (p *mockPool) Migrate(caller common.Address) (elb.MigrationOutcome, error) {
	if p.migrateErr != nil {
		return elb.MigrationBlocked, p.migrateErr
	}
	if p.migrateRes == elb.MigrationCompleted && p.held.Sign() > 0 {
		p.credit(p.vaultAddr, p.held)
		p.held = big.NewInt(0)
	}
	return p.migrateRes, nil
}

var (
	ownerAddr  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	vaultAddr  = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	poolAddr   = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	assetAddr  = common.HexToAddress("0x00000000000000000000000000000000000000d4")
	bridgeAddr = common.HexToAddress("0x00000000000000000000000000000000000000e5")
	aliceAddr  = common.HexToAddress("0x00000000000000000000000000000000000000f6")
	bobAddr    = common.HexToAddress("0x0000000000000000000000000000000000000007")
	allocAddr  = common.HexToAddress("0x0000000000000000000000000000000000000008")
)

const (
	assetDecimals = 6
	unit          = 1_000_000
	seedDeposit   = 100 * unit
	localChainID  = 1
	remoteChainID = 10
	startTime     = 1_700_000_000
)

type testVault struct {
	engine *Engine
	state  *mockEngineState
	events *types.EventRecorder
	now    time.Time
}

func (v *testVault) advance(d time.Duration) { v.now = v.now.Add(d) }

func fund(state *mockEngineState, addr common.Address, amount int64) {
	acc := state.accounts[addr]
	if acc == nil {
		acc = types.NewAccount(addr)
		state.accounts[addr] = acc
	}
	acc.Balance = new(big.Int).Add(acc.Normalize().Balance, big.NewInt(amount))
}

func newTestVault(t *testing.T, fees FeeConfig) *testVault {
	t.Helper()
	state := newMockEngineState()
	events := &types.EventRecorder{}
	engine := NewEngine(ownerAddr, vaultAddr)
	engine.SetState(state)
	engine.SetEventSink(events)
	v := &testVault{engine: engine, state: state, events: events, now: time.Unix(startTime, 0)}
	engine.SetClock(func() time.Time { return v.now })
	fund(state, ownerAddr, seedDeposit)
	cfg := VaultConfig{
		Asset:         assetAddr,
		AssetDecimals: assetDecimals,
		LocalChainID:  localChainID,
		Fees:          fees,
		SeedDeposit:   big.NewInt(seedDeposit),
	}
	if err := engine.Initialize(cfg); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return v
}

// openVault unpauses and lifts the deposit cap, the standard go-live flow.
func openVault(t *testing.T, v *testVault, cap int64) {
	t.Helper()
	if err := v.engine.Unpause(ownerAddr); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if err := v.engine.SetMaxTotalAssets(ownerAddr, big.NewInt(cap)); err != nil {
		t.Fatalf("set cap: %v", err)
	}
}

func mustDeposit(t *testing.T, v *testVault, caller, receiver common.Address, assets int64) *big.Int {
	t.Helper()
	shares, err := v.engine.Deposit(caller, receiver, big.NewInt(assets))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	return shares
}

func addRemoteChain(t *testing.T, v *testVault, maxDeposit int64) {
	t.Helper()
	err := v.engine.AddChain(ownerAddr, remoteChainID, big.NewInt(maxDeposit), bridgeAddr, allocAddr, bridgeAddr)
	if err != nil {
		t.Fatalf("add chain: %v", err)
	}
}
