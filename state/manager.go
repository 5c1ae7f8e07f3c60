package state

import (
	"bytes"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"yakisoba/core/types"
	"yakisoba/native/elb"
	"yakisoba/native/stableswap"
	"yakisoba/native/vault"
	"yakisoba/storage"
)

var (
	vaultStateKey = []byte("vault:state")
	swapStateKey  = []byte("elb:swap")
	accountPrefix = []byte("acct:")
	sharePrefix   = []byte("share:")
)

// Manager persists engine state as RLP values in a key-value store. It backs
// both the vault and the liquidity pool engines so they share one account
// bank.
type Manager struct {
	mu sync.Mutex
	db storage.Database
}

func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func accountKey(addr common.Address) []byte {
	return append(append([]byte{}, accountPrefix...), addr.Bytes()...)
}

func shareKey(addr common.Address) []byte {
	return append(append([]byte{}, sharePrefix...), addr.Bytes()...)
}

func (m *Manager) get(key []byte, out interface{}) (bool, error) {
	ok, err := m.db.Has(key)
	if err != nil || !ok {
		return false, err
	}
	raw, err := m.db.Get(key)
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) put(key []byte, in interface{}) error {
	raw, err := rlp.EncodeToBytes(in)
	if err != nil {
		return err
	}
	return m.db.Put(key, raw)
}

// GetAccount loads an account from the bank, or nil when absent.
func (m *Manager) GetAccount(addr common.Address) (*types.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := new(types.Account)
	ok, err := m.get(accountKey(addr), acc)
	if err != nil || !ok {
		return nil, err
	}
	return acc.Normalize(), nil
}

func (m *Manager) PutAccount(addr common.Address, acc *types.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.put(accountKey(addr), acc.Normalize())
}

// --- liquidity pool state ---

type storedAmp struct {
	InitialA    *big.Int
	FutureA     *big.Int
	InitialTime uint64
	FutureTime  uint64
}

type storedToken struct {
	Address    common.Address
	Decimals   uint8
	Multiplier *big.Int
	Balance    *big.Int
}

type storedSwap struct {
	Tokens      []storedToken
	Underlying  []common.Address
	Amp         storedAmp
	SwapFeeBps  uint64
	AdminFeeBps uint64
	AdminFees   *big.Int
	LPSupply    *big.Int
	Migrated    bool
}

func (m *Manager) GetSwap() (*elb.SwapState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := new(storedSwap)
	ok, err := m.get(swapStateKey, stored)
	if err != nil || !ok {
		return nil, err
	}
	swap := &elb.SwapState{
		Amp: &stableswap.Amplification{
			InitialA:     stored.Amp.InitialA,
			FutureA:      stored.Amp.FutureA,
			InitialATime: int64(stored.Amp.InitialTime),
			FutureATime:  int64(stored.Amp.FutureTime),
		},
	}
	for i := range stored.Tokens {
		if i >= len(swap.Tokens) {
			break
		}
		swap.Tokens[i] = elb.PooledToken{
			Address:    stored.Tokens[i].Address,
			Decimals:   stored.Tokens[i].Decimals,
			Multiplier: stored.Tokens[i].Multiplier,
			Balance:    stored.Tokens[i].Balance,
		}
	}
	for i := range stored.Underlying {
		if i >= len(swap.Underlying) {
			break
		}
		swap.Underlying[i] = stored.Underlying[i]
	}
	swap.SwapFeeBps = stored.SwapFeeBps
	swap.AdminFeeBps = stored.AdminFeeBps
	swap.AdminFees = stored.AdminFees
	swap.LPSupply = stored.LPSupply
	swap.Migrated = stored.Migrated
	return swap, nil
}

func (m *Manager) PutSwap(swap *elb.SwapState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := &storedSwap{
		Amp: storedAmp{
			InitialA:    swap.Amp.InitialA,
			FutureA:     swap.Amp.FutureA,
			InitialTime: uint64(swap.Amp.InitialATime),
			FutureTime:  uint64(swap.Amp.FutureATime),
		},
		SwapFeeBps:  swap.SwapFeeBps,
		AdminFeeBps: swap.AdminFeeBps,
		AdminFees:   swap.AdminFees,
		LPSupply:    swap.LPSupply,
		Migrated:    swap.Migrated,
	}
	for i := range swap.Tokens {
		stored.Tokens = append(stored.Tokens, storedToken{
			Address:    swap.Tokens[i].Address,
			Decimals:   swap.Tokens[i].Decimals,
			Multiplier: swap.Tokens[i].Multiplier,
			Balance:    swap.Tokens[i].Balance,
		})
	}
	stored.Underlying = append(stored.Underlying, swap.Underlying[:]...)
	return m.put(swapStateKey, stored)
}

// --- vault state ---

type storedSnapshot struct {
	ID    uint64
	Value *big.Int
}

type storedChain struct {
	ChainID         uint64
	Debt            *big.Int
	MaxDeposit      *big.Int
	Bridge          common.Address
	RemoteAllocator common.Address
	RemoteBridge    common.Address
}

type storedPoolRecord struct {
	Pool      common.Address
	Debt      *big.Int
	Liquidity *big.Int
	LPUnits   *big.Int
	Enabled   bool
}

type storedStray struct {
	Token  common.Address
	Amount *big.Int
}

type storedVault struct {
	Asset          common.Address
	AssetDecimals  uint8
	LocalChainID   uint64
	TotalSupply    *big.Int
	MaxTotalAssets *big.Int
	Paused         bool

	PerformanceBps uint64
	ManagementBps  uint64
	WithdrawBps    uint64

	CheckpointSharePrice *big.Int
	CheckpointTime       uint64
	AnticipatedProfit    *big.Int
	LastProfitUpdate     uint64

	HasPool bool
	Pool    storedPoolRecord
	Chains  []storedChain

	SnapshotID      uint64
	SupplySnapshots []storedSnapshot
	Strays          []storedStray
}

func (m *Manager) GetVault() (*vault.VaultState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := new(storedVault)
	ok, err := m.get(vaultStateKey, stored)
	if err != nil || !ok {
		return nil, err
	}
	st := &vault.VaultState{
		Asset:          stored.Asset,
		AssetDecimals:  stored.AssetDecimals,
		LocalChainID:   stored.LocalChainID,
		TotalSupply:    stored.TotalSupply,
		MaxTotalAssets: stored.MaxTotalAssets,
		Paused:         stored.Paused,
		Fees: vault.FeeConfig{
			PerformanceBps: stored.PerformanceBps,
			ManagementBps:  stored.ManagementBps,
			WithdrawBps:    stored.WithdrawBps,
		},
		CheckpointSharePrice: stored.CheckpointSharePrice,
		CheckpointTime:       int64(stored.CheckpointTime),
		AnticipatedProfit:    stored.AnticipatedProfit,
		LastProfitUpdate:     int64(stored.LastProfitUpdate),
		SnapshotID:           stored.SnapshotID,
		Chains:               make(map[uint64]*vault.ChainRecord, len(stored.Chains)),
		StrayTokens:          make(map[common.Address]*big.Int, len(stored.Strays)),
	}
	if stored.HasPool {
		st.Pool = &vault.LiquidityPoolRecord{
			Pool:      stored.Pool.Pool,
			Debt:      stored.Pool.Debt,
			Liquidity: stored.Pool.Liquidity,
			LPUnits:   stored.Pool.LPUnits,
			Enabled:   stored.Pool.Enabled,
		}
	}
	for _, c := range stored.Chains {
		st.Chains[c.ChainID] = &vault.ChainRecord{
			ChainID:         c.ChainID,
			Debt:            c.Debt,
			MaxDeposit:      c.MaxDeposit,
			Bridge:          c.Bridge,
			RemoteAllocator: c.RemoteAllocator,
			RemoteBridge:    c.RemoteBridge,
		}
	}
	for _, s := range stored.Strays {
		st.StrayTokens[s.Token] = s.Amount
	}
	for _, s := range stored.SupplySnapshots {
		st.SupplySnapshots = append(st.SupplySnapshots, vault.SnapshotEntry{ID: s.ID, Value: s.Value})
	}
	return st, nil
}

func (m *Manager) PutVault(st *vault.VaultState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := &storedVault{
		Asset:                st.Asset,
		AssetDecimals:        st.AssetDecimals,
		LocalChainID:         st.LocalChainID,
		TotalSupply:          st.TotalSupply,
		MaxTotalAssets:       st.MaxTotalAssets,
		Paused:               st.Paused,
		PerformanceBps:       st.Fees.PerformanceBps,
		ManagementBps:        st.Fees.ManagementBps,
		WithdrawBps:          st.Fees.WithdrawBps,
		CheckpointSharePrice: st.CheckpointSharePrice,
		CheckpointTime:       uint64(st.CheckpointTime),
		AnticipatedProfit:    st.AnticipatedProfit,
		LastProfitUpdate:     uint64(st.LastProfitUpdate),
		SnapshotID:           st.SnapshotID,
	}
	if st.Pool != nil {
		stored.HasPool = true
		stored.Pool = storedPoolRecord{
			Pool:      st.Pool.Pool,
			Debt:      st.Pool.Debt,
			Liquidity: st.Pool.Liquidity,
			LPUnits:   st.Pool.LPUnits,
			Enabled:   st.Pool.Enabled,
		}
	} else {
		stored.Pool = storedPoolRecord{
			Debt:      big.NewInt(0),
			Liquidity: big.NewInt(0),
			LPUnits:   big.NewInt(0),
		}
	}
	chainIDs := make([]uint64, 0, len(st.Chains))
	for id := range st.Chains {
		chainIDs = append(chainIDs, id)
	}
	sort.Slice(chainIDs, func(i, j int) bool { return chainIDs[i] < chainIDs[j] })
	for _, id := range chainIDs {
		rec := st.Chains[id]
		stored.Chains = append(stored.Chains, storedChain{
			ChainID:         rec.ChainID,
			Debt:            rec.Debt,
			MaxDeposit:      rec.MaxDeposit,
			Bridge:          rec.Bridge,
			RemoteAllocator: rec.RemoteAllocator,
			RemoteBridge:    rec.RemoteBridge,
		})
	}
	strays := make([]common.Address, 0, len(st.StrayTokens))
	for token := range st.StrayTokens {
		strays = append(strays, token)
	}
	sort.Slice(strays, func(i, j int) bool {
		return bytes.Compare(strays[i].Bytes(), strays[j].Bytes()) < 0
	})
	for _, token := range strays {
		stored.Strays = append(stored.Strays, storedStray{Token: token, Amount: st.StrayTokens[token]})
	}
	for _, s := range st.SupplySnapshots {
		stored.SupplySnapshots = append(stored.SupplySnapshots, storedSnapshot{ID: s.ID, Value: s.Value})
	}
	return m.put(vaultStateKey, stored)
}

type storedShare struct {
	Address   common.Address
	Balance   *big.Int
	Snapshots []storedSnapshot
}

func (m *Manager) GetShareAccount(addr common.Address) (*vault.ShareAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := new(storedShare)
	ok, err := m.get(shareKey(addr), stored)
	if err != nil || !ok {
		return nil, err
	}
	acc := &vault.ShareAccount{Address: stored.Address, Balance: stored.Balance}
	for _, s := range stored.Snapshots {
		acc.Snapshots = append(acc.Snapshots, vault.SnapshotEntry{ID: s.ID, Value: s.Value})
	}
	return acc, nil
}

func (m *Manager) PutShareAccount(addr common.Address, acc *vault.ShareAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := &storedShare{Address: acc.Address, Balance: acc.Balance}
	if stored.Balance == nil {
		stored.Balance = big.NewInt(0)
	}
	for _, s := range acc.Snapshots {
		stored.Snapshots = append(stored.Snapshots, storedSnapshot{ID: s.ID, Value: s.Value})
	}
	return m.put(shareKey(addr), stored)
}
