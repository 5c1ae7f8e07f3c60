package vault

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// snapshotAccount records the account's balance against the current snapshot
// id, immediately before the first change following that snapshot.
func snapshotAccount(st *VaultState, acc *ShareAccount) {
	if st.SnapshotID == 0 {
		return
	}
	if n := len(acc.Snapshots); n > 0 && acc.Snapshots[n-1].ID >= st.SnapshotID {
		return
	}
	acc.Snapshots = append(acc.Snapshots, SnapshotEntry{
		ID:    st.SnapshotID,
		Value: new(big.Int).Set(acc.Balance),
	})
}

func snapshotSupply(st *VaultState) {
	if st.SnapshotID == 0 {
		return
	}
	if n := len(st.SupplySnapshots); n > 0 && st.SupplySnapshots[n-1].ID >= st.SnapshotID {
		return
	}
	st.SupplySnapshots = append(st.SupplySnapshots, SnapshotEntry{
		ID:    st.SnapshotID,
		Value: new(big.Int).Set(st.TotalSupply),
	})
}

func mintShares(st *VaultState, acc *ShareAccount, shares *big.Int) {
	snapshotAccount(st, acc)
	snapshotSupply(st)
	acc.Balance = new(big.Int).Add(acc.Balance, shares)
	st.TotalSupply = new(big.Int).Add(st.TotalSupply, shares)
}

func burnShares(st *VaultState, acc *ShareAccount, shares *big.Int) {
	snapshotAccount(st, acc)
	snapshotSupply(st)
	acc.Balance = new(big.Int).Sub(acc.Balance, shares)
	st.TotalSupply = new(big.Int).Sub(st.TotalSupply, shares)
}

func valueAt(entries []SnapshotEntry, id uint64, current *big.Int) *big.Int {
	idx := sort.Search(len(entries), func(i int) bool {
		return entries[i].ID >= id
	})
	if idx == len(entries) {
		return new(big.Int).Set(current)
	}
	return new(big.Int).Set(entries[idx].Value)
}

// Transfer moves shares between holders, recording snapshot history on both
// sides.
func (e *Engine) Transfer(from, to common.Address, shares *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if shares == nil || shares.Sign() <= 0 {
		return errAmountZero
	}
	if to == e.vaultAddress {
		return errSelfReceiver
	}
	st, err := e.loadState()
	if err != nil {
		return err
	}
	fromAcc, err := e.loadShare(from)
	if err != nil {
		return err
	}
	if fromAcc.Balance.Cmp(shares) < 0 {
		return errInsufficientShares
	}
	toAcc, err := e.loadShare(to)
	if err != nil {
		return err
	}
	snapshotAccount(st, fromAcc)
	snapshotAccount(st, toAcc)
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, shares)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, shares)
	if err := e.state.PutShareAccount(from, fromAcc); err != nil {
		return err
	}
	if err := e.state.PutShareAccount(to, toAcc); err != nil {
		return err
	}
	if err := e.state.PutVault(st); err != nil {
		return err
	}
	e.emit(newTransferEvent(from, to, shares))
	return nil
}

// Snapshot advances the snapshot counter. Owner only. IDs start at 1.
func (e *Engine) Snapshot(caller common.Address) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return 0, errNotOwner
	}
	st, err := e.loadState()
	if err != nil {
		return 0, err
	}
	st.SnapshotID++
	if err := e.state.PutVault(st); err != nil {
		return 0, err
	}
	e.emit(newSnapshotEvent(st.SnapshotID))
	return st.SnapshotID, nil
}

// BalanceOfAt reports the share balance of addr as of snapshot id.
func (e *Engine) BalanceOfAt(addr common.Address, id uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	if id == 0 || id > st.SnapshotID {
		return nil, errSnapshotID
	}
	acc, err := e.loadShare(addr)
	if err != nil {
		return nil, err
	}
	return valueAt(acc.Snapshots, id, acc.Balance), nil
}

// TotalSupplyAt reports the share supply as of snapshot id.
func (e *Engine) TotalSupplyAt(id uint64) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	if id == 0 || id > st.SnapshotID {
		return nil, errSnapshotID
	}
	return valueAt(st.SupplySnapshots, id, st.TotalSupply), nil
}
