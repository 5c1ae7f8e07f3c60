package vault

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"yakisoba/core/types"
	"yakisoba/native/bridge"
)

// AddChain registers or re-registers a remote chain route. Re-adding updates
// routing and the deposit cap but never resets accrued debt. Owner only.
func (e *Engine) AddChain(caller common.Address, chainID uint64, maxDeposit *big.Int, bridgeAddr, remoteAllocator, remoteBridge common.Address) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return errNotOwner
	}
	if maxDeposit == nil {
		maxDeposit = big.NewInt(0)
	}
	st, err := e.loadState()
	if err != nil {
		return err
	}
	rec, ok := st.Chains[chainID]
	if !ok {
		rec = (&ChainRecord{ChainID: chainID}).normalize()
		st.Chains[chainID] = rec
	}
	rec.MaxDeposit = new(big.Int).Set(maxDeposit)
	rec.Bridge = bridgeAddr
	rec.RemoteAllocator = remoteAllocator
	rec.RemoteBridge = remoteBridge
	if err := e.state.PutVault(st); err != nil {
		return err
	}
	e.emit(newChainAddedEvent(chainID, maxDeposit, bridgeAddr))
	return nil
}

// SetMaxDepositForChain updates the dispatch cap of a known chain. Owner only.
func (e *Engine) SetMaxDepositForChain(caller common.Address, amount *big.Int, chainID uint64) error {
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
	rec, ok := st.Chains[chainID]
	if !ok {
		return &ChainError{ChainID: chainID}
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	rec.MaxDeposit = new(big.Int).Set(amount)
	return e.state.PutVault(st)
}

// EstimateDispatchCost quotes the relay fee per chain. The local chain is
// always free.
func (e *Engine) EstimateDispatchCost(chainIDs []uint64, amounts []*big.Int) ([]*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(chainIDs) != len(amounts) {
		return nil, errArrayLengths
	}
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	costs := make([]*big.Int, len(chainIDs))
	for i, chainID := range chainIDs {
		if chainID == st.LocalChainID {
			costs[i] = big.NewInt(0)
			continue
		}
		if _, ok := st.Chains[chainID]; !ok {
			return nil, &ChainError{ChainID: chainID}
		}
		if e.relay == nil {
			return nil, bridge.ErrUnknownChain
		}
		fee, err := e.relay.EstimateFee(chainID, amounts[i])
		if err != nil {
			return nil, err
		}
		costs[i] = fee
	}
	return costs, nil
}

// DispatchAssets moves assets to remote allocators. Per chain the amount is
// capped at maxDeposit minus current debt and the slippage bound must sit at
// or above 97% of the amount. Debt is booked before the relay is handed the
// message. The attached feeValue must equal the sum of the fee budgets.
// Owner only.
func (e *Engine) DispatchAssets(caller common.Address, amounts, minAmounts []*big.Int, chainIDs []uint64, feeBudgets []*big.Int, routingData [][]byte, feeValue *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return errNotOwner
	}
	if len(amounts) != len(minAmounts) || len(amounts) != len(chainIDs) ||
		len(amounts) != len(feeBudgets) || len(amounts) != len(routingData) {
		return errArrayLengths
	}
	st, err := e.loadState()
	if err != nil {
		return err
	}

	totalAmount := big.NewInt(0)
	totalFees := big.NewInt(0)
	for i, chainID := range chainIDs {
		rec, ok := st.Chains[chainID]
		if !ok {
			return &ChainError{ChainID: chainID}
		}
		amount := amounts[i]
		if amount == nil || amount.Sign() <= 0 {
			return errAmountZero
		}
		max := new(big.Int).Sub(rec.MaxDeposit, rec.Debt)
		if max.Sign() < 0 {
			max.SetInt64(0)
		}
		if amount.Cmp(max) > 0 {
			return &AmountTooHighError{Max: max}
		}
		floor := new(big.Int).Mul(amount, big.NewInt(dispatchFloorBps))
		floor.Quo(floor, big.NewInt(feeDenominator))
		if minAmounts[i] == nil || minAmounts[i].Cmp(floor) < 0 {
			return &MinAmountTooLowError{Floor: floor}
		}
		totalAmount.Add(totalAmount, amount)
		if feeBudgets[i] != nil {
			totalFees.Add(totalFees, feeBudgets[i])
		}
	}
	if feeValue == nil {
		feeValue = big.NewInt(0)
	}
	switch feeValue.Cmp(totalFees) {
	case 1:
		return &ExtraFundsError{Excess: new(big.Int).Sub(feeValue, totalFees)}
	case -1:
		return errInsufficientFunds
	}
	local, err := e.localBalance()
	if err != nil {
		return err
	}
	if local.Cmp(totalAmount) < 0 {
		return errInsufficientFunds
	}
	// Stage every debit and debt increment in memory, relay all messages,
	// and persist in one shot at the end. A relay failure mid-batch must
	// not leave assets debited with no matching debt on record.
	var callerAcc *types.Account
	if feeValue.Sign() > 0 {
		callerAcc, err = e.loadAccount(caller)
		if err != nil {
			return err
		}
		if callerAcc.NativeBalance.Cmp(feeValue) < 0 {
			return errInsufficientFunds
		}
		callerAcc.NativeBalance = new(big.Int).Sub(callerAcc.NativeBalance, feeValue)
	}

	now := e.now()
	vaultAcc, err := e.loadAccount(e.vaultAddress)
	if err != nil {
		return err
	}
	vaultAcc.Balance = new(big.Int).Sub(vaultAcc.Balance, totalAmount)

	msgs := make([]*bridge.DispatchMessage, 0, len(chainIDs))
	for i, chainID := range chainIDs {
		rec := st.Chains[chainID]
		rec.Debt = new(big.Int).Add(rec.Debt, amounts[i])
		budget := feeBudgets[i]
		if budget == nil {
			budget = big.NewInt(0)
		}
		msg := &bridge.DispatchMessage{
			MessageID:       bridge.NewMessageID(),
			ChainID:         chainID,
			Amount:          new(big.Int).Set(amounts[i]),
			MinAmount:       new(big.Int).Set(minAmounts[i]),
			FeeBudget:       new(big.Int).Set(budget),
			RemoteAllocator: rec.RemoteAllocator,
			RemoteBridge:    rec.RemoteBridge,
			RoutingData:     routingData[i],
			DispatchedAt:    now,
		}
		if e.relay != nil && chainID != st.LocalChainID {
			if err := e.relay.Send(msg); err != nil {
				return err
			}
		}
		msgs = append(msgs, msg)
	}

	if callerAcc != nil {
		if err := e.state.PutAccount(caller, callerAcc); err != nil {
			return err
		}
	}
	if err := e.state.PutAccount(e.vaultAddress, vaultAcc); err != nil {
		return err
	}
	if err := e.state.PutVault(st); err != nil {
		return err
	}
	for _, msg := range msgs {
		e.emit(newDispatchEvent(msg.ChainID, msg.MessageID, msg.Amount, msg.MinAmount, msg.FeeBudget))
	}
	return nil
}

// UpdateChainDebt is the settlement path for remote allocators reporting
// their debt through the whitelisted bridge. A positive delta is anticipated
// profit: the still-locked remainder carries over, the delta is added, and
// the unlock window restarts. A negative delta hits total assets immediately.
func (e *Engine) UpdateChainDebt(caller common.Address, chainID uint64, newDebt *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.loadState()
	if err != nil {
		return err
	}
	rec, ok := st.Chains[chainID]
	if !ok {
		return &ChainError{ChainID: chainID}
	}
	if caller != rec.Bridge {
		return errUnauthorized
	}
	if newDebt == nil || newDebt.Sign() < 0 {
		return errAmountZero
	}
	now := e.now()
	totalBefore, err := e.totalAssets(st, now)
	if err != nil {
		return err
	}
	priceBefore := sharePrice(st, totalBefore)
	oldDebt := rec.Debt
	delta := new(big.Int).Sub(newDebt, oldDebt)
	if delta.Sign() > 0 {
		remaining := lockedProfit(st, now)
		st.AnticipatedProfit = new(big.Int).Add(remaining, delta)
		st.LastProfitUpdate = now
	}
	rec.Debt = new(big.Int).Set(newDebt)
	if err := e.state.PutVault(st); err != nil {
		return err
	}
	totalAfter, err := e.totalAssets(st, now)
	if err != nil {
		return err
	}
	e.emit(newChainDebtUpdatedEvent(chainID, oldDebt, newDebt))
	e.emit(newSharePriceUpdatedEvent(priceBefore, sharePrice(st, totalAfter)))
	return nil
}

// ReceiveBridgedFunds settles assets coming home from a remote allocator,
// reducing chain debt and crediting the local balance. Bridge only.
func (e *Engine) ReceiveBridgedFunds(caller common.Address, chainID uint64, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.loadState()
	if err != nil {
		return err
	}
	rec, ok := st.Chains[chainID]
	if !ok {
		return &ChainError{ChainID: chainID}
	}
	if caller != rec.Bridge {
		return errUnauthorized
	}
	if amount == nil || amount.Sign() <= 0 {
		return errAmountZero
	}
	if err := e.moveAssets(caller, e.vaultAddress, amount); err != nil {
		return err
	}
	newDebt := new(big.Int).Sub(rec.Debt, amount)
	if newDebt.Sign() < 0 {
		newDebt.SetInt64(0)
	}
	rec.Debt = newDebt
	if err := e.state.PutVault(st); err != nil {
		return err
	}
	e.emit(newBridgedFundsReceivedEvent(chainID, amount, rec.Debt))
	return nil
}

// Chains returns a copy of every registered chain record ordered by chain ID.
func (e *Engine) Chains() ([]*ChainRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	out := make([]*ChainRecord, 0, len(st.Chains))
	for _, rec := range st.Chains {
		copied := *rec
		copied.Debt = new(big.Int).Set(rec.Debt)
		copied.MaxDeposit = new(big.Int).Set(rec.MaxDeposit)
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out, nil
}

// ChainDebt reports the debt of a known chain.
func (e *Engine) ChainDebt(chainID uint64) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	rec, ok := st.Chains[chainID]
	if !ok {
		return nil, &ChainError{ChainID: chainID}
	}
	return new(big.Int).Set(rec.Debt), nil
}
