package vault

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"yakisoba/core/types"
)

const (
	// EventTypeDeposit is emitted when shares are minted against assets.
	EventTypeDeposit = "yakisoba.deposit"
	// EventTypeWithdraw is emitted when shares are burned for assets.
	EventTypeWithdraw = "yakisoba.withdraw"
	// EventTypeTransfer is emitted on share transfers.
	EventTypeTransfer = "yakisoba.transfer"
	// EventTypeChainAdded is emitted when a remote chain route is registered.
	EventTypeChainAdded = "yakisoba.chainAdded"
	// EventTypeChainDebtUpdated is emitted when a bridge reports remote debt.
	EventTypeChainDebtUpdated = "yakisoba.chainDebtUpdated"
	// EventTypeSharePriceUpdated trails every operation that moves the price.
	EventTypeSharePriceUpdated = "yakisoba.sharePriceUpdated"
	// EventTypeDispatch is emitted per chain when assets leave the vault.
	EventTypeDispatch = "yakisoba.dispatch"
	// EventTypeBridgedFundsReceived is emitted when a bridge returns assets.
	EventTypeBridgedFundsReceived = "yakisoba.bridgedFundsReceived"
	// EventTypeNewFees is emitted when the fee configuration changes.
	EventTypeNewFees = "yakisoba.newFees"
	// EventTypeFeesTaken is emitted when fee shares are minted.
	EventTypeFeesTaken = "yakisoba.feesTaken"
	// EventTypePaused and EventTypeUnpaused track the pause switch.
	EventTypePaused   = "yakisoba.paused"
	EventTypeUnpaused = "yakisoba.unpaused"
	// EventTypeMaxTotalAssets is emitted when the deposit cap changes.
	EventTypeMaxTotalAssets = "yakisoba.maxTotalAssets"
	// EventTypePoolMigrated is emitted when the liquidity pool is swapped out.
	EventTypePoolMigrated = "yakisoba.poolMigrated"
	// EventTypeLiquidityPoolEnabled is emitted when a pool goes live.
	EventTypeLiquidityPoolEnabled = "yakisoba.liquidityPoolEnabled"
	// EventTypeRebalance is emitted when pool liquidity is rebalanced.
	EventTypeRebalance = "yakisoba.rebalance"
	// EventTypeSnapshot is emitted when a balance snapshot is taken.
	EventTypeSnapshot = "yakisoba.snapshot"
	// EventTypeTokenRescued is emitted when stray balances are swept.
	EventTypeTokenRescued = "yakisoba.tokenRescued"
)

func bigAttr(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func newDepositEvent(caller, receiver common.Address, assets, shares *big.Int) *types.Event {
	return &types.Event{Type: EventTypeDeposit, Attributes: map[string]string{
		"caller":   caller.Hex(),
		"receiver": receiver.Hex(),
		"assets":   bigAttr(assets),
		"shares":   bigAttr(shares),
	}}
}

func newWithdrawEvent(caller, receiver, owner common.Address, assets, shares *big.Int) *types.Event {
	return &types.Event{Type: EventTypeWithdraw, Attributes: map[string]string{
		"caller":   caller.Hex(),
		"receiver": receiver.Hex(),
		"owner":    owner.Hex(),
		"assets":   bigAttr(assets),
		"shares":   bigAttr(shares),
	}}
}

func newTransferEvent(from, to common.Address, shares *big.Int) *types.Event {
	return &types.Event{Type: EventTypeTransfer, Attributes: map[string]string{
		"from":   from.Hex(),
		"to":     to.Hex(),
		"shares": bigAttr(shares),
	}}
}

func newChainAddedEvent(chainID uint64, maxDeposit *big.Int, bridge common.Address) *types.Event {
	return &types.Event{Type: EventTypeChainAdded, Attributes: map[string]string{
		"chainId":    strconv.FormatUint(chainID, 10),
		"maxDeposit": bigAttr(maxDeposit),
		"bridge":     bridge.Hex(),
	}}
}

func newChainDebtUpdatedEvent(chainID uint64, oldDebt, newDebt *big.Int) *types.Event {
	return &types.Event{Type: EventTypeChainDebtUpdated, Attributes: map[string]string{
		"chainId": strconv.FormatUint(chainID, 10),
		"oldDebt": bigAttr(oldDebt),
		"newDebt": bigAttr(newDebt),
	}}
}

func newSharePriceUpdatedEvent(before, after *big.Int) *types.Event {
	return &types.Event{Type: EventTypeSharePriceUpdated, Attributes: map[string]string{
		"before": bigAttr(before),
		"after":  bigAttr(after),
	}}
}

func newDispatchEvent(chainID uint64, messageID string, amount, minAmount, feeBudget *big.Int) *types.Event {
	return &types.Event{Type: EventTypeDispatch, Attributes: map[string]string{
		"chainId":   strconv.FormatUint(chainID, 10),
		"messageId": messageID,
		"amount":    bigAttr(amount),
		"minAmount": bigAttr(minAmount),
		"feeBudget": bigAttr(feeBudget),
	}}
}

func newBridgedFundsReceivedEvent(chainID uint64, amount, debt *big.Int) *types.Event {
	return &types.Event{Type: EventTypeBridgedFundsReceived, Attributes: map[string]string{
		"chainId": strconv.FormatUint(chainID, 10),
		"amount":  bigAttr(amount),
		"debt":    bigAttr(debt),
	}}
}

func newFeesEvent(fees FeeConfig) *types.Event {
	return &types.Event{Type: EventTypeNewFees, Attributes: map[string]string{
		"performanceBps": strconv.FormatUint(fees.PerformanceBps, 10),
		"managementBps":  strconv.FormatUint(fees.ManagementBps, 10),
		"withdrawBps":    strconv.FormatUint(fees.WithdrawBps, 10),
	}}
}

func newFeesTakenEvent(perf, mgmt, shares *big.Int) *types.Event {
	return &types.Event{Type: EventTypeFeesTaken, Attributes: map[string]string{
		"performance": bigAttr(perf),
		"management":  bigAttr(mgmt),
		"shares":      bigAttr(shares),
	}}
}

func newPauseEvent(paused bool) *types.Event {
	evtType := EventTypeUnpaused
	if paused {
		evtType = EventTypePaused
	}
	return &types.Event{Type: evtType, Attributes: map[string]string{}}
}

func newMaxTotalAssetsEvent(before, after *big.Int) *types.Event {
	return &types.Event{Type: EventTypeMaxTotalAssets, Attributes: map[string]string{
		"before": bigAttr(before),
		"after":  bigAttr(after),
	}}
}

func newPoolMigratedEvent(oldPool, newPool common.Address, outcome string) *types.Event {
	return &types.Event{Type: EventTypePoolMigrated, Attributes: map[string]string{
		"oldPool": oldPool.Hex(),
		"newPool": newPool.Hex(),
		"outcome": outcome,
	}}
}

func newLiquidityPoolEnabledEvent(pool common.Address, liquidity *big.Int) *types.Event {
	return &types.Event{Type: EventTypeLiquidityPoolEnabled, Attributes: map[string]string{
		"pool":      pool.Hex(),
		"liquidity": bigAttr(liquidity),
	}}
}

func newRebalanceEvent(direction string, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeRebalance, Attributes: map[string]string{
		"direction": direction,
		"amount":    bigAttr(amount),
	}}
}

func newSnapshotEvent(id uint64) *types.Event {
	return &types.Event{Type: EventTypeSnapshot, Attributes: map[string]string{
		"id": strconv.FormatUint(id, 10),
	}}
}

func newTokenRescuedEvent(token common.Address, native bool, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeTokenRescued, Attributes: map[string]string{
		"token":  token.Hex(),
		"native": strconv.FormatBool(native),
		"amount": bigAttr(amount),
	}}
}
