package elb

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"yakisoba/core/types"
)

const (
	// EventTypeAddLiquidity is emitted when the vault seeds the pool.
	EventTypeAddLiquidity = "elb.addLiquidity"
	// EventTypeRemoveLiquidity is emitted when virtual-LP units are burned.
	EventTypeRemoveLiquidity = "elb.removeLiquidity"
	// EventTypeSwap is emitted for both swap directions.
	EventTypeSwap = "elb.swap"
	// EventTypeRampA is emitted when an amplification ramp starts.
	EventTypeRampA = "elb.rampA"
	// EventTypeStopRampA is emitted when a ramp is frozen.
	EventTypeStopRampA = "elb.stopRampA"
	// EventTypeMigrated is emitted once when the pool retires.
	EventTypeMigrated = "elb.migrated"
	// EventTypeAdminFees is emitted when admin fees are swept.
	EventTypeAdminFees = "elb.adminFees"
)

func bigAttr(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func newAddLiquidityEvent(caller common.Address, amount, received, minted *big.Int) *types.Event {
	return &types.Event{Type: EventTypeAddLiquidity, Attributes: map[string]string{
		"caller":   caller.Hex(),
		"amount":   bigAttr(amount),
		"received": bigAttr(received),
		"lpMinted": bigAttr(minted),
	}}
}

func newRemoveLiquidityEvent(caller common.Address, lpAmount, assets *big.Int) *types.Event {
	return &types.Event{Type: EventTypeRemoveLiquidity, Attributes: map[string]string{
		"caller":   caller.Hex(),
		"lpBurned": bigAttr(lpAmount),
		"assets":   bigAttr(assets),
	}}
}

func newSwapEvent(caller common.Address, from, to int, dx, dy, fee *big.Int) *types.Event {
	return &types.Event{Type: EventTypeSwap, Attributes: map[string]string{
		"caller": caller.Hex(),
		"from":   strconv.Itoa(from),
		"to":     strconv.Itoa(to),
		"dx":     bigAttr(dx),
		"dy":     bigAttr(dy),
		"fee":    bigAttr(fee),
	}}
}

func newRampEvent(futureA uint64, futureATime int64) *types.Event {
	return &types.Event{Type: EventTypeRampA, Attributes: map[string]string{
		"futureA":     strconv.FormatUint(futureA, 10),
		"futureATime": strconv.FormatInt(futureATime, 10),
	}}
}

func newStopRampEvent(frozenA *big.Int) *types.Event {
	return &types.Event{Type: EventTypeStopRampA, Attributes: map[string]string{
		"aPrecise": bigAttr(frozenA),
	}}
}

func newMigratedEvent(outcome MigrationOutcome) *types.Event {
	status := "completed"
	if outcome == MigrationExternalFailure {
		status = "externalFailure"
	}
	return &types.Event{Type: EventTypeMigrated, Attributes: map[string]string{
		"outcome": status,
	}}
}

func newAdminFeesEvent(assets *big.Int) *types.Event {
	return &types.Event{Type: EventTypeAdminFees, Attributes: map[string]string{
		"assets": bigAttr(assets),
	}}
}
