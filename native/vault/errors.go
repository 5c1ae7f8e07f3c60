package vault

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	errNilState            = errors.New("vault: state not configured")
	errNotInitialized      = errors.New("vault: not initialised")
	errAlreadyInitialized  = errors.New("vault: already initialised")
	errNotOwner            = errors.New("vault: caller is not the owner")
	errUnauthorized        = errors.New("vault: caller is not a whitelisted bridge")
	errAmountZero          = errors.New("vault: amount is zero")
	errSelfReceiver        = errors.New("vault: yakisoba cannot be the receiver")
	errPaused              = errors.New("vault: paused")
	errNotPaused           = errors.New("vault: cap is frozen while paused with live shares")
	errExpired             = errors.New("vault: transaction expired")
	errInsufficientFunds   = errors.New("vault: insufficient funds")
	errInsufficientShares  = errors.New("vault: insufficient share balance")
	errIncorrectShares     = errors.New("vault: share amount out of bounds")
	errIncorrectAssets     = errors.New("vault: asset amount out of bounds")
	errArrayLengths        = errors.New("vault: dispatch arrays must have equal lengths")
	errPoolNotSet          = errors.New("vault: liquidity pool not set")
	errNoFundsToRebalance  = errors.New("vault: no funds to rebalance")
	errCannotRescueReserve = errors.New("vault: reserve asset cannot be rescued")
	errSnapshotID          = errors.New("vault: snapshot id out of range")
)

// Exported matchers for callers routing on error class.
var (
	ErrAlreadyInitialized = errAlreadyInitialized
	ErrUnauthorized       = errUnauthorized
	ErrAmountZero         = errAmountZero
	ErrPaused             = errPaused
	ErrExpired            = errExpired
	ErrInsufficientFunds  = errInsufficientFunds
	ErrIncorrectShares    = errIncorrectShares
	ErrIncorrectAssets    = errIncorrectAssets
	ErrArrayLengths       = errArrayLengths
	ErrPoolNotSet         = errPoolNotSet
	ErrNoFundsToRebalance = errNoFundsToRebalance
)

// AmountTooHighError reports a deposit or dispatch above the permitted
// maximum, carrying the maximum so callers can retry at the cap.
type AmountTooHighError struct {
	Max *big.Int
}

func (e *AmountTooHighError) Error() string {
	return fmt.Sprintf("vault: amount too high, maximum is %s", e.Max)
}

// MinAmountTooLowError reports a dispatch slippage bound below the accepted
// floor, carrying the floor.
type MinAmountTooLowError struct {
	Floor *big.Int
}

func (e *MinAmountTooLowError) Error() string {
	return fmt.Sprintf("vault: min amount too low, floor is %s", e.Floor)
}

// ExtraFundsError reports attached fee value exceeding the sum of the fee
// budgets, carrying the excess.
type ExtraFundsError struct {
	Excess *big.Int
}

func (e *ExtraFundsError) Error() string {
	return fmt.Sprintf("vault: extra funds attached, excess is %s", e.Excess)
}

// ChainError reports an operation referencing a chain the ledger does not
// know about.
type ChainError struct {
	ChainID uint64
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("vault: unknown chain %d", e.ChainID)
}

// FeeError reports a fee rate above its hard ceiling.
type FeeError struct {
	Name    string
	Bps     uint64
	Ceiling uint64
}

func (e *FeeError) Error() string {
	return fmt.Sprintf("vault: %s fee %d bps above ceiling %d", e.Name, e.Bps, e.Ceiling)
}
