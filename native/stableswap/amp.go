package stableswap

import (
	"errors"
	"math/big"
)

// Amplification ramping constants. A values are stored scaled by APrecision;
// the maximum and the change bound apply to the unscaled value.
const (
	APrecision   = 100
	MaxA         = 1_000_000
	MaxAChange   = 10
	MinRampTime  = 7 * 24 * 60 * 60
	RampCooldown = 24 * 60 * 60
)

var (
	errInsufficientRampTime = errors.New("stableswap: insufficient ramp time")
	errAmplificationRange   = errors.New("stableswap: future A must be > 0 and < MAX_A")
	errAmplificationDelta   = errors.New("stableswap: future A is too large")
	errRampCooldown         = errors.New("stableswap: wait 1 day before starting ramp")
	errRampStopped          = errors.New("stableswap: ramp is already stopped")
)

// ErrRampStopped reports a stopRamp call against a ramp that already ended.
func ErrRampStopped() error { return errRampStopped }

// Amplification holds the ramping amplification coefficient. Both bounds are
// scaled by APrecision; reads interpolate linearly across the ramp window.
type Amplification struct {
	InitialA     *big.Int
	FutureA      *big.Int
	InitialATime int64
	FutureATime  int64
}

// NewAmplification seeds a flat (non-ramping) amplification state from an
// unscaled coefficient.
func NewAmplification(initialA uint64) *Amplification {
	scaled := new(big.Int).Mul(new(big.Int).SetUint64(initialA), big.NewInt(APrecision))
	return &Amplification{
		InitialA: scaled,
		FutureA:  new(big.Int).Set(scaled),
	}
}

// Copy returns a deep copy of the amplification state.
func (a *Amplification) Copy() *Amplification {
	if a == nil {
		return nil
	}
	clone := &Amplification{InitialATime: a.InitialATime, FutureATime: a.FutureATime}
	if a.InitialA != nil {
		clone.InitialA = new(big.Int).Set(a.InitialA)
	}
	if a.FutureA != nil {
		clone.FutureA = new(big.Int).Set(a.FutureA)
	}
	return clone
}

// Precise returns A(t) scaled by APrecision at the supplied unix time.
func (a *Amplification) Precise(now int64) *big.Int {
	if a == nil || a.InitialA == nil || a.FutureA == nil {
		return big.NewInt(0)
	}
	if now >= a.FutureATime || a.FutureATime == a.InitialATime {
		return new(big.Int).Set(a.FutureA)
	}
	if now <= a.InitialATime {
		return new(big.Int).Set(a.InitialA)
	}
	elapsed := big.NewInt(now - a.InitialATime)
	window := big.NewInt(a.FutureATime - a.InitialATime)
	if a.FutureA.Cmp(a.InitialA) >= 0 {
		delta := new(big.Int).Sub(a.FutureA, a.InitialA)
		delta.Mul(delta, elapsed)
		delta.Quo(delta, window)
		return delta.Add(a.InitialA, delta)
	}
	delta := new(big.Int).Sub(a.InitialA, a.FutureA)
	delta.Mul(delta, elapsed)
	delta.Quo(delta, window)
	return new(big.Int).Sub(a.InitialA, delta)
}

// Value returns the unscaled A(t) at the supplied unix time.
func (a *Amplification) Value(now int64) *big.Int {
	v := a.Precise(now)
	return v.Quo(v, big.NewInt(APrecision))
}

// StartRamp begins a linear ramp towards the unscaled futureA ending at
// futureATime. The previous ramp must have started more than RampCooldown ago,
// the window must span at least MinRampTime, and the target must stay within
// MaxAChange of the current coefficient.
func (a *Amplification) StartRamp(futureA uint64, futureATime, now int64) error {
	if a == nil {
		return errAmplificationRange
	}
	if now < a.InitialATime+RampCooldown {
		return errRampCooldown
	}
	if futureATime < now+MinRampTime {
		return errInsufficientRampTime
	}
	if futureA == 0 || futureA >= MaxA {
		return errAmplificationRange
	}
	current := a.Precise(now)
	futurePrecise := new(big.Int).Mul(new(big.Int).SetUint64(futureA), big.NewInt(APrecision))
	if futurePrecise.Cmp(current) < 0 {
		// Ramping down: no more than MaxAChange-fold reduction.
		bound := new(big.Int).Mul(futurePrecise, big.NewInt(MaxAChange))
		if bound.Cmp(current) < 0 {
			return errAmplificationDelta
		}
	} else {
		bound := new(big.Int).Mul(current, big.NewInt(MaxAChange))
		if futurePrecise.Cmp(bound) > 0 {
			return errAmplificationDelta
		}
	}
	a.InitialA = current
	a.FutureA = futurePrecise
	a.InitialATime = now
	a.FutureATime = futureATime
	return nil
}

// StopRamp freezes the coefficient at its instantaneous value. A second stop
// without an intervening StartRamp fails.
func (a *Amplification) StopRamp(now int64) error {
	if a == nil {
		return errRampStopped
	}
	if now >= a.FutureATime {
		return errRampStopped
	}
	current := a.Precise(now)
	a.InitialA = current
	a.FutureA = new(big.Int).Set(current)
	a.InitialATime = now
	a.FutureATime = now
	return nil
}
