package stableswap

import (
	"errors"
	"math/big"
)

// The invariant solver operates on exactly two balances normalized to a
// common precision. Index 0 is the virtual leg, index 1 the real leg, but the
// math is symmetric and does not care.
const (
	NumTokens             = 2
	PoolPrecisionDecimals = 18
	MaxDecimals           = 18
	maxIterations         = 255
	feeDenominator        = 10_000
)

var (
	errSameToken     = errors.New("stableswap: cannot swap a token for itself")
	errIndexRange    = errors.New("stableswap: token index out of range")
	errZeroLiquidity = errors.New("stableswap: no liquidity")

	one            = big.NewInt(1)
	two            = big.NewInt(2)
	nTokens        = big.NewInt(NumTokens)
	nTokensPlusOne = big.NewInt(NumTokens + 1)
	aPrecisionInt  = big.NewInt(APrecision)
	// PricePrecision scales virtual prices to 18 decimals.
	PricePrecision = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// MultiplierFor returns the precision multiplier normalizing a token with the
// given decimals to the pool precision.
func MultiplierFor(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(PoolPrecisionDecimals-int(decimals))), nil)
}

// Normalize scales a raw token amount into pool precision.
func Normalize(amount, multiplier *big.Int) *big.Int {
	if amount == nil || multiplier == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(amount, multiplier)
}

// Denormalize scales a pool-precision amount back into raw token units,
// flooring.
func Denormalize(amount, multiplier *big.Int) *big.Int {
	if amount == nil || multiplier == nil || multiplier.Sign() == 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Quo(amount, multiplier)
}

// D solves the two-asset StableSwap invariant for the given normalized
// balances and precise (scaled) amplification coefficient using Newton's
// method. On non-convergence the last iterate is returned rather than an
// error; callers never observe a failure here.
func D(xp [NumTokens]*big.Int, aPrecise *big.Int) *big.Int {
	s := new(big.Int)
	for _, x := range xp {
		if x != nil {
			s.Add(s, x)
		}
	}
	if s.Sign() == 0 {
		return big.NewInt(0)
	}
	d := new(big.Int).Set(s)
	nA := new(big.Int).Mul(aPrecise, nTokens)
	for i := 0; i < maxIterations; i++ {
		dP := new(big.Int).Set(d)
		for _, x := range xp {
			if x == nil || x.Sign() == 0 {
				// A one-sided pool has no solvable invariant; hand back the
				// current iterate instead of dividing by zero.
				return d
			}
			den := new(big.Int).Mul(x, nTokens)
			dP.Mul(dP, d)
			dP.Quo(dP, den)
		}
		dPrev := new(big.Int).Set(d)
		// d = (nA*s/A_PRECISION + dP*n) * d / ((nA-A_PRECISION)*d/A_PRECISION + (n+1)*dP)
		num := new(big.Int).Mul(nA, s)
		num.Quo(num, aPrecisionInt)
		num.Add(num, new(big.Int).Mul(dP, nTokens))
		num.Mul(num, d)
		den := new(big.Int).Sub(nA, aPrecisionInt)
		den.Mul(den, d)
		den.Quo(den, aPrecisionInt)
		den.Add(den, new(big.Int).Mul(dP, nTokensPlusOne))
		d = num.Quo(num, den)
		if within1(d, dPrev) {
			return d
		}
	}
	return d
}

// Y computes the post-swap normalized balance of token `to` given that token
// `from` moves to balance x, holding D constant.
func Y(from, to int, x *big.Int, xp [NumTokens]*big.Int, aPrecise *big.Int) (*big.Int, error) {
	if from == to {
		return nil, errSameToken
	}
	if from < 0 || from >= NumTokens || to < 0 || to >= NumTokens {
		return nil, errIndexRange
	}
	d := D(xp, aPrecise)
	if d.Sign() == 0 {
		return nil, errZeroLiquidity
	}
	nA := new(big.Int).Mul(aPrecise, nTokens)
	c := new(big.Int).Set(d)
	s := new(big.Int)
	for i := 0; i < NumTokens; i++ {
		var xi *big.Int
		switch {
		case i == from:
			xi = x
		case i == to:
			continue
		default:
			xi = xp[i]
		}
		if xi == nil || xi.Sign() == 0 {
			return nil, errZeroLiquidity
		}
		s.Add(s, xi)
		den := new(big.Int).Mul(xi, nTokens)
		c.Mul(c, d)
		c.Quo(c, den)
	}
	// c = c * d * A_PRECISION / (nA * n)
	c.Mul(c, d)
	c.Mul(c, aPrecisionInt)
	c.Quo(c, new(big.Int).Mul(nA, nTokens))
	// b = s + d * A_PRECISION / nA
	b := new(big.Int).Mul(d, aPrecisionInt)
	b.Quo(b, nA)
	b.Add(b, s)

	y := new(big.Int).Set(d)
	for i := 0; i < maxIterations; i++ {
		yPrev := new(big.Int).Set(y)
		// y = (y*y + c) / (2y + b - d)
		num := new(big.Int).Mul(y, y)
		num.Add(num, c)
		den := new(big.Int).Mul(y, two)
		den.Add(den, b)
		den.Sub(den, d)
		y = num.Quo(num, den)
		if within1(y, yPrev) {
			return y, nil
		}
	}
	return y, nil
}

// CalculateSwap returns the raw output amount and the raw fee charged for
// swapping dx of token i into token j, given raw balances and their precision
// multipliers. The fee (in basis points) is deducted from the output.
func CalculateSwap(i, j int, dx *big.Int, balances, multipliers [NumTokens]*big.Int, aPrecise *big.Int, feeBps uint64) (*big.Int, *big.Int, error) {
	if i == j {
		return nil, nil, errSameToken
	}
	if i < 0 || i >= NumTokens || j < 0 || j >= NumTokens {
		return nil, nil, errIndexRange
	}
	if dx == nil || dx.Sign() == 0 {
		return big.NewInt(0), big.NewInt(0), nil
	}
	var xp [NumTokens]*big.Int
	for k := 0; k < NumTokens; k++ {
		xp[k] = Normalize(balances[k], multipliers[k])
	}
	x := new(big.Int).Add(xp[i], Normalize(dx, multipliers[i]))
	y, err := Y(i, j, x, xp, aPrecise)
	if err != nil {
		return nil, nil, err
	}
	dy := new(big.Int).Sub(xp[j], y)
	if dy.Sign() > 0 {
		dy.Sub(dy, one) // round against the taker
	} else {
		dy.SetInt64(0)
	}
	fee := new(big.Int).Mul(dy, new(big.Int).SetUint64(feeBps))
	fee.Quo(fee, big.NewInt(feeDenominator))
	dy.Sub(dy, fee)
	return Denormalize(dy, multipliers[j]), Denormalize(fee, multipliers[j]), nil
}

// VirtualPrice returns D scaled to 18 decimals per nominal LP unit. A zero
// supply yields zero.
func VirtualPrice(balances, multipliers [NumTokens]*big.Int, aPrecise, lpSupply *big.Int) *big.Int {
	if lpSupply == nil || lpSupply.Sign() == 0 {
		return big.NewInt(0)
	}
	var xp [NumTokens]*big.Int
	for k := 0; k < NumTokens; k++ {
		xp[k] = Normalize(balances[k], multipliers[k])
	}
	d := D(xp, aPrecise)
	price := new(big.Int).Mul(d, PricePrecision)
	return price.Quo(price, lpSupply)
}

func within1(a, b *big.Int) bool {
	diff := new(big.Int).Sub(a, b)
	return diff.CmpAbs(one) <= 0
}
