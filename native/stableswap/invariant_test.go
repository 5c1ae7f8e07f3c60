package stableswap

import (
	"math/big"
	"testing"
)

func units(n int64, decimals uint) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return scale.Mul(big.NewInt(n), scale)
}

func normalized(balances, multipliers [NumTokens]*big.Int) [NumTokens]*big.Int {
	var xp [NumTokens]*big.Int
	for i := range balances {
		xp[i] = Normalize(balances[i], multipliers[i])
	}
	return xp
}

func TestMultiplierRoundTrip(t *testing.T) {
	for _, decimals := range []uint8{0, 6, 8, 18} {
		mult := MultiplierFor(decimals)
		amount := units(123_456, uint(decimals))
		norm := Normalize(amount, mult)
		back := Denormalize(norm, mult)
		if back.Cmp(amount) != 0 {
			t.Fatalf("decimals %d: round trip %s != %s", decimals, back, amount)
		}
	}
}

func TestDBalancedPool(t *testing.T) {
	a := NewAmplification(400).Precise(0)
	bal := units(1_000_000, 18)
	xp := [NumTokens]*big.Int{new(big.Int).Set(bal), new(big.Int).Set(bal)}
	d := D(xp, a)
	want := new(big.Int).Mul(bal, big.NewInt(2))
	diff := new(big.Int).Sub(d, want)
	if diff.CmpAbs(big.NewInt(2)) > 0 {
		t.Fatalf("balanced D = %s, want ~%s", d, want)
	}
}

func TestDEmptyPool(t *testing.T) {
	a := NewAmplification(400).Precise(0)
	xp := [NumTokens]*big.Int{big.NewInt(0), big.NewInt(0)}
	if d := D(xp, a); d.Sign() != 0 {
		t.Fatalf("empty pool D = %s, want 0", d)
	}
}

func TestYRecoversBalance(t *testing.T) {
	a := NewAmplification(400).Precise(0)
	xp := [NumTokens]*big.Int{units(1_000_000, 18), units(1_000_000, 18)}
	y, err := Y(0, 1, xp[0], xp, a)
	if err != nil {
		t.Fatalf("Y: %v", err)
	}
	diff := new(big.Int).Sub(y, xp[1])
	if diff.CmpAbs(big.NewInt(2)) > 0 {
		t.Fatalf("identity Y = %s, want ~%s", y, xp[1])
	}
}

func TestYValidation(t *testing.T) {
	a := NewAmplification(400).Precise(0)
	xp := [NumTokens]*big.Int{units(1, 18), units(1, 18)}
	if _, err := Y(0, 0, xp[0], xp, a); err != errSameToken {
		t.Fatalf("expected same-token error, got %v", err)
	}
	if _, err := Y(0, 2, xp[0], xp, a); err != errIndexRange {
		t.Fatalf("expected index error, got %v", err)
	}
}

func TestCalculateSwapChargesFee(t *testing.T) {
	a := NewAmplification(400).Precise(0)
	balances := [NumTokens]*big.Int{units(1_000_000, 6), units(1_000_000, 6)}
	multipliers := [NumTokens]*big.Int{MultiplierFor(6), MultiplierFor(6)}
	dx := units(1_000, 6)

	dyFree, feeZero, err := CalculateSwap(0, 1, dx, balances, multipliers, a, 0)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if feeZero.Sign() != 0 {
		t.Fatalf("zero-fee swap charged %s", feeZero)
	}
	dy, fee, err := CalculateSwap(0, 1, dx, balances, multipliers, a, 4) // 4 bps
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	sum := new(big.Int).Add(dy, fee)
	diff := new(big.Int).Sub(dyFree, sum)
	if diff.CmpAbs(big.NewInt(1)) > 0 {
		t.Fatalf("dy+fee = %s, want %s", sum, dyFree)
	}
	wantFee := new(big.Int).Mul(dyFree, big.NewInt(4))
	wantFee.Quo(wantFee, big.NewInt(10_000))
	feeDiff := new(big.Int).Sub(fee, wantFee)
	if feeDiff.CmpAbs(big.NewInt(1)) > 0 {
		t.Fatalf("fee = %s, want ~%s", fee, wantFee)
	}
}

func TestCalculateSwapNearParity(t *testing.T) {
	// With a strong amplification and a balanced pool, a small swap should
	// return nearly the input amount.
	a := NewAmplification(400).Precise(0)
	balances := [NumTokens]*big.Int{units(10_000_000, 6), units(10_000_000, 6)}
	multipliers := [NumTokens]*big.Int{MultiplierFor(6), MultiplierFor(6)}
	dx := units(100, 6)
	dy, _, err := CalculateSwap(0, 1, dx, balances, multipliers, a, 0)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	slippage := new(big.Int).Sub(dx, dy)
	// Less than 0.01% slippage expected near parity.
	limit := new(big.Int).Quo(dx, big.NewInt(10_000))
	if slippage.Sign() < 0 || slippage.Cmp(limit) > 0 {
		t.Fatalf("slippage %s out of bounds (limit %s)", slippage, limit)
	}
}

func TestSwapPreservesDMinusFee(t *testing.T) {
	// A fee-retaining swap never shrinks D. The growth tracks the retained
	// fee but is not capped by it: on the scarce leg of an amplified pool the
	// marginal sensitivity of D exceeds one, so allow twice the fee plus
	// rounding slack.
	a := NewAmplification(400).Precise(0)
	multipliers := [NumTokens]*big.Int{MultiplierFor(6), MultiplierFor(6)}
	for _, feeBps := range []uint64{0, 4, 100} {
		balances := [NumTokens]*big.Int{units(1_000_000, 6), units(1_000_000, 6)}
		before := D(normalized(balances, multipliers), a)
		dx := units(50_000, 6)
		dy, fee, err := CalculateSwap(0, 1, dx, balances, multipliers, a, feeBps)
		if err != nil {
			t.Fatalf("swap: %v", err)
		}
		balances[0] = new(big.Int).Add(balances[0], dx)
		balances[1] = new(big.Int).Sub(balances[1], dy)
		after := D(normalized(balances, multipliers), a)
		growth := new(big.Int).Sub(after, before)
		if growth.Sign() < 0 {
			t.Fatalf("fee %d bps: D shrank by %s", feeBps, new(big.Int).Neg(growth))
		}
		bound := Normalize(new(big.Int).Add(fee, big.NewInt(4)), multipliers[1])
		bound.Mul(bound, big.NewInt(2))
		if growth.Cmp(bound) > 0 {
			t.Fatalf("fee %d bps: D grew by %s, bound %s", feeBps, growth, bound)
		}
	}
}

func TestVirtualPrice(t *testing.T) {
	a := NewAmplification(400).Precise(0)
	balances := [NumTokens]*big.Int{units(1_000_000, 6), units(1_000_000, 6)}
	multipliers := [NumTokens]*big.Int{MultiplierFor(6), MultiplierFor(6)}
	lpSupply := new(big.Int).Add(Normalize(balances[0], multipliers[0]), Normalize(balances[1], multipliers[1]))
	price := VirtualPrice(balances, multipliers, a, lpSupply)
	diff := new(big.Int).Sub(price, PricePrecision)
	if diff.CmpAbs(big.NewInt(10)) > 0 {
		t.Fatalf("balanced virtual price = %s, want ~%s", price, PricePrecision)
	}
	if VirtualPrice(balances, multipliers, a, big.NewInt(0)).Sign() != 0 {
		t.Fatal("zero supply should price at zero")
	}
}
