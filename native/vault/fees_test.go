package vault

import (
	"errors"
	"math/big"
	"testing"
	"time"
)

func TestPerformanceFeeFromPriceGain(t *testing.T) {
	v := newTestVault(t, FeeConfig{PerformanceBps: 2000})
	openVault(t, v, 10_000*unit)

	// Yield lands on the local balance: price moves 1.0 -> 1.1.
	fund(v.state, vaultAddr, 10*unit)

	perf, mgmt, err := v.engine.ComputeFees()
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if perf.Cmp(big.NewInt(2*unit)) != 0 {
		t.Fatalf("performance fee %s, want %d", perf, 2*unit)
	}
	if mgmt.Sign() != 0 {
		t.Fatalf("management fee %s, want 0", mgmt)
	}

	if _, err := v.engine.TakeFees(aliceAddr); err != errNotOwner {
		t.Fatalf("expected owner error, got %v", err)
	}
	shares, err := v.engine.TakeFees(ownerAddr)
	if err != nil {
		t.Fatalf("take fees: %v", err)
	}
	// 2 units of assets at a 1.1 share price.
	want := new(big.Int).Mul(big.NewInt(2*unit), big.NewInt(unit))
	want.Quo(want, big.NewInt(1_100_000))
	if shares.Cmp(want) != 0 {
		t.Fatalf("fee shares %s, want %s", shares, want)
	}

	// The checkpoint advanced: the same gain is not charged again.
	perf, mgmt, err = v.engine.ComputeFees()
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if perf.Sign() != 0 || mgmt.Sign() != 0 {
		t.Fatalf("fees after checkpoint: perf=%s mgmt=%s", perf, mgmt)
	}
}

func TestManagementFeeAccruesProRata(t *testing.T) {
	v := newTestVault(t, FeeConfig{ManagementBps: 200})
	openVault(t, v, 10_000*unit)
	fund(v.state, vaultAddr, 10*unit)

	v.advance(time.Duration(SecondsPerYear/2) * time.Second)
	perf, mgmt, err := v.engine.ComputeFees()
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if perf.Sign() != 0 {
		t.Fatalf("performance fee %s, want 0", perf)
	}
	// 2% of 110 units over half a year.
	if mgmt.Cmp(big.NewInt(1_100_000)) != 0 {
		t.Fatalf("management fee %s, want 1100000", mgmt)
	}
}

func TestFeesCappedAtAssetGain(t *testing.T) {
	v := newTestVault(t, FeeConfig{ManagementBps: 10_000})
	openVault(t, v, 10_000*unit)

	// A full year at 100% management would eat the principal; without any
	// gain there is nothing to take.
	v.advance(time.Duration(SecondsPerYear) * time.Second)
	perf, mgmt, err := v.engine.ComputeFees()
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if perf.Sign() != 0 || mgmt.Sign() != 0 {
		t.Fatalf("fees without gain: perf=%s mgmt=%s", perf, mgmt)
	}

	fund(v.state, vaultAddr, 5*unit)
	perf, mgmt, err = v.engine.ComputeFees()
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	sum := new(big.Int).Add(perf, mgmt)
	if sum.Cmp(big.NewInt(5*unit)) != 0 {
		t.Fatalf("fees %s, want capped at gain %d", sum, 5*unit)
	}
}

func TestSetFeesCeilings(t *testing.T) {
	v := newTestVault(t, FeeConfig{})

	cases := []struct {
		name string
		fees FeeConfig
		ok   bool
	}{
		{"moderate", FeeConfig{PerformanceBps: 500, ManagementBps: 100, WithdrawBps: 50}, true},
		{"performance at ceiling", FeeConfig{PerformanceBps: 10_000}, true},
		{"performance above ceiling", FeeConfig{PerformanceBps: 11_000}, false},
		{"management above ceiling", FeeConfig{ManagementBps: 10_001}, false},
		{"withdraw above ceiling", FeeConfig{WithdrawBps: 2_001}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.engine.SetFees(ownerAddr, tc.fees)
			if tc.ok {
				if err != nil {
					t.Fatalf("set fees: %v", err)
				}
				got, err := v.engine.Fees()
				if err != nil || got != tc.fees {
					t.Fatalf("fees %+v err %v", got, err)
				}
				return
			}
			var feeErr *FeeError
			if !errors.As(err, &feeErr) {
				t.Fatalf("expected fee error, got %v", err)
			}
		})
	}

	if err := v.engine.SetFees(aliceAddr, FeeConfig{}); err != errNotOwner {
		t.Fatalf("expected owner error, got %v", err)
	}
}
