package stableswap

import (
	"math/big"
	"testing"
)

func TestAmplificationFlat(t *testing.T) {
	amp := NewAmplification(400)
	if got := amp.Value(0).Int64(); got != 400 {
		t.Fatalf("expected 400, got %d", got)
	}
	if got := amp.Precise(1 << 40).Int64(); got != 40_000 {
		t.Fatalf("expected 40000, got %d", got)
	}
}

func TestAmplificationRampInterpolates(t *testing.T) {
	amp := NewAmplification(400)
	start := int64(RampCooldown + 1)
	end := start + MinRampTime
	if err := amp.StartRamp(420, end, start); err != nil {
		t.Fatalf("start ramp: %v", err)
	}
	if got := amp.Value(start).Int64(); got != 400 {
		t.Fatalf("at ramp start expected 400, got %d", got)
	}
	mid := start + MinRampTime/2
	if got := amp.Value(mid).Int64(); got != 410 {
		t.Fatalf("halfway expected 410, got %d", got)
	}
	if got := amp.Value(end).Int64(); got != 420 {
		t.Fatalf("after ramp expected 420, got %d", got)
	}
	if got := amp.Value(end + MinRampTime).Int64(); got != 420 {
		t.Fatalf("long after ramp expected 420, got %d", got)
	}

	// Monotonic throughout the window.
	prev := amp.Precise(start)
	for ts := start; ts <= end; ts += MinRampTime / 16 {
		cur := amp.Precise(ts)
		if cur.Cmp(prev) < 0 {
			t.Fatalf("amplification decreased at %d: %s < %s", ts, cur, prev)
		}
		prev = cur
	}
}

func TestAmplificationRampDown(t *testing.T) {
	amp := NewAmplification(400)
	start := int64(RampCooldown + 1)
	end := start + MinRampTime
	if err := amp.StartRamp(200, end, start); err != nil {
		t.Fatalf("start ramp down: %v", err)
	}
	mid := start + MinRampTime/2
	if got := amp.Value(mid).Int64(); got != 300 {
		t.Fatalf("halfway expected 300, got %d", got)
	}
	if got := amp.Value(end).Int64(); got != 200 {
		t.Fatalf("after ramp expected 200, got %d", got)
	}
}

func TestStartRampValidation(t *testing.T) {
	start := int64(RampCooldown + 1)
	end := start + MinRampTime

	cases := []struct {
		name    string
		futureA uint64
		endTime int64
		now     int64
		wantErr error
	}{
		{"window too short", 420, start + MinRampTime - 1, start, errInsufficientRampTime},
		{"zero future A", 0, end, start, errAmplificationRange},
		{"future A above max", MaxA, end, start, errAmplificationRange},
		{"more than tenfold increase", 400*MaxAChange + 1, end, start, errAmplificationDelta},
		{"more than tenfold decrease", 39, end, start, errAmplificationDelta},
		{"cooldown not elapsed", 420, end, RampCooldown - 1, errRampCooldown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			amp := NewAmplification(400)
			err := amp.StartRamp(tc.futureA, tc.endTime, tc.now)
			if err != tc.wantErr {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestStartRampCooldownAfterRamp(t *testing.T) {
	amp := NewAmplification(400)
	start := int64(RampCooldown + 1)
	if err := amp.StartRamp(420, start+MinRampTime, start); err != nil {
		t.Fatalf("first ramp: %v", err)
	}
	err := amp.StartRamp(440, start+1+2*MinRampTime, start+1)
	if err != errRampCooldown {
		t.Fatalf("expected cooldown error, got %v", err)
	}
	if err := amp.StartRamp(440, start+RampCooldown+2*MinRampTime, start+RampCooldown); err != nil {
		t.Fatalf("ramp after cooldown: %v", err)
	}
}

func TestStopRampFreezesValue(t *testing.T) {
	amp := NewAmplification(400)
	start := int64(RampCooldown + 1)
	end := start + MinRampTime
	if err := amp.StartRamp(420, end, start); err != nil {
		t.Fatalf("start ramp: %v", err)
	}
	mid := start + MinRampTime/2
	frozen := amp.Precise(mid)
	if err := amp.StopRamp(mid); err != nil {
		t.Fatalf("stop ramp: %v", err)
	}
	if amp.Precise(mid).Cmp(frozen) != 0 {
		t.Fatalf("value changed at stop time")
	}
	if amp.Precise(end + MinRampTime).Cmp(frozen) != 0 {
		t.Fatalf("value drifted after stop")
	}
	if err := amp.StopRamp(mid + 10); err != errRampStopped {
		t.Fatalf("expected ramp stopped error, got %v", err)
	}
}

func TestAmplificationCopy(t *testing.T) {
	amp := NewAmplification(400)
	clone := amp.Copy()
	clone.FutureA.Add(clone.FutureA, big.NewInt(1))
	if amp.FutureA.Cmp(clone.FutureA) == 0 {
		t.Fatal("copy shares future A pointer")
	}
}
