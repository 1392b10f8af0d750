package round

import (
	"math"
	"math/rand"
	"testing"
)

func TestSampleCrash_Distribution(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const draws = 100_000
	const minCrash, maxCrash = 1.01, 1000.0

	instant := 0
	for i := 0; i < draws; i++ {
		v := SampleCrash(rng.Float64(), minCrash, maxCrash, 1.6)
		if v == 1.00 {
			instant++
			continue
		}
		if v < minCrash {
			t.Fatalf("draw %d = %v, below min %v", i, v, minCrash)
		}
		if v > maxCrash {
			t.Fatalf("draw %d = %v, above max %v", i, v, maxCrash)
		}
	}

	share := float64(instant) / draws
	if math.Abs(share-InstantCrashChance) > 0.003 {
		t.Errorf("instant crash share = %.4f, want %.2f±0.003", share, InstantCrashChance)
	}
}

func TestSampleCrash_Formula(t *testing.T) {
	tests := []struct {
		r    float64
		want float64
	}{
		{0.0, 1.00},
		{0.019, 1.00},
		{0.5, 1.01 + math.Ln2*1.6},
		{0.9, 1.01 + math.Log(10)*1.6},
	}
	for _, tt := range tests {
		got := SampleCrash(tt.r, 1.01, 1000, 1.6)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("SampleCrash(%v) = %v, want %v", tt.r, got, tt.want)
		}
	}

	if got := SampleCrash(0.999999, 1.01, 5, 1.6); got != 5 {
		t.Errorf("SampleCrash near 1 = %v, want capped at 5", got)
	}
}

func TestMultiplier(t *testing.T) {
	if got := Multiplier(1.0, 0.08, 0); got != 1.0 {
		t.Errorf("Multiplier at 0s = %v, want 1", got)
	}
	got := Multiplier(1.0, 0.08, 10)
	if want := math.Exp(0.8); math.Abs(got-want) > 1e-12 {
		t.Errorf("Multiplier at 10s = %v, want %v", got, want)
	}
	if got := Multiplier(2.0, 0, 30); got != 2.0 {
		t.Errorf("Multiplier with no growth = %v, want 2", got)
	}
}

func TestPayout(t *testing.T) {
	tests := []struct {
		amount, multiplier, want float64
	}{
		{50, 2, 99},
		{100, 1, 99},
		{200, 1.5, 297},
	}
	for _, tt := range tests {
		if got := Payout(tt.amount, tt.multiplier); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Payout(%v, %v) = %v, want %v", tt.amount, tt.multiplier, got, tt.want)
		}
	}
}
