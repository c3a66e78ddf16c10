// v1
// internal/core/scoring_test.go
package core

import (
	"math"
	"testing"
)

func TestComputeScoreNeutralDefaults(t *testing.T) {
	// 50*(30/60) + 30*(1-0/5) + 20*(1-5/10) = 25 + 30 + 10 = 65
	got := ComputeScore(DefaultPhysio, DefaultInterrupt, DefaultEnviron)
	if math.Abs(got-65.0) > 1e-9 {
		t.Fatalf("expected 65.0 for neutral defaults, got %v", got)
	}
}

func TestComputeScoreOptimalConditions(t *testing.T) {
	got := ComputeScore(90, 0, 2)
	want := 50*(50.0/60.0) + 30 + 20*0.8
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got < 80 {
		t.Fatalf("optimal conditions should score >= 80, got %v", got)
	}
}

func TestComputeScorePoorConditions(t *testing.T) {
	got := ComputeScore(45, 5, 10)
	if got > 10 {
		t.Fatalf("poor conditions should score <= 10, got %v", got)
	}
	want := 50 * (5.0 / 60.0)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestComputeScoreRangeInvariant(t *testing.T) {
	inputs := []struct{ p, n, e float64 }{
		{-1000, 0, 0},
		{1e6, 0, 0},
		{70, 1e9, 5},
		{70, -1e9, 5},
		{70, 0, 1e9},
		{70, 0, -1e9},
		{0, 0, 0},
		{100, 5, 10},
	}
	for _, in := range inputs {
		got := ComputeScore(in.p, in.n, in.e)
		if got < 0 || got > 100 {
			t.Fatalf("score out of range for (%v,%v,%v): %v", in.p, in.n, in.e, got)
		}
	}
}

func TestComputeScoreMonotonicPhysio(t *testing.T) {
	values := []float64{-50, 0, 40, 55, 70, 85, 100, 500}
	for i := 1; i < len(values); i++ {
		lo := ComputeScore(values[i-1], 2, 5)
		hi := ComputeScore(values[i], 2, 5)
		if lo > hi {
			t.Fatalf("score not monotonic in physio: f(%v)=%v > f(%v)=%v", values[i-1], lo, values[i], hi)
		}
	}
}

func TestComputeScoreMonotonicInterrupt(t *testing.T) {
	values := []float64{0, 1, 2, 3, 5, 10, 100}
	for i := 1; i < len(values); i++ {
		lo := ComputeScore(70, values[i-1], 5)
		hi := ComputeScore(70, values[i], 5)
		if lo < hi {
			t.Fatalf("score not anti-monotonic in interruptions: f(%v)=%v < f(%v)=%v", values[i-1], lo, values[i], hi)
		}
	}
}

func TestComputeScoreMonotonicEnviron(t *testing.T) {
	values := []float64{0, 2, 5, 8, 10, 50}
	for i := 1; i < len(values); i++ {
		lo := ComputeScore(70, 0, values[i-1])
		hi := ComputeScore(70, 0, values[i])
		if lo < hi {
			t.Fatalf("score not anti-monotonic in noise: f(%v)=%v < f(%v)=%v", values[i-1], lo, values[i], hi)
		}
	}
}

func TestSubstituteTreatsNonFiniteAsAbsent(t *testing.T) {
	slot := Slot{Present: true, Reading: Reading{Kind: Physiological, Value: math.NaN()}}
	if got := Substitute(Physiological, slot); got != DefaultPhysio {
		t.Fatalf("NaN reading should substitute default %v, got %v", DefaultPhysio, got)
	}
	slot.Reading.Value = math.Inf(1)
	if got := Substitute(Physiological, slot); got != DefaultPhysio {
		t.Fatalf("Inf reading should substitute default %v, got %v", DefaultPhysio, got)
	}
}

func TestSubstituteKeepsLegitimateZero(t *testing.T) {
	slot := Slot{Present: true, Reading: Reading{Kind: Environmental, Value: 0}}
	if got := Substitute(Environmental, slot); got != 0 {
		t.Fatalf("present zero reading must not be replaced, got %v", got)
	}
	if got := Substitute(Environmental, Slot{}); got != DefaultEnviron {
		t.Fatalf("absent slot should substitute default %v, got %v", DefaultEnviron, got)
	}
}
