package spc

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	cases := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{4.2}, 4.2},
		{"several", []float64{1, 2, 3, 4}, 2.5},
		{"negative", []float64{-2, 2}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Mean(tc.in)
			if math.Abs(got-tc.want) > 1e-12 {
				t.Fatalf("Mean(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestRange(t *testing.T) {
	cases := []struct {
		name string
		in   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{7}, 0},
		{"ordered", []float64{1, 2, 5}, 4},
		{"unordered", []float64{5, 1, 3}, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Range(tc.in); math.Abs(got-tc.want) > 1e-12 {
				t.Fatalf("Range(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestStdDevUsesSampleDenominator(t *testing.T) {
	// variance of {2,4,4,4,5,5,7,9} with n-1 denominator is 32/7
	got, ok := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if !ok {
		t.Fatalf("expected ok=true")
	}
	want := math.Sqrt(32.0 / 7.0)
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("StdDev = %v, want %v", got, want)
	}
}

func TestStdDevUndefinedBelowTwoPoints(t *testing.T) {
	if _, ok := StdDev([]float64{3.14}); ok {
		t.Fatalf("expected ok=false for single measurement")
	}
	if _, ok := StdDev(nil); ok {
		t.Fatalf("expected ok=false for empty input")
	}
}

func TestAllFinite(t *testing.T) {
	if !AllFinite([]float64{1, -2, 0}) {
		t.Fatalf("finite values reported non-finite")
	}
	if AllFinite([]float64{1, math.NaN()}) {
		t.Fatalf("NaN not rejected")
	}
	if AllFinite([]float64{math.Inf(1)}) {
		t.Fatalf("+Inf not rejected")
	}
	if AllFinite([]float64{math.Inf(-1)}) {
		t.Fatalf("-Inf not rejected")
	}
}
