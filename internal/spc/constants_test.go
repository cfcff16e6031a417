package spc

import (
	"math"
	"testing"
)

func TestD2SpotValues(t *testing.T) {
	cases := map[int]float64{
		2:  1.128,
		5:  2.326,
		8:  2.847,
		25: 3.931,
	}
	for n, want := range cases {
		got, err := D2(n)
		if err != nil {
			t.Fatalf("D2(%d): %v", n, err)
		}
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("D2(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestC4SpotValues(t *testing.T) {
	cases := map[int]float64{
		2:  0.7979,
		9:  0.9693,
		12: 0.9776,
		25: 0.9896,
	}
	for n, want := range cases {
		got, err := C4(n)
		if err != nil {
			t.Fatalf("C4(%d): %v", n, err)
		}
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("C4(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestConstantsRejectOutOfRange(t *testing.T) {
	for _, n := range []int{0, 1, 26} {
		if _, err := D2(n); err == nil {
			t.Fatalf("D2(%d): expected error", n)
		}
		if _, err := C4(n); err == nil {
			t.Fatalf("C4(%d): expected error", n)
		}
	}
}
