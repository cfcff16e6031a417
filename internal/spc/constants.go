package spc

import "fmt"

// Bias-correction constants from the standard control-chart tables, indexed by
// subgroup size n. d2 converts the mean subgroup range into an estimate of the
// process standard deviation (sigma = Rbar/d2); c4 does the same for the mean
// subgroup standard deviation (sigma = Sbar/c4). Index 0 and 1 are unused.
var d2Table = [26]float64{
	0, 0,
	1.128, 1.693, 2.059, 2.326, 2.534, 2.704, 2.847, 2.970, 3.078,
	3.173, 3.258, 3.336, 3.407, 3.472, 3.532, 3.588, 3.640, 3.689, 3.735,
	3.778, 3.819, 3.858, 3.895, 3.931,
}

var c4Table = [26]float64{
	0, 0,
	0.7979, 0.8862, 0.9213, 0.9400, 0.9515, 0.9594, 0.9650, 0.9693, 0.9727,
	0.9754, 0.9776, 0.9794, 0.9810, 0.9823, 0.9835, 0.9845, 0.9854, 0.9862, 0.9869,
	0.9876, 0.9882, 0.9887, 0.9892, 0.9896,
}

// MaxSubgroupSize is the largest subgroup size the constant tables cover.
const MaxSubgroupSize = 25

// d2MovingRange is d2 for n=2, used to de-bias the mean moving range on
// individuals (I-MR) charts.
const d2MovingRange = 1.128

func D2(n int) (float64, error) {
	if n < 2 || n > MaxSubgroupSize {
		return 0, fmt.Errorf("d2 undefined for subgroup size %d", n)
	}
	return d2Table[n], nil
}

func C4(n int) (float64, error) {
	if n < 2 || n > MaxSubgroupSize {
		return 0, fmt.Errorf("c4 undefined for subgroup size %d", n)
	}
	return c4Table[n], nil
}
