package spc

import (
	"fmt"
	"math"
)

// Limits is one computed or manually supplied control limit set for the
// plotted subgroup means. Sigma is the estimated process standard deviation of
// an individual measurement; the distance from CenterLine to UCL is three
// standard deviations of the plotted statistic.
type Limits struct {
	CenterLine float64
	UCL        float64
	LCL        float64
	Sigma      float64
}

// Validate checks the ordering invariant UCL > CL > LCL and Sigma > 0.
func (l Limits) Validate() error {
	if math.IsNaN(l.CenterLine) || math.IsNaN(l.UCL) || math.IsNaN(l.LCL) || math.IsNaN(l.Sigma) {
		return fmt.Errorf("limits contain NaN")
	}
	if !(l.UCL > l.CenterLine) {
		return fmt.Errorf("UCL %v must be greater than center line %v", l.UCL, l.CenterLine)
	}
	if !(l.CenterLine > l.LCL) {
		return fmt.Errorf("center line %v must be greater than LCL %v", l.CenterLine, l.LCL)
	}
	if !(l.Sigma > 0) {
		return fmt.Errorf("sigma must be positive, got %v", l.Sigma)
	}
	return nil
}

// ZoneWidth is one standard deviation of the plotted point, the unit the
// Nelson zone rules (2-of-3 beyond 2 sigma etc) are expressed in.
func (l Limits) ZoneWidth() float64 {
	return (l.UCL - l.CenterLine) / 3
}

// SubgroupStat carries the per-sample statistics limit recalculation consumes.
// Std is nil when the subgroup had a single measurement.
type SubgroupStat struct {
	Mean  float64
	Range float64
	Std   *float64
}

// sBarCutover: above this subgroup size the range loses efficiency as a
// spread estimator and the S-bar/c4 estimate is used instead of R-bar/d2.
const sBarCutover = 8

// ComputeLimits derives control limits from the active sample history of one
// characteristic using the standard subgroup-size-dependent formulas:
//
//	n == 1  individuals chart: sigma from the mean moving range of
//	        consecutive sample means, de-biased by d2(2); UCL/LCL = CL +/- 3 sigma.
//	n >= 2  X-bar chart: sigma from R-bar/d2(n) (or S-bar/c4(n) for larger
//	        subgroups); UCL/LCL = CL +/- 3 sigma/sqrt(n).
//
// The caller enforces the minimum sample count; ComputeLimits only requires
// enough points for the formulas to be defined.
func ComputeLimits(subgroupSize int, stats []SubgroupStat) (Limits, error) {
	if subgroupSize < 1 || subgroupSize > MaxSubgroupSize {
		return Limits{}, fmt.Errorf("subgroup size %d outside supported range 1..%d", subgroupSize, MaxSubgroupSize)
	}
	if subgroupSize == 1 {
		return computeIndividualsLimits(stats)
	}
	return computeSubgroupLimits(subgroupSize, stats)
}

func computeIndividualsLimits(stats []SubgroupStat) (Limits, error) {
	if len(stats) < 2 {
		return Limits{}, fmt.Errorf("need at least 2 samples for a moving range, got %d", len(stats))
	}
	grand := 0.0
	for _, s := range stats {
		grand += s.Mean
	}
	grand /= float64(len(stats))

	mrSum := 0.0
	for i := 1; i < len(stats); i++ {
		mrSum += math.Abs(stats[i].Mean - stats[i-1].Mean)
	}
	mrBar := mrSum / float64(len(stats)-1)
	sigma := mrBar / d2MovingRange
	if !(sigma > 0) {
		return Limits{}, fmt.Errorf("zero process variation over %d samples", len(stats))
	}

	lim := Limits{
		CenterLine: grand,
		UCL:        grand + 3*sigma,
		LCL:        grand - 3*sigma,
		Sigma:      sigma,
	}
	return lim, lim.Validate()
}

func computeSubgroupLimits(n int, stats []SubgroupStat) (Limits, error) {
	if len(stats) == 0 {
		return Limits{}, fmt.Errorf("no samples")
	}
	grand := 0.0
	for _, s := range stats {
		grand += s.Mean
	}
	grand /= float64(len(stats))

	var sigma float64
	if n <= sBarCutover {
		rSum := 0.0
		for _, s := range stats {
			rSum += s.Range
		}
		rBar := rSum / float64(len(stats))
		d2, err := D2(n)
		if err != nil {
			return Limits{}, err
		}
		sigma = rBar / d2
	} else {
		sSum := 0.0
		count := 0
		for _, s := range stats {
			if s.Std != nil {
				sSum += *s.Std
				count++
			}
		}
		if count == 0 {
			return Limits{}, fmt.Errorf("no subgroup standard deviations available")
		}
		sBar := sSum / float64(count)
		c4, err := C4(n)
		if err != nil {
			return Limits{}, err
		}
		sigma = sBar / c4
	}
	if !(sigma > 0) {
		return Limits{}, fmt.Errorf("zero process variation over %d samples", len(stats))
	}

	spread := 3 * sigma / math.Sqrt(float64(n))
	lim := Limits{
		CenterLine: grand,
		UCL:        grand + spread,
		LCL:        grand - spread,
		Sigma:      sigma,
	}
	return lim, lim.Validate()
}
