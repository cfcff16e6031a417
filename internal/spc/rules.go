package spc

import (
	"github.com/google/uuid"
)

// Point is one plotted subgroup mean in ascending time order. Excluded samples
// are dropped before evaluation, so consecutive Points may have gaps in Seq.
type Point struct {
	SampleID uuid.UUID
	Seq      int64
	Mean     float64
}

// RuleMatch is one rule break: the trailing window of points that closed the
// rule, identified by the sample ending the window.
type RuleMatch struct {
	Rule        int
	Name        string
	Severity    string
	RequiresAck bool
	SampleIDs   []uuid.UUID
	EndSampleID uuid.UUID
	StartSeq    int64
	EndSeq      int64
}

// Rule is one Nelson rule: a span and a pure predicate over the window of
// exactly Span points that ends at the newest point.
type Rule struct {
	ID          int
	Name        string
	Severity    string
	RequiresAck bool
	Span        int
	matches     func(window []Point, lim Limits) bool
}

const (
	severityCritical      = "CRITICAL"
	severityWarning       = "WARNING"
	severityInformational = "INFORMATIONAL"
)

// Rules is the full Nelson catalogue in rule-number order.
var Rules = []Rule{
	{
		ID: 1, Name: "Beyond 3 sigma", Severity: severityCritical, RequiresAck: true, Span: 1,
		matches: func(w []Point, lim Limits) bool {
			return w[0].Mean > lim.UCL || w[0].Mean < lim.LCL
		},
	},
	{
		ID: 2, Name: "9 points same side", Severity: severityWarning, RequiresAck: true, Span: 9,
		matches: func(w []Point, lim Limits) bool {
			return sameSideRun(w, lim.CenterLine)
		},
	},
	{
		ID: 3, Name: "6 points trending", Severity: severityWarning, RequiresAck: true, Span: 6,
		matches: monotonicRun,
	},
	{
		ID: 4, Name: "14 points alternating", Severity: severityInformational, RequiresAck: false, Span: 14,
		matches: alternatingRun,
	},
	{
		ID: 5, Name: "2 of 3 beyond 2 sigma", Severity: severityWarning, RequiresAck: true, Span: 3,
		matches: func(w []Point, lim Limits) bool {
			return kOfNBeyond(w, lim, 2, 2, true)
		},
	},
	{
		ID: 6, Name: "4 of 5 beyond 1 sigma", Severity: severityWarning, RequiresAck: true, Span: 5,
		matches: func(w []Point, lim Limits) bool {
			return kOfNBeyond(w, lim, 1, 4, true)
		},
	},
	{
		ID: 7, Name: "15 points within 1 sigma", Severity: severityInformational, RequiresAck: false, Span: 15,
		matches: func(w []Point, lim Limits) bool {
			zone := lim.ZoneWidth()
			for _, p := range w {
				if abs(p.Mean-lim.CenterLine) >= zone {
					return false
				}
			}
			return true
		},
	},
	{
		ID: 8, Name: "8 points beyond 1 sigma", Severity: severityInformational, RequiresAck: false, Span: 8,
		matches: func(w []Point, lim Limits) bool {
			zone := lim.ZoneWidth()
			for _, p := range w {
				if abs(p.Mean-lim.CenterLine) <= zone {
					return false
				}
			}
			return true
		},
	},
}

// EvaluateAt runs every rule whose window fits against the window ending at
// points[i] and returns all matches. Appending one sample therefore costs only
// the sum of the rule spans, independent of history length.
func EvaluateAt(points []Point, i int, lim Limits) []RuleMatch {
	if i < 0 || i >= len(points) {
		return nil
	}
	var out []RuleMatch
	for _, r := range Rules {
		start := i - r.Span + 1
		if start < 0 {
			continue
		}
		w := points[start : i+1]
		if !r.matches(w, lim) {
			continue
		}
		ids := make([]uuid.UUID, len(w))
		for j, p := range w {
			ids[j] = p.SampleID
		}
		out = append(out, RuleMatch{
			Rule:        r.ID,
			Name:        r.Name,
			Severity:    r.Severity,
			RequiresAck: r.RequiresAck,
			SampleIDs:   ids,
			EndSampleID: w[len(w)-1].SampleID,
			StartSeq:    w[0].Seq,
			EndSeq:      w[len(w)-1].Seq,
		})
	}
	return out
}

// sameSideRun: every point strictly on the same side of the center line.
// A point exactly on the center line breaks the run.
func sameSideRun(w []Point, cl float64) bool {
	side := 0
	for _, p := range w {
		var s int
		switch {
		case p.Mean > cl:
			s = 1
		case p.Mean < cl:
			s = -1
		default:
			return false
		}
		if side == 0 {
			side = s
		} else if s != side {
			return false
		}
	}
	return true
}

// monotonicRun: strictly increasing or strictly decreasing across the window.
func monotonicRun(w []Point, _ Limits) bool {
	up, down := true, true
	for i := 1; i < len(w); i++ {
		if w[i].Mean <= w[i-1].Mean {
			up = false
		}
		if w[i].Mean >= w[i-1].Mean {
			down = false
		}
	}
	return up || down
}

// alternatingRun: consecutive deltas strictly alternate in sign.
func alternatingRun(w []Point, _ Limits) bool {
	prev := 0
	for i := 1; i < len(w); i++ {
		var d int
		switch {
		case w[i].Mean > w[i-1].Mean:
			d = 1
		case w[i].Mean < w[i-1].Mean:
			d = -1
		default:
			return false
		}
		if prev != 0 && d == prev {
			return false
		}
		prev = d
	}
	return true
}

// kOfNBeyond: at least k of the window's points lie beyond zones standard
// deviations from the center line. With sameSide, the k points must all sit on
// one side; the newest point must be among them so the match is anchored to
// the sample that closes the window.
func kOfNBeyond(w []Point, lim Limits, zones float64, k int, sameSide bool) bool {
	zone := lim.ZoneWidth() * zones
	above, below := 0, 0
	for _, p := range w {
		if p.Mean > lim.CenterLine+zone {
			above++
		} else if p.Mean < lim.CenterLine-zone {
			below++
		}
	}
	last := w[len(w)-1]
	if sameSide {
		if above >= k && last.Mean > lim.CenterLine+zone {
			return true
		}
		if below >= k && last.Mean < lim.CenterLine-zone {
			return true
		}
		return false
	}
	return above+below >= k
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
