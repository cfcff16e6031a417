package spc

import (
	"testing"

	"github.com/google/uuid"
)

// testLimits: CL 10, zone width 1, so UCL 13 / LCL 7.
var testLimits = Limits{CenterLine: 10, UCL: 13, LCL: 7, Sigma: 1}

func pointsFromMeans(means ...float64) []Point {
	out := make([]Point, len(means))
	for i, m := range means {
		out[i] = Point{SampleID: uuid.New(), Seq: int64(i + 1), Mean: m}
	}
	return out
}

func matchedRules(points []Point, i int) map[int]RuleMatch {
	out := map[int]RuleMatch{}
	for _, m := range EvaluateAt(points, i, testLimits) {
		out[m.Rule] = m
	}
	return out
}

func lastIndexMatches(points []Point) map[int]RuleMatch {
	return matchedRules(points, len(points)-1)
}

func TestRule1BeyondThreeSigma(t *testing.T) {
	hit := lastIndexMatches(pointsFromMeans(13.5))
	m, ok := hit[1]
	if !ok {
		t.Fatalf("mean above UCL did not trigger rule 1")
	}
	if m.Severity != "CRITICAL" || !m.RequiresAck {
		t.Fatalf("rule 1 metadata wrong: %+v", m)
	}
	if _, ok := lastIndexMatches(pointsFromMeans(6.5))[1]; !ok {
		t.Fatalf("mean below LCL did not trigger rule 1")
	}
	if _, ok := lastIndexMatches(pointsFromMeans(12.9))[1]; ok {
		t.Fatalf("in-band mean triggered rule 1")
	}
	// exactly on a limit is inside the band
	if _, ok := lastIndexMatches(pointsFromMeans(13.0))[1]; ok {
		t.Fatalf("mean exactly on UCL triggered rule 1")
	}
}

func TestRule2NinePointsSameSide(t *testing.T) {
	above := pointsFromMeans(10.5, 10.3, 10.8, 10.1, 10.9, 10.2, 10.4, 10.6, 10.7)
	m, ok := lastIndexMatches(above)[2]
	if !ok {
		t.Fatalf("9 points above CL did not trigger rule 2")
	}
	if m.Severity != "WARNING" || !m.RequiresAck {
		t.Fatalf("rule 2 metadata wrong: %+v", m)
	}
	if len(m.SampleIDs) != 9 {
		t.Fatalf("rule 2 window has %d samples, want 9", len(m.SampleIDs))
	}

	// one point exactly on CL breaks the run
	broken := pointsFromMeans(10.5, 10.3, 10.8, 10.0, 10.9, 10.2, 10.4, 10.6, 10.7)
	if _, ok := lastIndexMatches(broken)[2]; ok {
		t.Fatalf("run with a point on the center line triggered rule 2")
	}

	// eight points is not enough
	if _, ok := lastIndexMatches(above[:8])[2]; ok {
		t.Fatalf("8-point run triggered rule 2")
	}
}

func TestRule3SixPointsTrending(t *testing.T) {
	up := pointsFromMeans(9.1, 9.4, 9.8, 10.2, 10.5, 10.9)
	if _, ok := lastIndexMatches(up)[3]; !ok {
		t.Fatalf("strictly increasing run did not trigger rule 3")
	}
	down := pointsFromMeans(10.9, 10.5, 10.2, 9.8, 9.4, 9.1)
	if _, ok := lastIndexMatches(down)[3]; !ok {
		t.Fatalf("strictly decreasing run did not trigger rule 3")
	}
	// a repeat breaks strict monotonicity
	flat := pointsFromMeans(9.1, 9.4, 9.4, 10.2, 10.5, 10.9)
	if _, ok := lastIndexMatches(flat)[3]; ok {
		t.Fatalf("run with a repeated value triggered rule 3")
	}
}

func TestRule4FourteenAlternating(t *testing.T) {
	means := make([]float64, 14)
	for i := range means {
		if i%2 == 0 {
			means[i] = 9.5
		} else {
			means[i] = 10.5
		}
	}
	alternating := pointsFromMeans(means...)
	m, ok := lastIndexMatches(alternating)[4]
	if !ok {
		t.Fatalf("14 alternating points did not trigger rule 4")
	}
	if m.Severity != "INFORMATIONAL" || m.RequiresAck {
		t.Fatalf("rule 4 metadata wrong: %+v", m)
	}

	// equal consecutive means break the alternation
	means[6] = means[5]
	if _, ok := lastIndexMatches(pointsFromMeans(means...))[4]; ok {
		t.Fatalf("zero delta triggered rule 4")
	}
}

func TestRule5TwoOfThreeBeyondTwoSigma(t *testing.T) {
	// two of three above CL + 2 sigma (12), newest among them
	hit := pointsFromMeans(12.5, 10.0, 12.3)
	if _, ok := lastIndexMatches(hit)[5]; !ok {
		t.Fatalf("2 of 3 beyond 2 sigma did not trigger rule 5")
	}
	// newest point inside the zone: no match anchored here
	notAnchored := pointsFromMeans(12.5, 12.3, 10.0)
	if _, ok := lastIndexMatches(notAnchored)[5]; ok {
		t.Fatalf("rule 5 matched a window the newest point does not close")
	}
	// opposite sides do not combine
	split := pointsFromMeans(12.5, 10.0, 7.5)
	if _, ok := lastIndexMatches(split)[5]; ok {
		t.Fatalf("rule 5 combined points from both sides")
	}
}

func TestRule6FourOfFiveBeyondOneSigma(t *testing.T) {
	hit := pointsFromMeans(11.5, 11.2, 10.0, 11.8, 11.1)
	if _, ok := lastIndexMatches(hit)[6]; !ok {
		t.Fatalf("4 of 5 beyond 1 sigma did not trigger rule 6")
	}
	below := pointsFromMeans(8.5, 8.8, 10.0, 8.2, 8.9)
	if _, ok := lastIndexMatches(below)[6]; !ok {
		t.Fatalf("rule 6 did not trigger on the low side")
	}
	miss := pointsFromMeans(11.5, 10.0, 10.0, 11.8, 11.1)
	if _, ok := lastIndexMatches(miss)[6]; ok {
		t.Fatalf("3 of 5 beyond 1 sigma triggered rule 6")
	}
}

func TestRule7FifteenWithinOneSigma(t *testing.T) {
	means := make([]float64, 15)
	for i := range means {
		means[i] = 10 + 0.4*float64(i%3-1) // stays within (9,11)
	}
	m, ok := lastIndexMatches(pointsFromMeans(means...))[7]
	if !ok {
		t.Fatalf("15 hugging points did not trigger rule 7")
	}
	if m.RequiresAck {
		t.Fatalf("rule 7 should not require acknowledgment")
	}
	means[7] = 11.5
	if _, ok := lastIndexMatches(pointsFromMeans(means...))[7]; ok {
		t.Fatalf("point outside 1 sigma triggered rule 7")
	}
}

func TestRule8EightBeyondOneSigma(t *testing.T) {
	// mixed sides, all outside 1 sigma
	hit := pointsFromMeans(11.5, 8.5, 11.2, 8.8, 11.9, 8.1, 11.4, 8.6)
	if _, ok := lastIndexMatches(hit)[8]; !ok {
		t.Fatalf("8 points beyond 1 sigma did not trigger rule 8")
	}
	miss := pointsFromMeans(11.5, 8.5, 11.2, 10.0, 11.9, 8.1, 11.4, 8.6)
	if _, ok := lastIndexMatches(miss)[8]; ok {
		t.Fatalf("in-zone point triggered rule 8")
	}
}

func TestEvaluateAtSkipsShortWindows(t *testing.T) {
	points := pointsFromMeans(10.5, 10.3)
	if got := matchedRules(points, 1); len(got) != 0 {
		t.Fatalf("short history produced matches: %v", got)
	}
}

func TestEvaluateAtAnchorsMatchToClosingSample(t *testing.T) {
	points := pointsFromMeans(10.1, 10.2, 13.5, 10.3)
	matches := matchedRules(points, 2)
	m, ok := matches[1]
	if !ok {
		t.Fatalf("rule 1 not found at index 2")
	}
	if m.EndSampleID != points[2].SampleID || m.EndSeq != points[2].Seq {
		t.Fatalf("match not anchored to the closing sample: %+v", m)
	}
	if m.StartSeq != points[2].Seq {
		t.Fatalf("span-1 rule should start at the closing sample")
	}
}

func TestEvaluateAtOutOfRange(t *testing.T) {
	points := pointsFromMeans(13.5)
	if got := EvaluateAt(points, -1, testLimits); got != nil {
		t.Fatalf("negative index produced matches")
	}
	if got := EvaluateAt(points, 1, testLimits); got != nil {
		t.Fatalf("index past end produced matches")
	}
}
