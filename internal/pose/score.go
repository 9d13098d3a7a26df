package pose

import "math"

// DefaultScaleFactor converts average normalized distance into percentage
// points. It is an empirically tuned constant, not a derived one: values in
// the 100-200 range produce a usable spread between "roughly in position"
// and "matching", and it should be recalibrated against real capture
// sessions rather than reasoned about.
const DefaultScaleFactor = 150.0

// Result is the outcome of comparing a live pose against a reference pose.
type Result struct {
	// Similarity is the match score in [0,100], rounded to the nearest
	// integer. 100 means identical normalized poses.
	Similarity int `json:"similarity"`
	// ValidPoints is the number of key landmarks that were visible in both
	// poses and contributed to the score.
	ValidPoints int `json:"validPoints"`

	AverageDistance float64 `json:"averageDistance"`
	MaxDistance     float64 `json:"maxDistance"`
	MinDistance     float64 `json:"minDistance"`
}

// noMatch is returned when no landmark pair is comparable. The distances are
// defaulted to 1 so callers displaying them see "far", not "perfect".
var noMatch = Result{Similarity: 0, ValidPoints: 0, AverageDistance: 1, MaxDistance: 1, MinDistance: 1}

// Scorer compares two poses and produces a 0-100 similarity score.
type Scorer struct {
	// ScaleFactor converts average normalized distance to percentage points.
	ScaleFactor float64
}

// NewScorer creates a Scorer. A scaleFactor <= 0 selects DefaultScaleFactor.
func NewScorer(scaleFactor float64) *Scorer {
	if scaleFactor <= 0 {
		scaleFactor = DefaultScaleFactor
	}
	return &Scorer{ScaleFactor: scaleFactor}
}

// Score compares the current pose against the reference pose over the fixed
// key-point set.
//
// Both poses are normalized by torso geometry, then the planar Euclidean
// distance is taken for every key index visible in both. Z is ignored; some
// pose sources only yield 2-D data. An index missing from either pose is
// excluded from the average, never counted as maximal distance.
func (s *Scorer) Score(ref, cur *PoseSet) Result {
	if ref == nil || cur == nil {
		return noMatch
	}

	refNorm := Normalize(ref, KeyIndices)
	curNorm := Normalize(cur, KeyIndices)

	var (
		sum   float64
		count int
		min   = math.Inf(1)
		max   float64
	)

	for _, i := range KeyIndices {
		rp, ok := refNorm[i]
		if !ok {
			continue
		}
		cp, ok := curNorm[i]
		if !ok {
			continue
		}

		d := math.Hypot(rp.X-cp.X, rp.Y-cp.Y)
		sum += d
		count++
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
	}

	if count == 0 {
		return noMatch
	}

	avg := sum / float64(count)

	similarity := 100 - avg*s.ScaleFactor
	if similarity < 0 {
		similarity = 0
	}
	if similarity > 100 {
		similarity = 100
	}

	return Result{
		Similarity:      int(math.Round(similarity)),
		ValidPoints:     count,
		AverageDistance: avg,
		MaxDistance:     max,
		MinDistance:     min,
	}
}
