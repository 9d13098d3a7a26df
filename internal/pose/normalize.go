package pose

import "math"

// Torso sizing constants for normalization.
const (
	// minTorsoSize is the floor below which the measured torso size is
	// considered degenerate.
	minTorsoSize = 0.01
	// fallbackTorsoSize is substituted for degenerate torso sizes so a
	// near-zero divisor cannot blow up downstream distances.
	fallbackTorsoSize = 0.1
)

// torsoIndices are the four landmarks the torso frame is built from.
var torsoIndices = []int{LeftShoulder, RightShoulder, LeftHip, RightHip}

// Normalize converts a pose into a position/scale-invariant representation
// over the requested landmark indices.
//
// The torso landmarks (both shoulders and both hips) that pass the visibility
// threshold define a centroid and a size (mean distance from each torso point
// to the centroid). Every requested visible landmark is mapped to
// ((x-cx)/size, (y-cy)/size), which makes the result invariant to the
// subject's position in frame and distance from camera.
//
// If fewer than two torso landmarks are visible the pose is returned in a
// degraded mode: raw (x, y) for each visible requested index, with no
// centering or scaling. This is a fallback, not an error.
func Normalize(ps *PoseSet, keyIndices []int) NormalizedPose {
	if ps == nil {
		return nil
	}

	var torso []Landmark
	for _, i := range torsoIndices {
		if ps.Visible(i) {
			torso = append(torso, ps.Landmarks[i])
		}
	}

	out := make(NormalizedPose, len(keyIndices))

	// Degraded mode: not enough torso geometry to build a stable frame.
	if len(torso) < 2 {
		for _, i := range keyIndices {
			if ps.Visible(i) {
				out[i] = Point2D{X: ps.Landmarks[i].X, Y: ps.Landmarks[i].Y}
			}
		}
		return out
	}

	var cx, cy float64
	for _, lm := range torso {
		cx += lm.X
		cy += lm.Y
	}
	cx /= float64(len(torso))
	cy /= float64(len(torso))

	var size float64
	for _, lm := range torso {
		size += math.Hypot(lm.X-cx, lm.Y-cy)
	}
	size /= float64(len(torso))

	if size < minTorsoSize {
		size = fallbackTorsoSize
	}

	for _, i := range keyIndices {
		if !ps.Visible(i) {
			continue
		}
		out[i] = Point2D{
			X: (ps.Landmarks[i].X - cx) / size,
			Y: (ps.Landmarks[i].Y - cy) / size,
		}
	}

	return out
}
