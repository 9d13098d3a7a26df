// Package pose provides body pose data types, normalization and similarity
// scoring for matching a live pose against a target pose.
package pose

// Body landmark indices following the MediaPipe Pose convention.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	Nose          = 0
	LeftShoulder  = 11
	RightShoulder = 12
	LeftElbow     = 13
	RightElbow    = 14
	LeftWrist     = 15
	RightWrist    = 16
	LeftHip       = 23
	RightHip      = 24
	LeftKnee      = 25
	RightKnee     = 26
	LeftAnkle     = 27
	RightAnkle    = 28
	NumLandmarks  = 33
)

// VisibilityThreshold is the minimum landmark confidence considered usable.
// Landmarks below it are treated as absent, never as zero coordinates.
const VisibilityThreshold = 0.3

// KeyIndices is the fixed set of limb/torso landmarks used for matching.
// Fine facial landmarks are deliberately excluded; only the nose represents
// the head.
var KeyIndices = []int{
	Nose,
	LeftShoulder, RightShoulder,
	LeftElbow, RightElbow,
	LeftWrist, RightWrist,
	LeftHip, RightHip,
	LeftKnee, RightKnee,
	LeftAnkle, RightAnkle,
}

// Landmark is a single estimated body keypoint. X and Y are normalized to
// [0,1] image space, Z is relative depth and Visibility is the detection
// confidence in [0,1].
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// PoseSet is the full set of landmarks for one detected body at one instant.
// An absent pose (no body in frame) is represented by a nil *PoseSet.
type PoseSet struct {
	Landmarks [NumLandmarks]Landmark `json:"landmarks"`
}

// Visible reports whether the landmark at index i passes the visibility
// threshold.
func (p *PoseSet) Visible(i int) bool {
	return p.Landmarks[i].Visibility >= VisibilityThreshold
}

// Point2D is a planar point in normalized pose space.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NormalizedPose maps landmark indices to points centered and scaled by torso
// geometry. Indices whose landmark failed the visibility threshold are not
// present in the map.
type NormalizedPose map[int]Point2D
