// Package extract prepares target poses from a dance video: it samples
// frames, fingerprints them with a perceptual hash, and keeps one
// representative frame per cluster of visually similar frames. Animation
// loops collapse to a handful of distinct poses.
package extract

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// DefaultSampleFPS is how many frames per second of video are fingerprinted.
// Sampling above ~15Hz only yields near-duplicate frames that clustering
// would merge anyway.
const DefaultSampleFPS = 15

// DefaultHammingThreshold is the maximum Hamming distance at which two
// frames are considered the same pose. 5-7 works for typical footage;
// higher merges more aggressively.
const DefaultHammingThreshold = 6

// ErrNoFrames is returned when the video yields no decodable frames.
var ErrNoFrames = errors.New("no frames extracted from video")

// Frame is one sampled video frame with its fingerprint.
type Frame struct {
	Index       int
	TimestampMs int64
	Image       []byte // JPEG
	Hash        Hash
}

// Representative is the frame chosen to stand for a cluster of similar
// frames.
type Representative struct {
	Frame
	ClusterSize int
}

// Extractor samples and clusters frames from video files.
type Extractor struct {
	SampleFPS        int
	HammingThreshold int
	JPEGQuality      int

	// OnProgress, when set, is called after each sampled frame with the
	// number of frames processed and the total expected.
	OnProgress func(done, total int)
}

// NewExtractor returns an Extractor with default sampling and clustering
// parameters.
func NewExtractor() *Extractor {
	return &Extractor{
		SampleFPS:        DefaultSampleFPS,
		HammingThreshold: DefaultHammingThreshold,
		JPEGQuality:      92,
	}
}

// Extract samples the video at SampleFPS and returns every sampled frame,
// fingerprinted, in video order.
func (e *Extractor) Extract(videoPath string) ([]Frame, error) {
	video, err := gocv.VideoCaptureFile(videoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", videoPath, err)
	}
	defer video.Close()

	videoFPS := video.Get(gocv.VideoCaptureFPS)
	if videoFPS <= 0 {
		videoFPS = 30
	}

	sampleFPS := e.SampleFPS
	if sampleFPS <= 0 {
		sampleFPS = DefaultSampleFPS
	}

	// Take every n-th decoded frame to hit the sample rate.
	step := int(videoFPS / float64(sampleFPS))
	if step < 1 {
		step = 1
	}

	total := int(video.Get(gocv.VideoCaptureFrameCount)) / step

	mat := gocv.NewMat()
	defer mat.Close()

	var frames []Frame
	frameNo := 0
	for video.Read(&mat) {
		if mat.Empty() {
			continue
		}
		if frameNo%step != 0 {
			frameNo++
			continue
		}

		buf, err := gocv.IMEncodeWithParams(".jpg", mat, []int{gocv.IMWriteJpegQuality, e.JPEGQuality})
		if err != nil {
			return nil, fmt.Errorf("failed to encode frame %d: %w", frameNo, err)
		}
		data := make([]byte, len(buf.GetBytes()))
		copy(data, buf.GetBytes())
		buf.Close()

		h, err := HashFrame(data)
		if err != nil {
			return nil, fmt.Errorf("failed to hash frame %d: %w", frameNo, err)
		}

		frames = append(frames, Frame{
			Index:       len(frames),
			TimestampMs: int64(video.Get(gocv.VideoCapturePosMsec)),
			Image:       data,
			Hash:        h,
		})

		if e.OnProgress != nil {
			e.OnProgress(len(frames), total)
		}
		frameNo++
	}

	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	return frames, nil
}

// Cluster groups frames by fingerprint similarity. Each frame joins the
// closest existing cluster if its representative is within the Hamming
// threshold, otherwise it founds a new cluster. The earliest frame of a
// cluster is its representative, so targets keep video order.
func (e *Extractor) Cluster(frames []Frame) []Representative {
	threshold := e.HammingThreshold
	if threshold <= 0 {
		threshold = DefaultHammingThreshold
	}

	var reps []Representative
	for _, f := range frames {
		best := -1
		bestDist := threshold + 1
		for i, rep := range reps {
			if d := f.Hash.Distance(rep.Hash); d < bestDist {
				bestDist = d
				best = i
			}
		}

		if best >= 0 {
			reps[best].ClusterSize++
		} else {
			reps = append(reps, Representative{Frame: f, ClusterSize: 1})
		}
	}
	return reps
}

// Run is the full pipeline: sample the video, cluster the frames, and
// return one representative per distinct pose.
func (e *Extractor) Run(videoPath string) ([]Representative, error) {
	frames, err := e.Extract(videoPath)
	if err != nil {
		return nil, err
	}
	return e.Cluster(frames), nil
}
