package app

import (
	"context"
	"fmt"
	"log"

	"github.com/danceframe/danceframe/internal/pose"
	"github.com/danceframe/danceframe/internal/session"
	"gocv.io/x/gocv"
)

// onPose receives each detection result from the loop and turns it into a
// similarity observation for the state machine.
//
// The target index and epoch are read before the (possibly slow) reference
// lookup; the observation carries that epoch, so a score computed against
// a target the machine has already left is discarded instead of firing a
// late capture.
func (a *App) onPose(current *pose.PoseSet) {
	a.mu.Lock()
	run := a.active
	a.mu.Unlock()

	if run == nil {
		return
	}

	index, epoch := a.machine.Index()
	target, ok := run.Target(index)
	if !ok {
		return
	}

	ref, err := a.referencePose(target)
	if err != nil {
		log.Printf("Reference pose for target %d unavailable: %v", index, err)
		return
	}

	result := a.scorer.Score(ref, current)
	a.machine.ObserveSimilarity(result.Similarity, epoch)
	a.publish()
}

// referencePose returns the target's landmarks, extracting and caching them
// on first use.
func (a *App) referencePose(target session.Target) (*pose.PoseSet, error) {
	if target.Pose != nil {
		return target.Pose, nil
	}
	return a.cache.Resolve(context.Background(), target.ImageRef)
}

// extractPose is the cache's extraction function: it decodes the target
// image from disk and runs it through the shared pose engine. A readable
// image with no detectable body yields (nil, nil), which the cache records
// as a permanent miss.
func (a *App) extractPose(ctx context.Context, imageRef string) (*pose.PoseSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat := gocv.IMRead(imageRef, gocv.IMReadColor)
	if mat.Empty() {
		return nil, fmt.Errorf("failed to read target image %s", imageRef)
	}
	defer mat.Close()

	return a.detector.Detect(&mat)
}
