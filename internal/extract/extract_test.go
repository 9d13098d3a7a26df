package extract

import (
	"testing"
)

func frameWithHash(idx int, h Hash) Frame {
	return Frame{Index: idx, Hash: h}
}

func TestCluster_GroupsNearbyHashes(t *testing.T) {
	e := NewExtractor()

	// Three near-identical frames followed by one distinct frame.
	frames := []Frame{
		frameWithHash(0, 0x0000000000000000),
		frameWithHash(1, 0x0000000000000001), // 1 bit away
		frameWithHash(2, 0x0000000000000003), // 2 bits away
		frameWithHash(3, 0xffffffffffffffff), // 64 bits away
	}

	reps := e.Cluster(frames)
	if len(reps) != 2 {
		t.Fatalf("Cluster() produced %d clusters, want 2", len(reps))
	}

	if reps[0].Index != 0 {
		t.Errorf("first representative Index = %d, want the earliest frame", reps[0].Index)
	}
	if reps[0].ClusterSize != 3 {
		t.Errorf("first ClusterSize = %d, want 3", reps[0].ClusterSize)
	}
	if reps[1].Index != 3 {
		t.Errorf("second representative Index = %d, want 3", reps[1].Index)
	}
	if reps[1].ClusterSize != 1 {
		t.Errorf("second ClusterSize = %d, want 1", reps[1].ClusterSize)
	}
}

func TestCluster_JoinsClosestCluster(t *testing.T) {
	e := NewExtractor()
	e.HammingThreshold = 8

	// Two founders far apart, then a frame slightly closer to the second.
	frames := []Frame{
		frameWithHash(0, 0x0000000000000000),
		frameWithHash(1, 0xffffffffffffffff),
		frameWithHash(2, 0xfffffffffffffff0), // 4 bits from founder 1, 60 from founder 0
	}

	reps := e.Cluster(frames)
	if len(reps) != 2 {
		t.Fatalf("Cluster() produced %d clusters, want 2", len(reps))
	}
	if reps[1].ClusterSize != 2 {
		t.Errorf("closest cluster should absorb the frame: size = %d, want 2", reps[1].ClusterSize)
	}
}

func TestCluster_ThresholdZeroUsesDefault(t *testing.T) {
	e := NewExtractor()
	e.HammingThreshold = 0

	frames := []Frame{
		frameWithHash(0, 0x0),
		frameWithHash(1, 0x1),
	}

	// With the default threshold a 1-bit difference is the same pose.
	reps := e.Cluster(frames)
	if len(reps) != 1 {
		t.Errorf("Cluster() produced %d clusters, want 1 under the default threshold", len(reps))
	}
}

func TestCluster_Empty(t *testing.T) {
	e := NewExtractor()
	if reps := e.Cluster(nil); len(reps) != 0 {
		t.Errorf("Cluster(nil) = %d representatives, want 0", len(reps))
	}
}

func TestExtract_MissingFile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV")
	}

	e := NewExtractor()
	if _, err := e.Extract("/nonexistent/video.mp4"); err == nil {
		t.Error("expected error for missing video file")
	}
}
