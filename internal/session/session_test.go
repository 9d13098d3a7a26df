package session

import (
	"testing"

	"github.com/danceframe/danceframe/internal/pose"
)

func TestCaptureSession_Targets(t *testing.T) {
	s := NewCaptureSession([]Target{
		{ImageRef: "a.jpg"},
		{ImageRef: "b.jpg"},
	})

	if s.ID == "" {
		t.Error("session should get a generated ID")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}

	tgt, ok := s.Target(1)
	if !ok || tgt.ImageRef != "b.jpg" {
		t.Errorf("Target(1) = (%+v, %v), want b.jpg", tgt, ok)
	}

	if _, ok := s.Target(2); ok {
		t.Error("Target(2) out of range should report false")
	}
	if _, ok := s.Target(-1); ok {
		t.Error("Target(-1) should report false")
	}
}

func TestCaptureSession_TargetPose(t *testing.T) {
	s := NewCaptureSession([]Target{{ImageRef: "a.jpg"}})

	ps := &pose.PoseSet{}
	s.SetTargetPose(0, ps)

	tgt, _ := s.Target(0)
	if tgt.Pose != ps {
		t.Error("SetTargetPose did not stick")
	}

	// Out-of-range writes are ignored.
	s.SetTargetPose(5, ps)
}

func TestCaptureSession_Captures(t *testing.T) {
	s := NewCaptureSession([]Target{{ImageRef: "a.jpg"}, {ImageRef: "b.jpg"}})

	first := []byte{0xFF, 0xD8, 0x01}
	s.SetCapture(0, first)

	got, ok := s.Capture(0)
	if !ok || string(got) != string(first) {
		t.Error("stored capture not returned")
	}
	if s.CaptureCount() != 1 {
		t.Errorf("CaptureCount() = %d, want 1", s.CaptureCount())
	}

	// Retake replaces the stored still.
	retake := []byte{0xFF, 0xD8, 0x02}
	s.SetCapture(0, retake)
	got, _ = s.Capture(0)
	if string(got) != string(retake) {
		t.Error("retake did not replace the stored capture")
	}

	s.ClearCapture(0)
	if _, ok := s.Capture(0); ok {
		t.Error("capture should be gone after ClearCapture")
	}

	s.SetCapture(1, first)
	s.Reset()
	if s.CaptureCount() != 0 {
		t.Errorf("CaptureCount() = %d after Reset, want 0", s.CaptureCount())
	}
	if s.Len() != 2 {
		t.Error("Reset must keep the target list")
	}
}
