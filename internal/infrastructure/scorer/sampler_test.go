package scorer

import (
	"bytes"
	"context"
	"testing"
)

func TestChunkSamplerFullRate(t *testing.T) {
	s := NewChunkSampler()

	// Two second-equivalents of content at rate 1.0 yield two frames.
	artifact := bytes.NewReader(make([]byte, 2*bytesPerSecond))
	frames, err := s.SampleFrames(context.Background(), artifact, 1.0)
	if err != nil {
		t.Fatalf("SampleFrames() error = %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("frames = %d, want 2", len(frames))
	}
	if len(frames[0]) != frameSize {
		t.Fatalf("frame size = %d, want %d", len(frames[0]), frameSize)
	}
}

func TestChunkSamplerHalfRateHalvesFrames(t *testing.T) {
	s := NewChunkSampler()
	content := make([]byte, 4*bytesPerSecond)

	full, err := s.SampleFrames(context.Background(), bytes.NewReader(content), 1.0)
	if err != nil {
		t.Fatalf("SampleFrames(1.0) error = %v", err)
	}
	half, err := s.SampleFrames(context.Background(), bytes.NewReader(content), 0.5)
	if err != nil {
		t.Fatalf("SampleFrames(0.5) error = %v", err)
	}
	if len(half)*2 != len(full) {
		t.Fatalf("half rate frames = %d, full rate = %d, want half", len(half), len(full))
	}
}

func TestChunkSamplerShortArtifact(t *testing.T) {
	s := NewChunkSampler()

	frames, err := s.SampleFrames(context.Background(), bytes.NewReader(make([]byte, 100)), 1.0)
	if err != nil {
		t.Fatalf("SampleFrames() error = %v", err)
	}
	if len(frames) != 1 || len(frames[0]) != 100 {
		t.Fatalf("frames = %v, want one 100-byte frame", len(frames))
	}
}

func TestChunkSamplerBoundsFrames(t *testing.T) {
	s := NewChunkSampler()

	// Far more content than maxFrames windows.
	artifact := bytes.NewReader(make([]byte, (maxFrames+64)*bytesPerSecond))
	frames, err := s.SampleFrames(context.Background(), artifact, 1.0)
	if err != nil {
		t.Fatalf("SampleFrames() error = %v", err)
	}
	if len(frames) != maxFrames {
		t.Fatalf("frames = %d, want cap %d", len(frames), maxFrames)
	}
}

func TestChunkSamplerRejectsBadRate(t *testing.T) {
	s := NewChunkSampler()
	if _, err := s.SampleFrames(context.Background(), bytes.NewReader(nil), 0); err == nil {
		t.Fatal("rate 0 should be rejected")
	}
}
