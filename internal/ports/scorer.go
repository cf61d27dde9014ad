package ports

import (
	"context"
	"io"
)

// Frame is one sampled slice of artifact content handed to scorers. Frames
// are opaque to the pipeline; only scorers interpret them.
type Frame []byte

// FrameSampler extracts frames from an artifact stream at a fixed rate in
// samples per second-equivalent of content.
type FrameSampler interface {
	SampleFrames(ctx context.Context, artifact io.Reader, rate float64) ([]Frame, error)
}

// Scorer is an opaque, side-effect-free scoring function producing a value
// in [0,1] from sampled frames. Implementations may be slow (remote model
// endpoints); errors signal scorer failure, never a verdict.
type Scorer interface {
	Name() string
	Score(ctx context.Context, frames []Frame) (float64, error)
}
