package scorer

import (
	"context"
	"errors"
	"io"

	"guardian/internal/errs"
	"guardian/internal/ports"
)

const (
	// bytesPerSecond defines one second-equivalent of artifact content for
	// sampling purposes. Artifacts are opaque bytes to this core; frame
	// decoding belongs to the scorers behind their interface.
	bytesPerSecond = 256 * 1024

	frameSize = 4 * 1024

	// maxFrames bounds per-message memory regardless of artifact size.
	maxFrames = 512
)

// ChunkSampler implements ports.FrameSampler by taking a fixed-size window
// every 1/rate second-equivalents of the artifact stream.
type ChunkSampler struct{}

var _ ports.FrameSampler = ChunkSampler{}

func NewChunkSampler() ChunkSampler { return ChunkSampler{} }

func (ChunkSampler) SampleFrames(ctx context.Context, artifact io.Reader, rate float64) ([]ports.Frame, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if rate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}

	step := int64(float64(bytesPerSecond) / rate)
	if step < frameSize {
		step = frameSize
	}

	var frames []ports.Frame
	for len(frames) < maxFrames {
		if err := ctx.Err(); err != nil {
			return nil, errs.Wrap(err, "check context")
		}

		frame := make([]byte, frameSize)
		n, err := io.ReadFull(artifact, frame)
		if n > 0 {
			frames = append(frames, ports.Frame(frame[:n]))
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, errs.Transient(errs.Wrap(err, "read artifact frame"))
		}

		if skip := step - frameSize; skip > 0 {
			if _, err := io.CopyN(io.Discard, artifact, skip); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, errs.Transient(errs.Wrap(err, "skip artifact bytes"))
			}
		}
	}

	return frames, nil
}
