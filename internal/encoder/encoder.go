// Package encoder defines the external collaborators the convergence engine
// delegates to: the per-pass scene encoder and the per-frame quality metric.
// Both are interfaces with exec-backed default implementations; the engine
// never interprets encoder output beyond artifact files and exit status.
package encoder

import "context"

// EncodeRequest describes one blocking invocation of the external scene
// encoder. The encoder reads the scene partition file and the ledger in the
// work directory, encodes the units missing from the done-manifest, and
// writes per-scene artifacts into the encode directory.
type EncodeRequest struct {
	// Input is the video source (file or script) handed to the encoder.
	Input string
	// ScenesFile is the persisted partition the encoder honors per scene.
	ScenesFile string
	// Output is the container file the encoder concatenates into.
	Output string
	// WorkDir is the resumable state directory shared with the ledger.
	WorkDir string
	// Label tags the invocation in logs ("pass 3", "final encode").
	Label string
}

// SceneEncoder runs one external encode to completion.
type SceneEncoder interface {
	Encode(ctx context.Context, req EncodeRequest) error
	Available() bool
}

// FrameScorer measures perceptual quality for selected frames of a probe
// encode against the reference. Scores are keyed by reference frame number;
// the engine treats the metric itself as opaque.
type FrameScorer interface {
	Score(ctx context.Context, reference, distorted string, refFrame, distFrame int) (float64, error)
	Available() bool
}
