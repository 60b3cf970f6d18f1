package encoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/five82/taper/internal/errors"
	"github.com/five82/taper/internal/logging"
)

const (
	encodeBinaryName = "av1an"
	scoreBinaryName  = "taper-score"
)

// ExecEncoder invokes the av1an binary. Resumability comes from the shared
// work directory: av1an skips units already present in the done-manifest.
type ExecEncoder struct {
	// Workers is passed through to the encoder's own scene-level
	// concurrency. Zero lets the encoder decide.
	Workers int
}

// NewExecEncoder creates the default exec-backed scene encoder.
func NewExecEncoder(workers int) *ExecEncoder {
	return &ExecEncoder{Workers: workers}
}

// Available reports whether the encoder binary is on PATH.
func (e *ExecEncoder) Available() bool {
	_, err := exec.LookPath(encodeBinaryName)
	return err == nil
}

// Encode runs one blocking external encode. The encoder's own scene-level
// concurrency is opaque here; the call returns when every unit is written.
func (e *ExecEncoder) Encode(ctx context.Context, req EncodeRequest) error {
	path, err := exec.LookPath(encodeBinaryName)
	if err != nil {
		return errors.NewCommandStartError(encodeBinaryName,
			fmt.Errorf("%s not found in PATH: %w", encodeBinaryName, err))
	}

	args := []string{
		"-i", req.Input,
		"-o", req.Output,
		"--scenes", req.ScenesFile,
		"--temp", req.WorkDir,
		"--resume",
		"-y",
	}
	if e.Workers > 0 {
		args = append(args, "--workers", strconv.Itoa(e.Workers))
	}

	logging.Info("starting external encode", "label", req.Label, "output", req.Output)
	logging.Debug("encoder invocation", "binary", path, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = os.Stderr
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return errors.NewCancelledError()
		}
		return errors.WrapExecError(encodeBinaryName, err, stderr.String())
	}
	return nil
}

// ExecScorer invokes the taper-score helper once per frame pair. The helper
// prints a single decimal score on stdout.
type ExecScorer struct{}

// NewExecScorer creates the default exec-backed frame scorer.
func NewExecScorer() *ExecScorer {
	return &ExecScorer{}
}

// Available reports whether the scoring helper is on PATH.
func (s *ExecScorer) Available() bool {
	_, err := exec.LookPath(scoreBinaryName)
	return err == nil
}

// Score measures one distorted frame against its reference frame.
func (s *ExecScorer) Score(ctx context.Context, reference, distorted string, refFrame, distFrame int) (float64, error) {
	path, err := exec.LookPath(scoreBinaryName)
	if err != nil {
		return 0, errors.NewCommandStartError(scoreBinaryName,
			fmt.Errorf("%s not found in PATH: %w", scoreBinaryName, err))
	}

	args := []string{
		"--reference", reference,
		"--distorted", distorted,
		"--reference-frame", strconv.Itoa(refFrame),
		"--distorted-frame", strconv.Itoa(distFrame),
	}

	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, errors.NewCancelledError()
		}
		return 0, errors.WrapExecError(scoreBinaryName, err, stderr.String())
	}

	out := strings.TrimSpace(stdout.String())
	score, err := strconv.ParseFloat(out, 64)
	if err != nil {
		return 0, errors.NewMetricError(
			fmt.Sprintf("scorer returned unparseable output %q for frame %d", out, refFrame), err)
	}
	return score, nil
}
