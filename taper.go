// Package taper provides a Go library for per-scene encoder parameter
// convergence.
//
// Taper wraps a scene-chunked AV1 encode pipeline with two iterative
// workflows: boost walks every scene down a descending quality ladder until
// probe-frame scores meet a target, and dampen walks oversized scenes up an
// ascending ladder until each encoded scene fits a byte budget.
//
// Basic usage:
//
//	runner, err := taper.New(
//	    taper.WithWorkDir("work/"),
//	    taper.WithQualityLadder("35..20:3"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := runner.Boost(ctx, "input.mkv", "scenes.json", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("converged %d scenes in %d passes\n", result.SceneCount, result.Passes)
package taper

import (
	"context"

	"github.com/five82/taper/internal/boost"
	"github.com/five82/taper/internal/config"
	"github.com/five82/taper/internal/dampen"
	"github.com/five82/taper/internal/encoder"
	"github.com/five82/taper/internal/errors"
	"github.com/five82/taper/internal/ledger"
	"github.com/five82/taper/internal/probe"
	"github.com/five82/taper/internal/report"
	"github.com/five82/taper/internal/scene"
	"github.com/five82/taper/internal/util"
)

// Reporter receives progress events during a run. See report.Reporter.
type Reporter = report.Reporter

// NullReporter discards all events.
type NullReporter = report.NullReporter

// Runner is the main entry point for both workflows.
type Runner struct {
	cfg *config.Config
}

// Result summarizes a finished run.
type Result struct {
	SceneCount           int
	Passes               int
	OriginalSize         uint64
	FinalSize            uint64
	SizeReductionPercent float64
}

// Option configures the runner.
type Option func(*config.Config)

// New creates a Runner from defaults plus the given options.
func New(opts ...Option) (*Runner, error) {
	cfg := config.Default()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{cfg: &cfg}, nil
}

// NewFromConfig creates a Runner from an already-validated configuration.
func NewFromConfig(cfg *config.Config) *Runner {
	return &Runner{cfg: cfg}
}

// WithWorkDir sets the directory run state lives under.
func WithWorkDir(dir string) Option {
	return func(c *config.Config) {
		c.Paths.WorkDir = dir
	}
}

// WithQualityLadder sets the descending candidate sequence for boost.
func WithQualityLadder(spec string) Option {
	return func(c *config.Config) {
		c.Quality.Ladder = spec
	}
}

// WithTarget sets the score the aggregate percentile must reach.
func WithTarget(target float64) Option {
	return func(c *config.Config) {
		c.Quality.Target = target
	}
}

// WithFloor sets the minimum any single probe frame may score.
func WithFloor(floor float64) Option {
	return func(c *config.Config) {
		c.Quality.Floor = floor
	}
}

// WithSizeLadder sets the ascending candidate sequence for dampen.
func WithSizeLadder(spec string) Option {
	return func(c *config.Config) {
		c.Size.Ladder = spec
	}
}

// WithThreshold sets the per-scene byte budget, e.g. "2.5 MiB".
func WithThreshold(spec string) Option {
	return func(c *config.Config) {
		c.Size.Threshold = spec
	}
}

// WithMetricWorkers fixes the scoring pool size instead of deriving it from
// available memory.
func WithMetricWorkers(n int) Option {
	return func(c *config.Config) {
		c.Workers.Metric = n
	}
}

// Boost converges scene quality parameters down the ladder and persists the
// result back to the scenes file. A nil reporter discards progress events.
func (r *Runner) Boost(ctx context.Context, input, scenesFile string, rep Reporter) (*Result, error) {
	if rep == nil {
		rep = report.NullReporter{}
	}
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	partition, err := scene.Load(scenesFile)
	if err != nil {
		return nil, err
	}
	if err := partition.Validate(); err != nil {
		return nil, err
	}

	enc := encoder.NewExecEncoder(r.cfg.Workers.Metric)
	scorer := encoder.NewExecScorer()
	if err := checkTools(enc, scorer); err != nil {
		return nil, err
	}

	capture := &outcomeCapture{}
	ctrl := boost.New(boost.Options{
		Ladder:      r.cfg.QualityLadder(),
		Target:      r.cfg.Quality.Target,
		Floor:       r.cfg.Quality.Floor,
		Percentile:  r.cfg.Quality.Percentile,
		ProbeFrames: r.cfg.Quality.ProbeFrames,
		Strategy:    r.cfg.Strategy(),
		Settings:    r.cfg.EncoderSettings(),
		Input:       input,
		DataFile:    r.cfg.Quality.DataFile,
	}, &probe.Cycle{
		Encoder:              enc,
		Scorer:               scorer,
		Reporter:             rep,
		Input:                input,
		WorkDir:              r.cfg.Paths.WorkDir,
		Workers:              r.cfg.Workers.Metric,
		MemoryPerWorkerBytes: uint64(r.cfg.Workers.MemoryPerWorkerMiB) * 1024 * 1024,
	}, report.NewCompositeReporter(rep, capture))

	if err := ctrl.Run(ctx, partition); err != nil {
		return nil, err
	}
	if err := partition.Save(scenesFile); err != nil {
		return nil, err
	}

	return &Result{
		SceneCount: capture.outcome.SceneCount,
		Passes:     capture.outcome.Passes,
	}, nil
}

// Dampen converges oversized scenes up the ladder and writes the final
// container to output. The work directory must hold the artifacts and ledger
// of a finished first encode.
func (r *Runner) Dampen(ctx context.Context, input, scenesFile, output string, rep Reporter) (*Result, error) {
	if rep == nil {
		rep = report.NullReporter{}
	}
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	partition, err := scene.Load(scenesFile)
	if err != nil {
		return nil, err
	}
	if err := partition.Validate(); err != nil {
		return nil, err
	}

	enc := encoder.NewExecEncoder(r.cfg.Workers.Metric)
	if !enc.Available() {
		return nil, errors.NewConfigError("av1an not found in PATH")
	}

	led, err := ledger.Open(r.cfg.Paths.WorkDir)
	if err != nil {
		return nil, err
	}
	defer led.Close()

	capture := &outcomeCapture{}
	ctrl := dampen.New(dampen.Options{
		Ladder:         r.cfg.SizeLadder(),
		ThresholdBytes: r.cfg.ThresholdBytes(),
		Settings:       r.cfg.EncoderSettings(),
		SearchEffort:   r.cfg.Size.SearchEffort,
		Input:          input,
		Output:         output,
		ScenesFile:     scenesFile,
		DataFile:       r.cfg.Size.DataFile,
	}, led, enc, report.NewCompositeReporter(rep, capture))

	if err := ctrl.Run(ctx, partition); err != nil {
		return nil, err
	}

	out := capture.outcome
	return &Result{
		SceneCount:           out.SceneCount,
		Passes:               out.Passes,
		OriginalSize:         out.OriginalSize,
		FinalSize:            out.FinalSize,
		SizeReductionPercent: util.CalculateSizeReduction(out.OriginalSize, out.FinalSize),
	}, nil
}

func checkTools(enc *encoder.ExecEncoder, scorer *encoder.ExecScorer) error {
	if !enc.Available() {
		return errors.NewConfigError("av1an not found in PATH")
	}
	if !scorer.Available() {
		return errors.NewConfigError("taper-score not found in PATH")
	}
	return nil
}

// outcomeCapture keeps the final RunOutcome so callers get a typed result
// without parsing reporter output.
type outcomeCapture struct {
	report.NullReporter
	outcome report.RunOutcome
}

func (o *outcomeCapture) RunComplete(outcome report.RunOutcome) {
	o.outcome = outcome
}
