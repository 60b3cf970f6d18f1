package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/taper/internal/boost"
	"github.com/five82/taper/internal/encoder"
	"github.com/five82/taper/internal/errors"
	"github.com/five82/taper/internal/ledger"
	"github.com/five82/taper/internal/logging"
	"github.com/five82/taper/internal/probe"
	"github.com/five82/taper/internal/report"
	"github.com/five82/taper/internal/scene"
)

func newBoostCommand(cctx *commandContext) *cobra.Command {
	var (
		input       string
		scenesFile  string
		ladderSpec  string
		target      float64
		floor       float64
		percentile  float64
		probeFrames int
		strategy    string
		dataFile    string
		workers     int
	)

	cmd := &cobra.Command{
		Use:   "boost",
		Short: "Lower per-scene quality parameters until probe frames meet a score target",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			if input == "" {
				return fmt.Errorf("input video is required (-i/--input)")
			}
			if scenesFile == "" {
				return fmt.Errorf("scenes file is required (-s/--scenes)")
			}

			flags := cmd.Flags()
			if flags.Changed("ladder") {
				cfg.Quality.Ladder = ladderSpec
			}
			if flags.Changed("target") {
				cfg.Quality.Target = target
			}
			if flags.Changed("floor") {
				cfg.Quality.Floor = floor
			}
			if flags.Changed("percentile") {
				cfg.Quality.Percentile = percentile
			}
			if flags.Changed("probe-frames") {
				cfg.Quality.ProbeFrames = probeFrames
			}
			if flags.Changed("strategy") {
				cfg.Quality.FrameStrategy = strategy
			}
			if flags.Changed("data-file") {
				cfg.Quality.DataFile = dataFile
			}
			if flags.Changed("workers") {
				cfg.Workers.Metric = workers
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			runLog, err := logging.SetupRunLog(cfg.Paths.LogDir, "boost", cfg.Logging.Verbose, cfg.Logging.NoLog)
			if err != nil {
				return err
			}
			defer runLog.Close()
			level := logging.LevelInfo
			if cfg.Logging.Verbose {
				level = logging.LevelDebug
			}
			logging.Init(level, runLog.Writer())

			led, err := ledger.Open(cfg.Paths.WorkDir)
			if err != nil {
				return err
			}
			defer led.Close()
			meta, err := led.LoadOrCreateRun("boost")
			if err != nil {
				return err
			}

			partition, err := scene.Load(scenesFile)
			if err != nil {
				return err
			}
			if err := partition.Validate(); err != nil {
				return err
			}

			enc := encoder.NewExecEncoder(0)
			scorer := encoder.NewExecScorer()
			if !enc.Available() {
				return errors.NewConfigError("av1an not found in PATH")
			}
			if !scorer.Available() {
				return errors.NewConfigError("taper-score not found in PATH")
			}

			rep := report.NewCompositeReporter(
				report.NewTerminalReporter(cfg.Logging.Verbose),
				report.NewLogReporter(runLog),
			)
			rep.RunStarted(report.RunInfo{
				Workflow:    "boost",
				RunID:       meta.RunID,
				WorkDir:     cfg.Paths.WorkDir,
				SceneCount:  len(partition.Scenes),
				TotalFrames: partition.Frames,
				Ladder:      cfg.QualityLadder().Values(),
				Goal: fmt.Sprintf("P%g of probe scores >= %.1f",
					cfg.Quality.Percentile, cfg.Quality.Target),
			})

			cycle := &probe.Cycle{
				Encoder:              enc,
				Scorer:               scorer,
				Reporter:             rep,
				Input:                input,
				WorkDir:              cfg.Paths.WorkDir,
				Workers:              cfg.Workers.Metric,
				MemoryPerWorkerBytes: uint64(cfg.Workers.MemoryPerWorkerMiB) * 1024 * 1024,
			}
			ctrl := boost.New(boost.Options{
				Ladder:      cfg.QualityLadder(),
				Target:      cfg.Quality.Target,
				Floor:       cfg.Quality.Floor,
				Percentile:  cfg.Quality.Percentile,
				ProbeFrames: cfg.Quality.ProbeFrames,
				Strategy:    cfg.Strategy(),
				Settings:    cfg.EncoderSettings(),
				Input:       input,
				DataFile:    cfg.Quality.DataFile,
			}, cycle, rep)

			ctx, cancel := signalContext()
			defer cancel()

			if err := ctrl.Run(ctx, partition); err != nil {
				return err
			}
			if err := partition.Save(scenesFile); err != nil {
				return err
			}

			if !cfg.Cleanup.KeepFiles {
				if err := cycle.CleanupPassFiles(); err != nil {
					runLog.Warn("cleanup failed: %v", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input video file")
	cmd.Flags().StringVarP(&scenesFile, "scenes", "s", "", "Scene partition file")
	cmd.Flags().StringVar(&ladderSpec, "ladder", "", "Descending candidate values, e.g. \"35..20:3\"")
	cmd.Flags().Float64VarP(&target, "target", "t", 0, "Quality score the aggregate percentile must reach")
	cmd.Flags().Float64Var(&floor, "floor", 0, "Minimum score any single probe frame may have")
	cmd.Flags().Float64Var(&percentile, "percentile", 0, "Aggregate percentile, e.g. 25")
	cmd.Flags().IntVar(&probeFrames, "probe-frames", 0, "Probe frames per scene")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Probe frame placement (center, evenly, start-middle-end)")
	cmd.Flags().StringVar(&dataFile, "data-file", "", "Write the per-scene result report here")
	cmd.Flags().IntVar(&workers, "workers", 0, "Scoring worker count (0 = derive from memory)")

	return cmd
}
