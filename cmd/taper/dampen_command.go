package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/taper/internal/dampen"
	"github.com/five82/taper/internal/encoder"
	"github.com/five82/taper/internal/errors"
	"github.com/five82/taper/internal/ledger"
	"github.com/five82/taper/internal/logging"
	"github.com/five82/taper/internal/report"
	"github.com/five82/taper/internal/scene"
	"github.com/five82/taper/internal/util"
)

func newDampenCommand(cctx *commandContext) *cobra.Command {
	var (
		input        string
		scenesFile   string
		output       string
		ladderSpec   string
		threshold    string
		searchEffort int
		dataFile     string
	)

	cmd := &cobra.Command{
		Use:   "dampen",
		Short: "Raise per-scene compression until every encoded scene fits a byte budget",
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
			if output == "" {
				return fmt.Errorf("output file is required (-o/--output)")
			}

			flags := cmd.Flags()
			if flags.Changed("ladder") {
				cfg.Size.Ladder = ladderSpec
			}
			if flags.Changed("threshold") {
				cfg.Size.Threshold = threshold
			}
			if flags.Changed("search-effort") {
				cfg.Size.SearchEffort = searchEffort
			}
			if flags.Changed("data-file") {
				cfg.Size.DataFile = dataFile
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			runLog, err := logging.SetupRunLog(cfg.Paths.LogDir, "dampen", cfg.Logging.Verbose, cfg.Logging.NoLog)
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
			meta, err := led.LoadOrCreateRun("dampen")
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
			if !enc.Available() {
				return errors.NewConfigError("av1an not found in PATH")
			}

			rep := report.NewCompositeReporter(
				report.NewTerminalReporter(cfg.Logging.Verbose),
				report.NewLogReporter(runLog),
			)
			rep.RunStarted(report.RunInfo{
				Workflow:    "dampen",
				RunID:       meta.RunID,
				WorkDir:     cfg.Paths.WorkDir,
				SceneCount:  len(partition.Scenes),
				TotalFrames: partition.Frames,
				Ladder:      cfg.SizeLadder().Values(),
				Goal:        fmt.Sprintf("every scene <= %s", util.FormatBytes(cfg.ThresholdBytes())),
			})

			ctrl := dampen.New(dampen.Options{
				Ladder:         cfg.SizeLadder(),
				ThresholdBytes: cfg.ThresholdBytes(),
				Settings:       cfg.EncoderSettings(),
				SearchEffort:   cfg.Size.SearchEffort,
				Input:          input,
				Output:         output,
				ScenesFile:     scenesFile,
				DataFile:       cfg.Size.DataFile,
			}, led, enc, rep)

			ctx, cancel := signalContext()
			defer cancel()

			return ctrl.Run(ctx, partition)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input video file")
	cmd.Flags().StringVarP(&scenesFile, "scenes", "s", "", "Scene partition file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Final container file")
	cmd.Flags().StringVar(&ladderSpec, "ladder", "", "Ascending candidate values, e.g. \"21..31:3\"")
	cmd.Flags().StringVar(&threshold, "threshold", "", "Per-scene byte budget, e.g. \"2.5 MiB\"")
	cmd.Flags().IntVar(&searchEffort, "search-effort", 0, "Faster effort preset for search passes (0 = use configured effort)")
	cmd.Flags().StringVar(&dataFile, "data-file", "", "Write the per-scene result report here")

	return cmd
}
