// Package boost drives the quality workflow: walk every scene down a
// descending compression ladder until its probe frames meet the quality
// target, retiring scenes at the first passing value.
package boost

import (
	"context"
	"fmt"
	"time"

	"github.com/five82/taper/internal/errors"
	"github.com/five82/taper/internal/ladder"
	"github.com/five82/taper/internal/probe"
	"github.com/five82/taper/internal/report"
	"github.com/five82/taper/internal/scene"
	"github.com/five82/taper/internal/stats"
)

// Options configures one boost run.
type Options struct {
	// Ladder is the descending candidate sequence.
	Ladder *ladder.Ladder
	// Target is the score the aggregate percentile must reach.
	Target float64
	// Floor is the minimum any single probe frame may score; 0 disables.
	Floor float64
	// Percentile selects the aggregate order statistic.
	Percentile float64
	// ProbeFrames is the per-scene probe budget.
	ProbeFrames int
	// Strategy places the probe frames within each scene.
	Strategy scene.FrameStrategy
	// Settings is the typed encoder configuration stamped onto every scene.
	Settings scene.EncoderSettings
	// Input names the reference video for reports.
	Input string
	// DataFile, when set, receives the per-scene result report.
	DataFile string
}

// Controller runs the boost convergence loop.
type Controller struct {
	opts     Options
	cycle    *probe.Cycle
	reporter report.Reporter
}

// New creates a boost controller.
func New(opts Options, cycle *probe.Cycle, reporter report.Reporter) *Controller {
	return &Controller{opts: opts, cycle: cycle, reporter: reporter}
}

// Run converges every scene in the partition and returns it with final
// parameters assigned. The partition is mutated in place.
func (c *Controller) Run(ctx context.Context, partition *scene.Partition) error {
	start := time.Now()
	values := c.opts.Ladder.Values()

	if len(partition.Scenes) == 0 {
		c.reporter.RunComplete(report.RunOutcome{Workflow: "boost", Elapsed: time.Since(start)})
		return nil
	}

	partition.AssignIndexes()
	partition.SetParameterAll(c.opts.Ladder.First())
	partition.ApplySettings(c.opts.Settings)

	// A single-value ladder has nothing to search.
	if len(values) == 1 {
		c.reporter.Distribution(distributionRows(partition))
		return c.finish(partition, start, 0)
	}

	working := partition.SelectProbeFrames(c.opts.Strategy, c.opts.ProbeFrames)
	passes := 0

	for i := 0; i < len(values)-1; i++ {
		if err := ctx.Err(); err != nil {
			return errors.NewCancelledError()
		}

		v := values[i]
		passStart := time.Now()
		passes++
		c.reporter.PassStarted(report.PassInfo{
			Pass:         passes,
			Parameter:    v,
			ActiveScenes: len(working.Scenes),
			ProbeFrames:  c.opts.ProbeFrames,
		})

		if err := c.cycle.Run(ctx, working, v); err != nil {
			return err
		}

		// Fresh scores and the tried value flow back to the canonical
		// partition before retirement filters the working set.
		partition.SyncScoresByIndex(working)
		partition.SyncParameterByIndex(working)

		retired := working.RetireIf(func(s *scene.Scene) bool {
			return c.scenePasses(s)
		})
		for _, s := range retired {
			c.markConverged(partition, s.Index)
			c.reporter.SceneRetired(report.SceneResult{
				Index:     s.Index,
				Parameter: s.Parameter,
				Score:     stats.Percentile(s.Scores, c.opts.Percentile),
				Reason:    fmt.Sprintf("met target %.1f", c.opts.Target),
			})
		}

		working.AdvanceParameter(values[i+1])
		partition.SyncParameterByIndex(working)

		c.reporter.PassComplete(report.PassSummary{
			Pass:      passes,
			Parameter: v,
			Retired:   len(retired),
			Remaining: len(working.Scenes),
			Elapsed:   time.Since(passStart),
		})
		c.reporter.Distribution(distributionRows(partition))
		if summary, err := stats.Summarize(partition.AllScores()); err == nil {
			c.reporter.StatsBlock(summary.String())
		}

		if len(working.Scenes) == 0 {
			break
		}
	}

	if n := len(working.Scenes); n > 0 {
		c.reporter.Warning(fmt.Sprintf(
			"%d scenes did not meet target %.1f; keeping ladder's final value %s",
			n, c.opts.Target, formatValue(c.opts.Ladder.Last())))
		for i := range working.Scenes {
			c.markConverged(partition, working.Scenes[i].Index)
		}
	}

	return c.finish(partition, start, passes)
}

// scenePasses applies the retirement predicate: the aggregate percentile must
// reach the target and, when a floor is set, no single frame may fall under
// it. A scene with no probe scores must never retire silently.
func (c *Controller) scenePasses(s *scene.Scene) bool {
	if len(s.Scores) == 0 {
		return false
	}
	if stats.Percentile(s.Scores, c.opts.Percentile) < c.opts.Target {
		return false
	}
	if c.opts.Floor > 0 && stats.Min(s.Scores) < c.opts.Floor {
		return false
	}
	return true
}

func (c *Controller) markConverged(partition *scene.Partition, index int) {
	for i := range partition.Scenes {
		if partition.Scenes[i].Index == index {
			partition.Scenes[i].Converged = true
			return
		}
	}
}

func (c *Controller) finish(partition *scene.Partition, start time.Time, passes int) error {
	if c.opts.DataFile != "" {
		if err := c.writeDataFile(partition); err != nil {
			return err
		}
	}
	c.reporter.RunComplete(report.RunOutcome{
		Workflow:   "boost",
		SceneCount: len(partition.Scenes),
		Passes:     passes,
		Elapsed:    time.Since(start),
		DataFile:   c.opts.DataFile,
	})
	return nil
}

func (c *Controller) writeDataFile(partition *scene.Partition) error {
	scenes := make([]report.DataScene, 0, len(partition.Scenes))
	for i := range partition.Scenes {
		s := &partition.Scenes[i]
		scenes = append(scenes, report.DataScene{
			Index:      s.Index,
			Parameter:  s.Parameter,
			StartFrame: s.StartFrame,
			EndFrame:   s.EndFrame,
			MeanScore:  stats.Mean(s.Scores),
		})
	}
	if err := report.WriteDataFile(c.opts.DataFile, c.opts.Input, distributionRows(partition), scenes); err != nil {
		return errors.NewIOError("failed to write data report "+c.opts.DataFile, err)
	}
	return nil
}

func distributionRows(partition *scene.Partition) []report.DistributionRow {
	dist := partition.ParameterDistribution()
	rows := make([]report.DistributionRow, len(dist))
	for i, d := range dist {
		rows[i] = report.DistributionRow{Parameter: d.Parameter, Count: d.Count, Percent: d.Percent}
	}
	return rows
}

func formatValue(v float64) string {
	return fmt.Sprintf("%g", v)
}
