// Package dampen drives the size workflow: walk oversized scenes up an
// ascending compression ladder until each scene's encoded artifact fits the
// byte budget, re-measuring real file sizes after every external encode.
package dampen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/five82/taper/internal/encoder"
	"github.com/five82/taper/internal/errors"
	"github.com/five82/taper/internal/ladder"
	"github.com/five82/taper/internal/ledger"
	"github.com/five82/taper/internal/report"
	"github.com/five82/taper/internal/scene"
	"github.com/five82/taper/internal/util"
)

// Options configures one dampen run.
type Options struct {
	// Ladder is the ascending candidate sequence.
	Ladder *ladder.Ladder
	// ThresholdBytes is the per-scene byte budget.
	ThresholdBytes uint64
	// Settings is the typed encoder configuration; Settings.Effort is the
	// full-quality effort restored before the final encode.
	Settings scene.EncoderSettings
	// SearchEffort, when non-zero, replaces the effort preset during search
	// passes only.
	SearchEffort int
	// Input names the reference video.
	Input string
	// Output is the final container file.
	Output string
	// ScenesFile is where the partition snapshot the encoder reads lives.
	ScenesFile string
	// DataFile, when set, receives the per-scene result report.
	DataFile string
}

// sceneState tracks one scene's search so the final report can show what
// changed without re-deriving it from history.
type sceneState struct {
	index         int
	originalSize  uint64
	newSize       uint64
	originalParam float64
	newParam      float64
	ready         bool
}

// Controller runs the dampen convergence loop.
type Controller struct {
	opts     Options
	led      *ledger.Ledger
	enc      encoder.SceneEncoder
	reporter report.Reporter
}

// New creates a dampen controller.
func New(opts Options, led *ledger.Ledger, enc encoder.SceneEncoder, reporter report.Reporter) *Controller {
	return &Controller{opts: opts, led: led, enc: enc, reporter: reporter}
}

// Run converges every scene and writes the final encode. The partition is
// mutated in place to carry the final parameters.
func (c *Controller) Run(ctx context.Context, partition *scene.Partition) error {
	start := time.Now()

	if len(partition.Scenes) == 0 {
		c.reporter.RunComplete(report.RunOutcome{Workflow: "dampen", Elapsed: time.Since(start)})
		return nil
	}

	partition.AssignIndexes()
	if err := partition.SyncParametersFromOverrides(); err != nil {
		return err
	}

	// Pre-run state is preserved verbatim before the first mutation.
	if err := c.led.Backup(); err != nil {
		return err
	}

	states, err := c.initStates(partition)
	if err != nil {
		return err
	}

	if allReady(states) {
		c.reporter.Verbose("all scenes already under the size threshold")
		return c.finish(partition, states, start, 0)
	}

	passes, err := c.searchLoop(ctx, partition, states)
	if err != nil {
		return err
	}

	if err := c.finalEncode(ctx, partition, states); err != nil {
		return err
	}

	// Final sizes come from the filesystem, never from prediction.
	if err := c.measureSizes(states, true); err != nil {
		return err
	}
	return c.finish(partition, states, start, passes)
}

// initStates scans the existing artifacts and decides which scenes need any
// work: a scene already under threshold, or already at the ladder's maximum,
// is ready immediately.
func (c *Controller) initStates(partition *scene.Partition) ([]sceneState, error) {
	artifacts, err := c.led.ScanArtifacts()
	if err != nil {
		return nil, err
	}

	states := make([]sceneState, 0, len(artifacts))
	for _, a := range artifacts {
		var found *scene.Scene
		for i := range partition.Scenes {
			if partition.Scenes[i].Index == a.Index {
				found = &partition.Scenes[i]
				break
			}
		}
		if found == nil {
			return nil, errors.NewStateError(
				fmt.Sprintf("artifact %s names scene %d which is not in the partition", a.Path, a.Index))
		}

		ready := a.SizeBytes <= c.opts.ThresholdBytes || found.Parameter >= c.opts.Ladder.Last()
		states = append(states, sceneState{
			index:         a.Index,
			originalSize:  a.SizeBytes,
			newSize:       a.SizeBytes,
			originalParam: found.Parameter,
			newParam:      found.Parameter,
			ready:         ready,
		})
	}

	// Every scene must have a measured starting point.
	if len(states) != len(partition.Scenes) {
		covered := make(map[int]bool, len(states))
		for _, s := range states {
			covered[s.index] = true
		}
		for i := range partition.Scenes {
			if !covered[partition.Scenes[i].Index] {
				return nil, errors.NewStateError(
					fmt.Sprintf("no artifact found for scene %d", partition.Scenes[i].Index))
			}
		}
	}
	return states, nil
}

// searchLoop runs passes until every scene is ready. The very first pass
// starts each scene at the ladder value strictly past its original one; the
// original value is already known not to fit.
func (c *Controller) searchLoop(ctx context.Context, partition *scene.Partition, states []sceneState) (int, error) {
	for i := range states {
		s := &states[i]
		if s.ready {
			continue
		}
		next, ok := c.opts.Ladder.NextAfter(s.originalParam)
		if !ok {
			s.ready = true
			continue
		}
		s.newParam = next
	}

	passes := 0
	for !allReady(states) {
		if err := ctx.Err(); err != nil {
			return passes, errors.NewCancelledError()
		}
		passes++
		c.reporter.PassStarted(report.PassInfo{
			Pass:         passes,
			Parameter:    activeParam(states),
			ActiveScenes: countActive(states),
		})
		passStart := time.Now()

		if err := c.writePassState(partition, states, false); err != nil {
			return passes, err
		}

		passOutput := filepath.Join(c.led.WorkDir(), fmt.Sprintf("encode_pass_%d.mkv", passes))
		err := c.enc.Encode(ctx, encoder.EncodeRequest{
			Input:      c.opts.Input,
			ScenesFile: c.opts.ScenesFile,
			Output:     passOutput,
			WorkDir:    c.led.WorkDir(),
			Label:      fmt.Sprintf("dampen pass %d", passes),
		})
		if err != nil {
			return passes, err
		}
		// The pass container is a byproduct; only per-scene artifacts matter.
		if err := os.Remove(passOutput); err != nil && !os.IsNotExist(err) {
			return passes, errors.NewIOError("failed to remove pass output", err)
		}

		if err := c.measureSizes(states, false); err != nil {
			return passes, err
		}

		retired := c.retire(states)
		c.reporter.PassComplete(report.PassSummary{
			Pass:      passes,
			Parameter: activeParam(states),
			Retired:   retired,
			Remaining: countActive(states),
			Elapsed:   time.Since(passStart),
		})
		c.reporter.Distribution(distributionRows(partition))
	}
	return passes, nil
}

// writePassState persists the ledger and partition the external encoder will
// read: the done-manifest keeps only ready scenes so exactly the active ones
// are re-encoded, and the invocation records carry the candidate parameters.
// After the encode the on-disk ledger is the authority and is reloaded.
func (c *Controller) writePassState(partition *scene.Partition, states []sceneState, final bool) error {
	done, err := c.led.LoadDone()
	if err != nil {
		return err
	}
	chunks, err := c.led.LoadChunks()
	if err != nil {
		return err
	}

	// When search passes ran at a reduced effort, the final encode redoes the
	// scenes the search actually changed, at the configured effort. A scene
	// whose size or parameter is untouched keeps its artifact as is.
	searched := c.opts.SearchEffort > 0 && c.opts.SearchEffort != c.opts.Settings.Effort
	keep := make(map[int]bool, len(states))
	for _, s := range states {
		if final {
			keep[s.index] = !searched || s.newParam == s.originalParam || s.newSize == s.originalSize
		} else {
			keep[s.index] = s.ready
		}
	}
	done.Prune(keep)

	for i := range states {
		s := &states[i]
		if keep[s.index] {
			continue
		}
		chunks.SetParameter(s.index, s.newParam)
		effort := c.opts.Settings.Effort
		if !final && c.opts.SearchEffort > 0 {
			effort = c.opts.SearchEffort
		}
		chunks.SetEffort(s.index, effort)

		for j := range partition.Scenes {
			if partition.Scenes[j].Index != s.index {
				continue
			}
			partition.Scenes[j].SetParameter(s.newParam)
			if partition.Scenes[j].Overrides != nil {
				partition.Scenes[j].Overrides.Effort = effort
			}
		}
	}

	if err := c.led.SaveDone(done); err != nil {
		return err
	}
	if err := c.led.SaveChunks(chunks); err != nil {
		return err
	}
	return partition.Save(c.opts.ScenesFile)
}

// measureSizes re-reads artifact sizes from the filesystem. Ready scenes are
// frozen unless the final flag forces a full refresh for reporting.
func (c *Controller) measureSizes(states []sceneState, includeReady bool) error {
	sizes, err := c.led.ArtifactSizes()
	if err != nil {
		return err
	}
	for i := range states {
		s := &states[i]
		if s.ready && !includeReady {
			continue
		}
		size, ok := sizes[s.index]
		if !ok {
			return errors.NewStateError(
				fmt.Sprintf("no artifact found for scene %d after encode", s.index))
		}
		s.newSize = size
	}
	return nil
}

// retire applies the readiness rule: under threshold, or the ladder's
// maximum has been tried and the scene still does not fit (best effort).
func (c *Controller) retire(states []sceneState) int {
	retired := 0
	for i := range states {
		s := &states[i]
		if s.ready {
			continue
		}
		if s.newSize <= c.opts.ThresholdBytes {
			s.ready = true
			retired++
			c.reporter.SceneRetired(report.SceneResult{
				Index:     s.index,
				Parameter: s.newParam,
				SizeBytes: s.newSize,
				Reason:    fmt.Sprintf("under threshold %s", util.FormatBytes(c.opts.ThresholdBytes)),
			})
			continue
		}
		next, ok := c.opts.Ladder.NextAfter(s.newParam)
		if !ok {
			s.ready = true
			retired++
			c.reporter.Warning(fmt.Sprintf(
				"scene %d still %s at ladder maximum %g; keeping best effort",
				s.index, util.FormatBytes(s.newSize), s.newParam))
			continue
		}
		s.newParam = next
	}
	return retired
}

// finalEncode restores the configured effort for scenes the search changed
// and produces the output container.
func (c *Controller) finalEncode(ctx context.Context, partition *scene.Partition, states []sceneState) error {
	if err := c.writePassState(partition, states, true); err != nil {
		return err
	}
	return c.enc.Encode(ctx, encoder.EncodeRequest{
		Input:      c.opts.Input,
		ScenesFile: c.opts.ScenesFile,
		Output:     c.opts.Output,
		WorkDir:    c.led.WorkDir(),
		Label:      "final encode",
	})
}

func (c *Controller) finish(partition *scene.Partition, states []sceneState, start time.Time, passes int) error {
	var originalTotal, finalTotal uint64
	for i := range states {
		s := &states[i]
		originalTotal += s.originalSize
		finalTotal += s.newSize
		for j := range partition.Scenes {
			if partition.Scenes[j].Index == s.index {
				partition.Scenes[j].SetParameter(s.newParam)
				partition.Scenes[j].Converged = true
			}
		}
	}
	if err := partition.Save(c.opts.ScenesFile); err != nil {
		return err
	}

	if c.opts.DataFile != "" {
		if err := c.writeDataFile(partition, states); err != nil {
			return err
		}
	}

	c.reporter.RunComplete(report.RunOutcome{
		Workflow:     "dampen",
		SceneCount:   len(partition.Scenes),
		Passes:       passes,
		Elapsed:      time.Since(start),
		OriginalSize: originalTotal,
		FinalSize:    finalTotal,
		DataFile:     c.opts.DataFile,
	})
	return nil
}

func (c *Controller) writeDataFile(partition *scene.Partition, states []sceneState) error {
	bySceneSize := make(map[int]uint64, len(states))
	for _, s := range states {
		bySceneSize[s.index] = s.newSize
	}
	scenes := make([]report.DataScene, 0, len(partition.Scenes))
	for i := range partition.Scenes {
		s := &partition.Scenes[i]
		scenes = append(scenes, report.DataScene{
			Index:      s.Index,
			Parameter:  s.Parameter,
			StartFrame: s.StartFrame,
			EndFrame:   s.EndFrame,
			SizeBytes:  bySceneSize[s.Index],
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

func allReady(states []sceneState) bool {
	for i := range states {
		if !states[i].ready {
			return false
		}
	}
	return true
}

func countActive(states []sceneState) int {
	n := 0
	for i := range states {
		if !states[i].ready {
			n++
		}
	}
	return n
}

// activeParam reports the highest candidate currently under trial, for pass
// labels; scenes can sit at different ladder rungs in the same pass.
func activeParam(states []sceneState) float64 {
	var max float64
	for i := range states {
		if !states[i].ready && states[i].newParam > max {
			max = states[i].newParam
		}
	}
	return max
}
