// Package probe runs one probe cycle for a candidate parameter value: persist
// the working partition, invoke the external encoder once, fan per-frame
// quality measurement across a bounded worker pool, and attach the scores
// back to each scene in frame order.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/five82/taper/internal/encoder"
	"github.com/five82/taper/internal/errors"
	"github.com/five82/taper/internal/report"
	"github.com/five82/taper/internal/scene"
	"github.com/five82/taper/internal/stats"
	"github.com/five82/taper/internal/util"
)

// Cycle holds the collaborators one probe pass needs.
type Cycle struct {
	Encoder  encoder.SceneEncoder
	Scorer   encoder.FrameScorer
	Reporter report.Reporter

	// Input is the reference source handed to the collaborators.
	Input string
	// WorkDir is where per-pass files (scenes, artifacts, metric caches) live.
	WorkDir string
	// Workers bounds the scoring pool. Zero derives a limit from memory.
	Workers int
	// MemoryPerWorkerBytes sizes the derived limit when Workers is zero.
	MemoryPerWorkerBytes uint64
}

// scoreJob pairs a reference frame with its position in the probe encode.
type scoreJob struct {
	refFrame  int
	distFrame int
}

type scoreResult struct {
	refFrame int
	score    float64
	err      error
}

// Run probes every scene in the working partition at its current parameter.
// Results are attached to the scenes' score slots, sorted by frame number so
// aggregation never depends on worker completion order. A cached metric file
// from an earlier interrupted run short-circuits the measurement.
func (c *Cycle) Run(ctx context.Context, working *scene.Partition, param float64) error {
	if len(working.Scenes) == 0 {
		return nil
	}
	for i := range working.Scenes {
		if len(working.Scenes[i].Scores) == 0 {
			return errors.NewSceneError(
				fmt.Sprintf("scene %d has an empty probe set; cannot measure convergence", working.Scenes[i].Index), nil)
		}
	}

	tag := paramTag(param)
	if cached, err := c.loadMetricCache(tag); err == nil && c.attachScores(working, cached) {
		c.Reporter.Verbose(fmt.Sprintf("reusing cached metrics for %s", tag))
		return nil
	}

	if err := c.encodeProbe(ctx, working, tag); err != nil {
		return err
	}

	scores, err := c.scoreProbe(ctx, working, tag)
	if err != nil {
		return err
	}
	if err := c.saveMetricCache(tag, scores); err != nil {
		return err
	}
	if !c.attachScores(working, scores) {
		return errors.NewMetricError("measurement did not cover every probe frame", nil)
	}
	return nil
}

// encodeProbe writes the contiguous probe partition and frame manifest, then
// runs the external encoder unless the probe artifact already exists (resume).
func (c *Cycle) encodeProbe(ctx context.Context, working *scene.Partition, tag string) error {
	output := c.probeOutputPath(tag)
	if _, err := os.Stat(output); err == nil {
		c.Reporter.Verbose(fmt.Sprintf("reusing probe encode %s", filepath.Base(output)))
		return nil
	}

	contig := working.WithContiguousFrames()
	scenesPath := filepath.Join(c.WorkDir, fmt.Sprintf("probe_scenes_%s.json", tag))
	if err := contig.Save(scenesPath); err != nil {
		return err
	}

	manifest := struct {
		Source string `json:"source"`
		Frames []int  `json:"frames"`
	}{Source: c.Input, Frames: working.AllProbeFrames()}
	manifestPath := filepath.Join(c.WorkDir, fmt.Sprintf("probe_frames_%s.json", tag))
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return errors.NewStateError("failed to serialize probe frame manifest: " + err.Error())
	}
	if err := os.WriteFile(manifestPath, append(data, '\n'), 0o644); err != nil {
		return errors.NewIOError("failed to write probe frame manifest", err)
	}

	return c.Encoder.Encode(ctx, encoder.EncodeRequest{
		Input:      manifestPath,
		ScenesFile: scenesPath,
		Output:     output,
		WorkDir:    filepath.Join(c.WorkDir, "probe_tmp_"+tag),
		Label:      "probe " + tag,
	})
}

// scoreProbe measures every probe frame against the reference across a
// bounded pool. Each result lands in a slot keyed by reference frame number.
func (c *Cycle) scoreProbe(ctx context.Context, working *scene.Partition, tag string) (map[int]float64, error) {
	contig := working.WithContiguousFrames()
	var jobs []scoreJob
	for i := range working.Scenes {
		for j := range working.Scenes[i].Scores {
			jobs = append(jobs, scoreJob{
				refFrame:  working.Scenes[i].Scores[j].Frame,
				distFrame: contig.Scenes[i].StartFrame + j,
			})
		}
	}

	workers := c.Workers
	if workers <= 0 {
		workers = util.MaxWorkersForMemory(c.MemoryPerWorkerBytes, 0.8)
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	c.Reporter.ScoringStarted(len(jobs))
	output := c.probeOutputPath(tag)

	jobCh := make(chan scoreJob)
	resultCh := make(chan scoreResult, len(jobs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				score, err := c.Scorer.Score(ctx, c.Input, output, job.refFrame, job.distFrame)
				resultCh <- scoreResult{refFrame: job.refFrame, score: score, err: err}
			}
		}()
	}

	go func() {
		defer close(jobCh)
		for _, job := range jobs {
			select {
			case jobCh <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	scores := make(map[int]float64, len(jobs))
	var firstErr error
	done := 0
	for result := range resultCh {
		if result.err != nil {
			if firstErr == nil {
				firstErr = result.err
			}
			continue
		}
		scores[result.refFrame] = result.score
		done++
		c.Reporter.ScoringProgress(done, len(jobs))
	}

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelledError()
	}
	return scores, nil
}

// attachScores fills each scene's score slots from the frame-keyed map and
// restores frame order. Returns false when a probe frame has no score.
func (c *Cycle) attachScores(working *scene.Partition, scores map[int]float64) bool {
	for i := range working.Scenes {
		s := &working.Scenes[i]
		for j := range s.Scores {
			score, ok := scores[s.Scores[j].Frame]
			if !ok {
				return false
			}
			s.Scores[j].Score = score
		}
		stats.SortByFrame(s.Scores)
	}
	return true
}

func (c *Cycle) probeOutputPath(tag string) string {
	return filepath.Join(c.WorkDir, fmt.Sprintf("probe_%s.ivf", tag))
}

func (c *Cycle) metricCachePath(tag string) string {
	return filepath.Join(c.WorkDir, fmt.Sprintf("metrics_%s.json", tag))
}

func (c *Cycle) loadMetricCache(tag string) (map[int]float64, error) {
	data, err := os.ReadFile(c.metricCachePath(tag))
	if err != nil {
		return nil, err
	}
	var entries []stats.FrameScore
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	scores := make(map[int]float64, len(entries))
	for _, e := range entries {
		scores[e.Frame] = e.Score
	}
	return scores, nil
}

func (c *Cycle) saveMetricCache(tag string, scores map[int]float64) error {
	entries := make([]stats.FrameScore, 0, len(scores))
	for frame, score := range scores {
		entries = append(entries, stats.FrameScore{Frame: frame, Score: score})
	}
	stats.SortByFrame(entries)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.NewStateError("failed to serialize metric cache: " + err.Error())
	}
	if err := os.WriteFile(c.metricCachePath(tag), append(data, '\n'), 0o644); err != nil {
		return errors.NewIOError("failed to write metric cache", err)
	}
	return nil
}

// CleanupPassFiles removes per-pass probe files when intermediates are not
// kept. Metric caches are removed too; resume needs them only mid-run.
func (c *Cycle) CleanupPassFiles() error {
	patterns := []string{"probe_*.ivf", "probe_scenes_*.json", "probe_frames_*.json", "metrics_*.json"}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(c.WorkDir, pattern))
		if err != nil {
			continue
		}
		for _, match := range matches {
			if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
				return errors.NewIOError("failed to remove "+match, err)
			}
		}
	}
	tmpDirs, _ := filepath.Glob(filepath.Join(c.WorkDir, "probe_tmp_*"))
	for _, dir := range tmpDirs {
		if err := os.RemoveAll(dir); err != nil {
			return errors.NewIOError("failed to remove "+dir, err)
		}
	}
	return nil
}

// paramTag renders a parameter value as a stable filename token.
func paramTag(v float64) string {
	s := strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
	return strings.ReplaceAll(s, ".", "_")
}
