// Package scene provides the timeline data model for per-scene convergence:
// an ordered partition of contiguous frame ranges, each carrying its current
// parameter value, transient probe scores, and converged status.
//
// The same partition is viewed at different granularities during a run
// (whole scenes, probe subsets, contiguous renumbering for the temp encode);
// all views share one type with an explicit granularity tag, and merging a
// working view back into the canonical partition is an explicit sync by
// scene index.
package scene

import (
	"fmt"

	"github.com/five82/taper/internal/errors"
	"github.com/five82/taper/internal/stats"
)

// Granularity tags which view of the timeline a partition represents.
type Granularity int

const (
	// Whole is the canonical view: scenes span their full frame ranges.
	Whole Granularity = iota
	// ProbeSubset is a working view whose scores hold selected probe frames.
	ProbeSubset
	// Contiguous is a probe view renumbered so probe frames form one
	// unbroken range (the shape the temp encode operates on).
	Contiguous
)

// Scene is one contiguous frame range under independent convergence.
// StartFrame/EndFrame are half-open: the scene covers [StartFrame, EndFrame).
// Index, Parameter, Scores, and Converged are transient run state and are
// never persisted; the parameter survives restarts inside the override block.
type Scene struct {
	Index      int        `json:"-"`
	StartFrame int        `json:"start_frame"`
	EndFrame   int        `json:"end_frame"`
	Overrides  *Overrides `json:"zone_overrides,omitempty"`

	Parameter float64            `json:"-"`
	Scores    []stats.FrameScore `json:"-"`
	Converged bool               `json:"-"`
}

// FrameCount returns the number of frames the scene spans.
func (s *Scene) FrameCount() int {
	return s.EndFrame - s.StartFrame
}

// LastFrame returns the highest frame number inside the scene.
func (s *Scene) LastFrame() int {
	return s.EndFrame - 1
}

// MidpointFrame returns the center frame of the scene.
func (s *Scene) MidpointFrame() int {
	return (s.StartFrame + s.LastFrame()) / 2
}

// SetParameter updates the scene's current parameter and keeps the override
// block in step so the value survives serialization.
func (s *Scene) SetParameter(v float64) {
	s.Parameter = v
	if s.Overrides != nil {
		s.Overrides.Parameter = v
	}
}

// ProbeFrames returns the frame numbers currently attached to the scene's
// score slots, in order.
func (s *Scene) ProbeFrames() []int {
	frames := make([]int, len(s.Scores))
	for i, sc := range s.Scores {
		frames[i] = sc.Frame
	}
	return frames
}

// Partition is an ordered sequence of scenes covering a timeline without
// gaps or overlaps, plus the total frame count.
type Partition struct {
	Scenes      []Scene     `json:"scenes"`
	Frames      int         `json:"frames"`
	Granularity Granularity `json:"-"`
}

// Validate checks the partition invariants: every scene spans at least one
// frame, scenes tile the timeline without gaps or overlaps, and the frame
// count matches the final scene's end.
func (p *Partition) Validate() error {
	if len(p.Scenes) == 0 {
		if p.Frames != 0 {
			return errors.NewSceneError(fmt.Sprintf("empty partition declares %d frames", p.Frames), nil)
		}
		return nil
	}

	for i := range p.Scenes {
		s := &p.Scenes[i]
		if s.EndFrame <= s.StartFrame {
			return errors.NewSceneError(
				fmt.Sprintf("scene %d has empty frame range [%d,%d)", i, s.StartFrame, s.EndFrame), nil)
		}
		if i > 0 && s.StartFrame != p.Scenes[i-1].EndFrame {
			return errors.NewSceneError(
				fmt.Sprintf("scene %d starts at frame %d but previous scene ends at %d",
					i, s.StartFrame, p.Scenes[i-1].EndFrame), nil)
		}
	}

	if last := p.Scenes[len(p.Scenes)-1].EndFrame; p.Frames != last {
		return errors.NewSceneError(
			fmt.Sprintf("partition declares %d frames but scenes end at %d", p.Frames, last), nil)
	}
	return nil
}

// AssignIndexes stamps stable indexes 0..n onto scenes in timeline order.
// Call exactly once per run, before any working view is derived: later sync
// steps join on index, not position, because filtering reorders and removes
// entries.
func (p *Partition) AssignIndexes() {
	for i := range p.Scenes {
		p.Scenes[i].Index = i
	}
}

// SetParameterAll assigns the same parameter value to every scene.
func (p *Partition) SetParameterAll(v float64) {
	for i := range p.Scenes {
		p.Scenes[i].SetParameter(v)
	}
}

// ApplySettings attaches an override block derived from the given settings to
// every scene, preserving each scene's current parameter.
func (p *Partition) ApplySettings(settings EncoderSettings) {
	for i := range p.Scenes {
		o := settings.Overrides()
		o.Parameter = p.Scenes[i].Parameter
		p.Scenes[i].Overrides = &o
	}
}

// SyncParametersFromOverrides recovers each scene's transient parameter from
// its persisted override block. A scene without an override block is a state
// error: guessing a parameter would corrupt convergence for that scene.
func (p *Partition) SyncParametersFromOverrides() error {
	for i := range p.Scenes {
		s := &p.Scenes[i]
		if s.Overrides == nil {
			return errors.NewStateError(
				fmt.Sprintf("scene %d has no override block to recover its parameter from", s.Index))
		}
		s.Parameter = s.Overrides.Parameter
	}
	return nil
}

// AdvanceParameter moves every non-converged scene to the next candidate.
func (p *Partition) AdvanceParameter(next float64) {
	for i := range p.Scenes {
		if !p.Scenes[i].Converged {
			p.Scenes[i].SetParameter(next)
		}
	}
}

// RetireIf marks scenes whose predicate holds as converged and removes them
// from this (working) partition, returning the retired scenes. Retired
// scenes keep their last-assigned parameter permanently. For probe views the
// frame count is recomputed as the remaining probe total.
func (p *Partition) RetireIf(pred func(*Scene) bool) []Scene {
	var retired []Scene
	remaining := p.Scenes[:0]
	for i := range p.Scenes {
		s := p.Scenes[i]
		if pred(&s) {
			s.Converged = true
			retired = append(retired, s)
		} else {
			remaining = append(remaining, s)
		}
	}
	p.Scenes = remaining

	if p.Granularity != Whole {
		total := 0
		for i := range p.Scenes {
			total += len(p.Scenes[i].Scores)
		}
		p.Frames = total
	}
	return retired
}

// SyncParameterByIndex copies parameter values from a reference partition
// into matching scenes by index.
func (p *Partition) SyncParameterByIndex(ref *Partition) {
	params := make(map[int]float64, len(ref.Scenes))
	for i := range ref.Scenes {
		params[ref.Scenes[i].Index] = ref.Scenes[i].Parameter
	}
	for i := range p.Scenes {
		if v, ok := params[p.Scenes[i].Index]; ok {
			p.Scenes[i].SetParameter(v)
		}
	}
}

// SyncScoresByIndex copies probe scores from a reference partition into
// matching scenes by index.
func (p *Partition) SyncScoresByIndex(ref *Partition) {
	scores := make(map[int][]stats.FrameScore, len(ref.Scenes))
	for i := range ref.Scenes {
		s := make([]stats.FrameScore, len(ref.Scenes[i].Scores))
		copy(s, ref.Scenes[i].Scores)
		scores[ref.Scenes[i].Index] = s
	}
	for i := range p.Scenes {
		if s, ok := scores[p.Scenes[i].Index]; ok {
			p.Scenes[i].Scores = s
		}
	}
}

// WithContiguousFrames returns a copy of a probe view renumbered so the
// selected probe frames form one unbroken timeline: scene i covers
// [counter, counter+len(scores)). The temp encode sees this shape.
func (p *Partition) WithContiguousFrames() *Partition {
	out := &Partition{Granularity: Contiguous}
	counter := 0
	for i := range p.Scenes {
		s := p.Scenes[i]
		n := len(s.Scores)
		s.StartFrame = counter
		s.EndFrame = counter + n
		scores := make([]stats.FrameScore, n)
		copy(scores, p.Scenes[i].Scores)
		s.Scores = scores
		out.Scenes = append(out.Scenes, s)
		counter += n
	}
	out.Frames = counter
	return out
}

// AllProbeFrames returns the sorted, deduplicated union of every scene's
// probe frame numbers.
func (p *Partition) AllProbeFrames() []int {
	var frames []int
	for i := range p.Scenes {
		frames = append(frames, p.Scenes[i].ProbeFrames()...)
	}
	if len(frames) == 0 {
		return frames
	}
	// sort + dedupe
	for i := 1; i < len(frames); i++ {
		for j := i; j > 0 && frames[j] < frames[j-1]; j-- {
			frames[j], frames[j-1] = frames[j-1], frames[j]
		}
	}
	dedup := frames[:1]
	for _, f := range frames[1:] {
		if f != dedup[len(dedup)-1] {
			dedup = append(dedup, f)
		}
	}
	return dedup
}

// AllScores flattens every scene's probe scores into one list.
func (p *Partition) AllScores() []stats.FrameScore {
	var scores []stats.FrameScore
	for i := range p.Scenes {
		scores = append(scores, p.Scenes[i].Scores...)
	}
	return scores
}

// Distribution is the share of scenes currently holding each parameter value.
type Distribution struct {
	Parameter float64
	Percent   float64
	Count     int
}

// ParameterDistribution computes the per-parameter scene share, ordered by
// ascending parameter value.
func (p *Partition) ParameterDistribution() []Distribution {
	if len(p.Scenes) == 0 {
		return nil
	}
	counts := make(map[float64]int)
	for i := range p.Scenes {
		counts[p.Scenes[i].Parameter]++
	}

	out := make([]Distribution, 0, len(counts))
	total := float64(len(p.Scenes))
	for v, c := range counts {
		out = append(out, Distribution{Parameter: v, Percent: float64(c) / total * 100, Count: c})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Parameter < out[j-1].Parameter; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
