package scene

import (
	"fmt"
	"math"

	"github.com/five82/taper/internal/errors"
	"github.com/five82/taper/internal/stats"
)

// FrameStrategy selects which frames of a scene are probed.
type FrameStrategy int

const (
	// CenterExpanding alternately steps outward from the scene midpoint.
	CenterExpanding FrameStrategy = iota
	// EvenlySpaced spreads frames across the scene span, both ends inclusive.
	EvenlySpaced
	// StartMiddleEnd takes thirds of the budget from the head, center, and
	// tail of the scene.
	StartMiddleEnd
)

func (s FrameStrategy) String() string {
	switch s {
	case CenterExpanding:
		return "center"
	case EvenlySpaced:
		return "evenly"
	case StartMiddleEnd:
		return "start-middle-end"
	default:
		return "unknown"
	}
}

// ParseFrameStrategy converts a strategy name from configuration.
func ParseFrameStrategy(s string) (FrameStrategy, error) {
	switch s {
	case "center":
		return CenterExpanding, nil
	case "evenly":
		return EvenlySpaced, nil
	case "start-middle-end":
		return StartMiddleEnd, nil
	default:
		return 0, errors.NewConfigError(fmt.Sprintf("unknown frame strategy %q (expected center, evenly, or start-middle-end)", s))
	}
}

// SelectProbeFrames derives a probe-subset working view: each scene's score
// slots are filled with the selected frame numbers (scores zeroed). Frame
// choice is deterministic given (start, end, n) and always clamped to scene
// bounds; n<=1 degenerates to the midpoint alone.
func (p *Partition) SelectProbeFrames(strategy FrameStrategy, n int) *Partition {
	out := &Partition{Granularity: ProbeSubset, Frames: p.Frames}
	for i := range p.Scenes {
		s := p.Scenes[i]
		frames := selectFrames(strategy, s.StartFrame, s.EndFrame, n)
		scores := make([]stats.FrameScore, len(frames))
		for j, f := range frames {
			scores[j] = stats.FrameScore{Frame: f}
		}
		s.Scores = scores
		out.Scenes = append(out.Scenes, s)
	}
	return out
}

func selectFrames(strategy FrameStrategy, start, end, n int) []int {
	last := end - 1
	if last < start {
		return nil
	}
	if n <= 1 {
		return []int{(start + last) / 2}
	}

	switch strategy {
	case EvenlySpaced:
		return evenlySpacedFrames(start, last, n)
	case StartMiddleEnd:
		return startMiddleEndFrames(start, last, n)
	default:
		return centerExpandingFrames(start, last, n)
	}
}

// centerExpandingFrames alternates outward from the midpoint:
// mid, mid-1, mid+1, mid-2, ... clamped to the scene and deduplicated.
func centerExpandingFrames(start, last, n int) []int {
	middle := (start + last) / 2
	var frames []int
	for i := 0; i < n; i++ {
		var f int
		if i%2 == 0 {
			f = middle + i/2
		} else {
			f = middle - (i+1)/2
		}
		if f >= start && f <= last {
			frames = append(frames, f)
		}
	}
	return sortDedupe(frames)
}

// evenlySpacedFrames spreads n frames across [start,last], inclusive of both
// ends, rounding each position to the nearest frame.
func evenlySpacedFrames(start, last, n int) []int {
	span := last - start
	step := float64(span) / float64(n-1)
	frames := make([]int, 0, n)
	for i := 0; i < n; i++ {
		f := start + int(math.Round(step*float64(i)))
		if f > last {
			f = last
		}
		frames = append(frames, f)
	}
	return sortDedupe(frames)
}

// startMiddleEndFrames takes a third of the budget as a run from the scene
// head, a third from the tail, and the remainder centered on the midpoint.
func startMiddleEndFrames(start, last, n int) []int {
	third := n / 3
	headN := third
	tailN := third
	midN := n - headN - tailN

	var frames []int
	for i := 0; i < headN; i++ {
		frames = append(frames, start+i)
	}
	middle := (start + last) / 2
	midStart := middle - midN/2
	for i := 0; i < midN; i++ {
		frames = append(frames, midStart+i)
	}
	for i := 0; i < tailN; i++ {
		frames = append(frames, last-tailN+1+i)
	}

	clamped := frames[:0]
	for _, f := range frames {
		if f < start {
			f = start
		}
		if f > last {
			f = last
		}
		clamped = append(clamped, f)
	}
	return sortDedupe(clamped)
}

func sortDedupe(frames []int) []int {
	if len(frames) == 0 {
		return frames
	}
	for i := 1; i < len(frames); i++ {
		for j := i; j > 0 && frames[j] < frames[j-1]; j-- {
			frames[j], frames[j-1] = frames[j-1], frames[j]
		}
	}
	out := frames[:1]
	for _, f := range frames[1:] {
		if f != out[len(out)-1] {
			out = append(out, f)
		}
	}
	return out
}
