package scene

import (
	"reflect"
	"testing"
)

func TestParseFrameStrategy(t *testing.T) {
	tests := []struct {
		input   string
		want    FrameStrategy
		wantErr bool
	}{
		{"center", CenterExpanding, false},
		{"evenly", EvenlySpaced, false},
		{"start-middle-end", StartMiddleEnd, false},
		{"middle", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFrameStrategy(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectFrames(t *testing.T) {
	tests := []struct {
		name     string
		strategy FrameStrategy
		start    int
		end      int
		n        int
		want     []int
	}{
		{"single frame budget uses midpoint", CenterExpanding, 100, 200, 1, []int{149}},
		{"zero budget uses midpoint", EvenlySpaced, 0, 10, 0, []int{4}},
		{"center expands outward", CenterExpanding, 100, 200, 5, []int{147, 148, 149, 150, 151}},
		{"center clamps to short scene", CenterExpanding, 0, 3, 7, []int{0, 1, 2}},
		{"evenly covers both ends", EvenlySpaced, 0, 101, 5, []int{0, 25, 50, 75, 100}},
		{"evenly dedupes tiny scene", EvenlySpaced, 10, 12, 5, []int{10, 11}},
		{"start middle end thirds", StartMiddleEnd, 0, 100, 9, []int{0, 1, 2, 48, 49, 50, 97, 98, 99}},
		{"start middle end remainder", StartMiddleEnd, 0, 100, 5, []int{0, 48, 49, 50, 99}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectFrames(tt.strategy, tt.start, tt.end, tt.n)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectFramesDeterministic(t *testing.T) {
	for _, strategy := range []FrameStrategy{CenterExpanding, EvenlySpaced, StartMiddleEnd} {
		a := selectFrames(strategy, 37, 412, 7)
		b := selectFrames(strategy, 37, 412, 7)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%v not deterministic: %v vs %v", strategy, a, b)
		}
		for i, f := range a {
			if f < 37 || f > 411 {
				t.Errorf("%v frame %d out of bounds: %d", strategy, i, f)
			}
			if i > 0 && f <= a[i-1] {
				t.Errorf("%v frames not strictly sorted: %v", strategy, a)
			}
		}
	}
}

func TestSelectProbeFramesView(t *testing.T) {
	p := testPartition()
	p.SetParameterAll(30)

	view := p.SelectProbeFrames(CenterExpanding, 3)
	if view.Granularity != ProbeSubset {
		t.Error("view not tagged as probe subset")
	}
	if len(view.Scenes) != len(p.Scenes) {
		t.Fatalf("view has %d scenes, want %d", len(view.Scenes), len(p.Scenes))
	}
	for i := range view.Scenes {
		s := view.Scenes[i]
		if s.Parameter != 30 {
			t.Errorf("scene %d lost its parameter", i)
		}
		if len(s.Scores) != 3 {
			t.Errorf("scene %d has %d score slots, want 3", i, len(s.Scores))
		}
		for _, sc := range s.Scores {
			if sc.Score != 0 {
				t.Errorf("scene %d score slot prefilled with %v", i, sc.Score)
			}
			if sc.Frame < s.StartFrame || sc.Frame >= s.EndFrame {
				t.Errorf("scene %d probe frame %d outside [%d,%d)", i, sc.Frame, s.StartFrame, s.EndFrame)
			}
		}
	}

	// Deriving the view must not touch the canonical partition.
	if len(p.Scenes[0].Scores) != 0 {
		t.Error("canonical partition gained probe scores")
	}
}

func TestAllProbeFrames(t *testing.T) {
	p := testPartition()
	view := p.SelectProbeFrames(EvenlySpaced, 3)
	frames := view.AllProbeFrames()
	if len(frames) != 9 {
		t.Fatalf("got %d frames, want 9", len(frames))
	}
	for i := 1; i < len(frames); i++ {
		if frames[i] <= frames[i-1] {
			t.Fatalf("frames not strictly sorted: %v", frames)
		}
	}
}
