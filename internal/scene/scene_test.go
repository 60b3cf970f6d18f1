package scene

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/five82/taper/internal/stats"
)

func testPartition() *Partition {
	p := &Partition{
		Scenes: []Scene{
			{StartFrame: 0, EndFrame: 120},
			{StartFrame: 120, EndFrame: 300},
			{StartFrame: 300, EndFrame: 450},
		},
		Frames: 450,
	}
	p.AssignIndexes()
	return p
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		p       Partition
		wantErr bool
	}{
		{"valid", *testPartition(), false},
		{"empty", Partition{}, false},
		{"empty with frames", Partition{Frames: 10}, true},
		{
			"empty scene",
			Partition{Scenes: []Scene{{StartFrame: 5, EndFrame: 5}}, Frames: 5},
			true,
		},
		{
			"gap",
			Partition{Scenes: []Scene{{StartFrame: 0, EndFrame: 10}, {StartFrame: 12, EndFrame: 20}}, Frames: 20},
			true,
		},
		{
			"overlap",
			Partition{Scenes: []Scene{{StartFrame: 0, EndFrame: 10}, {StartFrame: 8, EndFrame: 20}}, Frames: 20},
			true,
		},
		{
			"frame count mismatch",
			Partition{Scenes: []Scene{{StartFrame: 0, EndFrame: 10}}, Frames: 12},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAssignIndexes(t *testing.T) {
	p := testPartition()
	for i, s := range p.Scenes {
		if s.Index != i {
			t.Errorf("scene %d has index %d", i, s.Index)
		}
	}
}

func TestSetParameterUpdatesOverrides(t *testing.T) {
	p := testPartition()
	p.SetParameterAll(35)
	p.ApplySettings(DefaultEncoderSettings())
	p.Scenes[1].SetParameter(30)

	if p.Scenes[1].Parameter != 30 {
		t.Errorf("parameter = %v, want 30", p.Scenes[1].Parameter)
	}
	if p.Scenes[1].Overrides.Parameter != 30 {
		t.Errorf("override parameter = %v, want 30", p.Scenes[1].Overrides.Parameter)
	}
	if p.Scenes[0].Overrides.Parameter != 35 {
		t.Errorf("untouched scene override = %v, want 35", p.Scenes[0].Overrides.Parameter)
	}
}

func TestSyncParametersFromOverrides(t *testing.T) {
	p := testPartition()
	p.SetParameterAll(27)
	p.ApplySettings(DefaultEncoderSettings())

	// Simulate a reload: transient parameters are gone.
	for i := range p.Scenes {
		p.Scenes[i].Parameter = 0
	}
	if err := p.SyncParametersFromOverrides(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Scenes[2].Parameter != 27 {
		t.Errorf("recovered parameter = %v, want 27", p.Scenes[2].Parameter)
	}

	p.Scenes[1].Overrides = nil
	if err := p.SyncParametersFromOverrides(); err == nil {
		t.Error("expected state error for scene without override block")
	}
}

func TestRetireIf(t *testing.T) {
	p := testPartition()
	working := p.SelectProbeFrames(EvenlySpaced, 3)
	for i := range working.Scenes {
		for j := range working.Scenes[i].Scores {
			working.Scenes[i].Scores[j].Score = float64(80 + 5*i)
		}
	}

	retired := working.RetireIf(func(s *Scene) bool {
		return stats.Mean(s.Scores) >= 85
	})

	if len(retired) != 2 {
		t.Fatalf("retired %d scenes, want 2", len(retired))
	}
	for _, s := range retired {
		if !s.Converged {
			t.Errorf("retired scene %d not marked converged", s.Index)
		}
	}
	if len(working.Scenes) != 1 || working.Scenes[0].Index != 0 {
		t.Errorf("remaining scenes wrong: %+v", working.Scenes)
	}
	if working.Frames != 3 {
		t.Errorf("probe view frames = %d, want 3", working.Frames)
	}
}

func TestAdvanceParameterSkipsConverged(t *testing.T) {
	p := testPartition()
	p.SetParameterAll(35)
	p.Scenes[0].Converged = true

	p.AdvanceParameter(30)
	if p.Scenes[0].Parameter != 35 {
		t.Errorf("converged scene moved to %v, want 35", p.Scenes[0].Parameter)
	}
	if p.Scenes[1].Parameter != 30 {
		t.Errorf("active scene = %v, want 30", p.Scenes[1].Parameter)
	}
}

func TestSyncByIndex(t *testing.T) {
	canonical := testPartition()
	canonical.SetParameterAll(35)

	working := canonical.SelectProbeFrames(EvenlySpaced, 2)
	// Filtering removed scene 1; survivors changed parameters and scored.
	working.Scenes = append(working.Scenes[:1], working.Scenes[2:]...)
	working.Scenes[1].SetParameter(30)
	working.Scenes[1].Scores = []stats.FrameScore{{Frame: 310, Score: 77}}

	canonical.SyncParameterByIndex(working)
	canonical.SyncScoresByIndex(working)

	if canonical.Scenes[2].Parameter != 30 {
		t.Errorf("scene 2 parameter = %v, want 30", canonical.Scenes[2].Parameter)
	}
	if canonical.Scenes[1].Parameter != 35 {
		t.Errorf("removed scene parameter = %v, want untouched 35", canonical.Scenes[1].Parameter)
	}
	if len(canonical.Scenes[2].Scores) != 1 || canonical.Scenes[2].Scores[0].Score != 77 {
		t.Errorf("scene 2 scores not synced: %+v", canonical.Scenes[2].Scores)
	}
}

func TestWithContiguousFrames(t *testing.T) {
	p := testPartition()
	working := p.SelectProbeFrames(EvenlySpaced, 3)
	contig := working.WithContiguousFrames()

	if contig.Granularity != Contiguous {
		t.Error("granularity not tagged contiguous")
	}
	expected := [][2]int{{0, 3}, {3, 6}, {6, 9}}
	for i, want := range expected {
		s := contig.Scenes[i]
		if s.StartFrame != want[0] || s.EndFrame != want[1] {
			t.Errorf("scene %d range [%d,%d), want [%d,%d)", i, s.StartFrame, s.EndFrame, want[0], want[1])
		}
	}
	if contig.Frames != 9 {
		t.Errorf("frames = %d, want 9", contig.Frames)
	}
	// Original indexes survive renumbering; they are the join key.
	if contig.Scenes[2].Index != 2 {
		t.Errorf("index lost in renumbering: %d", contig.Scenes[2].Index)
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenes.json")

	p := testPartition()
	p.SetParameterAll(24)
	p.ApplySettings(DefaultEncoderSettings())
	// Transient probe data must not survive the trip.
	p.Scenes[0].Scores = []stats.FrameScore{{Frame: 60, Score: 88}}

	if err := p.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if len(loaded.Scenes) != len(p.Scenes) || loaded.Frames != p.Frames {
		t.Fatalf("shape mismatch after round trip")
	}
	for i := range p.Scenes {
		if loaded.Scenes[i].StartFrame != p.Scenes[i].StartFrame ||
			loaded.Scenes[i].EndFrame != p.Scenes[i].EndFrame {
			t.Errorf("scene %d range changed", i)
		}
		if !reflect.DeepEqual(loaded.Scenes[i].Overrides, p.Scenes[i].Overrides) {
			t.Errorf("scene %d overrides changed: %+v vs %+v", i, loaded.Scenes[i].Overrides, p.Scenes[i].Overrides)
		}
	}
	if len(loaded.Scenes[0].Scores) != 0 {
		t.Error("probe scores were persisted")
	}

	loaded.AssignIndexes()
	if err := loaded.SyncParametersFromOverrides(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if loaded.Scenes[1].Parameter != 24 {
		t.Errorf("recovered parameter = %v, want 24", loaded.Scenes[1].Parameter)
	}
}

func TestParameterDistribution(t *testing.T) {
	p := testPartition()
	p.Scenes[0].Parameter = 35
	p.Scenes[1].Parameter = 27
	p.Scenes[2].Parameter = 35

	dist := p.ParameterDistribution()
	if len(dist) != 2 {
		t.Fatalf("got %d buckets, want 2", len(dist))
	}
	if dist[0].Parameter != 27 || dist[0].Count != 1 {
		t.Errorf("bucket 0 = %+v, want {27 1}", dist[0])
	}
	if dist[1].Parameter != 35 || dist[1].Count != 2 {
		t.Errorf("bucket 1 = %+v, want {35 2}", dist[1])
	}
	if dist[1].Percent < 66 || dist[1].Percent > 67 {
		t.Errorf("bucket 1 percent = %v", dist[1].Percent)
	}
}

func TestOverridesSet(t *testing.T) {
	var o Overrides
	if err := o.Set("parameter", "27.5"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Parameter != 27.5 {
		t.Errorf("parameter = %v, want 27.5", o.Parameter)
	}
	if err := o.Set("effort", "6"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Effort != 6 {
		t.Errorf("effort = %v, want 6", o.Effort)
	}
	if err := o.Set("bogus", "1"); err == nil {
		t.Error("expected error for unknown field")
	}
	if err := o.Set("passes", "two"); err == nil {
		t.Error("expected error for bad value")
	}
}
