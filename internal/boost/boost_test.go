package boost

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/five82/taper/internal/encoder"
	"github.com/five82/taper/internal/ladder"
	"github.com/five82/taper/internal/probe"
	"github.com/five82/taper/internal/report"
	"github.com/five82/taper/internal/scene"
)

type fakeEncoder struct {
	calls int32
}

func (f *fakeEncoder) Available() bool { return true }

func (f *fakeEncoder) Encode(ctx context.Context, req encoder.EncodeRequest) error {
	atomic.AddInt32(&f.calls, 1)
	return os.WriteFile(req.Output, []byte("probe"), 0o644)
}

// scriptedScorer returns scores from a (parameter tag, scene) script. The
// probe artifact name carries the parameter tag.
type scriptedScorer struct {
	// scores maps parameter tag -> scene start bucket -> score.
	scores map[string]map[bool]float64
}

func (s *scriptedScorer) Available() bool { return true }

func (s *scriptedScorer) Score(ctx context.Context, reference, distorted string, refFrame, distFrame int) (float64, error) {
	base := filepath.Base(distorted)
	tag := strings.TrimSuffix(strings.TrimPrefix(base, "probe_"), ".ivf")
	isSceneB := refFrame >= 100
	return s.scores[tag][isSceneB], nil
}

func twoScenePartition() *scene.Partition {
	return &scene.Partition{
		Scenes: []scene.Scene{
			{StartFrame: 0, EndFrame: 100},
			{StartFrame: 100, EndFrame: 300},
		},
		Frames: 300,
	}
}

func newController(t *testing.T, spec string, scorer encoder.FrameScorer, enc encoder.SceneEncoder, opts func(*Options)) *Controller {
	t.Helper()
	lad, err := ladder.Parse(spec, ladder.Descending)
	if err != nil {
		t.Fatalf("ladder: %v", err)
	}
	o := Options{
		Ladder:      lad,
		Target:      80,
		Percentile:  25,
		ProbeFrames: 3,
		Strategy:    scene.EvenlySpaced,
		Settings:    scene.DefaultEncoderSettings(),
		Input:       "source.mkv",
	}
	if opts != nil {
		opts(&o)
	}
	cycle := &probe.Cycle{
		Encoder:  enc,
		Scorer:   scorer,
		Reporter: report.NullReporter{},
		Input:    "source.mkv",
		WorkDir:  t.TempDir(),
		Workers:  2,
	}
	return New(o, cycle, report.NullReporter{})
}

func TestRunConvergesPerScene(t *testing.T) {
	// Scene A passes immediately at 35; scene B scores 70, 74, 81 at
	// 35, 30, 27 and must settle at 27, the first passing value.
	scorer := &scriptedScorer{scores: map[string]map[bool]float64{
		"35": {false: 85, true: 70},
		"30": {false: 85, true: 74},
		"27": {false: 85, true: 81},
		"24": {false: 85, true: 90},
	}}
	c := newController(t, "35,30,27,24,21", scorer, &fakeEncoder{}, nil)
	p := twoScenePartition()

	if err := c.Run(context.Background(), p); err != nil {
		t.Fatalf("run: %v", err)
	}

	if p.Scenes[0].Parameter != 35 {
		t.Errorf("scene A parameter = %v, want 35", p.Scenes[0].Parameter)
	}
	if p.Scenes[1].Parameter != 27 {
		t.Errorf("scene B parameter = %v, want 27", p.Scenes[1].Parameter)
	}
	for i := range p.Scenes {
		if !p.Scenes[i].Converged {
			t.Errorf("scene %d not marked converged", i)
		}
		if p.Scenes[i].Overrides == nil || p.Scenes[i].Overrides.Parameter != p.Scenes[i].Parameter {
			t.Errorf("scene %d override block out of step", i)
		}
	}
}

func TestRunExhaustionKeepsFinalValue(t *testing.T) {
	// Nothing ever passes; every scene ends at the ladder's last value.
	scorer := &scriptedScorer{scores: map[string]map[bool]float64{
		"35": {false: 50, true: 50},
		"30": {false: 50, true: 50},
		"27": {false: 50, true: 50},
	}}
	c := newController(t, "35,30,27,21", scorer, &fakeEncoder{}, nil)
	p := twoScenePartition()

	if err := c.Run(context.Background(), p); err != nil {
		t.Fatalf("run: %v", err)
	}
	for i := range p.Scenes {
		if p.Scenes[i].Parameter != 21 {
			t.Errorf("scene %d parameter = %v, want final ladder value 21", i, p.Scenes[i].Parameter)
		}
	}
}

func TestRunFloorBlocksRetirement(t *testing.T) {
	// The median passes at 35 but one frame sits under the floor, so the
	// scene keeps searching and retires at 30 when all frames clear it.
	scorer := &floorScorer{}
	c := newController(t, "35,30,21", scorer, &fakeEncoder{}, func(o *Options) {
		o.Percentile = 50
		o.Floor = 60
	})
	p := &scene.Partition{
		Scenes: []scene.Scene{{StartFrame: 0, EndFrame: 100}},
		Frames: 100,
	}

	if err := c.Run(context.Background(), p); err != nil {
		t.Fatalf("run: %v", err)
	}
	if p.Scenes[0].Parameter != 30 {
		t.Errorf("parameter = %v, want 30", p.Scenes[0].Parameter)
	}
}

// floorScorer yields one sub-floor outlier at parameter 35 only.
type floorScorer struct{}

func (f *floorScorer) Available() bool { return true }

func (f *floorScorer) Score(ctx context.Context, reference, distorted string, refFrame, distFrame int) (float64, error) {
	tag := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(distorted), "probe_"), ".ivf")
	if tag == "35" && refFrame == 0 {
		return 55, nil
	}
	return 90, nil
}

func TestRunEmptyPartition(t *testing.T) {
	enc := &fakeEncoder{}
	c := newController(t, "35,30,21", &scriptedScorer{}, enc, nil)

	p := &scene.Partition{}
	if err := c.Run(context.Background(), p); err != nil {
		t.Fatalf("run: %v", err)
	}
	if enc.calls != 0 {
		t.Error("empty partition triggered encode work")
	}
}

func TestRunSingleValueLadder(t *testing.T) {
	enc := &fakeEncoder{}
	c := newController(t, "27", &scriptedScorer{}, enc, nil)
	p := twoScenePartition()

	if err := c.Run(context.Background(), p); err != nil {
		t.Fatalf("run: %v", err)
	}
	if enc.calls != 0 {
		t.Error("single-value ladder entered the pass loop")
	}
	for i := range p.Scenes {
		if p.Scenes[i].Parameter != 27 {
			t.Errorf("scene %d parameter = %v, want 27", i, p.Scenes[i].Parameter)
		}
	}
}

func TestRunWritesDataFile(t *testing.T) {
	scorer := &scriptedScorer{scores: map[string]map[bool]float64{
		"35": {false: 85, true: 85},
	}}
	dataFile := filepath.Join(t.TempDir(), "data.txt")
	c := newController(t, "35,21", scorer, &fakeEncoder{}, func(o *Options) {
		o.DataFile = dataFile
	})

	if err := c.Run(context.Background(), twoScenePartition()); err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(dataFile)
	if err != nil {
		t.Fatalf("data file missing: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "[INFO]") || !strings.Contains(text, "[DATA]") {
		t.Errorf("report missing sections:\n%s", text)
	}
	if !strings.Contains(text, "Video: source.mkv") {
		t.Errorf("report missing video name:\n%s", text)
	}
	if !strings.Contains(text, "scene:    0") || !strings.Contains(text, "scene:    1") {
		t.Errorf("report missing scene lines:\n%s", text)
	}
}
