// Package config loads and validates taper's TOML configuration. Every value
// is typed: ladder specs, byte thresholds, and frame strategies are parsed
// once at load time, never re-split from strings mid-run.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"

	"github.com/five82/taper/internal/ladder"
	"github.com/five82/taper/internal/scene"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Quality contains configuration for the quality boost workflow.
type Quality struct {
	// Ladder is the descending candidate spec, e.g. "35..20:3" or "35,30,27".
	Ladder string `toml:"ladder"`
	// Target is the score the aggregate percentile must reach.
	Target float64 `toml:"target"`
	// Floor is the minimum any single probe frame may score. Zero disables
	// the floor check.
	Floor float64 `toml:"floor"`
	// Percentile selects the aggregate statistic, e.g. 25 for P25.
	Percentile float64 `toml:"percentile"`
	// ProbeFrames is the per-scene probe frame budget.
	ProbeFrames int `toml:"probe_frames"`
	// FrameStrategy picks probe frames: center, evenly, or start-middle-end.
	FrameStrategy string `toml:"frame_strategy"`
	// DataFile, when set, receives the per-scene result report.
	DataFile string `toml:"data_file"`
}

// Size contains configuration for the size dampening workflow.
type Size struct {
	// Ladder is the ascending candidate spec, e.g. "21..31:1".
	Ladder string `toml:"ladder"`
	// Threshold is the per-scene byte budget, e.g. "2.5 MiB".
	Threshold string `toml:"threshold"`
	// SearchEffort, when set, replaces the encoder effort during search
	// passes; the configured effort is restored for the final encode.
	SearchEffort int `toml:"search_effort"`
	// DataFile, when set, receives the per-scene result report.
	DataFile string `toml:"data_file"`
}

// Encoder contains the external encoder invocation settings.
type Encoder struct {
	Name          string `toml:"name"`
	Passes        int    `toml:"passes"`
	Effort        int    `toml:"effort"`
	PhotonNoise   int    `toml:"photon_noise"`
	ExtraSplitLen int    `toml:"extra_splits_len"`
	MinSceneLen   int    `toml:"min_scene_len"`
}

// Workers contains concurrency limits.
type Workers struct {
	// Metric caps concurrent per-frame scoring workers. Zero derives a
	// limit from available memory.
	Metric int `toml:"metric"`
	// MemoryPerWorkerMiB is the assumed scoring worker footprint used when
	// deriving the limit.
	MemoryPerWorkerMiB int `toml:"memory_per_worker_mib"`
}

// Logging contains log output configuration.
type Logging struct {
	Verbose bool `toml:"verbose"`
	NoLog   bool `toml:"no_log"`
}

// Cleanup controls which intermediate artifacts survive a run.
type Cleanup struct {
	// KeepFiles leaves probe encodes and metric caches in place.
	KeepFiles bool `toml:"keep_files"`
}

// Config encapsulates all configuration values for taper.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Quality Quality `toml:"quality"`
	Size    Size    `toml:"size"`
	Encoder Encoder `toml:"encoder"`
	Workers Workers `toml:"workers"`
	Logging Logging `toml:"logging"`
	Cleanup Cleanup `toml:"cleanup"`

	qualityLadder *ladder.Ladder
	sizeLadder    *ladder.Ladder
	thresholdB    uint64
	strategy      scene.FrameStrategy
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/taper/config.toml")
}

// SampleConfig returns the annotated sample configuration file contents.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has path fields expanded and ladder/threshold/strategy specs parsed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("taper.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Quality.FrameStrategy = strings.TrimSpace(c.Quality.FrameStrategy)
	if c.Quality.FrameStrategy == "" {
		c.Quality.FrameStrategy = defaultFrameStrategy
	}
	c.Size.Threshold = strings.TrimSpace(c.Size.Threshold)
	c.Encoder.Name = strings.TrimSpace(c.Encoder.Name)
	if c.Encoder.Name == "" {
		c.Encoder.Name = defaultEncoderName
	}
	return nil
}

// EnsureDirectories creates the work and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QualityLadder returns the parsed descending boost ladder.
func (c *Config) QualityLadder() *ladder.Ladder { return c.qualityLadder }

// SizeLadder returns the parsed ascending dampen ladder.
func (c *Config) SizeLadder() *ladder.Ladder { return c.sizeLadder }

// ThresholdBytes returns the parsed per-scene byte budget.
func (c *Config) ThresholdBytes() uint64 { return c.thresholdB }

// Strategy returns the parsed probe frame strategy.
func (c *Config) Strategy() scene.FrameStrategy { return c.strategy }

// EncoderSettings converts the encoder section to the typed per-run settings.
func (c *Config) EncoderSettings() scene.EncoderSettings {
	return scene.EncoderSettings{
		Encoder:       c.Encoder.Name,
		Passes:        c.Encoder.Passes,
		Effort:        c.Encoder.Effort,
		PhotonNoise:   c.Encoder.PhotonNoise,
		ExtraSplitLen: c.Encoder.ExtraSplitLen,
		MinSceneLen:   c.Encoder.MinSceneLen,
	}
}

func expandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, path[2:])
		}
	}
	return filepath.Abs(path)
}

// WriteSample writes the annotated sample configuration to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

const (
	defaultWorkDir            = "~/.local/share/taper/work"
	defaultLogDir             = "~/.local/share/taper/logs"
	defaultQualityLadder      = "35..20:3"
	defaultQualityTarget      = 80.0
	defaultQualityPercentile  = 25.0
	defaultProbeFrames        = 3
	defaultFrameStrategy      = "center"
	defaultSizeLadder         = "21..31:3"
	defaultSizeThreshold      = "2.5 MiB"
	defaultEncoderName        = "svt-av1"
	defaultEncoderPasses      = 1
	defaultEncoderEffort      = 4
	defaultMemoryPerWorkerMiB = 2048
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Quality: Quality{
			Ladder:        defaultQualityLadder,
			Target:        defaultQualityTarget,
			Percentile:    defaultQualityPercentile,
			ProbeFrames:   defaultProbeFrames,
			FrameStrategy: defaultFrameStrategy,
		},
		Size: Size{
			Ladder:    defaultSizeLadder,
			Threshold: defaultSizeThreshold,
		},
		Encoder: Encoder{
			Name:   defaultEncoderName,
			Passes: defaultEncoderPasses,
			Effort: defaultEncoderEffort,
		},
		Workers: Workers{
			MemoryPerWorkerMiB: defaultMemoryPerWorkerMiB,
		},
	}
}

// Validate ensures the configuration is usable and caches the parsed ladder,
// threshold, and strategy values.
func (c *Config) Validate() error {
	ql, err := ladder.Parse(c.Quality.Ladder, ladder.Descending)
	if err != nil {
		return fmt.Errorf("quality.ladder: %w", err)
	}
	c.qualityLadder = ql

	sl, err := ladder.Parse(c.Size.Ladder, ladder.Ascending)
	if err != nil {
		return fmt.Errorf("size.ladder: %w", err)
	}
	c.sizeLadder = sl

	// NaN slips through plain range comparisons, so reject it explicitly.
	if math.IsNaN(c.Quality.Target) || c.Quality.Target <= 0 || c.Quality.Target > 100 {
		return errors.New("quality.target must be in (0, 100]")
	}
	if math.IsNaN(c.Quality.Floor) || c.Quality.Floor < 0 || c.Quality.Floor > 100 {
		return errors.New("quality.floor must be in [0, 100]")
	}
	if math.IsNaN(c.Quality.Percentile) || c.Quality.Percentile <= 0 || c.Quality.Percentile > 100 {
		return errors.New("quality.percentile must be in (0, 100]")
	}
	if c.Quality.ProbeFrames < 1 {
		return errors.New("quality.probe_frames must be at least 1")
	}

	strategy, err := scene.ParseFrameStrategy(c.Quality.FrameStrategy)
	if err != nil {
		return fmt.Errorf("quality.frame_strategy: %w", err)
	}
	c.strategy = strategy

	if c.Size.Threshold == "" {
		return errors.New("size.threshold must be set")
	}
	bytes, err := humanize.ParseBytes(c.Size.Threshold)
	if err != nil {
		return fmt.Errorf("size.threshold %q: %w", c.Size.Threshold, err)
	}
	if bytes == 0 {
		return errors.New("size.threshold must be positive")
	}
	c.thresholdB = bytes

	if c.Size.SearchEffort < 0 {
		return errors.New("size.search_effort must not be negative")
	}
	if c.Encoder.Passes < 1 {
		return errors.New("encoder.passes must be at least 1")
	}
	if c.Encoder.Effort < 0 {
		return errors.New("encoder.effort must not be negative")
	}
	if c.Workers.Metric < 0 {
		return errors.New("workers.metric must not be negative")
	}
	if c.Workers.MemoryPerWorkerMiB < 1 {
		return errors.New("workers.memory_per_worker_mib must be positive")
	}
	return nil
}
