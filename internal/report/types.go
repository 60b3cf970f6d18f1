// Package report provides progress reporting interfaces and implementations
// for convergence runs.
package report

import "time"

// RunInfo describes a run before the first pass.
type RunInfo struct {
	Workflow    string
	RunID       string
	WorkDir     string
	SceneCount  int
	TotalFrames int
	Ladder      []float64
	Goal        string
}

// PassInfo describes one search pass over the active scenes.
type PassInfo struct {
	Pass         int
	Parameter    float64
	ActiveScenes int
	ProbeFrames  int
}

// SceneResult contains one scene's convergence outcome.
type SceneResult struct {
	Index     int
	Parameter float64
	Score     float64
	SizeBytes uint64
	Reason    string
}

// PassSummary contains pass completion counts.
type PassSummary struct {
	Pass      int
	Parameter float64
	Retired   int
	Remaining int
	Elapsed   time.Duration
}

// DistributionRow is the share of scenes at one parameter value.
type DistributionRow struct {
	Parameter float64
	Count     int
	Percent   float64
}

// RunOutcome contains final run results.
type RunOutcome struct {
	Workflow     string
	SceneCount   int
	Passes       int
	Elapsed      time.Duration
	OriginalSize uint64
	FinalSize    uint64
	DataFile     string
}

// ReportError contains error information with an optional suggestion.
type ReportError struct {
	Title      string
	Message    string
	Suggestion string
}
