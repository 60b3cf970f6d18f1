package report

import (
	"strings"

	"github.com/five82/taper/internal/logging"
	"github.com/five82/taper/internal/util"
)

// LogReporter mirrors run events into the timestamped run log so terminal
// output and the on-disk record stay in step.
type LogReporter struct {
	log *logging.RunLog
}

// NewLogReporter creates a reporter writing to the given run log.
func NewLogReporter(log *logging.RunLog) *LogReporter {
	return &LogReporter{log: log}
}

func (r *LogReporter) RunStarted(info RunInfo) {
	r.log.Info("%s run %s started: %d scenes, %d frames, ladder [%s], goal %s",
		info.Workflow, info.RunID, info.SceneCount, info.TotalFrames,
		formatLadder(info.Ladder), info.Goal)
}

func (r *LogReporter) PassStarted(info PassInfo) {
	r.log.Info("pass %d: trying %s on %d scenes (%d probe frames/scene)",
		info.Pass, formatParameter(info.Parameter), info.ActiveScenes, info.ProbeFrames)
}

func (r *LogReporter) ScoringStarted(totalFrames int) {
	r.log.Debug("scoring %d frames", totalFrames)
}

func (r *LogReporter) ScoringProgress(done, total int) {}

func (r *LogReporter) SceneRetired(result SceneResult) {
	r.log.Info("scene %d settled at %s: %s", result.Index, formatParameter(result.Parameter), result.Reason)
}

func (r *LogReporter) PassComplete(summary PassSummary) {
	r.log.Info("pass %d at %s complete: %d retired, %d remaining (%s)",
		summary.Pass, formatParameter(summary.Parameter), summary.Retired,
		summary.Remaining, util.FormatDuration(summary.Elapsed.Seconds()))
}

func (r *LogReporter) Distribution(rows []DistributionRow) {
	for _, row := range rows {
		r.log.Info("distribution: %s on %d scenes (%.1f%%)",
			formatParameter(row.Parameter), row.Count, row.Percent)
	}
}

func (r *LogReporter) StatsBlock(block string) {
	for _, line := range strings.Split(strings.TrimRight(block, "\n"), "\n") {
		r.log.Info("%s", line)
	}
}

func (r *LogReporter) Warning(message string) {
	r.log.Warn("%s", message)
}

func (r *LogReporter) Error(err ReportError) {
	if err.Message != "" {
		r.log.Error("%s: %s", err.Title, err.Message)
		return
	}
	r.log.Error("%s", err.Title)
}

func (r *LogReporter) RunComplete(outcome RunOutcome) {
	r.log.Info("%s complete: %d scenes, %d passes, %s elapsed",
		outcome.Workflow, outcome.SceneCount, outcome.Passes,
		util.FormatDuration(outcome.Elapsed.Seconds()))
	if outcome.OriginalSize > 0 && outcome.FinalSize > 0 {
		r.log.Info("size: %s -> %s (%.1f%% reduction)",
			util.FormatBytes(outcome.OriginalSize), util.FormatBytes(outcome.FinalSize),
			util.CalculateSizeReduction(outcome.OriginalSize, outcome.FinalSize))
	}
}

func (r *LogReporter) Verbose(message string) {
	r.log.Debug("%s", message)
}
