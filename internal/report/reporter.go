package report

// Reporter defines the interface for run progress reporting.
type Reporter interface {
	RunStarted(info RunInfo)
	PassStarted(info PassInfo)
	ScoringStarted(totalFrames int)
	ScoringProgress(done, total int)
	SceneRetired(result SceneResult)
	PassComplete(summary PassSummary)
	Distribution(rows []DistributionRow)
	StatsBlock(block string)
	Warning(message string)
	Error(err ReportError)
	RunComplete(outcome RunOutcome)
	Verbose(message string)
}

// NullReporter is a no-op reporter that discards all updates.
type NullReporter struct{}

func (NullReporter) RunStarted(RunInfo)             {}
func (NullReporter) PassStarted(PassInfo)           {}
func (NullReporter) ScoringStarted(int)             {}
func (NullReporter) ScoringProgress(int, int)       {}
func (NullReporter) SceneRetired(SceneResult)       {}
func (NullReporter) PassComplete(PassSummary)       {}
func (NullReporter) Distribution([]DistributionRow) {}
func (NullReporter) StatsBlock(string)              {}
func (NullReporter) Warning(string)                 {}
func (NullReporter) Error(ReportError)              {}
func (NullReporter) RunComplete(RunOutcome)         {}
func (NullReporter) Verbose(string)                 {}
