package report

// CompositeReporter fans out events to multiple reporters.
type CompositeReporter struct {
	reporters []Reporter
}

// NewCompositeReporter creates a composite reporter.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return &CompositeReporter{reporters: reporters}
}

func (c *CompositeReporter) RunStarted(info RunInfo) {
	for _, r := range c.reporters {
		r.RunStarted(info)
	}
}

func (c *CompositeReporter) PassStarted(info PassInfo) {
	for _, r := range c.reporters {
		r.PassStarted(info)
	}
}

func (c *CompositeReporter) ScoringStarted(totalFrames int) {
	for _, r := range c.reporters {
		r.ScoringStarted(totalFrames)
	}
}

func (c *CompositeReporter) ScoringProgress(done, total int) {
	for _, r := range c.reporters {
		r.ScoringProgress(done, total)
	}
}

func (c *CompositeReporter) SceneRetired(result SceneResult) {
	for _, r := range c.reporters {
		r.SceneRetired(result)
	}
}

func (c *CompositeReporter) PassComplete(summary PassSummary) {
	for _, r := range c.reporters {
		r.PassComplete(summary)
	}
}

func (c *CompositeReporter) Distribution(rows []DistributionRow) {
	for _, r := range c.reporters {
		r.Distribution(rows)
	}
}

func (c *CompositeReporter) StatsBlock(block string) {
	for _, r := range c.reporters {
		r.StatsBlock(block)
	}
}

func (c *CompositeReporter) Warning(message string) {
	for _, r := range c.reporters {
		r.Warning(message)
	}
}

func (c *CompositeReporter) Error(err ReportError) {
	for _, r := range c.reporters {
		r.Error(err)
	}
}

func (c *CompositeReporter) RunComplete(outcome RunOutcome) {
	for _, r := range c.reporters {
		r.RunComplete(outcome)
	}
}

func (c *CompositeReporter) Verbose(message string) {
	for _, r := range c.reporters {
		r.Verbose(message)
	}
}
