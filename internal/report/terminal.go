package report

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/schollz/progressbar/v3"

	"github.com/five82/taper/internal/util"
)

// TerminalReporter outputs human-friendly text to the terminal.
type TerminalReporter struct {
	mu       sync.Mutex
	progress *progressbar.ProgressBar
	verbose  bool

	cyan    *color.Color
	green   *color.Color
	yellow  *color.Color
	red     *color.Color
	magenta *color.Color
	bold    *color.Color
}

// NewTerminalReporter creates a new terminal reporter. When verbose is false,
// Verbose messages are dropped.
func NewTerminalReporter(verbose bool) *TerminalReporter {
	return &TerminalReporter{
		verbose: verbose,
		cyan:    color.New(color.FgCyan, color.Bold),
		green:   color.New(color.FgGreen),
		yellow:  color.New(color.FgYellow, color.Bold),
		red:     color.New(color.FgRed, color.Bold),
		magenta: color.New(color.FgMagenta),
		bold:    color.New(color.Bold),
	}
}

// printLabel prints a bold label with fixed width padding followed by a value.
// Width is applied to the plain text before styling to keep alignment.
func (r *TerminalReporter) printLabel(width int, label, value string) {
	paddedLabel := fmt.Sprintf("%-*s", width, label)
	fmt.Printf("  %s %s\n", r.bold.Sprint(paddedLabel), value)
}

func (r *TerminalReporter) RunStarted(info RunInfo) {
	fmt.Println()
	_, _ = r.cyan.Println(strings.ToUpper(info.Workflow))
	const w = 9
	r.printLabel(w, "Run:", info.RunID)
	r.printLabel(w, "Workdir:", info.WorkDir)
	r.printLabel(w, "Scenes:", fmt.Sprintf("%d (%d frames)", info.SceneCount, info.TotalFrames))
	r.printLabel(w, "Ladder:", formatLadder(info.Ladder))
	r.printLabel(w, "Goal:", info.Goal)
}

func (r *TerminalReporter) PassStarted(info PassInfo) {
	r.finishProgress()
	fmt.Println()
	_, _ = r.cyan.Printf("PASS %d\n", info.Pass)
	fmt.Printf("  %s trying %s on %d scenes (%d probe frames/scene)\n",
		r.magenta.Sprint("›"), formatParameter(info.Parameter), info.ActiveScenes, info.ProbeFrames)
}

func (r *TerminalReporter) ScoringStarted(totalFrames int) {
	r.finishProgress()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = progressbar.NewOptions(
		totalFrames,
		progressbar.OptionSetDescription("scoring"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) ScoringProgress(done, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Set(done)
	}
}

func (r *TerminalReporter) SceneRetired(result SceneResult) {
	r.finishProgress()
	detail := ""
	switch {
	case result.Score > 0:
		detail = fmt.Sprintf("score %.2f", result.Score)
	case result.SizeBytes > 0:
		detail = util.FormatBytes(result.SizeBytes)
	}
	if detail != "" {
		detail = " (" + detail + ")"
	}
	fmt.Printf("  %s scene %d settled at %s%s: %s\n",
		r.green.Sprint("✓"), result.Index, formatParameter(result.Parameter), detail, result.Reason)
}

func (r *TerminalReporter) PassComplete(summary PassSummary) {
	r.finishProgress()
	fmt.Printf("  %s pass %d at %s: %d retired, %d remaining [%s]\n",
		r.magenta.Sprint("›"), summary.Pass, formatParameter(summary.Parameter),
		summary.Retired, summary.Remaining, util.FormatDuration(summary.Elapsed.Seconds()))
}

func (r *TerminalReporter) Distribution(rows []DistributionRow) {
	r.finishProgress()
	if len(rows) == 0 {
		return
	}
	fmt.Println()
	_, _ = r.cyan.Println("DISTRIBUTION")
	headers := []string{"Parameter", "Scenes", "Share"}
	body := make([][]string, 0, len(rows))
	for _, row := range rows {
		body = append(body, []string{
			formatParameter(row.Parameter),
			fmt.Sprintf("%d", row.Count),
			fmt.Sprintf("%.1f%%", row.Percent),
		})
	}
	fmt.Println(renderTable(headers, body, []text.Align{text.AlignRight, text.AlignRight, text.AlignRight}))
}

func (r *TerminalReporter) StatsBlock(block string) {
	r.finishProgress()
	fmt.Println()
	for _, line := range strings.Split(strings.TrimRight(block, "\n"), "\n") {
		fmt.Printf("  %s\n", line)
	}
}

func (r *TerminalReporter) Warning(message string) {
	r.finishProgress()
	fmt.Printf("  %s %s\n", r.yellow.Sprint("⚠"), message)
}

func (r *TerminalReporter) Error(err ReportError) {
	r.finishProgress()
	fmt.Println()
	_, _ = r.red.Printf("ERROR: %s\n", err.Title)
	if err.Message != "" {
		fmt.Printf("  %s\n", err.Message)
	}
	if err.Suggestion != "" {
		fmt.Printf("  %s %s\n", r.bold.Sprint("Suggestion:"), err.Suggestion)
	}
}

func (r *TerminalReporter) RunComplete(outcome RunOutcome) {
	r.finishProgress()
	fmt.Println()
	_, _ = r.cyan.Println("COMPLETE")
	const w = 10
	r.printLabel(w, "Workflow:", outcome.Workflow)
	r.printLabel(w, "Scenes:", fmt.Sprintf("%d", outcome.SceneCount))
	r.printLabel(w, "Passes:", fmt.Sprintf("%d", outcome.Passes))
	r.printLabel(w, "Elapsed:", util.FormatDuration(outcome.Elapsed.Seconds()))
	if outcome.OriginalSize > 0 && outcome.FinalSize > 0 {
		r.printLabel(w, "Size:", fmt.Sprintf("%s → %s (%.1f%% reduction)",
			util.FormatBytes(outcome.OriginalSize),
			util.FormatBytes(outcome.FinalSize),
			util.CalculateSizeReduction(outcome.OriginalSize, outcome.FinalSize)))
	}
	if outcome.DataFile != "" {
		r.printLabel(w, "Report:", outcome.DataFile)
	}
}

func (r *TerminalReporter) Verbose(message string) {
	if !r.verbose {
		return
	}
	fmt.Printf("  %s\n", color.New(color.Faint).Sprint(message))
}

func (r *TerminalReporter) finishProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != nil {
		_ = r.progress.Finish()
		r.progress = nil
	}
}

func formatParameter(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}

func formatLadder(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatParameter(v)
	}
	return strings.Join(parts, ", ")
}

func renderTable(headers []string, rows [][]string, aligns []text.Align) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		align := text.AlignLeft
		if i < len(aligns) {
			align = aligns[i]
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
