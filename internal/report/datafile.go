package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DataScene is one scene's line in the per-scene result report.
type DataScene struct {
	Index      int
	Parameter  float64
	StartFrame int
	EndFrame   int
	MeanScore  float64
	SizeBytes  uint64
}

// WriteDataFile writes the plain-text run report: an [INFO] header with the
// video name and parameter distribution, then one [DATA] line per scene.
func WriteDataFile(path, video string, dist []DistributionRow, scenes []DataScene) error {
	var b strings.Builder

	b.WriteString("[INFO]\n")
	fmt.Fprintf(&b, "Video: %s\n", filepath.Base(video))

	parts := make([]string, 0, len(dist))
	for _, row := range dist {
		parts = append(parts, fmt.Sprintf("%s: %.2f%%", formatParameter(row.Parameter), row.Percent))
	}
	fmt.Fprintf(&b, "Distribution: %s\n\n", strings.Join(parts, ", "))

	b.WriteString("[DATA]\n")
	for _, s := range scenes {
		fmt.Fprintf(&b, "scene: %4d, parameter: %7s, frame-range: %6d %6d",
			s.Index, formatParameter(s.Parameter), s.StartFrame, s.EndFrame)
		if s.MeanScore != 0 {
			fmt.Fprintf(&b, ", mean-score: %6.2f", s.MeanScore)
		}
		if s.SizeBytes != 0 {
			fmt.Fprintf(&b, ", size-bytes: %10d", s.SizeBytes)
		}
		b.WriteString("\n")
	}

	return os.WriteFile(path, []byte(b.String()), 0o644)
}
