// Package stats provides aggregation helpers for per-frame quality scores.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// FrameScore is a single per-frame quality measurement.
type FrameScore struct {
	Frame int     `json:"frame"`
	Score float64 `json:"score"`
}

// Mean returns the arithmetic mean of the scores, or 0 for an empty set.
func Mean(scores []FrameScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s.Score
	}
	return sum / float64(len(scores))
}

// Min returns the lowest score, or 0 for an empty set.
func Min(scores []FrameScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	lowest := scores[0].Score
	for _, s := range scores[1:] {
		if s.Score < lowest {
			lowest = s.Score
		}
	}
	return lowest
}

// Percentile returns the value at the given percentile (e.g. 50 for the
// median) using linear interpolation between ranks. Returns 0 for an empty
// set. p is clamped to [0,100]; a NaN percentile selects the minimum.
func Percentile(scores []FrameScore, p float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	if math.IsNaN(p) || p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}

	values := make([]float64, len(scores))
	for i, s := range scores {
		values[i] = s.Score
	}
	sort.Float64s(values)

	rank := (p / 100.0) * float64(len(values)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return values[lower]
	}
	weight := rank - float64(lower)
	return values[lower]*(1-weight) + values[upper]*weight
}

// Variance returns the population variance of the scores.
func Variance(scores []FrameScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	mean := Mean(scores)
	var sum float64
	for _, s := range scores {
		d := s.Score - mean
		sum += d * d
	}
	return sum / float64(len(scores))
}

// StdDev returns the population standard deviation of the scores.
func StdDev(scores []FrameScore) float64 {
	return math.Sqrt(Variance(scores))
}

// Mode is the most frequent integer-rounded score value.
type Mode struct {
	Value int
	Count int
}

// ComputeMode returns the mode of the integer-rounded scores.
func ComputeMode(scores []FrameScore) (Mode, error) {
	if len(scores) == 0 {
		return Mode{}, fmt.Errorf("no scores to compute mode from")
	}

	freq := make(map[int]int)
	for _, s := range scores {
		freq[int(math.Round(s.Score))]++
	}

	mode := Mode{Count: -1}
	for value, count := range freq {
		if count > mode.Count || (count == mode.Count && value < mode.Value) {
			mode = Mode{Value: value, Count: count}
		}
	}
	return mode, nil
}

// percentileRanks is the fixed set of percentile rows in a summary block.
var percentileRanks = []int{0, 5, 10, 20, 25, 50, 75, 80, 90, 95, 100}

// PercentileRow is one row of the fixed percentile table.
type PercentileRow struct {
	N     int
	Score FrameScore
}

// Percentiles returns the fixed percentile table using nearest-rank lookup,
// keeping the frame number of the selected measurement.
func Percentiles(scores []FrameScore) ([]PercentileRow, error) {
	if len(scores) == 0 {
		return nil, fmt.Errorf("no scores to compute percentiles from")
	}

	sorted := make([]FrameScore, len(scores))
	copy(sorted, scores)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score < sorted[j].Score })

	rows := make([]PercentileRow, 0, len(percentileRanks))
	for _, p := range percentileRanks {
		rank := int(math.Round(float64(p) / 100.0 * float64(len(sorted)-1)))
		if rank > len(sorted)-1 {
			rank = len(sorted) - 1
		}
		rows = append(rows, PercentileRow{N: p, Score: sorted[rank]})
	}
	return rows, nil
}

// Summary is a formatted statistics block over a score set.
type Summary struct {
	Mean        float64
	StdDev      float64
	Mode        Mode
	Percentiles []PercentileRow
}

// Summarize computes the full statistics block for a score set.
func Summarize(scores []FrameScore) (Summary, error) {
	mode, err := ComputeMode(scores)
	if err != nil {
		return Summary{}, err
	}
	rows, err := Percentiles(scores)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Mean:        Mean(scores),
		StdDev:      StdDev(scores),
		Mode:        mode,
		Percentiles: rows,
	}, nil
}

// String renders the summary in the fixed-width report format.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[STATS]\n")
	fmt.Fprintf(&b, "Mean: %.4f\n", s.Mean)
	fmt.Fprintf(&b, "Standard Deviation: %.4f\n", s.StdDev)
	fmt.Fprintf(&b, "Mode: %d, count: %d\n", s.Mode.Value, s.Mode.Count)
	fmt.Fprintf(&b, "Percentiles:\n")
	for _, row := range s.Percentiles {
		fmt.Fprintf(&b, "%03d percentile: Frame:%06d, Score:%.4f\n", row.N, row.Score.Frame, row.Score.Score)
	}
	return b.String()
}

// SortByFrame sorts scores in place by frame number.
// Aggregation must not depend on worker completion order.
func SortByFrame(scores []FrameScore) {
	sort.Slice(scores, func(i, j int) bool { return scores[i].Frame < scores[j].Frame })
}
