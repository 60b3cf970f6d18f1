// Package util provides utility functions for formatting and common operations.
package util

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

const (
	KiB = 1024
	MiB = KiB * 1024
	GiB = MiB * 1024
)

// FormatBytes formats bytes with binary units (B, KiB, MiB, GiB).
func FormatBytes(bytes uint64) string {
	return humanize.IBytes(bytes)
}

// ParseBytes parses a human-entered size such as "2.5 MiB" or "900KB"
// into a byte count.
func ParseBytes(s string) (uint64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return n, nil
}

// FormatDuration formats seconds as HH:MM:SS.
func FormatDuration(seconds float64) string {
	if seconds < 0 || seconds != seconds { // NaN check
		return "??:??:??"
	}

	totalSecs := int64(seconds)
	hours := totalSecs / 3600
	minutes := (totalSecs % 3600) / 60
	secs := totalSecs % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
}

// FormatDurationFromSecs formats seconds as HH:MM:SS from an int64.
func FormatDurationFromSecs(secs int64) string {
	hours := secs / 3600
	minutes := (secs % 3600) / 60
	seconds := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// CalculateSizeReduction calculates the percentage size reduction.
// Returns positive values for size reduction, negative for size increase.
func CalculateSizeReduction(inputSize, outputSize uint64) float64 {
	if inputSize == 0 {
		return 0
	}
	return (float64(inputSize) - float64(outputSize)) / float64(inputSize) * 100
}
