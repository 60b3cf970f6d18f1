package taper

import (
	"testing"
)

func TestNewWithDefaults(t *testing.T) {
	runner, err := New()
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if runner == nil {
		t.Fatal("New() returned nil runner")
	}
}

func TestNewAppliesOptions(t *testing.T) {
	runner, err := New(
		WithWorkDir("work"),
		WithQualityLadder("40,35,30"),
		WithTarget(85),
		WithFloor(60),
		WithSizeLadder("20,25,30"),
		WithThreshold("1 MiB"),
		WithMetricWorkers(4),
	)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	if got := runner.cfg.Quality.Target; got != 85 {
		t.Errorf("target = %v, want 85", got)
	}
	if got := runner.cfg.ThresholdBytes(); got != 1048576 {
		t.Errorf("threshold = %d bytes, want 1048576", got)
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"non-descending quality ladder", []Option{WithQualityLadder("20,30,25")}},
		{"non-ascending size ladder", []Option{WithSizeLadder("30,20")}},
		{"unparseable threshold", []Option{WithThreshold("lots")}},
		{"target out of range", []Option{WithTarget(150)}},
		{"negative floor", []Option{WithFloor(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.opts...); err == nil {
				t.Error("New() accepted invalid configuration")
			}
		})
	}
}
