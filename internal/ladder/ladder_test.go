package ladder

import (
	"math"
	"testing"
)

func assertValues(t *testing.T, got []float64, want []float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v values %v, want %v values %v", len(got), got, len(want), want)
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("value %d = %v, want %v (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestParseSingleValue(t *testing.T) {
	l, err := Parse("35", Descending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertValues(t, l.Values(), []float64{35})
}

func TestParseList(t *testing.T) {
	l, err := Parse("35,27.2,21", Descending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertValues(t, l.Values(), []float64{35, 27.2, 21})
}

func TestParseListAscending(t *testing.T) {
	l, err := Parse("18,21,24,27,30,33,35", Ascending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.First() != 18 || l.Last() != 35 {
		t.Errorf("first/last = %v/%v, want 18/35", l.First(), l.Last())
	}
}

func TestParseDescendingRange(t *testing.T) {
	l, err := Parse("25..21", Descending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertValues(t, l.Values(), []float64{25, 24, 23, 22, 21})
}

func TestParseAscendingRange(t *testing.T) {
	l, err := Parse("21..25", Ascending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertValues(t, l.Values(), []float64{21, 22, 23, 24, 25})
}

func TestParseSteppedRange(t *testing.T) {
	l, err := Parse("36..21:1.5", Descending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	values := l.Values()
	assertValues(t, values[:4], []float64{36, 34.5, 33, 31.5})
	if values[len(values)-1] != 21 {
		t.Errorf("last = %v, want 21", values[len(values)-1])
	}
}

// Fractional steps must not drift past the range end: ten steps of 0.1
// accumulated naively would miss the final value.
func TestSteppedRangeRounding(t *testing.T) {
	l, err := Parse("22..21:0.1", Descending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	values := l.Values()
	if len(values) != 11 {
		t.Fatalf("got %d values %v, want 11", len(values), values)
	}
	if values[10] != 21 {
		t.Errorf("final value = %v, want exactly 21", values[10])
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		spec string
		dir  Direction
	}{
		{"empty", "", Descending},
		{"garbage", "abc", Descending},
		{"inverted descending range", "21..36", Descending},
		{"inverted ascending range", "36..21", Ascending},
		{"zero step", "36..21:0", Descending},
		{"negative step", "36..21:-2", Descending},
		{"step without range", "36:2", Descending},
		{"out of domain high", "90", Descending},
		{"out of domain low", "35,0.5", Descending},
		{"non-descending list", "21,27,35", Descending},
		{"duplicate value", "35,35,21", Descending},
		{"non-ascending list", "35,21", Ascending},
		{"nan value", "NaN", Descending},
		{"trailing comma", "35,", Descending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(tt.spec, tt.dir); err == nil {
				t.Errorf("Parse(%q, %v) succeeded, want error", tt.spec, tt.dir)
			}
		})
	}
}

func TestParseProducesNoPartialResult(t *testing.T) {
	l, err := Parse("35,30,40", Descending)
	if err == nil {
		t.Fatal("expected error for non-descending list")
	}
	if l != nil {
		t.Errorf("expected nil ladder on error, got %v", l.Values())
	}
}

func TestNextAfter(t *testing.T) {
	asc, err := Parse("18,21,24,27,30,33,35", Ascending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		v      float64
		want   float64
		wantOK bool
	}{
		{21, 24, true}, // original value 21 starts its search at 24
		{20, 21, true}, // non-member values still find the next rung
		{35, 0, false}, // at the max, nothing past it
		{36, 0, false},
	}
	for _, tt := range tests {
		got, ok := asc.NextAfter(tt.v)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("NextAfter(%v) = (%v, %v), want (%v, %v)", tt.v, got, ok, tt.want, tt.wantOK)
		}
	}

	desc, err := Parse("35,30,27", Descending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, ok := desc.NextAfter(35); !ok || got != 30 {
		t.Errorf("NextAfter(35) = (%v, %v), want (30, true)", got, ok)
	}
}

func TestContains(t *testing.T) {
	l, err := Parse("35,30,27", Descending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.Contains(30) {
		t.Error("expected ladder to contain 30")
	}
	if l.Contains(29) {
		t.Error("ladder should not contain 29")
	}
}
