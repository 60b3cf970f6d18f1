// Package ladder parses and validates ordered candidate parameter sequences.
//
// The grammar covers four forms, all normalized to an explicit sequence:
//
//	35          single value
//	35,27.5,21  comma-separated list
//	35..21      range, default step 1
//	35..21:1.5  stepped range
//
// A ladder is parsed against a declared direction: descending for
// quality-boost searches (start at the lowest compression), ascending for
// size-dampen searches (retry at ever higher compression). The direction is
// validated at parse time; a violating sequence is an error, never a no-op.
package ladder

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/five82/taper/internal/errors"
)

// Direction declares the required monotonic order of a ladder.
type Direction int

const (
	// Descending orders values from weakest to strongest quality bias
	// (quality-boost searches walk down the compression strength).
	Descending Direction = iota
	// Ascending orders values from weakest to strongest compression
	// (size-dampen searches walk up the compression strength).
	Ascending
)

func (d Direction) String() string {
	if d == Ascending {
		return "ascending"
	}
	return "descending"
}

// Encoder parameter domain. Values outside fail at parse time.
const (
	DomainMin = 1.0
	DomainMax = 70.0
)

// stepScale rounds stepped-range values to 3 decimal places so repeated
// float subtraction cannot drift past the range end.
const stepScale = 1000.0

// Ladder is a validated, strictly monotonic sequence of candidate values.
type Ladder struct {
	values    []float64
	direction Direction
}

// Parse normalizes a ladder specification into an explicit sequence and
// validates it against the declared direction and the encoder domain.
func Parse(spec string, dir Direction) (*Ladder, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, errors.NewLadderError("empty ladder specification, expected value, list, range A..B, or stepped range A..B:STEP")
	}

	values, err := parseRawValues(spec, dir)
	if err != nil {
		return nil, err
	}

	if err := validateMonotonic(values, dir); err != nil {
		return nil, err
	}

	return &Ladder{values: values, direction: dir}, nil
}

func parseRawValues(spec string, dir Direction) ([]float64, error) {
	// Stepped range: A..B:STEP
	if rangePart, stepStr, ok := strings.Cut(spec, ":"); ok {
		startStr, endStr, isRange := strings.Cut(rangePart, "..")
		if !isRange {
			return nil, errors.NewLadderError(fmt.Sprintf("step %q given without a range, expected A..B:STEP", stepStr))
		}
		step, err := parseNumber(stepStr, "step value")
		if err != nil {
			return nil, err
		}
		if step <= 0 {
			return nil, errors.NewLadderError(fmt.Sprintf("step value must be positive (got %v)", step))
		}
		return expandRange(startStr, endStr, step, dir)
	}

	// Plain range: A..B
	if startStr, endStr, ok := strings.Cut(spec, ".."); ok {
		return expandRange(startStr, endStr, 1.0, dir)
	}

	// Comma-separated list or single value.
	parts := strings.Split(spec, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := parseNumber(part, "ladder value")
		if err != nil {
			return nil, err
		}
		if err := validateDomain(v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func expandRange(startStr, endStr string, step float64, dir Direction) ([]float64, error) {
	start, err := parseNumber(startStr, "range start")
	if err != nil {
		return nil, err
	}
	end, err := parseNumber(endStr, "range end")
	if err != nil {
		return nil, err
	}

	switch dir {
	case Descending:
		if start < end {
			return nil, errors.NewLadderError(fmt.Sprintf("descending range requires start >= end (got %v..%v)", start, end))
		}
	case Ascending:
		if start > end {
			return nil, errors.NewLadderError(fmt.Sprintf("ascending range requires start <= end (got %v..%v)", start, end))
		}
	}

	var values []float64
	current := start
	for {
		if dir == Descending && current < end {
			break
		}
		if dir == Ascending && current > end {
			break
		}
		if err := validateDomain(current); err != nil {
			return nil, err
		}
		values = append(values, current)

		if dir == Descending {
			current -= step
		} else {
			current += step
		}
		// Keep repeated float stepping from drifting.
		current = math.Round(current*stepScale) / stepScale
	}
	return values, nil
}

func parseNumber(s, what string) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.NewLadderError(fmt.Sprintf("invalid %s: %q", what, s))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.NewLadderError(fmt.Sprintf("invalid %s: %q is not a finite number", what, s))
	}
	return v, nil
}

func validateDomain(v float64) error {
	if v < DomainMin || v > DomainMax {
		return errors.NewLadderError(fmt.Sprintf("value must be between %v-%v (got %v)", DomainMin, DomainMax, v))
	}
	return nil
}

func validateMonotonic(values []float64, dir Direction) error {
	for i := 1; i < len(values); i++ {
		prev, next := values[i-1], values[i]
		if dir == Descending && next >= prev {
			return errors.NewLadderError(fmt.Sprintf("values must be strictly descending (got %v before %v)", prev, next))
		}
		if dir == Ascending && next <= prev {
			return errors.NewLadderError(fmt.Sprintf("values must be strictly ascending (got %v before %v)", prev, next))
		}
	}
	return nil
}

// Values returns a copy of the normalized sequence.
func (l *Ladder) Values() []float64 {
	out := make([]float64, len(l.values))
	copy(out, l.values)
	return out
}

// Direction returns the declared direction.
func (l *Ladder) Direction() Direction {
	return l.direction
}

// Len returns the number of candidate values.
func (l *Ladder) Len() int {
	return len(l.values)
}

// First returns the first candidate (the search's starting value).
func (l *Ladder) First() float64 {
	return l.values[0]
}

// Last returns the final candidate (the best-effort terminal value).
func (l *Ladder) Last() float64 {
	return l.values[len(l.values)-1]
}

// At returns the candidate at position i.
func (l *Ladder) At(i int) float64 {
	return l.values[i]
}

// Contains reports whether v is a member of the ladder.
func (l *Ladder) Contains(v float64) bool {
	for _, lv := range l.values {
		if lv == v {
			return true
		}
	}
	return false
}

// NextAfter returns the first candidate strictly past v in the ladder's
// direction, or false when no such candidate exists. v itself does not need
// to be a ladder member; dampen searches use this to start strictly past a
// scene's original value.
func (l *Ladder) NextAfter(v float64) (float64, bool) {
	for _, lv := range l.values {
		if l.direction == Ascending && lv > v {
			return lv, true
		}
		if l.direction == Descending && lv < v {
			return lv, true
		}
	}
	return 0, false
}
