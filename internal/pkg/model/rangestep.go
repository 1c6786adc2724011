package model

import (
	"errors"
	"fmt"
)

// ErrValidation is wrapped by every local validation failure: range, option
// membership and value type.
var ErrValidation = errors.New("validation failed")

type RangeError struct {
	Value int
	Range RangeStep
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("value %d is not valid for range [%d, %d] step %d", e.Value, e.Range.Min, e.Range.Max, e.Range.Step)
}

func (e *RangeError) Unwrap() error {
	return ErrValidation
}

// RangeStep is the (min, max, step) descriptor of a tunable numeric setting.
type RangeStep struct {
	Min  int `json:"min"`
	Max  int `json:"max"`
	Step int `json:"step"`
}

// NewRangeStep enforces min <= max and step >= 1.
func NewRangeStep(minimum, maximum, step int) (RangeStep, error) {
	if minimum > maximum {
		return RangeStep{}, fmt.Errorf("range minimum %d exceeds maximum %d: %w", minimum, maximum, ErrValidation)
	}
	if step < 1 {
		return RangeStep{}, fmt.Errorf("range step %d must be at least 1: %w", step, ErrValidation)
	}
	return RangeStep{Min: minimum, Max: maximum, Step: step}, nil
}

// Check accepts v iff Min <= v <= Max and v lands on a step boundary.
func (r RangeStep) Check(v int) error {
	step := r.Step
	if step < 1 {
		step = 1
	}
	if v < r.Min || v > r.Max || (v-r.Min)%step != 0 {
		return &RangeError{Value: v, Range: r}
	}
	return nil
}

// Values enumerates every valid value in ascending order.
func (r RangeStep) Values() []int {
	step := r.Step
	if step < 1 {
		step = 1
	}
	out := make([]int, 0, (r.Max-r.Min)/step+1)
	for v := r.Min; v <= r.Max; v += step {
		out = append(out, v)
	}
	return out
}

// Dimmer is the one range that also carries a live observed value.
type Dimmer struct {
	RangeStep
	Current int `json:"current"`
}

// DimmerSpecials labels values outside the plain numeric range.
var DimmerSpecials = map[int]string{
	-1: "auto",
}
