package stitch

import "fmt"

// SequenceOrderError reports an observation whose index did not strictly
// increase over the previous one.
type SequenceOrderError struct {
	Previous int
	Got      int
}

func (e *SequenceOrderError) Error() string {
	if e.Got < 0 {
		return fmt.Sprintf("stitch: negative frame index %d", e.Got)
	}
	if e.Got == e.Previous {
		return fmt.Sprintf("stitch: duplicate frame index %d", e.Got)
	}
	return fmt.Sprintf("stitch: frame index %d arrived after %d", e.Got, e.Previous)
}

// ConfigurationError reports an option outside its domain.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("stitch: invalid %s %v: %s", e.Field, e.Value, e.Reason)
}
