package model

import "fmt"

// FormatError means the raw bytes do not parse as the declared format
// at all. Fatal for the one file, never for the batch.
type FormatError struct {
	Format string
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("not a valid %v file: %v", e.Format, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// MalformedScoreError means a parsed score violates a hard structural
// invariant (non-monotonic tempo/meter ticks, resolution <= 0). Fatal
// for the one file.
type MalformedScoreError struct {
	Reason string
}

func (e *MalformedScoreError) Error() string {
	return "malformed score: " + e.Reason
}
