package model

import "fmt"

// Music is the canonical in-memory score: one instance per source file,
// format-agnostic. Adapters build it, canon validates it, everything
// downstream treats it as read-only.
type Music struct {
	// Resolution is ticks per quarter note. Fixed once set.
	Resolution int

	// Tempos and TimeSignatures are tick-ordered, non-decreasing.
	// After canonicalization both have at least one entry.
	Tempos         []Tempo
	TimeSignatures []TimeSignature

	// Tracks keep the source file's track order.
	Tracks []Track

	// Beats is derived from Tempos/TimeSignatures/Resolution, never
	// authoritative. Recompute after any mutation.
	Beats []int64

	Report ValidationReport

	// Canonical is set by canon.Canonicalize. The metrics engine
	// refuses a Music without it.
	Canonical bool
}

type Tempo struct {
	Time int64
	BPM  float64
}

type TimeSignature struct {
	Time        int64
	Numerator   int
	Denominator int
}

type Track struct {
	Program int
	// IsDrum means Pitch values are percussion keys, not tonal
	// pitches. Pitch-class metrics exclude these tracks by default.
	IsDrum bool
	Name   string
	Notes  []Note
}

type Note struct {
	Time     int64
	Pitch    int
	Duration int64
	Velocity int
}

var pitchNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchName returns a display label like "A3". Display only, never a
// computation key.
func (n Note) PitchName() string {
	if n.Pitch < 0 || n.Pitch > 127 {
		return fmt.Sprintf("?%d", n.Pitch)
	}
	return fmt.Sprintf("%s%d", pitchNames[n.Pitch%12], n.Pitch/12-1)
}

// End returns the note's off tick.
func (n Note) End() int64 {
	return n.Time + n.Duration
}

// ActiveLength returns the largest note end tick across all tracks, 0
// for a score with no notes.
func (m *Music) ActiveLength() int64 {
	var max int64
	for _, tr := range m.Tracks {
		for _, n := range tr.Notes {
			if n.End() > max {
				max = n.End()
			}
		}
	}
	return max
}

// NumNotes counts notes across all tracks.
func (m *Music) NumNotes() int {
	var total int
	for _, tr := range m.Tracks {
		total += len(tr.Notes)
	}
	return total
}
