// Package beat derives beat and measure timelines from a score's
// time-signature metadata. Everything here is recomputable; nothing is
// authoritative input.
package beat

import "github.com/otnemrasordep/muspy/model"

// Measure is one bar's half-open tick interval [Start, End).
type Measure struct {
	Start int64
	End   int64
}

// horizon is the tick the grids run to: the later of the last
// signature start and the last note end.
func horizon(m *model.Music) int64 {
	h := m.ActiveLength()
	if len(m.TimeSignatures) > 0 {
		if last := m.TimeSignatures[len(m.TimeSignatures)-1].Time; last > h {
			h = last
		}
	}
	return h
}

// beatTicks is the beat spacing under one signature.
func beatTicks(resolution int, denominator int) int64 {
	t := int64(resolution) * 4 / int64(denominator)
	if t < 1 {
		t = 1
	}
	return t
}

// Extract returns the ordered beat tick positions for m. A score with
// no notes has zero musical duration and gets an empty grid. The
// output is strictly increasing.
func Extract(m *model.Music) []int64 {
	end := horizon(m)
	if end == 0 {
		return nil
	}

	signatures := m.TimeSignatures
	if len(signatures) == 0 {
		signatures = []model.TimeSignature{{Time: 0, Numerator: 4, Denominator: 4}}
	}

	var beats []int64
	for i, sig := range signatures {
		intervalEnd := end
		if i+1 < len(signatures) {
			intervalEnd = signatures[i+1].Time
		}
		step := beatTicks(m.Resolution, sig.Denominator)
		for t := sig.Time; t < intervalEnd; t += step {
			if len(beats) > 0 && t <= beats[len(beats)-1] {
				continue
			}
			beats = append(beats, t)
		}
	}
	return beats
}

// Measures returns the bar intervals for m, grouped by each
// signature's numerator, running to the same horizon as Extract.
func Measures(m *model.Music) []Measure {
	end := horizon(m)
	if end == 0 {
		return nil
	}

	signatures := m.TimeSignatures
	if len(signatures) == 0 {
		signatures = []model.TimeSignature{{Time: 0, Numerator: 4, Denominator: 4}}
	}

	var measures []Measure
	for i, sig := range signatures {
		intervalEnd := end
		if i+1 < len(signatures) {
			intervalEnd = signatures[i+1].Time
		}
		step := beatTicks(m.Resolution, sig.Denominator) * int64(sig.Numerator)
		for t := sig.Time; t < intervalEnd; t += step {
			stop := t + step
			if stop > intervalEnd {
				stop = intervalEnd
			}
			if len(measures) > 0 && t < measures[len(measures)-1].End {
				continue
			}
			measures = append(measures, Measure{Start: t, End: stop})
		}
	}
	return measures
}
