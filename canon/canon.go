// Package canon turns an adapter's raw Music into the canonical form
// the metrics engine requires: structurally verified, sorted,
// deduplicated, with a complete ValidationReport attached.
package canon

import (
	"fmt"
	"sort"

	"github.com/otnemrasordep/muspy/constants"
	"github.com/otnemrasordep/muspy/model"
)

type Options struct {
	// TargetResolution rescales all ticks to this resolution when > 0.
	// 0 keeps the source resolution.
	TargetResolution int
}

// Canonicalize validates m in place and returns it. The caller must
// treat the input as consumed. Every step is idempotent: running
// Canonicalize on its own output changes nothing and adds no warnings.
// Options bind at the first call; an already canonical Music comes
// back untouched, whatever opts says.
func Canonicalize(m *model.Music, opts Options) (*model.Music, error) {
	if m.Canonical {
		return m, nil
	}
	if err := checkStructure(m); err != nil {
		return nil, err
	}

	if len(m.Tempos) == 0 {
		m.Tempos = []model.Tempo{{Time: 0, BPM: constants.DefaultBPM}}
	}
	if len(m.TimeSignatures) == 0 {
		m.TimeSignatures = []model.TimeSignature{{Time: 0, Numerator: 4, Denominator: 4}}
	}

	if opts.TargetResolution > 0 && opts.TargetResolution != m.Resolution {
		adjustResolution(m, opts.TargetResolution)
	}

	for i := range m.Tracks {
		sortNotes(m.Tracks[i].Notes)
		m.Tracks[i].Notes = dedupNotes(m, i, m.Tracks[i].Notes)
		flagRanges(m, i, m.Tracks[i].Notes)
	}

	m.Beats = nil
	m.Canonical = true
	return m, nil
}

func checkStructure(m *model.Music) error {
	if m.Resolution <= 0 {
		return &model.MalformedScoreError{Reason: fmt.Sprintf("resolution must be positive, got %v", m.Resolution)}
	}
	for i, t := range m.Tempos {
		if t.Time < 0 {
			return &model.MalformedScoreError{Reason: fmt.Sprintf("tempo %v has negative tick %v", i, t.Time)}
		}
		if i > 0 && t.Time < m.Tempos[i-1].Time {
			return &model.MalformedScoreError{Reason: fmt.Sprintf("tempo ticks decrease at entry %v", i)}
		}
	}
	for i, ts := range m.TimeSignatures {
		if ts.Time < 0 {
			return &model.MalformedScoreError{Reason: fmt.Sprintf("time signature %v has negative tick %v", i, ts.Time)}
		}
		if ts.Numerator <= 0 || ts.Denominator <= 0 {
			return &model.MalformedScoreError{Reason: fmt.Sprintf("time signature %v is %v/%v", i, ts.Numerator, ts.Denominator)}
		}
		if i > 0 && ts.Time < m.TimeSignatures[i-1].Time {
			return &model.MalformedScoreError{Reason: fmt.Sprintf("time signature ticks decrease at entry %v", i)}
		}
	}
	for ti, tr := range m.Tracks {
		for ni, n := range tr.Notes {
			if n.Time < 0 {
				return &model.MalformedScoreError{Reason: fmt.Sprintf("track %v note %v has negative onset %v", ti, ni, n.Time)}
			}
		}
	}
	return nil
}

// sortNotes applies the canonical order: onset asc, pitch asc, input
// order for exact ties. The stable sort carries the input order.
func sortNotes(notes []model.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Time != notes[j].Time {
			return notes[i].Time < notes[j].Time
		}
		return notes[i].Pitch < notes[j].Pitch
	})
}

// dedupNotes removes bit-identical (time, pitch, duration, velocity)
// repeats, a known double-conversion artifact. Near-duplicates are
// deliberately left alone: without ground truth a merge would destroy
// data, so they stay visible to the metrics.
func dedupNotes(m *model.Music, trackIdx int, notes []model.Note) []model.Note {
	if len(notes) < 2 {
		return notes
	}
	out := notes[:1]
	dropped := 0
	for _, n := range notes[1:] {
		if n == out[len(out)-1] {
			dropped++
			continue
		}
		out = append(out, n)
	}
	if dropped > 0 {
		m.Report.Add(model.WarnDuplicateNote, trackIdx, -1,
			fmt.Sprintf("removed %v exact duplicate notes", dropped))
	}
	return out
}

// flagRanges records out-of-nominal-range values without clamping
// them. Metrics document their own handling instead.
func flagRanges(m *model.Music, trackIdx int, notes []model.Note) {
	for ni, n := range notes {
		if n.Duration <= 0 {
			m.Report.Add(model.WarnZeroDuration, trackIdx, ni,
				fmt.Sprintf("note %v at tick %v has duration %v", n.PitchName(), n.Time, n.Duration))
		}
		if n.Pitch < 0 || n.Pitch > 127 {
			m.Report.Add(model.WarnPitchOutOfRange, trackIdx, ni,
				fmt.Sprintf("pitch %v outside 0..127", n.Pitch))
		}
		if n.Velocity < 0 || n.Velocity > 127 {
			m.Report.Add(model.WarnVelocityRange, trackIdx, ni,
				fmt.Sprintf("velocity %v outside 0..127", n.Velocity))
		}
	}
}

// adjustResolution rescales every tick-valued field, rounding to the
// nearest tick.
func adjustResolution(m *model.Music, target int) {
	scale := func(t int64) int64 {
		return (t*int64(target) + int64(m.Resolution)/2) / int64(m.Resolution)
	}
	for i := range m.Tempos {
		m.Tempos[i].Time = scale(m.Tempos[i].Time)
	}
	for i := range m.TimeSignatures {
		m.TimeSignatures[i].Time = scale(m.TimeSignatures[i].Time)
	}
	for ti := range m.Tracks {
		for ni := range m.Tracks[ti].Notes {
			n := &m.Tracks[ti].Notes[ni]
			end := scale(n.End())
			n.Time = scale(n.Time)
			n.Duration = end - n.Time
		}
	}
	m.Resolution = target
}
