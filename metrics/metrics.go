// Package metrics is a library of pure statistical functions over a
// canonical score. Every metric is independent, deterministic, and
// safe on empty input: "no data in scope" yields NaN (distinguishable
// from a legitimate 0), counting metrics yield 0. Entropies use the
// natural log, so pitch-class entropy lives in [0, ln 12].
package metrics

import (
	"math"
	"sort"

	"github.com/otnemrasordep/muspy/beat"
	"github.com/otnemrasordep/muspy/constants"
	"github.com/otnemrasordep/muspy/model"
	"gonum.org/v1/gonum/stat"
)

// Scope selects which notes a metric sees. The zero value means
// "whole score, no drums"; rhythm metrics pass IncludeDrums
// explicitly. Track -1 (or AllTracks) covers the whole score.
type Scope struct {
	IncludeDrums bool
	Track        int
}

const AllTracks = -1

// WholeScore is the default scope for pitch-based metrics.
var WholeScore = Scope{IncludeDrums: false, Track: AllTracks}

// WithDrums is the default scope for density/rhythm metrics.
var WithDrums = Scope{IncludeDrums: true, Track: AllTracks}

// Func is a registered metric: a canonical Music in, a scalar out.
type Func func(m *model.Music) float64

// Registry maps metric names to their documented-default-scope
// implementations.
var Registry = map[string]Func{
	"pitch_class_entropy": func(m *model.Music) float64 { return PitchClassEntropy(m, WholeScore) },
	"pitch_entropy":       func(m *model.Music) float64 { return PitchEntropy(m, WholeScore) },
	"n_pitches_used":      func(m *model.Music) float64 { return NPitchesUsed(m, WholeScore) },
	"pitch_range":         func(m *model.Music) float64 { return PitchRange(m, WholeScore) },
	"polyphony":           func(m *model.Music) float64 { return Polyphony(m, WithDrums) },
	"polyphony_rate":      func(m *model.Music) float64 { return PolyphonyRate(m, WithDrums) },
	"note_density":        func(m *model.Music) float64 { return NoteDensity(m, WithDrums) },
	"empty_beat_rate":     func(m *model.Music) float64 { return EmptyBeatRate(m, WithDrums) },
	"groove_consistency":  func(m *model.Music) float64 { return GrooveConsistency(m, WithDrums) },
}

// Names returns the registry's metric names, sorted.
func Names() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PerTrack evaluates f once per track and returns track index → value.
func PerTrack(m *model.Music, f func(m *model.Music, s Scope) float64, includeDrums bool) map[int]float64 {
	res := make(map[int]float64, len(m.Tracks))
	for i := range m.Tracks {
		res[i] = f(m, Scope{IncludeDrums: includeDrums, Track: i})
	}
	return res
}

// mustCanonical guards the engine's contract: metrics only accept a
// Music that went through canon.Canonicalize. Anything else is a
// programming error, not a data-quality problem.
func mustCanonical(m *model.Music) {
	if !m.Canonical {
		panic("metrics: Music was not canonicalized")
	}
}

// eachNote visits every note in scope in track order.
func eachNote(m *model.Music, s Scope, visit func(tr *model.Track, n model.Note)) {
	for ti := range m.Tracks {
		tr := &m.Tracks[ti]
		if s.Track != AllTracks && s.Track != ti {
			continue
		}
		if tr.IsDrum && !s.IncludeDrums {
			continue
		}
		for _, n := range tr.Notes {
			visit(tr, n)
		}
	}
}

// PitchClassHistogram bins pitch mod 12 over the non-drum notes in
// scope (drums included only when the scope says so). Notes outside
// 0..127 are skipped: they carry no defined pitch class and are
// already flagged by the validator.
func PitchClassHistogram(m *model.Music, s Scope) [12]float64 {
	mustCanonical(m)
	var hist [12]float64
	eachNote(m, s, func(tr *model.Track, n model.Note) {
		if n.Pitch < 0 || n.Pitch > 127 {
			return
		}
		hist[n.Pitch%12]++
	})
	return hist
}

// entropy computes the base-e Shannon entropy of a count histogram.
// NaN when the histogram is empty.
func entropy(counts []float64) float64 {
	var total float64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return math.NaN()
	}
	p := make([]float64, len(counts))
	for i, c := range counts {
		p[i] = c / total
	}
	return stat.Entropy(p)
}

// PitchClassEntropy is the Shannon entropy (base e) of the normalized
// pitch-class histogram. Bounds: 0 (single pitch class) to ln 12
// (uniform). NaN when no tonal notes are in scope.
func PitchClassEntropy(m *model.Music, s Scope) float64 {
	hist := PitchClassHistogram(m, s)
	return entropy(hist[:])
}

// PitchEntropy is the Shannon entropy (base e) over the full 128-bin
// pitch histogram. NaN when no tonal notes are in scope.
func PitchEntropy(m *model.Music, s Scope) float64 {
	mustCanonical(m)
	hist := make([]float64, 128)
	eachNote(m, s, func(tr *model.Track, n model.Note) {
		if n.Pitch < 0 || n.Pitch > 127 {
			return
		}
		hist[n.Pitch]++
	})
	return entropy(hist)
}

// NPitchesUsed counts distinct tonal pitches in scope. Empty scope is
// genuinely zero pitches, so the empty result is 0, not NaN.
func NPitchesUsed(m *model.Music, s Scope) float64 {
	mustCanonical(m)
	seen := make(map[int]bool)
	eachNote(m, s, func(tr *model.Track, n model.Note) {
		if n.Pitch < 0 || n.Pitch > 127 {
			return
		}
		seen[n.Pitch] = true
	})
	return float64(len(seen))
}

// PitchRange is the highest minus the lowest tonal pitch in scope.
// NaN when no tonal notes are in scope.
func PitchRange(m *model.Music, s Scope) float64 {
	mustCanonical(m)
	lo, hi := 128, -1
	eachNote(m, s, func(tr *model.Track, n model.Note) {
		if n.Pitch < 0 || n.Pitch > 127 {
			return
		}
		if n.Pitch < lo {
			lo = n.Pitch
		}
		if n.Pitch > hi {
			hi = n.Pitch
		}
	})
	if hi < 0 {
		return math.NaN()
	}
	return float64(hi - lo)
}

// concurrencySpans sweeps note on/off boundaries and reports, per
// span, how many notes sound and for how many ticks.
func concurrencySpans(m *model.Music, s Scope, visit func(active int, ticks int64)) {
	type boundary struct {
		tick  int64
		delta int
	}
	var bounds []boundary
	eachNote(m, s, func(tr *model.Track, n model.Note) {
		if n.Duration <= 0 {
			return
		}
		bounds = append(bounds, boundary{n.Time, +1}, boundary{n.End(), -1})
	})
	if len(bounds) == 0 {
		return
	}
	sort.Slice(bounds, func(i, j int) bool {
		if bounds[i].tick != bounds[j].tick {
			return bounds[i].tick < bounds[j].tick
		}
		return bounds[i].delta < bounds[j].delta
	})

	active := 0
	prev := bounds[0].tick
	for _, b := range bounds {
		if b.tick > prev {
			visit(active, b.tick-prev)
			prev = b.tick
		}
		active += b.delta
	}
}

// Polyphony is the time-weighted mean number of concurrently sounding
// notes, over the ticks where at least one note sounds. NaN when
// nothing sounds (no notes in scope, or only zero-duration notes).
func Polyphony(m *model.Music, s Scope) float64 {
	mustCanonical(m)
	var weighted float64
	var sounding int64
	concurrencySpans(m, s, func(active int, ticks int64) {
		if active > 0 {
			weighted += float64(active) * float64(ticks)
			sounding += ticks
		}
	})
	if sounding == 0 {
		return math.NaN()
	}
	return weighted / float64(sounding)
}

// PolyphonyRate is the fraction of sounding time with at least two
// concurrent notes. NaN when nothing sounds.
func PolyphonyRate(m *model.Music, s Scope) float64 {
	mustCanonical(m)
	var poly, sounding int64
	concurrencySpans(m, s, func(active int, ticks int64) {
		if active > 0 {
			sounding += ticks
		}
		if active >= 2 {
			poly += ticks
		}
	})
	if sounding == 0 {
		return math.NaN()
	}
	return float64(poly) / float64(sounding)
}

// NoteDensity is note onsets per beat. NaN when the beat grid is
// empty.
func NoteDensity(m *model.Music, s Scope) float64 {
	mustCanonical(m)
	if len(m.Beats) == 0 {
		return math.NaN()
	}
	var count int
	eachNote(m, s, func(tr *model.Track, n model.Note) {
		count++
	})
	return float64(count) / float64(len(m.Beats))
}

// EmptyBeatRate is the fraction of beats whose interval [bᵢ, bᵢ₊₁)
// contains no note onset; the last beat's interval runs to the score
// horizon. NaN when the beat grid is empty.
func EmptyBeatRate(m *model.Music, s Scope) float64 {
	mustCanonical(m)
	beats := m.Beats
	if len(beats) == 0 {
		return math.NaN()
	}

	var onsets []int64
	eachNote(m, s, func(tr *model.Track, n model.Note) {
		onsets = append(onsets, n.Time)
	})
	sort.Slice(onsets, func(i, j int) bool { return onsets[i] < onsets[j] })

	empty := 0
	oi := 0
	for bi, start := range beats {
		end := int64(math.MaxInt64)
		if bi+1 < len(beats) {
			end = beats[bi+1]
		}
		for oi < len(onsets) && onsets[oi] < start {
			oi++
		}
		if oi >= len(onsets) || onsets[oi] >= end {
			empty++
		}
	}
	return float64(empty) / float64(len(beats))
}

// GrooveConsistency is 1 minus the mean normalized Hamming distance
// between the onset bitmaps of consecutive measures, each measure
// quantized to a fixed cell count. 1 means every bar shares one
// rhythmic pattern. NaN with fewer than two measures or no onsets.
func GrooveConsistency(m *model.Music, s Scope) float64 {
	mustCanonical(m)
	measures := beat.Measures(m)
	if len(measures) < 2 {
		return math.NaN()
	}

	cells := constants.GrooveResolution
	bitmaps := make([][]bool, len(measures))
	for i := range bitmaps {
		bitmaps[i] = make([]bool, cells)
	}

	any := false
	eachNote(m, s, func(tr *model.Track, n model.Note) {
		mi := sort.Search(len(measures), func(i int) bool { return measures[i].End > n.Time })
		if mi >= len(measures) || n.Time < measures[mi].Start {
			return
		}
		width := measures[mi].End - measures[mi].Start
		if width <= 0 {
			return
		}
		cell := int((n.Time - measures[mi].Start) * int64(cells) / width)
		if cell >= cells {
			cell = cells - 1
		}
		bitmaps[mi][cell] = true
		any = true
	})
	if !any {
		return math.NaN()
	}

	distances := make([]float64, 0, len(measures)-1)
	for i := 1; i < len(measures); i++ {
		hamming := 0
		for c := 0; c < cells; c++ {
			if bitmaps[i-1][c] != bitmaps[i][c] {
				hamming++
			}
		}
		distances = append(distances, float64(hamming)/float64(cells))
	}
	return 1 - stat.Mean(distances, nil)
}
