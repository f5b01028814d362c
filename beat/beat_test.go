package beat

import (
	"testing"

	"github.com/otnemrasordep/muspy/model"
	"github.com/stretchr/testify/assert"
)

func withNotes(resolution int, noteEnd int64, signatures ...model.TimeSignature) *model.Music {
	m := &model.Music{Resolution: resolution, TimeSignatures: signatures}
	if noteEnd > 0 {
		m.Tracks = []model.Track{{Notes: []model.Note{
			{Time: 0, Pitch: 60, Duration: noteEnd, Velocity: 64},
		}}}
	}
	return m
}

func TestEmptyScoreHasNoBeats(t *testing.T) {
	m := withNotes(24, 0, model.TimeSignature{Time: 0, Numerator: 4, Denominator: 4})
	assert.Empty(t, Extract(m))
	assert.Empty(t, Measures(m))
}

func TestQuarterNoteGrid(t *testing.T) {
	m := withNotes(24, 96, model.TimeSignature{Time: 0, Numerator: 4, Denominator: 4})
	assert.Equal(t, []int64{0, 24, 48, 72}, Extract(m))
}

func TestDefaultsToCommonTimeWithoutSignatures(t *testing.T) {
	m := withNotes(24, 96)
	assert.Equal(t, []int64{0, 24, 48, 72}, Extract(m))
}

func TestBeatCountScalesWithDenominator(t *testing.T) {
	cases := []struct {
		denominator int
		wantBeats   int
	}{
		{2, 2},
		{4, 4},
		{8, 8},
	}
	for _, c := range cases {
		m := withNotes(24, 96, model.TimeSignature{Time: 0, Numerator: 4, Denominator: c.denominator})
		beats := Extract(m)
		assert.Len(t, beats, c.wantBeats, "denominator %v", c.denominator)
	}
}

func TestStrictlyIncreasing(t *testing.T) {
	m := withNotes(24, 480,
		model.TimeSignature{Time: 0, Numerator: 4, Denominator: 4},
		model.TimeSignature{Time: 100, Numerator: 3, Denominator: 8},
		model.TimeSignature{Time: 100, Numerator: 6, Denominator: 8},
	)
	beats := Extract(m)
	assert.NotEmpty(t, beats)
	for i := 1; i < len(beats); i++ {
		assert.Greater(t, beats[i], beats[i-1])
	}
}

func TestSignatureChangeRestartsGrid(t *testing.T) {
	m := withNotes(24, 192,
		model.TimeSignature{Time: 0, Numerator: 4, Denominator: 4},
		model.TimeSignature{Time: 96, Numerator: 3, Denominator: 8},
	)
	// 4/4 beats every 24 ticks until 96, then 3/8 beats every 12.
	assert.Equal(t, []int64{0, 24, 48, 72, 96, 108, 120, 132, 144, 156, 168, 180}, Extract(m))
}

func TestMeasuresGroupBeatsByNumerator(t *testing.T) {
	m := withNotes(24, 192, model.TimeSignature{Time: 0, Numerator: 4, Denominator: 4})
	measures := Measures(m)

	assert := assert.New(t)
	assert.Len(measures, 2)
	assert.Equal(Measure{Start: 0, End: 96}, measures[0])
	assert.Equal(Measure{Start: 96, End: 192}, measures[1])
}

func TestHorizonIncludesTrailingSignature(t *testing.T) {
	m := withNotes(24, 48, model.TimeSignature{Time: 0, Numerator: 4, Denominator: 4},
		model.TimeSignature{Time: 96, Numerator: 3, Denominator: 4})
	beats := Extract(m)
	// The grid runs to the last signature start even past the notes.
	assert.Equal(t, []int64{0, 24, 48, 72}, beats)
}
