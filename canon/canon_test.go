package canon

import (
	"testing"

	"github.com/otnemrasordep/muspy/model"
	"github.com/stretchr/testify/assert"
)

func TestSortsNotesCanonically(t *testing.T) {
	m := &model.Music{Resolution: 24, Tracks: []model.Track{{Notes: []model.Note{
		{Time: 48, Pitch: 60, Duration: 24, Velocity: 64},
		{Time: 0, Pitch: 64, Duration: 24, Velocity: 64},
		{Time: 0, Pitch: 60, Duration: 24, Velocity: 64},
	}}}}

	m, err := Canonicalize(m, Options{})
	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal(int64(0), m.Tracks[0].Notes[0].Time)
	assert.Equal(60, m.Tracks[0].Notes[0].Pitch)
	assert.Equal(64, m.Tracks[0].Notes[1].Pitch)
	assert.Equal(int64(48), m.Tracks[0].Notes[2].Time)
}

func TestStableOrderForExactTies(t *testing.T) {
	// Same onset and pitch, different velocity: input order must hold.
	m := &model.Music{Resolution: 24, Tracks: []model.Track{{Notes: []model.Note{
		{Time: 0, Pitch: 60, Duration: 24, Velocity: 100},
		{Time: 0, Pitch: 60, Duration: 24, Velocity: 50},
	}}}}

	m, err := Canonicalize(m, Options{})
	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal(100, m.Tracks[0].Notes[0].Velocity)
	assert.Equal(50, m.Tracks[0].Notes[1].Velocity)
}

func TestDeduplicatesExactRepeatsOnly(t *testing.T) {
	near := model.Note{Time: 1, Pitch: 60, Duration: 24, Velocity: 64}
	exact := model.Note{Time: 0, Pitch: 60, Duration: 24, Velocity: 64}
	m := &model.Music{Resolution: 24, Tracks: []model.Track{{
		Notes: []model.Note{exact, near, exact},
	}}}

	m, err := Canonicalize(m, Options{})
	assert := assert.New(t)
	assert.NoError(err)
	// The bit-identical pair collapses, the near-duplicate survives.
	assert.Equal([]model.Note{exact, near}, m.Tracks[0].Notes)

	var codes []string
	for _, w := range m.Report.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(codes, model.WarnDuplicateNote)
}

func TestIdempotence(t *testing.T) {
	m := &model.Music{Resolution: 24, Tracks: []model.Track{{Notes: []model.Note{
		{Time: 24, Pitch: 62, Duration: 0, Velocity: 200},
		{Time: 0, Pitch: 60, Duration: 24, Velocity: 64},
		{Time: 0, Pitch: 60, Duration: 24, Velocity: 64},
	}}}}

	m, err := Canonicalize(m, Options{})
	assert := assert.New(t)
	assert.NoError(err)

	notes := append([]model.Note(nil), m.Tracks[0].Notes...)
	warnings := m.Report.Count()

	m, err = Canonicalize(m, Options{})
	assert.NoError(err)
	assert.Equal(notes, m.Tracks[0].Notes)
	assert.Equal(warnings, m.Report.Count())
}

func TestOptionsBindAtFirstCanonicalization(t *testing.T) {
	m := &model.Music{Resolution: 480, Tracks: []model.Track{{Notes: []model.Note{
		{Time: 480, Pitch: 60, Duration: 240, Velocity: 64},
	}}}}

	m, err := Canonicalize(m, Options{})
	assert := assert.New(t)
	assert.NoError(err)

	// A later call with a different target leaves the canonical form
	// alone rather than rescaling it again.
	m, err = Canonicalize(m, Options{TargetResolution: 24})
	assert.NoError(err)
	assert.Equal(480, m.Resolution)
	assert.Equal(int64(480), m.Tracks[0].Notes[0].Time)
}

func TestFlagsOutOfRangeValuesWithoutClamping(t *testing.T) {
	m := &model.Music{Resolution: 24, Tracks: []model.Track{{Notes: []model.Note{
		{Time: 0, Pitch: 140, Duration: 24, Velocity: 64},
		{Time: 24, Pitch: 60, Duration: 24, Velocity: 300},
		{Time: 48, Pitch: 60, Duration: 0, Velocity: 64},
	}}}}

	m, err := Canonicalize(m, Options{})
	assert := assert.New(t)
	assert.NoError(err)

	// Values survive untouched; only warnings are attached.
	assert.Equal(140, m.Tracks[0].Notes[0].Pitch)
	assert.Equal(300, m.Tracks[0].Notes[1].Velocity)

	var codes []string
	for _, w := range m.Report.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(codes, model.WarnPitchOutOfRange)
	assert.Contains(codes, model.WarnVelocityRange)
	assert.Contains(codes, model.WarnZeroDuration)
}

func TestInsertsDefaultTempoAndMeter(t *testing.T) {
	m := &model.Music{Resolution: 24}
	m, err := Canonicalize(m, Options{})

	assert := assert.New(t)
	assert.NoError(err)
	assert.Len(m.Tempos, 1)
	assert.Equal(120.0, m.Tempos[0].BPM)
	assert.Len(m.TimeSignatures, 1)
	assert.Equal(4, m.TimeSignatures[0].Numerator)
}

func TestNonMonotonicTemposAreFatal(t *testing.T) {
	m := &model.Music{Resolution: 24, Tempos: []model.Tempo{
		{Time: 96, BPM: 120},
		{Time: 0, BPM: 140},
	}}

	_, err := Canonicalize(m, Options{})
	var malformed *model.MalformedScoreError
	assert.ErrorAs(t, err, &malformed)
}

func TestBadResolutionIsFatal(t *testing.T) {
	_, err := Canonicalize(&model.Music{Resolution: 0}, Options{})
	var malformed *model.MalformedScoreError
	assert.ErrorAs(t, err, &malformed)
}

func TestResolutionRescale(t *testing.T) {
	m := &model.Music{Resolution: 480, Tracks: []model.Track{{Notes: []model.Note{
		{Time: 480, Pitch: 60, Duration: 240, Velocity: 64},
	}}}}

	m, err := Canonicalize(m, Options{TargetResolution: 24})
	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal(24, m.Resolution)
	assert.Equal(int64(24), m.Tracks[0].Notes[0].Time)
	assert.Equal(int64(12), m.Tracks[0].Notes[0].Duration)
}
