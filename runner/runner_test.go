package runner

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/otnemrasordep/muspy/model"
	"github.com/stretchr/testify/assert"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func writeTestMIDI(t *testing.T, path string) {
	t.Helper()

	var tr smf.Track
	tr.Add(0, smf.MetaMeter(4, 4))
	tr.Add(0, smf.MetaTempo(120))
	tr.Add(0, midi.NoteOn(0, 57, 100))
	tr.Add(96, midi.NoteOff(0, 57))
	tr.Add(0, midi.NoteOn(0, 60, 100))
	tr.Add(96, midi.NoteOff(0, 60))
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(96)
	s.Add(tr)

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		t.Fatalf("could not build test midi: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0666); err != nil {
		t.Fatalf("could not write test midi: %v", err)
	}
}

func TestBatchIsolatesCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.mid")
	bad := filepath.Join(dir, "bad.mid")
	writeTestMIDI(t, good)
	if err := os.WriteFile(bad, []byte("truncated garbage"), 0666); err != nil {
		t.Fatal(err)
	}

	r := Runner{Workers: 2}
	results := r.Run(context.Background(), []string{good, bad})

	assert := assert.New(t)
	assert.Len(results.Rows, 2)
	// Rows come back in input order, regardless of completion order.
	assert.Equal(good, results.Rows[0].Path)
	assert.Equal(bad, results.Rows[1].Path)

	assert.Empty(results.Rows[0].Err)
	assert.NotEmpty(results.Rows[0].Values)
	assert.Equal(model.ErrMarkerFormat, results.Rows[1].Err)
	assert.Nil(results.Rows[1].Values)
}

func TestRunIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.mid")
	writeTestMIDI(t, good)

	r := Runner{Workers: 4}
	first := r.Run(context.Background(), []string{good})
	second := r.Run(context.Background(), []string{good})

	assert.Equal(t, first.Rows[0].Values, second.Rows[0].Values)
	assert.Equal(t, first.Rows[0].Warnings, second.Rows[0].Warnings)
}

func TestProcessFileComputesRequestedMetrics(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.mid")
	writeTestMIDI(t, good)

	r := Runner{Metrics: []string{"pitch_class_entropy", "note_density"}}
	row := r.ProcessFile(good)

	assert := assert.New(t)
	assert.Empty(row.Err)
	assert.Len(row.Values, 2)
	assert.Contains(row.Values, "pitch_class_entropy")
	assert.Contains(row.Values, "note_density")
}

func TestProcessFileMarksUnknownMetricAsMissing(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.mid")
	writeTestMIDI(t, good)

	r := Runner{Metrics: []string{"note_density", "no_such_metric"}}
	row := r.ProcessFile(good)

	assert := assert.New(t)
	assert.Empty(row.Err)
	assert.False(math.IsNaN(row.Values["note_density"]))
	// A name the registry does not know yields NaN, never a literal 0.
	assert.True(math.IsNaN(row.Values["no_such_metric"]))

	var buf bytes.Buffer
	assert.NoError(WriteCSV(&buf, &model.ResultSet{
		RunID:   "test",
		Metrics: r.Metrics,
		Rows:    []model.Row{row},
	}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.True(strings.HasSuffix(lines[1], ",,0,"), "unknown metric should serialize as an empty cell, got %q", lines[1])
}

func TestCancelledRunStillYieldsOneRowPerFile(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	good := filepath.Join(dir, "good.mid")
	writeTestMIDI(t, good)

	r := Runner{Workers: 1}
	paths := []string{good, filepath.Join(dir, "never-submitted.mid")}
	results := r.Run(ctx, paths)

	assert := assert.New(t)
	assert.Len(results.Rows, 2)
	for i, row := range results.Rows {
		assert.Equal(paths[i], row.Path)
	}
}

func TestWriteCSV(t *testing.T) {
	rs := &model.ResultSet{
		RunID:   "test",
		Metrics: []string{"pitch_class_entropy", "note_density"},
		Rows: []model.Row{
			{Path: "a.mid", Values: map[string]float64{"pitch_class_entropy": 0.5623, "note_density": 1}, Warnings: 2},
			{Path: "b.mid", Err: model.ErrMarkerFormat},
		},
	}

	var buf bytes.Buffer
	err := WriteCSV(&buf, rs)

	assert := assert.New(t)
	assert.NoError(err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(lines, 3)
	assert.Equal("file,pitch_class_entropy,note_density,warnings,error", lines[0])
	assert.Equal("a.mid,0.562300,1.000000,2,", lines[1])
	// Failed rows carry empty metric cells and the error marker.
	assert.Equal("b.mid,,,0,format_error", lines[2])
}
