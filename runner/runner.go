// Package runner applies the metrics engine across a corpus. Files
// are independent, so the work fans out over a bounded worker pool;
// one file's failure becomes a marked row, never a dead batch.
package runner

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"runtime"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/otnemrasordep/muspy/adapter"
	"github.com/otnemrasordep/muspy/beat"
	"github.com/otnemrasordep/muspy/canon"
	"github.com/otnemrasordep/muspy/metrics"
	"github.com/otnemrasordep/muspy/model"
)

type Runner struct {
	// Workers bounds the pool; <= 0 means NumCPU.
	Workers int
	// Metrics are registry names; empty means every registered metric.
	Metrics []string
	// TargetResolution is passed through to the canonicalizer.
	TargetResolution int
	// Progress, when set, receives one line per finished file.
	Progress func(done, total int, path string)
}

// ProcessFile runs one file through adapt → canonicalize → beats →
// metrics and returns the finished row. Fatal errors land in Row.Err.
func (r *Runner) ProcessFile(path string) model.Row {
	row := model.Row{Path: path}

	m, err := adapter.Parse(path)
	if err != nil {
		row.Err = classify(err)
		return row
	}

	m, err = canon.Canonicalize(m, canon.Options{TargetResolution: r.TargetResolution})
	if err != nil {
		row.Err = classify(err)
		return row
	}
	m.Beats = beat.Extract(m)

	row.Warnings = m.Report.Count()
	row.Values = make(map[string]float64, len(r.metricNames()))
	for _, name := range r.metricNames() {
		f, ok := metrics.Registry[name]
		if !ok {
			// An unregistered name must stay distinguishable from a
			// metric that really evaluated to zero.
			row.Values[name] = math.NaN()
			continue
		}
		row.Values[name] = f(m)
	}
	return row
}

func (r *Runner) metricNames() []string {
	if len(r.Metrics) > 0 {
		return r.Metrics
	}
	return metrics.Names()
}

func classify(err error) string {
	var formatErr *model.FormatError
	var malformedErr *model.MalformedScoreError
	switch {
	case errors.As(err, &formatErr):
		return model.ErrMarkerFormat
	case errors.As(err, &malformedErr):
		return model.ErrMarkerMalformed
	default:
		return model.ErrMarkerRead
	}
}

// Run processes the corpus and returns one row per input path, in
// input order. Workers complete out of order; rows are re-keyed by
// path index before the set is assembled. Cancelling ctx stops new
// submissions and lets in-flight files finish.
func (r *Runner) Run(ctx context.Context, paths []string) *model.ResultSet {
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) && len(paths) > 0 {
		workers = len(paths)
	}

	type job struct {
		idx  int
		path string
	}
	type outcome struct {
		idx int
		row model.Row
	}

	jobs := make(chan job)
	outcomes := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				outcomes <- outcome{idx: j.idx, row: r.processGuarded(j.path)}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, path := range paths {
			select {
			case <-ctx.Done():
				return
			case jobs <- job{idx: i, path: path}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	rows := make([]model.Row, len(paths))
	submitted := make([]bool, len(paths))
	done := 0
	for out := range outcomes {
		rows[out.idx] = out.row
		submitted[out.idx] = true
		done++
		if r.Progress != nil {
			r.Progress(done, len(paths), out.row.Path)
		}
	}

	// Paths never submitted because of cancellation still get a row,
	// so the table always has one row per input file.
	var final []model.Row
	for i, path := range paths {
		if !submitted[i] {
			final = append(final, model.Row{Path: path, Err: "cancelled"})
			continue
		}
		final = append(final, rows[i])
	}

	return &model.ResultSet{
		RunID:   uuid.New().String(),
		Metrics: r.metricNames(),
		Rows:    final,
	}
}

// processGuarded keeps a panicking file from taking its worker (and
// the batch) down with it.
func (r *Runner) processGuarded(path string) (row model.Row) {
	defer func() {
		if rec := recover(); rec != nil {
			row = model.Row{Path: path, Err: model.ErrMarkerRead}
		}
	}()
	return r.ProcessFile(path)
}

// WriteCSV serializes a result set: one row per file, columns = path,
// metric values, warning count, error marker. NaN sentinels serialize
// as empty cells so downstream tooling reads them as missing data.
func WriteCSV(w io.Writer, rs *model.ResultSet) error {
	cw := csv.NewWriter(w)

	header := append([]string{"file"}, rs.Metrics...)
	header = append(header, "warnings", "error")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("could not write csv header: %w", err)
	}

	for _, row := range rs.Rows {
		record := []string{row.Path}
		for _, name := range rs.Metrics {
			v, ok := row.Values[name]
			if !ok || v != v {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(v, 'f', 6, 64))
		}
		record = append(record, strconv.Itoa(row.Warnings), row.Err)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("could not write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
