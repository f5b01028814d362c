package cmd

import (
	"fmt"

	"github.com/otnemrasordep/muspy/adapter"
	"github.com/otnemrasordep/muspy/beat"
	"github.com/otnemrasordep/muspy/canon"
	"github.com/otnemrasordep/muspy/metrics"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <score-file>",
	Short: "Inspects a single score",
	Long:  `Runs one file through the pipeline and prints its tracks, metrics and validation warnings.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inspect(args[0])
	},
}

func inspect(path string) {
	m, err := adapter.Parse(path)
	if err != nil {
		panic("Could not parse score: " + err.Error())
	}
	m, err = canon.Canonicalize(m, canon.Options{})
	if err != nil {
		panic("Could not canonicalize score: " + err.Error())
	}
	m.Beats = beat.Extract(m)

	fmt.Printf("file: %v\n", path)
	fmt.Printf("resolution: %v ticks/quarter, %v beats\n", m.Resolution, len(m.Beats))
	for i, tr := range m.Tracks {
		kind := "tonal"
		if tr.IsDrum {
			kind = "drums"
		}
		fmt.Printf("track %v: %q program=%v %v notes=%v\n", i, tr.Name, tr.Program, kind, len(tr.Notes))
	}
	for _, name := range metrics.Names() {
		fmt.Printf("%v: %v\n", name, metrics.Registry[name](m))
	}
	for _, w := range m.Report.Warnings {
		fmt.Printf("warning [%v] track=%v note=%v: %v\n", w.Code, w.Track, w.Note, w.Message)
	}
}
