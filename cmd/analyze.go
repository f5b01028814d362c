package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/otnemrasordep/muspy/constants"
	"github.com/otnemrasordep/muspy/runner"
	"github.com/otnemrasordep/muspy/util"
	"github.com/spf13/cobra"
)

var (
	analyzeMetrics    string
	analyzeWorkers    int
	analyzeMax        int
	analyzeResolution int
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeMetrics, "metrics", "", "comma-separated metric names (default: all)")
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 0, "worker pool size (default: NumCPU)")
	analyzeCmd.Flags().IntVar(&analyzeMax, "max", 0, "cap on number of corpus files (0 = no cap)")
	analyzeCmd.Flags().IntVar(&analyzeResolution, "resolution", 0, "normalize all scores to this ticks-per-quarter (0 = keep source)")
	rootCmd.AddCommand(analyzeCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <corpus-dir>",
	Short: "Computes metrics over a corpus",
	Long:  `Walks a corpus directory, runs every score through the pipeline and writes a tabular result set.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		analyze(args[0])
	},
}

func analyze(corpusDir string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	paths := util.GatherScorePaths(corpusDir, analyzeMax)
	if len(paths) == 0 {
		fmt.Printf("No score files found under %v\n", corpusDir)
		return
	}

	var names []string
	if analyzeMetrics != "" {
		for _, name := range strings.Split(analyzeMetrics, ",") {
			names = append(names, strings.TrimSpace(name))
		}
	}

	r := runner.Runner{
		Workers:          analyzeWorkers,
		Metrics:          names,
		TargetResolution: analyzeResolution,
		Progress: func(done, total int, path string) {
			fmt.Printf("Processing %v of %v score files\n", done, total)
		},
	}
	results := r.Run(ctx, paths)

	util.RecreateOutputDir()
	outDir := constants.GetOutDir()

	csvPath := filepath.Join(outDir, "results-"+results.RunID+".csv")
	f, err := os.Create(csvPath)
	if err != nil {
		panic("Could not create results csv: " + err.Error())
	}
	defer f.Close()
	if err := runner.WriteCSV(f, results); err != nil {
		panic("Could not write results csv: " + err.Error())
	}

	if err := util.CreateBinary(filepath.Join(outDir, constants.ResultSetFilename), results); err != nil {
		panic("Could not persist result set: " + err.Error())
	}

	errored := 0
	for _, row := range results.Rows {
		if row.Err != "" {
			errored++
		}
	}
	fmt.Printf("Wrote %v rows (%v errored) to %v\n", len(results.Rows), errored, csvPath)
}
