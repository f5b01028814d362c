package cmd

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/otnemrasordep/muspy/constants"
	"github.com/otnemrasordep/muspy/db"
	"github.com/otnemrasordep/muspy/model"
	"github.com/otnemrasordep/muspy/util"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarizes the last analyze run",
	Long:  `Loads the persisted result set and prints aggregate corpus statistics.`,
	Run: func(cmd *cobra.Command, args []string) {
		report()
	},
}

func report() {
	path := filepath.Join(constants.GetOutDir(), constants.ResultSetFilename)
	results, err := util.ReadBinary[*model.ResultSet](path)
	if err != nil {
		panic("Could not load result set (run analyze first): " + err.Error())
	}

	var errored int
	var warnings []int
	for _, row := range results.Rows {
		if row.Err != "" {
			errored++
			continue
		}
		warnings = append(warnings, row.Warnings)
	}

	fmt.Printf("run: %v\n", results.RunID)
	fmt.Printf("rows: %v\n", len(results.Rows))
	fmt.Printf("errored rows: %v\n", errored)
	fmt.Printf("total warnings: %v\n", util.Sum(warnings))

	for _, name := range results.Metrics {
		var sum float64
		var n int
		for _, row := range results.Rows {
			v, ok := row.Values[name]
			if !ok || math.IsNaN(v) {
				continue
			}
			sum += v
			n++
		}
		if n == 0 {
			fmt.Printf("%v: no data\n", name)
			continue
		}
		fmt.Printf("%v: mean %.4f over %v files\n", name, sum/float64(n), n)
	}

	if db.Enabled() {
		var paths []string
		for _, row := range results.Rows {
			paths = append(paths, filepath.Base(row.Path))
		}
		metadatas, err := db.GetScoreMetadatas(paths)
		if err != nil {
			fmt.Printf("metadata lookup failed: %v\n", err)
			return
		}
		fmt.Printf("files with metadata: %v of %v\n", len(metadatas), len(paths))
	}
}
