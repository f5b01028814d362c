package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "muspy",
	Short: "Symbolic-music corpus metrics",
	Long:  `Parses symbolic-music corpora into canonical scores and computes quality metrics over them.`,
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
