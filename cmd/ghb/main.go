package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "ghb",
	Short: "GHB - weekly-trend classifier and portfolio backtester",
	Long: `GHB classifies stocks into the four Larsson trend states (P1, P2, N1, N2)
and simulates week-by-week trading of those signals over a stock universe,
producing a trade ledger, equity curve, and performance summary.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
