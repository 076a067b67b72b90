package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var datasetPath string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "factorylab",
		Short: "Factory game recipe calculator",
		Long: `Adjusts the recipes of a factory game dataset for machines, modules,
beacons, fuels and game rules, and inspects datasets from the command line.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&datasetPath, "dataset", "d", "./data/factorio.json", "Path to dataset JSON file")

	rootCmd.AddCommand(newAdjustCmd(), newFuelsCmd(), newValidateCmd())
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
