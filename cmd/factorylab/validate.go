package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gravitas-games/factorylab/internal/dataset"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a dataset file against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := dataset.Load(args[0])
			if err != nil {
				return err
			}
			color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(),
				"✓ %s is a valid %s dataset: %d items, %d recipes, %d machines\n",
				args[0], d.Game, len(d.ItemIDs), len(d.RecipeIDs), len(d.Machines))
			return nil
		},
	}
}
