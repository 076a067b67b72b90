package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gravitas-games/factorylab/internal/dataset"
	"github.com/gravitas-games/factorylab/internal/fuel"
	"github.com/gravitas-games/factorylab/internal/settings"
	"github.com/gravitas-games/factorylab/pkg/models"
)

func newFuelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fuels <machine>",
		Short: "List the fuels a machine can burn",
		Args:  cobra.ExactArgs(1),
		RunE:  runFuels,
	}
}

func runFuels(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	d, err := dataset.Load(datasetPath)
	if err != nil {
		return err
	}

	machine, ok := d.Machines[args[0]]
	if !ok {
		return fmt.Errorf("unknown machine %q", args[0])
	}

	options := fuel.Options(machine, d)
	if len(options) == 0 {
		color.New(color.FgYellow).Fprintf(out, "%s does not burn fuel\n", args[0])
		return nil
	}

	best := fuel.Resolve(machine, "", settings.FuelRank(models.GlobalSettings{}, d), d)

	table := tablewriter.NewTable(out,
		tablewriter.WithHeader([]string{"Fuel", "Name", "Value (MJ)", "Default"}),
	)
	for _, o := range options {
		value := ""
		if item, ok := d.Items[o.Value]; ok && item.Fuel != nil {
			value = item.Fuel.Value.String()
		}
		isDefault := ""
		if o.Value == best {
			isDefault = "✓"
		}
		if err := table.Append([]string{o.Value, o.Label, value, isDefault}); err != nil {
			return err
		}
	}
	return table.Render()
}
