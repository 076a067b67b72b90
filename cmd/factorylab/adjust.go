package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/gravitas-games/factorylab/internal/adjust"
	"github.com/gravitas-games/factorylab/internal/config"
	"github.com/gravitas-games/factorylab/internal/dataset"
	"github.com/gravitas-games/factorylab/pkg/models"
	"github.com/gravitas-games/factorylab/pkg/rational"
)

type adjustOptions struct {
	configFile   string
	settingsFile string
	recipes      []string
	category     string
	output       string
	producer     string
	lang         string
	asJSON       bool
	quiet        bool
}

func newAdjustCmd() *cobra.Command {
	var opts adjustOptions
	cmd := &cobra.Command{
		Use:   "adjust",
		Short: "Adjust recipes and print the result",
		Long: `Adjusts the selected recipes of a dataset. Settings are read from a YAML
file holding recipe_ids, recipes, items and global sections.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdjust(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "Path to server YAML config for adjustment rules")
	cmd.Flags().StringVarP(&opts.settingsFile, "settings", "s", "", "Path to YAML settings file")
	cmd.Flags().StringSliceVarP(&opts.recipes, "recipe", "r", nil, "Recipe ids to adjust (repeatable)")
	cmd.Flags().StringVar(&opts.category, "category", "", "Only recipes in this category")
	cmd.Flags().StringVar(&opts.output, "output", "", "Only recipes producing this item")
	cmd.Flags().StringVar(&opts.producer, "producer", "", "Only recipes this machine can run")
	cmd.Flags().StringVar(&opts.lang, "lang", "en", "Language tag for number formatting")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the adjusted recipes as JSON")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Minimal output")
	return cmd
}

func runAdjust(cmd *cobra.Command, opts adjustOptions) error {
	out := cmd.OutOrStdout()
	infoColor := color.New(color.FgYellow)
	successColor := color.New(color.FgGreen, color.Bold)

	d, err := dataset.Load(datasetPath)
	if err != nil {
		return err
	}

	adjCfg, err := adjusterConfig(opts.configFile)
	if err != nil {
		return err
	}

	req, err := loadRequest(opts.settingsFile)
	if err != nil {
		return err
	}
	if len(opts.recipes) > 0 {
		req.RecipeIDs = opts.recipes
	}
	if len(req.RecipeIDs) == 0 {
		ids := dataset.NewIndex(d).Filter(d, opts.category, opts.output, opts.producer)
		if ids != nil && len(ids) == 0 {
			return fmt.Errorf("no recipes match the filter")
		}
		req.RecipeIDs = ids
	}

	if !opts.quiet && !opts.asJSON {
		infoColor.Fprintf(out, "📦 Loaded %s dataset: %d items, %d recipes\n\n", d.Game, len(d.ItemIDs), len(d.RecipeIDs))
	}

	result, err := adjust.New(adjCfg).AdjustDataset(context.Background(), req, d)
	if err != nil {
		return err
	}

	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	tag, err := language.Parse(opts.lang)
	if err != nil {
		return fmt.Errorf("invalid language %q: %w", opts.lang, err)
	}
	if err := renderTable(out, result, d, message.NewPrinter(tag)); err != nil {
		return err
	}

	if !opts.quiet {
		successColor.Fprintf(out, "\n✓ Adjusted %d recipes\n", len(result))
	}
	return nil
}

// adjusterConfig reads adjustment rules from a config file, or from the
// environment and defaults when no file is given.
func adjusterConfig(path string) (adjust.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return adjust.Config{}, err
	}
	return cfg.AdjusterConfig()
}

// loadRequest reads a YAML settings file; an empty path yields an empty request
func loadRequest(path string) (adjust.Request, error) {
	var req adjust.Request
	if path == "" {
		return req, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := yaml.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("failed to parse settings file: %w", err)
	}
	return req, nil
}

// renderTable prints adjusted recipes in dataset order
func renderTable(w io.Writer, result models.AdjustedDataset, d *models.Dataset, p *message.Printer) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Recipe", "Machine", "Time (s)", "Inputs", "Outputs", "Power (kW)", "Pollution/s", "Cost"}),
	)

	for _, id := range orderedIDs(result, d) {
		r := result[id]
		machine := r.MachineID
		if r.FuelID != "" {
			machine += " (" + r.FuelID + ")"
		}
		row := []string{
			id,
			machine,
			number(p, r.Time),
			amounts(p, r.In),
			amounts(p, r.Out),
			number(p, r.Consumption),
			number(p, r.Pollution),
			number(p, r.Cost),
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

// orderedIDs lists result ids in dataset order, then any others sorted
func orderedIDs(result models.AdjustedDataset, d *models.Dataset) []string {
	ids := make([]string, 0, len(result))
	seen := make(map[string]bool, len(result))
	for _, id := range d.RecipeIDs {
		if _, ok := result[id]; ok {
			ids = append(ids, id)
			seen[id] = true
		}
	}
	var rest []string
	for id := range result {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

// number prints integers exactly and other values to three decimals.
// Integers beyond int64 print without grouping.
func number(p *message.Printer, r rational.Rational) string {
	if r.IsInt() {
		n := r.Num()
		if n.IsInt64() {
			return p.Sprintf("%d", n.Int64())
		}
		return n.String()
	}
	return p.Sprintf("%.3f", r.Float64())
}

func amounts(p *message.Printer, m map[string]rational.Rational) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, number(p, m[k])+" "+k)
	}
	return strings.Join(parts, ", ")
}
