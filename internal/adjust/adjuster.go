// Package adjust turns static recipes plus user settings into adjusted recipes:
// the exact per-recipe coefficients a production solver optimizes over.
package adjust

import (
	"errors"

	"github.com/gravitas-games/factorylab/internal/effects"
	"github.com/gravitas-games/factorylab/pkg/models"
	"github.com/gravitas-games/factorylab/pkg/rational"
)

// ErrUnknownRecipe is returned when a recipe id is not in the dataset.
var ErrUnknownRecipe = errors.New("unknown recipe")

// Config holds the numeric rules shared by every adjustment.
type Config struct {
	// Floor is the lowest multiplier any effect channel can reach.
	Floor rational.Rational
	// MinTime is the shortest cycle time a recipe can have, in seconds.
	MinTime rational.Rational
	// TicksPerSecond converts per-tick rates and tick durations.
	TicksPerSecond rational.Rational
	// Tolerance bounds the error of the overclock power curve approximation.
	Tolerance float64
	// Workers limits concurrent recipe adjustments in AdjustDataset.
	Workers int
	// Costs is used when the global settings carry no cost weights.
	Costs models.CostSettings
}

// DefaultConfig returns the standard rule set.
func DefaultConfig() Config {
	return Config{
		Floor:          effects.DefaultFloor,
		MinTime:        rational.New(1, 60),
		TicksPerSecond: rational.FromInt(60),
		Tolerance:      rational.DefaultTolerance,
		Workers:        8,
		Costs:          models.DefaultCostSettings(),
	}
}

// RecipeFunc adjusts one recipe.
type RecipeFunc func(id string, s models.RecipeSettings, items map[string]models.ItemSettings, g models.GlobalSettings, d *models.Dataset) (*models.AdjustedRecipe, error)

// Adjuster computes adjusted recipes. It holds no mutable state and is safe for
// concurrent use.
type Adjuster struct {
	cfg Config

	// recipe is the per-recipe step used by AdjustDataset.
	recipe RecipeFunc
}

// New creates an adjuster. Zero fields of cfg take their default values.
func New(cfg Config) *Adjuster {
	def := DefaultConfig()
	if cfg.Floor.Sign() <= 0 {
		cfg.Floor = def.Floor
	}
	if cfg.MinTime.Sign() <= 0 {
		cfg.MinTime = def.MinTime
	}
	if cfg.TicksPerSecond.Sign() <= 0 {
		cfg.TicksPerSecond = def.TicksPerSecond
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if costsUnset(cfg.Costs) {
		cfg.Costs = def.Costs
	}

	a := &Adjuster{cfg: cfg}
	a.recipe = a.AdjustRecipe
	return a
}

// Config returns the resolved configuration.
func (a *Adjuster) Config() Config {
	return a.cfg
}

func costsUnset(c models.CostSettings) bool {
	return c.Factor.IsZero() && c.Machine.IsZero() && c.Module.IsZero() && c.Beacon.IsZero()
}
