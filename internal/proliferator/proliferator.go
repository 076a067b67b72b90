// Package proliferator computes spray item consumption and the module-equivalent
// effects granted by spray items declared as recipe inputs.
package proliferator

import (
	"sort"

	"github.com/gravitas-games/factorylab/internal/effects"
	"github.com/gravitas-games/factorylab/pkg/models"
	"github.com/gravitas-games/factorylab/pkg/rational"
)

// Result is the sprayed form of a recipe's inputs.
type Result struct {
	// In is the effective input table, including consumed spray items.
	In map[string]rational.Rational
	// Mounted holds module equivalents for spray items the recipe consumes directly.
	Mounted []effects.Mounted
}

// Calculate applies mounted spray modules and declared spray inputs to a recipe's inputs.
// The input map is never modified.
func Calculate(in map[string]rational.Rational, mounted []effects.Mounted, d *models.Dataset, sprayID string) Result {
	result := Result{In: make(map[string]rational.Rational, len(in))}
	for id, qty := range in {
		result.In[id] = qty
	}

	boost := sprayBoost(d, sprayID)
	ids := sortedIDs(in)

	for _, m := range mounted {
		if m.Module == nil || !m.Module.IsSpray() || m.Count.Sign() <= 0 {
			continue
		}
		sprays := m.Module.Sprays.Mul(boost)
		item := m.Module.SprayItem()
		extra := rational.Zero
		for _, id := range ids {
			if id == item {
				continue
			}
			extra = extra.Add(in[id].Div(sprays).Mul(m.Count))
		}
		if extra.IsZero() {
			continue
		}
		result.In[item] = result.In[item].Add(extra)
	}

	sprayModules := indexSprays(d)
	for _, id := range ids {
		module, ok := sprayModules[id]
		if !ok {
			continue
		}
		sprays := module.Sprays.Mul(boost)
		count := in[id].Div(sprays)
		if count.Sign() <= 0 {
			continue
		}
		result.Mounted = append(result.Mounted, effects.Mounted{Module: module, Count: count})
	}

	return result
}

// sprayBoost returns 1 + productivity of the globally selected spray module.
func sprayBoost(d *models.Dataset, sprayID string) rational.Rational {
	if d == nil || sprayID == "" {
		return rational.One
	}
	m, ok := d.Modules[sprayID]
	if !ok || m.Productivity == nil {
		return rational.One
	}
	boost := rational.One.Add(*m.Productivity)
	if boost.Sign() <= 0 {
		return rational.One
	}
	return boost
}

// indexSprays maps spray item ids to the module they apply. When several
// modules share an item the lowest module id wins.
func indexSprays(d *models.Dataset) map[string]*models.Module {
	out := make(map[string]*models.Module)
	if d == nil {
		return out
	}
	ids := make([]string, 0, len(d.Modules))
	for id := range d.Modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		m := d.Modules[id]
		if !m.IsSpray() {
			continue
		}
		item := m.SprayItem()
		if _, exists := out[item]; !exists {
			out[item] = m
		}
	}
	return out
}

func sortedIDs(m map[string]rational.Rational) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
