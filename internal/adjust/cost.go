package adjust

import (
	"github.com/gravitas-games/factorylab/pkg/models"
	"github.com/gravitas-games/factorylab/pkg/rational"
)

// AdjustCosts writes the solver cost of each listed recipe. Only the Cost field
// is touched.
//
// The cost is the settings override, else the recipe's own cost times the
// factor, else factor × time × (machine + module × modules + beacon × beacons).
func (a *Adjuster) AdjustCosts(ids []string, adjusted models.AdjustedDataset, rs map[string]models.RecipeSettings, costs models.CostSettings, d *models.Dataset) {
	if costsUnset(costs) {
		costs = a.cfg.Costs
	}

	for _, id := range ids {
		result, ok := adjusted[id]
		if !ok {
			continue
		}
		if s, ok := rs[id]; ok && s.Cost != nil {
			result.Cost = *s.Cost
			continue
		}
		if recipe, ok := d.Recipes[id]; ok && recipe.Cost != nil {
			result.Cost = recipe.Cost.Mul(costs.Factor)
			continue
		}

		modules := rational.Zero
		for _, m := range result.Modules {
			modules = modules.Add(m.Count.Resolve())
		}
		beacons := rational.Zero
		for _, b := range result.Beacons {
			beacons = beacons.Add(rational.Or(b.Count, rational.Zero))
		}

		weight := costs.Machine.
			Add(costs.Module.Mul(modules)).
			Add(costs.Beacon.Mul(beacons))
		result.Cost = costs.Factor.Mul(result.Time).Mul(weight)
	}
}
