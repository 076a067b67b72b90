package adjust

import (
	"sort"

	"github.com/gravitas-games/factorylab/pkg/models"
	"github.com/gravitas-games/factorylab/pkg/rational"
)

// AdjustSiloRecipes recomputes the time of launch recipes from their part
// recipe. It must run after every recipe has been adjusted. Recipes whose part
// has no settings entry or no silo machine keep their time.
func (a *Adjuster) AdjustSiloRecipes(adjusted models.AdjustedDataset, rs map[string]models.RecipeSettings, d *models.Dataset) {
	ids := make([]string, 0, len(adjusted))
	for id := range adjusted {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		recipe, ok := d.Recipes[id]
		if !ok || recipe.Part == "" {
			continue
		}
		partSettings, ok := rs[recipe.Part]
		if !ok {
			continue
		}
		part, ok := adjusted[recipe.Part]
		if !ok || part.MachineID == "" {
			continue
		}
		machine, ok := d.Machines[part.MachineID]
		if !ok || machine.Silo == nil {
			continue
		}

		count := rational.One
		if partSettings.Machines != nil && partSettings.Machines.Sign() > 0 {
			count = *partSettings.Machines
		}

		updated := *adjusted[id]
		updated.Time = part.Time.Mul(machine.Silo.Parts).Div(count)
		adjusted[id] = &updated
	}
}
