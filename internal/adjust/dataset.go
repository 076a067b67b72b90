package adjust

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gravitas-games/factorylab/pkg/models"
)

// Request bundles everything a dataset adjustment reads.
type Request struct {
	RecipeIDs []string                         `json:"recipeIds,omitempty" yaml:"recipe_ids,omitempty"` // Empty means every recipe
	Recipes   map[string]models.RecipeSettings `json:"recipes,omitempty" yaml:"recipes,omitempty"`
	Items     map[string]models.ItemSettings   `json:"items,omitempty" yaml:"items,omitempty"`
	Global    models.GlobalSettings            `json:"global" yaml:"global"`
}

// AdjustDataset adjusts every requested recipe exactly once, then runs the silo
// and cost passes over the results.
func (a *Adjuster) AdjustDataset(ctx context.Context, req Request, d *models.Dataset) (models.AdjustedDataset, error) {
	ids := dedupe(req.RecipeIDs)
	if len(ids) == 0 {
		ids = dedupe(d.RecipeIDs)
	}

	results := make([]*models.AdjustedRecipe, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)

	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := a.recipe(id, req.Recipes[id], req.Items, req.Global, d)
			if err != nil {
				return fmt.Errorf("adjust %s: %w", id, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	adjusted := make(models.AdjustedDataset, len(ids))
	for i, id := range ids {
		adjusted[id] = results[i]
	}

	a.AdjustSiloRecipes(adjusted, req.Recipes, d)
	a.AdjustCosts(ids, adjusted, req.Recipes, req.Global.Costs, d)
	return adjusted, nil
}

// dedupe drops repeated ids, keeping first occurrence order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
