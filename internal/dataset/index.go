package dataset

import (
	"github.com/gravitas-games/factorylab/pkg/models"
)

// Index provides secondary lookups over a dataset's recipes.
// It is built once and read-only afterwards.
type Index struct {
	byCategory map[string][]string
	byOutput   map[string][]string
	byProducer map[string][]string
}

// NewIndex indexes every recipe of a dataset in declaration order.
func NewIndex(d *models.Dataset) *Index {
	idx := &Index{
		byCategory: make(map[string][]string),
		byOutput:   make(map[string][]string),
		byProducer: make(map[string][]string),
	}

	for _, id := range d.RecipeIDs {
		recipe := d.Recipes[id]

		// Index by category
		if recipe.Category != "" {
			idx.byCategory[recipe.Category] = append(idx.byCategory[recipe.Category], id)
		}

		// Index by output items
		for _, item := range recipe.OutputIDs() {
			idx.byOutput[item] = append(idx.byOutput[item], id)
		}

		// Index by producer
		for _, machine := range recipe.Producers {
			idx.byProducer[machine] = append(idx.byProducer[machine], id)
		}
	}
	return idx
}

// Filter returns the recipe ids matching every non-empty criterion, in
// dataset order. With no criteria it returns nil, meaning every recipe.
func (idx *Index) Filter(d *models.Dataset, category, output, producer string) []string {
	if category == "" && output == "" && producer == "" {
		return nil
	}

	var sets []map[string]struct{}
	if category != "" {
		sets = append(sets, toSet(idx.byCategory[category]))
	}
	if output != "" {
		sets = append(sets, toSet(idx.byOutput[output]))
	}
	if producer != "" {
		sets = append(sets, toSet(idx.byProducer[producer]))
	}

	ids := make([]string, 0)
	for _, id := range d.RecipeIDs {
		matched := true
		for _, s := range sets {
			if _, ok := s[id]; !ok {
				matched = false
				break
			}
		}
		if matched {
			ids = append(ids, id)
		}
	}
	return ids
}

func toSet(ids []string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}
