// Package fuel selects burnable fuel items for burner machines.
package fuel

import "github.com/gravitas-games/factorylab/pkg/models"

// Option is a selectable fuel item.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// BestMatch returns the first ranked id present in candidates, or the first
// candidate when nothing ranked matches. A single candidate always wins.
func BestMatch(candidates, ranked []string) string {
	switch len(candidates) {
	case 0:
		return ""
	case 1:
		return candidates[0]
	}

	for _, id := range ranked {
		for _, c := range candidates {
			if c == id {
				return id
			}
		}
	}
	return candidates[0]
}

// Candidates returns the fuel item ids a machine can burn, in dataset item order.
func Candidates(machine *models.Machine, d *models.Dataset) []string {
	if machine == nil {
		return nil
	}
	if machine.Fuel != "" {
		return []string{machine.Fuel}
	}
	if len(machine.FuelCategories) == 0 || d == nil {
		return nil
	}

	categories := make(map[string]struct{}, len(machine.FuelCategories))
	for _, c := range machine.FuelCategories {
		categories[c] = struct{}{}
	}

	var ids []string
	for _, id := range d.ItemIDs {
		item := d.Items[id]
		if item == nil || item.Fuel == nil {
			continue
		}
		if _, ok := categories[item.Fuel.Category]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Options returns labeled fuel choices for a machine.
func Options(machine *models.Machine, d *models.Dataset) []Option {
	ids := Candidates(machine, d)
	options := make([]Option, 0, len(ids))
	for _, id := range ids {
		options = append(options, Option{Value: id, Label: label(id, d)})
	}
	return options
}

// Resolve picks the fuel for a machine: the fixed fuel, then the requested fuel
// when it is a candidate, then the best ranked candidate.
func Resolve(machine *models.Machine, requested string, ranked []string, d *models.Dataset) string {
	if machine == nil || !machine.IsBurner() {
		return ""
	}
	if machine.Fuel != "" {
		return machine.Fuel
	}
	candidates := Candidates(machine, d)
	if requested != "" {
		for _, c := range candidates {
			if c == requested {
				return requested
			}
		}
	}
	return BestMatch(candidates, ranked)
}

func label(id string, d *models.Dataset) string {
	if d != nil {
		if item, ok := d.Items[id]; ok && item.Name != "" {
			return item.Name
		}
	}
	return id
}
