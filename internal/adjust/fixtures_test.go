package adjust

import (
	"github.com/gravitas-games/factorylab/pkg/models"
	"github.com/gravitas-games/factorylab/pkg/rational"
)

func q(num, den int64) rational.Rational {
	return rational.New(num, den)
}

func p(num, den int64) *rational.Rational {
	return rational.New(num, den).Ptr()
}

func items(pairs ...interface{}) map[string]rational.Rational {
	m := make(map[string]rational.Rational, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		m[pairs[i].(string)] = pairs[i+1].(rational.Rational)
	}
	return m
}

func modules(pairs ...interface{}) []models.ModuleSettings {
	var out []models.ModuleSettings
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, models.ModuleSettings{ID: pairs[i].(string), Count: pairs[i+1].(*models.Quantity)})
	}
	return out
}

func count(n int64) *models.Quantity {
	return models.Count(rational.FromInt(n))
}

// newDataset builds a small dataset covering every machine rule the adjuster knows.
func newDataset() *models.Dataset {
	d := models.NewDataset(models.GameFactorio)

	d.AddItem(&models.Item{ID: "iron-ore", Name: "Iron ore"})
	d.AddItem(&models.Item{ID: "iron-plate", Name: "Iron plate"})
	d.AddItem(&models.Item{ID: "gear", Name: "Iron gear wheel"})
	d.AddItem(&models.Item{ID: "wood", Name: "Wood", Fuel: &models.Fuel{Category: "chemical", Value: q(2, 1)}})
	d.AddItem(&models.Item{ID: "coal", Name: "Coal", Fuel: &models.Fuel{Category: "chemical", Value: q(4, 1)}})
	d.AddItem(&models.Item{ID: "rocket-part", Name: "Rocket part"})
	d.AddItem(&models.Item{ID: "space-science", Name: "Space science pack"})
	d.AddItem(&models.Item{ID: "u235", Name: "Uranium-235"})
	d.AddItem(&models.Item{ID: "u238", Name: "Uranium-238"})

	d.Machines["assembler"] = &models.Machine{
		ID:        "assembler",
		Speed:     p(1, 1),
		Usage:     p(150, 1),
		Drain:     p(5, 1),
		Pollution: p(15, 2),
		Modules:   count(4),
	}
	d.Machines["overclocker"] = &models.Machine{
		ID:            "overclocker",
		Speed:         p(1, 1),
		Usage:         p(150, 1),
		PowerExponent: p(1321928, 1000000),
	}
	d.Machines["fast"] = &models.Machine{ID: "fast", Speed: p(100, 1), Usage: p(1, 1)}
	d.Machines["furnace"] = &models.Machine{ID: "furnace", Speed: p(2, 1), Usage: p(90, 1), FuelCategories: []string{"chemical"}}
	d.Machines["belt-miner"] = &models.Machine{ID: "belt-miner"}
	d.Machines["pump"] = &models.Machine{ID: "pump", Speed: p(1, 1), Consumption: items("water", q(1, 2))}
	d.Machines["generator"] = &models.Machine{ID: "generator", Speed: p(1, 1), Usage: p(-900, 1)}
	d.Machines["lab"] = &models.Machine{ID: "lab", Speed: p(1, 1), Usage: p(60, 1)}
	d.Machines["rocket-silo"] = &models.Machine{
		ID:      "rocket-silo",
		Speed:   p(1, 1),
		Usage:   p(4000, 1),
		Modules: count(4),
		Silo:    &models.Silo{Parts: q(100, 1)},
	}
	d.Machines["constructor"] = &models.Machine{ID: "constructor", Speed: p(1, 1), Usage: p(4, 1), Modules: count(1)}

	d.Modules["speed-module"] = &models.Module{ID: "speed-module", Speed: p(1, 2), Consumption: p(1, 1)}
	d.Modules["productivity-module"] = &models.Module{
		ID:           "productivity-module",
		Productivity: p(1, 25),
		Speed:        p(-3, 20),
		Pollution:    p(11, 50),
	}
	d.Modules["efficiency-module"] = &models.Module{ID: "efficiency-module", Consumption: p(-3, 10)}
	d.Modules["somersloop"] = &models.Module{ID: "somersloop", Productivity: p(1, 1), Consumption: p(3, 1), Speed: p(1, 2)}
	d.Modules["slow-module"] = &models.Module{
		ID:           "slow-module",
		Speed:        p(-1, 1),
		Productivity: p(-1, 1),
		Consumption:  p(-1, 1),
		Pollution:    p(-1, 1),
		Quality:      p(-1, 1),
	}

	d.Beacons["beacon"] = &models.Beacon{ID: "beacon", Effectivity: q(1, 2), Modules: count(2)}
	d.Belts["belt"] = &models.Belt{ID: "belt", Speed: q(15, 1)}

	d.Defaults = models.Defaults{
		FuelRankIDs: []string{"coal"},
		BeltID:      "belt",
	}

	d.AddRecipe(&models.Recipe{
		ID:        "iron-ore",
		Time:      q(2, 3),
		Out:       items("iron-ore", q(1, 1)),
		Producers: []string{"assembler"},
		IsMining:  true,
	})
	d.AddRecipe(&models.Recipe{
		ID:        "gear",
		Time:      q(4, 1),
		In:        items("iron-plate", q(2, 1)),
		Out:       items("gear", q(1, 1)),
		Producers: []string{"assembler", "overclocker", "constructor"},
	})
	d.AddRecipe(&models.Recipe{
		ID:        "fast-gear",
		Time:      q(1, 100),
		In:        items("iron-plate", q(2, 1)),
		Out:       items("gear", q(1, 1)),
		Producers: []string{"fast"},
	})
	d.AddRecipe(&models.Recipe{
		ID:        "iron-plate",
		Time:      q(16, 5),
		In:        items("iron-ore", q(1, 1)),
		Out:       items("iron-plate", q(1, 1)),
		Producers: []string{"furnace"},
	})
	d.AddRecipe(&models.Recipe{
		ID:        "belt-ore",
		Time:      q(1, 1),
		Out:       items("iron-ore", q(2, 1)),
		Producers: []string{"belt-miner"},
		IsMining:  true,
	})
	d.AddRecipe(&models.Recipe{
		ID:        "crude",
		Time:      q(2, 1),
		Out:       items("crude", q(10, 1)),
		Producers: []string{"pump"},
	})
	d.AddRecipe(&models.Recipe{
		ID:        "steam-power",
		Time:      q(1, 1),
		In:        items("steam", q(60, 1)),
		Out:       map[string]rational.Rational{},
		Producers: []string{"generator"},
	})
	d.AddRecipe(&models.Recipe{
		ID:           "automation",
		Time:         q(30, 1),
		In:           items("red-science", q(1, 1)),
		Out:          items("automation", q(1, 1)),
		Producers:    []string{"lab"},
		IsTechnology: true,
	})
	d.AddRecipe(&models.Recipe{
		ID:        "kovarex",
		Time:      q(60, 1),
		In:        items("u235", q(40, 1), "u238", q(5, 1)),
		Out:       items("u235", q(41, 1), "u238", q(2, 1)),
		Producers: []string{"assembler"},
	})
	d.AddRecipe(&models.Recipe{
		ID:        "catalyst",
		Time:      q(1, 1),
		In:        items("catalyst", q(1, 1), "iron-ore", q(1, 1)),
		Out:       items("catalyst", q(1, 1)),
		Producers: []string{"assembler"},
	})
	d.AddRecipe(&models.Recipe{
		ID:        "rocket-part",
		Time:      q(3, 1),
		In:        items("iron-plate", q(10, 1)),
		Out:       items("rocket-part", q(1, 1)),
		Producers: []string{"rocket-silo"},
	})
	d.AddRecipe(&models.Recipe{
		ID:        "rocket-launch",
		Time:      q(1, 1),
		In:        items("rocket-part", q(100, 1)),
		Out:       items("space-science", q(1000, 1)),
		Producers: []string{"rocket-silo"},
		Part:      "rocket-part",
	})

	return d
}

func newAdjuster() *Adjuster {
	return New(DefaultConfig())
}
