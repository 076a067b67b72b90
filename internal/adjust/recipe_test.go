package adjust

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/gravitas-games/factorylab/pkg/models"
	"github.com/gravitas-games/factorylab/pkg/rational"
)

func adjust(t *testing.T, id string, s models.RecipeSettings, g models.GlobalSettings) *models.AdjustedRecipe {
	t.Helper()
	result, err := newAdjuster().AdjustRecipe(id, s, nil, g, newDataset())
	if err != nil {
		t.Fatalf("AdjustRecipe(%s) failed: %v", id, err)
	}
	return result
}

func expectRational(t *testing.T, field string, got, want rational.Rational) {
	t.Helper()
	if !got.Eq(want) {
		t.Errorf("Expected %s %s, got %s", field, want, got)
	}
}

func TestAdjustRecipeModulesAndBeacons(t *testing.T) {
	s := models.RecipeSettings{
		MachineID: "assembler",
		Modules: modules(
			"speed-module", count(1),
			"productivity-module", count(1),
			"efficiency-module", count(1),
		),
		Beacons: []models.BeaconSettings{{
			ID:      "beacon",
			Count:   rational.Zero.Ptr(),
			Modules: modules("speed-module", count(2)),
		}},
	}
	g := models.GlobalSettings{MiningBonus: q(200, 1)}

	result := adjust(t, "iron-ore", s, g)

	expectRational(t, "output", result.Out["iron-ore"], q(76, 25))
	expectRational(t, "time", result.Time, q(40, 81))
	expectRational(t, "consumption", result.Consumption, q(255, 1))
	expectRational(t, "pollution", result.Pollution, q(1037, 4000))
	expectRational(t, "productivity", result.Productivity, q(76, 25))
	if result.Drain == nil {
		t.Fatal("Expected drain to be set")
	}
	expectRational(t, "drain", *result.Drain, q(5, 1))
	if result.MachineID != "assembler" {
		t.Errorf("Expected machine assembler, got %q", result.MachineID)
	}
	if len(result.Modules) != 3 || len(result.Beacons) != 1 {
		t.Errorf("Expected settings echoed back, got %d modules and %d beacons", len(result.Modules), len(result.Beacons))
	}
}

func TestAdjustRecipeOverclockPowerCurve(t *testing.T) {
	base := adjust(t, "gear", models.RecipeSettings{MachineID: "overclocker", Overclock: p(100, 1)}, models.GlobalSettings{})
	expectRational(t, "time at 100%", base.Time, q(4, 1))
	expectRational(t, "consumption at 100%", base.Consumption, q(150, 1))

	doubled := adjust(t, "gear", models.RecipeSettings{MachineID: "overclocker", Overclock: p(200, 1)}, models.GlobalSettings{})
	expectRational(t, "time at 200%", doubled.Time, base.Time.Div(q(2, 1)))
	expectRational(t, "consumption at 200%", doubled.Consumption, q(136838616, 364903))
}

func TestAdjustRecipeLinearOverclock(t *testing.T) {
	result := adjust(t, "gear", models.RecipeSettings{MachineID: "assembler", Overclock: p(250, 1)}, models.GlobalSettings{})
	expectRational(t, "time", result.Time, q(8, 5))
	expectRational(t, "consumption", result.Consumption, q(375, 1))
	expectRational(t, "drain", *result.Drain, q(25, 2))
}

func TestAdjustRecipeZeroOverclockIsIgnored(t *testing.T) {
	result := adjust(t, "gear", models.RecipeSettings{MachineID: "assembler", Overclock: p(0, 1)}, models.GlobalSettings{})
	expectRational(t, "time", result.Time, q(4, 1))
}

func TestAdjustRecipeMinimumTime(t *testing.T) {
	result := adjust(t, "fast-gear", models.RecipeSettings{}, models.GlobalSettings{})
	expectRational(t, "time", result.Time, q(1, 60))
}

func TestAdjustRecipeTimeNeverBelowMinimum(t *testing.T) {
	d := newDataset()
	a := newAdjuster()
	for _, id := range d.RecipeIDs {
		for n := int64(0); n <= 8; n++ {
			s := models.RecipeSettings{Modules: modules("speed-module", count(n))}
			result, err := a.AdjustRecipe(id, s, nil, models.GlobalSettings{}, d)
			if err != nil {
				t.Fatalf("AdjustRecipe(%s) failed: %v", id, err)
			}
			if result.Time.Lt(a.Config().MinTime) {
				t.Errorf("%s with %d speed modules: time %s below minimum", id, n, result.Time)
			}
		}
	}
}

func TestAdjustRecipeEffectFloor(t *testing.T) {
	result := adjust(t, "gear", models.RecipeSettings{MachineID: "assembler", Modules: modules("slow-module", count(4))}, models.GlobalSettings{})
	for _, c := range models.AllEffects() {
		expectRational(t, string(c), result.Effects.Get(c), q(1, 5))
	}
	expectRational(t, "time", result.Time, q(20, 1))
	expectRational(t, "consumption", result.Consumption, q(30, 1))
}

func TestAdjustRecipeIdempotent(t *testing.T) {
	d := newDataset()
	a := newAdjuster()
	s := models.RecipeSettings{
		Modules: modules("speed-module", count(2), "productivity-module", models.Unlimited()),
		Beacons: []models.BeaconSettings{{ID: "beacon", Count: p(4, 1), Modules: modules("speed-module", count(2))}},
	}
	g := models.GlobalSettings{MiningBonus: q(30, 1), NetProductionOnly: true}

	for _, id := range d.RecipeIDs {
		first, err := a.AdjustRecipe(id, s, nil, g, d)
		if err != nil {
			t.Fatalf("AdjustRecipe(%s) failed: %v", id, err)
		}
		second, err := a.AdjustRecipe(id, s, nil, g, d)
		if err != nil {
			t.Fatalf("AdjustRecipe(%s) failed: %v", id, err)
		}
		a1, _ := json.Marshal(first)
		a2, _ := json.Marshal(second)
		if string(a1) != string(a2) {
			t.Errorf("%s: Expected identical results, got\n%s\n%s", id, a1, a2)
		}
	}
}

func TestAdjustRecipeUnknownRecipe(t *testing.T) {
	_, err := newAdjuster().AdjustRecipe("nope", models.RecipeSettings{}, nil, models.GlobalSettings{}, newDataset())
	if !errors.Is(err, ErrUnknownRecipe) {
		t.Errorf("Expected ErrUnknownRecipe, got %v", err)
	}
}

func TestAdjustRecipeUnknownMachine(t *testing.T) {
	result := adjust(t, "gear", models.RecipeSettings{MachineID: "nope", Overclock: p(200, 1)}, models.GlobalSettings{})
	if result.MachineID != "" {
		t.Errorf("Expected no machine, got %q", result.MachineID)
	}
	expectRational(t, "time", result.Time, q(4, 1))
	expectRational(t, "output", result.Out["gear"], q(1, 1))
	expectRational(t, "consumption", result.Consumption, rational.Zero)
	if result.Drain != nil {
		t.Errorf("Expected no drain, got %s", result.Drain)
	}
}

func TestAdjustRecipeUnknownModulesIgnored(t *testing.T) {
	result := adjust(t, "gear", models.RecipeSettings{
		MachineID: "assembler",
		Modules:   modules("bogus", count(2), "speed-module", count(1)),
	}, models.GlobalSettings{})
	expectRational(t, "time", result.Time, q(8, 3))
	if len(result.Modules) != 2 || result.Modules[0].ID != "bogus" {
		t.Errorf("Expected unknown module echoed back, got %+v", result.Modules)
	}
}

func TestAdjustRecipeUnlimitedModulesEchoAsZero(t *testing.T) {
	result := adjust(t, "gear", models.RecipeSettings{
		MachineID: "assembler",
		Modules:   modules("speed-module", models.Unlimited()),
	}, models.GlobalSettings{})
	expectRational(t, "time", result.Time, q(4, 1))
	got := result.Modules[0].Count
	if got == nil || got.Unlimited || !got.Count.IsZero() {
		t.Errorf("Expected zero-count placeholder, got %v", got)
	}
}

func TestAdjustRecipeBeltSpeed(t *testing.T) {
	result := adjust(t, "belt-ore", models.RecipeSettings{}, models.GlobalSettings{})
	expectRational(t, "time", result.Time, q(2, 15))

	d := newDataset()
	d.Belts["fast-belt"] = &models.Belt{ID: "fast-belt", Speed: q(30, 1)}
	itemSettings := map[string]models.ItemSettings{"iron-ore": {BeltID: "fast-belt"}}
	result, err := newAdjuster().AdjustRecipe("belt-ore", models.RecipeSettings{}, itemSettings, models.GlobalSettings{}, d)
	if err != nil {
		t.Fatalf("AdjustRecipe failed: %v", err)
	}
	expectRational(t, "time with item belt", result.Time, q(1, 15))

	delete(d.Belts, "belt")
	result, err = newAdjuster().AdjustRecipe("belt-ore", models.RecipeSettings{}, nil, models.GlobalSettings{}, d)
	if err != nil {
		t.Fatalf("AdjustRecipe failed: %v", err)
	}
	expectRational(t, "time without belt", result.Time, q(1, 1))
}

func TestAdjustRecipeWagonSpeed(t *testing.T) {
	d := newDataset()
	d.Wagons["cargo-wagon"] = &models.Wagon{ID: "cargo-wagon", Speed: q(40, 1)}

	// Item wagon wins over the default belt
	itemSettings := map[string]models.ItemSettings{"iron-ore": {WagonID: "cargo-wagon"}}
	result, err := newAdjuster().AdjustRecipe("belt-ore", models.RecipeSettings{}, itemSettings, models.GlobalSettings{}, d)
	if err != nil {
		t.Fatalf("AdjustRecipe failed: %v", err)
	}
	// 1 / (40 * 1 / 2)
	expectRational(t, "time with item wagon", result.Time, q(1, 20))

	// Item belt wins over item wagon
	itemSettings["iron-ore"] = models.ItemSettings{BeltID: "belt", WagonID: "cargo-wagon"}
	result, _ = newAdjuster().AdjustRecipe("belt-ore", models.RecipeSettings{}, itemSettings, models.GlobalSettings{}, d)
	expectRational(t, "time with item belt", result.Time, q(2, 15))

	// Default wagon when no belt resolves
	delete(d.Belts, "belt")
	d.Defaults.WagonID = "cargo-wagon"
	result, _ = newAdjuster().AdjustRecipe("belt-ore", models.RecipeSettings{}, nil, models.GlobalSettings{}, d)
	expectRational(t, "time with default wagon", result.Time, q(1, 20))
}

func TestAdjustRecipeResearchBonus(t *testing.T) {
	g := models.GlobalSettings{ResearchBonus: q(50, 1), MiningBonus: q(100, 1)}
	result := adjust(t, "automation", models.RecipeSettings{}, g)
	expectRational(t, "productivity", result.Productivity, q(3, 2))
	expectRational(t, "output", result.Out["automation"], q(3, 2))

	// Neither bonus applies to ordinary recipes
	result = adjust(t, "gear", models.RecipeSettings{}, g)
	expectRational(t, "productivity", result.Productivity, q(1, 1))
}

func TestAdjustRecipeBurnerFuel(t *testing.T) {
	result := adjust(t, "iron-plate", models.RecipeSettings{}, models.GlobalSettings{})
	if result.FuelID != "coal" {
		t.Fatalf("Expected ranked fuel coal, got %q", result.FuelID)
	}
	expectRational(t, "time", result.Time, q(8, 5))
	expectRational(t, "coal", result.In["coal"], q(9, 250))
	expectRational(t, "consumption", result.Consumption, rational.Zero)

	result = adjust(t, "iron-plate", models.RecipeSettings{FuelID: "wood"}, models.GlobalSettings{})
	if result.FuelID != "wood" {
		t.Fatalf("Expected requested fuel wood, got %q", result.FuelID)
	}
	expectRational(t, "wood", result.In["wood"], q(9, 125))

	result = adjust(t, "iron-plate", models.RecipeSettings{FuelID: "iron-plate"}, models.GlobalSettings{})
	if result.FuelID != "coal" {
		t.Errorf("Expected incompatible fuel to fall back to coal, got %q", result.FuelID)
	}
}

func TestAdjustRecipeFixedConsumption(t *testing.T) {
	result := adjust(t, "crude", models.RecipeSettings{}, models.GlobalSettings{})
	expectRational(t, "water", result.In["water"], q(60, 1))
}

func TestAdjustRecipeNegativeUsage(t *testing.T) {
	result := adjust(t, "steam-power", models.RecipeSettings{}, models.GlobalSettings{})
	expectRational(t, "consumption", result.Consumption, q(-900, 1))
}

func TestAdjustRecipeNetProduction(t *testing.T) {
	g := models.GlobalSettings{NetProductionOnly: true}

	result := adjust(t, "kovarex", models.RecipeSettings{}, g)
	if _, ok := result.In["u235"]; ok {
		t.Errorf("Expected u235 input netted out, got %s", result.In["u235"])
	}
	expectRational(t, "u235 output", result.Out["u235"], q(1, 1))
	if _, ok := result.Out["u238"]; ok {
		t.Errorf("Expected u238 output netted out, got %s", result.Out["u238"])
	}
	expectRational(t, "u238 input", result.In["u238"], q(3, 1))
	if len(result.Produces) != 1 || result.Produces[0] != "u235" {
		t.Errorf("Expected produces [u235], got %v", result.Produces)
	}

	result = adjust(t, "catalyst", models.RecipeSettings{}, g)
	if _, ok := result.In["catalyst"]; ok {
		t.Error("Expected equal catalyst removed from inputs")
	}
	if _, ok := result.Out["catalyst"]; ok {
		t.Error("Expected equal catalyst removed from outputs")
	}
	expectRational(t, "iron-ore input", result.In["iron-ore"], q(1, 1))

	// Without net production both sides are kept
	result = adjust(t, "kovarex", models.RecipeSettings{}, models.GlobalSettings{})
	expectRational(t, "u235 input", result.In["u235"], q(40, 1))
	expectRational(t, "u235 output", result.Out["u235"], q(41, 1))
}

func TestAdjustRecipeFlow(t *testing.T) {
	produced := adjust(t, "kovarex", models.RecipeSettings{}, models.GlobalSettings{NetProductionOnly: true, Flow: models.FlowProduced})
	if len(produced.In) != 0 {
		t.Errorf("Expected no inputs, got %v", produced.In)
	}
	expectRational(t, "u235 output", produced.Out["u235"], q(1, 1))

	consumed := adjust(t, "kovarex", models.RecipeSettings{}, models.GlobalSettings{NetProductionOnly: true, Flow: models.FlowConsumed})
	if len(consumed.Out) != 0 {
		t.Errorf("Expected no outputs, got %v", consumed.Out)
	}
	expectRational(t, "u238 input", consumed.In["u238"], q(3, 1))
}

func TestAdjustRecipeSomersloop(t *testing.T) {
	g := models.GlobalSettings{Game: models.GameSatisfactory}

	result := adjust(t, "gear", models.RecipeSettings{MachineID: "constructor", Modules: modules("somersloop", count(1))}, g)
	expectRational(t, "speed", result.Effects.Speed, q(1, 1))
	expectRational(t, "time", result.Time, q(4, 1))
	expectRational(t, "output", result.Out["gear"], q(2, 1))
	expectRational(t, "consumption", result.Consumption, rational.Zero)
	if result.Drain == nil {
		t.Fatal("Expected power reported as drain")
	}
	expectRational(t, "drain", *result.Drain, q(16, 1))

	plain := adjust(t, "gear", models.RecipeSettings{MachineID: "constructor"}, g)
	expectRational(t, "consumption", plain.Consumption, q(4, 1))
	if plain.Drain != nil {
		t.Errorf("Expected no drain without modules, got %s", plain.Drain)
	}
}

func TestAdjustRecipeDuplicator(t *testing.T) {
	g := models.GlobalSettings{Game: models.GameFinalFactory}
	result := adjust(t, "gear", models.RecipeSettings{
		MachineID:   "overclocker",
		Overclock:   p(200, 1),
		Duplicators: p(2, 1),
	}, g)
	expectRational(t, "time", result.Time, q(4, 1))
	expectRational(t, "consumption", result.Consumption, q(150, 1))
	expectRational(t, "output", result.Out["gear"], q(3, 1))
}

func TestAdjustRecipeDoesNotModifyDataset(t *testing.T) {
	d := newDataset()
	s := models.RecipeSettings{Modules: modules("productivity-module", count(4))}
	if _, err := newAdjuster().AdjustRecipe("gear", s, nil, models.GlobalSettings{NetProductionOnly: true}, d); err != nil {
		t.Fatalf("AdjustRecipe failed: %v", err)
	}
	expectRational(t, "recipe output", d.Recipes["gear"].Out["gear"], q(1, 1))
	expectRational(t, "recipe input", d.Recipes["gear"].In["iron-plate"], q(2, 1))
	if !s.Modules[0].Count.Equal(count(4)) {
		t.Errorf("Expected settings unchanged, got %s", s.Modules[0].Count)
	}
}
