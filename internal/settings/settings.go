// Package settings resolves recipe settings against dataset defaults.
//
// Hydration fills the blanks of a stored settings list from the defaults;
// dehydration strips everything that matches the defaults so only user choices
// are persisted. Both are pure and never modify their arguments. An empty id
// and a nil count mean "not set".
package settings

import (
	"github.com/gravitas-games/factorylab/internal/fuel"
	"github.com/gravitas-games/factorylab/pkg/models"
	"github.com/gravitas-games/factorylab/pkg/rational"
)

// MachineRank returns the global machine ranking, or the dataset's when unset.
func MachineRank(g models.GlobalSettings, d *models.Dataset) []string {
	if len(g.MachineRankIDs) > 0 {
		return g.MachineRankIDs
	}
	return d.Defaults.MachineRankIDs
}

// ModuleRank returns the global module ranking, or the dataset's when unset.
func ModuleRank(g models.GlobalSettings, d *models.Dataset) []string {
	if len(g.ModuleRankIDs) > 0 {
		return g.ModuleRankIDs
	}
	return d.Defaults.ModuleRankIDs
}

// FuelRank returns the global fuel ranking, or the dataset's when unset.
func FuelRank(g models.GlobalSettings, d *models.Dataset) []string {
	if len(g.FuelRankIDs) > 0 {
		return g.FuelRankIDs
	}
	return d.Defaults.FuelRankIDs
}

// DefaultMachine picks the best ranked producer of a recipe.
func DefaultMachine(recipe *models.Recipe, ranked []string) string {
	if recipe == nil {
		return ""
	}
	return fuel.BestMatch(recipe.Producers, ranked)
}

// DefaultModules fills every slot of a machine with the best ranked module.
// Machines without module slots get no modules.
func DefaultModules(machine *models.Machine, ranked []string, d *models.Dataset) []models.ModuleSettings {
	if machine == nil || machine.Modules == nil {
		return nil
	}
	id := bestModule(machine, ranked, d)
	if id == "" {
		return nil
	}
	return []models.ModuleSettings{{ID: id, Count: copyQuantity(machine.Modules)}}
}

// DefaultBeacons returns the dataset's default beacon loadout for a machine.
func DefaultBeacons(machine *models.Machine, d *models.Dataset) []models.BeaconSettings {
	if machine == nil || machine.Modules == nil || d.Defaults.BeaconID == "" {
		return nil
	}
	beacon, ok := d.Beacons[d.Defaults.BeaconID]
	if !ok {
		return nil
	}

	b := models.BeaconSettings{
		ID:    beacon.ID,
		Count: rational.Or(d.Defaults.BeaconCount, rational.Zero).Ptr(),
	}
	if _, ok := d.Modules[d.Defaults.BeaconModuleID]; ok && beacon.Modules != nil {
		b.Modules = []models.ModuleSettings{{ID: d.Defaults.BeaconModuleID, Count: copyQuantity(beacon.Modules)}}
	}
	return []models.BeaconSettings{b}
}

// HydrateModules fills unset ids and counts from the default at the same index.
// A nil list takes the defaults as they are.
func HydrateModules(stored, defaults []models.ModuleSettings) []models.ModuleSettings {
	if stored == nil {
		return copyModules(defaults)
	}
	out := make([]models.ModuleSettings, len(stored))
	for i, m := range stored {
		out[i] = models.ModuleSettings{ID: m.ID, Count: copyQuantity(m.Count)}
		if i >= len(defaults) {
			continue
		}
		if out[i].ID == "" {
			out[i].ID = defaults[i].ID
		}
		if out[i].Count == nil {
			out[i].Count = copyQuantity(defaults[i].Count)
		}
	}
	return out
}

// DehydrateModules is the inverse of HydrateModules.
func DehydrateModules(hydrated, defaults []models.ModuleSettings) []models.ModuleSettings {
	if modulesEqual(hydrated, defaults) {
		return nil
	}
	out := make([]models.ModuleSettings, len(hydrated))
	for i, m := range hydrated {
		out[i] = models.ModuleSettings{ID: m.ID, Count: copyQuantity(m.Count)}
		if i >= len(defaults) {
			continue
		}
		if out[i].ID == defaults[i].ID {
			out[i].ID = ""
		}
		if out[i].Count.Equal(defaults[i].Count) {
			out[i].Count = nil
		}
	}
	return out
}

// HydrateBeacons fills unset beacon fields, including nested modules, from the
// default at the same index.
func HydrateBeacons(stored, defaults []models.BeaconSettings) []models.BeaconSettings {
	if stored == nil {
		return copyBeacons(defaults)
	}
	out := make([]models.BeaconSettings, len(stored))
	for i, b := range stored {
		var def models.BeaconSettings
		if i < len(defaults) {
			def = defaults[i]
		}
		out[i] = models.BeaconSettings{
			ID:      b.ID,
			Count:   copyRational(b.Count),
			Modules: HydrateModules(b.Modules, def.Modules),
		}
		if out[i].ID == "" {
			out[i].ID = def.ID
		}
		if out[i].Count == nil {
			out[i].Count = copyRational(def.Count)
		}
	}
	return out
}

// DehydrateBeacons is the inverse of HydrateBeacons.
func DehydrateBeacons(hydrated, defaults []models.BeaconSettings) []models.BeaconSettings {
	if beaconsEqual(hydrated, defaults) {
		return nil
	}
	out := make([]models.BeaconSettings, len(hydrated))
	for i, b := range hydrated {
		var def models.BeaconSettings
		if i < len(defaults) {
			def = defaults[i]
		}
		out[i] = models.BeaconSettings{
			ID:      b.ID,
			Count:   copyRational(b.Count),
			Modules: DehydrateModules(b.Modules, def.Modules),
		}
		if i >= len(defaults) {
			out[i].Modules = copyModules(b.Modules)
			continue
		}
		if out[i].ID == def.ID {
			out[i].ID = ""
		}
		if rationalEqual(out[i].Count, def.Count) {
			out[i].Count = nil
		}
	}
	return out
}

// CompactRecipe strips module and beacon entries equal to the recipe's
// defaults, leaving only explicit choices. Unknown recipes and machines
// without slots are returned unchanged.
func CompactRecipe(id string, s models.RecipeSettings, g models.GlobalSettings, d *models.Dataset) models.RecipeSettings {
	recipe, ok := d.Recipes[id]
	if !ok {
		return s
	}
	machineID := s.MachineID
	if machineID == "" {
		machineID = DefaultMachine(recipe, MachineRank(g, d))
	}
	machine, ok := d.Machines[machineID]
	if !ok || machine.Modules == nil {
		return s
	}

	modules := DefaultModules(machine, ModuleRank(g, d), d)
	beacons := DefaultBeacons(machine, d)
	s.Modules = DehydrateModules(HydrateModules(s.Modules, modules), modules)
	s.Beacons = DehydrateBeacons(HydrateBeacons(s.Beacons, beacons), beacons)
	return s
}

func bestModule(machine *models.Machine, ranked []string, d *models.Dataset) string {
	for _, id := range ranked {
		m, ok := d.Modules[id]
		if !ok || m.IsSpray() || !allowed(machine, m) {
			continue
		}
		return id
	}
	return ""
}

// allowed reports whether a module has at least one effect the machine accepts.
func allowed(machine *models.Machine, m *models.Module) bool {
	for _, e := range models.AllEffects() {
		if v, ok := m.Effect(e); ok && !v.IsZero() && !machine.Disallows(e) {
			return true
		}
	}
	return false
}

func modulesEqual(a, b []models.ModuleSettings) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || !a[i].Count.Equal(b[i].Count) {
			return false
		}
	}
	return true
}

func beaconsEqual(a, b []models.BeaconSettings) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID || !rationalEqual(a[i].Count, b[i].Count) || !modulesEqual(a[i].Modules, b[i].Modules) {
			return false
		}
	}
	return true
}

func rationalEqual(a, b *rational.Rational) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Eq(*b)
}

func copyModules(in []models.ModuleSettings) []models.ModuleSettings {
	if in == nil {
		return nil
	}
	out := make([]models.ModuleSettings, len(in))
	for i, m := range in {
		out[i] = models.ModuleSettings{ID: m.ID, Count: copyQuantity(m.Count)}
	}
	return out
}

func copyBeacons(in []models.BeaconSettings) []models.BeaconSettings {
	if in == nil {
		return nil
	}
	out := make([]models.BeaconSettings, len(in))
	for i, b := range in {
		out[i] = models.BeaconSettings{ID: b.ID, Count: copyRational(b.Count), Modules: copyModules(b.Modules)}
	}
	return out
}

func copyQuantity(q *models.Quantity) *models.Quantity {
	if q == nil {
		return nil
	}
	c := *q
	return &c
}

func copyRational(p *rational.Rational) *rational.Rational {
	if p == nil {
		return nil
	}
	return p.Ptr()
}
