package adjust

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/gravitas-games/factorylab/internal/effects"
	"github.com/gravitas-games/factorylab/internal/fuel"
	"github.com/gravitas-games/factorylab/internal/proliferator"
	"github.com/gravitas-games/factorylab/internal/settings"
	"github.com/gravitas-games/factorylab/pkg/models"
	"github.com/gravitas-games/factorylab/pkg/rational"
)

var (
	hundred = rational.FromInt(100)
	sixty   = rational.FromInt(60)
	kJPerMJ = rational.FromInt(1000)
)

// AdjustRecipe computes the adjusted form of one recipe. The result is built
// fresh on every call and shares no maps with the dataset or settings.
func (a *Adjuster) AdjustRecipe(id string, s models.RecipeSettings, items map[string]models.ItemSettings, g models.GlobalSettings, d *models.Dataset) (*models.AdjustedRecipe, error) {
	recipe, ok := d.Recipes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecipe, id)
	}

	v := variantFor(g.ResolveGame(d))

	result := &models.AdjustedRecipe{
		ID:      id,
		In:      copyMap(recipe.In),
		Out:     make(map[string]rational.Rational, len(recipe.Out)),
		Time:    recipe.Time,
		Effects: models.NeutralEffects(),
		Part:    recipe.Part,
	}
	if recipe.Usage != nil {
		result.Usage = *recipe.Usage
	}

	machineID := s.MachineID
	if machineID == "" {
		machineID = settings.DefaultMachine(recipe, settings.MachineRank(g, d))
	}
	machine, ok := d.Machines[machineID]
	if !ok {
		if machineID != "" {
			log.Printf("Recipe %s: unknown machine %q, using nominal time", id, machineID)
		}
		result.Productivity = rational.One.Add(bonus(recipe, g))
		result.Consumption = result.Usage
		result.Time = result.Time.Max(a.cfg.MinTime)
		for item, qty := range recipe.Out {
			result.Out[item] = qty.Mul(result.Productivity)
		}
		finish(result, g)
		return result, nil
	}
	result.MachineID = machineID

	// Modules and beacons
	var mounted []effects.Mounted
	var beacons []effects.Beacon
	if machine.Modules != nil {
		result.Modules = settings.HydrateModules(s.Modules, settings.DefaultModules(machine, settings.ModuleRank(g, d), d))
		result.Beacons = settings.HydrateBeacons(s.Beacons, settings.DefaultBeacons(machine, d))
		mounted = mountModules(result.Modules, d)
		beacons = mountBeacons(result.Beacons, d)
		result.Modules = echoModules(result.Modules)
		result.Beacons = echoBeacons(result.Beacons)
	}

	sprayed := proliferator.Calculate(recipe.In, mounted, d, g.ProliferatorSprayID)
	result.In = sprayed.In

	result.Effects = effects.Aggregate(append(mounted, sprayed.Mounted...), beacons, effects.Options{
		Floor:      a.cfg.Floor,
		Disallowed: machine.DisallowedEffects,
		Filter:     v.module,
	})
	result.Productivity = result.Effects.Productivity.Add(bonus(recipe, g))

	// Time
	oc := v.overclock(s)
	speed := a.baseSpeed(recipe, machine, items, d)
	result.Time = recipe.Time.Div(speed.Mul(result.Effects.Speed).Mul(oc)).Max(a.cfg.MinTime)

	// Power
	if machine.OverrideUsage || recipe.Usage == nil {
		result.Usage = rational.Or(machine.Usage, rational.Zero)
	}
	factor := a.powerFactor(oc, machine)
	p := power{consumption: result.Usage.Mul(result.Effects.Consumption).Mul(factor)}
	if machine.Drain != nil {
		p.drain = machine.Drain.Mul(factor).Ptr()
	}
	p = v.power(p, len(mounted) > 0)
	result.Consumption = p.consumption
	result.Drain = p.drain

	if machine.Pollution != nil {
		result.Pollution = machine.Pollution.Div(sixty).Mul(result.Effects.Pollution).Mul(result.Effects.Consumption)
	}

	// Outputs
	outFactor := result.Productivity.Mul(v.outputs(s))
	for item, qty := range recipe.Out {
		result.Out[item] = qty.Mul(outFactor)
	}

	// Fixed machine consumption
	for item, rate := range machine.Consumption {
		result.In[item] = result.In[item].Add(rate.Mul(result.Time).Mul(a.cfg.TicksPerSecond))
	}

	// Fuel
	result.FuelID = fuel.Resolve(machine, s.FuelID, settings.FuelRank(g, d), d)
	if s.FuelID != "" && result.FuelID != "" && s.FuelID != result.FuelID {
		log.Printf("Recipe %s: fuel %q not usable by %s, using %q", id, s.FuelID, machineID, result.FuelID)
	}
	if result.FuelID != "" {
		if item, ok := d.Items[result.FuelID]; ok && item.Fuel != nil && item.Fuel.Value.Sign() > 0 {
			if result.Consumption.Sign() > 0 {
				burned := result.Consumption.Mul(result.Time).Div(item.Fuel.Value.Mul(kJPerMJ))
				result.In[result.FuelID] = result.In[result.FuelID].Add(burned)
			}
			result.Consumption = rational.Zero
		}
	}

	finish(result, g)
	return result, nil
}

// finish fills produces and applies net production.
func finish(result *models.AdjustedRecipe, g models.GlobalSettings) {
	for _, item := range sortedKeys(result.Out) {
		if result.Out[item].Gt(result.In[item]) {
			result.Produces = append(result.Produces, item)
		}
	}

	if g.NetProductionOnly {
		netProduction(result.In, result.Out)
		switch g.Flow {
		case models.FlowProduced:
			result.In = make(map[string]rational.Rational)
		case models.FlowConsumed:
			result.Out = make(map[string]rational.Rational)
		}
	}
}

// netProduction cancels items that appear on both sides.
func netProduction(in, out map[string]rational.Rational) {
	for item, a := range in {
		b, ok := out[item]
		if !ok {
			continue
		}
		switch a.Cmp(b) {
		case 0:
			delete(in, item)
			delete(out, item)
		case 1:
			in[item] = a.Sub(b)
			delete(out, item)
		default:
			out[item] = b.Sub(a)
			delete(in, item)
		}
	}
}

// baseSpeed returns the machine speed, or the belt-limited speed of machines
// without one. Zero or unresolvable speeds fall back to 1.
func (a *Adjuster) baseSpeed(recipe *models.Recipe, machine *models.Machine, items map[string]models.ItemSettings, d *models.Dataset) rational.Rational {
	if machine.Speed != nil {
		if machine.Speed.Sign() > 0 {
			return *machine.Speed
		}
		return rational.One
	}

	outputs := recipe.OutputIDs()
	if len(outputs) == 0 {
		return rational.One
	}
	first := outputs[0]
	qty := recipe.Out[first]
	if qty.Sign() <= 0 {
		return rational.One
	}

	rate, ok := transportRate(items[first], d)
	if !ok {
		return rational.One
	}

	speed := rate.Mul(recipe.Time).Div(qty)
	if speed.Sign() <= 0 {
		return rational.One
	}
	return speed
}

// transportRate returns the items per second an item is moved at. The item's
// own belt or wagon wins over the dataset defaults, and belts over wagons.
func transportRate(s models.ItemSettings, d *models.Dataset) (rational.Rational, bool) {
	if b, ok := d.Belts[s.BeltID]; ok {
		return b.Speed, true
	}
	if w, ok := d.Wagons[s.WagonID]; ok {
		return w.Speed, true
	}
	if b, ok := d.Belts[d.Defaults.BeltID]; ok {
		return b.Speed, true
	}
	if w, ok := d.Wagons[d.Defaults.WagonID]; ok {
		return w.Speed, true
	}
	return rational.Zero, false
}

// powerFactor scales power with overclock, following the machine's power
// curve when it declares one. The curve is evaluated in floating point and
// snapped back to the closest simple fraction.
func (a *Adjuster) powerFactor(oc rational.Rational, machine *models.Machine) rational.Rational {
	if machine.PowerExponent == nil || oc.Eq(rational.One) {
		return oc
	}
	x := math.Pow(oc.Float64(), machine.PowerExponent.Float64())
	return rational.FromFloat(x, a.cfg.Tolerance)
}

// bonus returns the research or mining productivity bonus as a delta.
func bonus(recipe *models.Recipe, g models.GlobalSettings) rational.Rational {
	switch {
	case recipe.IsTechnology:
		return g.ResearchBonus.Div(hundred)
	case recipe.IsMining:
		return g.MiningBonus.Div(hundred)
	}
	return rational.Zero
}

func mountModules(list []models.ModuleSettings, d *models.Dataset) []effects.Mounted {
	var mounted []effects.Mounted
	for _, m := range list {
		module, ok := d.Modules[m.ID]
		if !ok {
			continue
		}
		count := m.Count.Resolve()
		if count.IsZero() {
			continue
		}
		mounted = append(mounted, effects.Mounted{Module: module, Count: count})
	}
	return mounted
}

func mountBeacons(list []models.BeaconSettings, d *models.Dataset) []effects.Beacon {
	var beacons []effects.Beacon
	for _, b := range list {
		beacon, ok := d.Beacons[b.ID]
		if !ok {
			continue
		}
		beacons = append(beacons, effects.Beacon{
			Effectivity: beacon.Effectivity,
			Count:       rational.Or(b.Count, rational.Zero),
			Modules:     mountModules(b.Modules, d),
		})
	}
	return beacons
}

func echoModules(list []models.ModuleSettings) []models.ModuleSettings {
	for i := range list {
		list[i].Count = list[i].Count.Echo()
	}
	return list
}

func echoBeacons(list []models.BeaconSettings) []models.BeaconSettings {
	for i := range list {
		list[i].Modules = echoModules(list[i].Modules)
	}
	return list
}

func copyMap(m map[string]rational.Rational) map[string]rational.Rational {
	out := make(map[string]rational.Rational, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys(m map[string]rational.Rational) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
