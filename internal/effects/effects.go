// Package effects combines machine modules and beacons into per-channel multipliers.
package effects

import (
	"github.com/gravitas-games/factorylab/pkg/models"
	"github.com/gravitas-games/factorylab/pkg/rational"
)

// DefaultFloor is the lowest multiplier any channel can reach.
var DefaultFloor = rational.New(1, 5)

// Mounted is a module and how many of it are installed.
type Mounted struct {
	Module *models.Module
	Count  rational.Rational
}

// Beacon is a group of identical beacons sharing one module loadout.
type Beacon struct {
	Effectivity rational.Rational
	Count       rational.Rational
	Modules     []Mounted
}

// Options controls aggregation for one machine.
type Options struct {
	Floor      rational.Rational
	Disallowed []models.Effect
	// Filter, when set, can rewrite a machine module before it is summed.
	// Beacon modules are not passed through it.
	Filter func(*models.Module) *models.Module
}

func (o Options) disallows(e models.Effect) bool {
	for _, d := range o.Disallowed {
		if d == e {
			return true
		}
	}
	return false
}

// Aggregate sums module and beacon deltas per channel and returns 1 + delta,
// clamped below at the floor. A zero Floor uses DefaultFloor.
func Aggregate(modules []Mounted, beacons []Beacon, opts Options) models.Effects {
	floor := opts.Floor
	if floor.IsZero() {
		floor = DefaultFloor
	}

	result := models.NeutralEffects()
	for _, channel := range models.AllEffects() {
		if opts.disallows(channel) {
			continue
		}

		delta := rational.Zero
		for _, m := range modules {
			mod := m.Module
			if opts.Filter != nil && mod != nil {
				mod = opts.Filter(mod)
			}
			delta = delta.Add(contribution(mod, channel, m.Count))
		}
		for _, b := range beacons {
			if b.Count.IsZero() || b.Effectivity.IsZero() {
				continue
			}
			factor := b.Effectivity.Mul(b.Count)
			for _, m := range b.Modules {
				delta = delta.Add(contribution(m.Module, channel, m.Count).Mul(factor))
			}
		}

		result = result.Set(channel, rational.One.Add(delta).Max(floor))
	}
	return result
}

func contribution(m *models.Module, channel models.Effect, count rational.Rational) rational.Rational {
	if m == nil || count.IsZero() {
		return rational.Zero
	}
	effect, ok := m.Effect(channel)
	if !ok {
		return rational.Zero
	}
	return effect.Mul(count)
}
