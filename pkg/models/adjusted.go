package models

import "github.com/gravitas-games/factorylab/pkg/rational"

// Effects holds the net multiplier of every effect channel.
type Effects struct {
	Speed        rational.Rational `json:"speed"`
	Productivity rational.Rational `json:"productivity"`
	Consumption  rational.Rational `json:"consumption"`
	Pollution    rational.Rational `json:"pollution"`
	Quality      rational.Rational `json:"quality"`
}

// NeutralEffects returns a multiplier of 1 on every channel.
func NeutralEffects() Effects {
	return Effects{
		Speed:        rational.One,
		Productivity: rational.One,
		Consumption:  rational.One,
		Pollution:    rational.One,
		Quality:      rational.One,
	}
}

// Get returns the multiplier for a channel.
func (e Effects) Get(c Effect) rational.Rational {
	switch c {
	case EffectSpeed:
		return e.Speed
	case EffectProductivity:
		return e.Productivity
	case EffectConsumption:
		return e.Consumption
	case EffectPollution:
		return e.Pollution
	case EffectQuality:
		return e.Quality
	}
	return rational.One
}

// Set returns a copy with one channel replaced.
func (e Effects) Set(c Effect, v rational.Rational) Effects {
	switch c {
	case EffectSpeed:
		e.Speed = v
	case EffectProductivity:
		e.Productivity = v
	case EffectConsumption:
		e.Consumption = v
	case EffectPollution:
		e.Pollution = v
	case EffectQuality:
		e.Quality = v
	}
	return e
}

// AdjustedRecipe is a recipe after every modifier has been applied.
// It is rebuilt on each adjustment pass; only the cost pass writes to it afterwards.
type AdjustedRecipe struct {
	ID           string                       `json:"id"`
	MachineID    string                       `json:"machine,omitempty"`
	In           map[string]rational.Rational `json:"in"`
	Out          map[string]rational.Rational `json:"out"`
	Time         rational.Rational            `json:"time"`
	Drain        *rational.Rational           `json:"drain,omitempty"`
	Consumption  rational.Rational            `json:"consumption"`
	Pollution    rational.Rational            `json:"pollution"`
	Productivity rational.Rational            `json:"productivity"`
	Effects      Effects                      `json:"effects"`
	Produces     []string                     `json:"produces,omitempty"`
	Cost         rational.Rational            `json:"cost"`
	FuelID       string                       `json:"fuel,omitempty"`
	Usage        rational.Rational            `json:"usage"`
	Modules      []ModuleSettings             `json:"modules,omitempty"`
	Beacons      []BeaconSettings             `json:"beacons,omitempty"`
	Part         string                       `json:"part,omitempty"`
}

// AdjustedDataset maps recipe id to its adjusted form.
type AdjustedDataset map[string]*AdjustedRecipe
