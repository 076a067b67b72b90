package adjust

import (
	"github.com/gravitas-games/factorylab/pkg/models"
	"github.com/gravitas-games/factorylab/pkg/rational"
)

// power is the electrical draw of one adjusted recipe.
type power struct {
	consumption rational.Rational
	drain       *rational.Rational
}

// variant applies the machine rules that differ between games.
type variant interface {
	// module rewrites a machine-mounted module before aggregation.
	module(m *models.Module) *models.Module
	// overclock returns the speed factor from the settings.
	overclock(s models.RecipeSettings) rational.Rational
	// outputs returns the extra output multiplier.
	outputs(s models.RecipeSettings) rational.Rational
	// power adjusts the reported draw. mounted is true when the machine carries modules.
	power(p power, mounted bool) power
}

func variantFor(game models.Game) variant {
	switch game {
	case models.GameSatisfactory:
		return somersloop{}
	case models.GameFinalFactory:
		return duplicator{}
	default:
		return standard{}
	}
}

// standard covers factorio and dsp.
type standard struct{}

func (standard) module(m *models.Module) *models.Module { return m }

func (standard) overclock(s models.RecipeSettings) rational.Rational {
	return overclockFactor(s.Overclock)
}

func (standard) outputs(models.RecipeSettings) rational.Rational { return rational.One }

func (standard) power(p power, _ bool) power { return p }

// somersloop modules never change speed, and a machine holding one reports its
// whole draw as drain.
type somersloop struct{}

func (somersloop) module(m *models.Module) *models.Module {
	if m.Speed == nil {
		return m
	}
	c := *m
	c.Speed = nil
	return &c
}

func (somersloop) overclock(s models.RecipeSettings) rational.Rational {
	return overclockFactor(s.Overclock)
}

func (somersloop) outputs(models.RecipeSettings) rational.Rational { return rational.One }

func (somersloop) power(p power, mounted bool) power {
	if !mounted {
		return p
	}
	drain := p.consumption
	if p.drain != nil {
		drain = drain.Add(*p.drain)
	}
	return power{consumption: rational.Zero, drain: drain.Ptr()}
}

// duplicator replaces overclocking with a duplicator count on outputs.
type duplicator struct{}

func (duplicator) module(m *models.Module) *models.Module { return m }

func (duplicator) overclock(models.RecipeSettings) rational.Rational { return rational.One }

func (duplicator) outputs(s models.RecipeSettings) rational.Rational {
	if s.Duplicators == nil || s.Duplicators.Sign() <= 0 {
		return rational.One
	}
	return rational.One.Add(*s.Duplicators)
}

func (duplicator) power(p power, _ bool) power { return p }

// overclockFactor converts a percentage to a factor. Absent, zero or negative
// values mean 100%.
func overclockFactor(percent *rational.Rational) rational.Rational {
	if percent == nil || percent.Sign() <= 0 {
		return rational.One
	}
	return percent.Div(rational.FromInt(100))
}
