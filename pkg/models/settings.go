package models

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gravitas-games/factorylab/pkg/rational"
)

// UnlimitedToken is the text form of an unlimited quantity.
const UnlimitedToken = "unlimited"

// Quantity is a module or slot count. Absence is a nil *Quantity; a present value
// is either a finite count or unlimited, never both.
type Quantity struct {
	Unlimited bool
	Count     rational.Rational
}

// Count returns a finite quantity.
func Count(n rational.Rational) *Quantity {
	return &Quantity{Count: n}
}

// Unlimited returns the unlimited marker.
func Unlimited() *Quantity {
	return &Quantity{Unlimited: true}
}

// Resolve returns the count used for effect math. Absent and unlimited both resolve to zero.
func (q *Quantity) Resolve() rational.Rational {
	if q == nil || q.Unlimited {
		return rational.Zero
	}
	return q.Count
}

// Echo returns the quantity as reported back to clients: unlimited becomes a zero-count placeholder.
func (q *Quantity) Echo() *Quantity {
	if q == nil {
		return nil
	}
	if q.Unlimited {
		return Count(rational.Zero)
	}
	return Count(q.Count)
}

// Equal compares two quantities, treating nil as its own state.
func (q *Quantity) Equal(o *Quantity) bool {
	if q == nil || o == nil {
		return q == nil && o == nil
	}
	if q.Unlimited || o.Unlimited {
		return q.Unlimited == o.Unlimited
	}
	return q.Count.Eq(o.Count)
}

func (q *Quantity) String() string {
	if q == nil {
		return ""
	}
	if q.Unlimited {
		return UnlimitedToken
	}
	return q.Count.String()
}

func (q *Quantity) parse(s string) error {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, UnlimitedToken) {
		*q = Quantity{Unlimited: true}
		return nil
	}
	n, err := rational.Parse(s)
	if err != nil {
		return err
	}
	*q = Quantity{Count: n}
	return nil
}

// MarshalJSON writes "unlimited" or the count string.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}

// UnmarshalJSON reads "unlimited", a count string or a number.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	s := string(data)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	}
	return q.parse(s)
}

// MarshalYAML writes "unlimited" or the count string.
func (q Quantity) MarshalYAML() (interface{}, error) {
	return q.String(), nil
}

// UnmarshalYAML reads the same forms as UnmarshalJSON.
func (q *Quantity) UnmarshalYAML(value *yaml.Node) error {
	return q.parse(value.Value)
}

// ModuleSettings is one module entry in a machine or beacon.
type ModuleSettings struct {
	ID    string    `json:"id" yaml:"id"`
	Count *Quantity `json:"count,omitempty" yaml:"count,omitempty"`
}

// BeaconSettings is one beacon group affecting a machine.
type BeaconSettings struct {
	ID      string             `json:"id" yaml:"id"`
	Count   *rational.Rational `json:"count,omitempty" yaml:"count,omitempty"`
	Modules []ModuleSettings   `json:"modules" yaml:"modules,omitempty"`
}

// RecipeSettings is the per-recipe user configuration.
// A nil Modules or Beacons list means "use defaults"; an empty one means none,
// so both lists encode null rather than being omitted.
type RecipeSettings struct {
	MachineID   string             `json:"machine,omitempty" yaml:"machine,omitempty"`
	FuelID      string             `json:"fuel,omitempty" yaml:"fuel,omitempty"`
	Modules     []ModuleSettings   `json:"modules" yaml:"modules,omitempty"`
	Beacons     []BeaconSettings   `json:"beacons" yaml:"beacons,omitempty"`
	Overclock   *rational.Rational `json:"overclock,omitempty" yaml:"overclock,omitempty"` // Percent
	Duplicators *rational.Rational `json:"duplicators,omitempty" yaml:"duplicators,omitempty"`
	Cost        *rational.Rational `json:"cost,omitempty" yaml:"cost,omitempty"`
	Machines    *rational.Rational `json:"machines,omitempty" yaml:"machines,omitempty"` // Machines sharing a part recipe
}

// ItemSettings is the per-item user configuration.
type ItemSettings struct {
	BeltID  string `json:"belt,omitempty" yaml:"belt,omitempty"`
	WagonID string `json:"wagon,omitempty" yaml:"wagon,omitempty"`
}

// Flow restricts net production to one side of each recipe.
type Flow string

const (
	FlowAll      Flow = ""
	FlowProduced Flow = "produced"
	FlowConsumed Flow = "consumed"
)

// CostSettings weights the recipe cost used as a solver tie-break.
type CostSettings struct {
	Factor  rational.Rational `json:"factor" yaml:"factor"`
	Machine rational.Rational `json:"machine" yaml:"machine"`
	Module  rational.Rational `json:"module" yaml:"module"`
	Beacon  rational.Rational `json:"beacon" yaml:"beacon"`
}

// DefaultCostSettings returns a factor of 1 and one unit per machine.
func DefaultCostSettings() CostSettings {
	return CostSettings{
		Factor:  rational.One,
		Machine: rational.One,
	}
}

// GlobalSettings applies to every recipe.
type GlobalSettings struct {
	Game                Game              `json:"game,omitempty" yaml:"game,omitempty"`
	ResearchBonus       rational.Rational `json:"researchBonus" yaml:"research_bonus"` // Percent
	MiningBonus         rational.Rational `json:"miningBonus" yaml:"mining_bonus"`     // Percent
	NetProductionOnly   bool              `json:"netProductionOnly,omitempty" yaml:"net_production_only,omitempty"`
	Flow                Flow              `json:"flow,omitempty" yaml:"flow,omitempty"`
	ProliferatorSprayID string            `json:"proliferatorSpray,omitempty" yaml:"proliferator_spray,omitempty"`
	MachineRankIDs      []string          `json:"machineRank,omitempty" yaml:"machine_rank,omitempty"`
	ModuleRankIDs       []string          `json:"moduleRank,omitempty" yaml:"module_rank,omitempty"`
	FuelRankIDs         []string          `json:"fuelRank,omitempty" yaml:"fuel_rank,omitempty"`
	Costs               CostSettings      `json:"costs" yaml:"costs"`
}

// ResolveGame returns the active game, falling back to the dataset's.
func (g GlobalSettings) ResolveGame(d *Dataset) Game {
	if g.Game != "" {
		return g.Game
	}
	if d != nil {
		return d.Game
	}
	return GameFactorio
}
