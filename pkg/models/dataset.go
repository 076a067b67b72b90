package models

import (
	"sort"

	"github.com/gravitas-games/factorylab/pkg/rational"
)

// Game identifies the ruleset a dataset was extracted from.
type Game string

const (
	GameFactorio     Game = "factorio"
	GameDSP          Game = "dsp"
	GameSatisfactory Game = "satisfactory"
	GameFinalFactory Game = "finalfactory"
)

// Effect names one module effect channel.
type Effect string

const (
	EffectSpeed        Effect = "speed"
	EffectProductivity Effect = "productivity"
	EffectConsumption  Effect = "consumption"
	EffectPollution    Effect = "pollution"
	EffectQuality      Effect = "quality"
)

// AllEffects returns every channel in a fixed order.
func AllEffects() []Effect {
	return []Effect{EffectSpeed, EffectProductivity, EffectConsumption, EffectPollution, EffectQuality}
}

// Recipe is a static recipe definition.
type Recipe struct {
	ID           string                       `json:"id"`
	Name         string                       `json:"name,omitempty"`
	Category     string                       `json:"category,omitempty"`
	Time         rational.Rational            `json:"time"`
	In           map[string]rational.Rational `json:"in"`
	Out          map[string]rational.Rational `json:"out"`
	Producers    []string                     `json:"producers"`
	Usage        *rational.Rational           `json:"usage,omitempty"` // Fixed power, overrides the machine unless the machine says otherwise
	Cost         *rational.Rational           `json:"cost,omitempty"`
	IsTechnology bool                         `json:"isTechnology,omitempty"`
	IsMining     bool                         `json:"isMining,omitempty"`
	Part         string                       `json:"part,omitempty"` // Part recipe consumed by this launch recipe
}

// OutputIDs returns the output item ids in sorted order.
func (r *Recipe) OutputIDs() []string {
	return sortedKeys(r.Out)
}

// InputIDs returns the input item ids in sorted order.
func (r *Recipe) InputIDs() []string {
	return sortedKeys(r.In)
}

// Silo describes a launch machine that consumes a number of part crafts per launch.
type Silo struct {
	Parts rational.Rational `json:"parts"`
}

// Machine is a static producer definition.
type Machine struct {
	ID                string                       `json:"id"`
	Name              string                       `json:"name,omitempty"`
	Speed             *rational.Rational           `json:"speed,omitempty"` // nil: throughput follows the item's belt
	Usage             *rational.Rational           `json:"usage,omitempty"` // kW; negative values produce power
	Drain             *rational.Rational           `json:"drain,omitempty"`
	Pollution         *rational.Rational           `json:"pollution,omitempty"` // Per minute
	Modules           *Quantity                    `json:"modules,omitempty"`
	DisallowedEffects []Effect                     `json:"disallowedEffects,omitempty"`
	Fuel              string                       `json:"fuel,omitempty"`
	FuelCategories    []string                     `json:"fuelCategories,omitempty"`
	Consumption       map[string]rational.Rational `json:"consumption,omitempty"` // Items per tick
	OverrideUsage     bool                         `json:"overrideUsage,omitempty"`
	PowerExponent     *rational.Rational           `json:"powerExponent,omitempty"`
	Silo              *Silo                        `json:"silo,omitempty"`
}

// Disallows reports whether the machine blocks an effect channel.
func (m *Machine) Disallows(e Effect) bool {
	for _, d := range m.DisallowedEffects {
		if d == e {
			return true
		}
	}
	return false
}

// IsBurner reports whether the machine burns fuel items.
func (m *Machine) IsBurner() bool {
	return m.Fuel != "" || len(m.FuelCategories) > 0
}

// Module is a static module definition. Nil effect fields leave that channel untouched.
type Module struct {
	ID           string             `json:"id"`
	Name         string             `json:"name,omitempty"`
	Speed        *rational.Rational `json:"speed,omitempty"`
	Productivity *rational.Rational `json:"productivity,omitempty"`
	Consumption  *rational.Rational `json:"consumption,omitempty"`
	Pollution    *rational.Rational `json:"pollution,omitempty"`
	Quality      *rational.Rational `json:"quality,omitempty"`
	Sprays       *rational.Rational `json:"sprays,omitempty"`
	Proliferator string             `json:"proliferator,omitempty"`
}

// Effect returns the module's delta for a channel, and whether it is defined.
func (m *Module) Effect(e Effect) (rational.Rational, bool) {
	var p *rational.Rational
	switch e {
	case EffectSpeed:
		p = m.Speed
	case EffectProductivity:
		p = m.Productivity
	case EffectConsumption:
		p = m.Consumption
	case EffectPollution:
		p = m.Pollution
	case EffectQuality:
		p = m.Quality
	}
	if p == nil {
		return rational.Zero, false
	}
	return *p, true
}

// IsSpray reports whether the module is an active proliferator spray.
func (m *Module) IsSpray() bool {
	return m.Sprays != nil && m.Sprays.Sign() > 0
}

// SprayItem returns the item consumed when this module is sprayed.
func (m *Module) SprayItem() string {
	if m.Proliferator != "" {
		return m.Proliferator
	}
	return m.ID
}

// Beacon is a static beacon definition.
type Beacon struct {
	ID          string            `json:"id"`
	Name        string            `json:"name,omitempty"`
	Effectivity rational.Rational `json:"effectivity"`
	Modules     *Quantity         `json:"modules,omitempty"`
}

// Fuel describes a burnable item.
type Fuel struct {
	Category string            `json:"category"`
	Value    rational.Rational `json:"value"` // MJ
}

// Item is a static item definition.
type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Category string `json:"category,omitempty"`
	Fuel     *Fuel  `json:"fuel,omitempty"`
}

// Belt is a transport belt.
type Belt struct {
	ID    string            `json:"id"`
	Speed rational.Rational `json:"speed"` // Items per second
}

// Wagon is a cargo wagon, rated by the items per second a train line moves.
type Wagon struct {
	ID    string            `json:"id"`
	Speed rational.Rational `json:"speed"`
}

// Defaults holds dataset-level preferences used when settings leave a value out.
type Defaults struct {
	MachineRankIDs []string           `json:"machineRank,omitempty"`
	ModuleRankIDs  []string           `json:"moduleRank,omitempty"`
	FuelRankIDs    []string           `json:"fuelRank,omitempty"`
	BeaconID       string             `json:"beacon,omitempty"`
	BeaconCount    *rational.Rational `json:"beaconCount,omitempty"`
	BeaconModuleID string             `json:"beaconModule,omitempty"`
	BeltID         string             `json:"belt,omitempty"`
	WagonID        string             `json:"wagon,omitempty"`
}

// Dataset is the in-memory form of one game's static definitions.
type Dataset struct {
	Game      Game
	Items     map[string]*Item
	Recipes   map[string]*Recipe
	Machines  map[string]*Machine
	Modules   map[string]*Module
	Beacons   map[string]*Beacon
	Belts     map[string]*Belt
	Wagons    map[string]*Wagon
	Defaults  Defaults
	ItemIDs   []string // Declaration order
	RecipeIDs []string // Declaration order
	Digest    string   // sha256 of the source file
}

// NewDataset returns an empty dataset with allocated maps.
func NewDataset(game Game) *Dataset {
	return &Dataset{
		Game:     game,
		Items:    make(map[string]*Item),
		Recipes:  make(map[string]*Recipe),
		Machines: make(map[string]*Machine),
		Modules:  make(map[string]*Module),
		Beacons:  make(map[string]*Beacon),
		Belts:    make(map[string]*Belt),
		Wagons:   make(map[string]*Wagon),
	}
}

// AddItem registers an item, keeping declaration order.
func (d *Dataset) AddItem(item *Item) {
	if _, exists := d.Items[item.ID]; !exists {
		d.ItemIDs = append(d.ItemIDs, item.ID)
	}
	d.Items[item.ID] = item
}

// AddRecipe registers a recipe, keeping declaration order.
func (d *Dataset) AddRecipe(recipe *Recipe) {
	if _, exists := d.Recipes[recipe.ID]; !exists {
		d.RecipeIDs = append(d.RecipeIDs, recipe.ID)
	}
	d.Recipes[recipe.ID] = recipe
}

func sortedKeys(m map[string]rational.Rational) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
