package effects

import (
	"testing"

	"github.com/gravitas-games/factorylab/pkg/models"
	"github.com/gravitas-games/factorylab/pkg/rational"
)

func r(num, den int64) *rational.Rational {
	v := rational.New(num, den)
	return &v
}

var (
	speedModule = &models.Module{ID: "speed-module", Speed: r(1, 2), Consumption: r(7, 10)}
	prodModule  = &models.Module{ID: "productivity-module", Productivity: r(1, 10), Speed: r(-3, 20), Pollution: r(1, 10)}
	effModule   = &models.Module{ID: "efficiency-module", Consumption: r(-1, 2)}
)

func TestAggregateEmptyIsNeutral(t *testing.T) {
	got := Aggregate(nil, nil, Options{})
	for _, c := range models.AllEffects() {
		if !got.Get(c).Eq(rational.One) {
			t.Errorf("Expected %s multiplier 1, got %s", c, got.Get(c))
		}
	}
}

func TestAggregateMachineModules(t *testing.T) {
	got := Aggregate([]Mounted{
		{Module: speedModule, Count: rational.FromInt(1)},
		{Module: prodModule, Count: rational.FromInt(2)},
	}, nil, Options{})

	if want := rational.New(6, 5); !got.Speed.Eq(want) {
		t.Errorf("Expected speed %s, got %s", want, got.Speed)
	}
	if want := rational.New(6, 5); !got.Productivity.Eq(want) {
		t.Errorf("Expected productivity %s, got %s", want, got.Productivity)
	}
	// Productivity module has no consumption effect here
	if want := rational.New(17, 10); !got.Consumption.Eq(want) {
		t.Errorf("Expected consumption %s, got %s", want, got.Consumption)
	}
	if want := rational.New(6, 5); !got.Pollution.Eq(want) {
		t.Errorf("Expected pollution %s, got %s", want, got.Pollution)
	}
	if !got.Quality.Eq(rational.One) {
		t.Errorf("Expected quality 1, got %s", got.Quality)
	}
}

func TestAggregateBeacons(t *testing.T) {
	beacon := Beacon{
		Effectivity: rational.New(1, 2),
		Count:       rational.FromInt(8),
		Modules: []Mounted{
			{Module: speedModule, Count: rational.FromInt(2)},
		},
	}
	got := Aggregate(nil, []Beacon{beacon}, Options{})

	// 1 + 1/2 * 2 * 1/2 * 8
	if want := rational.FromInt(5); !got.Speed.Eq(want) {
		t.Errorf("Expected speed %s, got %s", want, got.Speed)
	}
	if want := rational.New(33, 5); !got.Consumption.Eq(want) {
		t.Errorf("Expected consumption %s, got %s", want, got.Consumption)
	}
}

func TestAggregateZeroBeaconCountIsIgnored(t *testing.T) {
	beacon := Beacon{
		Effectivity: rational.New(1, 2),
		Count:       rational.Zero,
		Modules:     []Mounted{{Module: speedModule, Count: rational.FromInt(2)}},
	}
	got := Aggregate(nil, []Beacon{beacon}, Options{})
	if !got.Speed.Eq(rational.One) {
		t.Errorf("Expected speed 1, got %s", got.Speed)
	}
}

func TestAggregateFloor(t *testing.T) {
	got := Aggregate([]Mounted{{Module: effModule, Count: rational.FromInt(4)}}, nil, Options{})
	if !got.Consumption.Eq(DefaultFloor) {
		t.Errorf("Expected consumption clamped to %s, got %s", DefaultFloor, got.Consumption)
	}

	custom := rational.New(1, 2)
	got = Aggregate([]Mounted{{Module: effModule, Count: rational.FromInt(4)}}, nil, Options{Floor: custom})
	if !got.Consumption.Eq(custom) {
		t.Errorf("Expected consumption clamped to %s, got %s", custom, got.Consumption)
	}
}

func TestAggregateFloorHoldsForEveryConfiguration(t *testing.T) {
	slow := &models.Module{ID: "slow", Speed: r(-9, 10), Productivity: r(-9, 10), Consumption: r(-9, 10), Pollution: r(-9, 10), Quality: r(-9, 10)}
	for count := int64(0); count <= 6; count++ {
		for beacons := int64(0); beacons <= 4; beacons++ {
			got := Aggregate(
				[]Mounted{{Module: slow, Count: rational.FromInt(count)}},
				[]Beacon{{Effectivity: rational.One, Count: rational.FromInt(beacons), Modules: []Mounted{{Module: slow, Count: rational.One}}}},
				Options{},
			)
			for _, c := range models.AllEffects() {
				if got.Get(c).Lt(DefaultFloor) {
					t.Fatalf("count=%d beacons=%d: %s multiplier %s below floor", count, beacons, c, got.Get(c))
				}
			}
		}
	}
}

func TestAggregateDisallowedChannel(t *testing.T) {
	got := Aggregate(
		[]Mounted{{Module: prodModule, Count: rational.One}},
		nil,
		Options{Disallowed: []models.Effect{models.EffectProductivity}},
	)
	if !got.Productivity.Eq(rational.One) {
		t.Errorf("Expected productivity locked at 1, got %s", got.Productivity)
	}
	if want := rational.New(17, 20); !got.Speed.Eq(want) {
		t.Errorf("Expected speed %s, got %s", want, got.Speed)
	}
}

func TestAggregateFilter(t *testing.T) {
	noSpeed := func(m *models.Module) *models.Module {
		c := *m
		c.Speed = nil
		return &c
	}
	got := Aggregate([]Mounted{{Module: speedModule, Count: rational.One}}, nil, Options{Filter: noSpeed})
	if !got.Speed.Eq(rational.One) {
		t.Errorf("Expected filtered speed 1, got %s", got.Speed)
	}
	if want := rational.New(17, 10); !got.Consumption.Eq(want) {
		t.Errorf("Expected consumption %s, got %s", want, got.Consumption)
	}
	if speedModule.Speed == nil {
		t.Fatal("Filter mutated the source module")
	}
}

func TestAggregateUnlimitedResolvesToZero(t *testing.T) {
	got := Aggregate([]Mounted{{Module: speedModule, Count: models.Unlimited().Resolve()}}, nil, Options{})
	if !got.Speed.Eq(rational.One) {
		t.Errorf("Expected unlimited count to contribute nothing, got speed %s", got.Speed)
	}
}
