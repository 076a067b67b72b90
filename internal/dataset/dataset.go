// Package dataset loads and validates game datasets.
package dataset

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"github.com/gravitas-games/factorylab/pkg/models"
	"github.com/gravitas-games/factorylab/pkg/rational"
)

// SchemaURL identifies the embedded dataset schema.
const SchemaURL = "https://factorylab.dev/schemas/dataset.schema.json"

// ErrInvalidDataset is returned when a dataset fails validation.
var ErrInvalidDataset = errors.New("invalid dataset")

//go:embed dataset.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(SchemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("failed to add schema: %w", err)
			return
		}
		schema, schemaErr = c.Compile(SchemaURL)
	})
	return schema, schemaErr
}

// Load reads, validates and parses a dataset file.
func Load(path string) (*models.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return Parse(data)
}

// Validate checks a dataset document against the schema.
func Validate(data []byte) error {
	s, err := compiled()
	if err != nil {
		return err
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	return nil
}

// Parse validates a dataset document and builds the in-memory dataset.
func Parse(data []byte) (*models.Dataset, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(data)
	d := models.NewDataset(models.Game(root.Get("game").String()))
	sum := sha256.Sum256(data)
	d.Digest = hex.EncodeToString(sum[:])

	var parseErr error
	root.Get("items").ForEach(func(_, v gjson.Result) bool {
		if err := parseItem(d, v); err != nil {
			parseErr = err
			return false
		}
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	root.Get("recipes").ForEach(func(_, v gjson.Result) bool {
		recipe, err := parseRecipe(v)
		if err != nil {
			parseErr = err
			return false
		}
		d.AddRecipe(recipe)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	if v := root.Get("defaults"); v.Exists() {
		if err := json.Unmarshal([]byte(v.Raw), &d.Defaults); err != nil {
			return nil, fmt.Errorf("%w: defaults: %v", ErrInvalidDataset, err)
		}
	}

	if err := check(d); err != nil {
		return nil, err
	}
	return d, nil
}

// parseItem registers an item and any machine, module, beacon, belt or wagon it defines.
func parseItem(d *models.Dataset, v gjson.Result) error {
	id := v.Get("id").String()
	item := &models.Item{
		ID:       id,
		Name:     v.Get("name").String(),
		Category: v.Get("category").String(),
	}

	if f := v.Get("fuel"); f.Exists() {
		item.Fuel = &models.Fuel{}
		if err := decode(f, item.Fuel); err != nil {
			return fmt.Errorf("%w: item %s fuel: %v", ErrInvalidDataset, id, err)
		}
	}
	if m := v.Get("machine"); m.Exists() {
		machine := &models.Machine{}
		if err := decode(m, machine); err != nil {
			return fmt.Errorf("%w: item %s machine: %v", ErrInvalidDataset, id, err)
		}
		machine.ID, machine.Name = id, item.Name
		d.Machines[id] = machine
	}
	if m := v.Get("module"); m.Exists() {
		module := &models.Module{}
		if err := decode(m, module); err != nil {
			return fmt.Errorf("%w: item %s module: %v", ErrInvalidDataset, id, err)
		}
		module.ID, module.Name = id, item.Name
		d.Modules[id] = module
	}
	if b := v.Get("beacon"); b.Exists() {
		beacon := &models.Beacon{}
		if err := decode(b, beacon); err != nil {
			return fmt.Errorf("%w: item %s beacon: %v", ErrInvalidDataset, id, err)
		}
		beacon.ID, beacon.Name = id, item.Name
		d.Beacons[id] = beacon
	}
	if b := v.Get("belt"); b.Exists() {
		speed, err := parseRational(b.Get("speed"))
		if err != nil {
			return fmt.Errorf("%w: item %s belt: %v", ErrInvalidDataset, id, err)
		}
		d.Belts[id] = &models.Belt{ID: id, Speed: speed}
	}
	if w := v.Get("wagon"); w.Exists() {
		speed, err := parseRational(w.Get("speed"))
		if err != nil {
			return fmt.Errorf("%w: item %s wagon: %v", ErrInvalidDataset, id, err)
		}
		d.Wagons[id] = &models.Wagon{ID: id, Speed: speed}
	}

	d.AddItem(item)
	return nil
}

func parseRecipe(v gjson.Result) (*models.Recipe, error) {
	id := v.Get("id").String()
	recipe := &models.Recipe{
		ID:           id,
		Name:         v.Get("name").String(),
		Category:     v.Get("category").String(),
		IsTechnology: v.Get("isTechnology").Bool(),
		IsMining:     v.Get("isMining").Bool(),
		Part:         v.Get("part").String(),
	}

	var err error
	if recipe.Time, err = parseRational(v.Get("time")); err != nil {
		return nil, fmt.Errorf("%w: recipe %s time: %v", ErrInvalidDataset, id, err)
	}
	if recipe.In, err = parseAmounts(v.Get("in")); err != nil {
		return nil, fmt.Errorf("%w: recipe %s inputs: %v", ErrInvalidDataset, id, err)
	}
	if recipe.Out, err = parseAmounts(v.Get("out")); err != nil {
		return nil, fmt.Errorf("%w: recipe %s outputs: %v", ErrInvalidDataset, id, err)
	}
	for _, p := range v.Get("producers").Array() {
		recipe.Producers = append(recipe.Producers, p.String())
	}
	if u := v.Get("usage"); u.Exists() {
		usage, err := parseRational(u)
		if err != nil {
			return nil, fmt.Errorf("%w: recipe %s usage: %v", ErrInvalidDataset, id, err)
		}
		recipe.Usage = &usage
	}
	if c := v.Get("cost"); c.Exists() {
		cost, err := parseRational(c)
		if err != nil {
			return nil, fmt.Errorf("%w: recipe %s cost: %v", ErrInvalidDataset, id, err)
		}
		recipe.Cost = &cost
	}
	return recipe, nil
}

func parseAmounts(v gjson.Result) (map[string]rational.Rational, error) {
	out := make(map[string]rational.Rational)
	var err error
	v.ForEach(func(k, qty gjson.Result) bool {
		var r rational.Rational
		if r, err = parseRational(qty); err != nil {
			return false
		}
		out[k.String()] = r
		return true
	})
	return out, err
}

// parseRational reads a number literal or fraction string without going
// through floating point.
func parseRational(v gjson.Result) (rational.Rational, error) {
	if v.Type == gjson.Number {
		return rational.Parse(v.Raw)
	}
	return rational.Parse(v.String())
}

func decode(v gjson.Result, target interface{}) error {
	return json.Unmarshal([]byte(v.Raw), target)
}

// check verifies cross references the schema cannot express.
func check(d *models.Dataset) error {
	for _, id := range d.RecipeIDs {
		r := d.Recipes[id]
		if r.Time.Sign() < 0 {
			return fmt.Errorf("%w: recipe %s has negative time", ErrInvalidDataset, id)
		}
		if r.Part != "" {
			if _, ok := d.Recipes[r.Part]; !ok {
				return fmt.Errorf("%w: recipe %s references unknown part %s", ErrInvalidDataset, id, r.Part)
			}
		}
	}
	if id := d.Defaults.BeaconID; id != "" {
		if _, ok := d.Beacons[id]; !ok {
			return fmt.Errorf("%w: default beacon %s is not a beacon", ErrInvalidDataset, id)
		}
	}
	if id := d.Defaults.BeltID; id != "" {
		if _, ok := d.Belts[id]; !ok {
			return fmt.Errorf("%w: default belt %s is not a belt", ErrInvalidDataset, id)
		}
	}
	if id := d.Defaults.WagonID; id != "" {
		if _, ok := d.Wagons[id]; !ok {
			return fmt.Errorf("%w: default wagon %s is not a wagon", ErrInvalidDataset, id)
		}
	}
	return nil
}
