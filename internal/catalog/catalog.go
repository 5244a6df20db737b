// Package catalog holds the fixed set of placeable flowers, leaves and
// accessories. The list is embedded at build time and never changes at
// runtime.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/foruapp/foru/internal/model"
)

//go:embed flowers.yaml
var flowersYAML []byte

// Catalog is an immutable, ordered set of flower definitions.
type Catalog struct {
	list []model.FlowerDefinition
	byID map[string]int
}

// Parse decodes a YAML catalog and validates every entry.
func Parse(data []byte) (*Catalog, error) {
	var defs []model.FlowerDefinition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	c := &Catalog{list: defs, byID: make(map[string]int, len(defs))}
	for i, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("entry %d: missing id", i)
		}
		if d.Name == "" {
			return nil, fmt.Errorf("entry %q: missing name", d.ID)
		}
		if !d.Category.Valid() {
			return nil, fmt.Errorf("entry %q: unknown category %q", d.ID, d.Category)
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("entry %q: duplicate id", d.ID)
		}
		c.byID[d.ID] = i
	}
	return c, nil
}

// Default returns the embedded catalog. It panics if the embedded file is
// malformed, which is a build defect.
func Default() *Catalog {
	c, err := Parse(flowersYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded flower catalog: %v", err))
	}
	return c
}

// All returns a copy of every definition in catalog order.
func (c *Catalog) All() []model.FlowerDefinition {
	out := make([]model.FlowerDefinition, len(c.list))
	copy(out, c.list)
	return out
}

// Get returns the definition for id.
func (c *Catalog) Get(id string) (model.FlowerDefinition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.FlowerDefinition{}, false
	}
	return c.list[i], true
}

// Has reports whether id is in the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// ByCategory returns the definitions of one category in catalog order.
func (c *Catalog) ByCategory(cat model.FlowerCategory) []model.FlowerDefinition {
	var out []model.FlowerDefinition
	for _, d := range c.list {
		if d.Category == cat {
			out = append(out, d)
		}
	}
	return out
}
