package model

// FlowerCategory groups catalog entries.
type FlowerCategory string

// Flower categories.
const (
	CategoryFlower    FlowerCategory = "flower"
	CategoryLeaf      FlowerCategory = "leaf"
	CategoryAccessory FlowerCategory = "accessory"
)

// Valid reports whether c is a known category.
func (c FlowerCategory) Valid() bool {
	return c == CategoryFlower || c == CategoryLeaf || c == CategoryAccessory
}

// FlowerDefinition is a placeable catalog entry, fixed at build time.
type FlowerDefinition struct {
	ID       string         `json:"id" yaml:"id"`
	Name     string         `json:"name" yaml:"name"`
	Category FlowerCategory `json:"category" yaml:"category"`
	Emoji    string         `json:"emoji,omitempty" yaml:"emoji"`
	Asset    string         `json:"asset,omitempty" yaml:"asset"`
	HasStem  bool           `json:"hasStem" yaml:"stem"`
}
