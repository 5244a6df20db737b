// Package composition holds the editable bouquet: the list of flowers placed
// on the canvas and the operations that change it.
//
// Positions are percentages of the canvas (0-100 on both axes). Items hands
// out copies, so callers can neither observe later changes nor edit the
// composition through a returned slice.
package composition

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"

	"github.com/foruapp/foru/internal/model"
)

// DefaultMaxItems caps the total number of placed items.
const DefaultMaxItems = 30

// Placement tuning for new items.
const (
	centerX     = 50.0
	centerY     = 50.0
	spread      = 12.0
	maxRotation = 30.0
	minScale    = 0.8
	maxScale    = 1.2

	scaleFloor = 0.2
	scaleCeil  = 3.0
)

// Flowers reports which flower ids may be placed.
type Flowers interface {
	Has(id string) bool
}

// Options configures a Composition.
type Options struct {
	MaxItems int
	Flowers  Flowers
	// Rand drives placement. Nil uses a randomly seeded source.
	Rand *rand.Rand
	// NewID generates item ids. Nil uses random UUIDs.
	NewID func() string
}

// Composition is one editing session's bouquet. It is not safe for
// concurrent use.
type Composition struct {
	items    []model.PlacedItem
	selected string
	version  uint64

	max     int
	flowers Flowers
	rng     *rand.Rand
	newID   func() string
}

// New creates an empty composition.
func New(opts Options) *Composition {
	if opts.MaxItems < 1 {
		opts.MaxItems = DefaultMaxItems
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Composition{
		max:     opts.MaxItems,
		flowers: opts.Flowers,
		rng:     opts.Rand,
		newID:   opts.NewID,
	}
}

// Restore creates a composition seeded with previously saved items. Items are
// normalized first, so unknown flowers are dropped and positions clamped.
func Restore(opts Options, items []model.PlacedItem) *Composition {
	c := New(opts)
	c.items = Normalize(items, c.flowers, c.max, c.newID)
	return c
}

// MaxItems returns the total item cap.
func (c *Composition) MaxItems() int { return c.max }

// Len returns the number of placed items.
func (c *Composition) Len() int { return len(c.items) }

// Version increments on every mutation that changed the composition.
func (c *Composition) Version() uint64 { return c.version }

// Items returns a copy of the placed items in placement order.
func (c *Composition) Items() []model.PlacedItem {
	return slices.Clone(c.items)
}

// Count returns how many items of flowerID are placed.
func (c *Composition) Count(flowerID string) int {
	n := 0
	for _, it := range c.items {
		if it.FlowerID == flowerID {
			n++
		}
	}
	return n
}

// Counts returns the placed count per flower id.
func (c *Composition) Counts() map[string]int {
	counts := make(map[string]int)
	for _, it := range c.items {
		counts[it.FlowerID]++
	}
	return counts
}

// Remaining returns how many more items fit under the cap.
func (c *Composition) Remaining() int {
	return c.max - len(c.items)
}

// SetCount changes the number of placed items of flowerID to n. Increases are
// capped so the total never exceeds MaxItems; new items are scattered around
// the canvas center. Decreases remove the most recently placed items of that
// flower only. Unknown flowers and negative counts are ignored. It reports
// whether anything changed.
func (c *Composition) SetCount(flowerID string, n int) bool {
	if n < 0 || c.flowers == nil || !c.flowers.Has(flowerID) {
		return false
	}

	current := c.Count(flowerID)
	switch {
	case n > current:
		add := min(n-current, c.Remaining())
		if add <= 0 {
			return false
		}
		next := make([]model.PlacedItem, len(c.items), len(c.items)+add)
		copy(next, c.items)
		for range add {
			next = append(next, c.place(flowerID))
		}
		c.commit(next)
		return true

	case n < current:
		drop := current - n
		next := make([]model.PlacedItem, 0, len(c.items)-drop)
		// Walk backwards so the trailing matches are the ones dropped.
		keep := make([]bool, len(c.items))
		for i := len(c.items) - 1; i >= 0; i-- {
			if drop > 0 && c.items[i].FlowerID == flowerID {
				drop--
				if c.items[i].ID == c.selected {
					c.selected = ""
				}
				continue
			}
			keep[i] = true
		}
		for i, it := range c.items {
			if keep[i] {
				next = append(next, it)
			}
		}
		c.commit(next)
		return true
	}
	return false
}

// ItemPatch is a partial update; nil fields are left unchanged.
type ItemPatch struct {
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
	Scale    *float64 `json:"scale,omitempty"`
}

// UpdateItem applies patch to the item with id. Unknown ids are ignored.
func (c *Composition) UpdateItem(id string, patch ItemPatch) bool {
	idx := c.indexOf(id)
	if idx < 0 {
		return false
	}

	next := make([]model.PlacedItem, len(c.items))
	copy(next, c.items)
	it := &next[idx]
	if patch.X != nil {
		it.X = clampPercent(*patch.X)
	}
	if patch.Y != nil {
		it.Y = clampPercent(*patch.Y)
	}
	if patch.Rotation != nil {
		it.Rotation = normalizeRotation(*patch.Rotation)
	}
	if patch.Scale != nil {
		it.Scale = clampScale(*patch.Scale)
	}
	c.commit(next)
	return true
}

// DeleteItem removes the item with id and clears the selection. Unknown ids
// are ignored.
func (c *Composition) DeleteItem(id string) bool {
	idx := c.indexOf(id)
	if idx < 0 {
		return false
	}

	next := make([]model.PlacedItem, 0, len(c.items)-1)
	next = append(next, c.items[:idx]...)
	next = append(next, c.items[idx+1:]...)
	c.selected = ""
	c.commit(next)
	return true
}

// Select marks the item with id as selected. An empty or unknown id clears
// the selection.
func (c *Composition) Select(id string) {
	if c.indexOf(id) < 0 {
		c.selected = ""
		return
	}
	c.selected = id
}

// Selected returns the selected item id, or "".
func (c *Composition) Selected() string { return c.selected }

func (c *Composition) commit(next []model.PlacedItem) {
	c.items = next
	c.version++
}

func (c *Composition) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, it := range c.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// place creates a new item clustered around the canvas center.
func (c *Composition) place(flowerID string) model.PlacedItem {
	return model.PlacedItem{
		ID:       c.newID(),
		FlowerID: flowerID,
		X:        round2(clampPercent(centerX + c.rng.NormFloat64()*spread)),
		Y:        round2(clampPercent(centerY + c.rng.NormFloat64()*spread)),
		Rotation: round2((c.rng.Float64()*2 - 1) * maxRotation),
		Scale:    round2(minScale + c.rng.Float64()*(maxScale-minScale)),
	}
}

// Normalize sanitizes a submitted item list: unknown flowers are dropped,
// positions clamped, scale bounded, missing or repeated ids replaced, and the
// list truncated to maxItems. In-range values keep their precision. The input
// is not modified.
func Normalize(items []model.PlacedItem, flowers Flowers, maxItems int, newID func() string) []model.PlacedItem {
	if newID == nil {
		newID = uuid.NewString
	}
	out := make([]model.PlacedItem, 0, min(len(items), max(maxItems, 0)))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if len(out) >= maxItems {
			break
		}
		if flowers == nil || !flowers.Has(it.FlowerID) {
			continue
		}
		if it.ID == "" || seen[it.ID] {
			it.ID = newID()
		}
		seen[it.ID] = true
		it.X = clampPercent(it.X)
		it.Y = clampPercent(it.Y)
		it.Rotation = normalizeRotation(it.Rotation)
		it.Scale = clampScale(it.Scale)
		out = append(out, it)
	}
	return out
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) {
		return centerX
	}
	return math.Max(0, math.Min(100, v))
}

func clampScale(v float64) float64 {
	if math.IsNaN(v) || v == 0 {
		return 1
	}
	return math.Max(scaleFloor, math.Min(scaleCeil, v))
}

// normalizeRotation maps degrees into (-180, 180].
func normalizeRotation(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}
	return deg
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
