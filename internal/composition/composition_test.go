package composition

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foruapp/foru/internal/model"
)

type flowerSet map[string]bool

func (f flowerSet) Has(id string) bool { return f[id] }

var testFlowers = flowerSet{"rose": true, "tulip": true, "leaf": true}

func newTestComposition(max int) *Composition {
	n := 0
	return New(Options{
		MaxItems: max,
		Flowers:  testFlowers,
		Rand:     rand.New(rand.NewPCG(1, 2)),
		NewID: func() string {
			n++
			return fmt.Sprintf("item-%d", n)
		},
	})
}

func TestSetCountIncreaseAppends(t *testing.T) {
	c := newTestComposition(10)

	require.True(t, c.SetCount("rose", 3))
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, 3, c.Count("rose"))

	for _, it := range c.Items() {
		assert.Equal(t, "rose", it.FlowerID)
		assert.GreaterOrEqual(t, it.X, 0.0)
		assert.LessOrEqual(t, it.X, 100.0)
		assert.GreaterOrEqual(t, it.Y, 0.0)
		assert.LessOrEqual(t, it.Y, 100.0)
		assert.LessOrEqual(t, math.Abs(it.Rotation), maxRotation)
		assert.GreaterOrEqual(t, it.Scale, minScale)
		assert.LessOrEqual(t, it.Scale, maxScale)
	}

	ids := []string{"item-1", "item-2", "item-3"}
	for i, it := range c.Items() {
		assert.Equal(t, ids[i], it.ID)
	}
}

func TestSetCountNeverExceedsMax(t *testing.T) {
	c := newTestComposition(5)

	c.SetCount("rose", 4)
	c.SetCount("tulip", 4)
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, 4, c.Count("rose"))
	assert.Equal(t, 1, c.Count("tulip"))

	assert.False(t, c.SetCount("leaf", 2), "no room left")
	assert.Equal(t, 0, c.Count("leaf"))
	assert.Equal(t, 0, c.Remaining())
}

func TestSetCountDecreaseRemovesTrailingMatches(t *testing.T) {
	c := newTestComposition(20)

	c.SetCount("rose", 2)  // item-1, item-2
	c.SetCount("tulip", 2) // item-3, item-4
	c.SetCount("rose", 4)  // item-5, item-6

	require.True(t, c.SetCount("rose", 1))

	var got []string
	for _, it := range c.Items() {
		got = append(got, it.ID)
	}
	assert.Equal(t, []string{"item-1", "item-3", "item-4"}, got)
	assert.Equal(t, 2, c.Count("tulip"), "other flowers untouched")
}

func TestSetCountIgnoresInvalid(t *testing.T) {
	c := newTestComposition(10)
	c.SetCount("rose", 2)
	v := c.Version()

	assert.False(t, c.SetCount("cactus", 3))
	assert.False(t, c.SetCount("rose", -1))
	assert.False(t, c.SetCount("rose", 2))
	assert.Equal(t, v, c.Version())
	assert.Equal(t, 2, c.Len())
}

func TestLengthMatchesCountsProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	flowers := []string{"rose", "tulip", "leaf"}

	for round := 0; round < 50; round++ {
		c := newTestComposition(1 + rng.IntN(25))
		for step := 0; step < 40; step++ {
			c.SetCount(flowers[rng.IntN(len(flowers))], rng.IntN(12))

			total := 0
			for _, n := range c.Counts() {
				total += n
			}
			require.Equal(t, total, c.Len())
			require.LessOrEqual(t, c.Len(), c.MaxItems())
		}
	}
}

func TestDecreaseByKRemovesExactlyK(t *testing.T) {
	c := newTestComposition(30)
	c.SetCount("rose", 5)
	c.SetCount("tulip", 3)
	c.SetCount("rose", 8)

	before := c.Counts()
	c.SetCount("rose", 8-3)
	after := c.Counts()

	assert.Equal(t, before["rose"]-3, after["rose"])
	assert.Equal(t, before["tulip"], after["tulip"])
}

func TestMutationsReplaceSlice(t *testing.T) {
	c := newTestComposition(10)
	c.SetCount("rose", 2)

	snapshot := c.Items()
	first := snapshot[0]

	x := 99.0
	require.True(t, c.UpdateItem(first.ID, ItemPatch{X: &x}))
	assert.Equal(t, first.X, snapshot[0].X, "earlier slice must not change")
	assert.Equal(t, 99.0, c.Items()[0].X)

	c.SetCount("rose", 3)
	assert.Len(t, snapshot, 2)
}

func TestItemsReturnsCopy(t *testing.T) {
	c := newTestComposition(10)
	c.SetCount("rose", 2)

	items := c.Items()
	items[0].FlowerID = "ghost"
	items[1].X = 999

	assert.Equal(t, 2, c.Count("rose"))
	assert.Equal(t, "rose", c.Items()[0].FlowerID)
	assert.LessOrEqual(t, c.Items()[1].X, 100.0)
}

func TestUpdateItemClamps(t *testing.T) {
	c := newTestComposition(10)
	c.SetCount("leaf", 1)
	id := c.Items()[0].ID

	x, y, rot, scale := -20.0, 140.0, 270.0, 9.0
	require.True(t, c.UpdateItem(id, ItemPatch{X: &x, Y: &y, Rotation: &rot, Scale: &scale}))

	it := c.Items()[0]
	assert.Equal(t, 0.0, it.X)
	assert.Equal(t, 100.0, it.Y)
	assert.Equal(t, -90.0, it.Rotation)
	assert.Equal(t, scaleCeil, it.Scale)

	assert.False(t, c.UpdateItem("missing", ItemPatch{X: &x}))
}

func TestDeleteItemClearsSelection(t *testing.T) {
	c := newTestComposition(10)
	c.SetCount("rose", 3)
	id := c.Items()[1].ID

	c.Select(id)
	assert.Equal(t, id, c.Selected())

	require.True(t, c.DeleteItem(id))
	assert.Equal(t, 2, c.Len())
	assert.Empty(t, c.Selected())
	assert.False(t, c.DeleteItem(id))
}

func TestDecreaseClearsRemovedSelection(t *testing.T) {
	c := newTestComposition(10)
	c.SetCount("rose", 2)
	last := c.Items()[1].ID
	c.Select(last)

	c.SetCount("rose", 1)
	assert.Empty(t, c.Selected())
}

func TestSelectUnknownClears(t *testing.T) {
	c := newTestComposition(10)
	c.SetCount("rose", 1)
	c.Select(c.Items()[0].ID)
	c.Select("nope")
	assert.Empty(t, c.Selected())
}

func TestNormalize(t *testing.T) {
	items := []model.PlacedItem{
		{ID: "a", FlowerID: "rose", X: 120, Y: -5, Rotation: 540, Scale: 0},
		{ID: "b", FlowerID: "cactus", X: 10, Y: 10, Scale: 1},
		{ID: "a", FlowerID: "tulip", X: 50, Y: 50, Scale: 1},
		{FlowerID: "leaf", X: math.NaN(), Y: 20, Scale: 1},
		{ID: "z", FlowerID: "leaf", X: 1, Y: 1, Scale: 1},
	}

	n := 0
	out := Normalize(items, testFlowers, 3, func() string { n++; return fmt.Sprintf("new-%d", n) })
	require.Len(t, out, 3)

	assert.Equal(t, model.PlacedItem{ID: "a", FlowerID: "rose", X: 100, Y: 0, Rotation: 180, Scale: 1}, out[0])
	assert.Equal(t, "new-1", out[1].ID, "duplicate id replaced")
	assert.Equal(t, "tulip", out[1].FlowerID)
	assert.Equal(t, "new-2", out[2].ID, "missing id assigned")
	assert.Equal(t, 50.0, out[2].X)

	assert.Equal(t, 120.0, items[0].X, "input untouched")
}

func TestNormalizeKeepsPrecision(t *testing.T) {
	in := []model.PlacedItem{{ID: "a", FlowerID: "rose", X: 33.3333, Y: 66.6666, Rotation: 12.345, Scale: 1.005}}
	out := Normalize(in, testFlowers, 5, nil)
	require.Len(t, out, 1)
	assert.Equal(t, in[0], out[0])
}

func TestRestore(t *testing.T) {
	saved := []model.PlacedItem{
		{ID: "a", FlowerID: "rose", X: 10, Y: 10, Scale: 1},
		{ID: "b", FlowerID: "tulip", X: 20, Y: 20, Scale: 1},
	}
	c := Restore(Options{MaxItems: 3, Flowers: testFlowers}, saved)
	assert.Equal(t, 2, c.Len())

	c.SetCount("leaf", 5)
	assert.Equal(t, 3, c.Len())
}
