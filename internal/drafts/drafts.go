// Package drafts keeps server-side editing sessions for bouquet compositions
// so clients can drive the composition operations over HTTP.
package drafts

import (
	"context"
	"time"

	"github.com/foruapp/foru/internal/composition"
	domainerrors "github.com/foruapp/foru/internal/errors"
	"github.com/foruapp/foru/internal/id"
	"github.com/foruapp/foru/internal/model"
)

// DefaultTTL is how long an untouched draft is kept.
const DefaultTTL = 24 * time.Hour

// Draft is a saved composition in progress.
type Draft struct {
	ID        string             `json:"id"`
	Items     []model.PlacedItem `json:"items"`
	MaxItems  int                `json:"maxItems"`
	Version   uint64             `json:"version"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// Store persists drafts. Get returns nil, nil for a missing or expired draft.
type Store interface {
	Get(ctx context.Context, id string) (*Draft, error)
	Save(ctx context.Context, d *Draft) error
	Delete(ctx context.Context, id string) error
}

// Service applies composition operations to stored drafts.
type Service struct {
	Store    Store
	Flowers  composition.Flowers
	MaxItems int
}

// Create starts an empty draft.
func (s *Service) Create(ctx context.Context) (*Draft, error) {
	draftID, err := id.Share()
	if err != nil {
		return nil, err
	}
	d := &Draft{
		ID:        draftID,
		Items:     []model.PlacedItem{},
		MaxItems:  s.maxItems(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.Store.Save(ctx, d); err != nil {
		return nil, domainerrors.Storage("saving draft", err)
	}
	return d, nil
}

// Get returns a draft or a NotFound error.
func (s *Service) Get(ctx context.Context, draftID string) (*Draft, error) {
	d, err := s.Store.Get(ctx, draftID)
	if err != nil {
		return nil, domainerrors.Storage("loading draft", err)
	}
	if d == nil {
		return nil, domainerrors.NotFound("draft not found")
	}
	return d, nil
}

// SetCount sets how many of flowerID the draft holds.
func (s *Service) SetCount(ctx context.Context, draftID, flowerID string, n int) (*Draft, error) {
	if n < 0 {
		return nil, domainerrors.Validation("count cannot be negative")
	}
	if s.Flowers == nil || !s.Flowers.Has(flowerID) {
		return nil, domainerrors.Validationf("unknown flower %q", flowerID)
	}
	return s.apply(ctx, draftID, func(c *composition.Composition) {
		c.SetCount(flowerID, n)
	})
}

// UpdateItem moves, rotates or scales one item. Unknown item ids leave the
// draft unchanged.
func (s *Service) UpdateItem(ctx context.Context, draftID, itemID string, patch composition.ItemPatch) (*Draft, error) {
	return s.apply(ctx, draftID, func(c *composition.Composition) {
		c.UpdateItem(itemID, patch)
	})
}

// DeleteItem removes one item. Unknown item ids leave the draft unchanged.
func (s *Service) DeleteItem(ctx context.Context, draftID, itemID string) (*Draft, error) {
	return s.apply(ctx, draftID, func(c *composition.Composition) {
		c.DeleteItem(itemID)
	})
}

// Discard deletes a draft.
func (s *Service) Discard(ctx context.Context, draftID string) error {
	if err := s.Store.Delete(ctx, draftID); err != nil {
		return domainerrors.Storage("deleting draft", err)
	}
	return nil
}

func (s *Service) apply(ctx context.Context, draftID string, op func(*composition.Composition)) (*Draft, error) {
	d, err := s.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}

	c := composition.Restore(composition.Options{MaxItems: s.maxItems(), Flowers: s.Flowers}, d.Items)
	op(c)
	if c.Version() == 0 {
		return d, nil
	}

	d.Items = c.Items()
	d.MaxItems = c.MaxItems()
	d.Version++
	d.UpdatedAt = time.Now().UTC()
	if err := s.Store.Save(ctx, d); err != nil {
		return nil, domainerrors.Storage("saving draft", err)
	}
	return d, nil
}

func (s *Service) maxItems() int {
	if s.MaxItems < 1 {
		return composition.DefaultMaxItems
	}
	return s.MaxItems
}
