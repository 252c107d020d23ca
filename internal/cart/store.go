// Package cart keeps the shopper's cart as a single JSON blob, the same
// format the storefront pages keep in browser storage.
package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/RobertEarleCodes/Scrittle/internal/domain"
)

// DefaultKey is the storage key the cart blob lives under.
const DefaultKey = "pickup_edge_cart"

// Blob persists the serialized cart. Load returns nil data when nothing is
// stored.
type Blob interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	Delete(ctx context.Context) error
}

// Store is a write-through cart over a Blob. Every mutation reads the blob,
// changes it and writes it back, so concurrent writers race last-write-wins.
type Store struct {
	blob Blob
}

// NewStore creates a cart store backed by blob.
func NewStore(blob Blob) *Store {
	return &Store{blob: blob}
}

// Add appends item. Adding a product already in the cart adds a second line
// rather than bumping the first line's quantity.
func (s *Store) Add(ctx context.Context, item domain.CartItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	items, err := s.List(ctx)
	if err != nil {
		return err
	}
	return s.save(ctx, append(items, item))
}

// Remove deletes the line at index. An out-of-range index is ignored. The
// blob is deleted once the last line goes.
func (s *Store) Remove(ctx context.Context, index int) error {
	items, err := s.List(ctx)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(items) {
		return nil
	}
	items = append(items[:index], items[index+1:]...)
	if len(items) == 0 {
		return s.Clear(ctx)
	}
	return s.save(ctx, items)
}

// List returns the cart lines in the order they were added. An empty cart is
// an empty, non-nil slice.
func (s *Store) List(ctx context.Context) ([]domain.CartItem, error) {
	data, err := s.blob.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	items := []domain.CartItem{}
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if items == nil {
		items = []domain.CartItem{}
	}
	return items, nil
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.blob.Delete(ctx); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Items returns the cart contents. It lets a Store serve as the checkout's
// cart reader.
func (s *Store) Items(ctx context.Context) ([]domain.CartItem, error) {
	return s.List(ctx)
}

func (s *Store) save(ctx context.Context, items []domain.CartItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.blob.Save(ctx, data); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Subtotal sums the lines in minor units.
func Subtotal(items []domain.CartItem) int64 {
	var total int64
	for _, it := range items {
		total += it.LineTotal()
	}
	return total
}
