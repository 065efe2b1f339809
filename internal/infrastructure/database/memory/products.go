// Package memory provides in-memory stores for tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/your-org/storefront-orders/internal/domain/inventory"
	"github.com/your-org/storefront-orders/internal/domain/product"
)

type productEntry struct {
	mu      sync.Mutex
	product product.Product
}

// ProductStore is the catalog and the stock ledger backend. Each SKU has its
// own lock, so reservations on different SKUs run in parallel.
type ProductStore struct {
	mu        sync.RWMutex
	entries   map[string]*productEntry
	nextID    uint
	movesMu   sync.Mutex
	movements []inventory.StockMovement
}

// NewProductStore constructs a store seeded with products
func NewProductStore(products ...product.Product) *ProductStore {
	s := &ProductStore{entries: make(map[string]*productEntry)}
	for _, p := range products {
		s.Add(p)
	}
	return s
}

// Add inserts or replaces a product
func (s *ProductStore) Add(p product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.nextID++
		p.ID = s.nextID
	} else if p.ID > s.nextID {
		s.nextID = p.ID
	}
	s.entries[p.SKU] = &productEntry{product: p}
}

// GetBySKU returns a copy of the product
func (s *ProductStore) GetBySKU(_ context.Context, sku string) (*product.Product, error) {
	e := s.entry(sku)
	if e == nil {
		return nil, product.ErrProductNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.product
	return &p, nil
}

// GetBySKUs returns copies of the products found
func (s *ProductStore) GetBySKUs(ctx context.Context, skus []string) (map[string]*product.Product, error) {
	out := make(map[string]*product.Product, len(skus))
	for _, sku := range skus {
		p, err := s.GetBySKU(ctx, sku)
		if err != nil {
			continue
		}
		out[sku] = p
	}
	return out, nil
}

// Decrement takes every line or none
func (s *ProductStore) Decrement(_ context.Context, reference string, lines []inventory.Line) ([]inventory.StockLevel, error) {
	entries, unlock, err := s.lockLines(lines)
	if err != nil {
		return nil, err
	}
	defer unlock()

	for i, l := range lines {
		if entries[i].product.Stock < l.Quantity {
			return nil, &inventory.OutOfStockError{
				SKU:       l.SKU,
				Requested: l.Quantity,
				Available: entries[i].product.Stock,
			}
		}
	}

	levels := make([]inventory.StockLevel, 0, len(lines))
	for i, l := range lines {
		entries[i].product.Stock -= l.Quantity
		levels = append(levels, levelOf(&entries[i].product))
		s.record(l.SKU, inventory.MovementTypeReservation, l.Quantity, entries[i].product.Stock, reference)
	}
	return levels, nil
}

// Increment adds every line
func (s *ProductStore) Increment(_ context.Context, reference string, movement inventory.MovementType, lines []inventory.Line) ([]inventory.StockLevel, error) {
	entries, unlock, err := s.lockLines(lines)
	if err != nil {
		return nil, err
	}
	defer unlock()

	levels := make([]inventory.StockLevel, 0, len(lines))
	for i, l := range lines {
		entries[i].product.Stock += l.Quantity
		levels = append(levels, levelOf(&entries[i].product))
		s.record(l.SKU, movement, l.Quantity, entries[i].product.Stock, reference)
	}
	return levels, nil
}

// Level returns the current stock of sku
func (s *ProductStore) Level(_ context.Context, sku string) (*inventory.StockLevel, error) {
	e := s.entry(sku)
	if e == nil {
		return nil, fmt.Errorf("%w: %s", inventory.ErrUnknownSKU, sku)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	lv := levelOf(&e.product)
	return &lv, nil
}

// Movements returns the latest movements of sku, newest first. An empty sku
// matches every SKU and limit <= 0 returns all of them.
func (s *ProductStore) Movements(_ context.Context, sku string, limit int) ([]inventory.StockMovement, error) {
	s.movesMu.Lock()
	defer s.movesMu.Unlock()

	var out []inventory.StockMovement
	for i := len(s.movements) - 1; i >= 0; i-- {
		if sku != "" && s.movements[i].SKU != sku {
			continue
		}
		out = append(out, s.movements[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *ProductStore) entry(sku string) *productEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[sku]
}

// lockLines locks the entries of lines in SKU order and returns them in line order
func (s *ProductStore) lockLines(lines []inventory.Line) ([]*productEntry, func(), error) {
	entries := make([]*productEntry, len(lines))
	for i, l := range lines {
		e := s.entry(l.SKU)
		if e == nil {
			return nil, nil, fmt.Errorf("%w: %s", inventory.ErrUnknownSKU, l.SKU)
		}
		entries[i] = e
	}

	order := make([]int, len(lines))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return lines[order[a]].SKU < lines[order[b]].SKU })

	locked := make([]*productEntry, 0, len(order))
	seen := make(map[*productEntry]bool, len(order))
	for _, idx := range order {
		e := entries[idx]
		if seen[e] {
			continue
		}
		seen[e] = true
		e.mu.Lock()
		locked = append(locked, e)
	}

	unlock := func() {
		for i := len(locked) - 1; i >= 0; i-- {
			locked[i].mu.Unlock()
		}
	}
	return entries, unlock, nil
}

func (s *ProductStore) record(sku string, t inventory.MovementType, qty, after int, reference string) {
	s.movesMu.Lock()
	defer s.movesMu.Unlock()
	s.movements = append(s.movements, inventory.StockMovement{
		ID:           uint(len(s.movements) + 1),
		SKU:          sku,
		MovementType: t,
		Quantity:     qty,
		StockAfter:   after,
		Reference:    reference,
		CreatedAt:    time.Now().UTC(),
	})
}

func levelOf(p *product.Product) inventory.StockLevel {
	return inventory.StockLevel{
		SKU:               p.SKU,
		Stock:             p.Stock,
		LowStockThreshold: p.LowStockThreshold,
		IsLowStock:        p.IsLowStock(),
	}
}
