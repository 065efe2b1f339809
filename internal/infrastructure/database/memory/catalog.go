package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/your-org/storefront-orders/internal/domain/product"
)

// Create adds a new product
func (s *ProductStore) Create(_ context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[p.SKU]; ok {
		return product.ErrProductExists
	}
	s.nextID++
	p.ID = s.nextID
	s.entries[p.SKU] = &productEntry{product: *p}
	return nil
}

// Update applies catalog changes to sku. Stock is left alone.
func (s *ProductStore) Update(_ context.Context, sku string, changes product.Changes) (*product.Product, error) {
	e := s.entry(sku)
	if e == nil {
		return nil, product.ErrProductNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	p := &e.product
	if changes.Name != nil {
		p.Name = *changes.Name
	}
	if changes.Image != nil {
		p.Image = *changes.Image
	}
	if changes.Price != nil {
		p.Price = *changes.Price
	}
	if changes.LowStockThreshold != nil {
		p.LowStockThreshold = *changes.LowStockThreshold
	}
	if changes.IsActive != nil {
		p.IsActive = *changes.IsActive
	}
	out := *p
	return &out, nil
}

// List returns a sorted page of products
func (s *ProductStore) List(_ context.Context, q product.ListQuery) ([]product.Product, int64, error) {
	s.mu.RLock()
	entries := make([]*productEntry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	search := strings.ToLower(q.Search)
	var all []product.Product
	for _, e := range entries {
		e.mu.Lock()
		p := e.product
		e.mu.Unlock()
		if q.ActiveOnly && !p.IsActive {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.SKU), search) {
			continue
		}
		all = append(all, p)
	}

	sort.Slice(all, func(i, j int) bool {
		if q.SortOrder == "desc" {
			return lessBy(q.SortBy, &all[j], &all[i])
		}
		return lessBy(q.SortBy, &all[i], &all[j])
	})

	total := int64(len(all))
	if q.Offset >= len(all) {
		return []product.Product{}, total, nil
	}
	end := len(all)
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return all[q.Offset:end], total, nil
}

func lessBy(field string, a, b *product.Product) bool {
	switch field {
	case "name":
		if a.Name != b.Name {
			return a.Name < b.Name
		}
	case "price":
		if a.Price != b.Price {
			return a.Price < b.Price
		}
	case "stock":
		if a.Stock != b.Stock {
			return a.Stock < b.Stock
		}
	case "updated_at":
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
	default:
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
	return a.ID < b.ID
}
