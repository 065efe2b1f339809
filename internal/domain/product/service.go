// internal/domain/product/service.go
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrProductExists  = errors.New("product with this SKU already exists")
	ErrInvalidProduct = errors.New("invalid product")
)

// Repository manages catalog rows. Update never touches stock.
type Repository interface {
	Catalog
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, sku string, changes Changes) (*Product, error)
	List(ctx context.Context, q ListQuery) ([]Product, int64, error)
}

// Changes lists the catalog fields to overwrite; nil fields are kept
type Changes struct {
	Name              *string
	Image             *string
	Price             *int64
	LowStockThreshold *int
	IsActive          *bool
}

// IsEmpty reports whether nothing would change
func (c Changes) IsEmpty() bool {
	return c.Name == nil && c.Image == nil && c.Price == nil && c.LowStockThreshold == nil && c.IsActive == nil
}

// ListQuery is a validated product list request
type ListQuery struct {
	Limit      int
	Offset     int
	Search     string
	ActiveOnly bool
	SortBy     string
	SortOrder  string
}

// ProductListRequest represents product list query parameters
type ProductListRequest struct {
	Page      int    `form:"page,default=1"`
	Limit     int    `form:"limit,default=20"`
	Search    string `form:"search"`
	SortBy    string `form:"sort_by,default=created_at"`
	SortOrder string `form:"sort_order,default=desc"`
}

// ProductCreateRequest represents product creation data. New products start
// with no stock; stock arrives through a restock.
type ProductCreateRequest struct {
	SKU               string `json:"sku" binding:"required"`
	Name              string `json:"name" binding:"required"`
	Image             string `json:"image"`
	Price             int64  `json:"price" binding:"min=0"`
	LowStockThreshold *int   `json:"low_stock_threshold"`
	IsActive          *bool  `json:"is_active"`
}

// ProductUpdateRequest represents product update data
type ProductUpdateRequest struct {
	Name              *string `json:"name"`
	Image             *string `json:"image"`
	Price             *int64  `json:"price"`
	LowStockThreshold *int    `json:"low_stock_threshold"`
	IsActive          *bool   `json:"is_active"`
}

// ProductResponse represents paginated product response
type ProductResponse struct {
	Products   []Product `json:"products"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"total_pages"`
}

// Service handles catalog administration
type Service struct {
	repo   Repository
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewService creates a new product service
func NewService(repo Repository, logger logrus.FieldLogger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetProducts lists products. Customers only see active ones.
func (s *Service) GetProducts(ctx context.Context, req *ProductListRequest, activeOnly bool) (*ProductResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}
	sortBy, sortOrder := s.buildOrderClause(req.SortBy, req.SortOrder)

	products, total, err := s.repo.List(ctx, ListQuery{
		Limit:      req.Limit,
		Offset:     (req.Page - 1) * req.Limit,
		Search:     strings.TrimSpace(req.Search),
		ActiveOnly: activeOnly,
		SortBy:     sortBy,
		SortOrder:  sortOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get products: %w", err)
	}

	return &ProductResponse{
		Products:   products,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: int((total + int64(req.Limit) - 1) / int64(req.Limit)),
	}, nil
}

// GetProduct returns one product. Inactive products are hidden when activeOnly.
func (s *Service) GetProduct(ctx context.Context, sku string, activeOnly bool) (*Product, error) {
	p, err := s.repo.GetBySKU(ctx, NormalizeSKU(sku))
	if err != nil {
		return nil, err
	}
	if activeOnly && !p.IsActive {
		return nil, ErrProductNotFound
	}
	return p, nil
}

// CreateProduct adds a product with zero stock
func (s *Service) CreateProduct(ctx context.Context, req *ProductCreateRequest) (*Product, error) {
	sku := NormalizeSKU(req.SKU)
	if sku == "" || len(sku) > 100 {
		return nil, fmt.Errorf("%w: sku must be between 1 and 100 characters", ErrInvalidProduct)
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}

	now := s.now()
	p := &Product{
		SKU:               sku,
		Name:              strings.TrimSpace(req.Name),
		Image:             req.Image,
		Price:             req.Price,
		LowStockThreshold: 5,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			return nil, fmt.Errorf("%w: low stock threshold must not be negative", ErrInvalidProduct)
		}
		p.LowStockThreshold = *req.LowStockThreshold
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, ErrProductExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"sku":   p.SKU,
		"price": p.Price,
	}).Info("product created")
	return p, nil
}

// UpdateProduct changes catalog fields. Orders already placed keep their prices.
func (s *Service) UpdateProduct(ctx context.Context, sku string, req *ProductUpdateRequest) (*Product, error) {
	changes := Changes{
		Image:             req.Image,
		Price:             req.Price,
		LowStockThreshold: req.LowStockThreshold,
		IsActive:          req.IsActive,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidProduct)
		}
		changes.Name = &name
	}
	if req.Price != nil && *req.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if req.LowStockThreshold != nil && *req.LowStockThreshold < 0 {
		return nil, fmt.Errorf("%w: low stock threshold must not be negative", ErrInvalidProduct)
	}
	if changes.IsEmpty() {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidProduct)
	}

	p, err := s.repo.Update(ctx, NormalizeSKU(sku), changes)
	if err != nil {
		return nil, err
	}

	s.logger.WithField("sku", p.SKU).Info("product updated")
	return p, nil
}

// buildOrderClause whitelists the sort column and direction
func (s *Service) buildOrderClause(sortBy, sortOrder string) (string, string) {
	validSortFields := map[string]bool{
		"name":       true,
		"price":      true,
		"stock":      true,
		"created_at": true,
		"updated_at": true,
	}

	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	if sortOrder != "asc" && sortOrder != "desc" {
		sortOrder = "desc"
	}

	return sortBy, sortOrder
}

// NormalizeSKU trims and upper-cases a SKU
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}
