package product_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-orders/internal/domain/product"
	"github.com/your-org/storefront-orders/internal/infrastructure/database/memory"
)

func newService(seed ...product.Product) (*product.Service, *memory.ProductStore) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store := memory.NewProductStore(seed...)
	return product.NewService(store, logger), store
}

func TestCreateProduct(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	threshold := 2
	p, err := svc.CreateProduct(ctx, &product.ProductCreateRequest{SKU: " ab-1", Name: " Anvil ", Price: 9900, LowStockThreshold: &threshold})
	if err != nil {
		t.Fatalf("CreateProduct: %v", err)
	}
	if p.SKU != "AB-1" || p.Name != "Anvil" || p.Stock != 0 || p.LowStockThreshold != 2 || !p.IsActive {
		t.Errorf("unexpected product %+v", p)
	}

	if _, err := svc.CreateProduct(ctx, &product.ProductCreateRequest{SKU: "ab-1", Name: "Other"}); !errors.Is(err, product.ErrProductExists) {
		t.Errorf("expected ErrProductExists, got %v", err)
	}

	tests := []struct {
		name string
		req  product.ProductCreateRequest
	}{
		{"blank sku", product.ProductCreateRequest{SKU: "  ", Name: "X"}},
		{"blank name", product.ProductCreateRequest{SKU: "X", Name: " "}},
		{"negative price", product.ProductCreateRequest{SKU: "X", Name: "X", Price: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateProduct(ctx, &tt.req); !errors.Is(err, product.ErrInvalidProduct) {
				t.Errorf("expected ErrInvalidProduct, got %v", err)
			}
		})
	}
}

func TestUpdateProductKeepsStock(t *testing.T) {
	svc, _ := newService(product.Product{SKU: "A", Name: "Widget", Price: 2500, Stock: 4, IsActive: true})
	ctx := context.Background()

	price := int64(3000)
	p, err := svc.UpdateProduct(ctx, "a", &product.ProductUpdateRequest{Price: &price})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}
	if p.Price != 3000 || p.Stock != 4 || p.Name != "Widget" {
		t.Errorf("unexpected product %+v", p)
	}

	if _, err := svc.UpdateProduct(ctx, "A", &product.ProductUpdateRequest{}); !errors.Is(err, product.ErrInvalidProduct) {
		t.Errorf("empty update: expected ErrInvalidProduct, got %v", err)
	}
	if _, err := svc.UpdateProduct(ctx, "NOPE", &product.ProductUpdateRequest{Price: &price}); !errors.Is(err, product.ErrProductNotFound) {
		t.Errorf("unknown sku: expected ErrProductNotFound, got %v", err)
	}
}

func TestGetProductsHidesInactive(t *testing.T) {
	svc, _ := newService(
		product.Product{SKU: "A", Name: "Widget", Price: 2500, IsActive: true},
		product.Product{SKU: "B", Name: "Bolt", Price: 100, IsActive: true},
		product.Product{SKU: "C", Name: "Crate", Price: 900, IsActive: false},
	)
	ctx := context.Background()

	page, err := svc.GetProducts(ctx, &product.ProductListRequest{Page: 1, Limit: 1, SortBy: "price", SortOrder: "asc"}, true)
	if err != nil {
		t.Fatalf("GetProducts: %v", err)
	}
	if page.Total != 2 || page.TotalPages != 2 || len(page.Products) != 1 || page.Products[0].SKU != "B" {
		t.Errorf("unexpected page %+v", page)
	}

	page, _ = svc.GetProducts(ctx, &product.ProductListRequest{Search: "crate", SortBy: "drop table"}, false)
	if page.Total != 1 || page.Products[0].SKU != "C" {
		t.Errorf("admin search = %+v", page)
	}

	if _, err := svc.GetProduct(ctx, "c", true); !errors.Is(err, product.ErrProductNotFound) {
		t.Errorf("inactive product visible: %v", err)
	}
	if p, err := svc.GetProduct(ctx, "c", false); err != nil || p.SKU != "C" {
		t.Errorf("admin GetProduct = %v, %v", p, err)
	}
}
