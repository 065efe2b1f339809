// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/your-org/storefront-orders/internal/domain/coupon"
	"github.com/your-org/storefront-orders/internal/domain/inventory"
	"github.com/your-org/storefront-orders/internal/domain/order"
	"github.com/your-org/storefront-orders/internal/domain/product"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger logrus.FieldLogger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger logrus.FieldLogger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("🔄 Running database auto-migrations...")

	// Define all models that need migration in dependency order
	models := []interface{}{
		&product.Product{},
		&inventory.StockMovement{},
		&coupon.Coupon{},
		&OrderSequence{},

		// Order domain - Dependent tables
		&order.Order{},
		&order.OrderItem{},
		&order.StatusHistory{},
	}

	for _, model := range models {
		m.logger.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for the order queries
func (m *Migration) CreateIndexes() error {
	m.logger.Info("🔄 Creating additional database indexes...")

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_orders_customer_created ON orders(customer_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_customer_coupon ON orders(customer_id, coupon_code)",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order_created ON order_status_history(order_id, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_sku_created ON stock_movements(sku, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_low_stock ON products(stock) WHERE is_active",
	}

	failed := 0
	for _, idx := range indexes {
		if err := m.db.Exec(idx).Error; err != nil {
			failed++
			m.logger.WithError(err).Warn("⚠️ Failed to create index")
		}
	}

	m.logger.WithFields(logrus.Fields{
		"created": len(indexes) - failed,
		"failed":  failed,
	}).Info("✅ Index creation finished")
	if failed > 0 {
		return fmt.Errorf("%d indexes failed", failed)
	}
	return nil
}

// SeedInitialData inserts a small catalog and a welcome coupon
func (m *Migration) SeedInitialData() error {
	m.logger.Info("🌱 Seeding initial data...")

	if err := m.seedProducts(); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}
	if err := m.seedCoupons(); err != nil {
		return fmt.Errorf("failed to seed coupons: %w", err)
	}

	m.logger.Info("✅ Initial data seeded successfully")
	return nil
}

// SeedProducts returns the development catalog
func SeedProducts() []product.Product {
	return []product.Product{
		{SKU: "TSHIRT-BLK-M", Name: "Black T-Shirt (M)", Price: 2500, Stock: 50, LowStockThreshold: 5, IsActive: true},
		{SKU: "MUG-CERAMIC", Name: "Ceramic Mug", Price: 1200, Stock: 30, LowStockThreshold: 5, IsActive: true},
		{SKU: "HOODIE-GRY-L", Name: "Grey Hoodie (L)", Price: 5900, Stock: 10, LowStockThreshold: 3, IsActive: true},
		{SKU: "STICKER-PACK", Name: "Sticker Pack", Price: 499, Stock: 200, LowStockThreshold: 20, IsActive: true},
		{SKU: "LIMITED-PRINT", Name: "Limited Edition Print", Price: 15000, Stock: 1, LowStockThreshold: 0, IsActive: true},
	}
}

// SeedCoupons returns the development coupons
func SeedCoupons(now time.Time) []coupon.Coupon {
	maxDiscount := int64(2000)
	perCustomer := 1
	return []coupon.Coupon{
		{
			Code:          "SAVE10",
			Description:   "10% off your order",
			DiscountType:  coupon.DiscountTypePercentage,
			DiscountValue: decimal.NewFromInt(10),
			ValidFrom:     now,
			ValidUntil:    now.AddDate(1, 0, 0),
			IsActive:      true,
		},
		{
			Code:              "WELCOME50",
			Description:       "50% off the first order, up to 20.00",
			DiscountType:      coupon.DiscountTypePercentage,
			DiscountValue:     decimal.NewFromInt(50),
			MaxDiscountAmount: &maxDiscount,
			UsagePerCustomer:  &perCustomer,
			ValidFrom:         now,
			ValidUntil:        now.AddDate(1, 0, 0),
			IsActive:          true,
		},
	}
}

func (m *Migration) seedProducts() error {
	for _, p := range SeedProducts() {
		var existing product.Product
		err := m.db.Where("sku = ?", p.SKU).First(&existing).Error
		switch {
		case err == nil:
			m.logger.Debugf("⏭️ Product already exists: %s", p.SKU)
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := m.db.Create(&p).Error; err != nil {
				return err
			}
			m.logger.Infof("✅ Created product: %s", p.SKU)
		default:
			return err
		}
	}
	return nil
}

func (m *Migration) seedCoupons() error {
	for _, c := range SeedCoupons(time.Now().UTC()) {
		var existing coupon.Coupon
		err := m.db.Where("code = ?", c.Code).First(&existing).Error
		switch {
		case err == nil:
			m.logger.Debugf("⏭️ Coupon already exists: %s", c.Code)
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := m.db.Create(&c).Error; err != nil {
				return err
			}
			m.logger.Infof("✅ Created coupon: %s", c.Code)
		default:
			return err
		}
	}
	return nil
}

// DropAllTables drops every table owned by the service
func (m *Migration) DropAllTables() error {
	m.logger.Warn("⚠️ WARNING: Dropping all database tables...")

	// reverse dependency order
	tables := []string{
		"order_status_history",
		"order_items",
		"orders",
		"order_sequences",
		"coupons",
		"stock_movements",
		"products",
	}

	for _, table := range tables {
		if err := m.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}

// GetTableInfo logs the row count of every public table
func (m *Migration) GetTableInfo() error {
	var tables []string
	if err := m.db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename").Scan(&tables).Error; err != nil {
		return err
	}

	var total int64
	for _, table := range tables {
		var count int64
		if err := m.db.Table(table).Count(&count).Error; err != nil {
			return err
		}
		total += count
		m.logger.WithField("records", count).Infof("📊 %s", table)
	}
	m.logger.WithFields(logrus.Fields{
		"tables":  len(tables),
		"records": total,
	}).Info("📈 Database summary")
	return nil
}
