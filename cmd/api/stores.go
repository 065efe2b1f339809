package main

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-orders/internal/config"
	"github.com/your-org/storefront-orders/internal/domain/analytics"
	"github.com/your-org/storefront-orders/internal/domain/checkout"
	"github.com/your-org/storefront-orders/internal/domain/coupon"
	"github.com/your-org/storefront-orders/internal/domain/inventory"
	"github.com/your-org/storefront-orders/internal/domain/order"
	"github.com/your-org/storefront-orders/internal/domain/payment"
	"github.com/your-org/storefront-orders/internal/domain/product"
	"github.com/your-org/storefront-orders/internal/infrastructure/database/memory"
	mongostore "github.com/your-org/storefront-orders/internal/infrastructure/database/mongo"
	"github.com/your-org/storefront-orders/internal/infrastructure/database/postgres"
	redisstore "github.com/your-org/storefront-orders/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-orders/internal/interfaces/http"
	"github.com/your-org/storefront-orders/internal/interfaces/http/handlers"
)

type productStore interface {
	product.Repository
	inventory.Repository
	handlers.MovementReader
}

type auditStore interface {
	payment.EventLog
	handlers.AuditReader
}

// stores holds the persistence chosen by configuration
type stores struct {
	products productStore
	orders   order.Repository
	reports  analytics.Repository
	coupons  coupon.Repository
	sequence order.Sequencer
	guard    checkout.Guard
	dedup    payment.EventDeduper
	audit    auditStore
	checks   map[string]http.HealthCheck

	db    *postgres.DB
	redis *redisstore.Client
	mongo *mongostore.PaymentEventLog
}

func openStores(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*stores, error) {
	st := &stores{checks: map[string]http.HealthCheck{}}

	if err := st.openDatabase(cfg, log); err != nil {
		st.close(log)
		return nil, err
	}
	if err := st.openRedis(cfg, log); err != nil {
		st.close(log)
		return nil, err
	}
	if err := st.openAudit(ctx, cfg, log); err != nil {
		st.close(log)
		return nil, err
	}
	return st, nil
}

func (st *stores) openDatabase(cfg *config.Config, log logrus.FieldLogger) error {
	if cfg.Database.Driver == "memory" {
		log.Warn("⚠️  DB_DRIVER=memory: orders and stock live in process memory only")
		st.products = memory.NewProductStore(postgres.SeedProducts()...)
		orders := memory.NewOrderStore()
		st.orders, st.reports = orders, orders
		st.coupons = memory.NewCouponStore(postgres.SeedCoupons(time.Now().UTC())...)
		st.sequence = memory.NewSequence()
		return nil
	}

	db, err := postgres.NewConnection(cfg, log)
	if err != nil {
		return err
	}
	st.db = db

	migration := postgres.NewMigration(db.GetDB(), log)
	if err := migration.RunAutoMigrations(); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	if err := migration.CreateIndexes(); err != nil {
		log.WithField("error", err.Error()).Warn("index creation failed")
	}
	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			log.WithField("error", err.Error()).Warn("data seeding failed")
		}
	}

	st.products = postgres.NewProductRepository(db.GetDB())
	orders := postgres.NewOrderRepository(db.GetDB())
	st.orders, st.reports = orders, orders
	st.coupons = postgres.NewCouponRepository(db.GetDB())
	st.sequence = postgres.NewSequence(db.GetDB())
	st.checks["database"] = func(context.Context) error { return db.Health() }
	return nil
}

func (st *stores) openRedis(cfg *config.Config, log logrus.FieldLogger) error {
	if !cfg.Redis.Enabled {
		log.Warn("redis disabled: checkout guard and webhook dedup are per process")
		st.guard = memory.NewCheckoutGuard()
		st.dedup = memory.NewEventDeduper()
		return nil
	}

	client, err := redisstore.NewConnection(cfg, log)
	if err != nil {
		return err
	}
	st.redis = client
	st.guard = redisstore.NewCheckoutGuard(client.Redis, cfg.Checkout.LockTTL, cfg.Checkout.CompletedTTL)
	st.dedup = redisstore.NewEventDeduper(client.Redis, cfg.Payment.EventDedupTTL)
	st.checks["redis"] = func(context.Context) error { return client.Health() }
	return nil
}

func (st *stores) openAudit(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) error {
	if cfg.Mongo.URI == "" {
		st.audit = memory.NewEventLog()
		return nil
	}

	events, err := mongostore.NewPaymentEventLog(ctx, cfg.Mongo, log)
	if err != nil {
		return err
	}
	st.mongo = events
	st.audit = events
	st.checks["mongo"] = events.Health
	return nil
}

// redisClient is nil when redis is disabled
func (st *stores) redisClient() *goredis.Client {
	if st.redis == nil {
		return nil
	}
	return st.redis.Redis
}

// outbox publishes to the notification queue. Config validation guarantees redis.
func (st *stores) outbox() *redisstore.Publisher {
	return redisstore.NewPublisher(st.redis.Redis, redisstore.NotificationQueue)
}

func (st *stores) close(log logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if st.mongo != nil {
		if err := st.mongo.Close(ctx); err != nil {
			log.WithField("error", err.Error()).Warn("failed to close mongo")
		}
	}
	if st.redis != nil {
		if err := st.redis.Close(); err != nil {
			log.WithField("error", err.Error()).Warn("failed to close redis")
		}
	}
	if st.db != nil {
		if err := st.db.Close(); err != nil {
			log.WithField("error", err.Error()).Warn("failed to close database")
		}
	}
}
