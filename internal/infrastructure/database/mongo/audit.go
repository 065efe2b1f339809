// internal/infrastructure/database/mongo/audit.go
package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/your-org/storefront-orders/internal/config"
	"github.com/your-org/storefront-orders/internal/domain/payment"
)

// PaymentEventLog stores processed webhook events for support and disputes
type PaymentEventLog struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

// NewPaymentEventLog connects to mongo and ensures the lookup indexes exist
func NewPaymentEventLog(ctx context.Context, cfg config.MongoConfig, logger logrus.FieldLogger) (*PaymentEventLog, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	l := &PaymentEventLog{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		timeout:    cfg.Timeout,
	}
	if err := l.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"database":   cfg.Database,
		"collection": cfg.Collection,
	}).Info("✅ Payment event log connected")
	return l, nil
}

func (l *PaymentEventLog) ensureIndexes(ctx context.Context) error {
	_, err := l.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "processed_at", Value: -1}}},
		{Keys: bson.D{{Key: "provider", Value: 1}, {Key: "event_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create payment event indexes: %w", err)
	}
	return nil
}

// Append inserts one audit entry
func (l *PaymentEventLog) Append(ctx context.Context, entry payment.AuditEntry) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	if _, err := l.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert payment event: %w", err)
	}
	return nil
}

// ForOrder returns the latest entries for an order id, newest first
func (l *PaymentEventLog) ForOrder(ctx context.Context, orderID string, limit int64) ([]payment.AuditEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "processed_at", Value: -1}}).SetLimit(limit)
	cursor, err := l.collection.Find(ctx, bson.M{"order_id": orderID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment events: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []payment.AuditEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode payment events: %w", err)
	}
	return entries, nil
}

// Health pings mongo
func (l *PaymentEventLog) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return l.client.Ping(ctx, nil)
}

// Close disconnects the client
func (l *PaymentEventLog) Close(ctx context.Context) error {
	return l.client.Disconnect(ctx)
}
