//go:build integration

package mongo_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/your-org/storefront-orders/internal/config"
	"github.com/your-org/storefront-orders/internal/domain/payment"
	"github.com/your-org/storefront-orders/internal/infrastructure/database/mongo"
)

func TestPaymentEventLog(t *testing.T) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start mongo container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "mongodb")
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	log, err := mongo.NewPaymentEventLog(ctx, config.MongoConfig{
		URI:        endpoint,
		Database:   "orders_test",
		Collection: "payment_events",
		Timeout:    10 * time.Second,
	}, logger)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = log.Close(ctx) })

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, outcome := range []payment.Outcome{payment.OutcomeApplied, payment.OutcomeNoop} {
		err := log.Append(ctx, payment.AuditEntry{
			EventID:     "evt_" + string(rune('1'+i)),
			Provider:    "stripe",
			Type:        string(payment.EventPaymentSucceeded),
			OrderID:     "ord-1",
			Outcome:     string(outcome),
			ProcessedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := log.ForOrder(ctx, "ord-1", 10)
	if err != nil {
		t.Fatalf("for order: %v", err)
	}
	if len(entries) != 2 || entries[0].EventID != "evt_2" || entries[0].Outcome != string(payment.OutcomeNoop) {
		t.Errorf("unexpected entries %+v", entries)
	}
}
