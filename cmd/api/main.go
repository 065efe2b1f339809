// cmd/api/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-orders/internal/config"
	"github.com/your-org/storefront-orders/internal/domain/analytics"
	"github.com/your-org/storefront-orders/internal/domain/checkout"
	"github.com/your-org/storefront-orders/internal/domain/coupon"
	"github.com/your-org/storefront-orders/internal/domain/inventory"
	"github.com/your-org/storefront-orders/internal/domain/order"
	"github.com/your-org/storefront-orders/internal/domain/payment"
	"github.com/your-org/storefront-orders/internal/domain/product"
	"github.com/your-org/storefront-orders/internal/interfaces/http"
	"github.com/your-org/storefront-orders/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-orders/internal/interfaces/http/routes"
	"github.com/your-org/storefront-orders/internal/pkg/auth"
	"github.com/your-org/storefront-orders/internal/pkg/email"
	"github.com/your-org/storefront-orders/internal/pkg/logger"
	"github.com/your-org/storefront-orders/internal/pkg/pdf"
	"github.com/your-org/storefront-orders/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg)
	if err := run(cfg, log); err != nil {
		log.WithField("error", err.Error()).Fatal("order service stopped with an error")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	log.Infof("🚀 Starting %s v%s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Environment)

	ctx := context.Background()

	tel, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("telemetry setup: %w", err)
	}
	metrics, err := telemetry.NewGlobalMetrics()
	if err != nil {
		return fmt.Errorf("metrics setup: %w", err)
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close(log)

	notifier := email.NewAsyncNotifier(
		email.NewEmailService(cfg.Email, cfg.Company.Name, newEmailSender(cfg, st, log), log),
		cfg.Email.SendTimeout,
		log,
	)

	ledger := inventory.NewLedger(st.products, log)
	orders := order.NewService(st.orders, ledger, notifier, log)
	coupons := coupon.NewService(st.coupons, st.orders, log)
	builder := checkout.NewBuilder(
		st.products, coupons, ledger, st.orders, st.sequence, st.guard,
		checkout.RulesFromConfig(cfg), metrics, log,
	)
	reconciler := payment.NewReconciler(orders, st.dedup, st.audit, metrics, log)
	decoders := payment.NewRegistry(cfg.Payment, time.Now)
	if len(decoders) == 0 {
		log.Warn("no payment webhook secrets configured; all webhooks will be refused")
	}

	server := http.NewServer(cfg, routes.Handlers{
		Products:  handlers.NewProductHandler(product.NewService(st.products, log), log),
		Checkout:  handlers.NewCheckoutHandler(builder, orders, log),
		Orders:    handlers.NewOrderHandler(orders, log),
		Invoices:  handlers.NewInvoiceHandler(orders, pdf.NewService(cfg.Company), log),
		Coupons:   handlers.NewCouponHandler(coupons, log),
		Inventory: handlers.NewInventoryHandler(ledger, st.products, log),
		Payments:  handlers.NewPaymentHandler(decoders, reconciler, st.audit, log),
		Analytics: handlers.NewAnalyticsHandler(analytics.NewService(st.reports, log), log),
		Tokens:    auth.NewJWTManager(cfg.JWT),
	}, st.redisClient(), st.checks, log)

	log.Info("✅ All systems operational!")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("👋 Shutting down gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.WithField("error", err.Error()).Error("failed to shutdown HTTP server gracefully")
	}
	if err := notifier.Wait(shutdownCtx); err != nil {
		log.WithField("error", err.Error()).Warn("pending notifications abandoned")
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.WithField("error", err.Error()).Warn("telemetry shutdown failed")
	}

	log.Info("✅ Server shutdown completed")
	return nil
}

// newEmailSender picks the delivery backend for EMAIL_PROVIDER
func newEmailSender(cfg *config.Config, st *stores, log logrus.FieldLogger) email.Sender {
	switch cfg.Email.Provider {
	case "queue":
		return email.NewQueueSender(st.outbox())
	case "smtp":
		return email.NewSMTPSender(cfg.Email)
	default:
		return email.NewLogSender(log)
	}
}
