package order_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/your-org/storefront-orders/internal/domain/inventory"
	"github.com/your-org/storefront-orders/internal/domain/order"
	"github.com/your-org/storefront-orders/internal/domain/product"
	"github.com/your-org/storefront-orders/internal/infrastructure/database/memory"
)

var now = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

type recordingNotifier struct {
	mu            sync.Mutex
	confirmations int
	updates       []order.OrderStatus
	err           error
}

func (n *recordingNotifier) SendOrderConfirmation(context.Context, *order.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmations++
	return n.err
}

func (n *recordingNotifier) SendOrderStatusUpdate(_ context.Context, _ *order.Order, status order.OrderStatus, _ *order.Tracking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, status)
	return n.err
}

type flakyReleaser struct {
	next  order.StockReleaser
	fails int
	calls int
}

func (f *flakyReleaser) ReleaseAll(ctx context.Context, ref string, lines []inventory.Line) error {
	f.calls++
	if f.fails > 0 {
		f.fails--
		return errors.New("database unavailable")
	}
	return f.next.ReleaseAll(ctx, ref, lines)
}

type fixture struct {
	svc      *order.Service
	orders   *memory.OrderStore
	products *memory.ProductStore
	notifier *recordingNotifier
	releaser *flakyReleaser
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// newFixture seeds SKU A with 3 units left after a placed order holding 2
func newFixture(t *testing.T, status order.OrderStatus, payment order.PaymentStatus) *fixture {
	t.Helper()
	logger := quietLogger()
	products := memory.NewProductStore(product.Product{SKU: "A", Name: "Widget", Price: 2500, Stock: 3, LowStockThreshold: 1, IsActive: true})
	orders := memory.NewOrderStore()
	releaser := &flakyReleaser{next: inventory.NewLedger(products, logger)}
	notifier := &recordingNotifier{}

	o := &order.Order{
		ID:            "ord-1",
		OrderNumber:   "ORD-2026-00001",
		CustomerID:    7,
		CartKey:       "cart-1",
		Status:        status,
		PaymentStatus: payment,
		PaymentMethod: order.PaymentMethodStripe,
		PaymentID:     "pi_1",
		Subtotal:      5000,
		Total:         5000,
		Items:         []order.OrderItem{{SKU: "A", Name: "Widget", Quantity: 2, Price: 2500, Total: 5000}},
		CreatedAt:     now,
	}
	if payment == order.PaymentStatusPending {
		o.PaymentID = ""
	}
	if err := orders.Create(context.Background(), o); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	svc := order.NewService(orders, releaser, notifier, logger).WithClock(func() time.Time { return now })
	return &fixture{svc: svc, orders: orders, products: products, notifier: notifier, releaser: releaser}
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	p, err := f.products.GetBySKU(context.Background(), "A")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	return p.Stock
}

func TestCancelReleasesStockOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.OrderStatusConfirmed, order.PaymentStatusPaid)
	admin := order.Actor{UserID: 1, Admin: true}

	got, err := f.svc.Cancel(ctx, "ORD-2026-00001", admin, "customer request")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != order.OrderStatusCancelled || !got.StockReleased {
		t.Fatalf("unexpected order %+v", got)
	}
	if s := f.stock(t); s != 5 {
		t.Fatalf("stock = %d, want 5", s)
	}

	if _, err := f.svc.Cancel(ctx, "ORD-2026-00001", admin, "again"); !errors.Is(err, order.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := f.svc.ReleaseStock(ctx, "ORD-2026-00001"); err != nil {
		t.Fatalf("release retry: %v", err)
	}
	if s := f.stock(t); s != 5 {
		t.Errorf("stock = %d after repeated cancel, want 5", s)
	}
	if len(f.notifier.updates) != 1 || f.notifier.updates[0] != order.OrderStatusCancelled {
		t.Errorf("status notifications = %v", f.notifier.updates)
	}
}

func TestCustomerCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("other customer sees not found", func(t *testing.T) {
		f := newFixture(t, order.OrderStatusPending, order.PaymentStatusPending)
		_, err := f.svc.Cancel(ctx, "ORD-2026-00001", order.Actor{UserID: 99}, "")
		if !errors.Is(err, order.ErrOrderNotFound) {
			t.Fatalf("expected ErrOrderNotFound, got %v", err)
		}
	})

	t.Run("owner cancels pending", func(t *testing.T) {
		f := newFixture(t, order.OrderStatusPending, order.PaymentStatusPending)
		if _, err := f.svc.Cancel(ctx, "ORD-2026-00001", order.Actor{UserID: 7}, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s := f.stock(t); s != 5 {
			t.Errorf("stock = %d, want 5", s)
		}
	})

	t.Run("owner cannot cancel confirmed", func(t *testing.T) {
		f := newFixture(t, order.OrderStatusConfirmed, order.PaymentStatusPaid)
		_, err := f.svc.Cancel(ctx, "ORD-2026-00001", order.Actor{UserID: 7}, "")
		if !errors.Is(err, order.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		if s := f.stock(t); s != 3 {
			t.Errorf("stock = %d, want 3", s)
		}
	})
}

func TestFailedReleaseCanBeRetried(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.OrderStatusConfirmed, order.PaymentStatusPaid)
	f.releaser.fails = 1

	if _, err := f.svc.Cancel(ctx, "ORD-2026-00001", order.Actor{UserID: 1, Admin: true}, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := f.svc.Get(ctx, "ORD-2026-00001")
	if stored.StockReleased {
		t.Fatal("release flag should be cleared after a failed release")
	}
	if s := f.stock(t); s != 3 {
		t.Fatalf("stock = %d, want 3", s)
	}

	got, err := f.svc.ReleaseStock(ctx, "ORD-2026-00001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.StockReleased || f.stock(t) != 5 {
		t.Errorf("retry did not release: flag=%v stock=%d", got.StockReleased, f.stock(t))
	}
}

func TestReleaseStockRequiresReleasingStatus(t *testing.T) {
	f := newFixture(t, order.OrderStatusConfirmed, order.PaymentStatusPaid)
	if _, err := f.svc.ReleaseStock(context.Background(), "ORD-2026-00001"); !errors.Is(err, order.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestReturnReleasesStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.OrderStatusShipped, order.PaymentStatusPaid)
	admin := order.Actor{UserID: 1, Admin: true}

	delivered, err := f.svc.MarkDelivered(ctx, "ORD-2026-00001", admin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if delivered.DeliveredAt == nil {
		t.Error("delivered at not set")
	}
	if _, err := f.svc.UpdateStatus(ctx, "ORD-2026-00001", order.OrderStatusReturned, admin, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s := f.stock(t); s != 5 {
		t.Errorf("stock = %d, want 5", s)
	}
}

func TestUpdateStatusRejectedLeavesOrderUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.OrderStatusShipped, order.PaymentStatusPaid)
	before, _ := f.svc.Get(ctx, "ORD-2026-00001")

	_, err := f.svc.UpdateStatus(ctx, "ORD-2026-00001", order.OrderStatusPending, order.Actor{UserID: 1, Admin: true}, "")
	if !errors.Is(err, order.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	after, _ := f.svc.Get(ctx, "ORD-2026-00001")
	if after.Status != before.Status || after.Version != before.Version || len(after.StatusHistory) != len(before.StatusHistory) {
		t.Errorf("order changed: before %+v after %+v", before, after)
	}
	if len(f.notifier.updates) != 0 {
		t.Errorf("unexpected notifications %v", f.notifier.updates)
	}
}

func TestAddTrackingShipsAndNotifies(t *testing.T) {
	f := newFixture(t, order.OrderStatusProcessing, order.PaymentStatusPaid)
	got, err := f.svc.AddTracking(context.Background(), "ORD-2026-00001",
		order.Tracking{TrackingNumber: "1Z999", CourierName: "UPS"}, order.Actor{UserID: 1, Admin: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != order.OrderStatusShipped || got.ShippedAt == nil {
		t.Errorf("unexpected order %+v", got)
	}
	if len(f.notifier.updates) != 1 || f.notifier.updates[0] != order.OrderStatusShipped {
		t.Errorf("status notifications = %v", f.notifier.updates)
	}
}

func TestConfirmPaymentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.OrderStatusPending, order.PaymentStatusPending)

	for i, wantChanged := range []bool{true, false, false} {
		got, changed, err := f.svc.ConfirmPayment(ctx, "ord-1", "pi_1")
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if changed != wantChanged {
			t.Errorf("call %d: changed = %v, want %v", i, changed, wantChanged)
		}
		if got.Status != order.OrderStatusConfirmed || got.PaymentStatus != order.PaymentStatusPaid {
			t.Errorf("call %d: unexpected order %+v", i, got)
		}
	}
	if f.notifier.confirmations != 1 {
		t.Errorf("confirmations = %d, want 1", f.notifier.confirmations)
	}

	stored, _ := f.svc.Get(ctx, "ORD-2026-00001")
	if len(stored.StatusHistory) != 1 {
		t.Errorf("history entries = %d, want 1", len(stored.StatusHistory))
	}
}

func TestLatePaymentOnCancelledOrderSendsNoConfirmation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.OrderStatusPending, order.PaymentStatusPending)
	admin := order.Actor{UserID: 1, Admin: true}

	if _, err := f.svc.Cancel(ctx, "ORD-2026-00001", admin, "abandoned"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, changed, err := f.svc.ConfirmPayment(ctx, "ord-1", "pi_1")
	if err != nil || !changed {
		t.Fatalf("changed=%v err=%v", changed, err)
	}
	if got.Status != order.OrderStatusCancelled || got.PaymentStatus != order.PaymentStatusPaid {
		t.Errorf("unexpected order %+v", got)
	}
	if f.notifier.confirmations != 0 {
		t.Errorf("confirmations = %d, want 0", f.notifier.confirmations)
	}
}

func TestNotificationFailureDoesNotFailPayment(t *testing.T) {
	f := newFixture(t, order.OrderStatusPending, order.PaymentStatusPending)
	f.notifier.err = errors.New("smtp down")

	got, changed, err := f.svc.ConfirmPayment(context.Background(), "ord-1", "pi_1")
	if err != nil || !changed || got.PaymentStatus != order.PaymentStatusPaid {
		t.Fatalf("got %+v changed=%v err=%v", got, changed, err)
	}
}

func TestFailPaymentAfterSuccessIsIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.OrderStatusPending, order.PaymentStatusPending)

	if _, _, err := f.svc.ConfirmPayment(ctx, "ord-1", "pi_1"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	got, changed, err := f.svc.FailPayment(ctx, "ord-1", "declined")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed || got.PaymentStatus != order.PaymentStatusPaid {
		t.Errorf("failure applied to a paid order: %+v", got)
	}
}

func TestProcessRefundCeiling(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.OrderStatusDelivered, order.PaymentStatusPaid)
	admin := order.Actor{UserID: 1, Admin: true}

	if _, err := f.svc.ProcessRefund(ctx, "ORD-2026-00001", 5100, "", admin); !errors.Is(err, order.ErrRefundExceedsTotal) {
		t.Fatalf("expected ErrRefundExceedsTotal, got %v", err)
	}

	got, err := f.svc.RefundByPaymentID(ctx, "pi_1", 5000, "refunded via stripe")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PaymentStatus != order.PaymentStatusRefunded || got.RefundAmount != 5000 {
		t.Errorf("unexpected order %+v", got)
	}
	if s := f.stock(t); s != 3 {
		t.Errorf("refund changed stock to %d", s)
	}
}

func TestSyncRefundAppliesOnlyTheDifference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.OrderStatusDelivered, order.PaymentStatusPaid)

	steps := []struct {
		total       int64
		wantChanged bool
		wantRefund  int64
		wantStatus  order.PaymentStatus
	}{
		{2000, true, 2000, order.PaymentStatusPartiallyRefunded},
		{2000, false, 2000, order.PaymentStatusPartiallyRefunded},
		{3000, true, 3000, order.PaymentStatusPartiallyRefunded},
		{1000, false, 3000, order.PaymentStatusPartiallyRefunded},
		{5000, true, 5000, order.PaymentStatusRefunded},
	}
	for i, s := range steps {
		got, changed, err := f.svc.SyncRefundByPaymentID(ctx, "pi_1", s.total, "refunded via stripe")
		if err != nil {
			t.Fatalf("step %d: unexpected error: %v", i, err)
		}
		if changed != s.wantChanged || got.RefundAmount != s.wantRefund || got.PaymentStatus != s.wantStatus {
			t.Errorf("step %d: changed=%v order %+v", i, changed, got)
		}
	}

	if _, _, err := f.svc.SyncRefundByPaymentID(ctx, "pi_1", 5001, ""); err == nil {
		t.Error("expected a total above the order total to fail")
	}
}

func TestGetForCustomer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.OrderStatusPending, order.PaymentStatusPending)

	if _, err := f.svc.GetForCustomer(ctx, "ORD-2026-00001", 7); err != nil {
		t.Fatalf("owner: %v", err)
	}
	if _, err := f.svc.GetForCustomer(ctx, "ORD-2026-00001", 8); !errors.Is(err, order.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	list, total, err := f.svc.ListForCustomer(ctx, 7, 0, 0)
	if err != nil || total != 1 || len(list) != 1 {
		t.Errorf("list = %d items, total %d, err %v", len(list), total, err)
	}
}
