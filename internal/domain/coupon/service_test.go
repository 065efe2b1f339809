package coupon_test

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/your-org/storefront-orders/internal/domain/coupon"
	"github.com/your-org/storefront-orders/internal/infrastructure/database/memory"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixedUsage map[uint]int

func (u fixedUsage) CountCouponUsage(_ context.Context, customerID uint, _ string) (int, error) {
	return u[customerID], nil
}

func newService(t *testing.T, usage coupon.UsageCounter) *coupon.Service {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return coupon.NewService(memory.NewCouponStore(), usage, logger).WithClock(func() time.Time { return now })
}

func create(t *testing.T, svc *coupon.Service, req coupon.CreateRequest) {
	t.Helper()
	if req.ValidUntil.IsZero() {
		req.ValidUntil = now.AddDate(0, 1, 0)
	}
	if _, err := svc.Create(context.Background(), req); err != nil {
		t.Fatalf("create %s: %v", req.Code, err)
	}
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()
	one := 1
	cap20 := int64(2000)
	min30 := int64(3000)

	svc := newService(t, fixedUsage{7: 1})
	create(t, svc, coupon.CreateRequest{Code: "half", DiscountType: "percentage", DiscountValue: decimal.NewFromInt(50), MaxDiscountAmount: &cap20})
	create(t, svc, coupon.CreateRequest{Code: "flat30", DiscountType: "fixed", DiscountValue: decimal.NewFromInt(3000)})
	create(t, svc, coupon.CreateRequest{Code: "first", DiscountType: "fixed", DiscountValue: decimal.NewFromInt(100), UsagePerCustomer: &one})
	create(t, svc, coupon.CreateRequest{Code: "big", DiscountType: "fixed", DiscountValue: decimal.NewFromInt(100), MinOrderValue: &min30})

	tests := []struct {
		name       string
		code       string
		subtotal   int64
		customer   uint
		want       int64
		wantReason string
	}{
		{name: "percentage capped", code: "HALF", subtotal: 10000, customer: 1, want: 2000},
		{name: "fixed clamped to subtotal", code: "flat30", subtotal: 1000, customer: 1, want: 1000},
		{name: "per customer limit reached", code: "FIRST", subtotal: 1000, customer: 7, wantReason: coupon.ReasonCustomerLimit},
		{name: "per customer limit not reached", code: "FIRST", subtotal: 1000, customer: 8, want: 100},
		{name: "below minimum", code: "BIG", subtotal: 2999, customer: 1, wantReason: coupon.ReasonBelowMinimum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval, err := svc.EvaluateForCustomer(ctx, tt.code, tt.subtotal, tt.customer)
			if tt.wantReason != "" {
				var na *coupon.NotApplicableError
				if !errors.As(err, &na) || na.Reason != tt.wantReason {
					t.Fatalf("expected reason %q, got %v", tt.wantReason, err)
				}
				if eval == nil || eval.Accepted {
					t.Errorf("expected refused evaluation, got %+v", eval)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !eval.Accepted || eval.DiscountAmount != tt.want {
				t.Errorf("got %+v, want discount %d", eval, tt.want)
			}
		})
	}

	if _, err := svc.Evaluate(ctx, "NOPE", 1000, 0); !errors.Is(err, coupon.ErrCouponNotFound) {
		t.Errorf("expected ErrCouponNotFound, got %v", err)
	}
}

func TestUsageLimitAndDeactivate(t *testing.T) {
	ctx := context.Background()
	limit := 2
	svc := newService(t, nil)
	create(t, svc, coupon.CreateRequest{Code: "TWICE", DiscountType: "fixed", DiscountValue: decimal.NewFromInt(100), UsageLimit: &limit})

	for i := 0; i < 2; i++ {
		if _, err := svc.Evaluate(ctx, "TWICE", 1000, 0); err != nil {
			t.Fatalf("use %d: %v", i, err)
		}
		if err := svc.IncrementUsage(ctx, "twice"); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	if _, err := svc.Evaluate(ctx, "TWICE", 1000, 0); !errors.Is(err, coupon.ErrCouponNotApplicable) {
		t.Fatalf("expected exhausted coupon, got %v", err)
	}

	c, _ := svc.Get(ctx, "twice")
	if c.UsageCount != 2 {
		t.Errorf("usage = %d, want 2", c.UsageCount)
	}

	create(t, svc, coupon.CreateRequest{Code: "OFF", DiscountType: "fixed", DiscountValue: decimal.NewFromInt(100)})
	if err := svc.Deactivate(ctx, "off"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	var na *coupon.NotApplicableError
	if _, err := svc.Evaluate(ctx, "OFF", 1000, 0); !errors.As(err, &na) || na.Reason != coupon.ReasonInactive {
		t.Errorf("expected inactive, got %v", err)
	}
	if err := svc.Deactivate(ctx, "MISSING"); !errors.Is(err, coupon.ErrCouponNotFound) {
		t.Errorf("expected ErrCouponNotFound, got %v", err)
	}
}

func TestCreateDuplicate(t *testing.T) {
	svc := newService(t, nil)
	create(t, svc, coupon.CreateRequest{Code: "DUP", DiscountType: "fixed", DiscountValue: decimal.NewFromInt(100)})

	_, err := svc.Create(context.Background(), coupon.CreateRequest{
		Code: "dup", DiscountType: "fixed", DiscountValue: decimal.NewFromInt(100), ValidUntil: now.AddDate(0, 1, 0),
	})
	if !errors.Is(err, coupon.ErrCouponExists) {
		t.Fatalf("expected ErrCouponExists, got %v", err)
	}
}

func TestIncrementBeyondLimitIsLogged(t *testing.T) {
	ctx := context.Background()
	limit := 1
	logger, hook := test.NewNullLogger()
	svc := coupon.NewService(memory.NewCouponStore(), nil, logger).WithClock(func() time.Time { return now })
	create(t, svc, coupon.CreateRequest{Code: "ONCE", DiscountType: "fixed", DiscountValue: decimal.NewFromInt(100), UsageLimit: &limit})

	// two checkouts both evaluated the coupon before either recorded usage
	for i := 0; i < 2; i++ {
		if _, err := svc.Evaluate(ctx, "ONCE", 1000, 0); err != nil {
			t.Fatalf("evaluate %d: %v", i, err)
		}
	}
	hook.Reset()

	if err := svc.IncrementUsage(ctx, "once"); err != nil {
		t.Fatalf("first increment: %v", err)
	}
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			t.Fatalf("unexpected warning within the limit: %s", e.Message)
		}
	}

	if err := svc.IncrementUsage(ctx, "once"); err != nil {
		t.Fatalf("second increment: %v", err)
	}
	last := hook.LastEntry()
	if last == nil || last.Level != logrus.WarnLevel || last.Data["usage_count"] != 2 || last.Data["usage_limit"] != 1 {
		t.Fatalf("expected over-redemption warning, got %+v", last)
	}

	c, _ := svc.Get(ctx, "once")
	if c.UsageCount != 2 {
		t.Errorf("usage = %d, want 2", c.UsageCount)
	}
}
