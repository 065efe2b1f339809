// internal/domain/coupon/service.go
package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Repository persists coupons keyed by upper-case code
type Repository interface {
	Create(ctx context.Context, c *Coupon) error
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	// IncrementUsage atomically adds one to usage_count and returns the
	// coupon as stored after the increment.
	IncrementUsage(ctx context.Context, code string) (*Coupon, error)
	SetActive(ctx context.Context, code string, active bool) error
}

// UsageCounter resolves how many times a customer already redeemed a code
type UsageCounter interface {
	CountCouponUsage(ctx context.Context, customerID uint, code string) (int, error)
}

// Service is the coupon engine
type Service struct {
	repo   Repository
	usage  UsageCounter
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewService creates a new coupon service
func NewService(repo Repository, usage UsageCounter, logger logrus.FieldLogger) *Service {
	return &Service{
		repo:   repo,
		usage:  usage,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Evaluate prices code against subtotal for a customer with priorUsage redemptions.
// A refused coupon returns both the evaluation and a *NotApplicableError.
func (s *Service) Evaluate(ctx context.Context, code string, subtotal int64, priorUsage int) (*Evaluation, error) {
	code = NormalizeCode(code)
	c, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("failed to load coupon: %w", err)
	}

	now := s.now()
	if reason := c.Check(now, subtotal, priorUsage); reason != "" {
		return &Evaluation{Code: code, Reason: reason}, &NotApplicableError{Code: code, Reason: reason}
	}

	return &Evaluation{
		Code:           code,
		Accepted:       true,
		DiscountAmount: c.CalculateDiscount(now, subtotal),
	}, nil
}

// EvaluateForCustomer looks up the customer's prior usage before evaluating
func (s *Service) EvaluateForCustomer(ctx context.Context, code string, subtotal int64, customerID uint) (*Evaluation, error) {
	code = NormalizeCode(code)
	prior := 0
	if s.usage != nil {
		n, err := s.usage.CountCouponUsage(ctx, customerID, code)
		if err != nil {
			return nil, fmt.Errorf("failed to count coupon usage: %w", err)
		}
		prior = n
	}
	return s.Evaluate(ctx, code, subtotal, prior)
}

// IncrementUsage records one redemption. Call only after the order is persisted.
func (s *Service) IncrementUsage(ctx context.Context, code string) error {
	code = NormalizeCode(code)
	c, err := s.repo.IncrementUsage(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to increment coupon usage: %w", err)
	}
	// Evaluation and increment are not atomic, so racing checkouts can both
	// pass the limit check.
	if c.UsageLimit != nil && c.UsageCount > *c.UsageLimit {
		s.logger.WithFields(logrus.Fields{
			"coupon":      code,
			"usage_count": c.UsageCount,
			"usage_limit": *c.UsageLimit,
		}).Warn("coupon redeemed beyond its usage limit")
		return nil
	}
	s.logger.WithField("coupon", code).Debug("coupon usage incremented")
	return nil
}

// Create validates and stores a new coupon
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Coupon, error) {
	c, err := NewCoupon(req, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, ErrCouponExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create coupon: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"coupon": c.Code,
		"type":   c.DiscountType,
		"value":  c.DiscountValue.String(),
	}).Info("coupon created")
	return c, nil
}

// Get returns a coupon by code
func (s *Service) Get(ctx context.Context, code string) (*Coupon, error) {
	return s.repo.GetByCode(ctx, NormalizeCode(code))
}

// Deactivate switches a coupon off. Coupons are never deleted.
func (s *Service) Deactivate(ctx context.Context, code string) error {
	if err := s.repo.SetActive(ctx, NormalizeCode(code), false); err != nil {
		return fmt.Errorf("failed to deactivate coupon: %w", err)
	}
	return nil
}
