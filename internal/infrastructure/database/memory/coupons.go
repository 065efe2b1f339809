package memory

import (
	"context"
	"sync"
	"time"

	"github.com/your-org/storefront-orders/internal/domain/coupon"
)

// CouponStore keeps coupons keyed by code
type CouponStore struct {
	mu      sync.RWMutex
	coupons map[string]coupon.Coupon
	nextID  uint
}

// NewCouponStore constructs a store seeded with coupons
func NewCouponStore(coupons ...coupon.Coupon) *CouponStore {
	s := &CouponStore{coupons: make(map[string]coupon.Coupon)}
	for i := range coupons {
		_ = s.Create(context.Background(), &coupons[i])
	}
	return s
}

// Create stores a new coupon
func (s *CouponStore) Create(_ context.Context, c *coupon.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.coupons[c.Code]; ok {
		return coupon.ErrCouponExists
	}
	s.nextID++
	c.ID = s.nextID
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	s.coupons[c.Code] = *c
	return nil
}

// GetByCode fetches a coupon
func (s *CouponStore) GetByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.coupons[code]
	if !ok {
		return nil, coupon.ErrCouponNotFound
	}
	return &c, nil
}

// IncrementUsage adds one redemption
func (s *CouponStore) IncrementUsage(_ context.Context, code string) (*coupon.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coupons[code]
	if !ok {
		return nil, coupon.ErrCouponNotFound
	}
	c.UsageCount++
	c.UpdatedAt = time.Now().UTC()
	s.coupons[code] = c
	return &c, nil
}

// SetActive toggles a coupon
func (s *CouponStore) SetActive(_ context.Context, code string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.coupons[code]
	if !ok {
		return coupon.ErrCouponNotFound
	}
	c.IsActive = active
	s.coupons[code] = c
	return nil
}
