package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/your-org/storefront-orders/internal/domain/order"
)

// OrderStore keeps orders in memory with the same version semantics as postgres
type OrderStore struct {
	mu       sync.RWMutex
	orders   map[string]order.Order
	byNumber map[string]string
	byCart   map[string]string
	nextItem uint
	nextHist uint

	// FailCreate, when set, is returned by Create. Used to exercise compensation paths.
	FailCreate error
}

// NewOrderStore constructs an empty order store
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders:   make(map[string]order.Order),
		byNumber: make(map[string]string),
		byCart:   make(map[string]string),
	}
}

// Create stores a new order
func (s *OrderStore) Create(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailCreate != nil {
		return s.FailCreate
	}
	if _, ok := s.byNumber[o.OrderNumber]; ok {
		return order.ErrDuplicateOrderNumber
	}
	if _, ok := s.byCart[o.CartKey]; ok {
		return order.ErrDuplicateCart
	}

	if o.Version == 0 {
		o.Version = 1
	}
	for i := range o.Items {
		s.nextItem++
		o.Items[i].ID = s.nextItem
		o.Items[i].OrderID = o.ID
	}
	s.assignHistoryIDs(o)

	s.orders[o.ID] = o.Clone()
	s.byNumber[o.OrderNumber] = o.ID
	s.byCart[o.CartKey] = o.ID
	return nil
}

// GetByID fetches an order by internal id
func (s *OrderStore) GetByID(_ context.Context, id string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	c := o.Clone()
	return &c, nil
}

// GetByNumber fetches an order by order number
func (s *OrderStore) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	s.mu.RLock()
	id, ok := s.byNumber[number]
	s.mu.RUnlock()
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return s.GetByID(ctx, id)
}

// GetByPaymentID fetches the order holding a provider payment reference
func (s *OrderStore) GetByPaymentID(_ context.Context, paymentID string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if paymentID == "" {
		return nil, order.ErrOrderNotFound
	}
	for _, o := range s.orders {
		if o.PaymentID == paymentID {
			c := o.Clone()
			return &c, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

// ListByCustomer returns a page of orders, newest first
func (s *OrderStore) ListByCustomer(_ context.Context, customerID uint, limit, offset int) ([]order.Order, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []order.Order
	for _, o := range s.orders {
		if o.CustomerID == customerID {
			result = append(result, o.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	total := int64(len(result))
	if offset >= len(result) {
		return []order.Order{}, total, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], total, nil
}

// Update saves o if nobody else changed it since it was loaded
func (s *OrderStore) Update(_ context.Context, o *order.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[o.ID]
	if !ok {
		return order.ErrOrderNotFound
	}
	if stored.Version != o.Version {
		return order.ErrVersionConflict
	}

	o.Version++
	s.assignHistoryIDs(o)
	s.orders[o.ID] = o.Clone()
	return nil
}

// CountCouponUsage counts the customer's orders that used code
func (s *OrderStore) CountCouponUsage(_ context.Context, customerID uint, code string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, o := range s.orders {
		if o.CustomerID == customerID && o.CouponCode == code {
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored orders
func (s *OrderStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

func (s *OrderStore) assignHistoryIDs(o *order.Order) {
	for i := range o.StatusHistory {
		if o.StatusHistory[i].ID == 0 {
			s.nextHist++
			o.StatusHistory[i].ID = s.nextHist
			o.StatusHistory[i].OrderID = o.ID
		}
	}
}
