package memory

import (
	"context"
	"sort"
	"time"

	"github.com/your-org/storefront-orders/internal/domain/analytics"
	"github.com/your-org/storefront-orders/internal/domain/order"
)

// OrdersByStatus counts orders created since since, per status
func (s *OrderStore) OrdersByStatus(_ context.Context, since time.Time) ([]analytics.StatusData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := map[order.OrderStatus]*analytics.StatusData{}
	for _, o := range s.orders {
		if o.CreatedAt.Before(since) {
			continue
		}
		st, ok := totals[o.Status]
		if !ok {
			st = &analytics.StatusData{Status: string(o.Status)}
			totals[o.Status] = st
		}
		st.Count++
		st.Value += o.Total
	}

	result := make([]analytics.StatusData, 0, len(totals))
	for _, st := range totals {
		result = append(result, *st)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Status < result[j].Status
	})
	return result, nil
}

// DailyRevenue sums net revenue of paid orders per UTC day, oldest first
func (s *OrderStore) DailyRevenue(_ context.Context, since time.Time) ([]analytics.TimeSeriesData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days := map[string]*analytics.TimeSeriesData{}
	for _, o := range s.orders {
		if o.CreatedAt.Before(since) || !o.PaymentStatus.IsPaid() {
			continue
		}
		date := o.CreatedAt.UTC().Format("2006-01-02")
		d, ok := days[date]
		if !ok {
			d = &analytics.TimeSeriesData{Date: date}
			days[date] = d
		}
		d.Count++
		d.Value += o.Total - o.RefundAmount
	}

	result := make([]analytics.TimeSeriesData, 0, len(days))
	for _, d := range days {
		result = append(result, *d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

// TopProducts ranks SKUs of paid orders by revenue
func (s *OrderStore) TopProducts(_ context.Context, since time.Time, limit int) ([]analytics.ProductSalesData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := map[string]*analytics.ProductSalesData{}
	for _, o := range s.orders {
		if o.CreatedAt.Before(since) || !o.PaymentStatus.IsPaid() {
			continue
		}
		seen := map[string]bool{}
		for _, item := range o.Items {
			p, ok := products[item.SKU]
			if !ok {
				p = &analytics.ProductSalesData{SKU: item.SKU, Name: item.Name}
				products[item.SKU] = p
			}
			p.TotalSold += int64(item.Quantity)
			p.Revenue += item.Total
			if !seen[item.SKU] {
				p.OrderCount++
				seen[item.SKU] = true
			}
		}
	}

	result := make([]analytics.ProductSalesData, 0, len(products))
	for _, p := range products {
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Revenue != result[j].Revenue {
			return result[i].Revenue > result[j].Revenue
		}
		return result[i].SKU < result[j].SKU
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
